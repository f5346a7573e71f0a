package main

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	stateColors = map[string]lipgloss.Color{
		"running":  lipgloss.Color("42"),
		"starting": lipgloss.Color("214"),
		"stopping": lipgloss.Color("214"),
		"crashed":  lipgloss.Color("196"),
		"idle":     lipgloss.Color("245"),
	}
)

// statusOrder lists status keys in display order; unknown keys follow sorted.
var statusOrder = []string{
	"state", "run_id", "pid", "command", "exit_code", "start_time", "end_time",
	"last_error", "address", "mode", "version", "ui_document", "backend_path", "log_file",
}

func printTable(w io.Writer, headers []string, rows [][]string) {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...).
		Rows(rows...)
	fmt.Fprintln(w, t.Render())
}

func printStatusTable(w io.Writer, status map[string]any) {
	rows := statusRows(status)
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == 1 && row >= 0 && row < len(rows) && rows[row][0] == "state" {
				if c, ok := stateColors[rows[row][1]]; ok {
					return cellStyle.Foreground(c).Bold(true)
				}
			}
			return cellStyle
		}).
		Headers("FIELD", "VALUE").
		Rows(rows...)
	fmt.Fprintln(w, t.Render())
}

func statusRows(status map[string]any) [][]string {
	seen := make(map[string]bool, len(status))
	rows := make([][]string, 0, len(status))
	for _, k := range statusOrder {
		if v, ok := status[k]; ok {
			rows = append(rows, []string{k, formatValue(v)})
			seen[k] = true
		}
	}
	var rest []string
	for k := range status {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	for _, k := range rest {
		rows = append(rows, []string{k, formatValue(status[k])})
	}
	return rows
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "-"
	case string:
		if x == "" {
			return "-"
		}
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}
