package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusRows_OrderAndFormat(t *testing.T) {
	rows := statusRows(map[string]any{
		"zeta":      true,
		"pid":       float64(4242),
		"state":     "running",
		"run_id":    "",
		"exit_code": float64(-1),
		"mode":      "packaged",
	})
	assert.Equal(t, [][]string{
		{"state", "running"},
		{"run_id", "-"},
		{"pid", "4242"},
		{"exit_code", "-1"},
		{"mode", "packaged"},
		{"zeta", "true"},
	}, rows)
}

func TestPrintStatusTable(t *testing.T) {
	var buf bytes.Buffer
	printStatusTable(&buf, map[string]any{"state": "idle", "last_error": "Backend unavailable: no executable"})

	out := buf.String()
	assert.Contains(t, out, "FIELD")
	assert.Contains(t, out, "idle")
	assert.Contains(t, out, "Backend unavailable: no executable")
}

func TestRootCmd_Commands(t *testing.T) {
	root := NewRootCmd()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"run", "status", "logs", "open", "quit", "paths"}, names)
	assert.NotNil(t, root.Flags().Lookup("dev"))
	assert.NotNil(t, root.PersistentFlags().Lookup("socket"))
}

func TestStatus_NotRunning(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()

	root := NewRootCmd()
	root.SetArgs([]string{
		"status",
		"--config", filepath.Join(dir, "missing.toml"),
		"--socket", filepath.Join(dir, "control.sock"),
	})
	err := root.ExecuteContext(context.Background())
	assert.ErrorIs(t, err, errNotRunning)
}
