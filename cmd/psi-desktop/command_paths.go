package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/SanjoDeundiak/psi-desktop/pkg/lib"
	"github.com/SanjoDeundiak/psi-desktop/pkg/lib/config"
	"github.com/SanjoDeundiak/psi-desktop/pkg/lib/paths"
)

func newPathsCmd(flags *rootFlags) *cobra.Command {
	var dev bool
	cmd := &cobra.Command{
		Use:   "paths",
		Short: "Print the resolved UI and backend locations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			if dev {
				cfg.Mode = config.ModeDevelopment
			}
			env, err := detectEnvironment(cfg)
			if err != nil {
				return err
			}
			r := newResolver(cfg, env)

			rows := [][]string{
				{"mode", env.mode.String()},
				{"resources", r.ResourcesDir()},
			}
			ui := r.UIDocument()
			rows = append(rows, []string{"ui document", describe(ui.Path, ui.Exists)})

			backend := r.Backend()
			if !backend.Found() {
				rows = append(rows, []string{"backend", "unavailable on this platform"})
			} else {
				rows = append(rows, []string{"backend", describe(backend.Path, backend.Exists)})
				if env.mode == lib.ModeDevelopment {
					entry := r.Entry(backend.Path)
					if !entry.Found() {
						entry.Path = filepath.Join(backend.Path, paths.BackendEntry)
					}
					rows = append(rows, []string{"entry", describe(entry.Path, entry.Exists)})
				}
			}
			rows = append(rows, []string{"control socket", cfg.ControlSocket})

			printTable(os.Stdout, []string{"WHAT", "PATH"}, rows)
			return nil
		},
	}
	cmd.Flags().BoolVar(&dev, "dev", false, "resolve as in development mode")
	return cmd
}

func describe(path string, exists bool) string {
	if path == "" {
		return "-"
	}
	if !exists {
		return path + " (missing)"
	}
	return path
}
