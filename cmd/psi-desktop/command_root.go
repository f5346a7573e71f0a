package main

import "github.com/spf13/cobra"

type rootFlags struct {
	configPath string
	socket     string
}

func NewRootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:           "psi-desktop",
		Short:         "PSI desktop shell",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "config file (default ~/.config/psi-desktop/config.toml)")
	root.PersistentFlags().StringVar(&flags.socket, "socket", "", "control socket of the running shell")

	runCmd := newRunCmd(flags)
	root.AddCommand(runCmd)
	root.AddCommand(newStatusCmd(flags))
	root.AddCommand(newLogsCmd(flags))
	root.AddCommand(newOpenCmd(flags))
	root.AddCommand(newQuitCmd(flags))
	root.AddCommand(newPathsCmd(flags))

	// without a subcommand the shell starts
	root.Flags().AddFlagSet(runCmd.Flags())
	root.RunE = runCmd.RunE

	return root
}
