package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
)

func newOpenCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "open",
		Short: "Bring up the window of the running shell",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			client, err := dial(flags)
			if err != nil {
				return err
			}
			defer client.Close()
			return callError(client.Activate(ctx))
		},
	}
}

func newQuitCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "quit",
		Short: "Stop the backend and quit the running shell",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			client, err := dial(flags)
			if err != nil {
				return err
			}
			defer client.Close()
			return callError(client.Quit(ctx))
		},
	}
}
