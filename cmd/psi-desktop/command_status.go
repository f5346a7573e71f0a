package main

import (
	"context"
	"os"
	"time"

	"github.com/spf13/cobra"
)

func newStatusCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the backend status of the running shell",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			client, err := dial(flags)
			if err != nil {
				return err
			}
			defer client.Close()

			st, err := client.Status(ctx)
			if err != nil {
				return callError(err)
			}
			printStatusTable(os.Stdout, st.AsMap())
			return nil
		},
	}
	return cmd
}
