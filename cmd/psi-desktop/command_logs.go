package main

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/SanjoDeundiak/psi-desktop/pkg/lib/control"
)

func newLogsCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Stream backend output (stdout/stderr) from the beginning",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			client, err := dial(flags)
			if err != nil {
				return err
			}
			defer client.Close()

			stream, err := client.Logs(ctx)
			if err != nil {
				return callError(err)
			}
			for {
				msg, err := stream.Recv()
				if err == io.EOF {
					return nil
				}
				if err != nil {
					return callError(err)
				}

				var w io.Writer
				fields := msg.GetFields()
				switch fields["stream"].GetStringValue() {
				case control.StreamStdout:
					w = os.Stdout
				case control.StreamStderr:
					w = os.Stderr
				}

				if w != nil {
					if _, werr := io.WriteString(w, fields["data"].GetStringValue()); werr != nil {
						return werr
					}
				}
			}
		},
	}
	return cmd
}
