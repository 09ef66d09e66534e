package cli

import (
	"fmt"

	"focusflow/internal/engine"

	"github.com/spf13/cobra"
)

func newStatusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show where tasks are saved and any pending problem",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(a *app) error {
				out := cmd.OutOrStdout()
				tasks := a.engine.Tasks()
				done := 0
				for _, t := range tasks {
					if t.Completed {
						done++
					}
				}

				fmt.Fprintf(out, "Server:   %s\n", a.cfg.Client.APIURL)
				if a.engine.Mode() == engine.ModeRemoteAuthoritative {
					fmt.Fprintln(out, "Mode:     connected, tasks are saved on the server")
				} else {
					fmt.Fprintln(out, "Mode:     offline, tasks are saved on this device")
				}
				fmt.Fprintf(out, "Breaker:  %s\n", a.client.BreakerState())
				fmt.Fprintf(out, "Tasks:    %d (%d done)\n", len(tasks), done)
				if a.engine.Mode() == engine.ModeLocalFallback {
					printStorageInfo(out, a.engine.StorageInfo())
				}
				return nil
			})
		},
	}
}
