package cli

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"focusflow/internal/engine"

	"github.com/spf13/cobra"
)

var errCancelled = errors.New("cancelled")

func newStorageCmd(opts *rootOptions) *cobra.Command {
	storageCmd := &cobra.Command{
		Use:   "storage",
		Short: "Inspect or wipe the tasks kept on this device",
	}

	infoCmd := &cobra.Command{
		Use:   "info",
		Short: "Show how much local space the task list uses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(a *app) error {
				out := cmd.OutOrStdout()
				printStorageInfo(out, a.engine.StorageInfo())
				if a.engine.Mode() == engine.ModeRemoteAuthoritative {
					fmt.Fprintln(out, "Tasks are saved on the server; local storage is not in use.")
				}
				return nil
			})
		},
	}

	var yes bool
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every task kept on this device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(a *app) error {
				info := a.engine.StorageInfo()
				if !yes {
					fmt.Fprintf(cmd.OutOrStdout(), "Delete all %d task(s) kept on this device? This cannot be undone. [y/N] ", info.TaskCount)
					answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
					answer = strings.ToLower(strings.TrimSpace(answer))
					if answer != "y" && answer != "yes" {
						return errCancelled
					}
				}
				if err := a.engine.ClearLocalData(); err != nil {
					return fmt.Errorf("failed to clear local storage: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Local storage cleared.")
				return nil
			})
		},
	}
	clearCmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")

	storageCmd.AddCommand(infoCmd, clearCmd)
	return storageCmd
}
