// Package cli implements the focusflow command line client.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	verbose    bool
}

// NewRootCmd builds the command tree. Each call returns fresh flag state.
func NewRootCmd(version string) *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "focusflow",
		Short: "FocusFlow - tasks that survive a flaky server",
		Long: `FocusFlow keeps your task list on the task server and falls back to
this device when the server cannot be reached.

Every command loads the list, applies one change and saves it to whichever
store is in charge. Tasks kept on this device move to the server the next
time it is reachable.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to focusflow.yaml")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log to stderr at debug level")

	rootCmd.AddCommand(newListCmd(opts))
	rootCmd.AddCommand(newAddCmd(opts))
	rootCmd.AddCommand(newEditCmd(opts))
	rootCmd.AddCommand(newToggleCmd(opts))
	rootCmd.AddCommand(newToggleSubCmd(opts))
	rootCmd.AddCommand(newDeleteCmd(opts))
	rootCmd.AddCommand(newDictateCmd(opts))
	rootCmd.AddCommand(newCalendarCmd(opts))
	rootCmd.AddCommand(newStorageCmd(opts))
	rootCmd.AddCommand(newStatusCmd(opts))

	return rootCmd
}

// Execute runs the root command.
func Execute(version string) error {
	if err := NewRootCmd(version).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}
