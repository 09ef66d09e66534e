package main

import (
	"fmt"
	"os"

	"focusflow/internal/config"

	"github.com/spf13/cobra"
)

var Version = "dev"

var (
	configPath string
	dbPath     string
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "dbtools",
		Short:         "Maintenance tools for the FocusFlow server database",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to focusflow.yaml")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database file (default server.db_path)")

	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(backupCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(hashPasswordCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// resolveDBPath prefers --db over the configured server database.
func resolveDBPath() (string, error) {
	if dbPath != "" {
		return dbPath, nil
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return "", err
	}
	return cfg.Server.DBPath, nil
}
