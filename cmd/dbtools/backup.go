package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"focusflow/internal/database"
	"focusflow/internal/dbtools"

	"github.com/spf13/cobra"
)

func backupCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Write a timestamped copy of the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := resolveDBPath()
			if err != nil {
				return err
			}
			db, err := dbtools.OpenExisting(path)
			if err != nil {
				return err
			}
			defer database.Close(db)

			if dir == "" {
				dir = filepath.Dir(path)
			}
			dest, err := dbtools.Backup(db, dir, time.Now())
			if err != nil {
				return err
			}
			fi, err := os.Stat(dest)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Backup created: %s (%.2f KB)\n", dest, float64(fi.Size())/1024)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "directory for the backup (default: next to the database)")
	return cmd
}
