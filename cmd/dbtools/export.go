package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"focusflow/internal/database"
	"focusflow/internal/dbtools"

	"github.com/spf13/cobra"
)

func exportCmd() *cobra.Command {
	var (
		format string
		out    string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export every task with its subtasks",
		Long: `Export every task with its subtasks, newest first.
Writes a timestamped file next to the database unless --out is given;
--out - writes to standard output.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "json" && format != "yaml" {
				return fmt.Errorf("--format must be json or yaml, got %q", format)
			}
			path, err := resolveDBPath()
			if err != nil {
				return err
			}
			db, err := dbtools.OpenExisting(path)
			if err != nil {
				return err
			}
			defer database.Close(db)

			var w io.Writer = cmd.OutOrStdout()
			if out != "-" {
				if out == "" {
					out = filepath.Join(filepath.Dir(path), dbtools.ExportName(format, time.Now()))
				}
				f, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("failed to create export file: %w", err)
				}
				defer f.Close()
				w = f
			}

			n, err := dbtools.Export(db, w, format)
			if err != nil {
				return err
			}
			if out != "-" {
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %d task(s) to %s\n", n, out)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "json", "json or yaml")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file, - for stdout")
	return cmd
}
