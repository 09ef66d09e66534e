package main

import (
	"encoding/json"

	"focusflow/internal/database"
	"focusflow/internal/dbtools"

	"github.com/spf13/cobra"
)

func statsCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show task counts and the database size",
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

			report, err := dbtools.Inspect(db, path)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			dbtools.WriteReport(cmd.OutOrStdout(), report)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}
