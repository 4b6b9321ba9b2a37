package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/tbourn/helloforever-backend/internal/repo"
)

func newRunsCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Print the most recent sweep audit records",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := repo.Open(cfg.DB)
			if err != nil {
				return err
			}
			if sqlDB, err := db.DB(); err == nil {
				defer sqlDB.Close()
			}
			runs, err := repo.ListDeliveryRuns(cmd.Context(), db, limit)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(runs)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "number of runs to print")
	return cmd
}
