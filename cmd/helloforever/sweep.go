package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	httpapi "github.com/tbourn/helloforever-backend/internal/http"
	"github.com/tbourn/helloforever-backend/internal/observability"
	"github.com/tbourn/helloforever-backend/internal/repo"
	"github.com/tbourn/helloforever-backend/internal/services"
)

func newSweepCmd() *cobra.Command {
	var (
		at          string
		failOnError bool
	)
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Deliver every message that is due and print a JSON summary",
		Long: `Runs one delivery sweep, for use from cron or a platform scheduler.
Per-message failures are reported in the summary and retried on the next run.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			now := time.Now().UTC()
			if at != "" {
				t, err := time.Parse(time.RFC3339, at)
				if err != nil {
					return fmt.Errorf("--at: %w", err)
				}
				now = t.UTC()
			}

			shutdown, err := observability.Setup(ctx, cfg.OTEL, version, "sweep")
			if err != nil {
				return err
			}
			defer func() { _ = shutdown(ctx) }()

			db, err := repo.Open(cfg.DB)
			if err != nil {
				return err
			}
			if sqlDB, err := db.DB(); err == nil {
				defer sqlDB.Close()
			}

			ext, cleanup, err := buildExternal(ctx, cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			res, err := httpapi.NewSweepService(db, cfg, ext).Run(ctx, now, services.TriggerCLI)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(res); err != nil {
				return err
			}
			log.Info().Int("delivered", res.DeliveredCount).Int("failed", res.FailedCount).Msg("sweep finished")
			if failOnError && res.FailedCount > 0 {
				return fmt.Errorf("%d deliveries failed", res.FailedCount)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "evaluate due messages at this RFC 3339 instant instead of now")
	cmd.Flags().BoolVar(&failOnError, "fail-on-error", false, "exit non-zero when any delivery failed")
	return cmd
}
