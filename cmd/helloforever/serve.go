package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	httpapi "github.com/tbourn/helloforever-backend/internal/http"
	"github.com/tbourn/helloforever-backend/internal/observability"
	"github.com/tbourn/helloforever-backend/internal/repo"
	"github.com/tbourn/helloforever-backend/internal/services"
)

const (
	shutdownGrace         = 15 * time.Second
	idempotencyPurgeEvery = time.Hour
)

func newServeCmd() *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", true, "apply schema migrations on start")
	return cmd
}

func serve(ctx context.Context, migrate bool) error {
	shutdownOTel, err := observability.Setup(ctx, cfg.OTEL, version, "serve")
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownOTel(sctx)
	}()

	db, err := repo.Open(cfg.DB)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	if migrate {
		if err := repo.AutoMigrate(db); err != nil {
			return err
		}
	}

	ext, cleanup, err := buildExternal(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, db, cfg, ext)

	srv := &http.Server{
		Addr:              net.JoinHostPort("", cfg.Port),
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Sweep.Interval > 0 {
		sweeps := httpapi.NewSweepService(db, cfg, ext)
		g.Go(func() error {
			every(gctx, cfg.Sweep.Interval, func(ctx context.Context) {
				if _, err := sweeps.Run(ctx, time.Now(), services.TriggerTicker); err != nil && !errors.Is(err, services.ErrSweepInProgress) {
					log.Error().Err(err).Msg("scheduled sweep failed")
				}
			})
			return nil
		})
		log.Info().Dur("interval", cfg.Sweep.Interval).Msg("in-process sweep ticker enabled")
	}
	g.Go(func() error {
		every(gctx, idempotencyPurgeEvery, func(ctx context.Context) { purgeIdempotency(ctx, db) })
		return nil
	})

	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Str("version", version).Str("api", cfg.APIBasePath).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return srv.Shutdown(sctx)
	})

	return g.Wait()
}

// every runs fn each interval until ctx ends. Runs never overlap.
func every(ctx context.Context, interval time.Duration, fn func(context.Context)) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			fn(ctx)
		}
	}
}

func purgeIdempotency(ctx context.Context, db *gorm.DB) {
	n, err := repo.PurgeExpiredIdempotency(ctx, db, time.Now().UTC())
	if err != nil {
		log.Warn().Err(err).Msg("idempotency purge failed")
		return
	}
	if n > 0 {
		log.Debug().Int64("removed", n).Msg("expired idempotency keys purged")
	}
}
