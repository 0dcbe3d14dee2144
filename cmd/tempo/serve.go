// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tempo Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/tempoverse/tempo/internal/config"
	"github.com/tempoverse/tempo/internal/logging"
	"github.com/tempoverse/tempo/internal/observability"
	"github.com/tempoverse/tempo/internal/session"
	sessionpg "github.com/tempoverse/tempo/internal/session/postgres"
	"github.com/tempoverse/tempo/internal/store"
)

const shutdownTimeout = 10 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the session server",
		Long: `Start the session server: the session lifecycle controller, the
stale-session sweeper, and the metrics/health endpoints.`,
		RunE: runServe,
	}

	// Flag names mirror config file keys so they layer over the file.
	cmd.Flags().String("database.url", "", "PostgreSQL connection URL")
	cmd.Flags().String("observability.addr", "", "metrics/health listen address")
	cmd.Flags().String("log.format", "", "log format (json or text)")
	cmd.Flags().String("log.level", "", "log level (debug, info, warn, error)")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return oops.With("operation", "load config").Wrap(err)
	}

	logging.SetDefault("tempo", version, cfg.Log.Format, logging.ParseLevel(cfg.Log.Level))
	logger := slog.Default()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := store.Connect(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer pool.Close()
	logger.Info("connected to database")

	obs := observability.NewServer(cfg.Observability.Addr, func() bool {
		pingCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		return pool.Ping(pingCtx) == nil
	})
	metrics := session.NewMetrics(obs.Registry())

	sessions := session.NewStore()
	issuer := session.NewIssuer(session.WithCodeTTL(cfg.Verification.CodeTTL))
	verifiers, err := session.NewStoreVerifiers(sessions, nil)
	if err != nil {
		return err
	}

	loginRecords := sessionpg.NewLoginRecordRepository(pool)
	verificationRecords := sessionpg.NewVerificationRecordRepository(pool)

	controller, err := session.NewController(sessions, issuer, verifiers,
		session.LogDispatcher{Logger: logger},
		session.WithLoginRecords(loginRecords),
		session.WithVerificationRecords(verificationRecords),
		session.WithLogger(logger),
		session.WithMetrics(metrics),
		session.WithMaxAttempts(cfg.Verification.MaxAttempts),
		session.WithResendInterval(cfg.Verification.ResendInterval),
		session.WithRecordTTL(cfg.Session.RecordTTL),
	)
	if err != nil {
		return err
	}
	defer controller.Close()

	sweeper, err := session.NewSweeper(sessions, issuer,
		session.WithSweepRetention(cfg.Sweep.Retention),
		session.WithSweepInterval(cfg.Sweep.Interval),
		session.WithSweepLogger(logger),
		session.WithSweepMetrics(metrics),
		session.WithSweepRepositories(loginRecords, verificationRecords),
	)
	if err != nil {
		return err
	}

	obsErrCh, err := obs.Start()
	if err != nil {
		return err
	}

	go sweeper.Run(ctx)

	logger.Info("session server running",
		"observability_addr", obs.Addr(),
		"sweep_interval", cfg.Sweep.Interval.String(),
	)

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case serveErr := <-obsErrCh:
		if serveErr != nil {
			return oops.With("operation", "observability server").Wrap(serveErr)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := obs.Stop(shutdownCtx); err != nil {
		return err
	}

	logger.Info("session server stopped")
	return nil
}
