package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kerbside/parkd/internal/config"
	"github.com/kerbside/parkd/internal/events"
	"github.com/kerbside/parkd/internal/facility"
	"github.com/kerbside/parkd/internal/ledger"
	"github.com/kerbside/parkd/internal/server"
	"github.com/kerbside/parkd/internal/store"
	"github.com/kerbside/parkd/internal/store/memory"
	"github.com/kerbside/parkd/internal/store/postgres"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Short:   "Start the parkd server",
	GroupID: "system",
	// Override PersistentPreRunE so we don't create a client connection.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

		cfg, err := config.Load()
		if err != nil {
			return err
		}

		// Pick the store. Postgres when a database URL is configured,
		// otherwise everything lives in memory and is lost on restart.
		var st store.Store
		if cfg.DatabaseURL != "" {
			pg, err := postgres.New(cfg.DatabaseURL)
			if err != nil {
				return err
			}
			st = pg
			logger.Info("using postgres store")
		} else {
			st = memory.New()
			logger.Info("using in-memory store (PARKD_DATABASE_URL not set)")
		}

		// Create event publisher.
		var publisher events.Publisher
		if cfg.NATSURL != "" {
			pub, err := events.NewNATSPublisher(cfg.NATSURL)
			if err != nil {
				st.Close()
				return err
			}
			publisher = pub
			logger.Info("events enabled", "nats_url", cfg.NATSURL)
		} else {
			publisher = &events.NoopPublisher{}
			logger.Info("events disabled (PARKD_NATS_URL not set)")
		}

		fac, err := facility.New(st, facility.Options{
			Capacity:  cfg.Capacity,
			Rates:     cfg.Rates,
			AutoClose: cfg.AutoClose,
			Publisher: publisher,
		})
		if err != nil {
			publisher.Close()
			st.Close()
			return err
		}

		parkingServer := server.NewParkingServer(fac)
		httpServer := &http.Server{
			Addr:    cfg.HTTPAddr,
			Handler: parkingServer.NewHTTPHandler(cfg.AuthToken),
		}

		go func() {
			logger.Info("HTTP server listening", "addr", cfg.HTTPAddr)
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("HTTP server error", "err", err)
			}
		}()

		// Start the ledger export scheduler if any destinations are configured.
		var scheduler *ledger.Scheduler
		if cfg.LedgerInterval > 0 {
			var dests []ledger.Destination

			if cfg.LedgerS3Bucket != "" {
				s3Dest, err := ledger.NewS3Destination(
					context.Background(),
					cfg.LedgerS3Bucket,
					cfg.LedgerS3Key,
					cfg.LedgerS3Region,
					cfg.LedgerS3Endpoint,
				)
				if err != nil {
					logger.Error("failed to create S3 ledger destination", "err", err)
				} else {
					dests = append(dests, s3Dest)
					logger.Info("ledger S3 destination enabled", "bucket", cfg.LedgerS3Bucket, "key", cfg.LedgerS3Key)
				}
			}

			if cfg.LedgerGitRepo != "" {
				gitDest := ledger.NewGitDestination(cfg.LedgerGitRepo, cfg.LedgerGitFile, cfg.LedgerGitBranch)
				dests = append(dests, gitDest)
				logger.Info("ledger git destination enabled", "repo", cfg.LedgerGitRepo, "file", cfg.LedgerGitFile)
			}

			if len(dests) > 0 {
				scheduler = ledger.NewScheduler(st, dests, cfg.LedgerInterval, logger)
				scheduler.Start()
				logger.Info("ledger scheduler started", "interval", cfg.LedgerInterval)
			}
		}

		logger.Info("parkd server started",
			"http_addr", cfg.HTTPAddr,
			"capacity", cfg.Capacity,
			"auto_close", cfg.AutoClose,
		)

		// Wait for SIGINT or SIGTERM.
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received signal, shutting down", "signal", sig)

		if scheduler != nil {
			scheduler.Stop()
			logger.Info("ledger scheduler stopped")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", "err", err)
		}
		logger.Info("HTTP server stopped")

		if err := publisher.Close(); err != nil {
			logger.Error("error closing publisher", "err", err)
		}
		if err := st.Close(); err != nil {
			logger.Error("error closing store", "err", err)
		}

		logger.Info("shutdown complete")
		return nil
	},
}
