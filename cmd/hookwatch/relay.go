package main

import (
	"context"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/hookwatch/internal/config"
	"github.com/alfredjeanlab/hookwatch/internal/logging"
	"github.com/alfredjeanlab/hookwatch/internal/metrics"
	"github.com/alfredjeanlab/hookwatch/internal/relay"
	"github.com/alfredjeanlab/hookwatch/internal/server"
)

var relayCmd = &cobra.Command{
	Use:     "relay",
	Short:   "Start the webhook relay in front of hookwatch and legacy targets",
	GroupID: "services",
	// Override PersistentPreRunE so no API client is created.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadRelay()
		if err != nil {
			return err
		}
		logger, err := logging.Init(cfg.Log)
		if err != nil {
			return err
		}
		defer logging.Sync()

		r := relay.New(relay.OptionsFromConfig(cfg, metrics.New()))

		httpServer := &http.Server{
			Addr:              cfg.Addr,
			Handler:           server.LoggingMiddleware(server.RecoveryMiddleware(r.Handler())),
			ReadHeaderTimeout: 10 * time.Second,
		}
		serveErr := make(chan error, 1)
		logger.Infow("relay listening", "addr", cfg.Addr)
		go serveHTTP(httpServer, serveErr)

		logger.Infow("relay started",
			"primary_url", cfg.PrimaryURL,
			"workers", cfg.Workers,
			"queue_size", cfg.QueueSize,
			"report_targets", len(cfg.Targets.Report),
			"admin_targets", len(cfg.Targets.Admin),
			"general_targets", len(cfg.Targets.General),
		)

		runErr := waitForStop(logger, notifyShutdown(), serveErr)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Errorw("relay HTTP shutdown error", "error", err)
		}
		if err := r.Shutdown(shutdownCtx); err != nil {
			logger.Warnw("relay queue not fully drained", "error", err)
		}

		logger.Infow("shutdown complete")
		return runErr
	},
}
