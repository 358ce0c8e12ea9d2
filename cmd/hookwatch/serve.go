package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/alfredjeanlab/hookwatch/internal/activity"
	"github.com/alfredjeanlab/hookwatch/internal/archive"
	"github.com/alfredjeanlab/hookwatch/internal/broadcast"
	"github.com/alfredjeanlab/hookwatch/internal/config"
	"github.com/alfredjeanlab/hookwatch/internal/events"
	"github.com/alfredjeanlab/hookwatch/internal/livestate"
	"github.com/alfredjeanlab/hookwatch/internal/logging"
	"github.com/alfredjeanlab/hookwatch/internal/metrics"
	"github.com/alfredjeanlab/hookwatch/internal/model"
	"github.com/alfredjeanlab/hookwatch/internal/server"
	"github.com/alfredjeanlab/hookwatch/internal/store"
	"github.com/alfredjeanlab/hookwatch/internal/store/memory"
	"github.com/alfredjeanlab/hookwatch/internal/store/postgres"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:     "serve",
	Short:   "Start the hookwatch webhook and dashboard server",
	GroupID: "services",
	// Override PersistentPreRunE so no API client is created.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		logger, err := logging.Init(cfg.Log)
		if err != nil {
			return err
		}
		defer logging.Sync()

		ctx := context.Background()

		st, err := openStore(ctx, cfg)
		if err != nil {
			logger.Errorw("failed to open log store", "backend", cfg.Store, "error", err)
			return err
		}

		var publisher events.Publisher
		if cfg.NATSURL != "" {
			pub, err := events.NewNATSPublisher(cfg.NATSURL)
			if err != nil {
				st.Close()
				return fmt.Errorf("connecting to NATS: %w", err)
			}
			publisher = pub
			logger.Infow("events enabled", "nats_url", cfg.NATSURL)
		} else {
			publisher = &events.NoopPublisher{}
			logger.Infow("events disabled (HOOKWATCH_NATS_URL not set)")
		}

		m := metrics.New()
		hub := broadcast.NewHub(m)
		tracker := activity.New()
		srv := server.New(server.Options{
			Store:     st,
			State:     livestate.New(livestate.Limits{RecentActions: cfg.RecentLimit, Alerts: cfg.AlertLimit}),
			Hub:       hub,
			Publisher: publisher,
			Activity:  tracker,
			Metrics:   m,
		})

		tracker.StartWatcher(activity.WatchConfig{
			SilentAfter: cfg.SourceSilentAfter,
			OnSilent: func(source model.Source, lastSeen time.Time) {
				_ = hub.Publish(broadcast.EventSourceSilent, map[string]any{
					"source":    source,
					"last_seen": lastSeen,
				})
			},
		})

		// Buffered for both servers so a failing goroutine never blocks.
		serveErr := make(chan error, 2)

		// gRPC health.
		var grpcStop func()
		if cfg.GRPCAddr != "" {
			grpcServer, health := server.NewGRPCServer()
			lis, err := net.Listen("tcp", cfg.GRPCAddr)
			if err != nil {
				tracker.Stop()
				publisher.Close()
				st.Close()
				return fmt.Errorf("listening on %s: %w", cfg.GRPCAddr, err)
			}
			go func() {
				logger.Infow("gRPC server listening", "addr", cfg.GRPCAddr)
				if err := grpcServer.Serve(lis); err != nil {
					serveErr <- fmt.Errorf("gRPC server on %s: %w", cfg.GRPCAddr, err)
				}
			}()
			server.SetServing(health, true)
			grpcStop = func() {
				server.SetServing(health, false)
				grpcServer.GracefulStop()
			}
		}

		httpServer := &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           srv.NewHTTPHandler(cfg.AuthToken),
			ReadHeaderTimeout: 10 * time.Second,
		}
		logger.Infow("HTTP server listening", "addr", cfg.HTTPAddr)
		go serveHTTP(httpServer, serveErr)

		var scheduler *archive.Scheduler
		if cfg.ArchiveInterval > 0 {
			scheduler, err = startArchive(ctx, cfg, st, logger)
			if err != nil {
				logger.Errorw("failed to start archive", "error", err)
			}
		}

		logger.Infow("hookwatch started",
			"http_addr", cfg.HTTPAddr,
			"grpc_addr", cfg.GRPCAddr,
			"store", cfg.Store,
		)

		runErr := waitForStop(logger, notifyShutdown(), serveErr)

		if grpcStop != nil {
			grpcStop()
			logger.Infow("gRPC server stopped")
		}

		// Close the hub first so open SSE streams return and Shutdown can finish.
		hub.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Errorw("HTTP server shutdown error", "error", err)
		}
		logger.Infow("HTTP server stopped")

		if scheduler != nil {
			scheduler.Stop()
			// Final pass so entries accepted during shutdown are archived.
			scheduler.RunOnce(shutdownCtx)
			logger.Infow("archive scheduler stopped", "cursor", scheduler.Cursor())
		}
		tracker.Stop()

		if err := publisher.Close(); err != nil {
			logger.Errorw("error closing publisher", "error", err)
		}
		if err := st.Close(); err != nil {
			logger.Errorw("error closing store", "error", err)
		}

		logger.Infow("shutdown complete")
		return runErr
	},
}

// openStore opens the configured log store backend.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.Store {
	case config.StoreMemory:
		logging.L().Warnw("using in-memory log store; entries are lost on restart")
		return memory.New(), nil
	default:
		pg, err := postgres.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return pg, nil
	}
}

// startArchive creates the S3 destination and starts the scheduler.
func startArchive(ctx context.Context, cfg *config.Config, st store.Store, logger *zap.SugaredLogger) (*archive.Scheduler, error) {
	dest, err := archive.NewS3Destination(ctx,
		cfg.ArchiveS3Bucket,
		cfg.ArchiveS3Prefix,
		cfg.ArchiveS3Region,
		cfg.ArchiveS3Endpoint,
	)
	if err != nil {
		return nil, err
	}
	scheduler := archive.NewScheduler(st, []archive.Destination{dest}, cfg.ArchiveInterval, logger)
	scheduler.Start()
	logger.Infow("archive scheduler started",
		"interval", cfg.ArchiveInterval.String(),
		"bucket", cfg.ArchiveS3Bucket,
		"prefix", cfg.ArchiveS3Prefix)
	return scheduler, nil
}
