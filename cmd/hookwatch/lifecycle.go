package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
)

// serveHTTP runs srv and reports any failure other than a clean shutdown
// on errCh.
func serveHTTP(srv *http.Server, errCh chan<- error) {
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		errCh <- fmt.Errorf("HTTP server on %s: %w", srv.Addr, err)
	}
}

// notifyShutdown returns a channel that receives SIGINT and SIGTERM.
func notifyShutdown() <-chan os.Signal {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	return sigCh
}

// waitForStop blocks until a signal arrives or a server fails. It returns
// the server error, or nil for a signal.
func waitForStop(logger *zap.SugaredLogger, sigCh <-chan os.Signal, errCh <-chan error) error {
	select {
	case sig := <-sigCh:
		logger.Infow("received signal, shutting down", "signal", sig.String())
		return nil
	case err := <-errCh:
		logger.Errorw("server failed, shutting down", "error", err)
		return err
	}
}
