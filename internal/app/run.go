package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/SmartX-Team/OpenARK-sub002/internal/ctxlog"
)

// Run drives the engine until the context ends: the connector pool,
// the vm tick loop, and, when configured, the resource watcher and the
// metrics server. The first failing component brings the rest down.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")
	defer a.db.Close()
	if a.watcher != nil {
		defer a.watcher.Close()
	}

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return a.pool.Run(ctx)
	})
	group.Go(func() error {
		return a.vm.Run(ctx)
	})
	if a.watcher != nil {
		group.Go(func() error {
			return a.watcher.Run(ctx)
		})
	}
	if a.config.MetricsPort > 0 {
		group.Go(func() error {
			return a.serveMetrics(ctx)
		})
	}
	a.logger.Info("Engine started.", "resources", a.config.ResourcesPath)

	err := group.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	a.logger.Debug("App.Run method finished.")
	return err
}

// serveMetrics exposes the prometheus registry and a liveness probe.
func (a *App) serveMetrics(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		a.logger.Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr)
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "OK")
	})

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", a.config.MetricsPort),
		Handler: mux,
	}
	a.logger.Info("Metrics server starting.", "address", server.Addr)

	done := make(chan error, 1)
	go func() {
		done <- server.ListenAndServe()
	}()
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-done:
		return err
	}
}
