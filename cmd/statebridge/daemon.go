package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/statebridge/internal/config"
	"git.home.luguber.info/inful/statebridge/internal/logfields"
	"git.home.luguber.info/inful/statebridge/internal/metrics"
	"git.home.luguber.info/inful/statebridge/internal/permissions"
)

// runDaemon keeps the bridges resident: serves metrics, sweeps stale
// permissions, and reloads tunables when the config file changes. It runs
// until SIGINT or SIGTERM.
func runDaemon(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	g, gctx := errgroup.WithContext(ctx)

	// Run the migration on the way up. A failed run is not fatal: the
	// bridges keep routing to legacy and the run can be retried later.
	go func() {
		if err := a.coordinator.Start(gctx); err != nil {
			st := a.coordinator.Status()
			log.Error("startup migration failed, serving legacy routing",
				logfields.RunID(st.RunID),
				logfields.Progress(st.Progress),
				logfields.Error(err))
		}
	}()

	if cfg.Metrics.Enabled {
		srv := &http.Server{
			Addr:              cfg.Metrics.Listen,
			Handler:           metricsMux(a),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			log.Info("serving metrics", slog.String("listen", cfg.Metrics.Listen))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	sweeper, err := permissions.NewSweeper(a.permFront, cfg.SweepInterval(), log)
	if err != nil {
		return err
	}
	sweeper.Start()
	g.Go(func() error {
		<-gctx.Done()
		return sweeper.Stop()
	})

	watcher, err := config.NewWatcher(CLI.Config, func(ctx context.Context, next *config.Config) error {
		return applyReload(ctx, a, next, log)
	}, log)
	if err != nil {
		log.Warn("config watcher unavailable", logfields.Error(err))
	} else {
		if err := watcher.Start(gctx); err != nil {
			log.Warn("config watcher failed to start", logfields.Error(err))
		} else {
			g.Go(func() error {
				<-gctx.Done()
				return watcher.Stop()
			})
		}
	}

	log.Info("daemon running")
	<-gctx.Done()
	return g.Wait()
}

func metricsMux(a *app) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.HTTPHandler(a.registry))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})
	return mux
}

// applyReload applies the subset of configuration that can change without a
// restart. Storage and journal paths are pinned for the process lifetime.
func applyReload(ctx context.Context, a *app, next *config.Config, log *slog.Logger) error {
	if next.Storage.Path != a.cfg.Storage.Path {
		log.Warn("storage path change requires restart, ignoring",
			slog.String("current", a.cfg.Storage.Path),
			slog.String("new", next.Storage.Path))
	}

	if next.Permissions.Staleness != a.cfg.Permissions.Staleness {
		if err := a.permFront.SetStaleness(ctx, next.PermissionStaleness()); err != nil {
			return err
		}
		log.Info("permission staleness updated", slog.String("staleness", next.Permissions.Staleness))
	}

	a.cfg.Permissions = next.Permissions
	a.cfg.Daemon = next.Daemon
	a.cfg.Logging = next.Logging
	return nil
}
