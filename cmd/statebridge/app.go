package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/statebridge/internal/bridge"
	"git.home.luguber.info/inful/statebridge/internal/config"
	"git.home.luguber.info/inful/statebridge/internal/controller"
	"git.home.luguber.info/inful/statebridge/internal/domain"
	"git.home.luguber.info/inful/statebridge/internal/durable"
	"git.home.luguber.info/inful/statebridge/internal/journal"
	"git.home.luguber.info/inful/statebridge/internal/legacy"
	"git.home.luguber.info/inful/statebridge/internal/logfields"
	"git.home.luguber.info/inful/statebridge/internal/metrics"
	"git.home.luguber.info/inful/statebridge/internal/migration"
	"git.home.luguber.info/inful/statebridge/internal/permissions"
	"git.home.luguber.info/inful/statebridge/internal/retry"
	"git.home.luguber.info/inful/statebridge/internal/settings"
)

// app holds every wired component for one process. The same wiring backs the
// one-shot commands and the daemon.
type app struct {
	cfg *config.Config
	log *slog.Logger

	store        durable.Store
	journalStore *journal.SQLiteStore
	bus          *journal.Bus
	natsSink     *journal.NATSSink
	registry     *prom.Registry
	recorder     metrics.Recorder

	group       domain.Group
	bridges     []*bridge.Bridge
	coordinator *migration.Coordinator

	settingsFront   *settings.Front
	permFront       *permissions.Front
	controllerFront *controller.Front
	modulesFront    *controller.ModulesFront
}

func newApp(ctx context.Context, cfg *config.Config, log *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, log: log, recorder: metrics.NoopRecorder{}}

	if cfg.Metrics.Enabled {
		a.registry = prom.NewRegistry()
		a.recorder = metrics.NewPrometheusRecorder(a.registry)
	}

	store, err := durable.NewSQLiteStore(cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("open state store: %w", err)
	}
	a.store = store

	js, err := journal.NewSQLiteStore(cfg.Journal.Path)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("open journal store: %w", err)
	}
	a.journalStore = js
	a.bus = journal.NewBusWithStore(js)

	if cfg.Journal.NATSURL != "" {
		sink, err := journal.NewNATSSink(cfg.Journal.NATSURL, cfg.Journal.NATSSubject)
		if err != nil {
			log.Warn("journal NATS sink unavailable, continuing without it", logfields.Error(err))
		} else {
			sink.Attach(a.bus)
			a.natsSink = sink
		}
	}

	if err := a.wireDomains(ctx); err != nil {
		a.Close(ctx)
		return nil, err
	}
	return a, nil
}

func (a *app) wireDomains(ctx context.Context) error {
	bridgeOpts := []bridge.Option{bridge.WithRecorder(a.recorder), bridge.WithLogger(a.log)}

	settingsAdapter := settings.NewLegacyAdapter(legacy.Settings)
	settingsBridge, err := bridge.New(ctx, settings.DomainName, settingsAdapter,
		settings.Init(&a.group, a.store), a.store, bridgeOpts...)
	if err != nil {
		return err
	}
	a.settingsFront = settings.NewFront(settingsBridge, settingsAdapter)

	probe := newEnvProbe()
	permAdapter := permissions.NewLegacyAdapter(legacy.Permissions)
	permProvider := permissions.NewProvider(&a.group, a.store, probe,
		permissions.WithStaleness(a.cfg.PermissionStaleness()),
		permissions.WithThrottle(a.cfg.PermissionThrottle()),
		permissions.WithLogger(a.log))
	permBridge, err := bridge.New(ctx, permissions.DomainName, permAdapter,
		permProvider.Init(), a.store, bridgeOpts...)
	if err != nil {
		return err
	}
	a.permFront = permissions.NewFront(permBridge, permAdapter, probe, permProvider)

	controllerAdapter := controller.NewLegacyAdapter(legacy.Controller)
	controllerBridge, err := bridge.New(ctx, controller.DomainName, controllerAdapter,
		controller.Init(&a.group, a.store), a.store, bridgeOpts...)
	if err != nil {
		return err
	}
	a.controllerFront = controller.NewFront(controllerBridge, controllerAdapter)

	modulesAdapter := controller.NewModulesLegacyAdapter(legacy.Modules)
	modulesBridge, err := bridge.New(ctx, controller.ModulesDomainName, modulesAdapter,
		controller.ModulesInit(&a.group, a.store), a.store, bridgeOpts...)
	if err != nil {
		return err
	}
	a.modulesFront = controller.NewModulesFront(modulesBridge, modulesAdapter)

	a.bridges = []*bridge.Bridge{settingsBridge, permBridge, controllerBridge, modulesBridge}

	phases := []migration.Phase{
		{Name: migration.PhaseSettings, Weight: 0.2, Migrator: settingsBridge},
		{Name: migration.PhasePermissions, Weight: 0.2, Migrator: permBridge},
		{Name: migration.PhaseControllerState, Weight: 0.3, Migrator: controllerBridge},
		{Name: migration.PhaseFeatureModules, Weight: 0.2, Migrator: modulesBridge},
		{Name: migration.PhaseCleanup, Weight: 0.1, Migrator: migration.NewCleanup(a.store, a.log)},
	}

	coordinator, err := migration.New(phases,
		migration.WithRecorder(a.recorder),
		migration.WithBus(a.bus),
		migration.WithLogger(a.log),
		migration.WithRetry(retry.FromConfig(a.cfg)))
	if err != nil {
		return err
	}
	a.coordinator = coordinator
	return nil
}

// Close tears the wiring down in reverse order: domain loops first, then
// the stores they persist into.
func (a *app) Close(ctx context.Context) {
	for _, b := range a.bridges {
		b.CloseDomain()
	}
	stopCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := a.group.StopAndWait(stopCtx); err != nil {
		a.log.Warn("domain loops did not stop cleanly", logfields.Error(err))
	}

	if a.natsSink != nil {
		if err := a.natsSink.Close(); err != nil {
			a.log.Warn("closing NATS sink", logfields.Error(err))
		}
	}
	if a.journalStore != nil {
		if err := a.journalStore.Close(); err != nil {
			a.log.Warn("closing journal store", logfields.Error(err))
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn("closing state store", logfields.Error(err))
		}
	}
}
