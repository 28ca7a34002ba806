package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/statebridge/internal/logfields"
)

// ReloadFunc receives the freshly loaded configuration after a change on
// disk. Returning an error keeps the previous configuration active.
type ReloadFunc func(ctx context.Context, cfg *Config) error

// Watcher monitors the configuration file and triggers debounced reloads.
type Watcher struct {
	configPath   string
	reload       ReloadFunc
	watcher      *fsnotify.Watcher
	stopChan     chan struct{}
	reloadChan   chan struct{}
	debounceTime time.Duration
	log          *slog.Logger
}

// NewWatcher creates a watcher for the given config file.
func NewWatcher(configPath string, reload ReloadFunc, log *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	absPath, err := filepath.Abs(configPath)
	if err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to resolve config path: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}

	return &Watcher{
		configPath:   absPath,
		reload:       reload,
		watcher:      fsw,
		stopChan:     make(chan struct{}),
		reloadChan:   make(chan struct{}, 1),
		debounceTime: 2 * time.Second,
		log:          log,
	}, nil
}

// Start begins monitoring. The containing directory is watched rather than
// the file itself so editors that replace the file are still observed.
func (w *Watcher) Start(ctx context.Context) error {
	configDir := filepath.Dir(w.configPath)
	if err := w.watcher.Add(configDir); err != nil {
		return fmt.Errorf("failed to watch config directory %s: %w", configDir, err)
	}

	w.log.Info("starting configuration watcher", slog.String("config_path", w.configPath))
	go w.watchLoop(ctx)
	go w.reloadLoop(ctx)
	return nil
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	w.log.Info("stopping configuration watcher")
	close(w.stopChan)
	return w.watcher.Close()
}

func (w *Watcher) watchLoop(ctx context.Context) {
	configFile := filepath.Base(w.configPath)

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopChan:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != configFile {
				continue
			}
			switch {
			case event.Op.Has(fsnotify.Write), event.Op.Has(fsnotify.Create), event.Op.Has(fsnotify.Rename):
				w.log.Debug("config file change detected", slog.String("file", event.Name))
				w.triggerReload()
			case event.Op.Has(fsnotify.Remove):
				w.log.Warn("config file removed", slog.String("file", event.Name))
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Error("config watcher error", logfields.Error(err))
		}
	}
}

func (w *Watcher) reloadLoop(ctx context.Context) {
	var timer *time.Timer

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case <-w.stopChan:
			if timer != nil {
				timer.Stop()
			}
			return
		case <-w.reloadChan:
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounceTime, func() {
				if err := w.performReload(ctx); err != nil {
					w.log.Error("failed to reload configuration", logfields.Error(err))
				}
			})
		}
	}
}

func (w *Watcher) triggerReload() {
	select {
	case w.reloadChan <- struct{}{}:
	default:
		// reload already pending
	}
}

func (w *Watcher) performReload(ctx context.Context) error {
	w.log.Info("reloading configuration", slog.String("config_path", w.configPath))

	cfg, err := Load(w.configPath)
	if err != nil {
		return fmt.Errorf("failed to load new configuration: %w", err)
	}
	if err := w.reload(ctx, cfg); err != nil {
		return fmt.Errorf("failed to apply new configuration: %w", err)
	}

	w.log.Info("configuration reloaded")
	return nil
}
