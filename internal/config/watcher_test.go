package config

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherReloadsOnWrite(t *testing.T) {
	path := writeConfig(t, "storage:\n  path: first.db\n")

	reloaded := make(chan *Config, 1)
	w, err := NewWatcher(path, func(_ context.Context, cfg *Config) error {
		select {
		case reloaded <- cfg:
		default:
		}
		return nil
	}, nil)
	require.NoError(t, err)
	w.debounceTime = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	t.Cleanup(func() { _ = w.Stop() })

	require.NoError(t, os.WriteFile(path, []byte("storage:\n  path: second.db\n"), 0o644))

	select {
	case cfg := <-reloaded:
		assert.Equal(t, "second.db", cfg.Storage.Path)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not reload after config write")
	}
}

func TestWatcherIgnoresBrokenConfig(t *testing.T) {
	path := writeConfig(t, "storage:\n  path: good.db\n")

	applied := make(chan *Config, 4)
	w, err := NewWatcher(path, func(_ context.Context, cfg *Config) error {
		applied <- cfg
		return nil
	}, nil)
	require.NoError(t, err)
	w.debounceTime = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	t.Cleanup(func() { _ = w.Stop() })

	// A config that fails validation must never reach the reload callback.
	require.NoError(t, os.WriteFile(path, []byte("permissions:\n  staleness: nonsense\n"), 0o644))

	select {
	case cfg := <-applied:
		t.Fatalf("broken config was applied: %+v", cfg)
	case <-time.After(500 * time.Millisecond):
	}
}
