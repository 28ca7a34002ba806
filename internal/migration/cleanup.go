package migration

import (
	"context"
	"fmt"
	"log/slog"

	"git.home.luguber.info/inful/statebridge/internal/bridge"
	"git.home.luguber.info/inful/statebridge/internal/durable"
	"git.home.luguber.info/inful/statebridge/internal/logfields"
)

// Cleanup is the final phase: it removes durable keys left behind by the
// pre-migration key layout. It has no isolated domain to route to, but it
// honors the same contracts as a bridge phase: idempotent, flag-persisted,
// all-or-nothing.
type Cleanup struct {
	store    durable.Store
	prefixes []string
	flag     bridge.Flag
	log      *slog.Logger
}

// NewCleanup removes keys under the given prefixes once. With no prefixes
// it defaults to the "legacy." namespace.
func NewCleanup(store durable.Store, log *slog.Logger, prefixes ...string) *Cleanup {
	if len(prefixes) == 0 {
		prefixes = []string{"legacy."}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Cleanup{
		store:    store,
		prefixes: prefixes,
		flag:     bridge.NewFlag(store, "cleanup.migration.completed"),
		log:      log,
	}
}

func (c *Cleanup) Name() string { return PhaseCleanup }

func (c *Cleanup) Migrate(ctx context.Context) error {
	done, err := c.flag.Load(ctx)
	if err != nil {
		return fmt.Errorf("cleanup: %w", err)
	}
	if done {
		return nil
	}

	removed := 0
	for _, prefix := range c.prefixes {
		keys, err := c.store.Keys(ctx, prefix)
		if err != nil {
			return fmt.Errorf("cleanup: list %q: %w", prefix, err)
		}
		for _, key := range keys {
			if err := c.store.Delete(ctx, key); err != nil {
				return fmt.Errorf("cleanup: delete %q: %w", key, err)
			}
			removed++
		}
	}

	if err := c.flag.Set(ctx); err != nil {
		return fmt.Errorf("cleanup: %w", err)
	}
	c.log.Info("stale durable keys removed", logfields.Domain(PhaseCleanup), "removed", removed)
	return nil
}

func (c *Cleanup) Rollback(ctx context.Context) error {
	if err := c.flag.Clear(ctx); err != nil {
		return fmt.Errorf("cleanup rollback: %w", err)
	}
	return nil
}
