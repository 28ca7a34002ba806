package permissions

import (
	"context"
	"fmt"

	"git.home.luguber.info/inful/statebridge/internal/bridge"
	"git.home.luguber.info/inful/statebridge/internal/domain"
	"git.home.luguber.info/inful/statebridge/internal/durable"
)

// view exposes the raw permission cache as a key-addressed domain for the
// migration bridge. It never probes; the copy pass moves the legacy map
// verbatim and verification compares it value for value.
type view struct {
	d *Domain
}

var _ bridge.Domain = (*view)(nil)

// MigrationView returns the bridge-facing surface of the domain.
func (d *Domain) MigrationView() bridge.Domain { return &view{d: d} }

func (v *view) Name() string { return DomainName }

// Close stops the underlying domain loop.
func (v *view) Close() { v.d.Close() }

func (v *view) Keys() []string {
	kinds := Kinds()
	keys := make([]string, 0, len(kinds))
	for _, k := range kinds {
		keys = append(keys, string(k))
	}
	return keys
}

func (v *view) Read(ctx context.Context, key string) (durable.Value, error) {
	kind := Kind(key)
	return domain.Call(ctx, v.d.loop, func() (durable.Value, error) {
		e, ok := v.d.entries[kind]
		if !ok {
			return durable.Value{}, nil
		}
		return durable.String(string(e.status)), nil
	})
}

func (v *view) Write(ctx context.Context, key string, val durable.Value) error {
	raw, ok := val.AsString()
	if !ok {
		return fmt.Errorf("permissions: %q expects a string state, got %s", key, val.Kind())
	}
	kind := Kind(key)
	return v.d.loop.DoErr(ctx, func() error {
		e := entry{status: normalizeStatus(raw), checkedAt: v.d.now()}
		v.d.entries[kind] = e
		if err := v.d.store.Write(ctx, cacheKey(kind), durable.String(string(e.status))); err != nil {
			return fmt.Errorf("permissions: persist %q: %w", key, err)
		}
		if err := v.d.store.Write(ctx, checkedKey(kind), durable.Time(e.checkedAt)); err != nil {
			return fmt.Errorf("permissions: persist %q timestamp: %w", key, err)
		}
		return nil
	})
}
