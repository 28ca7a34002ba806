package permissions

import (
	"context"
	"time"

	"git.home.luguber.info/inful/statebridge/internal/bridge"
)

// Front is the routed permission surface feature code calls. Before
// migration it reproduces the legacy behavior faithfully, including its lack
// of request throttling; after migration the isolated domain takes over.
type Front struct {
	b        *bridge.Bridge
	leg      *LegacyAdapter
	probe    Probe
	provider *Provider
}

func NewFront(b *bridge.Bridge, leg *LegacyAdapter, probe Probe, provider *Provider) *Front {
	return &Front{b: b, leg: leg, probe: probe, provider: provider}
}

// Status returns the authorization state for kind. The legacy path probes on
// a cache miss and caches the result in the legacy map; the migrated path
// delegates to the domain's staleness-aware cache.
func (f *Front) Status(ctx context.Context, kind Kind) Status {
	st, _ := bridge.Dispatch(f.b,
		func() (Status, error) {
			if st, ok := f.leg.Status(kind); ok {
				return st, nil
			}
			st, err := f.probe.Check(ctx, kind)
			if err != nil {
				return StatusUnavailable, nil
			}
			f.leg.SetStatus(kind, st)
			return st, nil
		},
		func(bridge.Domain) (Status, error) {
			d, err := f.provider.Domain()
			if err != nil {
				return StatusUnavailable, nil
			}
			return d.Status(ctx, kind), nil
		})
	return st
}

// Request asks the user for the permission. The legacy path prompts every
// time, as the original manager did; the migrated path throttles per kind.
func (f *Front) Request(ctx context.Context, kind Kind) Status {
	st, _ := bridge.Dispatch(f.b,
		func() (Status, error) {
			st, err := f.probe.Request(ctx, kind)
			if err != nil {
				return StatusUnavailable, nil
			}
			f.leg.SetStatus(kind, st)
			return st, nil
		},
		func(bridge.Domain) (Status, error) {
			d, err := f.provider.Domain()
			if err != nil {
				return StatusUnavailable, nil
			}
			return d.Request(ctx, kind), nil
		})
	return st
}

// Invalidate drops cached states so the next Status re-probes.
func (f *Front) Invalidate(ctx context.Context, kinds ...Kind) error {
	return bridge.DispatchErr(f.b,
		func() error {
			targets := kinds
			if len(targets) == 0 {
				targets = Kinds()
			}
			for _, k := range targets {
				delete(f.leg.s.Status, string(k))
			}
			return nil
		},
		func(bridge.Domain) error {
			d, err := f.provider.Domain()
			if err != nil {
				return err
			}
			return d.Invalidate(ctx, kinds...)
		})
}

// SetStaleness adjusts the cache freshness window on the migrated domain.
// The legacy cache has no such window, so before migration this is a no-op.
func (f *Front) SetStaleness(ctx context.Context, staleness time.Duration) error {
	return bridge.DispatchErr(f.b,
		func() error { return nil },
		func(bridge.Domain) error {
			d, err := f.provider.Domain()
			if err != nil {
				return err
			}
			return d.SetStaleness(ctx, staleness)
		})
}

// RefreshStale re-probes stale cached entries. Before migration there is
// nothing to sweep; the legacy cache has no notion of staleness.
func (f *Front) RefreshStale(ctx context.Context) (int, error) {
	return bridge.Dispatch(f.b,
		func() (int, error) {
			return 0, nil
		},
		func(bridge.Domain) (int, error) {
			d, err := f.provider.Domain()
			if err != nil {
				return 0, err
			}
			return d.RefreshStale(ctx)
		})
}
