// Package permissions is the isolated domain for the OS permission cache.
// It serializes probe calls, keeps per-kind cached states with staleness
// tracking, throttles user-facing permission requests, and persists the
// cache so it survives restarts.
package permissions

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/statebridge/internal/domain"
	"git.home.luguber.info/inful/statebridge/internal/durable"
	"git.home.luguber.info/inful/statebridge/internal/logfields"
)

const DomainName = "permissions"

// Kind enumerates the permission kinds the application cares about.
type Kind string

const (
	KindAccessibility Kind = "accessibility"
	KindLocation      Kind = "location"
	KindAudio         Kind = "audio"
	KindBrightness    Kind = "brightness"
)

// Kinds returns the canonical kind order used by migration and sweeps.
func Kinds() []Kind {
	return []Kind{KindAccessibility, KindLocation, KindAudio, KindBrightness}
}

// Status is the cached authorization state for one kind.
type Status string

const (
	StatusNotDetermined Status = "not_determined"
	StatusGranted       Status = "granted"
	StatusDenied        Status = "denied"
	StatusRestricted    Status = "restricted"
	StatusUnavailable   Status = "unavailable"
)

func normalizeStatus(raw string) Status {
	switch Status(raw) {
	case StatusNotDetermined, StatusGranted, StatusDenied, StatusRestricted, StatusUnavailable:
		return Status(raw)
	}
	return StatusNotDetermined
}

// Probe is the OS-facing collaborator. Check queries without prompting;
// Request may surface a system dialog and is throttled by the domain.
type Probe interface {
	Check(ctx context.Context, kind Kind) (Status, error)
	Request(ctx context.Context, kind Kind) (Status, error)
}

const (
	// DefaultStaleness is how long a cached state stays fresh.
	DefaultStaleness = time.Hour
	// DefaultRequestThrottle is the minimum interval between user-facing
	// permission requests per kind; repeated prompting fatigues users.
	DefaultRequestThrottle = 24 * time.Hour
)

type entry struct {
	status    Status
	checkedAt time.Time
}

// Domain owns the permission cache. All access is serialized through one
// loop; probe calls therefore never race each other.
type Domain struct {
	loop      *domain.Loop
	store     durable.Store
	probe     Probe
	staleness time.Duration
	throttle  time.Duration
	entries   map[Kind]entry
	lastReq   map[Kind]time.Time
	now       func() time.Time
	log       *slog.Logger
}

// Option configures the domain.
type Option func(*Domain)

func WithStaleness(d time.Duration) Option {
	return func(p *Domain) {
		if d > 0 {
			p.staleness = d
		}
	}
}

func WithThrottle(d time.Duration) Option {
	return func(p *Domain) {
		if d > 0 {
			p.throttle = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(p *Domain) {
		if now != nil {
			p.now = now
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(p *Domain) {
		if l != nil {
			p.log = l
		}
	}
}

// NewDomain starts the domain loop and reloads the persisted cache.
func NewDomain(g *domain.Group, store durable.Store, probe Probe, opts ...Option) (*Domain, error) {
	if probe == nil {
		return nil, fmt.Errorf("permissions: probe is required")
	}
	d := &Domain{
		store:     store,
		probe:     probe,
		staleness: DefaultStaleness,
		throttle:  DefaultRequestThrottle,
		entries:   map[Kind]entry{},
		lastReq:   map[Kind]time.Time{},
		now:       time.Now,
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}

	loop, err := domain.NewLoop(g, DomainName, 64)
	if err != nil {
		return nil, fmt.Errorf("permissions: %w", err)
	}
	d.loop = loop

	d.reload(context.Background())
	return d, nil
}

func cacheKey(k Kind) string   { return "permissions.cache." + string(k) }
func checkedKey(k Kind) string { return "permissions.checkedAt." + string(k) }
func lastReqKey(k Kind) string { return "permissions.lastRequest." + string(k) }

// reload restores cached entries from durable storage. Runs before the
// domain is handed to callers, so no loop hop is needed.
func (d *Domain) reload(ctx context.Context) {
	for _, k := range Kinds() {
		if rv, found, err := d.store.Read(ctx, lastReqKey(k)); err == nil && found {
			if t, ok := rv.AsTime(); ok {
				d.lastReq[k] = t
			}
		}

		v, found, err := d.store.Read(ctx, cacheKey(k))
		if err != nil || !found {
			continue
		}
		raw, ok := v.AsString()
		if !ok {
			continue
		}
		e := entry{status: normalizeStatus(raw)}
		if tv, found, err := d.store.Read(ctx, checkedKey(k)); err == nil && found {
			if t, ok := tv.AsTime(); ok {
				e.checkedAt = t
			}
		}
		d.entries[k] = e
	}
}

// persist writes one cache entry; failures are logged, never surfaced, so
// domain calls always complete.
func (d *Domain) persist(ctx context.Context, k Kind, e entry) {
	if err := d.store.Write(ctx, cacheKey(k), durable.String(string(e.status))); err != nil {
		d.log.Warn("persist permission cache failed", logfields.Domain(DomainName), logfields.Key(string(k)), logfields.Error(err))
		return
	}
	if err := d.store.Write(ctx, checkedKey(k), durable.Time(e.checkedAt)); err != nil {
		d.log.Warn("persist permission timestamp failed", logfields.Domain(DomainName), logfields.Key(string(k)), logfields.Error(err))
	}
}

// Status returns the cached state for kind, probing when the cache is
// absent or stale. Probe failures degrade to the last known state, else
// Unavailable; Status never returns a probe error to the caller.
func (d *Domain) Status(ctx context.Context, kind Kind) Status {
	st, err := domain.Call(ctx, d.loop, func() (Status, error) {
		return d.statusLocked(ctx, kind), nil
	})
	if err != nil {
		return StatusUnavailable
	}
	return st
}

// statusLocked runs on the domain loop.
func (d *Domain) statusLocked(ctx context.Context, kind Kind) Status {
	e, cached := d.entries[kind]
	if cached && d.now().Sub(e.checkedAt) < d.staleness {
		return e.status
	}

	st, err := d.probe.Check(ctx, kind)
	if err != nil {
		d.log.Warn("permission probe failed", logfields.Key(string(kind)), logfields.Error(err))
		if cached {
			return e.status
		}
		return StatusUnavailable
	}

	fresh := entry{status: st, checkedAt: d.now()}
	d.entries[kind] = fresh
	d.persist(ctx, kind, fresh)
	return st
}

// Request forwards to the probe's request call at most once per throttle
// interval per kind; within the interval it returns the current cached
// state without prompting.
func (d *Domain) Request(ctx context.Context, kind Kind) Status {
	st, err := domain.Call(ctx, d.loop, func() (Status, error) {
		now := d.now()
		if last, ok := d.lastReq[kind]; ok && now.Sub(last) < d.throttle {
			return d.statusLocked(ctx, kind), nil
		}

		d.lastReq[kind] = now
		if err := d.store.Write(ctx, lastReqKey(kind), durable.Time(now)); err != nil {
			d.log.Warn("persist request timestamp failed", logfields.Key(string(kind)), logfields.Error(err))
		}

		st, err := d.probe.Request(ctx, kind)
		if err != nil {
			d.log.Warn("permission request failed", logfields.Key(string(kind)), logfields.Error(err))
			if e, ok := d.entries[kind]; ok {
				return e.status, nil
			}
			return StatusUnavailable, nil
		}
		fresh := entry{status: st, checkedAt: now}
		d.entries[kind] = fresh
		d.persist(ctx, kind, fresh)
		return st, nil
	})
	if err != nil {
		return StatusUnavailable
	}
	return st
}

// Invalidate clears cached entries (all kinds when none are given); the
// next Status re-probes the source of truth.
func (d *Domain) Invalidate(ctx context.Context, kinds ...Kind) error {
	targets := kinds
	if len(targets) == 0 {
		targets = Kinds()
	}
	return d.loop.DoErr(ctx, func() error {
		for _, k := range targets {
			delete(d.entries, k)
			if err := d.store.Delete(ctx, cacheKey(k)); err != nil {
				return fmt.Errorf("permissions: invalidate %s: %w", k, err)
			}
			if err := d.store.Delete(ctx, checkedKey(k)); err != nil {
				return fmt.Errorf("permissions: invalidate %s: %w", k, err)
			}
		}
		return nil
	})
}

// RefreshStale re-probes every cached entry older than the staleness
// interval and reports how many were refreshed. Uncached kinds are left
// alone; probing them is the caller's decision, not the sweep's.
func (d *Domain) RefreshStale(ctx context.Context) (int, error) {
	return domain.Call(ctx, d.loop, func() (int, error) {
		refreshed := 0
		for _, k := range Kinds() {
			e, ok := d.entries[k]
			if !ok || d.now().Sub(e.checkedAt) < d.staleness {
				continue
			}
			st, err := d.probe.Check(ctx, k)
			if err != nil {
				d.log.Warn("stale refresh probe failed", logfields.Key(string(k)), logfields.Error(err))
				continue
			}
			fresh := entry{status: st, checkedAt: d.now()}
			d.entries[k] = fresh
			d.persist(ctx, k, fresh)
			refreshed++
		}
		return refreshed, nil
	})
}

// SetStaleness adjusts the freshness window, e.g. after a config reload.
func (d *Domain) SetStaleness(ctx context.Context, staleness time.Duration) error {
	if staleness <= 0 {
		return fmt.Errorf("permissions: staleness must be positive, got %v", staleness)
	}
	return d.loop.DoErr(ctx, func() error {
		d.staleness = staleness
		return nil
	})
}

// Close stops the domain loop.
func (d *Domain) Close() { d.loop.Close() }
