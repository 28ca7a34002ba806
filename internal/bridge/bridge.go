// Package bridge routes per-domain state access between a legacy singleton
// and its migrated isolated domain, and owns the transition itself: copy,
// verify, flip a persisted completion flag. A failed attempt is never
// persisted; the bridge simply keeps routing to legacy until a retry
// succeeds.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"git.home.luguber.info/inful/statebridge/internal/durable"
	"git.home.luguber.info/inful/statebridge/internal/logfields"
	"git.home.luguber.info/inful/statebridge/internal/metrics"
)

// Domain is the migrated side of a bridge: key-addressed access to one
// isolated domain, for the migration copy/verify pass and for routed calls.
type Domain interface {
	Name() string
	Keys() []string
	Read(ctx context.Context, key string) (durable.Value, error)
	Write(ctx context.Context, key string, v durable.Value) error
}

// Legacy is the unmigrated side: synchronous key-addressed access to a
// legacy singleton. Implementations are adapters, never the globals
// themselves.
type Legacy interface {
	Read(key string) durable.Value
	Write(key string, v durable.Value)
}

// InitFunc constructs the isolated domain. It must not depend on legacy
// state; the bridge copies that state in afterwards.
type InitFunc func(ctx context.Context) (Domain, error)

const (
	completedSuffix = ".migration.completed"
	startedSuffix   = ".migration.startedAt"
)

// Bridge is the single dispatch point for one domain.
type Bridge struct {
	name    string
	legacy  Legacy
	init    InitFunc
	store   durable.Store
	flag    Flag
	started string // durable key for the migration-start timestamp

	migrateMu sync.Mutex // serializes Migrate/Rollback
	inFlight  bool

	mu       sync.RWMutex // guards migrated+dom as one routing decision
	migrated bool
	dom      Domain

	recorder metrics.Recorder
	log      *slog.Logger
	now      func() time.Time
}

// Option configures optional collaborators.
type Option func(*Bridge)

func WithRecorder(r metrics.Recorder) Option {
	return func(b *Bridge) {
		if r != nil {
			b.recorder = r
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(b *Bridge) {
		if l != nil {
			b.log = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(b *Bridge) {
		if now != nil {
			b.now = now
		}
	}
}

// New loads the persisted completion flag and, when it is already set,
// initializes the isolated domain so routing can target it immediately.
func New(ctx context.Context, name string, legacy Legacy, init InitFunc, store durable.Store, opts ...Option) (*Bridge, error) {
	b := &Bridge{
		name:     name,
		legacy:   legacy,
		init:     init,
		store:    store,
		flag:     NewFlag(store, name+completedSuffix),
		started:  name + startedSuffix,
		recorder: metrics.NoopRecorder{},
		log:      slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}

	done, err := b.flag.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("bridge %s: %w", name, err)
	}
	if done {
		dom, err := init(ctx)
		if err != nil {
			return nil, fmt.Errorf("bridge %s: %w: %w", name, ErrDomainUnavailable, err)
		}
		b.dom = dom
		b.migrated = true
	}
	return b, nil
}

func (b *Bridge) Name() string { return b.name }

// Migrated reports whether routed calls currently target the isolated domain.
func (b *Bridge) Migrated() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.migrated
}

// Migrate performs the phased transition: init the isolated domain, copy
// legacy state key by key, verify value-for-value against the legacy
// source, and only then persist the completion flag. Idempotent: a second
// call after success is a no-op returning nil.
func (b *Bridge) Migrate(ctx context.Context) error {
	if b.Migrated() {
		b.log.Debug("migration already completed", logfields.Domain(b.name))
		return nil
	}

	b.migrateMu.Lock()
	if b.inFlight {
		b.migrateMu.Unlock()
		return fmt.Errorf("bridge %s: %w", b.name, ErrMigrationInFlight)
	}
	b.inFlight = true
	b.migrateMu.Unlock()
	defer func() {
		b.migrateMu.Lock()
		b.inFlight = false
		b.migrateMu.Unlock()
	}()

	// Re-check under the migration lock; another caller may have finished.
	if b.Migrated() {
		return nil
	}

	start := b.now()
	if err := b.store.Write(ctx, b.started, durable.Time(start)); err != nil {
		b.log.Warn("could not persist migration start", logfields.Domain(b.name), logfields.Error(err))
	}

	dom, err := b.init(ctx)
	if err != nil {
		return fmt.Errorf("bridge %s: %w: %w", b.name, ErrDomainUnavailable, err)
	}

	// Remember the domain even before the flip so CloseDomain can reach it
	// if this attempt fails partway. Routing still keys off migrated.
	b.mu.Lock()
	b.dom = dom
	b.mu.Unlock()

	for _, key := range dom.Keys() {
		v := b.legacy.Read(key)
		if v.Absent() {
			continue
		}
		if err := dom.Write(ctx, key, v); err != nil {
			return fmt.Errorf("bridge %s: copy %q: %w", b.name, key, err)
		}
	}

	// Verify against a fresh legacy read so drift between copy and verify
	// is caught, not papered over.
	for _, key := range dom.Keys() {
		want := b.legacy.Read(key)
		if want.Absent() {
			continue
		}
		got, err := dom.Read(ctx, key)
		if err != nil {
			return fmt.Errorf("bridge %s: verify %q: %w", b.name, key, err)
		}
		if !got.Equal(want) {
			b.recorder.IncVerificationMismatch(b.name)
			return &VerificationError{Domain: b.name, Key: key}
		}
	}

	if err := b.flag.Set(ctx); err != nil {
		return fmt.Errorf("bridge %s: %w", b.name, err)
	}

	b.mu.Lock()
	b.migrated = true
	b.mu.Unlock()

	elapsed := b.now().Sub(start)
	b.log.Info("domain migrated",
		logfields.Domain(b.name),
		logfields.DurationMS(float64(elapsed.Milliseconds())))
	return nil
}

// Rollback clears the persisted flag and start timestamp and flips routing
// back to legacy. The isolated domain's data is deliberately retained; the
// domain may be re-migrated later.
func (b *Bridge) Rollback(ctx context.Context) error {
	b.migrateMu.Lock()
	defer b.migrateMu.Unlock()

	if err := b.flag.Clear(ctx); err != nil {
		b.recorder.IncRollback(b.name, false)
		return fmt.Errorf("bridge %s: %w", b.name, err)
	}
	if err := b.store.Delete(ctx, b.started); err != nil {
		b.recorder.IncRollback(b.name, false)
		return fmt.Errorf("bridge %s: clear start timestamp: %w", b.name, err)
	}

	b.mu.Lock()
	b.migrated = false
	b.mu.Unlock()

	b.recorder.IncRollback(b.name, true)
	b.log.Info("domain rolled back to legacy", logfields.Domain(b.name))
	return nil
}

// target resolves the routing decision exactly once. The returned Domain is
// nil for legacy.
func (b *Bridge) target() Domain {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.migrated {
		return b.dom
	}
	return nil
}

// Dispatch routes one logical call. The target is resolved once up front,
// so a call never starts against legacy and finishes against the isolated
// domain even if migration completes mid-call.
func Dispatch[T any](b *Bridge, onLegacy func() (T, error), onDomain func(Domain) (T, error)) (T, error) {
	if dom := b.target(); dom != nil {
		b.recorder.IncRoute(b.name, metrics.TargetIsolated)
		return onDomain(dom)
	}
	b.recorder.IncRoute(b.name, metrics.TargetLegacy)
	return onLegacy()
}

// DispatchErr is Dispatch for operations without a result.
func DispatchErr(b *Bridge, onLegacy func() error, onDomain func(Domain) error) error {
	_, err := Dispatch(b, func() (struct{}, error) {
		return struct{}{}, onLegacy()
	}, func(d Domain) (struct{}, error) {
		return struct{}{}, onDomain(d)
	})
	return err
}

// StartedAt returns the persisted migration start timestamp, if any.
func (b *Bridge) StartedAt(ctx context.Context) (time.Time, bool, error) {
	v, found, err := b.store.Read(ctx, b.started)
	if err != nil || !found {
		return time.Time{}, false, err
	}
	t, ok := v.AsTime()
	if !ok {
		return time.Time{}, false, errors.New("start timestamp holds non-time value")
	}
	return t, true, nil
}

// CloseDomain shuts down the isolated domain's loop, when one was built.
// Call before Group.StopAndWait or the group will wait out its deadline.
func (b *Bridge) CloseDomain() {
	b.mu.RLock()
	dom := b.dom
	b.mu.RUnlock()
	if c, ok := dom.(interface{ Close() }); ok {
		c.Close()
	}
}
