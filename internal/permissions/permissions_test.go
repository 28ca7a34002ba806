package permissions

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/statebridge/internal/bridge"
	"git.home.luguber.info/inful/statebridge/internal/domain"
	"git.home.luguber.info/inful/statebridge/internal/durable"
	"git.home.luguber.info/inful/statebridge/internal/legacy"
)

// fakeProbe scripts per-kind check results and counts calls.
type fakeProbe struct {
	mu       sync.Mutex
	statuses map[Kind]Status
	checkErr error
	checks   map[Kind]int
	requests map[Kind]int
}

func newFakeProbe() *fakeProbe {
	return &fakeProbe{
		statuses: map[Kind]Status{},
		checks:   map[Kind]int{},
		requests: map[Kind]int{},
	}
}

func (p *fakeProbe) set(k Kind, st Status) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.statuses[k] = st
}

func (p *fakeProbe) fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.checkErr = err
}

func (p *fakeProbe) checkCount(k Kind) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.checks[k]
}

func (p *fakeProbe) requestCount(k Kind) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.requests[k]
}

func (p *fakeProbe) Check(_ context.Context, kind Kind) (Status, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.checks[kind]++
	if p.checkErr != nil {
		return StatusUnavailable, p.checkErr
	}
	if st, ok := p.statuses[kind]; ok {
		return st, nil
	}
	return StatusNotDetermined, nil
}

func (p *fakeProbe) Request(_ context.Context, kind Kind) (Status, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests[kind]++
	if p.checkErr != nil {
		return StatusUnavailable, p.checkErr
	}
	if st, ok := p.statuses[kind]; ok {
		return st, nil
	}
	return StatusNotDetermined, nil
}

// fakeClock is a mutable clock safe to read from the domain loop.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestDomain(t *testing.T, store durable.Store, probe Probe, opts ...Option) *Domain {
	t.Helper()
	var g domain.Group
	d, err := NewDomain(&g, store, probe, opts...)
	require.NoError(t, err)
	t.Cleanup(func() {
		d.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		require.NoError(t, g.StopAndWait(ctx))
	})
	return d
}

func TestStatusProbesOnceThenServesCache(t *testing.T) {
	probe := newFakeProbe()
	probe.set(KindAccessibility, StatusGranted)
	d := newTestDomain(t, durable.NewMemoryStore(), probe)
	ctx := t.Context()

	assert.Equal(t, StatusGranted, d.Status(ctx, KindAccessibility))
	assert.Equal(t, StatusGranted, d.Status(ctx, KindAccessibility))
	assert.Equal(t, 1, probe.checkCount(KindAccessibility), "second call must hit the cache")
}

func TestStatusReprobesWhenStale(t *testing.T) {
	probe := newFakeProbe()
	probe.set(KindLocation, StatusDenied)
	clock := newFakeClock()
	d := newTestDomain(t, durable.NewMemoryStore(), probe,
		WithClock(clock.Now), WithStaleness(time.Hour))
	ctx := t.Context()

	assert.Equal(t, StatusDenied, d.Status(ctx, KindLocation))

	probe.set(KindLocation, StatusGranted)
	clock.Advance(30 * time.Minute)
	assert.Equal(t, StatusDenied, d.Status(ctx, KindLocation), "fresh cache must not re-probe")

	clock.Advance(31 * time.Minute)
	assert.Equal(t, StatusGranted, d.Status(ctx, KindLocation))
	assert.Equal(t, 2, probe.checkCount(KindLocation))
}

func TestStatusDegradesOnProbeFailure(t *testing.T) {
	probe := newFakeProbe()
	probe.set(KindAudio, StatusGranted)
	clock := newFakeClock()
	d := newTestDomain(t, durable.NewMemoryStore(), probe, WithClock(clock.Now))
	ctx := t.Context()

	assert.Equal(t, StatusGranted, d.Status(ctx, KindAudio))

	probe.fail(errors.New("tcc daemon unreachable"))
	clock.Advance(2 * time.Hour)
	assert.Equal(t, StatusGranted, d.Status(ctx, KindAudio),
		"stale cache still beats a failing probe")

	assert.Equal(t, StatusUnavailable, d.Status(ctx, KindBrightness),
		"no cache and no probe leaves Unavailable")
}

func TestCacheSurvivesRestart(t *testing.T) {
	store := durable.NewMemoryStore()
	probe := newFakeProbe()
	probe.set(KindAccessibility, StatusRestricted)

	d := newTestDomain(t, store, probe)
	require.Equal(t, StatusRestricted, d.Status(t.Context(), KindAccessibility))

	// A new domain over the same store must serve without probing again.
	probe2 := newFakeProbe()
	d2 := newTestDomain(t, store, probe2)
	assert.Equal(t, StatusRestricted, d2.Status(t.Context(), KindAccessibility))
	assert.Equal(t, 0, probe2.checkCount(KindAccessibility))
}

func TestRequestThrottledPerKind(t *testing.T) {
	probe := newFakeProbe()
	probe.set(KindLocation, StatusDenied)
	probe.set(KindAudio, StatusGranted)
	clock := newFakeClock()
	d := newTestDomain(t, durable.NewMemoryStore(), probe, WithClock(clock.Now))
	ctx := t.Context()

	assert.Equal(t, StatusDenied, d.Request(ctx, KindLocation))
	assert.Equal(t, 1, probe.requestCount(KindLocation))

	// Within the throttle window the user is not prompted again.
	clock.Advance(time.Hour)
	assert.Equal(t, StatusDenied, d.Request(ctx, KindLocation))
	assert.Equal(t, 1, probe.requestCount(KindLocation))

	// Another kind has its own window.
	assert.Equal(t, StatusGranted, d.Request(ctx, KindAudio))
	assert.Equal(t, 1, probe.requestCount(KindAudio))

	clock.Advance(24 * time.Hour)
	probe.set(KindLocation, StatusGranted)
	assert.Equal(t, StatusGranted, d.Request(ctx, KindLocation))
	assert.Equal(t, 2, probe.requestCount(KindLocation))
}

func TestRequestThrottleSurvivesRestart(t *testing.T) {
	store := durable.NewMemoryStore()
	probe := newFakeProbe()
	clock := newFakeClock()

	d := newTestDomain(t, store, probe, WithClock(clock.Now))
	d.Request(t.Context(), KindBrightness)
	require.Equal(t, 1, probe.requestCount(KindBrightness))

	d2 := newTestDomain(t, store, probe, WithClock(clock.Now))
	d2.Request(t.Context(), KindBrightness)
	assert.Equal(t, 1, probe.requestCount(KindBrightness),
		"persisted request timestamp must survive a restart")
}

func TestInvalidateForcesReprobe(t *testing.T) {
	probe := newFakeProbe()
	probe.set(KindAccessibility, StatusDenied)
	d := newTestDomain(t, durable.NewMemoryStore(), probe)
	ctx := t.Context()

	require.Equal(t, StatusDenied, d.Status(ctx, KindAccessibility))

	probe.set(KindAccessibility, StatusGranted)
	require.NoError(t, d.Invalidate(ctx, KindAccessibility))
	assert.Equal(t, StatusGranted, d.Status(ctx, KindAccessibility))
	assert.Equal(t, 2, probe.checkCount(KindAccessibility))
}

func TestRefreshStaleOnlyTouchesStaleEntries(t *testing.T) {
	probe := newFakeProbe()
	probe.set(KindAccessibility, StatusGranted)
	probe.set(KindLocation, StatusDenied)
	clock := newFakeClock()
	d := newTestDomain(t, durable.NewMemoryStore(), probe,
		WithClock(clock.Now), WithStaleness(time.Hour))
	ctx := t.Context()

	d.Status(ctx, KindAccessibility)
	clock.Advance(2 * time.Hour)
	d.Status(ctx, KindLocation) // fresh entry

	// Accessibility is stale now, location is not; brightness was never
	// probed and must stay untouched.
	n, err := d.RefreshStale(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 2, probe.checkCount(KindAccessibility))
	assert.Equal(t, 1, probe.checkCount(KindLocation))
	assert.Equal(t, 0, probe.checkCount(KindBrightness))
}

func TestSetStalenessRejectsNonPositive(t *testing.T) {
	d := newTestDomain(t, durable.NewMemoryStore(), newFakeProbe())
	assert.Error(t, d.SetStaleness(t.Context(), 0))
	assert.NoError(t, d.SetStaleness(t.Context(), time.Minute))
}

func newTestFront(t *testing.T, store durable.Store, leg *legacy.PermissionsState, probe Probe) (*Front, *bridge.Bridge) {
	t.Helper()
	var g domain.Group
	adapter := NewLegacyAdapter(leg)
	provider := NewProvider(&g, store, probe)
	b, err := bridge.New(t.Context(), DomainName, adapter, provider.Init(), store)
	require.NoError(t, err)
	t.Cleanup(func() {
		b.CloseDomain()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		require.NoError(t, g.StopAndWait(ctx))
	})
	return NewFront(b, adapter, probe, provider), b
}

func TestFrontLegacyPathProbesWithoutThrottle(t *testing.T) {
	probe := newFakeProbe()
	probe.set(KindAudio, StatusGranted)
	leg := legacy.DefaultPermissions()
	f, _ := newTestFront(t, durable.NewMemoryStore(), leg, probe)
	ctx := t.Context()

	assert.Equal(t, StatusGranted, f.Status(ctx, KindAudio))
	assert.Equal(t, "granted", leg.Status[string(KindAudio)])

	// The legacy request path prompts every time.
	f.Request(ctx, KindAudio)
	f.Request(ctx, KindAudio)
	assert.Equal(t, 2, probe.requestCount(KindAudio))
}

func TestFrontMigrationCarriesLegacyStates(t *testing.T) {
	probe := newFakeProbe()
	leg := legacy.DefaultPermissions()
	leg.Status[string(KindAccessibility)] = "granted"
	leg.Status[string(KindLocation)] = "denied"
	store := durable.NewMemoryStore()
	f, b := newTestFront(t, store, leg, probe)
	ctx := t.Context()

	require.NoError(t, b.Migrate(ctx))
	require.True(t, b.Migrated())

	assert.Equal(t, StatusGranted, f.Status(ctx, KindAccessibility))
	assert.Equal(t, StatusDenied, f.Status(ctx, KindLocation))
	assert.Equal(t, 0, probe.checkCount(KindAccessibility),
		"migrated states must serve without probing")
}

func TestFrontMigratedRequestIsThrottled(t *testing.T) {
	probe := newFakeProbe()
	probe.set(KindBrightness, StatusGranted)
	f, b := newTestFront(t, durable.NewMemoryStore(), legacy.DefaultPermissions(), probe)
	ctx := t.Context()

	require.NoError(t, b.Migrate(ctx))

	f.Request(ctx, KindBrightness)
	f.Request(ctx, KindBrightness)
	assert.Equal(t, 1, probe.requestCount(KindBrightness))
}

func TestFrontRefreshStaleIsNoopBeforeMigration(t *testing.T) {
	f, _ := newTestFront(t, durable.NewMemoryStore(), legacy.DefaultPermissions(), newFakeProbe())

	n, err := f.RefreshStale(t.Context())
	require.NoError(t, err)
	assert.Zero(t, n)
}
