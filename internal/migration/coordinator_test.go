package migration

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/statebridge/internal/bridge"
	"git.home.luguber.info/inful/statebridge/internal/config"
	"git.home.luguber.info/inful/statebridge/internal/journal"
	"git.home.luguber.info/inful/statebridge/internal/retry"
)

// scriptedMigrator is a Migrator whose outcome is predetermined; it records
// every call into a shared trace so tests can assert ordering.
type scriptedMigrator struct {
	name        string
	migrateErr  error
	rollbackErr error

	mu       sync.Mutex
	migrated bool
	trace    *[]string
}

func (s *scriptedMigrator) Name() string { return s.name }

func (s *scriptedMigrator) Migrate(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.trace != nil {
		*s.trace = append(*s.trace, "migrate:"+s.name)
	}
	if s.migrateErr != nil {
		return s.migrateErr
	}
	s.migrated = true
	return nil
}

func (s *scriptedMigrator) Rollback(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.trace != nil {
		*s.trace = append(*s.trace, "rollback:"+s.name)
	}
	if s.rollbackErr != nil {
		return s.rollbackErr
	}
	s.migrated = false
	return nil
}

// fivePhases builds the canonical phase table with scripted migrators.
func fivePhases(trace *[]string) ([]Phase, []*scriptedMigrator) {
	names := []string{PhaseSettings, PhasePermissions, PhaseControllerState, PhaseFeatureModules, PhaseCleanup}
	weights := []float64{0.2, 0.2, 0.3, 0.2, 0.1}
	phases := make([]Phase, len(names))
	migrators := make([]*scriptedMigrator, len(names))
	for i, n := range names {
		m := &scriptedMigrator{name: n, trace: trace}
		migrators[i] = m
		phases[i] = Phase{Name: n, Weight: weights[i], Migrator: m}
	}
	return phases, migrators
}

func TestStartAllPhasesSucceed(t *testing.T) {
	var trace []string
	phases, migrators := fivePhases(&trace)
	c, err := New(phases)
	require.NoError(t, err)

	require.NoError(t, c.Start(t.Context()))

	st := c.Status()
	assert.Equal(t, StateCompleted, st.State)
	assert.Equal(t, 1.0, st.Progress, "progress must be exactly 1.0")
	assert.NotEmpty(t, st.RunID)

	wantOrder := []string{
		"migrate:settings", "migrate:permissions", "migrate:controller_state",
		"migrate:feature_modules", "migrate:cleanup",
	}
	assert.Equal(t, wantOrder, trace, "phases must run in declared order")
	for _, m := range migrators {
		assert.True(t, m.migrated, "phase %s not migrated", m.name)
	}
}

func TestStartThirdPhaseFailureFreezesProgress(t *testing.T) {
	var trace []string
	phases, migrators := fivePhases(&trace)
	verr := &bridge.VerificationError{Domain: "controller_state", Key: "multitouchGestures"}
	migrators[2].migrateErr = verr

	c, err := New(phases)
	require.NoError(t, err)

	err = c.Start(t.Context())
	require.Error(t, err)
	var got *bridge.VerificationError
	require.ErrorAs(t, err, &got)
	assert.Equal(t, "multitouchGestures", got.Key)

	st := c.Status()
	assert.Equal(t, StateFailed, st.State)
	assert.Contains(t, st.Reason, "multitouchGestures mismatch")
	assert.InDelta(t, 0.4, st.Progress, 1e-12, "progress frozen at sum of completed weights")

	// Domains 1-2 migrated, 3-5 still on legacy.
	assert.True(t, migrators[0].migrated)
	assert.True(t, migrators[1].migrated)
	assert.False(t, migrators[2].migrated)
	assert.False(t, migrators[3].migrated)
	assert.False(t, migrators[4].migrated)

	// Phases after the failure never ran.
	assert.NotContains(t, trace, "migrate:feature_modules")
	assert.NotContains(t, trace, "migrate:cleanup")
}

func TestStartRejectsWhenNotIdle(t *testing.T) {
	phases, _ := fivePhases(nil)
	c, err := New(phases)
	require.NoError(t, err)
	require.NoError(t, c.Start(t.Context()))

	before := c.Status()
	err = c.Start(t.Context())
	require.ErrorIs(t, err, ErrAlreadyInProgress)
	assert.Equal(t, before, c.Status(), "a rejected Start must not mutate state")
}

func TestProgressMonotonicByObservation(t *testing.T) {
	phases, _ := fivePhases(nil)
	c, err := New(phases)
	require.NoError(t, err)

	done := make(chan struct{})
	var observed []Status
	go func() {
		defer close(done)
		for {
			st := c.Status()
			observed = append(observed, st)
			if st.State == StateCompleted || st.State == StateFailed {
				return
			}
		}
	}()

	require.NoError(t, c.Start(t.Context()))
	<-done

	prev := -1.0
	for _, st := range observed {
		require.GreaterOrEqual(t, st.Progress, prev, "progress regressed")
		require.LessOrEqual(t, st.Progress, 1.0)
		if st.State == StateNotStarted {
			require.Zero(t, st.Progress)
		}
		prev = st.Progress
	}
}

func TestRollbackResetsCleanly(t *testing.T) {
	var trace []string
	phases, migrators := fivePhases(&trace)
	c, err := New(phases)
	require.NoError(t, err)
	require.NoError(t, c.Start(t.Context()))

	trace = trace[:0]
	require.NoError(t, c.Rollback(t.Context()))

	st := c.Status()
	assert.Equal(t, StateNotStarted, st.State)
	assert.Zero(t, st.Progress)

	wantOrder := []string{
		"rollback:cleanup", "rollback:feature_modules", "rollback:controller_state",
		"rollback:permissions", "rollback:settings",
	}
	assert.Equal(t, wantOrder, trace, "rollback must run in reverse phase order")
	for _, m := range migrators {
		assert.False(t, m.migrated, "phase %s still migrated after rollback", m.name)
	}

	// The machine is reusable: a fresh Start succeeds.
	require.NoError(t, c.Start(t.Context()))
	assert.Equal(t, StateCompleted, c.Status().State)
}

func TestRollbackBestEffort(t *testing.T) {
	var trace []string
	phases, migrators := fivePhases(&trace)
	boom := errors.New("store offline")
	migrators[3].rollbackErr = boom

	c, err := New(phases)
	require.NoError(t, err)
	require.NoError(t, c.Start(t.Context()))

	trace = trace[:0]
	err = c.Rollback(t.Context())
	require.ErrorIs(t, err, boom)

	// Every phase was still attempted despite the failure in the middle.
	assert.Len(t, trace, 5)
	assert.Equal(t, StateNotStarted, c.Status().State)
}

func TestRollbackFromFailedState(t *testing.T) {
	phases, migrators := fivePhases(nil)
	migrators[2].migrateErr = errors.New("copy failed")
	c, err := New(phases)
	require.NoError(t, err)
	require.Error(t, c.Start(t.Context()))

	require.NoError(t, c.Rollback(t.Context()))
	st := c.Status()
	assert.Equal(t, StateNotStarted, st.State)
	assert.Empty(t, st.Reason)
	assert.Zero(t, st.Progress)
}

func TestNewValidatesWeights(t *testing.T) {
	phases, _ := fivePhases(nil)
	phases[0].Weight = 0.5 // sum now 1.3
	_, err := New(phases)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sum")

	_, err = New(nil)
	require.Error(t, err)
}

func TestStartPublishesJournalEvents(t *testing.T) {
	phases, _ := fivePhases(nil)
	bus := journal.NewBus()
	var names []string
	bus.SubscribeAll(func(e journal.Event) error {
		names = append(names, e.Name)
		return nil
	})

	c, err := New(phases, WithBus(bus))
	require.NoError(t, err)
	require.NoError(t, c.Start(t.Context()))

	assert.Equal(t, journal.EventMigrationStarted, names[0])
	assert.Equal(t, journal.EventMigrationCompleted, names[len(names)-1])
	started, completed := 0, 0
	for _, n := range names {
		switch n {
		case journal.EventPhaseStarted:
			started++
		case journal.EventPhaseCompleted:
			completed++
		}
	}
	assert.Equal(t, 5, started)
	assert.Equal(t, 5, completed)
}

// flakyMigrator fails a set number of attempts before succeeding.
type flakyMigrator struct {
	name     string
	failures int

	mu       sync.Mutex
	attempts int
}

func (f *flakyMigrator) Name() string { return f.name }

func (f *flakyMigrator) Migrate(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts++
	if f.attempts <= f.failures {
		return errors.New("transient failure")
	}
	return nil
}

func (f *flakyMigrator) Rollback(context.Context) error { return nil }

func TestPhaseRetriesTransientFailure(t *testing.T) {
	flaky := &flakyMigrator{name: PhaseSettings, failures: 2}
	phases := []Phase{{Name: PhaseSettings, Weight: 1.0, Migrator: flaky}}

	policy := retry.Policy{Mode: config.RetryBackoffFixed, Initial: time.Millisecond, Max: time.Millisecond, MaxRetries: 2}
	c, err := New(phases, WithRetry(policy))
	require.NoError(t, err)

	require.NoError(t, c.Start(t.Context()))
	assert.Equal(t, StateCompleted, c.Status().State)
	assert.Equal(t, 3, flaky.attempts)
}

func TestPhaseRetriesExhausted(t *testing.T) {
	flaky := &flakyMigrator{name: PhaseSettings, failures: 5}
	phases := []Phase{{Name: PhaseSettings, Weight: 1.0, Migrator: flaky}}

	policy := retry.Policy{Mode: config.RetryBackoffFixed, Initial: time.Millisecond, Max: time.Millisecond, MaxRetries: 2}
	c, err := New(phases, WithRetry(policy))
	require.NoError(t, err)

	require.Error(t, c.Start(t.Context()))
	assert.Equal(t, StateFailed, c.Status().State)
	assert.Equal(t, 3, flaky.attempts, "one attempt plus two retries")
}

func TestNoRetryWithoutPolicy(t *testing.T) {
	flaky := &flakyMigrator{name: PhaseSettings, failures: 1}
	phases := []Phase{{Name: PhaseSettings, Weight: 1.0, Migrator: flaky}}

	c, err := New(phases)
	require.NoError(t, err)

	require.Error(t, c.Start(t.Context()))
	assert.Equal(t, 1, flaky.attempts)
}
