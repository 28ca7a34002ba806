// Package migration sequences per-domain bridge migrations in a fixed phase
// order, aggregates weighted progress, and exposes a single state machine:
// NotStarted -> InProgress -> Completed | Failed, with rollback returning to
// NotStarted.
//
// Timeouts are a caller concern: Start is not cancellable mid-phase, so a
// caller needing a bound wraps the call and treats expiry as a failed
// outcome requiring a later retry from NotStarted.
package migration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/statebridge/internal/journal"
	"git.home.luguber.info/inful/statebridge/internal/logfields"
	"git.home.luguber.info/inful/statebridge/internal/metrics"
	"git.home.luguber.info/inful/statebridge/internal/retry"
)

// ErrAlreadyInProgress is returned by Start when the coordinator is not in
// NotStarted; the caller must wait, or roll back a terminal state first.
// Start never mutates state when returning this error.
var ErrAlreadyInProgress = errors.New("migration already in progress or finished")

// Coordinator owns the migration state machine. It is safe for concurrent
// use; Status may be called at any time, including during Start.
type Coordinator struct {
	phases []Phase

	mu     sync.Mutex
	status Status

	recorder metrics.Recorder
	bus      *journal.Bus
	log      *slog.Logger
	now      func() time.Time
	policy   *retry.Policy
}

// Option configures optional collaborators.
type Option func(*Coordinator)

func WithRecorder(r metrics.Recorder) Option {
	return func(c *Coordinator) {
		if r != nil {
			c.recorder = r
		}
	}
}

func WithBus(b *journal.Bus) Option {
	return func(c *Coordinator) { c.bus = b }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.log = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		if now != nil {
			c.now = now
		}
	}
}

// WithRetry enables per-phase retries for transient failures, verification
// mismatches included. Without it a phase gets exactly one attempt.
func WithRetry(p retry.Policy) Option {
	return func(c *Coordinator) { c.policy = &p }
}

// New validates the phase table (weights must sum to 1.0) and returns a
// coordinator in NotStarted.
func New(phases []Phase, opts ...Option) (*Coordinator, error) {
	if err := validatePhases(phases); err != nil {
		return nil, fmt.Errorf("coordinator: %w", err)
	}
	c := &Coordinator{
		phases:   phases,
		status:   Status{State: StateNotStarted},
		recorder: metrics.NoopRecorder{},
		log:      slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Start runs every phase in declared order, awaiting each before the next.
// The first phase failure freezes progress at the sum of completed weights,
// moves the coordinator to Failed, and propagates the phase error. At most
// one run may be active at a time.
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.status.State != StateNotStarted {
		c.mu.Unlock()
		return fmt.Errorf("%w (state %s)", ErrAlreadyInProgress, c.status.State)
	}
	runID := uuid.NewString()
	c.status = Status{State: StateInProgress, RunID: runID}
	c.mu.Unlock()

	c.recorder.SetProgress(0)
	c.log.Info("migration started", logfields.RunID(runID))
	c.publish(journal.Event{RunID: runID, Name: journal.EventMigrationStarted})

	for _, phase := range c.phases {
		c.publish(journal.Event{RunID: runID, Domain: phase.Name, Name: journal.EventPhaseStarted})
		start := c.now()
		err := c.runPhase(ctx, runID, phase)
		elapsed := c.now().Sub(start)
		c.recorder.ObservePhaseDuration(phase.Name, elapsed)

		if err != nil {
			c.recorder.IncPhaseResult(phase.Name, metrics.ResultFailed)
			c.recorder.IncMigrationOutcome("failed")

			c.mu.Lock()
			c.status.State = StateFailed
			c.status.Reason = err.Error()
			c.mu.Unlock()

			c.log.Error("migration phase failed",
				logfields.RunID(runID),
				logfields.Phase(phase.Name),
				logfields.Error(err))
			c.publish(journal.Event{
				RunID: runID, Domain: phase.Name, Name: journal.EventPhaseFailed,
				Fields: map[string]string{"error": err.Error()},
			})
			c.publish(journal.Event{RunID: runID, Name: journal.EventMigrationFailed})
			return fmt.Errorf("phase %s: %w", phase.Name, err)
		}

		c.recorder.IncPhaseResult(phase.Name, metrics.ResultSuccess)
		c.mu.Lock()
		c.status.Progress += phase.Weight
		progress := c.status.Progress
		c.mu.Unlock()
		c.recorder.SetProgress(progress)

		c.log.Info("migration phase completed",
			logfields.RunID(runID),
			logfields.Phase(phase.Name),
			logfields.Progress(progress),
			logfields.DurationMS(float64(elapsed.Milliseconds())))
		c.publish(journal.Event{RunID: runID, Domain: phase.Name, Name: journal.EventPhaseCompleted})
	}

	c.mu.Lock()
	c.status.State = StateCompleted
	// Weights are validated to sum to 1.0; pin the float result exactly.
	c.status.Progress = 1.0
	c.mu.Unlock()
	c.recorder.SetProgress(1.0)
	c.recorder.IncMigrationOutcome("completed")

	c.log.Info("migration completed", logfields.RunID(runID))
	c.publish(journal.Event{RunID: runID, Name: journal.EventMigrationCompleted})
	return nil
}

// runPhase attempts one phase, retrying per the configured policy. A failed
// attempt leaves the phase's bridge routing to legacy, so re-running its
// Migrate is safe.
func (c *Coordinator) runPhase(ctx context.Context, runID string, phase Phase) error {
	err := phase.Migrator.Migrate(ctx)
	if err == nil || c.policy == nil {
		return err
	}

	for attempt := 1; attempt <= c.policy.MaxRetries; attempt++ {
		c.log.Warn("phase attempt failed, retrying",
			logfields.RunID(runID),
			logfields.Phase(phase.Name),
			slog.Int("attempt", attempt),
			logfields.Error(err))
		if waitErr := c.policy.Wait(ctx, attempt); waitErr != nil {
			return err
		}
		if err = phase.Migrator.Migrate(ctx); err == nil {
			return nil
		}
	}
	return err
}

// Rollback resets the state machine to NotStarted with zero progress and
// rolls bridges back in reverse phase order. Per-bridge rollback is
// best-effort: one failure does not stop the others, and all failures are
// joined into the returned error.
func (c *Coordinator) Rollback(ctx context.Context) error {
	c.mu.Lock()
	if c.status.State == StateInProgress {
		c.mu.Unlock()
		return fmt.Errorf("%w (rollback during active run)", ErrAlreadyInProgress)
	}
	runID := c.status.RunID
	c.status = Status{State: StateNotStarted}
	c.mu.Unlock()

	c.recorder.SetProgress(0)
	c.log.Info("migration rollback requested", logfields.RunID(runID))
	c.publish(journal.Event{RunID: runID, Name: journal.EventRollbackRequested})

	var errs []error
	for i := len(c.phases) - 1; i >= 0; i-- {
		phase := c.phases[i]
		if err := phase.Migrator.Rollback(ctx); err != nil {
			c.log.Warn("phase rollback failed",
				logfields.Phase(phase.Name),
				logfields.Error(err))
			errs = append(errs, fmt.Errorf("rollback %s: %w", phase.Name, err))
		}
	}
	c.recorder.IncMigrationOutcome("rolled_back")
	return errors.Join(errs...)
}

// Status returns an atomic snapshot; callable concurrently with Start and
// Rollback.
func (c *Coordinator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

func (c *Coordinator) publish(e journal.Event) {
	if err := c.bus.Publish(e); err != nil {
		c.log.Warn("journal publish failed", "event", e.Name, logfields.Error(err))
	}
}
