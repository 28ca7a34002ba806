package metrics

import "time"

// ResultLabel enumerates phase result categories for counters.
type ResultLabel string

const (
	ResultSuccess ResultLabel = "success"
	ResultFailed  ResultLabel = "failed"
)

// TargetLabel enumerates route dispatch targets.
type TargetLabel string

const (
	TargetLegacy   TargetLabel = "legacy"
	TargetIsolated TargetLabel = "isolated"
)

// Recorder defines observability hooks for migration and routing metrics.
// Implementations may forward to Prometheus, OpenTelemetry, etc. All methods
// must be safe for nil receivers when using the NoopRecorder (allowing
// optional injection).
type Recorder interface {
	ObservePhaseDuration(phase string, d time.Duration)
	IncPhaseResult(phase string, result ResultLabel)
	IncMigrationOutcome(outcome string) // outcome: completed|failed|rolled_back
	SetProgress(p float64)
	IncRoute(domain string, target TargetLabel)
	IncVerificationMismatch(domain string)
	IncRollback(domain string, success bool)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObservePhaseDuration(string, time.Duration) {}
func (NoopRecorder) IncPhaseResult(string, ResultLabel)         {}
func (NoopRecorder) IncMigrationOutcome(string)                 {}
func (NoopRecorder) SetProgress(float64)                        {}
func (NoopRecorder) IncRoute(string, TargetLabel)               {}
func (NoopRecorder) IncVerificationMismatch(string)             {}
func (NoopRecorder) IncRollback(string, bool)                   {}
