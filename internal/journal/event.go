package journal

import "time"

// Event names emitted during a migration run.
const (
	EventMigrationStarted   = "MigrationStarted"
	EventPhaseStarted       = "PhaseStarted"
	EventPhaseCompleted     = "PhaseCompleted"
	EventPhaseFailed        = "PhaseFailed"
	EventMigrationCompleted = "MigrationCompleted"
	EventMigrationFailed    = "MigrationFailed"
	EventRollbackRequested  = "RollbackRequested"
)

// Event is one entry in the migration journal.
type Event struct {
	ID     int64             `json:"id,omitempty"`
	RunID  string            `json:"run_id"`
	Domain string            `json:"domain,omitempty"`
	Name   string            `json:"name"`
	At     time.Time         `json:"at"`
	Fields map[string]string `json:"fields,omitempty"`
}
