package migration

// State is the coordinator-wide migration state machine.
type State string

const (
	StateNotStarted State = "not_started"
	StateInProgress State = "in_progress"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
)

// Status is an atomic snapshot of coordinator state. The pair (State,
// Progress) is always one that was actually held; Status never interpolates
// between updates.
type Status struct {
	State    State
	Reason   string // populated when State is StateFailed
	Progress float64
	RunID    string // current or most recent run
}
