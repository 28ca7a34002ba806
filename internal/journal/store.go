package journal

import (
	"context"
	"time"
)

// Store defines the interface for persisting and retrieving journal events.
type Store interface {
	// Append adds a new event to the journal.
	Append(ctx context.Context, e Event) error

	// ByRun retrieves all events for a specific migration run.
	ByRun(ctx context.Context, runID string) ([]Event, error)

	// Range retrieves events within a time range.
	Range(ctx context.Context, start, end time.Time) ([]Event, error)

	// Close closes the store and releases resources.
	Close() error
}
