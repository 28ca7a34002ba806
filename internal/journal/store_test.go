package journal

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestJournalAppendAndRetrieve(t *testing.T) {
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer func() { _ = store.Close() }()

	ctx := t.Context()
	e := Event{
		RunID:  "run-1",
		Domain: "settings",
		Name:   EventPhaseCompleted,
		Fields: map[string]string{"duration_ms": "12"},
	}
	if err := store.Append(ctx, e); err != nil {
		t.Fatalf("failed to append event: %v", err)
	}

	events, err := store.ByRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("failed to get events: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}

	got := events[0]
	if diff := cmp.Diff(e, got, cmpopts.IgnoreFields(Event{}, "ID", "At")); diff != "" {
		t.Errorf("event mismatch (-want +got):\n%s", diff)
	}
	if got.At.IsZero() {
		t.Error("expected timestamp to be populated")
	}
}

func TestJournalByRunIsolation(t *testing.T) {
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer func() { _ = store.Close() }()

	ctx := t.Context()
	for _, run := range []string{"run-a", "run-a", "run-b"} {
		if err := store.Append(ctx, Event{RunID: run, Domain: "permissions", Name: EventPhaseStarted}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	events, err := store.ByRun(ctx, "run-a")
	if err != nil {
		t.Fatalf("by run: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events for run-a, got %d", len(events))
	}
}

func TestJournalRange(t *testing.T) {
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer func() { _ = store.Close() }()

	ctx := t.Context()
	now := time.Now()
	for range 3 {
		if err := store.Append(ctx, Event{RunID: "run-1", Name: EventPhaseStarted}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	events, err := store.Range(ctx, now.Add(-time.Hour), now.Add(time.Hour))
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	if len(events) != 3 {
		t.Errorf("expected 3 events, got %d", len(events))
	}
}
