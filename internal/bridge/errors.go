package bridge

import (
	"errors"
	"fmt"
)

// ErrDomainUnavailable indicates the isolated domain could not be
// constructed or initialized; the bridge keeps routing to legacy.
var ErrDomainUnavailable = errors.New("isolated domain unavailable")

// ErrMigrationInFlight indicates a second Migrate call raced an active one
// on the same bridge.
var ErrMigrationInFlight = errors.New("migration already in flight")

// VerificationError reports a value-for-value comparison failure between
// the migrated domain and the legacy source. The whole migration attempt
// fails on the first mismatching key and the completion flag stays false.
type VerificationError struct {
	Domain string
	Key    string
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("%s mismatch (%s migration verification)", e.Key, e.Domain)
}
