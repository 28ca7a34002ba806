package durable

import "errors"

// ErrAbsentValue is returned when a caller attempts to persist the zero
// Value; use Delete to remove a key instead.
var ErrAbsentValue = errors.New("durable: cannot write absent value")
