// Package durable provides the persistent key-value cell backing isolated
// domain caches and migration completion flags. Reads see either the value
// before or after a concurrent write to the same key, never a partial one;
// no atomicity is promised across keys.
package durable

import "context"

// Store is the durable cell contract. Implementations must be safe for
// concurrent use by multiple domains.
type Store interface {
	// Read returns the value for key; found is false when the key is absent.
	Read(ctx context.Context, key string) (v Value, found bool, err error)
	// Write persists value under key, replacing any previous value.
	Write(ctx context.Context, key string, v Value) error
	// Delete removes key; deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
	// Keys lists stored keys with the given prefix, sorted.
	Keys(ctx context.Context, prefix string) ([]string, error)
	Close() error
}
