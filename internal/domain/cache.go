package domain

import (
	"context"
	"fmt"

	"git.home.luguber.info/inful/statebridge/internal/durable"
)

// Schema declares the fixed key set an isolated cache domain owns: key
// names, their value kinds, iteration order, and first-run defaults.
type Schema struct {
	// Name namespaces durable keys ("<name>.<key>") and identifies the
	// domain in logs and migration events.
	Name string
	// Order is the canonical key iteration order used by migration copy
	// and verify passes.
	Order []string
	// Kinds maps each key to its only permitted value kind.
	Kinds map[string]durable.Kind
	// Defaults supplies the value returned when neither cache nor durable
	// storage holds the key. Every key must have a default.
	Defaults map[string]durable.Value
}

// Validate checks internal consistency of the schema.
func (s Schema) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("schema name is empty")
	}
	if len(s.Order) == 0 {
		return fmt.Errorf("schema %q has no keys", s.Name)
	}
	for _, k := range s.Order {
		kind, ok := s.Kinds[k]
		if !ok || kind == durable.KindAbsent {
			return fmt.Errorf("schema %q: key %q has no kind", s.Name, k)
		}
		def, ok := s.Defaults[k]
		if !ok {
			return fmt.Errorf("schema %q: key %q has no default", s.Name, k)
		}
		if def.Kind() != kind {
			return fmt.Errorf("schema %q: default for %q is %s, want %s", s.Name, k, def.Kind(), kind)
		}
	}
	return nil
}

// Cache is an isolated domain over a fixed set of typed keys. All access is
// serialized through one Loop; values write through to durable storage so a
// Get immediately after any Set observes the new value.
type Cache struct {
	schema Schema
	loop   *Loop
	store  durable.Store
	values map[string]durable.Value
}

// NewCache validates the schema and starts the domain's serialization loop.
func NewCache(g *Group, schema Schema, store durable.Store) (*Cache, error) {
	if err := schema.Validate(); err != nil {
		return nil, fmt.Errorf("new %q cache: %w", schema.Name, err)
	}
	loop, err := NewLoop(g, schema.Name, len(schema.Order)*4)
	if err != nil {
		return nil, fmt.Errorf("new %q cache: %w", schema.Name, err)
	}
	return &Cache{
		schema: schema,
		loop:   loop,
		store:  store,
		values: make(map[string]durable.Value, len(schema.Order)),
	}, nil
}

func (c *Cache) Name() string { return c.schema.Name }

// Keys returns the schema's canonical key order.
func (c *Cache) Keys() []string {
	out := make([]string, len(c.schema.Order))
	copy(out, c.schema.Order)
	return out
}

func (c *Cache) durableKey(key string) string {
	return c.schema.Name + "." + key
}

// Read returns the current value for key: cached if present, else loaded
// from durable storage, else the schema default. Storage read failures
// degrade to the default rather than erroring; a cache domain call always
// completes with a usable value.
func (c *Cache) Read(ctx context.Context, key string) (durable.Value, error) {
	if _, ok := c.schema.Kinds[key]; !ok {
		return durable.Value{}, fmt.Errorf("%s: unknown key %q", c.schema.Name, key)
	}
	return Call(ctx, c.loop, func() (durable.Value, error) {
		if v, ok := c.values[key]; ok {
			return v, nil
		}
		v, found, err := c.store.Read(ctx, c.durableKey(key))
		if err == nil && found && v.Kind() == c.schema.Kinds[key] {
			c.values[key] = v
			return v, nil
		}
		return c.schema.Defaults[key], nil
	})
}

// Write stores the value and persists it. The durable write happens before
// the cache update; on persistence failure the cache keeps its old value so
// cache and storage never diverge.
func (c *Cache) Write(ctx context.Context, key string, v durable.Value) error {
	kind, ok := c.schema.Kinds[key]
	if !ok {
		return fmt.Errorf("%s: unknown key %q", c.schema.Name, key)
	}
	if v.Kind() != kind {
		return fmt.Errorf("%s: key %q takes %s, got %s", c.schema.Name, key, kind, v.Kind())
	}
	return c.loop.DoErr(ctx, func() error {
		if err := c.store.Write(ctx, c.durableKey(key), v); err != nil {
			return fmt.Errorf("%s: persist %q: %w", c.schema.Name, key, err)
		}
		c.values[key] = v
		return nil
	})
}

// Invalidate clears cached entries (all when no keys are given) and removes
// them from durable storage, so the next Read recomputes from defaults.
func (c *Cache) Invalidate(ctx context.Context, keys ...string) error {
	targets := keys
	if len(targets) == 0 {
		targets = c.schema.Order
	}
	for _, k := range targets {
		if _, ok := c.schema.Kinds[k]; !ok {
			return fmt.Errorf("%s: unknown key %q", c.schema.Name, k)
		}
	}
	return c.loop.DoErr(ctx, func() error {
		for _, k := range targets {
			if err := c.store.Delete(ctx, c.durableKey(k)); err != nil {
				return fmt.Errorf("%s: invalidate %q: %w", c.schema.Name, k, err)
			}
			delete(c.values, k)
		}
		return nil
	})
}

// Close stops the domain's loop.
func (c *Cache) Close() { c.loop.Close() }
