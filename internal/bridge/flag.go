package bridge

import (
	"context"
	"fmt"

	"git.home.luguber.info/inful/statebridge/internal/durable"
)

// Flag is a persisted boolean under a fixed durable key. Absent means false.
type Flag struct {
	store durable.Store
	key   string
}

func NewFlag(store durable.Store, key string) Flag {
	return Flag{store: store, key: key}
}

func (f Flag) Key() string { return f.key }

func (f Flag) Load(ctx context.Context) (bool, error) {
	v, found, err := f.store.Read(ctx, f.key)
	if err != nil {
		return false, fmt.Errorf("load flag %q: %w", f.key, err)
	}
	if !found {
		return false, nil
	}
	b, ok := v.AsBool()
	if !ok {
		return false, fmt.Errorf("flag %q holds %s, want bool", f.key, v.Kind())
	}
	return b, nil
}

func (f Flag) Set(ctx context.Context) error {
	if err := f.store.Write(ctx, f.key, durable.Bool(true)); err != nil {
		return fmt.Errorf("set flag %q: %w", f.key, err)
	}
	return nil
}

func (f Flag) Clear(ctx context.Context) error {
	if err := f.store.Delete(ctx, f.key); err != nil {
		return fmt.Errorf("clear flag %q: %w", f.key, err)
	}
	return nil
}
