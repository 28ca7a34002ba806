package settings

import (
	"context"
	"fmt"

	"git.home.luguber.info/inful/statebridge/internal/bridge"
	"git.home.luguber.info/inful/statebridge/internal/durable"
)

// Front is what feature code calls instead of touching the settings
// singleton. Every method resolves its routing target exactly once.
type Front struct {
	b   *bridge.Bridge
	leg *LegacyAdapter
}

func NewFront(b *bridge.Bridge, leg *LegacyAdapter) *Front {
	return &Front{b: b, leg: leg}
}

// Get returns the current value for one settings key from whichever
// implementation the bridge routes to.
func (f *Front) Get(ctx context.Context, key string) (durable.Value, error) {
	return bridge.Dispatch(f.b,
		func() (durable.Value, error) {
			v := f.leg.Read(key)
			if v.Absent() {
				return durable.Value{}, fmt.Errorf("settings: unknown key %q", key)
			}
			return v, nil
		},
		func(d bridge.Domain) (durable.Value, error) {
			return d.Read(ctx, key)
		})
}

// Set overwrites one settings key on the routed implementation.
func (f *Front) Set(ctx context.Context, key string, v durable.Value) error {
	return bridge.DispatchErr(f.b,
		func() error {
			f.leg.Write(key, v)
			return nil
		},
		func(d bridge.Domain) error {
			return d.Write(ctx, key, v)
		})
}

func (f *Front) getBool(ctx context.Context, key string) (bool, error) {
	v, err := f.Get(ctx, key)
	if err != nil {
		return false, err
	}
	b, ok := v.AsBool()
	if !ok {
		return false, fmt.Errorf("settings: %s holds %s, want bool", key, v.Kind())
	}
	return b, nil
}

func (f *Front) getList(ctx context.Context, key string) ([]string, error) {
	v, err := f.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	l, ok := v.AsStringList()
	if !ok {
		return nil, fmt.Errorf("settings: %s holds %s, want string list", key, v.Kind())
	}
	return l, nil
}

func (f *Front) LaunchAtLogin(ctx context.Context) (bool, error) {
	return f.getBool(ctx, KeyLaunchAtLogin)
}

func (f *Front) SetLaunchAtLogin(ctx context.Context, v bool) error {
	return f.Set(ctx, KeyLaunchAtLogin, durable.Bool(v))
}

func (f *Front) HapticFeedback(ctx context.Context) (bool, error) {
	return f.getBool(ctx, KeyHapticFeedback)
}

func (f *Front) SetHapticFeedback(ctx context.Context, v bool) error {
	return f.Set(ctx, KeyHapticFeedback, durable.Bool(v))
}

func (f *Front) MultitouchGestures(ctx context.Context) (bool, error) {
	return f.getBool(ctx, KeyMultitouchGestures)
}

func (f *Front) SetMultitouchGestures(ctx context.Context, v bool) error {
	return f.Set(ctx, KeyMultitouchGestures, durable.Bool(v))
}

func (f *Front) ShowControlStrip(ctx context.Context) (bool, error) {
	return f.getBool(ctx, KeyShowControlStrip)
}

func (f *Front) SetShowControlStrip(ctx context.Context, v bool) error {
	return f.Set(ctx, KeyShowControlStrip, durable.Bool(v))
}

func (f *Front) WidgetOrder(ctx context.Context) ([]string, error) {
	return f.getList(ctx, KeyWidgetOrder)
}

func (f *Front) SetWidgetOrder(ctx context.Context, order []string) error {
	return f.Set(ctx, KeyWidgetOrder, durable.StringList(order))
}

func (f *Front) EnabledModules(ctx context.Context) ([]string, error) {
	return f.getList(ctx, KeyEnabledModules)
}

func (f *Front) SetEnabledModules(ctx context.Context, modules []string) error {
	return f.Set(ctx, KeyEnabledModules, durable.StringList(modules))
}
