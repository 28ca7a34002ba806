package controller

import (
	"context"
	"fmt"
	"time"

	"git.home.luguber.info/inful/statebridge/internal/bridge"
	"git.home.luguber.info/inful/statebridge/internal/durable"
)

// Front is the routed access point for the controller model.
type Front struct {
	b   *bridge.Bridge
	leg *LegacyAdapter
	now func() time.Time
}

func NewFront(b *bridge.Bridge, leg *LegacyAdapter) *Front {
	return &Front{b: b, leg: leg, now: time.Now}
}

func (f *Front) ActivePreset(ctx context.Context) (string, error) {
	return bridge.Dispatch(f.b,
		func() (string, error) {
			s, _ := f.leg.Read(KeyActivePreset).AsString()
			return s, nil
		},
		func(d bridge.Domain) (string, error) {
			v, err := d.Read(ctx, KeyActivePreset)
			if err != nil {
				return "", err
			}
			s, ok := v.AsString()
			if !ok {
				return "", fmt.Errorf("controller: activePreset holds %s", v.Kind())
			}
			return s, nil
		})
}

// SetActivePreset switches presets and stamps the layout-change time on the
// migrated side. The legacy model has no such timestamp to update.
func (f *Front) SetActivePreset(ctx context.Context, preset string) error {
	return bridge.DispatchErr(f.b,
		func() error {
			f.leg.Write(KeyActivePreset, durable.String(preset))
			return nil
		},
		func(d bridge.Domain) error {
			if err := d.Write(ctx, KeyActivePreset, durable.String(preset)); err != nil {
				return err
			}
			return d.Write(ctx, KeyLastLayoutChange, durable.Time(f.now()))
		})
}

func (f *Front) VisibleWidgets(ctx context.Context) ([]string, error) {
	return bridge.Dispatch(f.b,
		func() ([]string, error) {
			l, _ := f.leg.Read(KeyVisibleWidgets).AsStringList()
			return l, nil
		},
		func(d bridge.Domain) ([]string, error) {
			v, err := d.Read(ctx, KeyVisibleWidgets)
			if err != nil {
				return nil, err
			}
			l, ok := v.AsStringList()
			if !ok {
				return nil, fmt.Errorf("controller: visibleWidgets holds %s", v.Kind())
			}
			return l, nil
		})
}

func (f *Front) SetVisibleWidgets(ctx context.Context, widgets []string) error {
	return bridge.DispatchErr(f.b,
		func() error {
			f.leg.Write(KeyVisibleWidgets, durable.StringList(widgets))
			return nil
		},
		func(d bridge.Domain) error {
			if err := d.Write(ctx, KeyVisibleWidgets, durable.StringList(widgets)); err != nil {
				return err
			}
			return d.Write(ctx, KeyLastLayoutChange, durable.Time(f.now()))
		})
}

func (f *Front) ModifierOverlays(ctx context.Context) (bool, error) {
	return bridge.Dispatch(f.b,
		func() (bool, error) {
			b, _ := f.leg.Read(KeyModifierOverlays).AsBool()
			return b, nil
		},
		func(d bridge.Domain) (bool, error) {
			v, err := d.Read(ctx, KeyModifierOverlays)
			if err != nil {
				return false, err
			}
			b, ok := v.AsBool()
			if !ok {
				return false, fmt.Errorf("controller: modifierOverlays holds %s", v.Kind())
			}
			return b, nil
		})
}

func (f *Front) SetModifierOverlays(ctx context.Context, enabled bool) error {
	return bridge.DispatchErr(f.b,
		func() error {
			f.leg.Write(KeyModifierOverlays, durable.Bool(enabled))
			return nil
		},
		func(d bridge.Domain) error {
			return d.Write(ctx, KeyModifierOverlays, durable.Bool(enabled))
		})
}

// ModulesFront is the routed access point for the feature-module registry.
type ModulesFront struct {
	b   *bridge.Bridge
	leg *ModulesLegacyAdapter
}

func NewModulesFront(b *bridge.Bridge, leg *ModulesLegacyAdapter) *ModulesFront {
	return &ModulesFront{b: b, leg: leg}
}

func (f *ModulesFront) ActiveModules(ctx context.Context) ([]string, error) {
	return bridge.Dispatch(f.b,
		func() ([]string, error) {
			l, _ := f.leg.Read(KeyActiveModules).AsStringList()
			return l, nil
		},
		func(d bridge.Domain) ([]string, error) {
			v, err := d.Read(ctx, KeyActiveModules)
			if err != nil {
				return nil, err
			}
			l, _ := v.AsStringList()
			return l, nil
		})
}

func (f *ModulesFront) SetActiveModules(ctx context.Context, modules []string) error {
	return bridge.DispatchErr(f.b,
		func() error {
			f.leg.Write(KeyActiveModules, durable.StringList(modules))
			return nil
		},
		func(d bridge.Domain) error {
			return d.Write(ctx, KeyActiveModules, durable.StringList(modules))
		})
}

func (f *ModulesFront) PinnedModules(ctx context.Context) ([]string, error) {
	return bridge.Dispatch(f.b,
		func() ([]string, error) {
			l, _ := f.leg.Read(KeyPinnedModules).AsStringList()
			return l, nil
		},
		func(d bridge.Domain) ([]string, error) {
			v, err := d.Read(ctx, KeyPinnedModules)
			if err != nil {
				return nil, err
			}
			l, _ := v.AsStringList()
			return l, nil
		})
}

func (f *ModulesFront) SetPinnedModules(ctx context.Context, modules []string) error {
	return bridge.DispatchErr(f.b,
		func() error {
			f.leg.Write(KeyPinnedModules, durable.StringList(modules))
			return nil
		},
		func(d bridge.Domain) error {
			return d.Write(ctx, KeyPinnedModules, durable.StringList(modules))
		})
}

func (f *ModulesFront) AutoHide(ctx context.Context) (bool, error) {
	return bridge.Dispatch(f.b,
		func() (bool, error) {
			b, _ := f.leg.Read(KeyAutoHide).AsBool()
			return b, nil
		},
		func(d bridge.Domain) (bool, error) {
			v, err := d.Read(ctx, KeyAutoHide)
			if err != nil {
				return false, err
			}
			b, _ := v.AsBool()
			return b, nil
		})
}
