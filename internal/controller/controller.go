// Package controller is the isolated domain for the UI controller's
// internal model, plus the feature-module registry it owns. Neither domain
// renders anything; they only hold the state the renderer reads.
package controller

import (
	"context"
	"sync"
	"time"

	"git.home.luguber.info/inful/statebridge/internal/bridge"
	"git.home.luguber.info/inful/statebridge/internal/domain"
	"git.home.luguber.info/inful/statebridge/internal/durable"
	"git.home.luguber.info/inful/statebridge/internal/legacy"
)

const DomainName = "controller_state"

const (
	KeyActivePreset     = "activePreset"
	KeyVisibleWidgets   = "visibleWidgets"
	KeyModifierOverlays = "modifierOverlays"
	KeyLastLayoutChange = "lastLayoutChange"
)

func schema() domain.Schema {
	defaults := legacy.DefaultController()
	return domain.Schema{
		Name: DomainName,
		Order: []string{
			KeyActivePreset, KeyVisibleWidgets, KeyModifierOverlays, KeyLastLayoutChange,
		},
		Kinds: map[string]durable.Kind{
			KeyActivePreset:     durable.KindString,
			KeyVisibleWidgets:   durable.KindStringList,
			KeyModifierOverlays: durable.KindBool,
			KeyLastLayoutChange: durable.KindTime,
		},
		Defaults: map[string]durable.Value{
			KeyActivePreset:     durable.String(defaults.ActivePreset),
			KeyVisibleWidgets:   durable.StringList(defaults.VisibleWidgets),
			KeyModifierOverlays: durable.Bool(defaults.ModifierOverlays),
			KeyLastLayoutChange: durable.Time(time.Time{}),
		},
	}
}

// Domain is the migrated controller model.
type Domain struct {
	*domain.Cache
}

func NewDomain(g *domain.Group, store durable.Store) (*Domain, error) {
	c, err := domain.NewCache(g, schema(), store)
	if err != nil {
		return nil, err
	}
	return &Domain{Cache: c}, nil
}

// Init returns the bridge constructor for this domain, memoized so retried
// migrations reuse one loop.
func Init(g *domain.Group, store durable.Store) bridge.InitFunc {
	var mu sync.Mutex
	var dom *Domain
	return func(context.Context) (bridge.Domain, error) {
		mu.Lock()
		defer mu.Unlock()
		if dom == nil {
			d, err := NewDomain(g, store)
			if err != nil {
				return nil, err
			}
			dom = d
		}
		return dom, nil
	}
}

// LegacyAdapter exposes the controller singleton's fields by key. The
// legacy model never tracked layout-change times, so that key reads
// absent and is skipped during migration copy.
type LegacyAdapter struct {
	state *legacy.ControllerState
}

func NewLegacyAdapter(state *legacy.ControllerState) *LegacyAdapter {
	return &LegacyAdapter{state: state}
}

func (a *LegacyAdapter) Read(key string) durable.Value {
	switch key {
	case KeyActivePreset:
		return durable.String(a.state.ActivePreset)
	case KeyVisibleWidgets:
		return durable.StringList(a.state.VisibleWidgets)
	case KeyModifierOverlays:
		return durable.Bool(a.state.ModifierOverlays)
	}
	return durable.Value{}
}

func (a *LegacyAdapter) Write(key string, v durable.Value) {
	switch key {
	case KeyActivePreset:
		if s, ok := v.AsString(); ok {
			a.state.ActivePreset = s
		}
	case KeyVisibleWidgets:
		if l, ok := v.AsStringList(); ok {
			a.state.VisibleWidgets = l
		}
	case KeyModifierOverlays:
		if b, ok := v.AsBool(); ok {
			a.state.ModifierOverlays = b
		}
	}
}
