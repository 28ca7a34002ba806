// Package settings is the isolated domain for application settings: a
// small fixed set of typed keys, serialized behind one loop and persisted
// through the durable cell.
package settings

import (
	"context"
	"sync"

	"git.home.luguber.info/inful/statebridge/internal/bridge"
	"git.home.luguber.info/inful/statebridge/internal/domain"
	"git.home.luguber.info/inful/statebridge/internal/durable"
	"git.home.luguber.info/inful/statebridge/internal/legacy"
)

const DomainName = "settings"

// The settings snapshot keys. The set is closed; unknown keys are rejected
// at the domain boundary.
const (
	KeyLaunchAtLogin      = "launchAtLogin"
	KeyHapticFeedback     = "hapticFeedback"
	KeyMultitouchGestures = "multitouchGestures"
	KeyShowControlStrip   = "showControlStrip"
	KeyWidgetOrder        = "widgetOrder"
	KeyEnabledModules     = "enabledModules"
)

func schema() domain.Schema {
	defaults := legacy.DefaultSettings()
	return domain.Schema{
		Name: DomainName,
		Order: []string{
			KeyLaunchAtLogin, KeyHapticFeedback, KeyMultitouchGestures,
			KeyShowControlStrip, KeyWidgetOrder, KeyEnabledModules,
		},
		Kinds: map[string]durable.Kind{
			KeyLaunchAtLogin:      durable.KindBool,
			KeyHapticFeedback:     durable.KindBool,
			KeyMultitouchGestures: durable.KindBool,
			KeyShowControlStrip:   durable.KindBool,
			KeyWidgetOrder:        durable.KindStringList,
			KeyEnabledModules:     durable.KindStringList,
		},
		Defaults: map[string]durable.Value{
			KeyLaunchAtLogin:      durable.Bool(defaults.LaunchAtLogin),
			KeyHapticFeedback:     durable.Bool(defaults.HapticFeedback),
			KeyMultitouchGestures: durable.Bool(defaults.MultitouchGestures),
			KeyShowControlStrip:   durable.Bool(defaults.ShowControlStrip),
			KeyWidgetOrder:        durable.StringList(defaults.WidgetOrder),
			KeyEnabledModules:     durable.StringList(defaults.EnabledModules),
		},
	}
}

// Domain is the migrated settings store.
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

// Init returns the bridge constructor for this domain. The domain is built
// once; retried migrations reuse it rather than starting a second loop.
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
