package controller

import (
	"context"
	"sync"

	"git.home.luguber.info/inful/statebridge/internal/bridge"
	"git.home.luguber.info/inful/statebridge/internal/domain"
	"git.home.luguber.info/inful/statebridge/internal/durable"
	"git.home.luguber.info/inful/statebridge/internal/legacy"
)

const ModulesDomainName = "feature_modules"

const (
	KeyActiveModules = "active"
	KeyPinnedModules = "pinned"
	KeyAutoHide      = "autoHide"
)

func modulesSchema() domain.Schema {
	defaults := legacy.DefaultModules()
	return domain.Schema{
		Name:  ModulesDomainName,
		Order: []string{KeyActiveModules, KeyPinnedModules, KeyAutoHide},
		Kinds: map[string]durable.Kind{
			KeyActiveModules: durable.KindStringList,
			KeyPinnedModules: durable.KindStringList,
			KeyAutoHide:      durable.KindBool,
		},
		Defaults: map[string]durable.Value{
			KeyActiveModules: durable.StringList(defaults.Active),
			KeyPinnedModules: durable.StringList(defaults.Pinned),
			KeyAutoHide:      durable.Bool(defaults.AutoHide),
		},
	}
}

// ModulesDomain is the migrated feature-module registry.
type ModulesDomain struct {
	*domain.Cache
}

func NewModulesDomain(g *domain.Group, store durable.Store) (*ModulesDomain, error) {
	c, err := domain.NewCache(g, modulesSchema(), store)
	if err != nil {
		return nil, err
	}
	return &ModulesDomain{Cache: c}, nil
}

// ModulesInit returns the bridge constructor for the registry domain.
func ModulesInit(g *domain.Group, store durable.Store) bridge.InitFunc {
	var mu sync.Mutex
	var dom *ModulesDomain
	return func(context.Context) (bridge.Domain, error) {
		mu.Lock()
		defer mu.Unlock()
		if dom == nil {
			d, err := NewModulesDomain(g, store)
			if err != nil {
				return nil, err
			}
			dom = d
		}
		return dom, nil
	}
}

// ModulesLegacyAdapter exposes the module registry singleton by key.
type ModulesLegacyAdapter struct {
	state *legacy.ModulesState
}

func NewModulesLegacyAdapter(state *legacy.ModulesState) *ModulesLegacyAdapter {
	return &ModulesLegacyAdapter{state: state}
}

func (a *ModulesLegacyAdapter) Read(key string) durable.Value {
	switch key {
	case KeyActiveModules:
		return durable.StringList(a.state.Active)
	case KeyPinnedModules:
		return durable.StringList(a.state.Pinned)
	case KeyAutoHide:
		return durable.Bool(a.state.AutoHide)
	}
	return durable.Value{}
}

func (a *ModulesLegacyAdapter) Write(key string, v durable.Value) {
	switch key {
	case KeyActiveModules:
		if l, ok := v.AsStringList(); ok {
			a.state.Active = l
		}
	case KeyPinnedModules:
		if l, ok := v.AsStringList(); ok {
			a.state.Pinned = l
		}
	case KeyAutoHide:
		if b, ok := v.AsBool(); ok {
			a.state.AutoHide = b
		}
	}
}
