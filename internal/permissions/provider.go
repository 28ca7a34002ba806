package permissions

import (
	"context"
	"sync"

	"git.home.luguber.info/inful/statebridge/internal/bridge"
	"git.home.luguber.info/inful/statebridge/internal/domain"
	"git.home.luguber.info/inful/statebridge/internal/durable"
)

// Provider builds the permission domain once and hands the same instance to
// the bridge and to the front. Retried migrations must not spawn a second
// loop over the same cache.
type Provider struct {
	mu    sync.Mutex
	dom   *Domain
	build func() (*Domain, error)
}

func NewProvider(g *domain.Group, store durable.Store, probe Probe, opts ...Option) *Provider {
	return &Provider{
		build: func() (*Domain, error) {
			return NewDomain(g, store, probe, opts...)
		},
	}
}

// Domain returns the shared instance, constructing it on first use.
func (p *Provider) Domain() (*Domain, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.dom == nil {
		d, err := p.build()
		if err != nil {
			return nil, err
		}
		p.dom = d
	}
	return p.dom, nil
}

// Init is the bridge constructor for this domain.
func (p *Provider) Init() bridge.InitFunc {
	return func(context.Context) (bridge.Domain, error) {
		d, err := p.Domain()
		if err != nil {
			return nil, err
		}
		return d.MigrationView(), nil
	}
}
