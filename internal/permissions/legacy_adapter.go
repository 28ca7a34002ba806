package permissions

import (
	"git.home.luguber.info/inful/statebridge/internal/bridge"
	"git.home.luguber.info/inful/statebridge/internal/durable"
	"git.home.luguber.info/inful/statebridge/internal/legacy"
)

// LegacyAdapter wraps the legacy permission cache map. Raw status strings
// are normalized on the way out so the migration copy and its verification
// see the same canonical form.
type LegacyAdapter struct {
	s *legacy.PermissionsState
}

var _ bridge.Legacy = (*LegacyAdapter)(nil)

func NewLegacyAdapter(s *legacy.PermissionsState) *LegacyAdapter {
	return &LegacyAdapter{s: s}
}

func (a *LegacyAdapter) Read(key string) durable.Value {
	raw, ok := a.s.Status[key]
	if !ok {
		return durable.Value{}
	}
	return durable.String(string(normalizeStatus(raw)))
}

func (a *LegacyAdapter) Write(key string, v durable.Value) {
	raw, ok := v.AsString()
	if !ok {
		return
	}
	a.s.Status[key] = string(normalizeStatus(raw))
}

// Status reads the legacy map directly for the pre-migration call path.
func (a *LegacyAdapter) Status(kind Kind) (Status, bool) {
	raw, ok := a.s.Status[string(kind)]
	if !ok {
		return StatusNotDetermined, false
	}
	return normalizeStatus(raw), true
}

// SetStatus records a probe result in the legacy map.
func (a *LegacyAdapter) SetStatus(kind Kind, st Status) {
	a.s.Status[string(kind)] = string(st)
}
