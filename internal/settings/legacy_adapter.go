package settings

import (
	"git.home.luguber.info/inful/statebridge/internal/durable"
	"git.home.luguber.info/inful/statebridge/internal/legacy"
)

// LegacyAdapter exposes the unsynchronized settings singleton through the
// bridge's key-addressed contract. It performs no locking; it inherits the
// legacy object's (lack of) thread safety.
type LegacyAdapter struct {
	state *legacy.SettingsState
}

func NewLegacyAdapter(state *legacy.SettingsState) *LegacyAdapter {
	return &LegacyAdapter{state: state}
}

func (a *LegacyAdapter) Read(key string) durable.Value {
	switch key {
	case KeyLaunchAtLogin:
		return durable.Bool(a.state.LaunchAtLogin)
	case KeyHapticFeedback:
		return durable.Bool(a.state.HapticFeedback)
	case KeyMultitouchGestures:
		return durable.Bool(a.state.MultitouchGestures)
	case KeyShowControlStrip:
		return durable.Bool(a.state.ShowControlStrip)
	case KeyWidgetOrder:
		return durable.StringList(a.state.WidgetOrder)
	case KeyEnabledModules:
		return durable.StringList(a.state.EnabledModules)
	}
	return durable.Value{}
}

func (a *LegacyAdapter) Write(key string, v durable.Value) {
	switch key {
	case KeyLaunchAtLogin:
		if b, ok := v.AsBool(); ok {
			a.state.LaunchAtLogin = b
		}
	case KeyHapticFeedback:
		if b, ok := v.AsBool(); ok {
			a.state.HapticFeedback = b
		}
	case KeyMultitouchGestures:
		if b, ok := v.AsBool(); ok {
			a.state.MultitouchGestures = b
		}
	case KeyShowControlStrip:
		if b, ok := v.AsBool(); ok {
			a.state.ShowControlStrip = b
		}
	case KeyWidgetOrder:
		if l, ok := v.AsStringList(); ok {
			a.state.WidgetOrder = l
		}
	case KeyEnabledModules:
		if l, ok := v.AsStringList(); ok {
			a.state.EnabledModules = l
		}
	}
}
