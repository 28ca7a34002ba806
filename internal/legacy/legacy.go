// Package legacy holds the unsynchronized global singletons the migration
// framework transitions away from. Nothing here is thread-safe; that is the
// point. Bridges reach these structs only through per-domain adapters so
// feature code never touches a global directly.
package legacy

// SettingsState mirrors the application settings singleton: plain fields,
// no locking, mutated historically from wherever.
type SettingsState struct {
	LaunchAtLogin      bool
	HapticFeedback     bool
	MultitouchGestures bool
	ShowControlStrip   bool
	WidgetOrder        []string
	EnabledModules     []string
}

// DefaultSettings returns the first-run values.
func DefaultSettings() *SettingsState {
	return &SettingsState{
		HapticFeedback:   true,
		ShowControlStrip: true,
		WidgetOrder:      []string{"brightness", "volume", "media"},
		EnabledModules:   []string{"core"},
	}
}

// PermissionsState is the legacy permission manager's internal cache:
// permission kind to last observed status string.
type PermissionsState struct {
	Status map[string]string
}

func DefaultPermissions() *PermissionsState {
	return &PermissionsState{Status: map[string]string{}}
}

// ControllerState is the UI controller's internal model.
type ControllerState struct {
	ActivePreset     string
	VisibleWidgets   []string
	ModifierOverlays bool
}

func DefaultController() *ControllerState {
	return &ControllerState{
		ActivePreset:   "default",
		VisibleWidgets: []string{"escape", "brightness", "volume"},
	}
}

// ModulesState is the feature-module registry singleton.
type ModulesState struct {
	Active   []string
	Pinned   []string
	AutoHide bool
}

func DefaultModules() *ModulesState {
	return &ModulesState{
		Active: []string{"core", "media"},
		Pinned: []string{"core"},
	}
}

// Package-level singletons, as the pre-migration application wired them.
// Production code resolves these once at startup and passes them down;
// tests construct their own instances.
var (
	Settings    = DefaultSettings()
	Permissions = DefaultPermissions()
	Controller  = DefaultController()
	Modules     = DefaultModules()
)
