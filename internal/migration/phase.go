package migration

import (
	"context"
	"fmt"
	"math"
)

// Migrator is one phase's worker, typically a *bridge.Bridge.
type Migrator interface {
	Name() string
	Migrate(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Phase is one ordered step of the overall migration with its progress
// weight. The declared order is the only cross-domain sequencing in the
// system; it exists for determinism and progress reporting, not because
// one domain's migrated data feeds another's.
type Phase struct {
	Name     string
	Weight   float64
	Migrator Migrator
}

// Canonical phase names.
const (
	PhaseSettings        = "settings"
	PhasePermissions     = "permissions"
	PhaseControllerState = "controller_state"
	PhaseFeatureModules  = "feature_modules"
	PhaseCleanup         = "cleanup"
)

const weightTolerance = 1e-9

func validatePhases(phases []Phase) error {
	if len(phases) == 0 {
		return fmt.Errorf("no phases declared")
	}
	sum := 0.0
	seen := map[string]bool{}
	for _, p := range phases {
		if p.Name == "" {
			return fmt.Errorf("phase with empty name")
		}
		if seen[p.Name] {
			return fmt.Errorf("duplicate phase %q", p.Name)
		}
		seen[p.Name] = true
		if p.Migrator == nil {
			return fmt.Errorf("phase %q has no migrator", p.Name)
		}
		if p.Weight < 0 {
			return fmt.Errorf("phase %q has negative weight %v", p.Name, p.Weight)
		}
		sum += p.Weight
	}
	if math.Abs(sum-1.0) > weightTolerance {
		return fmt.Errorf("phase weights sum to %v, want 1.0", sum)
	}
	return nil
}
