package metrics

import (
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.ObservePhaseDuration("settings", 150*time.Millisecond)
	pr.IncPhaseResult("settings", ResultSuccess)
	pr.IncMigrationOutcome("completed")
	pr.SetProgress(0.4)
	pr.IncRoute("permissions", TargetLegacy)
	pr.IncVerificationMismatch("controller_state")
	pr.IncRollback("settings", true)
	// Basic scrape to ensure metrics encode without panic
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(mfs) == 0 {
		t.Fatalf("expected metrics, got none")
	}
}

func TestNilRecorderMethodsSafe(t *testing.T) {
	var pr *PrometheusRecorder
	pr.ObservePhaseDuration("settings", time.Second)
	pr.IncPhaseResult("settings", ResultFailed)
	pr.IncMigrationOutcome("failed")
	pr.SetProgress(1)
	pr.IncRoute("settings", TargetIsolated)
	pr.IncVerificationMismatch("settings")
	pr.IncRollback("settings", false)
}
