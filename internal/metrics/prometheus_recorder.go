package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once          sync.Once
	phaseDuration *prom.HistogramVec
	phaseResults  *prom.CounterVec
	outcomes      *prom.CounterVec
	progress      prom.Gauge
	routes        *prom.CounterVec
	mismatches    *prom.CounterVec
	rollbacks     *prom.CounterVec
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.phaseDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "statebridge",
			Name:      "phase_duration_seconds",
			Help:      "Duration of individual migration phases",
			Buckets:   prom.DefBuckets,
		}, []string{"phase"})
		pr.phaseResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "statebridge",
			Name:      "phase_results_total",
			Help:      "Phase result counts by outcome",
		}, []string{"phase", "result"})
		pr.outcomes = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "statebridge",
			Name:      "migration_outcomes_total",
			Help:      "Whole-migration outcomes by final status",
		}, []string{"outcome"})
		pr.progress = prom.NewGauge(prom.GaugeOpts{
			Namespace: "statebridge",
			Name:      "migration_progress",
			Help:      "Weighted progress of the current migration run (0-1)",
		})
		pr.routes = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "statebridge",
			Name:      "route_dispatches_total",
			Help:      "Bridge dispatches by domain and resolved target",
		}, []string{"domain", "target"})
		pr.mismatches = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "statebridge",
			Name:      "verification_mismatches_total",
			Help:      "Post-copy verification mismatches by domain",
		}, []string{"domain"})
		pr.rollbacks = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "statebridge",
			Name:      "rollbacks_total",
			Help:      "Per-domain rollback attempts by result",
		}, []string{"domain", "result"})
		reg.MustRegister(pr.phaseDuration, pr.phaseResults, pr.outcomes, pr.progress, pr.routes, pr.mismatches, pr.rollbacks)
	})
	return pr
}

func (p *PrometheusRecorder) ObservePhaseDuration(phase string, d time.Duration) {
	if p == nil || p.phaseDuration == nil {
		return
	}
	p.phaseDuration.WithLabelValues(phase).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncPhaseResult(phase string, result ResultLabel) {
	if p == nil || p.phaseResults == nil {
		return
	}
	p.phaseResults.WithLabelValues(phase, string(result)).Inc()
}

func (p *PrometheusRecorder) IncMigrationOutcome(outcome string) {
	if p == nil || p.outcomes == nil {
		return
	}
	p.outcomes.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) SetProgress(v float64) {
	if p == nil || p.progress == nil {
		return
	}
	p.progress.Set(v)
}

func (p *PrometheusRecorder) IncRoute(domain string, target TargetLabel) {
	if p == nil || p.routes == nil {
		return
	}
	p.routes.WithLabelValues(domain, string(target)).Inc()
}

func (p *PrometheusRecorder) IncVerificationMismatch(domain string) {
	if p == nil || p.mismatches == nil {
		return
	}
	p.mismatches.WithLabelValues(domain).Inc()
}

func (p *PrometheusRecorder) IncRollback(domain string, success bool) {
	if p == nil || p.rollbacks == nil {
		return
	}
	res := "failed"
	if success {
		res = "success"
	}
	p.rollbacks.WithLabelValues(domain, res).Inc()
}
