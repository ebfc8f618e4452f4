package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	rulesWrittenTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "darkwatch_rules_written_total",
		Help: "Total number of keyword rules created or updated, by resulting severity level",
	}, []string{"op", "level"})
	ruleSeverity = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "darkwatch_rule_severity",
		Help:    "Final severity of written keyword rules",
		Buckets: []float64{1, 2, 3, 4, 5, 6, 7, 8},
	})
	sensitivityGamma = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "darkwatch_sensitivity_gamma",
		Help: "Current saved sensitivity gamma",
	})
	validationFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "darkwatch_validation_failures_total",
		Help: "Total number of rejected submissions, by entity",
	}, []string{"entity"})
	scheduledRunsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "darkwatch_scheduled_runs_total",
		Help: "Total number of crawler jobs started by the schedule monitor",
	})
	workersOfflineTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "darkwatch_workers_offline_total",
		Help: "Total number of workers marked offline for missing heartbeats",
	})
)

// Register registers Prometheus collectors. Call once at startup.
func Register(registry prometheus.Registerer) {
	registry.MustRegister(rulesWrittenTotal, ruleSeverity, sensitivityGamma, validationFailuresTotal, scheduledRunsTotal, workersOfflineTotal)
}

// ObserveRuleWrite records a successful create or update.
func ObserveRuleWrite(op, level string, score float64) {
	rulesWrittenTotal.WithLabelValues(op, level).Inc()
	ruleSeverity.Observe(score)
}

// SetGamma publishes the saved gamma.
func SetGamma(v float64) { sensitivityGamma.Set(v) }

// IncValidationFailure counts a rejected submission for entity.
func IncValidationFailure(entity string) { validationFailuresTotal.WithLabelValues(entity).Inc() }

// IncScheduledRun counts a job started by the schedule monitor.
func IncScheduledRun() { scheduledRunsTotal.Inc() }

// IncWorkerOffline counts a worker transition to Offline.
func IncWorkerOffline() { workersOfflineTotal.Inc() }
