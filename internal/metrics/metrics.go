package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pipeline counters and gauges, exposed on /metrics
var (
	FlywheelCycles = promauto.NewCounter(prometheus.CounterOpts{
		Name: "intel_flywheel_cycles_total",
		Help: "Total number of completed flywheel cycles",
	})

	FlywheelCycleFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "intel_flywheel_cycle_failures_total",
		Help: "Total number of flywheel cycles that failed outright",
	})

	EntitiesEnriched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "intel_entities_enriched_total",
		Help: "Total number of entities re-enriched by the flywheel",
	})

	FactsInserted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "intel_facts_inserted_total",
		Help: "Total number of new facts persisted",
	})

	HealthScoresCalculated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "intel_health_scores_calculated_total",
		Help: "Total number of health score computations",
	})

	InsightsGenerated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "intel_insights_generated_total",
		Help: "Total number of insights generated",
	})

	AuditFixes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "intel_audit_fixes_total",
		Help: "Total number of records repaired by the quality agent, by pass",
	}, []string{"pass"})

	QualityScore = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "intel_data_quality_score",
		Help: "Latest aggregate data quality score (0-100)",
	})

	CycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "intel_flywheel_cycle_duration_seconds",
		Help:    "Wall-clock duration of flywheel cycles",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	})
)
