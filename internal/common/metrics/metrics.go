// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	// outcome is "failed" (retried) or "error" (BPMN error thrown).
	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "outcome"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "worker_job_duration_seconds",
			Help:    "Duration of job processing in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)

	PassportsGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "passports_generated_total",
			Help: "Credit passports generated, by interpretation band",
		},
		[]string{"interpretation"},
	)

	FundabilityScore = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "passport_fundability_score",
			Help:    "Distribution of generated fundability scores",
			Buckets: prometheus.LinearBuckets(10, 10, 10),
		},
	)

	// reason is one of disabled, timeout, error, incomplete.
	NarrativeFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "passport_narrative_fallbacks_total",
			Help: "Augmentation attempts that fell back to the rule-based narrative",
		},
		[]string{"reason"},
	)

	EntitlementChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "passport_entitlement_checks_total",
			Help: "Monetization gate decisions",
		},
		[]string{"action", "result"},
	)

	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "passport_notifications_total",
			Help: "Passport notifications by channel and status",
		},
		[]string{"channel", "status"},
	)
)
