// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_cache_hits_total",
			Help: "Total number of fresh cache reads",
		},
		[]string{"cache"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_cache_misses_total",
			Help: "Total number of absent or stale cache reads",
		},
		[]string{"cache"},
	)

	CacheProducerCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_cache_producer_calls_total",
			Help: "Total number of producer invocations after in-flight de-duplication",
		},
		[]string{"cache"},
	)

	FormStoreFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_formstore_failures_total",
			Help: "Total number of form store backend failures absorbed by the mirror",
		},
		[]string{"backend", "op"},
	)

	StepTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_step_transitions_total",
			Help: "Total number of step transitions attempted",
		},
		[]string{"direction", "outcome"},
	)

	SubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_submissions_total",
			Help: "Total number of booking submissions",
		},
		[]string{"outcome"},
	)

	SubmissionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "booking_submission_duration_seconds",
			Help: "Duration of booking submission calls in seconds",
		},
		[]string{"backend"},
	)

	SuggestionRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_suggestion_requests_total",
			Help: "Total number of suggestion lookups",
		},
		[]string{"kind", "outcome"},
	)

	PrefetchTasks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_prefetch_tasks_total",
			Help: "Total number of prefetch tasks settled",
		},
		[]string{"outcome"},
	)

	BoundaryTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_boundary_transitions_total",
			Help: "Total number of recovery boundary state transitions",
		},
		[]string{"from", "to"},
	)

	ActiveFlows = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "booking_active_flows",
			Help: "Number of booking flows currently held by the server",
		},
	)
)
