package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "kbsearch"

// Search outcomes.
const (
	OutcomeOK          = "ok"
	OutcomeEmpty       = "empty"
	OutcomeDegraded    = "degraded"
	OutcomeUnavailable = "unavailable"
	OutcomeError       = "error"
)

// View increment results.
const (
	ViewOK      = "ok"
	ViewRetried = "retried"
	ViewFailed  = "failed"
	ViewDropped = "dropped"
)

// Search pipeline Prometheus metrics.
var (
	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_requests_total",
			Help:      "Total number of search queries by outcome",
		},
		[]string{"outcome"},
	)

	SearchStageFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_stage_failures_total",
			Help:      "Search queries that failed before reaching a stage",
		},
		[]string{"stage"},
	)

	SearchDegradedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_degraded_total",
			Help:      "Search queries ranked without view counts",
		},
	)

	SearchCandidates = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_candidates",
			Help:      "Number of candidates retrieved per query",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
	)

	ViewIncrementsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "view_increments_total",
			Help:      "View counter increments by result",
		},
		[]string{"result"}, // "ok" / "retried" / "failed" / "dropped"
	)

	AnalysisFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analysis_failures_total",
			Help:      "Inputs the analyzer could not process",
		},
	)
)

var searchMetricsRegistered bool

// RegisterSearchMetrics registers Prometheus search metrics. Must be called once from main.
func RegisterSearchMetrics() {
	if searchMetricsRegistered {
		return
	}
	prometheus.MustRegister(SearchRequestsTotal)
	prometheus.MustRegister(SearchStageFailuresTotal)
	prometheus.MustRegister(SearchDegradedTotal)
	prometheus.MustRegister(SearchCandidates)
	prometheus.MustRegister(ViewIncrementsTotal)
	prometheus.MustRegister(AnalysisFailuresTotal)
	searchMetricsRegistered = true
}
