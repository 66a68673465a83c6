package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	DispatchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_requests_total",
			Help: "Dispatch outcomes by result.",
		},
		[]string{"outcome"},
	)

	DispatchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dispatch_duration_seconds",
			Help:    "Time spent resolving one dispatch request.",
			Buckets: prometheus.DefBuckets,
		},
	)

	AccessLogDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "access_log_dropped_total",
			Help: "Access log entries dropped under backpressure.",
		},
	)
)

const (
	OutcomeDispatched = "dispatched"
	OutcomeFallback   = "fallback"
	OutcomeBlocked    = "blocked"
	OutcomeError      = "error"
)

func Init() {
	prometheus.MustRegister(DispatchTotal, DispatchDuration, AccessLogDropped)
}
