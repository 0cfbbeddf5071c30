package client

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for executor operations.
var (
	fizzyRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fizzy_requests_total",
		Help: "Total Fizzy API attempts by method and status",
	}, []string{"method", "status"})

	fizzyCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fizzy_call_duration_seconds",
		Help:    "Duration of logical calls including retries and backoff by method",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"method"})

	fizzyErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fizzy_errors_total",
		Help: "Total Fizzy API errors by kind",
	}, []string{"kind"})

	fizzyRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fizzy_retries_total",
		Help: "Total number of retry attempts by error kind",
	}, []string{"kind"})

	fizzyRetryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fizzy_retry_backoff_seconds",
		Help:    "Backoff duration for retries by error kind",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"kind"})

	fizzyRetryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fizzy_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted by error kind",
	}, []string{"kind"})
)
