package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks cache hits by layer
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fizzy_cache_hits_total",
			Help: "Total number of Fizzy ETag cache hits",
		},
		[]string{"layer"}, // "memory", "redis"
	)

	// CacheMisses tracks cache misses
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fizzy_cache_misses_total",
			Help: "Total number of Fizzy ETag cache misses",
		},
	)

	// NotModifiedResponses tracks 304 Not Modified responses
	NotModifiedResponses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fizzy_304_responses_total",
			Help: "Total number of Fizzy 304 Not Modified responses",
		},
	)

	// ConditionalRequests tracks requests sent with If-None-Match
	ConditionalRequests = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fizzy_conditional_requests_total",
			Help: "Total number of conditional requests sent",
		},
	)

	// Invalidations tracks entries removed after mutations
	Invalidations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fizzy_cache_invalidations_total",
			Help: "Total number of cache entries invalidated by mutating requests",
		},
	)

	// CacheErrors tracks cache operation errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fizzy_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete", "scan"
	)
)
