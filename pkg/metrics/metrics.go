// Package metrics is the reference for the Prometheus metrics of the Fizzy
// client. Collectors are defined where they are updated (client, cache,
// ratelimit, transport) and registered with promauto on the default
// registry; this package reads them back.
package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// Namespace prefixes every metric name.
const Namespace = "fizzy"

// Registry is the registerer the client's collectors are registered with.
var Registry = prometheus.DefaultRegisterer

// Gatherer is read by Snapshot.
var Gatherer prometheus.Gatherer = prometheus.DefaultGatherer

// Snapshot returns the current value of every fizzy_* metric summed over
// its labels. Histograms contribute "<name>_count" and "<name>_sum".
func Snapshot() (map[string]float64, error) {
	families, err := Gatherer.Gather()
	if err != nil {
		return nil, err
	}

	out := make(map[string]float64)
	for _, mf := range families {
		name := mf.GetName()
		if !strings.HasPrefix(name, Namespace+"_") {
			continue
		}
		for _, m := range mf.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				out[name] += m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				out[name] += m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				out[name+"_count"] += float64(m.GetHistogram().GetSampleCount())
				out[name+"_sum"] += m.GetHistogram().GetSampleSum()
			}
		}
	}
	return out, nil
}

// CacheHitRatio is 304 revalidations over conditional requests sent, or 0
// before the first conditional request.
func CacheHitRatio(snapshot map[string]float64) float64 {
	sent := snapshot["fizzy_conditional_requests_total"]
	if sent == 0 {
		return 0
	}
	return snapshot["fizzy_304_responses_total"] / sent
}

// Metrics Documentation
//
// Request Metrics (pkg/client, pkg/transport):
//   - fizzy_requests_total{method, status} (Counter): attempts by method and HTTP status
//   - fizzy_request_duration_seconds{method} (Histogram): duration of one HTTP exchange
//   - fizzy_call_duration_seconds{method} (Histogram): duration of a logical call incl. retries
//   - fizzy_errors_total{kind} (Counter): failed attempts by error kind
//
// Retry Metrics (pkg/client):
//   - fizzy_retries_total{kind} (Counter): retries by error kind
//   - fizzy_retry_backoff_seconds{kind} (Histogram): backoff before each retry
//   - fizzy_retry_exhausted_total{kind} (Counter): calls that ran out of attempts
//
// Cache Metrics (pkg/cache):
//   - fizzy_cache_hits_total{layer} (Counter): entries found (layer memory or redis)
//   - fizzy_cache_misses_total (Counter): lookups without a usable entry
//   - fizzy_conditional_requests_total (Counter): requests sent with If-None-Match
//   - fizzy_304_responses_total (Counter): revalidations answered with 304
//   - fizzy_cache_invalidations_total (Counter): entries dropped after mutations
//   - fizzy_cache_errors_total{operation} (Counter): store errors
//
// Rate Limit Metrics (pkg/ratelimit):
//   - fizzy_rate_limit_cooldowns_total (Counter): cooldowns recorded from 429 Retry-After
//   - fizzy_rate_limit_wait_seconds (Histogram): waits before a first attempt
//
// Example Prometheus Queries:
//
//   # Revalidation hit rate
//   rate(fizzy_304_responses_total[5m]) / rate(fizzy_conditional_requests_total[5m])
//
//   # Retry pressure by kind
//   sum by (kind) (rate(fizzy_retries_total[5m]))
//
//   # P95 call latency including backoff
//   histogram_quantile(0.95, rate(fizzy_call_duration_seconds_bucket[5m]))
