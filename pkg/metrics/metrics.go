// Package metrics provides the centralized Prometheus metrics reference for
// the CAMPD client. All metrics are defined in their respective packages
// (client, cache, quota, retrieval) to maintain modularity and avoid
// circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the client.
// All metrics are automatically registered via promauto in their packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Quota Metrics (pkg/quota):
//   - campd_quota_remaining (Gauge): Requests remaining in the API-key window
//   - campd_quota_blocks_total (Counter): Requests blocked at critical quota
//   - campd_quota_throttles_total (Counter): Requests throttled at low quota
//
// Cache Metrics (pkg/cache):
//   - campd_cache_hits_total{layer="redis"} (Counter): Cache hits by layer
//   - campd_cache_misses_total (Counter): Cache misses
//   - campd_cache_size_bytes{layer="redis"} (Gauge): Cached bytes written
//   - campd_304_responses_total (Counter): 304 Not Modified responses
//   - campd_conditional_requests_total (Counter): Conditional requests sent
//   - campd_cache_errors_total{operation} (Counter): Cache operation errors
//
// Request Metrics (pkg/client):
//   - campd_requests_total{endpoint, status} (Counter): Requests by endpoint and status
//   - campd_request_duration_seconds{endpoint} (Histogram): Request duration
//   - campd_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network)
//
// Retry Metrics (pkg/client):
//   - campd_retries_total{error_class} (Counter): Retry attempts by error class
//   - campd_retry_backoff_seconds{error_class} (Histogram): Backoff duration
//   - campd_retry_exhausted_total{error_class} (Counter): Exhausted retry budgets
//
// Retrieval Metrics (pkg/retrieval):
//   - campd_retrieval_pages_total{mode} (Counter): Pages fetched by mode
//   - campd_retrieval_rows_total{mode} (Counter): Rows assembled by mode
//   - campd_retrieval_queries_total{mode, outcome} (Counter): Queries by outcome
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(campd_cache_hits_total[5m])) /
//   (sum(rate(campd_cache_hits_total[5m])) + sum(rate(campd_cache_misses_total[5m])))
//
//   # Quota Status
//   campd_quota_remaining < 50
//
//   # Request Error Rate
//   rate(campd_errors_total[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(campd_request_duration_seconds_bucket[5m]))
//
//   # Rows Assembled Per Mode
//   rate(campd_retrieval_rows_total[5m])
