// Package metrics exposes the Prometheus registry used by the gateway.
// Metrics are defined in their owning packages (cache, client, ratelimit,
// resolver, query) and registered via promauto, so importing this package
// never creates a dependency cycle.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the registerer every gateway metric is attached to.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the gatherer served by Handler.
var Gatherer = prometheus.DefaultGatherer

// Handler serves all registered metrics in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Metrics Documentation
//
// Cache Metrics (pkg/cache):
//   - swapi_cache_hits_total{layer} (Counter): Cache hits by layer (memory, redis)
//   - swapi_cache_misses_total{layer} (Counter): Cache misses by layer
//   - swapi_cache_expired_total{layer} (Counter): Entries found but past their TTL
//   - swapi_cache_entries{layer} (Gauge): Entries currently held in memory
//   - swapi_cache_errors_total{operation} (Counter): Backend failures on get/set
//
// Rate Limit Metrics (pkg/ratelimit):
//   - swapi_ratelimit_wait_seconds (Histogram): Time spent waiting for a token
//   - swapi_ratelimit_tokens (Gauge): Tokens available after the last refill
//   - swapi_rate_limit_throttles_total (Counter): 429 responses recorded
//   - swapi_rate_limit_blocked_waits_total (Counter): Requests held back by a shared block
//
// Request Metrics (pkg/client):
//   - swapi_requests_total{collection, status} (Counter): Upstream requests by collection and HTTP status
//   - swapi_request_duration_seconds{collection} (Histogram): Upstream request duration
//   - swapi_errors_total{class} (Counter): Upstream failures by class
//     (not_found, rate_limited, timeout, transient, invalid_response)
//   - swapi_gateway_lookups_total{collection, result} (Counter): Gateway lookups by cache outcome
//
// Retry Metrics (pkg/client):
//   - swapi_retries_total{error_class} (Counter): Retry attempts by error class
//   - swapi_retry_backoff_seconds{error_class} (Histogram): Delay before each retry
//   - swapi_retry_exhausted_total{error_class} (Counter): Requests that used every attempt
//
// Resolver Metrics (pkg/resolver):
//   - swapi_resolver_references (Histogram): References per resolution
//   - swapi_resolver_dropped_total (Counter): References dropped as not found
//
// Query Metrics (pkg/query):
//   - swapi_queries_total{collection, outcome} (Counter): Catalog queries by outcome
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(swapi_cache_hits_total[5m])) /
//   (sum(rate(swapi_cache_hits_total[5m])) + sum(rate(swapi_cache_misses_total[5m])))
//
//   # Upstream Error Rate by Class
//   sum by (class) (rate(swapi_errors_total[5m]))
//
//   # P95 Upstream Latency
//   histogram_quantile(0.95, rate(swapi_request_duration_seconds_bucket[5m]))
//
//   # Time Spent Waiting on the Limiter
//   rate(swapi_ratelimit_wait_seconds_sum[5m])
