// Package metrics declares the Prometheus instruments for the client.
// All instruments register themselves in the default registry via promauto;
// the watch command exposes them on a /metrics endpoint.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// APIRequests counts outbound API calls by method, path template and
	// HTTP status class.
	APIRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "costbuddy_api_requests_total",
			Help: "Total number of API requests by method, path and status class",
		},
		[]string{"method", "path", "status"},
	)

	// APIRequestDuration observes outbound call latency.
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "costbuddy_api_request_duration_seconds",
			Help:    "API request latency by method and path",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// TokenRefreshes counts token refresh attempts by outcome.
	TokenRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "costbuddy_token_refreshes_total",
			Help: "Total number of token refresh attempts by outcome",
		},
		[]string{"outcome"}, // ok, failed
	)

	// RateFetches counts currency rate fetches by source and outcome.
	RateFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "costbuddy_rate_fetches_total",
			Help: "Total number of currency rate fetch attempts by source and outcome",
		},
		[]string{"source", "outcome"}, // source: custom, public
	)
)

// Handler returns the HTTP handler serving the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
