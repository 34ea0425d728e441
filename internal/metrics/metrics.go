package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/dalfonso89/openexchangerates/openexchangerates"
)

var (
	UpstreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oxr_upstream_requests_total",
			Help: "Total number of Open Exchange Rates calls per operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	UpstreamRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "oxr_upstream_request_duration_seconds",
			Help:    "Open Exchange Rates call duration in seconds per operation",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	GatewayRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oxr_gateway_requests_total",
			Help: "Total number of gateway requests per route and status code",
		},
		[]string{"method", "route", "code"},
	)
)

// ObserveUpstream records one client call. The outcome label is "success" or
// the client's error type.
func ObserveUpstream(operation string, startedAt time.Time, err error) {
	UpstreamRequestDurationSeconds.WithLabelValues(operation).Observe(time.Since(startedAt).Seconds())

	outcome := "success"
	if err != nil {
		outcome = openexchangerates.TypeOf(err).String()
	}
	UpstreamRequestsTotal.WithLabelValues(operation, outcome).Inc()
}
