package obs

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	upstreamLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "wingman_upstream_request_duration_seconds",
		Help:    "Latency of requests to the gw2wingman API.",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint", "status"})

	webhookRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wingman_webhook_requests_total",
		Help: "Inbound webhook requests by endpoint and result.",
	}, []string{"endpoint", "result"})

	deliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wingman_deliveries_total",
		Help: "Discord channel deliveries by record type and result.",
	}, []string{"type", "result"})

	dropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wingman_records_dropped_total",
		Help: "Patch records dropped before delivery, by reason.",
	}, []string{"reason"})
)

// ObserveUpstream records one gw2wingman API call
func ObserveUpstream(endpoint, status string, d time.Duration) {
	upstreamLatency.WithLabelValues(endpoint, status).Observe(d.Seconds())
}

// WebhookRequest counts one inbound webhook request
func WebhookRequest(endpoint, result string) {
	webhookRequests.WithLabelValues(endpoint, result).Inc()
}

// Delivery counts one channel delivery attempt
func Delivery(recordType, result string) {
	deliveries.WithLabelValues(recordType, result).Inc()
}

// Dropped counts a record that never reached the dispatcher
func Dropped(reason string) {
	dropped.WithLabelValues(reason).Inc()
}
