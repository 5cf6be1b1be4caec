// Package metrics exposes Prometheus collectors for unisen clients and transports.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Drop reasons used with EventsDropped.
const (
	ReasonSampleRate     = "sample_rate"
	ReasonBeforeSend     = "before_send"
	ReasonEventProcessor = "event_processor"
	ReasonRateLimited    = "ratelimit_backoff"
	ReasonBufferFull     = "buffer_full"
	ReasonQueueFull      = "queue_overflow"
	ReasonNetworkError   = "network_error"
)

var (
	EventsCaptured = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "unisen_events_captured_total",
		Help: "Total number of events built by clients, labelled by level.",
	}, []string{"level"})

	EventsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "unisen_events_dropped_total",
		Help: "Total number of events discarded before delivery, labelled by reason.",
	}, []string{"reason"})

	EnvelopesSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "unisen_envelopes_sent_total",
		Help: "Total number of envelopes delivered, labelled by HTTP status class.",
	}, []string{"status"})

	RequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "unisen_transport_request_duration_ms",
		Help:    "Transport request latency in milliseconds.",
		Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	})

	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "unisen_async_queue_depth",
		Help: "Current number of envelopes waiting in async transports.",
	})
)

// StatusClass buckets an HTTP status code as "2xx", "4xx", ...
func StatusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	case code >= 200:
		return "2xx"
	default:
		return "other"
	}
}
