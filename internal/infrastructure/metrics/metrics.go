// Package metrics holds the Prometheus collectors exported at /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Handshake rejection reasons.
const (
	RejectAuthentication  = "authentication"
	RejectMissingBusiness = "missing_business_id"
	RejectAccessDenied    = "access_denied"
	RejectSetupError      = "setup_error"
)

// Inbound frame outcomes.
const (
	FrameHandled     = "handled"
	FrameMalformed   = "malformed"
	FrameInvalid     = "invalid"
	FrameRateLimited = "rate_limited"
	FrameUnknown     = "unknown"
	FrameStale       = "stale"
)

var (
	// WebSocket Metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections",
			Help: "Current number of registered WebSocket connections",
		},
	)

	WSConnectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_connections_total",
			Help: "Total number of WebSocket connections registered",
		},
	)

	WSHandshakeRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_handshake_rejections_total",
			Help: "Total number of WebSocket handshakes closed before registration",
		},
		[]string{"reason"},
	)

	WSEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_evictions_total",
			Help: "Total number of connections evicted because their send buffer was full",
		},
	)

	WSFramesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_messages_received_total",
			Help: "Total number of WebSocket frames received",
		},
		[]string{"message_type", "outcome"},
	)

	WSMessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_messages_sent_total",
			Help: "Total number of WebSocket frames queued for delivery",
		},
		[]string{"message_type"},
	)

	// Broadcast Metrics
	BroadcastsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broadcast_events_total",
			Help: "Total number of events fanned out",
		},
		[]string{"event_type"},
	)

	BroadcastRecipients = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "broadcast_recipients",
			Help:    "Number of connections an event was queued for",
			Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100, 250},
		},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5, 10},
		},
		[]string{"method", "endpoint"},
	)
)

// RecordAPIRequest records one served HTTP request.
func RecordAPIRequest(method, endpoint string, statusCode int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordBroadcast records one fan-out of an event.
func RecordBroadcast(eventType string, recipients int) {
	BroadcastsTotal.WithLabelValues(eventType).Inc()
	BroadcastRecipients.Observe(float64(recipients))
	if recipients > 0 {
		WSMessagesSent.WithLabelValues(eventType).Add(float64(recipients))
	}
}

// RecordFrame records one inbound frame and how it was handled.
func RecordFrame(messageType, outcome string) {
	if messageType == "" {
		messageType = "none"
	}
	WSFramesReceived.WithLabelValues(messageType, outcome).Inc()
}

// RecordRejection records a handshake closed before registration.
func RecordRejection(reason string) {
	WSHandshakeRejections.WithLabelValues(reason).Inc()
}
