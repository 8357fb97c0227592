// Package metrics holds the Prometheus collectors of the service. Collectors are registered on
// the default registry and exposed by promhttp at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeIgnored = "ignored"
)

var (
	// InvitationTransitions counts invitation lifecycle changes by action
	// ("invite", "join", "accepted", "refused", "cancel", "leave").
	InvitationTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meetsync_invitation_transitions_total",
			Help: "Total number of invitation lifecycle transitions",
		},
		[]string{"action"},
	)

	// EmailsSent counts notification email attempts by template and outcome.
	EmailsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meetsync_emails_total",
			Help: "Total number of notification email attempts",
		},
		[]string{"template", "outcome"},
	)

	WebhookEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meetsync_webhook_events_total",
			Help: "Total number of payment provider webhook events by type and outcome",
		},
		[]string{"type", "outcome"},
	)

	WebhookSignatureFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "meetsync_webhook_signature_failures_total",
			Help: "Total number of webhook payloads rejected by signature verification",
		},
	)

	RealtimeSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "meetsync_realtime_subscribers",
			Help: "Current number of invitation feed subscribers",
		},
	)

	RealtimeNotifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meetsync_realtime_notifications_total",
			Help: "Total number of invitation change notifications by source",
		},
		[]string{"source"}, // "local", "postgres"
	)

	MailerBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "meetsync_mailer_circuit_breaker_state",
			Help: "Mailer circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "meetsync_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "status"},
	)
)

// RecordEmail increments EmailsSent for template with the outcome derived from err.
func RecordEmail(template string, err error) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	EmailsSent.WithLabelValues(template, outcome).Inc()
}
