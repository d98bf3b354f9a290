package metrics

import "time"

// Default is the process-wide registry served on the metrics endpoint.
var Default = NewRegistry()

// Webhook outcomes.
const (
	WebhookAccepted     = "accepted"
	WebhookIgnored      = "ignored"
	WebhookUnauthorized = "unauthorized"
	WebhookTooLarge     = "too_large"
	WebhookDropped      = "dropped"
)

// Reply outcomes.
const (
	ReplySent     = "sent"
	ReplyFallback = "fallback"
	ReplyFailed   = "failed"
	ReplySkipped  = "skipped"
)

var latencyBuckets = []float64{0.25, 0.5, 1, 2, 5, 10, 15, 30, 60}

// Webhook counts an inbound webhook by outcome.
func Webhook(outcome string) {
	Default.Counter("warelay_webhooks_total", "Inbound webhook requests by outcome", Label("outcome", outcome)).Inc()
}

// Reply counts an outbound reply attempt by outcome.
func Reply(outcome string) {
	Default.Counter("warelay_replies_total", "Outbound replies by outcome", Label("outcome", outcome)).Inc()
}

// CompletionLatency records how long a completion call took.
func CompletionLatency(d time.Duration) {
	Default.Histogram("warelay_completion_latency_seconds", "Completion service latency in seconds", "", latencyBuckets).ObserveDuration(d)
}

// QueueDepth reports how many jobs are waiting in the dispatcher.
func QueueDepth(n int) {
	Default.Gauge("warelay_dispatch_queue_depth", "Jobs waiting for a dispatch worker", "").Set(int64(n))
}
