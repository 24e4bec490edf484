package constants

// Static route constants
const (
	WebhooksRoute   = "/webhooks"
	MonitoringRoute = "/api/v1/monitoring"
)
