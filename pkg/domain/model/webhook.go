package model

import "time"

// WebhookEventType represents the type of webhook event received
type WebhookEventType string

const (
	EventTypeRelease WebhookEventType = "release"
	EventTypeUnknown WebhookEventType = "unknown"
)

// WebhookEvent represents a webhook event received from GitHub
type WebhookEvent struct {
	ID         string           // Retrieved from X-GitHub-Delivery header
	Type       WebhookEventType // Retrieved from X-GitHub-Event header
	Action     string           // Event action (e.g. published, created)
	Repository string           // Repository full name
	Sender     string           // Sender username
	ReceivedAt time.Time        // Time when the event was received
	RawPayload []byte           // Raw JSON payload
}

// WebhookStats counts deliveries by their run-trigger decision.
type WebhookStats struct {
	Received int64 `json:"received"`
	Eligible int64 `json:"eligible"`
	Ignored  int64 `json:"ignored"`
}

// IsSupportedEvent checks if the event can start a pipeline run. Only
// release events with a published or created action qualify.
func (e *WebhookEvent) IsSupportedEvent() bool {
	if e.Type != EventTypeRelease {
		return false
	}
	return e.Action == "published" || e.Action == "created"
}
