package model

// HealthStatus is the /health response body.
type HealthStatus struct {
	Status     string       `json:"status"`
	Version    string       `json:"version"`
	Deliveries WebhookStats `json:"deliveries"`
}
