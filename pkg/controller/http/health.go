package http

import (
	"encoding/json"
	"net/http"

	"github.com/slipway-dev/slipway/pkg/domain/interfaces"
	"github.com/slipway-dev/slipway/pkg/domain/model"
	"github.com/slipway-dev/slipway/pkg/domain/types"
)

// handleHealth responds to health check requests, including delivery
// counters so an operator can see whether webhooks are arriving.
func handleHealth(webhookUC interfaces.WebhookUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)

		_ = json.NewEncoder(w).Encode(model.HealthStatus{
			Status:     "ok",
			Version:    types.Version,
			Deliveries: webhookUC.Stats(),
		})
	}
}
