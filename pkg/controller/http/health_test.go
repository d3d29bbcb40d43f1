package http_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	controller "github.com/slipway-dev/slipway/pkg/controller/http"
	"github.com/slipway-dev/slipway/pkg/domain/model"
	"github.com/slipway-dev/slipway/pkg/usecase"
)

func TestHealthEndpoint(t *testing.T) {
	ctx := context.Background()

	webhookUC := usecase.NewWebhook()
	server, err := controller.NewServer(
		ctx,
		webhookUC,
		controller.WithAddr("localhost:0"),
		controller.WithWebhookSecret("test-secret"),
	)
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}

	// Feed one eligible delivery so the health body carries counters.
	if err := webhookUC.ProcessEvent(ctx, &model.WebhookEvent{
		ID:     "delivery-1",
		Type:   model.EventTypeRelease,
		Action: "published",
	}); err != nil {
		t.Fatalf("Failed to process event: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	server.Handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Status code = %v, want %v", w.Code, http.StatusOK)
	}

	var status model.HealthStatus
	if err := json.NewDecoder(w.Body).Decode(&status); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if status.Status != "ok" {
		t.Errorf("Status = %v, want ok", status.Status)
	}
	if status.Version == "" {
		t.Error("Version should not be empty")
	}
	if status.Deliveries.Received != 1 || status.Deliveries.Eligible != 1 {
		t.Errorf("Deliveries = %+v, want 1 received and 1 eligible", status.Deliveries)
	}
}
