package http_test

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	controller "github.com/slipway-dev/slipway/pkg/controller/http"
	"github.com/slipway-dev/slipway/pkg/usecase"
)

// mockEventHandler records the payloads it receives.
type mockEventHandler struct {
	mu     sync.Mutex
	events []string
}

func (m *mockEventHandler) HandleEvent(ctx context.Context, eventType string, payload any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, eventType)
	return nil
}

// generateSignature generates HMAC-SHA256 signature for testing
func generateSignature(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func releasePayload(action string) []byte {
	payload := map[string]interface{}{
		"action": action,
		"release": map[string]interface{}{
			"tag_name": "v0.10.0",
		},
		"repository": map[string]interface{}{
			"name":      "replibyte",
			"full_name": "acme/replibyte",
			"owner": map[string]interface{}{
				"login": "acme",
			},
		},
		"sender": map[string]interface{}{
			"login": "releasebot",
		},
	}
	body, _ := json.Marshal(payload)
	return body
}

func TestWebhookHandler_SignatureVerification(t *testing.T) {
	secret := "test-secret"
	uc := usecase.NewWebhook()
	handler := controller.NewWebhookHandler(secret, uc, nil)

	tests := []struct {
		name           string
		payload        []byte
		signature      string
		wantStatusCode int
	}{
		{
			name:           "Valid signature",
			payload:        releasePayload("published"),
			signature:      "", // Will be generated
			wantStatusCode: http.StatusOK,
		},
		{
			name:           "Invalid signature",
			payload:        releasePayload("published"),
			signature:      "sha256=invalid",
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name:           "Missing signature",
			payload:        releasePayload("published"),
			signature:      "",
			wantStatusCode: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			signature := tt.signature
			if signature == "" && tt.wantStatusCode == http.StatusOK {
				signature = generateSignature(secret, tt.payload)
			}

			req := httptest.NewRequest(http.MethodPost, "/hooks/github", bytes.NewReader(tt.payload))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("X-GitHub-Event", "release")
			req.Header.Set("X-GitHub-Delivery", "test-delivery")
			req.Header.Set("X-Hub-Signature-256", signature)

			w := httptest.NewRecorder()
			handler.Handle(w, req)

			if w.Code != tt.wantStatusCode {
				t.Errorf("Handle() status = %v, want %v", w.Code, tt.wantStatusCode)
			}
		})
	}
}

func TestWebhookHandler_ForwardsParsedEvent(t *testing.T) {
	secret := "test-secret"
	uc := usecase.NewWebhook()
	processor := &mockEventHandler{}
	handler := controller.NewWebhookHandler(secret, uc, processor)

	payload := releasePayload("published")
	signature := generateSignature(secret, payload)

	req := httptest.NewRequest(http.MethodPost, "/hooks/github", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-GitHub-Event", "release")
	req.Header.Set("X-GitHub-Delivery", "test-delivery")
	req.Header.Set("X-Hub-Signature-256", signature)

	w := httptest.NewRecorder()
	handler.Handle(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Handle() status = %v, want %v, body = %s", w.Code, http.StatusOK, w.Body.String())
	}

	var response map[string]string
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Errorf("Failed to decode response: %v", err)
	}
	if response["status"] != "success" {
		t.Errorf("Response status = %v, want success", response["status"])
	}

	if len(processor.events) != 1 || processor.events[0] != "release" {
		t.Errorf("Processor events = %v, want [release]", processor.events)
	}
}

func TestWebhookHandler_BrokenPayload(t *testing.T) {
	secret := "test-secret"
	handler := controller.NewWebhookHandler(secret, usecase.NewWebhook(), nil)

	payload := []byte("{not json")
	req := httptest.NewRequest(http.MethodPost, "/hooks/github", bytes.NewReader(payload))
	req.Header.Set("X-GitHub-Event", "release")
	req.Header.Set("X-Hub-Signature-256", generateSignature(secret, payload))

	w := httptest.NewRecorder()
	handler.Handle(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Handle() status = %v, want %v", w.Code, http.StatusBadRequest)
	}
}

func TestWebhookHandler_Integration(t *testing.T) {
	ctx := context.Background()
	secret := "integration-test-secret"
	processor := &mockEventHandler{}

	server, err := controller.NewServer(
		ctx,
		usecase.NewWebhook(),
		controller.WithAddr("localhost:0"),
		controller.WithWebhookSecret(secret),
		controller.WithEventHandler(processor),
	)
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}

	ts := httptest.NewServer(server.Handler)
	defer ts.Close()

	payload := releasePayload("created")
	signature := generateSignature(secret, payload)

	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/hooks/github", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-GitHub-Event", "release")
	req.Header.Set("X-GitHub-Delivery", "integration-test")
	req.Header.Set("X-Hub-Signature-256", signature)

	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Failed to send request: %v", err)
	}
	defer func() {
		_ = resp.Body.Close() // Error ignored in test
	}()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Status code = %v, want %v", resp.StatusCode, http.StatusOK)
	}

	if len(processor.events) != 1 {
		t.Errorf("Processor received %d events, want 1", len(processor.events))
	}
}
