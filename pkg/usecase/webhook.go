package usecase

import (
	"context"
	"sync/atomic"

	"github.com/m-mizutani/ctxlog"

	"github.com/slipway-dev/slipway/pkg/domain/model"
)

// webhookUseCase is the audit path every GitHub delivery passes
// through. It decides and records whether a delivery is eligible to
// start a pipeline run; the run itself is dispatched by the event
// processor.
type webhookUseCase struct {
	received atomic.Int64
	eligible atomic.Int64
	ignored  atomic.Int64
}

// NewWebhook creates a new instance of WebhookUseCase
func NewWebhook() *webhookUseCase {
	return &webhookUseCase{}
}

// ProcessEvent records one delivery and its run-trigger decision. It
// never rejects a delivery: GitHub retries failed deliveries, and a
// retried ineligible event would still be ineligible.
func (uc *webhookUseCase) ProcessEvent(ctx context.Context, event *model.WebhookEvent) error {
	logger := ctxlog.From(ctx)
	uc.received.Add(1)

	if !event.IsSupportedEvent() {
		uc.ignored.Add(1)
		logger.Info("Ignoring webhook delivery",
			"id", event.ID,
			"type", event.Type,
			"action", event.Action,
			"reason", ignoreReason(event),
		)
		return nil
	}

	uc.eligible.Add(1)
	logger.Info("Webhook delivery eligible for pipeline run",
		"id", event.ID,
		"action", event.Action,
		"repository", event.Repository,
		"sender", event.Sender,
	)
	return nil
}

// Stats reports delivery counts since startup.
func (uc *webhookUseCase) Stats() model.WebhookStats {
	return model.WebhookStats{
		Received: uc.received.Load(),
		Eligible: uc.eligible.Load(),
		Ignored:  uc.ignored.Load(),
	}
}

// ignoreReason names why a delivery cannot start a run.
func ignoreReason(event *model.WebhookEvent) string {
	if event.Type != model.EventTypeRelease {
		return "not a release event"
	}
	return "release action " + event.Action + " does not trigger a run"
}
