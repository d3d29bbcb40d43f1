package interfaces

import (
	"context"

	"github.com/slipway-dev/slipway/pkg/domain/model"
)

// PipelineUseCase runs the release pipeline for a release.
type PipelineUseCase interface {
	Run(ctx context.Context, release model.ReleaseInfo) (*model.PipelineResult, error)
}

// WebhookUseCase processes incoming webhook events and tracks their
// run-trigger decisions.
type WebhookUseCase interface {
	ProcessEvent(ctx context.Context, event *model.WebhookEvent) error
	Stats() model.WebhookStats
}
