package github

import (
	"context"

	"github.com/google/go-github/v75/github"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"

	"github.com/slipway-dev/slipway/pkg/domain/interfaces"
	"github.com/slipway-dev/slipway/pkg/domain/model"
	"github.com/slipway-dev/slipway/pkg/utils/async"
)

// EventProcessor turns release webhook events into pipeline runs.
type EventProcessor struct {
	workflow   *model.Workflow
	pipelineUC interfaces.PipelineUseCase
}

// NewEventProcessor creates a new GitHub event processor
func NewEventProcessor(workflow *model.Workflow, pipelineUC interfaces.PipelineUseCase) *EventProcessor {
	return &EventProcessor{
		workflow:   workflow,
		pipelineUC: pipelineUC,
	}
}

// HandleEvent filters a webhook event against the workflow trigger and
// dispatches the pipeline for matching release events.
func (p *EventProcessor) HandleEvent(ctx context.Context, eventType string, payload any) error {
	logger := ctxlog.From(ctx)

	switch eventType {
	case "release":
		return p.handleReleaseEvent(ctx, payload)
	default:
		logger.Info("Ignoring unsupported event type", "event_type", eventType)
		return nil
	}
}

func (p *EventProcessor) handleReleaseEvent(ctx context.Context, payload any) error {
	logger := ctxlog.From(ctx)

	releaseEvent, ok := payload.(*github.ReleaseEvent)
	if !ok {
		logger.Warn("Invalid release event payload")
		return nil
	}

	action := releaseEvent.GetAction()
	if !p.workflow.Trigger.Matches("release", action) {
		logger.Info("Ignoring release event, action not in trigger",
			"action", action,
		)
		return nil
	}

	info, err := extractReleaseInfo(releaseEvent)
	if err != nil {
		logger.Error("Failed to extract release info", "error", err)
		return err
	}

	logger.Info("Dispatching release pipeline",
		"owner", info.Owner,
		"repo", info.Repo,
		"tag", info.TagName,
		"action", info.Action,
	)

	// Webhook delivery must return quickly; the pipeline runs in the
	// background with its own context.
	async.Dispatch(ctx, func(ctx context.Context) error {
		result, err := p.pipelineUC.Run(ctx, *info)
		if err != nil {
			return err
		}
		ctxlog.From(ctx).Info("Pipeline run finished",
			"run_id", result.RunID,
			"tag", result.Release.TagName,
			"succeeded", result.Succeeded(),
		)
		return nil
	})

	return nil
}

// extractReleaseInfo extracts release information from a GitHub release event
func extractReleaseInfo(event *github.ReleaseEvent) (*model.ReleaseInfo, error) {
	if event.GetRepo() == nil {
		return nil, goerr.New("missing repository information in release event")
	}
	if event.GetRelease() == nil {
		return nil, goerr.New("missing release information in release event")
	}

	owner := event.GetRepo().GetOwner().GetLogin()
	repo := event.GetRepo().GetName()
	tag := event.GetRelease().GetTagName()

	if owner == "" || repo == "" || tag == "" {
		return nil, goerr.New("missing required release event fields",
			goerr.V("owner", owner), goerr.V("repo", repo), goerr.V("tag", tag))
	}

	return &model.ReleaseInfo{
		Owner:     owner,
		Repo:      repo,
		TagName:   tag,
		CommitSHA: event.GetRelease().GetTargetCommitish(),
		Action:    event.GetAction(),
	}, nil
}
