package notify

import (
	"context"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
	"github.com/slack-go/slack"

	"github.com/slipway-dev/slipway/pkg/domain/interfaces"
	"github.com/slipway-dev/slipway/pkg/domain/model"
)

type slackNotifier struct {
	client *slack.Client
}

// NewSlack creates a Notifier posting run summaries via the Slack API.
func NewSlack(token string) interfaces.Notifier {
	return &slackNotifier{client: slack.New(token)}
}

// NotifyResult posts a pipeline run summary to the channel.
func (n *slackNotifier) NotifyResult(ctx context.Context, channel string, result *model.PipelineResult) error {
	var color, headline string
	if result.Succeeded() {
		color = "good"
		headline = fmt.Sprintf("Release %s published", result.Release.TagName)
	} else {
		color = "danger"
		headline = fmt.Sprintf("Release %s failed", result.Release.TagName)
	}

	var fields []slack.AttachmentField
	for _, leg := range result.Legs {
		fields = append(fields, slack.AttachmentField{
			Title: leg.Target.Triple,
			Value: string(leg.Status),
			Short: true,
		})
	}
	if result.Brew.Status == model.BrewBumped {
		fields = append(fields, slack.AttachmentField{
			Title: "homebrew",
			Value: result.Brew.PRURL,
		})
	}

	attachment := slack.Attachment{
		Color:  color,
		Title:  headline,
		Text:   fmt.Sprintf("%s/%s · %d assets", result.Release.Owner, result.Release.Repo, len(result.Published)),
		Fields: fields,
	}

	_, _, err := n.client.PostMessageContext(ctx, channel,
		slack.MsgOptionAttachments(attachment),
	)
	if err != nil {
		return goerr.Wrap(err, "failed to post Slack message", goerr.V("channel", channel))
	}
	return nil
}
