// Package notify posts billing-readiness transitions to Slack. Delivery is
// best-effort: failures are retried with backoff, then logged and dropped.
package notify

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/slack-go/slack"

	"github.com/hatchpoint/clienthub/internal/billing"
	"github.com/hatchpoint/clienthub/internal/model"
	"github.com/hatchpoint/clienthub/internal/retry"
)

// PostAPI abstracts the Slack API client for testing.
type PostAPI interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

// Notifier posts readiness notifications to a single channel.
type Notifier struct {
	api     PostAPI
	channel string
	retry   retry.Config
	logger  zerolog.Logger
}

// New creates a Notifier for the given bot token and channel.
func New(botToken, channel string, logger zerolog.Logger) *Notifier {
	return &Notifier{
		api:     slack.New(botToken),
		channel: channel,
		retry:   retry.DefaultConfig(),
		logger:  logger.With().Str("component", "notify").Logger(),
	}
}

// NewWithAPI creates a Notifier with an injected API client (tests).
func NewWithAPI(api PostAPI, channel string, logger zerolog.Logger) *Notifier {
	return &Notifier{
		api:     api,
		channel: channel,
		retry:   retry.Config{MaxAttempts: 1},
		logger:  logger.With().Str("component", "notify").Logger(),
	}
}

// ProjectReady announces that a project's billing gate opened. Errors are
// swallowed after retries; a failed notification must never block billing.
func (n *Notifier) ProjectReady(ctx context.Context, project *model.Project, res billing.ReadinessResult) {
	blocks := ReadyBlocks(project, res)
	err := retry.Do(ctx, n.retry, func(ctx context.Context) error {
		_, _, err := n.api.PostMessageContext(ctx, n.channel,
			slack.MsgOptionBlocks(blocks...),
			slack.MsgOptionText(fmt.Sprintf("%s is ready to invoice", project.Name), false),
		)
		return err
	})
	if err != nil {
		n.logger.Error().Err(err).Str("project", project.Slug).Msg("failed to post readiness notification")
		return
	}
	n.logger.Info().Str("project", project.Slug).Msg("posted readiness notification")
}

// ReadyBlocks builds the Block Kit message for a ready project.
func ReadyBlocks(project *model.Project, res billing.ReadinessResult) []slack.Block {
	header := slack.NewHeaderBlock(
		slack.NewTextBlockObject("plain_text", "💸 Ready to invoice", false, false),
	)

	body := fmt.Sprintf("*%s*", project.Name)
	if project.ClientName != "" {
		body += fmt.Sprintf(" · %s", project.ClientName)
	}
	body += fmt.Sprintf("\n%d deliverables cleared the billing gate.", len(res.Deliverables))

	deferred := 0
	for _, d := range res.Deliverables {
		if d.HasDeferment && !d.IsApproved {
			deferred++
		}
	}
	if deferred > 0 {
		body += fmt.Sprintf("\n_%d deferred deliverable(s) exempted._", deferred)
	}

	return []slack.Block{
		header,
		slack.NewSectionBlock(slack.NewTextBlockObject("mrkdwn", body, false, false), nil, nil),
		slack.NewContextBlock("",
			slack.NewTextBlockObject("mrkdwn", fmt.Sprintf("`%s`", project.Slug), false, false),
		),
	}
}
