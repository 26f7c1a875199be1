package notify

import (
	"context"
	"time"

	"github.com/slack-go/slack"

	intakeerrors "thoreinstein.com/intake/pkg/errors"
)

// maxRateLimitRetries bounds retries after chat rate limiting.
const maxRateLimitRetries = 2

// slackPoster is the subset of the Slack API client Slack uses.
type slackPoster interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

// Slack posts notifications to a Slack channel.
type Slack struct {
	client  slackPoster
	channel string
}

// NewSlack creates a Slack channel using a bot token (xoxb-...).
func NewSlack(botToken, channel string) (*Slack, error) {
	if botToken == "" {
		return nil, intakeerrors.NewConfigError("notify.slack.bot_token", "slack bot token is required")
	}
	if channel == "" {
		return nil, intakeerrors.NewConfigError("notify.slack.channel", "slack channel is required")
	}
	return &Slack{client: slack.New(botToken), channel: channel}, nil
}

// Notify posts n as one message. Rate-limited posts are retried after the
// delay Slack asks for.
func (s *Slack) Notify(ctx context.Context, n Notification) error {
	text := slackText(n)

	var err error
	for attempt := 0; attempt <= maxRateLimitRetries; attempt++ {
		_, _, err = s.client.PostMessageContext(ctx, s.channel, slack.MsgOptionText(text, false))
		if err == nil {
			return nil
		}

		var rle *slack.RateLimitedError
		if !intakeerrors.As(err, &rle) || attempt == maxRateLimitRetries {
			break
		}

		wait := rle.RetryAfter
		if wait <= 0 {
			wait = time.Second
		}
		select {
		case <-ctx.Done():
			return intakeerrors.NewNotifyError("slack", "post message", ctx.Err())
		case <-time.After(wait):
		}
	}

	return intakeerrors.NewNotifyError("slack", "post message", err)
}

func slackText(n Notification) string {
	switch n.Kind {
	case KindSummary:
		return "*Summary*\n" + n.Text
	case KindGuidance:
		return "*Screen recording*\n" + n.Text
	case KindIssue:
		return "*Ticket filed:* " + n.Text
	default:
		return n.Text
	}
}
