package notify

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"

	intakeerrors "thoreinstein.com/intake/pkg/errors"
)

// discordMessageLimit is Discord's maximum message length in characters.
const discordMessageLimit = 2000

// discordSender is the subset of discordgo.Session Discord uses.
type discordSender interface {
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Discord posts notifications to a Discord channel through the REST API.
// No gateway connection is opened.
type Discord struct {
	session discordSender
	channel string
	backoff time.Duration
}

// NewDiscord creates a Discord channel using a bot token.
func NewDiscord(botToken, channel string) (*Discord, error) {
	if botToken == "" {
		return nil, intakeerrors.NewConfigError("notify.discord.bot_token", "discord bot token is required")
	}
	if channel == "" {
		return nil, intakeerrors.NewConfigError("notify.discord.channel", "discord channel is required")
	}

	dg, err := discordgo.New("Bot " + botToken)
	if err != nil {
		return nil, intakeerrors.NewNotifyError("discord", "create session", err)
	}
	return &Discord{session: dg, channel: channel, backoff: time.Second}, nil
}

// Notify sends n as one message, truncated to Discord's length limit.
func (d *Discord) Notify(ctx context.Context, n Notification) error {
	content := truncateRunes(discordText(n), discordMessageLimit)

	var err error
	for attempt := 0; attempt <= maxRateLimitRetries; attempt++ {
		_, err = d.session.ChannelMessageSend(d.channel, content, discordgo.WithContext(ctx))
		if err == nil {
			return nil
		}

		var restErr *discordgo.RESTError
		if !intakeerrors.As(err, &restErr) || restErr.Response == nil ||
			restErr.Response.StatusCode != http.StatusTooManyRequests || attempt == maxRateLimitRetries {
			break
		}

		select {
		case <-ctx.Done():
			return intakeerrors.NewNotifyError("discord", "send message", ctx.Err())
		case <-time.After(d.backoff << attempt):
		}
	}

	return intakeerrors.NewNotifyError("discord", "send message", err)
}

func discordText(n Notification) string {
	switch n.Kind {
	case KindSummary:
		return "**Summary**\n" + n.Text
	case KindGuidance:
		return "**Screen recording**\n" + n.Text
	case KindIssue:
		return "**Ticket filed:** " + n.Text
	default:
		return n.Text
	}
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
