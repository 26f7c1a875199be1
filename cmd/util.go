package cmd

import (
	"context"
	"io"
	"log/slog"
	"os"

	"thoreinstein.com/intake/pkg/config"
	intakeerrors "thoreinstein.com/intake/pkg/errors"
	"thoreinstein.com/intake/pkg/github"
	"thoreinstein.com/intake/pkg/jira"
	"thoreinstein.com/intake/pkg/notify"
	"thoreinstein.com/intake/pkg/report"
	"thoreinstein.com/intake/pkg/tracker"
)

// setupLogging installs the default logger. Logs always go to stderr since
// stdout may carry the tool protocol.
func setupLogging(verbose bool) {
	slog.SetDefault(newLogger(os.Stderr, verbose))
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// newTracker builds the configured tracker. dryRun always selects the
// in-memory tracker. The OAuth device flow is offered on prompt when it is
// non-nil.
func newTracker(ctx context.Context, cfg *config.Config, dryRun bool, prompt io.Writer, logger *slog.Logger) (tracker.Tracker, error) {
	kind := cfg.Tracker.Kind
	if dryRun {
		kind = tracker.MemoryName
	}

	switch kind {
	case github.TrackerName, "":
		client, err := github.NewTracker(ctx, &cfg.GitHub, github.NewTokenCache(cfg.GitHub.BaseURL), prompt, verbose, github.WithAPILogger(logger))
		if err != nil {
			return nil, err
		}
		return client, nil
	case jira.TrackerName:
		client, err := jira.NewAPIClient(&cfg.Jira, verbose, jira.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		return client, nil
	case tracker.MemoryName:
		return tracker.NewMemoryTracker(""), nil
	default:
		return nil, intakeerrors.NewConfigError("tracker.kind", "unknown tracker "+kind)
	}
}

// newNotifier fans out to every configured display channel plus extra.
func newNotifier(cfg *config.NotifyConfig, logger *slog.Logger, extra ...notify.Notifier) (notify.Notifier, error) {
	var channels notify.Multi

	if cfg.Log {
		channels = append(channels, notify.Log{Logger: logger})
	}

	if cfg.Slack.Enabled() {
		slack, err := notify.NewSlack(cfg.Slack.BotToken, cfg.Slack.Channel)
		if err != nil {
			return nil, err
		}
		channels = append(channels, slack)
	}

	if cfg.Discord.Enabled() {
		discord, err := notify.NewDiscord(cfg.Discord.BotToken, cfg.Discord.Channel)
		if err != nil {
			return nil, err
		}
		channels = append(channels, discord)
	}

	channels = append(channels, extra...)
	return channels, nil
}

// sessionOptions maps configuration onto report session options.
func sessionOptions(cfg *config.Config, logger *slog.Logger, notifier notify.Notifier) []report.Option {
	return []report.Option{
		report.WithLogger(logger),
		report.WithNotifier(notifier),
		report.WithGuidanceURL(cfg.Intake.LoomGuidanceURL),
		report.WithTitleMaxLength(cfg.Intake.TitleMaxLength),
	}
}
