// Package notify delivers plain-text payloads to the client's display.
//
// The report core treats display as fire-and-forget: a Notifier may fail, and
// callers log the failure instead of surfacing it to the conversation.
// Channels include the terminal, Slack, Discord, and a websocket hub that
// browser clients subscribe to.
package notify

import (
	"context"
	"log/slog"

	intakeerrors "thoreinstein.com/intake/pkg/errors"
)

// Kind tells the display what a payload is.
type Kind string

const (
	KindText     Kind = "text"
	KindSummary  Kind = "summary"
	KindGuidance Kind = "guidance"
	KindIssue    Kind = "issue"
)

// Notification is one payload for the display.
type Notification struct {
	Kind      Kind   `json:"type"`
	Text      string `json:"text"`
	SessionID string `json:"session_id,omitempty"`
}

// Notifier delivers notifications to a display channel.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// Func adapts a function to the Notifier interface.
type Func func(ctx context.Context, n Notification) error

// Notify calls f.
func (f Func) Notify(ctx context.Context, n Notification) error {
	return f(ctx, n)
}

// Nop discards every notification.
type Nop struct{}

// Notify does nothing.
func (Nop) Notify(context.Context, Notification) error { return nil }

// Log writes notifications to a structured logger.
type Log struct {
	Logger *slog.Logger
}

// Notify logs n at info level.
func (l Log) Notify(ctx context.Context, n Notification) error {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "display notification", "kind", n.Kind, "session", n.SessionID, "text", n.Text)
	return nil
}

// Multi fans a notification out to every channel. All channels are tried;
// their errors are combined.
type Multi []Notifier

// Notify delivers n to each channel in order.
func (m Multi) Notify(ctx context.Context, n Notification) error {
	var combined error
	for _, notifier := range m {
		if err := notifier.Notify(ctx, n); err != nil {
			combined = intakeerrors.CombineErrors(combined, err)
		}
	}
	return combined
}
