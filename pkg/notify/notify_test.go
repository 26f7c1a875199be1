package notify

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/gorilla/websocket"
	"github.com/slack-go/slack"

	intakeerrors "thoreinstein.com/intake/pkg/errors"
)

func TestMulti_DeliversToAllAndCombinesErrors(t *testing.T) {
	var got []string
	record := func(name string, err error) Notifier {
		return Func(func(_ context.Context, n Notification) error {
			got = append(got, name+":"+n.Text)
			return err
		})
	}

	m := Multi{
		record("a", nil),
		record("b", errors.New("b failed")),
		record("c", errors.New("c failed")),
	}

	err := m.Notify(context.Background(), Notification{Kind: KindText, Text: "hi"})
	if err == nil {
		t.Fatal("expected combined error")
	}
	if !strings.Contains(err.Error(), "b failed") {
		t.Errorf("error = %v, want first failure", err)
	}
	if len(got) != 3 {
		t.Errorf("delivered to %v, want all three channels", got)
	}
}

func TestLog_Notify(t *testing.T) {
	var buf bytes.Buffer
	l := Log{Logger: slog.New(slog.NewTextHandler(&buf, nil))}

	if err := l.Notify(context.Background(), Notification{Kind: KindIssue, Text: "https://x/1", SessionID: "s1"}); err != nil {
		t.Fatalf("Notify() error = %v", err)
	}
	out := buf.String()
	for _, want := range []string{"kind=issue", "session=s1", "https://x/1"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output %q missing %q", out, want)
		}
	}
}

func TestWriter_Notify(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	if err := w.Notify(context.Background(), Notification{Kind: KindSummary, Text: "Title: Login fails"}); err != nil {
		t.Fatalf("Notify() error = %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Summary") || !strings.Contains(out, "Title: Login fails") {
		t.Errorf("output = %q", out)
	}
}

type mockSlack struct {
	mu       sync.Mutex
	channels []string
	errs     []error
}

func (m *mockSlack) PostMessageContext(_ context.Context, channelID string, _ ...slack.MsgOption) (string, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.channels = append(m.channels, channelID)
	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		return "", "", err
	}
	return channelID, "1700000000.000100", nil
}

func TestSlack_Notify(t *testing.T) {
	tests := []struct {
		name      string
		errs      []error
		wantErr   bool
		wantCalls int
	}{
		{name: "success", wantCalls: 1},
		{
			name:      "rate limited then success",
			errs:      []error{&slack.RateLimitedError{RetryAfter: time.Millisecond}},
			wantCalls: 2,
		},
		{
			name:      "permanent failure",
			errs:      []error{errors.New("channel_not_found")},
			wantErr:   true,
			wantCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &mockSlack{errs: tt.errs}
			s := &Slack{client: client, channel: "C123"}

			err := s.Notify(context.Background(), Notification{Kind: KindText, Text: "hello"})
			if (err != nil) != tt.wantErr {
				t.Fatalf("Notify() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				var notifyErr *intakeerrors.NotifyError
				if !errors.As(err, &notifyErr) || notifyErr.Channel != "slack" {
					t.Errorf("error = %v, want slack NotifyError", err)
				}
			}
			if len(client.channels) != tt.wantCalls {
				t.Errorf("calls = %d, want %d", len(client.channels), tt.wantCalls)
			}
			if client.channels[0] != "C123" {
				t.Errorf("channel = %q, want C123", client.channels[0])
			}
		})
	}
}

func TestNewSlack_RequiresConfig(t *testing.T) {
	if _, err := NewSlack("", "C1"); !intakeerrors.IsConfigError(err) {
		t.Errorf("NewSlack() without token error = %v, want ConfigError", err)
	}
	if _, err := NewSlack("xoxb-test", ""); !intakeerrors.IsConfigError(err) {
		t.Errorf("NewSlack() without channel error = %v, want ConfigError", err)
	}
}

type mockDiscord struct {
	sent []string
	errs []error
}

func (m *mockDiscord) ChannelMessageSend(_, content string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	m.sent = append(m.sent, content)
	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		return nil, err
	}
	return &discordgo.Message{ID: "1", Content: content}, nil
}

func TestDiscord_Notify(t *testing.T) {
	rateLimited := &discordgo.RESTError{Response: &http.Response{StatusCode: http.StatusTooManyRequests}}
	sess := &mockDiscord{errs: []error{rateLimited}}
	d := &Discord{session: sess, channel: "42", backoff: time.Millisecond}

	if err := d.Notify(context.Background(), Notification{Kind: KindIssue, Text: "https://x/1"}); err != nil {
		t.Fatalf("Notify() error = %v", err)
	}
	if len(sess.sent) != 2 {
		t.Fatalf("sent %d times, want 2", len(sess.sent))
	}
	if sess.sent[1] != "**Ticket filed:** https://x/1" {
		t.Errorf("content = %q", sess.sent[1])
	}
}

func TestDiscord_TruncatesLongMessages(t *testing.T) {
	sess := &mockDiscord{}
	d := &Discord{session: sess, channel: "42", backoff: time.Millisecond}

	if err := d.Notify(context.Background(), Notification{Kind: KindText, Text: strings.Repeat("a", 2500)}); err != nil {
		t.Fatalf("Notify() error = %v", err)
	}
	if n := len([]rune(sess.sent[0])); n != discordMessageLimit {
		t.Errorf("message length = %d, want %d", n, discordMessageLimit)
	}
}

func dialHub(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + query
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForClients(t *testing.T, h *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.Clients() != n {
		if time.Now().After(deadline) {
			t.Fatalf("Clients() = %d, want %d", h.Clients(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHub_BroadcastsToSubscribers(t *testing.T) {
	hub := NewHub(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	srv := httptest.NewServer(hub)
	defer srv.Close()
	defer hub.Close()

	conn := dialHub(t, srv, "?session=s1")
	waitForClients(t, hub, 1)

	ctx := context.Background()
	if err := hub.Notify(ctx, Notification{Kind: KindText, Text: "other", SessionID: "s2"}); err != nil {
		t.Fatalf("Notify() error = %v", err)
	}
	if err := hub.Notify(ctx, Notification{Kind: KindSummary, Text: "mine", SessionID: "s1"}); err != nil {
		t.Fatalf("Notify() error = %v", err)
	}

	if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatal(err)
	}
	var got Notification
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if got.Text != "mine" || got.Kind != KindSummary || got.SessionID != "s1" {
		t.Errorf("received %+v, want the s1 summary", got)
	}
}

func TestHub_UnregistersOnDisconnect(t *testing.T) {
	hub := NewHub(nil)
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn := dialHub(t, srv, "")
	waitForClients(t, hub, 1)

	conn.Close()
	waitForClients(t, hub, 0)

	if err := hub.Notify(context.Background(), Notification{Kind: KindText, Text: "nobody"}); err != nil {
		t.Errorf("Notify() with no clients error = %v", err)
	}
}
