package report

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	intakeerrors "thoreinstein.com/intake/pkg/errors"
	"thoreinstein.com/intake/pkg/notify"
	"thoreinstein.com/intake/pkg/tracker"
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notify.Notification
	err  error
}

func (r *recordingNotifier) Notify(_ context.Context, n notify.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return r.err
}

func (r *recordingNotifier) notifications() []notify.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notify.Notification(nil), r.sent...)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestSession(t *testing.T, opts ...Option) (*Session, *tracker.MemoryTracker) {
	t.Helper()
	trk := tracker.NewMemoryTracker("https://tracker.test/issues")
	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	s := NewSession(trk, opts...)
	t.Cleanup(s.Close)
	return s, trk
}

func mustSet(t *testing.T, s *Session, name, value string) {
	t.Helper()
	if _, err := s.SetFieldByName(name, value); err != nil {
		t.Fatalf("SetFieldByName(%q, %q) error = %v", name, value, err)
	}
}

func fillRequired(t *testing.T, s *Session) {
	t.Helper()
	mustSet(t, s, "description", "Checkout button does nothing on mobile")
	mustSet(t, s, "expected_behaviour", "Order is placed")
	mustSet(t, s, "steps_to_reproduce", "1. Add item\n2. Tap checkout")
	mustSet(t, s, "priority", "High")
	mustSet(t, s, "issue_type", "bug")
}

func summarizeAndConfirm(t *testing.T, s *Session) Summary {
	t.Helper()
	summary, err := s.RequestSummary()
	if err != nil {
		t.Fatalf("RequestSummary() error = %v", err)
	}
	if _, err := s.Confirm(); err != nil {
		t.Fatalf("Confirm() error = %v", err)
	}
	return summary
}

func TestNewSession_StartsCollecting(t *testing.T) {
	s, _ := newTestSession(t)

	status := s.Status()
	if status.Status != StatusCollecting {
		t.Errorf("Status = %q, want collecting", status.Status)
	}
	if len(status.Filled) != 0 {
		t.Errorf("Filled = %v, want empty", status.Filled)
	}
	if len(status.Missing) != 5 {
		t.Errorf("Missing = %v, want 5 required fields", status.Missing)
	}
	if s.ID() == "" {
		t.Error("ID() should not be empty")
	}
}

func TestSession_LastWriteWins(t *testing.T) {
	s, _ := newTestSession(t)
	fillRequired(t, s)

	mustSet(t, s, "priority", "low")
	mustSet(t, s, "priority", "URGENT")
	mustSet(t, s, "description", "Payment page freezes")

	status := s.Status()
	if got := status.Values[FieldPriority]; got != "Urgent" {
		t.Errorf("priority = %q, want Urgent", got)
	}

	summary, err := s.RequestSummary()
	if err != nil {
		t.Fatalf("RequestSummary() error = %v", err)
	}
	if !strings.Contains(summary.Body, "**Priority:** Urgent") {
		t.Errorf("summary should carry the last priority:\n%s", summary.Body)
	}
	if summary.Title != "Payment page freezes" {
		t.Errorf("Title = %q, want last description", summary.Title)
	}
}

func TestSession_SetFieldRejectsInvalidPriority(t *testing.T) {
	s, _ := newTestSession(t)

	result, err := s.SetFieldByName("priority", "critical")
	if err == nil {
		t.Fatal("expected error for priority 'critical'")
	}
	if result.Accepted {
		t.Error("rejected value reported as accepted")
	}

	msg := intakeerrors.FormatToolError(err)
	for _, p := range []string{"Urgent", "High", "Medium", "Low"} {
		if !strings.Contains(msg, p) {
			t.Errorf("error message %q does not list %q", msg, p)
		}
	}
	if got := s.Snapshot().Priority; got != "" {
		t.Errorf("Priority = %q, rejected value must not be stored", got)
	}
}

func TestSession_SetFieldUnknownName(t *testing.T) {
	s, _ := newTestSession(t)

	_, err := s.SetFieldByName("severity", "High")
	if !intakeerrors.IsValidationError(err) {
		t.Fatalf("error = %v, want ValidationError", err)
	}
	if !strings.Contains(intakeerrors.FormatToolError(err), "steps_to_reproduce") {
		t.Errorf("message should list valid fields: %s", intakeerrors.FormatToolError(err))
	}
}

func TestSession_SetFieldWarning(t *testing.T) {
	s, _ := newTestSession(t)

	result, err := s.SetFieldByName("loom_link", "loom.com/share/abc")
	if err != nil {
		t.Fatalf("SetFieldByName() error = %v", err)
	}
	if !result.Accepted || result.Warning == "" {
		t.Errorf("result = %+v, want accepted with warning", result)
	}
}

func TestSession_RequestSummaryIncomplete(t *testing.T) {
	s, _ := newTestSession(t)
	mustSet(t, s, "description", "Checkout broken")
	mustSet(t, s, "priority", "High")
	mustSet(t, s, "issue_type", "bug")

	_, err := s.RequestSummary()

	var incomplete *intakeerrors.IncompleteRecordError
	if !intakeerrors.As(err, &incomplete) {
		t.Fatalf("error = %v, want IncompleteRecordError", err)
	}
	want := []string{"expected_behaviour", "steps_to_reproduce"}
	if len(incomplete.Missing) != len(want) {
		t.Fatalf("Missing = %v, want %v", incomplete.Missing, want)
	}
	for i := range want {
		if incomplete.Missing[i] != want[i] {
			t.Errorf("Missing[%d] = %q, want %q", i, incomplete.Missing[i], want[i])
		}
	}
	if got := s.Status().Status; got != StatusCollecting {
		t.Errorf("Status = %q, want collecting", got)
	}
}

func TestSession_ConfirmRequiresFreshSummary(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, s *Session)
	}{
		{
			name:  "no summary",
			setup: fillRequired,
		},
		{
			name: "edit after summary",
			setup: func(t *testing.T, s *Session) {
				fillRequired(t, s)
				if _, err := s.RequestSummary(); err != nil {
					t.Fatal(err)
				}
				mustSet(t, s, "browser", "Firefox")
			},
		},
		{
			name: "already confirmed",
			setup: func(t *testing.T, s *Session) {
				fillRequired(t, s)
				summarizeAndConfirm(t, s)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestSession(t)
			tt.setup(t, s)

			if _, err := s.Confirm(); !intakeerrors.IsInvalidTransition(err) {
				t.Errorf("Confirm() error = %v, want InvalidTransitionError", err)
			}
		})
	}
}

func TestSession_EditAfterConfirmBlocksSubmit(t *testing.T) {
	s, trk := newTestSession(t)
	fillRequired(t, s)
	summarizeAndConfirm(t, s)

	result, err := s.RequestCorrection(FieldPriority, "Urgent")
	if err != nil {
		t.Fatalf("RequestCorrection() error = %v", err)
	}
	if result.Status != StatusCollecting {
		t.Errorf("Status after edit = %q, want collecting", result.Status)
	}

	if _, err := s.Submit(context.Background()); !intakeerrors.IsInvalidTransition(err) {
		t.Fatalf("Submit() error = %v, want InvalidTransitionError", err)
	}
	if trk.CreateCalls() != 0 {
		t.Errorf("CreateCalls() = %d, stale confirmation must not reach the tracker", trk.CreateCalls())
	}

	summary, err := s.RequestSummary()
	if err != nil {
		t.Fatalf("RequestSummary() error = %v", err)
	}
	if !strings.Contains(summary.Body, "**Priority:** Urgent") {
		t.Errorf("re-rendered summary should carry the correction:\n%s", summary.Body)
	}
	if _, err := s.Confirm(); err != nil {
		t.Fatalf("Confirm() error = %v", err)
	}
	if _, err := s.Submit(context.Background()); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if got := trk.Issues()[0].Labels[0]; got != "priority:urgent" {
		t.Errorf("filed label = %q, want priority:urgent", got)
	}
}

func TestSession_RequiredFieldsAndLoomScenario(t *testing.T) {
	notifier := &recordingNotifier{}
	s, trk := newTestSession(t, WithNotifier(notifier))
	fillRequired(t, s)
	mustSet(t, s, "loom_link", "https://loom.com/share/abc")

	summary, err := s.RequestSummary()
	if err != nil {
		t.Fatalf("RequestSummary() error = %v", err)
	}

	values := []string{
		"Bug",
		"High",
		"Checkout button does nothing on mobile",
		"Order is placed",
		"1. Add item\n2. Tap checkout",
		"https://loom.com/share/abc",
	}
	last := -1
	for _, v := range values {
		idx := strings.Index(summary.Body, v)
		if idx < 0 {
			t.Fatalf("summary missing %q:\n%s", v, summary.Body)
		}
		if idx < last {
			t.Errorf("%q out of order in summary:\n%s", v, summary.Body)
		}
		last = idx
	}

	if _, err := s.Confirm(); err != nil {
		t.Fatalf("Confirm() error = %v", err)
	}

	url, err := s.Submit(context.Background())
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if url != "https://tracker.test/issues/1" {
		t.Errorf("Submit() = %q, want https://tracker.test/issues/1", url)
	}
	if got := s.Status(); got.Status != StatusSubmitted || got.IssueURL != url {
		t.Errorf("Status() = %+v, want submitted with %s", got, url)
	}

	again, err := s.Submit(context.Background())
	if err != nil {
		t.Fatalf("second Submit() error = %v", err)
	}
	if again != url {
		t.Errorf("second Submit() = %q, want %q", again, url)
	}
	if trk.CreateCalls() != 1 {
		t.Errorf("CreateCalls() = %d, want 1", trk.CreateCalls())
	}

	sent := notifier.notifications()
	if len(sent) != 1 || sent[0].Kind != notify.KindIssue || sent[0].Text != url {
		t.Errorf("notifications = %+v, want one issue notification", sent)
	}
}

func TestSession_FrozenAfterSubmit(t *testing.T) {
	s, _ := newTestSession(t)
	fillRequired(t, s)
	filed := summarizeAndConfirm(t, s)
	if _, err := s.Submit(context.Background()); err != nil {
		t.Fatal(err)
	}

	if _, err := s.SetFieldByName("browser", "Chrome"); !intakeerrors.IsStaleMutation(err) {
		t.Errorf("SetField() error = %v, want StaleMutationError", err)
	}

	summary, err := s.RequestSummary()
	if err != nil {
		t.Fatalf("RequestSummary() error = %v", err)
	}
	if summary != filed {
		t.Error("RequestSummary() after submit should return the filed summary")
	}
	if got := s.Status().Status; got != StatusSubmitted {
		t.Errorf("Status = %q, want submitted", got)
	}
}

func TestSession_StatusTruncatesValues(t *testing.T) {
	s, _ := newTestSession(t)
	long := strings.Repeat("x", 150)
	mustSet(t, s, "description", long)

	got := s.Status().Values[FieldDescription]
	if got != strings.Repeat("x", 100)+"..." {
		t.Errorf("Values[description] length = %d, want 103", len(got))
	}
	if s.Snapshot().Description != long {
		t.Error("stored value must not be truncated")
	}
}

func TestStatusReport_String(t *testing.T) {
	s, _ := newTestSession(t)
	mustSet(t, s, "description", "Checkout broken")

	text := s.Status().String()
	if !strings.Contains(text, "  - description: Checkout broken") {
		t.Errorf("String() missing collected value:\n%s", text)
	}
	if !strings.Contains(text, "Still needed (required): expected_behaviour, steps_to_reproduce, priority, issue_type") {
		t.Errorf("String() missing required list:\n%s", text)
	}

	fillRequired(t, s)
	if text := s.Status().String(); !strings.Contains(text, "All required fields collected") {
		t.Errorf("String() for complete record:\n%s", text)
	}
}

func TestSession_SendTextAndGuidance(t *testing.T) {
	notifier := &recordingNotifier{err: intakeerrors.New("display offline")}
	s, _ := newTestSession(t, WithNotifier(notifier), WithGuidanceURL("https://example.com/loom-help"))

	s.SendText(context.Background(), "Thanks, I've noted that.")

	text, err := s.SendGuidance(context.Background())
	if err != nil {
		t.Fatalf("SendGuidance() error = %v", err)
	}
	if !strings.Contains(text, "https://example.com/loom-help") {
		t.Errorf("guidance text = %q", text)
	}

	sent := notifier.notifications()
	if len(sent) != 2 {
		t.Fatalf("sent %d notifications, want 2", len(sent))
	}
	if sent[0].Kind != notify.KindText || sent[1].Kind != notify.KindGuidance {
		t.Errorf("kinds = %s, %s", sent[0].Kind, sent[1].Kind)
	}
	if sent[0].SessionID != s.ID() {
		t.Errorf("SessionID = %q, want %q", sent[0].SessionID, s.ID())
	}
}

func TestSession_SendGuidanceUnconfigured(t *testing.T) {
	s, _ := newTestSession(t)
	if _, err := s.SendGuidance(context.Background()); !intakeerrors.IsConfigError(err) {
		t.Errorf("SendGuidance() error = %v, want ConfigError", err)
	}
}

func TestSession_Close(t *testing.T) {
	s, _ := newTestSession(t)
	mustSet(t, s, "description", "Checkout broken")
	s.Close()
	s.Close()

	if _, err := s.SetFieldByName("priority", "High"); !intakeerrors.IsInvalidTransition(err) {
		t.Errorf("SetField() after Close error = %v, want InvalidTransitionError", err)
	}
	if _, err := s.RequestSummary(); !intakeerrors.IsInvalidTransition(err) {
		t.Errorf("RequestSummary() after Close error = %v, want InvalidTransitionError", err)
	}
	if got := s.Snapshot().Description; got != "" {
		t.Errorf("record not discarded: %q", got)
	}
}

func TestSession_ConcurrentSetField(t *testing.T) {
	s, _ := newTestSession(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.SetFieldByName("browser", "Firefox")
			_ = s.Status()
		}()
	}
	wg.Wait()

	if got := s.Snapshot().Browser; got != "Firefox" {
		t.Errorf("Browser = %q, want Firefox", got)
	}
}
