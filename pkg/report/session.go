package report

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	intakeerrors "thoreinstein.com/intake/pkg/errors"
	"thoreinstein.com/intake/pkg/notify"
	"thoreinstein.com/intake/pkg/tracker"
)

// statusValueMaxLength caps values echoed back in status reports.
const statusValueMaxLength = 100

// Session owns the Record of one conversation and arbitrates every change
// to it. All methods are safe for concurrent use; the mutex is never held
// across a tracker call.
type Session struct {
	mu      sync.Mutex
	id      string
	record  Record
	summary *Summary
	closed  bool

	// Submission bookkeeping, reset only by an edit. firstAttempt bounds the
	// search for an issue filed by an attempt whose outcome was unknown.
	firstAttempt  time.Time
	lastAmbiguous bool

	tracker     tracker.Tracker
	notifier    notify.Notifier
	renderer    Renderer
	guidanceURL string
	logger      *slog.Logger
	now         func() time.Time
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger for session events.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithNotifier sets the display channel.
func WithNotifier(n notify.Notifier) Option {
	return func(s *Session) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithGuidanceURL sets the screen-recording guidance link.
func WithGuidanceURL(url string) Option {
	return func(s *Session) {
		s.guidanceURL = url
	}
}

// WithTitleMaxLength overrides the rune limit for derived titles.
func WithTitleMaxLength(n int) Option {
	return func(s *Session) {
		s.renderer.TitleMaxLength = n
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// WithID overrides the generated session ID.
func WithID(id string) Option {
	return func(s *Session) {
		if id != "" {
			s.id = id
		}
	}
}

// SetResult is the outcome of an accepted field write.
type SetResult struct {
	Field    Field
	Value    string // Normalized value as stored
	Accepted bool
	Status   Status
	Warning  string
}

// StatusReport describes what has been collected so far.
type StatusReport struct {
	SessionID string
	Status    Status
	Filled    []Field
	Missing   []Field
	Values    map[Field]string // Display copies, truncated
	IssueURL  string
}

// NewSession creates a Session with an empty Record in StatusCollecting.
// Confirmed reports are filed in trk.
func NewSession(trk tracker.Tracker, opts ...Option) *Session {
	s := &Session{
		id:       uuid.New().String(),
		record:   Record{Status: StatusCollecting},
		tracker:  trk,
		notifier: notify.Nop{},
		renderer: Renderer{TitleMaxLength: DefaultTitleMaxLength},
		logger:   slog.Default(),
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	s.logger = s.logger.With("session", s.id)
	s.logger.Debug("report session started")
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// SetField validates value and stores it as the new value of f. Later writes
// win. An edit after a summary resets the status to collecting, so the
// record must be summarized and confirmed again before it can be submitted.
// Once submission has started the record is frozen.
func (s *Session) SetField(f Field, value string) (SetResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen("SetField"); err != nil {
		return SetResult{Field: f}, err
	}

	status := s.record.Status
	if status.Frozen() {
		return SetResult{Field: f, Status: status}, intakeerrors.NewStaleMutationError(f.String(), string(status))
	}

	v, err := Validate(f, value)
	if err != nil {
		s.logger.Debug("field rejected", "field", f.String(), "error", err)
		return SetResult{Field: f, Status: status}, err
	}

	s.record.set(f, v.Value)

	switch status {
	case StatusSummarized, StatusConfirmed, StatusSubmissionFailed:
		s.logger.Info("field changed after summary, confirmation reset", "field", f.String(), "from", status)
		if s.lastAmbiguous {
			s.logger.Warn("report edited after a submission with unknown outcome; an earlier issue may exist")
		}
		s.record.Status = StatusCollecting
		s.summary = nil
		s.firstAttempt = time.Time{}
		s.lastAmbiguous = false
	}

	s.logger.Debug("field saved", "field", f.String(), "status", s.record.Status)

	return SetResult{
		Field:    f,
		Value:    v.Value,
		Accepted: true,
		Status:   s.record.Status,
		Warning:  v.Warning,
	}, nil
}

// SetFieldByName resolves a wire field name and calls SetField.
func (s *Session) SetFieldByName(name, value string) (SetResult, error) {
	f, err := ParseField(name)
	if err != nil {
		return SetResult{Status: s.currentStatus()}, err
	}
	return s.SetField(f, value)
}

// RequestCorrection changes a field after the client reviewed the summary.
// It behaves exactly like SetField: the summary must be regenerated and
// confirmed again.
func (s *Session) RequestCorrection(f Field, value string) (SetResult, error) {
	return s.SetField(f, value)
}

// Status returns what has been filled, which required fields are missing,
// and the current status. It has no side effects.
func (s *Session) Status() StatusReport {
	s.mu.Lock()
	defer s.mu.Unlock()

	values := make(map[Field]string)
	filled := s.record.Filled()
	for _, f := range filled {
		values[f] = truncate(s.record.Get(f), statusValueMaxLength)
	}

	return StatusReport{
		SessionID: s.id,
		Status:    s.record.Status,
		Filled:    filled,
		Missing:   s.record.Missing(),
		Values:    values,
		IssueURL:  s.record.IssueURL,
	}
}

// Snapshot returns a copy of the record.
func (s *Session) Snapshot() Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record
}

// RequestSummary renders the record and marks it summarized. It fails with
// an IncompleteRecordError listing the missing required fields. Calling it
// again re-renders from the current values. After submission has started it
// returns the summary that was filed and leaves the status alone.
func (s *Session) RequestSummary() (Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen("RequestSummary"); err != nil {
		return Summary{}, err
	}

	if s.record.Status.Frozen() && s.summary != nil {
		return *s.summary, nil
	}

	if missing := s.record.Missing(); len(missing) > 0 {
		return Summary{}, intakeerrors.NewIncompleteRecordError(fieldNames(missing))
	}

	s.record.Status = StatusReadyForSummary
	summary := s.renderer.Render(s.record)
	s.summary = &summary
	s.record.Status = StatusSummarized

	s.logger.Debug("summary generated", "title", summary.Title)
	return summary, nil
}

// Confirm records the client's approval of the latest summary. It is only
// valid directly after RequestSummary with no edits in between.
func (s *Session) Confirm() (Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen("Confirm"); err != nil {
		return s.record.Status, err
	}

	status := s.record.Status
	if status != StatusSummarized {
		return status, intakeerrors.NewInvalidTransitionError("Confirm", string(status), confirmHint(status))
	}

	s.record.Status = StatusConfirmed
	s.logger.Info("report confirmed")
	return s.record.Status, nil
}

// Publish sends text to the display. Delivery failures are logged and
// otherwise ignored.
func (s *Session) Publish(ctx context.Context, kind notify.Kind, text string) {
	err := s.notifier.Notify(ctx, notify.Notification{
		Kind:      kind,
		Text:      text,
		SessionID: s.id,
	})
	if err != nil {
		s.logger.Warn("display notification failed", "kind", kind, "error", err)
	}
}

// SendText shows text to the client.
func (s *Session) SendText(ctx context.Context, text string) {
	s.Publish(ctx, notify.KindText, text)
}

// SendGuidance shows the screen-recording guidance link and returns the
// text that was sent.
func (s *Session) SendGuidance(ctx context.Context) (string, error) {
	if s.guidanceURL == "" {
		return "", intakeerrors.NewConfigError("intake.loom_guidance_url", "no screen recording guidance link is configured")
	}
	text := "Here's a quick guide to recording your screen with Loom: " + s.guidanceURL
	s.Publish(ctx, notify.KindGuidance, text)
	return text, nil
}

// Close ends the session and discards the record. Later calls fail.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	if s.record.Status == StatusSubmitting {
		s.logger.Warn("session closed while a submission was in flight; outcome unknown")
	}
	s.logger.Debug("report session closed", "status", s.record.Status)

	s.closed = true
	s.record = Record{}
	s.summary = nil
}

func (s *Session) currentStatus() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record.Status
}

// checkOpen must be called with s.mu held.
func (s *Session) checkOpen(op string) error {
	if s.closed {
		return intakeerrors.NewInvalidTransitionError(op, "closed", "session has ended")
	}
	return nil
}

func confirmHint(status Status) string {
	switch status {
	case StatusCollecting, StatusReadyForSummary:
		return "generate a summary and read it back to the client first"
	case StatusConfirmed:
		return "report is already confirmed"
	case StatusSubmitting, StatusSubmitted:
		return "report has already been submitted"
	case StatusSubmissionFailed:
		return "call submit again to retry"
	default:
		return ""
	}
}

// String renders the report the way the dialogue layer reads it.
func (r StatusReport) String() string {
	var parts []string

	if len(r.Filled) > 0 {
		parts = append(parts, "Collected so far:")
		for _, f := range r.Filled {
			parts = append(parts, fmt.Sprintf("  - %s: %s", f, r.Values[f]))
		}
	}

	switch {
	case r.Status == StatusSubmitted:
		parts = append(parts, "\nSubmitted: "+r.IssueURL)
	case len(r.Missing) > 0:
		parts = append(parts, "\nStill needed (required): "+strings.Join(fieldNames(r.Missing), ", "))
	default:
		parts = append(parts, "\nAll required fields collected! Ready to summarise and confirm with the client.")
	}
	parts = append(parts, "Status: "+string(r.Status))

	return strings.Join(parts, "\n")
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max]) + "..."
}
