package report

import (
	"context"
	"net/http"
	"time"

	intakeerrors "thoreinstein.com/intake/pkg/errors"
	"thoreinstein.com/intake/pkg/notify"
	"thoreinstein.com/intake/pkg/tracker"
)

// clockSkew widens the lookback window for issues filed by an earlier
// attempt, since the tracker's clock is not ours.
const clockSkew = 2 * time.Minute

type submitAttempt struct {
	request       tracker.CreateRequest
	checkExisting bool
	since         time.Time
}

// Submit files the confirmed summary in the tracker and returns the issue
// URL. A report is filed at most once: once submitted, further calls return
// the same URL without contacting the tracker.
//
// On failure the status becomes submission_failed and a *SubmissionError is
// returned; calling Submit again retries. When the failed attempt's outcome
// is unknown (timeout, connection reset, server error) the retry first looks
// for an issue that attempt may have filed and adopts it instead of creating
// a second one.
func (s *Session) Submit(ctx context.Context) (string, error) {
	url, attempt, err := s.beginSubmit()
	if err != nil {
		return "", err
	}
	if attempt == nil {
		s.logger.Debug("report already submitted", "url", url)
		return url, nil
	}

	trackerName := s.tracker.Name()

	if attempt.checkExisting {
		existing, findErr := s.tracker.FindIssue(ctx, tracker.FindRequest{
			CreateRequest: attempt.request,
			Since:         attempt.since,
		})
		if findErr != nil {
			// Without a lookup there is no way to rule out a duplicate.
			return "", s.failSubmit(trackerName, findErr, true)
		}
		if existing != nil && existing.URL != "" {
			s.logger.Info("adopting issue filed by an earlier attempt", "tracker", trackerName, "url", existing.URL)
			return s.completeSubmit(ctx, existing), nil
		}
	}

	s.logger.Debug("filing issue", "tracker", trackerName, "title", attempt.request.Title)
	issue, createErr := s.tracker.CreateIssue(ctx, attempt.request)
	if createErr != nil {
		return "", s.failSubmit(trackerName, createErr, ambiguousFailure(ctx, createErr))
	}
	if issue == nil || issue.URL == "" {
		err := intakeerrors.NewTrackerError(trackerName, "CreateIssue", "tracker returned no issue URL")
		return "", s.failSubmit(trackerName, err, true)
	}

	return s.completeSubmit(ctx, issue), nil
}

// beginSubmit checks preconditions and moves the record to submitting. It
// returns a nil attempt when the record was already submitted.
func (s *Session) beginSubmit() (string, *submitAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen("Submit"); err != nil {
		return "", nil, err
	}

	if s.record.IssueURL != "" {
		return s.record.IssueURL, nil, nil
	}

	status := s.record.Status
	switch status {
	case StatusConfirmed, StatusSubmissionFailed:
	case StatusSubmitting:
		return "", nil, intakeerrors.NewInvalidTransitionError("Submit", string(status), "a submission is already in progress")
	default:
		return "", nil, intakeerrors.NewInvalidTransitionError("Submit", string(status), "the client must confirm the summary first")
	}

	summary := s.renderer.Render(s.record)
	s.summary = &summary

	attempt := &submitAttempt{
		request: tracker.CreateRequest{
			Title:       summary.Title,
			Body:        summary.Body,
			Labels:      Labels(s.record),
			IssueType:   string(s.record.IssueType),
			Fingerprint: summary.Fingerprint(),
		},
		checkExisting: s.lastAmbiguous && !s.firstAttempt.IsZero(),
	}

	if s.firstAttempt.IsZero() {
		s.firstAttempt = s.now()
	}
	attempt.since = s.firstAttempt.Add(-clockSkew)

	s.record.Status = StatusSubmitting
	return "", attempt, nil
}

func (s *Session) completeSubmit(ctx context.Context, issue *tracker.Issue) string {
	s.mu.Lock()
	closed := s.closed
	if !closed {
		s.record.IssueURL = issue.URL
		s.record.Status = StatusSubmitted
		s.lastAmbiguous = false
	}
	s.mu.Unlock()

	s.logger.Info("issue filed", "key", issue.Key, "url", issue.URL)
	if !closed {
		s.Publish(ctx, notify.KindIssue, issue.URL)
	}
	return issue.URL
}

func (s *Session) failSubmit(trackerName string, cause error, ambiguous bool) error {
	s.mu.Lock()
	if !s.closed {
		s.record.Status = StatusSubmissionFailed
		// Sticky until the record is edited: any earlier attempt with an
		// unknown outcome may have filed the issue.
		s.lastAmbiguous = s.lastAmbiguous || ambiguous
	}
	s.mu.Unlock()

	s.logger.Warn("issue submission failed", "tracker", trackerName, "ambiguous", ambiguous, "error", cause)
	return intakeerrors.NewSubmissionError(trackerName, ambiguous, cause)
}

// ambiguousFailure reports whether a failed create may still have filed the
// issue. Only a tracker response that rejected the request rules that out.
func ambiguousFailure(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return true
	}
	if intakeerrors.Is(err, context.Canceled) || intakeerrors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var trackerErr *intakeerrors.TrackerError
	if !intakeerrors.As(err, &trackerErr) {
		return true
	}
	return trackerErr.StatusCode == 0 || trackerErr.StatusCode >= http.StatusInternalServerError
}
