package tracker

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryName is the tracker name reported by MemoryTracker.
const MemoryName = "memory"

// MemoryTracker is an in-process Tracker. Issues live only as long as the
// value does. Failures can be scripted with FailNext.
type MemoryTracker struct {
	mu       sync.Mutex
	baseURL  string
	issues   []memoryIssue
	failures []memoryFailure
	creates  int
	finds    int
	now      func() time.Time
}

type memoryIssue struct {
	issue     Issue
	req       CreateRequest
	createdAt time.Time
}

type memoryFailure struct {
	err error
	// keep files the issue before returning err, simulating a create whose
	// response was lost.
	keep bool
}

// Compile-time check that MemoryTracker implements Tracker.
var _ Tracker = (*MemoryTracker)(nil)

// NewMemoryTracker creates an empty MemoryTracker. Issue URLs are built as
// baseURL + "/" + number.
func NewMemoryTracker(baseURL string) *MemoryTracker {
	if baseURL == "" {
		baseURL = "memory://issues"
	}
	return &MemoryTracker{baseURL: baseURL, now: time.Now}
}

// Name returns the tracker name.
func (m *MemoryTracker) Name() string {
	return MemoryName
}

// FailNext makes the next CreateIssue call return err without filing anything.
func (m *MemoryTracker) FailNext(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = append(m.failures, memoryFailure{err: err})
}

// FailNextAfterCreate makes the next CreateIssue call file the issue and then
// return err, as if the response never reached the caller.
func (m *MemoryTracker) FailNextAfterCreate(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = append(m.failures, memoryFailure{err: err, keep: true})
}

// CreateIssue files an issue in memory.
func (m *MemoryTracker) CreateIssue(ctx context.Context, req CreateRequest) (*Issue, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.creates++

	var failure *memoryFailure
	if len(m.failures) > 0 {
		failure = &m.failures[0]
		m.failures = m.failures[1:]
	}
	if failure != nil && !failure.keep {
		return nil, failure.err
	}

	number := len(m.issues) + 1
	issue := Issue{
		Key:   fmt.Sprintf("%d", number),
		URL:   fmt.Sprintf("%s/%d", m.baseURL, number),
		Title: req.Title,
	}
	m.issues = append(m.issues, memoryIssue{
		issue:     issue,
		req:       req,
		createdAt: m.now(),
	})

	if failure != nil {
		return nil, failure.err
	}

	out := issue
	return &out, nil
}

// FindIssue returns the newest issue with the same title and fingerprint
// created at or after req.Since. Labels are not compared, as GitHub may drop
// them on create.
func (m *MemoryTracker) FindIssue(ctx context.Context, req FindRequest) (*Issue, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.finds++

	for i := len(m.issues) - 1; i >= 0; i-- {
		stored := m.issues[i]
		if stored.createdAt.Before(req.Since) {
			continue
		}
		if stored.req.Fingerprint != req.Fingerprint || stored.req.Title != req.Title {
			continue
		}
		out := stored.issue
		return &out, nil
	}

	return nil, nil
}

// CreateCalls returns how many times CreateIssue was called.
func (m *MemoryTracker) CreateCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.creates
}

// FindCalls returns how many times FindIssue was called.
func (m *MemoryTracker) FindCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.finds
}

// Issues returns the requests of every filed issue, oldest first.
func (m *MemoryTracker) Issues() []CreateRequest {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]CreateRequest, len(m.issues))
	for i, stored := range m.issues {
		out[i] = stored.req
	}
	return out
}
