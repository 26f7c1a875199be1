// Package tracker defines the boundary between the report core and the
// external issue trackers that confirmed reports are filed into.
//
// Implementations live in their own packages (github, jira). MemoryTracker
// is an in-process implementation used for dry runs and tests.
package tracker

import (
	"context"
	"time"
)

// Tracker files issues in an external tracking system.
type Tracker interface {
	// Name returns the tracker name used in logs and errors (e.g. "github").
	Name() string

	// CreateIssue files a new issue. It is called at most once per attempt and
	// must not retry internally, since a retried create can file a duplicate.
	CreateIssue(ctx context.Context, req CreateRequest) (*Issue, error)

	// FindIssue looks for an issue previously filed for the same request.
	// It returns (nil, nil) when no matching issue exists.
	FindIssue(ctx context.Context, req FindRequest) (*Issue, error)
}

// CreateRequest is the tracker-neutral issue creation payload.
type CreateRequest struct {
	Title       string
	Body        string
	Labels      []string
	IssueType   string // Canonical report issue type: "bug" or "feature_request"
	Fingerprint string // Digest of Title and Body, used to recognise an earlier create
}

// FindRequest identifies an issue that may already have been filed.
type FindRequest struct {
	CreateRequest
	Since time.Time // Lower bound on the issue's creation time
}

// Issue is a reference to a filed issue.
type Issue struct {
	Key   string // Tracker-specific identifier, e.g. "42" or "OPS-17"
	URL   string // Browser URL for the issue
	Title string
}
