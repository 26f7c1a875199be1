package github

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	gh "github.com/google/go-github/v68/github"
	"golang.org/x/oauth2"

	intakeerrors "thoreinstein.com/intake/pkg/errors"
	"thoreinstein.com/intake/pkg/tracker"
)

// findPageSize bounds how many recent issues FindIssue inspects.
const findPageSize = 100

// APIClient implements tracker.Tracker using GitHub REST API.
type APIClient struct {
	client  *gh.Client
	repo    Repository
	baseURL string
	verbose bool
	logger  *slog.Logger
	retry   intakeerrors.RetryConfig
}

// Compile-time check that APIClient implements tracker.Tracker.
var _ tracker.Tracker = (*APIClient)(nil)

// APIClientOption is a functional option for configuring APIClient.
type APIClientOption func(*APIClient)

// WithAPILogger sets a custom logger for the API client.
func WithAPILogger(logger *slog.Logger) APIClientOption {
	return func(c *APIClient) {
		c.logger = logger
	}
}

// WithBaseURL points the client at a GitHub Enterprise server.
func WithBaseURL(baseURL string) APIClientOption {
	return func(c *APIClient) {
		c.baseURL = baseURL
	}
}

// WithRetryConfig overrides the retry policy for reads.
func WithRetryConfig(cfg intakeerrors.RetryConfig) APIClientOption {
	return func(c *APIClient) {
		c.retry = cfg
	}
}

// NewAPIClient creates a GitHub API client that files issues in repo.
func NewAPIClient(token string, repo Repository, verbose bool, opts ...APIClientOption) (*APIClient, error) {
	if token == "" {
		return nil, intakeerrors.NewConfigError("github.token", "token is required")
	}
	if repo.Owner == "" || repo.Name == "" {
		return nil, intakeerrors.NewConfigError("github.repository", "repository is required (owner/repo)")
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	tc := oauth2.NewClient(context.Background(), ts)

	client := &APIClient{
		client:  gh.NewClient(tc),
		repo:    repo,
		verbose: verbose,
		logger:  slog.Default(),
		retry:   intakeerrors.DefaultRetryConfig(),
	}

	for _, opt := range opts {
		opt(client)
	}

	if client.baseURL != "" {
		enterprise, err := client.client.WithEnterpriseURLs(client.baseURL, client.baseURL)
		if err != nil {
			return nil, intakeerrors.NewConfigErrorWithCause("github.base_url", "invalid GitHub API URL", err)
		}
		client.client = enterprise
	}

	return client, nil
}

// Name returns the tracker name.
func (c *APIClient) Name() string {
	return TrackerName
}

// Repository returns the repository issues are filed in.
func (c *APIClient) Repository() Repository {
	return c.repo
}

// CreateIssue opens a new issue. The request fingerprint is embedded in the
// body as an HTML comment so FindIssue can recognise the issue later. The
// call is never retried.
func (c *APIClient) CreateIssue(ctx context.Context, req tracker.CreateRequest) (*tracker.Issue, error) {
	if req.Title == "" {
		return nil, intakeerrors.NewTrackerError(TrackerName, "CreateIssue", "title is required")
	}

	c.logDebug("creating issue", "repo", c.repo.String(), "title", req.Title, "labels", req.Labels)

	labels := append([]string{}, req.Labels...)
	newIssue := &gh.IssueRequest{
		Title:  gh.Ptr(req.Title),
		Body:   gh.Ptr(req.Body + fingerprintMarker(req.Fingerprint)),
		Labels: &labels,
	}

	issue, resp, err := c.client.Issues.Create(ctx, c.repo.Owner, c.repo.Name, newIssue)
	if err != nil {
		return nil, toTrackerError("CreateIssue", resp, err)
	}

	return issueFromGitHub(issue), nil
}

// FindIssue looks through recently created issues with the same labels for
// one whose title and fingerprint match req.
func (c *APIClient) FindIssue(ctx context.Context, req tracker.FindRequest) (*tracker.Issue, error) {
	c.logDebug("searching for existing issue", "repo", c.repo.String(), "title", req.Title, "since", req.Since)

	opts := &gh.IssueListByRepoOptions{
		State:       "all",
		Since:       req.Since,
		Sort:        "created",
		Direction:   "desc",
		ListOptions: gh.ListOptions{PerPage: findPageSize},
	}

	issues, err := intakeerrors.RetryWithResult(ctx, c.retry, func() ([]*gh.Issue, error) {
		issues, resp, err := c.client.Issues.ListByRepo(ctx, c.repo.Owner, c.repo.Name, opts)
		if err != nil {
			return nil, toTrackerError("FindIssue", resp, err)
		}
		return issues, nil
	})
	if err != nil {
		return nil, err
	}

	marker := fingerprintMarker(req.Fingerprint)
	for _, issue := range issues {
		if issue.IsPullRequest() {
			continue
		}
		if !req.Since.IsZero() && issue.GetCreatedAt().Before(req.Since) {
			continue
		}
		if issue.GetTitle() != req.Title {
			continue
		}
		if marker != "" && !strings.Contains(issue.GetBody(), marker) {
			continue
		}
		c.logDebug("found existing issue", "number", issue.GetNumber())
		return issueFromGitHub(issue), nil
	}

	return nil, nil
}

// CurrentUser returns the login of the authenticated user.
func (c *APIClient) CurrentUser(ctx context.Context) (string, error) {
	user, resp, err := c.client.Users.Get(ctx, "")
	if err != nil {
		return "", toTrackerError("CurrentUser", resp, err)
	}
	return user.GetLogin(), nil
}

func (c *APIClient) logDebug(msg string, args ...any) {
	if c.verbose {
		c.logger.Debug(msg, args...)
	}
}

// Helper functions

func fingerprintMarker(fingerprint string) string {
	if fingerprint == "" {
		return ""
	}
	return "\n<!-- intake:fingerprint=" + fingerprint + " -->\n"
}

func issueFromGitHub(issue *gh.Issue) *tracker.Issue {
	return &tracker.Issue{
		Key:   strconv.Itoa(issue.GetNumber()),
		URL:   issue.GetHTMLURL(),
		Title: issue.GetTitle(),
	}
}

func toTrackerError(operation string, resp *gh.Response, err error) error {
	if resp != nil && resp.StatusCode > 0 {
		message := err.Error()
		var errResp *gh.ErrorResponse
		if intakeerrors.As(err, &errResp) && errResp.Message != "" {
			message = errResp.Message
		}
		trackerErr := intakeerrors.NewTrackerErrorWithStatus(TrackerName, operation, resp.StatusCode, message)
		trackerErr.Cause = err
		return trackerErr
	}
	return intakeerrors.NewTrackerErrorWithCause(TrackerName, operation, "API request failed", err)
}
