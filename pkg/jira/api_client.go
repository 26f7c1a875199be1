// Package jira files confirmed reports as Jira Cloud issues.
package jira

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"thoreinstein.com/intake/pkg/config"
	intakeerrors "thoreinstein.com/intake/pkg/errors"
	"thoreinstein.com/intake/pkg/tracker"
)

// TrackerName is the tracker name used in logs and errors.
const TrackerName = "jira"

const (
	// searchPageSize bounds how many recent issues FindIssue inspects.
	searchPageSize = 50
	// fingerprintLabelPrefix marks issues with the digest of their content.
	fingerprintLabelPrefix = "intake-fp-"
	// fingerprintLabelLength keeps the label short enough for Jira.
	fingerprintLabelLength = 32
)

// Compile-time interface check
var _ tracker.Tracker = (*APIClient)(nil)

// APIClient implements tracker.Tracker using Jira Cloud REST API v3
type APIClient struct {
	baseURL     string
	email       string
	token       string
	project     string
	bugType     string
	featureType string
	httpClient  *http.Client
	verbose     bool
	logger      *slog.Logger
	retry       intakeerrors.RetryConfig
}

// APIClientOption is a functional option for configuring APIClient.
type APIClientOption func(*APIClient)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(client *http.Client) APIClientOption {
	return func(c *APIClient) {
		c.httpClient = client
	}
}

// WithLogger sets a custom logger for the API client.
func WithLogger(logger *slog.Logger) APIClientOption {
	return func(c *APIClient) {
		c.logger = logger
	}
}

// WithRetryConfig overrides the retry policy for searches.
func WithRetryConfig(cfg intakeerrors.RetryConfig) APIClientOption {
	return func(c *APIClient) {
		c.retry = cfg
	}
}

// NewAPIClient creates a new API-based Jira client.
// Token lookup precedence: JIRA_TOKEN env var > config token.
func NewAPIClient(cfg *config.JiraConfig, verbose bool, opts ...APIClientOption) (*APIClient, error) {
	if cfg == nil {
		return nil, intakeerrors.NewConfigError("jira", "jira config is required")
	}

	// Token from env var takes precedence
	token := os.Getenv("JIRA_TOKEN")
	if token == "" {
		token = cfg.Token
	}

	if cfg.BaseURL == "" {
		return nil, intakeerrors.NewConfigError("jira.base_url", "jira base_url is required")
	}
	if cfg.Email == "" {
		return nil, intakeerrors.NewConfigError("jira.email", "jira email is required")
	}
	if token == "" {
		return nil, intakeerrors.NewConfigError("jira.token", "jira token is required (set JIRA_TOKEN env var or config)")
	}
	if cfg.Project == "" {
		return nil, intakeerrors.NewConfigError("jira.project", "jira project key is required")
	}

	client := &APIClient{
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		email:       cfg.Email,
		token:       token,
		project:     cfg.Project,
		bugType:     valueOr(cfg.BugIssueType, "Bug"),
		featureType: valueOr(cfg.FeatureIssueType, "Story"),
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		verbose:     verbose,
		logger:      slog.Default(),
		retry:       intakeerrors.DefaultRetryConfig(),
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// Name returns the tracker name.
func (c *APIClient) Name() string {
	return TrackerName
}

// jiraCreateRequest is the body of POST /rest/api/3/issue.
type jiraCreateRequest struct {
	Fields jiraCreateFields `json:"fields"`
}

type jiraCreateFields struct {
	Project     jiraKeyField  `json:"project"`
	IssueType   jiraNameField `json:"issuetype"`
	Summary     string        `json:"summary"`
	Description *adfDocument  `json:"description,omitempty"`
	Labels      []string      `json:"labels,omitempty"`
}

type jiraKeyField struct {
	Key string `json:"key"`
}

// jiraNameField represents a Jira field with a name property.
type jiraNameField struct {
	Name string `json:"name"`
}

type jiraCreateResponse struct {
	ID  string `json:"id"`
	Key string `json:"key"`
}

// CreateIssue files a new issue. The fingerprint travels as a label so
// FindIssue can search for it. The call is never retried.
// POST /rest/api/3/issue
func (c *APIClient) CreateIssue(ctx context.Context, req tracker.CreateRequest) (*tracker.Issue, error) {
	if req.Title == "" {
		return nil, intakeerrors.NewTrackerError(TrackerName, "CreateIssue", "title is required")
	}

	labels := append([]string{}, req.Labels...)
	if label := fingerprintLabel(req.Fingerprint); label != "" {
		labels = append(labels, label)
	}

	body := jiraCreateRequest{
		Fields: jiraCreateFields{
			Project:     jiraKeyField{Key: c.project},
			IssueType:   jiraNameField{Name: c.issueTypeName(req.IssueType)},
			Summary:     req.Title,
			Description: markdownToADF(req.Body),
			Labels:      labels,
		},
	}

	c.logDebug("creating issue", "project", c.project, "title", req.Title, "labels", labels)

	respBody, err := c.do(ctx, "CreateIssue", http.MethodPost, "/rest/api/3/issue", body, http.StatusCreated)
	if err != nil {
		return nil, err
	}

	var created jiraCreateResponse
	if err := json.Unmarshal(respBody, &created); err != nil {
		return nil, intakeerrors.NewTrackerErrorWithCause(TrackerName, "CreateIssue", "failed to parse create response", err)
	}
	if created.Key == "" {
		return nil, intakeerrors.NewTrackerError(TrackerName, "CreateIssue", "create response has no issue key")
	}

	return &tracker.Issue{
		Key:   created.Key,
		URL:   c.browseURL(created.Key),
		Title: req.Title,
	}, nil
}

// jiraSearchRequest is the body of POST /rest/api/3/search/jql.
type jiraSearchRequest struct {
	JQL        string   `json:"jql"`
	Fields     []string `json:"fields"`
	MaxResults int      `json:"maxResults"`
}

type jiraSearchResponse struct {
	Issues []struct {
		Key    string `json:"key"`
		Fields struct {
			Summary string `json:"summary"`
		} `json:"fields"`
	} `json:"issues"`
}

// FindIssue searches the project for an issue carrying the request's labels
// and fingerprint, created no earlier than req.Since, whose summary matches
// the title exactly. Searches are retried on rate limits and server errors.
// POST /rest/api/3/search/jql
func (c *APIClient) FindIssue(ctx context.Context, req tracker.FindRequest) (*tracker.Issue, error) {
	search := jiraSearchRequest{
		JQL:        c.findJQL(req, time.Now()),
		Fields:     []string{"summary"},
		MaxResults: searchPageSize,
	}

	c.logDebug("searching for existing issue", "jql", search.JQL)

	result, err := intakeerrors.RetryWithResult(ctx, c.retry, func() (*jiraSearchResponse, error) {
		respBody, err := c.do(ctx, "FindIssue", http.MethodPost, "/rest/api/3/search/jql", search, http.StatusOK)
		if err != nil {
			return nil, err
		}
		var resp jiraSearchResponse
		if err := json.Unmarshal(respBody, &resp); err != nil {
			return nil, intakeerrors.NewTrackerErrorWithStatus(TrackerName, "FindIssue", http.StatusOK, "failed to parse search response")
		}
		return &resp, nil
	})
	if err != nil {
		return nil, err
	}

	for _, issue := range result.Issues {
		if issue.Fields.Summary != req.Title {
			continue
		}
		c.logDebug("found existing issue", "key", issue.Key)
		return &tracker.Issue{
			Key:   issue.Key,
			URL:   c.browseURL(issue.Key),
			Title: issue.Fields.Summary,
		}, nil
	}

	return nil, nil
}

// findJQL builds the search query. The creation bound is expressed in
// minutes relative to now so it does not depend on the Jira user's time zone.
func (c *APIClient) findJQL(req tracker.FindRequest, now time.Time) string {
	clauses := []string{"project = " + jqlQuote(c.project)}

	labels := append([]string{}, req.Labels...)
	if label := fingerprintLabel(req.Fingerprint); label != "" {
		labels = append(labels, label)
	}
	for _, label := range labels {
		clauses = append(clauses, "labels = "+jqlQuote(label))
	}

	if !req.Since.IsZero() {
		minutes := int(math.Ceil(now.Sub(req.Since).Minutes())) + 1
		clauses = append(clauses, fmt.Sprintf("created >= -%dm", max(minutes, 1)))
	}

	return strings.Join(clauses, " AND ") + " ORDER BY created DESC"
}

func (c *APIClient) issueTypeName(issueType string) string {
	if issueType == "feature_request" {
		return c.featureType
	}
	return c.bugType
}

func (c *APIClient) browseURL(key string) string {
	return c.baseURL + "/browse/" + key
}

// do sends a JSON request and returns the response body when the status
// matches want.
func (c *APIClient) do(ctx context.Context, operation, method, path string, payload any, want int) ([]byte, error) {
	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, intakeerrors.Wrap(err, "failed to marshal request body")
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, intakeerrors.Wrap(err, "failed to create request")
	}

	// Set Basic Auth header: base64(email:token)
	auth := base64.StdEncoding.EncodeToString([]byte(c.email + ":" + c.token))
	req.Header.Set("Authorization", "Basic "+auth)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, intakeerrors.NewTrackerErrorWithCause(TrackerName, operation, "failed to execute request", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, intakeerrors.NewTrackerErrorWithCause(TrackerName, operation, "failed to read response body", err)
	}

	if resp.StatusCode != want {
		return nil, c.httpError(operation, resp, body)
	}

	return body, nil
}

// httpError returns an appropriate error for an unexpected status.
func (c *APIClient) httpError(operation string, resp *http.Response, body []byte) error {
	var message string
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		message = "authentication failed: check your email and API token"
	case http.StatusForbidden:
		message = "access denied: check your project permissions"
	case http.StatusNotFound:
		message = "not found: check jira.base_url and jira.project"
	case http.StatusTooManyRequests:
		message = "rate limit exceeded"
	default:
		message = errorMessages(body)
	}

	trackerErr := intakeerrors.NewTrackerErrorWithStatus(TrackerName, operation, resp.StatusCode, message)
	if delay := parseRetryAfter(resp.Header.Get("Retry-After")); delay > 0 {
		return &retryAfterError{TrackerError: trackerErr, after: delay}
	}
	return trackerErr
}

// errorMessages extracts Jira's error details from a response body.
func errorMessages(body []byte) string {
	var errResp struct {
		ErrorMessages []string          `json:"errorMessages"`
		Errors        map[string]string `json:"errors"`
	}
	if err := json.Unmarshal(body, &errResp); err != nil {
		return "jira API error"
	}

	msgs := append([]string{}, errResp.ErrorMessages...)
	for field, msg := range errResp.Errors {
		msgs = append(msgs, fmt.Sprintf("%s: %s", field, msg))
	}
	if len(msgs) == 0 {
		return "jira API error"
	}
	return strings.Join(msgs, "; ")
}

// retryAfterError carries the server's requested delay alongside the
// tracker error.
type retryAfterError struct {
	*intakeerrors.TrackerError
	after time.Duration
}

func (e *retryAfterError) Unwrap() error {
	return e.TrackerError
}

func (e *retryAfterError) RetryAfter() time.Duration {
	return e.after
}

// parseRetryAfter extracts the delay from a Retry-After header.
// Returns the duration if present and valid, otherwise returns 0.
func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}

	// Try parsing as seconds (integer)
	if seconds, err := strconv.Atoi(header); err == nil {
		return time.Duration(seconds) * time.Second
	}

	// Try parsing as HTTP date (RFC1123)
	if t, err := time.Parse(time.RFC1123, header); err == nil {
		delay := time.Until(t)
		if delay > 0 {
			return delay
		}
	}

	return 0
}

func (c *APIClient) logDebug(msg string, args ...any) {
	if c.verbose {
		c.logger.Debug(msg, args...)
	}
}

func fingerprintLabel(fingerprint string) string {
	if fingerprint == "" {
		return ""
	}
	if len(fingerprint) > fingerprintLabelLength {
		fingerprint = fingerprint[:fingerprintLabelLength]
	}
	return fingerprintLabelPrefix + fingerprint
}

// jqlQuote returns s as a double-quoted JQL string literal.
func jqlQuote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
