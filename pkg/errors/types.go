// Package errors provides typed errors for the intake project.
//
// This package defines domain-specific error types for the report state
// machine (validation, incomplete records, illegal transitions, frozen
// records, failed submissions) and for the subsystems around it (trackers,
// notification channels, configuration). All error types implement the
// standard error interface and support errors.Is() and errors.As() from the
// standard library and cockroachdb/errors.
package errors

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

// ValidationKind classifies why a field value was rejected.
type ValidationKind string

const (
	// KindUnknownField means the field name is not one of the known fields.
	KindUnknownField ValidationKind = "unknown_field"
	// KindEmptyValue means a required field was given an empty value.
	KindEmptyValue ValidationKind = "empty_value"
	// KindInvalidEnumValue means the value is not one of the allowed labels.
	KindInvalidEnumValue ValidationKind = "invalid_enum_value"
)

// ValidationError is returned when a field name or value is rejected.
// The record is never mutated when this error is returned.
type ValidationError struct {
	Field   string
	Kind    ValidationKind
	Value   string
	Allowed []string // Allowed field names or enum labels, when applicable
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	msg := e.Message
	if len(e.Allowed) > 0 {
		msg += " (allowed: " + strings.Join(e.Allowed, ", ") + ")"
	}
	if e.Field != "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, msg)
	}
	return "validation error: " + msg
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, kind ValidationKind, value, message string) *ValidationError {
	return &ValidationError{Field: field, Kind: kind, Value: value, Message: message}
}

// NewEnumError creates a ValidationError naming the allowed set.
func NewEnumError(field, value string, allowed []string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Kind:    KindInvalidEnumValue,
		Value:   value,
		Allowed: allowed,
		Message: fmt.Sprintf("%q is not a valid %s", value, field),
	}
}

// IncompleteRecordError is returned when a summary is requested before every
// required field has a value.
type IncompleteRecordError struct {
	Missing []string
}

// Error implements the error interface.
func (e *IncompleteRecordError) Error() string {
	return "report is incomplete, missing required fields: " + strings.Join(e.Missing, ", ")
}

// NewIncompleteRecordError creates a new IncompleteRecordError.
func NewIncompleteRecordError(missing []string) *IncompleteRecordError {
	return &IncompleteRecordError{Missing: missing}
}

// InvalidTransitionError signals a sequencing fault: an operation was invoked
// from a status that does not allow it.
type InvalidTransitionError struct {
	Operation string // e.g., "Confirm", "Submit"
	From      string // Status at the time of the call
	Message   string
}

// Error implements the error interface.
func (e *InvalidTransitionError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("cannot %s from status %s: %s", e.Operation, e.From, e.Message)
	}
	return fmt.Sprintf("cannot %s from status %s", e.Operation, e.From)
}

// NewInvalidTransitionError creates a new InvalidTransitionError.
func NewInvalidTransitionError(operation, from, message string) *InvalidTransitionError {
	return &InvalidTransitionError{Operation: operation, From: from, Message: message}
}

// StaleMutationError is returned when a field edit is attempted after
// submission has started or finished.
type StaleMutationError struct {
	Field  string
	Status string
}

// Error implements the error interface.
func (e *StaleMutationError) Error() string {
	return fmt.Sprintf("cannot change %s: report is %s and can no longer be edited", e.Field, e.Status)
}

// NewStaleMutationError creates a new StaleMutationError.
func NewStaleMutationError(field, status string) *StaleMutationError {
	return &StaleMutationError{Field: field, Status: status}
}

// SubmissionError wraps a tracker failure during submission.
type SubmissionError struct {
	Tracker   string
	Ambiguous bool // Outcome unknown; the issue may exist
	Cause     error
}

// Error implements the error interface.
func (e *SubmissionError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("submission to %s failed", e.Tracker)
	}
	return fmt.Sprintf("submission to %s failed: %v", e.Tracker, e.Cause)
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *SubmissionError) Unwrap() error {
	return e.Cause
}

// NewSubmissionError creates a new SubmissionError.
func NewSubmissionError(tracker string, ambiguous bool, cause error) *SubmissionError {
	return &SubmissionError{Tracker: tracker, Ambiguous: ambiguous, Cause: cause}
}

// TrackerError represents issue-tracker API errors (GitHub, Jira).
// Retryable marks a transient failure; anything else is permanent.
type TrackerError struct {
	Tracker    string // e.g., "github", "jira"
	Operation  string // e.g., "CreateIssue", "FindIssue"
	StatusCode int    // HTTP status code if applicable
	Message    string
	Retryable  bool
	Cause      error
}

// Error implements the error interface.
func (e *TrackerError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s %s failed (HTTP %d): %s", e.Tracker, e.Operation, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s %s failed: %s", e.Tracker, e.Operation, e.Message)
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *TrackerError) Unwrap() error {
	return e.Cause
}

// Transient reports whether the tracker classified the failure as temporary.
func (e *TrackerError) Transient() bool {
	return e.Retryable
}

// NewTrackerError creates a new TrackerError.
func NewTrackerError(tracker, operation, message string) *TrackerError {
	return &TrackerError{Tracker: tracker, Operation: operation, Message: message}
}

// NewTrackerErrorWithStatus creates a new TrackerError with HTTP status code.
func NewTrackerErrorWithStatus(tracker, operation string, statusCode int, message string) *TrackerError {
	return &TrackerError{
		Tracker:    tracker,
		Operation:  operation,
		StatusCode: statusCode,
		Message:    message,
		Retryable:  isRetryableHTTPStatus(statusCode),
	}
}

// NewTrackerErrorWithCause creates a new TrackerError with an underlying cause.
// Transport failures without a response are treated as transient.
func NewTrackerErrorWithCause(tracker, operation, message string, cause error) *TrackerError {
	return &TrackerError{
		Tracker:   tracker,
		Operation: operation,
		Message:   message,
		Retryable: true,
		Cause:     cause,
	}
}

// NotifyError represents a failure delivering a message to a display channel.
type NotifyError struct {
	Channel string // e.g., "slack", "discord", "websocket"
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *NotifyError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("notify via %s failed: %s: %v", e.Channel, e.Message, e.Cause)
	}
	return fmt.Sprintf("notify via %s failed: %s", e.Channel, e.Message)
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *NotifyError) Unwrap() error {
	return e.Cause
}

// NewNotifyError creates a new NotifyError.
func NewNotifyError(channel, message string, cause error) *NotifyError {
	return &NotifyError{Channel: channel, Message: message, Cause: cause}
}

// ConfigError represents configuration-related errors.
type ConfigError struct {
	Field   string // Which config field has the issue
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config error in %s: %s", e.Field, e.Message)
	}
	return "config error: " + e.Message
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// NewConfigError creates a new ConfigError.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{Field: field, Message: message}
}

// NewConfigErrorWithCause creates a new ConfigError with an underlying cause.
func NewConfigErrorWithCause(field, message string, cause error) *ConfigError {
	return &ConfigError{Field: field, Message: message, Cause: cause}
}

// IsRetryable checks if an error or any error in its chain is retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var trackerErr *TrackerError
	if errors.As(err, &trackerErr) {
		return trackerErr.Retryable
	}

	return false
}

// IsValidationError checks if an error or any error in its chain is a ValidationError.
func IsValidationError(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsIncompleteRecord checks if an error or any error in its chain is an IncompleteRecordError.
func IsIncompleteRecord(err error) bool {
	var target *IncompleteRecordError
	return errors.As(err, &target)
}

// IsInvalidTransition checks if an error or any error in its chain is an InvalidTransitionError.
func IsInvalidTransition(err error) bool {
	var target *InvalidTransitionError
	return errors.As(err, &target)
}

// IsStaleMutation checks if an error or any error in its chain is a StaleMutationError.
func IsStaleMutation(err error) bool {
	var target *StaleMutationError
	return errors.As(err, &target)
}

// IsSubmissionError checks if an error or any error in its chain is a SubmissionError.
func IsSubmissionError(err error) bool {
	var target *SubmissionError
	return errors.As(err, &target)
}

// IsTrackerError checks if an error or any error in its chain is a TrackerError.
func IsTrackerError(err error) bool {
	var target *TrackerError
	return errors.As(err, &target)
}

// IsConfigError checks if an error or any error in its chain is a ConfigError.
func IsConfigError(err error) bool {
	var target *ConfigError
	return errors.As(err, &target)
}

// isRetryableHTTPStatus returns true for HTTP status codes that are typically retryable.
func isRetryableHTTPStatus(statusCode int) bool {
	switch statusCode {
	case 408, // Request Timeout
		429, // Too Many Requests
		500, // Internal Server Error
		502, // Bad Gateway
		503, // Service Unavailable
		504: // Gateway Timeout
		return true
	default:
		return false
	}
}

// Re-export commonly used functions from cockroachdb/errors for convenience.
// This allows consumers to use intakeerrors.Wrap() instead of importing two packages.
var (
	// New creates a new error with the given message.
	New = errors.New

	// Newf creates a new error with formatted message.
	Newf = errors.Newf

	// Wrap wraps an error with additional context.
	Wrap = errors.Wrap

	// Wrapf wraps an error with formatted additional context.
	Wrapf = errors.Wrapf

	// Is reports whether any error in err's chain matches target.
	Is = errors.Is

	// As finds the first error in err's chain that matches target.
	As = errors.As

	// CombineErrors returns err, or other if err is nil, keeping other as a secondary error.
	CombineErrors = errors.CombineErrors
)
