// Package report implements the conversation-to-ticket state machine.
//
// A Session owns one Record for the lifetime of one conversation. The
// dialogue layer fills fields in any order through SetField, asks for a
// Summary once every required field is present, confirms it, and submits.
// Submission files the confirmed summary in a tracker at most once.
package report

// Status is the lifecycle state of a Record.
type Status string

const (
	StatusCollecting       Status = "collecting"
	StatusReadyForSummary  Status = "ready_for_summary"
	StatusSummarized       Status = "summarized"
	StatusConfirmed        Status = "confirmed"
	StatusSubmitting       Status = "submitting"
	StatusSubmitted        Status = "submitted"
	StatusSubmissionFailed Status = "submission_failed"
)

// Frozen reports whether the record can no longer be edited.
func (s Status) Frozen() bool {
	return s == StatusSubmitting || s == StatusSubmitted
}

// Record is the structured ticket-in-progress for one conversation.
// IssueURL is set if and only if Status is StatusSubmitted.
type Record struct {
	Description       string
	ExpectedBehaviour string
	StepsToReproduce  string
	Priority          Priority
	IssueType         IssueType

	ErrorMessage string
	LoggedInUser string
	URL          string
	PageTitle    string
	Browser      string
	LoomLink     string

	Status   Status
	IssueURL string
}

// Get returns the current value of f, or "" when unset.
func (r *Record) Get(f Field) string {
	switch f {
	case FieldDescription:
		return r.Description
	case FieldExpectedBehaviour:
		return r.ExpectedBehaviour
	case FieldStepsToReproduce:
		return r.StepsToReproduce
	case FieldPriority:
		return string(r.Priority)
	case FieldIssueType:
		return string(r.IssueType)
	case FieldErrorMessage:
		return r.ErrorMessage
	case FieldLoggedInUser:
		return r.LoggedInUser
	case FieldURL:
		return r.URL
	case FieldPageTitle:
		return r.PageTitle
	case FieldBrowser:
		return r.Browser
	case FieldLoomLink:
		return r.LoomLink
	default:
		return ""
	}
}

// set stores an already validated value.
func (r *Record) set(f Field, value string) {
	switch f {
	case FieldDescription:
		r.Description = value
	case FieldExpectedBehaviour:
		r.ExpectedBehaviour = value
	case FieldStepsToReproduce:
		r.StepsToReproduce = value
	case FieldPriority:
		r.Priority = Priority(value)
	case FieldIssueType:
		r.IssueType = IssueType(value)
	case FieldErrorMessage:
		r.ErrorMessage = value
	case FieldLoggedInUser:
		r.LoggedInUser = value
	case FieldURL:
		r.URL = value
	case FieldPageTitle:
		r.PageTitle = value
	case FieldBrowser:
		r.Browser = value
	case FieldLoomLink:
		r.LoomLink = value
	}
}

// Filled returns the fields that have a value, in declaration order.
func (r *Record) Filled() []Field {
	var filled []Field
	for _, f := range AllFields() {
		if r.Get(f) != "" {
			filled = append(filled, f)
		}
	}
	return filled
}

// Missing returns the required fields without a value, in declaration order.
func (r *Record) Missing() []Field {
	var missing []Field
	for _, f := range RequiredFields() {
		if r.Get(f) == "" {
			missing = append(missing, f)
		}
	}
	return missing
}

// Complete reports whether every required field has a value.
func (r *Record) Complete() bool {
	return len(r.Missing()) == 0
}
