package report

import "strings"

// Priority is the urgency of a report.
type Priority string

const (
	PriorityUrgent Priority = "Urgent"
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

// Priorities lists every priority, most urgent first.
var Priorities = []Priority{PriorityUrgent, PriorityHigh, PriorityMedium, PriorityLow}

// PriorityDefinition explains when a priority applies and the service levels
// attached to it.
type PriorityDefinition struct {
	Priority Priority
	Meaning  string
	Response string
	Resolve  string
}

// PriorityDefinitions are read to the client when they are unsure which
// priority fits.
var PriorityDefinitions = []PriorityDefinition{
	{
		Priority: PriorityUrgent,
		Meaning:  "The platform is offline or in a state causing serious brand damage or restriction on income.",
		Response: "within 1 hour",
		Resolve:  "within 1 day",
	},
	{
		Priority: PriorityHigh,
		Meaning:  "A brand or function issue, e.g. part of the platform is damaged but not offline.",
		Response: "within 1 working day",
		Resolve:  "within 3 working days",
	},
	{
		Priority: PriorityMedium,
		Meaning:  "An error that inhibits typical user experience but does not prevent use of the tool or cause direct revenue loss.",
		Response: "within 1 working day",
		Resolve:  "within 8 working days",
	},
	{
		Priority: PriorityLow,
		Meaning:  "An error that does not inhibit user experience, such as a styling issue.",
		Response: "within 2 working days",
		Resolve:  "agreed with the client",
	},
}

// ParsePriority matches s case-insensitively against the four labels.
func ParsePriority(s string) (Priority, bool) {
	s = strings.TrimSpace(s)
	for _, p := range Priorities {
		if strings.EqualFold(s, string(p)) {
			return p, true
		}
	}
	return "", false
}

// IssueType distinguishes defects from requests for new behaviour.
type IssueType string

const (
	IssueTypeBug            IssueType = "bug"
	IssueTypeFeatureRequest IssueType = "feature_request"
)

// IssueTypes lists every issue type.
var IssueTypes = []IssueType{IssueTypeBug, IssueTypeFeatureRequest}

// ParseIssueType lowercases s and folds spaces and hyphens to underscores
// before a strict match, so "Feature Request" is accepted but "feature" is not.
func ParseIssueType(s string) (IssueType, bool) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	normalized = strings.NewReplacer(" ", "_", "-", "_").Replace(normalized)
	for _, t := range IssueTypes {
		if normalized == string(t) {
			return t, true
		}
	}
	return "", false
}

// Label returns the display name of the issue type.
func (t IssueType) Label() string {
	switch t {
	case IssueTypeBug:
		return "Bug"
	case IssueTypeFeatureRequest:
		return "Feature request"
	default:
		return string(t)
	}
}

func priorityNames() []string {
	names := make([]string, len(Priorities))
	for i, p := range Priorities {
		names[i] = string(p)
	}
	return names
}

func issueTypeNames() []string {
	names := make([]string, len(IssueTypes))
	for i, t := range IssueTypes {
		names[i] = string(t)
	}
	return names
}
