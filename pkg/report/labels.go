package report

import "strings"

// PriorityLabel returns the tracker label for p, e.g. "priority:urgent".
func PriorityLabel(p Priority) string {
	return "priority:" + strings.ToLower(string(p))
}

// IssueTypeLabel returns the tracker label for t.
func IssueTypeLabel(t IssueType) string {
	switch t {
	case IssueTypeBug:
		return "bug"
	case IssueTypeFeatureRequest:
		return "enhancement"
	default:
		return string(t)
	}
}

// Labels returns the tracker labels for r: one for the priority, then one
// for the issue type.
func Labels(r Record) []string {
	return []string{PriorityLabel(r.Priority), IssueTypeLabel(r.IssueType)}
}
