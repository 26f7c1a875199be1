package report

import (
	"strings"

	intakeerrors "thoreinstein.com/intake/pkg/errors"
)

// Field identifies one of the eleven report fields. The set is closed: a
// Field value outside the declared constants is never produced by this
// package, and string names are only accepted through ParseField.
type Field int

const (
	FieldDescription Field = iota + 1
	FieldExpectedBehaviour
	FieldStepsToReproduce
	FieldPriority
	FieldIssueType
	FieldErrorMessage
	FieldLoggedInUser
	FieldURL
	FieldPageTitle
	FieldBrowser
	FieldLoomLink
)

// Kind is the value shape of a field. Each kind has exactly one validator.
type Kind int

const (
	KindText Kind = iota
	KindPriority
	KindIssueType
	KindLink
)

type fieldSpec struct {
	name     string
	label    string
	kind     Kind
	required bool
}

// fieldSpecs is indexed by Field; index 0 is unused.
var fieldSpecs = [...]fieldSpec{
	FieldDescription:       {"description", "Description", KindText, true},
	FieldExpectedBehaviour: {"expected_behaviour", "Expected behaviour", KindText, true},
	FieldStepsToReproduce:  {"steps_to_reproduce", "Steps to reproduce", KindText, true},
	FieldPriority:          {"priority", "Priority", KindPriority, true},
	FieldIssueType:         {"issue_type", "Type", KindIssueType, true},
	FieldErrorMessage:      {"error_message", "Error message", KindText, false},
	FieldLoggedInUser:      {"logged_in_user", "Logged in user", KindText, false},
	FieldURL:               {"url", "URL", KindLink, false},
	FieldPageTitle:         {"page_title", "Page title", KindText, false},
	FieldBrowser:           {"browser", "Browser", KindText, false},
	FieldLoomLink:          {"loom_link", "Screen recording", KindLink, false},
}

// AllFields returns every field in declaration order.
func AllFields() []Field {
	fields := make([]Field, 0, len(fieldSpecs)-1)
	for f := FieldDescription; f <= FieldLoomLink; f++ {
		fields = append(fields, f)
	}
	return fields
}

// RequiredFields returns the fields that must be filled before a summary.
func RequiredFields() []Field {
	var fields []Field
	for _, f := range AllFields() {
		if f.Required() {
			fields = append(fields, f)
		}
	}
	return fields
}

// FieldNames returns the wire names of every field in declaration order.
func FieldNames() []string {
	return fieldNames(AllFields())
}

// ParseField resolves a wire name such as "steps_to_reproduce". Matching is
// case-insensitive and ignores surrounding whitespace.
func ParseField(name string) (Field, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	for _, f := range AllFields() {
		if fieldSpecs[f].name == normalized {
			return f, nil
		}
	}
	return 0, &intakeerrors.ValidationError{
		Field:   "field_name",
		Kind:    intakeerrors.KindUnknownField,
		Value:   name,
		Allowed: FieldNames(),
		Message: "unknown field " + quote(name),
	}
}

// Valid reports whether f is one of the declared fields.
func (f Field) Valid() bool {
	return f >= FieldDescription && f <= FieldLoomLink
}

// String returns the wire name of the field.
func (f Field) String() string {
	if !f.Valid() {
		return "unknown"
	}
	return fieldSpecs[f].name
}

// Label returns the human-readable name used in summaries.
func (f Field) Label() string {
	if !f.Valid() {
		return "Unknown"
	}
	return fieldSpecs[f].label
}

// Kind returns the value shape of the field.
func (f Field) Kind() Kind {
	if !f.Valid() {
		return KindText
	}
	return fieldSpecs[f].kind
}

// Required reports whether the field must be filled before a summary.
func (f Field) Required() bool {
	return f.Valid() && fieldSpecs[f].required
}

func fieldNames(fields []Field) []string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.String()
	}
	return names
}

func quote(s string) string {
	return "'" + s + "'"
}
