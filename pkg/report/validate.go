package report

import (
	"regexp"
	"strings"

	intakeerrors "thoreinstein.com/intake/pkg/errors"
)

// Validated is a normalized field value. Warning is set when the value was
// accepted but looks suspicious.
type Validated struct {
	Value   string
	Warning string
}

// schemePrefix matches "https://", "loom://" and similar prefixes.
var schemePrefix = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.-]*://`)

// Validate checks raw against the rules for f and returns the normalized
// value. It has no side effects.
func Validate(f Field, raw string) (Validated, error) {
	if !f.Valid() {
		return Validated{}, &intakeerrors.ValidationError{
			Field:   "field_name",
			Kind:    intakeerrors.KindUnknownField,
			Value:   f.String(),
			Allowed: FieldNames(),
			Message: "unknown field",
		}
	}

	switch f.Kind() {
	case KindPriority:
		return validatePriority(f, raw)
	case KindIssueType:
		return validateIssueType(f, raw)
	case KindLink:
		return validateLink(f, raw)
	default:
		return validateText(f, raw)
	}
}

func validateText(f Field, raw string) (Validated, error) {
	value := strings.TrimSpace(raw)
	if value == "" && f.Required() {
		return Validated{}, intakeerrors.NewValidationError(f.String(), intakeerrors.KindEmptyValue, raw,
			"a value is required")
	}
	return Validated{Value: value}, nil
}

func validatePriority(f Field, raw string) (Validated, error) {
	p, ok := ParsePriority(raw)
	if !ok {
		return Validated{}, intakeerrors.NewEnumError(f.String(), raw, priorityNames())
	}
	return Validated{Value: string(p)}, nil
}

func validateIssueType(f Field, raw string) (Validated, error) {
	t, ok := ParseIssueType(raw)
	if !ok {
		return Validated{}, intakeerrors.NewEnumError(f.String(), raw, issueTypeNames())
	}
	return Validated{Value: string(t)}, nil
}

// validateLink stores links as given. Clients paste partial or shortened
// links, so a missing scheme only produces a warning.
func validateLink(f Field, raw string) (Validated, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return Validated{}, nil
	}
	if !schemePrefix.MatchString(value) {
		return Validated{
			Value:   value,
			Warning: f.String() + " does not look like a full link; saved as given",
		}, nil
	}
	return Validated{Value: value}, nil
}
