package errors

import (
	"fmt"
	"strings"
)

// FormatUserError returns a user-friendly error message with actionable guidance.
// It examines the error chain and provides context-appropriate help text.
func FormatUserError(err error) string {
	if err == nil {
		return ""
	}

	var configErr *ConfigError
	if As(err, &configErr) {
		return formatConfigError(configErr)
	}

	var trackerErr *TrackerError
	if As(err, &trackerErr) {
		return formatTrackerError(trackerErr)
	}

	var incomplete *IncompleteRecordError
	if As(err, &incomplete) {
		return fmt.Sprintf("The report is missing required fields: %s\n\nAdd them to the draft and run the command again.\n",
			strings.Join(incomplete.Missing, ", "))
	}

	return err.Error()
}

// FormatToolError returns a short message for the dialogue layer. It tells the
// agent what went wrong in terms it can relay to the client or act on with a
// follow-up question.
func FormatToolError(err error) string {
	if err == nil {
		return ""
	}

	var validation *ValidationError
	if As(err, &validation) {
		switch validation.Kind {
		case KindUnknownField:
			return fmt.Sprintf("Error: '%s' is not a valid field. Valid fields are: %s",
				validation.Value, strings.Join(validation.Allowed, ", "))
		case KindInvalidEnumValue:
			return fmt.Sprintf("Error: %s must be one of: %s. Got: %s",
				validation.Field, strings.Join(validation.Allowed, ", "), validation.Value)
		default:
			return fmt.Sprintf("Error: %s. Ask the client to rephrase.", validation.Error())
		}
	}

	var incomplete *IncompleteRecordError
	if As(err, &incomplete) {
		return "Cannot summarise yet. Still needed (required): " + strings.Join(incomplete.Missing, ", ")
	}

	var stale *StaleMutationError
	if As(err, &stale) {
		return "Error: " + stale.Error() + "."
	}

	var submission *SubmissionError
	if As(err, &submission) {
		var b strings.Builder
		b.WriteString("The ticket could not be filed")
		var trackerErr *TrackerError
		if As(submission.Cause, &trackerErr) {
			fmt.Fprintf(&b, ": %s", trackerErr.Message)
		} else if submission.Cause != nil {
			fmt.Fprintf(&b, ": %v", submission.Cause)
		}
		b.WriteString(". Let the client know and offer to try again; calling submit_report again is safe.")
		return b.String()
	}

	var transition *InvalidTransitionError
	if As(err, &transition) {
		return "Internal error: " + transition.Error()
	}

	return "Error: " + err.Error()
}

// formatConfigError formats a ConfigError with actionable guidance.
func formatConfigError(err *ConfigError) string {
	var b strings.Builder

	if err.Field != "" {
		fmt.Fprintf(&b, "Configuration error in '%s': %s\n", err.Field, err.Message)
	} else {
		fmt.Fprintf(&b, "Configuration error: %s\n", err.Message)
	}

	b.WriteString("\nTo fix this:\n")
	b.WriteString("  • Check your config file: ~/.config/intake/config.toml\n")
	b.WriteString("  • Run 'intake config init' to write a default file\n")

	if err.Cause != nil {
		fmt.Fprintf(&b, "\nUnderlying error: %v", err.Cause)
	}

	return b.String()
}

// formatTrackerError formats a TrackerError with actionable guidance based on status code.
func formatTrackerError(err *TrackerError) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s error during %s: %s\n", trackerDisplayName(err.Tracker), err.Operation, err.Message)

	switch err.StatusCode {
	case 401:
		b.WriteString("\nAuthentication failed. To fix this:\n")
		if err.Tracker == "jira" {
			b.WriteString("  • Set the JIRA_TOKEN environment variable\n")
			b.WriteString("  • Verify jira.email matches the token owner\n")
		} else {
			b.WriteString("  • Run 'intake auth login' to store a GitHub token\n")
			b.WriteString("  • Or set the INTAKE_GITHUB_TOKEN environment variable\n")
		}

	case 403:
		b.WriteString("\nPermission denied. To fix this:\n")
		b.WriteString("  • Ensure the token can create issues in the target project\n")

	case 404:
		b.WriteString("\nProject not found. To fix this:\n")
		b.WriteString("  • Verify github.repository or jira.project in your config\n")

	case 410:
		b.WriteString("\nIssues are disabled for this repository.\n")

	case 422, 400:
		b.WriteString("\nThe tracker rejected the request. To fix this:\n")
		b.WriteString("  • Check that the labels and issue types exist in the project\n")

	case 429:
		b.WriteString("\nRate limit exceeded. Wait a few minutes before retrying.\n")

	case 500, 502, 503, 504:
		b.WriteString("\nTracker server error. The issue may or may not have been created;\n")
		b.WriteString("retrying checks for an existing issue first.\n")
	}

	if err.Retryable {
		b.WriteString("\nThis error may be temporary. You can try submitting again.\n")
	}

	if err.Cause != nil {
		fmt.Fprintf(&b, "\nUnderlying error: %v", err.Cause)
	}

	return b.String()
}

func trackerDisplayName(name string) string {
	switch name {
	case "github":
		return "GitHub"
	case "jira":
		return "Jira"
	case "":
		return "Tracker"
	default:
		return name
	}
}
