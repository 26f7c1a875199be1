package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"thoreinstein.com/intake/pkg/report"
)

// PromptIntake is the name of the conversation guidance prompt.
const PromptIntake = "bug_intake"

func intakePrompt() mcp.Prompt {
	return mcp.NewPrompt(PromptIntake,
		mcp.WithPromptDescription("Guidance for a voice conversation that turns a client's problem into a ticket"),
	)
}

func (s *Server) handleIntakePrompt(_ context.Context, _ mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	return mcp.NewGetPromptResult(
		"Bug and feature intake conversation",
		[]mcp.PromptMessage{
			mcp.NewPromptMessage(mcp.RoleUser, mcp.NewTextContent(Instructions())),
		},
	), nil
}

// Instructions returns the conversation guidance given to the dialogue agent.
func Instructions() string {
	var b strings.Builder

	b.WriteString(`You help clients report problems with a product and request new features. Guide them through a short spoken conversation and collect what the team needs for a clear, actionable ticket.

## Conversation

1. Greet the client and ask them to describe what happened.
2. Ask clarifying questions until you understand the problem.
3. Gather diagnostic details where relevant: the error message they saw, whether they were logged in and as whom, the URL and page title, and their browser. Only ask what applies.
4. Establish what they expected to happen and the steps that led to the problem.
5. Agree on a priority using the definitions below.
6. Ask whether they have a screen recording. If not, offer send_loom_guidance.
7. Call generate_summary, read the summary back, and ask the client to confirm it.
8. Only after the client agrees, call confirm_report and then submit_report. Tell them the ticket link is on their screen.

## Behaviour

- The client is probably not technical. Be patient and apologise for the trouble.
- You are an assistant that structures the report for a human team.
- Ask one or two questions at a time. Keep replies short; this is a voice call.
- If the client is unsure about priority, ask about impact: is the platform down, is revenue affected, can they still use the tool?
- If the client corrects anything after the summary, save the change and generate a new summary.

## Priorities

`)

	for _, d := range report.PriorityDefinitions {
		fmt.Fprintf(&b, "- %s: %s Response %s, resolution %s.\n", d.Priority, d.Meaning, d.Response, d.Resolve)
	}

	b.WriteString("\n## Fields\n\nSave each answer with save_report_field. Field names: ")
	b.WriteString(strings.Join(report.FieldNames(), ", "))
	b.WriteString(".\nRequired before a summary: ")
	required := report.RequiredFields()
	names := make([]string, len(required))
	for i, f := range required {
		names[i] = f.String()
	}
	b.WriteString(strings.Join(names, ", "))
	b.WriteString(".\npriority is one of Urgent, High, Medium, Low. issue_type is bug or feature_request.\n")
	b.WriteString("Use get_report_status to see what is still missing.\n")

	return b.String()
}
