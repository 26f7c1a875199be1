// Package tools exposes a report session to a dialogue agent as MCP tools.
//
// The agent owns the conversation; every tool call maps onto one session
// operation. Failures are reported as tool results the agent can act on,
// never as protocol errors.
package tools

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	intakeerrors "thoreinstein.com/intake/pkg/errors"
	"thoreinstein.com/intake/pkg/notify"
	"thoreinstein.com/intake/pkg/report"
)

// Tool names understood by the dialogue agent.
const (
	ToolSaveReportField = "save_report_field"
	ToolGetReportStatus = "get_report_status"
	ToolGenerateSummary = "generate_summary"
	ToolConfirmReport   = "confirm_report"
	ToolSubmitReport    = "submit_report"
	ToolSendText        = "send_text_to_client"
	ToolSendLoomGuide   = "send_loom_guidance"
)

// Server binds one report session to an MCP server.
type Server struct {
	session *report.Session
	name    string
	version string
}

// NewServer creates the MCP server wrapper for session.
func NewServer(session *report.Session, name, version string) *Server {
	return &Server{
		session: session,
		name:    name,
		version: version,
	}
}

// MCPServer returns a configured mcp-go server with all tools and prompts
// registered.
func (s *Server) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer(s.name, s.version,
		server.WithToolCapabilities(true),
		server.WithPromptCapabilities(true),
	)

	srv.AddTool(s.saveReportFieldTool())
	srv.AddTool(s.getReportStatusTool())
	srv.AddTool(s.generateSummaryTool())
	srv.AddTool(s.confirmReportTool())
	srv.AddTool(s.submitReportTool())
	srv.AddTool(s.sendTextTool())
	srv.AddTool(s.sendLoomGuidanceTool())

	srv.AddPrompt(intakePrompt(), s.handleIntakePrompt)

	return srv
}

// ServeStdio runs the stdio transport on in and out, blocking until ctx is
// cancelled or in is closed.
func (s *Server) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	stdioServer := server.NewStdioServer(s.MCPServer())
	return stdioServer.Listen(ctx, in, out)
}

// ---------------------------------------------------------------------------
// Tool definitions and handlers
// ---------------------------------------------------------------------------

func (s *Server) saveReportFieldTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool(ToolSaveReportField,
		mcp.WithDescription("Save a piece of information to the report. Saving a field again replaces the earlier value. "+
			"Changing a field after the summary was generated means the summary must be generated and confirmed again."),
		mcp.WithString("field_name", mcp.Required(),
			mcp.Description("The field to save. Must be one of: "+strings.Join(report.FieldNames(), ", "))),
		mcp.WithString("value", mcp.Required(), mcp.Description("The value to save for this field")),
	)
	return tool, s.handleSaveReportField
}

func (s *Server) handleSaveReportField(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	fieldName, err := request.RequireString("field_name")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: field_name"), nil
	}
	value, err := request.RequireString("value")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: value"), nil
	}

	result, err := s.session.SetFieldByName(fieldName, value)
	if err != nil {
		return mcp.NewToolResultError(intakeerrors.FormatToolError(err)), nil
	}

	text := fmt.Sprintf("Saved %s: %s", result.Field, result.Value)
	if result.Value == "" {
		text = fmt.Sprintf("Cleared %s", result.Field)
	}
	if result.Warning != "" {
		text += "\nNote: " + result.Warning
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) getReportStatusTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool(ToolGetReportStatus,
		mcp.WithDescription("Check the current status of the report. Returns what has been collected and which required fields are still missing."),
	)
	return tool, s.handleGetReportStatus
}

func (s *Server) handleGetReportStatus(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(s.session.Status().String()), nil
}

func (s *Server) generateSummaryTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool(ToolGenerateSummary,
		mcp.WithDescription("Generate the ticket summary from the collected fields and show it on the client's screen. "+
			"Read it back to the client and ask them to confirm it before calling confirm_report."),
	)
	return tool, s.handleGenerateSummary
}

func (s *Server) handleGenerateSummary(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	summary, err := s.session.RequestSummary()
	if err != nil {
		return mcp.NewToolResultError(intakeerrors.FormatToolError(err)), nil
	}

	s.session.Publish(ctx, notify.KindSummary, summary.Text())

	return mcp.NewToolResultText(summary.Text() +
		"\n\nThe summary is on the client's screen. Ask them whether it is correct."), nil
}

func (s *Server) confirmReportTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool(ToolConfirmReport,
		mcp.WithDescription("Record that the client confirmed the latest summary is correct. Only call this after the client has explicitly agreed."),
	)
	return tool, s.handleConfirmReport
}

func (s *Server) handleConfirmReport(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if _, err := s.session.Confirm(); err != nil {
		return mcp.NewToolResultError(intakeerrors.FormatToolError(err)), nil
	}
	return mcp.NewToolResultText("Confirmed. The report is ready to submit."), nil
}

func (s *Server) submitReportTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool(ToolSubmitReport,
		mcp.WithDescription("File the confirmed report as a ticket and return its URL. Safe to call again after a failure."),
	)
	return tool, s.handleSubmitReport
}

func (s *Server) handleSubmitReport(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	url, err := s.session.Submit(ctx)
	if err != nil {
		return mcp.NewToolResultError(intakeerrors.FormatToolError(err)), nil
	}
	return mcp.NewToolResultText("Ticket filed: " + url), nil
}

func (s *Server) sendTextTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool(ToolSendText,
		mcp.WithDescription("Show text on the client's screen, e.g. a link or a detail that is hard to follow by voice."),
		mcp.WithString("text", mcp.Required(), mcp.Description("The text to show")),
	)
	return tool, s.handleSendText
}

func (s *Server) handleSendText(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := request.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: text"), nil
	}
	if strings.TrimSpace(text) == "" {
		return mcp.NewToolResultError("Error: text must not be empty"), nil
	}

	s.session.SendText(ctx, text)
	return mcp.NewToolResultText("Sent to the client's screen."), nil
}

func (s *Server) sendLoomGuidanceTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool(ToolSendLoomGuide,
		mcp.WithDescription("Show the client a guide to recording their screen with Loom. Use it when they have no recording but could make one."),
	)
	return tool, s.handleSendLoomGuidance
}

func (s *Server) handleSendLoomGuidance(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if _, err := s.session.SendGuidance(ctx); err != nil {
		return mcp.NewToolResultError(intakeerrors.FormatToolError(err)), nil
	}
	return mcp.NewToolResultText("Sent the screen recording guide to the client's screen."), nil
}
