package notify

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
)

var (
	textHeader     = color.New(color.FgHiCyan, color.Bold).SprintFunc()
	summaryHeader  = color.New(color.FgHiBlue, color.Bold).SprintFunc()
	guidanceHeader = color.New(color.FgHiYellow, color.Bold).SprintFunc()
	issueHeader    = color.New(color.FgHiGreen, color.Bold).SprintFunc()
)

// Writer prints notifications to a terminal or any other io.Writer.
type Writer struct {
	mu  sync.Mutex
	out io.Writer
}

// NewWriter creates a Writer that prints to out.
func NewWriter(out io.Writer) *Writer {
	return &Writer{out: out}
}

// Notify prints a colored header line followed by the text.
func (w *Writer) Notify(_ context.Context, n Notification) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := fmt.Fprintf(w.out, "%s\n%s\n\n", header(n.Kind), n.Text); err != nil {
		return err
	}
	return nil
}

func header(kind Kind) string {
	switch kind {
	case KindSummary:
		return summaryHeader("== Summary ==")
	case KindGuidance:
		return guidanceHeader("== Screen recording ==")
	case KindIssue:
		return issueHeader("== Ticket filed ==")
	default:
		return textHeader("== Message ==")
	}
}
