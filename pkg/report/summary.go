package report

import (
	"encoding/hex"
	"strings"
	"unicode/utf8"

	"github.com/zeebo/blake3"
)

// DefaultTitleMaxLength is the rune limit for derived titles.
const DefaultTitleMaxLength = 80

// summaryOptional is the fixed order of optional sections. logged_in_user is
// deliberately absent: it identifies the client and issues may be public.
var summaryOptional = []Field{
	FieldErrorMessage,
	FieldURL,
	FieldPageTitle,
	FieldBrowser,
	FieldLoomLink,
}

// Summary is the rendered form of a Record. The same value is shown to the
// client for confirmation and filed as the issue title and body.
type Summary struct {
	Title string
	Body  string
}

// Text returns the display form of the summary.
func (s Summary) Text() string {
	return "Title: " + s.Title + "\n\n" + s.Body
}

// Fingerprint returns a hex BLAKE3 digest of the title and body. Two renders
// of the same record contents have the same fingerprint.
func (s Summary) Fingerprint() string {
	h := blake3.New()
	_, _ = h.Write([]byte(s.Title))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(s.Body))
	return hex.EncodeToString(h.Sum(nil)[:16])
}

// Renderer formats records into summaries.
type Renderer struct {
	TitleMaxLength int
}

// Render formats r with the default renderer.
func Render(r Record) Summary {
	return Renderer{TitleMaxLength: DefaultTitleMaxLength}.Render(r)
}

// Render formats r. Output depends only on the field values of r.
func (rd Renderer) Render(r Record) Summary {
	var b strings.Builder

	b.WriteString("**Type:** " + r.IssueType.Label() + "\n")
	b.WriteString("**Priority:** " + string(r.Priority) + "\n")

	writeSection(&b, FieldDescription.Label(), r.Description)
	writeSection(&b, FieldExpectedBehaviour.Label(), r.ExpectedBehaviour)
	writeSection(&b, FieldStepsToReproduce.Label(), r.StepsToReproduce)

	for _, f := range summaryOptional {
		if v := r.Get(f); v != "" {
			writeSection(&b, f.Label(), v)
		}
	}

	return Summary{
		Title: deriveTitle(r.Description, rd.titleMaxLength()),
		Body:  b.String(),
	}
}

func (rd Renderer) titleMaxLength() int {
	if rd.TitleMaxLength < 4 {
		return DefaultTitleMaxLength
	}
	return rd.TitleMaxLength
}

func writeSection(b *strings.Builder, label, value string) {
	b.WriteString("\n## " + label + "\n")
	b.WriteString(normalizeNewlines(value) + "\n")
}

// deriveTitle takes the first non-empty line of the description, truncated
// to max runes including the ellipsis.
func deriveTitle(description string, max int) string {
	var title string
	for _, line := range strings.Split(normalizeNewlines(description), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			title = line
			break
		}
	}

	if utf8.RuneCountInString(title) <= max {
		return title
	}
	runes := []rune(title)
	return strings.TrimSpace(string(runes[:max-3])) + "..."
}

func normalizeNewlines(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}
