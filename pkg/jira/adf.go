package jira

import "strings"

// adfDocument represents an Atlassian Document Format document.
// ADF is a nested JSON structure used by Jira Cloud API v3 for rich text fields.
type adfDocument struct {
	Type    string       `json:"type"`
	Version int          `json:"version"`
	Content []adfContent `json:"content"`
}

// adfContent represents a content node in an ADF document.
type adfContent struct {
	Type    string         `json:"type"`
	Text    string         `json:"text,omitempty"`
	Attrs   map[string]any `json:"attrs,omitempty"`
	Marks   []adfMark      `json:"marks,omitempty"`
	Content []adfContent   `json:"content,omitempty"`
}

type adfMark struct {
	Type string `json:"type"`
}

// markdownToADF converts a rendered summary body to ADF. It understands the
// small subset the summary renderer emits: "## " headings, "**Label:**"
// prefixes, and paragraphs separated by blank lines. Line breaks inside a
// paragraph are kept as hard breaks.
func markdownToADF(body string) *adfDocument {
	body = strings.TrimSpace(strings.ReplaceAll(body, "\r\n", "\n"))
	if body == "" {
		return nil
	}

	doc := &adfDocument{Type: "doc", Version: 1}
	var para []adfContent

	flush := func() {
		if len(para) > 0 {
			doc.Content = append(doc.Content, adfContent{Type: "paragraph", Content: para})
			para = nil
		}
	}

	for _, line := range strings.Split(body, "\n") {
		switch {
		case strings.TrimSpace(line) == "":
			flush()
		case strings.HasPrefix(line, "## "):
			flush()
			doc.Content = append(doc.Content, adfContent{
				Type:    "heading",
				Attrs:   map[string]any{"level": 2},
				Content: []adfContent{{Type: "text", Text: strings.TrimPrefix(line, "## ")}},
			})
		default:
			if len(para) > 0 {
				para = append(para, adfContent{Type: "hardBreak"})
			}
			para = append(para, inlineNodes(line)...)
		}
	}
	flush()

	return doc
}

// inlineNodes splits a leading "**bold**" run from the rest of the line.
func inlineNodes(line string) []adfContent {
	if strings.HasPrefix(line, "**") {
		if end := strings.Index(line[2:], "**"); end > 0 {
			bold := line[2 : 2+end]
			rest := line[2+end+2:]
			nodes := []adfContent{{Type: "text", Text: bold, Marks: []adfMark{{Type: "strong"}}}}
			if rest != "" {
				nodes = append(nodes, adfContent{Type: "text", Text: rest})
			}
			return nodes
		}
	}
	return []adfContent{{Type: "text", Text: line}}
}
