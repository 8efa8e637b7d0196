package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/iksnae/agentlog-viewer/internal"
)

// MarkdownExporter exports documents in Markdown format
type MarkdownExporter struct{}

// Export exports a document to Markdown format
func (e *MarkdownExporter) Export(doc *Document, w io.Writer) error {
	// Header
	title := doc.Filename
	if title == "" {
		title = "Agent logs"
	}
	_, _ = fmt.Fprintf(w, "# %s\n\n", title)
	_, _ = fmt.Fprintf(w, "**Template:** %s  \n", doc.Template)
	_, _ = fmt.Fprintf(w, "**Records:** %d  \n", len(doc.Records))
	if doc.Template == internal.TemplateMultiTurn {
		_, _ = fmt.Fprintf(w, "**Sessions:** %d  \n", len(doc.Sessions))
	}
	if !doc.GeneratedAt.IsZero() {
		_, _ = fmt.Fprintf(w, "**Generated:** %s  \n", doc.GeneratedAt.Format("2006-01-02 15:04:05"))
	}
	_, _ = fmt.Fprintf(w, "\n---\n\n")

	switch doc.Template {
	case internal.TemplateMultiTurn:
		for _, s := range doc.Sessions {
			_, _ = fmt.Fprintf(w, "## Session %s\n\n", s.SessionID)
			if s.UserID != "" {
				_, _ = fmt.Fprintf(w, "**User:** %s  \n", s.UserID)
			}
			_, _ = fmt.Fprintf(w, "**Turns:** %d\n\n", len(s.Turns))
			for i, r := range s.Turns {
				writeRecord(w, fmt.Sprintf("### Turn %d", i+1), r)
			}
		}
	case internal.TemplateCustom:
		writeTable(w, columnsFor(doc), doc.Records)
	default:
		_, _ = fmt.Fprintf(w, "## Records\n\n")
		for i, r := range doc.Records {
			writeRecord(w, fmt.Sprintf("### %d. %s", i+1, r.ID), r)
			// Add horizontal rule after each record (except the last one)
			if i < len(doc.Records)-1 {
				_, _ = fmt.Fprintf(w, "---\n\n")
			}
		}
	}

	return nil
}

func writeRecord(w io.Writer, heading string, r *internal.StandardRecord) {
	timestamp := ""
	if r.Timestamp != "" {
		timestamp = fmt.Sprintf(" (%s)", r.Timestamp)
	}
	_, _ = fmt.Fprintf(w, "%s%s\n\n", heading, timestamp)
	_, _ = fmt.Fprintf(w, "**Input:**\n\n%s\n\n", escapeMarkdown(r.Input))
	_, _ = fmt.Fprintf(w, "**Outcome:** %s\n\n", internal.Outcome(r))

	if r.StepLog.HasSteps {
		_, _ = fmt.Fprintf(w, "**Steps:** %s\n\n", r.StepLog.Summary)
		for _, s := range r.StepLog.Steps {
			_, _ = fmt.Fprintf(w, "%d. %s\n", s.StepNumber, escapeMarkdown(firstLine(s.Content)))
		}
		_, _ = fmt.Fprintln(w)
	}

	media := append(append([]internal.MediaReference{}, r.InputMedia...), r.OutputMedia...)
	for _, m := range media {
		if m.Type == internal.MediaImage {
			_, _ = fmt.Fprintf(w, "![%s](%s)\n", m.Type, m.URL)
		} else {
			_, _ = fmt.Fprintf(w, "- [%s](%s)\n", m.Type, m.URL)
		}
	}
	if len(media) > 0 {
		_, _ = fmt.Fprintln(w)
	}
}

func writeTable(w io.Writer, columns []string, records []*internal.StandardRecord) {
	if len(columns) == 0 {
		return
	}
	_, _ = fmt.Fprintf(w, "| %s |\n", strings.Join(columns, " | "))
	_, _ = fmt.Fprintf(w, "|%s\n", strings.Repeat(" --- |", len(columns)))
	for _, r := range records {
		cells := make([]string, len(columns))
		for i, c := range columns {
			cells[i] = escapeCell(r.OriginalRow.Get(c))
		}
		_, _ = fmt.Fprintf(w, "| %s |\n", strings.Join(cells, " | "))
	}
	_, _ = fmt.Fprintln(w)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	s = strings.ReplaceAll(s, "\r\n", "<br>")
	return strings.ReplaceAll(s, "\n", "<br>")
}

// escapeMarkdown escapes markdown special characters
func escapeMarkdown(text string) string {
	// Basic escaping - preserve code blocks
	lines := strings.Split(text, "\n")
	var result []string
	inCodeBlock := false

	for _, line := range lines {
		if strings.HasPrefix(line, "```") {
			inCodeBlock = !inCodeBlock
			result = append(result, line)
		} else if inCodeBlock {
			result = append(result, line)
		} else {
			// Escape markdown syntax outside code blocks
			line = strings.ReplaceAll(line, "**", "\\*\\*")
			line = strings.ReplaceAll(line, "__", "\\_\\_")
			result = append(result, line)
		}
	}

	return strings.Join(result, "\n")
}

// Extension returns the file extension for this format
func (e *MarkdownExporter) Extension() string {
	return "md"
}

// ContentType returns the MIME type for this format
func (e *MarkdownExporter) ContentType() string {
	return "text/markdown; charset=utf-8"
}
