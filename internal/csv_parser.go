package internal

import (
	"strings"
)

// ParseLine splits one CSV line into trimmed fields.
//
// A '"' toggles quoting, except that '""' inside quotes emits a literal quote.
// Commas outside quotes end a field. An unterminated quote is not an error:
// the rest of the line becomes part of the last field. After splitting, one
// layer of enclosing quotes is removed from any field that still has one.
func ParseLine(line string) []string {
	var fields []string
	var current strings.Builder
	inQuotes := false

	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == '"':
			if inQuotes && i+1 < len(line) && line[i+1] == '"' {
				current.WriteByte('"')
				i++
				continue
			}
			inQuotes = !inQuotes
		case c == ',' && !inQuotes:
			fields = append(fields, strings.TrimSpace(current.String()))
			current.Reset()
		default:
			current.WriteByte(c)
		}
	}
	fields = append(fields, strings.TrimSpace(current.String()))

	for i, f := range fields {
		fields[i] = stripEnclosingQuotes(f)
	}
	return fields
}

func stripEnclosingQuotes(field string) string {
	if len(field) >= 2 && field[0] == '"' && field[len(field)-1] == '"' {
		return field[1 : len(field)-1]
	}
	return field
}

const utf8BOM = "\ufeff"

// FormatLine quotes every field and joins them with commas, doubling embedded quotes.
func FormatLine(fields []string) string {
	quoted := make([]string, len(fields))
	for i, f := range fields {
		quoted[i] = `"` + strings.ReplaceAll(f, `"`, `""`) + `"`
	}
	return strings.Join(quoted, ",")
}

// ParseDocument splits CSV text into a header row and data rows.
// A leading UTF-8 byte order mark is dropped. Rows whose field count differs
// from the header are skipped and reported in ParsedDocument.Skipped.
// Fewer than two non-blank lines is a FormatError.
func ParseDocument(content string) (*ParsedDocument, error) {
	content = strings.TrimPrefix(content, utf8BOM)
	lines := strings.Split(content, "\n")

	nonBlank := 0
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			nonBlank++
		}
	}
	if nonBlank < 2 {
		return nil, &FormatError{
			Lines:  nonBlank,
			Reason: "need a header row and at least one data row",
		}
	}

	doc := &ParsedDocument{}
	headerSeen := false
	for i, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		fields := ParseLine(line)
		if !headerSeen {
			doc.Headers = fields
			headerSeen = true
			continue
		}
		if len(fields) != len(doc.Headers) {
			diag := RowDiagnostic{
				Line:   i + 1,
				Fields: len(fields),
				Want:   len(doc.Headers),
				Reason: "field count does not match header",
			}
			LogWarn("Skipping line %d: got %d field(s), want %d", diag.Line, diag.Fields, diag.Want)
			doc.Skipped = append(doc.Skipped, diag)
			continue
		}
		doc.Rows = append(doc.Rows, NewRow(doc.Headers, fields))
	}

	LogDebug("Parsed %d row(s), skipped %d", len(doc.Rows), len(doc.Skipped))
	return doc, nil
}
