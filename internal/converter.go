package internal

import (
	"fmt"
	"regexp"
	"strings"
)

// Converter turns parsed rows into StandardRecords.
type Converter struct {
	media *MediaExtractor
	steps *StepParser
}

// NewConverter creates a Converter. Nil collaborators get the defaults.
func NewConverter(media *MediaExtractor, steps *StepParser) *Converter {
	if media == nil {
		media = NewMediaExtractor(DefaultMediaConfig())
	}
	if steps == nil {
		steps = NewStepParser(DefaultStepConfig())
	}
	return &Converter{media: media, steps: steps}
}

// Convert converts every row, preserving order.
func (c *Converter) Convert(rows []Row) []*StandardRecord {
	records := make([]*StandardRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, c.ConvertRow(row))
	}
	LogDebug("Converted %d rows to records", len(records))
	return records
}

// ConvertRow converts one row. The result depends only on the row.
func (c *Converter) ConvertRow(row Row) *StandardRecord {
	input := DecodeUserInput(row.Get(ColumnInput))
	output := row.Get(ColumnOutput)

	return &StandardRecord{
		ID:          row.Get(ColumnID),
		Timestamp:   row.Get(ColumnTimestamp),
		UserID:      row.Get(ColumnUserID),
		SessionID:   row.Get(ColumnSessionID),
		Input:       input.Text(),
		Output:      output,
		StepLog:     c.steps.Parse(output),
		InputMedia:  input.Media(),
		OutputMedia: c.media.Extract(output),
		OriginalRow: row,
	}
}

const outcomeRunes = 100

var (
	bracketTitle    = regexp.MustCompile(`\[([^\]]+)\]`)
	titledImageLink = regexp.MustCompile(`\[([^\]]+)\]: (https://\S+)`)
	generatedBy     = regexp.MustCompile(`Image has been generated by ([^:]+): (https://[^\s,]+)`)
	generationTools = map[string]bool{"Navo_image_generate": true, "image_generate": true}
)

// Outcome returns a short label for the final result of a turn.
func Outcome(r *StandardRecord) string {
	if r.Output == "" {
		return "No result"
	}

	if r.StepLog.HasSteps {
		for _, step := range r.StepLog.Steps {
			if !generationTools[step.Tool] {
				continue
			}
			if m := bracketTitle.FindStringSubmatch(step.ToolOutput); m != nil {
				return "🎨 Generated image: " + m[1]
			}
			return "🎨 Generated image: " + step.Tool
		}
		for _, step := range r.StepLog.Steps {
			if step.Tool == "terminate" {
				return "✅ Task completed"
			}
		}
		return fmt.Sprintf("Completed %d steps", len(r.StepLog.Steps))
	}

	out := r.Output
	if strings.Contains(out, "has generated") || strings.Contains(out, "生成") || strings.Contains(out, "Image has been generated") {
		if m := titledImageLink.FindStringSubmatch(out); m != nil {
			return "🎨 Generated: " + m[1]
		}
		if m := generatedBy.FindStringSubmatch(out); m != nil {
			return "🎨 Generated image: " + strings.TrimSpace(m[1])
		}
	}
	if strings.Contains(out, "success") || strings.Contains(out, "completed") {
		return "✅ Task completed"
	}
	return Truncate(out, outcomeRunes)
}

// Truncate shortens s to n runes, adding "..." when it cuts.
func Truncate(s string, n int) string {
	t := truncateRunes(s, n)
	if t == s {
		return s
	}
	return t + "..."
}
