package export

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/iksnae/agentlog-viewer/internal"
)

// JSONLExporter exports documents in JSONL format (one record per line)
type JSONLExporter struct{}

type jsonlRecord struct {
	ID          string                    `json:"id"`
	SessionID   string                    `json:"sessionId"`
	UserID      string                    `json:"userId,omitempty"`
	Timestamp   string                    `json:"timestamp,omitempty"`
	Input       string                    `json:"input"`
	Outcome     string                    `json:"outcome"`
	Steps       int                       `json:"steps"`
	InputMedia  []internal.MediaReference `json:"inputMedia,omitempty"`
	OutputMedia []internal.MediaReference `json:"outputMedia,omitempty"`
	Row         internal.Row              `json:"row"`
}

// Export exports a document to JSONL format
func (e *JSONLExporter) Export(doc *Document, w io.Writer) error {
	enc := json.NewEncoder(w)
	columns := doc.Columns

	for _, r := range doc.Records {
		line := jsonlRecord{
			ID:          r.ID,
			SessionID:   r.SessionID,
			UserID:      r.UserID,
			Timestamp:   r.Timestamp,
			Input:       r.Input,
			Outcome:     internal.Outcome(r),
			Steps:       len(r.StepLog.Steps),
			InputMedia:  r.InputMedia,
			OutputMedia: r.OutputMedia,
			Row:         projectRow(r.OriginalRow, columns),
		}

		// Encode to single line
		if err := enc.Encode(line); err != nil {
			return fmt.Errorf("failed to encode record %s: %w", r.ID, err)
		}
	}

	return nil
}

// Extension returns the file extension for this format
func (e *JSONLExporter) Extension() string {
	return "jsonl"
}

// ContentType returns the MIME type for this format
func (e *JSONLExporter) ContentType() string {
	return "application/x-ndjson; charset=utf-8"
}
