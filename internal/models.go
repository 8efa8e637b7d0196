package internal

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Row is one parsed data line mapped to column names, in header order.
type Row struct {
	headers []string
	values  []string
}

// NewRow zips headers and values positionally. Both slices must have equal length.
func NewRow(headers, values []string) Row {
	h := make([]string, len(headers))
	v := make([]string, len(values))
	copy(h, headers)
	copy(v, values)
	return Row{headers: h, values: v}
}

// RowFromMap builds a Row from a map using the given column order.
// Columns missing from the map get an empty value.
func RowFromMap(headers []string, m map[string]string) Row {
	values := make([]string, len(headers))
	for i, h := range headers {
		values[i] = m[h]
	}
	return NewRow(headers, values)
}

// Get returns the value of the named column, or "" if the column is absent.
// When a header repeats, the last occurrence wins.
func (r Row) Get(name string) string {
	for i := len(r.headers) - 1; i >= 0; i-- {
		if r.headers[i] == name {
			return r.values[i]
		}
	}
	return ""
}

// Has reports whether the row carries the named column.
func (r Row) Has(name string) bool {
	for _, h := range r.headers {
		if h == name {
			return true
		}
	}
	return false
}

// Headers returns a copy of the column names.
func (r Row) Headers() []string {
	return append([]string(nil), r.headers...)
}

// Values returns a copy of the field values.
func (r Row) Values() []string {
	return append([]string(nil), r.values...)
}

// Len returns the number of fields.
func (r Row) Len() int {
	return len(r.values)
}

// MarshalJSON writes the row as an object whose keys keep header order.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, h := range r.headers {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(h)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(r.values[i])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an object back into a Row, preserving key order.
func (r *Row) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("row must be a JSON object")
	}
	r.headers = nil
	r.values = nil
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("row key must be a string")
		}
		var value string
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("row field %q: %w", key, err)
		}
		r.headers = append(r.headers, key)
		r.values = append(r.values, value)
	}
	_, err = dec.Token()
	return err
}

// MarshalYAML writes the row as an ordered mapping node.
func (r Row) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for i, h := range r.headers {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: h},
			&yaml.Node{Kind: yaml.ScalarNode, Value: r.values[i], Style: yaml.DoubleQuotedStyle},
		)
	}
	return node, nil
}

// ParsedDocument is the header row plus every well-formed data row.
type ParsedDocument struct {
	Headers []string        `json:"headers"`
	Rows    []Row           `json:"rows"`
	Skipped []RowDiagnostic `json:"skipped,omitempty"`
}

// RowDiagnostic describes a data line that was dropped during parsing.
type RowDiagnostic struct {
	Line   int    `json:"line"` // 1-based line number in the source text
	Fields int    `json:"fields"`
	Want   int    `json:"want"`
	Reason string `json:"reason"`
}

// DataType is the inferred type tag of a column.
type DataType string

const (
	DataTypeEmpty     DataType = "empty"
	DataTypeTimestamp DataType = "timestamp"
	DataTypeJSON      DataType = "json"
	DataTypeNumber    DataType = "number"
	DataTypeURL       DataType = "url"
	DataTypeText      DataType = "text"
)

// Template names a rendering layout.
type Template string

const (
	TemplateMultiTurn  Template = "multi-turn"
	TemplateSingleTurn Template = "single-turn"
	TemplateCustom     Template = "custom"
)

// ParseTemplate validates a template name.
func ParseTemplate(name string) (Template, error) {
	switch t := Template(name); t {
	case TemplateMultiTurn, TemplateSingleTurn, TemplateCustom:
		return t, nil
	default:
		return "", fmt.Errorf("unsupported template: %s (supported: single-turn, multi-turn, custom)", name)
	}
}

// StructureProfile summarizes the shape of a parsed document.
type StructureProfile struct {
	TotalRows           int                 `json:"totalRows" yaml:"total_rows"`
	TotalColumns        int                 `json:"totalColumns" yaml:"total_columns"`
	FilteredColumns     int                 `json:"filteredColumns" yaml:"filtered_columns"`
	ExcludedColumns     int                 `json:"excludedColumns" yaml:"excluded_columns"`
	HasSessionID        bool                `json:"hasSessionId" yaml:"has_session_id"`
	HasTurnNumber       bool                `json:"hasTurnNumber" yaml:"has_turn_number"`
	HasTimestamp        bool                `json:"hasTimestamp" yaml:"has_timestamp"`
	HasInput            bool                `json:"hasInput" yaml:"has_input"`
	HasOutput           bool                `json:"hasOutput" yaml:"has_output"`
	HasMediaURLs        bool                `json:"hasMediaUrls" yaml:"has_media_urls"`
	DataTypes           map[string]DataType `json:"dataTypes" yaml:"data_types"`
	SampleData          []Row               `json:"sampleData" yaml:"sample_data"`
	RecommendedTemplate Template            `json:"recommendedTemplate" yaml:"recommended_template"`
}

// MediaType classifies a media reference.
type MediaType string

const (
	MediaImage    MediaType = "image"
	MediaVideo    MediaType = "video"
	MediaDocument MediaType = "document"
)

// MediaReference points at an image, video or document URL found in free text.
type MediaReference struct {
	Type   MediaType `json:"type" yaml:"type"`
	URL    string    `json:"url" yaml:"url"`
	Source string    `json:"source,omitempty" yaml:"source,omitempty"` // rule that produced the match
}

// StepRecord is one labeled step mined from an agent trace.
type StepRecord struct {
	StepNumber  int      `json:"stepNumber" yaml:"step_number"`
	Tool        string   `json:"tool,omitempty" yaml:"tool,omitempty"`
	Content     string   `json:"content" yaml:"content"`
	ToolOutput  string   `json:"toolOutput,omitempty" yaml:"tool_output,omitempty"`
	FullContent string   `json:"fullContent" yaml:"full_content"`
	Highlights  []string `json:"highlights,omitempty" yaml:"highlights,omitempty"`
}

// StepLog is the ordered step sequence of one agent output.
type StepLog struct {
	Steps    []StepRecord `json:"steps" yaml:"steps"`
	HasSteps bool         `json:"hasSteps" yaml:"has_steps"`
	Summary  string       `json:"summary" yaml:"summary"`
}

// StandardRecord is one normalized conversational turn.
type StandardRecord struct {
	ID          string           `json:"id" yaml:"id"`
	Timestamp   string           `json:"timestamp" yaml:"timestamp"`
	UserID      string           `json:"userId" yaml:"user_id"`
	SessionID   string           `json:"sessionId" yaml:"session_id"`
	Input       string           `json:"input" yaml:"input"`
	Output      string           `json:"output" yaml:"output"`
	StepLog     StepLog          `json:"stepLog" yaml:"step_log"`
	InputMedia  []MediaReference `json:"inputMedia" yaml:"input_media"`
	OutputMedia []MediaReference `json:"outputMedia" yaml:"output_media"`
	OriginalRow Row              `json:"originalRow" yaml:"original_row"`
}

// UnknownSessionID is the bucket for records without a session identifier.
const UnknownSessionID = "unknown"

// Session is a conversation thread ordered by time.
type Session struct {
	SessionID string            `json:"sessionId" yaml:"session_id"`
	UserID    string            `json:"userId" yaml:"user_id"`
	Turns     []*StandardRecord `json:"turns" yaml:"turns"`
}
