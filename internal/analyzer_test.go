package internal

import (
	"testing"

	"github.com/iksnae/agentlog-viewer/testutil"
)

func TestAnalyzer_Exclusion(t *testing.T) {
	headers := []string{"id", "latency", "level", "output"}
	rows := []Row{NewRow(headers, []string{"1", "20", "INFO", "ok"})}

	p := NewAnalyzer().Analyze(rows, headers)
	if p.FilteredColumns != 2 {
		t.Errorf("FilteredColumns = %d, want 2", p.FilteredColumns)
	}
	if p.ExcludedColumns != 2 {
		t.Errorf("ExcludedColumns = %d, want 2", p.ExcludedColumns)
	}
	if _, ok := p.DataTypes["latency"]; ok {
		t.Error("excluded column should not have a data type")
	}
	if p.TotalColumns != 4 || p.TotalRows != 1 {
		t.Errorf("TotalColumns/TotalRows = %d/%d, want 4/1", p.TotalColumns, p.TotalRows)
	}
}

func TestAnalyzer_CustomExclusion(t *testing.T) {
	headers := []string{"id", "Latency", "CostUSD"}
	a := NewAnalyzer(WithExcludedFields([]string{" cost ", ""}))

	if !a.IsExcluded("CostUSD") {
		t.Error("IsExcluded(CostUSD) = false, want true")
	}
	if a.IsExcluded("Latency") {
		t.Error("replaced blocklist should no longer exclude Latency")
	}
	if got := a.FilterHeaders(headers); len(got) != 2 {
		t.Errorf("FilterHeaders() = %v, want 2 headers", got)
	}
}

func TestAnalyzer_SampleDocument(t *testing.T) {
	doc, err := ParseDocument(testutil.AgentLogCSV)
	if err != nil {
		t.Fatalf("ParseDocument() error = %v", err)
	}

	p := NewAnalyzer().Analyze(doc.Rows, doc.Headers)

	if p.RecommendedTemplate != TemplateMultiTurn {
		t.Errorf("RecommendedTemplate = %q, want %q", p.RecommendedTemplate, TemplateMultiTurn)
	}
	if !p.HasMediaURLs {
		t.Error("HasMediaURLs = false, want true")
	}
	if !p.HasTimestamp || !p.HasInput || !p.HasOutput {
		t.Errorf("role flags = %+v", p)
	}
	if len(p.SampleData) != 3 {
		t.Errorf("SampleData length = %d, want 3", len(p.SampleData))
	}

	want := map[string]DataType{
		"id":         DataTypeText,
		"timestamp":  DataTypeTimestamp,
		"turnNumber": DataTypeNumber,
		"input":      DataTypeJSON,
		"output":     DataTypeURL,
	}
	for col, wantType := range want {
		if got := p.DataTypes[col]; got != wantType {
			t.Errorf("DataTypes[%q] = %q, want %q", col, got, wantType)
		}
	}
}

func TestAnalyzer_DataTypes(t *testing.T) {
	tests := []struct {
		name   string
		column string
		values []string
		want   DataType
	}{
		{"all blank", "notes", []string{"", "  "}, DataTypeEmpty},
		{"iso timestamps", "created_time", []string{"2024-01-01T00:00:00Z", "2024-01-02 10:00"}, DataTypeTimestamp},
		{"time header without dates", "time_ms", []string{"12", "15"}, DataTypeNumber},
		{"json object", "meta", []string{"plain", "{\"a\":1}"}, DataTypeJSON},
		{"floats", "score", []string{"1.5", "-2", "3e2"}, DataTypeNumber},
		{"trailing garbage is not a number", "score", []string{"12abc"}, DataTypeText},
		{"nan and inf are text", "grade", []string{"nan", "inf", "Infinity"}, DataTypeText},
		{"url", "link", []string{"see http://x"}, DataTypeURL},
		{"text", "name", []string{"alice"}, DataTypeText},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			headers := []string{tt.column}
			rows := make([]Row, 0, len(tt.values))
			for _, v := range tt.values {
				rows = append(rows, NewRow(headers, []string{v}))
			}
			p := NewAnalyzer().Analyze(rows, headers)
			if got := p.DataTypes[tt.column]; got != tt.want {
				t.Errorf("DataTypes[%q] = %q, want %q", tt.column, got, tt.want)
			}
		})
	}
}

func TestAnalyzer_TypeSampleSize(t *testing.T) {
	headers := []string{"value"}
	rows := []Row{
		NewRow(headers, []string{"1"}),
		NewRow(headers, []string{"2"}),
		NewRow(headers, []string{"abc"}),
	}
	if got := NewAnalyzer(WithTypeSampleSize(2)).Analyze(rows, headers).DataTypes["value"]; got != DataTypeNumber {
		t.Errorf("with sample size 2, DataTypes[value] = %q, want %q", got, DataTypeNumber)
	}
	if got := NewAnalyzer().Analyze(rows, headers).DataTypes["value"]; got != DataTypeText {
		t.Errorf("with default sample size, DataTypes[value] = %q, want %q", got, DataTypeText)
	}
}

func TestAnalyzer_MediaSampleRows(t *testing.T) {
	headers := []string{"output"}
	rows := []Row{
		NewRow(headers, []string{"nothing"}),
		NewRow(headers, []string{"https://" + KnownAgentImagePath + "x.png"}),
	}
	if NewAnalyzer(WithMediaSampleRows(1)).Analyze(rows, headers).HasMediaURLs {
		t.Error("media beyond the sampled rows should not be detected")
	}
	if !NewAnalyzer().Analyze(rows, headers).HasMediaURLs {
		t.Error("media in the second row should be detected by default")
	}
}

func TestRecommendTemplate(t *testing.T) {
	tests := []struct {
		name    string
		profile StructureProfile
		want    Template
	}{
		{"session and turn", StructureProfile{HasSessionID: true, HasTurnNumber: true, HasInput: true, HasOutput: true}, TemplateMultiTurn},
		{"input and output", StructureProfile{HasSessionID: true, HasInput: true, HasOutput: true}, TemplateSingleTurn},
		{"neither", StructureProfile{HasInput: true}, TemplateCustom},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RecommendTemplate(&tt.profile); got != tt.want {
				t.Errorf("RecommendTemplate() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAnalyzer_EmptyRows(t *testing.T) {
	p := NewAnalyzer().Analyze(nil, []string{"a"})
	if p.TotalRows != 0 || len(p.SampleData) != 0 || p.HasMediaURLs {
		t.Errorf("Analyze(nil) = %+v", p)
	}
	if p.DataTypes["a"] != DataTypeEmpty {
		t.Errorf("DataTypes[a] = %q, want %q", p.DataTypes["a"], DataTypeEmpty)
	}
}
