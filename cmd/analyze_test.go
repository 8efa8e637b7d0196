package cmd

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/iksnae/agentlog-viewer/internal"
	"github.com/iksnae/agentlog-viewer/testutil"
)

func TestAnalyzeCommand_JSON(t *testing.T) {
	dir := setupCLI(t)
	path := writeAgentLog(t, dir)

	out, err := executeCommand(t, "analyze", path, "--json")
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}

	var report struct {
		Filename string                    `json:"filename"`
		Headers  []string                  `json:"headers"`
		Analysis internal.StructureProfile `json:"analysis"`
		Skipped  []internal.RowDiagnostic  `json:"skipped"`
	}
	testutil.DecodeJSON(t, out, &report)

	if report.Filename != "logs.csv" {
		t.Errorf("Filename = %q, want logs.csv", report.Filename)
	}
	if len(report.Headers) != 9 {
		t.Errorf("len(Headers) = %d, want 9", len(report.Headers))
	}
	if report.Analysis.TotalRows != 3 {
		t.Errorf("TotalRows = %d, want 3", report.Analysis.TotalRows)
	}
	if report.Analysis.ExcludedColumns != 2 {
		t.Errorf("ExcludedColumns = %d, want 2", report.Analysis.ExcludedColumns)
	}
	if report.Analysis.RecommendedTemplate != internal.TemplateMultiTurn {
		t.Errorf("RecommendedTemplate = %q, want %q", report.Analysis.RecommendedTemplate, internal.TemplateMultiTurn)
	}
	if report.Skipped == nil || len(report.Skipped) != 0 {
		t.Errorf("Skipped = %v, want empty list", report.Skipped)
	}
}

func TestAnalyzeCommand_Text(t *testing.T) {
	dir := setupCLI(t)
	path := testutil.WriteCSVFixture(t, dir, "single.csv", testutil.SingleTurnCSV+"broken,row\n")

	out, err := executeCommand(t, "analyze", path)
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}

	for _, want := range []string{"single.csv", "Recommended template", "single-turn", "Column", "input", "line 4"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestAnalyzeCommand_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		missing bool
	}{
		{name: "header only", content: testutil.HeaderOnlyCSV},
		{name: "missing file", missing: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := setupCLI(t)
			path := dir + "/absent.csv"
			if !tt.missing {
				path = testutil.WriteCSVFixture(t, dir, "bad.csv", tt.content)
			}

			_, err := executeCommand(t, "analyze", path)
			if err == nil {
				t.Fatal("expected error")
			}
			var formatErr *internal.FormatError
			if got := errors.As(err, &formatErr); got == tt.missing {
				t.Errorf("errors.As(FormatError) = %v for %v", got, err)
			}
		})
	}
}

func TestPrintProfile_ExcludedColumns(t *testing.T) {
	proc := internal.NewProcessor(internal.DefaultConfig())
	doc, err := proc.Parse(testutil.AgentLogCSV)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	var buf bytes.Buffer
	printProfile(&buf, "logs.csv", doc, proc.Analyze(doc))
	out := buf.String()

	if strings.Count(out, "excluded") != 2 {
		t.Errorf("want latency and level marked excluded:\n%s", out)
	}
	if !strings.Contains(out, "multi-turn") {
		t.Errorf("output missing recommended template:\n%s", out)
	}
}
