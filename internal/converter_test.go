package internal

import (
	"reflect"
	"strings"
	"testing"

	"github.com/iksnae/agentlog-viewer/testutil"
)

func convertSample(t *testing.T) []*StandardRecord {
	t.Helper()
	doc, err := ParseDocument(testutil.AgentLogCSV)
	if err != nil {
		t.Fatalf("ParseDocument() error = %v", err)
	}
	return NewConverter(nil, nil).Convert(doc.Rows)
}

func TestConverter_Convert(t *testing.T) {
	records := convertSample(t)
	if len(records) != 3 {
		t.Fatalf("Convert() returned %d records, want 3", len(records))
	}

	r1 := records[0]
	if r1.ID != "r1" || r1.SessionID != "s1" || r1.UserID != "u1" || r1.Timestamp != "2024-05-01 10:00:05" {
		t.Errorf("record 0 identity fields = %+v", r1)
	}
	if r1.Input != "make it blue" {
		t.Errorf("record 0 Input = %q, want %q", r1.Input, "make it blue")
	}
	if len(r1.InputMedia) != 0 {
		t.Errorf("record 0 InputMedia = %+v, want none", r1.InputMedia)
	}
	if !r1.StepLog.HasSteps || r1.StepLog.Steps[0].Tool != "terminate" {
		t.Errorf("record 0 StepLog = %+v", r1.StepLog)
	}

	r2 := records[1]
	if r2.Input != "draw a cat" {
		t.Errorf("record 1 Input = %q, want %q", r2.Input, "draw a cat")
	}
	if len(r2.InputMedia) != 1 || r2.InputMedia[0].URL != "https://example.com/ref.jpg" {
		t.Errorf("record 1 InputMedia = %+v", r2.InputMedia)
	}
	if len(r2.OutputMedia) != 1 || r2.OutputMedia[0].Source != "pattern_1" {
		t.Errorf("record 1 OutputMedia = %+v", r2.OutputMedia)
	}

	r3 := records[2]
	if r3.SessionID != "" {
		t.Errorf("record 2 SessionID = %q, want empty", r3.SessionID)
	}
	if r3.Input != "hello" {
		t.Errorf("record 2 Input = %q, want raw input", r3.Input)
	}
	if r3.OriginalRow.Get("level") != "DEBUG" {
		t.Errorf("record 2 OriginalRow should keep every column, got %v", r3.OriginalRow.Values())
	}
}

func TestConverter_MissingColumns(t *testing.T) {
	rec := NewConverter(nil, nil).ConvertRow(CreateTestRow("foo", "bar"))
	if rec.ID != "" || rec.Timestamp != "" || rec.SessionID != "" || rec.Input != "" || rec.Output != "" {
		t.Errorf("ConvertRow() = %+v, want empty fields", rec)
	}
	if rec.InputMedia == nil || rec.OutputMedia == nil || rec.StepLog.Steps == nil {
		t.Error("ConvertRow() collections should be empty, not nil")
	}
}

func TestConverter_Idempotent(t *testing.T) {
	doc, err := ParseDocument(testutil.AgentLogCSV)
	if err != nil {
		t.Fatalf("ParseDocument() error = %v", err)
	}
	c := NewConverter(nil, nil)
	for i, row := range doc.Rows {
		first := c.ConvertRow(row)
		second := c.ConvertRow(row)
		if !reflect.DeepEqual(first, second) {
			t.Errorf("row %d: ConvertRow() not idempotent:\n%+v\n%+v", i, first, second)
		}
	}
}

func TestOutcome(t *testing.T) {
	records := convertSample(t)

	tests := []struct {
		name   string
		record *StandardRecord
		want   string
	}{
		{"terminate step", records[0], "✅ Task completed"},
		{"generation step", records[1], "🎨 Generated image: Navo_image_generate"},
		{"plain output", records[2], "plain answer"},
		{"empty output", &StandardRecord{}, "No result"},
		{"titled link", &StandardRecord{Output: "Navo has generated [Sunset]: https://x/y.png"}, "🎨 Generated: Sunset"},
		{"generated by", &StandardRecord{Output: "Image has been generated by Navo: https://x/y.png"}, "🎨 Generated image: Navo"},
		{"success keyword", &StandardRecord{Output: "upload success"}, "✅ Task completed"},
		{
			"steps without terminate",
			&StandardRecord{Output: "x", StepLog: StepLog{HasSteps: true, Steps: []StepRecord{{StepNumber: 1}, {StepNumber: 2}}}},
			"Completed 2 steps",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Outcome(tt.record); got != tt.want {
				t.Errorf("Outcome() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOutcome_Truncates(t *testing.T) {
	long := strings.Repeat("a", 150)
	got := Outcome(&StandardRecord{Output: long})
	if got != strings.Repeat("a", 100)+"..." {
		t.Errorf("Outcome() = %q, want 100 runes plus ellipsis", got)
	}
}
