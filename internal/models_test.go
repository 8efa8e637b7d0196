package internal

import (
	"encoding/json"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestRow_Get(t *testing.T) {
	row := NewRow([]string{"id", "input", "id"}, []string{"1", "hello", "2"})

	if got := row.Get("input"); got != "hello" {
		t.Errorf("Get(input) = %v, want hello", got)
	}
	if got := row.Get("id"); got != "2" {
		t.Errorf("Get(id) = %v, want 2 (last occurrence)", got)
	}
	if got := row.Get("missing"); got != "" {
		t.Errorf("Get(missing) = %q, want empty", got)
	}
	if !row.Has("input") || row.Has("missing") {
		t.Error("Has() reported wrong presence")
	}
	if row.Len() != 3 {
		t.Errorf("Len() = %d, want 3", row.Len())
	}
}

func TestRow_Immutable(t *testing.T) {
	headers := []string{"a"}
	values := []string{"x"}
	row := NewRow(headers, values)
	values[0] = "changed"

	if got := row.Get("a"); got != "x" {
		t.Errorf("Row should not alias its input slice, got %q", got)
	}

	vals := row.Values()
	vals[0] = "mutated"
	if got := row.Get("a"); got != "x" {
		t.Errorf("Values() should return a copy, got %q", got)
	}
}

func TestRow_JSONKeepsOrder(t *testing.T) {
	row := NewRow([]string{"z", "a", "m"}, []string{"1", "2", "3"})

	data, err := json.Marshal(row)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(data) != `{"z":"1","a":"2","m":"3"}` {
		t.Errorf("Marshal() = %s, want header order", data)
	}

	var back Row
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if strings.Join(back.Headers(), ",") != "z,a,m" {
		t.Errorf("Unmarshal() headers = %v, want [z a m]", back.Headers())
	}
	if back.Get("m") != "3" {
		t.Errorf("Unmarshal() m = %q, want 3", back.Get("m"))
	}
}

func TestRow_UnmarshalRejectsNonObject(t *testing.T) {
	var row Row
	if err := json.Unmarshal([]byte(`["a"]`), &row); err == nil {
		t.Error("Unmarshal() should reject arrays")
	}
}

func TestRow_YAMLKeepsOrder(t *testing.T) {
	row := NewRow([]string{"b", "a"}, []string{"2", "1"})

	data, err := yaml.Marshal(row)
	if err != nil {
		t.Fatalf("yaml.Marshal() error = %v", err)
	}
	out := string(data)
	if strings.Index(out, "b:") > strings.Index(out, "a:") {
		t.Errorf("yaml output should keep header order, got:\n%s", out)
	}
}

func TestParseTemplate(t *testing.T) {
	tests := []struct {
		name    string
		want    Template
		wantErr bool
	}{
		{"multi-turn", TemplateMultiTurn, false},
		{"single-turn", TemplateSingleTurn, false},
		{"custom", TemplateCustom, false},
		{"grid", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTemplate(tt.name)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseTemplate(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
				return
			}
			if got != tt.want {
				t.Errorf("ParseTemplate(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}
