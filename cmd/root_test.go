package cmd

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/iksnae/agentlog-viewer/internal"
	"github.com/iksnae/agentlog-viewer/internal/config"
	"github.com/iksnae/agentlog-viewer/testutil"
)

func TestRootCommand(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		wantErr    bool
		wantOutput string
	}{
		{
			name:       "version flag",
			args:       []string{"--version"},
			wantOutput: "dev (commit: unknown",
		},
		{
			name:       "help flag",
			args:       []string{"--help"},
			wantOutput: "agentlog-viewer",
		},
		{
			name:    "unknown command",
			args:    []string{"nonexistent-command"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setupCLI(t)
			out, err := executeCommand(t, tt.args...)
			if (err != nil) != tt.wantErr {
				t.Errorf("rootCmd.Execute() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantOutput != "" && !strings.Contains(out, tt.wantOutput) {
				t.Errorf("output = %q, want it to contain %q", out, tt.wantOutput)
			}
		})
	}
}

func TestRootCommand_Subcommands(t *testing.T) {
	want := []string{"analyze", "render", "preview", "upload", "history", "serve", "healthcheck"}
	for _, name := range want {
		found := false
		for _, c := range rootCmd.Commands() {
			if c.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("command %q not registered", name)
		}
	}
}

func TestRootCommand_MissingEnvFile(t *testing.T) {
	dir := setupCLI(t)
	path := writeAgentLog(t, dir)

	_, err := executeCommand(t, "analyze", path, "--env-file", filepath.Join(dir, "missing.env"))
	if err == nil {
		t.Fatal("expected error for missing --env-file")
	}
	if !strings.Contains(err.Error(), "missing.env") {
		t.Errorf("error = %v, want it to name the env file", err)
	}
}

func TestRootCommand_EnvFile(t *testing.T) {
	dir := setupCLI(t)
	path := writeAgentLog(t, dir)
	envPath := testutil.WriteCSVFixture(t, dir, "custom.env", "EXCLUDED_FIELDS=output\n")
	// godotenv does not override variables that are already set
	unsetenv(t, "EXCLUDED_FIELDS")

	if _, err := executeCommand(t, "analyze", path, "--json", "--env-file", envPath); err != nil {
		t.Fatalf("analyze failed: %v", err)
	}
	if got := appConfig.ExcludedFields; len(got) != 1 || got[0] != "output" {
		t.Errorf("ExcludedFields = %v, want [output]", got)
	}
}

func TestRootCommand_ExcludeFlag(t *testing.T) {
	dir := setupCLI(t)
	path := writeAgentLog(t, dir)

	out, err := executeCommand(t, "--exclude", "input", "analyze", path, "--json")
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}

	var report struct {
		Analysis internal.StructureProfile `json:"analysis"`
	}
	testutil.DecodeJSON(t, out, &report)
	if report.Analysis.ExcludedColumns != 1 {
		t.Errorf("ExcludedColumns = %d, want 1", report.Analysis.ExcludedColumns)
	}
	if _, ok := report.Analysis.DataTypes["input"]; ok {
		t.Error("input should be excluded from type inference")
	}
	if _, ok := report.Analysis.DataTypes["latency"]; !ok {
		t.Error("latency should be analyzed once --exclude replaces the defaults")
	}
}

func TestNewProcessor(t *testing.T) {
	tests := []struct {
		name         string
		cfg          *config.Config
		lineScan     bool
		wantExcluded []string
	}{
		{
			name:         "defaults",
			cfg:          &config.Config{},
			lineScan:     true,
			wantExcluded: internal.DefaultExcludedFields,
		},
		{
			name:         "configured exclusions without line scan",
			cfg:          &config.Config{ExcludedFields: []string{"input", "output"}},
			lineScan:     false,
			wantExcluded: []string{"input", "output"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := newProcessor(tt.cfg, tt.lineScan).Config()
			if got.Media.LineScan != tt.lineScan {
				t.Errorf("LineScan = %v, want %v", got.Media.LineScan, tt.lineScan)
			}
			if strings.Join(got.ExcludedFields, ",") != strings.Join(tt.wantExcluded, ",") {
				t.Errorf("ExcludedFields = %v, want %v", got.ExcludedFields, tt.wantExcluded)
			}
		})
	}
}

func TestReadCSV_Missing(t *testing.T) {
	dir := setupCLI(t)
	if _, err := readCSV(filepath.Join(dir, "nope.csv")); err == nil {
		t.Error("readCSV() should fail for a missing file")
	}
}
