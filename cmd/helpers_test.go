package cmd

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/iksnae/agentlog-viewer/internal"
	"github.com/iksnae/agentlog-viewer/testutil"
	"github.com/spf13/cobra"
)

// setupCLI isolates a test in a temp working directory with history and
// cache under it and R2 disabled. It returns the directory.
func setupCLI(t *testing.T) string {
	t.Helper()
	dir := testutil.CreateTempDir(t)
	chdir(t, dir)

	for _, key := range []string{
		"R2_ACCOUNT_ID", "R2_ACCESS_KEY_ID", "R2_SECRET_ACCESS_KEY", "R2_BUCKET_NAME",
		"R2_PUBLIC_URL", "R2_ENDPOINT", "EXCLUDED_FIELDS", "LOG_LEVEL", "PORT",
	} {
		t.Setenv(key, "")
	}
	t.Setenv("HISTORY_DB", filepath.Join(dir, "data", "history.db"))
	t.Setenv("CACHE_DIR", filepath.Join(dir, "cache"))

	internal.SetLogOutput(io.Discard)
	t.Cleanup(func() { internal.SetLogOutput(os.Stderr) })

	resetFlags()
	t.Cleanup(resetFlags)
	return dir
}

// resetFlags restores every flag variable, since cobra keeps values between runs.
func resetFlags() {
	verbose, envFile, exclude = false, "", ""
	appConfig = nil
	analyzeJSON = false
	renderTemplate, renderFormat, renderOutputDir, renderColumns = "auto", "html", ".", ""
	renderNoLineScan, renderClearCache, renderUpload, renderDedupe = false, false, false, false
	previewLimit, previewSession, previewSince = 20, "", ""
	historyLimit = 50
	servePort, serveNoLineScan = "", false
	resetBoolFlags(rootCmd)
}

func resetBoolFlags(c *cobra.Command) {
	for _, name := range []string{"help", "version"} {
		if f := c.Flags().Lookup(name); f != nil {
			_ = f.Value.Set("false")
			f.Changed = false
		}
	}
	for _, sub := range c.Commands() {
		resetBoolFlags(sub)
	}
}

// unsetenv removes key for the rest of the test and restores it afterwards.
func unsetenv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	_ = os.Unsetenv(key)
}

// executeCommand runs the root command with args and returns its stdout.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetArgs(args)
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	err := rootCmd.Execute()
	return out.String(), err
}

// writeAgentLog writes the standard agent log fixture into dir.
func writeAgentLog(t *testing.T, dir string) string {
	t.Helper()
	return testutil.WriteCSVFixture(t, dir, "logs.csv", testutil.AgentLogCSV)
}

// chdir changes the working directory for the duration of the test
// (equivalent of testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatalf("Chdir: %v", err)
		}
	})
}
