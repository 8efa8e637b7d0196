package cmd

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/iksnae/agentlog-viewer/internal/storage"
)

func TestUploadCommand_NotConfigured(t *testing.T) {
	dir := setupCLI(t)
	path := writeAgentLog(t, dir)

	_, err := executeCommand(t, "upload", path)
	if !errors.Is(err, storage.ErrNotConfigured) {
		t.Errorf("upload error = %v, want %v", err, storage.ErrNotConfigured)
	}
}

func TestUploadCommand_MissingFile(t *testing.T) {
	dir := setupCLI(t)

	_, err := executeCommand(t, "upload", filepath.Join(dir, "absent.csv"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if errors.Is(err, storage.ErrNotConfigured) {
		t.Errorf("a missing file should fail before storage is checked: %v", err)
	}
}

func TestUploadCommand_Args(t *testing.T) {
	setupCLI(t)
	if _, err := executeCommand(t, "upload"); err == nil {
		t.Error("upload without a file should fail")
	}
}
