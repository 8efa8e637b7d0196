package internal

import "fmt"

// FormatError means the input cannot be treated as a CSV document at all.
type FormatError struct {
	Lines  int // non-blank lines found
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("format error: %s (found %d non-blank line(s))", e.Reason, e.Lines)
}

// StorageError represents errors talking to the object store
type StorageError struct {
	Op  string // "put", "list", "delete", "presign", "ping"
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error: %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// HistoryError represents errors reading or writing the upload history database
type HistoryError struct {
	Op  string // "open", "add", "list", "get", "delete", "clear"
	Err error
}

func (e *HistoryError) Error() string {
	return fmt.Sprintf("history error [%s]: %v", e.Op, e.Err)
}

func (e *HistoryError) Unwrap() error {
	return e.Err
}

// ExportError represents errors during export
type ExportError struct {
	Format string
	Path   string
	Err    error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export error [%s] %s: %v", e.Format, e.Path, e.Err)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}
