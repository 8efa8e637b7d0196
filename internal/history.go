package internal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrHistoryNotFound is returned when a history record does not exist.
var ErrHistoryNotFound = errors.New("history record not found")

const historySchema = `
CREATE TABLE IF NOT EXISTS uploads (
	id            TEXT PRIMARY KEY,
	file_name     TEXT NOT NULL,
	file_size     INTEGER NOT NULL DEFAULT 0,
	uploaded_at   TEXT NOT NULL,
	object_key    TEXT NOT NULL DEFAULT '',
	public_url    TEXT NOT NULL DEFAULT '',
	template      TEXT NOT NULL DEFAULT '',
	row_count     INTEGER NOT NULL DEFAULT 0,
	session_count INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_uploads_uploaded_at ON uploads(uploaded_at);`

// historyTimeLayout has a fixed width so uploaded_at sorts as text.
const historyTimeLayout = "2006-01-02T15:04:05.000000000Z"

const historyColumns = "id, file_name, file_size, uploaded_at, object_key, public_url, template, row_count, session_count"

// HistoryRecord is one uploaded or rendered document
type HistoryRecord struct {
	ID           string    `json:"id" yaml:"id"`
	FileName     string    `json:"fileName" yaml:"file_name"`
	FileSize     int64     `json:"fileSize" yaml:"file_size"`
	UploadedAt   time.Time `json:"uploadedAt" yaml:"uploaded_at"`
	ObjectKey    string    `json:"key,omitempty" yaml:"object_key,omitempty"`
	PublicURL    string    `json:"url,omitempty" yaml:"public_url,omitempty"`
	Template     string    `json:"template,omitempty" yaml:"template,omitempty"`
	RowCount     int       `json:"rowCount" yaml:"row_count"`
	SessionCount int       `json:"sessionCount" yaml:"session_count"`
}

// HistoryStore persists HistoryRecords in SQLite
type HistoryStore struct {
	db *sql.DB
}

// historyPragmas make writers wait for the lock instead of failing with SQLITE_BUSY.
const historyPragmas = "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

// OpenDatabase opens a writable SQLite database shared by concurrent callers.
// Writes are serialized through a single connection.
func OpenDatabase(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path+historyPragmas)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	return db, nil
}

// OpenHistory opens (creating if needed) the history database at path
func OpenHistory(path string) (*HistoryStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, &HistoryError{Op: "open", Err: err}
	}
	db, err := OpenDatabase(path)
	if err != nil {
		return nil, &HistoryError{Op: "open", Err: err}
	}
	store, err := NewHistoryStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// NewHistoryStore wraps an open database and creates the schema
func NewHistoryStore(db *sql.DB) (*HistoryStore, error) {
	if _, err := db.Exec(historySchema); err != nil {
		return nil, &HistoryError{Op: "migrate", Err: err}
	}
	return &HistoryStore{db: db}, nil
}

// Add inserts a record, assigning an ID and timestamp when missing
func (h *HistoryStore) Add(ctx context.Context, rec HistoryRecord) (*HistoryRecord, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.UploadedAt.IsZero() {
		rec.UploadedAt = time.Now().UTC()
	}

	_, err := h.db.ExecContext(ctx,
		"INSERT INTO uploads ("+historyColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		rec.ID, rec.FileName, rec.FileSize, rec.UploadedAt.UTC().Format(historyTimeLayout),
		rec.ObjectKey, rec.PublicURL, rec.Template, rec.RowCount, rec.SessionCount,
	)
	if err != nil {
		return nil, &HistoryError{Op: "add", Err: err}
	}
	LogDebug("Recorded history entry %s for %s", rec.ID, rec.FileName)
	return &rec, nil
}

// List returns the newest records first. A limit <= 0 returns everything.
func (h *HistoryStore) List(ctx context.Context, limit int) ([]HistoryRecord, error) {
	query := "SELECT " + historyColumns + " FROM uploads ORDER BY uploaded_at DESC, id"
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &HistoryError{Op: "list", Err: err}
	}
	defer rows.Close()

	records := []HistoryRecord{}
	for rows.Next() {
		rec, err := scanHistory(rows)
		if err != nil {
			return nil, &HistoryError{Op: "list", Err: err}
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, &HistoryError{Op: "list", Err: fmt.Errorf("rows iteration error: %w", err)}
	}
	return records, nil
}

// Get returns one record by ID
func (h *HistoryStore) Get(ctx context.Context, id string) (*HistoryRecord, error) {
	row := h.db.QueryRowContext(ctx, "SELECT "+historyColumns+" FROM uploads WHERE id = ?", id)
	rec, err := scanHistory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &HistoryError{Op: "get", Err: ErrHistoryNotFound}
	}
	if err != nil {
		return nil, &HistoryError{Op: "get", Err: err}
	}
	return rec, nil
}

// Delete removes one record by ID
func (h *HistoryStore) Delete(ctx context.Context, id string) error {
	res, err := h.db.ExecContext(ctx, "DELETE FROM uploads WHERE id = ?", id)
	if err != nil {
		return &HistoryError{Op: "delete", Err: err}
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return &HistoryError{Op: "delete", Err: ErrHistoryNotFound}
	}
	return nil
}

// Clear removes every record and returns how many were deleted
func (h *HistoryStore) Clear(ctx context.Context) (int64, error) {
	res, err := h.db.ExecContext(ctx, "DELETE FROM uploads")
	if err != nil {
		return 0, &HistoryError{Op: "clear", Err: err}
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// Ping checks the database connection
func (h *HistoryStore) Ping(ctx context.Context) error {
	if err := h.db.PingContext(ctx); err != nil {
		return &HistoryError{Op: "ping", Err: err}
	}
	return nil
}

// Close closes the underlying database
func (h *HistoryStore) Close() error {
	return h.db.Close()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanHistory(s rowScanner) (*HistoryRecord, error) {
	var rec HistoryRecord
	var uploadedAt string
	if err := s.Scan(&rec.ID, &rec.FileName, &rec.FileSize, &uploadedAt,
		&rec.ObjectKey, &rec.PublicURL, &rec.Template, &rec.RowCount, &rec.SessionCount); err != nil {
		return nil, err
	}
	t, err := time.Parse(historyTimeLayout, uploadedAt)
	if err != nil {
		return nil, fmt.Errorf("parse uploaded_at %q: %w", uploadedAt, err)
	}
	rec.UploadedAt = t
	return &rec, nil
}
