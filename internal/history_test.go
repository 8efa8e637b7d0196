package internal

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/iksnae/agentlog-viewer/testutil"
)

func newTestHistory(t *testing.T) *HistoryStore {
	t.Helper()
	store, err := NewHistoryStore(testutil.CreateInMemoryDB(t))
	if err != nil {
		t.Fatalf("NewHistoryStore() error = %v", err)
	}
	return store
}

func TestOpenDatabase(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(t *testing.T) string
		wantErr bool
	}{
		{
			name: "database is created",
			setup: func(t *testing.T) string {
				return filepath.Join(testutil.CreateTempDir(t), "new.db")
			},
		},
		{
			name: "parent is a file",
			setup: func(t *testing.T) string {
				dir := testutil.CreateTempDir(t)
				blocker := filepath.Join(dir, "blocker")
				if err := os.WriteFile(blocker, nil, 0644); err != nil {
					t.Fatal(err)
				}
				return filepath.Join(blocker, "new.db")
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, err := OpenDatabase(tt.setup(t))
			if (err != nil) != tt.wantErr {
				t.Errorf("OpenDatabase() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if db == nil {
				return
			}
			defer db.Close()

			var timeout int
			if err := db.QueryRow("PRAGMA busy_timeout").Scan(&timeout); err != nil {
				t.Fatalf("busy_timeout query error = %v", err)
			}
			if timeout != 5000 {
				t.Errorf("busy_timeout = %d, want 5000", timeout)
			}
		})
	}
}

func TestOpenHistory_ConcurrentAdd(t *testing.T) {
	store, err := OpenHistory(filepath.Join(testutil.CreateTempDir(t), "history.db"))
	if err != nil {
		t.Fatalf("OpenHistory() error = %v", err)
	}
	defer store.Close()

	const writers = 64
	ctx := context.Background()
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.Add(ctx, HistoryRecord{FileName: "x.csv"}); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent Add() error = %v", err)
	}

	records, err := store.List(ctx, 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(records) != writers {
		t.Errorf("List() returned %d records, want %d", len(records), writers)
	}
}

func TestOpenHistory(t *testing.T) {
	path := filepath.Join(testutil.CreateTempDir(t), "nested", "history.db")
	store, err := OpenHistory(path)
	if err != nil {
		t.Fatalf("OpenHistory() error = %v", err)
	}
	defer store.Close()

	if err := store.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}

	// Reopening keeps existing data.
	if _, err := store.Add(context.Background(), HistoryRecord{FileName: "a.csv"}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	store.Close()

	reopened, err := OpenHistory(path)
	if err != nil {
		t.Fatalf("OpenHistory() reopen error = %v", err)
	}
	defer reopened.Close()
	records, err := reopened.List(context.Background(), 0)
	if err != nil || len(records) != 1 {
		t.Errorf("List() after reopen = %v, %v; want 1 record", records, err)
	}
}

func TestHistoryStore_AddGet(t *testing.T) {
	ctx := context.Background()
	store := newTestHistory(t)

	added, err := store.Add(ctx, HistoryRecord{
		FileName:     "logs.csv",
		FileSize:     2048,
		ObjectKey:    "uploads/1-logs.csv",
		PublicURL:    "https://pub.example.com/uploads/1-logs.csv",
		Template:     "multi-turn",
		RowCount:     3,
		SessionCount: 2,
	})
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if added.ID == "" {
		t.Error("Add() should assign an ID")
	}
	if added.UploadedAt.IsZero() {
		t.Error("Add() should assign an upload time")
	}

	got, err := store.Get(ctx, added.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.FileName != "logs.csv" || got.FileSize != 2048 || got.ObjectKey != "uploads/1-logs.csv" ||
		got.Template != "multi-turn" || got.RowCount != 3 || got.SessionCount != 2 {
		t.Errorf("Get() = %+v", got)
	}
	if !got.UploadedAt.Equal(added.UploadedAt) {
		t.Errorf("Get() UploadedAt = %v, want %v", got.UploadedAt, added.UploadedAt)
	}
}

func TestHistoryStore_GetMissing(t *testing.T) {
	_, err := newTestHistory(t).Get(context.Background(), "nope")
	if !errors.Is(err, ErrHistoryNotFound) {
		t.Errorf("Get() error = %v, want ErrHistoryNotFound", err)
	}
	var he *HistoryError
	if !errors.As(err, &he) || he.Op != "get" {
		t.Errorf("Get() error = %v, want *HistoryError with op get", err)
	}
}

func TestHistoryStore_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := newTestHistory(t)
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	for i, name := range []string{"old.csv", "newest.csv", "middle.csv"} {
		offset := []time.Duration{0, 2 * time.Hour, 500 * time.Millisecond}[i]
		if _, err := store.Add(ctx, HistoryRecord{FileName: name, UploadedAt: base.Add(offset)}); err != nil {
			t.Fatalf("Add() error = %v", err)
		}
	}

	records, err := store.List(ctx, 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	want := []string{"newest.csv", "middle.csv", "old.csv"}
	if len(records) != len(want) {
		t.Fatalf("List() returned %d records, want %d", len(records), len(want))
	}
	for i, r := range records {
		if r.FileName != want[i] {
			t.Errorf("List()[%d] = %q, want %q", i, r.FileName, want[i])
		}
	}

	limited, err := store.List(ctx, 2)
	if err != nil || len(limited) != 2 {
		t.Errorf("List(2) = %d records, %v; want 2", len(limited), err)
	}
}

func TestHistoryStore_DeleteAndClear(t *testing.T) {
	ctx := context.Background()
	store := newTestHistory(t)

	a, _ := store.Add(ctx, HistoryRecord{FileName: "a.csv"})
	if _, err := store.Add(ctx, HistoryRecord{FileName: "b.csv"}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	if err := store.Delete(ctx, a.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := store.Delete(ctx, a.ID); !errors.Is(err, ErrHistoryNotFound) {
		t.Errorf("Delete() twice error = %v, want ErrHistoryNotFound", err)
	}

	n, err := store.Clear(ctx)
	if err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if n != 1 {
		t.Errorf("Clear() removed %d records, want 1", n)
	}
	records, _ := store.List(ctx, 0)
	if len(records) != 0 {
		t.Errorf("List() after Clear() = %d records, want 0", len(records))
	}
}
