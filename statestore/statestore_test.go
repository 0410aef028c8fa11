package statestore

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// testBackendContract exercises the behavior every Backend must share
func testBackendContract(t *testing.T, b Backend) {
	t.Helper()
	ctx := context.Background()

	if _, err := b.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for missing key, got %v", err)
	}

	if err := b.Put(ctx, "Batch 001", json.RawMessage(`{"index":1}`)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := b.Put(ctx, "Batch 002", json.RawMessage(`{"index":7}`)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	var rec struct {
		Index int `json:"index"`
	}
	found, err := GetJSON(ctx, b, "Batch 001", &rec)
	if err != nil || !found {
		t.Fatalf("GetJSON: found=%v err=%v", found, err)
	}
	if rec.Index != 1 {
		t.Errorf("Expected index 1, got %d", rec.Index)
	}

	// Overwrite
	if err := PutJSON(ctx, b, "Batch 001", map[string]int{"index": 2}); err != nil {
		t.Fatalf("PutJSON failed: %v", err)
	}
	if _, err := GetJSON(ctx, b, "Batch 001", &rec); err != nil || rec.Index != 2 {
		t.Errorf("Expected index 2 after overwrite, got %d (%v)", rec.Index, err)
	}

	keys, err := b.Keys(ctx)
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	if strings.Join(keys, ",") != "Batch 001,Batch 002" {
		t.Errorf("Unexpected keys: %v", keys)
	}

	if err := b.Delete(ctx, "Batch 001"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := b.Get(ctx, "Batch 001"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
	if err := b.Delete(ctx, "never-existed"); err != nil {
		t.Errorf("Deleting a missing key should succeed, got %v", err)
	}

	found, err = GetJSON(ctx, b, "missing", &rec)
	if found || err != nil {
		t.Errorf("GetJSON on missing key: found=%v err=%v", found, err)
	}
}

func TestMemoryBackend(t *testing.T) {
	testBackendContract(t, NewMemoryBackend())
}

func TestFileBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "video_batch_state.json")
	testBackendContract(t, NewFileBackend(path, nil))
}

func TestFileBackend_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.json")

	if err := PutJSON(ctx, NewFileBackend(path, nil), "a", map[string]string{"path": "/videos"}); err != nil {
		t.Fatalf("PutJSON failed: %v", err)
	}

	var rec map[string]string
	found, err := GetJSON(ctx, NewFileBackend(path, nil), "a", &rec)
	if err != nil || !found {
		t.Fatalf("Expected value after reopen: found=%v err=%v", found, err)
	}
	if rec["path"] != "/videos" {
		t.Errorf("Expected /videos, got %v", rec)
	}
}

func TestFileBackend_NoTempFilesLeft(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	b := NewFileBackend(filepath.Join(dir, "state.json"), nil)

	for i := 0; i < 5; i++ {
		if err := PutJSON(ctx, b, "k", i); err != nil {
			t.Fatalf("PutJSON failed: %v", err)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "state.json" {
		names := make([]string, len(entries))
		for i, e := range entries {
			names[i] = e.Name()
		}
		t.Errorf("Expected only state.json, found %v", names)
	}
}

func TestFileBackend_CorruptFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	b := NewFileBackend(path, nil)

	if _, err := b.Get(ctx, "k"); !errors.Is(err, ErrCorrupt) {
		t.Errorf("Expected ErrCorrupt, got %v", err)
	}

	// Writers replace an unreadable file
	if err := b.Put(ctx, "k", json.RawMessage(`1`)); err != nil {
		t.Fatalf("Put over corrupt file failed: %v", err)
	}
	raw, err := b.Get(ctx, "k")
	if err != nil || string(raw) != "1" {
		t.Errorf("Expected 1, got %s (%v)", raw, err)
	}
}

func TestFileBackend_RejectsInvalidJSON(t *testing.T) {
	b := NewFileBackend(filepath.Join(t.TempDir(), "state.json"), nil)
	if err := b.Put(context.Background(), "k", json.RawMessage(`{`)); err == nil {
		t.Error("Expected error for invalid JSON value")
	}
}

func TestFileBackend_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := NewFileBackend(path, nil).Get(context.Background(), "k"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for empty file, got %v", err)
	}
}

func TestWriteFileAtomic_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deeper", "state.json")
	if err := WriteFileAtomic(path, []byte(`{}`)); err != nil {
		t.Fatalf("WriteFileAtomic failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "{}" {
		t.Errorf("Unexpected content %q (%v)", data, err)
	}
}

func TestOpener(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	tests := []struct {
		kind    string
		wantErr bool
	}{
		{"", false},
		{KindFile, false},
		{KindMemory, false},
		{"redis", true},
	}

	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			o := &Opener{Kind: tt.kind, Dir: dir}
			defer o.Close()

			b, err := o.Open(ctx, "video_batch_state.json")
			if (err != nil) != tt.wantErr {
				t.Fatalf("Open() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if fb, ok := b.(*FileBackend); ok && fb.Path() != filepath.Join(dir, "video_batch_state.json") {
				t.Errorf("Unexpected file path %s", fb.Path())
			}
		})
	}
}

func TestPostgresConfig_ConnString(t *testing.T) {
	c := PostgresConfig{Host: "db", Port: "5432", User: "u", Password: "p", DBName: "vid"}
	if got := c.ConnString(); got != "postgres://u:p@db:5432/vid" {
		t.Errorf("Unexpected conn string %s", got)
	}
}

// TestPostgresBackend runs only when VIDCHUNK_TEST_POSTGRES_DSN points at a database
func TestPostgresBackend(t *testing.T) {
	dsn := os.Getenv("VIDCHUNK_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("VIDCHUNK_TEST_POSTGRES_DSN not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("pgxpool.New: %v", err)
	}
	defer pool.Close()

	b, err := NewPostgresBackendFromPool(ctx, pool, "test_"+uuid.NewString())
	if err != nil {
		t.Fatalf("NewPostgresBackendFromPool: %v", err)
	}
	defer b.Close()

	testBackendContract(t, b)
}
