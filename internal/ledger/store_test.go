package ledger_test

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"onemin/internal/ledger"
)

func openStore(t *testing.T) *ledger.Store {
	t.Helper()
	store, err := ledger.Open(filepath.Join(t.TempDir(), "state", "ledger.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRecordAndLookup(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	key := ledger.Key{Path: "/videos/clip.mp4", SizeBytes: 1024, ModTime: time.Date(2026, 1, 2, 3, 4, 5, 6, time.UTC)}

	missing, err := store.Lookup(ctx, key)
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil entry for unknown key, got %#v", missing)
	}

	entry, err := store.Record(ctx, ledger.Entry{Key: key, Status: ledger.StatusPending, RequestID: "abcd1234", Title: "Clip"})
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if entry == nil || entry.ID == 0 || entry.Status != ledger.StatusPending || entry.RequestID != "abcd1234" {
		t.Fatalf("unexpected entry %#v", entry)
	}
	if !entry.Key.ModTime.Equal(key.ModTime) {
		t.Fatalf("mod time not round-tripped: %s vs %s", entry.Key.ModTime, key.ModTime)
	}
	if !entry.Handled() {
		t.Fatal("pending entry should count as handled")
	}

	updated, err := store.Record(ctx, ledger.Entry{Key: key, Status: ledger.StatusError, ErrorMessage: "boom"})
	if err != nil {
		t.Fatalf("Record update failed: %v", err)
	}
	if updated.ID != entry.ID {
		t.Fatalf("expected upsert to keep row id %d, got %d", entry.ID, updated.ID)
	}
	if updated.Handled() {
		t.Fatal("errored entry should be retried")
	}

	changed := key
	changed.SizeBytes = 2048
	other, err := store.Lookup(ctx, changed)
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if other != nil {
		t.Fatal("a different file size must not match")
	}
}

func TestResolveRequest(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	key := ledger.Key{Path: "/videos/a.mp4", SizeBytes: 10, ModTime: time.Unix(100, 0)}
	if _, err := store.Record(ctx, ledger.Entry{Key: key, Status: ledger.StatusPending, RequestID: "deadbeef"}); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	ok, err := store.ResolveRequest(ctx, "deadbeef", ledger.StatusUploaded, "vid1", "https://youtube.com/watch?v=vid1", "")
	if err != nil || !ok {
		t.Fatalf("ResolveRequest = %v, %v", ok, err)
	}
	entry, err := store.FindByRequest(ctx, "deadbeef")
	if err != nil {
		t.Fatalf("FindByRequest failed: %v", err)
	}
	if entry.Status != ledger.StatusUploaded || entry.VideoID != "vid1" {
		t.Fatalf("unexpected entry %#v", entry)
	}

	ok, err = store.ResolveRequest(ctx, "00000000", ledger.StatusRejected, "", "", "")
	if err != nil || ok {
		t.Fatalf("expected no match for unknown request, got %v, %v", ok, err)
	}
	if entry, err := store.FindByRequest(ctx, "00000000"); err != nil || entry != nil {
		t.Fatalf("expected nil for unknown request, got %#v, %v", entry, err)
	}
}

func TestHistoryAndStats(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	statuses := []ledger.Status{ledger.StatusDryRun, ledger.StatusUploaded, ledger.StatusUploaded, ledger.StatusError}
	for i, status := range statuses {
		key := ledger.Key{Path: filepath.Join("/videos", string(rune('a'+i))+".mp4"), SizeBytes: int64(i + 1), ModTime: time.Unix(int64(i), 0)}
		if _, err := store.Record(ctx, ledger.Entry{Key: key, Status: status}); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	all, err := store.History(ctx, 0)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(all))
	}
	if all[0].Key.Path != "/videos/d.mp4" {
		t.Fatalf("expected newest first, got %s", all[0].Key.Path)
	}

	limited, err := store.History(ctx, 1, ledger.StatusUploaded)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(limited) != 1 || limited[0].Status != ledger.StatusUploaded {
		t.Fatalf("unexpected filtered history %#v", limited)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats[ledger.StatusUploaded] != 2 || stats[ledger.StatusDryRun] != 1 || stats[ledger.StatusError] != 1 {
		t.Fatalf("unexpected stats %v", stats)
	}
	if err := store.Ping(ctx); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}
}

func TestReopenKeepsEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	store, err := ledger.Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	key := ledger.Key{Path: "/videos/x.mov", SizeBytes: 5, ModTime: time.Unix(50, 0)}
	if _, err := store.Record(context.Background(), ledger.Entry{Key: key, Status: ledger.StatusDryRun}); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	store.Close()

	reopened, err := ledger.Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()
	entry, err := reopened.Lookup(context.Background(), key)
	if err != nil || entry == nil || entry.Status != ledger.StatusDryRun {
		t.Fatalf("expected entry after reopen, got %#v, %v", entry, err)
	}
}

func TestKeyFor(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.mp4")
	if err := os.WriteFile(path, []byte("abc"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	key, err := ledger.KeyFor(path)
	if err != nil {
		t.Fatalf("KeyFor failed: %v", err)
	}
	if key.Path != path || key.SizeBytes != 3 || key.ModTime.IsZero() {
		t.Fatalf("unexpected key %#v", key)
	}
	if _, err := ledger.KeyFor(filepath.Join(t.TempDir(), "missing.mp4")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestRecordRequiresPathAndStatus(t *testing.T) {
	store := openStore(t)
	if _, err := store.Record(context.Background(), ledger.Entry{Status: ledger.StatusDryRun}); err == nil {
		t.Fatal("expected error for missing path")
	}
	if _, err := store.Record(context.Background(), ledger.Entry{Key: ledger.Key{Path: "/x"}}); err == nil {
		t.Fatal("expected error for missing status")
	}
}

func TestOpenReusesAndRejectsSchemaVersions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	first, err := ledger.Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	first.Close()

	again, err := ledger.Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	again.Close()

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open failed: %v", err)
	}
	if _, err := db.Exec("PRAGMA user_version = 9"); err != nil {
		t.Fatalf("stamp version: %v", err)
	}
	db.Close()

	if _, err := ledger.Open(path); !errors.Is(err, ledger.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}
