package approval

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"
)

func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state", "pending_requests.json")
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	opts = append([]Option{WithClock(func() time.Time { return fixed })}, opts...)
	store, err := Open(path, opts...)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	return store
}

func sampleSnapshot() Snapshot {
	return Snapshot{
		Title:       "Original title",
		Description: "Original description",
		Tags:        []string{"one", "two"},
		CategoryID:  "22",
	}
}

func TestCreateThenGetReturnsSameRecord(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx, "/videos/a.mp4", sampleSnapshot(), "/work/thumb.jpg")
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if !regexp.MustCompile(`^[0-9a-f]{8}$`).MatchString(created.ID) {
		t.Fatalf("unexpected id format %q", created.ID)
	}
	if created.Status != StatusPending || created.CreatedAt != "2026-03-01T12:00:00Z" {
		t.Fatalf("unexpected record %+v", created)
	}

	got, err := store.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got == nil {
		t.Fatal("expected record")
	}
	if got.VideoPath != "/videos/a.mp4" || got.Title != "Original title" || got.ThumbnailPath != "/work/thumb.jpg" {
		t.Fatalf("unexpected fields %+v", got)
	}
	if strings.Join(got.Tags, ",") != "one,two" || got.CategoryID != "22" {
		t.Fatalf("unexpected snapshot %+v", got)
	}
}

func TestSnapshotIsCopied(t *testing.T) {
	store := newTestStore(t)
	snap := sampleSnapshot()
	created, err := store.Create(context.Background(), "/videos/a.mp4", snap, "")
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	snap.Tags[0] = "mutated"
	got, _ := store.Get(context.Background(), created.ID)
	if got.Tags[0] != "one" {
		t.Fatalf("stored tags changed with caller slice: %v", got.Tags)
	}
}

func TestOnDiskShape(t *testing.T) {
	store := newTestStore(t)
	created, err := store.Create(context.Background(), "/videos/a.mp4", sampleSnapshot(), "/t.jpg")
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	data, err := os.ReadFile(store.Path())
	if err != nil {
		t.Fatalf("read store: %v", err)
	}
	for _, key := range []string{"request_id", "video_path", "title", "description", "tags", "category_id", "thumbnail_path", "created_at", "status"} {
		if !strings.Contains(string(data), `"`+key+`"`) {
			t.Fatalf("expected key %q in %s", key, data)
		}
	}
	if !strings.Contains(string(data), `"`+created.ID+`": {`) {
		t.Fatalf("expected mapping keyed by id, got %s", data)
	}
}

func TestTransitionMovesOutOfPending(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	first, _ := store.Create(ctx, "/videos/a.mp4", sampleSnapshot(), "")
	second, _ := store.Create(ctx, "/videos/b.mp4", sampleSnapshot(), "")

	approved, err := store.Transition(ctx, first.ID, StatusApproved)
	if err != nil {
		t.Fatalf("Transition returned error: %v", err)
	}
	if approved.Status != StatusApproved || approved.ResolvedAt == "" {
		t.Fatalf("unexpected transition result %+v", approved)
	}
	got, _ := store.Get(ctx, first.ID)
	if got.Status != StatusApproved {
		t.Fatalf("expected approved on reload, got %s", got.Status)
	}

	pending, err := store.ListPending(ctx)
	if err != nil {
		t.Fatalf("ListPending returned error: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != second.ID {
		t.Fatalf("unexpected pending list %+v", pending)
	}
	all, _ := store.List(ctx)
	if len(all) != 2 {
		t.Fatalf("expected resolved request retained, got %d", len(all))
	}
}

func TestDoubleTransitionRejected(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	req, _ := store.Create(ctx, "/videos/a.mp4", sampleSnapshot(), "")
	if _, err := store.Transition(ctx, req.ID, StatusRejected); err != nil {
		t.Fatalf("first transition: %v", err)
	}
	for _, status := range []Status{StatusApproved, StatusRejected} {
		if _, err := store.Transition(ctx, req.ID, status); !errors.Is(err, ErrAlreadyResolved) {
			t.Fatalf("expected ErrAlreadyResolved for %s, got %v", status, err)
		}
	}
	got, _ := store.Get(ctx, req.ID)
	if got.Status != StatusRejected {
		t.Fatalf("status changed after rejected transition: %s", got.Status)
	}
}

func TestTransitionInvalidStatus(t *testing.T) {
	store := newTestStore(t)
	req, _ := store.Create(context.Background(), "/videos/a.mp4", sampleSnapshot(), "")
	if _, err := store.Transition(context.Background(), req.ID, StatusPending); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestUnknownIDLeavesFileUntouched(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	if _, err := store.Create(ctx, "/videos/a.mp4", sampleSnapshot(), ""); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	before, err := os.ReadFile(store.Path())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	infoBefore, _ := os.Stat(store.Path())

	got, err := store.Transition(ctx, "deadbeef", StatusApproved)
	if err != nil || got != nil {
		t.Fatalf("expected (nil, nil), got %+v, %v", got, err)
	}
	edited, err := store.UpdateFields(ctx, "deadbeef", Fields{Title: "x"})
	if err != nil || edited != nil {
		t.Fatalf("expected (nil, nil), got %+v, %v", edited, err)
	}
	missing, err := store.Get(ctx, "deadbeef")
	if err != nil || missing != nil {
		t.Fatalf("expected (nil, nil), got %+v, %v", missing, err)
	}

	after, _ := os.ReadFile(store.Path())
	infoAfter, _ := os.Stat(store.Path())
	if !bytes.Equal(before, after) || !infoBefore.ModTime().Equal(infoAfter.ModTime()) {
		t.Fatal("store file changed for unknown id")
	}
}

func TestUpdateFieldsChangesOnlyTitle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	req, _ := store.Create(ctx, "/videos/a.mp4", sampleSnapshot(), "/t.jpg")

	updated, err := store.UpdateFields(ctx, req.ID, Fields{Title: "X"})
	if err != nil {
		t.Fatalf("UpdateFields returned error: %v", err)
	}
	if updated.Title != "X" {
		t.Fatalf("unexpected title %q", updated.Title)
	}
	got, _ := store.Get(ctx, req.ID)
	if got.Title != "X" || got.Description != req.Description || strings.Join(got.Tags, ",") != "one,two" {
		t.Fatalf("unexpected record after edit %+v", got)
	}
	if got.Status != StatusPending || got.CategoryID != "22" || got.ThumbnailPath != "/t.jpg" {
		t.Fatalf("edit changed unrelated fields %+v", got)
	}
}

func TestCreateRetriesOnCollision(t *testing.T) {
	ids := []string{"aaaaaaaa", "aaaaaaaa", "bbbbbbbb"}
	var mu sync.Mutex
	next := func() string {
		mu.Lock()
		defer mu.Unlock()
		id := ids[0]
		ids = ids[1:]
		return id
	}
	store := newTestStore(t, WithIDSource(next))
	ctx := context.Background()
	first, err := store.Create(ctx, "/a.mp4", sampleSnapshot(), "")
	if err != nil {
		t.Fatalf("first create: %v", err)
	}
	second, err := store.Create(ctx, "/b.mp4", sampleSnapshot(), "")
	if err != nil {
		t.Fatalf("second create: %v", err)
	}
	if first.ID != "aaaaaaaa" || second.ID != "bbbbbbbb" {
		t.Fatalf("unexpected ids %q %q", first.ID, second.ID)
	}
}

func TestUniqueIDAcrossManyAllocations(t *testing.T) {
	store := newTestStore(t)
	records := make(map[string]*Request, 10000)
	for i := range 10000 {
		id, err := store.uniqueID(records)
		if err != nil {
			t.Fatalf("allocation %d: %v", i, err)
		}
		if _, dup := records[id]; dup {
			t.Fatalf("duplicate id %q", id)
		}
		records[id] = &Request{ID: id}
	}
}

func TestConcurrentHandlesDoNotLoseUpdates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pending_requests.json")
	a, err := Open(path)
	if err != nil {
		t.Fatalf("open a: %v", err)
	}
	b, err := Open(path)
	if err != nil {
		t.Fatalf("open b: %v", err)
	}

	const perHandle = 15
	var wg sync.WaitGroup
	errs := make(chan error, 2*perHandle)
	for i := range perHandle {
		for _, store := range []*Store{a, b} {
			wg.Add(1)
			go func(s *Store, n int) {
				defer wg.Done()
				if _, err := s.Create(context.Background(), fmt.Sprintf("/v/%d.mp4", n), sampleSnapshot(), ""); err != nil {
					errs <- err
				}
			}(store, i)
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("create failed: %v", err)
	}

	all, err := a.List(context.Background())
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(all) != 2*perHandle {
		t.Fatalf("expected %d requests, got %d", 2*perHandle, len(all))
	}
}

func TestListOrdersByCreationThenID(t *testing.T) {
	var tick int
	clock := func() time.Time {
		tick++
		return time.Date(2026, 1, 1, 0, 0, 10-tick, 0, time.UTC)
	}
	store := newTestStore(t, WithClock(clock))
	ctx := context.Background()
	first, _ := store.Create(ctx, "/a.mp4", sampleSnapshot(), "")
	second, _ := store.Create(ctx, "/b.mp4", sampleSnapshot(), "")
	all, _ := store.List(ctx)
	if len(all) != 2 || all[0].ID != second.ID || all[1].ID != first.ID {
		t.Fatalf("unexpected order %v", all)
	}
}

func TestCorruptStoreSurfacesError(t *testing.T) {
	store := newTestStore(t)
	if err := os.WriteFile(store.Path(), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := store.List(context.Background()); err == nil {
		t.Fatal("expected parse error")
	}
}
