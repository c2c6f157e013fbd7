package watcher

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"
)

type fakeInfo struct {
	os.FileInfo
	size int64
}

func (f fakeInfo) Size() int64 { return f.size }
func (f fakeInfo) IsDir() bool { return false }

// sizeSequence returns a stat func that replays sizes; a negative size
// reports the file as missing.
func sizeSequence(sizes ...int64) (func(string) (os.FileInfo, error), *int) {
	calls := 0
	return func(string) (os.FileInfo, error) {
		idx := calls
		calls++
		if idx >= len(sizes) {
			idx = len(sizes) - 1
		}
		if sizes[idx] < 0 {
			return nil, fs.ErrNotExist
		}
		return fakeInfo{size: sizes[idx]}, nil
	}, &calls
}

func noSleep(context.Context, time.Duration) error { return nil }

func TestWaitStable(t *testing.T) {
	cases := []struct {
		name      string
		sizes     []int64
		timeout   time.Duration
		want      bool
		wantCalls int
	}{
		{name: "growing then steady", sizes: []int64{0, 100, 200, 200}, timeout: time.Minute, want: true, wantCalls: 4},
		{name: "immediately steady", sizes: []int64{50, 50}, timeout: time.Minute, want: true, wantCalls: 2},
		{name: "zero size never ready", sizes: []int64{0}, timeout: 5 * time.Second, want: false, wantCalls: 6},
		{name: "vanishes", sizes: []int64{10, -1}, timeout: time.Minute, want: false, wantCalls: 2},
		{name: "never settles", sizes: []int64{1, 2, 3, 4, 5, 6, 7, 8}, timeout: 3 * time.Second, want: false, wantCalls: 4},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			stat, calls := sizeSequence(tc.sizes...)
			w := New(Options{Interval: time.Second, Timeout: tc.timeout}, nil, WithStat(stat), WithSleeper(noSleep))
			if got := w.WaitStable(context.Background(), "/videos/a.mp4"); got != tc.want {
				t.Fatalf("WaitStable = %v, want %v", got, tc.want)
			}
			if *calls != tc.wantCalls {
				t.Fatalf("expected %d stat calls, got %d", tc.wantCalls, *calls)
			}
		})
	}
}

func TestWaitStableStopsOnCancel(t *testing.T) {
	stat, _ := sizeSequence(1, 2, 3)
	cancelled := func(context.Context, time.Duration) error { return context.Canceled }
	w := New(Options{Interval: time.Second, Timeout: time.Hour}, nil, WithStat(stat), WithSleeper(cancelled))
	if w.WaitStable(context.Background(), "/videos/a.mp4") {
		t.Fatal("expected cancelled wait to report not stable")
	}
}

func TestMatches(t *testing.T) {
	w := New(Options{}, nil)
	for _, name := range []string{"a.mp4", "B.MOV", "c.avi", "d.mkv", "e.webm", "f.m4v"} {
		if !w.Matches(name) {
			t.Fatalf("expected %s to match", name)
		}
	}
	for _, name := range []string{"notes.txt", "mp4", "clip.mp4.part", "thumb.jpg"} {
		if w.Matches(name) {
			t.Fatalf("expected %s not to match", name)
		}
	}
	custom := New(Options{Extensions: []string{"TS"}}, nil)
	if !custom.Matches("x.ts") || custom.Matches("x.mp4") {
		t.Fatal("custom extension list not honoured")
	}
}

func TestInFlightDropsDuplicates(t *testing.T) {
	w := New(Options{}, nil)
	if !w.acquire("/v/a.mp4") {
		t.Fatal("first acquire should succeed")
	}
	if w.acquire("/v/a.mp4") {
		t.Fatal("second acquire for the same path should be dropped")
	}
	if !w.acquire("/v/b.mp4") {
		t.Fatal("a different path should not be blocked")
	}
	w.release("/v/a.mp4")
	if !w.acquire("/v/a.mp4") {
		t.Fatal("acquire after release should succeed")
	}
}

func TestScanExisting(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.mp4", "b.MOV", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("data"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "folder.mp4"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	var seen []string
	w := New(Options{}, nil)
	count, err := w.ScanExisting(context.Background(), dir, func(_ context.Context, path string) error {
		seen = append(seen, filepath.Base(path))
		if filepath.Base(path) == "a.mp4" {
			return errors.New("handler failure is logged, not fatal")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("ScanExisting returned error: %v", err)
	}
	sort.Strings(seen)
	if count != 2 || len(seen) != 2 || seen[0] != "a.mp4" || seen[1] != "b.MOV" {
		t.Fatalf("unexpected scan result count=%d seen=%v", count, seen)
	}

	count, err = w.ScanExisting(context.Background(), filepath.Join(dir, "missing"), func(context.Context, string) error { return nil })
	if err != nil || count != 0 {
		t.Fatalf("expected empty scan for missing folder, got %d, %v", count, err)
	}
}

func TestWatchDispatchesStableFileOnce(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	dir := filepath.Join(t.TempDir(), "inbox")
	var (
		mu    sync.Mutex
		calls []string
	)
	got := make(chan string, 4)
	w := New(Options{Interval: 20 * time.Millisecond, Timeout: 5 * time.Second}, nil)
	if err := w.Start(context.Background(), dir, func(_ context.Context, path string) error {
		mu.Lock()
		calls = append(calls, path)
		mu.Unlock()
		got <- path
		return nil
	}); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Fatalf("expected watch folder to be created: %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "ignored.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	target := filepath.Join(dir, "clip.mp4")
	f, err := os.Create(target)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := f.Write([]byte("chunk")); err != nil {
			t.Fatalf("write chunk: %v", err)
		}
	}
	f.Close()

	select {
	case path := <-got:
		if path != target {
			t.Fatalf("unexpected callback path %q", path)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("callback not invoked for stable file")
	}

	// Give any duplicate events time to surface before stopping.
	time.Sleep(200 * time.Millisecond)
	w.Stop()
	if err := w.Wait(); err != nil {
		t.Fatalf("Wait returned error: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(calls) != 1 {
		t.Fatalf("expected exactly one callback, got %v", calls)
	}
}

func TestWatchReturnsWhenContextCancelled(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	w := New(Options{}, nil)
	go func() {
		errCh <- w.Watch(ctx, t.TempDir(), func(context.Context, string) error { return nil })
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Watch returned error: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

func TestStartTwiceFails(t *testing.T) {
	w := New(Options{}, nil)
	dir := t.TempDir()
	if err := w.Start(context.Background(), dir, func(context.Context, string) error { return nil }); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	defer w.Stop()
	if err := w.Start(context.Background(), dir, func(context.Context, string) error { return nil }); err == nil {
		t.Fatal("expected second Start to fail")
	}
}
