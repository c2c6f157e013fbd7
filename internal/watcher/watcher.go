package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"

	"onemin/internal/config"
	"onemin/internal/logging"
	"onemin/internal/services"
)

// Handler receives a stable video path. Errors are logged and do not stop
// the watcher.
type Handler func(ctx context.Context, path string) error

// Options configures stability polling and dispatch.
type Options struct {
	Extensions []string
	Interval   time.Duration
	Timeout    time.Duration
	Workers    int
	QueueSize  int
}

// OptionsFromConfig maps the [watch] section onto watcher options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Extensions: cfg.Watch.Extensions,
		Interval:   cfg.PollInterval(),
		Timeout:    cfg.StabilityTimeout(),
		Workers:    cfg.Watch.Workers,
		QueueSize:  cfg.Watch.QueueSize,
	}
}

// Option customizes a Watcher.
type Option func(*Watcher)

// WithStat replaces os.Stat for stability polling.
func WithStat(fn func(string) (os.FileInfo, error)) Option {
	return func(w *Watcher) {
		if fn != nil {
			w.stat = fn
		}
	}
}

// WithSleeper replaces the wait between stability polls.
func WithSleeper(fn func(context.Context, time.Duration) error) Option {
	return func(w *Watcher) {
		if fn != nil {
			w.sleep = fn
		}
	}
}

// Watcher monitors a single directory.
type Watcher struct {
	opts   Options
	exts   map[string]struct{}
	logger *slog.Logger
	stat   func(string) (os.FileInfo, error)
	sleep  func(context.Context, time.Duration) error

	mu       sync.Mutex
	inFlight map[string]struct{}
	cancel   context.CancelFunc
	done     chan struct{}
	runErr   error
}

// New constructs a watcher. Zero option values fall back to the defaults of
// a 2s poll, a 5m ceiling, one worker and a queue of 16.
func New(opts Options, logger *slog.Logger, options ...Option) *Watcher {
	if opts.Interval <= 0 {
		opts.Interval = 2 * time.Second
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Minute
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 16
	}
	exts := opts.Extensions
	if len(exts) == 0 {
		exts = config.DefaultExtensions
	}
	w := &Watcher{
		opts:     opts,
		exts:     make(map[string]struct{}, len(exts)),
		logger:   logging.NewComponentLogger(logger, "watcher"),
		stat:     os.Stat,
		sleep:    sleepContext,
		inFlight: make(map[string]struct{}),
	}
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		w.exts[ext] = struct{}{}
	}
	for _, opt := range options {
		opt(w)
	}
	return w
}

// Matches reports whether path carries an allowed video extension.
func (w *Watcher) Matches(path string) bool {
	_, ok := w.exts[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Watch blocks until ctx is cancelled, dispatching stable files to fn.
func (w *Watcher) Watch(ctx context.Context, dir string, fn Handler) error {
	fsw, err := w.open(dir)
	if err != nil {
		return err
	}
	return w.run(ctx, fsw, fn)
}

// Start begins watching in the background. Call Stop to end the watch.
func (w *Watcher) Start(ctx context.Context, dir string, fn Handler) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.done != nil {
		return errors.New("watcher already started")
	}
	fsw, err := w.open(dir)
	if err != nil {
		return err
	}
	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})
	go func(done chan struct{}) {
		defer close(done)
		err := w.run(runCtx, fsw, fn)
		w.mu.Lock()
		w.runErr = err
		w.mu.Unlock()
	}(w.done)
	return nil
}

// Stop cancels a started watch and waits for in-flight callbacks.
func (w *Watcher) Stop() {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Wait blocks until a started watch ends and returns its error.
func (w *Watcher) Wait() error {
	w.mu.Lock()
	done := w.done
	w.mu.Unlock()
	if done == nil {
		return nil
	}
	<-done
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.runErr
}

// ScanExisting invokes fn synchronously for every matching regular file
// already in dir and returns how many were dispatched.
func (w *Watcher) ScanExisting(ctx context.Context, dir string, fn Handler) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, services.Wrap(services.ErrTransient, "watcher", "scan", "read watch folder", err)
	}
	count := 0
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return count, err
		}
		if !entry.Type().IsRegular() || !w.Matches(entry.Name()) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		count++
		if err := fn(ctx, path); err != nil {
			logging.WarnWithContext(w.logger, "existing file handler failed", "watcher_scan_failed",
				logging.Video(path),
				logging.Error(err),
				logging.String(logging.FieldImpact, "file skipped until next scan"),
			)
		}
	}
	return count, nil
}

func (w *Watcher) open(dir string) (*fsnotify.Watcher, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "watcher", "create folder", fmt.Sprintf("create watch folder %q", dir), err)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "watcher", "init", "create fsnotify watcher", err)
	}
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return nil, services.Wrap(services.ErrTransient, "watcher", "init", fmt.Sprintf("watch directory %s", dir), err)
	}
	w.logger.Info("watching folder", logging.String("folder", dir), logging.Int("workers", w.opts.Workers))
	return fsw, nil
}

func (w *Watcher) run(ctx context.Context, fsw *fsnotify.Watcher, fn Handler) error {
	defer func() { _ = fsw.Close() }()

	queue := make(chan string, w.opts.QueueSize)
	var workers, pollers errgroup.Group
	for i := 0; i < w.opts.Workers; i++ {
		workers.Go(func() error {
			for path := range queue {
				w.dispatch(ctx, path, fn)
			}
			return nil
		})
	}

	loopErr := w.loop(ctx, fsw, queue, &pollers)
	_ = pollers.Wait()
	close(queue)
	_ = workers.Wait()
	w.logger.Info("watcher stopped")
	return loopErr
}

func (w *Watcher) loop(ctx context.Context, fsw *fsnotify.Watcher, queue chan<- string, pollers *errgroup.Group) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return errors.New("watcher event channel closed")
			}
			if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) {
				w.trigger(ctx, event.Name, queue, pollers)
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return errors.New("watcher error channel closed")
			}
			logging.WarnWithContext(w.logger, "fsnotify error", "watcher_error",
				logging.Error(err),
				logging.String(logging.FieldImpact, "events may have been missed"),
			)
		}
	}
}

func (w *Watcher) trigger(ctx context.Context, path string, queue chan<- string, pollers *errgroup.Group) {
	if !w.Matches(path) {
		return
	}
	info, err := w.stat(path)
	if err != nil || info.IsDir() {
		return
	}
	if !w.acquire(path) {
		w.logger.Debug("event dropped; file already in flight", logging.Video(path))
		return
	}
	pollers.Go(func() error {
		if !w.WaitStable(ctx, path) {
			w.release(path)
			return nil
		}
		select {
		case queue <- path:
		case <-ctx.Done():
			w.release(path)
		}
		return nil
	})
}

func (w *Watcher) dispatch(ctx context.Context, path string, fn Handler) {
	defer w.release(path)
	if ctx.Err() != nil {
		return
	}
	w.logger.Info("video ready", logging.Video(path))
	if err := fn(ctx, path); err != nil {
		attrs := append([]logging.Attr{logging.Video(path)}, logging.Failure(err)...)
		logging.WarnWithContext(w.logger, "video handler failed", "watcher_handler_failed", attrs...)
	}
}

// WaitStable polls path until two consecutive readings report the same
// non-zero size. It returns false when the file disappears, the timeout
// elapses or ctx ends.
func (w *Watcher) WaitStable(ctx context.Context, path string) bool {
	last := int64(-1)
	var waited time.Duration
	for {
		info, err := w.stat(path)
		if err != nil {
			w.logger.Debug("file vanished before it stabilized", logging.Video(path), logging.Error(err))
			return false
		}
		size := info.Size()
		if size > 0 && size == last {
			return true
		}
		last = size
		if waited >= w.opts.Timeout {
			w.logger.Debug("file never stabilized", logging.Video(path), logging.Int64("size_bytes", size))
			return false
		}
		if err := w.sleep(ctx, w.opts.Interval); err != nil {
			return false
		}
		waited += w.opts.Interval
	}
}

func (w *Watcher) acquire(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, busy := w.inFlight[path]; busy {
		return false
	}
	w.inFlight[path] = struct{}{}
	return true
}

func (w *Watcher) release(path string) {
	w.mu.Lock()
	delete(w.inFlight, path)
	w.mu.Unlock()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
