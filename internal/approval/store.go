package approval

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/renameio/v2"
	"github.com/google/uuid"

	"onemin/internal/logging"
	"onemin/internal/services"
)

const (
	idLength       = 8
	lockRetryDelay = 25 * time.Millisecond
)

// Store persists approval requests in a single JSON file keyed by request id.
// Every operation holds an flock on a sibling .lock file for the whole
// load-mutate-write cycle, so separate processes never lose updates.
type Store struct {
	path     string
	lockPath string
	now      func() time.Time
	newID    func() string
	logger   *slog.Logger
}

// Option customizes a Store.
type Option func(*Store)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDSource overrides id generation. Collisions are still rejected.
func WithIDSource(next func() string) Option {
	return func(s *Store) {
		if next != nil {
			s.newID = next
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logging.NewComponentLogger(logger, "approval")
	}
}

// Open prepares a store backed by path. The file is created lazily on the
// first write.
func Open(path string, opts ...Option) (*Store, error) {
	if path == "" {
		return nil, services.Wrap(services.ErrConfiguration, "approval", "open", "Store path is empty", nil)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, services.Wrap(services.ErrTransient, "approval", "open", "Create store directory", err)
	}
	s := &Store{
		path:     path,
		lockPath: path + ".lock",
		now:      time.Now,
		newID:    randomID,
		logger:   logging.NewComponentLogger(nil, "approval"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Path returns the backing file location.
func (s *Store) Path() string {
	return s.path
}

// Create records a new pending request with a freshly generated id.
func (s *Store) Create(ctx context.Context, videoPath string, snap Snapshot, thumbnailPath string) (*Request, error) {
	var created *Request
	err := s.mutate(ctx, func(records map[string]*Request) (bool, error) {
		id, err := s.uniqueID(records)
		if err != nil {
			return false, err
		}
		created = &Request{
			ID:            id,
			VideoPath:     videoPath,
			Title:         snap.Title,
			Description:   snap.Description,
			Tags:          append([]string{}, snap.Tags...),
			CategoryID:    snap.CategoryID,
			ThumbnailPath: thumbnailPath,
			CreatedAt:     s.timestamp(),
			Status:        StatusPending,
		}
		records[id] = created
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	logging.WithContext(services.WithApprovalID(ctx, created.ID), s.logger).Info("approval request created",
		logging.Video(videoPath),
		logging.String("title", snap.Title),
	)
	return created.clone(), nil
}

// Get returns the request with id, or (nil, nil) when none exists.
func (s *Store) Get(ctx context.Context, id string) (*Request, error) {
	records, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return records[id].clone(), nil
}

// List returns every request ordered by creation time, then id.
func (s *Store) List(ctx context.Context) ([]*Request, error) {
	records, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return sorted(records, func(*Request) bool { return true }), nil
}

// ListPending returns requests awaiting a decision. Callers must not rely on
// the order.
func (s *Store) ListPending(ctx context.Context) ([]*Request, error) {
	records, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return sorted(records, (*Request).IsPending), nil
}

// Transition resolves a pending request. Unknown ids return (nil, nil) and
// leave the file untouched. Resolved requests return ErrAlreadyResolved.
func (s *Store) Transition(ctx context.Context, id string, status Status) (*Request, error) {
	if status != StatusApproved && status != StatusRejected {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	var updated *Request
	err := s.mutate(ctx, func(records map[string]*Request) (bool, error) {
		rec, ok := records[id]
		if !ok {
			return false, nil
		}
		if rec.Status != StatusPending {
			return false, fmt.Errorf("%w: %s is %s", ErrAlreadyResolved, id, rec.Status)
		}
		stamp := s.timestamp()
		rec.Status = status
		rec.UpdatedAt = stamp
		rec.ResolvedAt = stamp
		updated = rec
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	if updated != nil {
		logging.WithContext(services.WithApprovalID(ctx, id), s.logger).Info("approval request resolved",
			logging.String("status", string(status)),
		)
	}
	return updated.clone(), nil
}

// UpdateFields applies a partial metadata edit. Status is never changed.
// Unknown ids return (nil, nil).
func (s *Store) UpdateFields(ctx context.Context, id string, fields Fields) (*Request, error) {
	var updated *Request
	err := s.mutate(ctx, func(records map[string]*Request) (bool, error) {
		rec, ok := records[id]
		if !ok {
			return false, nil
		}
		if fields.Title != "" {
			rec.Title = fields.Title
		}
		if fields.Description != "" {
			rec.Description = fields.Description
		}
		if len(fields.Tags) > 0 {
			rec.Tags = append([]string{}, fields.Tags...)
		}
		if fields.CategoryID != "" {
			rec.CategoryID = fields.CategoryID
		}
		if fields.ThumbnailPath != "" {
			rec.ThumbnailPath = fields.ThumbnailPath
		}
		rec.UpdatedAt = s.timestamp()
		updated = rec
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return updated.clone(), nil
}

func (s *Store) timestamp() string {
	return s.now().UTC().Format(time.RFC3339)
}

func (s *Store) uniqueID(records map[string]*Request) (string, error) {
	const maxAttempts = 64
	for range maxAttempts {
		id := s.newID()
		if _, exists := records[id]; !exists && id != "" {
			return id, nil
		}
	}
	return "", services.Wrap(services.ErrTransient, "approval", "create", "Could not allocate a unique request id", nil)
}

func randomID() string {
	u := uuid.New()
	return hex.EncodeToString(u[:])[:idLength]
}

// snapshot loads the file under a shared lock.
func (s *Store) snapshot(ctx context.Context) (map[string]*Request, error) {
	lock := flock.New(s.lockPath)
	ok, err := lock.TryRLockContext(ctx, lockRetryDelay)
	if err != nil || !ok {
		return nil, lockError(err)
	}
	defer func() { _ = lock.Unlock() }()
	return s.load()
}

// mutate runs fn against the current records under an exclusive lock and
// writes them back when fn reports a change.
func (s *Store) mutate(ctx context.Context, fn func(map[string]*Request) (bool, error)) error {
	lock := flock.New(s.lockPath)
	ok, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil || !ok {
		return lockError(err)
	}
	defer func() { _ = lock.Unlock() }()

	records, err := s.load()
	if err != nil {
		return err
	}
	changed, err := fn(records)
	if err != nil || !changed {
		return err
	}
	return s.save(records)
}

func lockError(err error) error {
	if err == nil {
		err = errors.New("lock not acquired")
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return services.Wrap(services.ErrTransient, "approval", "lock", "Acquire store lock", err)
}

func (s *Store) load() (map[string]*Request, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]*Request{}, nil
		}
		return nil, services.Wrap(services.ErrTransient, "approval", "load", "Read store", err)
	}
	records := map[string]*Request{}
	if len(data) == 0 {
		return records, nil
	}
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, services.Wrap(services.ErrTransient, "approval", "load", "Parse "+s.path, err)
	}
	for id, rec := range records {
		if rec == nil {
			delete(records, id)
			continue
		}
		if rec.ID == "" {
			rec.ID = id
		}
	}
	return records, nil
}

func (s *Store) save(records map[string]*Request) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return services.Wrap(services.ErrTransient, "approval", "save", "Encode store", err)
	}
	data = append(data, '\n')
	if err := renameio.WriteFile(s.path, data, 0o644); err != nil {
		return services.Wrap(services.ErrTransient, "approval", "save", "Write store", err)
	}
	return nil
}

func sorted(records map[string]*Request, keep func(*Request) bool) []*Request {
	out := make([]*Request, 0, len(records))
	for _, rec := range records {
		if keep(rec) {
			out = append(out, rec.clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt < out[j].CreatedAt
		}
		return out[i].ID < out[j].ID
	})
	return out
}
