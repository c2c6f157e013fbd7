package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Store manages ledger persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates the ledger at path if needed and applies the schema. The
// connection runs in WAL mode and waits up to 5s on a locked database, so the
// watcher and CLI commands can share it.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure ledger directory: %w", err)
	}
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open ledger %s: %w", path, err)
	}
	return store, nil
}

// Close releases the database handle. It is safe on a nil store.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database location.
func (s *Store) Path() string {
	return s.path
}

// Lookup returns the entry for key, or nil when the file version is unknown.
func (s *Store) Lookup(ctx context.Context, key Key) (*Entry, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+entryColumns+` FROM ingestions WHERE video_path = ? AND size_bytes = ? AND mod_time = ?`,
		key.Path, key.SizeBytes, formatTime(key.ModTime),
	)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup ingestion: %w", err)
	}
	return entry, nil
}

// FindByRequest returns the entry that produced an approval request.
func (s *Store) FindByRequest(ctx context.Context, requestID string) (*Entry, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+entryColumns+` FROM ingestions WHERE request_id = ? ORDER BY id DESC LIMIT 1`,
		requestID,
	)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find by request: %w", err)
	}
	return entry, nil
}

// Record inserts or replaces the outcome for entry.Key and returns the
// stored row.
func (s *Store) Record(ctx context.Context, entry Entry) (*Entry, error) {
	if entry.Key.Path == "" {
		return nil, errors.New("ledger entry requires a path")
	}
	if entry.Status == "" {
		return nil, errors.New("ledger entry requires a status")
	}
	now := formatTime(time.Now())
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO ingestions (
            video_path, size_bytes, mod_time, status, request_id, video_id, video_url,
            title, privacy, error_message, work_dir, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT (video_path, size_bytes, mod_time) DO UPDATE SET
            status = excluded.status,
            request_id = excluded.request_id,
            video_id = excluded.video_id,
            video_url = excluded.video_url,
            title = excluded.title,
            privacy = excluded.privacy,
            error_message = excluded.error_message,
            work_dir = excluded.work_dir,
            updated_at = excluded.updated_at`,
		entry.Key.Path,
		entry.Key.SizeBytes,
		formatTime(entry.Key.ModTime),
		entry.Status,
		nullableString(entry.RequestID),
		nullableString(entry.VideoID),
		nullableString(entry.VideoURL),
		nullableString(entry.Title),
		nullableString(entry.Privacy),
		nullableString(entry.ErrorMessage),
		nullableString(entry.WorkDir),
		now,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("record ingestion: %w", err)
	}
	return s.Lookup(ctx, entry.Key)
}

// ResolveRequest updates the entry created for an approval request once the
// request is approved and uploaded, or rejected. It reports whether a row
// matched.
func (s *Store) ResolveRequest(ctx context.Context, requestID string, status Status, videoID, videoURL, errMsg string) (bool, error) {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE ingestions
         SET status = ?, video_id = COALESCE(?, video_id), video_url = COALESCE(?, video_url),
             error_message = ?, updated_at = ?
         WHERE request_id = ?`,
		status,
		nullableString(videoID),
		nullableString(videoURL),
		nullableString(errMsg),
		formatTime(time.Now()),
		requestID,
	)
	if err != nil {
		return false, fmt.Errorf("resolve request: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// History returns the most recently updated entries, newest first. A limit of
// zero or less returns every row.
func (s *Store) History(ctx context.Context, limit int, statuses ...Status) ([]*Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM ingestions`
	args := make([]any, 0, len(statuses)+1)
	if len(statuses) > 0 {
		query += ` WHERE status IN (` + makePlaceholders(len(statuses)) + `)`
		for _, status := range statuses {
			args = append(args, status)
		}
	}
	query += ` ORDER BY updated_at DESC, id DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Stats returns a count of entries grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM ingestions GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("ledger stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// Ping verifies the database is reachable and passes an integrity check.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return errors.New("ledger connection unavailable")
	}
	connCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := s.db.PingContext(connCtx); err != nil {
		return fmt.Errorf("ping ledger: %w", err)
	}
	var result string
	if err := s.db.QueryRowContext(connCtx, "PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity check: %s", result)
	}
	return nil
}
