package ledger

import (
	"database/sql"
	"errors"
	"strings"
	"time"
)

const entryColumns = "id, video_path, size_bytes, mod_time, status, request_id, video_id, video_url, title, privacy, error_message, work_dir, created_at, updated_at"

func scanEntry(scanner interface{ Scan(dest ...any) error }) (*Entry, error) {
	var (
		id           int64
		path         string
		size         int64
		modRaw       string
		status       string
		requestID    sql.NullString
		videoID      sql.NullString
		videoURL     sql.NullString
		title        sql.NullString
		privacy      sql.NullString
		errorMessage sql.NullString
		workDir      sql.NullString
		createdRaw   sql.NullString
		updatedRaw   sql.NullString
	)
	if err := scanner.Scan(
		&id, &path, &size, &modRaw, &status,
		&requestID, &videoID, &videoURL, &title, &privacy, &errorMessage, &workDir,
		&createdRaw, &updatedRaw,
	); err != nil {
		return nil, err
	}

	entry := &Entry{
		ID:           id,
		Key:          Key{Path: path, SizeBytes: size},
		Status:       Status(status),
		RequestID:    requestID.String,
		VideoID:      videoID.String,
		VideoURL:     videoURL.String,
		Title:        title.String,
		Privacy:      privacy.String,
		ErrorMessage: errorMessage.String,
		WorkDir:      workDir.String,
	}
	if mod, err := parseTimeString(modRaw); err == nil {
		entry.Key.ModTime = mod
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		entry.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		entry.UpdatedAt = updated
	}
	return entry, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

// timeLayout keeps a fixed fraction width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	return time.Parse(time.RFC3339Nano, value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", count), ",")
}
