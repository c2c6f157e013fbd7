package ledger

import (
	"os"
	"time"
)

// Status is the outcome recorded for an ingestion.
type Status string

const (
	StatusPending  Status = "pending"
	StatusDryRun   Status = "dry_run"
	StatusUploaded Status = "uploaded"
	StatusRejected Status = "rejected"
	// StatusUploadFailed marks an approved request whose upload failed. The
	// operator retries with the upload command, so scans skip it.
	StatusUploadFailed Status = "upload_failed"
	StatusError        Status = "error"
)

// Key identifies one version of a source file.
type Key struct {
	Path      string
	SizeBytes int64
	ModTime   time.Time
}

// KeyFor stats path and returns its ledger key.
func KeyFor(path string) (Key, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Key{}, err
	}
	return Key{Path: path, SizeBytes: info.Size(), ModTime: info.ModTime().UTC()}, nil
}

// Entry is a single ledger row.
type Entry struct {
	ID           int64
	Key          Key
	Status       Status
	RequestID    string
	VideoID      string
	VideoURL     string
	Title        string
	Privacy      string
	ErrorMessage string
	WorkDir      string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Handled reports whether the file should not be processed again. Errors are
// retried on the next scan.
func (e *Entry) Handled() bool {
	return e != nil && e.Status != StatusError
}
