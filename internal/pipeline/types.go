package pipeline

import (
	"context"

	"onemin/internal/analysis"
	"onemin/internal/metadata"
	"onemin/internal/notifications"
	"onemin/internal/thumbnail"
	"onemin/internal/upload"
)

// Analyzer probes a video and extracts frames and transcript.
type Analyzer interface {
	Analyze(ctx context.Context, videoPath, workDir string) (*analysis.Result, error)
}

// Generator produces metadata from an analysis.
type Generator interface {
	Generate(ctx context.Context, result *analysis.Result) (*metadata.Metadata, error)
}

// Renderer writes a thumbnail for a chosen frame.
type Renderer interface {
	Render(ctx context.Context, frame, title, out string) (*thumbnail.Artifact, error)
}

// Uploader publishes a video.
type Uploader interface {
	Upload(ctx context.Context, videoPath string, meta metadata.Metadata, thumbnailPath, privacy string) (*upload.Result, error)
}

// Notifier delivers best-effort operator messages.
type Notifier interface {
	Notify(ctx context.Context, event notifications.Event, payload notifications.Payload) bool
}

// Status is the terminal state of a Run.
type Status string

const (
	StatusPending  Status = "pending"
	StatusDryRun   Status = "dry_run"
	StatusUploaded Status = "uploaded"
	StatusError    Status = "error"
)

// Options tune a single Process call. Empty overrides keep generated values.
type Options struct {
	Title          string
	Description    string
	Tags           []string
	ThumbnailFrame string
	Privacy        string
	DryRun         bool
	SkipApproval   bool
}

// Run is the outcome of processing one video. Fields are filled as stages
// complete, so a failed run still carries whatever was produced before the
// failure.
type Run struct {
	VideoPath string              `json:"video_path"`
	WorkDir   string              `json:"work_dir"`
	Analysis  *analysis.Result    `json:"analysis,omitempty"`
	Metadata  *metadata.Metadata  `json:"metadata,omitempty"`
	Thumbnail *thumbnail.Artifact `json:"thumbnail,omitempty"`
	Upload    *upload.Result      `json:"upload,omitempty"`
	RequestID string              `json:"request_id,omitempty"`
	Notified  bool                `json:"notified"`
	Status    Status              `json:"status"`
	Err       error               `json:"-"`
}
