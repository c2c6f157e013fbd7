package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/renameio/v2"
	"github.com/google/uuid"

	"onemin/internal/approval"
	"onemin/internal/ledger"
	"onemin/internal/logging"
	"onemin/internal/metadata"
	"onemin/internal/notifications"
	"onemin/internal/services"
	"onemin/internal/textutil"
	"onemin/internal/thumbnail"
)

// Deps lists the collaborators a Controller drives. Ledger and Notifier are
// optional.
type Deps struct {
	Analyzer  Analyzer
	Generator Generator
	Renderer  Renderer
	Uploader  Uploader
	Notifier  Notifier
	Approvals *approval.Store
	Ledger    *ledger.Store
}

// Controller runs the per-video pipeline.
type Controller struct {
	deps     Deps
	workRoot string
	logger   *slog.Logger
	now      func() time.Time
}

// Option customizes a Controller.
type Option func(*Controller)

// WithClock overrides the clock used for work directory names.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// New validates deps and returns a controller writing scratch files under
// workRoot.
func New(deps Deps, workRoot string, logger *slog.Logger, opts ...Option) (*Controller, error) {
	switch {
	case deps.Analyzer == nil:
		return nil, errors.New("pipeline requires an analyzer")
	case deps.Generator == nil:
		return nil, errors.New("pipeline requires a metadata generator")
	case deps.Renderer == nil:
		return nil, errors.New("pipeline requires a thumbnail renderer")
	case deps.Uploader == nil:
		return nil, errors.New("pipeline requires an uploader")
	case deps.Approvals == nil:
		return nil, errors.New("pipeline requires an approval store")
	case strings.TrimSpace(workRoot) == "":
		return nil, errors.New("pipeline requires a work directory")
	}
	c := &Controller{
		deps:     deps,
		workRoot: workRoot,
		logger:   logging.NewComponentLogger(logger, "pipeline"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Process runs videoPath through the pipeline. On failure the returned Run
// has StatusError and Err set, and the same error is returned.
func (c *Controller) Process(ctx context.Context, videoPath string, opts Options) (*Run, error) {
	ctx = services.WithVideo(ctx, videoPath)
	ctx = services.WithCorrelationID(ctx, uuid.NewString())
	logger := logging.WithContext(ctx, c.logger)

	run := &Run{VideoPath: videoPath}
	// Keyed before processing so the ledger row matches what the scan sees.
	key, keyErr := ledger.KeyFor(videoPath)

	start := c.now()
	if err := c.process(ctx, logger, run, opts); err != nil {
		run.Status = StatusError
		run.Err = err
		logging.ErrorWithContext(logger, "video processing failed", "pipeline_failed", logging.Failure(err)...)
		c.notify(ctx, notifications.EventError, notifications.Payload{
			"context": filepath.Base(videoPath),
			"error":   err.Error(),
		})
	} else {
		logger.Info("video processed",
			logging.String(logging.FieldEventType, "pipeline_complete"),
			logging.String("status", string(run.Status)),
			logging.String("request_id", run.RequestID),
			logging.Duration("elapsed", c.now().Sub(start)),
		)
	}

	if keyErr == nil {
		c.record(ctx, logger, key, run)
	}
	c.writeSummary(logger, run)
	return run, run.Err
}

func (c *Controller) process(ctx context.Context, logger *slog.Logger, run *Run, opts Options) error {
	workDir := filepath.Join(c.workRoot, textutil.WorkDirName(c.now().Format("20060102-150405"), run.VideoPath))
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return services.Wrap(services.ErrTransient, "pipeline", "prepare", "create work directory", err)
	}
	run.WorkDir = workDir

	result, err := c.deps.Analyzer.Analyze(services.WithStage(ctx, "analysis"), run.VideoPath, workDir)
	if err != nil {
		return err
	}
	run.Analysis = result
	logger.Info("video analyzed",
		logging.Float64("duration_seconds", result.Asset.DurationSeconds),
		logging.String("resolution", result.Asset.Resolution()),
		logging.Int("frames", len(result.Frames)),
		logging.Int("transcript_chars", len(result.Transcript)),
	)

	generated, err := c.deps.Generator.Generate(services.WithStage(ctx, "metadata"), result)
	if err != nil {
		return err
	}
	meta := generated.Apply(metadata.Overrides{Title: opts.Title, Description: opts.Description, Tags: opts.Tags})
	run.Metadata = &meta
	logger.Info("metadata ready", logging.String("title", meta.Title), logging.Int("tags", len(meta.Tags)))

	frame, ok := thumbnail.SelectFrame(result.Frames, meta.SuggestedThumbnailIndex, opts.ThumbnailFrame)
	if !ok {
		return services.Wrap(services.ErrValidation, "thumbnail", "select frame", "no frames extracted and no thumbnail frame given", nil)
	}
	artifact, err := c.deps.Renderer.Render(services.WithStage(ctx, "thumbnail"), frame, meta.Title, filepath.Join(workDir, "thumbnail.jpg"))
	if err != nil {
		return err
	}
	run.Thumbnail = artifact

	switch {
	case opts.DryRun:
		run.Status = StatusDryRun
		return nil
	case opts.SkipApproval:
		uploaded, err := c.deps.Uploader.Upload(services.WithStage(ctx, "upload"), run.VideoPath, meta, artifact.Path, opts.Privacy)
		if err != nil {
			return err
		}
		run.Upload = uploaded
		run.Status = StatusUploaded
		c.notify(ctx, notifications.EventUploadCompleted, notifications.Payload{
			"title":   uploaded.Title,
			"url":     uploaded.URL,
			"privacy": uploaded.Privacy,
		})
		return nil
	default:
		req, err := c.deps.Approvals.Create(services.WithStage(ctx, "approval"), run.VideoPath, approval.Snapshot{
			Title:       meta.Title,
			Description: meta.Description,
			Tags:        meta.Tags,
			CategoryID:  meta.CategoryID,
		}, artifact.Path)
		if err != nil {
			return err
		}
		run.RequestID = req.ID
		run.Status = StatusPending
		run.Notified = c.notify(services.WithApprovalID(ctx, req.ID), notifications.EventApprovalRequested, notifications.Payload{
			"requestID":   req.ID,
			"title":       req.Title,
			"description": req.Description,
			"tags":        req.Tags,
			"video":       req.VideoPath,
			"thumbnail":   req.ThumbnailPath,
			"duration":    result.Asset.DurationSeconds,
			"resolution":  result.Asset.Resolution(),
		})
		if !run.Notified {
			logger.Info("approval request awaiting operator",
				logging.String("request_id", req.ID),
				logging.String("next_step", fmt.Sprintf("onemin approve %s", req.ID)),
			)
		}
		return nil
	}
}

func (c *Controller) notify(ctx context.Context, event notifications.Event, payload notifications.Payload) bool {
	if c.deps.Notifier == nil {
		return false
	}
	return c.deps.Notifier.Notify(ctx, event, payload)
}

func (c *Controller) record(ctx context.Context, logger *slog.Logger, key ledger.Key, run *Run) {
	if c.deps.Ledger == nil {
		return
	}
	entry := ledger.Entry{
		Key:       key,
		Status:    ledgerStatus(run.Status),
		RequestID: run.RequestID,
		WorkDir:   run.WorkDir,
	}
	if run.Metadata != nil {
		entry.Title = run.Metadata.Title
	}
	if run.Upload != nil {
		entry.VideoID = run.Upload.VideoID
		entry.VideoURL = run.Upload.URL
		entry.Privacy = run.Upload.Privacy
	}
	if run.Err != nil {
		entry.ErrorMessage = run.Err.Error()
	}
	// A cancelled run still gets recorded.
	if _, err := c.deps.Ledger.Record(context.WithoutCancel(ctx), entry); err != nil {
		logging.WarnWithContext(logger, "ledger write failed", "ledger_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "file may be reprocessed by the next startup scan"),
		)
	}
}

// writeSummary leaves run.json next to the artifacts so a dry run can be
// inspected later.
func (c *Controller) writeSummary(logger *slog.Logger, run *Run) {
	if run.WorkDir == "" {
		return
	}
	summary := struct {
		*Run
		Error string `json:"error,omitempty"`
	}{Run: run}
	if run.Err != nil {
		summary.Error = run.Err.Error()
	}
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		logger.Debug("encode run summary failed", logging.Error(err))
		return
	}
	if err := renameio.WriteFile(filepath.Join(run.WorkDir, "run.json"), data, 0o644); err != nil {
		logger.Debug("write run summary failed", logging.Error(err))
	}
}

func ledgerStatus(status Status) ledger.Status {
	switch status {
	case StatusDryRun:
		return ledger.StatusDryRun
	case StatusUploaded:
		return ledger.StatusUploaded
	case StatusPending:
		return ledger.StatusPending
	default:
		return ledger.StatusError
	}
}
