package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"

	"onemin/internal/approval"
	"onemin/internal/ledger"
	"onemin/internal/logging"
	"onemin/internal/metadata"
	"onemin/internal/notifications"
	"onemin/internal/services"
	"onemin/internal/upload"
)

// Approve marks a pending request approved and uploads the video using the
// persisted metadata. An unknown id returns (nil, nil, nil) without writing.
// If the upload fails the request stays approved and the error is returned
// alongside it.
func (c *Controller) Approve(ctx context.Context, id string) (*approval.Request, *upload.Result, error) {
	ctx = services.WithApprovalID(ctx, id)
	logger := logging.WithContext(ctx, c.logger)

	req, err := c.deps.Approvals.Transition(ctx, id, approval.StatusApproved)
	if err != nil || req == nil {
		return req, nil, err
	}
	ctx = services.WithVideo(ctx, req.VideoPath)
	logger = logging.WithContext(ctx, c.logger)
	logger.Info("approval request approved", logging.String(logging.FieldEventType, "approval_approved"))

	if _, err := os.Stat(req.VideoPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			err = services.Wrap(services.ErrNotFound, "approval", "upload", "video no longer exists: "+req.VideoPath, nil)
		} else {
			err = services.Wrap(services.ErrTransient, "approval", "upload", "stat video", err)
		}
		c.resolveLedger(ctx, logger, req.ID, ledger.StatusUploadFailed, nil, err)
		return req, nil, err
	}

	thumb := req.ThumbnailPath
	if thumb != "" {
		if _, err := os.Stat(thumb); err != nil {
			logger.Info("stored thumbnail missing; uploading without it", logging.String("thumbnail", thumb))
			thumb = ""
		}
	}

	snap := req.Snapshot()
	meta := metadata.Metadata{
		Title:       snap.Title,
		Description: snap.Description,
		Tags:        snap.Tags,
		CategoryID:  snap.CategoryID,
	}
	result, err := c.deps.Uploader.Upload(services.WithStage(ctx, "upload"), req.VideoPath, meta, thumb, "")
	if err != nil {
		c.resolveLedger(ctx, logger, req.ID, ledger.StatusUploadFailed, nil, err)
		c.notify(ctx, notifications.EventError, notifications.Payload{
			"context": "upload of " + filepath.Base(req.VideoPath),
			"error":   err.Error(),
		})
		return req, nil, err
	}

	c.resolveLedger(ctx, logger, req.ID, ledger.StatusUploaded, result, nil)
	c.notify(ctx, notifications.EventUploadCompleted, notifications.Payload{
		"title":   result.Title,
		"url":     result.URL,
		"privacy": result.Privacy,
	})
	return req, result, nil
}

// Reject marks a pending request rejected. An unknown id returns (nil, nil).
func (c *Controller) Reject(ctx context.Context, id string) (*approval.Request, error) {
	ctx = services.WithApprovalID(ctx, id)
	logger := logging.WithContext(ctx, c.logger)

	req, err := c.deps.Approvals.Transition(ctx, id, approval.StatusRejected)
	if err != nil || req == nil {
		return req, err
	}
	logger.Info("approval request rejected", logging.String(logging.FieldEventType, "approval_rejected"))
	c.resolveLedger(ctx, logger, req.ID, ledger.StatusRejected, nil, nil)
	return req, nil
}

func (c *Controller) resolveLedger(ctx context.Context, logger *slog.Logger, id string, status ledger.Status, result *upload.Result, cause error) {
	if c.deps.Ledger == nil {
		return
	}
	var videoID, url, msg string
	if result != nil {
		videoID, url = result.VideoID, result.URL
	}
	if cause != nil {
		msg = cause.Error()
	}
	if _, err := c.deps.Ledger.ResolveRequest(context.WithoutCancel(ctx), id, status, videoID, url, msg); err != nil {
		logging.WarnWithContext(logger, "ledger update failed", "ledger_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "history may show a stale status"),
		)
	}
}
