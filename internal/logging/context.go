package logging

import (
	"context"
	"log/slog"

	"onemin/internal/services"
)

// Record keys shared by every package.
const (
	FieldComponent     = "component"
	FieldStage         = "stage"
	FieldVideo         = "video"
	FieldApprovalID    = "approval_id"
	FieldCorrelationID = "correlation_id"
	// FieldEventType classifies warnings and errors so they can be grepped.
	FieldEventType = "event_type"
	// FieldErrorKind carries services.Kind of the failing error.
	FieldErrorKind = "error_kind"
	// FieldErrorHint carries the operator's next step.
	FieldErrorHint = "error_hint"
	// FieldImpact says what the operator loses because of a warning.
	FieldImpact = "impact"
)

// WithContext returns logger tagged with the stage, video, approval id and
// correlation id stored in ctx.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	if ctx == nil {
		return logger
	}
	var args []any
	if stage, ok := services.StageFromContext(ctx); ok {
		args = append(args, slog.String(FieldStage, stage))
	}
	if video, ok := services.VideoFromContext(ctx); ok {
		args = append(args, slog.String(FieldVideo, video))
	}
	if id, ok := services.ApprovalIDFromContext(ctx); ok {
		args = append(args, slog.String(FieldApprovalID, id))
	}
	if cid, ok := services.CorrelationIDFromContext(ctx); ok {
		args = append(args, slog.String(FieldCorrelationID, cid))
	}
	if len(args) == 0 {
		return logger
	}
	return logger.With(args...)
}
