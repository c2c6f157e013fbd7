package services

import "context"

type contextKey string

const (
	stageKey         contextKey = "stage"
	videoKey         contextKey = "video"
	approvalIDKey    contextKey = "approval_id"
	correlationIDKey contextKey = "correlation_id"
)

// withString stores value under key; empty values leave ctx unchanged.
func withString(ctx context.Context, key contextKey, value string) context.Context {
	if value == "" {
		return ctx
	}
	return context.WithValue(ctx, key, value)
}

func stringFrom(ctx context.Context, key contextKey) (string, bool) {
	v, ok := ctx.Value(key).(string)
	return v, ok && v != ""
}

// WithStage annotates context with the pipeline stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	return withString(ctx, stageKey, stage)
}

// StageFromContext returns the stage name if present.
func StageFromContext(ctx context.Context) (string, bool) { return stringFrom(ctx, stageKey) }

// WithVideo annotates context with the source video path.
func WithVideo(ctx context.Context, path string) context.Context {
	return withString(ctx, videoKey, path)
}

// VideoFromContext returns the source video path if present.
func VideoFromContext(ctx context.Context) (string, bool) { return stringFrom(ctx, videoKey) }

// WithApprovalID annotates context with an approval request identifier.
func WithApprovalID(ctx context.Context, id string) context.Context {
	return withString(ctx, approvalIDKey, id)
}

// ApprovalIDFromContext returns the approval request identifier if present.
func ApprovalIDFromContext(ctx context.Context) (string, bool) {
	return stringFrom(ctx, approvalIDKey)
}

// WithCorrelationID tags every log line of one pipeline run.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return withString(ctx, correlationIDKey, id)
}

// CorrelationIDFromContext extracts the correlation identifier if present.
func CorrelationIDFromContext(ctx context.Context) (string, bool) {
	return stringFrom(ctx, correlationIDKey)
}
