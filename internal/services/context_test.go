package services_test

import (
	"context"
	"testing"

	"onemin/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithStage(ctx, "analysis")
	ctx = services.WithVideo(ctx, "/videos/a.mp4")
	ctx = services.WithApprovalID(ctx, "ab12cd34")
	ctx = services.WithCorrelationID(ctx, "req-123")

	if stage, ok := services.StageFromContext(ctx); !ok || stage != "analysis" {
		t.Fatalf("unexpected stage: %v %v", stage, ok)
	}
	if video, ok := services.VideoFromContext(ctx); !ok || video != "/videos/a.mp4" {
		t.Fatalf("unexpected video: %v %v", video, ok)
	}
	if id, ok := services.ApprovalIDFromContext(ctx); !ok || id != "ab12cd34" {
		t.Fatalf("unexpected approval id: %v %v", id, ok)
	}
	if rid, ok := services.CorrelationIDFromContext(ctx); !ok || rid != "req-123" {
		t.Fatalf("unexpected correlation id: %v %v", rid, ok)
	}
}

func TestStageBlankPreservesContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithStage(ctx, "")
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("expected no stage value")
	}
}
