package services_test

import (
	"context"
	"testing"

	"platter/internal/services"
)

func TestContextRoundTrip(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithJobID(ctx, 42)
	ctx = services.WithStage(ctx, "ripping")
	ctx = services.WithDrive(ctx, "0")
	ctx = services.WithRequestID(ctx, "req-1")

	if id, ok := services.JobIDFromContext(ctx); !ok || id != 42 {
		t.Fatalf("job id = %d, %v", id, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "ripping" {
		t.Fatalf("stage = %q, %v", stage, ok)
	}
	if drive, ok := services.DriveFromContext(ctx); !ok || drive != "0" {
		t.Fatalf("drive = %q, %v", drive, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-1" {
		t.Fatalf("request id = %q, %v", rid, ok)
	}
}

func TestContextEmptyValuesIgnored(t *testing.T) {
	ctx := services.WithStage(context.Background(), "")
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatalf("empty stage should not be stored")
	}
	if _, ok := services.JobIDFromContext(context.Background()); ok {
		t.Fatalf("missing job id should report false")
	}
}
