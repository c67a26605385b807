package services_test

import (
	"errors"
	"fmt"
	"testing"

	"platter/internal/services"
)

func TestWrapTagsMarker(t *testing.T) {
	base := fmt.Errorf("exit status 1")
	err := services.Wrap(services.ErrExternalTool, "ripping", "makemkv rip", "rip failed", base)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected ErrExternalTool marker, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped base error, got %v", err)
	}
	want := "external tool error: ripping: makemkv rip: rip failed: exit status 1"
	if err.Error() != want {
		t.Fatalf("unexpected message:\n got %q\nwant %q", err.Error(), want)
	}
}

func TestWrapDefaultsMarker(t *testing.T) {
	err := services.Wrap(nil, "moving", "", "library move failed", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected ErrTransient fallback, got %v", err)
	}
}

func TestWrapWithoutDetails(t *testing.T) {
	err := services.Wrap(services.ErrValidation, "", "", "", nil)
	if err.Error() != "validation error: service failure" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestRetryLater(t *testing.T) {
	err := services.Wrap(services.ErrRetryLater, "moving", "check destination", "library root missing", nil)
	if !services.RetryLater(err) {
		t.Fatalf("expected RetryLater to detect marker")
	}
	if services.RetryLater(errors.New("boom")) {
		t.Fatalf("unexpected RetryLater for unrelated error")
	}
}
