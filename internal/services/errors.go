package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound marks lookups of job, collection, or wanted rows that do
	// not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidTransition marks status changes rejected by the job state
	// graph or a control-surface guard.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrValidation marks rejected caller input.
	ErrValidation = errors.New("validation error")
	// ErrConfiguration marks missing or unusable configuration.
	ErrConfiguration = errors.New("configuration error")
	// ErrExternalTool marks failures of makemkvcon, HandBrakeCLI, or other
	// spawned tools.
	ErrExternalTool = errors.New("external tool error")
	// ErrTransient marks failures that may succeed on a later attempt.
	ErrTransient = errors.New("transient failure")
	// ErrTimeout marks operations that exceeded their deadline.
	ErrTimeout = errors.New("timeout")
	// ErrRetryLater marks stage passes that should leave the job untouched
	// and retry on the next loop, such as the mover finding the library
	// root unmounted.
	ErrRetryLater = errors.New("retry later")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// RetryLater reports whether the error asks the worker to leave the job in
// its current status and try again on the next pass.
func RetryLater(err error) bool {
	return errors.Is(err, ErrRetryLater)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
