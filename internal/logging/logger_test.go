package logging_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"platter/internal/logging"
	"platter/internal/services"
)

func readLog(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	return string(content)
}

func TestNewConsoleFormatsComponentPrefix(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console.log")

	logger, err := logging.New(logging.Options{
		Format:      "console",
		Level:       "info",
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logging.WithComponent(logger, "daemon").Info("listener ready",
		logging.String("addr", "127.0.0.1:7487"),
	)

	content := readLog(t, logPath)
	if !strings.Contains(content, " INFO daemon: listener ready") {
		t.Fatalf("expected component-prefixed line, got %q", content)
	}
	if !strings.Contains(content, "addr=127.0.0.1:7487") {
		t.Fatalf("expected addr attribute, got %q", content)
	}
}

func TestNewConsoleQuotesValuesWithSpaces(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "quoted.log")

	logger, err := logging.New(logging.Options{
		Format:      "console",
		Level:       "info",
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("disc detected", logging.String("label", "THE MATRIX"))

	content := readLog(t, logPath)
	if !strings.Contains(content, `label="THE MATRIX"`) {
		t.Fatalf("expected quoted label value, got %q", content)
	}
}

func TestNewJSONEmitsStandardKeys(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "json.log")

	logger, err := logging.New(logging.Options{
		Format:      "json",
		Level:       "debug",
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("json message", logging.String("k", "v"))

	content := readLog(t, logPath)
	var record map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &record); err != nil {
		t.Fatalf("decode log line: %v (line %q)", err, content)
	}
	if record["level"] != "info" {
		t.Fatalf("level = %v, want info", record["level"])
	}
	if record["msg"] != "json message" {
		t.Fatalf("msg = %v, want json message", record["msg"])
	}
	if _, ok := record["ts"]; !ok {
		t.Fatalf("expected ts key, got %v", record)
	}
	if record["k"] != "v" {
		t.Fatalf("k = %v, want v", record["k"])
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	_, err := logging.New(logging.Options{Format: "yaml"})
	if err == nil {
		t.Fatal("expected error for unknown format")
	}
	if !strings.Contains(err.Error(), "yaml") {
		t.Fatalf("error %v should name the rejected format", err)
	}
}

func TestNewInvalidLevelDefaultsToInfo(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "level.log")

	logger, err := logging.New(logging.Options{
		Format:      "console",
		Level:       "chatty",
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Debug("hidden")
	logger.Info("visible")

	content := readLog(t, logPath)
	if strings.Contains(content, "hidden") {
		t.Fatalf("debug line should be filtered at info level, got %q", content)
	}
	if !strings.Contains(content, "visible") {
		t.Fatalf("info line missing, got %q", content)
	}
}

func TestNewFromOptionsWritesDaemonLogFile(t *testing.T) {
	logDir := filepath.Join(t.TempDir(), "logs")

	logger, err := logging.NewFromOptions("info", "json", logDir)
	if err != nil {
		t.Fatalf("NewFromOptions returned error: %v", err)
	}

	logger.Info("startup complete")

	content := readLog(t, filepath.Join(logDir, "platter.log"))
	if !strings.Contains(content, "startup complete") {
		t.Fatalf("log file missing message, got %q", content)
	}
}

func TestWithContextAddsFields(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "context.log")

	logger, err := logging.New(logging.Options{
		Format:      "console",
		Level:       "info",
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := context.Background()
	ctx = services.WithJobID(ctx, 123)
	ctx = services.WithStage(ctx, "encoding")
	ctx = services.WithDrive(ctx, "/dev/sr0")
	ctx = services.WithRequestID(ctx, "req-xyz")

	logging.WithContext(ctx, logger).Info("contextual log")

	content := readLog(t, logPath)
	for _, want := range []string{"job_id=123", "stage=encoding", "drive=/dev/sr0", "request_id=req-xyz"} {
		if !strings.Contains(content, want) {
			t.Fatalf("expected %s in output, got %q", want, content)
		}
	}
}

func TestWithContextNilLoggerIsSafe(t *testing.T) {
	ctx := services.WithJobID(context.Background(), 7)
	logger := logging.WithContext(ctx, nil)
	if logger == nil {
		t.Fatal("expected non-nil logger")
	}
	logger.Info("dropped")
}
