package handbrake

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseProgress(t *testing.T) {
	tests := []struct {
		line string
		want Progress
		ok   bool
	}{
		{"Encoding: task 1 of 1, 45.67 %", Progress{Percent: 45.67}, true},
		{
			"Encoding: task 1 of 1, 45.67 % (30.50 fps, avg 29.80 fps, ETA 00h05m12s)",
			Progress{Percent: 45.67, FPS: 30.50, ETA: "00h05m12s"},
			true,
		},
		{"Encoding: task 1 of 1, 100.00 %", Progress{Percent: 100}, true},
		{"Muxing: this may take awhile...", Progress{}, false},
		{"Encoding: task 1 of 1", Progress{}, false},
		{"[15:04:05] work: average encoding speed", Progress{}, false},
	}
	for _, tt := range tests {
		got, ok := ParseProgress(tt.line)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ParseProgress(%q) = %+v, %v; want %+v, %v", tt.line, got, ok, tt.want, tt.ok)
		}
	}
}

type fakeExecutor struct {
	lines  []string
	err    error
	args   []string
	onRun  func()
	binary string
}

func (f *fakeExecutor) Run(ctx context.Context, binary string, args []string, onLine func(string)) error {
	f.binary = binary
	f.args = append([]string(nil), args...)
	if f.onRun != nil {
		f.onRun()
	}
	for _, line := range f.lines {
		onLine(line)
	}
	return f.err
}

func writeInput(t *testing.T) string {
	t.Helper()
	input := filepath.Join(t.TempDir(), "movie.mkv")
	if err := os.WriteFile(input, []byte("mkv"), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	return input
}

func TestEncodeRunsFixedPreset(t *testing.T) {
	input := writeInput(t)
	output := filepath.Join(t.TempDir(), "encoded", "movie.mp4")

	executor := &fakeExecutor{
		lines: []string{
			"Encoding: task 1 of 1, 25.00 %",
			"Encoding: task 1 of 1, 75.00 % (60.00 fps, avg 58.11 fps, ETA 00h01m02s)",
		},
		onRun: func() {
			if err := os.WriteFile(output, []byte("mp4"), 0o644); err != nil {
				t.Fatalf("write output: %v", err)
			}
		},
	}
	client, err := New("HandBrakeCLI", WithExecutor(executor))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	var samples []Progress
	if err := client.Encode(context.Background(), input, output, func(p Progress) {
		samples = append(samples, p)
	}); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	if len(samples) != 2 || samples[0].Percent != 25 || samples[1].FPS != 60 {
		t.Errorf("progress samples = %+v", samples)
	}
	if executor.binary != "HandBrakeCLI" {
		t.Errorf("binary = %q", executor.binary)
	}

	joined := strings.Join(executor.args, " ")
	for _, fragment := range []string{
		"-i " + input,
		"-o " + output,
		"-f av_mp4",
		"-q 19",
		"--encoder-profile high",
		"--encoder-level 4.1",
		"-E copy:*,av_aac",
		"--audio-fallback av_aac",
		"--subtitle scan",
	} {
		if !strings.Contains(joined, fragment) {
			t.Errorf("args missing %q in %q", fragment, joined)
		}
	}
}

func TestEncodeMissingInput(t *testing.T) {
	client, err := New("HandBrakeCLI", WithExecutor(&fakeExecutor{}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	missing := filepath.Join(t.TempDir(), "absent.mkv")
	if err := client.Encode(context.Background(), missing, "out.mp4", nil); err == nil {
		t.Fatal("expected error for missing input")
	}
}

func TestEncodeFailureCarriesDiagnostics(t *testing.T) {
	input := writeInput(t)
	output := filepath.Join(t.TempDir(), "movie.mp4")

	executor := &fakeExecutor{
		lines: []string{
			"Encoding: task 1 of 1, 10.00 %",
			"x264 [error]: malloc of size 934 failed",
		},
		err: errors.New("exit status 1"),
	}
	client, err := New("HandBrakeCLI", WithExecutor(executor))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	encodeErr := client.Encode(context.Background(), input, output, nil)
	if encodeErr == nil {
		t.Fatal("expected encode failure")
	}
	if !strings.Contains(encodeErr.Error(), "malloc of size 934 failed") {
		t.Errorf("error %q should carry the last diagnostic lines", encodeErr)
	}
}

func TestEncodeRejectsMissingOutput(t *testing.T) {
	input := writeInput(t)
	output := filepath.Join(t.TempDir(), "movie.mp4")

	client, err := New("HandBrakeCLI", WithExecutor(&fakeExecutor{}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := client.Encode(context.Background(), input, output, nil); err == nil {
		t.Fatal("expected error when no output file was produced")
	}
}

func TestEncodeRejectsEmptyOutput(t *testing.T) {
	input := writeInput(t)
	output := filepath.Join(t.TempDir(), "movie.mp4")

	executor := &fakeExecutor{
		onRun: func() {
			if err := os.WriteFile(output, nil, 0o644); err != nil {
				t.Fatalf("write output: %v", err)
			}
		},
	}
	client, err := New("HandBrakeCLI", WithExecutor(executor))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := client.Encode(context.Background(), input, output, nil); err == nil {
		t.Fatal("expected error for empty output file")
	}
}
