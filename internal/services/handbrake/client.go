package handbrake

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
)

// tailLimit bounds how many diagnostic lines are retained for error detail.
const tailLimit = 20

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onLine func(string)) error
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(executor Executor) Option {
	return func(c *Client) {
		if executor != nil {
			c.exec = executor
		}
	}
}

// Client wraps HandBrakeCLI invocations.
type Client struct {
	binary string
	exec   Executor
}

// New constructs a HandBrake client.
func New(binary string, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("handbrake binary required")
	}
	client := &Client{binary: binary, exec: commandExecutor{}}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Encode transcodes inputPath to outputPath with the fixed preset. The
// output parent directory is created as needed. A missing or empty output
// file after a clean exit is still a failure.
func (c *Client) Encode(ctx context.Context, inputPath, outputPath string, onProgress func(Progress)) error {
	info, err := os.Stat(inputPath)
	if err != nil {
		return fmt.Errorf("encode input: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("encode input %s is a directory", inputPath)
	}
	if outputPath == "" {
		return errors.New("encode output path required")
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("create encode destination: %w", err)
	}

	var (
		mu   sync.Mutex
		tail []string
	)
	err = c.exec.Run(ctx, c.binary, encodeArgs(inputPath, outputPath), func(line string) {
		if progress, ok := ParseProgress(line); ok {
			if onProgress != nil {
				onProgress(progress)
			}
			return
		}
		if strings.TrimSpace(line) == "" {
			return
		}
		mu.Lock()
		tail = append(tail, line)
		if len(tail) > tailLimit {
			tail = tail[len(tail)-tailLimit:]
		}
		mu.Unlock()
	})
	if err != nil {
		return fmt.Errorf("transcode failed: %w: %s", err, lastLines(tail, 5))
	}

	produced, err := os.Stat(outputPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("transcode produced no output file: %s", lastLines(tail, 5))
		}
		return fmt.Errorf("inspect encode output: %w", err)
	}
	if produced.Size() == 0 {
		return fmt.Errorf("transcode produced an empty output file: %s", lastLines(tail, 5))
	}
	return nil
}

// encodeArgs is the fixed preset: MP4 container, x264 quality 19 at high
// profile level 4.1, primary audio passed through with an AAC stereo
// fallback track, and a scan for forced English subtitles.
func encodeArgs(input, output string) []string {
	return []string{
		"-i", input,
		"-o", output,
		"-f", "av_mp4",
		"-e", "x264",
		"-q", "19",
		"--encoder-profile", "high",
		"--encoder-level", "4.1",
		"--optimize",
		"-E", "copy:*,av_aac",
		"--audio-copy-mask", "aac,ac3,dtshd,dts,truehd",
		"--audio-fallback", "av_aac",
		"-B", ",160",
		"--mixdown", ",stereo",
		"--subtitle", "scan",
		"-N", "eng",
	}
}

func lastLines(lines []string, n int) string {
	if len(lines) == 0 {
		return "no diagnostics reported"
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "; ")
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string, onLine func(string)) error {
	cmd := exec.CommandContext(ctx, binary, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", filepath.Base(binary), err)
	}

	var wg sync.WaitGroup
	scan := func(r io.Reader) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			if onLine != nil {
				onLine(scanner.Text())
			}
		}
	}

	wg.Add(2)
	go scan(stdout)
	go scan(stderr)
	wg.Wait()

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("%s: %w", filepath.Base(binary), err)
	}
	return nil
}
