package makemkv

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"platter/internal/disc"
	"platter/internal/services"
)

// probeAllDrives is the pseudo-source that makes makemkvcon emit a DRV
// record for every attached drive without reading a disc.
const probeAllDrives = "disc:9999"

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

// Client wraps makemkvcon interactions. Probe and Scan are bounded by the
// configured timeouts; Rip runs under the caller's context alone because rip
// duration is disc-dependent.
type Client struct {
	binary       string
	probeTimeout time.Duration
	scanTimeout  time.Duration
	exec         Executor
}

// New constructs a MakeMKV client. Timeout arguments are in seconds; zero
// disables the bound.
func New(binary string, probeTimeoutSeconds, scanTimeoutSeconds int, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("makemkv binary required")
	}
	client := &Client{
		binary:       binary,
		probeTimeout: time.Duration(probeTimeoutSeconds) * time.Second,
		scanTimeout:  time.Duration(scanTimeoutSeconds) * time.Second,
		exec:         commandExecutor{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Probe reports whether the drive holds a disc and the disc's volume label.
// A drive with no matching record counts as empty.
func (c *Client) Probe(ctx context.Context, driveID string) (bool, string, error) {
	driveID = strings.TrimSpace(driveID)
	if driveID == "" {
		return false, "", errors.New("drive id required")
	}

	if c.probeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.probeTimeout)
		defer cancel()
	}

	output, err := c.capture(ctx, []string{"-r", "--cache=1", "info", probeAllDrives}, nil)
	if err != nil {
		marker := services.ErrExternalTool
		if errors.Is(err, context.DeadlineExceeded) {
			marker = services.ErrTimeout
		}
		return false, "", services.Wrap(marker, "disc-probe", "list drives", summarize(output, 5), err)
	}

	state, ok := disc.MatchDrive(disc.ParseDriveStates([]byte(output)), driveID)
	if !ok || !state.Present() {
		return false, "", nil
	}
	return true, state.Label, nil
}

// Scan reads the title layout of the disc in the drive. A readable disc with
// no titles is an error because nothing can be ripped from it.
func (c *Client) Scan(ctx context.Context, driveID string) (*disc.ScanResult, error) {
	driveID = strings.TrimSpace(driveID)
	if driveID == "" {
		return nil, errors.New("drive id required")
	}

	if c.scanTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.scanTimeout)
		defer cancel()
	}

	output, err := c.capture(ctx, []string{"-r", "info", disc.SourceArg(driveID)}, nil)
	if err != nil {
		marker := services.ErrExternalTool
		if errors.Is(err, context.DeadlineExceeded) {
			marker = services.ErrTimeout
		}
		return nil, services.Wrap(marker, "ripping", "scan disc", summarize(output, 5), err)
	}

	result, err := disc.ParseScan([]byte(output))
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "ripping", "scan disc", "", err)
	}
	if len(result.Titles) == 0 {
		return nil, services.Wrap(services.ErrExternalTool, "ripping", "scan disc",
			"no titles found: "+summarize(output, 10), nil)
	}
	return result, nil
}

// Rip extracts one title into destDir and returns the artifact path. The
// destination is recreated so stale partial output never masquerades as a
// fresh rip. Progress percentages stream to onProgress when provided.
func (c *Client) Rip(ctx context.Context, driveID string, titleID int, destDir string, onProgress func(percent float64)) (string, error) {
	driveID = strings.TrimSpace(driveID)
	if driveID == "" {
		return "", errors.New("drive id required")
	}
	if titleID < 0 {
		return "", errors.New("title id must not be negative")
	}
	if destDir == "" {
		return "", errors.New("destination directory required")
	}

	if err := os.RemoveAll(destDir); err != nil && !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("prepare rip destination: %w", err)
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("create rip destination: %w", err)
	}

	args := []string{"-r", "--progress=-same", "mkv", disc.SourceArg(driveID), strconv.Itoa(titleID), destDir}
	output, err := c.capture(ctx, args, onProgress)
	if err != nil {
		return "", services.Wrap(services.ErrExternalTool, "ripping", "rip title", summarize(output, 5), err)
	}

	artifact, err := findArtifact(destDir)
	if err != nil {
		return "", fmt.Errorf("inspect rip output: %w", err)
	}
	if artifact == "" {
		return "", services.Wrap(services.ErrExternalTool, "ripping", "rip title",
			"no output file produced: "+summarize(output, 10), nil)
	}
	return artifact, nil
}

// capture runs the binary while collecting every output line. Progress lines
// are forwarded as they arrive so long rips report continuously.
func (c *Client) capture(ctx context.Context, args []string, onProgress func(float64)) (string, error) {
	var mu sync.Mutex
	var lines []string
	err := c.exec.Run(ctx, c.binary, args, func(line string) {
		mu.Lock()
		lines = append(lines, line)
		mu.Unlock()
		if onProgress != nil {
			if percent, ok := disc.ParseProgress(line); ok {
				onProgress(percent)
			}
		}
	})
	return strings.Join(lines, "\n"), err
}

// summarize condenses trailing diagnostics into a single error detail.
func summarize(output string, n int) string {
	messages := disc.LastMessages(output, n)
	if len(messages) == 0 {
		return "no diagnostics reported"
	}
	return strings.Join(messages, "; ")
}

// findArtifact returns the ripped container file in dir. Several files can
// appear when a title has angle variants; the largest wins, newest on ties.
func findArtifact(dir string) (string, error) {
	items, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", err
	}

	var (
		best     string
		bestSize int64
		bestTime time.Time
	)
	for _, item := range items {
		if item.IsDir() || !strings.HasSuffix(strings.ToLower(item.Name()), ".mkv") {
			continue
		}
		info, err := item.Info()
		if err != nil {
			continue
		}
		if best == "" || info.Size() > bestSize ||
			(info.Size() == bestSize && info.ModTime().After(bestTime)) {
			best = filepath.Join(dir, item.Name())
			bestSize = info.Size()
			bestTime = info.ModTime()
		}
	}
	return best, nil
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

	var (
		wg      sync.WaitGroup
		scanMu  sync.Mutex
		scanErr error
	)
	scan := func(r io.Reader) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			if onLine != nil {
				onLine(scanner.Text())
			}
		}
		if err := scanner.Err(); err != nil {
			scanMu.Lock()
			if scanErr == nil {
				scanErr = err
			}
			scanMu.Unlock()
		}
	}

	wg.Add(2)
	go scan(stdout)
	go scan(stderr)
	wg.Wait()

	if scanErr != nil {
		// An undrained pipe would block the child on its next write.
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return fmt.Errorf("read %s output: %w", filepath.Base(binary), scanErr)
	}
	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("%s: %w", filepath.Base(binary), err)
	}
	return nil
}
