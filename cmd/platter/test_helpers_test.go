package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"platter/internal/config"
	"platter/internal/daemon"
	"platter/internal/identification/tmdb"
	"platter/internal/logging"
	"platter/internal/notifications"
	"platter/internal/queue"
	"platter/internal/stage"
	"platter/internal/testsupport"
	"platter/internal/workflow"
)

// cliMover stamps a final path on every job it executes so approved jobs
// reach complete instead of tripping the store's final-path requirement.
type cliMover struct {
	store *queue.Store
	base  string
}

func (m cliMover) Prepare(context.Context, *queue.Job) error { return nil }

func (m cliMover) Execute(ctx context.Context, job *queue.Job) error {
	return m.store.SetFinalPath(ctx, job.ID, filepath.Join(m.base, fmt.Sprintf("job-%d.mp4", job.ID)))
}

func (m cliMover) HealthCheck(context.Context) stage.Health {
	return stage.Healthy("mover")
}

// cliSearcher answers catalog lookups for queries mentioning the matrix and
// returns no matches for everything else.
type cliSearcher struct{}

func (cliSearcher) SearchMovie(_ context.Context, query string, _ int) (*tmdb.Response, error) {
	if !strings.Contains(strings.ToLower(query), "matrix") {
		return &tmdb.Response{Page: 1}, nil
	}
	results := []tmdb.Result{{
		ID:          603,
		Title:       "The Matrix",
		Overview:    "A computer hacker learns the true nature of reality.",
		ReleaseDate: "1999-03-31",
		PosterPath:  "/matrix.jpg",
		Popularity:  83.2,
	}}
	return &tmdb.Response{Page: 1, Results: results, TotalResults: len(results)}, nil
}

func (s cliSearcher) MovieDetails(ctx context.Context, movieID int64) (*tmdb.Result, error) {
	resp, _ := s.SearchMovie(ctx, "matrix", 0)
	for _, result := range resp.Results {
		if result.ID == movieID {
			match := result
			return &match, nil
		}
	}
	return nil, fmt.Errorf("movie %d not found", movieID)
}

type cliNotifier struct {
	mu     sync.Mutex
	events []notifications.Event
}

func (n *cliNotifier) Publish(_ context.Context, event notifications.Event, _ notifications.Payload) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return nil
}

func (n *cliNotifier) Events() []notifications.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]notifications.Event, len(n.events))
	copy(out, n.events)
	return out
}

type cliTestEnv struct {
	cfg        *config.Config
	store      *queue.Store
	daemon     *daemon.Daemon
	notifier   *cliNotifier
	apiAddr    string
	configPath string
}

// setupCLITestEnv starts a full daemon (store, supervisor with a mover lane,
// control surface on an ephemeral port) and writes a matching config file
// under a throwaway HOME. Commands run against it with runCLI.
func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	homeDir := t.TempDir()
	t.Setenv("HOME", homeDir)
	t.Setenv("PLATTER_CONFIG", "")

	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	cfg.Pushover.UserKey = "test-user"
	cfg.Pushover.APIToken = "test-token"

	configPath := filepath.Join(homeDir, ".config", "platter", "config.toml")
	writeTestConfig(t, configPath, cfg)

	store := testsupport.MustOpenStore(t, cfg)

	notifier := &cliNotifier{}
	supervisor := workflow.NewSupervisorWithDependencies(cfg, store, logging.NewNop(), workflow.Handlers{
		Mover: cliMover{store: store, base: cfg.Paths.MoviesDir},
	}, nil, notifier)

	d, err := daemon.NewWithDependencies(cfg, store, logging.NewNop(), supervisor, cliSearcher{}, notifier)
	if err != nil {
		t.Fatalf("NewWithDependencies: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	if err := d.Start(ctx); err != nil {
		cancel()
		t.Fatalf("start daemon: %v", err)
	}
	t.Cleanup(func() {
		cancel()
		_ = d.Close()
	})

	return &cliTestEnv{
		cfg:        cfg,
		store:      store,
		daemon:     d,
		notifier:   notifier,
		apiAddr:    d.APIAddress(),
		configPath: configPath,
	}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	raw, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, apiAddr, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := make([]string, 0, 4)
	if apiAddr != "" {
		flags = append(flags, "--api", apiAddr)
	}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func seedReviewJob(t *testing.T, env *cliTestEnv, label string) *queue.Job {
	t.Helper()
	job := testsupport.NewJob(t, env.store, "0", label)
	return testsupport.AdvanceJob(t, env.store, job,
		queue.StatusRipping, queue.StatusRipped,
		queue.StatusEncoding, queue.StatusEncoded,
		queue.StatusIdentifying, queue.StatusReview,
	)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
