package workflow_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"platter/internal/config"
	"platter/internal/notifications"
	"platter/internal/queue"
	"platter/internal/stage"
	"platter/internal/testsupport"
)

// workflowConfig returns a test config with zero poll intervals so lane and
// watcher loops re-poll immediately.
func workflowConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Workflow.QueuePollInterval = 0
	cfg.Drives.PollInterval = 0
	return cfg
}

type stubHandler struct {
	name    string
	prepare func(context.Context, *queue.Job) error
	execute func(context.Context, *queue.Job) error
	health  stage.Health

	mu         sync.Mutex
	executions int
}

func newStubHandler(name string) *stubHandler {
	return &stubHandler{name: name, health: stage.Healthy(name)}
}

func (h *stubHandler) Prepare(ctx context.Context, job *queue.Job) error {
	if h.prepare != nil {
		return h.prepare(ctx, job)
	}
	return nil
}

func (h *stubHandler) Execute(ctx context.Context, job *queue.Job) error {
	h.mu.Lock()
	h.executions++
	h.mu.Unlock()
	if h.execute != nil {
		return h.execute(ctx, job)
	}
	return nil
}

func (h *stubHandler) HealthCheck(context.Context) stage.Health {
	return h.health
}

func (h *stubHandler) executionCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.executions
}

type recordingNotifier struct {
	mu       sync.Mutex
	events   []notifications.Event
	payloads []notifications.Payload
}

func (n *recordingNotifier) Publish(_ context.Context, event notifications.Event, payload notifications.Payload) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	copied := make(notifications.Payload, len(payload))
	for key, value := range payload {
		copied[key] = value
	}
	n.events = append(n.events, event)
	n.payloads = append(n.payloads, copied)
	return nil
}

func (n *recordingNotifier) snapshot() ([]notifications.Event, []notifications.Payload) {
	n.mu.Lock()
	defer n.mu.Unlock()
	events := append([]notifications.Event(nil), n.events...)
	payloads := append([]notifications.Payload(nil), n.payloads...)
	return events, payloads
}

// fakeProber simulates per-drive disc presence for watcher tests.
type fakeProber struct {
	mu      sync.Mutex
	present map[string]bool
	labels  map[string]string
	err     error
	probes  int
}

func newFakeProber() *fakeProber {
	return &fakeProber{present: make(map[string]bool), labels: make(map[string]string)}
}

func (p *fakeProber) Probe(_ context.Context, driveID string) (bool, string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.probes++
	if p.err != nil {
		return false, "", p.err
	}
	return p.present[driveID], p.labels[driveID], nil
}

func (p *fakeProber) insert(driveID, label string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.present[driveID] = true
	p.labels[driveID] = label
}

func (p *fakeProber) eject(driveID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.present[driveID] = false
	p.labels[driveID] = ""
}

func (p *fakeProber) fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

func (p *fakeProber) probeCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.probes
}

// waitFor polls the condition until it holds or the deadline expires.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.After(30 * time.Second)
	for !cond() {
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for %s", what)
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
}

// waitForJobStatus polls until the job reaches the wanted status and returns
// the final row.
func waitForJobStatus(t *testing.T, store *queue.Store, id int64, want queue.Status) *queue.Job {
	t.Helper()
	var last queue.Status
	deadline := time.After(30 * time.Second)
	for {
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for job %d to reach %s; job is %s", id, want, last)
		default:
		}
		job, err := store.GetJob(context.Background(), id)
		if err != nil {
			t.Fatalf("GetJob: %v", err)
		}
		last = job.Status
		if job.Status == want {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
}
