package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"platter/internal/config"
)

const (
	userAgent       = "Platter/0.1.0"
	defaultEndpoint = "https://api.pushover.net/1/messages.json"
)

// Event identifies a pipeline milestone worth telling the user about.
type Event string

const (
	EventDiscDetected    Event = "disc_detected"
	EventRipCompleted    Event = "rip_completed"
	EventEncodeCompleted Event = "encode_completed"
	EventReviewRequired  Event = "review_required"
	EventJobCompleted    Event = "job_completed"
	EventJobFailed       Event = "job_failed"
	EventTest            Event = "test"
)

// Payload carries the values rendered into the outgoing message.
type Payload map[string]string

// Service defines the notification surface exposed to pipeline components.
// Publish is best-effort; callers log failures and move on.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// Option customizes the Pushover-backed service.
type Option func(*pushoverService)

// WithEndpoint overrides the Pushover API endpoint (used in tests).
func WithEndpoint(endpoint string) Option {
	return func(s *pushoverService) {
		if strings.TrimSpace(endpoint) != "" {
			s.endpoint = endpoint
		}
	}
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(s *pushoverService) {
		if client != nil {
			s.client = client
		}
	}
}

// NewService builds a notification service backed by Pushover when both
// credentials are configured. Otherwise a noop implementation is returned
// so pipeline code never has to branch.
func NewService(cfg *config.Config, opts ...Option) Service {
	userKey := strings.TrimSpace(cfg.Pushover.UserKey)
	apiToken := strings.TrimSpace(cfg.Pushover.APIToken)
	if userKey == "" || apiToken == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Pushover.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	svc := &pushoverService{
		endpoint: defaultEndpoint,
		userKey:  userKey,
		apiToken: apiToken,
		client:   &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// message is one rendered notification ready for delivery. Priority follows
// the Pushover scale: -2 silent through 2 emergency.
type message struct {
	title    string
	body     string
	priority int
	link     string
}

type pushoverService struct {
	endpoint string
	userKey  string
	apiToken string
	client   *http.Client
}

func (p *pushoverService) Publish(ctx context.Context, event Event, payload Payload) error {
	msg, ok := render(event, payload)
	if !ok {
		return nil
	}
	return p.send(ctx, msg)
}

// render maps an event and its payload to a Pushover message. Events the
// user has no reason to hear about return ok=false.
func render(event Event, payload Payload) (message, bool) {
	get := func(key string) string {
		return strings.TrimSpace(payload[key])
	}
	orUnknown := func(value string) string {
		if value == "" {
			return "Unknown Disc"
		}
		return value
	}

	switch event {
	case EventDiscDetected:
		body := fmt.Sprintf("Disc detected: %s", orUnknown(get("discLabel")))
		if drive := get("drive"); drive != "" {
			body = fmt.Sprintf("%s (drive %s)", body, drive)
		}
		return message{title: "Platter - Disc Detected", body: body, priority: -1}, true
	case EventRipCompleted:
		return message{
			title:    "Platter - Rip Complete",
			body:     fmt.Sprintf("Rip complete: %s", orUnknown(get("title"))),
			priority: 0,
		}, true
	case EventEncodeCompleted:
		return message{
			title:    "Platter - Encoded",
			body:     fmt.Sprintf("Encoding complete: %s", orUnknown(get("title"))),
			priority: 0,
		}, true
	case EventReviewRequired:
		body := fmt.Sprintf("Needs review: %s", orUnknown(get("title")))
		if reason := get("reason"); reason != "" {
			body = fmt.Sprintf("%s\n%s", body, reason)
		}
		return message{title: "Platter - Review Needed", body: body, priority: 1, link: get("url")}, true
	case EventJobCompleted:
		return message{
			title:    "Platter - Complete",
			body:     fmt.Sprintf("Ready to watch: %s", orUnknown(get("title"))),
			priority: 0,
		}, true
	case EventJobFailed:
		var builder strings.Builder
		builder.WriteString("Error")
		if stage := get("stage"); stage != "" {
			builder.WriteString(" during ")
			builder.WriteString(stage)
		}
		builder.WriteString(": ")
		builder.WriteString(orUnknown(get("title")))
		if errText := get("error"); errText != "" {
			builder.WriteString("\n")
			builder.WriteString(errText)
		}
		return message{title: "Platter - Error", body: builder.String(), priority: 1}, true
	case EventTest:
		return message{title: "Platter - Test", body: "Notification system test", priority: 0}, true
	default:
		return message{}, false
	}
}

func (p *pushoverService) send(ctx context.Context, msg message) error {
	if p == nil || p.client == nil {
		return nil
	}

	priority := msg.priority
	if priority < -2 {
		priority = -2
	}
	if priority > 2 {
		priority = 2
	}

	form := url.Values{}
	form.Set("token", p.apiToken)
	form.Set("user", p.userKey)
	form.Set("title", msg.title)
	form.Set("message", msg.body)
	form.Set("priority", strconv.Itoa(priority))
	if msg.link != "" {
		form.Set("url", msg.link)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build pushover request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("send pushover notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("pushover returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
