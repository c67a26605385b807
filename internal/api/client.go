package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultClientTimeout = 30 * time.Second

// StatusError is a non-2xx answer from the daemon, carrying the detail
// string the control surface produced.
type StatusError struct {
	Code   int
	Detail string
}

func (e *StatusError) Error() string {
	if strings.TrimSpace(e.Detail) == "" {
		return fmt.Sprintf("daemon returned %d %s", e.Code, http.StatusText(e.Code))
	}
	return e.Detail
}

// Client calls the daemon's HTTP control surface.
type Client struct {
	baseURL string
	http    *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithClientHTTP overrides the underlying HTTP client.
func WithClientHTTP(client *http.Client) ClientOption {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

// NewClient builds a client for the surface at addr. addr accepts the bare
// host:port form used by paths.api_bind or a full http URL; wildcard binds
// are dialed via loopback.
func NewClient(addr string, opts ...ClientOption) *Client {
	base := strings.TrimSpace(addr)
	if base == "" {
		base = "127.0.0.1:8080"
	}
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	base = strings.TrimRight(base, "/")
	if parsed, err := url.Parse(base); err == nil {
		host := parsed.Hostname()
		if host == "" || host == "0.0.0.0" || host == "::" {
			port := parsed.Port()
			if port == "" {
				port = "8080"
			}
			parsed.Host = "127.0.0.1:" + port
			base = parsed.String()
		}
	}

	c := &Client{
		baseURL: base,
		http:    &http.Client{Timeout: defaultClientTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL reports the resolved surface address.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Status fetches the daemon and workflow summary.
func (c *Client) Status(ctx context.Context) (StatusResponse, error) {
	var out StatusResponse
	err := c.do(ctx, http.MethodGet, "/api/status", nil, nil, &out)
	return out, err
}

// Jobs lists recent jobs, newest first. limit <= 0 uses the server default.
func (c *Client) Jobs(ctx context.Context, limit int, includeArchived bool) ([]JobView, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	if includeArchived {
		query.Set("include_archived", "true")
	}
	var out JobListResponse
	if err := c.do(ctx, http.MethodGet, "/api/jobs", query, nil, &out); err != nil {
		return nil, err
	}
	return out.Jobs, nil
}

// Job fetches one job by id.
func (c *Client) Job(ctx context.Context, id int64) (JobView, error) {
	var out JobResponse
	err := c.do(ctx, http.MethodGet, c.jobPath(id, ""), nil, nil, &out)
	return out.Job, err
}

// Approve releases a review job to the mover.
func (c *Client) Approve(ctx context.Context, id int64) (MutationResponse, error) {
	var out MutationResponse
	err := c.do(ctx, http.MethodPost, c.jobPath(id, "approve"), nil, nil, &out)
	return out, err
}

// Identify writes a manual identification on a review job and releases it.
func (c *Client) Identify(ctx context.Context, id int64, req IdentifyRequest) (MutationResponse, error) {
	var out MutationResponse
	err := c.do(ctx, http.MethodPost, c.jobPath(id, "identify"), nil, req, &out)
	return out, err
}

// PreIdentify writes a manual identification on an in-flight job without
// touching its status.
func (c *Client) PreIdentify(ctx context.Context, id int64, req IdentifyRequest) (MutationResponse, error) {
	var out MutationResponse
	err := c.do(ctx, http.MethodPost, c.jobPath(id, "pre-identify"), nil, req, &out)
	return out, err
}

// Skip fails a review job on the user's behalf.
func (c *Client) Skip(ctx context.Context, id int64) (MutationResponse, error) {
	var out MutationResponse
	err := c.do(ctx, http.MethodPost, c.jobPath(id, "skip"), nil, nil, &out)
	return out, err
}

// Archive hides a complete or failed job from the default listings.
func (c *Client) Archive(ctx context.Context, id int64) (MutationResponse, error) {
	var out MutationResponse
	err := c.do(ctx, http.MethodPost, c.jobPath(id, "archive"), nil, nil, &out)
	return out, err
}

// OversightCheck reports queue-consistency issues without changing state.
func (c *Client) OversightCheck(ctx context.Context) (OversightCheckResponse, error) {
	var out OversightCheckResponse
	err := c.do(ctx, http.MethodGet, "/api/oversight/check", nil, nil, &out)
	return out, err
}

// FixEncoding reverts surplus encoding jobs to ripped.
func (c *Client) FixEncoding(ctx context.Context) (FixEncodingResponse, error) {
	var out FixEncodingResponse
	err := c.do(ctx, http.MethodPost, "/api/oversight/fix-encoding", nil, nil, &out)
	return out, err
}

// ActiveMode reads the disc-watching toggle.
func (c *Client) ActiveMode(ctx context.Context) (bool, error) {
	var out ActiveModeResponse
	err := c.do(ctx, http.MethodGet, "/api/active-mode", nil, nil, &out)
	return out.Active, err
}

// ToggleActiveMode flips the disc-watching toggle and reports the new state.
func (c *Client) ToggleActiveMode(ctx context.Context) (bool, error) {
	var out ActiveModeResponse
	err := c.do(ctx, http.MethodPost, "/api/active-mode/toggle", nil, nil, &out)
	return out.Active, err
}

// Wanted lists the watch list, newest first.
func (c *Client) Wanted(ctx context.Context) ([]WantedItemView, error) {
	var out WantedResponse
	if err := c.do(ctx, http.MethodGet, "/api/wanted", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// AddWanted records a title on the watch list.
func (c *Client) AddWanted(ctx context.Context, req WantedAddRequest) (WantedItemView, error) {
	var out WantedAddResponse
	err := c.do(ctx, http.MethodPost, "/api/wanted", nil, req, &out)
	return out.Item, err
}

// RemoveWanted deletes a watch-list entry.
func (c *Client) RemoveWanted(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "/api/wanted/"+strconv.FormatInt(id, 10), nil, nil, nil)
}

// Collection lists the library ledger.
func (c *Client) Collection(ctx context.Context) ([]CollectionItemView, error) {
	var out CollectionResponse
	if err := c.do(ctx, http.MethodGet, "/api/collection", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// RemoveCollection deletes a ledger row. Files on disk are untouched.
func (c *Client) RemoveCollection(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "/api/collection/"+strconv.FormatInt(id, 10), nil, nil, nil)
}

// SearchCatalog proxies a catalog search through the daemon.
func (c *Client) SearchCatalog(ctx context.Context, query string, year int) ([]CatalogResult, error) {
	values := url.Values{}
	values.Set("query", query)
	if year > 0 {
		values.Set("year", strconv.Itoa(year))
	}
	var out CatalogSearchResponse
	if err := c.do(ctx, http.MethodGet, "/api/catalog/search", values, nil, &out); err != nil {
		return nil, err
	}
	return out.Results, nil
}

// TestNotification asks the daemon to publish a test notification.
func (c *Client) TestNotification(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/notifications/test", nil, nil, nil)
}

func (c *Client) jobPath(id int64, action string) string {
	path := "/api/jobs/" + strconv.FormatInt(id, 10)
	if action != "" {
		path += "/" + action
	}
	return path
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("call daemon: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var failure ErrorResponse
		if decodeErr := json.NewDecoder(resp.Body).Decode(&failure); decodeErr != nil {
			failure.Detail = ""
		}
		return &StatusError{Code: resp.StatusCode, Detail: failure.Detail}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
