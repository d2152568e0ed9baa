// Package remote is a registry backend that talks to a checkcode server
// over its HTTP registry API.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MeKo-Tech/checkcode/internal/registry"
	"github.com/MeKo-Tech/checkcode/internal/version"
)

const (
	backendName    = "remote"
	defaultTimeout = 10 * time.Second
	maxErrorBody   = 4096
)

// Client implements registry.Registry against a remote server.
type Client struct {
	client    *http.Client
	baseURL   string
	userAgent string
}

var _ registry.Registry = (*Client)(nil)

// New creates a client for the server at baseURL, e.g.
// "http://localhost:8080". A zero timeout uses the default.
func New(baseURL string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid registry url %q", baseURL)
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	c := &Client{
		baseURL:   u.String(),
		userAgent: version.UserAgent(),
	}
	c.client = &http.Client{Timeout: timeout, Transport: c}
	return c, nil
}

// RoundTrip stamps the user agent on every request.
func (c *Client) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", c.userAgent)
	return http.DefaultTransport.RoundTrip(req)
}

// Create posts a new record.
func (c *Client) Create(ctx context.Context, in registry.NewRecord) (registry.Record, error) {
	if err := in.Validate(); err != nil {
		return registry.Record{}, err
	}
	w := registry.ToWire(registry.Record{
		Name:        in.Name,
		ContentType: in.ContentType,
		Content:     in.Content,
		Author:      in.Author,
		Style:       in.Style,
		Visibility:  in.Visibility,
	})
	w.CreatedAt = nil

	var out registry.WireRecord
	if err := c.do(ctx, "create", http.MethodPost, "/qr/", w, &out); err != nil {
		return registry.Record{}, err
	}
	rec, err := out.Record()
	if err != nil {
		return registry.Record{}, &registry.PersistenceError{Op: "create", Backend: backendName, Err: err}
	}
	return rec, nil
}

// List fetches every record.
func (c *Client) List(ctx context.Context) ([]registry.Record, error) {
	return c.list(ctx, "list", "/qr/")
}

// ListPublic fetches public records.
func (c *Client) ListPublic(ctx context.Context) ([]registry.Record, error) {
	return c.list(ctx, "list_public", "/qr/public/")
}

// FindByContent looks up one record by exact content.
func (c *Client) FindByContent(ctx context.Context, content string) (registry.Record, error) {
	var out registry.WireRecord
	path := "/qr/content/" + escapeSegment(content) + "/"
	if err := c.do(ctx, "find", http.MethodGet, path, nil, &out); err != nil {
		return registry.Record{}, err
	}
	rec, err := out.Record()
	if err != nil {
		return registry.Record{}, &registry.PersistenceError{Op: "find", Backend: backendName, Err: err}
	}
	return rec, nil
}

// Search runs a public search on the server.
func (c *Client) Search(ctx context.Context, q registry.Query) ([]registry.Record, error) {
	params := url.Values{}
	params.Set("q", q.Text)
	if q.Field != "" {
		params.Set("field", string(q.Field))
	}
	return c.list(ctx, "search", "/qr/search/?"+params.Encode())
}

func (c *Client) list(ctx context.Context, op, path string) ([]registry.Record, error) {
	var out []registry.WireRecord
	if err := c.do(ctx, op, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	recs := make([]registry.Record, 0, len(out))
	for _, w := range out {
		rec, err := w.Record()
		if err != nil {
			return nil, &registry.PersistenceError{Op: op, Backend: backendName, Err: err}
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

type errorBody struct {
	Error string `json:"error"`
}

func (c *Client) do(ctx context.Context, op, method, path string, body, response any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return &registry.PersistenceError{Op: op, Backend: backendName, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(op, resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(response); err != nil {
		return &registry.PersistenceError{Op: op, Backend: backendName, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func statusError(op string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var eb errorBody
	msg := strings.TrimSpace(string(raw))
	if json.Unmarshal(raw, &eb) == nil && eb.Error != "" {
		msg = eb.Error
	}

	switch {
	case resp.StatusCode == http.StatusNotFound && op == "find":
		return registry.ErrNotFound
	case resp.StatusCode == http.StatusBadRequest, resp.StatusCode == http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: %s", registry.ErrInvalidRecord, msg)
	default:
		return &registry.PersistenceError{
			Op:      op,
			Backend: backendName,
			Err:     errors.New("unexpected status " + resp.Status + ": " + msg),
		}
	}
}

// escapeSegment escapes content as one path segment. Dot-only segments are
// percent-encoded as well, otherwise routers resolve them as "." and "..".
func escapeSegment(content string) string {
	seg := url.PathEscape(content)
	if strings.Trim(seg, ".") == "" {
		return strings.Repeat("%2E", len(seg))
	}
	return seg
}
