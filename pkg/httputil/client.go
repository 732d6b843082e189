package httputil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/matzehuels/figura/pkg/buildinfo"
	"github.com/matzehuels/figura/pkg/observability"
)

// Client defaults.
const (
	DefaultTimeout  = 15 * time.Second
	DefaultAttempts = 3
	DefaultDelay    = 500 * time.Millisecond

	// maxBody caps how much of a response is read.
	maxBody = 8 << 20
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.Code)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

// Client posts JSON to a remote collaborator. Transport errors, 429 and 5xx
// responses are retried with exponential backoff.
type Client struct {
	HTTP     *http.Client
	Attempts int
	Delay    time.Duration
	Header   http.Header // added to every request
}

// NewClient returns a Client with the default retry policy.
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		HTTP:     &http.Client{Timeout: timeout},
		Attempts: DefaultAttempts,
		Delay:    DefaultDelay,
	}
}

// PostJSON marshals body, posts it to rawURL and returns the body of a 2xx
// response.
func (c *Client) PostJSON(ctx context.Context, rawURL string, body any) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}

	var out []byte
	err = Retry(ctx, max(c.Attempts, 1), c.Delay, func() error {
		var err error
		out, err = c.do(ctx, u, payload)
		return err
	})
	return out, err
}

func (c *Client) do(ctx context.Context, u *url.URL, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", buildinfo.UserAgent())
	for k, vs := range c.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	hooks := observability.HTTP()
	hooks.OnRequest(ctx, req.Method, u.Host, u.Path)
	start := time.Now()

	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		hooks.OnError(ctx, req.Method, u.Host, u.Path, err)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &RetryableError{Err: err}
	}
	defer resp.Body.Close()
	hooks.OnResponse(ctx, req.Method, u.Host, u.Path, resp.StatusCode, time.Since(start))

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, &RetryableError{Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		serr := &StatusError{Code: resp.StatusCode, Body: truncate(string(data), 200)}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return nil, &RetryableError{Err: serr, After: retryAfter(resp.Header.Get("Retry-After"), time.Now())}
		}
		return nil, serr
	}
	return data, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
