package httputil

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestPostJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("request = %s %s", r.Method, r.Header.Get("Content-Type"))
		}
		if r.Header.Get("X-Token") != "t" {
			t.Errorf("missing custom header")
		}
		body, _ := io.ReadAll(r.Body)
		w.Write(body)
	}))
	defer srv.Close()

	c := NewClient(time.Second)
	c.Header = http.Header{"X-Token": {"t"}}
	got, err := c.PostJSON(context.Background(), srv.URL, map[string]int{"a": 1})
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != `{"a":1}` {
		t.Errorf("body = %s", got)
	}
}

func TestPostJSONRetries(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantCalls int32
	}{
		{"server error retried", http.StatusBadGateway, 3},
		{"rate limit retried", http.StatusTooManyRequests, 3},
		{"client error not retried", http.StatusBadRequest, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				http.Error(w, "nope", tt.status)
			}))
			defer srv.Close()

			c := &Client{HTTP: srv.Client(), Attempts: 3, Delay: time.Millisecond}
			_, err := c.PostJSON(context.Background(), srv.URL, struct{}{})
			var serr *StatusError
			if !errors.As(err, &serr) || serr.Code != tt.status {
				t.Errorf("err = %v", err)
			}
			if calls.Load() != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls.Load(), tt.wantCalls)
			}
		})
	}
}

func TestPostJSONRecovers(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := &Client{Attempts: 2, Delay: time.Millisecond}
	if _, err := c.PostJSON(context.Background(), srv.URL, nil); err != nil {
		t.Errorf("err = %v", err)
	}
}

func TestPostJSONCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	c := &Client{Attempts: 3, Delay: time.Second}
	_, err := c.PostJSON(ctx, srv.URL, nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
}

func TestBackoff(t *testing.T) {
	plain := &RetryableError{Err: errors.New("x")}
	tests := []struct {
		name  string
		err   error
		delay time.Duration
		n     int
		want  time.Duration
	}{
		{"first retry", plain, 100 * time.Millisecond, 1, 100 * time.Millisecond},
		{"doubles", plain, 100 * time.Millisecond, 3, 400 * time.Millisecond},
		{"capped", plain, time.Second, 10, MaxDelay},
		{"no delay", plain, 0, 4, 0},
		{"server wait", &RetryableError{Err: plain, After: 2 * time.Second}, time.Millisecond, 1, 2 * time.Second},
		{"server wait capped", &RetryableError{Err: plain, After: time.Hour}, time.Millisecond, 1, MaxDelay},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := backoff(tt.err, tt.delay, tt.n); got != tt.want {
				t.Errorf("backoff() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRetryAfter(t *testing.T) {
	now := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"", 0},
		{"3", 3 * time.Second},
		{"-5", 0},
		{"soon", 0},
		{now.Add(30 * time.Second).Format(http.TimeFormat), 30 * time.Second},
		{now.Add(-time.Minute).Format(http.TimeFormat), 0},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := retryAfter(tt.in, now); got != tt.want {
				t.Errorf("retryAfter(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestRetryStopsOnPermanentError(t *testing.T) {
	calls := 0
	perm := errors.New("permanent")
	err := Retry(context.Background(), 5, time.Millisecond, func() error {
		calls++
		return perm
	})
	if !errors.Is(err, perm) || calls != 1 {
		t.Errorf("err = %v after %d calls, want permanent after 1", err, calls)
	}
}

func TestPostJSONHonoursRetryAfter(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := &Client{Attempts: 2, Delay: time.Hour}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := c.PostJSON(ctx, srv.URL, nil); err != nil {
		t.Errorf("err = %v", err)
	}
}
