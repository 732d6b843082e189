package drafts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"

	"github.com/matzehuels/figura/pkg/fallback"
	"github.com/matzehuels/figura/pkg/httputil"
)

var fixed = time.Date(2026, 10, 17, 8, 0, 0, 0, time.UTC)

func newRing(t *testing.T, capacity int) *Ring {
	t.Helper()
	r, err := NewRing(t.TempDir(), capacity)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func quietLogger() *log.Logger { return log.New(io.Discard) }

func draft(n int) Request {
	return Request{ToolID: "er-diagram", SyncedAt: fixed, Payload: json.RawMessage(fmt.Sprintf(`{"n":%d}`, n))}
}

func fastRemote(url string) *HTTPRemote {
	return &HTTPRemote{URL: url, Client: &httputil.Client{Attempts: 1}}
}

func TestRingIsBounded(t *testing.T) {
	ctx := context.Background()
	r := newRing(t, 0)
	if r.Capacity() != DefaultCapacity {
		t.Fatalf("capacity = %d", r.Capacity())
	}
	for i := 0; i < 60; i++ {
		if err := r.Append(ctx, Entry{SyncID: fmt.Sprint(i), ToolID: "flow", Payload: json.RawMessage(`{}`)}); err != nil {
			t.Fatal(err)
		}
	}
	entries, err := r.List(ctx, "flow")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 48 {
		t.Fatalf("len = %d, want 48", len(entries))
	}
	if entries[0].SyncID != "12" || entries[47].SyncID != "59" {
		t.Errorf("kept %s..%s, want 12..59", entries[0].SyncID, entries[47].SyncID)
	}
	if latest, ok, _ := r.Latest(ctx, "flow"); !ok || latest.SyncID != "59" {
		t.Errorf("latest = %+v", latest)
	}
	if r.Len(ctx, "other") != 0 {
		t.Error("tools share entries")
	}
}

func TestRingRecoversFromCorruptFile(t *testing.T) {
	ctx := context.Background()
	r := newRing(t, 4)
	if err := os.WriteFile(filepath.Join(r.Path(), "flow.json"), []byte("{oops"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := r.Append(ctx, Entry{SyncID: "a", ToolID: "flow"}); err != nil {
		t.Fatal(err)
	}
	if r.Len(ctx, "flow") != 1 {
		t.Errorf("len = %d", r.Len(ctx, "flow"))
	}
}

func TestRingRejectsBadToolID(t *testing.T) {
	r := newRing(t, 4)
	if err := r.Append(context.Background(), Entry{ToolID: "../x"}); err == nil {
		t.Error("path-like tool id accepted")
	}
}

func TestSyncRemoteOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ToolID != "er-diagram" {
			t.Errorf("decoded %+v, %v", req, err)
		}
		fmt.Fprintf(w, `{"syncId":"srv-1","syncedAt":%q}`, fixed.Format(time.RFC3339))
	}))
	defer srv.Close()

	ring := newRing(t, 0)
	s := &Syncer{Remote: fastRemote(srv.URL), Ring: ring, Logger: quietLogger()}
	resp := s.Sync(context.Background(), draft(1))
	if resp.Source != fallback.Remote || resp.SyncID != "srv-1" || !resp.Stored {
		t.Errorf("resp = %+v", resp)
	}
	if ring.Len(context.Background(), "er-diagram") != 0 {
		t.Error("remote success also wrote the ring")
	}
}

// A remote answering with garbage is treated as a failure: the draft lands
// in the local ring and the message carries the notice.
func TestSyncGarbagePayloadFallsBack(t *testing.T) {
	bodies := []string{`"just a string"`, `[1,2,3]`, `<html>oops</html>`, `{}`, `{"syncId":""}`, `null`}
	for _, body := range bodies {
		t.Run(body, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, body)
			}))
			defer srv.Close()

			ring := newRing(t, 0)
			s := &Syncer{Remote: fastRemote(srv.URL), Ring: ring, Logger: quietLogger()}
			resp := s.Sync(context.Background(), draft(2))
			if resp.Source != fallback.Local || !resp.Stored {
				t.Fatalf("resp = %+v", resp)
			}
			if !strings.Contains(resp.Message, "saved locally") {
				t.Errorf("message = %q", resp.Message)
			}
			if !strings.HasPrefix(resp.SyncID, "local-") {
				t.Errorf("sync id = %q", resp.SyncID)
			}
			entries, _ := ring.List(context.Background(), "er-diagram")
			if len(entries) != 1 || string(entries[0].Payload) != `{"n":2}` {
				t.Errorf("ring = %+v", entries)
			}
		})
	}
}

func TestSyncRemoteDownFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	s := &Syncer{Remote: fastRemote(srv.URL), Ring: newRing(t, 0), Logger: quietLogger()}
	resp := s.Sync(context.Background(), draft(3))
	if resp.Source != fallback.Local || !strings.Contains(resp.Message, "503") {
		t.Errorf("resp = %+v", resp)
	}
}

func TestSyncRedisUnreachableFallsBack(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond, MaxRetries: -1})
	defer client.Close()

	s := &Syncer{Remote: &RedisRemote{Client: client, Prefix: "t:"}, Ring: newRing(t, 0), Logger: quietLogger()}
	resp := s.Sync(context.Background(), draft(4))
	if resp.Source != fallback.Local || !resp.Stored {
		t.Errorf("resp = %+v", resp)
	}
}

func TestSyncWithoutAnyStore(t *testing.T) {
	s := &Syncer{Remote: fastRemote("http://127.0.0.1:1"), Logger: quietLogger()}
	resp := s.Sync(context.Background(), draft(5))
	if resp.Stored || resp.Source != fallback.Local || !strings.Contains(resp.Message, "nothing was stored") {
		t.Errorf("resp = %+v", resp)
	}
}

func TestSyncLocalOnly(t *testing.T) {
	s := &Syncer{Ring: newRing(t, 0), Logger: quietLogger(), Now: func() time.Time { return fixed }}
	req := draft(6)
	req.SyncedAt = time.Time{}
	resp := s.Sync(context.Background(), req)
	if resp.Source != fallback.Local || !resp.Stored || !resp.SyncedAt.Equal(fixed) {
		t.Errorf("resp = %+v", resp)
	}
	if resp.Message != "saved local" {
		t.Errorf("message = %q", resp.Message)
	}
}

func TestSyncInvalidRequest(t *testing.T) {
	s := &Syncer{Ring: newRing(t, 0), Logger: quietLogger()}
	tests := []Request{
		{ToolID: "", Payload: json.RawMessage(`{}`)},
		{ToolID: "Bad Tool", Payload: json.RawMessage(`{}`)},
		{ToolID: "flow", Payload: json.RawMessage(`{broken`)},
		{ToolID: "flow"},
	}
	for _, req := range tests {
		resp := s.Sync(context.Background(), req)
		if resp.Stored || !strings.HasPrefix(resp.Message, "draft not stored") {
			t.Errorf("Sync(%+v) = %+v", req, resp)
		}
	}
}

func TestSyncCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := &Syncer{Remote: fastRemote("http://127.0.0.1:1"), Ring: newRing(t, 0), Logger: quietLogger()}
	resp := s.Sync(ctx, draft(7))
	if resp.Stored || !strings.Contains(resp.Message, "cancelled") {
		t.Errorf("resp = %+v", resp)
	}
}

func TestDecodeReceipt(t *testing.T) {
	tests := []struct {
		body    string
		wantErr bool
	}{
		{`{"syncId":"a","syncedAt":"2026-10-17T08:00:00Z"}`, false},
		{`{"syncId":"a"}`, true},
		{`{"syncId":1,"syncedAt":"2026-10-17T08:00:00Z"}`, true},
		{`"a"`, true},
		{``, true},
	}
	for _, tt := range tests {
		_, err := DecodeReceipt([]byte(tt.body))
		if (err != nil) != tt.wantErr {
			t.Errorf("DecodeReceipt(%s) err = %v", tt.body, err)
		}
		if err != nil && !errors.Is(err, ErrInvalidPayload) {
			t.Errorf("DecodeReceipt(%s) err not ErrInvalidPayload: %v", tt.body, err)
		}
	}
}
