package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/figura/pkg/cache"
	"github.com/matzehuels/figura/pkg/diagram"
	"github.com/matzehuels/figura/pkg/drafts"
	"github.com/matzehuels/figura/pkg/fallback"
	"github.com/matzehuels/figura/pkg/generate"
	"github.com/matzehuels/figura/pkg/observability"
)

var fixedNow = time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC)

func testServer(t *testing.T) *Server {
	t.Helper()
	logger := log.New(io.Discard)
	ring, err := drafts.NewRing(t.TempDir(), 0)
	if err != nil {
		t.Fatal(err)
	}
	s := New(nil, &drafts.Syncer{Ring: ring, Logger: logger}, nil, logger)
	s.Now = func() time.Time { return fixedNow }
	return s
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rd = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, rd)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	w := do(t, testServer(t).Router(), http.MethodGet, "/healthz", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"status":"ok"`) {
		t.Errorf("healthz = %d %s", w.Code, w.Body.String())
	}
	if w.Header().Get(headerRequestID) == "" {
		t.Error("missing request id header")
	}
}

func TestRequestIDPropagated(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(headerRequestID, "abc-123")
	w := httptest.NewRecorder()
	testServer(t).Router().ServeHTTP(w, req)
	if got := w.Header().Get(headerRequestID); got != "abc-123" {
		t.Errorf("request id = %q", got)
	}
}

func TestTools(t *testing.T) {
	h := testServer(t).Router()

	w := do(t, h, http.MethodGet, "/api/tools", nil)
	var list struct {
		Tools []struct {
			ID string `json:"toolId"`
		} `json:"tools"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if len(list.Tools) != 4 {
		t.Errorf("tools = %d, want 4", len(list.Tools))
	}

	if w := do(t, h, http.MethodGet, "/api/tools/org-chart", nil); w.Code != http.StatusOK {
		t.Errorf("get tool = %d", w.Code)
	}
	if w := do(t, h, http.MethodGet, "/api/tools/nope", nil); w.Code != http.StatusNotFound {
		t.Errorf("unknown tool = %d, want 404", w.Code)
	}
}

func TestGenerateEndpoint(t *testing.T) {
	h := testServer(t).Router()
	w := do(t, h, http.MethodPost, "/api/generate", map[string]any{
		"requestId":  7,
		"parserKind": "hierarchy",
		"inputText":  "Root\n  A\n  B\n    C",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var resp generate.Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.RequestID != 7 || resp.Source != fallback.Local {
		t.Errorf("response = %+v", resp)
	}
	if resp.Document.NodeCount() != 4 || resp.Document.EdgeCount() != 3 {
		t.Errorf("document has %d nodes %d edges", resp.Document.NodeCount(), resp.Document.EdgeCount())
	}
}

func TestGenerateErrors(t *testing.T) {
	h := testServer(t).Router()
	tests := []struct {
		name string
		body any
		want int
	}{
		{"malformed json", "{", http.StatusBadRequest},
		{"unknown kind", map[string]any{"parserKind": "gantt"}, http.StatusBadRequest},
		{"remote without generator", map[string]any{"parserKind": "flow", "inputText": "x", "mode": "remote"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, http.MethodPost, "/api/generate", tt.body)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d: %s", w.Code, tt.want, w.Body.String())
			}
			if !strings.Contains(w.Body.String(), `"code"`) {
				t.Errorf("missing error code: %s", w.Body.String())
			}
		})
	}
}

func TestGenerateClientClosed(t *testing.T) {
	entered := make(chan struct{})
	remote := generate.GeneratorFunc(func(ctx context.Context, req generate.Request) (diagram.Document, error) {
		close(entered)
		<-ctx.Done()
		return diagram.Document{}, ctx.Err()
	})
	s := testServer(t)
	s.Runner = generate.NewRunner(nil, nil, remote, s.Logger)
	s.WorkTimeout = 200 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	body := strings.NewReader(`{"parserKind":"flow","inputText":"A -> B","mode":"remote"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/generate", body).WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		s.Router().ServeHTTP(w, req)
		close(done)
	}()
	<-entered
	cancel()
	<-done

	if w.Code != StatusClientClosed {
		t.Errorf("status = %d, want 499", w.Code)
	}
	if w.Body.Len() != 0 {
		t.Errorf("aborted request wrote a body: %s", w.Body.String())
	}
}

type countingHooks struct {
	observability.NoopPipelineHooks
	parses atomic.Int32
}

func (h *countingHooks) OnParseStart(context.Context, string) { h.parses.Add(1) }

func TestGenerateDeduplicated(t *testing.T) {
	hooks := &countingHooks{}
	observability.SetPipelineHooks(hooks)
	defer observability.Reset()

	release := make(chan struct{})
	remote := generate.GeneratorFunc(func(ctx context.Context, req generate.Request) (diagram.Document, error) {
		<-release
		return diagram.Document{}, context.DeadlineExceeded
	})
	s := testServer(t)
	s.Runner = generate.NewRunner(nil, nil, remote, s.Logger)
	h := s.Router()

	const n = 4
	codes := make(chan int, n)
	for i := 0; i < n; i++ {
		go func() {
			codes <- do(t, h, http.MethodPost, "/api/generate", `{"parserKind":"flow","inputText":"A -> B","mode":"auto"}`).Code
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	for i := 0; i < n; i++ {
		if c := <-codes; c != http.StatusOK {
			t.Errorf("status = %d", c)
		}
	}
	if got := hooks.parses.Load(); got < 1 || got >= n {
		t.Errorf("parses = %d, want shared work", got)
	}
}

func TestExportEndpoint(t *testing.T) {
	s := testServer(t)
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	s.Cache = c
	h := s.Router()

	body := map[string]any{
		"generate": map[string]any{"parserKind": "hierarchy", "inputText": "Org\n  A\n  B", "title": "Org Chart"},
		"width":    200,
		"height":   100,
		"options":  map[string]any{"format": "png", "scale": 2, "pixelRatio": 1},
	}
	w := do(t, h, http.MethodPost, "/api/export", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q", ct)
	}
	want := `attachment; filename="org-chart-20261017-093000.png"`
	if cd := w.Header().Get("Content-Disposition"); cd != want {
		t.Errorf("Content-Disposition = %q, want %q", cd, want)
	}
	if w.Header().Get("X-Image-Width") != "400" || w.Header().Get("X-Image-Height") != "200" {
		t.Errorf("size = %sx%s, want 400x200", w.Header().Get("X-Image-Width"), w.Header().Get("X-Image-Height"))
	}
	if !bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG")) {
		t.Error("body is not a PNG")
	}

	again := do(t, h, http.MethodPost, "/api/export", body)
	if !bytes.Equal(again.Body.Bytes(), w.Body.Bytes()) {
		t.Error("cached export differs")
	}
	if again.Header().Get("Content-Disposition") != want {
		t.Errorf("cached filename = %q", again.Header().Get("Content-Disposition"))
	}
}

func TestExportSVGDocument(t *testing.T) {
	s := testServer(t)
	resp, err := s.Runner.Generate(context.Background(), generate.Request{Kind: diagram.KindFlow, Input: "A -> B"})
	if err != nil {
		t.Fatal(err)
	}
	w := do(t, s.Router(), http.MethodPost, "/api/export", map[string]any{
		"document": resp.Document,
		"tone":     "ocean",
		"options":  map[string]any{"format": "svg"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "<svg") {
		t.Error("body is not SVG")
	}
}

func TestExportErrors(t *testing.T) {
	h := testServer(t).Router()
	gen := map[string]any{"parserKind": "flow", "inputText": "A -> B"}
	tests := []struct {
		name string
		body any
		want int
	}{
		{"nothing", map[string]any{}, http.StatusBadRequest},
		{"both", map[string]any{"generate": gen, "document": map[string]any{}}, http.StatusBadRequest},
		{"bad tone", map[string]any{"generate": gen, "tone": "neon"}, http.StatusBadRequest},
		{"bad scale", map[string]any{"generate": gen, "options": map[string]any{"scale": 9}}, http.StatusBadRequest},
		{"bad format", map[string]any{"generate": gen, "options": map[string]any{"format": "gif"}}, http.StatusBadRequest},
		{"width over limit", map[string]any{"generate": gen, "width": 1 << 22, "height": 100}, http.StatusBadRequest},
		{"negative height", map[string]any{"generate": gen, "height": -1}, http.StatusBadRequest},
		{"oversize after scaling", map[string]any{"generate": gen, "width": 10000, "height": 10000,
			"options": map[string]any{"scale": 4, "pixelRatio": 4}}, http.StatusBadRequest},
		{"dangling document", map[string]any{"document": map[string]any{"nodes": []any{}, "edges": []any{map[string]string{"source": "a", "target": "b"}}}}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := do(t, h, http.MethodPost, "/api/export", tt.body); w.Code != tt.want {
				t.Errorf("status = %d, want %d: %s", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestDraftsEndpoint(t *testing.T) {
	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("definitely not json"))
	}))
	defer remote.Close()

	s := testServer(t)
	s.Syncer.Remote = drafts.NewHTTPRemote(remote.URL, time.Second)
	h := s.Router()

	w := do(t, h, http.MethodPost, "/api/drafts", map[string]any{
		"toolId":  "org-chart",
		"payload": map[string]string{"input": "Root"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var resp drafts.Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Source != fallback.Local || !strings.Contains(resp.Message, "saved locally") {
		t.Errorf("response = %+v, want local fallback", resp)
	}
}
