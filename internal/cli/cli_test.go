package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/figura/pkg/diagram"
	"github.com/matzehuels/figura/pkg/export"
	"github.com/matzehuels/figura/pkg/fallback"
	"github.com/matzehuels/figura/pkg/generate"
	"github.com/matzehuels/figura/pkg/registry"
	"github.com/matzehuels/figura/pkg/render/styles"
)

// testCLI returns a CLI whose cache and draft history live in a temp dir.
func testCLI(t *testing.T) (*CLI, string) {
	t.Helper()
	t.Setenv(envConfig, "")
	dir := t.TempDir()
	c := New(io.Discard, LogInfo)
	c.config.Cache.Dir = filepath.Join(dir, "cache")
	c.config.Sync.LocalDir = filepath.Join(dir, "drafts")
	return c, dir
}

func runCLI(t *testing.T, c *CLI, out io.Writer, args ...string) error {
	t.Helper()
	root := c.RootCommand()
	if out == nil {
		out = io.Discard
	}
	root.SetOut(out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	return root.ExecuteContext(context.Background())
}

func TestSourceRequest(t *testing.T) {
	tools := registry.Default()
	tests := []struct {
		name      string
		opts      sourceOpts
		input     string
		wantKind  diagram.Kind
		wantTitle string
		wantTone  styles.Tone
		wantInput bool
		wantErr   bool
	}{
		{name: "kind only", opts: sourceOpts{kind: "flow"}, input: "A -> B", wantKind: diagram.KindFlow, wantInput: true},
		{name: "tool fills defaults", opts: sourceOpts{tool: "org-chart"}, wantKind: diagram.KindHierarchy, wantTitle: "Org chart", wantTone: styles.ToneSlate, wantInput: true},
		{name: "kind overrides tool", opts: sourceOpts{tool: "org-chart", kind: "mind", title: "Ideas"}, wantKind: diagram.KindMind, wantTitle: "Ideas", wantTone: styles.ToneSlate, wantInput: true},
		{name: "missing kind", opts: sourceOpts{}, wantErr: true},
		{name: "unknown kind", opts: sourceOpts{kind: "gantt"}, wantErr: true},
		{name: "unknown tool", opts: sourceOpts{tool: "nope"}, wantErr: true},
		{name: "bad mode", opts: sourceOpts{kind: "flow", mode: "cloud"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, tone, err := tt.opts.request(tools, tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if req.Kind != tt.wantKind || req.Title != tt.wantTitle || tone != tt.wantTone {
				t.Errorf("got kind=%s title=%q tone=%s", req.Kind, req.Title, tone)
			}
			if (strings.TrimSpace(req.Input) != "") != tt.wantInput {
				t.Errorf("input = %q", req.Input)
			}
		})
	}
}

func TestSourceRequestMode(t *testing.T) {
	req, _, err := (&sourceOpts{kind: "flow", mode: "auto"}).request(registry.Default(), "")
	if err != nil {
		t.Fatal(err)
	}
	if req.Mode != generate.ModeAuto {
		t.Errorf("mode = %s", req.Mode)
	}
}

func TestStyleFlags(t *testing.T) {
	var o styleOpts
	cmd := &cobra.Command{Use: "x"}
	o.register(cmd)
	if err := cmd.ParseFlags([]string{"--zoom", "1.5", "--gap-y", "90", "--shadow", "--line", "orthogonal", "--tone", "ink"}); err != nil {
		t.Fatal(err)
	}

	base := diagram.DefaultRenderConfig()
	cfg, err := o.config(cmd, base)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Zoom != 1.5 || cfg.NodeGapY != 90 || cfg.NodeGapX != base.NodeGapX || !cfg.ShowShadow || cfg.LineStyle != diagram.LineOrthogonal {
		t.Errorf("config = %+v", cfg)
	}

	st, err := o.style(cfg, styles.ToneOcean)
	if err != nil {
		t.Fatal(err)
	}
	if st.Tone != styles.ToneInk {
		t.Errorf("--tone should win over the tool tone, got %s", st.Tone)
	}
}

func TestStyleFlagsInvalid(t *testing.T) {
	var o styleOpts
	cmd := &cobra.Command{Use: "x"}
	o.register(cmd)
	if err := cmd.ParseFlags([]string{"--line", "zigzag"}); err != nil {
		t.Fatal(err)
	}
	if _, err := o.config(cmd, diagram.DefaultRenderConfig()); err == nil {
		t.Error("unknown line style should fail")
	}
	if _, err := (&styleOpts{tone: "neon"}).style(diagram.DefaultRenderConfig(), ""); err == nil {
		t.Error("unknown tone should fail")
	}
}

func TestParseFormats(t *testing.T) {
	tests := []struct {
		in      string
		want    []export.Format
		wantErr bool
	}{
		{"png", []export.Format{export.FormatPNG}, false},
		{"png, svg,jpg", []export.Format{export.FormatPNG, export.FormatSVG, export.FormatJPEG}, false},
		{"png,png", []export.Format{export.FormatPNG}, false},
		{"", nil, true},
		{"gif", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseFormats(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("got %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestReadInput(t *testing.T) {
	got, err := readInput("-", strings.NewReader("A -> B"))
	if err != nil || got != "A -> B" {
		t.Errorf("stdin = %q, %v", got, err)
	}
	if got, err := readInput("", nil); err != nil || got != "" {
		t.Errorf("empty path = %q, %v", got, err)
	}
	if _, err := readInput(filepath.Join(t.TempDir(), "missing.txt"), nil); err == nil {
		t.Error("missing file should fail")
	}
}

func TestGenerateCommand(t *testing.T) {
	c, dir := testCLI(t)
	input := filepath.Join(dir, "org.txt")
	if err := os.WriteFile(input, []byte("CEO\n  CTO\n  CFO\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	if err := runCLI(t, c, &out, "generate", "-k", "hierarchy", "--title", "Org", input); err != nil {
		t.Fatal(err)
	}
	doc, err := diagram.Unmarshal(out.Bytes())
	if err != nil {
		t.Fatalf("stdout is not a document: %v", err)
	}
	if doc.NodeCount() != 3 || doc.Title != "Org" {
		t.Errorf("doc = %d nodes, title %q", doc.NodeCount(), doc.Title)
	}

	for _, name := range []string{"org.svg", "org.png", "org.json"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			if err := runCLI(t, c, nil, "generate", "-k", "hierarchy", input, "-o", path); err != nil {
				t.Fatal(err)
			}
			info, err := os.Stat(path)
			if err != nil || info.Size() == 0 {
				t.Errorf("%s not written: %v", name, err)
			}
		})
	}
}

func TestGenerateCommandErrors(t *testing.T) {
	c, dir := testCLI(t)
	tests := []struct {
		name string
		args []string
	}{
		{"no kind", []string{"generate"}},
		{"bad output", []string{"generate", "-k", "flow", "-o", filepath.Join(dir, "x.gif")}},
		{"missing input", []string{"generate", "-k", "flow", filepath.Join(dir, "missing.txt")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := runCLI(t, c, nil, tt.args...); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestRenderAndExportCommands(t *testing.T) {
	c, dir := testCLI(t)
	docPath := filepath.Join(dir, "flow.json")
	if err := runCLI(t, c, nil, "generate", "--tool", "process-flow", "-o", docPath); err != nil {
		t.Fatal(err)
	}

	if err := runCLI(t, c, nil, "render", docPath, "--dpr", "2"); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, "flow.svg")); err != nil {
		t.Errorf("render default output: %v", err)
	}
	if err := runCLI(t, c, nil, "render", docPath, "-o", filepath.Join(dir, "flow.pdf")); err == nil {
		t.Error("render should reject pdf")
	}

	outDir := filepath.Join(dir, "out")
	err := runCLI(t, c, nil, "export", docPath, "-f", "png,svg", "--scale", "1", "-d", outDir, "--caption", "Flow", "--figure", "2", "--monochrome")
	if err != nil {
		t.Fatal(err)
	}
	entries, err := os.ReadDir(outDir)
	if err != nil {
		t.Fatal(err)
	}
	var exts []string
	for _, e := range entries {
		exts = append(exts, filepath.Ext(e.Name()))
	}
	if len(exts) != 2 {
		t.Errorf("exported %v, want a png and an svg", exts)
	}

	if err := runCLI(t, c, nil, "export", docPath, "--scale", "9", "-d", outDir); err == nil {
		t.Error("scale 9 should be rejected")
	}
}

func TestExportFromText(t *testing.T) {
	c, dir := testCLI(t)
	input := filepath.Join(dir, "schema.sql")
	sql := "CREATE TABLE users (id INT PRIMARY KEY);\nCREATE TABLE posts (id INT, user_id INT REFERENCES users(id));\n"
	if err := os.WriteFile(input, []byte(sql), 0o644); err != nil {
		t.Fatal(err)
	}
	outDir := filepath.Join(dir, "out")
	if err := runCLI(t, c, nil, "export", "-k", "entity", "--title", "Schema", input, "-f", "jpeg", "-d", outDir); err != nil {
		t.Fatal(err)
	}
	entries, _ := os.ReadDir(outDir)
	if len(entries) != 1 || !strings.HasPrefix(entries[0].Name(), "schema-") || filepath.Ext(entries[0].Name()) != ".jpg" {
		t.Errorf("exported %v", entries)
	}
}

func TestToolsListJSON(t *testing.T) {
	c, _ := testCLI(t)
	var out bytes.Buffer
	if err := runCLI(t, c, &out, "tools", "list", "--json"); err != nil {
		t.Fatal(err)
	}
	var tools []registry.Tool
	if err := json.Unmarshal(out.Bytes(), &tools); err != nil {
		t.Fatal(err)
	}
	if len(tools) != registry.Default().Len() {
		t.Errorf("listed %d tools", len(tools))
	}
	if err := runCLI(t, c, nil, "tools", "show", "nope"); err == nil {
		t.Error("unknown tool should fail")
	}
}

func TestDraftsCommands(t *testing.T) {
	c, dir := testCLI(t)
	payload := filepath.Join(dir, "draft.json")
	if err := os.WriteFile(payload, []byte(`{"input":"A -> B"}`), 0o644); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		if err := runCLI(t, c, nil, "drafts", "sync", "process-flow", payload); err != nil {
			t.Fatal(err)
		}
	}
	r, err := c.ring()
	if err != nil {
		t.Fatal(err)
	}
	if n := r.Len(context.Background(), "process-flow"); n != 3 {
		t.Errorf("ring holds %d drafts, want 3", n)
	}

	var out bytes.Buffer
	if err := runCLI(t, c, &out, "drafts", "latest", "process-flow"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), `"A -> B"`) {
		t.Errorf("latest = %q", out.String())
	}
	if err := runCLI(t, c, nil, "drafts", "latest", "org-chart"); err == nil {
		t.Error("empty history should fail")
	}
}

func TestConfigCommands(t *testing.T) {
	c, dir := testCLI(t)
	var out bytes.Buffer
	if err := runCLI(t, c, &out, "config", "show"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "[server]") {
		t.Errorf("config show = %q", out.String())
	}

	bad := filepath.Join(dir, "bad.toml")
	if err := os.WriteFile(bad, []byte("[generate]\nmode = \"cloud\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := runCLI(t, c, nil, "config", "validate", bad); err == nil {
		t.Error("invalid config should fail validation")
	}
	if err := runCLI(t, c, nil, "--config", bad, "tools", "list"); err == nil {
		t.Error("--config with an invalid file should fail")
	}
}

func TestStatsLine(t *testing.T) {
	line := statsLine(docStats{Nodes: 4, Edges: 3, Source: fallback.Local, Cached: true})
	for _, want := range []string{"4 nodes", "3 edges", "local", "cached"} {
		if !strings.Contains(line, want) {
			t.Errorf("stats line %q lacks %q", line, want)
		}
	}
	if strings.Contains(statsLine(docStats{Nodes: 1}), "edges") {
		t.Error("zero edges should be omitted")
	}
}

func TestFormatRelativeTime(t *testing.T) {
	now := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		ago  time.Duration
		want string
	}{
		{10 * time.Second, "just now"},
		{5 * time.Minute, "5m ago"},
		{3 * time.Hour, "3h ago"},
		{48 * time.Hour, "2d ago"},
		{30 * 24 * time.Hour, "Sep 17, 2026"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := formatRelativeTime(now.Add(-tt.ago), now); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestToolListModel(t *testing.T) {
	m := NewToolListModel(registry.Default().All())
	m.Height = 2

	key := func(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }
	next, _ := m.Update(key("j"))
	next, _ = next.Update(key("j"))
	m = next.(ToolListModel)
	if m.Cursor != 2 || m.Offset != 1 {
		t.Errorf("cursor=%d offset=%d, want 2 and 1", m.Cursor, m.Offset)
	}
	if !strings.Contains(m.View(), m.Tools[2].ID) {
		t.Error("view should show the highlighted tool")
	}

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(ToolListModel)
	if m.Selected == nil || m.Selected.ID != m.Tools[2].ID || cmd == nil {
		t.Errorf("enter should select the highlighted tool and quit")
	}
}
