package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/figura/pkg/diagram"
	"github.com/matzehuels/figura/pkg/generate"
	"github.com/matzehuels/figura/pkg/registry"
	"github.com/matzehuels/figura/pkg/render/styles"
)

// =============================================================================
// Source Flags
// =============================================================================

// sourceOpts selects what to generate: a parser kind or a tool preset, plus
// an optional title and generation mode.
type sourceOpts struct {
	kind    string
	tool    string
	title   string
	mode    string
	noCache bool
	refresh bool
}

func (o *sourceOpts) register(cmd *cobra.Command) {
	kinds := make([]string, len(diagram.ValidKinds))
	for i, k := range diagram.ValidKinds {
		kinds[i] = string(k)
	}
	cmd.Flags().StringVarP(&o.kind, "kind", "k", "", "parser kind: "+strings.Join(kinds, ", "))
	cmd.Flags().StringVarP(&o.tool, "tool", "t", "", "tool preset id (sets kind, title and tone)")
	cmd.Flags().StringVar(&o.title, "title", "", "document title")
	cmd.Flags().StringVar(&o.mode, "mode", "", "generation mode: local, remote, auto (default from config)")
	cmd.Flags().BoolVar(&o.noCache, "no-cache", false, "disable the document cache")
	cmd.Flags().BoolVar(&o.refresh, "refresh", false, "regenerate even when cached")
}

// request builds a generate.Request from the flags. A tool fills in the
// kind, title and default input left empty; tone reports the tool's tone.
func (o *sourceOpts) request(tools *registry.Catalog, input string) (generate.Request, styles.Tone, error) {
	req := generate.Request{Title: o.title, Input: input, Refresh: o.refresh}
	var tone styles.Tone

	if o.tool != "" {
		tool, err := tools.Lookup(o.tool)
		if err != nil {
			return req, "", err
		}
		req.Kind = tool.ParserKind
		tone = tool.SurfaceTone
		if req.Title == "" {
			req.Title = tool.Title
		}
		if strings.TrimSpace(req.Input) == "" {
			req.Input = tool.DefaultInput
		}
	}
	if o.kind != "" {
		k, err := diagram.ParseKind(o.kind)
		if err != nil {
			return req, "", err
		}
		req.Kind = k
	}
	if req.Kind == "" {
		return req, "", fmt.Errorf("either --kind or --tool is required")
	}

	mode, err := generate.ParseMode(o.mode)
	if err != nil {
		return req, "", err
	}
	if o.mode != "" {
		req.Mode = mode
	}
	return req, tone, nil
}

// readInput reads the source text from path; "-" reads stdin and an empty
// path yields no input.
func readInput(path string, stdin io.Reader) (string, error) {
	switch path {
	case "":
		return "", nil
	case "-":
		data, err := io.ReadAll(io.LimitReader(stdin, generate.MaxInputBytes+1))
		return string(data), err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	return string(data), nil
}

// =============================================================================
// Style Flags
// =============================================================================

// styleOpts overrides presentation settings from the config.
type styleOpts struct {
	tone      string
	zoom      float64
	radius    float64
	gapX      float64
	gapY      float64
	fontSize  float64
	lineStyle string
	shadow    bool
	compact   bool
}

func (o *styleOpts) register(cmd *cobra.Command) {
	tones := make([]string, len(styles.Tones))
	for i, t := range styles.Tones {
		tones[i] = string(t)
	}
	f := cmd.Flags()
	f.StringVar(&o.tone, "tone", "", "surface tone: "+strings.Join(tones, ", "))
	f.Float64Var(&o.zoom, "zoom", 0, "render zoom")
	f.Float64Var(&o.radius, "radius", 0, "node corner radius")
	f.Float64Var(&o.gapX, "gap-x", 0, "horizontal node gap")
	f.Float64Var(&o.gapY, "gap-y", 0, "vertical node gap")
	f.Float64Var(&o.fontSize, "font-size", 0, "label font size")
	f.StringVar(&o.lineStyle, "line", "", "edge style: curve, orthogonal")
	f.BoolVar(&o.shadow, "shadow", false, "draw node shadows")
	f.BoolVar(&o.compact, "compact", false, "compact entity rows")
}

// config overlays the flags that were set on base.
func (o *styleOpts) config(cmd *cobra.Command, base diagram.RenderConfig) (diagram.RenderConfig, error) {
	f := cmd.Flags()
	cfg := base
	if f.Changed("zoom") {
		cfg = cfg.WithZoom(o.zoom)
	}
	if f.Changed("radius") {
		cfg = cfg.WithNodeRadius(o.radius)
	}
	if f.Changed("gap-x") || f.Changed("gap-y") {
		x, y := cfg.NodeGapX, cfg.NodeGapY
		if f.Changed("gap-x") {
			x = o.gapX
		}
		if f.Changed("gap-y") {
			y = o.gapY
		}
		cfg = cfg.WithGaps(x, y)
	}
	if f.Changed("font-size") {
		cfg = cfg.WithFontSize(o.fontSize)
	}
	if f.Changed("line") {
		ls, err := diagram.ParseLineStyle(o.lineStyle)
		if err != nil {
			return cfg, err
		}
		cfg = cfg.WithLineStyle(ls)
	}
	if f.Changed("shadow") {
		cfg = cfg.WithShadow(o.shadow)
	}
	if f.Changed("compact") {
		cfg = cfg.WithCompactRows(o.compact)
	}
	cfg = cfg.WithDefaults()
	return cfg, cfg.Validate()
}

// style resolves the final Style. The --tone flag wins over fallback,
// which wins over the default tone.
func (o *styleOpts) style(cfg diagram.RenderConfig, fallback styles.Tone) (styles.Style, error) {
	name := o.tone
	if name == "" {
		name = string(fallback)
	}
	tone, err := styles.ParseTone(name)
	if err != nil {
		return styles.Style{}, err
	}
	return styles.New(cfg, tone), nil
}
