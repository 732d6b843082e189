package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"github.com/matzehuels/figura/internal/app"
	"github.com/matzehuels/figura/pkg/diagram"
	"github.com/matzehuels/figura/pkg/export"
	"github.com/matzehuels/figura/pkg/render/styles"
)

// exportOpts holds the flags of the export command.
type exportOpts struct {
	source     sourceOpts
	style      styleOpts
	view       viewOpts
	formats    string
	scale      float64
	dpr        float64
	quality    int
	monochrome bool
	caption    string
	figure     int
	outDir     string
	open       bool
}

func (c *CLI) exportCommand() *cobra.Command {
	var opts exportOpts

	cmd := &cobra.Command{
		Use:   "export <input>",
		Short: "Export a document as PNG, JPEG, SVG or PDF",
		Long: `Export writes print-ready files named after the document title and the
current time. Raster formats are drawn at scale × dpr, optionally converted
to monochrome and given a caption band.

The input is a document JSON file. With --kind or --tool it is source text
that is generated first.`,
		Example: `  figura export org.json --format png,svg --scale 3
  figura export --tool org-chart notes.txt --caption "Team layout" --figure 2 --monochrome`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runExport(cmd, args[0], &opts)
		},
	}

	opts.source.register(cmd)
	opts.style.register(cmd)
	opts.view.register(cmd)
	f := cmd.Flags()
	f.StringVarP(&opts.formats, "format", "f", "png", "output formats: png, jpeg, svg, pdf (comma-separated)")
	f.Float64Var(&opts.scale, "scale", 0, "export scale 1-4 (default from config)")
	f.Float64Var(&opts.dpr, "dpr", 0, "device pixel ratio (default from config)")
	f.IntVar(&opts.quality, "quality", 0, "JPEG quality 1-100 (default from config)")
	f.BoolVar(&opts.monochrome, "monochrome", false, "convert raster output to grayscale")
	f.StringVar(&opts.caption, "caption", "", "caption text below raster output")
	f.IntVar(&opts.figure, "figure", 0, "figure number prefixed to the caption")
	f.StringVarP(&opts.outDir, "out-dir", "d", ".", "output directory")
	f.BoolVar(&opts.open, "open", false, "open the first file when done")

	return cmd
}

func (c *CLI) runExport(cmd *cobra.Command, path string, opts *exportOpts) error {
	ctx := withLogger(cmd.Context(), c.Logger)

	formats, err := parseFormats(opts.formats)
	if err != nil {
		return err
	}
	cfg, err := opts.style.config(cmd, c.config.Render.RenderConfig)
	if err != nil {
		return err
	}

	doc, tone, err := c.exportSource(ctx, cmd, path, opts, cfg)
	if err != nil {
		return err
	}
	style, err := opts.style.style(cfg, tone)
	if err != nil {
		return err
	}

	req := export.Request{
		Document: doc,
		Viewport: opts.view.viewport(cmd),
		Style:    style,
		Width:    opts.view.width,
		Height:   opts.view.height,
		Options:  c.exportOptions(cmd, opts),
	}
	if err := req.Options.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(opts.outDir, 0o755); err != nil {
		return err
	}

	prog := newProgress(c.Logger)
	spin := newSpinner(ctx, os.Stderr, fmt.Sprintf("Exporting %d file(s)...", len(formats)))
	arts, err := export.ExportAll(ctx, req, formats)
	spin.Stop()
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Exported %d file(s)", len(arts)))

	printSuccess("Exported %s", StyleHighlight.Render(titleOf(doc)))
	var paths []string
	for _, art := range arts {
		p, err := art.Save(opts.outDir)
		if err != nil {
			return err
		}
		paths = append(paths, p)
		printFile(fmt.Sprintf("%s  %s", p, StyleDim.Render(fmt.Sprintf("%d×%d", art.Width, art.Height))))
	}

	if opts.open && len(paths) > 0 {
		if err := browser.OpenFile(paths[0]); err != nil {
			printWarning("could not open %s: %v", paths[0], err)
		}
	}
	return nil
}

// exportSource loads the document, generating it first when a kind or tool
// is given.
func (c *CLI) exportSource(ctx context.Context, cmd *cobra.Command, path string, opts *exportOpts, cfg diagram.RenderConfig) (diagram.Document, styles.Tone, error) {
	if opts.source.kind == "" && opts.source.tool == "" {
		doc, err := readDocument(path)
		return doc, "", err
	}

	input, err := readInput(path, cmd.InOrStdin())
	if err != nil {
		return diagram.Document{}, "", err
	}
	a, err := c.newApp(ctx, app.Options{NoCache: opts.source.noCache, Mode: opts.source.mode})
	if err != nil {
		return diagram.Document{}, "", err
	}
	defer a.Close(context.WithoutCancel(ctx))

	req, tone, err := opts.source.request(a.Tools, input)
	if err != nil {
		return diagram.Document{}, "", err
	}
	req.Config = cfg
	resp, err := c.generate(ctx, a.Runner, req)
	if err != nil {
		return diagram.Document{}, "", err
	}
	if resp.Message != "" {
		printWarning("%s", resp.Message)
	}
	return resp.Document, tone, nil
}

// exportOptions overlays the export flags that were set on the config
// defaults. The format is filled in per file by ExportAll.
func (c *CLI) exportOptions(cmd *cobra.Command, opts *exportOpts) export.Options {
	o := c.config.Render.ExportOptions("")
	f := cmd.Flags()
	if f.Changed("scale") {
		o.Scale = opts.scale
	}
	if f.Changed("dpr") {
		o.PixelRatio = opts.dpr
	}
	if f.Changed("quality") {
		o.Quality = opts.quality
	}
	o.Monochrome = opts.monochrome
	o.Caption = export.Caption{Title: opts.caption}
	if opts.figure > 0 {
		o.Caption.Number = export.FigureNumber(opts.figure)
	}
	return o
}

// parseFormats splits a comma-separated format list, dropping duplicates.
func parseFormats(s string) ([]export.Format, error) {
	var out []export.Format
	seen := map[export.Format]bool{}
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		f, err := export.ParseFormat(part)
		if err != nil {
			return nil, err
		}
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no export format given")
	}
	return out, nil
}
