package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/figura/pkg/diagram"
	"github.com/matzehuels/figura/pkg/export"
	"github.com/matzehuels/figura/pkg/render/raster"
	"github.com/matzehuels/figura/pkg/render/styles"
	"github.com/matzehuels/figura/pkg/render/svg"
)

// viewOpts describes the live view a render or export reproduces.
type viewOpts struct {
	panX, panY float64
	viewZoom   float64
	width      int
	height     int
}

func (o *viewOpts) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Float64Var(&o.panX, "pan-x", 0, "view offset x")
	f.Float64Var(&o.panY, "pan-y", 0, "view offset y")
	f.Float64Var(&o.viewZoom, "view-zoom", 0, "view zoom (0 renders the whole document)")
	f.IntVar(&o.width, "width", 0, "logical output width (0 fits the document)")
	f.IntVar(&o.height, "height", 0, "logical output height (0 fits the document)")
}

// viewport returns nil when no view flag was set.
func (o *viewOpts) viewport(cmd *cobra.Command) *diagram.Viewport {
	f := cmd.Flags()
	if !f.Changed("pan-x") && !f.Changed("pan-y") && !f.Changed("view-zoom") {
		return nil
	}
	vp := diagram.Viewport{OffsetX: o.panX, OffsetY: o.panY, Zoom: o.viewZoom}.Normalized()
	return &vp
}

// renderOpts holds the flags of the render command.
type renderOpts struct {
	style  styleOpts
	view   viewOpts
	output string
	dpr    float64
}

func (c *CLI) renderCommand() *cobra.Command {
	opts := renderOpts{dpr: 1}

	cmd := &cobra.Command{
		Use:   "render <document.json>",
		Short: "Render a document to SVG or PNG",
		Long: `Render draws a generated document as SVG markup or a PNG preview. The
raster preview is drawn at the given device pixel ratio; use export for
scaled, captioned files.`,
		Example: `  figura render org.json -o org.svg
  figura render org.json -o org.png --dpr 2 --view-zoom 1.5`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runRender(cmd, args[0], &opts)
		},
	}

	opts.style.register(cmd)
	opts.view.register(cmd)
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (.svg or .png, default <input>.svg)")
	cmd.Flags().Float64Var(&opts.dpr, "dpr", opts.dpr, "device pixel ratio of PNG output")

	return cmd
}

func (c *CLI) runRender(cmd *cobra.Command, path string, opts *renderOpts) error {
	doc, err := readDocument(path)
	if err != nil {
		return err
	}
	cfg, err := opts.style.config(cmd, c.config.Render.RenderConfig)
	if err != nil {
		return err
	}
	style, err := opts.style.style(cfg, "")
	if err != nil {
		return err
	}

	out := opts.output
	if out == "" {
		out = strings.TrimSuffix(path, filepath.Ext(path)) + ".svg"
	}
	vp := opts.view.viewport(cmd)

	var data []byte
	switch ext := strings.ToLower(filepath.Ext(out)); ext {
	case ".svg":
		data, err = svg.Bytes(doc, svg.Options{Style: style, Viewport: vp, Width: opts.view.width, Height: opts.view.height})
	case ".png":
		data, err = renderPNG(doc, style, vp, opts.view.width, opts.view.height, opts.dpr)
	default:
		return fmt.Errorf("render writes .svg or .png, got %q", ext)
	}
	if err != nil {
		return err
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return err
	}
	printSuccess("Rendered %s", StyleHighlight.Render(titleOf(doc)))
	printFile(out)
	return nil
}

func renderPNG(doc diagram.Document, style styles.Style, vp *diagram.Viewport, w, h int, dpr float64) ([]byte, error) {
	img, err := raster.Render(doc, raster.Options{
		Style:    style,
		Viewport: vp,
		Frame:    raster.Frame{Width: w, Height: h, PixelRatio: dpr},
	})
	if err != nil {
		return nil, err
	}
	return export.Encode(img, export.FormatPNG, 0)
}

// readDocument loads and validates a document JSON file; "-" reads stdin.
func readDocument(path string) (diagram.Document, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return diagram.Document{}, fmt.Errorf("read document: %w", err)
	}
	return diagram.Unmarshal(data)
}
