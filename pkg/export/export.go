// Package export turns a Document into a downloadable file.
//
// Raster exports re-render the Document at Scale × PixelRatio into a fresh
// buffer, then optionally normalize it to monochrome and append a caption
// band, each stage producing a new image. The live preview buffer is never
// touched. Vector exports return the SVG markup; PDF converts that markup
// with rsvg-convert.
//
// # Usage
//
//	art, err := export.Export(ctx, export.Request{
//	    Document: doc,
//	    Style:    styles.Default(),
//	    Options:  export.Options{Format: export.FormatPNG, Scale: 2, Monochrome: true},
//	})
//	if err != nil { ... }
//	path, err := art.Save(".")
package export

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/matzehuels/figura/pkg/diagram"
	"github.com/matzehuels/figura/pkg/errors"
	"github.com/matzehuels/figura/pkg/fonts"
	"github.com/matzehuels/figura/pkg/observability"
	"github.com/matzehuels/figura/pkg/render/raster"
	"github.com/matzehuels/figura/pkg/render/styles"
	"github.com/matzehuels/figura/pkg/render/svg"
)

// =============================================================================
// Formats
// =============================================================================

// Format is an output file format.
type Format string

// Supported formats.
const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
	FormatSVG  Format = "svg"
	FormatPDF  Format = "pdf"
)

// Formats lists every supported format.
var Formats = []Format{FormatPNG, FormatJPEG, FormatSVG, FormatPDF}

// ParseFormat converts a format name or file extension to a Format.
func ParseFormat(s string) (Format, error) {
	switch f := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")); f {
	case "png":
		return FormatPNG, nil
	case "jpeg", "jpg":
		return FormatJPEG, nil
	case "svg":
		return FormatSVG, nil
	case "pdf":
		return FormatPDF, nil
	}
	return "", errors.New(errors.ErrCodeInvalidFormat, "unsupported format: %q (must be png, jpeg, svg or pdf)", s)
}

// Ext returns the file extension without the dot.
func (f Format) Ext() string {
	if f == FormatJPEG {
		return "jpg"
	}
	return string(f)
}

// ContentType returns the media type of the format.
func (f Format) ContentType() string {
	switch f {
	case FormatJPEG:
		return "image/jpeg"
	case FormatSVG:
		return svg.ContentType
	case FormatPDF:
		return "application/pdf"
	default:
		return "image/png"
	}
}

// IsRaster reports whether the format is encoded from a pixel buffer.
func (f Format) IsRaster() bool { return f == FormatPNG || f == FormatJPEG }

// =============================================================================
// Options
// =============================================================================

// Scale limits and defaults.
const (
	MinScale       = 1.0
	MaxScale       = 4.0
	DefaultScale   = 2.0
	DefaultQuality = 92
)

// Options configures an export.
type Options struct {
	Format     Format  `json:"format"`
	Scale      float64 `json:"scale"`      // 1..4
	PixelRatio float64 `json:"pixelRatio"` // device pixel ratio; 0 means 1
	Monochrome bool    `json:"monochrome"`
	Caption    Caption `json:"caption"`
	Quality    int     `json:"quality,omitempty"` // JPEG quality 1..100
}

// DefaultOptions returns PNG at 2×.
func DefaultOptions() Options {
	return Options{Format: FormatPNG, Scale: DefaultScale, PixelRatio: 1, Quality: DefaultQuality}
}

// WithDefaults fills zero-valued fields from DefaultOptions.
func (o Options) WithDefaults() Options {
	d := DefaultOptions()
	if o.Format == "" {
		o.Format = d.Format
	}
	if o.Scale == 0 {
		o.Scale = d.Scale
	}
	if o.PixelRatio <= 0 {
		o.PixelRatio = d.PixelRatio
	}
	if o.Quality == 0 {
		o.Quality = d.Quality
	}
	return o
}

// Validate checks the options after defaults are applied.
func (o Options) Validate() error {
	o = o.WithDefaults()
	err := validation.ValidateStruct(&o,
		validation.Field(&o.Format, validation.In(FormatPNG, FormatJPEG, FormatSVG, FormatPDF)),
		validation.Field(&o.Scale, validation.Min(MinScale), validation.Max(MaxScale)),
		validation.Field(&o.PixelRatio, validation.Max(4.0)),
		validation.Field(&o.Quality, validation.Min(1), validation.Max(100)),
	)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "invalid export options")
	}
	return nil
}

// Density returns the pixel multiplier of the exported raster.
func (o Options) Density() float64 {
	o = o.WithDefaults()
	return o.Scale * o.PixelRatio
}

// =============================================================================
// Request / Artifact
// =============================================================================

// Request is one export of a Document.
type Request struct {
	Document diagram.Document
	Viewport *diagram.Viewport // live view pan/zoom; nil exports the whole document
	Style    styles.Style
	Measurer fonts.Measurer

	// Logical size of the live view. Zero falls back to Source, then to the
	// document size times zoom.
	Width, Height int

	// Source is the live preview buffer. It is only read for its size and
	// never written.
	Source image.Image

	Options Options
	Now     time.Time // filename timestamp; zero uses time.Now
}

// Artifact is an encoded export.
type Artifact struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Data        []byte `json:"-"`
	Width       int    `json:"width"`  // pixels for raster formats, units for vector
	Height      int    `json:"height"` // idem
}

// WriteTo writes the encoded data to w.
func (a Artifact) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(a.Data)
	return int64(n), err
}

// Save writes the artifact into dir under its filename and returns the path.
func (a Artifact) Save(dir string) (string, error) {
	if err := errors.ValidateFilename(a.Filename); err != nil {
		return "", err
	}
	path := filepath.Join(dir, a.Filename)
	if err := os.WriteFile(path, a.Data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

// =============================================================================
// Export
// =============================================================================

// Export produces the file for req. Cancellation of ctx between stages
// yields an ABORTED error.
func Export(ctx context.Context, req Request) (art Artifact, err error) {
	opts := req.Options.WithDefaults()
	if err := opts.Validate(); err != nil {
		return Artifact{}, err
	}
	if err := aborted(ctx); err != nil {
		return Artifact{}, err
	}

	formats := []string{string(opts.Format)}
	start := time.Now()
	observability.Pipeline().OnRenderStart(ctx, formats)
	defer func() { observability.Pipeline().OnRenderComplete(ctx, formats, time.Since(start), err) }()

	now := req.Now
	if now.IsZero() {
		now = time.Now()
	}
	art = Artifact{
		Filename:    Filename(req.Document.Title, opts.Format.Ext(), now),
		ContentType: opts.Format.ContentType(),
	}

	w, h := logicalSize(req)
	if !opts.Format.IsRaster() {
		data, err := svg.Bytes(req.Document, svg.Options{
			Style: req.Style, Viewport: req.Viewport, Measurer: req.Measurer, Width: w, Height: h,
		})
		if err != nil {
			return Artifact{}, errors.Wrap(errors.ErrCodeInternal, err, "render svg")
		}
		if opts.Format == FormatPDF {
			if data, err = ToPDF(ctx, data); err != nil {
				if ab := aborted(ctx); ab != nil {
					return Artifact{}, ab
				}
				return Artifact{}, err
			}
		}
		art.Data, art.Width, art.Height = data, w, h
		return art, nil
	}

	img, err := Rasterize(req, opts)
	if err != nil {
		return Artifact{}, err
	}
	if err := aborted(ctx); err != nil {
		return Artifact{}, err
	}
	var out image.Image = img
	if opts.Monochrome {
		out = Monochrome(out)
		if err := aborted(ctx); err != nil {
			return Artifact{}, err
		}
	}
	out = AddCaption(out, opts.Caption.Text(), opts.Density(), req.Measurer)
	if err := aborted(ctx); err != nil {
		return Artifact{}, err
	}

	data, err := Encode(out, opts.Format, opts.Quality)
	if err != nil {
		return Artifact{}, err
	}
	b := out.Bounds()
	art.Data, art.Width, art.Height = data, b.Dx(), b.Dy()
	return art, nil
}

// Rasterize renders the request into a new buffer at the export density.
// Sizes whose pixel buffer exceeds the raster limits are rejected with
// INVALID_INPUT before anything is allocated.
func Rasterize(req Request, opts Options) (*image.RGBA, error) {
	w, h := logicalSize(req)
	frame := raster.Frame{Width: w, Height: h, PixelRatio: opts.Density()}
	if err := frame.Check(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "export size too large")
	}
	return raster.Render(req.Document, raster.Options{
		Style:    req.Style,
		Viewport: req.Viewport,
		Measurer: req.Measurer,
		Frame:    frame,
	})
}

// logicalSize resolves the exported logical size: explicit size, then the
// source buffer at the given pixel ratio, then the document under zoom.
func logicalSize(req Request) (int, int) {
	w, h := req.Width, req.Height
	if (w <= 0 || h <= 0) && req.Source != nil {
		pr := req.Options.WithDefaults().PixelRatio
		b := req.Source.Bounds()
		if w <= 0 {
			w = int(float64(b.Dx())/pr + 0.5)
		}
		if h <= 0 {
			h = int(float64(b.Dy())/pr + 0.5)
		}
	}
	if w <= 0 || h <= 0 {
		f := raster.FrameFor(req.Document, raster.Options{Style: req.Style, Viewport: req.Viewport})
		if w <= 0 {
			w = f.Width
		}
		if h <= 0 {
			h = f.Height
		}
	}
	return w, h
}

// Encode encodes img in a raster format.
func Encode(img image.Image, f Format, quality int) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	switch f {
	case FormatPNG:
		err = imaging.Encode(&buf, img, imaging.PNG)
	case FormatJPEG:
		if quality <= 0 {
			quality = DefaultQuality
		}
		err = imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality))
	default:
		return nil, errors.New(errors.ErrCodeInvalidFormat, "%s is not a raster format", f)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "encode %s", f)
	}
	return buf.Bytes(), nil
}

func aborted(ctx context.Context) error {
	return errors.Aborted(ctx.Err(), "export aborted")
}
