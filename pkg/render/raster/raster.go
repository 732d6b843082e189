// Package raster renders a diagram Document into a pixel buffer.
//
// It replays the same [styles.Scene] as the vector renderer with
// fogleman/gg. All coordinates are mapped to device pixels before drawing
// (pixel = PixelRatio·(doc·Zoom + Offset)) and fonts are rasterized at
// their device size, so text stays crisp at any scale rather than being
// resampled. Drop shadows are drawn on a separate layer and blurred with
// disintegration/imaging before compositing.
package raster

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"golang.org/x/image/font"

	"github.com/matzehuels/figura/pkg/diagram"
	"github.com/matzehuels/figura/pkg/errors"
	"github.com/matzehuels/figura/pkg/fonts"
	"github.com/matzehuels/figura/pkg/render/styles"
)

// Frame is the logical output size and its pixel density. The pixel buffer
// is Width·PixelRatio × Height·PixelRatio.
type Frame struct {
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	PixelRatio float64 `json:"pixelRatio"`
}

// Pixels returns the pixel size of the frame.
func (f Frame) Pixels() (int, int) {
	pr := f.ratio()
	return int(math.Round(float64(f.Width) * pr)), int(math.Round(float64(f.Height) * pr))
}

// Pixel buffer limits. MaxPixels is 256 MiB of RGBA.
const (
	MaxSide   = 16384
	MaxPixels = 64 << 20
)

// Check returns an INVALID_INPUT error when the frame's pixel buffer would
// exceed MaxSide on either axis or MaxPixels in total.
func (f Frame) Check() error {
	pr := f.ratio()
	pw, ph := float64(f.Width)*pr, float64(f.Height)*pr
	if pw > MaxSide || ph > MaxSide || pw*ph > MaxPixels || math.IsNaN(pw*ph) {
		return errors.New(errors.ErrCodeInvalidInput,
			"frame %dx%d at %gx exceeds the raster limit of %d px per side and %d px total",
			f.Width, f.Height, pr, MaxSide, MaxPixels)
	}
	return nil
}

func (f Frame) ratio() float64 {
	if f.PixelRatio <= 0 {
		return 1
	}
	return f.PixelRatio
}

// Options configures raster rendering.
type Options struct {
	Style    styles.Style
	Viewport *diagram.Viewport // nil renders without pan or zoom
	Measurer fonts.Measurer    // nil selects fonts.Default
	Frame    Frame             // zero Width/Height use the document size times zoom
}

// FrameFor returns the frame used for doc: opts.Frame with a zero size
// replaced by the document size under the render zoom.
func FrameFor(doc diagram.Document, opts Options) Frame {
	f := opts.Frame
	t := styles.ViewTransform(opts.Style.Config, opts.Viewport)
	w, h := t.Size(doc.Width, doc.Height)
	if f.Width <= 0 {
		f.Width = w
	}
	if f.Height <= 0 {
		f.Height = h
	}
	f.PixelRatio = f.ratio()
	return f
}

// Render allocates a buffer for the frame and draws doc into it. Frames
// failing [Frame.Check] are refused before anything is allocated.
func Render(doc diagram.Document, opts Options) (*image.RGBA, error) {
	f := FrameFor(doc, opts)
	if err := f.Check(); err != nil {
		return nil, err
	}
	opts.Frame = f
	pw, ph := f.Pixels()
	dst := image.NewRGBA(image.Rect(0, 0, max(pw, 1), max(ph, 1)))
	Draw(dst, doc, opts)
	return dst, nil
}

// Draw renders doc into dst, which the caller owns. The whole buffer is
// painted with the background first.
func Draw(dst *image.RGBA, doc diagram.Document, opts Options) {
	f := FrameFor(doc, opts)
	sc := styles.Compose(doc, opts.Style, opts.Measurer)
	t := styles.ViewTransform(opts.Style.Config, opts.Viewport)
	p := &painter{
		k:     f.ratio() * t.Scale,
		ox:    f.ratio() * t.TX,
		oy:    f.ratio() * t.TY,
		faces: map[faceKey]font.Face{},
	}

	dc := gg.NewContextForRGBA(dst)
	dc.SetColor(sc.Background)
	dc.Clear()

	if len(sc.Shadows) > 0 {
		b := dst.Bounds()
		layer := gg.NewContext(b.Dx(), b.Dy())
		for _, s := range sc.Shadows {
			p.shape(layer, s)
		}
		blurred := imaging.Blur(layer.Image(), styles.ShadowBlur*p.k)
		dc.DrawImage(blurred, 0, 0)
	}
	for _, s := range sc.Shapes {
		p.shape(dc, s)
	}
}

type faceKey struct {
	size float64
	bold bool
}

// painter maps document coordinates to device pixels and draws shapes.
type painter struct {
	k, ox, oy float64
	faces     map[faceKey]font.Face
}

func (p *painter) x(v float64) float64 { return v*p.k + p.ox }
func (p *painter) y(v float64) float64 { return v*p.k + p.oy }

func (p *painter) face(size float64, bold bool) font.Face {
	key := faceKey{size: size * p.k, bold: bold}
	f, ok := p.faces[key]
	if !ok {
		f = fonts.Face(key.size, bold)
		p.faces[key] = f
	}
	return f
}

func (p *painter) shape(dc *gg.Context, s styles.Shape) {
	switch s.Kind {
	case styles.ShapeRect:
		x, y, w, h := p.x(s.X), p.y(s.Y), s.W*p.k, s.H*p.k
		if s.R > 0 {
			dc.DrawRoundedRectangle(x, y, w, h, s.R*p.k)
		} else {
			dc.DrawRectangle(x, y, w, h)
		}
		p.paint(dc, s)
	case styles.ShapeLine:
		dc.MoveTo(p.x(s.X), p.y(s.Y))
		dc.LineTo(p.x(s.X2), p.y(s.Y2))
		p.paint(dc, s)
	case styles.ShapePath:
		dc.NewSubPath()
		for _, seg := range s.Segments {
			pts := seg.Points
			switch seg.Op {
			case styles.OpMove:
				dc.MoveTo(p.x(pts[0].X), p.y(pts[0].Y))
			case styles.OpLine:
				dc.LineTo(p.x(pts[0].X), p.y(pts[0].Y))
			case styles.OpCubic:
				dc.CubicTo(p.x(pts[0].X), p.y(pts[0].Y), p.x(pts[1].X), p.y(pts[1].Y), p.x(pts[2].X), p.y(pts[2].Y))
			}
		}
		if s.Closed {
			dc.ClosePath()
		}
		p.paint(dc, s)
	case styles.ShapeText:
		face := p.face(s.Size, s.Bold)
		dc.SetFontFace(face)
		dc.SetColor(s.Fill)
		m := face.Metrics()
		// Center the ascent/descent box on y, like dominant-baseline:central.
		baseline := p.y(s.Y) + float64(m.Ascent-m.Descent)/64/2
		ax := 0.5
		if s.Anchor == styles.AnchorStart {
			ax = 0
		}
		dc.DrawStringAnchored(s.Text, p.x(s.X), baseline, ax, 0)
	}
}

// paint fills and then strokes the current path.
func (p *painter) paint(dc *gg.Context, s styles.Shape) {
	stroke := s.Stroke.A > 0 && s.StrokeWidth > 0
	if s.Fill.A > 0 {
		dc.SetColor(s.Fill)
		if stroke {
			dc.FillPreserve()
		} else {
			dc.Fill()
		}
	}
	if stroke {
		dc.SetColor(s.Stroke)
		dc.SetLineWidth(s.StrokeWidth * p.k)
		dc.Stroke()
	}
	dc.ClearPath()
}
