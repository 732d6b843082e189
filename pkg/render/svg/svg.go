// Package svg renders a diagram Document as self-contained SVG markup.
//
// The output draws the [styles.Scene] of the document, the same primitive
// list the raster renderer replays, so both outputs agree on geometry,
// colors and text layout. Rendering is a pure function of its inputs.
package svg

import (
	"bytes"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"image/color"
	"io"
	"math"
	"strconv"

	svgo "github.com/ajstarks/svgo"

	"github.com/matzehuels/figura/pkg/diagram"
	"github.com/matzehuels/figura/pkg/fonts"
	"github.com/matzehuels/figura/pkg/render/styles"
)

// ContentType is the media type of the output.
const ContentType = "image/svg+xml"

// Options configures SVG rendering.
type Options struct {
	Style    styles.Style
	Viewport *diagram.Viewport // nil renders without pan or zoom
	Measurer fonts.Measurer    // nil selects fonts.Default
	Width    int               // output width; 0 uses the document width times zoom
	Height   int               // output height; 0 uses the document height times zoom
}

// Render writes the SVG markup of doc to w.
func Render(w io.Writer, doc diagram.Document, opts Options) error {
	sc := styles.Compose(doc, opts.Style, opts.Measurer)
	t := styles.ViewTransform(opts.Style.Config, opts.Viewport)
	width, height := t.Size(doc.Width, doc.Height)
	if opts.Width > 0 {
		width = opts.Width
	}
	if opts.Height > 0 {
		height = opts.Height
	}

	ew := &errWriter{w: w}
	canvas := svgo.New(ew)
	canvas.Start(width, height, `font-family="`+xmlEscape(fonts.FontFamily)+`"`)
	if sc.Title != "" {
		canvas.Title(sc.Title)
	}
	if len(sc.Shadows) > 0 {
		canvas.Def()
		canvas.Filter("shadow", `x="-20%" y="-20%" width="140%" height="140%"`)
		canvas.FeGaussianBlur(svgo.Filterspec{In: "SourceGraphic"}, styles.ShadowBlur, styles.ShadowBlur)
		canvas.Fend()
		canvas.DefEnd()
	}
	canvas.Rect(0, 0, width, height, "fill:"+styles.Hex(sc.Background))

	if !t.IsIdentity() {
		canvas.Gtransform(fmt.Sprintf("translate(%s,%s) scale(%s)", num(t.TX), num(t.TY), num(t.Scale)))
	}
	if len(sc.Shadows) > 0 {
		canvas.Group(`filter="url(#shadow)"`)
		for _, s := range sc.Shadows {
			shape(canvas, ew, s)
		}
		canvas.Gend()
	}
	for _, s := range sc.Shapes {
		shape(canvas, ew, s)
	}
	if !t.IsIdentity() {
		canvas.Gend()
	}
	canvas.End()
	return ew.err
}

// Bytes renders doc and returns the markup.
func Bytes(doc diagram.Document, opts Options) ([]byte, error) {
	var buf bytes.Buffer
	if err := Render(&buf, doc, opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DataURI renders doc as a base64 data URI for direct embedding.
func DataURI(doc diagram.Document, opts Options) (string, error) {
	b, err := Bytes(doc, opts)
	if err != nil {
		return "", err
	}
	return "data:" + ContentType + ";base64," + base64.StdEncoding.EncodeToString(b), nil
}

// shape writes one primitive. svgo takes integer coordinates, so primitives
// that need sub-unit precision (rects, text) are written directly.
func shape(canvas *svgo.SVG, w io.Writer, s styles.Shape) {
	switch s.Kind {
	case styles.ShapeRect:
		fmt.Fprintf(w, `<rect x="%s" y="%s" width="%s" height="%s"`, num(s.X), num(s.Y), num(s.W), num(s.H))
		if s.R > 0 {
			fmt.Fprintf(w, ` rx="%s" ry="%s"`, num(s.R), num(s.R))
		}
		fmt.Fprintf(w, ` style="%s" />`+"\n", paint(s))
	case styles.ShapeLine:
		d := styles.Path{Segments: []styles.Segment{
			{Op: styles.OpMove, Points: []diagram.Point{{X: s.X, Y: s.Y}}},
			{Op: styles.OpLine, Points: []diagram.Point{{X: s.X2, Y: s.Y2}}},
		}}.SVG()
		canvas.Path(d, paint(s))
	case styles.ShapePath:
		d := styles.Path{Segments: s.Segments}.SVG()
		if s.Closed {
			d += " Z"
		}
		canvas.Path(d, paint(s))
	case styles.ShapeText:
		anchor := "middle"
		if s.Anchor == styles.AnchorStart {
			anchor = "start"
		}
		weight := ""
		if s.Bold {
			weight = ";font-weight:bold"
		}
		fmt.Fprintf(w, `<text x="%s" y="%s" style="fill:%s;font-size:%spx;text-anchor:%s;dominant-baseline:central%s">%s</text>`+"\n",
			num(s.X), num(s.Y), styles.Hex(s.Fill), num(s.Size), anchor, weight, xmlEscape(s.Text))
	}
}

// paint returns the fill and stroke style of a shape.
func paint(s styles.Shape) string {
	style := "fill:none"
	if s.Fill.A > 0 {
		style = "fill:" + styles.Hex(s.Fill) + opacity("fill", s.Fill)
	}
	if s.Stroke.A > 0 && s.StrokeWidth > 0 {
		style += ";stroke:" + styles.Hex(s.Stroke) + opacity("stroke", s.Stroke) + ";stroke-width:" + num(s.StrokeWidth)
	}
	return style
}

func opacity(prop string, c color.NRGBA) string {
	if c.A == 0xff {
		return ""
	}
	return fmt.Sprintf(";%s-opacity:%s", prop, num(styles.Opacity(c)))
}

// num formats a coordinate with at most two decimals.
func num(v float64) string {
	v = math.Round(v*100) / 100
	if v == 0 {
		return "0"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func xmlEscape(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}

// errWriter records the first write error; svgo does not report them.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) Write(p []byte) (int, error) {
	if e.err != nil {
		return 0, e.err
	}
	n, err := e.w.Write(p)
	if err != nil {
		e.err = err
	}
	return n, err
}
