package styles

import (
	"image/color"
	"math"

	"github.com/matzehuels/figura/pkg/diagram"
	"github.com/matzehuels/figura/pkg/fonts"
)

// Stroke widths in document units.
const (
	NodeStrokeWidth = 1.5
	EdgeStrokeWidth = 1.5
	RuleStrokeWidth = 1.0
)

// Shadow geometry in document units.
const (
	ShadowOffsetY = 2.0
	ShadowBlur    = 3.0
)

// ShapeKind identifies a drawing primitive.
type ShapeKind int

const (
	ShapeRect ShapeKind = iota // rectangle, rounded when R > 0
	ShapeLine
	ShapePath // open stroke, or closed and filled when Closed
	ShapeText
)

// Shape is one drawing primitive in document coordinates. A zero-alpha Fill
// or Stroke means none.
type Shape struct {
	Kind ShapeKind
	ID   string // owning node or edge, for vector ids

	X, Y, W, H, R float64 // rect; line start in X, Y
	X2, Y2        float64 // line end

	Segments []Segment // path
	Closed   bool

	Text   string // text, centered vertically on Y
	Size   float64
	Bold   bool
	Anchor Anchor

	Fill        color.NRGBA
	Stroke      color.NRGBA
	StrokeWidth float64
}

// Scene is a Document resolved into primitives. Both renderers draw a Scene
// and nothing else.
type Scene struct {
	Title      string
	Width      float64 // document width
	Height     float64 // document height
	Background color.NRGBA
	Shadow     color.NRGBA
	Shadows    []Shape // drawn blurred below everything else
	Shapes     []Shape // in paint order
}

// Compose builds the scene of a document: shadows, edges, nodes with their
// labels, then edge labels on top.
func Compose(doc diagram.Document, s Style, m fonts.Measurer) Scene {
	if m == nil {
		m = fonts.Default()
	}
	s = s.normalized()
	cfg := s.Config
	p := s.Palette()

	sc := Scene{
		Title:      doc.Title,
		Width:      doc.Width,
		Height:     doc.Height,
		Background: p.Background,
		Shadow:     p.Shadow,
	}

	if cfg.ShowShadow {
		for _, n := range doc.Nodes {
			sc.Shadows = append(sc.Shadows, Shape{
				Kind: ShapeRect, ID: n.ID,
				X: n.X, Y: n.Y + ShadowOffsetY, W: n.Width, H: n.Height, R: radius(cfg, n),
				Fill: p.Shadow,
			})
		}
	}

	routes := EdgeRoutes(doc, cfg.LineStyle)
	for _, r := range routes {
		id := r.Edge.Source + "-" + r.Edge.Target
		sc.Shapes = append(sc.Shapes,
			Shape{Kind: ShapePath, ID: id, Segments: r.Path.Segments, Stroke: p.Edge, StrokeWidth: EdgeStrokeWidth},
			Shape{Kind: ShapePath, ID: id, Segments: arrowSegments(r.Path.Arrow), Closed: true, Fill: p.Edge},
		)
	}

	for _, n := range doc.Nodes {
		sc.Shapes = append(sc.Shapes, nodeShapes(doc.Kind, n, s, p, m)...)
	}

	size := EdgeLabelSize(cfg)
	for _, r := range routes {
		if r.Edge.Label == "" {
			continue
		}
		w := m.Width(r.Edge.Label, size, false) + 8
		h := m.LineHeight(size) + 2
		sc.Shapes = append(sc.Shapes,
			Shape{Kind: ShapeRect, X: r.Path.Mid.X - w/2, Y: r.Path.Mid.Y - h/2, W: w, H: h, R: 3, Fill: p.Background},
			Shape{Kind: ShapeText, Text: r.Edge.Label, X: r.Path.Mid.X, Y: r.Path.Mid.Y, Size: size, Anchor: AnchorMiddle, Fill: p.Edge},
		)
	}
	return sc
}

func radius(cfg diagram.RenderConfig, n diagram.Node) float64 {
	return math.Min(cfg.NodeRadius, math.Min(n.Width, n.Height)/2)
}

func nodeShapes(kind diagram.Kind, n diagram.Node, s Style, p Palette, m fonts.Measurer) []Shape {
	r := radius(s.Config, n)
	fill, text := p.Surface, p.Text
	if Accented(kind, n) {
		fill, text = p.Header, p.HeaderText
	}

	out := []Shape{{Kind: ShapeRect, ID: n.ID, X: n.X, Y: n.Y, W: n.Width, H: n.Height, R: r, Fill: fill}}

	if n.IsEntity() {
		header := n.HeaderHeight()
		out = append(out, Shape{Kind: ShapeRect, ID: n.ID, X: n.X, Y: n.Y, W: n.Width, H: header, R: math.Min(r, header/2), Fill: p.Header})
		if len(n.Fields) > 0 {
			// Square off the bottom corners of the title band.
			sq := math.Min(r, header/2)
			out = append(out, Shape{Kind: ShapeRect, ID: n.ID, X: n.X, Y: n.Y + header - sq, W: n.Width, H: sq, Fill: p.Header})
		}
		rowH := n.RowHeight()
		for i := 1; i < len(n.Fields); i++ {
			y := n.Y + header + rowH*float64(i)
			out = append(out, Shape{Kind: ShapeLine, ID: n.ID, X: n.X, Y: y, X2: n.Right(), Y2: y, Stroke: p.Rule, StrokeWidth: RuleStrokeWidth})
		}
	}

	out = append(out, Shape{Kind: ShapeRect, ID: n.ID, X: n.X, Y: n.Y, W: n.Width, H: n.Height, R: r, Stroke: p.Border, StrokeWidth: NodeStrokeWidth})

	for _, l := range NodeLabels(kind, n, s, m) {
		c := text
		if l.Header {
			c = p.HeaderText
		}
		for _, ln := range l.Lines {
			out = append(out, Shape{
				Kind: ShapeText, ID: n.ID, Text: ln.Text, X: ln.X, Y: ln.Y,
				Size: l.Size, Bold: l.Bold, Anchor: l.Anchor, Fill: c,
			})
		}
	}
	return out
}

func arrowSegments(a [3]diagram.Point) []Segment {
	return []Segment{
		{Op: OpMove, Points: []diagram.Point{a[0]}},
		{Op: OpLine, Points: []diagram.Point{a[1]}},
		{Op: OpLine, Points: []diagram.Point{a[2]}},
	}
}

// Transform maps document coordinates to output coordinates as
// out = doc·Scale + (TX, TY).
type Transform struct {
	Scale  float64
	TX, TY float64
}

// ViewTransform combines the render zoom with an optional viewport. The
// viewport offset is in output units; both zooms multiply.
func ViewTransform(cfg diagram.RenderConfig, vp *diagram.Viewport) Transform {
	t := Transform{Scale: cfg.WithDefaults().Zoom}
	if vp != nil {
		v := vp.Normalized()
		t.Scale *= v.Zoom
		t.TX, t.TY = v.OffsetX, v.OffsetY
	}
	return t
}

// IsIdentity reports whether t leaves coordinates unchanged.
func (t Transform) IsIdentity() bool {
	return t.Scale == 1 && t.TX == 0 && t.TY == 0
}

// Size returns the output size of a document of w×h under t, rounded up to
// whole units.
func (t Transform) Size(w, h float64) (int, int) {
	return int(math.Ceil(w*t.Scale - 1e-9)), int(math.Ceil(h*t.Scale - 1e-9))
}
