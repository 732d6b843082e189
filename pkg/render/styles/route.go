package styles

import (
	"fmt"
	"math"
	"strings"

	"github.com/matzehuels/figura/pkg/diagram"
)

// Arrowhead dimensions in document units.
const (
	ArrowLength    = 9.0
	ArrowHalfWidth = 4.5
)

// Op is a path drawing operation.
type Op int

const (
	OpMove Op = iota
	OpLine
	OpCubic
)

// Segment is one path operation. Move and Line carry one point, Cubic
// carries two control points and the end point.
type Segment struct {
	Op     Op
	Points []diagram.Point
}

// Path is a routed edge: the stroke, the filled arrowhead triangle at the
// target, and the point where an edge label is centered.
type Path struct {
	Segments []Segment
	Arrow    [3]diagram.Point // tip, then the two base corners
	Mid      diagram.Point
}

// SVG returns the path in SVG path-data syntax.
func (p Path) SVG() string {
	var b strings.Builder
	for i, s := range p.Segments {
		if i > 0 {
			b.WriteByte(' ')
		}
		switch s.Op {
		case OpMove:
			fmt.Fprintf(&b, "M%s", pt(s.Points[0]))
		case OpLine:
			fmt.Fprintf(&b, "L%s", pt(s.Points[0]))
		case OpCubic:
			fmt.Fprintf(&b, "C%s %s %s", pt(s.Points[0]), pt(s.Points[1]), pt(s.Points[2]))
		}
	}
	return b.String()
}

func pt(p diagram.Point) string {
	return fmt.Sprintf("%s,%s", num(p.X), num(p.Y))
}

// num formats a coordinate with at most two decimals and no trailing zeros.
func num(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	if s == "-0" {
		return "0"
	}
	return s
}

// axis is the main direction of an edge.
type axis int

const (
	vertical axis = iota
	horizontal
)

// axisFor picks the routing direction: trees route top-down, flows
// left-to-right, entities by whichever gap between the boxes is larger.
func axisFor(kind diagram.Kind, src, dst diagram.Node) axis {
	switch kind {
	case diagram.KindFlow:
		return horizontal
	case diagram.KindEntity:
		gapX := math.Max(dst.X-src.Right(), src.X-dst.Right())
		gapY := math.Max(dst.Y-src.Bottom(), src.Y-dst.Bottom())
		if gapX > gapY {
			return horizontal
		}
		return vertical
	default:
		return vertical
	}
}

// Route computes the path of an edge between two nodes. Orthogonal routes
// are three segments through the midpoint between the anchors (V-H-V for a
// vertical axis, H-V-H for a horizontal one); curve routes are one cubic
// with the same anchors. The stroke ends at the arrowhead base.
func Route(kind diagram.Kind, src, dst diagram.Node, style diagram.LineStyle) Path {
	ax := axisFor(kind, src, dst)

	var a, b, dir diagram.Point
	if ax == vertical {
		if dst.CenterY() >= src.CenterY() {
			a = diagram.Point{X: src.CenterX(), Y: src.Bottom()}
			b = diagram.Point{X: dst.CenterX(), Y: dst.Y}
			dir = diagram.Point{Y: 1}
		} else {
			a = diagram.Point{X: src.CenterX(), Y: src.Y}
			b = diagram.Point{X: dst.CenterX(), Y: dst.Bottom()}
			dir = diagram.Point{Y: -1}
		}
	} else {
		if dst.CenterX() >= src.CenterX() {
			a = diagram.Point{X: src.Right(), Y: src.CenterY()}
			b = diagram.Point{X: dst.X, Y: dst.CenterY()}
			dir = diagram.Point{X: 1}
		} else {
			a = diagram.Point{X: src.X, Y: src.CenterY()}
			b = diagram.Point{X: dst.Right(), Y: dst.CenterY()}
			dir = diagram.Point{X: -1}
		}
	}

	// The stroke stops at the arrowhead base.
	end := diagram.Point{X: b.X - dir.X*ArrowLength, Y: b.Y - dir.Y*ArrowLength}
	p := Path{Arrow: arrow(b, dir)}

	move := Segment{Op: OpMove, Points: []diagram.Point{a}}
	if ax == vertical {
		my := (a.Y + end.Y) / 2
		p.Mid = diagram.Point{X: (a.X + end.X) / 2, Y: my}
		if style == diagram.LineCurve {
			p.Segments = []Segment{move, {Op: OpCubic, Points: []diagram.Point{{X: a.X, Y: my}, {X: end.X, Y: my}, end}}}
		} else {
			p.Segments = []Segment{
				move,
				{Op: OpLine, Points: []diagram.Point{{X: a.X, Y: my}}},
				{Op: OpLine, Points: []diagram.Point{{X: end.X, Y: my}}},
				{Op: OpLine, Points: []diagram.Point{end}},
			}
		}
		return p
	}

	mx := (a.X + end.X) / 2
	p.Mid = diagram.Point{X: mx, Y: (a.Y + end.Y) / 2}
	if style == diagram.LineCurve {
		p.Segments = []Segment{move, {Op: OpCubic, Points: []diagram.Point{{X: mx, Y: a.Y}, {X: mx, Y: end.Y}, end}}}
	} else {
		p.Segments = []Segment{
			move,
			{Op: OpLine, Points: []diagram.Point{{X: mx, Y: a.Y}}},
			{Op: OpLine, Points: []diagram.Point{{X: mx, Y: end.Y}}},
			{Op: OpLine, Points: []diagram.Point{end}},
		}
	}
	return p
}

// arrow returns the triangle with its tip at tip pointing along dir.
func arrow(tip, dir diagram.Point) [3]diagram.Point {
	base := diagram.Point{X: tip.X - dir.X*ArrowLength, Y: tip.Y - dir.Y*ArrowLength}
	nx, ny := -dir.Y, dir.X
	return [3]diagram.Point{
		tip,
		{X: base.X + nx*ArrowHalfWidth, Y: base.Y + ny*ArrowHalfWidth},
		{X: base.X - nx*ArrowHalfWidth, Y: base.Y - ny*ArrowHalfWidth},
	}
}

// EdgeRoutes routes every edge of a document, in edge order. Edges whose
// endpoints are missing are skipped.
func EdgeRoutes(doc diagram.Document, style diagram.LineStyle) []RoutedEdge {
	idx := doc.Index()
	out := make([]RoutedEdge, 0, len(doc.Edges))
	for _, e := range doc.Edges {
		si, ok1 := idx[e.Source]
		ti, ok2 := idx[e.Target]
		if !ok1 || !ok2 {
			continue
		}
		out = append(out, RoutedEdge{Edge: e, Path: Route(doc.Kind, doc.Nodes[si], doc.Nodes[ti], style)})
	}
	return out
}

// RoutedEdge pairs an edge with its path.
type RoutedEdge struct {
	Edge diagram.Edge
	Path Path
}
