package diagram

import (
	"fmt"
	"math"
)

// epsilon is the tolerance used when comparing computed bounds.
const epsilon = 1e-6

// Point is a 2D point in document units.
type Point struct {
	X, Y float64
}

// Rect is an axis-aligned rectangle in document units.
type Rect struct {
	X, Y, W, H float64
}

// Right returns the x coordinate of the right edge.
func (r Rect) Right() float64 { return r.X + r.W }

// Bottom returns the y coordinate of the bottom edge.
func (r Rect) Bottom() float64 { return r.Y + r.H }

// Center returns the center point.
func (r Rect) Center() Point { return Point{X: r.X + r.W/2, Y: r.Y + r.H/2} }

// Inset returns the rectangle shrunk by p on every side. The result never
// has a negative size.
func (r Rect) Inset(p float64) Rect {
	out := Rect{X: r.X + p, Y: r.Y + p, W: r.W - 2*p, H: r.H - 2*p}
	out.W = math.Max(out.W, 0)
	out.H = math.Max(out.H, 0)
	return out
}

// Fit translates nodes so their tight bounding box starts at (Margin, Margin)
// and returns the translated copy together with the document size, which is
// the bounding box plus Margin on every side. An empty node set yields a
// 2·Margin square.
//
// The input slice is not modified.
func Fit(nodes []Node) ([]Node, float64, float64) {
	out := make([]Node, len(nodes))
	copy(out, nodes)
	if len(out) == 0 {
		return out, 2 * Margin, 2 * Margin
	}

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, n := range out {
		minX = math.Min(minX, n.X)
		minY = math.Min(minY, n.Y)
		maxX = math.Max(maxX, n.Right())
		maxY = math.Max(maxY, n.Bottom())
	}

	dx, dy := Margin-minX, Margin-minY
	for i := range out {
		out[i].X += dx
		out[i].Y += dy
	}
	return out, (maxX - minX) + 2*Margin, (maxY - minY) + 2*Margin
}

// FilterEdges drops edges whose endpoints are not both present in nodes, as
// well as self loops and exact duplicates. Order is preserved.
func FilterEdges(nodes []Node, edges []Edge) []Edge {
	ids := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		ids[n.ID] = true
	}

	type key struct{ src, dst string }
	seen := make(map[key]bool, len(edges))
	out := make([]Edge, 0, len(edges))
	for _, e := range edges {
		if !ids[e.Source] || !ids[e.Target] || e.Source == e.Target {
			continue
		}
		k := key{e.Source, e.Target}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, e)
	}
	return out
}

// Build assembles a Document from laid-out nodes and edges: dangling edges
// are dropped and the nodes are fitted to the margin.
func Build(title string, kind Kind, nodes []Node, edges []Edge) Document {
	fitted, w, h := Fit(nodes)
	return Document{
		Title:  title,
		Kind:   kind,
		Nodes:  fitted,
		Edges:  FilterEdges(fitted, edges),
		Width:  w,
		Height: h,
	}
}

// Validate checks the document invariants described in the package docs.
func (d *Document) Validate() error {
	if d.Kind != "" {
		if _, err := ParseKind(string(d.Kind)); err != nil {
			return err
		}
	}

	ids := make(map[string]bool, len(d.Nodes))
	for _, n := range d.Nodes {
		if n.ID == "" {
			return fmt.Errorf("node with empty id")
		}
		if ids[n.ID] {
			return fmt.Errorf("duplicate node id: %q", n.ID)
		}
		ids[n.ID] = true
		if n.Width < 0 || n.Height < 0 {
			return fmt.Errorf("node %q has negative size", n.ID)
		}
		if n.X < -epsilon || n.Y < -epsilon || n.Right() > d.Width+epsilon || n.Bottom() > d.Height+epsilon {
			return fmt.Errorf("node %q lies outside the document bounds", n.ID)
		}
	}

	for _, e := range d.Edges {
		if !ids[e.Source] || !ids[e.Target] {
			return fmt.Errorf("%w: %s -> %s", ErrDanglingEdge, e.Source, e.Target)
		}
	}

	_, w, h := Fit(d.Nodes)
	if math.Abs(w-d.Width) > epsilon || math.Abs(h-d.Height) > epsilon {
		return fmt.Errorf("document size %.2fx%.2f does not match bounds %.2fx%.2f", d.Width, d.Height, w, h)
	}
	if len(d.Nodes) > 0 {
		minX, minY := math.Inf(1), math.Inf(1)
		for _, n := range d.Nodes {
			minX = math.Min(minX, n.X)
			minY = math.Min(minY, n.Y)
		}
		if math.Abs(minX-Margin) > epsilon || math.Abs(minY-Margin) > epsilon {
			return fmt.Errorf("bounding box starts at (%.2f, %.2f), want margin %.0f", minX, minY, Margin)
		}
	}
	return nil
}
