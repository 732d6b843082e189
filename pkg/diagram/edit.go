package diagram

import (
	"errors"
	"fmt"
	"math"
)

// Sentinel errors for document operations.
var (
	// ErrNodeNotFound is returned when an edit targets an unknown node id.
	ErrNodeNotFound = errors.New("node not found")

	// ErrDanglingEdge is returned by Validate when an edge references a
	// missing node.
	ErrDanglingEdge = errors.New("dangling edge")

	// ErrInvalidSize is returned when a resize would produce a degenerate node.
	ErrInvalidSize = errors.New("invalid node size")
)

// MinNodeSize is the smallest width or height a resize may produce.
const MinNodeSize = 8.0

// MoveNode returns a copy of the document with node id moved by (dx, dy).
// The copy is re-fitted, so moving a node past the current margin shifts
// the whole diagram and grows the bounds. The receiver is not modified.
func (d Document) MoveNode(id string, dx, dy float64) (Document, error) {
	out := d.Clone()
	n, ok := out.Node(id)
	if !ok {
		return d, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	n.X = math.Round(n.X + dx)
	n.Y = math.Round(n.Y + dy)
	return out.refit(), nil
}

// ResizeNode returns a copy of the document with node id resized to w × h,
// keeping its top-left corner. The receiver is not modified.
func (d Document) ResizeNode(id string, w, h float64) (Document, error) {
	if w < MinNodeSize || h < MinNodeSize || math.IsNaN(w) || math.IsNaN(h) || math.IsInf(w, 0) || math.IsInf(h, 0) {
		return d, fmt.Errorf("%w: %.1fx%.1f", ErrInvalidSize, w, h)
	}
	out := d.Clone()
	n, ok := out.Node(id)
	if !ok {
		return d, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	n.Width = math.Round(w)
	n.Height = math.Round(h)
	return out.refit(), nil
}

// RelabelNode returns a copy of the document with the label of node id
// replaced. Geometry is unchanged.
func (d Document) RelabelNode(id, label string) (Document, error) {
	out := d.Clone()
	n, ok := out.Node(id)
	if !ok {
		return d, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	n.Label = label
	return out, nil
}

// WithTitle returns a copy of the document with the given title.
func (d Document) WithTitle(title string) Document {
	out := d.Clone()
	out.Title = title
	return out
}

func (d Document) refit() Document {
	d.Nodes, d.Width, d.Height = Fit(d.Nodes)
	return d
}
