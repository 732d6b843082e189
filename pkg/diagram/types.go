package diagram

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// =============================================================================
// Constants - Single Source of Truth
// =============================================================================

// Kind selects the grammar used to read the input text (the parser kind).
type Kind string

// Parser kinds.
const (
	KindHierarchy Kind = "hierarchy"
	KindFlow      Kind = "flow"
	KindEntity    Kind = "entity"
	KindMind      Kind = "mind"
)

// ValidKinds lists every supported parser kind in display order.
var ValidKinds = []Kind{KindHierarchy, KindFlow, KindEntity, KindMind}

// ParseKind converts a string to a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !slices.Contains(ValidKinds, k) {
		return "", fmt.Errorf("invalid parser kind: %q (must be one of: hierarchy, flow, entity, mind)", s)
	}
	return k, nil
}

// IsTree reports whether the kind is laid out as a top-down tree.
func (k Kind) IsTree() bool { return k == KindHierarchy || k == KindMind }

// NodeKind distinguishes entity boxes (with field rows) from plain nodes.
type NodeKind string

// Node kinds.
const (
	NodeGeneric NodeKind = "generic"
	NodeEntity  NodeKind = "entity"
)

// Margin is the fixed padding added around the tight bounding box of all
// nodes on every side.
const Margin = 24.0

// EntityHeaderHeight is the height of the title band of an entity box. The
// remaining height is shared evenly by the field rows.
const EntityHeaderHeight = 32.0

// NodePadding is the inner padding between a node's outline and its text.
const NodePadding = 10.0

// =============================================================================
// Node - Positioned Element
// =============================================================================

// Node is a positioned diagram element. Coordinates are document units
// (CSS pixels at zoom 1) with the origin at the top-left corner.
type Node struct {
	ID     string   `json:"id" bson:"id"`
	Label  string   `json:"label" bson:"label"`
	Kind   NodeKind `json:"kind" bson:"kind"`
	X      float64  `json:"x" bson:"x"`
	Y      float64  `json:"y" bson:"y"`
	Width  float64  `json:"width" bson:"width"`
	Height float64  `json:"height" bson:"height"`
	Level  int      `json:"level" bson:"level"`                       // tree depth or flow column
	Fields []string `json:"fields,omitempty" bson:"fields,omitempty"` // entity rows
}

// IsEntity returns true if the node is an entity box.
func (n Node) IsEntity() bool { return n.Kind == NodeEntity }

// Rect returns the node's bounding rectangle.
func (n Node) Rect() Rect { return Rect{X: n.X, Y: n.Y, W: n.Width, H: n.Height} }

// CenterX returns the horizontal center of the node.
func (n Node) CenterX() float64 { return n.X + n.Width/2 }

// CenterY returns the vertical center of the node.
func (n Node) CenterY() float64 { return n.Y + n.Height/2 }

// Right returns the x coordinate of the node's right edge.
func (n Node) Right() float64 { return n.X + n.Width }

// Bottom returns the y coordinate of the node's bottom edge.
func (n Node) Bottom() float64 { return n.Y + n.Height }

// HeaderHeight returns the height of the entity title band, which is the
// whole box for nodes without fields.
func (n Node) HeaderHeight() float64 {
	if len(n.Fields) == 0 {
		return n.Height
	}
	return min(EntityHeaderHeight, n.Height)
}

// RowHeight returns the height of one entity field row, or 0 without fields.
func (n Node) RowHeight() float64 {
	if len(n.Fields) == 0 {
		return 0
	}
	return (n.Height - n.HeaderHeight()) / float64(len(n.Fields))
}

// =============================================================================
// Edge - Directed Connection
// =============================================================================

// Edge is a directed connection between two nodes, referenced by id.
type Edge struct {
	Source string `json:"source" bson:"source"`
	Target string `json:"target" bson:"target"`
	Label  string `json:"label,omitempty" bson:"label,omitempty"`
}

// =============================================================================
// Document - Layout Result
// =============================================================================

// Document is the positioned diagram: the single geometry source for the
// vector renderer, the raster renderer and the exporter.
type Document struct {
	Title       string    `json:"title" bson:"title"`
	Kind        Kind      `json:"parserKind" bson:"parser_kind"`
	Nodes       []Node    `json:"nodes" bson:"nodes"`
	Edges       []Edge    `json:"edges" bson:"edges"`
	Width       float64   `json:"width" bson:"width"`
	Height      float64   `json:"height" bson:"height"`
	GeneratedAt time.Time `json:"generatedAt" bson:"generated_at"`
}

// Node returns the node with the given id.
func (d *Document) Node(id string) (*Node, bool) {
	for i := range d.Nodes {
		if d.Nodes[i].ID == id {
			return &d.Nodes[i], true
		}
	}
	return nil, false
}

// Index returns a lookup from node id to its index in Nodes.
func (d *Document) Index() map[string]int {
	idx := make(map[string]int, len(d.Nodes))
	for i, n := range d.Nodes {
		idx[n.ID] = i
	}
	return idx
}

// NodeCount returns the number of nodes.
func (d *Document) NodeCount() int { return len(d.Nodes) }

// EdgeCount returns the number of edges.
func (d *Document) EdgeCount() int { return len(d.Edges) }

// IsEmpty returns true if the document has no nodes.
func (d *Document) IsEmpty() bool { return len(d.Nodes) == 0 }

// Clone returns a deep copy of the document.
func (d Document) Clone() Document {
	out := d
	out.Nodes = make([]Node, len(d.Nodes))
	for i, n := range d.Nodes {
		n.Fields = slices.Clone(n.Fields)
		out.Nodes[i] = n
	}
	out.Edges = slices.Clone(d.Edges)
	return out
}
