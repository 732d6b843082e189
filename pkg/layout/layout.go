// Package layout assigns positions and sizes to parsed diagram items.
//
// Each diagram kind has its own layout function, selected through a closed
// dispatch table:
//
//   - hierarchy and mind: top-down tree, one row per level
//   - flow: left-to-right columns, one per level
//   - entity: a grid of fixed-width boxes with field rows
//
// Every layout is a pure function of its inputs. Identical parse results,
// render settings and options always produce identical geometry, which is
// what lets a live preview and a later export agree pixel for pixel. All
// coordinates are snapped to whole document units and the result is fitted
// with [diagram.Fit], so the Document invariants hold by construction.
//
// Node heights come from the same label line breaking the renderers use
// ([styles.Lines]) at the preferred font size; the renderers only ever shrink
// text from there.
package layout

import (
	"math"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/matzehuels/figura/pkg/diagram"
	"github.com/matzehuels/figura/pkg/fonts"
	"github.com/matzehuels/figura/pkg/parse"
	"github.com/matzehuels/figura/pkg/render/styles"
)

// =============================================================================
// Default Values
// =============================================================================

const (
	DefaultNodeWidth        = 120.0
	DefaultRootMinWidth     = 160.0
	DefaultRootMaxWidth     = 360.0
	DefaultMinNodeHeight    = 40.0
	DefaultMinGapX          = 16.0
	DefaultMaxGapX          = 160.0
	DefaultCrossingPasses   = 4
	DefaultFlowNodeWidth    = 140.0
	DefaultEntityWidth      = 220.0
	DefaultRowHeight        = 24.0
	DefaultCompactRowHeight = 18.0
)

// Options holds layout tuning that is not part of the user-facing
// RenderConfig.
type Options struct {
	NodeWidth        float64 `json:"nodeWidth,omitempty" toml:"node_width"`
	RootMinWidth     float64 `json:"rootMinWidth,omitempty" toml:"root_min_width"`
	RootMaxWidth     float64 `json:"rootMaxWidth,omitempty" toml:"root_max_width"`
	MinNodeHeight    float64 `json:"minNodeHeight,omitempty" toml:"min_node_height"`
	MinGapX          float64 `json:"minGapX,omitempty" toml:"min_gap_x"`
	MaxGapX          float64 `json:"maxGapX,omitempty" toml:"max_gap_x"`
	AvoidCrossing    bool    `json:"avoidCrossing" toml:"avoid_crossing"`
	CrossingPasses   int     `json:"crossingPasses,omitempty" toml:"crossing_passes"`
	FlowNodeWidth    float64 `json:"flowNodeWidth,omitempty" toml:"flow_node_width"`
	EntityWidth      float64 `json:"entityWidth,omitempty" toml:"entity_width"`
	EntityColumns    int     `json:"entityColumns,omitempty" toml:"entity_columns"`
	RowHeight        float64 `json:"rowHeight,omitempty" toml:"row_height"`
	CompactRowHeight float64 `json:"compactRowHeight,omitempty" toml:"compact_row_height"`
}

// DefaultOptions returns the default layout options, with crossing
// avoidance enabled.
func DefaultOptions() Options {
	return Options{
		NodeWidth:        DefaultNodeWidth,
		RootMinWidth:     DefaultRootMinWidth,
		RootMaxWidth:     DefaultRootMaxWidth,
		MinNodeHeight:    DefaultMinNodeHeight,
		MinGapX:          DefaultMinGapX,
		MaxGapX:          DefaultMaxGapX,
		AvoidCrossing:    true,
		CrossingPasses:   DefaultCrossingPasses,
		FlowNodeWidth:    DefaultFlowNodeWidth,
		EntityWidth:      DefaultEntityWidth,
		RowHeight:        DefaultRowHeight,
		CompactRowHeight: DefaultCompactRowHeight,
	}
}

// WithDefaults fills zero-valued numeric fields from DefaultOptions.
func (o Options) WithDefaults() Options {
	d := DefaultOptions()
	def := func(v *float64, dv float64) {
		if *v <= 0 {
			*v = dv
		}
	}
	def(&o.NodeWidth, d.NodeWidth)
	def(&o.RootMinWidth, d.RootMinWidth)
	def(&o.RootMaxWidth, d.RootMaxWidth)
	def(&o.MinNodeHeight, d.MinNodeHeight)
	def(&o.MinGapX, d.MinGapX)
	def(&o.MaxGapX, d.MaxGapX)
	def(&o.FlowNodeWidth, d.FlowNodeWidth)
	def(&o.EntityWidth, d.EntityWidth)
	def(&o.RowHeight, d.RowHeight)
	def(&o.CompactRowHeight, d.CompactRowHeight)
	if o.CrossingPasses <= 0 {
		o.CrossingPasses = d.CrossingPasses
	}
	return o
}

// Validate checks the options after defaults are applied.
func (o Options) Validate() error {
	o = o.WithDefaults()
	return validation.ValidateStruct(&o,
		validation.Field(&o.NodeWidth, validation.Min(2*diagram.NodePadding+1), validation.Max(1000.0)),
		validation.Field(&o.RootMaxWidth, validation.Min(o.RootMinWidth)),
		validation.Field(&o.MaxGapX, validation.Min(o.MinGapX)),
		validation.Field(&o.CrossingPasses, validation.Max(64)),
		validation.Field(&o.EntityColumns, validation.Min(0), validation.Max(64)),
	)
}

// GapX clamps the configured horizontal gap to [MinGapX, MaxGapX].
func (o Options) GapX(cfg diagram.RenderConfig) float64 {
	return math.Max(o.MinGapX, math.Min(o.MaxGapX, cfg.NodeGapX))
}

// =============================================================================
// Dispatch
// =============================================================================

// engine carries the inputs shared by every layout function.
type engine struct {
	cfg  diagram.RenderConfig
	opts Options
	m    fonts.Measurer
}

type layoutFunc func(e engine, res parse.Result) []diagram.Node

var layouts = map[diagram.Kind]layoutFunc{
	diagram.KindHierarchy: layoutTree,
	diagram.KindMind:      layoutTree,
	diagram.KindFlow:      layoutFlow,
	diagram.KindEntity:    layoutEntity,
}

// Build lays out a parse result and returns the Document. Dangling links are
// dropped. GeneratedAt is left zero for the caller to stamp. A nil measurer
// selects [fonts.Default].
func Build(res parse.Result, cfg diagram.RenderConfig, opts Options, m fonts.Measurer) diagram.Document {
	if m == nil {
		m = fonts.Default()
	}
	e := engine{cfg: cfg.WithDefaults(), opts: opts.WithDefaults(), m: m}

	fn, ok := layouts[res.Kind]
	if !ok {
		fn = layoutTree
	}
	nodes := fn(e, res)
	for i := range nodes {
		snap(&nodes[i])
	}

	edges := make([]diagram.Edge, 0, len(res.Links))
	for _, l := range res.Links {
		edges = append(edges, diagram.Edge{Source: l.Source, Target: l.Target, Label: l.Label})
	}
	return diagram.Build(res.Title, res.Kind, nodes, edges)
}

// snap rounds geometry to whole units. Width and height are rounded up so
// text that fit before snapping still fits.
func snap(n *diagram.Node) {
	n.X = math.Round(n.X)
	n.Y = math.Round(n.Y)
	n.Width = math.Ceil(n.Width - 1e-9)
	n.Height = math.Ceil(n.Height - 1e-9)
}

// node creates an unpositioned node for an item.
func node(it parse.Item) diagram.Node {
	kind := it.NodeKind
	if kind == "" {
		kind = diagram.NodeGeneric
	}
	return diagram.Node{
		ID:     it.ID,
		Label:  it.Label,
		Kind:   kind,
		Level:  it.Level,
		Fields: it.Fields(),
	}
}

// labelHeight returns the height needed by the label of n at the preferred
// font size when the node is width wide.
func (e engine) labelHeight(kind diagram.Kind, n diagram.Node, width float64) float64 {
	mode := styles.ModeFor(kind, n)
	inner := width - 2*diagram.NodePadding
	lines := styles.Lines(e.m, mode, n.Label, inner, e.cfg.FontSize, false)
	h := float64(max(len(lines), 1))*e.m.LineHeight(e.cfg.FontSize) + 2*diagram.NodePadding
	return math.Max(h, e.opts.MinNodeHeight)
}
