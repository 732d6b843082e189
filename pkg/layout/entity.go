package layout

import (
	"math"

	"github.com/matzehuels/figura/pkg/diagram"
	"github.com/matzehuels/figura/pkg/parse"
)

// layoutEntity places entity boxes on a grid in parse order. A box is
// EntityWidth wide and as tall as its title band plus one row per field.
// Grid rows are as tall as their tallest box. Foreign-key edges attach to
// the boxes, not to individual fields.
func layoutEntity(e engine, res parse.Result) []diagram.Node {
	rowH := e.opts.RowHeight
	if e.cfg.CompactRows {
		rowH = e.opts.CompactRowHeight
	}

	nodes := make([]diagram.Node, len(res.Items))
	for i, it := range res.Items {
		n := node(it)
		n.Level = 0
		n.Width = e.opts.EntityWidth
		n.Height = diagram.EntityHeaderHeight + float64(len(n.Fields))*rowH
		nodes[i] = n
	}
	if len(nodes) == 0 {
		return nodes
	}

	cols := e.opts.EntityColumns
	if cols <= 0 {
		cols = int(math.Ceil(math.Sqrt(float64(len(nodes)))))
	}
	gapX := e.opts.GapX(e.cfg)

	y := 0.0
	for start := 0; start < len(nodes); start += cols {
		end := min(start+cols, len(nodes))
		tallest := 0.0
		for i := start; i < end; i++ {
			nodes[i].X = float64(i-start) * (e.opts.EntityWidth + gapX)
			nodes[i].Y = y
			tallest = math.Max(tallest, nodes[i].Height)
		}
		y += tallest + e.cfg.NodeGapY
	}
	return nodes
}
