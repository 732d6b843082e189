package layout

import (
	"math"

	"github.com/matzehuels/figura/pkg/diagram"
	"github.com/matzehuels/figura/pkg/parse"
)

// layoutFlow places flow steps in columns by level, left to right. Steps of
// a column stack top-down in first-appearance order, and every column is
// centered vertically on the tallest one.
func layoutFlow(e engine, res parse.Result) []diagram.Node {
	nodes := make([]diagram.Node, len(res.Items))
	var columns [][]int
	for i, it := range res.Items {
		n := node(it)
		n.Width = e.opts.FlowNodeWidth
		n.Height = e.labelHeight(res.Kind, n, n.Width)
		nodes[i] = n
		for len(columns) <= n.Level {
			columns = append(columns, nil)
		}
		columns[n.Level] = append(columns[n.Level], i)
	}

	gapX := e.opts.GapX(e.cfg)
	heights := make([]float64, len(columns))
	tallest := 0.0
	for c, col := range columns {
		for k, i := range col {
			if k > 0 {
				heights[c] += e.cfg.NodeGapY
			}
			heights[c] += nodes[i].Height
		}
		tallest = math.Max(tallest, heights[c])
	}

	for c, col := range columns {
		x := float64(c) * (e.opts.FlowNodeWidth + gapX)
		y := (tallest - heights[c]) / 2
		for _, i := range col {
			nodes[i].X = x
			nodes[i].Y = y
			y += nodes[i].Height + e.cfg.NodeGapY
		}
	}
	return nodes
}
