package layout

import (
	"math"
	"slices"

	"github.com/matzehuels/figura/pkg/diagram"
	"github.com/matzehuels/figura/pkg/parse"
)

// tree holds the structure of a hierarchy or mind map by item index.
type tree struct {
	parent   []int   // -1 for roots
	children [][]int // in parse order
	levels   [][]int // item indexes per level, parse order
}

func buildTreeIndex(items []parse.Item) tree {
	n := len(items)
	t := tree{parent: make([]int, n), children: make([][]int, n)}
	index := make(map[string]int, n)
	depth := 0
	for i, it := range items {
		index[it.ID] = i
		depth = max(depth, it.Level)
	}
	t.levels = make([][]int, depth+1)
	for i, it := range items {
		t.parent[i] = -1
		if p, ok := index[it.Parent]; ok && it.Parent != "" {
			t.parent[i] = p
			t.children[p] = append(t.children[p], i)
		}
		t.levels[it.Level] = append(t.levels[it.Level], i)
	}
	return t
}

// adjacency returns parent and child links of every item, for crossing
// counts.
func (t tree) adjacency() [][]int {
	adj := make([][]int, len(t.parent))
	for c, p := range t.parent {
		if p >= 0 {
			adj[p] = append(adj[p], c)
			adj[c] = append(adj[c], p)
		}
	}
	return adj
}

// layoutTree places a hierarchy or mind map top-down. Roots are one line
// wide enough for their label; other nodes share the configured width and
// grow in height with their line count.
func layoutTree(e engine, res parse.Result) []diagram.Node {
	nodes := make([]diagram.Node, len(res.Items))
	for i, it := range res.Items {
		n := node(it)
		n.Width = e.opts.NodeWidth
		if n.Level == 0 {
			text := e.m.Width(n.Label, e.cfg.FontSize, false) + 2*diagram.NodePadding
			n.Width = math.Max(e.opts.RootMinWidth, math.Min(e.opts.RootMaxWidth, math.Ceil(text)))
		}
		n.Height = e.labelHeight(res.Kind, n, n.Width)
		nodes[i] = n
	}
	if len(nodes) == 0 {
		return nodes
	}

	t := buildTreeIndex(res.Items)
	gapX := e.opts.GapX(e.cfg)

	// Each level row starts below the tallest node of the row above.
	rowY := make([]float64, len(t.levels))
	y := 0.0
	for l, row := range t.levels {
		rowY[l] = y
		tallest := 0.0
		for _, i := range row {
			tallest = math.Max(tallest, nodes[i].Height)
		}
		y += tallest + e.cfg.NodeGapY
	}
	for i := range nodes {
		nodes[i].Y = rowY[nodes[i].Level]
	}

	if e.opts.AvoidCrossing {
		order := reduceCrossings(t, e.opts.CrossingPasses)
		placeSubtrees(nodes, t, order, gapX)
	} else {
		placeRows(nodes, t.levels, gapX)
	}
	return nodes
}

// placeRows spaces every level uniformly in parse order and centers each row
// on the widest one.
func placeRows(nodes []diagram.Node, levels [][]int, gapX float64) {
	widths := make([]float64, len(levels))
	widest := 0.0
	for l, row := range levels {
		for k, i := range row {
			if k > 0 {
				widths[l] += gapX
			}
			widths[l] += nodes[i].Width
		}
		widest = math.Max(widest, widths[l])
	}
	for l, row := range levels {
		x := (widest - widths[l]) / 2
		for _, i := range row {
			nodes[i].X = x
			x += nodes[i].Width + gapX
		}
	}
}

// reduceCrossings orders every level with barycenter sweeps. A downward
// sweep sorts each level by the mean position of its parents, an upward
// sweep by the mean position of its children. Nodes without neighbors on
// the reference level keep their current position as key, and ties go to
// parse order. A reordering is kept only if the total crossing count does
// not increase. Sweeps stop early once a pass changes nothing.
func reduceCrossings(t tree, passes int) [][]int {
	order := make([][]int, len(t.levels))
	for l, row := range t.levels {
		order[l] = slices.Clone(row)
	}
	adj := t.adjacency()
	current := crossings(order, adj)

	try := func(l, ref int) bool {
		refPos := make(map[int]float64, len(order[ref]))
		for p, i := range order[ref] {
			refPos[i] = float64(p)
		}
		type keyed struct {
			item int
			key  float64
		}
		keys := make([]keyed, len(order[l]))
		for p, i := range order[l] {
			sum, cnt := 0.0, 0
			for _, j := range adj[i] {
				if pos, ok := refPos[j]; ok {
					sum += pos
					cnt++
				}
			}
			k := float64(p)
			if cnt > 0 {
				k = sum / float64(cnt)
			}
			keys[p] = keyed{item: i, key: k}
		}
		slices.SortStableFunc(keys, func(a, b keyed) int {
			switch {
			case a.key < b.key:
				return -1
			case a.key > b.key:
				return 1
			}
			return a.item - b.item // item index is parse order
		})

		candidate := make([]int, len(keys))
		for p, k := range keys {
			candidate[p] = k.item
		}
		if slices.Equal(candidate, order[l]) {
			return false
		}
		prev := order[l]
		order[l] = candidate
		if c := crossings(order, adj); c <= current {
			current = c
			return true
		}
		order[l] = prev
		return false
	}

	for pass := 0; pass < passes; pass++ {
		changed := false
		for l := 1; l < len(order); l++ {
			changed = try(l, l-1) || changed
		}
		for l := len(order) - 2; l >= 0; l-- {
			changed = try(l, l+1) || changed
		}
		if !changed {
			break
		}
	}
	return order
}

// placeSubtrees packs every subtree into a slot as wide as the wider of the
// node and its children's slots, children left to right in level order, the
// node centered over its slot. Roots are placed side by side.
func placeSubtrees(nodes []diagram.Node, t tree, order [][]int, gapX float64) {
	pos := make([]int, len(nodes))
	for _, row := range order {
		for p, i := range row {
			pos[i] = p
		}
	}
	kids := make([][]int, len(nodes))
	for i, c := range t.children {
		kids[i] = slices.Clone(c)
		slices.SortFunc(kids[i], func(a, b int) int { return pos[a] - pos[b] })
	}

	slot := make([]float64, len(nodes))
	for l := len(order) - 1; l >= 0; l-- {
		for _, i := range order[l] {
			span := 0.0
			for k, c := range kids[i] {
				if k > 0 {
					span += gapX
				}
				span += slot[c]
			}
			slot[i] = math.Max(nodes[i].Width, span)
		}
	}

	var place func(i int, left float64)
	place = func(i int, left float64) {
		nodes[i].X = left + (slot[i]-nodes[i].Width)/2
		span := 0.0
		for k, c := range kids[i] {
			if k > 0 {
				span += gapX
			}
			span += slot[c]
		}
		x := left + (slot[i]-span)/2
		for _, c := range kids[i] {
			place(c, x)
			x += slot[c] + gapX
		}
	}

	left := 0.0
	for _, row := range order {
		for _, i := range row {
			if t.parent[i] >= 0 {
				continue
			}
			place(i, left)
			left += slot[i] + gapX
		}
	}
}
