package layout

import (
	"slices"

	"github.com/matzehuels/figura/pkg/diagram"
)

// CountCrossings returns the number of edge crossings between consecutive
// levels, given the left-to-right order of node ids on every level. Only
// edges joining adjacent levels are counted, in either direction.
func CountCrossings(levels [][]string, edges []diagram.Edge) int {
	idx := map[string]int{}
	order := make([][]int, len(levels))
	next := 0
	for l, ids := range levels {
		for _, id := range ids {
			if _, ok := idx[id]; !ok {
				idx[id] = next
				next++
			}
			order[l] = append(order[l], idx[id])
		}
	}

	down := make([][]int, next)
	for _, e := range edges {
		s, ok1 := idx[e.Source]
		t, ok2 := idx[e.Target]
		if ok1 && ok2 {
			down[s] = append(down[s], t)
			down[t] = append(down[t], s)
		}
	}
	return crossings(order, down)
}

// crossings sums layerCrossings over all pairs of adjacent levels.
func crossings(order [][]int, adj [][]int) int {
	total := 0
	for l := 0; l+1 < len(order); l++ {
		total += layerCrossings(order[l], order[l+1], adj)
	}
	return total
}

// layerCrossings counts crossings between two adjacent levels with a Fenwick
// tree. Two edges (u1,v1) and (u2,v2) cross iff pos(u1) < pos(u2) and
// pos(v1) > pos(v2), so sorting edges by upper position and counting
// inversions of lower positions gives the crossing count in O(E log V).
func layerCrossings(upper, lower []int, adj [][]int) int {
	if len(upper) == 0 || len(lower) == 0 {
		return 0
	}
	lowerPos := make(map[int]int, len(lower))
	for i, v := range lower {
		lowerPos[v] = i
	}

	type edge struct{ upper, lower int }
	var edges []edge
	for i, u := range upper {
		for _, v := range adj[u] {
			if pos, ok := lowerPos[v]; ok {
				edges = append(edges, edge{i, pos})
			}
		}
	}
	if len(edges) < 2 {
		return 0
	}
	slices.SortFunc(edges, func(a, b edge) int {
		if a.upper != b.upper {
			return a.upper - b.upper
		}
		return a.lower - b.lower
	})

	fenwick := make([]int, len(lower)+1)
	count, seen := 0, 0
	for _, e := range edges {
		lessOrEqual := 0
		for q := e.lower + 1; q > 0; q -= q & (-q) {
			lessOrEqual += fenwick[q]
		}
		count += seen - lessOrEqual

		seen++
		for i := e.lower + 1; i < len(fenwick); i += i & (-i) {
			fenwick[i]++
		}
	}
	return count
}
