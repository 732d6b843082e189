package parse

import (
	"strconv"
	"strings"

	"github.com/matzehuels/figura/pkg/diagram"
)

// bulletPrefixes are list markers stripped from outline labels.
var bulletPrefixes = []string{"- ", "* ", "+ ", "• ", "· "}

// outlineLine is one non-blank outline line with its indentation depth.
type outlineLine struct {
	depth int
	label string
}

// scanOutline splits src into labelled lines. Tabs expand to TabWidth
// spaces and an ideographic space counts as two; depth is the indentation
// width divided by IndentSize.
func scanOutline(src string, opts Options) []outlineLine {
	var out []outlineLine
	for _, raw := range strings.Split(src, "\n") {
		width, rest := indentWidth(raw, opts.TabWidth)
		label := cleanLabel(rest)
		if label == "" {
			continue
		}
		out = append(out, outlineLine{depth: width / opts.IndentSize, label: label})
	}
	return out
}

func indentWidth(line string, tabWidth int) (int, string) {
	width := 0
	for i, r := range line {
		switch r {
		case ' ':
			width++
		case '\t':
			width += tabWidth
		case '\u3000':
			width += 2
		default:
			return width, line[i:]
		}
	}
	return width, ""
}

func cleanLabel(s string) string {
	s = strings.TrimSpace(s)
	for _, p := range bulletPrefixes {
		if strings.HasPrefix(s, p) {
			return strings.TrimSpace(s[len(p):])
		}
	}
	if s == "-" || s == "*" || s == "+" {
		return ""
	}
	return s
}

type frame struct {
	depth int
	id    string
	level int
}

// buildTree assigns ids, parents and levels. The parent of a line is the
// nearest previous line with a smaller depth; levels never jump by more
// than one below the parent.
func buildTree(lines []outlineLine, stack []frame, next int) ([]Item, []Link) {
	items := make([]Item, 0, len(lines))
	links := make([]Link, 0, len(lines))
	for _, ln := range lines {
		for len(stack) > 0 && stack[len(stack)-1].depth >= ln.depth {
			stack = stack[:len(stack)-1]
		}
		next++
		it := Item{ID: itemID(next), Label: ln.label, NodeKind: diagram.NodeGeneric}
		if len(stack) > 0 {
			parent := stack[len(stack)-1]
			it.Parent = parent.id
			it.Level = parent.level + 1
			links = append(links, Link{Source: parent.id, Target: it.ID})
		}
		items = append(items, it)
		stack = append(stack, frame{depth: ln.depth, id: it.ID, level: it.Level})
	}
	return items, links
}

func itemID(n int) string { return "n" + strconv.Itoa(n) }

// parseHierarchy reads an indented outline. Lines at depth zero are roots.
func parseHierarchy(src string, opts Options) Result {
	lines := scanOutline(src, opts)
	items, links := buildTree(lines, nil, 0)
	res := Result{Items: items, Links: links}
	if len(items) > 0 {
		res.Title = items[0].Label
	}
	return res
}

// parseMind reads an outline whose first line is the center node regardless
// of its indentation. Every other line hangs below it, with depth measured
// relative to the shallowest of them.
func parseMind(src string, opts Options) Result {
	lines := scanOutline(src, opts)
	if len(lines) == 0 {
		return Result{}
	}

	root := Item{ID: itemID(1), Label: lines[0].label, NodeKind: diagram.NodeGeneric}
	rest := lines[1:]
	minDepth := 0
	for i, ln := range rest {
		if i == 0 || ln.depth < minDepth {
			minDepth = ln.depth
		}
	}
	for i := range rest {
		rest[i].depth -= minDepth
	}

	items, links := buildTree(rest, []frame{{depth: -1, id: root.ID}}, 1)
	return Result{
		Title: root.Label,
		Items: append([]Item{root}, items...),
		Links: links,
	}
}
