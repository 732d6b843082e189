package parse

import (
	"regexp"
	"strings"

	"github.com/matzehuels/figura/pkg/diagram"
)

// arrowRe matches the arrows accepted between flow steps. The labelled form
// "-[yes]->" captures its label.
var arrowRe = regexp.MustCompile(`\s*(?:-\[([^\]]*)\]->|->|=>|→|⟶)\s*`)

// parseFlow reads arrow chains. Each distinct label becomes one node at its
// first occurrence; its level is one past the node that precedes it in that
// chain, or zero at a chain start.
func parseFlow(src string, _ Options) Result {
	var res Result
	ids := map[string]string{}
	levels := map[string]int{}
	type key struct{ src, dst string }
	seen := map[key]bool{}

	node := func(label string, prev string) string {
		if id, ok := ids[label]; ok {
			return id
		}
		id := itemID(len(res.Items) + 1)
		level := 0
		if prev != "" {
			level = levels[prev] + 1
		}
		ids[label] = id
		levels[id] = level
		res.Items = append(res.Items, Item{ID: id, Label: label, Level: level, NodeKind: diagram.NodeGeneric})
		return id
	}

	for _, line := range strings.Split(src, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "//") {
			continue
		}
		for _, chain := range strings.Split(line, ";") {
			steps, labels := splitChain(chain)
			prev, pending := "", ""
			for i, step := range steps {
				if i > 0 && labels[i-1] != "" {
					pending = labels[i-1]
				}
				if step == "" {
					continue
				}
				id := node(step, prev)
				if prev != "" && prev != id && !seen[key{prev, id}] {
					seen[key{prev, id}] = true
					res.Links = append(res.Links, Link{Source: prev, Target: id, Label: pending})
				}
				prev, pending = id, ""
			}
		}
	}
	return res
}

// splitChain returns the trimmed steps of a chain and the label of the arrow
// following each step (labels[i] sits between steps[i] and steps[i+1]).
func splitChain(chain string) ([]string, []string) {
	locs := arrowRe.FindAllStringSubmatchIndex(chain, -1)
	steps := make([]string, 0, len(locs)+1)
	labels := make([]string, 0, len(locs))
	start := 0
	for _, loc := range locs {
		steps = append(steps, strings.TrimSpace(chain[start:loc[0]]))
		label := ""
		if loc[2] >= 0 {
			label = strings.TrimSpace(chain[loc[2]:loc[3]])
		}
		labels = append(labels, label)
		start = loc[1]
	}
	steps = append(steps, strings.TrimSpace(chain[start:]))
	return steps, labels
}
