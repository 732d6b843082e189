package fonts

import (
	"strings"
	"unicode"
)

// Wrap breaks text into lines no wider than maxWidth at size. Latin text
// breaks at spaces; wide runes may break anywhere. A single word wider than
// maxWidth is split between runes. Wrap never returns an empty slice for
// non-blank text.
func Wrap(m Measurer, text string, maxWidth, size float64, bold bool) []string {
	var lines []string
	for _, para := range strings.Split(text, "\n") {
		lines = append(lines, wrapLine(m, strings.TrimSpace(para), maxWidth, size, bold)...)
	}
	return lines
}

func wrapLine(m Measurer, text string, maxWidth, size float64, bold bool) []string {
	if text == "" {
		return nil
	}
	fits := func(s string) bool { return m.Width(s, size, bold) <= maxWidth }

	var lines []string
	cur := ""
	for _, tok := range tokens(text) {
		space := tok[0] == ' '
		word := strings.TrimLeft(tok, " ")
		candidate := word
		if cur != "" {
			candidate = cur + tok
			if !space {
				candidate = cur + word
			}
		}
		if fits(candidate) {
			cur = candidate
			continue
		}
		if cur != "" {
			lines = append(lines, cur)
			cur = ""
		}
		if fits(word) {
			cur = word
			continue
		}
		// Split an overlong word between runes.
		for _, r := range word {
			next := cur + string(r)
			if cur != "" && !fits(next) {
				lines = append(lines, cur)
				next = string(r)
			}
			cur = next
		}
	}
	if cur != "" {
		lines = append(lines, cur)
	}
	return lines
}

// tokens splits text into breakable units. A unit preceded by whitespace
// keeps a single leading space; every wide rune is a unit of its own.
func tokens(text string) []string {
	var out []string
	var b strings.Builder
	pendingSpace := false
	emit := func() {
		if b.Len() == 0 {
			return
		}
		tok := b.String()
		if pendingSpace {
			tok = " " + tok
		}
		out = append(out, tok)
		b.Reset()
		pendingSpace = false
	}
	for _, r := range text {
		switch {
		case unicode.IsSpace(r):
			emit()
			if len(out) > 0 {
				pendingSpace = true
			}
		case IsWide(r):
			emit()
			b.WriteRune(r)
			emit()
		default:
			b.WriteRune(r)
		}
	}
	emit()
	return out
}

// Vertical returns one line per non-space rune, the layout used for wide
// labels below the root of a tree.
func Vertical(text string) []string {
	var lines []string
	for _, r := range text {
		if !unicode.IsSpace(r) {
			lines = append(lines, string(r))
		}
	}
	return lines
}
