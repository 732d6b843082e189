package parse

import (
	"regexp"
	"strings"

	"github.com/matzehuels/figura/pkg/diagram"
)

var (
	createRe     = regexp.MustCompile(`(?is)^CREATE\s+(?:OR\s+REPLACE\s+)?(?:TEMPORARY\s+|TEMP\s+)?TABLE\s+(?:IF\s+NOT\s+EXISTS\s+)?`)
	alterRe      = regexp.MustCompile(`(?is)^ALTER\s+TABLE\s+(?:ONLY\s+)?(?:IF\s+EXISTS\s+)?([^\s]+)\s+(.*)$`)
	foreignRe    = regexp.MustCompile(`(?is)FOREIGN\s+KEY\s*(?:[^\s(]+\s*)?\(([^)]*)\)\s*REFERENCES\s+([^\s(]+)\s*(?:\(([^)]*)\))?`)
	referenceRe  = regexp.MustCompile(`(?is)\bREFERENCES\s+([^\s(]+)\s*(?:\(([^)]*)\))?`)
	primaryRe    = regexp.MustCompile(`(?is)^PRIMARY\s+KEY\s*\(([^)]*)\)`)
	commentRe    = regexp.MustCompile(`(?is)\bCOMMENT\s*=?\s*'((?:[^']|'')*)'`)
	inlinePKRe   = regexp.MustCompile(`(?is)\bPRIMARY\s+KEY\b`)
	constraintRe = regexp.MustCompile(`(?is)^CONSTRAINT\s+[^\s]+\s+`)
	typeRe       = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)\s*(?:\(([^)]*)\))?`)
)

// skipPrefixes start table-level clauses that carry no fields or links.
var skipPrefixes = []string{"UNIQUE", "KEY", "INDEX", "CHECK", "FULLTEXT", "SPATIAL", "EXCLUDE", "PERIOD"}

// parseEntity reads CREATE TABLE and ALTER TABLE statements. Tables become
// entity items; foreign keys become links from the referencing table to the
// referenced one. Unknown statements are ignored.
func parseEntity(src string, _ Options) Result {
	var res Result
	index := map[string]int{}

	for _, stmt := range splitStatements(stripComments(src)) {
		stmt = strings.TrimSpace(stmt)
		if loc := createRe.FindStringIndex(stmt); loc != nil {
			it, links, ok := parseCreate(stmt[loc[1]:])
			if !ok {
				continue
			}
			if _, dup := index[it.ID]; dup {
				continue
			}
			index[it.ID] = len(res.Items)
			res.Items = append(res.Items, it)
			res.Links = append(res.Links, links...)
			continue
		}
		if m := alterRe.FindStringSubmatch(stmt); m != nil {
			table := tableID(m[1])
			for _, fk := range foreignRe.FindAllStringSubmatch(m[2], -1) {
				res.Links = append(res.Links, Link{Source: table, Target: tableID(fk[2]), Label: identList(fk[1])})
			}
		}
	}
	return res
}

// parseCreate parses the remainder of a CREATE TABLE statement after the
// keywords: "name ( defs ) options".
func parseCreate(rest string) (Item, []Link, bool) {
	open := strings.IndexByte(rest, '(')
	if open <= 0 {
		return Item{}, nil, false
	}
	name := strings.TrimSpace(rest[:open])
	end := matchParen(rest, open)
	if name == "" || end < 0 {
		return Item{}, nil, false
	}

	id := tableID(name)
	it := Item{ID: id, Label: unquote(lastPart(name)), NodeKind: diagram.NodeEntity}
	if m := commentRe.FindStringSubmatch(rest[end+1:]); m != nil && m[1] != "" {
		it.Label += " (" + sqlString(m[1]) + ")"
	}

	var links []Link
	var pk []string
	for _, def := range splitTopLevel(rest[open+1 : end]) {
		def = strings.TrimSpace(def)
		if def == "" {
			continue
		}
		def = constraintRe.ReplaceAllString(def, "")
		upper := strings.ToUpper(def)

		if m := primaryRe.FindStringSubmatch(def); m != nil {
			pk = append(pk, strings.Split(identList(m[1]), ",")...)
			continue
		}
		if strings.HasPrefix(upper, "FOREIGN") {
			if m := foreignRe.FindStringSubmatch(def); m != nil {
				links = append(links, Link{Source: id, Target: tableID(m[2]), Label: identList(m[1])})
			}
			continue
		}
		if hasAnyPrefix(upper, skipPrefixes) {
			continue
		}

		col, ref, ok := parseColumn(def)
		if !ok {
			continue
		}
		it.Columns = append(it.Columns, col)
		if ref != "" {
			links = append(links, Link{Source: id, Target: ref, Label: col.Name})
		}
	}

	for _, name := range pk {
		for i := range it.Columns {
			if strings.EqualFold(it.Columns[i].Name, strings.TrimSpace(name)) {
				it.Columns[i].PrimaryKey = true
			}
		}
	}
	return it, links, true
}

// parseColumn reads "name type[(len)] [constraints]". It returns the id of a
// table referenced inline with REFERENCES, if any.
func parseColumn(def string) (Column, string, bool) {
	name, rest := splitIdent(def)
	if name == "" {
		return Column{}, "", false
	}
	col := Column{Name: name}
	if m := typeRe.FindStringSubmatch(strings.TrimSpace(rest)); m != nil {
		col.Type = m[1]
		col.Length = strings.ReplaceAll(strings.TrimSpace(m[2]), " ", "")
	}
	if inlinePKRe.MatchString(rest) {
		col.PrimaryKey = true
	}
	if m := commentRe.FindStringSubmatch(rest); m != nil {
		col.Comment = sqlString(m[1])
	}
	ref := ""
	if m := referenceRe.FindStringSubmatch(rest); m != nil {
		ref = tableID(m[1])
	}
	return col, ref, true
}

// =============================================================================
// Lexical helpers
// =============================================================================

// stripComments removes "--", "#" and "/* */" comments outside quotes.
func stripComments(src string) string {
	var b strings.Builder
	var quote byte
	for i := 0; i < len(src); i++ {
		c := src[i]
		if quote != 0 {
			b.WriteByte(c)
			if c == quote {
				quote = 0
			}
			continue
		}
		switch {
		case c == '\'' || c == '"' || c == '`':
			quote = c
			b.WriteByte(c)
		case c == '-' && i+1 < len(src) && src[i+1] == '-', c == '#':
			for i < len(src) && src[i] != '\n' {
				i++
			}
			b.WriteByte('\n')
		case c == '/' && i+1 < len(src) && src[i+1] == '*':
			end := strings.Index(src[i+2:], "*/")
			if end < 0 {
				return b.String()
			}
			i += end + 3
			b.WriteByte(' ')
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// splitStatements splits on ';' outside quotes.
func splitStatements(src string) []string {
	return splitOutside(src, ';', false)
}

// splitTopLevel splits on ',' outside quotes and parentheses.
func splitTopLevel(src string) []string {
	return splitOutside(src, ',', true)
}

func splitOutside(src string, sep byte, parens bool) []string {
	var parts []string
	var quote byte
	depth, start := 0, 0
	for i := 0; i < len(src); i++ {
		c := src[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"' || c == '`':
			quote = c
		case parens && c == '(':
			depth++
		case parens && c == ')':
			if depth > 0 {
				depth--
			}
		case c == sep && depth == 0:
			parts = append(parts, src[start:i])
			start = i + 1
		}
	}
	return append(parts, src[start:])
}

// matchParen returns the index of the parenthesis closing the one at open,
// or -1 if it is unbalanced.
func matchParen(s string, open int) int {
	var quote byte
	depth := 0
	for i := open; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"' || c == '`':
			quote = c
		case c == '(':
			depth++
		case c == ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// splitIdent reads a possibly quoted identifier at the start of s.
func splitIdent(s string) (string, string) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ""
	}
	closing := map[byte]byte{'`': '`', '"': '"', '[': ']'}
	if end, ok := closing[s[0]]; ok {
		if j := strings.IndexByte(s[1:], end); j >= 0 {
			return s[1 : j+1], s[j+2:]
		}
		return "", ""
	}
	if j := strings.IndexAny(s, " \t\n("); j >= 0 {
		return s[:j], s[j:]
	}
	return s, ""
}

// tableID derives the item id of a table reference: the unquoted, lowercased
// last name part, so "`shop`.`Orders`" and orders resolve to the same table.
func tableID(ref string) string {
	return strings.ToLower(unquote(lastPart(strings.TrimSpace(ref))))
}

func lastPart(ref string) string {
	if i := strings.LastIndexByte(ref, '.'); i >= 0 {
		return ref[i+1:]
	}
	return ref
}

func unquote(s string) string {
	return strings.Trim(s, "`\"[]")
}

func identList(s string) string {
	parts := strings.Split(s, ",")
	for i, p := range parts {
		parts[i] = unquote(strings.TrimSpace(p))
	}
	return strings.Join(parts, ",")
}

func sqlString(s string) string {
	return strings.ReplaceAll(s, "''", "'")
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p+" ") || strings.HasPrefix(s, p+"(") || s == p {
			return true
		}
	}
	return false
}
