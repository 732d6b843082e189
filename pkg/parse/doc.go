// Package parse turns free-form text into a flat list of parsed items and
// links for one of the supported parser kinds.
//
// Four grammars are available, selected through a closed dispatch table
// keyed by [diagram.Kind]:
//
//   - hierarchy: an indented outline; indentation depth is the tree level
//   - mind: the same outline where the first line is always the center
//   - flow: arrow chains such as "A -> B -> C", several chains per line
//     separated by ';'
//   - entity: a SQL subset (CREATE TABLE with columns and foreign keys,
//     ALTER TABLE ... ADD FOREIGN KEY)
//
// Parsers are pure functions. They never fail on malformed text: lines or
// statements they do not understand are skipped, and the worst outcome is
// an empty [Result]. Only an unknown parser kind is an error.
//
// # Live rendering
//
// When [Options.Live] is set and the input is empty after normalization,
// the built-in sample for the kind is parsed instead, so an interactive
// preview never shows a blank canvas.
package parse
