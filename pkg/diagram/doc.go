// Package diagram defines the positioned diagram document shared by every
// stage of figura.
//
// A [Document] is produced once by the layout engine and consumed unchanged
// by both renderers and the exporter, so the interactive preview and the
// exported file always agree on geometry. Documents are values: edits such
// as [Document.MoveNode] return a new Document and leave the receiver
// untouched.
//
// # Invariants
//
// A valid Document satisfies:
//   - node ids are unique and non-empty
//   - every edge references existing nodes (dangling edges are dropped by
//     [FilterEdges] before a Document is built)
//   - every node lies inside [0, Width] × [0, Height]
//   - Width and Height are exactly the tight bounding box of all nodes plus
//     [Margin] on every side (see [Fit])
//
// [Document.Validate] checks all of them.
//
// # Serialization
//
// Documents serialize to JSON for caching, the HTTP API and the CLI:
//
//	data, err := diagram.Marshal(doc)
//	doc, err := diagram.Unmarshal(data) // validates
//
// # Render configuration
//
// [RenderConfig] and [Viewport] are immutable values. Use the With* methods
// to derive modified copies.
package diagram
