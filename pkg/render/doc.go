// Package render groups the two renderers of a diagram.Document.
//
// # Overview
//
// Both renderers draw the same scene, composed once by [styles.Compose]:
// node boxes, wrapped labels, entity field rows and routed edges with
// arrowheads, colored by the selected tone.
//
//   - [svg] writes vector markup for previews and SVG/PDF export
//   - [raster] draws into an RGBA buffer at any device pixel ratio
//
// A viewport (pan and zoom) applies to both, so a raster export reproduces
// exactly what the live vector preview shows.
//
//	style := styles.New(cfg, styles.ToneOcean)
//	markup, _ := svg.Bytes(doc, svg.Options{Style: style})
//	img, err := raster.Render(doc, raster.Options{Style: style, Frame: raster.Frame{PixelRatio: 2}})
package render
