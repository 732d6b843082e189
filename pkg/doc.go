// Package pkg provides the core libraries of figura.
//
// # Overview
//
// Figura turns a few lines of text into a positioned diagram. The pkg
// directory is organized around that flow:
//
//  1. [parse] - Text to nodes and edges (outlines, arrow chains, SQL, mind maps)
//  2. [layout] - Deterministic placement into a [diagram.Document]
//  3. [render] - Vector and raster drawing of a Document
//  4. [export] - Scaled, captioned, downloadable files
//  5. [generate] - Orchestration with caching, remote generation and cancellation
//  6. [drafts] - Draft storage with a bounded local fallback
//
// # Architecture
//
//	Source text (+ tool preset from [registry])
//	         ↓
//	    [parse] package (nodes, edges, title)
//	         ↓
//	    [layout] package (geometry)
//	         ↓
//	    [diagram.Document]
//	       ↙       ↘
//	 [render/svg]  [render/raster] → [export] (PNG/JPEG/SVG/PDF)
//
// # Quick Start
//
//	runner := generate.NewRunner(cache.NewNullCache(), nil, nil, nil)
//	resp, err := runner.Generate(ctx, generate.Request{
//	    Kind:  diagram.KindFlow,
//	    Input: "Idea -> Draft -> Review",
//	})
//	if err != nil { ... }
//	markup, err := svg.Bytes(resp.Document, svg.Options{Style: styles.Default()})
//
// # Infrastructure
//
// [cache] stores documents and export artifacts on disk or in Redis,
// [config] loads figura.toml, [fallback] runs remote-then-local operations,
// [httputil] posts JSON with retries and [observability] exposes hooks for
// metrics.
package pkg
