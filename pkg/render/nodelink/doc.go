// Package nodelink renders composition graphs as node-link diagrams.
//
// # Overview
//
// Products, plugins, module sets and content modules become Graphviz nodes;
// bundles, includes and content declarations become edges. Module-to-module
// dependencies are drawn only on request since they dominate large graphs.
//
// # Usage
//
// Convert a graph to DOT, then render to SVG:
//
//	dot := nodelink.ToDOT(g, nodelink.Options{Product: "IDE"})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//
// # Options
//
//   - Product: restrict the diagram to what one product ships
//   - Dependencies: add module dependency edges (test edges dotted)
//   - Highlight: module names drawn in the error color, typically the
//     subjects of a check report
//
// # Styling
//
// Node shapes encode kinds: products are double octagons, plugins are
// components (test plugins dashed), module sets are folders and modules are
// rounded boxes. Content edges carry the loading mode as their label.
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process SVG
// rendering; no Graphviz installation is required.
package nodelink
