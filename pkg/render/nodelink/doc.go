// Package nodelink renders resolved module dependencies as node-link
// diagrams.
//
// # Usage
//
// Resolve a root module, convert the result to DOT, then render to SVG:
//
//	res, err := cat.DependentModules(ctx, root)
//	dot := nodelink.ToDOT(root, res, nodelink.Options{Detailed: true})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//
// The DOT source can also be saved and processed with external Graphviz
// tools.
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process SVG
// rendering; no Graphviz installation is needed.
package nodelink
