// Package render holds output renderers for resolved dependency sets.
//
// The [nodelink] subpackage draws a root module and its selected
// dependencies as a directed graph using Graphviz.
//
// [nodelink]: github.com/matzehuels/modcat/pkg/render/nodelink
package render
