package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/modcat/pkg/module"
	"github.com/matzehuels/modcat/pkg/resolver"
)

// Options configures node-link diagram rendering.
type Options struct {
	// Detailed adds versions to node labels and ranges to edges.
	// When false, only module ids are shown.
	Detailed bool
}

// ToDOT converts a resolution to Graphviz DOT format. The root and every
// selected module become nodes; each declared dependency becomes an edge.
// The resulting DOT string can be rendered using [RenderSVG].
//
// Installed modules are filled light blue. Unresolved dependencies are
// drawn with dashed red outlines.
func ToDOT(root *module.Record, res *resolver.Result, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=24, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	nodes := append([]*module.Record{root}, res.Ordered()...)
	unresolved := make(map[string]bool, len(res.Unresolved))
	for _, u := range res.Unresolved {
		unresolved[u.DependencyID] = true
	}

	for _, n := range nodes {
		attrs := fmtAttrs(n, fmtLabel(n, opts.Detailed), n.ID == root.ID)
		fmt.Fprintf(&buf, "  %q [%s];\n", n.ID, strings.Join(attrs, ", "))
	}
	for _, u := range res.Unresolved {
		fmt.Fprintf(&buf, "  %q [label=%q, style=\"rounded,dashed\", color=red, fontcolor=red];\n",
			u.DependencyID, u.DependencyID)
	}

	buf.WriteString("\n")
	for _, n := range nodes {
		for _, d := range n.Dependencies {
			_, selected := res.Modules[d.ID]
			if !selected && !unresolved[d.ID] && d.ID != root.ID {
				continue
			}
			if opts.Detailed && d.Range != "" {
				fmt.Fprintf(&buf, "  %q -> %q [label=%q];\n", n.ID, d.ID, d.Range)
			} else {
				fmt.Fprintf(&buf, "  %q -> %q;\n", n.ID, d.ID)
			}
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func fmtLabel(r *module.Record, detailed bool) string {
	if !detailed {
		return r.ID
	}
	parts := []string{r.Version.String()}
	if r.Title != "" {
		parts = append(parts, r.Title)
	}
	return r.ID + "\n" + strings.Join(parts, "\n")
}

func fmtAttrs(r *module.Record, label string, isRoot bool) []string {
	attrs := []string{fmt.Sprintf("label=%q", label)}
	switch {
	case isRoot:
		attrs = append(attrs, "penwidth=2")
	case r.Installed:
		attrs = append(attrs, "fillcolor=lightblue")
	}
	if r.HasErrors() {
		attrs = append(attrs, "color=orange")
	}
	return attrs
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox rewrites the root element so the drawing scales from a
// zero origin.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	newSvg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(newSvg))
}
