// Package graphviz exports a dependency graph's structure, not its tag
// content, to DOT and PNG for debugging. It never reads or writes tag
// files, so the "graph" command stays distinct from the Non-goal of
// serving tags over a socket.
package graphviz

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/rusty-tags/rtags/pkg/depgraph"
	"github.com/rusty-tags/rtags/pkg/rterrors"
)

// ToDOT renders g as a Graphviz DOT digraph. Root sources are drawn filled;
// dependencies are outlined only. dirty, if non-nil, additionally marks
// dirty sources with a dashed border.
func ToDOT(g *depgraph.Graph, dirty map[depgraph.SourceID]bool) string {
	var buf bytes.Buffer
	buf.WriteString("digraph rtags {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=12];\n\n")

	for id, s := range g.Sources {
		label := fmt.Sprintf("%s %s", s.Name, s.Version)
		attrs := []string{fmt.Sprintf("label=%q", label)}
		if s.IsRoot {
			attrs = append(attrs, "fillcolor=lightblue")
		}
		if dirty != nil && dirty[id] {
			attrs = append(attrs, "style=\"rounded,filled,dashed\"")
		}
		fmt.Fprintf(&buf, "  %q [%s];\n", nodeName(id, s), strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for from, deps := range g.Deps {
		for _, to := range deps {
			fmt.Fprintf(&buf, "  %q -> %q;\n", nodeName(from, g.Sources[from]), nodeName(to, g.Sources[to]))
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func nodeName(id depgraph.SourceID, s *depgraph.Source) string {
	if s == nil {
		return fmt.Sprintf("id-%d", id)
	}
	return fmt.Sprintf("%s-%s", s.Name, s.Version)
}

// RenderPNG rasterizes a DOT string to PNG bytes.
func RenderPNG(dot string) ([]byte, error) {
	ctx := context.Background()
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, rterrors.Wrap(rterrors.IoFailed, err, "init graphviz")
	}
	defer gv.Close()

	parsed, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, rterrors.Wrap(rterrors.IoFailed, err, "parse DOT")
	}
	defer parsed.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, parsed, graphviz.PNG, &buf); err != nil {
		return nil, rterrors.Wrap(rterrors.IoFailed, err, "render PNG")
	}
	return buf.Bytes(), nil
}
