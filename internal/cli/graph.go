package cli

import (
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rusty-tags/rtags/pkg/atomicfile"
	"github.com/rusty-tags/rtags/pkg/cargometa"
	"github.com/rusty-tags/rtags/pkg/depgraph"
	"github.com/rusty-tags/rtags/pkg/graphviz"
)

// graphCommand creates the "graph" debug command, which exports the
// dependency graph's structure without generating any tags.
func (c *CLI) graphCommand() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "graph [start-dir]",
		Short: "Export the dependency graph for debugging",
		Long: `Export the Cargo project's dependency graph to Graphviz DOT (or PNG, if
--out ends in .png), without building any tags. Useful for inspecting what
rtags would tag and in what order before running vi or emacs.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			startDir := "."
			if len(args) == 1 {
				startDir = args[0]
			}
			if out == "" {
				out = "rtags-graph.dot"
			}

			metadata, err := cargoMetadata(cmd.Context(), startDir)
			if err != nil {
				return err
			}
			md, err := cargometa.Parse(metadata)
			if err != nil {
				return err
			}
			g, err := depgraph.Build(md)
			if err != nil {
				return err
			}
			if err := writeGraphExport(g, nil, out); err != nil {
				return err
			}
			loggerFromContext(cmd.Context()).Infof("wrote dependency graph to %s", out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "output path (default: rtags-graph.dot); .png renders a raster image")

	return cmd
}

// writeGraphExport renders g to DOT and, if dest ends in ".png", rasterizes
// it, writing the result atomically to dest.
func writeGraphExport(g *depgraph.Graph, dirty map[depgraph.SourceID]bool, dest string) error {
	dot := graphviz.ToDOT(g, dirty)

	if strings.EqualFold(filepath.Ext(dest), ".png") {
		png, err := graphviz.RenderPNG(dot)
		if err != nil {
			return err
		}
		return atomicfile.Write(dest, png, 0o644)
	}
	return atomicfile.Write(dest, []byte(dot), 0o644)
}
