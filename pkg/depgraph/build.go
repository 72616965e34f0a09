package depgraph

import "github.com/rusty-tags/rtags/pkg/cargometa"

// Build turns ingested cargo metadata into a Graph: one Source per ingested
// package, edges from resolve.nodes, and Roots set to the workspace
// members. Packages cargometa skipped (no acceptable target) are simply
// absent from the graph and from any dependency list that referenced them.
func Build(md *cargometa.Metadata) (*Graph, error) {
	g := New(len(md.Packages))

	ids := make(map[string]SourceID, len(md.Packages))
	for id, pkg := range md.Packages {
		name, version, err := cargometa.SplitSourceID(id)
		if err != nil {
			return nil, err
		}
		sid := g.AddSource(Source{
			Name:    name,
			Version: version,
			Dir:     pkg.SrcDir,
		})
		ids[id] = sid
	}

	for id, deps := range md.DependencyIDs {
		from, ok := ids[id]
		if !ok {
			continue
		}
		for _, depID := range deps {
			to, ok := ids[depID]
			if !ok {
				continue // dependency had no acceptable target; ignore the edge
			}
			g.AddEdge(from, to)
		}
	}

	for _, memberID := range md.WorkspaceMembers {
		if sid, ok := ids[memberID]; ok {
			g.Sources[sid].IsRoot = true
			g.Roots = append(g.Roots, sid)
		}
	}

	return g, nil
}
