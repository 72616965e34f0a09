// Package planner decides which sources in a dependency graph need their
// tags rebuilt this run, and groups the dirty set into depth bands for the
// scheduler to walk deepest-first.
package planner

import (
	"os"
	"sort"

	"github.com/rusty-tags/rtags/pkg/depgraph"
)

// Options controls dirtiness beyond the structural rules.
type Options struct {
	// ForceRecreate marks every source dirty regardless of cache state.
	ForceRecreate bool

	// OmitDeps restricts the dirty set to root sources only — dependency
	// tags are assumed already present and are never (re)built.
	OmitDeps bool

	// Exists is used to check for on-disk cached/project tags files;
	// overridable in tests. Defaults to a real os.Stat check via New.
	Exists func(path string) bool
}

// Plan is the ordered, banded output of Build.
type Plan struct {
	// Dirty is the full set of sources that need rebuilding, seeds plus
	// every ancestor.
	Dirty map[depgraph.SourceID]bool

	// Bands groups Dirty source ids by depth, shallowest first; the
	// scheduler walks them in reverse (deepest first) since a dependency
	// must finish before its dependents can merge it in.
	Bands [][]depgraph.SourceID
}

// New returns Options with a real filesystem Exists check.
func New() Options {
	return Options{Exists: func(path string) bool {
		_, err := os.Stat(path)
		return err == nil
	}}
}

// isDirty applies the structural dirtiness rules from spec §4.4: a source
// is dirty if rebuilding is forced, if it's a root (roots are always
// rebuilt, they're the thing actively being worked on), or if either its
// cached or project tags file is missing.
func isDirty(s *depgraph.Source, opts Options) bool {
	if opts.ForceRecreate {
		return true
	}
	if s.IsRoot {
		return true
	}
	if s.CachedTagsFile != "" && !opts.Exists(s.CachedTagsFile) {
		return true
	}
	if s.TagsFile != "" && !opts.Exists(s.TagsFile) {
		return true
	}
	return false
}

// Build computes the dirty set and its depth-band grouping.
//
// Seeds are every source directly dirty by isDirty; the dirty set is then
// grown to include every ancestor of a seed (a dependency's tags changing
// forces every transitive dependent to re-merge), unless OmitDeps is set,
// in which case only root sources are ever scheduled and dependencies are
// assumed to already carry valid tags.
func Build(g *depgraph.Graph, opts Options) Plan {
	if opts.Exists == nil {
		opts.Exists = New().Exists
	}

	var seeds []depgraph.SourceID
	for id, s := range g.Sources {
		if opts.OmitDeps && !s.IsRoot {
			continue
		}
		if isDirty(s, opts) {
			seeds = append(seeds, id)
		}
	}

	dirty := g.Ancestors(seeds)
	if opts.OmitDeps {
		for id := range dirty {
			if !g.Sources[id].IsRoot {
				delete(dirty, id)
			}
		}
	}

	depths := g.MaxDepths()
	byDepth := make(map[int][]depgraph.SourceID)
	maxDepth := 0
	for id := range dirty {
		d := depths[id]
		byDepth[d] = append(byDepth[d], id)
		if d > maxDepth {
			maxDepth = d
		}
	}

	bands := make([][]depgraph.SourceID, maxDepth+1)
	for d := 0; d <= maxDepth; d++ {
		band := byDepth[d]
		sort.Slice(band, func(i, j int) bool { return band[i] < band[j] })
		bands[d] = band
	}

	return Plan{Dirty: dirty, Bands: bands}
}

// OrderedDeepestFirst returns Bands in deepest-first order, the order the
// scheduler actually walks: a dependency must be tagged and merged before
// any dependent can include it.
func (p Plan) OrderedDeepestFirst() [][]depgraph.SourceID {
	out := make([][]depgraph.SourceID, len(p.Bands))
	for i, band := range p.Bands {
		out[len(p.Bands)-1-i] = band
	}
	return out
}
