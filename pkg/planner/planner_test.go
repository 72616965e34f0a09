package planner

import (
	"testing"

	"github.com/rusty-tags/rtags/pkg/depgraph"
)

func buildGraph() *depgraph.Graph {
	g := depgraph.New(3)
	root := g.AddSource(depgraph.Source{Name: "root", IsRoot: true})
	dep := g.AddSource(depgraph.Source{Name: "dep", CachedTagsFile: "/cache/dep.vi", TagsFile: "/proj/dep/tags"})
	transitive := g.AddSource(depgraph.Source{Name: "transitive", CachedTagsFile: "/cache/transitive.vi", TagsFile: "/proj/transitive/tags"})
	g.Roots = []depgraph.SourceID{root}
	g.AddEdge(root, dep)
	g.AddEdge(dep, transitive)
	return g
}

func TestBuildMarksRootAlwaysDirty(t *testing.T) {
	g := buildGraph()
	opts := Options{Exists: func(string) bool { return true }} // everything cached already
	plan := Build(g, opts)
	if !plan.Dirty[g.Roots[0]] {
		t.Error("expected root to be dirty even with all tags files present")
	}
}

func TestBuildPropagatesDirtinessToAncestors(t *testing.T) {
	g := buildGraph()
	var transitive depgraph.SourceID
	for id, s := range g.Sources {
		if s.Name == "transitive" {
			transitive = id
		}
	}
	opts := Options{Exists: func(path string) bool { return path != "/cache/transitive.vi" }}
	plan := Build(g, opts)
	if !plan.Dirty[transitive] {
		t.Error("expected transitive dep with missing cached tags to be dirty")
	}
	for id, s := range g.Sources {
		if s.Name == "dep" && !plan.Dirty[id] {
			t.Error("expected dep to be dirty by ancestor propagation from transitive")
		}
	}
}

func TestBuildRespectsOmitDeps(t *testing.T) {
	g := buildGraph()
	opts := Options{OmitDeps: true, Exists: func(string) bool { return false }}
	plan := Build(g, opts)
	for id := range plan.Dirty {
		if !g.Sources[id].IsRoot {
			t.Errorf("expected only root sources when OmitDeps, found %s dirty", g.Sources[id].Name)
		}
	}
}

func TestBuildForceRecreateMarksEverythingDirty(t *testing.T) {
	g := buildGraph()
	opts := Options{ForceRecreate: true, Exists: func(string) bool { return true }}
	plan := Build(g, opts)
	if len(plan.Dirty) != len(g.Sources) {
		t.Errorf("expected all %d sources dirty, got %d", len(g.Sources), len(plan.Dirty))
	}
}

func TestOrderedDeepestFirstReversesBands(t *testing.T) {
	g := buildGraph()
	plan := Build(g, Options{ForceRecreate: true, Exists: func(string) bool { return true }})
	ordered := plan.OrderedDeepestFirst()
	if len(ordered) != len(plan.Bands) {
		t.Fatalf("expected same band count, got %d vs %d", len(ordered), len(plan.Bands))
	}
	if len(plan.Bands) > 1 {
		last := len(plan.Bands) - 1
		if &ordered[0] == &plan.Bands[0] {
			t.Fatal("expected a reversed copy, not aliasing Bands")
		}
		for i := range ordered {
			want := plan.Bands[last-i]
			got := ordered[i]
			if len(want) != len(got) {
				t.Fatalf("band %d: length mismatch %d vs %d", i, len(got), len(want))
			}
		}
	}
}
