package depgraph

import (
	"encoding/json"
	"testing"

	"github.com/rusty-tags/rtags/pkg/cargometa"
)

func TestBuildSetsRootsAndEdges(t *testing.T) {
	rootDir := t.TempDir()
	depDir := t.TempDir()

	doc := map[string]any{
		"packages": []map[string]any{
			{
				"id":            "root 0.1.0 (path+file:///ws)",
				"name":          "root",
				"version":       "0.1.0",
				"manifest_path": rootDir + "/Cargo.toml",
				"targets":       []map[string]any{{"kind": []string{"bin"}, "src_path": rootDir}},
			},
			{
				"id":            "dep 2.0.0 (registry+https://example.com)",
				"name":          "dep",
				"version":       "2.0.0",
				"manifest_path": depDir + "/Cargo.toml",
				"targets":       []map[string]any{{"kind": []string{"lib"}, "src_path": depDir}},
			},
		},
		"workspace_members": []string{"root 0.1.0 (path+file:///ws)"},
		"resolve": map[string]any{
			"nodes": []map[string]any{
				{"id": "root 0.1.0 (path+file:///ws)", "dependencies": []string{"dep 2.0.0 (registry+https://example.com)"}},
				{"id": "dep 2.0.0 (registry+https://example.com)", "dependencies": []string{}},
			},
		},
	}
	data, _ := json.Marshal(doc)
	md, err := cargometa.Parse(data)
	if err != nil {
		t.Fatal(err)
	}

	g, err := Build(md)
	if err != nil {
		t.Fatal(err)
	}
	if len(g.Roots) != 1 {
		t.Fatalf("expected 1 root, got %d", len(g.Roots))
	}
	root := g.Roots[0]
	if !g.Sources[root].IsRoot {
		t.Error("expected root source to be marked IsRoot")
	}
	if len(g.Deps[root]) != 1 {
		t.Fatalf("expected root to have 1 dependency edge, got %d", len(g.Deps[root]))
	}
	depID := g.Deps[root][0]
	if g.Sources[depID].Name != "dep" {
		t.Errorf("expected dependency named 'dep', got %q", g.Sources[depID].Name)
	}
}
