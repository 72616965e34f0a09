package scheduler

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rusty-tags/rtags/pkg/depgraph"
	"github.com/rusty-tags/rtags/pkg/planner"
	"github.com/rusty-tags/rtags/pkg/tagspec"
)

func fakeCtags(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "fake-ctags.sh")
	script := `#!/bin/sh
for i in "$@"; do
  if [ "$prev" = "-o" ]; then
    echo "!_TAG_FILE_FORMAT	2	x" > "$i"
    echo "tag	file.rs	/pattern/" >> "$i"
  fi
  prev="$i"
done
`
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunTagsRootAndDependency(t *testing.T) {
	tool := fakeCtags(t)
	spec, _ := tagspec.New(tagspec.Vi, tagspec.Universal, tool, "rusty-tags.vi", "rusty-tags.emacs", "")

	rootSrc := t.TempDir()
	depSrc := t.TempDir()
	cacheDir := t.TempDir()
	lockDir := t.TempDir()
	tmpDir := t.TempDir()

	g := depgraph.New(2)
	root := g.AddSource(depgraph.Source{
		Name: "root", Version: "0.1.0", Dir: rootSrc, IsRoot: true,
		Hash:           depgraph.HashDir(rootSrc),
		CachedTagsFile: filepath.Join(cacheDir, "root.vi"),
		TagsFile:       filepath.Join(rootSrc, "rusty-tags.vi"),
	})
	dep := g.AddSource(depgraph.Source{
		Name: "dep", Version: "2.0.0", Dir: depSrc,
		Hash:           depgraph.HashDir(depSrc),
		CachedTagsFile: filepath.Join(cacheDir, "dep.vi"),
	})
	g.Roots = []depgraph.SourceID{root}
	g.AddEdge(root, dep)

	plan := planner.Build(g, planner.Options{ForceRecreate: true, Exists: func(string) bool { return false }})

	opts := Options{Spec: spec, Serial: true, TmpDir: tmpDir, LockDir: lockDir}
	results, err := Run(context.Background(), g, plan, opts)
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range results {
		if r.Err != nil {
			t.Fatalf("source %d failed: %v", r.ID, r.Err)
		}
	}

	rootTags, err := os.ReadFile(g.Sources[root].TagsFile)
	if err != nil {
		t.Fatal(err)
	}
	if len(rootTags) == 0 {
		t.Fatal("expected non-empty root tags file")
	}

	depCached, err := os.ReadFile(g.Sources[dep].CachedTagsFile)
	if err != nil {
		t.Fatal(err)
	}
	if len(depCached) == 0 {
		t.Fatal("expected non-empty dependency cached tags file")
	}
}

func TestRunReportsProgressPerBand(t *testing.T) {
	tool := fakeCtags(t)
	spec, _ := tagspec.New(tagspec.Vi, tagspec.Universal, tool, "rusty-tags.vi", "rusty-tags.emacs", "")

	rootSrc := t.TempDir()
	depSrc := t.TempDir()
	cacheDir := t.TempDir()
	lockDir := t.TempDir()
	tmpDir := t.TempDir()

	g := depgraph.New(2)
	root := g.AddSource(depgraph.Source{
		Name: "root", Version: "0.1.0", Dir: rootSrc, IsRoot: true,
		Hash:           depgraph.HashDir(rootSrc),
		CachedTagsFile: filepath.Join(cacheDir, "root.vi"),
	})
	dep := g.AddSource(depgraph.Source{
		Name: "dep", Version: "2.0.0", Dir: depSrc,
		Hash:           depgraph.HashDir(depSrc),
		CachedTagsFile: filepath.Join(cacheDir, "dep.vi"),
	})
	g.Roots = []depgraph.SourceID{root}
	g.AddEdge(root, dep)

	plan := planner.Build(g, planner.Options{ForceRecreate: true, Exists: func(string) bool { return false }})

	var mu sync.Mutex
	var snapshots []BandProgress
	opts := Options{
		Spec: spec, Serial: true, TmpDir: tmpDir, LockDir: lockDir,
		Progress: func(p BandProgress) {
			mu.Lock()
			snapshots = append(snapshots, p)
			mu.Unlock()
		},
	}
	if _, err := Run(context.Background(), g, plan, opts); err != nil {
		t.Fatal(err)
	}

	if len(snapshots) == 0 {
		t.Fatal("expected at least one progress snapshot")
	}
	last := snapshots[len(snapshots)-1]
	if last.Done+last.Skipped+last.Failed != last.Total {
		t.Fatalf("final snapshot doesn't account for every source: %+v", last)
	}
	if last.TotalBands != 2 {
		t.Fatalf("expected 2 depth bands (dep then root), got %d", last.TotalBands)
	}
}

func TestRunSkipsWhenLockObserved(t *testing.T) {
	tool := fakeCtags(t)
	spec, _ := tagspec.New(tagspec.Vi, tagspec.Universal, tool, "rusty-tags.vi", "rusty-tags.emacs", "")

	srcDir := t.TempDir()
	cacheDir := t.TempDir()
	lockDir := t.TempDir()
	tmpDir := t.TempDir()

	g := depgraph.New(1)
	root := g.AddSource(depgraph.Source{
		Name: "root", Version: "0.1.0", Dir: srcDir, IsRoot: true,
		Hash:           depgraph.HashDir(srcDir),
		CachedTagsFile: filepath.Join(cacheDir, "root.vi"),
	})
	g.Roots = []depgraph.SourceID{root}

	lockPath := filepath.Join(lockDir, "root-"+g.Sources[root].Hash+".vi")
	if err := os.MkdirAll(lockDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(lockPath, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	plan := planner.Build(g, planner.Options{ForceRecreate: true, Exists: func(string) bool { return false }})
	opts := Options{Spec: spec, Serial: true, TmpDir: tmpDir, LockDir: lockDir}
	results, err := Run(context.Background(), g, plan, opts)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || !results[0].Skipped {
		t.Fatalf("expected a single skipped result, got %+v", results)
	}
}
