package cargometa

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func writeTempMetadata(t *testing.T, srcDir string) []byte {
	t.Helper()
	doc := map[string]any{
		"packages": []map[string]any{
			{
				"id":            "root 0.1.0 (path+file:///ws)",
				"name":          "root",
				"version":       "0.1.0",
				"manifest_path": filepath.Join(filepath.Dir(srcDir), "Cargo.toml"),
				"targets": []map[string]any{
					{"kind": []string{"bin"}, "src_path": filepath.Join(srcDir, "main.rs")},
				},
			},
			{
				"id":            "nosrc 0.1.0 (registry+https://example.com)",
				"name":          "nosrc",
				"version":       "0.1.0",
				"manifest_path": filepath.Join(filepath.Dir(srcDir), "Cargo.toml"),
				"targets": []map[string]any{
					{"kind": []string{"custom-build"}, "src_path": filepath.Join(srcDir, "build.rs")},
				},
			},
		},
		"workspace_members": []string{"root 0.1.0 (path+file:///ws)"},
		"resolve": map[string]any{
			"nodes": []map[string]any{
				{"id": "root 0.1.0 (path+file:///ws)", "dependencies": []string{"nosrc 0.1.0 (registry+https://example.com)"}},
			},
		},
	}
	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestParseSelectsAcceptableTargetsAndSkipsOthers(t *testing.T) {
	srcDir := t.TempDir()
	data := writeTempMetadata(t, srcDir)

	md, err := Parse(data)
	if err != nil {
		t.Fatal(err)
	}
	if len(md.Packages) != 1 {
		t.Fatalf("expected 1 package with an acceptable target, got %d: %v", len(md.Packages), md.Packages)
	}
	pkg, ok := md.Packages["root 0.1.0 (path+file:///ws)"]
	if !ok {
		t.Fatalf("expected root package to be ingested")
	}
	if pkg.SrcDir != srcDir {
		t.Errorf("SrcDir = %q, want %q", pkg.SrcDir, srcDir)
	}
}

func TestParseRejectsMissingManifestPath(t *testing.T) {
	data, _ := json.Marshal(map[string]any{
		"packages": []map[string]any{
			{"id": "x 0.1.0 ()", "name": "x", "version": "0.1.0"},
		},
	})
	if _, err := Parse(data); err == nil {
		t.Fatal("expected error for missing manifest_path")
	}
}

func TestParseRejectsMalformedJSON(t *testing.T) {
	if _, err := Parse([]byte("{not json")); err == nil {
		t.Fatal("expected error for malformed JSON")
	}
}

func TestSplitSourceID(t *testing.T) {
	name, version, err := SplitSourceID("serde 1.0.2 (registry+https://github.com/rust-lang/crates.io-index)")
	if err != nil {
		t.Fatal(err)
	}
	if name != "serde" || version != "1.0.2" {
		t.Errorf("got name=%q version=%q", name, version)
	}
}

func TestSplitSourceIDRejectsMalformed(t *testing.T) {
	if _, _, err := SplitSourceID("nospaces"); err == nil {
		t.Fatal("expected error for id without a space")
	}
}

func TestSelectTargetDirUsesManifestDirForRelativeSrcPath(t *testing.T) {
	dir := t.TempDir()
	pkg := rawPackage{
		ID: "p 0.1.0 ()",
		Targets: []rawTarget{
			{Kind: []string{"lib"}, SrcPath: "src/lib.rs"},
		},
	}
	srcDir, found, err := selectTargetDir(pkg, dir)
	if err != nil {
		t.Fatal(err)
	}
	if !found || srcDir != dir {
		t.Errorf("got srcDir=%q found=%v, want %q true", srcDir, found, dir)
	}
}

func TestSelectTargetDirFailsWhenAbsoluteSrcParentMissing(t *testing.T) {
	pkg := rawPackage{
		ID: "p 0.1.0 ()",
		Targets: []rawTarget{
			{Kind: []string{"bin"}, SrcPath: filepath.Join(os.TempDir(), "definitely-missing-rtags-dir", "main.rs")},
		},
	}
	if _, _, err := selectTargetDir(pkg, "/"); err == nil {
		t.Fatal("expected error when target src directory does not exist")
	}
}
