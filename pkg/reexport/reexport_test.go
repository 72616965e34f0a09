package reexport

import (
	"os"
	"path/filepath"
	"testing"
)

func writeLib(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "lib.rs"), []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestScanFindsReexportsAndExterns(t *testing.T) {
	dir := writeLib(t, `
extern crate serde;
extern crate serde_json as json;

pub use serde::Deserialize;
pub use crate::inner::Thing;
mod inner;
`)
	reexports, externs, err := Scan(dir)
	if err != nil {
		t.Fatal(err)
	}
	if !reexports["serde"] {
		t.Errorf("expected serde in reexports, got %v", reexports)
	}
	if !reexports["inner"] {
		t.Errorf("expected inner in reexports, got %v", reexports)
	}
	if len(externs) != 2 || externs[0].Name != "serde" || externs[1].Alias != "json" {
		t.Errorf("unexpected externs: %+v", externs)
	}
}

func TestScanMissingLibRsReturnsEmpty(t *testing.T) {
	dir := t.TempDir()
	reexports, externs, err := Scan(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(reexports) != 0 || len(externs) != 0 {
		t.Errorf("expected empty results for missing lib.rs, got %v %v", reexports, externs)
	}
}

func TestScanHandlesBracedUseList(t *testing.T) {
	dir := writeLib(t, "pub use {std::fmt};\n")
	reexports, _, err := Scan(dir)
	if err != nil {
		t.Fatal(err)
	}
	if !reexports["std"] {
		t.Errorf("expected std in reexports, got %v", reexports)
	}
}
