// Package cargometa ingests `cargo metadata --format-version=1` JSON into a
// normalized package list, a workspace-member list, and the resolve-graph's
// dependency edges. It never invokes cargo itself — that's the CLI layer's
// job; this package only consumes bytes.
package cargometa

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rusty-tags/rtags/pkg/rterrors"
)

// Package is one entry from metadata.packages, after target selection.
type Package struct {
	Name       string
	Version    string
	ID         string
	SrcDir     string
	ManifestDir string
}

// Metadata is the normalized ingest result.
type Metadata struct {
	// Packages maps package id -> Package, for every package with an
	// acceptable target. Packages without one are silently absent.
	Packages map[string]Package

	// WorkspaceMembers holds the ids of workspace member packages, in the
	// order cargo reported them.
	WorkspaceMembers []string

	// DependencyIDs maps package id -> dependency package ids, from
	// resolve.nodes.
	DependencyIDs map[string][]string
}

type rawMetadata struct {
	Packages []rawPackage `json:"packages"`
	WorkspaceMembers []string `json:"workspace_members"`
	Resolve *struct {
		Nodes []rawNode `json:"nodes"`
	} `json:"resolve"`
}

type rawPackage struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Version      string      `json:"version"`
	ManifestPath string      `json:"manifest_path"`
	Targets      []rawTarget `json:"targets"`
}

type rawTarget struct {
	Kind    []string `json:"kind"`
	SrcPath string   `json:"src_path"`
}

type rawNode struct {
	ID           string   `json:"id"`
	Dependencies []string `json:"dependencies"`
}

// acceptableKind reports whether a target kind is one ingest will select:
// "bin" exactly, or any substring match of "lib", "proc-macro", or "test".
func acceptableKind(kind string) bool {
	if kind == "bin" {
		return true
	}
	for _, substr := range []string{"lib", "proc-macro", "test"} {
		if strings.Contains(kind, substr) {
			return true
		}
	}
	return false
}

// Parse ingests raw cargo-metadata JSON bytes.
//
// For each package, the first target whose kind matches acceptableKind is
// selected (first-match-wins, in the metadata's own target order — this is
// deterministic only as far as cargo's own output order is stable, which
// it documents as the case). A package with no acceptable target is
// silently skipped; its dependents still resolve as long as they reference
// other packages that do have one.
func Parse(data []byte) (*Metadata, error) {
	var raw rawMetadata
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, rterrors.Wrap(rterrors.BadMetadata, err, "decode cargo metadata JSON")
	}

	md := &Metadata{
		Packages:         make(map[string]Package, len(raw.Packages)),
		WorkspaceMembers: raw.WorkspaceMembers,
		DependencyIDs:    make(map[string][]string),
	}

	for _, pkg := range raw.Packages {
		if pkg.ID == "" {
			return nil, rterrors.New(rterrors.BadMetadata, "package missing 'id' field")
		}
		if pkg.ManifestPath == "" {
			return nil, rterrors.New(rterrors.BadMetadata, "package %q missing 'manifest_path' field", pkg.ID)
		}
		manifestDir := filepath.Dir(pkg.ManifestPath)

		srcDir, found, err := selectTargetDir(pkg, manifestDir)
		if err != nil {
			return nil, err
		}
		if !found {
			continue // no acceptable target: silently skipped
		}

		md.Packages[pkg.ID] = Package{
			Name:        pkg.Name,
			Version:     pkg.Version,
			ID:          pkg.ID,
			SrcDir:      srcDir,
			ManifestDir: manifestDir,
		}
	}

	if raw.Resolve != nil {
		for _, node := range raw.Resolve.Nodes {
			md.DependencyIDs[node.ID] = node.Dependencies
		}
	}

	return md, nil
}

// selectTargetDir finds the first acceptable target and returns its source
// directory. If src_path is an absolute file, its parent directory is used;
// if relative, the manifest's directory is used. The chosen directory must
// exist.
func selectTargetDir(pkg rawPackage, manifestDir string) (dir string, found bool, err error) {
	for _, t := range pkg.Targets {
		matched := false
		for _, k := range t.Kind {
			if acceptableKind(k) {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}

		srcDir := manifestDir
		if filepath.IsAbs(t.SrcPath) {
			srcDir = filepath.Dir(t.SrcPath)
		}

		if info, statErr := os.Stat(srcDir); statErr != nil || !info.IsDir() {
			return "", false, rterrors.New(rterrors.BadMetadata,
				"target source directory %q for package %q does not exist", srcDir, pkg.ID)
		}
		return srcDir, true, nil
	}
	return "", false, nil
}

// SplitSourceID parses a metadata id string of the form
// "<name> <version> (...)" into its name and version.
func SplitSourceID(id string) (name, version string, err error) {
	i := strings.IndexByte(id, ' ')
	if i < 0 {
		return "", "", rterrors.New(rterrors.BadMetadata, "malformed package id %q: expected '<name> <version> (...)'", id)
	}
	rest := id[i+1:]
	j := strings.IndexByte(rest, ' ')
	version = rest
	if j >= 0 {
		version = rest[:j]
	}
	return id[:i], version, nil
}

// SortedWorkspaceMembers returns a lexicographically sorted copy of
// WorkspaceMembers; build order is governed by the depth-band scheduler,
// not this ordering.
func (m *Metadata) SortedWorkspaceMembers() []string {
	out := append([]string(nil), m.WorkspaceMembers...)
	sort.Strings(out)
	return out
}
