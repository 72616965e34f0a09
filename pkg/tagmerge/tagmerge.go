// Package tagmerge combines a freshly generated tags file for one source
// with its dependencies' tags files, per the rules of each tag kind. Vi
// tags are a flat sorted, deduplicated union; emacs tags are a concatenation
// plus include directives, since etags format supports file inclusion
// natively.
package tagmerge

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rusty-tags/rtags/pkg/atomicfile"
	"github.com/rusty-tags/rtags/pkg/rterrors"
)

const (
	viHeaderFormat = "!_TAG_FILE_FORMAT\t2\t/extended format/"
	viHeaderSorted = "!_TAG_FILE_SORTED\t1\t/0=unsorted, 1=sorted, 2=foldcase/"
)

// Vi merges freshTagsFile with the tags files of every dependency (already
// merged, recursively) into destFile: strip any existing `!`-prefixed
// header lines and blank lines from every input, concatenate bodies,
// lexicographically sort, drop adjacent duplicate lines, then write back
// the two standard headers followed by the sorted, deduplicated body.
// Written atomically via atomicfile.
func Vi(destFile string, freshTagsFile string, depTagsFiles []string) error {
	var lines []string

	files := append([]string{freshTagsFile}, depTagsFiles...)
	for _, f := range files {
		body, err := readBodyLines(f)
		if err != nil {
			return err
		}
		lines = append(lines, body...)
	}

	sort.Strings(lines)
	lines = dedupAdjacent(lines)

	var buf strings.Builder
	buf.WriteString(viHeaderFormat)
	buf.WriteString("\n")
	buf.WriteString(viHeaderSorted)
	buf.WriteString("\n")
	for _, l := range lines {
		buf.WriteString(l)
		buf.WriteString("\n")
	}

	return atomicfile.Write(destFile, []byte(buf.String()), 0o644)
}

// readBodyLines reads a tags file and drops its header (`!`-prefixed) and
// blank lines, returning only tag entries.
func readBodyLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, rterrors.Wrap(rterrors.IoFailed, err, "read tags file %q", path)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, "!") {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, rterrors.Wrap(rterrors.IoFailed, err, "scan tags file %q", path)
	}
	return lines, nil
}

// dedupAdjacent removes consecutive duplicate lines from a sorted slice.
func dedupAdjacent(lines []string) []string {
	if len(lines) == 0 {
		return lines
	}
	out := lines[:1]
	for _, l := range lines[1:] {
		if l != out[len(out)-1] {
			out = append(out, l)
		}
	}
	return out
}

// Emacs ensures destFile contains freshTagsFile's bytes, followed by one
// `<path>,include` directive per dependency tags file. A dependency whose
// tags file is destFile itself (a self-reference introduced by a cycle) is
// skipped; a dependency whose tags file is missing is skipped with a
// warning returned via warnings, not a hard error, since a partial index is
// still useful.
func Emacs(destFile string, freshTagsFile string, depTagsFiles []string, exists func(string) bool) (warnings []string, err error) {
	body, err := os.ReadFile(freshTagsFile)
	if err != nil {
		return nil, rterrors.Wrap(rterrors.IoFailed, err, "read tags file %q", freshTagsFile)
	}

	var buf strings.Builder
	buf.Write(body)

	for _, dep := range depTagsFiles {
		absDest, _ := filepath.Abs(destFile)
		absDep, _ := filepath.Abs(dep)
		if absDep == absDest {
			continue
		}
		if exists != nil && !exists(dep) {
			warnings = append(warnings, fmt.Sprintf("skipping missing dependency tags file %q", dep))
			continue
		}
		buf.WriteString(dep)
		buf.WriteString(",include\n")
	}

	if err := atomicfile.Write(destFile, []byte(buf.String()), 0o644); err != nil {
		return warnings, err
	}
	return warnings, nil
}
