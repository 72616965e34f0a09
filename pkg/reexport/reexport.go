// Package reexport does a shallow scan of a crate's lib.rs to find public
// re-exports and extern crate aliases. It is deliberately not a real Rust
// parser: a whitespace/token scan over well-formed source, good enough to
// decide which dependency tag files a crate's own tags should pull in.
package reexport

import (
	"os"
	"path/filepath"
	"strings"
)

// Extern records an `extern crate NAME [as ALIAS];` declaration.
type Extern struct {
	Name  string
	Alias string
}

// Scan reads <dir>/lib.rs and returns the set of top-level names appearing
// in `pub use <name>::...;` statements, plus every `extern crate`
// declaration. If lib.rs is absent, both results are empty — not an error,
// since plenty of crates (binaries, non-lib targets) have no lib.rs at all.
func Scan(dir string) (reexports map[string]bool, externs []Extern, err error) {
	reexports = make(map[string]bool)

	data, readErr := os.ReadFile(filepath.Join(dir, "lib.rs"))
	if readErr != nil {
		if os.IsNotExist(readErr) {
			return reexports, externs, nil
		}
		return nil, nil, readErr
	}

	for _, rawLine := range strings.Split(string(data), "\n") {
		line := strings.TrimSpace(rawLine)

		switch {
		case strings.HasPrefix(line, "pub use "):
			if name := leadingSegment(line, "pub use "); name != "" {
				reexports[name] = true
			}
		case strings.HasPrefix(line, "extern crate "):
			if e, ok := parseExternCrate(line); ok {
				externs = append(externs, e)
			}
		}
	}

	return reexports, externs, nil
}

// leadingSegment extracts the first `::`-delimited segment after prefix,
// e.g. "pub use serde::Deserialize;" -> "serde".
func leadingSegment(line, prefix string) string {
	rest := strings.TrimPrefix(line, prefix)
	rest = strings.TrimPrefix(rest, "crate::")
	rest = strings.TrimSuffix(strings.TrimSpace(rest), ";")
	if rest == "" {
		return ""
	}
	if i := strings.Index(rest, "::"); i >= 0 {
		rest = rest[:i]
	}
	rest = strings.TrimPrefix(rest, "{")
	return strings.TrimSpace(rest)
}

// PubliclyReexported reports whether depName is publicly re-exported by the
// crate that produced reexports/externs: some extern crate declaration
// names depName and its local name (the `as ALIAS` name, or NAME itself
// when there's no alias) appears in a `pub use` statement.
func PubliclyReexported(reexports map[string]bool, externs []Extern, depName string) bool {
	for _, e := range externs {
		if e.Name != depName {
			continue
		}
		localName := e.Alias
		if localName == "" {
			localName = e.Name
		}
		if reexports[localName] {
			return true
		}
	}
	return false
}

// parseExternCrate parses `extern crate name;` or `extern crate name as
// alias;`.
func parseExternCrate(line string) (Extern, bool) {
	rest := strings.TrimSuffix(strings.TrimSpace(strings.TrimPrefix(line, "extern crate ")), ";")
	fields := strings.Fields(rest)
	switch len(fields) {
	case 1:
		return Extern{Name: fields[0]}, true
	case 3:
		if fields[1] != "as" {
			return Extern{}, false
		}
		return Extern{Name: fields[0], Alias: fields[2]}, true
	default:
		return Extern{}, false
	}
}
