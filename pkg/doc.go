// Package pkg provides the core libraries behind rtags, a vi/ctags and
// emacs/etags index builder for Cargo workspaces.
//
// # Overview
//
// rtags walks a Cargo project's dependency graph (via `cargo metadata`),
// tags each crate with an external ctags-compatible tool, and merges the
// results into a single project-wide tags file — caching per-crate output
// so a dependency shared across projects is only tagged once. The pkg
// directory contains reusable Go libraries organized by concern:
//
//  1. Dependency graph ([cargometa], [depgraph], [planner])
//  2. Tag generation and merging ([tagspec], [taggen], [tagmerge], [reexport])
//  3. Coordination ([scheduler], [srclock], [atomicfile])
//  4. Optional accelerators ([cachebackend], [ledger])
//  5. Configuration and errors ([rtconfig], [rterrors])
//  6. Debug tooling ([graphviz])
//
// # Architecture
//
// The typical data flow through rtags:
//
//	cargo metadata
//	         ↓
//	    [cargometa] (parse the resolve graph)
//	         ↓
//	    [depgraph] (build the crate dependency graph)
//	         ↓
//	    [planner] (decide which crates need retagging)
//	         ↓
//	    [scheduler] (tag dirty crates deepest-first, worker pool per band)
//	         ↓
//	    [taggen] + [tagmerge] (generate, then merge with dependency tags)
//	         ↓
//	    [atomicfile] (publish the merged tags file)
//
// # Main Packages
//
// [cargometa] - Parses `cargo metadata --format-version=1` JSON into the
// package/resolve-graph shape rtags needs.
//
// [depgraph] - The crate dependency graph itself: sources, edges, roots,
// and the hash of each crate's source directory path used to name its
// cache and lock files.
//
// [planner] - Compares the graph against on-disk tags files (or a
// force-recreate flag) to produce the set of crates that need tagging,
// ordered into depth bands deepest-first.
//
// [tagspec] - Resolves the tag format (vi or emacs) and ctags tool
// variant (Exuberant or Universal) and the arguments to invoke it with.
//
// [taggen] - Invokes the external ctags tool against one crate's sources.
//
// [reexport] - Scans a crate for `pub use` re-exports so tags can resolve
// through them.
//
// [tagmerge] - Merges a freshly generated tags file with its dependencies'
// cached tags files into one combined output, in both vi and emacs format.
//
// [scheduler] - Runs [planner]'s depth bands through a worker pool,
// deepest-first with a barrier between bands, reporting live progress.
//
// [srclock] - Advisory, non-blocking per-crate file locks so two
// concurrent rtags invocations don't tag the same crate twice.
//
// [atomicfile] - Writes files via a temp-file-then-rename so a reader
// never observes a half-written tags file.
//
// [cachebackend] - An optional Redis-backed pull-through cache mirror,
// consulted before invoking ctags and populated after.
//
// [ledger] - An optional MongoDB-backed build history, recording one
// document per build invocation.
//
// [rtconfig] - XDG-aware cache/lock directory resolution and the
// `~/.rusty-tags/config.toml` user config file.
//
// [rterrors] - A `Code`-tagged error taxonomy distinguishing fatal errors
// (which cancel an in-flight depth band) from recoverable ones.
//
// [graphviz] - Renders the dependency graph to Graphviz DOT or PNG for
// debugging what rtags would tag and in what order.
//
// # Testing
//
// Run tests:
//
//	go test ./pkg/...          # All tests
//	go test ./pkg/scheduler/... # Specific package
package pkg
