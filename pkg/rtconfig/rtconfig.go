// Package rtconfig resolves runtime configuration: XDG-aware cache/lock
// directories, the user config file, and the precedence between that file
// and CLI flags (flags win).
package rtconfig

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/rusty-tags/rtags/pkg/rterrors"
)

// appName names the application directory under the user's cache/config
// home, and the user config file's parent directory.
const appName = "rusty-tags"

// Config is the fully resolved set of options for one run.
type Config struct {
	StartDir string

	TagKind      string // "vi" or "emacs"
	ToolPath     string
	ToolVariant  string // "exuberant" or "universal", empty to auto-detect
	ViFilename   string
	EmacsFilename string
	ExtraOptions string

	ForceRecreate bool
	OmitDeps      bool
	Quiet         bool
	Verbose       bool
	NumThreads    int

	// OutputDirStd is the directory the RUST_SRC_PATH standard-library tags
	// file is written into (§6.5). Empty means "the RUST_SRC_PATH directory
	// itself".
	OutputDirStd string

	CacheBackendDSN string
	HistoryURI      string
	GraphOut        string
	NoTUI           bool
}

// fileConfig mirrors the on-disk TOML schema at ~/.rusty-tags/config.toml.
// Every field is optional; a zero value means "not set in the file".
type fileConfig struct {
	ViFilename      string `toml:"vi_tags_filename"`
	EmacsFilename   string `toml:"emacs_tags_filename"`
	ToolPath        string `toml:"ctags_exe"`
	ToolVariant     string `toml:"ctags_variant"`
	ExtraOptions    string `toml:"ctags_options"`
	NumThreads      int    `toml:"num_threads"`
	CacheBackendDSN string `toml:"cache_backend_dsn"`
	HistoryURI      string `toml:"history_uri"`
}

// Default returns a Config with the teacher's own style of sane defaults:
// tag filenames distinguishable by extension, one worker per core, no
// optional backends.
func Default() Config {
	return Config{
		ViFilename:    "rusty-tags.vi",
		EmacsFilename: "rusty-tags.emacs",
		TagKind:       "vi",
		NumThreads:    0, // 0 means "use runtime.NumCPU()"; resolved by the scheduler
	}
}

// CacheDir returns the XDG-standard cache directory, ~/.cache/rusty-tags by
// default or $XDG_CACHE_HOME/rusty-tags when set.
func CacheDir() (string, error) {
	if home := os.Getenv("XDG_CACHE_HOME"); home != "" {
		return filepath.Join(home, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", rterrors.Wrap(rterrors.IoFailed, err, "resolve home directory")
	}
	return filepath.Join(home, ".cache", appName), nil
}

// LockDir returns the directory advisory source locks are created in,
// alongside the cache rather than under /tmp, so a dangling lock from a
// killed run is visible next to the tags it was protecting.
func LockDir() (string, error) {
	dir, err := CacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "locks"), nil
}

// ConfigFilePath returns the path to the user config file,
// ~/.rusty-tags/config.toml, matching the original tool's layout rather
// than an XDG config dir, since that's the path users and their dotfiles
// already reference.
func ConfigFilePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", rterrors.Wrap(rterrors.IoFailed, err, "resolve home directory")
	}
	return filepath.Join(home, "."+appName, "config.toml"), nil
}

// Load reads the user config file if present and applies its values as
// overrides on top of base, for every field the file sets. A missing file
// is not an error. CLI flags are applied afterward by the caller, since
// flags must win over the file.
func Load(base Config) (Config, error) {
	path, err := ConfigFilePath()
	if err != nil {
		return base, err
	}

	var fc fileConfig
	if _, err := toml.DecodeFile(path, &fc); err != nil {
		if os.IsNotExist(err) {
			return base, nil
		}
		return base, rterrors.Wrap(rterrors.ConfigInvalid, err, "parse config file %q", path)
	}

	cfg := base
	if fc.ViFilename != "" {
		cfg.ViFilename = fc.ViFilename
	}
	if fc.EmacsFilename != "" {
		cfg.EmacsFilename = fc.EmacsFilename
	}
	if fc.ToolPath != "" {
		cfg.ToolPath = fc.ToolPath
	}
	if fc.ToolVariant != "" {
		cfg.ToolVariant = fc.ToolVariant
	}
	if fc.ExtraOptions != "" {
		cfg.ExtraOptions = fc.ExtraOptions
	}
	if fc.NumThreads != 0 {
		cfg.NumThreads = fc.NumThreads
	}
	if fc.CacheBackendDSN != "" {
		cfg.CacheBackendDSN = fc.CacheBackendDSN
	}
	if fc.HistoryURI != "" {
		cfg.HistoryURI = fc.HistoryURI
	}
	return cfg, nil
}

// StdlibCandidateDirs is the fixed list of subdirectories checked under
// RUST_SRC_PATH when building a standard-library tags file (§6.5). It
// covers both the modern split-crate layout and the pre-2018 layout the
// original tool targeted; any entry that doesn't exist is skipped.
var StdlibCandidateDirs = []string{
	"library/core/src",
	"library/alloc/src",
	"library/std/src",
	"library/test/src",
	"src/libcore",
	"src/liballoc",
	"src/libstd",
	"src/libtest",
}

// ResolveStdlibDirs returns the StdlibCandidateDirs that actually exist
// under srcPath, joined into absolute paths.
func ResolveStdlibDirs(srcPath string, exists func(string) bool) []string {
	var found []string
	for _, candidate := range StdlibCandidateDirs {
		dir := filepath.Join(srcPath, candidate)
		if exists(dir) {
			found = append(found, dir)
		}
	}
	return found
}
