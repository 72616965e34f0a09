// Package tagspec encodes the choice of tag kind (vi/emacs) and ctags
// variant (exuberant/universal), the output filenames, and the assembly of
// the external tool's argument vector. Adding a new tool variant means
// adding a case here, not sprinkling conditionals through callers.
package tagspec

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/rusty-tags/rtags/pkg/rterrors"
)

// Kind is the tag format produced.
type Kind int

const (
	// Vi produces vi/ctags-format tags.
	Vi Kind = iota
	// Emacs produces etags-format tags.
	Emacs
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	if k == Emacs {
		return "emacs"
	}
	return "vi"
}

// ParseKind parses the CLI positional argument into a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(s) {
	case "vi":
		return Vi, nil
	case "emacs":
		return Emacs, nil
	default:
		return 0, rterrors.New(rterrors.ConfigInvalid, "tag kind must be 'vi' or 'emacs', got %q", s)
	}
}

// ToolVariant distinguishes exuberant-ctags from universal-ctags, which
// take different flags to recognize Rust.
type ToolVariant int

const (
	// Exuberant is exuberant-ctags / exctags, which needs an explicit
	// --langdef=Rust plus hand-written regex patterns.
	Exuberant ToolVariant = iota
	// Universal is universal-ctags / uctags, which understands Rust and
	// emacs output natively via flags.
	Universal
)

// Spec parameterizes every stage that touches on-disk tag-file naming or
// external tool invocation.
type Spec struct {
	Kind         Kind
	Variant      ToolVariant
	ToolPath     string
	ViFilename   string
	EmacsFilename string
	ExtraOptions string
}

// New validates and constructs a Spec. ViFilename and EmacsFilename must
// differ, since both could land in the same project directory (for a crate
// that's tagged as both kinds across different invocations).
func New(kind Kind, variant ToolVariant, toolPath, viFilename, emacsFilename, extraOptions string) (*Spec, error) {
	if viFilename == emacsFilename {
		return nil, rterrors.New(rterrors.ConfigInvalid,
			"vi and emacs tags filenames must differ, both are %q", viFilename)
	}
	return &Spec{
		Kind:          kind,
		Variant:       variant,
		ToolPath:      toolPath,
		ViFilename:    viFilename,
		EmacsFilename: emacsFilename,
		ExtraOptions:  extraOptions,
	}, nil
}

// Extension returns the file extension used for cache-entry naming.
func (s *Spec) Extension() string {
	if s.Kind == Emacs {
		return "emacs"
	}
	return "vi"
}

// Filename returns the output filename for the configured kind.
func (s *Spec) Filename() string {
	if s.Kind == Emacs {
		return s.EmacsFilename
	}
	return s.ViFilename
}

// exuberantRustPatterns are the regex definitions exuberant-ctags needs to
// recognize Rust constructs; universal-ctags understands Rust natively.
var exuberantRustPatterns = []string{
	`--regex-Rust=/^[ \t]*(#\[[^\]]\][ \t]*)*(pub[ \t]+)?(extern[ \t]+)?("[^"]+"[ \t]+)?(unsafe[ \t]+)?fn[ \t]+([a-zA-Z0-9_]+)/\6/f,functions,function definitions/`,
	`--regex-Rust=/^[ \t]*(pub[ \t]+)?type[ \t]+([a-zA-Z0-9_]+)/\2/T,types,type definitions/`,
	`--regex-Rust=/^[ \t]*(pub[ \t]+)?enum[ \t]+([a-zA-Z0-9_]+)/\2/g,enum,enumeration names/`,
	`--regex-Rust=/^[ \t]*(pub[ \t]+)?struct[ \t]+([a-zA-Z0-9_]+)/\2/s,structure names/`,
	`--regex-Rust=/^[ \t]*(pub[ \t]+)?mod[ \t]+([a-zA-Z0-9_]+)\s*\{/\2/m,modules,module names/`,
	`--regex-Rust=/^[ \t]*(pub[ \t]+)?(static|const)[ \t]+([a-zA-Z0-9_]+)/\3/c,consts,static constants/`,
	`--regex-Rust=/^[ \t]*(pub[ \t]+)?trait[ \t]+([a-zA-Z0-9_]+)/\2/t,traits,traits/`,
	`--regex-Rust=/^[ \t]*macro_rules![ \t]+([a-zA-Z0-9_]+)/\1/d,macros,macro definitions/`,
}

// Args builds the argument vector for the external tool, given the source
// directory to scan and the (temporary) output path to write to.
func (s *Spec) Args(srcDir, outPath string) []string {
	return s.ArgsMulti([]string{srcDir}, outPath)
}

// ArgsMulti builds the argument vector for tagging several source
// directories into a single output file, as needed for the RUST_SRC_PATH
// standard-library tags file (§6.5), which combines multiple candidate
// subdirectories into one tags file.
func (s *Spec) ArgsMulti(srcDirs []string, outPath string) []string {
	var args []string

	switch s.Variant {
	case Universal:
		args = append(args, "--languages=Rust")
	case Exuberant:
		args = append(args, "--langdef=Rust", "--langmap=Rust:.rs")
		args = append(args, exuberantRustPatterns...)
	}

	if s.Kind == Emacs {
		args = append(args, "-e")
	}
	args = append(args, "--recurse")

	if s.ExtraOptions != "" {
		args = append(args, strings.Fields(s.ExtraOptions)...)
	}

	args = append(args, "-o", outPath)
	args = append(args, srcDirs...)
	return args
}

// candidateToolNames is searched, in order, when no explicit tool path is
// configured.
var candidateToolNames = []string{"ctags", "exuberant-ctags", "exctags", "universal-ctags", "uctags"}

// DetectTool finds an installed ctags-compatible executable and its
// variant. If explicitPath is non-empty, only it is tried. Each candidate
// is run with --version; the first to succeed wins, and its stdout is
// sniffed for "Universal Ctags" to pick the variant.
func DetectTool(explicitPath string) (path string, variant ToolVariant, err error) {
	candidates := candidateToolNames
	if explicitPath != "" {
		candidates = []string{explicitPath}
	}

	for _, name := range candidates {
		out, verr := exec.Command(name, "--version").Output()
		if verr != nil {
			continue
		}
		if strings.Contains(string(out), "Universal Ctags") {
			return name, Universal, nil
		}
		return name, Exuberant, nil
	}

	return "", 0, rterrors.New(rterrors.ToolSpawn,
		"couldn't find a ctags executable; searched %s", fmt.Sprint(candidates))
}
