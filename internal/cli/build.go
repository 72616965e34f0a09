package cli

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/rusty-tags/rtags/pkg/atomicfile"
	"github.com/rusty-tags/rtags/pkg/cachebackend"
	"github.com/rusty-tags/rtags/pkg/cargometa"
	"github.com/rusty-tags/rtags/pkg/depgraph"
	"github.com/rusty-tags/rtags/pkg/ledger"
	"github.com/rusty-tags/rtags/pkg/planner"
	"github.com/rusty-tags/rtags/pkg/rtconfig"
	"github.com/rusty-tags/rtags/pkg/rterrors"
	"github.com/rusty-tags/rtags/pkg/scheduler"
	"github.com/rusty-tags/rtags/pkg/taggen"
	"github.com/rusty-tags/rtags/pkg/tagspec"
)

const (
	tagsVi    = "vi"
	tagsEmacs = "emacs"
)

// buildOpts holds the flags shared by the vi and emacs build commands.
type buildOpts struct {
	forceRecreate bool
	omitDeps      bool
	toolPath      string
	toolVariant   string
	viName        string
	emacsName     string
	extraOptions  string
	numThreads    int
	outputDirStd  string
	cacheBackend  string
	history       string
	graphOut      string
	serial        bool
	quiet         bool
}

// buildCommand creates the "vi" or "emacs" tag-building command.
func (c *CLI) buildCommand(kind string) *cobra.Command {
	var opts buildOpts

	cmd := &cobra.Command{
		Use:   kind + " [start-dir]",
		Short: fmt.Sprintf("Build or refresh %s-format tags", kind),
		Long: fmt.Sprintf(`Build or refresh %s-format tags for the Cargo project rooted at start-dir
(default: the current directory) and every crate it transitively depends on.

Dependency tags are cached per-crate under the user cache directory and
merged into the project's own tags file, so a dependency shared by several
projects is only tagged once.`, kind),
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			startDir := "."
			if len(args) == 1 {
				startDir = args[0]
			}
			if verbose, err := cmd.Flags().GetBool("verbose"); err == nil {
				opts.serial = verbose
			}
			if quiet, err := cmd.Flags().GetBool("quiet"); err == nil {
				opts.quiet = quiet
			}
			return runBuild(cmd.Context(), kind, startDir, opts)
		},
	}

	flags := cmd.Flags()
	flags.BoolVar(&opts.forceRecreate, "force-recreate", false, "rebuild every tags file, ignoring cache state")
	flags.BoolVar(&opts.omitDeps, "omit-deps", false, "only tag the root project, skip dependencies")
	flags.StringVar(&opts.toolPath, "ctags", "", "path to a ctags-compatible executable (default: auto-detect)")
	flags.StringVar(&opts.toolVariant, "ctags-variant", "", "\"exuberant\" or \"universal\" (default: auto-detect)")
	flags.StringVar(&opts.viName, "vi-tags-name", "rusty-tags.vi", "output filename for vi tags")
	flags.StringVar(&opts.emacsName, "emacs-tags-name", "rusty-tags.emacs", "output filename for emacs tags")
	flags.StringVar(&opts.extraOptions, "ctags-options", "", "extra space-separated options passed to the ctags executable")
	flags.IntVar(&opts.numThreads, "num-threads", 0, "worker count (default: one per core)")
	flags.StringVar(&opts.outputDirStd, "output-dir-std", "", "directory to write the RUST_SRC_PATH standard-library tags file into (default: RUST_SRC_PATH itself)")
	flags.StringVar(&opts.cacheBackend, "cache-backend", "", "redis:// DSN for an optional pull-through cache mirror")
	flags.StringVar(&opts.history, "history", "", "mongodb:// URI for an optional build history ledger")
	flags.StringVar(&opts.graphOut, "graph-out", "", "also write a Graphviz DOT export of the dependency graph to this path (PNG if it ends in .png)")

	return cmd
}

func runBuild(ctx context.Context, kind, startDir string, opts buildOpts) error {
	logger := loggerFromContext(ctx)
	prog := newProgress(logger)

	cfg, err := rtconfig.Load(rtconfig.Default())
	if err != nil {
		return err
	}
	applyFlagOverrides(&cfg, kind, opts)

	tagKind, err := tagspec.ParseKind(cfg.TagKind)
	if err != nil {
		return err
	}

	toolPath, variant, err := resolveTool(cfg)
	if err != nil {
		return err
	}

	spec, err := tagspec.New(tagKind, variant, toolPath, cfg.ViFilename, cfg.EmacsFilename, cfg.ExtraOptions)
	if err != nil {
		return err
	}

	tmpDir, err := os.MkdirTemp("", "rtags-")
	if err != nil {
		return rterrors.Wrap(rterrors.IoFailed, err, "create scratch directory")
	}
	defer os.RemoveAll(tmpDir)

	if err := buildStdlibTags(ctx, cfg, spec, tmpDir); err != nil {
		return err
	}

	resolveSpin := newSpinnerWithContext(ctx, "Resolving dependency graph...")
	resolveSpin.Start()
	metadata, err := cargoMetadata(ctx, startDir)
	if err != nil {
		resolveSpin.StopWithError("cargo metadata failed")
		return err
	}
	md, err := cargometa.Parse(metadata)
	if err != nil {
		resolveSpin.StopWithError("failed to parse cargo metadata")
		return err
	}
	g, err := depgraph.Build(md)
	if err != nil {
		resolveSpin.StopWithError("failed to build dependency graph")
		return err
	}
	if err := annotate(g, spec, cfg); err != nil {
		resolveSpin.StopWithError("failed to resolve cache paths")
		return err
	}
	resolveSpin.StopWithSuccess(fmt.Sprintf("Resolved %d sources", len(g.Sources)))

	if opts.graphOut != "" {
		if err := writeGraphExport(g, nil, opts.graphOut); err != nil {
			logger.Warnf("graph export failed: %v", err)
		}
	}

	plan := planner.Build(g, planner.Options{
		ForceRecreate: cfg.ForceRecreate,
		OmitDeps:      cfg.OmitDeps,
		Exists:        fileExistsOnDisk,
	})

	lockDir, err := rtconfig.LockDir()
	if err != nil {
		return err
	}
	backend, closeBackend := resolveBackend(cfg, logger)
	defer closeBackend()

	hist, closeHist := resolveLedger(ctx, cfg, logger)
	defer closeHist(ctx)

	useTUI := !opts.serial && !opts.quiet && isatty.IsTerminal(os.Stdout.Fd())

	schedFn := func(progress scheduler.ProgressFunc) ([]scheduler.SourceResult, error) {
		return scheduler.Run(ctx, g, plan, scheduler.Options{
			Spec:       spec,
			NumThreads: cfg.NumThreads,
			Serial:     opts.serial,
			TmpDir:     tmpDir,
			LockDir:    lockDir,
			Backend:    backend,
			Log:        func(format string, args ...any) { logger.Debugf(format, args...) },
			Progress:   progress,
		})
	}

	var results []scheduler.SourceResult
	if useTUI {
		results, err = runWithTUI(fmt.Sprintf("Tagging %d sources", len(plan.Dirty)), schedFn)
	} else {
		var tagSpin *Spinner
		if !opts.serial {
			tagSpin = newSpinnerWithContext(ctx, fmt.Sprintf("Tagging %d sources...", len(plan.Dirty)))
			tagSpin.Start()
		}
		results, err = schedFn(nil)
		if tagSpin != nil {
			if err != nil {
				tagSpin.StopWithError("tagging failed")
			} else {
				tagSpin.Stop()
			}
		}
	}
	if err != nil {
		return err
	}

	rebuilt, failed := summarize(results)
	rec := ledger.BuildRecord{
		SourceCount:  len(g.Sources),
		RebuiltCount: rebuilt,
		FailedCount:  failed,
		TagKind:      kind,
	}
	if len(g.Roots) > 0 {
		rec.RootName = g.Sources[g.Roots[0]].Name
	}
	if err := hist.Record(ctx, rec); err != nil {
		logger.Warnf("history record failed: %v", err)
	}

	if failed > 0 {
		return rterrors.New(rterrors.ToolFailed, "%d of %d sources failed to tag", failed, len(plan.Dirty))
	}

	prog.done(fmt.Sprintf("tagged %d sources (%d rebuilt)", len(plan.Dirty), rebuilt))
	return nil
}

func summarize(results []scheduler.SourceResult) (rebuilt, failed int) {
	for _, r := range results {
		switch {
		case r.Err != nil:
			failed++
		case !r.Skipped:
			rebuilt++
		}
	}
	return rebuilt, failed
}

func fileExistsOnDisk(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func applyFlagOverrides(cfg *rtconfig.Config, kind string, opts buildOpts) {
	cfg.TagKind = kind
	if opts.forceRecreate {
		cfg.ForceRecreate = true
	}
	if opts.omitDeps {
		cfg.OmitDeps = true
	}
	if opts.toolPath != "" {
		cfg.ToolPath = opts.toolPath
	}
	if opts.toolVariant != "" {
		cfg.ToolVariant = opts.toolVariant
	}
	if opts.viName != "" {
		cfg.ViFilename = opts.viName
	}
	if opts.emacsName != "" {
		cfg.EmacsFilename = opts.emacsName
	}
	if opts.extraOptions != "" {
		cfg.ExtraOptions = opts.extraOptions
	}
	if opts.numThreads != 0 {
		cfg.NumThreads = opts.numThreads
	}
	if opts.outputDirStd != "" {
		cfg.OutputDirStd = opts.outputDirStd
	}
	if opts.cacheBackend != "" {
		cfg.CacheBackendDSN = opts.cacheBackend
	}
	if opts.history != "" {
		cfg.HistoryURI = opts.history
	}
	if opts.graphOut != "" {
		cfg.GraphOut = opts.graphOut
	}
}

func resolveTool(cfg rtconfig.Config) (string, tagspec.ToolVariant, error) {
	if cfg.ToolPath != "" && cfg.ToolVariant != "" {
		if cfg.ToolVariant == "exuberant" {
			return cfg.ToolPath, tagspec.Exuberant, nil
		}
		return cfg.ToolPath, tagspec.Universal, nil
	}
	return tagspec.DetectTool(cfg.ToolPath)
}

func cargoMetadata(ctx context.Context, startDir string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "cargo", "metadata", "--format-version=1")
	cmd.Dir = startDir
	out, err := cmd.Output()
	if err != nil {
		return nil, rterrors.Wrap(rterrors.ToolSpawn, err, "run cargo metadata in %q", startDir)
	}
	return out, nil
}

// annotate fills in each source's Hash, CachedTagsFile, and TagsFile now
// that the tag kind (and hence file extension) is known. Every source
// selected by the planner needs both destinations, not just roots: each
// rebuilt source writes its own project-tree tags file, and a dependent's
// merge reads its dependencies' cached tags files.
func annotate(g *depgraph.Graph, spec *tagspec.Spec, cfg rtconfig.Config) error {
	cacheDir, err := rtconfig.CacheDir()
	if err != nil {
		return err
	}
	for _, s := range g.Sources {
		s.Hash = depgraph.HashDir(s.Dir)
		s.CachedTagsFile = filepath.Join(cacheDir, "tags", s.Name+"-"+s.Hash+"."+spec.Extension())
		manifestDir := depgraph.ManifestDir(s.Dir, "Cargo.toml", fileExistsOnDisk)
		s.TagsFile = filepath.Join(manifestDir, spec.Filename())
	}
	return nil
}

// buildStdlibTags generates a standard-library tags file from RUST_SRC_PATH
// (§6.5), mirroring the original tool's update_std_lib_tags: a no-op unless
// the env var is set, an error if it's set to something that isn't a
// directory, and a skip if the destination already exists and a rebuild
// wasn't forced.
func buildStdlibTags(ctx context.Context, cfg rtconfig.Config, spec *tagspec.Spec, tmpDir string) error {
	srcPath := os.Getenv("RUST_SRC_PATH")
	if srcPath == "" {
		return nil
	}
	info, err := os.Stat(srcPath)
	if err != nil || !info.IsDir() {
		return rterrors.New(rterrors.ConfigInvalid, "RUST_SRC_PATH %q is not a directory", srcPath)
	}

	outDir := cfg.OutputDirStd
	if outDir == "" {
		outDir = srcPath
	}
	dest := filepath.Join(outDir, spec.Filename())

	if !cfg.ForceRecreate && fileExistsOnDisk(dest) {
		return nil
	}

	dirs := rtconfig.ResolveStdlibDirs(srcPath, fileExistsOnDisk)
	if len(dirs) == 0 {
		return nil
	}

	tagsPath, err := taggen.GenerateMulti(ctx, spec, dirs, tmpDir)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(tagsPath)
	if err != nil {
		return rterrors.Wrap(rterrors.IoFailed, err, "read generated standard-library tags %q", tagsPath)
	}
	return atomicfile.Write(dest, data, 0o644)
}

func resolveBackend(cfg rtconfig.Config, l interface{ Warnf(string, ...any) }) (cachebackend.Backend, func()) {
	if cfg.CacheBackendDSN == "" {
		return cachebackend.NullBackend{}, func() {}
	}
	backend, err := cachebackend.NewRedisBackend(cfg.CacheBackendDSN, 0)
	if err != nil {
		l.Warnf("cache backend disabled: %v", err)
		return cachebackend.NullBackend{}, func() {}
	}
	return backend, func() { _ = backend.Close() }
}

func resolveLedger(ctx context.Context, cfg rtconfig.Config, l interface{ Warnf(string, ...any) }) (ledger.Ledger, func(context.Context)) {
	if cfg.HistoryURI == "" {
		return ledger.NullLedger{}, func(context.Context) {}
	}
	lg, err := ledger.NewMongoLedger(ctx, cfg.HistoryURI)
	if err != nil {
		l.Warnf("history ledger disabled: %v", err)
		return ledger.NullLedger{}, func(context.Context) {}
	}
	return lg, func(ctx context.Context) { _ = lg.Close(ctx) }
}
