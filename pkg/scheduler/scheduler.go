// Package scheduler walks a build plan's depth bands deepest-first,
// running each band's sources through a worker pool: lock, generate tags,
// scan for re-exports, merge with already-built dependency tags, and
// publish. The worker-pool shape (jobs/results channels drained by a fixed
// set of goroutines, tracked with a WaitGroup) is the same one used to
// crawl a dependency graph concurrently elsewhere in this codebase,
// adapted here to run one band at a time instead of an unbounded frontier.
package scheduler

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/rusty-tags/rtags/pkg/atomicfile"
	"github.com/rusty-tags/rtags/pkg/cachebackend"
	"github.com/rusty-tags/rtags/pkg/depgraph"
	"github.com/rusty-tags/rtags/pkg/planner"
	"github.com/rusty-tags/rtags/pkg/reexport"
	"github.com/rusty-tags/rtags/pkg/rterrors"
	"github.com/rusty-tags/rtags/pkg/srclock"
	"github.com/rusty-tags/rtags/pkg/taggen"
	"github.com/rusty-tags/rtags/pkg/tagmerge"
	"github.com/rusty-tags/rtags/pkg/tagspec"
)

// Logger is the minimal logging surface the scheduler needs; the CLI
// layer wires this to a charmbracelet/log.Logger method value.
type Logger func(format string, args ...any)

// Options configures one scheduler run.
type Options struct {
	Spec       *tagspec.Spec
	NumThreads int // 0 means runtime.NumCPU(); forced to 1 when Serial is set
	Serial     bool
	TmpDir     string
	LockDir    string
	Backend    cachebackend.Backend // nil treated as cachebackend.NullBackend{}
	Log        Logger               // nil treated as a no-op
	Progress   ProgressFunc         // nil treated as a no-op
}

// BandProgress is a live snapshot of one depth band's worker pool, emitted
// on every state change so a caller can drive a progress display without
// polling.
type BandProgress struct {
	Band       int // 0-indexed over the non-empty bands, in OrderedDeepestFirst() order
	TotalBands int
	Total      int
	Running    int
	Done       int
	Skipped    int
	Failed     int
}

// ProgressFunc receives BandProgress snapshots. Called from whichever
// worker goroutine triggered the state change, so implementations must be
// safe for concurrent use or forward to a single-threaded consumer (e.g. a
// bubbletea program's Send).
type ProgressFunc func(BandProgress)

// SourceResult reports the outcome for one source.
type SourceResult struct {
	ID      depgraph.SourceID
	Skipped bool // lock was already held by another process
	Err     error
}

func (o Options) logf(format string, args ...any) {
	if o.Log != nil {
		o.Log(format, args...)
	}
}

func (o Options) workerCount() int {
	if o.Serial {
		return 1
	}
	if o.NumThreads > 0 {
		return o.NumThreads
	}
	return runtime.NumCPU()
}

func (o Options) backend() cachebackend.Backend {
	if o.Backend != nil {
		return o.Backend
	}
	return cachebackend.NullBackend{}
}

// Run walks plan.OrderedDeepestFirst(), processing each band to
// completion (a barrier between bands: a dependent must not merge a
// dependency's tags before that dependency has finished) before moving to
// the shallower one. Within a band, sources run concurrently up to
// workerCount(). The first fatal error observed in a band cancels the rest
// of that band's in-flight work (their results report ctx.Err()) but does
// not abort shallower bands — a build with one broken leaf still produces
// tags for everything else.
func Run(ctx context.Context, g *depgraph.Graph, plan planner.Plan, opts Options) ([]SourceResult, error) {
	var all []SourceResult

	bands := plan.OrderedDeepestFirst()
	totalBands := 0
	for _, band := range bands {
		if len(band) > 0 {
			totalBands++
		}
	}

	bandIdx := 0
	for _, band := range bands {
		if len(band) == 0 {
			continue
		}
		results := runBand(ctx, g, bandIdx, totalBands, band, opts)
		all = append(all, results...)
		bandIdx++
	}
	return all, nil
}

func runBand(ctx context.Context, g *depgraph.Graph, bandIdx, totalBands int, band []depgraph.SourceID, opts Options) []SourceResult {
	bandCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	workers := opts.workerCount()
	if workers > len(band) {
		workers = len(band)
	}

	jobs := make(chan depgraph.SourceID, len(band))
	results := make(chan SourceResult, len(band))
	var wg sync.WaitGroup

	tracker := newBandTracker(bandIdx, totalBands, len(band), opts.Progress)
	tracker.report()

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range jobs {
				tracker.startOne()
				res := processOne(bandCtx, g, id, opts)
				tracker.finishOne(res)
				if res.Err != nil && rterrors.IsFatal(res.Err) {
					cancel()
				}
				results <- res
			}
		}()
	}

	for _, id := range band {
		jobs <- id
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	var collected []SourceResult
	for r := range results {
		collected = append(collected, r)
	}
	return collected
}

// bandTracker maintains one band's live counts and emits a BandProgress
// snapshot through opts.Progress on every state transition.
type bandTracker struct {
	mu       sync.Mutex
	progress ProgressFunc
	snapshot BandProgress
}

func newBandTracker(bandIdx, totalBands, total int, progress ProgressFunc) *bandTracker {
	return &bandTracker{
		progress: progress,
		snapshot: BandProgress{Band: bandIdx, TotalBands: totalBands, Total: total},
	}
}

func (t *bandTracker) report() {
	if t.progress == nil {
		return
	}
	t.mu.Lock()
	snap := t.snapshot
	t.mu.Unlock()
	t.progress(snap)
}

func (t *bandTracker) startOne() {
	t.mu.Lock()
	t.snapshot.Running++
	t.mu.Unlock()
	t.report()
}

func (t *bandTracker) finishOne(res SourceResult) {
	t.mu.Lock()
	t.snapshot.Running--
	switch {
	case res.Err != nil:
		t.snapshot.Failed++
	case res.Skipped:
		t.snapshot.Skipped++
	default:
		t.snapshot.Done++
	}
	t.mu.Unlock()
	t.report()
}

// processOne runs the per-source pipeline: lock, generate, scan, merge
// into both the project-local and cache-mirrored destinations, publish,
// release.
func processOne(ctx context.Context, g *depgraph.Graph, id depgraph.SourceID, opts Options) SourceResult {
	s := g.Sources[id]
	res := SourceResult{ID: id}

	if ctx.Err() != nil {
		res.Err = rterrors.Wrap(rterrors.ToolSpawn, ctx.Err(), "band canceled before %s could start", s.Name)
		return res
	}

	lock, err := srclock.Acquire(opts.LockDir, s.Name, s.Hash, opts.Spec.Extension())
	if err != nil {
		if rterrors.GetCode(err) == rterrors.LockObserved {
			opts.logf("skipping %s %s: %v", s.Name, s.Version, err)
			res.Skipped = true
			return res
		}
		res.Err = err
		return res
	}
	defer lock.Release()

	fresh, err := fetchOrGenerate(ctx, opts, s)
	if err != nil {
		res.Err = err
		return res
	}

	reexports, externs, err := reexport.Scan(s.Dir)
	if err != nil {
		opts.logf("re-export scan failed for %s: %v", s.Name, err)
	}

	var allDepTagsFiles, reexportedDepTagsFiles []string
	for _, depID := range g.Deps[id] {
		dep := g.Sources[depID]
		if dep.CachedTagsFile == "" {
			continue
		}
		allDepTagsFiles = append(allDepTagsFiles, dep.CachedTagsFile)
		if reexport.PubliclyReexported(reexports, externs, dep.Name) {
			reexportedDepTagsFiles = append(reexportedDepTagsFiles, dep.CachedTagsFile)
		}
	}

	if s.CachedTagsFile != "" {
		if err := mergeInto(opts, s, s.CachedTagsFile, fresh, reexportedDepTagsFiles); err != nil {
			res.Err = err
			return res
		}
	}
	if s.TagsFile != "" {
		if err := mergeInto(opts, s, s.TagsFile, fresh, allDepTagsFiles); err != nil {
			res.Err = err
			return res
		}
	}

	opts.logf("tagged %s %s", s.Name, s.Version)
	return res
}

// fetchOrGenerate tries the cache-mirror backend first, falling back to
// invoking the external tool on a miss or backend error, then mirrors a
// freshly-generated result back to the backend (best-effort).
func fetchOrGenerate(ctx context.Context, opts Options, s *depgraph.Source) (string, error) {
	key := s.Hash + "." + opts.Spec.Extension()
	backend := opts.backend()

	if data, ok, err := backend.Fetch(ctx, key); err != nil {
		opts.logf("cache-mirror fetch failed for %s: %v", s.Name, err)
	} else if ok {
		path := filepath.Join(opts.TmpDir, "rtags-mirror-"+s.Hash+"."+opts.Spec.Extension())
		if err := atomicfile.Write(path, data, 0o644); err == nil {
			return path, nil
		}
	}

	path, err := taggen.Generate(ctx, opts.Spec, s.Dir, opts.TmpDir)
	if err != nil {
		return "", err
	}

	if data, readErr := os.ReadFile(path); readErr == nil {
		if err := backend.Store(ctx, key, data); err != nil {
			opts.logf("cache-mirror store failed for %s: %v", s.Name, err)
		}
	}
	return path, nil
}

func mergeInto(opts Options, s *depgraph.Source, dest, fresh string, depTagsFiles []string) error {
	switch opts.Spec.Kind {
	case tagspec.Emacs:
		warnings, err := tagmerge.Emacs(dest, fresh, depTagsFiles, fileExists)
		for _, w := range warnings {
			opts.logf("%s: %s", s.Name, w)
		}
		return err
	default:
		return tagmerge.Vi(dest, fresh, depTagsFiles)
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
