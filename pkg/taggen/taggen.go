// Package taggen invokes the external ctags-compatible tool to produce a
// tags file for one source directory.
package taggen

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/rusty-tags/rtags/pkg/rterrors"
	"github.com/rusty-tags/rtags/pkg/tagspec"
)

// Generate runs the configured tool against srcDir and returns the path to
// a freshly-written temporary tags file in tmpDir. The caller owns cleanup
// of the returned path (it's consumed by the merger, then discarded).
//
// The temp filename includes a random suffix so concurrent workers within
// the same depth band never collide, even when tagging two sources with
// the same crate name (e.g. two different versions).
func Generate(ctx context.Context, spec *tagspec.Spec, srcDir, tmpDir string) (string, error) {
	return GenerateMulti(ctx, spec, []string{srcDir}, tmpDir)
}

// GenerateMulti is Generate generalized to tag several source directories
// into a single output file, as RUST_SRC_PATH standard-library tagging
// (§6.5) needs to combine multiple candidate subdirectories into one tags
// file.
func GenerateMulti(ctx context.Context, spec *tagspec.Spec, srcDirs []string, tmpDir string) (string, error) {
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return "", rterrors.Wrap(rterrors.IoFailed, err, "create temp directory %q", tmpDir)
	}

	label := strings.Join(srcDirs, ", ")
	outPath := filepath.Join(tmpDir, "rtags-"+uuid.NewString()+"."+spec.Extension())
	args := spec.ArgsMulti(srcDirs, outPath)

	cmd := exec.CommandContext(ctx, spec.ToolPath, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if _, statErr := os.Stat(outPath); statErr != nil {
			if ctx.Err() != nil {
				return "", rterrors.Wrap(rterrors.ToolSpawn, ctx.Err(), "%s canceled while tagging %s", spec.ToolPath, label)
			}
			if errors.Is(err, exec.ErrNotFound) {
				return "", rterrors.Wrap(rterrors.ToolSpawn, err, "couldn't run %s to tag %s", spec.ToolPath, label)
			}
			if stdout.Len() == 0 && stderr.Len() == 0 {
				return "", rterrors.Wrap(rterrors.ToolSilent, err, "%s failed silently tagging %s", spec.ToolPath, label)
			}
			return "", rterrors.New(rterrors.ToolFailed, "%s failed tagging %s: %v: %s", spec.ToolPath, label, err, stderr.String())
		}
		// The tool wrote an output file despite a non-zero exit (some
		// versions do this on recoverable per-file parse warnings); treat
		// that as success rather than discard usable tags.
	}

	info, err := os.Stat(outPath)
	if err != nil {
		return "", rterrors.Wrap(rterrors.ToolSilent, err, "%s produced no output tagging %s", spec.ToolPath, label)
	}
	if info.Size() == 0 {
		return "", rterrors.New(rterrors.ToolSilent, "%s produced an empty tags file for %s", spec.ToolPath, label)
	}

	return outPath, nil
}
