// Package atomicfile publishes file contents via write-to-temp-then-rename,
// so a reader never observes a partially written tags file.
package atomicfile

import (
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/rusty-tags/rtags/pkg/rterrors"
)

// Write creates dest atomically: the content is written to a temp file in
// dest's own directory (so the final rename is same-filesystem) and then
// renamed into place. On any failure after the temp file is created, it's
// removed before returning.
func Write(dest string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return rterrors.Wrap(rterrors.IoFailed, err, "create directory %q", dir)
	}

	tmp := filepath.Join(dir, ".rtags-"+uuid.NewString()+".tmp")
	if err := os.WriteFile(tmp, data, perm); err != nil {
		return rterrors.Wrap(rterrors.IoFailed, err, "write temp file %q", tmp)
	}

	if err := os.Rename(tmp, dest); err != nil {
		_ = os.Remove(tmp)
		return rterrors.Wrap(rterrors.IoFailed, err, "rename %q to %q", tmp, dest)
	}
	return nil
}
