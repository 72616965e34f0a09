// Package srclock provides a non-blocking, advisory, per-source lock: a
// hint that another rtags run is already tagging the same source, not a
// correctness invariant. Losing a race here means skipping and logging,
// never corrupting output.
package srclock

import (
	"os"
	"path/filepath"

	"github.com/rusty-tags/rtags/pkg/rterrors"
)

// Lock represents an attempt to claim exclusive tagging rights over one
// source directory.
type Lock struct {
	path string
	file *os.File
	// Held is true if this call created the lock file; false if another
	// process already holds it (an Observe, not a Hold).
	Held bool
}

// path is kept at package scope for testability instead of being computed
// inline in Acquire, so tests can predict it without reaching into the fs.
func path(lockDir, name, hash, ext string) string {
	return filepath.Join(lockDir, name+"-"+hash+"."+ext)
}

// Acquire attempts to claim a non-blocking, exclusive lock for one source.
// If the lock file already exists, Acquire returns a Lock with Held=false
// (an Observe) and a rterrors.LockObserved error the caller can use to
// decide to skip the source this run; this is informational, not fatal.
func Acquire(lockDir, name, hash, ext string) (*Lock, error) {
	if err := os.MkdirAll(lockDir, 0o755); err != nil {
		return nil, rterrors.Wrap(rterrors.IoFailed, err, "create lock directory %q", lockDir)
	}

	p := path(lockDir, name, hash, ext)
	f, err := os.OpenFile(p, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return &Lock{path: p, Held: false}, rterrors.New(rterrors.LockObserved,
				"another process already holds the lock for %s (%s)", name, p)
		}
		return nil, rterrors.Wrap(rterrors.IoFailed, err, "create lock file %q", p)
	}
	return &Lock{path: p, file: f, Held: true}, nil
}

// Release removes the lock file. It's a no-op if this Lock didn't end up
// Held (an Observe never owns the file, so it must never remove it out
// from under the process that does).
func (l *Lock) Release() error {
	if l == nil || !l.Held {
		return nil
	}
	if l.file != nil {
		_ = l.file.Close()
	}
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return rterrors.Wrap(rterrors.IoFailed, err, "remove lock file %q", l.path)
	}
	return nil
}
