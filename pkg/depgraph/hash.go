package depgraph

import (
	"hash/fnv"
	"path/filepath"
	"strconv"
)

// HashDir returns a stable decimal digest of an absolute directory path,
// used to name cache/lock entries. Any stable 64-bit hash works; FNV-1a is
// used here for its simplicity and zero dependencies, matching the
// teacher's preference for stdlib hashing over pulling in a hashing
// library when the standard one suffices (see DESIGN.md).
func HashDir(dir string) string {
	abs, err := filepath.Abs(dir)
	if err != nil {
		abs = dir
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(abs))
	return strconv.FormatUint(h.Sum64(), 10)
}
