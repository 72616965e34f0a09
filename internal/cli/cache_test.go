package cli

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCacheClearRemovesFilesUnderTagsDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CACHE_HOME", "")

	tagsDir := filepath.Join(home, ".cache", "rusty-tags", "tags")
	if err := os.MkdirAll(tagsDir, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(filepath.Join(tagsDir, "foo-1.0.0.vi"), []byte("!_TAG_FILE_SORTED\t1\t\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	c := &CLI{Logger: newLogger(os.Stderr, LogError)}
	cmd := c.cacheClearCommand()
	cmd.SetArgs(nil)
	if err := cmd.RunE(cmd, nil); err != nil {
		t.Fatalf("cache clear: %v", err)
	}

	entries, err := os.ReadDir(tagsDir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected tags dir empty after clear, got %d entries", len(entries))
	}
}

func TestCacheClearOnMissingDirIsNotAnError(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CACHE_HOME", "")

	c := &CLI{Logger: newLogger(os.Stderr, LogError)}
	cmd := c.cacheClearCommand()
	if err := cmd.RunE(cmd, nil); err != nil {
		t.Fatalf("cache clear on missing dir: %v", err)
	}
}

func TestCachePathPrintsTagsSubdir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CACHE_HOME", "")

	c := &CLI{Logger: newLogger(os.Stderr, LogError)}
	cmd := c.cachePathCommand()
	if err := cmd.RunE(cmd, nil); err != nil {
		t.Fatalf("cache path: %v", err)
	}
}
