package taggen

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/rusty-tags/rtags/pkg/rterrors"
	"github.com/rusty-tags/rtags/pkg/tagspec"
)

// fakeTool writes a small script standing in for ctags: it writes fixed
// bytes to the -o path it's given, ignoring everything else, and exits 0.
func fakeTool(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake tool script is POSIX shell only")
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "fake-ctags.sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestGenerateWritesTempFile(t *testing.T) {
	tool := fakeTool(t, `
for i in "$@"; do
  if [ "$prev" = "-o" ]; then
    echo "!_TAG_FILE_FORMAT	2" > "$i"
    echo "tag	file.rs	/pattern/" >> "$i"
  fi
  prev="$i"
done
`)
	spec, _ := tagspec.New(tagspec.Vi, tagspec.Universal, tool, "rusty-tags.vi", "rusty-tags.emacs", "")
	srcDir := t.TempDir()
	tmpDir := t.TempDir()

	out, err := Generate(context.Background(), spec, srcDir, tmpDir)
	if err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) == 0 {
		t.Fatal("expected non-empty tags output")
	}
}

func TestGenerateReturnsToolSilentOnNonzeroExitWithNoOutput(t *testing.T) {
	tool := fakeTool(t, `exit 1`)
	spec, _ := tagspec.New(tagspec.Vi, tagspec.Universal, tool, "rusty-tags.vi", "rusty-tags.emacs", "")
	_, err := Generate(context.Background(), spec, t.TempDir(), t.TempDir())
	if rterrors.GetCode(err) != rterrors.ToolSilent {
		t.Fatalf("expected ToolSilent, got %v", err)
	}
}

func TestGenerateReturnsToolSilentOnEmptyOutput(t *testing.T) {
	tool := fakeTool(t, `
for i in "$@"; do
  if [ "$prev" = "-o" ]; then
    : > "$i"
  fi
  prev="$i"
done
`)
	spec, _ := tagspec.New(tagspec.Vi, tagspec.Universal, tool, "rusty-tags.vi", "rusty-tags.emacs", "")
	_, err := Generate(context.Background(), spec, t.TempDir(), t.TempDir())
	if rterrors.GetCode(err) != rterrors.ToolSilent {
		t.Fatalf("expected ToolSilent, got %v", err)
	}
}
