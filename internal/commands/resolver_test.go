package commands

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolverRejectsUnsafeNames(t *testing.T) {
	r := NewResolver(t.TempDir())
	for _, name := range []string{"../escape", "a/b", ".hidden", ""} {
		result := r.Resolve(name)
		if result.Ok() || result.Reason != ReasonInvalidName {
			t.Fatalf("command %q: expected invalid_name, got %+v", name, result)
		}
	}
}

func TestResolverNotFoundAcrossAllFolders(t *testing.T) {
	r := NewResolver(t.TempDir(), t.TempDir())
	result := r.Resolve("review")
	if result.Ok() || result.Reason != ReasonNotFound {
		t.Fatalf("expected not_found, got %+v", result)
	}
}

func TestResolverEmptyFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "review.md"), []byte("   \n\t "), 0644); err != nil {
		t.Fatal(err)
	}
	result := NewResolver(dir).Resolve("review")
	if result.Ok() || result.Reason != ReasonEmptyFile {
		t.Fatalf("expected empty_file, got %+v", result)
	}
}

func TestResolverSuccessReturnsVerbatimContent(t *testing.T) {
	dir := t.TempDir()
	content := "Review this PR for correctness.\n"
	if err := os.WriteFile(filepath.Join(dir, "review.md"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	result := NewResolver(dir).Resolve("review")
	if !result.Ok() || result.Content != content {
		t.Fatalf("expected verbatim content, got %+v", result)
	}
}

func TestResolverSearchesFoldersInOrder(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()
	if err := os.WriteFile(filepath.Join(second, "review.md"), []byte("from second"), 0644); err != nil {
		t.Fatal(err)
	}
	result := NewResolver(first, second).Resolve("review")
	if !result.Ok() || result.Content != "from second" {
		t.Fatalf("expected fallback to second folder, got %+v", result)
	}

	if err := os.WriteFile(filepath.Join(first, "review.md"), []byte("from first"), 0644); err != nil {
		t.Fatal(err)
	}
	result = NewResolver(first, second).Resolve("review")
	if !result.Ok() || result.Content != "from first" {
		t.Fatalf("expected first folder to win, got %+v", result)
	}
}
