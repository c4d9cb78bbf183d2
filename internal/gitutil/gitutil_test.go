package gitutil

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

func initRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	run := func(args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Skipf("git unavailable in this environment: %v: %s", err, out)
		}
	}
	run("init")
	run("config", "user.email", "test@example.com")
	run("config", "user.name", "Test")
	return dir
}

func TestCommitAllChangesCommitsNewFile(t *testing.T) {
	dir := initRepo(t)
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hello"), 0644); err != nil {
		t.Fatal(err)
	}

	result, err := CommitAllChanges(context.Background(), dir, "chore: test commit")
	if err != nil {
		t.Fatalf("CommitAllChanges: %v", err)
	}
	if !result.Committed || result.CommitHash == "" {
		t.Fatalf("expected a commit, got %+v", result)
	}
}

func TestCommitAllChangesNoOpOnCleanTree(t *testing.T) {
	dir := initRepo(t)
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hello"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := CommitAllChanges(context.Background(), dir, "first"); err != nil {
		t.Fatalf("first commit: %v", err)
	}

	result, err := CommitAllChanges(context.Background(), dir, "second")
	if err != nil {
		t.Fatalf("CommitAllChanges: %v", err)
	}
	if result.Committed {
		t.Fatalf("expected no-op on clean tree, got %+v", result)
	}
}
