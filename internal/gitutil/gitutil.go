// Package gitutil shells out to the system git binary to auto-commit
// workflow artifacts at terminal run states.
package gitutil

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// CommitResult reports whether commitAllChanges found anything to
// commit and, if so, the commit it produced.
type CommitResult struct {
	Committed  bool
	CommitHash string
}

// CommitAllChanges stages every change in cwd and commits it with
// message. If the working tree is clean, it reports Committed=false
// without creating an empty commit.
func CommitAllChanges(ctx context.Context, cwd, message string) (CommitResult, error) {
	if err := runGit(ctx, cwd, "add", "-A"); err != nil {
		return CommitResult{}, fmt.Errorf("git add: %w", err)
	}

	clean, err := isIndexClean(ctx, cwd)
	if err != nil {
		return CommitResult{}, fmt.Errorf("git diff --cached: %w", err)
	}
	if clean {
		return CommitResult{Committed: false}, nil
	}

	if err := runGit(ctx, cwd, "commit", "-m", message); err != nil {
		return CommitResult{}, fmt.Errorf("git commit: %w", err)
	}

	hash, err := commitHash(ctx, cwd)
	if err != nil {
		return CommitResult{Committed: true}, fmt.Errorf("git rev-parse: %w", err)
	}

	return CommitResult{Committed: true, CommitHash: hash}, nil
}

// WorkingTreePath returns the working tree's top-level directory (via
// `git rev-parse --show-toplevel`, falling back to cwd) for the
// commit-failure warning message.
func WorkingTreePath(ctx context.Context, cwd string) string {
	cmd := exec.CommandContext(ctx, "git", "rev-parse", "--show-toplevel")
	cmd.Dir = cwd
	out, err := cmd.Output()
	if err != nil {
		return cwd
	}
	return strings.TrimSpace(string(out))
}

func isIndexClean(ctx context.Context, cwd string) (bool, error) {
	cmd := exec.CommandContext(ctx, "git", "diff", "--cached", "--quiet")
	cmd.Dir = cwd
	err := cmd.Run()
	if err == nil {
		return true, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
		return false, nil
	}
	return false, err
}

func commitHash(ctx context.Context, cwd string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", "rev-parse", "HEAD")
	cmd.Dir = cwd
	out, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

func runGit(ctx context.Context, cwd string, args ...string) error {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = cwd
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return fmt.Errorf("%w: %s", err, RedactString(msg))
		}
		return err
	}
	return nil
}
