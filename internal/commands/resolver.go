// Package commands resolves a workflow step's command name to the
// markdown prompt file it names, searching a layered list of folders.
package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"archon/internal/workflows"
)

// Reason discriminates why command resolution did not return content.
type Reason string

const (
	ReasonInvalidName      Reason = "invalid_name"
	ReasonEmptyFile        Reason = "empty_file"
	ReasonNotFound         Reason = "not_found"
	ReasonPermissionDenied Reason = "permission_denied"
	ReasonReadError        Reason = "read_error"
)

// Result is the discriminated outcome of a Resolve call: either Content
// is populated and Reason is empty, or Reason explains the failure.
type Result struct {
	Content string
	Reason  Reason
	Message string
}

// Ok reports whether resolution produced usable content.
func (r Result) Ok() bool {
	return r.Reason == ""
}

// Resolver tries each configured folder in order, reading
// <folder>/<commandName>.md relative to the working tree.
type Resolver struct {
	folders []string
}

// NewResolver builds a Resolver over the given folders, searched in the
// order given.
func NewResolver(folders ...string) *Resolver {
	return &Resolver{folders: folders}
}

// Resolve looks up commandName across the resolver's folders and returns
// its prompt content, or a reasoned failure.
func (r *Resolver) Resolve(commandName string) Result {
	if !workflows.IsSafeCommandName(commandName) {
		return Result{
			Reason:  ReasonInvalidName,
			Message: fmt.Sprintf("command name %q is not safe", commandName),
		}
	}

	searched := make([]string, 0, len(r.folders))
	for _, folder := range r.folders {
		path := filepath.Join(folder, commandName+".md")
		searched = append(searched, path)

		content, err := os.ReadFile(path)
		switch {
		case err == nil:
			if strings.TrimSpace(string(content)) == "" {
				return Result{Reason: ReasonEmptyFile, Message: fmt.Sprintf("command file %q is whitespace-only", path)}
			}
			return Result{Content: string(content)}
		case errors.Is(err, os.ErrNotExist):
			continue
		case errors.Is(err, os.ErrPermission):
			return Result{Reason: ReasonPermissionDenied, Message: fmt.Sprintf("permission denied reading %q", path)}
		default:
			return Result{Reason: ReasonReadError, Message: fmt.Sprintf("reading %q: %v", path, err)}
		}
	}

	return Result{
		Reason:  ReasonNotFound,
		Message: fmt.Sprintf("command %q not found; searched: %s", commandName, strings.Join(searched, ", ")),
	}
}
