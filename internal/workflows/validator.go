package workflows

import (
	"fmt"
	"strings"
)

// ValidationIssue is a structured validation error for LLM- and
// operator-friendly authoring feedback.
type ValidationIssue struct {
	Code    string `json:"code"`
	Path    string `json:"path"`
	Message string `json:"message"`
	Hint    string `json:"hint,omitempty"`
}

// ValidationResult aggregates the errors found while validating one
// definition. A definition with any Errors is rejected in its entirety.
type ValidationResult struct {
	Errors []ValidationIssue `json:"errors"`
}

func (r *ValidationResult) fail(code, path, message, hint string) {
	r.Errors = append(r.Errors, ValidationIssue{Code: code, Path: path, Message: message, Hint: hint})
}

func (r *ValidationResult) ok() bool {
	return len(r.Errors) == 0
}

// Valid reports whether a ValidationResult has no errors; exported for
// callers outside the package.
func (r ValidationResult) Valid() bool {
	return len(r.Errors) == 0
}

// IsSafeCommandName implements the command-name safety predicate:
// non-empty, no path separators or traversal, and not dotfile-shaped.
func IsSafeCommandName(name string) bool {
	if name == "" {
		return false
	}
	if strings.Contains(name, "/") || strings.Contains(name, "\\") {
		return false
	}
	if strings.Contains(name, "..") {
		return false
	}
	if strings.HasPrefix(name, ".") {
		return false
	}
	return true
}

// Validate checks the structural invariants of a Definition: exactly one
// of (non-empty Steps) or (Loop + non-empty Prompt), well-formed loop
// config, safe command names, and well-formed parallel blocks (depth 1,
// at least one member). It normalizes an unrecognized Provider to
// ProviderClaude; an absent Provider stays empty and ResolvedProvider
// reports it as claude.
func Validate(def *Definition) ValidationResult {
	var result ValidationResult

	if strings.TrimSpace(def.Name) == "" {
		result.fail("MISSING_NAME", "/name", "Workflow name is required", "Add a non-empty 'name' field.")
	}
	if strings.TrimSpace(def.Description) == "" {
		result.fail("MISSING_DESCRIPTION", "/description", "Workflow description is required", "Add a non-empty 'description' field.")
	}

	hasSteps := len(def.Steps) > 0
	hasLoop := def.Loop != nil

	switch {
	case hasSteps && hasLoop:
		result.fail("AMBIGUOUS_SHAPE", "/", "Workflow must not declare both 'steps' and 'loop'", "Pick exactly one of a step sequence or a loop.")
	case !hasSteps && !hasLoop:
		result.fail("MISSING_SHAPE", "/", "Workflow must declare either 'steps' or 'loop'+'prompt'", "Add a 'steps' array, or a 'loop' block with a 'prompt'.")
	case hasSteps:
		validateSteps(def.Steps, &result)
	case hasLoop:
		validateLoop(def.Loop, &result)
		if strings.TrimSpace(def.Prompt) == "" {
			result.fail("MISSING_LOOP_PROMPT", "/prompt", "Loop workflows require a non-empty 'prompt'", "Add the prompt the loop repeats each iteration.")
		}
	}

	if def.Provider != "" && def.Provider != string(ProviderClaude) && def.Provider != string(ProviderCodex) {
		def.Provider = string(ProviderClaude)
	}

	return result
}

func validateSteps(steps []WorkflowStep, result *ValidationResult) {
	for i, step := range steps {
		path := fmt.Sprintf("/steps/%d", i)
		if step.IsParallel() {
			validateParallelBlock(step, path, result)
			continue
		}
		if !IsSafeCommandName(step.Command) {
			result.fail("UNSAFE_COMMAND_NAME", path+"/command",
				fmt.Sprintf("Command name %q is not safe", step.Command),
				"Command names must be non-empty, contain no '/', '\\', or '..', and not start with '.'.")
		}
	}
}

func validateParallelBlock(block WorkflowStep, path string, result *ValidationResult) {
	if len(block.Parallel) < 1 {
		result.fail("EMPTY_PARALLEL_BLOCK", path+"/parallel", "Parallel block must contain at least one step", "Add one or more 'command' entries under 'parallel'.")
		return
	}
	for i, child := range block.Parallel {
		childPath := fmt.Sprintf("%s/parallel/%d", path, i)
		if child.IsParallel() {
			result.fail("NESTED_PARALLEL_BLOCK", childPath, "Parallel blocks must not nest", "Flatten nested 'parallel' blocks; only one level is supported.")
			continue
		}
		if !IsSafeCommandName(child.Command) {
			result.fail("UNSAFE_COMMAND_NAME", childPath+"/command",
				fmt.Sprintf("Command name %q is not safe", child.Command),
				"Command names must be non-empty, contain no '/', '\\', or '..', and not start with '.'.")
		}
	}
}

func validateLoop(loop *LoopConfig, result *ValidationResult) {
	if strings.TrimSpace(loop.Until) == "" {
		result.fail("MISSING_LOOP_SIGNAL", "/loop/until", "Loop 'until' signal is required and must not be blank", "Set 'until' to the completion token the loop watches for.")
	}
	if loop.MaxIterations < 1 {
		result.fail("INVALID_MAX_ITERATIONS", "/loop/max_iterations", "Loop 'max_iterations' must be a positive integer", "Set 'max_iterations' to 1 or greater.")
	}
}
