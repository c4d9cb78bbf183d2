package workflows

import "testing"

func TestValidateRequiresNameAndDescription(t *testing.T) {
	def := Definition{Steps: []WorkflowStep{{Command: "review"}}}
	result := Validate(&def)
	if result.ok() {
		t.Fatalf("expected errors for missing name/description")
	}
	codes := issueCodes(result)
	if !contains(codes, "MISSING_NAME") || !contains(codes, "MISSING_DESCRIPTION") {
		t.Fatalf("expected MISSING_NAME and MISSING_DESCRIPTION, got %v", codes)
	}
}

func TestValidateRejectsBothStepsAndLoop(t *testing.T) {
	def := Definition{
		Name:        "dual",
		Description: "has both shapes",
		Steps:       []WorkflowStep{{Command: "review"}},
		Loop:        &LoopConfig{Until: "DONE", MaxIterations: 3},
		Prompt:      "keep going",
	}
	result := Validate(&def)
	if !contains(issueCodes(result), "AMBIGUOUS_SHAPE") {
		t.Fatalf("expected AMBIGUOUS_SHAPE, got %+v", result.Errors)
	}
}

func TestValidateRejectsNeitherStepsNorLoop(t *testing.T) {
	def := Definition{Name: "empty", Description: "no shape"}
	result := Validate(&def)
	if !contains(issueCodes(result), "MISSING_SHAPE") {
		t.Fatalf("expected MISSING_SHAPE, got %+v", result.Errors)
	}
}

func TestValidateStepWorkflowAccepted(t *testing.T) {
	def := Definition{
		Name:        "review-pr",
		Description: "runs a review",
		Steps: []WorkflowStep{
			{Command: "lint"},
			{Parallel: []WorkflowStep{{Command: "unit-tests"}, {Command: "integration-tests"}}},
		},
	}
	result := Validate(&def)
	if !result.ok() {
		t.Fatalf("expected no errors, got %+v", result.Errors)
	}
}

func TestValidateRejectsNestedParallelBlock(t *testing.T) {
	def := Definition{
		Name:        "nested",
		Description: "nested parallel",
		Steps: []WorkflowStep{
			{Parallel: []WorkflowStep{
				{Parallel: []WorkflowStep{{Command: "a"}}},
			}},
		},
	}
	result := Validate(&def)
	if !contains(issueCodes(result), "NESTED_PARALLEL_BLOCK") {
		t.Fatalf("expected NESTED_PARALLEL_BLOCK, got %+v", result.Errors)
	}
}

func TestValidateRejectsEmptyParallelBlock(t *testing.T) {
	def := Definition{
		Name:        "empty-parallel",
		Description: "no members",
		Steps:       []WorkflowStep{{Parallel: []WorkflowStep{}}},
	}
	result := Validate(&def)
	if !contains(issueCodes(result), "EMPTY_PARALLEL_BLOCK") {
		t.Fatalf("expected EMPTY_PARALLEL_BLOCK, got %+v", result.Errors)
	}
}

func TestValidateRejectsUnsafeCommandNames(t *testing.T) {
	cases := []string{"../escape", "a/b", "a\\b", ".hidden", ""}
	for _, name := range cases {
		def := Definition{
			Name:        "unsafe",
			Description: "bad command name",
			Steps:       []WorkflowStep{{Command: name}},
		}
		result := Validate(&def)
		if !contains(issueCodes(result), "UNSAFE_COMMAND_NAME") {
			t.Fatalf("command %q: expected UNSAFE_COMMAND_NAME, got %+v", name, result.Errors)
		}
	}
}

func TestValidateLoopWorkflow(t *testing.T) {
	def := Definition{
		Name:        "ralph-loop",
		Description: "iterates until done",
		Loop:        &LoopConfig{Until: "DONE", MaxIterations: 5},
		Prompt:      "keep iterating",
	}
	result := Validate(&def)
	if !result.ok() {
		t.Fatalf("expected no errors, got %+v", result.Errors)
	}
}

func TestValidateLoopRequiresUntilAndMaxIterations(t *testing.T) {
	def := Definition{
		Name:        "bad-loop",
		Description: "missing loop fields",
		Loop:        &LoopConfig{Until: "   ", MaxIterations: 0},
		Prompt:      "go",
	}
	result := Validate(&def)
	codes := issueCodes(result)
	if !contains(codes, "MISSING_LOOP_SIGNAL") || !contains(codes, "INVALID_MAX_ITERATIONS") {
		t.Fatalf("expected MISSING_LOOP_SIGNAL and INVALID_MAX_ITERATIONS, got %+v", result.Errors)
	}
}

func TestValidateLoopRequiresPrompt(t *testing.T) {
	def := Definition{
		Name:        "no-prompt",
		Description: "loop without prompt",
		Loop:        &LoopConfig{Until: "DONE", MaxIterations: 1},
	}
	result := Validate(&def)
	if !contains(issueCodes(result), "MISSING_LOOP_PROMPT") {
		t.Fatalf("expected MISSING_LOOP_PROMPT, got %+v", result.Errors)
	}
}

func TestValidateNormalizesUnknownProvider(t *testing.T) {
	def := Definition{
		Name:        "weird-provider",
		Description: "unknown provider string",
		Provider:    "gpt-5",
		Steps:       []WorkflowStep{{Command: "review"}},
	}
	Validate(&def)
	if def.ResolvedProvider() != ProviderClaude {
		t.Fatalf("expected normalization to claude, got %q", def.Provider)
	}
}

func TestValidatePreservesCodexProvider(t *testing.T) {
	def := Definition{
		Name:        "codex-provider",
		Description: "explicit codex",
		Provider:    "codex",
		Steps:       []WorkflowStep{{Command: "review"}},
	}
	Validate(&def)
	if def.ResolvedProvider() != ProviderCodex {
		t.Fatalf("expected codex to be preserved, got %q", def.Provider)
	}
}

func issueCodes(result ValidationResult) []string {
	codes := make([]string, len(result.Errors))
	for i, issue := range result.Errors {
		codes[i] = issue.Code
	}
	return codes
}

func contains(haystack []string, needle string) bool {
	for _, v := range haystack {
		if v == needle {
			return true
		}
	}
	return false
}
