package router

import (
	"strings"
	"testing"
)

func TestBuildPromptListsWorkflowsWithIndentedDescriptions(t *testing.T) {
	prompt := BuildPrompt("fix the bug", []WorkflowOption{
		{Name: "bug-fix", Description: "Fixes a bug.\nRuns tests after."},
	}, Context{})

	if !containsAll(prompt, "**bug-fix** Fixes a bug.", "  Runs tests after.", "/invoke-workflow <name>") {
		t.Fatalf("prompt missing expected structure: %s", prompt)
	}
}

func TestBuildPromptOmitsContextSectionWhenEmpty(t *testing.T) {
	prompt := BuildPrompt("hello", nil, Context{})
	if containsAll(prompt, "Context:") {
		t.Fatalf("expected no Context section, got: %s", prompt)
	}
}

func TestBuildPromptPrefersIsPullRequestOverWorkflowType(t *testing.T) {
	prompt := BuildPrompt("hello", nil, Context{HasIsPR: true, IsPullRequest: true, WorkflowType: "release"})
	if !containsAll(prompt, "Type: Pull Request") || containsAll(prompt, "Type: release") {
		t.Fatalf("expected Pull Request type to win: %s", prompt)
	}
}

func TestBuildPromptFallsBackToWorkflowType(t *testing.T) {
	prompt := BuildPrompt("hello", nil, Context{WorkflowType: "release"})
	if !containsAll(prompt, "Type: release") {
		t.Fatalf("expected workflowType fallback: %s", prompt)
	}
}

func TestBuildPromptSuppressesEmptyLabelsAndHistory(t *testing.T) {
	prompt := BuildPrompt("hello", nil, Context{PlatformType: "github", Labels: nil, ThreadHistory: nil})
	if strings.Contains(prompt, "Labels:") || strings.Contains(prompt, "Thread history:") {
		t.Fatalf("expected no labels/history sections: %s", prompt)
	}
}

func TestParseFindsDirectiveAnywhereInMultilineText(t *testing.T) {
	workflows := []WorkflowOption{{Name: "bug-fix"}}
	text := "Let me think about this.\nAnalysis complete.\n/invoke-workflow bug-fix\nExtra trailing text."

	result := Parse(text, workflows)
	if result.WorkflowName != "bug-fix" {
		t.Fatalf("expected bug-fix, got %q", result.WorkflowName)
	}
	if result.RemainingMessage != "Extra trailing text." {
		t.Fatalf("unexpected remaining message: %q", result.RemainingMessage)
	}
}

func TestParseIsCaseInsensitiveOnDirectiveButCaseSensitiveOnName(t *testing.T) {
	workflows := []WorkflowOption{{Name: "Bug-Fix"}}
	text := "/INVOKE-WORKFLOW Bug-Fix"
	result := Parse(text, workflows)
	if result.WorkflowName != "Bug-Fix" {
		t.Fatalf("expected case-insensitive directive match, got %+v", result)
	}

	text2 := "/invoke-workflow bug-fix"
	result2 := Parse(text2, workflows)
	if result2.WorkflowName != "" {
		t.Fatalf("expected case-sensitive name mismatch to fail, got %+v", result2)
	}
}

func TestParseReturnsOriginalTextWhenNoMatch(t *testing.T) {
	text := "no directive here"
	result := Parse(text, nil)
	if result.WorkflowName != "" || result.RemainingMessage != text {
		t.Fatalf("expected passthrough, got %+v", result)
	}
}

func containsAll(haystack string, needles ...string) bool {
	for _, n := range needles {
		if !strings.Contains(haystack, n) {
			return false
		}
	}
	return true
}
