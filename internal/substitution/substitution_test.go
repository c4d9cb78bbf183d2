package substitution

import "testing"

func TestSubstituteUnconditionalReplacements(t *testing.T) {
	out, contextSubstituted := Substitute("Workflow $WORKFLOW_ID says: $USER_MESSAGE and $ARGUMENTS", Input{
		WorkflowID: "wf-1",
		Message:    "hello",
	})
	if out != "Workflow wf-1 says: hello and hello" {
		t.Fatalf("unexpected substitution: %q", out)
	}
	if contextSubstituted {
		t.Fatalf("expected contextSubstituted=false when no placeholder present")
	}
}

func TestSubstituteContextPlaceholdersTogether(t *testing.T) {
	out, contextSubstituted := Substitute("ctx=$CONTEXT ext=$EXTERNAL_CONTEXT issue=$ISSUE_CONTEXT", Input{
		Context:    "PR #42",
		HasContext: true,
	})
	if out != "ctx=PR #42 ext=PR #42 issue=PR #42" {
		t.Fatalf("unexpected substitution: %q", out)
	}
	if !contextSubstituted {
		t.Fatalf("expected contextSubstituted=true")
	}
}

func TestSubstituteContextPlaceholderWithoutContextProvided(t *testing.T) {
	out, contextSubstituted := Substitute("ctx=$CONTEXT", Input{})
	if out != "ctx=" {
		t.Fatalf("unexpected substitution: %q", out)
	}
	if contextSubstituted {
		t.Fatalf("expected contextSubstituted=false when no context was supplied")
	}
}

func TestAppendUnconsumedContextAppendsWhenNotConsumed(t *testing.T) {
	in := Input{Context: "extra info", HasContext: true}
	result := AppendUnconsumedContext("prompt body", in, false)
	if result != "prompt body\n\n---\n\nextra info" {
		t.Fatalf("unexpected append: %q", result)
	}
}

func TestAppendUnconsumedContextSkipsWhenConsumed(t *testing.T) {
	in := Input{Context: "extra info", HasContext: true}
	result := AppendUnconsumedContext("prompt body with extra info inline", in, true)
	if result != "prompt body with extra info inline" {
		t.Fatalf("expected no append, got %q", result)
	}
}

func TestAppendUnconsumedContextSkipsWhenNoContext(t *testing.T) {
	result := AppendUnconsumedContext("prompt body", Input{}, false)
	if result != "prompt body" {
		t.Fatalf("expected no append, got %q", result)
	}
}
