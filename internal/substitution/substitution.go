// Package substitution performs the template variable replacement used
// when building a step's prompt: workflow id, user message, and optional
// issue/PR context.
package substitution

import "strings"

const contextAppendSeparator = "\n\n---\n\n"

// Input bundles the values a template may reference.
type Input struct {
	WorkflowID string
	Message    string
	Context    string
	HasContext bool
}

var contextPlaceholders = []string{"$CONTEXT", "$EXTERNAL_CONTEXT", "$ISSUE_CONTEXT"}

// Substitute replaces $WORKFLOW_ID, $USER_MESSAGE, and $ARGUMENTS
// unconditionally (the latter two both substitute Input.Message), and, if
// any of $CONTEXT/$EXTERNAL_CONTEXT/$ISSUE_CONTEXT appears in template,
// replaces all three with Input.Context (or empty string if none was
// provided). It returns the substituted text and whether a context
// placeholder was present and context was supplied.
func Substitute(template string, in Input) (string, bool) {
	out := template
	out = strings.ReplaceAll(out, "$WORKFLOW_ID", in.WorkflowID)
	out = strings.ReplaceAll(out, "$USER_MESSAGE", in.Message)
	out = strings.ReplaceAll(out, "$ARGUMENTS", in.Message)

	hasPlaceholder := false
	for _, ph := range contextPlaceholders {
		if strings.Contains(out, ph) {
			hasPlaceholder = true
			break
		}
	}

	contextSubstituted := hasPlaceholder && in.HasContext

	if hasPlaceholder {
		ctx := in.Context
		for _, ph := range contextPlaceholders {
			out = strings.ReplaceAll(out, ph, ctx)
		}
	}

	return out, contextSubstituted
}

// AppendUnconsumedContext applies the central duplication guard:
// if the caller has context but the template never consumed it via a
// placeholder, the raw context is appended, separated from the template
// output by a horizontal rule. If contextSubstituted is true the context
// was already consumed in-place and nothing is appended.
func AppendUnconsumedContext(substituted string, in Input, contextSubstituted bool) string {
	if !in.HasContext || contextSubstituted {
		return substituted
	}
	return substituted + contextAppendSeparator + in.Context
}
