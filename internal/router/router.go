// Package router builds the workflow-selection prompt sent to the
// assistant and parses its routing decision back out.
package router

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"
)

// WorkflowOption is one selectable workflow surfaced to the router
// prompt.
type WorkflowOption struct {
	Name        string
	Description string
}

// Context carries the optional routing hints a caller may supply about
// the triggering event.
type Context struct {
	PlatformType  string
	IsPullRequest bool
	HasIsPR       bool
	WorkflowType  string
	Title         string
	Labels        []string
	ThreadHistory []string
}

var invokePattern = regexp.MustCompile(`(?im)^/invoke-workflow\s+(\S+)`)

// BuildPrompt renders the natural-language routing prompt listing every
// candidate workflow and, when any routing context is populated, a
// Context section, ending with the instruction to emit the
// /invoke-workflow directive.
func BuildPrompt(message string, workflows []WorkflowOption, ctx Context) string {
	var b strings.Builder

	b.WriteString("A user sent the following message:\n\n")
	b.WriteString(message)
	b.WriteString("\n\n")

	if section := buildContextSection(ctx); section != "" {
		b.WriteString(section)
		b.WriteString("\n")
	}

	b.WriteString("Available workflows:\n\n")
	for _, wf := range workflows {
		b.WriteString(formatWorkflowEntry(wf))
	}

	b.WriteString("\nRespond with exactly one line of the form:\n/invoke-workflow <name>\n")

	return b.String()
}

func formatWorkflowEntry(wf WorkflowOption) string {
	lines := strings.Split(wf.Description, "\n")
	var b strings.Builder
	fmt.Fprintf(&b, "**%s** %s\n", wf.Name, lines[0])
	for _, line := range lines[1:] {
		fmt.Fprintf(&b, "  %s\n", line)
	}
	return b.String()
}

func buildContextSection(ctx Context) string {
	var lines []string

	if ctx.PlatformType != "" {
		lines = append(lines, fmt.Sprintf("Platform: %s", ctx.PlatformType))
	}
	if ctx.Title != "" {
		lines = append(lines, fmt.Sprintf("Title: %s", ctx.Title))
	}
	switch {
	case ctx.HasIsPR:
		if ctx.IsPullRequest {
			lines = append(lines, "Type: Pull Request")
		} else {
			lines = append(lines, "Type: Issue")
		}
	case ctx.WorkflowType != "":
		lines = append(lines, fmt.Sprintf("Type: %s", ctx.WorkflowType))
	}
	if len(ctx.Labels) > 0 {
		lines = append(lines, fmt.Sprintf("Labels: %s", strings.Join(ctx.Labels, ", ")))
	}
	if len(ctx.ThreadHistory) > 0 {
		lines = append(lines, fmt.Sprintf("Thread history:\n%s", strings.Join(ctx.ThreadHistory, "\n")))
	}

	if len(lines) == 0 {
		return ""
	}

	return "Context:\n" + strings.Join(lines, "\n") + "\n"
}

// ParseResult is the outcome of scanning an assistant's raw text for an
// /invoke-workflow directive.
type ParseResult struct {
	WorkflowName     string
	RemainingMessage string
}

// Parse scans text for the first /invoke-workflow directive. If found and
// its name matches one of the known workflows (case-sensitively), it
// returns the matched name and the text following the matched line.
// Otherwise it returns an empty WorkflowName and the original text
// unchanged, logging a warning when a directive was found but its name
// did not match any known workflow.
func Parse(text string, workflows []WorkflowOption) ParseResult {
	loc := invokePattern.FindStringSubmatchIndex(text)
	if loc == nil {
		return ParseResult{RemainingMessage: text}
	}

	name := text[loc[2]:loc[3]]
	if !findWorkflow(name, workflows) {
		slog.Warn("router: invoke-workflow directive named an unknown workflow", "name", name)
		return ParseResult{RemainingMessage: text}
	}

	lineEnd := strings.IndexByte(text[loc[1]:], '\n')
	remaining := ""
	if lineEnd >= 0 {
		remaining = text[loc[1]+lineEnd+1:]
	}

	return ParseResult{WorkflowName: name, RemainingMessage: remaining}
}

func findWorkflow(name string, workflows []WorkflowOption) bool {
	for _, wf := range workflows {
		if wf.Name == name {
			return true
		}
	}
	return false
}
