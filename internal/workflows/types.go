package workflows

import "errors"

// ErrValidation indicates a workflow definition failed validation and was
// rejected in its entirety.
var ErrValidation = errors.New("workflow validation failed")

// Provider selects which AI assistant CLI backs a workflow's steps.
type Provider string

const (
	ProviderClaude Provider = "claude"
	ProviderCodex  Provider = "codex"
)

// Definition is the discriminated union of StepWorkflow and LoopWorkflow.
// Exactly one of Steps or Loop+Prompt is populated; Validate enforces the
// mutual exclusivity.
type Definition struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
	Provider    string `yaml:"provider,omitempty" json:"provider,omitempty"`
	Model       string `yaml:"model,omitempty" json:"model,omitempty"`

	Steps []WorkflowStep `yaml:"steps,omitempty" json:"steps,omitempty"`

	Loop   *LoopConfig `yaml:"loop,omitempty" json:"loop,omitempty"`
	Prompt string      `yaml:"prompt,omitempty" json:"prompt,omitempty"`

	// SourcePath is the file the definition was loaded from; set by the
	// Loader and not part of the YAML schema.
	SourcePath string `yaml:"-" json:"-"`
}

// IsLoop reports whether this definition is a LoopWorkflow.
func (d *Definition) IsLoop() bool {
	return d.Loop != nil
}

// ResolvedProvider returns the normalized provider, defaulting to claude.
func (d *Definition) ResolvedProvider() Provider {
	if d.Provider == string(ProviderCodex) {
		return ProviderCodex
	}
	return ProviderClaude
}

// LoopConfig is the Ralph-style iteration config of a LoopWorkflow.
type LoopConfig struct {
	Until         string `yaml:"until" json:"until"`
	MaxIterations int    `yaml:"max_iterations" json:"max_iterations"`
	FreshContext  bool   `yaml:"fresh_context,omitempty" json:"fresh_context,omitempty"`
}

// WorkflowStep is the discriminated union of SingleStep and ParallelBlock.
// Raw YAML is decoded into this shape by UnmarshalYAML; exactly one of
// Command/Parallel is populated after decode.
type WorkflowStep struct {
	// SingleStep fields.
	Command      string `yaml:"-" json:"command,omitempty"`
	ClearContext bool   `yaml:"-" json:"clearContext,omitempty"`

	// ParallelBlock fields.
	Parallel []WorkflowStep `yaml:"-" json:"parallel,omitempty"`
}

// IsParallel reports whether this step is a ParallelBlock rather than a
// SingleStep.
func (s WorkflowStep) IsParallel() bool {
	return s.Parallel != nil
}

// rawWorkflowStep mirrors the on-disk YAML shape before discrimination: a
// SingleStep has `command` (or the legacy `step` alias) and optional
// `clearContext`; a ParallelBlock has `parallel`.
type rawWorkflowStep struct {
	Command      string            `yaml:"command"`
	LegacyStep   string            `yaml:"step"`
	ClearContext bool              `yaml:"clearContext"`
	Parallel     []rawWorkflowStep `yaml:"parallel"`
}

// UnmarshalYAML discriminates a WorkflowStep node into a SingleStep or a
// ParallelBlock, honoring the `step` legacy alias for `command`.
func (s *WorkflowStep) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw rawWorkflowStep
	if err := unmarshal(&raw); err != nil {
		return err
	}
	*s = stepFromRaw(raw)
	return nil
}

func stepFromRaw(raw rawWorkflowStep) WorkflowStep {
	if raw.Parallel != nil {
		children := make([]WorkflowStep, len(raw.Parallel))
		for i, c := range raw.Parallel {
			children[i] = stepFromRaw(c)
		}
		return WorkflowStep{Parallel: children}
	}
	cmd := raw.Command
	if cmd == "" {
		cmd = raw.LegacyStep
	}
	return WorkflowStep{Command: cmd, ClearContext: raw.ClearContext}
}
