package engine

import (
	"context"
	"sync"

	"archon/internal/assistant"
	"archon/internal/commands"
	"archon/internal/config"
	"archon/internal/engine/runlog"
	"archon/internal/engine/telemetry"
	"archon/internal/platform"
	"archon/internal/store"
	"archon/internal/workflows"
)

// IssueContext is the optional external context (issue/PR body, review
// diff, etc.) a caller supplies alongside the triggering user message; it
// feeds the $CONTEXT/$EXTERNAL_CONTEXT/$ISSUE_CONTEXT substitution
// placeholders.
type IssueContext struct {
	Text    string
	Present bool
}

// runContext is the state threaded through one dispatch: the step, loop,
// and parallel-block executors all read and mutate it. It is owned by a
// single goroutine except for the session id and the drop counter, which
// are guarded by mu because parallel sub-steps run concurrently; the
// parallel-block executor resets the session id after its fan-out join.
type runContext struct {
	ctx    context.Context
	disp   *Dispatcher
	def    *workflows.Definition
	run    *store.WorkflowRun
	plat   platform.Platform
	res    *commands.Resolver
	log    *runlog.Logger
	asst   assistant.Assistant
	cwd    string
	issue  IssueContext

	mu          sync.Mutex
	sessionID   string // "" means the next step starts a fresh session
	dropCount   int
}

func (rc *runContext) currentSessionID() string {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.sessionID
}

func (rc *runContext) setSessionID(id string) {
	rc.mu.Lock()
	rc.sessionID = id
	rc.mu.Unlock()
}

func (rc *runContext) recordDrop() {
	rc.mu.Lock()
	rc.dropCount++
	rc.mu.Unlock()
}

func (rc *runContext) drops() int {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.dropCount
}

// resetDrops zeroes the drop counter; called at the start of each step or
// loop iteration so a reported drop count never carries over stale drops
// from an earlier step/iteration.
func (rc *runContext) resetDrops() {
	rc.mu.Lock()
	rc.dropCount = 0
	rc.mu.Unlock()
}

// buildAssistant constructs the Assistant for a workflow definition's
// resolved provider, layering the workflow's optional model override on
// top of the provider's configured defaults.
func buildAssistant(cfg *config.Config, def *workflows.Definition) assistant.Assistant {
	provider := def.ResolvedProvider()
	if cfg == nil {
		cfg = &config.Config{}
	}

	var pcfg config.ProviderConfig
	var assistantProvider assistant.Provider
	if provider == workflows.ProviderCodex {
		pcfg = cfg.Assistant.Codex
		assistantProvider = assistant.ProviderCodex
	} else {
		pcfg = cfg.Assistant.Claude
		assistantProvider = assistant.ProviderClaude
	}

	model := pcfg.Model
	if def.Model != "" {
		model = def.Model
	}

	return assistant.NewAssistant(assistantProvider, assistant.Config{
		BinaryPath:      pcfg.BinaryPath,
		Model:           model,
		MaxTurns:        pcfg.MaxTurns,
		AllowedTools:    pcfg.AllowedTools,
		DisallowedTools: pcfg.DisallowedTools,
	})
}
