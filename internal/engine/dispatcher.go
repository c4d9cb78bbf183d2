// Package engine implements the Executor Dispatcher and its Step/Parallel/
// Loop sub-executors: the component that turns a loaded
// WorkflowDefinition into a running, persisted, logged execution against
// an Assistant and a Platform.
package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"archon/internal/assistant"
	"archon/internal/commands"
	"archon/internal/config"
	"archon/internal/engine/runlog"
	"archon/internal/engine/telemetry"
	"archon/internal/errtax"
	"archon/internal/gitutil"
	"archon/internal/platform"
	"archon/internal/store"
	"archon/internal/workflows"
)

// defaultStaleAfter is the staleness window Dispatch uses when
// Dispatcher.Config is nil or sets no positive StaleAfterMinutes.
const defaultStaleAfter = 15 * time.Minute

// Dispatcher owns the pre-flight sequence, dispatch, and top-level
// recovery boundary for one workflow run.
type Dispatcher struct {
	Store     store.Store
	Config    *config.Config
	Telemetry *telemetry.Telemetry

	// AssistantFactory builds the Assistant a run's steps execute
	// against. Defaults to buildAssistant (the real claude/codex
	// subprocess factory); tests override it to inject a scripted
	// assistant.Assistant without touching process state.
	AssistantFactory func(cfg *config.Config, def *workflows.Definition) assistant.Assistant
}

// NewDispatcher builds a Dispatcher from its collaborators.
func NewDispatcher(st store.Store, cfg *config.Config, tel *telemetry.Telemetry) *Dispatcher {
	return &Dispatcher{Store: st, Config: cfg, Telemetry: tel, AssistantFactory: buildAssistant}
}

// Dispatch runs def against conversationID on the given platform. cwd is
// the working tree the assistant operates in and the artifact committer
// commits from. issue carries any external context (issue/PR body) that
// feeds variable substitution.
func (d *Dispatcher) Dispatch(ctx context.Context, def *workflows.Definition, plat platform.Platform, conversationID, codebaseID, userMessage, cwd string, issue IssueContext) {
	staleAfter := defaultStaleAfter
	maxRetries := 0
	if d.Config != nil {
		if d.Config.Engine.StaleAfterMinutes > 0 {
			staleAfter = time.Duration(d.Config.Engine.StaleAfterMinutes) * time.Minute
		}
		maxRetries = d.Config.Engine.MaxCriticalRetries
	}

	active, err := d.Store.GetActiveWorkflowRun(ctx, conversationID)
	if err != nil {
		errtax.SendCriticalMessage(ctx, plat, conversationID, "Unable to verify workflow state (database error); please try again shortly.", errtax.StartupNotificationMaxRetries)
		return
	}

	if active != nil {
		lastActivity := active.StartedAt
		if active.LastActivityAt != nil {
			lastActivity = *active.LastActivityAt
		}
		if time.Since(lastActivity) > staleAfter {
			reason := fmt.Sprintf("timed out after %d minutes of inactivity", int(staleAfter.Minutes()))
			if err := d.Store.FailWorkflowRun(ctx, active.ID, reason); err != nil {
				errtax.SendCriticalMessage(ctx, plat, conversationID, "Workflow blocked, try `/workflow cancel` first", errtax.StartupNotificationMaxRetries)
				return
			}
		} else {
			msg := fmt.Sprintf("⚠️ Workflow `%s` already running (id `%s`)", active.WorkflowName, shortID(active.ID))
			errtax.SendCriticalMessage(ctx, plat, conversationID, msg, errtax.StartupNotificationMaxRetries)
			return
		}
	}

	run, err := d.Store.CreateWorkflowRun(ctx, store.CreateParams{
		WorkflowName:   def.Name,
		ConversationID: conversationID,
		CodebaseID:     codebaseID,
		UserMessage:    userMessage,
	})
	if err != nil {
		errtax.SendCriticalMessage(ctx, plat, conversationID, "Unable to start workflow (database error)", errtax.StartupNotificationMaxRetries)
		return
	}

	logger, logErr := runlog.Open(cwd, run.ID)
	if logErr != nil {
		logger = nil
	}
	logger.Event(runlog.KindWorkflowStart, map[string]interface{}{"workflow_name": def.Name, "content": userMessage})

	commandsFolder := ""
	if d.Config != nil {
		commandsFolder = d.Config.CommandsFolder
	}
	folders := []string{}
	if commandsFolder != "" {
		if !filepath.IsAbs(commandsFolder) {
			commandsFolder = filepath.Join(cwd, commandsFolder)
		}
		folders = append(folders, commandsFolder)
	}
	folders = append(folders, filepath.Join(cwd, ".archon", "commands"))
	resolver := commands.NewResolver(folders...)

	assistantFactory := d.AssistantFactory
	if assistantFactory == nil {
		assistantFactory = buildAssistant
	}

	rc := &runContext{
		ctx:   ctx,
		disp:  d,
		def:   def,
		run:   run,
		plat:  plat,
		res:   resolver,
		log:   logger,
		asst:  assistantFactory(d.Config, def),
		cwd:   cwd,
		issue: issue,
	}

	startup := buildStartupMessage(def)
	errtax.SendCriticalMessage(ctx, plat, conversationID, startup, errtax.StartupNotificationMaxRetries)

	runCtx := ctx
	if d.Telemetry != nil {
		runCtx = d.Telemetry.StartRun(ctx, run.ID, def.Name)
		rc.ctx = runCtx
	}

	start := time.Now()
	status, runErr := d.execute(rc, maxRetries)

	if d.Telemetry != nil {
		d.Telemetry.EndRun(runCtx, run.ID, def.Name, status, time.Since(start), runErr)
	}
}

// execute dispatches to the loop or step path and provides the top-level
// recovery boundary: an unhandled panic (the one failure mode the step and
// loop executors cannot themselves detect) is converted into a failed run,
// a best-effort JSONL record, and a best-effort user message. Ordinary
// step/loop/parallel-block failures are already fully terminated (marked
// failed, logged, notified, artifacts committed) by the executor that
// detected them: the step and parallel-block executors via the same
// failRun helper, the loop executor's iteration-error and exhaustion paths
// inline.
func (d *Dispatcher) execute(rc *runContext, maxRetries int) (status string, runErr error) {
	defer func() {
		if r := recover(); r != nil {
			runErr = fmt.Errorf("panic: %v", r)
			status = "failed"
			d.failRun(rc, runErr.Error(), maxRetries)
		}
	}()

	var err error
	if rc.def.IsLoop() {
		err = runLoop(rc)
	} else {
		err = runSteps(rc)
	}

	if err != nil {
		return "failed", err
	}
	return "completed", nil
}

// failRun performs the terminal-failure sequence shared by the top-level
// recovery boundary and the step/parallel-block executors: mark the run
// failed (tolerating a secondary DB failure), log workflow_error, notify
// the user, and commit artifacts.
func (d *Dispatcher) failRun(rc *runContext, reason string, maxRetries int) {
	if err := d.Store.FailWorkflowRun(rc.ctx, rc.run.ID, reason); err != nil {
		rc.log.Event(runlog.KindWorkflowError, map[string]interface{}{"error": fmt.Sprintf("mark failed also failed: %v", err)})
	}
	rc.log.Event(runlog.KindWorkflowError, map[string]interface{}{"error": reason})
	errtax.SendCriticalMessage(rc.ctx, rc.plat, rc.run.ConversationID, "❌ Workflow failed: "+reason, maxRetries)
	commitArtifacts(rc)
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

// buildStartupMessage renders the consolidated startup notice, including
// a pretty summary of the step/loop shape.
func buildStartupMessage(def *workflows.Definition) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🚀 Starting workflow **%s**", def.Name)
	if shape := prettyShape(def); shape != "" {
		fmt.Fprintf(&b, "\n%s", shape)
	}
	return b.String()
}

func prettyShape(def *workflows.Definition) string {
	if def.IsLoop() {
		return fmt.Sprintf("Loop: up to %d iteration(s) until `%s`", def.Loop.MaxIterations, def.Loop.Until)
	}
	parts := make([]string, 0, len(def.Steps))
	for _, step := range def.Steps {
		if step.IsParallel() {
			parts = append(parts, fmt.Sprintf("[%d parallel]", len(step.Parallel)))
		} else {
			parts = append(parts, fmt.Sprintf("`%s`", step.Command))
		}
	}
	return strings.Join(parts, " → ")
}

// commitArtifacts invokes the Artifact Committer at a terminal state
// notifying the user unless the platform is github.
func commitArtifacts(rc *runContext) {
	message := fmt.Sprintf("chore: Auto-commit workflow artifacts (%s)", rc.def.Name)
	result, err := gitutil.CommitAllChanges(rc.ctx, rc.cwd, message)
	if err != nil {
		treePath := gitutil.WorkingTreePath(rc.ctx, rc.cwd)
		errtax.SafeSendMessage(rc.ctx, rc.plat, rc.run.ConversationID,
			fmt.Sprintf("⚠️ Failed to commit workflow artifacts in %s: %v", treePath, err))
		return
	}
	if result.Committed && rc.plat.GetPlatformType() != platform.TypeGitHub {
		maxRetries := 0
		if rc.disp.Config != nil {
			maxRetries = rc.disp.Config.Engine.MaxCriticalRetries
		}
		errtax.SendCriticalMessage(rc.ctx, rc.plat, rc.run.ConversationID, "📦 Committed remaining workflow artifacts", maxRetries)
	}
}
