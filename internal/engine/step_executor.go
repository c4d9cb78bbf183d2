package engine

import (
	"fmt"
	"time"

	"archon/internal/assistant"
	"archon/internal/engine/runlog"
	"archon/internal/errtax"
	"archon/internal/platform"
	"archon/internal/store"
	"archon/internal/substitution"

	"go.opentelemetry.io/otel/trace"
)

// StepResult is the discriminated outcome of one SingleStep.
type StepResult struct {
	Success     bool
	CommandName string
	SessionID   string
	Error       string
}

// runSteps is the Step Executor: it walks a StepWorkflow's
// steps in order, delegating ParallelBlocks to runParallelBlock, chaining
// assistant sessions across SingleSteps per the clearContext policy.
func runSteps(rc *runContext) error {
	maxRetries := 0
	if rc.disp.Config != nil {
		maxRetries = rc.disp.Config.Engine.MaxCriticalRetries
	}

	steps := rc.def.Steps
	for i, step := range steps {
		if step.IsParallel() {
			if err := runParallelBlock(rc, i, step.Parallel); err != nil {
				return err
			}
			continue
		}

		fresh := step.ClearContext || i == 0
		result := runSingleStep(rc, step.Command, i, len(steps), fresh)
		if !result.Success {
			reason := fmt.Sprintf("step %d (%s): %s", i, step.Command, result.Error)
			rc.disp.failRun(rc, reason, maxRetries)
			return fmt.Errorf("%s", reason)
		}
		rc.setSessionID(result.SessionID)

		nextIdx := i + 1
		if err := rc.disp.Store.UpdateWorkflowRun(rc.ctx, rc.run.ID, store.UpdateParams{CurrentStepIdx: &nextIdx}); err != nil {
			rc.log.Event(runlog.KindStepError, map[string]interface{}{
				"step": step.Command, "step_index": i, "error": fmt.Sprintf("persist step index: %v", err),
			})
		}
	}

	if err := rc.disp.Store.CompleteWorkflowRun(rc.ctx, rc.run.ID); err != nil {
		reason := fmt.Sprintf("mark workflow complete: %v", err)
		rc.disp.failRun(rc, reason, maxRetries)
		return fmt.Errorf("%s", reason)
	}
	rc.log.Event(runlog.KindWorkflowComplete, nil)

	if rc.plat.GetPlatformType() != platform.TypeGitHub {
		errtax.SendCriticalMessage(rc.ctx, rc.plat, rc.run.ConversationID,
			fmt.Sprintf("✅ Workflow **%s** complete", rc.def.Name), maxRetries)
	}

	commitArtifacts(rc)
	return nil
}

// runSingleStep resolves the command's prompt, substitutes variables, and
// streams the assistant for one SingleStep.
func runSingleStep(rc *runContext, command string, index, total int, freshSession bool) StepResult {
	rc.resetDrops()
	if total > 1 {
		errtax.SafeSendMessage(rc.ctx, rc.plat, rc.run.ConversationID,
			fmt.Sprintf("⏳ **Step %d/%d**: `%s`", index+1, total, command))
	}

	resolved := rc.res.Resolve(command)
	if !resolved.Ok() {
		msg := fmt.Sprintf("command `%s` could not be resolved: %s", command, resolved.Message)
		errtax.SafeSendMessage(rc.ctx, rc.plat, rc.run.ConversationID, "❌ "+msg)
		return StepResult{Success: false, CommandName: command, Error: msg}
	}

	prompt := buildPrompt(rc, resolved.Content)

	resumeID := ""
	if !freshSession {
		resumeID = rc.currentSessionID()
	}

	return streamStep(rc, command, fmt.Sprintf("%d", index), prompt, resumeID)
}

// buildPrompt substitutes variables into a resolved prompt and appends any
// unconsumed issue context.
func buildPrompt(rc *runContext, template string) string {
	in := substitution.Input{
		WorkflowID: rc.run.ID,
		Message:    rc.run.UserMessage,
		Context:    rc.issue.Text,
		HasContext: rc.issue.Present,
	}
	substituted, consumed := substitution.Substitute(template, in)
	return substitution.AppendUnconsumedContext(substituted, in, consumed)
}

// streamStep runs one assistant invocation to completion, delivering
// chunks per the platform's streaming mode and logging every event.
func streamStep(rc *runContext, command, stepID, prompt, resumeID string) StepResult {
	rc.log.Event(runlog.KindStepStart, map[string]interface{}{"step": command, "step_index": stepID})

	stepCtx := rc.ctx
	var span trace.Span
	start := time.Now()
	if rc.disp.Telemetry != nil {
		stepCtx, span = rc.disp.Telemetry.StartStep(rc.ctx, rc.run.ID, stepID, "step")
	}
	endStep := func(status string, err error) {
		if rc.disp.Telemetry != nil {
			rc.disp.Telemetry.EndStep(stepCtx, span, "step", status, time.Since(start), err)
		}
	}

	events, err := rc.asst.SendQuery(stepCtx, prompt, rc.cwd, resumeID)
	if err != nil {
		result := classifyFailure(rc, command, stepID, err)
		endStep("failed", err)
		return result
	}

	stream := rc.plat.GetStreamingMode() == platform.StreamingModeStream
	var batched string
	var sessionID string
	var stepErr error

	for ev := range events {
		switch ev.Kind {
		case assistant.EventAssistant:
			rc.touchActivity()
			rc.log.Event(runlog.KindAssistant, map[string]interface{}{"content": ev.Content})
			if stream {
				deliver(rc, ev.Content)
			} else {
				batched += ev.Content
			}
		case assistant.EventTool:
			rc.log.Event(runlog.KindTool, map[string]interface{}{"tool_name": ev.ToolName, "tool_input": ev.ToolInput})
			if stream {
				deliver(rc, formatToolCall(ev.ToolName, ev.ToolInput))
			}
		case assistant.EventResult:
			sessionID = ev.SessionID
			stepErr = ev.Err
		}
	}

	if stepErr != nil {
		result := classifyFailure(rc, command, stepID, stepErr)
		endStep("failed", stepErr)
		return result
	}

	if !stream && batched != "" {
		deliver(rc, batched)
	}

	if drops := rc.drops(); drops > 0 {
		errtax.SafeSendMessage(rc.ctx, rc.plat, rc.run.ConversationID,
			fmt.Sprintf("⚠️ %d message(s) could not be delivered during this step", drops))
	}

	rc.log.Event(runlog.KindStepComplete, map[string]interface{}{"step": command, "step_index": stepID})
	endStep("completed", nil)
	return StepResult{Success: true, CommandName: command, SessionID: sessionID}
}

func classifyFailure(rc *runContext, command, stepID string, err error) StepResult {
	class := errtax.Classify(err)
	hint := errtax.Hint(class, err)
	msg := err.Error()
	if hint != "" {
		msg = msg + " (" + hint + ")"
	}
	rc.log.Event(runlog.KindStepError, map[string]interface{}{"step": command, "step_index": stepID, "error": msg})
	errtax.SafeSendMessage(rc.ctx, rc.plat, rc.run.ConversationID, fmt.Sprintf("❌ Step `%s` failed: %s", command, msg))
	return StepResult{Success: false, CommandName: command, Error: msg}
}

// deliver sends one chunk to the platform via safeSendMessage, counting
// transient drops for the end-of-step warning.
func deliver(rc *runContext, text string) {
	if text == "" {
		return
	}
	ok, err := errtax.SafeSendMessage(rc.ctx, rc.plat, rc.run.ConversationID, text)
	if !ok && err == nil {
		rc.recordDrop()
	}
}

// touchActivity fire-and-forgets a last_activity_at bump; the engine must
// not block step progress on this write.
func (rc *runContext) touchActivity() {
	go func() {
		_ = rc.disp.Store.UpdateWorkflowActivity(rc.ctx, rc.run.ID)
	}()
}

// formatToolCall renders a tool invocation for human consumption in
// stream mode.
func formatToolCall(toolName string, input map[string]interface{}) string {
	if len(input) == 0 {
		return fmt.Sprintf("🔧 %s", toolName)
	}
	return fmt.Sprintf("🔧 %s(%v)", toolName, input)
}
