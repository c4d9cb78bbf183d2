package engine

import (
	"fmt"
	"time"

	"archon/internal/assistant"
	"archon/internal/engine/runlog"
	"archon/internal/errtax"
	"archon/internal/platform"
	"archon/internal/store"

	"go.opentelemetry.io/otel/trace"
)

// runLoop is the Loop Executor: Ralph-style iteration, running
// a single prompt repeatedly up to max_iterations and detecting a textual
// completion signal in the accumulated assistant output.
func runLoop(rc *runContext) error {
	cfg := rc.def.Loop
	maxRetries := 0
	if rc.disp.Config != nil {
		maxRetries = rc.disp.Config.Engine.MaxCriticalRetries
	}

	warnedProgressUnavailable := false

	for i := 1; i <= cfg.MaxIterations; i++ {
		rc.resetDrops()
		iterationCount := i
		if err := rc.disp.Store.UpdateWorkflowRun(rc.ctx, rc.run.ID, store.UpdateParams{
			CurrentStepIdx: &iterationCount,
			Metadata: map[string]interface{}{
				"iteration_count": i,
				"max_iterations":  cfg.MaxIterations,
			},
		}); err != nil && !warnedProgressUnavailable {
			warnedProgressUnavailable = true
			errtax.SafeSendMessage(rc.ctx, rc.plat, rc.run.ConversationID,
				"⚠️ progress tracking unavailable — workflow continues")
		}

		errtax.SafeSendMessage(rc.ctx, rc.plat, rc.run.ConversationID,
			fmt.Sprintf("⏳ **Iteration %d/%d**", i, cfg.MaxIterations))

		fresh := cfg.FreshContext || i == 1
		resumeID := ""
		if !fresh {
			resumeID = rc.currentSessionID()
		}

		output, sessionID, err := streamLoopIteration(rc, i, resumeID)
		if err != nil {
			reason := fmt.Sprintf("Iteration %d: %v", i, err)
			rc.log.Event(runlog.KindWorkflowError, map[string]interface{}{"error": reason})
			if failErr := rc.disp.Store.FailWorkflowRun(rc.ctx, rc.run.ID, reason); failErr != nil {
				reason = reason + fmt.Sprintf(" (also failed to persist: %v)", failErr)
			}
			errtax.SendCriticalMessage(rc.ctx, rc.plat, rc.run.ConversationID, "❌ "+reason, maxRetries)
			commitArtifacts(rc)
			return fmt.Errorf("%s", reason)
		}
		rc.setSessionID(sessionID)

		if detectCompletionSignal(output, cfg.Until) {
			if err := rc.disp.Store.CompleteWorkflowRun(rc.ctx, rc.run.ID); err != nil {
				reason := fmt.Sprintf("mark loop complete: %v", err)
				rc.disp.failRun(rc, reason, maxRetries)
				return fmt.Errorf("%s", reason)
			}
			rc.log.Event(runlog.KindWorkflowComplete, nil)
			errtax.SendCriticalMessage(rc.ctx, rc.plat, rc.run.ConversationID,
				fmt.Sprintf("✅ Loop complete: %s (%d iterations)", rc.def.Name, i), maxRetries)
			commitArtifacts(rc)
			return nil
		}

		rc.log.Event(runlog.KindStepComplete, map[string]interface{}{"step": fmt.Sprintf("iteration-%d", i), "step_index": i})
	}

	reason := fmt.Sprintf("Max iterations (%d) reached without completion signal %q", cfg.MaxIterations, cfg.Until)
	rc.log.Event(runlog.KindWorkflowError, map[string]interface{}{"error": reason})
	if err := rc.disp.Store.FailWorkflowRun(rc.ctx, rc.run.ID, reason); err != nil {
		reason = reason + fmt.Sprintf(" (also failed to persist: %v)", err)
	}
	errtax.SendCriticalMessage(rc.ctx, rc.plat, rc.run.ConversationID, fmt.Sprintf(
		"❌ %s\n\nTry increasing `max_iterations`, verifying the loop prompt drives toward the signal, or inspecting the run log at `.archon/logs/%s.jsonl`.",
		reason, rc.run.ID), maxRetries)
	commitArtifacts(rc)
	return fmt.Errorf("%s", reason)
}

// streamLoopIteration streams one loop iteration, accumulating the full
// concatenated assistant output (needed for signal detection) while still
// delivering chunks and logging events as the step executor does.
func streamLoopIteration(rc *runContext, iteration int, resumeID string) (output, sessionID string, err error) {
	prompt := buildPrompt(rc, rc.def.Prompt)
	stepID := fmt.Sprintf("iteration-%d", iteration)
	rc.log.Event(runlog.KindStepStart, map[string]interface{}{"step": stepID, "step_index": iteration})

	stepCtx := rc.ctx
	var span trace.Span
	start := time.Now()
	if rc.disp.Telemetry != nil {
		stepCtx, span = rc.disp.Telemetry.StartStep(rc.ctx, rc.run.ID, stepID, "loop_iteration")
	}
	endStep := func(status string, stepErr error) {
		if rc.disp.Telemetry != nil {
			rc.disp.Telemetry.EndStep(stepCtx, span, "loop_iteration", status, time.Since(start), stepErr)
		}
	}

	events, sendErr := rc.asst.SendQuery(stepCtx, prompt, rc.cwd, resumeID)
	if sendErr != nil {
		endStep("failed", sendErr)
		return "", "", sendErr
	}

	stream := rc.plat.GetStreamingMode() == platform.StreamingModeStream
	var accumulated string

	for ev := range events {
		switch ev.Kind {
		case assistant.EventAssistant:
			rc.touchActivity()
			rc.log.Event(runlog.KindAssistant, map[string]interface{}{"content": ev.Content})
			accumulated += ev.Content
			if stream {
				deliver(rc, ev.Content)
			}
		case assistant.EventTool:
			rc.log.Event(runlog.KindTool, map[string]interface{}{"tool_name": ev.ToolName, "tool_input": ev.ToolInput})
			if stream {
				deliver(rc, formatToolCall(ev.ToolName, ev.ToolInput))
			}
		case assistant.EventResult:
			sessionID = ev.SessionID
			err = ev.Err
		}
	}

	if err != nil {
		endStep("failed", err)
		return "", "", err
	}

	if !stream {
		deliver(rc, accumulated)
	}
	if drops := rc.drops(); drops > 0 {
		errtax.SafeSendMessage(rc.ctx, rc.plat, rc.run.ConversationID,
			fmt.Sprintf("⚠️ %d message(s) could not be delivered during this iteration", drops))
	}

	endStep("completed", nil)
	return accumulated, sessionID, nil
}
