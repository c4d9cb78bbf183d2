package engine

import (
	"fmt"
	"strings"
	"sync"

	"archon/internal/engine/runlog"
	"archon/internal/errtax"
	"archon/internal/workflows"
)

// runParallelBlock is the Parallel Block Executor: it fans out
// every SingleStep inside one parallel: clause concurrently, each with a
// fresh assistant session, and joins on all of them before continuing.
func runParallelBlock(rc *runContext, blockIndex int, steps []workflows.WorkflowStep) error {
	rc.resetDrops()
	commands := make([]string, len(steps))
	for i, s := range steps {
		commands[i] = s.Command
	}

	errtax.SafeSendMessage(rc.ctx, rc.plat, rc.run.ConversationID,
		fmt.Sprintf("⏳ **Parallel block** (%d steps): `%s`", len(steps), strings.Join(commands, "`, `")))
	rc.log.Event(runlog.KindParallelBlockStart, map[string]interface{}{"block_index": blockIndex, "steps": commands})

	results := make([]StepResult, len(steps))
	var wg sync.WaitGroup
	for i, step := range steps {
		wg.Add(1)
		go func(i int, step workflows.WorkflowStep) {
			defer wg.Done()
			stepID := fmt.Sprintf("%d.%d", blockIndex, i)
			results[i] = runSingleStepWithID(rc, step.Command, stepID)
		}(i, step)
	}
	wg.Wait()

	summary := make([]map[string]interface{}, len(results))
	var failures []string
	for i, r := range results {
		summary[i] = map[string]interface{}{"command": r.CommandName, "success": r.Success}
		if !r.Success {
			failures = append(failures, fmt.Sprintf("- `%s`: %s", r.CommandName, r.Error))
		}
	}
	rc.log.Event(runlog.KindParallelBlockComplete, map[string]interface{}{"block_index": blockIndex, "results": summary})

	if len(failures) > 0 {
		reason := fmt.Sprintf("parallel block %d failed:\n%s", blockIndex, strings.Join(failures, "\n"))
		maxRetries := 0
		if rc.disp.Config != nil {
			maxRetries = rc.disp.Config.Engine.MaxCriticalRetries
		}
		rc.disp.failRun(rc, reason, maxRetries)
		return fmt.Errorf("%s", reason)
	}

	rc.setSessionID("")
	return nil
}

// runSingleStepWithID streams one parallel sub-step with a fresh
// (non-resumed) session, identified by its hierarchical block.index id,
// without the top-level "Step k/N" notification.
func runSingleStepWithID(rc *runContext, command, stepID string) StepResult {
	resolved := rc.res.Resolve(command)
	if !resolved.Ok() {
		msg := fmt.Sprintf("command `%s` could not be resolved: %s", command, resolved.Message)
		return StepResult{Success: false, CommandName: command, Error: msg}
	}

	prompt := buildPrompt(rc, resolved.Content)
	return streamStep(rc, command, stepID, prompt, "")
}
