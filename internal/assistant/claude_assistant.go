package assistant

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ClaudeAssistant shells out to the `claude` CLI in streaming
// stream-json mode.
type ClaudeAssistant struct {
	binaryPath      string
	model           string
	maxTurns        int
	allowedTools    []string
	disallowedTools []string
	tracer          trace.Tracer
}

// NewClaudeAssistant builds a ClaudeAssistant from cfg, defaulting the
// binary path to "claude" on PATH.
func NewClaudeAssistant(cfg Config) *ClaudeAssistant {
	binaryPath := cfg.BinaryPath
	if binaryPath == "" {
		binaryPath = "claude"
	}
	return &ClaudeAssistant{
		binaryPath:      binaryPath,
		model:           cfg.Model,
		maxTurns:        cfg.MaxTurns,
		allowedTools:    cfg.AllowedTools,
		disallowedTools: cfg.DisallowedTools,
		tracer:          otel.Tracer("archon.assistant.claude"),
	}
}

// SendQuery starts the claude subprocess and streams its stdout into a
// channel of Events, closing the channel once the subprocess exits.
func (a *ClaudeAssistant) SendQuery(ctx context.Context, prompt, cwd, resumeSessionID string) (<-chan Event, error) {
	args := []string{"-p", prompt, "--print", "--output-format", "stream-json", "--verbose", "--dangerously-skip-permissions"}
	if resumeSessionID != "" {
		args = append(args, "--resume", resumeSessionID)
	}
	if a.model != "" {
		args = append(args, "--model", a.model)
	}
	if a.maxTurns > 0 {
		args = append(args, "--max-turns", fmt.Sprintf("%d", a.maxTurns))
	}
	if len(a.allowedTools) > 0 {
		args = append(args, "--allowedTools", strings.Join(a.allowedTools, ","))
	}
	if len(a.disallowedTools) > 0 {
		args = append(args, "--disallowedTools", strings.Join(a.disallowedTools, ","))
	}

	ctx, span := a.tracer.Start(ctx, "claude.query", trace.WithAttributes(
		attribute.String("claude.cwd", cwd),
	))

	cmd := exec.CommandContext(ctx, a.binaryPath, args...)
	if cwd != "" {
		cmd.Dir = cwd
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		span.End()
		return nil, fmt.Errorf("claude: stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		span.End()
		return nil, fmt.Errorf("claude: start: %w", err)
	}

	events := make(chan Event, 8)
	go func() {
		defer close(events)
		defer span.End()
		streamClaudeStdout(stdout, events)
		if err := cmd.Wait(); err != nil && ctx.Err() == nil {
			events <- Event{Kind: EventResult, Err: fmt.Errorf("claude: %w", err)}
		}
	}()

	return events, nil
}

func streamClaudeStdout(stdout io.Reader, events chan<- Event) {
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)

	var sessionID string
	var resultErr error

	for scanner.Scan() {
		var event claudeEvent
		if err := json.Unmarshal(scanner.Bytes(), &event); err != nil {
			continue
		}
		if event.SessionID != "" {
			sessionID = event.SessionID
		}

		switch event.Type {
		case "assistant":
			var msg claudeMessage
			if err := json.Unmarshal(event.Message, &msg); err != nil {
				continue
			}
			for _, block := range msg.Content {
				switch block.Type {
				case "text":
					if block.Text != "" {
						events <- Event{Kind: EventAssistant, Content: block.Text}
					}
				case "tool_use":
					var input map[string]interface{}
					if len(block.Input) > 0 {
						_ = json.Unmarshal(block.Input, &input)
					}
					events <- Event{Kind: EventTool, ToolName: block.Name, ToolInput: input}
				}
			}

		case "result":
			var result claudeResult
			if err := json.Unmarshal(event.Result, &result); err == nil {
				if result.SessionID != "" {
					sessionID = result.SessionID
				}
				if result.IsError {
					resultErr = fmt.Errorf("%s", result.Result)
				}
			}

		case "system":
			var sysMsg claudeSystemMessage
			if err := json.Unmarshal(scanner.Bytes(), &sysMsg); err == nil && sysMsg.Level == "error" {
				resultErr = fmt.Errorf("%s", sysMsg.Message)
			}
		}
	}

	events <- Event{Kind: EventResult, SessionID: sessionID, Err: resultErr}
}
