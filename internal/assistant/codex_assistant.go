package assistant

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// CodexAssistant shells out to the `codex exec` CLI's JSON event stream,
// generalized from ClaudeAssistant; claude and codex are both selected
// via NewAssistant's factory.
type CodexAssistant struct {
	binaryPath string
	model      string
	tracer     trace.Tracer
}

// NewCodexAssistant builds a CodexAssistant from cfg, defaulting the
// binary path to "codex" on PATH.
func NewCodexAssistant(cfg Config) *CodexAssistant {
	binaryPath := cfg.BinaryPath
	if binaryPath == "" {
		binaryPath = "codex"
	}
	return &CodexAssistant{
		binaryPath: binaryPath,
		model:      cfg.Model,
		tracer:     otel.Tracer("archon.assistant.codex"),
	}
}

type codexEvent struct {
	Type      string `json:"type"`
	Text      string `json:"text,omitempty"`
	ToolName  string `json:"tool_name,omitempty"`
	ToolInput json.RawMessage `json:"tool_input,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// SendQuery starts the codex subprocess and streams its JSON event
// output into a channel of Events.
func (a *CodexAssistant) SendQuery(ctx context.Context, prompt, cwd, resumeSessionID string) (<-chan Event, error) {
	args := []string{"exec", "--json", prompt}
	if resumeSessionID != "" {
		args = append(args, "resume", resumeSessionID)
	}
	if a.model != "" {
		args = append(args, "--model", a.model)
	}

	ctx, span := a.tracer.Start(ctx, "codex.query", trace.WithAttributes(
		attribute.String("codex.cwd", cwd),
	))

	cmd := exec.CommandContext(ctx, a.binaryPath, args...)
	if cwd != "" {
		cmd.Dir = cwd
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		span.End()
		return nil, fmt.Errorf("codex: stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		span.End()
		return nil, fmt.Errorf("codex: start: %w", err)
	}

	events := make(chan Event, 8)
	go func() {
		defer close(events)
		defer span.End()
		streamCodexStdout(stdout, events)
		if err := cmd.Wait(); err != nil && ctx.Err() == nil {
			events <- Event{Kind: EventResult, Err: fmt.Errorf("codex: %w", err)}
		}
	}()

	return events, nil
}

func streamCodexStdout(stdout io.Reader, events chan<- Event) {
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)

	var sessionID string
	var resultErr error

	for scanner.Scan() {
		var event codexEvent
		if err := json.Unmarshal(scanner.Bytes(), &event); err != nil {
			continue
		}
		if event.SessionID != "" {
			sessionID = event.SessionID
		}

		switch event.Type {
		case "message", "assistant":
			if event.Text != "" {
				events <- Event{Kind: EventAssistant, Content: event.Text}
			}
		case "tool_call":
			var input map[string]interface{}
			if len(event.ToolInput) > 0 {
				_ = json.Unmarshal(event.ToolInput, &input)
			}
			events <- Event{Kind: EventTool, ToolName: event.ToolName, ToolInput: input}
		case "error":
			resultErr = fmt.Errorf("%s", event.Error)
		}
	}

	events <- Event{Kind: EventResult, SessionID: sessionID, Err: resultErr}
}
