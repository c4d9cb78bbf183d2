// Package runlog appends structured JSONL event records describing one
// workflow run.
package runlog

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Kind names one of the fixed JSONL event kinds.
type Kind string

const (
	KindWorkflowStart        Kind = "workflow_start"
	KindWorkflowComplete     Kind = "workflow_complete"
	KindWorkflowError        Kind = "workflow_error"
	KindStepStart            Kind = "step_start"
	KindStepComplete         Kind = "step_complete"
	KindStepError            Kind = "step_error"
	KindAssistant            Kind = "assistant"
	KindTool                 Kind = "tool"
	KindParallelBlockStart   Kind = "parallel_block_start"
	KindParallelBlockComplete Kind = "parallel_block_complete"
)

var warnOnce sync.Once

// Logger appends one JSON object per line to <cwd>/.archon/logs/<runId>.jsonl.
// Write failures are swallowed; the first failure in the process logs one
// operational warning.
type Logger struct {
	mu     sync.Mutex
	file   *os.File
	runID  string
}

// Open creates (if needed) <cwd>/.archon/logs/<runId>.jsonl and returns a
// Logger appending to it. Directory-creation or file-open failures are
// reported to the caller so the dispatcher can decide whether to proceed
// without logging.
func Open(cwd, runID string) (*Logger, error) {
	dir := filepath.Join(cwd, ".archon", "logs")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	path := filepath.Join(dir, runID+".jsonl")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return &Logger{file: f, runID: runID}, nil
}

// Close closes the underlying file.
func (l *Logger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	return l.file.Close()
}

// Event appends one record with fields {workflow_id, ts, kind} merged
// with the given extra fields.
func (l *Logger) Event(kind Kind, fields map[string]interface{}) {
	if l == nil {
		return
	}

	record := map[string]interface{}{
		"workflow_id": l.runID,
		"ts":          time.Now().UTC().Format(time.RFC3339),
		"kind":        string(kind),
	}
	for k, v := range fields {
		record[k] = v
	}

	line, err := json.Marshal(record)
	if err != nil {
		l.warn(err)
		return
	}
	line = append(line, '\n')

	l.mu.Lock()
	_, err = l.file.Write(line)
	l.mu.Unlock()
	if err != nil {
		l.warn(err)
	}
}

func (l *Logger) warn(err error) {
	warnOnce.Do(func() {
		slog.Warn("runlog: failed to write event; further write errors in this process are swallowed", "err", err)
	})
}
