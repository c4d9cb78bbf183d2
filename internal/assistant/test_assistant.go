package assistant

import (
	"context"
	"sync"
)

// Call records one SendQuery invocation observed by a TestAssistant.
type Call struct {
	Prompt          string
	Cwd             string
	ResumeSessionID string
}

// Response scripts the events one SendQuery call streams back.
type Response struct {
	// Content, if non-empty, is emitted as a single EventAssistant chunk
	// before the terminal EventResult.
	Content string
	// SessionID is carried on the terminal EventResult.
	SessionID string
	// Err, if set, is carried on the terminal EventResult: the call
	// still opens a channel, but the caller sees a failed step/iteration
	// once it drains the result event.
	Err error
	// SendErr, if set, makes SendQuery itself return this error instead
	// of opening an event channel at all.
	SendErr error
}

// TestAssistant is an in-memory, scripted Assistant used by engine and
// CLI harness tests; it records every call it receives and asks Script
// what to return. Script runs while TestAssistant holds its internal
// lock, so it may safely inspect call content or count to decide
// deterministically even when concurrent callers (e.g. a parallel
// block's sub-steps) race to call SendQuery first.
type TestAssistant struct {
	Script func(call Call, callIndex int) Response

	mu    sync.Mutex
	calls []Call
}

// NewTestAssistant builds a TestAssistant that asks script for a
// Response on every SendQuery call.
func NewTestAssistant(script func(call Call, callIndex int) Response) *TestAssistant {
	return &TestAssistant{Script: script}
}

// SendQuery records the call and streams back whatever Script returns.
func (a *TestAssistant) SendQuery(_ context.Context, prompt, cwd, resumeSessionID string) (<-chan Event, error) {
	a.mu.Lock()
	call := Call{Prompt: prompt, Cwd: cwd, ResumeSessionID: resumeSessionID}
	a.calls = append(a.calls, call)
	idx := len(a.calls) - 1
	resp := a.Script(call, idx)
	a.mu.Unlock()

	if resp.SendErr != nil {
		return nil, resp.SendErr
	}

	events := make(chan Event, 2)
	go func() {
		defer close(events)
		if resp.Content != "" {
			events <- Event{Kind: EventAssistant, Content: resp.Content}
		}
		events <- Event{Kind: EventResult, SessionID: resp.SessionID, Err: resp.Err}
	}()
	return events, nil
}

// Calls returns every call observed so far, in the order SendQuery was
// entered.
func (a *TestAssistant) Calls() []Call {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Call, len(a.calls))
	copy(out, a.calls)
	return out
}
