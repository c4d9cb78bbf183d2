package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is a mutex-guarded in-memory Store, used by tests and the
// CLI harness.
type MemoryStore struct {
	mu   sync.Mutex
	runs map[string]*WorkflowRun
}

// NewMemoryStore builds an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{runs: make(map[string]*WorkflowRun)}
}

func (s *MemoryStore) CreateWorkflowRun(_ context.Context, params CreateParams) (*WorkflowRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	run := &WorkflowRun{
		ID:             uuid.NewString(),
		WorkflowName:   params.WorkflowName,
		ConversationID: params.ConversationID,
		CodebaseID:     params.CodebaseID,
		UserMessage:    params.UserMessage,
		Metadata:       mergeMetadata(nil, params.Metadata),
		Status:         StatusRunning,
		StartedAt:      now,
		LastActivityAt: &now,
	}
	s.runs[run.ID] = run

	copied := *run
	return &copied, nil
}

func (s *MemoryStore) GetActiveWorkflowRun(_ context.Context, conversationID string) (*WorkflowRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, run := range s.runs {
		if run.ConversationID == conversationID && run.Status == StatusRunning {
			copied := *run
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) UpdateWorkflowRun(_ context.Context, id string, params UpdateParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, ok := s.runs[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if params.CurrentStepIdx != nil {
		run.CurrentStepIdx = *params.CurrentStepIdx
	}
	if params.Status != nil {
		run.Status = *params.Status
	}
	if params.Metadata != nil {
		run.Metadata = mergeMetadata(run.Metadata, params.Metadata)
	}
	return nil
}

func (s *MemoryStore) UpdateWorkflowActivity(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, ok := s.runs[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	now := time.Now()
	run.LastActivityAt = &now
	return nil
}

func (s *MemoryStore) CompleteWorkflowRun(_ context.Context, id string) error {
	return s.transition(id, StatusCompleted, "")
}

func (s *MemoryStore) FailWorkflowRun(_ context.Context, id string, reason string) error {
	return s.transition(id, StatusFailed, reason)
}

// Runs returns a snapshot of every run the store holds, for test
// assertions that need to inspect a run the caller didn't keep a handle
// to (e.g. one created internally by the Executor Dispatcher).
func (s *MemoryStore) Runs() []*WorkflowRun {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*WorkflowRun, 0, len(s.runs))
	for _, run := range s.runs {
		copied := *run
		out = append(out, &copied)
	}
	return out
}

// SetLastActivityAt backdates a run's last-activity timestamp, a test
// seam for exercising staleness reclamation without waiting out the
// real clock.
func (s *MemoryStore) SetLastActivityAt(id string, t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, ok := s.runs[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	run.LastActivityAt = &t
	return nil
}

func (s *MemoryStore) transition(id string, status Status, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, ok := s.runs[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	now := time.Now()
	run.Status = status
	run.CompletedAt = &now
	if reason != "" {
		run.Error = reason
	}
	return nil
}
