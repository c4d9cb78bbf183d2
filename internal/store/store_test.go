package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func newStores(t *testing.T) map[string]Store {
	sqliteStore, err := Open(filepath.Join(t.TempDir(), "archon.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { sqliteStore.Close() })

	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": sqliteStore,
	}
}

func TestStoreCreateAndGetActive(t *testing.T) {
	for name, s := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			run, err := s.CreateWorkflowRun(ctx, CreateParams{
				WorkflowName:   "review-pr",
				ConversationID: "conv-1",
				UserMessage:    "please review",
			})
			if err != nil {
				t.Fatalf("CreateWorkflowRun: %v", err)
			}
			if run.Status != StatusRunning {
				t.Fatalf("expected running status, got %s", run.Status)
			}

			active, err := s.GetActiveWorkflowRun(ctx, "conv-1")
			if err != nil {
				t.Fatalf("GetActiveWorkflowRun: %v", err)
			}
			if active == nil || active.ID != run.ID {
				t.Fatalf("expected to find active run %s, got %+v", run.ID, active)
			}
		})
	}
}

func TestStoreGetActiveReturnsNilWhenNoneRunning(t *testing.T) {
	for name, s := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			active, err := s.GetActiveWorkflowRun(context.Background(), "no-such-conversation")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if active != nil {
				t.Fatalf("expected nil, got %+v", active)
			}
		})
	}
}

func TestStoreUpdateMergesMetadata(t *testing.T) {
	for name, s := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			run, _ := s.CreateWorkflowRun(ctx, CreateParams{
				ConversationID: "conv-2",
				Metadata:       map[string]interface{}{"a": "1"},
			})

			idx := 2
			if err := s.UpdateWorkflowRun(ctx, run.ID, UpdateParams{
				CurrentStepIdx: &idx,
				Metadata:       map[string]interface{}{"b": "2"},
			}); err != nil {
				t.Fatalf("UpdateWorkflowRun: %v", err)
			}

			active, _ := s.GetActiveWorkflowRun(ctx, "conv-2")
			if active.CurrentStepIdx != 2 {
				t.Fatalf("expected current_step_index=2, got %d", active.CurrentStepIdx)
			}
			if active.Metadata["a"] != "1" || active.Metadata["b"] != "2" {
				t.Fatalf("expected merged metadata, got %+v", active.Metadata)
			}
		})
	}
}

func TestStoreCompleteWorkflowRunIsTerminal(t *testing.T) {
	for name, s := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			run, _ := s.CreateWorkflowRun(ctx, CreateParams{ConversationID: "conv-3"})

			if err := s.CompleteWorkflowRun(ctx, run.ID); err != nil {
				t.Fatalf("CompleteWorkflowRun: %v", err)
			}
			active, _ := s.GetActiveWorkflowRun(ctx, "conv-3")
			if active != nil {
				t.Fatalf("expected no active run after completion, got %+v", active)
			}
		})
	}
}

func TestStoreFailWorkflowRunIsTerminal(t *testing.T) {
	for name, s := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			run, _ := s.CreateWorkflowRun(ctx, CreateParams{ConversationID: "conv-4"})

			if err := s.FailWorkflowRun(ctx, run.ID, "boom"); err != nil {
				t.Fatalf("FailWorkflowRun: %v", err)
			}
			active, _ := s.GetActiveWorkflowRun(ctx, "conv-4")
			if active != nil {
				t.Fatalf("expected run no longer active, got %+v", active)
			}
		})
	}
}

func TestStoreUnknownIDReturnsNotFound(t *testing.T) {
	for name, s := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if err := s.UpdateWorkflowActivity(ctx, "does-not-exist"); !errors.Is(err, ErrRunNotFound) {
				t.Fatalf("expected ErrRunNotFound, got %v", err)
			}
		})
	}
}
