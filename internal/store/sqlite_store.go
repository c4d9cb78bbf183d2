package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS workflow_runs (
	id TEXT PRIMARY KEY,
	workflow_name TEXT NOT NULL,
	conversation_id TEXT NOT NULL,
	codebase_id TEXT,
	current_step_index INTEGER NOT NULL DEFAULT 0,
	status TEXT NOT NULL,
	user_message TEXT NOT NULL,
	metadata TEXT NOT NULL DEFAULT '{}',
	error TEXT NOT NULL DEFAULT '',
	started_at TIMESTAMP NOT NULL,
	completed_at TIMESTAMP,
	last_activity_at TIMESTAMP
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_workflow_runs_one_active_per_conversation
	ON workflow_runs(conversation_id)
	WHERE status = 'running';
`

// SQLiteStore is a Store backed by the pure-Go modernc.org/sqlite
// driver, wrapping a small queries layer over database/sql with an
// otel tracer on every operation.
type SQLiteStore struct {
	db     *sql.DB
	tracer trace.Tracer
}

// Open opens (creating if necessary) a SQLite database at path and
// applies the workflow_runs schema.
func Open(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLiteStore{db: db, tracer: otel.Tracer("archon.store")}, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) CreateWorkflowRun(ctx context.Context, params CreateParams) (*WorkflowRun, error) {
	ctx, span := s.tracer.Start(ctx, "store.CreateWorkflowRun",
		trace.WithAttributes(attribute.String("workflow.conversation_id", params.ConversationID)))
	defer span.End()

	metaJSON, err := json.Marshal(mergeMetadata(nil, params.Metadata))
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}

	run := &WorkflowRun{
		ID:             uuid.NewString(),
		WorkflowName:   params.WorkflowName,
		ConversationID: params.ConversationID,
		CodebaseID:     params.CodebaseID,
		UserMessage:    params.UserMessage,
		Metadata:       mergeMetadata(nil, params.Metadata),
		Status:         StatusRunning,
		StartedAt:      time.Now(),
	}
	run.LastActivityAt = &run.StartedAt

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO workflow_runs
			(id, workflow_name, conversation_id, codebase_id, current_step_index, status, user_message, metadata, started_at, last_activity_at)
		VALUES (?, ?, ?, ?, 0, ?, ?, ?, ?, ?)`,
		run.ID, run.WorkflowName, run.ConversationID, run.CodebaseID, run.Status, run.UserMessage, string(metaJSON), run.StartedAt, run.LastActivityAt,
	)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("insert workflow run: %w", err)
	}

	return run, nil
}

func (s *SQLiteStore) GetActiveWorkflowRun(ctx context.Context, conversationID string) (*WorkflowRun, error) {
	ctx, span := s.tracer.Start(ctx, "store.GetActiveWorkflowRun",
		trace.WithAttributes(attribute.String("workflow.conversation_id", conversationID)))
	defer span.End()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, workflow_name, conversation_id, codebase_id, current_step_index, status, user_message, metadata, error, started_at, completed_at, last_activity_at
		FROM workflow_runs WHERE conversation_id = ? AND status = 'running' LIMIT 1`, conversationID)

	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("query active workflow run: %w", err)
	}
	return run, nil
}

func (s *SQLiteStore) UpdateWorkflowRun(ctx context.Context, id string, params UpdateParams) error {
	ctx, span := s.tracer.Start(ctx, "store.UpdateWorkflowRun", trace.WithAttributes(attribute.String("workflow.run_id", id)))
	defer span.End()

	if params.Metadata != nil {
		existing, err := s.loadMetadata(ctx, id)
		if err != nil {
			span.RecordError(err)
			return err
		}
		merged, err := json.Marshal(mergeMetadata(existing, params.Metadata))
		if err != nil {
			return fmt.Errorf("marshal metadata: %w", err)
		}
		if _, err := s.db.ExecContext(ctx, `UPDATE workflow_runs SET metadata = ? WHERE id = ?`, string(merged), id); err != nil {
			span.RecordError(err)
			return fmt.Errorf("update metadata: %w", err)
		}
	}
	if params.CurrentStepIdx != nil {
		if _, err := s.db.ExecContext(ctx, `UPDATE workflow_runs SET current_step_index = ? WHERE id = ?`, *params.CurrentStepIdx, id); err != nil {
			span.RecordError(err)
			return fmt.Errorf("update current_step_index: %w", err)
		}
	}
	if params.Status != nil {
		if _, err := s.db.ExecContext(ctx, `UPDATE workflow_runs SET status = ? WHERE id = ?`, *params.Status, id); err != nil {
			span.RecordError(err)
			return fmt.Errorf("update status: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) loadMetadata(ctx context.Context, id string) (map[string]interface{}, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT metadata FROM workflow_runs WHERE id = ?`, id).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load metadata: %w", err)
	}
	var meta map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		return nil, fmt.Errorf("unmarshal metadata: %w", err)
	}
	return meta, nil
}

func (s *SQLiteStore) UpdateWorkflowActivity(ctx context.Context, id string) error {
	ctx, span := s.tracer.Start(ctx, "store.UpdateWorkflowActivity", trace.WithAttributes(attribute.String("workflow.run_id", id)))
	defer span.End()

	res, err := s.db.ExecContext(ctx, `UPDATE workflow_runs SET last_activity_at = ? WHERE id = ?`, time.Now(), id)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("update activity: %w", err)
	}
	return checkRowsAffected(res, id)
}

func (s *SQLiteStore) CompleteWorkflowRun(ctx context.Context, id string) error {
	return s.transition(ctx, id, StatusCompleted, "")
}

func (s *SQLiteStore) FailWorkflowRun(ctx context.Context, id string, reason string) error {
	return s.transition(ctx, id, StatusFailed, reason)
}

func (s *SQLiteStore) transition(ctx context.Context, id string, status Status, reason string) error {
	ctx, span := s.tracer.Start(ctx, "store.transition", trace.WithAttributes(
		attribute.String("workflow.run_id", id), attribute.String("workflow.status", string(status))))
	defer span.End()

	res, err := s.db.ExecContext(ctx, `UPDATE workflow_runs SET status = ?, error = ?, completed_at = ? WHERE id = ?`,
		status, reason, time.Now(), id)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("transition workflow run: %w", err)
	}
	return checkRowsAffected(res, id)
}

func checkRowsAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (*WorkflowRun, error) {
	var run WorkflowRun
	var metaRaw string
	var codebaseID sql.NullString
	var completedAt, lastActivityAt sql.NullTime

	err := row.Scan(&run.ID, &run.WorkflowName, &run.ConversationID, &codebaseID, &run.CurrentStepIdx,
		&run.Status, &run.UserMessage, &metaRaw, &run.Error, &run.StartedAt, &completedAt, &lastActivityAt)
	if err != nil {
		return nil, err
	}

	run.CodebaseID = codebaseID.String
	if completedAt.Valid {
		run.CompletedAt = &completedAt.Time
	}
	if lastActivityAt.Valid {
		run.LastActivityAt = &lastActivityAt.Time
	}
	if err := json.Unmarshal([]byte(metaRaw), &run.Metadata); err != nil {
		return nil, fmt.Errorf("unmarshal metadata: %w", err)
	}

	return &run, nil
}
