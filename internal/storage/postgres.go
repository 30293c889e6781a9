package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/maz279/getit-project-v2-sub015/pkg/models"
	"github.com/maz279/getit-project-v2-sub015/pkg/storage"
)

// PostgresStore persists workflow state in a workflow_states table.
// Steps and context are stored as JSONB; the TTL becomes an expires_at
// column that reads filter on, so expiry needs no background job.
type PostgresStore struct {
	db *sqlx.DB
}

func NewPostgresStore(connStr string) (*PostgresStore, error) {
	db, err := sqlx.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

type stateRow struct {
	WorkflowID    string         `db:"workflow_id"`
	OrderID       string         `db:"order_id"`
	Variant       string         `db:"variant"`
	CurrentStepID string         `db:"current_step_id"`
	Status        string         `db:"status"`
	Steps         []byte         `db:"steps"`
	Context       []byte         `db:"context"`
	FailureReason sql.NullString `db:"failure_reason"`
	CreatedAt     time.Time      `db:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at"`
	CompletedAt   *time.Time     `db:"completed_at"`
	ExpiresAt     *time.Time     `db:"expires_at"`
}

func (r stateRow) toState() (*models.WorkflowState, error) {
	state := &models.WorkflowState{
		WorkflowID:    r.WorkflowID,
		OrderID:       r.OrderID,
		Variant:       r.Variant,
		CurrentStepID: r.CurrentStepID,
		Status:        models.WorkflowStatus(r.Status),
		FailureReason: r.FailureReason.String,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
		CompletedAt:   r.CompletedAt,
	}
	if err := json.Unmarshal(r.Steps, &state.Steps); err != nil {
		return nil, errors.Wrapf(err, "decode steps of workflow %s", r.WorkflowID)
	}
	if len(r.Context) > 0 {
		if err := json.Unmarshal(r.Context, &state.Context); err != nil {
			return nil, errors.Wrapf(err, "decode context of workflow %s", r.WorkflowID)
		}
	}
	return state, nil
}

func (s *PostgresStore) SaveState(ctx context.Context, state *models.WorkflowState, ttl time.Duration) error {
	steps, err := json.Marshal(state.Steps)
	if err != nil {
		return errors.Wrap(err, "encode steps")
	}
	wfCtx, err := json.Marshal(state.Context)
	if err != nil {
		return errors.Wrap(err, "encode context")
	}
	var expiresAt *time.Time
	if ttl > 0 {
		t := time.Now().Add(ttl)
		expiresAt = &t
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO workflow_states
			(workflow_id, order_id, variant, current_step_id, status, steps, context,
			 failure_reason, created_at, updated_at, completed_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (workflow_id) DO UPDATE SET
			current_step_id = EXCLUDED.current_step_id,
			status          = EXCLUDED.status,
			steps           = EXCLUDED.steps,
			context         = EXCLUDED.context,
			failure_reason  = EXCLUDED.failure_reason,
			updated_at      = EXCLUDED.updated_at,
			completed_at    = EXCLUDED.completed_at,
			expires_at      = EXCLUDED.expires_at`,
		state.WorkflowID, state.OrderID, state.Variant, state.CurrentStepID, string(state.Status),
		steps, wfCtx, nullable(state.FailureReason), state.CreatedAt, state.UpdatedAt,
		state.CompletedAt, expiresAt)
	if err != nil {
		return errors.Wrapf(err, "save workflow %s", state.WorkflowID)
	}
	return nil
}

func (s *PostgresStore) GetState(ctx context.Context, workflowID string) (*models.WorkflowState, error) {
	var row stateRow
	err := s.db.GetContext(ctx, &row, `
		SELECT * FROM workflow_states
		WHERE workflow_id = $1 AND (expires_at IS NULL OR expires_at > now())`, workflowID)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get workflow %s", workflowID)
	}
	return row.toState()
}

func (s *PostgresStore) Exists(ctx context.Context, workflowID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists, `
		SELECT EXISTS(
			SELECT 1 FROM workflow_states
			WHERE workflow_id = $1 AND (expires_at IS NULL OR expires_at > now()))`, workflowID)
	if err != nil {
		return false, errors.Wrapf(err, "check workflow %s", workflowID)
	}
	return exists, nil
}

func (s *PostgresStore) ListStates(ctx context.Context) ([]*models.WorkflowState, error) {
	var rows []stateRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT * FROM workflow_states
		WHERE expires_at IS NULL OR expires_at > now()
		ORDER BY created_at`)
	if err != nil {
		return nil, errors.Wrap(err, "list workflows")
	}
	states := make([]*models.WorkflowState, 0, len(rows))
	for _, row := range rows {
		state, err := row.toState()
		if err != nil {
			return nil, err
		}
		states = append(states, state)
	}
	return states, nil
}

func (s *PostgresStore) DeleteState(ctx context.Context, workflowID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM workflow_states WHERE workflow_id = $1`, workflowID)
	if err != nil {
		return errors.Wrapf(err, "delete workflow %s", workflowID)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

var _ storage.Store = (*PostgresStore)(nil)
