package storage

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/maz279/getit-project-v2-sub015/pkg/models"
)

// ErrNotFound is returned when no state exists for a workflow id. For a
// workflow that should still be active this is an operational alarm, not
// a normal code path.
var ErrNotFound = errors.New("workflow state not found")

// Store persists workflow state keyed by workflow id. The TTL passed to
// SaveState is a retention bound for finished workflows, not a
// correctness mechanism; a zero TTL means the backend default applies.
type Store interface {
	SaveState(ctx context.Context, state *models.WorkflowState, ttl time.Duration) error
	GetState(ctx context.Context, workflowID string) (*models.WorkflowState, error)
	Exists(ctx context.Context, workflowID string) (bool, error)
	ListStates(ctx context.Context) ([]*models.WorkflowState, error)
	DeleteState(ctx context.Context, workflowID string) error
	Close() error
}
