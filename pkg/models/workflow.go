package models

import "time"

type WorkflowStatus string

const (
	PendingWorkflowStatus    WorkflowStatus = "PENDING"
	InProgressWorkflowStatus WorkflowStatus = "IN_PROGRESS"
	CompletedWorkflowStatus  WorkflowStatus = "COMPLETED"
	FailedWorkflowStatus     WorkflowStatus = "FAILED"
	CancelledWorkflowStatus  WorkflowStatus = "CANCELLED"
)

// Terminal reports whether no further transitions are permitted.
func (s WorkflowStatus) Terminal() bool {
	return s == CompletedWorkflowStatus || s == FailedWorkflowStatus || s == CancelledWorkflowStatus
}

// Active reports whether the workflow may still execute steps.
func (s WorkflowStatus) Active() bool {
	return s == PendingWorkflowStatus || s == InProgressWorkflowStatus
}

// Context carries intermediate step outputs forward to later steps
// (e.g. a payment transaction id). Entries are additive only.
type Context map[string]interface{}

// WorkflowState is the persisted record of one order-processing workflow run.
// It is owned exclusively by the engine; stores are passive persistence.
type WorkflowState struct {
	WorkflowID    string         `json:"workflow_id" db:"workflow_id"`
	OrderID       string         `json:"order_id" db:"order_id"`
	Variant       string         `json:"variant" db:"variant"`
	CurrentStepID string         `json:"current_step_id" db:"current_step_id"`
	Status        WorkflowStatus `json:"status" db:"status"`
	Steps         []WorkflowStep `json:"steps"`
	Context       Context        `json:"context"`
	FailureReason string         `json:"failure_reason,omitempty" db:"failure_reason"`
	CreatedAt     time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at" db:"updated_at"`
	CompletedAt   *time.Time     `json:"completed_at,omitempty" db:"completed_at"`
}

// StepIndex returns the position of the step with the given id, or -1.
func (w *WorkflowState) StepIndex(stepID string) int {
	for i := range w.Steps {
		if w.Steps[i].ID == stepID {
			return i
		}
	}
	return -1
}

// CurrentStep returns the step matching CurrentStepID, or nil if the id
// does not identify a member of Steps.
func (w *WorkflowState) CurrentStep() *WorkflowStep {
	if i := w.StepIndex(w.CurrentStepID); i >= 0 {
		return &w.Steps[i]
	}
	return nil
}
