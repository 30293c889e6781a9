package models

import "time"

type StepStatus string

const (
	PendingStepStatus    StepStatus = "PENDING"
	InProgressStepStatus StepStatus = "IN_PROGRESS"
	CompletedStepStatus  StepStatus = "COMPLETED"
	FailedStepStatus     StepStatus = "FAILED"
	SkippedStepStatus    StepStatus = "SKIPPED"
)

// Settled reports whether the step has reached an outcome that will not
// be executed again.
func (s StepStatus) Settled() bool {
	return s == CompletedStepStatus || s == FailedStepStatus || s == SkippedStepStatus
}

// WorkflowStep is one stage in a workflow's fixed sequence. Identity
// (ID, Name, MaxRetries) is fixed at creation from the step catalog;
// the remaining fields are mutated by the engine during execution.
type WorkflowStep struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Status      StepStatus  `json:"status"`
	Output      interface{} `json:"output,omitempty"`
	ErrorMsg    string      `json:"error,omitempty"`
	RetryCount  int         `json:"retry_count"`
	MaxRetries  int         `json:"max_retries"`
	StartedAt   *time.Time  `json:"started_at,omitempty"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
}
