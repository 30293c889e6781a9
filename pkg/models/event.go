package models

import "time"

type EventType string

const (
	StepStartedEvent       EventType = "step.started"
	StepCompletedEvent     EventType = "step.completed"
	StepFailedEvent        EventType = "step.failed"
	StepRetryingEvent      EventType = "step.retrying"
	StepWaitingEvent       EventType = "step.waiting"
	WorkflowStartedEvent   EventType = "workflow.started"
	WorkflowCompletedEvent EventType = "workflow.completed"
	WorkflowFailedEvent    EventType = "workflow.failed"
	WorkflowCancelledEvent EventType = "workflow.cancelled"
)

// Event is published for every step-attempt outcome and every workflow
// lifecycle transition.
type Event struct {
	Type       EventType              `json:"type"`
	OrderID    string                 `json:"order_id"`
	WorkflowID string                 `json:"workflow_id"`
	StepID     string                 `json:"step_id,omitempty"`
	Data       map[string]interface{} `json:"data,omitempty"`
	Timestamp  time.Time              `json:"timestamp"`
}

type CompletionOutcome string

const (
	CompletionSucceeded CompletionOutcome = "SUCCEEDED"
	CompletionFailed    CompletionOutcome = "FAILED"
)

// Completion is an externally sourced step settlement, delivered through
// the event bridge for steps whose outcome arrives asynchronously from
// another service. Delivery is at least once; the engine treats stale or
// duplicate signals as no-ops.
type Completion struct {
	WorkflowID string            `json:"workflow_id"`
	StepID     string            `json:"step_id"`
	Outcome    CompletionOutcome `json:"outcome"`
	Output     interface{}       `json:"output,omitempty"`
	ErrorMsg   string            `json:"error,omitempty"`
}
