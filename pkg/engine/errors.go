package engine

import "github.com/pkg/errors"

// Validation errors, surfaced synchronously at StartWorkflow. The
// workflow is never created when one of these occurs.
var (
	ErrOrderNotFound = errors.New("order not found")
	ErrOrderInvalid  = errors.New("order is not structurally valid")
)

// Operation errors.
var (
	ErrWorkflowNotFound  = errors.New("workflow not found")
	ErrWorkflowNotActive = errors.New("workflow is not active")
)

// ErrUnknownStep indicates a step id with no registered action. This is
// a configuration error: it force-fails the workflow and is never retried.
var ErrUnknownStep = errors.New("no action registered for step")

// ErrAwaitConfirmation is returned by an action whose true outcome is
// reported later by another service through the event bridge. The engine
// leaves the step in progress and parks the workflow until a completion
// signal arrives for it.
var ErrAwaitConfirmation = errors.New("step awaits external confirmation")
