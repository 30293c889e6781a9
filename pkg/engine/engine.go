// Package engine drives a business order through its variant's step
// sequence: it creates workflows, executes steps through registered
// actions, persists every transition, retries failures with bounded
// backoff and emits lifecycle events. The persisted state is always the
// source of truth for what to do next; re-entry after a step settles is
// scheduled, never recursed.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/maz279/getit-project-v2-sub015/pkg/catalog"
	"github.com/maz279/getit-project-v2-sub015/pkg/event"
	"github.com/maz279/getit-project-v2-sub015/pkg/models"
	"github.com/maz279/getit-project-v2-sub015/pkg/storage"
)

// DefaultStateTTL is the retention bound for persisted workflow state.
const DefaultStateTTL = 24 * time.Hour

// Logger defines the logging interface for the engine.
type Logger interface {
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// OrderService is the order-lookup collaborator, used once at workflow
// start for structural validation. Implementations return
// ErrOrderNotFound when the id is unknown.
type OrderService interface {
	GetOrder(ctx context.Context, orderID string) (models.Order, error)
}

// Config wires an Engine. Store, Catalog, Executor, Bus, Orders and
// Logger are required; the rest default sensibly.
type Config struct {
	Store    storage.Store
	Catalog  *catalog.Catalog
	Executor *Executor
	Bus      event.Bus
	Orders   OrderService
	Logger   Logger

	Retry    RetryPolicy   // zero value -> DefaultRetryPolicy()
	StateTTL time.Duration // zero -> DefaultStateTTL
	// Scheduler overrides deferred re-entry, mainly for tests.
	Scheduler Scheduler
}

// Engine is the workflow state machine. Only one advance is ever in
// flight per workflow id; different workflows proceed fully in parallel.
type Engine struct {
	store     storage.Store
	catalog   *catalog.Catalog
	executor  *Executor
	bus       event.Bus
	orders    OrderService
	logger    Logger
	retry     RetryPolicy
	ttl       time.Duration
	scheduler Scheduler

	ctx context.Context

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func New(ctx context.Context, cfg Config) (*Engine, error) {
	if cfg.Store == nil || cfg.Catalog == nil || cfg.Executor == nil || cfg.Bus == nil || cfg.Orders == nil || cfg.Logger == nil {
		return nil, errors.New("engine config is missing a required component")
	}
	retry := cfg.Retry
	if retry.Base == 0 && retry.Cap == 0 {
		retry = DefaultRetryPolicy()
	}
	ttl := cfg.StateTTL
	if ttl == 0 {
		ttl = DefaultStateTTL
	}
	sched := cfg.Scheduler
	if sched == nil {
		sched = newTimerScheduler()
	}
	e := &Engine{
		store:     cfg.Store,
		catalog:   cfg.Catalog,
		executor:  cfg.Executor,
		bus:       cfg.Bus,
		orders:    cfg.Orders,
		logger:    cfg.Logger,
		retry:     retry,
		ttl:       ttl,
		scheduler: sched,
		ctx:       ctx,
		locks:     make(map[string]*sync.Mutex),
	}
	e.bus.SubscribeCompletions(e.HandleCompletion)
	return e, nil
}

// Stop drains scheduled re-entries. Workflows parked mid-sequence
// resume from persisted state on the next start.
func (e *Engine) Stop() {
	e.scheduler.Stop()
}

// StartWorkflow validates the order, builds the step sequence for the
// variant, persists the new workflow and kicks off its first step. It
// returns the workflow id without waiting for completion; step failures
// are never surfaced here, only through the persisted state and events.
func (e *Engine) StartWorkflow(ctx context.Context, orderID, variant string) (string, error) {
	order, err := e.orders.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return "", errors.Wrapf(ErrOrderNotFound, "order '%s'", orderID)
		}
		return "", errors.Wrapf(err, "look up order '%s'", orderID)
	}
	if !order.Valid() {
		return "", errors.Wrapf(ErrOrderInvalid, "order '%s' has no line items", orderID)
	}

	steps, err := e.catalog.BuildSteps(variant)
	if err != nil {
		return "", err
	}

	now := time.Now()
	state := &models.WorkflowState{
		WorkflowID:    uuid.NewString(),
		OrderID:       orderID,
		Variant:       variant,
		CurrentStepID: steps[0].ID,
		Status:        models.PendingWorkflowStatus,
		Steps:         steps,
		Context: models.Context{
			"order_id":    order.ID,
			"customer_id": order.CustomerID,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := e.store.SaveState(ctx, state, e.ttl); err != nil {
		return "", errors.Wrapf(err, "persist workflow for order '%s'", orderID)
	}

	e.publish(state, models.WorkflowStartedEvent, "", nil)
	e.logger.Infof("Started workflow %s for order %s (variant '%s', %d steps)",
		state.WorkflowID, orderID, variant, len(steps))

	workflowID := state.WorkflowID
	e.scheduler.Schedule(0, func() { e.advance(workflowID) })
	return workflowID, nil
}

// CancelWorkflow stops future step execution. Legal only while the
// workflow is pending or in progress. Already-completed steps are not
// compensated, and a step already dispatched runs to its own outcome;
// that outcome is recorded but triggers no further advancement.
func (e *Engine) CancelWorkflow(ctx context.Context, workflowID, reason string) error {
	lock := e.lockFor(workflowID)
	lock.Lock()
	defer lock.Unlock()

	state, err := e.store.GetState(ctx, workflowID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return errors.Wrapf(ErrWorkflowNotFound, "workflow '%s'", workflowID)
		}
		return errors.Wrapf(err, "load workflow '%s'", workflowID)
	}
	if !state.Status.Active() {
		return errors.Wrapf(ErrWorkflowNotActive, "workflow '%s' is %s", workflowID, state.Status)
	}

	state.Status = models.CancelledWorkflowStatus
	state.FailureReason = reason
	state.UpdatedAt = time.Now()
	if err := e.store.SaveState(ctx, state, e.ttl); err != nil {
		return errors.Wrapf(err, "persist cancellation of workflow '%s'", workflowID)
	}
	e.publish(state, models.WorkflowCancelledEvent, "", map[string]interface{}{"reason": reason})
	e.logger.Infof("Cancelled workflow %s: %s", workflowID, reason)
	return nil
}

// GetWorkflow returns the persisted state for a workflow id.
func (e *Engine) GetWorkflow(ctx context.Context, workflowID string) (*models.WorkflowState, error) {
	state, err := e.store.GetState(ctx, workflowID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, errors.Wrapf(ErrWorkflowNotFound, "workflow '%s'", workflowID)
		}
		return nil, err
	}
	return state, nil
}

// ListWorkflows returns all persisted workflow states.
func (e *Engine) ListWorkflows(ctx context.Context) ([]*models.WorkflowState, error) {
	return e.store.ListStates(ctx)
}

// HandleCompletion applies an externally reported step settlement. A
// signal for a workflow no longer active, a step that is not current,
// or a step already settled is a no-op, so at-least-once delivery of
// the same signal never double-advances.
func (e *Engine) HandleCompletion(c models.Completion) {
	lock := e.lockFor(c.WorkflowID)
	lock.Lock()
	state, err := e.store.GetState(e.ctx, c.WorkflowID)
	if err != nil {
		lock.Unlock()
		e.logger.Infof("Ignoring completion signal for unknown workflow %s", c.WorkflowID)
		return
	}
	if !state.Status.Active() || state.CurrentStepID != c.StepID {
		lock.Unlock()
		return
	}
	step := state.CurrentStep()
	if step == nil || step.Status != models.InProgressStepStatus {
		lock.Unlock()
		return
	}
	lock.Unlock()

	var outcomeErr error
	if c.Outcome != models.CompletionSucceeded {
		msg := c.ErrorMsg
		if msg == "" {
			msg = "step failed in collaborator service"
		}
		outcomeErr = errors.New(msg)
	}
	e.settle(c.WorkflowID, c.StepID, c.Output, outcomeErr)
}

// RequeueStale treats steps parked in progress beyond the threshold as
// failed attempts, feeding them to the retry policy. Intended to be
// called from a periodic monitoring sweep; a step with no intrinsic
// timeout would otherwise park its workflow indefinitely.
func (e *Engine) RequeueStale(ctx context.Context, threshold time.Duration) error {
	states, err := e.store.ListStates(ctx)
	if err != nil {
		return errors.Wrap(err, "list workflow states")
	}
	cutoff := time.Now().Add(-threshold)
	for _, state := range states {
		if state.Status != models.InProgressWorkflowStatus {
			continue
		}
		step := state.CurrentStep()
		if step == nil || step.Status != models.InProgressStepStatus {
			continue
		}
		if step.StartedAt == nil || step.StartedAt.After(cutoff) {
			continue
		}
		e.logger.Errorf("Workflow %s step %s in progress since %s, requeueing as failed attempt",
			state.WorkflowID, step.ID, step.StartedAt.Format(time.RFC3339))
		e.settle(state.WorkflowID, step.ID, nil,
			errors.Errorf("step stalled in progress beyond %s", threshold))
	}
	return nil
}

// advance executes the current step of a workflow. It is only ever
// invoked through the scheduler, holding the per-workflow lock for the
// state transition but not for the action itself, so cancellation can
// land while a step runs.
func (e *Engine) advance(workflowID string) {
	lock := e.lockFor(workflowID)
	lock.Lock()

	state, err := e.store.GetState(e.ctx, workflowID)
	if err != nil {
		lock.Unlock()
		// Active workflows never legitimately vanish from the store.
		e.logger.Errorf("Cannot advance workflow %s: %v", workflowID, err)
		return
	}
	if !state.Status.Active() {
		lock.Unlock()
		return
	}
	step := state.CurrentStep()
	if step == nil {
		e.failInternal(state, fmt.Sprintf("current step '%s' is not in the step sequence", state.CurrentStepID))
		lock.Unlock()
		return
	}
	if step.Status.Settled() {
		// Duplicate wakeup after the step already settled.
		lock.Unlock()
		return
	}
	if !e.executor.Registered(step.ID) {
		e.failInternal(state, fmt.Sprintf("no action registered for step '%s'", step.ID))
		lock.Unlock()
		return
	}

	now := time.Now()
	step.Status = models.InProgressStepStatus
	if step.StartedAt == nil {
		step.StartedAt = &now
	}
	state.Status = models.InProgressWorkflowStatus
	state.UpdatedAt = now
	if err := e.store.SaveState(e.ctx, state, e.ttl); err != nil {
		lock.Unlock()
		e.logger.Errorf("Cannot persist workflow %s before step %s: %v", workflowID, step.ID, err)
		return
	}
	e.publish(state, models.StepStartedEvent, step.ID, map[string]interface{}{"attempt": step.RetryCount + 1})
	stepID := step.ID
	wfCtx := state.Context
	lock.Unlock()

	output, execErr := e.executor.Execute(e.ctx, stepID, wfCtx)
	e.settle(workflowID, stepID, output, execErr)
}

// settle records a step outcome and decides what happens next. The
// state is reloaded under the lock: the workflow may have been
// cancelled while the action ran, in which case the outcome is recorded
// on the step but nothing advances. Only a step currently in progress
// can settle, which makes duplicate settlements no-ops.
func (e *Engine) settle(workflowID, stepID string, output interface{}, execErr error) {
	lock := e.lockFor(workflowID)
	lock.Lock()
	defer lock.Unlock()

	state, err := e.store.GetState(e.ctx, workflowID)
	if err != nil {
		e.logger.Errorf("Cannot settle step %s of workflow %s: %v", stepID, workflowID, err)
		return
	}
	idx := state.StepIndex(stepID)
	if idx < 0 {
		e.logger.Errorf("Step %s is not in workflow %s, dropping outcome", stepID, workflowID)
		return
	}
	step := &state.Steps[idx]
	if step.Status != models.InProgressStepStatus {
		return
	}
	now := time.Now()

	if !state.Status.Active() {
		// Cancelled (or force-failed) while the action ran: record the
		// outcome on the step, advance nothing.
		if execErr == nil {
			step.Status = models.CompletedStepStatus
			step.Output = output
			if step.CompletedAt == nil {
				step.CompletedAt = &now
			}
		} else {
			step.Status = models.FailedStepStatus
			step.ErrorMsg = execErr.Error()
		}
		state.UpdatedAt = now
		if err := e.store.SaveState(e.ctx, state, e.ttl); err != nil {
			e.logger.Errorf("Cannot record outcome of step %s on inactive workflow %s: %v", stepID, workflowID, err)
		}
		return
	}

	switch {
	case errors.Is(execErr, ErrAwaitConfirmation):
		// The action only initiated external work; the workflow parks
		// until a completion signal arrives through the event bridge.
		state.UpdatedAt = now
		if err := e.store.SaveState(e.ctx, state, e.ttl); err != nil {
			e.logger.Errorf("Cannot persist waiting step %s of workflow %s: %v", stepID, workflowID, err)
			return
		}
		e.publish(state, models.StepWaitingEvent, stepID, nil)
		e.logger.Infof("Workflow %s step %s awaits external confirmation", workflowID, stepID)

	case errors.Is(execErr, ErrUnknownStep):
		e.failInternal(state, fmt.Sprintf("no action registered for step '%s'", stepID))

	case execErr == nil:
		e.completeStep(state, idx, output, now)

	default:
		e.failStep(state, idx, execErr, now)
	}
}

// completeStep marks the current step done, merges its output into the
// workflow context and either moves to the next step or finishes the
// workflow.
func (e *Engine) completeStep(state *models.WorkflowState, idx int, output interface{}, now time.Time) {
	workflowID := state.WorkflowID
	step := &state.Steps[idx]
	step.Status = models.CompletedStepStatus
	step.Output = output
	step.ErrorMsg = ""
	if step.CompletedAt == nil {
		step.CompletedAt = &now
	}
	if output != nil {
		if state.Context == nil {
			state.Context = models.Context{}
		}
		state.Context[step.ID] = output
	}
	state.UpdatedAt = now

	if idx+1 < len(state.Steps) {
		state.CurrentStepID = state.Steps[idx+1].ID
		if err := e.store.SaveState(e.ctx, state, e.ttl); err != nil {
			e.logger.Errorf("Cannot persist workflow %s after step %s: %v", workflowID, step.ID, err)
			return
		}
		e.publish(state, models.StepCompletedEvent, step.ID, nil)
		e.logger.Infof("Workflow %s completed step %s, moving to %s", workflowID, step.ID, state.CurrentStepID)
		e.scheduler.Schedule(0, func() { e.advance(workflowID) })
		return
	}

	state.Status = models.CompletedWorkflowStatus
	if state.CompletedAt == nil {
		state.CompletedAt = &now
	}
	if err := e.store.SaveState(e.ctx, state, e.ttl); err != nil {
		e.logger.Errorf("Cannot persist completion of workflow %s: %v", workflowID, err)
		return
	}
	e.publish(state, models.StepCompletedEvent, step.ID, nil)
	e.publish(state, models.WorkflowCompletedEvent, "", nil)
	e.logger.Infof("Workflow %s completed all %d steps", workflowID, len(state.Steps))
}

// failStep runs the retry policy for a failed attempt: either the step
// goes back to pending with a backoff delay, or the workflow fails.
func (e *Engine) failStep(state *models.WorkflowState, idx int, execErr error, now time.Time) {
	workflowID := state.WorkflowID
	step := &state.Steps[idx]
	step.ErrorMsg = execErr.Error()
	state.UpdatedAt = now
	e.publish(state, models.StepFailedEvent, step.ID, map[string]interface{}{
		"attempt": step.RetryCount + 1,
		"error":   execErr.Error(),
	})

	decision := e.retry.Decide(step.RetryCount, step.MaxRetries)
	if decision.Retry {
		step.RetryCount++
		step.Status = models.PendingStepStatus
		if err := e.store.SaveState(e.ctx, state, e.ttl); err != nil {
			e.logger.Errorf("Cannot persist retry of step %s in workflow %s: %v", step.ID, workflowID, err)
			return
		}
		e.publish(state, models.StepRetryingEvent, step.ID, map[string]interface{}{
			"retry_count": step.RetryCount,
			"delay_ms":    decision.Delay.Milliseconds(),
		})
		e.logger.Infof("Workflow %s retrying step %s in %s (retry %d/%d): %v",
			workflowID, step.ID, decision.Delay, step.RetryCount, step.MaxRetries, execErr)
		e.scheduler.Schedule(decision.Delay, func() { e.advance(workflowID) })
		return
	}

	step.Status = models.FailedStepStatus
	state.Status = models.FailedWorkflowStatus
	state.FailureReason = fmt.Sprintf("step %s failed after %d attempts: %v", step.ID, step.RetryCount+1, execErr)
	if err := e.store.SaveState(e.ctx, state, e.ttl); err != nil {
		e.logger.Errorf("Cannot persist failure of workflow %s: %v", workflowID, err)
		return
	}
	e.publish(state, models.WorkflowFailedEvent, step.ID, map[string]interface{}{"reason": state.FailureReason})
	e.logger.Errorf("Workflow %s failed: %s", workflowID, state.FailureReason)
}

// failInternal force-fails a workflow on an invariant violation. These
// are corruption or configuration errors, never business-step failures,
// and are flagged at higher severity. Caller holds the workflow lock.
func (e *Engine) failInternal(state *models.WorkflowState, reason string) {
	state.Status = models.FailedWorkflowStatus
	state.FailureReason = "internal: " + reason
	state.UpdatedAt = time.Now()
	if err := e.store.SaveState(e.ctx, state, e.ttl); err != nil {
		e.logger.Errorf("Cannot persist internal failure of workflow %s: %v", state.WorkflowID, err)
	}
	e.publish(state, models.WorkflowFailedEvent, "", map[string]interface{}{
		"reason":   state.FailureReason,
		"internal": true,
	})
	e.logger.Errorf("Workflow %s force-failed: %s", state.WorkflowID, reason)
}

func (e *Engine) publish(state *models.WorkflowState, typ models.EventType, stepID string, data map[string]interface{}) {
	ev := models.Event{
		Type:       typ,
		OrderID:    state.OrderID,
		WorkflowID: state.WorkflowID,
		StepID:     stepID,
		Data:       data,
		Timestamp:  time.Now(),
	}
	if err := e.bus.Publish(e.ctx, ev); err != nil {
		e.logger.Errorf("Cannot publish %s event for workflow %s: %v", typ, state.WorkflowID, err)
	}
}

// lockFor returns the per-workflow execution lock, creating it on first
// use. Locks are never reclaimed; the map is bounded by the number of
// workflows touched within the retention window.
func (e *Engine) lockFor(workflowID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	lock, ok := e.locks[workflowID]
	if !ok {
		lock = &sync.Mutex{}
		e.locks[workflowID] = lock
	}
	return lock
}
