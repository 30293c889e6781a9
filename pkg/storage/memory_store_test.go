package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/maz279/getit-project-v2-sub015/pkg/models"
	"github.com/maz279/getit-project-v2-sub015/pkg/storage"
)

func sampleState(workflowID string) *models.WorkflowState {
	now := time.Now()
	return &models.WorkflowState{
		WorkflowID:    workflowID,
		OrderID:       "order-1",
		Variant:       "standard",
		CurrentStepID: "order-validation",
		Status:        models.PendingWorkflowStatus,
		Steps: []models.WorkflowStep{
			{ID: "order-validation", Name: "Order Validation", Status: models.PendingStepStatus, MaxRetries: 3},
			{ID: "payment-processing", Name: "Payment Processing", Status: models.PendingStepStatus, MaxRetries: 3},
		},
		Context:   models.Context{"order_id": "order-1"},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()

	t.Run("SaveAndGet", func(t *testing.T) {
		store := storage.NewMemoryStore()
		state := sampleState("wf-1")
		assert.NoError(t, store.SaveState(ctx, state, 0))

		loaded, err := store.GetState(ctx, "wf-1")
		assert.NoError(t, err)
		assert.Equal(t, "order-1", loaded.OrderID)
		assert.Len(t, loaded.Steps, 2)
		assert.Equal(t, "order-1", loaded.Context["order_id"])
	})

	t.Run("GetMissing", func(t *testing.T) {
		store := storage.NewMemoryStore()
		_, err := store.GetState(ctx, "nope")
		assert.True(t, errors.Is(err, storage.ErrNotFound))
	})

	t.Run("Exists", func(t *testing.T) {
		store := storage.NewMemoryStore()
		assert.NoError(t, store.SaveState(ctx, sampleState("wf-2"), 0))

		ok, err := store.Exists(ctx, "wf-2")
		assert.NoError(t, err)
		assert.True(t, ok)

		ok, err = store.Exists(ctx, "wf-3")
		assert.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("ReadsAreIsolatedFromWrites", func(t *testing.T) {
		store := storage.NewMemoryStore()
		state := sampleState("wf-4")
		assert.NoError(t, store.SaveState(ctx, state, 0))

		loaded, err := store.GetState(ctx, "wf-4")
		assert.NoError(t, err)
		loaded.Steps[0].Status = models.CompletedStepStatus
		loaded.Context["tampered"] = true

		fresh, err := store.GetState(ctx, "wf-4")
		assert.NoError(t, err)
		assert.Equal(t, models.PendingStepStatus, fresh.Steps[0].Status)
		assert.NotContains(t, fresh.Context, "tampered")
	})

	t.Run("TTLExpiry", func(t *testing.T) {
		store := storage.NewMemoryStore()
		assert.NoError(t, store.SaveState(ctx, sampleState("wf-5"), 10*time.Millisecond))

		_, err := store.GetState(ctx, "wf-5")
		assert.NoError(t, err)

		assert.Eventually(t, func() bool {
			_, err := store.GetState(ctx, "wf-5")
			return errors.Is(err, storage.ErrNotFound)
		}, time.Second, 5*time.Millisecond)

		ok, err := store.Exists(ctx, "wf-5")
		assert.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("ListSkipsExpired", func(t *testing.T) {
		store := storage.NewMemoryStore()
		assert.NoError(t, store.SaveState(ctx, sampleState("wf-6"), 0))
		assert.NoError(t, store.SaveState(ctx, sampleState("wf-7"), time.Nanosecond))
		time.Sleep(5 * time.Millisecond)

		states, err := store.ListStates(ctx)
		assert.NoError(t, err)
		assert.Len(t, states, 1)
		assert.Equal(t, "wf-6", states[0].WorkflowID)
	})

	t.Run("Delete", func(t *testing.T) {
		store := storage.NewMemoryStore()
		assert.NoError(t, store.SaveState(ctx, sampleState("wf-8"), 0))
		assert.NoError(t, store.DeleteState(ctx, "wf-8"))

		_, err := store.GetState(ctx, "wf-8")
		assert.True(t, errors.Is(err, storage.ErrNotFound))
	})
}
