package engine_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/maz279/getit-project-v2-sub015/pkg/engine"
	"github.com/maz279/getit-project-v2-sub015/pkg/models"
)

func TestExecutor(t *testing.T) {
	t.Run("DispatchesRegisteredAction", func(t *testing.T) {
		exec := engine.NewExecutor()
		assert.NoError(t, exec.Register("charge", func(ctx context.Context, wfCtx models.Context) (interface{}, error) {
			return wfCtx["order_id"], nil
		}))

		output, err := exec.Execute(context.Background(), "charge", models.Context{"order_id": "order-9"})
		assert.NoError(t, err)
		assert.Equal(t, "order-9", output)
	})

	t.Run("UnknownStep", func(t *testing.T) {
		exec := engine.NewExecutor()
		_, err := exec.Execute(context.Background(), "missing", nil)
		assert.True(t, errors.Is(err, engine.ErrUnknownStep))
	})

	t.Run("RejectsEmptyRegistration", func(t *testing.T) {
		exec := engine.NewExecutor()
		assert.Error(t, exec.Register("", func(ctx context.Context, wfCtx models.Context) (interface{}, error) {
			return nil, nil
		}))
		assert.Error(t, exec.Register("step", nil))
	})

	t.Run("RecoversPanics", func(t *testing.T) {
		exec := engine.NewExecutor()
		assert.NoError(t, exec.Register("explode", func(ctx context.Context, wfCtx models.Context) (interface{}, error) {
			panic("kaboom")
		}))

		output, err := exec.Execute(context.Background(), "explode", nil)
		assert.Nil(t, output)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "kaboom")
	})

	t.Run("ReplacesBinding", func(t *testing.T) {
		exec := engine.NewExecutor()
		assert.NoError(t, exec.Register("step", func(ctx context.Context, wfCtx models.Context) (interface{}, error) {
			return "v1", nil
		}))
		assert.NoError(t, exec.Register("step", func(ctx context.Context, wfCtx models.Context) (interface{}, error) {
			return "v2", nil
		}))
		output, err := exec.Execute(context.Background(), "step", nil)
		assert.NoError(t, err)
		assert.Equal(t, "v2", output)
	})
}
