package engine_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/maz279/getit-project-v2-sub015/pkg/engine"
)

func TestRetryPolicy(t *testing.T) {
	policy := engine.RetryPolicy{Base: time.Second, Cap: 5 * time.Minute}

	t.Run("ExponentialBackoff", func(t *testing.T) {
		expected := []time.Duration{
			1 * time.Second,
			2 * time.Second,
			4 * time.Second,
			8 * time.Second,
		}
		for retryCount, want := range expected {
			decision := policy.Decide(retryCount, 10)
			assert.True(t, decision.Retry)
			assert.Equal(t, want, decision.Delay)
		}
	})

	t.Run("CapBoundsDelay", func(t *testing.T) {
		decision := policy.Decide(20, 30)
		assert.True(t, decision.Retry)
		assert.Equal(t, 5*time.Minute, decision.Delay)
	})

	t.Run("TerminatesAtBound", func(t *testing.T) {
		assert.False(t, policy.Decide(3, 3).Retry)
		assert.False(t, policy.Decide(4, 3).Retry)
		assert.True(t, policy.Decide(2, 3).Retry)
	})

	t.Run("ZeroMaxRetriesNeverRetries", func(t *testing.T) {
		assert.False(t, policy.Decide(0, 0).Retry)
	})

	t.Run("Deterministic", func(t *testing.T) {
		first := policy.Decide(2, 5)
		for i := 0; i < 10; i++ {
			assert.Equal(t, first, policy.Decide(2, 5))
		}
	})

	t.Run("ZeroValueUsesDefaults", func(t *testing.T) {
		decision := engine.RetryPolicy{}.Decide(0, 3)
		assert.True(t, decision.Retry)
		assert.Equal(t, engine.DefaultRetryBase, decision.Delay)
	})
}
