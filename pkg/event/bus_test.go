package event_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/maz279/getit-project-v2-sub015/pkg/event"
	"github.com/maz279/getit-project-v2-sub015/pkg/models"
)

func TestMemoryBus(t *testing.T) {
	t.Run("PublishReachesAllSubscribers", func(t *testing.T) {
		bus := event.NewMemoryBus()
		var mu sync.Mutex
		var got []models.EventType
		for i := 0; i < 2; i++ {
			bus.Subscribe(func(ev models.Event) {
				mu.Lock()
				got = append(got, ev.Type)
				mu.Unlock()
			})
		}

		err := bus.Publish(context.Background(), models.Event{
			Type:       models.StepCompletedEvent,
			WorkflowID: "wf-1",
			Timestamp:  time.Now(),
		})
		assert.NoError(t, err)

		mu.Lock()
		defer mu.Unlock()
		assert.Len(t, got, 2)
	})

	t.Run("PanickingHandlerDoesNotBreakDispatch", func(t *testing.T) {
		bus := event.NewMemoryBus()
		bus.Subscribe(func(ev models.Event) {
			panic("handler bug")
		})
		delivered := false
		bus.Subscribe(func(ev models.Event) {
			delivered = true
		})

		assert.NoError(t, bus.Publish(context.Background(), models.Event{Type: models.StepFailedEvent}))
		assert.True(t, delivered)
	})

	t.Run("CompletionsReachSubscribers", func(t *testing.T) {
		bus := event.NewMemoryBus()
		var got []models.Completion
		bus.SubscribeCompletions(func(c models.Completion) {
			got = append(got, c)
		})

		bus.SignalCompletion(models.Completion{
			WorkflowID: "wf-2",
			StepID:     "payment-processing",
			Outcome:    models.CompletionSucceeded,
		})

		assert.Len(t, got, 1)
		assert.Equal(t, "wf-2", got[0].WorkflowID)
	})

	t.Run("CloseIsIdempotent", func(t *testing.T) {
		bus := event.NewMemoryBus()
		assert.NoError(t, bus.Close())
		assert.NoError(t, bus.Close())
	})
}
