package event

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/maz279/getit-project-v2-sub015/pkg/models"
)

const (
	// EventsChannel carries outbound workflow/step lifecycle events.
	EventsChannel = "orderflow.events"
	// CompletionsChannel carries inbound externally confirmed step
	// settlements keyed by workflow id.
	CompletionsChannel = "orderflow.completions"
)

// RedisBus implements Bus over redis pub/sub, for deployments where
// collaborator services confirm steps from another process.
type RedisBus struct {
	rdb    *redis.Client
	logger Logger

	mu          sync.Mutex
	ctx         context.Context
	cancel      context.CancelFunc
	subs        []*redis.PubSub
	wg          sync.WaitGroup
	handlers    []func(models.Event)
	completions []func(models.Completion)
}

// Logger is the narrow logging surface the bus needs.
type Logger interface {
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

func NewRedisBus(rdb *redis.Client, logger Logger) *RedisBus {
	return &RedisBus{rdb: rdb, logger: logger}
}

func (b *RedisBus) Publish(ctx context.Context, ev models.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return errors.Wrap(err, "marshal event")
	}
	if err := b.rdb.Publish(ctx, EventsChannel, payload).Err(); err != nil {
		return errors.Wrapf(err, "publish event '%s'", ev.Type)
	}
	return nil
}

func (b *RedisBus) Subscribe(fn func(models.Event)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, fn)
	if len(b.handlers) == 1 {
		b.consume(EventsChannel, func(payload []byte) {
			var ev models.Event
			if err := json.Unmarshal(payload, &ev); err != nil {
				b.logger.Errorf("Dropping malformed event payload: %v", err)
				return
			}
			b.mu.Lock()
			handlers := append([]func(models.Event){}, b.handlers...)
			b.mu.Unlock()
			for _, h := range handlers {
				dispatch(func() { h(ev) })
			}
		})
	}
}

func (b *RedisBus) SubscribeCompletions(fn func(models.Completion)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.completions = append(b.completions, fn)
	if len(b.completions) == 1 {
		b.consume(CompletionsChannel, func(payload []byte) {
			var c models.Completion
			if err := json.Unmarshal(payload, &c); err != nil {
				b.logger.Errorf("Dropping malformed completion payload: %v", err)
				return
			}
			b.mu.Lock()
			handlers := append([]func(models.Completion){}, b.completions...)
			b.mu.Unlock()
			for _, h := range handlers {
				dispatch(func() { h(c) })
			}
		})
	}
}

// SignalCompletion publishes a step settlement for another process's
// engine to pick up.
func (b *RedisBus) SignalCompletion(ctx context.Context, c models.Completion) error {
	payload, err := json.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "marshal completion")
	}
	if err := b.rdb.Publish(ctx, CompletionsChannel, payload).Err(); err != nil {
		return errors.Wrapf(err, "publish completion for workflow %s", c.WorkflowID)
	}
	return nil
}

// consume starts a pub/sub reader goroutine for one channel. It runs
// until Close. Caller holds b.mu.
func (b *RedisBus) consume(channel string, handle func(payload []byte)) {
	if b.ctx == nil {
		b.ctx, b.cancel = context.WithCancel(context.Background())
	}
	sub := b.rdb.Subscribe(b.ctx, channel)
	b.subs = append(b.subs, sub)
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		for msg := range sub.Channel() {
			handle([]byte(msg.Payload))
		}
	}()
}

func (b *RedisBus) Close() error {
	b.mu.Lock()
	if b.cancel != nil {
		b.cancel()
	}
	subs := b.subs
	b.subs = nil
	b.mu.Unlock()
	for _, sub := range subs {
		_ = sub.Close()
	}
	b.wg.Wait()
	return nil
}
