package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/akolanti/DocAssist/internal/config"
	"github.com/akolanti/DocAssist/internal/data/redisStore"
	"github.com/akolanti/DocAssist/pkg/logger_i"
)

type RedisRelay struct {
	store   *redisStore.Store
	bus     *Bus
	channel string
	logger  *logger_i.Logger

	outbox chan Event
	unsub  func()
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewRedisRelay(store *redisStore.Store, bus *Bus) *RedisRelay {
	return &RedisRelay{
		store:   store,
		bus:     bus,
		channel: config.RedisEventChannel,
		logger:  logger_i.NewLogger("Redis Relay"),
		outbox:  make(chan Event, config.BufferLimit),
	}
}

// Start subscribes to the channel before returning so no remote event
// published afterwards is missed.
func (r *RedisRelay) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	pubsub := r.store.Subscribe(ctx, r.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		cancel()
		_ = pubsub.Close()
		return fmt.Errorf("subscribing to %s: %w", r.channel, err)
	}

	r.unsub = r.bus.SubscribeAll(func(_ context.Context, event Event) {
		if event.Remote {
			return
		}
		select {
		case r.outbox <- event:
		default:
			r.logger.Warn("relay outbox full, dropping event", "topic", event.Topic, "key", event.Key)
		}
	})

	r.wg.Add(2)
	go r.forward(ctx)
	go func() {
		defer r.wg.Done()
		defer pubsub.Close()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				r.receive(ctx, []byte(msg.Payload))
			}
		}
	}()

	r.logger.Info("relay started", "channel", r.channel)
	return nil
}

func (r *RedisRelay) forward(ctx context.Context) {
	defer r.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-r.outbox:
			payload, err := json.Marshal(event)
			if err != nil {
				r.logger.Error("could not encode event", "error", err)
				continue
			}
			if err := r.store.Publish(ctx, r.channel, payload); err != nil {
				r.logger.Warn("could not publish event", "topic", event.Topic, "error", err)
			}
		}
	}
}

func (r *RedisRelay) receive(ctx context.Context, payload []byte) {
	var event Event
	if err := json.Unmarshal(payload, &event); err != nil {
		r.logger.Warn("ignoring malformed event", "error", err)
		return
	}
	if event.Origin == r.bus.Origin() {
		return
	}
	event.Remote = true
	r.bus.Publish(ctx, event)
}

func (r *RedisRelay) Close() error {
	if r.unsub != nil {
		r.unsub()
	}
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
	return nil
}
