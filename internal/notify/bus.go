// Package notify carries change notifications between the store and its
// consumers, inside this process and across processes sharing the data.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/akolanti/DocAssist/internal/metrics"
	"github.com/akolanti/DocAssist/pkg/logger_i"
	"github.com/google/uuid"
)

type Topic string

const (
	TopicConversations      Topic = "conversations"
	TopicActiveConversation Topic = "active_conversation"
	TopicDocuments          Topic = "documents"
	TopicTranslations       Topic = "translations"
	TopicSettings           Topic = "settings"
)

var AllTopics = []Topic{
	TopicConversations,
	TopicActiveConversation,
	TopicDocuments,
	TopicTranslations,
	TopicSettings,
}

// Event names what changed, never the new value. Consumers re-read the store.
type Event struct {
	Topic  Topic     `json:"topic"`
	Key    string    `json:"key"`
	Origin string    `json:"origin"`
	At     time.Time `json:"at"`
	Remote bool      `json:"-"`
}

type Handler func(ctx context.Context, event Event)

type subscription struct {
	id      uint64
	handler Handler
}

// Bus delivers events synchronously, in subscription order. A panicking
// handler is logged and does not stop delivery to the others.
type Bus struct {
	mu     sync.RWMutex
	topics map[Topic][]subscription
	all    []subscription
	nextID uint64
	origin string
	closed bool
	logger *logger_i.Logger
}

func NewBus() *Bus {
	return NewBusWithOrigin(uuid.NewString())
}

// NewBusWithOrigin fixes the origin stamped on local events.
func NewBusWithOrigin(origin string) *Bus {
	return &Bus{
		topics: make(map[Topic][]subscription),
		origin: origin,
		logger: logger_i.NewLogger("Notify Bus").With("origin", origin),
	}
}

func (b *Bus) Origin() string {
	return b.origin
}

// Subscribe registers handler for one topic and returns its cancel func.
func (b *Bus) Subscribe(topic Topic, handler Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.topics[topic] = append(b.topics[topic], subscription{id: id, handler: handler})
	return func() { b.unsubscribe(topic, id) }
}

func (b *Bus) SubscribeAll(handler Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.all = append(b.all, subscription{id: id, handler: handler})
	return func() { b.unsubscribe("", id) }
}

func (b *Bus) unsubscribe(topic Topic, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if topic == "" {
		b.all = remove(b.all, id)
		return
	}
	b.topics[topic] = remove(b.topics[topic], id)
}

func remove(subs []subscription, id uint64) []subscription {
	out := make([]subscription, 0, len(subs))
	for _, s := range subs {
		if s.id != id {
			out = append(out, s)
		}
	}
	return out
}

// Publish stamps origin and time on local events and delivers them.
func (b *Bus) Publish(ctx context.Context, event Event) {
	if event.Origin == "" {
		event.Origin = b.origin
	}
	if event.At.IsZero() {
		event.At = time.Now()
	}

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return
	}
	handlers := make([]subscription, 0, len(b.topics[event.Topic])+len(b.all))
	handlers = append(handlers, b.topics[event.Topic]...)
	handlers = append(handlers, b.all...)
	b.mu.RUnlock()

	metrics.CaptureNotification(string(event.Topic), event.Remote)
	b.logger.WithTrace(ctx).Debug("publishing event", "topic", event.Topic, "key", event.Key, "remote", event.Remote, "handlers", len(handlers))

	for _, s := range handlers {
		b.dispatch(ctx, event, s.handler)
	}
}

func (b *Bus) dispatch(ctx context.Context, event Event, handler Handler) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("handler panicked", "topic", event.Topic, "key", event.Key, "panic", r)
		}
	}()
	handler(ctx, event)
}

func (b *Bus) Close() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	b.logger.Info("event bus closed")
}
