package notify

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/akolanti/DocAssist/internal/data/redisStore"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sink struct {
	mu     sync.Mutex
	events []Event
	got    chan Event
}

func newSink() *sink {
	return &sink{got: make(chan Event, 16)}
}

func (s *sink) handle(_ context.Context, e Event) {
	s.mu.Lock()
	s.events = append(s.events, e)
	s.mu.Unlock()
	select {
	case s.got <- e:
	default:
	}
}

func (s *sink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func (s *sink) wait(t *testing.T) Event {
	t.Helper()
	select {
	case e := <-s.got:
		return e
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestBus_TopicRouting(t *testing.T) {
	bus := NewBusWithOrigin("tab-1")
	docs, all := newSink(), newSink()
	bus.Subscribe(TopicDocuments, docs.handle)
	bus.SubscribeAll(all.handle)

	bus.Publish(context.Background(), Event{Topic: TopicDocuments, Key: "d1"})
	bus.Publish(context.Background(), Event{Topic: TopicSettings, Key: "darkMode"})

	assert.Equal(t, 1, docs.count())
	assert.Equal(t, 2, all.count())

	e := docs.events[0]
	assert.Equal(t, "tab-1", e.Origin)
	assert.False(t, e.At.IsZero())
}

func TestBus_PanickingHandlerIsIsolated(t *testing.T) {
	bus := NewBus()
	after := newSink()
	bus.Subscribe(TopicConversations, func(context.Context, Event) { panic("boom") })
	bus.Subscribe(TopicConversations, after.handle)

	assert.NotPanics(t, func() {
		bus.Publish(context.Background(), Event{Topic: TopicConversations, Key: "c1"})
	})
	assert.Equal(t, 1, after.count())
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus()
	s := newSink()
	cancel := bus.Subscribe(TopicTranslations, s.handle)
	bus.Publish(context.Background(), Event{Topic: TopicTranslations})
	cancel()
	bus.Publish(context.Background(), Event{Topic: TopicTranslations})
	assert.Equal(t, 1, s.count())

	bus.Close()
	bus.SubscribeAll(s.handle)
	bus.Publish(context.Background(), Event{Topic: TopicTranslations})
	assert.Equal(t, 1, s.count(), "closed bus must not deliver")
}

func TestWatch_CoalescesBursts(t *testing.T) {
	bus := NewBus()
	var (
		mu      sync.Mutex
		reloads int
	)
	done := make(chan struct{}, 4)
	stop := watchWindow(bus, TopicConversations, 30*time.Millisecond, func(context.Context) error {
		mu.Lock()
		reloads++
		mu.Unlock()
		done <- struct{}{}
		return nil
	})
	defer stop()

	for i := 0; i < 5; i++ {
		bus.Publish(context.Background(), Event{Topic: TopicConversations, Key: "c1"})
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("reload never ran")
	}
	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, reloads)
}

func TestRedisRelay_CrossProcess(t *testing.T) {
	mr := miniredis.RunT(t)
	newStore := func() *redisStore.Store {
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = client.Close() })
		return redisStore.NewStore(client)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	busA, busB := NewBusWithOrigin("a"), NewBusWithOrigin("b")
	relayA, relayB := NewRedisRelay(newStore(), busA), NewRedisRelay(newStore(), busB)
	require.NoError(t, relayA.Start(ctx))
	require.NoError(t, relayB.Start(ctx))
	defer relayA.Close()
	defer relayB.Close()

	atA, atB := newSink(), newSink()
	busA.SubscribeAll(atA.handle)
	busB.SubscribeAll(atB.handle)

	busA.Publish(ctx, Event{Topic: TopicDocuments, Key: "d1"})

	local := atA.wait(t)
	assert.False(t, local.Remote)

	remote := atB.wait(t)
	assert.True(t, remote.Remote)
	assert.Equal(t, TopicDocuments, remote.Topic)
	assert.Equal(t, "d1", remote.Key)
	assert.Equal(t, "a", remote.Origin)

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, atA.count(), "own events must not echo back")
}

func TestFileRelay_ForeignWrite(t *testing.T) {
	dir := t.TempDir()
	bus := NewBus()
	topicFor := func(key string) (Topic, bool) {
		if key == "conversations" {
			return TopicConversations, true
		}
		return "", false
	}
	relay := NewFileRelay(dir, ".json", bus, topicFor)
	require.NoError(t, relay.Start(context.Background()))
	defer relay.Close()

	got := newSink()
	bus.SubscribeAll(got.handle)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "unrelated.json"), []byte(`{}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "conversations.json"), []byte(`{}`), 0o644))

	e := got.wait(t)
	assert.Equal(t, TopicConversations, e.Topic)
	assert.Equal(t, "conversations", e.Key)
	assert.True(t, e.Remote)

	writeRenamed(t, dir, "conversations", `{"x":{}}`, relay.MarkWritten)
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, 1, got.count(), "own write must not come back as remote")
}

func TestFileRelay_ForeignWriteRightAfterOwnWrite(t *testing.T) {
	dir := t.TempDir()
	bus := NewBus()
	topicFor := func(key string) (Topic, bool) {
		return TopicDocuments, key == "documents"
	}
	relay := NewFileRelay(dir, ".json", bus, topicFor)
	require.NoError(t, relay.Start(context.Background()))
	defer relay.Close()

	got := newSink()
	bus.SubscribeAll(got.handle)

	writeRenamed(t, dir, "documents", `{"a":{}}`, relay.MarkWritten)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 0, got.count())

	// another process replaces the file while ours is still fresh
	writeRenamed(t, dir, "documents", `{"a":{},"b":{}}`, nil)

	e := got.wait(t)
	assert.Equal(t, TopicDocuments, e.Topic)
	assert.Equal(t, "documents", e.Key)
	assert.True(t, e.Remote)
}

func TestFileRelay_OwnRemoveIsSuppressed(t *testing.T) {
	dir := t.TempDir()
	bus := NewBus()
	relay := NewFileRelay(dir, ".json", bus, func(key string) (Topic, bool) {
		return TopicSettings, true
	})
	writeRenamed(t, dir, "theme", `"dark"`, nil)
	require.NoError(t, relay.Start(context.Background()))
	defer relay.Close()

	got := newSink()
	bus.SubscribeAll(got.handle)

	relay.MarkWritten("theme", nil)
	require.NoError(t, os.Remove(filepath.Join(dir, "theme.json")))
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, 0, got.count())

	writeRenamed(t, dir, "theme", `"light"`, nil)
	e := got.wait(t)
	assert.Equal(t, "theme", e.Key)
}

// writeRenamed writes key the way the flat store does: temp file, then
// rename. mark, when set, is told about the file before it lands.
func writeRenamed(t *testing.T, dir, key, value string, mark func(string, os.FileInfo)) {
	t.Helper()
	tmp, err := os.CreateTemp(dir, "."+key+"-*.tmp")
	require.NoError(t, err)
	_, err = tmp.WriteString(value)
	require.NoError(t, err)
	require.NoError(t, tmp.Close())
	if mark != nil {
		info, err := os.Stat(tmp.Name())
		require.NoError(t, err)
		mark(key, info)
	}
	require.NoError(t, os.Rename(tmp.Name(), filepath.Join(dir, key+".json")))
}
