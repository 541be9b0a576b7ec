package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/akolanti/DocAssist/internal/config"
	"github.com/akolanti/DocAssist/internal/data/redisStore"
	"github.com/akolanti/DocAssist/internal/data/store"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func testCtx() context.Context {
	return context.WithValue(context.Background(), config.TRACE_ID_KEY, "test-trace")
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redisStore.Store) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, redisStore.NewStore(client)
}

// mockBackend fails or answers through its On... funcs, falling back to memory.
type mockBackend struct {
	store.Backend
	OnPut    func(ctx context.Context, p store.Partition, id string, value []byte) error
	OnDelete func(ctx context.Context, p store.Partition, id string) error
}

func newMockBackend() *mockBackend {
	return &mockBackend{Backend: store.NewMemoryBackend()}
}

func (m *mockBackend) Put(ctx context.Context, p store.Partition, id string, value []byte) error {
	if m.OnPut != nil {
		return m.OnPut(ctx, p, id, value)
	}
	return m.Backend.Put(ctx, p, id, value)
}

func (m *mockBackend) Delete(ctx context.Context, p store.Partition, id string) error {
	if m.OnDelete != nil {
		return m.OnDelete(ctx, p, id)
	}
	return m.Backend.Delete(ctx, p, id)
}

var errDiskFull = errors.New("quota exceeded")
