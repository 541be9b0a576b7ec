package store

import (
	"context"
	"fmt"

	"github.com/akolanti/DocAssist/internal/config"
	"github.com/akolanti/DocAssist/internal/data/redisStore"
	"github.com/akolanti/DocAssist/internal/domain/commonModels"
)

// RedisBackend keeps one hash per partition, field = entity id.
type RedisBackend struct {
	store *redisStore.Store
}

func NewRedisBackend(store *redisStore.Store) *RedisBackend {
	return &RedisBackend{store: store}
}

func partitionKey(p Partition) string {
	return config.RedisKeyPrefix + string(p)
}

func (b *RedisBackend) Kind() Kind {
	return KindIndexed
}

func (b *RedisBackend) Get(ctx context.Context, partition Partition, id string) ([]byte, error) {
	if err := validPartition(partition); err != nil {
		return nil, err
	}
	val, err := b.store.HGet(ctx, partitionKey(partition), id)
	if b.store.IsNil(err) {
		return nil, commonModels.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s/%s: %w", partition, id, err)
	}
	return val, nil
}

func (b *RedisBackend) GetAll(ctx context.Context, partition Partition) (map[string][]byte, error) {
	if err := validPartition(partition); err != nil {
		return nil, err
	}
	raw, err := b.store.HGetAll(ctx, partitionKey(partition))
	if err != nil {
		return nil, fmt.Errorf("redis list %s: %w", partition, err)
	}
	out := make(map[string][]byte, len(raw))
	for id, val := range raw {
		out[id] = []byte(val)
	}
	return out, nil
}

func (b *RedisBackend) Put(ctx context.Context, partition Partition, id string, value []byte) error {
	if err := validPartition(partition); err != nil {
		return err
	}
	return b.store.HSet(ctx, partitionKey(partition), id, value)
}

func (b *RedisBackend) Delete(ctx context.Context, partition Partition, id string) error {
	if err := validPartition(partition); err != nil {
		return err
	}
	return b.store.HDel(ctx, partitionKey(partition), id)
}

func (b *RedisBackend) Close() error {
	return b.store.Close()
}
