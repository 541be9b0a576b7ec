package redisStore

import (
	"context"
	"fmt"
	"time"

	"github.com/akolanti/DocAssist/internal/config"
	"github.com/akolanti/DocAssist/pkg/logger_i"
	"github.com/redis/go-redis/v9"
)

var logger = logger_i.NewLogger("Redis Store")

type Options struct {
	Addr     string
	Password string
	DB       int
}

type Store struct {
	client *redis.Client
	DB     int
}

// Connect dials redis and pings it once. A nil store and an error mean the
// caller should continue without redis.
func Connect(ctx context.Context, opts Options) (*Store, error) {
	addr := opts.Addr
	if addr == "" {
		addr = config.RedisAddr
	}
	client := redis.NewClient(&redis.Options{
		Addr:                  addr,
		Password:              opts.Password,
		DB:                    opts.DB,
		ContextTimeoutEnabled: true,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
		MaxRetries:            1,
	})

	pingCtx, cancel := context.WithTimeout(ctx, config.RedisProbeTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		logger.Warn("Redis is offline", "addr", addr, "error", err)
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}

	logger.Info("Redis store init successfully", "addr", addr, "db", opts.DB)
	return &Store{client: client, DB: opts.DB}, nil
}

// NewStore wraps an existing client, used by tests against miniredis.
func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

func (s *Store) Close() error {
	logger.Info("Closing Redis store")
	return s.client.Close()
}
