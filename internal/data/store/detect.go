package store

import (
	"context"
	"sync"

	"github.com/akolanti/DocAssist/internal/data/redisStore"
)

type Options struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	DisableRedis  bool
	// DataDir backs the flat store; empty keeps it in memory.
	DataDir string
}

type Detection struct {
	Kind  Kind
	Redis *redisStore.Store
	Err   error
}

var (
	detectOnce sync.Once
	detected   Detection
)

// DetectBackend probes for redis once per process and caches the answer.
// Later calls return the first result whatever their options.
func DetectBackend(ctx context.Context, opts Options) Detection {
	detectOnce.Do(func() {
		detected = probe(ctx, opts)
		logger.WithTrace(ctx).Info("storage backend detected", "kind", detected.Kind, "error", detected.Err)
	})
	return detected
}

func probe(ctx context.Context, opts Options) Detection {
	if opts.DisableRedis {
		return Detection{Kind: KindFlat}
	}
	rs, err := redisStore.Connect(ctx, redisStore.Options{
		Addr:     opts.RedisAddr,
		Password: opts.RedisPassword,
		DB:       opts.RedisDB,
	})
	if err != nil {
		return Detection{Kind: KindFlat, Err: err}
	}
	return Detection{Kind: KindIndexed, Redis: rs}
}
