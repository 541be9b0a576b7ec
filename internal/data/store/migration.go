package store

import (
	"context"
	"fmt"
	"time"

	"github.com/akolanti/DocAssist/internal/config"
	"github.com/akolanti/DocAssist/internal/data/redisStore"
	"github.com/akolanti/DocAssist/internal/domain/commonModels"
)

var (
	schemaKey   = config.RedisKeyPrefix + "schema:version"
	migratedKey = config.RedisKeyPrefix + "migrated"
)

// Initialize prepares the indexed backend and moves flat data into it the
// first time any process sees it. It never fails the caller: false means
// keep using the flat backend.
func Initialize(ctx context.Context, rs *redisStore.Store, legacy Backend) bool {
	log := logger.WithTrace(ctx)

	if err := ensureSchema(ctx, rs); err != nil {
		log.Error("storage init failed, continuing with flat backend", "error", err)
		return false
	}
	if legacy == nil {
		return true
	}

	claimed, err := rs.SetNX(ctx, migratedKey, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		log.Error("storage init failed, continuing with flat backend",
			"error", &commonModels.StorageInitError{Step: "migration marker", Err: err})
		return false
	}
	if !claimed {
		log.Debug("flat data already migrated")
		return true
	}

	moved, err := migrate(ctx, rs, legacy)
	if err != nil {
		// release the marker so the next start tries again
		if delErr := rs.Del(context.WithoutCancel(ctx), migratedKey); delErr != nil {
			log.Warn("could not release migration marker", "error", delErr)
		}
		log.Error("storage init failed, continuing with flat backend",
			"error", &commonModels.StorageInitError{Step: "migration", Err: err})
		return false
	}
	log.Info("migrated flat data into indexed backend", "entries", moved)
	return true
}

func ensureSchema(ctx context.Context, rs *redisStore.Store) error {
	current, err := rs.Get(ctx, schemaKey)
	switch {
	case rs.IsNil(err):
		if err := rs.Set(ctx, schemaKey, config.StorageSchemaValue, 0); err != nil {
			return &commonModels.StorageInitError{Step: "schema", Err: err}
		}
		return nil
	case err != nil:
		return &commonModels.StorageInitError{Step: "schema", Err: err}
	case current != config.StorageSchemaValue:
		return &commonModels.StorageInitError{
			Step: "schema",
			Err:  fmt.Errorf("unsupported schema version %q, want %q", current, config.StorageSchemaValue),
		}
	}
	return nil
}

func migrate(ctx context.Context, rs *redisStore.Store, legacy Backend) (int, error) {
	moved := 0
	for _, partition := range AllPartitions {
		entries, err := legacy.GetAll(ctx, partition)
		if err != nil {
			return moved, fmt.Errorf("reading flat %s: %w", partition, err)
		}
		if err := rs.HSetMany(ctx, partitionKey(partition), entries); err != nil {
			return moved, fmt.Errorf("writing %s: %w", partition, err)
		}
		moved += len(entries)
	}
	return moved, nil
}
