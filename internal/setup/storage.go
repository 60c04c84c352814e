package setup

import (
	"fmt"

	"github.com/robalyx/rowatch/internal/redis"
	"github.com/robalyx/rowatch/internal/setup/config"
	"github.com/robalyx/rowatch/internal/storage"
)

// NewBackend opens the dataset backend selected in the storage config.
// The redis manager is only used by the redis backend.
func NewBackend(cfg *config.Storage, redisManager *redis.Manager) (storage.Backend, error) {
	switch cfg.Backend {
	case config.BackendFile:
		return storage.NewFileBackend(cfg.DataDir)
	case config.BackendSQLite:
		return storage.NewSQLiteBackend(cfg.SQLitePath)
	case config.BackendRedis:
		client, err := redisManager.GetClient()
		if err != nil {
			return nil, err
		}

		return storage.NewRedisBackend(client, cfg.KeyPrefix), nil
	case config.BackendMemory:
		return storage.NewMemoryBackend(), nil
	default:
		return nil, fmt.Errorf("%w: unknown storage backend %q", config.ErrConfigInvalid, cfg.Backend)
	}
}
