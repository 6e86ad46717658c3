package store

import (
	"fmt"

	"github.com/redis/go-redis/v9"

	"goose/internal/config"
)

// Open builds the store selected by cfg.Backend. Stores that hold
// connections implement io.Closer.
func Open(cfg config.StoreConfig) (Store, error) {
	switch cfg.Backend {
	case config.StoreBackendFile, "":
		return NewFile(cfg.Dir)
	case config.StoreBackendMemory:
		return NewMemory(), nil
	case config.StoreBackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		return NewRedis(client, RedisOptions{Prefix: cfg.Redis.Prefix}), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}
