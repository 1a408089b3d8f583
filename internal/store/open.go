package store

import (
	"context"
	"fmt"
	"strings"
)

const (
	BackendFile  = "file"
	BackendRedis = "redis"
)

type Config struct {
	Backend string      `mapstructure:"backend" validate:"omitempty,oneof=file redis"`
	Dir     string      `mapstructure:"dir"`
	Redis   RedisConfig `mapstructure:"redis"`
}

// Open builds the configured backend. The file backend is the default.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", BackendFile:
		dir := cfg.Dir
		if dir == "" {
			dir = "sessions"
		}
		return NewFileStore(dir)
	case BackendRedis:
		client, err := DialRedis(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		return NewRedisStore(client, DefaultKeyPrefix, cfg.Redis.TTL), nil
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", cfg.Backend)
	}
}
