package store

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"signclient/internal/domain"
)

// Backend names accepted in Config.Backend.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Config selects and configures a storage backend.
type Config struct {
	Backend string `yaml:"backend"`
	// Path is a directory for the file backend and a database file for sqlite.
	Path string `yaml:"path"`
	// Passphrase, when set, seals file backend values at rest.
	Passphrase string      `yaml:"passphrase"`
	Redis      RedisConfig `yaml:"redis"`
}

// RedisConfig holds connection settings for the redis backend.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// NewStorage opens the backend named by cfg. An unreachable redis falls
// back to memory with a warning.
func NewStorage(ctx context.Context, cfg Config, log *zap.Logger) (domain.Storage, error) {
	if log == nil {
		log = zap.NewNop()
	}
	switch cfg.Backend {
	case "", BackendMemory:
		log.Debug("using in-memory storage")
		return NewMemoryStorage(), nil
	case BackendFile:
		log.Debug("using file storage", zap.String("dir", cfg.Path))
		return NewFileStorage(cfg.Path, cfg.Passphrase), nil
	case BackendSQLite:
		path := cfg.Path
		if filepath.Ext(path) == "" {
			path = filepath.Join(path, "signclient.db")
		}
		log.Debug("using sqlite storage", zap.String("path", path))
		return OpenSQLiteStorage(path)
	case BackendRedis:
		s, err := NewRedisStorage(ctx, cfg.Redis)
		if err != nil {
			log.Warn("redis connection failed, falling back to in-memory storage",
				zap.String("addr", cfg.Redis.Addr), zap.Error(err))
			return NewMemoryStorage(), nil
		}
		log.Debug("using redis storage", zap.String("addr", cfg.Redis.Addr))
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
