package app

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"signclient/internal/domain"
	"signclient/internal/heartbeat"
	"signclient/internal/store"
)

// DefaultRelayURL is where a locally started cmd/relay listens.
const DefaultRelayURL = "ws://127.0.0.1:8080/ws"

// Config holds runtime wiring options for building the client.
type Config struct {
	Home              string          `yaml:"home"`      // data directory, e.g. $HOME/.signclient
	RelayURL          string          `yaml:"relay_url"` // e.g. ws://127.0.0.1:8080/ws
	Storage           store.Config    `yaml:"storage"`
	Metadata          domain.Metadata `yaml:"metadata"`
	HeartbeatInterval time.Duration   `yaml:"heartbeat_interval"`
	Log               LogConfig       `yaml:"log"`

	// Relayer, when set, is used instead of dialing RelayURL.
	Relayer domain.Relayer `yaml:"-"`
}

// LogConfig selects the zap logger built by NewLogger.
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// DefaultConfig returns the configuration used when nothing overrides it.
func DefaultConfig() Config {
	home := ".signclient"
	if dir, err := os.UserHomeDir(); err == nil {
		home = filepath.Join(dir, ".signclient")
	}
	return Config{
		Home:              home,
		RelayURL:          DefaultRelayURL,
		Storage:           store.Config{Backend: store.BackendFile},
		Metadata:          domain.Metadata{Name: "signclient", Description: "signclient CLI"},
		HeartbeatInterval: heartbeat.DefaultInterval,
		Log:               LogConfig{Level: "error"},
	}
}

// LoadConfig starts from DefaultConfig, applies the YAML file at path when
// it exists, then .env and environment overrides. An empty path looks for
// config.yaml under the home directory.
func LoadConfig(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := DefaultConfig()
	if home := os.Getenv("SIGNCLIENT_HOME"); home != "" {
		cfg.Home = home
	}
	if path == "" {
		path = filepath.Join(cfg.Home, "config.yaml")
	}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return Config{}, fmt.Errorf("read config: %w", err)
	default:
		if err := decodeConfig(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	applyEnv(&cfg)
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = cfg.Home
	}
	return cfg, nil
}

func decodeConfig(data []byte, cfg *Config) error {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	return decoder.Decode(cfg)
}

func applyEnv(cfg *Config) {
	cfg.Home = envOrDefault("SIGNCLIENT_HOME", cfg.Home)
	cfg.RelayURL = envOrDefault("SIGNCLIENT_RELAY_URL", cfg.RelayURL)
	cfg.Storage.Backend = envOrDefault("SIGNCLIENT_STORAGE", cfg.Storage.Backend)
	cfg.Storage.Path = envOrDefault("SIGNCLIENT_STORAGE_PATH", cfg.Storage.Path)
	cfg.Storage.Passphrase = envOrDefault("SIGNCLIENT_STORAGE_PASSPHRASE", cfg.Storage.Passphrase)
	cfg.Storage.Redis.Addr = envOrDefault("REDIS_ADDR", cfg.Storage.Redis.Addr)
	cfg.Storage.Redis.Username = envOrDefault("REDIS_USERNAME", cfg.Storage.Redis.Username)
	cfg.Storage.Redis.Password = envOrDefault("REDIS_PASSWORD", cfg.Storage.Redis.Password)
	cfg.Storage.Redis.DB = envIntOrDefault("REDIS_DB", cfg.Storage.Redis.DB)
	cfg.Log.Level = envOrDefault("SIGNCLIENT_LOG_LEVEL", cfg.Log.Level)
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOrDefault(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
