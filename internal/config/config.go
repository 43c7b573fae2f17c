// Package config は環境変数からアプリケーション設定を読み込む。
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/hitoshi/startupconnect/internal/kvstore"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Store
	StoreBackend kvstore.Backend `env:"STORE_BACKEND" envDefault:"postgres"`
	DatabaseURL  string          `env:"DATABASE_URL"`
	RedisURL     string          `env:"REDIS_URL"`
	BadgerDir    string          `env:"BADGER_DIR" envDefault:"data/badger"`

	// Session
	SessionMaxAge int `env:"SESSION_MAX_AGE" envDefault:"86400"`

	// Server
	ServerPort string `env:"SERVER_PORT" envDefault:"8080"`
	BaseURL    string `env:"BASE_URL,required,notEmpty"`

	// Cookie
	CookieSecure bool
	CookieDomain string `env:"COOKIE_DOMAIN"`

	// Logging
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Cleanup
	CleanupInterval time.Duration `env:"CLEANUP_INTERVAL" envDefault:"1h"`
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	return &cfg, nil
}

// LoadDotEnv は指定されたファイルが存在すれば環境変数として読み込む。
// 既に設定済みの環境変数は上書きしない。
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	slog.Debug("loaded env file", slog.String("path", path))
	return nil
}

// validate はバックエンドごとの必須項目と値の範囲を検証する。
func (c *Config) validate() error {
	var missing []string

	switch c.StoreBackend {
	case kvstore.BackendPostgres:
		if c.DatabaseURL == "" {
			missing = append(missing, "DATABASE_URL")
		}
	case kvstore.BackendRedis:
		if c.RedisURL == "" {
			missing = append(missing, "REDIS_URL")
		}
	case kvstore.BackendBadger:
		if c.BadgerDir == "" {
			missing = append(missing, "BADGER_DIR")
		}
	case kvstore.BackendMemory:
	default:
		return fmt.Errorf("invalid STORE_BACKEND: %q", c.StoreBackend)
	}

	if len(missing) > 0 {
		return fmt.Errorf("required environment variables are not set: %v", missing)
	}

	if c.SessionMaxAge <= 0 {
		return fmt.Errorf("invalid SESSION_MAX_AGE: %d", c.SessionMaxAge)
	}
	if c.CleanupInterval <= 0 {
		return fmt.Errorf("invalid CLEANUP_INTERVAL: %s", c.CleanupInterval)
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// ParseLogLevel はLOG_LEVELの値をslog.Levelに変換する。
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL: %q", s)
	}
}
