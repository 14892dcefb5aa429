// Package config はアプリケーション設定の読み込みを提供する。
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// キャッシュバックエンドの種別。
const (
	CacheBackendMemory   = "memory"
	CacheBackendPostgres = "postgres"
	CacheBackendRedis    = "redis"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Server
	ServerPort string

	// Cache
	CacheBackend    string
	DatabaseURL     string
	RedisAddr       string
	DefaultCacheTTL time.Duration

	// Fetch
	FetchTimeout time.Duration
	FetchMaxSize int64

	// Render
	DateFormat string

	// Rate Limit（リクエスト/分）
	RateLimitRender     int
	RateLimitInvalidate int

	// Logging
	LogLevel string
}

// Load は環境変数からConfigを読み込む。
// CACHE_BACKENDがpostgresの場合はDATABASE_URL、redisの場合はREDIS_ADDRが必須。
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CacheBackend = getEnvString("CACHE_BACKEND", CacheBackendMemory)
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.RedisAddr = os.Getenv("REDIS_ADDR")
	cfg.DefaultCacheTTL = getEnvDuration("DEFAULT_CACHE_TTL", 24*time.Hour)
	cfg.FetchTimeout = getEnvDuration("FETCH_TIMEOUT", 10*time.Second)
	cfg.FetchMaxSize = getEnvInt64("FETCH_MAX_SIZE", 5242880)
	cfg.DateFormat = getEnvString("DATE_FORMAT", "(1/2/2006)")
	cfg.RateLimitRender = getEnvInt("RATE_LIMIT_RENDER", 120)
	cfg.RateLimitInvalidate = getEnvInt("RATE_LIMIT_INVALIDATE", 10)
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")

	switch cfg.CacheBackend {
	case CacheBackendMemory:
		// 追加設定は不要
	case CacheBackendPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("CACHE_BACKEND=postgres requires DATABASE_URL to be set")
		}
	case CacheBackendRedis:
		if cfg.RedisAddr == "" {
			return nil, fmt.Errorf("CACHE_BACKEND=redis requires REDIS_ADDR to be set")
		}
	default:
		return nil, fmt.Errorf("unsupported CACHE_BACKEND: %q (allowed: memory, postgres, redis)", cfg.CacheBackend)
	}

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
