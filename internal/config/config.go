package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// MinJWTSecretLen はHS256署名鍵として受け付ける最小バイト数。
const MinJWTSecretLen = 32

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Token
	JWTSecret    string
	JWTExpiresIn time.Duration

	// Password hashing (argon2id)
	PasswordHashTime      uint32
	PasswordHashMemoryKiB uint32
	PasswordHashThreads   uint8

	// Rate Limit
	RateLimitGeneral int

	// Logging
	LogLevel string

	// Server
	ServerPort  string
	Environment string

	// CORS
	CORSAllowedOrigin string
}

// IsProduction は本番環境かどうかを返す。
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	if len(cfg.JWTSecret) < MinJWTSecretLen {
		return nil, fmt.Errorf("JWT_SECRET must be at least %d bytes, got %d", MinJWTSecretLen, len(cfg.JWTSecret))
	}

	// Optional fields with defaults
	cfg.JWTExpiresIn = getEnvDuration("JWT_EXPIRES_IN", 24*time.Hour)
	cfg.PasswordHashTime = uint32(getEnvIntInRange("PASSWORD_HASH_TIME", 3, 1, 1<<10))
	cfg.PasswordHashMemoryKiB = uint32(getEnvIntInRange("PASSWORD_HASH_MEMORY_KIB", 64*1024, 8, 4*1024*1024))
	cfg.PasswordHashThreads = uint8(getEnvIntInRange("PASSWORD_HASH_THREADS", 2, 1, 255))
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.Environment = getEnvString("ENVIRONMENT", "development")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

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

// getEnvIntInRange は範囲外の値をデフォルト値として扱う。
func getEnvIntInRange(key string, defaultVal, minVal, maxVal int) int {
	i := getEnvInt(key, defaultVal)
	if i < minVal || i > maxVal {
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
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}
