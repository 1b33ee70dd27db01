// Package config は環境変数からアプリケーション設定を読み込む。
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// minJWTSecretLength はHS256署名鍵として受け付ける最小バイト数。
const minJWTSecretLength = 32

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// JWT
	JWTSecret string
	JWTTTL    time.Duration
	JWTIssuer string
	JWTLeeway time.Duration

	// Password
	BcryptCost int

	// Phone（国番号なしの電話番号を解釈する既定の国）
	PhoneRegion string

	// Rate Limit（req/min）
	RateLimitGeneral int
	RateLimitLogin   int

	// Retention
	ReminderRetentionDays int
	CallRetentionDays     int

	// Server
	ServerPort string

	// CORS
	CORSAllowedOrigin string
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

	if len(cfg.JWTSecret) < minJWTSecretLength {
		return nil, fmt.Errorf("JWT_SECRET must be at least %d bytes", minJWTSecretLength)
	}

	// Optional fields with defaults
	cfg.JWTTTL = getEnvDuration("JWT_TTL", 24*time.Hour)
	cfg.JWTIssuer = getEnvString("JWT_ISSUER", "clinicman")
	cfg.JWTLeeway = getEnvDuration("JWT_LEEWAY", 0)
	cfg.BcryptCost = getEnvInt("BCRYPT_COST", 12)
	cfg.PhoneRegion = getEnvString("PHONE_REGION", "JP")
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitLogin = getEnvInt("RATE_LIMIT_LOGIN", 10)
	cfg.ReminderRetentionDays = getEnvInt("REMINDER_RETENTION_DAYS", 90)
	cfg.CallRetentionDays = getEnvInt("CALL_RETENTION_DAYS", 365)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	if cfg.JWTTTL <= 0 {
		return nil, fmt.Errorf("JWT_TTL must be positive, got %s", cfg.JWTTTL)
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
