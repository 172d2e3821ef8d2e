// Package config loads process configuration from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds every environment-derived setting the server needs to boot.
type Config struct {
	Env         string // "dev" enables pretty console logging
	HTTPAddr    string
	DatabaseURL string

	JWTSecret     string
	JWTIssuer     string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	WorkOSAPIKey   string
	WorkOSClientID string

	StripeSecretKey string

	WeChatAppID     string
	WeChatAppSecret string
	AlipayAppID     string
	AlipayPrivateKey string

	RedisAddr string

	SessionIdleWindow time.Duration
	SessionHardTTL    time.Duration
}

// Load reads a local .env (if present, dev convenience only) then the
// process environment, the way cmd/server/main.go's env() helper did,
// generalized into a package so both cmd/server and cmd/sweeper share it.
func Load() Config {
	if env("ENV", "") == "dev" || env("ENV", "") == "" {
		// Best effort: local dev convenience, never fatal if missing.
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			log.Warn().Err(err).Msg("failed to load .env file")
		}
	}

	return Config{
		Env:             env("ENV", ""),
		HTTPAddr:        env("HTTP_ADDR", ":8080"),
		DatabaseURL:     env("DATABASE_URL", ""),
		JWTSecret:       env("JWT_HS256_SECRET", "dev-secret-change-in-production"),
		JWTIssuer:       env("JWT_ISSUER", "ques-core"),
		AccessTokenTTL:  durationEnv("ACCESS_TOKEN_TTL", 30*time.Minute),
		RefreshTokenTTL: durationEnv("REFRESH_TOKEN_TTL", 30*24*time.Hour),
		WorkOSAPIKey:    env("WORKOS_API_KEY", ""),
		WorkOSClientID:  env("WORKOS_CLIENT_ID", ""),
		StripeSecretKey: env("STRIPE_SECRET_KEY", ""),
		WeChatAppID:     env("WECHAT_APP_ID", ""),
		WeChatAppSecret: env("WECHAT_APP_SECRET", ""),
		AlipayAppID:     env("ALIPAY_APP_ID", ""),
		AlipayPrivateKey: env("ALIPAY_PRIVATE_KEY", ""),
		RedisAddr:       env("REDIS_ADDR", ""),
		SessionIdleWindow: durationEnv("SESSION_IDLE_WINDOW", 15*time.Minute),
		SessionHardTTL:    durationEnv("SESSION_HARD_TTL", 7*24*time.Hour),
	}
}

// IsDev reports whether pretty console logging should be active.
func (c Config) IsDev() bool {
	return c.Env == "dev"
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func durationEnv(k string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Warn().Str("key", k).Str("value", v).Msg("invalid duration env var, using default")
		return def
	}
	return d
}

func intEnv(k string, def int) int {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
