package config

// Redis backs sessions, distributed rate limiting and HTTP response
// caching.  When the server cannot be reached at startup, callers fall
// back to in-process sessions and run without caching and rate limiting.

import (
	"context"
	"crypto/tls"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig describes how to reach Redis.
type RedisConfig struct {
	Addr          string
	Password      string
	DB            int
	TLS           bool
	SessionPrefix string
}

// LoadRedisConfig reads REDIS_HOST and REDIS_PORT, or REDIS_ADDR as
// host:port, plus REDIS_PASSWORD, REDIS_DB, REDIS_TLS ("true" or "1") and
// SESSION_PREFIX (default "session").
func LoadRedisConfig() RedisConfig {
	addr := envStr("REDIS_ADDR", "")
	host, port := envStr("REDIS_HOST", ""), envStr("REDIS_PORT", "")
	if host != "" && port != "" {
		addr = host + ":" + port
	}
	if addr == "" {
		addr = "localhost:6379"
	}
	tlsEnv := envStr("REDIS_TLS", "")
	return RedisConfig{
		Addr:          addr,
		Password:      envStr("REDIS_PASSWORD", ""),
		DB:            envInt("REDIS_DB", 0),
		TLS:           strings.EqualFold(tlsEnv, "true") || tlsEnv == "1",
		SessionPrefix: envStr("SESSION_PREFIX", "session"),
	}
}

// NewRedisClient connects using c and pings the server with a short
// timeout.  It returns nil when the server is unreachable.
func NewRedisClient(c RedisConfig) *redis.Client {
	var tlsConf *tls.Config
	if c.TLS {
		tlsConf = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(&redis.Options{
		Addr:      c.Addr,
		Password:  c.Password,
		DB:        c.DB,
		TLSConfig: tlsConf,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil
	}
	return client
}
