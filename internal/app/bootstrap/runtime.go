package bootstrap

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	appconfig "github.com/wolfman30/vetbot/internal/config"
	"github.com/wolfman30/vetbot/internal/session"
	"github.com/wolfman30/vetbot/pkg/logging"
)

const redisKeyPrefix = "vetbot"

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildStorage picks the session storage backend named by the config. The
// returned close func is never nil.
func BuildStorage(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (session.Storage, func() error, error) {
	noop := func() error { return nil }
	if cfg == nil {
		return nil, noop, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	switch cfg.StorageBackend {
	case "", "memory":
		return session.NewMemoryStorage(), noop, nil
	case "file":
		if strings.TrimSpace(cfg.StoragePath) == "" {
			return nil, noop, fmt.Errorf("bootstrap: file storage requires VETBOT_STORAGE_PATH")
		}
		return session.NewFileStorage(cfg.StoragePath), noop, nil
	case "redis":
		client := BuildRedisClient(ctx, cfg, logger, true)
		if client == nil {
			return nil, noop, fmt.Errorf("bootstrap: redis storage unavailable at %q", cfg.RedisAddr)
		}
		logger.Info("session storage on redis", "addr", cfg.RedisAddr, "ttl", cfg.SessionTTL)
		return session.NewRedisStorage(client, redisKeyPrefix, cfg.SessionTTL), client.Close, nil
	default:
		return nil, noop, fmt.Errorf("bootstrap: unknown storage backend %q", cfg.StorageBackend)
	}
}
