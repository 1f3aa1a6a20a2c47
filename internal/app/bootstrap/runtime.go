package bootstrap

import (
	"context"
	"crypto/tls"
	"database/sql"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/gemini-chat/internal/chat"
	appconfig "github.com/wolfman30/gemini-chat/internal/config"
	"github.com/wolfman30/gemini-chat/internal/users"
	"github.com/wolfman30/gemini-chat/pkg/logging"
)

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

// BuildUsersRepository returns the Postgres account store, or an in-memory
// one when no database is configured.
func BuildUsersRepository(sqlDB *sql.DB, logger *logging.Logger) users.Repository {
	if sqlDB == nil {
		if logger != nil {
			logger.Warn("DATABASE_URL not set; accounts are kept in memory")
		}
		return users.NewInMemoryRepository()
	}
	return users.NewPostgresRepository(sqlDB)
}

// BuildChatStore picks the turn store named by CHAT_STORE. "auto" prefers
// Postgres, then Redis, then memory.
func BuildChatStore(cfg *appconfig.Config, pool chat.PgxPool, redisClient *redis.Client, directory chat.UserDirectory, logger *logging.Logger) (chat.Store, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	kind := cfg.ChatStore
	if kind == "" || kind == appconfig.StoreAuto {
		switch {
		case pool != nil:
			kind = appconfig.StorePostgres
		case redisClient != nil:
			kind = appconfig.StoreRedis
		default:
			kind = appconfig.StoreMemory
		}
	}

	switch kind {
	case appconfig.StorePostgres:
		if pool == nil {
			return nil, fmt.Errorf("bootstrap: chat store %q needs a database", kind)
		}
		logger.Info("chat store selected", "backend", kind)
		return chat.NewPostgresStore(pool), nil
	case appconfig.StoreRedis:
		if redisClient == nil {
			return nil, fmt.Errorf("bootstrap: chat store %q needs redis", kind)
		}
		if directory == nil {
			return nil, fmt.Errorf("bootstrap: chat store %q needs a user directory", kind)
		}
		logger.Info("chat store selected", "backend", kind)
		return chat.NewRedisStore(redisClient, directory), nil
	case appconfig.StoreMemory:
		logger.Warn("chat store selected", "backend", kind, "durable", false)
		return chat.NewMemoryStore(directory), nil
	default:
		return nil, fmt.Errorf("bootstrap: unknown chat store %q", kind)
	}
}
