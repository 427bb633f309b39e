package repositories

import (
	"petwatch/internal/core/ports"
	"petwatch/internal/infrastructure/repositories/memory"
	redisrepo "petwatch/internal/infrastructure/repositories/redis"
	"petwatch/pkg/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RepositoryFactory creates repositories with fallback support
type RepositoryFactory struct {
	useRedis    bool
	redisClient *redis.Client
	logger      *zap.SugaredLogger
}

// NewRepositoryFactory creates a new repository factory
func NewRepositoryFactory(cfg *config.Config, logger *zap.SugaredLogger) (*RepositoryFactory, error) {
	factory := &RepositoryFactory{
		useRedis: cfg.Redis.Enabled,
		logger:   logger,
	}

	// Try to connect to Redis if enabled
	if cfg.Redis.Enabled {
		client, err := redisrepo.NewRedisClient(
			cfg.Redis.Address,
			cfg.Redis.Password,
			cfg.Redis.DB,
			cfg.Redis.PoolSize,
			logger,
		)
		if err != nil {
			logger.Warnw("failed to connect to Redis, falling back to memory repositories",
				"error", err,
			)
			factory.useRedis = false
		} else {
			factory.redisClient = client
			logger.Info("using Redis repositories")
		}
	}

	if !factory.useRedis {
		logger.Info("using memory repositories")
	}

	return factory, nil
}

// CreateRecordingRepository creates a recording metadata repository (Redis or memory with fallback)
func (f *RepositoryFactory) CreateRecordingRepository() ports.RecordingRepository {
	if f.useRedis && f.redisClient != nil {
		// Remote-backed repository goes behind a circuit breaker so a
		// flapping Redis cannot stall stream control paths.
		return newResilientRecordingRepository(
			redisrepo.NewRedisRecordingRepository(f.redisClient),
			f.logger,
		)
	}
	return memory.NewMemoryRecordingRepository()
}

// RedisClient exposes the underlying client for health checks; nil when
// memory repositories are in use.
func (f *RepositoryFactory) RedisClient() *redis.Client {
	return f.redisClient
}

// Close releases factory resources
func (f *RepositoryFactory) Close() error {
	if f.redisClient != nil {
		return redisrepo.CloseRedisClient(f.redisClient)
	}
	return nil
}
