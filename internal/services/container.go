package services

import (
	"context"
	"fmt"

	"github.com/portalxml/portal-api/internal/config"
	"github.com/portalxml/portal-api/internal/monitor"
	"github.com/portalxml/portal-api/internal/portal"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Container holds all service dependencies
type Container struct {
	config      *config.Config
	logger      *logrus.Logger
	redisClient *redis.Client
	cancel      context.CancelFunc

	Tokens     *portal.TokenStore
	Portal     *portal.Client
	Cache      *CacheService
	Conectados *ConectadosCache
	Fleet      *monitor.FleetStatus
	Registry   *monitor.Registry
}

// NewContainer creates a new service container
func NewContainer(cfg *config.Config, logger *logrus.Logger) (*Container, error) {
	ctx, cancel := context.WithCancel(context.Background())
	container := &Container{
		config: cfg,
		logger: logger,
		cancel: cancel,
	}

	container.initRedis()
	if err := container.initServices(ctx); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	return container, nil
}

// initRedis initializes the Redis client, degrading to the in-memory
// cache when the connection fails.
func (c *Container) initRedis() {
	c.redisClient = redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", c.config.Redis.Host, c.config.Redis.Port),
		Password:     c.config.Redis.Password,
		DB:           c.config.Redis.DB,
		PoolSize:     c.config.Redis.PoolSize,
		DialTimeout:  c.config.Redis.DialTimeout,
		ReadTimeout:  c.config.Redis.ReadTimeout,
		WriteTimeout: c.config.Redis.WriteTimeout,
	})

	ctx := context.Background()
	if err := c.redisClient.Ping(ctx).Err(); err != nil {
		c.logger.Warn("Redis connection failed, running without shared cache")
		c.redisClient = nil
	} else {
		c.logger.Info("Redis connection established")
	}
}

func (c *Container) initServices(ctx context.Context) error {
	c.Tokens = portal.NewTokenStore()
	c.Portal = portal.NewClient(c.config.Backend, c.Tokens, c.logger)

	c.Cache = NewCacheService(c.redisClient, c.config.Redis.CacheTTL, c.logger)
	c.Cache.StartCleanupRoutine(ctx)

	c.Conectados = NewConectadosCache(c.Portal, c.Cache, c.logger)

	c.Fleet = monitor.NewFleetStatus(
		c.config.Polling.FleetStatusInterval,
		c.config.Polling.StaleThreshold,
		c.Conectados,
		c.logger,
	)

	c.Registry = monitor.NewRegistry(c.config.Polling.SessionTTL, c.logger)
	return nil
}

// Close closes all service connections
func (c *Container) Close() error {
	c.cancel()

	if c.Registry != nil {
		c.Registry.Close()
	}
	if c.Fleet != nil {
		c.Fleet.Stop()
	}
	if c.redisClient != nil {
		if err := c.redisClient.Close(); err != nil {
			return fmt.Errorf("failed to close Redis: %w", err)
		}
	}
	return nil
}

// Health checks the health of all services
func (c *Container) Health() map[string]interface{} {
	health := c.Cache.Health()
	health["monitors"] = map[string]interface{}{
		"active_sessions": c.Registry.Len(),
	}
	health["backend"] = map[string]interface{}{
		"base_url": c.config.Backend.BaseURL,
	}
	return health
}

// GetConfig returns the configuration
func (c *Container) GetConfig() *config.Config {
	return c.config
}

// GetLogger returns the logger
func (c *Container) GetLogger() *logrus.Logger {
	return c.logger
}
