package container

import (
	"context"
	"fmt"
	"sync"

	"go.mongodb.org/mongo-driver/mongo"

	config "gitlab.com/demeterhydro/dmt.telemetry_server/src/production/DMT.Config"
	logger "gitlab.com/demeterhydro/dmt.telemetry_server/src/production/DMT.Logger"
	health "gitlab.com/demeterhydro/dmt.telemetry_server/src/production/DMT.Startup/health"
)

// Container manages shared dependencies and their lifecycle: constructed at
// process start, handed by reference to the adapters and the query service,
// closed on shutdown in reverse order of registration.
type Container struct {
	config *config.Config
	logger *logger.Logger

	mu     sync.Mutex
	client *mongo.Client

	cleanupFuncs []func(ctx context.Context) error
}

// NewContainer loads configuration and initializes the logger.
func NewContainer() (*Container, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log := logger.NewLogger(&cfg.Logging)

	return &Container{
		config: cfg,
		logger: log,
	}, nil
}

// GetConfig returns the configuration
func (c *Container) GetConfig() *config.Config {
	return c.config
}

// GetLogger returns the logger
func (c *Container) GetLogger() *logger.Logger {
	return c.logger
}

// GetMongoClient returns the shared MongoDB client, connecting on first use.
func (c *Container) GetMongoClient() (*mongo.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client == nil {
		client, err := health.ConnectMongoWithTimeout(&c.config.Mongo, c.config.Mongo.ConnectTimeout)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
		}
		c.client = client
		c.cleanupFuncs = append(c.cleanupFuncs, client.Disconnect)
	}

	return c.client, nil
}

// GetDatabase returns the application database handle.
func (c *Container) GetDatabase() (*mongo.Database, error) {
	client, err := c.GetMongoClient()
	if err != nil {
		return nil, err
	}
	return client.Database(c.config.Mongo.Database), nil
}

// AddCleanupFunc registers a function to run on shutdown.
func (c *Container) AddCleanupFunc(fn func(ctx context.Context) error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cleanupFuncs = append(c.cleanupFuncs, fn)
}

// Shutdown runs the cleanup functions in reverse order.
func (c *Container) Shutdown(ctx context.Context) error {
	c.logger.Info("Shutting down container...")

	c.mu.Lock()
	funcs := c.cleanupFuncs
	c.cleanupFuncs = nil
	c.mu.Unlock()

	for i := len(funcs) - 1; i >= 0; i-- {
		if err := funcs[i](ctx); err != nil {
			c.logger.ErrorWithError(err, "Error during cleanup")
		}
	}

	c.logger.Info("Container shutdown complete")
	return nil
}
