// Package app provides dependency injection container for assembling application components.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	artifactService "github.com/echocipher/carrier/internal/artifact/service"
	artifactUseCase "github.com/echocipher/carrier/internal/artifact/usecase"
	"github.com/echocipher/carrier/internal/config"
	conversionHTTP "github.com/echocipher/carrier/internal/conversion/http"
	conversionService "github.com/echocipher/carrier/internal/conversion/service"
	conversionUseCase "github.com/echocipher/carrier/internal/conversion/usecase"
	"github.com/echocipher/carrier/internal/database"
	gatewayService "github.com/echocipher/carrier/internal/gateway/service"
	"github.com/echocipher/carrier/internal/http"
	keyvaultHTTP "github.com/echocipher/carrier/internal/keyvault/http"
	keyvaultService "github.com/echocipher/carrier/internal/keyvault/service"
	keyvaultUseCase "github.com/echocipher/carrier/internal/keyvault/usecase"
	ledgerUseCase "github.com/echocipher/carrier/internal/ledger/usecase"
	"github.com/echocipher/carrier/internal/metrics"
	outboxUseCase "github.com/echocipher/carrier/internal/outbox/usecase"
)

// Container holds all application dependencies and provides methods to access them.
// Components are created on first access.
type Container struct {
	// Configuration
	config *config.Config

	// Infrastructure
	logger          *slog.Logger
	db              *sql.DB
	txManager       database.TxManager
	metricsProvider *metrics.Provider
	businessMetrics metrics.BusinessMetrics

	// Key vault
	kmsService          keyvaultService.KMSService
	keyProtector        *keyvaultService.KeyProtector
	masterKeyRepository keyvaultUseCase.MasterKeyRepository
	vaultUseCase        keyvaultUseCase.VaultUseCase
	keyHandler          *keyvaultHTTP.KeyHandler

	// Ledger
	conversionRepository ledgerUseCase.ConversionRepository
	ledgerUseCase        ledgerUseCase.LedgerUseCase

	// Artifact store
	artifactBackend artifactService.Backend
	storeUseCase    artifactUseCase.StoreUseCase

	// Gateway
	gateway gatewayService.Gateway

	// Orchestrator
	uploadStore       *conversionService.UploadStore
	conversionUseCase conversionUseCase.ConversionUseCase
	conversionHandler *conversionHTTP.ConversionHandler

	// Outbox
	outboxRepository outboxUseCase.OutboxEventRepository
	eventPublisher   outboxUseCase.EventPublisher
	outboxUseCase    *outboxUseCase.OutboxUseCase

	// Servers
	httpServer    *http.Server
	metricsServer *http.MetricsServer

	// Initialization flags and mutex for thread-safety
	mu                       sync.Mutex
	loggerInit               sync.Once
	dbInit                   sync.Once
	txManagerInit            sync.Once
	metricsProviderInit      sync.Once
	businessMetricsInit      sync.Once
	kmsServiceInit           sync.Once
	keyProtectorInit         sync.Once
	masterKeyRepositoryInit  sync.Once
	vaultUseCaseInit         sync.Once
	keyHandlerInit           sync.Once
	conversionRepositoryInit sync.Once
	ledgerUseCaseInit        sync.Once
	artifactBackendInit      sync.Once
	storeUseCaseInit         sync.Once
	gatewayInit              sync.Once
	uploadStoreInit          sync.Once
	conversionUseCaseInit    sync.Once
	conversionHandlerInit    sync.Once
	outboxRepositoryInit     sync.Once
	eventPublisherInit       sync.Once
	outboxUseCaseInit        sync.Once
	httpServerInit           sync.Once
	metricsServerInit        sync.Once
	initErrors               map[string]error
}

// NewContainer creates a new dependency injection container with the provided configuration.
func NewContainer(cfg *config.Config) *Container {
	return &Container{
		config:     cfg,
		initErrors: make(map[string]error),
	}
}

// Config returns the application configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the configured logger instance.
func (c *Container) Logger() *slog.Logger {
	c.loggerInit.Do(func() {
		c.logger = c.initLogger()
	})
	return c.logger
}

// DB returns the database connection.
func (c *Container) DB() (*sql.DB, error) {
	var err error
	c.dbInit.Do(func() {
		c.db, err = c.initDB()
		if err != nil {
			c.initErrors["db"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["db"]; exists {
		return nil, storedErr
	}
	return c.db, nil
}

// TxManager returns the transaction manager.
func (c *Container) TxManager() (database.TxManager, error) {
	var err error
	c.txManagerInit.Do(func() {
		c.txManager, err = c.initTxManager()
		if err != nil {
			c.initErrors["txManager"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["txManager"]; exists {
		return nil, storedErr
	}
	return c.txManager, nil
}

// MetricsProvider returns the OpenTelemetry provider, or nil when metrics are disabled.
func (c *Container) MetricsProvider() (*metrics.Provider, error) {
	var err error
	c.metricsProviderInit.Do(func() {
		c.metricsProvider, err = c.initMetricsProvider()
		if err != nil {
			c.initErrors["metricsProvider"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["metricsProvider"]; exists {
		return nil, storedErr
	}
	return c.metricsProvider, nil
}

// BusinessMetrics returns the business metrics recorder. It is a no-op when metrics are disabled.
func (c *Container) BusinessMetrics() (metrics.BusinessMetrics, error) {
	var err error
	c.businessMetricsInit.Do(func() {
		c.businessMetrics, err = c.initBusinessMetrics()
		if err != nil {
			c.initErrors["businessMetrics"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["businessMetrics"]; exists {
		return nil, storedErr
	}
	return c.businessMetrics, nil
}

// HTTPServer returns the API server with every route registered.
func (c *Container) HTTPServer() (*http.Server, error) {
	var err error
	c.httpServerInit.Do(func() {
		c.httpServer, err = c.initHTTPServer()
		if err != nil {
			c.initErrors["httpServer"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["httpServer"]; exists {
		return nil, storedErr
	}
	return c.httpServer, nil
}

// MetricsServer returns the metrics server, or nil when metrics are disabled.
func (c *Container) MetricsServer() (*http.MetricsServer, error) {
	var err error
	c.metricsServerInit.Do(func() {
		c.metricsServer, err = c.initMetricsServer()
		if err != nil {
			c.initErrors["metricsServer"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["metricsServer"]; exists {
		return nil, storedErr
	}
	return c.metricsServer, nil
}

// Shutdown releases every initialized resource. Servers are stopped by their owners.
func (c *Container) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var shutdownErrors []error

	if c.eventPublisher != nil {
		if err := c.eventPublisher.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("event publisher close: %w", err))
		}
	}

	if c.artifactBackend != nil {
		if err := c.artifactBackend.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("artifact backend close: %w", err))
		}
	}

	if c.metricsProvider != nil {
		if err := c.metricsProvider.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics provider shutdown: %w", err))
		}
	}

	if c.db != nil {
		if err := c.db.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("database close: %w", err))
		}
	}

	return errors.Join(shutdownErrors...)
}

// initLogger creates a JSON logger on stdout at the configured level.
func (c *Container) initLogger() *slog.Logger {
	var logLevel slog.Level
	switch c.config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})

	return slog.New(handler)
}

// initDB creates and configures the database connection.
func (c *Container) initDB() (*sql.DB, error) {
	db, err := database.Connect(database.Config{
		Driver:             c.config.DBDriver,
		ConnectionString:   c.config.DBConnectionString,
		MaxOpenConnections: c.config.DBMaxOpenConnections,
		MaxIdleConnections: c.config.DBMaxIdleConnections,
		ConnMaxLifetime:    c.config.DBConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// initTxManager creates the transaction manager using the database connection.
func (c *Container) initTxManager() (database.TxManager, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for tx manager: %w", err)
	}
	return database.NewTxManager(db), nil
}

func (c *Container) initMetricsProvider() (*metrics.Provider, error) {
	if !c.config.MetricsEnabled {
		return nil, nil
	}
	provider, err := metrics.NewProvider(c.config.MetricsNamespace)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics provider: %w", err)
	}
	return provider, nil
}

func (c *Container) initBusinessMetrics() (metrics.BusinessMetrics, error) {
	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, err
	}
	if provider == nil {
		return metrics.NewNoOpBusinessMetrics(), nil
	}
	businessMetrics, err := metrics.NewBusinessMetrics(provider.MeterProvider(), c.config.MetricsNamespace)
	if err != nil {
		return nil, fmt.Errorf("failed to create business metrics: %w", err)
	}
	return businessMetrics, nil
}

// initHTTPServer creates the API server and registers the handlers.
func (c *Container) initHTTPServer() (*http.Server, error) {
	logger := c.Logger()

	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for http server: %w", err)
	}

	conversionHandler, err := c.ConversionHandler()
	if err != nil {
		return nil, fmt.Errorf("failed to get conversion handler for http server: %w", err)
	}

	keyHandler, err := c.KeyHandler()
	if err != nil {
		return nil, fmt.Errorf("failed to get key handler for http server: %w", err)
	}

	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for http server: %w", err)
	}

	server := http.NewServer(db, c.config.ServerHost, c.config.ServerPort, logger)
	server.SetTimeouts(c.config.ServerReadTimeout, c.config.ServerWriteTimeout)
	server.SetupRouter(c.config, conversionHandler, keyHandler, provider, c.config.MetricsNamespace)

	return server, nil
}

func (c *Container) initMetricsServer() (*http.MetricsServer, error) {
	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for metrics server: %w", err)
	}
	if provider == nil {
		return nil, nil
	}
	return http.NewMetricsServer(c.config.ServerHost, c.config.MetricsPort, c.Logger(), provider), nil
}

// ShutdownTimeout bounds graceful shutdown of servers and workers.
func (c *Container) ShutdownTimeout() time.Duration {
	if c.config.ServerWriteTimeout > 0 && c.config.ServerWriteTimeout < time.Minute {
		return c.config.ServerWriteTimeout
	}
	return time.Minute
}
