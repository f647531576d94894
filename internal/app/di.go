// Package app provides the dependency injection container assembling the
// application components.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	otelmetric "go.opentelemetry.io/otel/metric"

	accountDomain "github.com/metagrid/directory/internal/account/domain"
	accountHTTP "github.com/metagrid/directory/internal/account/http"
	accountRepository "github.com/metagrid/directory/internal/account/repository"
	"github.com/metagrid/directory/internal/account/service"
	accountUsecase "github.com/metagrid/directory/internal/account/usecase"
	authHTTP "github.com/metagrid/directory/internal/auth/http"
	authRepository "github.com/metagrid/directory/internal/auth/repository"
	authUsecase "github.com/metagrid/directory/internal/auth/usecase"
	"github.com/metagrid/directory/internal/config"
	domainsDomain "github.com/metagrid/directory/internal/domains/domain"
	domainsHTTP "github.com/metagrid/directory/internal/domains/http"
	domainsRepository "github.com/metagrid/directory/internal/domains/repository"
	domainsUsecase "github.com/metagrid/directory/internal/domains/usecase"
	"github.com/metagrid/directory/internal/http"
	"github.com/metagrid/directory/internal/metrics"
	"github.com/metagrid/directory/internal/permission"
	"github.com/metagrid/directory/internal/store"
)

// Container holds all application dependencies and provides methods to
// access them. Components are created lazily on first access.
type Container struct {
	// Configuration
	config *config.Config

	// Infrastructure
	logger *slog.Logger
	st     *store.Store

	// Repositories
	tokenRepo   authUsecase.TokenRepository
	accountRepo accountUsecase.AccountRepository
	domainRepo  domainsUsecase.DomainRepository

	// Use Cases
	tokenUseCase   authUsecase.TokenUseCase
	accountUseCase accountUsecase.AccountUseCase
	domainUseCase  domainsUsecase.DomainUseCase

	// Metrics
	metricsProvider  *metrics.Provider
	directoryMetrics metrics.DirectoryMetrics

	// Servers
	httpServer    *http.Server
	metricsServer *http.MetricsServer

	// Initialization flags and mutex for thread-safety
	mu                   sync.Mutex
	loggerInit           sync.Once
	storeInit            sync.Once
	tokenRepoInit        sync.Once
	accountRepoInit      sync.Once
	domainRepoInit       sync.Once
	tokenUseCaseInit     sync.Once
	accountUseCaseInit   sync.Once
	domainUseCaseInit    sync.Once
	permissionInit       sync.Once
	metricsProviderInit  sync.Once
	directoryMetricsInit sync.Once
	httpServerInit       sync.Once
	metricsServerInit    sync.Once
	initErrors           map[string]error
}

// NewContainer creates a new dependency injection container with the
// provided configuration.
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

// Store returns the document store connection.
func (c *Container) Store() (*store.Store, error) {
	c.storeInit.Do(func() {
		st, err := store.Connect(store.Config{
			URI:            c.config.MongoURI,
			Database:       c.config.MongoDatabase,
			ConnectTimeout: c.config.MongoConnectTimeout,
		})
		if err != nil {
			c.initErrors["store"] = fmt.Errorf("failed to connect to document store: %w", err)
			return
		}
		c.st = st
	})
	if storedErr, exists := c.initErrors["store"]; exists {
		return nil, storedErr
	}
	return c.st, nil
}

// TokenRepository returns the token repository instance.
func (c *Container) TokenRepository() (authUsecase.TokenRepository, error) {
	c.tokenRepoInit.Do(func() {
		st, err := c.Store()
		if err != nil {
			c.initErrors["tokenRepo"] = err
			return
		}
		repo, err := authRepository.NewMongoTokenRepository(context.Background(), st)
		if err != nil {
			c.initErrors["tokenRepo"] = fmt.Errorf("failed to create token repository: %w", err)
			return
		}
		c.tokenRepo = repo
	})
	if storedErr, exists := c.initErrors["tokenRepo"]; exists {
		return nil, storedErr
	}
	return c.tokenRepo, nil
}

// AccountRepository returns the account repository instance.
func (c *Container) AccountRepository() (accountUsecase.AccountRepository, error) {
	c.accountRepoInit.Do(func() {
		st, err := c.Store()
		if err != nil {
			c.initErrors["accountRepo"] = err
			return
		}
		repo, err := accountRepository.NewMongoAccountRepository(context.Background(), st)
		if err != nil {
			c.initErrors["accountRepo"] = fmt.Errorf("failed to create account repository: %w", err)
			return
		}
		c.accountRepo = repo
	})
	if storedErr, exists := c.initErrors["accountRepo"]; exists {
		return nil, storedErr
	}
	return c.accountRepo, nil
}

// DomainRepository returns the domain repository instance.
func (c *Container) DomainRepository() (domainsUsecase.DomainRepository, error) {
	c.domainRepoInit.Do(func() {
		st, err := c.Store()
		if err != nil {
			c.initErrors["domainRepo"] = err
			return
		}
		repo, err := domainsRepository.NewMongoDomainRepository(context.Background(), st)
		if err != nil {
			c.initErrors["domainRepo"] = fmt.Errorf("failed to create domain repository: %w", err)
			return
		}
		c.domainRepo = repo
	})
	if storedErr, exists := c.initErrors["domainRepo"]; exists {
		return nil, storedErr
	}
	return c.domainRepo, nil
}

// TokenUseCase returns the token use case instance.
func (c *Container) TokenUseCase() (authUsecase.TokenUseCase, error) {
	c.tokenUseCaseInit.Do(func() {
		repo, err := c.TokenRepository()
		if err != nil {
			c.initErrors["tokenUseCase"] = err
			return
		}
		c.tokenUseCase = authUsecase.NewTokenUseCase(c.config, repo, c.Logger())
	})
	if storedErr, exists := c.initErrors["tokenUseCase"]; exists {
		return nil, storedErr
	}
	return c.tokenUseCase, nil
}

// DomainUseCase returns the domain use case instance with its field
// evaluator attached.
func (c *Container) DomainUseCase() (domainsUsecase.DomainUseCase, error) {
	if err := c.ensureDomainUseCase(); err != nil {
		return nil, err
	}
	if err := c.wirePermissions(); err != nil {
		return nil, err
	}
	return c.domainUseCase, nil
}

// AccountUseCase returns the account use case instance with its field
// evaluator attached.
func (c *Container) AccountUseCase() (accountUsecase.AccountUseCase, error) {
	if err := c.ensureAccountUseCase(); err != nil {
		return nil, err
	}
	if err := c.wirePermissions(); err != nil {
		return nil, err
	}
	return c.accountUseCase, nil
}

// MetricsProvider returns the metrics provider, or nil when metrics are
// disabled.
func (c *Container) MetricsProvider() (*metrics.Provider, error) {
	if !c.config.MetricsEnabled {
		return nil, nil
	}
	c.metricsProviderInit.Do(func() {
		provider, err := metrics.NewProvider(c.config.MetricsNamespace)
		if err != nil {
			c.initErrors["metricsProvider"] = fmt.Errorf("failed to create metrics provider: %w", err)
			return
		}
		c.metricsProvider = provider
	})
	if storedErr, exists := c.initErrors["metricsProvider"]; exists {
		return nil, storedErr
	}
	return c.metricsProvider, nil
}

// DirectoryMetrics returns the business metrics recorder, or nil when
// metrics are disabled.
func (c *Container) DirectoryMetrics() (metrics.DirectoryMetrics, error) {
	if !c.config.MetricsEnabled {
		return nil, nil
	}
	c.directoryMetricsInit.Do(func() {
		provider, err := c.MetricsProvider()
		if err != nil {
			c.initErrors["directoryMetrics"] = err
			return
		}
		m, err := metrics.NewDirectoryMetrics(provider.MeterProvider(), c.config.MetricsNamespace)
		if err != nil {
			c.initErrors["directoryMetrics"] = fmt.Errorf("failed to create directory metrics: %w", err)
			return
		}
		c.directoryMetrics = m
	})
	if storedErr, exists := c.initErrors["directoryMetrics"]; exists {
		return nil, storedErr
	}
	return c.directoryMetrics, nil
}

// HTTPServer returns the API server with all routes registered.
func (c *Container) HTTPServer() (*http.Server, error) {
	c.httpServerInit.Do(func() {
		server, err := c.initHTTPServer()
		if err != nil {
			c.initErrors["httpServer"] = err
			return
		}
		c.httpServer = server
	})
	if storedErr, exists := c.initErrors["httpServer"]; exists {
		return nil, storedErr
	}
	return c.httpServer, nil
}

// MetricsServer returns the metrics server instance.
func (c *Container) MetricsServer() (*http.MetricsServer, error) {
	c.metricsServerInit.Do(func() {
		provider, err := c.MetricsProvider()
		if err != nil {
			c.initErrors["metricsServer"] = err
			return
		}
		c.metricsServer = http.NewMetricsServer(
			c.config.ServerHost,
			c.config.MetricsPort,
			c.Logger(),
			provider,
		)
	})
	if storedErr, exists := c.initErrors["metricsServer"]; exists {
		return nil, storedErr
	}
	return c.metricsServer, nil
}

// Shutdown performs cleanup of all initialized resources.
func (c *Container) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var shutdownErrors []error

	if c.httpServer != nil {
		if err := c.httpServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("http server shutdown: %w", err))
		}
	}

	if c.metricsServer != nil {
		if err := c.metricsServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}

	if c.metricsProvider != nil {
		if err := c.metricsProvider.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics provider shutdown: %w", err))
		}
	}

	if c.st != nil {
		if err := c.st.Close(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("document store close: %w", err))
		}
	}

	if len(shutdownErrors) > 0 {
		return fmt.Errorf("shutdown errors: %v", shutdownErrors)
	}

	return nil
}

// initLogger creates a structured logger based on the configured log level.
func (c *Container) initLogger() *slog.Logger {
	var logLevel slog.Level
	switch c.config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
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

// ensureDomainUseCase builds the domain use case without attaching the
// evaluator; wirePermissions does that once all participants exist.
func (c *Container) ensureDomainUseCase() error {
	c.domainUseCaseInit.Do(func() {
		repo, err := c.DomainRepository()
		if err != nil {
			c.initErrors["domainUseCase"] = err
			return
		}
		c.domainUseCase = domainsUsecase.NewDomainUseCase(c.config, repo, c.Logger())
	})
	if storedErr, exists := c.initErrors["domainUseCase"]; exists {
		return storedErr
	}
	return nil
}

// ensureAccountUseCase builds the account use case without attaching the
// evaluator.
func (c *Container) ensureAccountUseCase() error {
	c.accountUseCaseInit.Do(func() {
		repo, err := c.AccountRepository()
		if err != nil {
			c.initErrors["accountUseCase"] = err
			return
		}
		tokens, err := c.TokenUseCase()
		if err != nil {
			c.initErrors["accountUseCase"] = err
			return
		}
		if err := c.ensureDomainUseCase(); err != nil {
			c.initErrors["accountUseCase"] = err
			return
		}
		c.accountUseCase = accountUsecase.NewAccountUseCase(
			c.config,
			repo,
			service.NewPasswordService(),
			tokens,
			c.domainUseCase,
			c.Logger(),
		)
	})
	if storedErr, exists := c.initErrors["accountUseCase"]; exists {
		return storedErr
	}
	return nil
}

// wirePermissions builds the capability resolver and the field evaluators
// and attaches them to the use cases. It runs once, after the use cases
// exist: the resolver needs the account use case as its role source and the
// domain use case as its sponsor binder, so neither evaluator can be built
// at construction time.
func (c *Container) wirePermissions() error {
	c.permissionInit.Do(func() {
		if err := c.ensureAccountUseCase(); err != nil {
			c.initErrors["permissions"] = err
			return
		}
		if err := c.ensureDomainUseCase(); err != nil {
			c.initErrors["permissions"] = err
			return
		}
		tokens, err := c.TokenUseCase()
		if err != nil {
			c.initErrors["permissions"] = err
			return
		}

		resolver := permission.NewResolver(tokens, c.accountUseCase, c.domainUseCase, c.Logger())

		accountFields := accountDomain.NewAccountFields(service.NewPasswordService())
		c.accountUseCase.SetEvaluator(permission.NewEvaluator(accountFields, resolver))
		c.domainUseCase.SetEvaluator(permission.NewEvaluator(domainsDomain.NewDomainFields(), resolver))
	})
	if storedErr, exists := c.initErrors["permissions"]; exists {
		return storedErr
	}
	return nil
}

// initHTTPServer creates the API server and registers all module routes.
func (c *Container) initHTTPServer() (*http.Server, error) {
	logger := c.Logger()

	tokens, err := c.TokenUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get token use case for http server: %w", err)
	}
	accounts, err := c.AccountUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get account use case for http server: %w", err)
	}
	domains, err := c.DomainUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get domain use case for http server: %w", err)
	}
	directoryMetrics, err := c.DirectoryMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get directory metrics for http server: %w", err)
	}

	var meterProvider *metrics.Provider
	if meterProvider, err = c.MetricsProvider(); err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for http server: %w", err)
	}

	server := http.NewServer(c.config, logger, meterProviderOrNil(meterProvider))
	engine := server.Engine()

	engine.Use(authHTTP.IdentityMiddleware(tokens, logger))
	requireAccount := authHTTP.RequireAccount(logger)

	tokenHandler := authHTTP.NewTokenHandler(tokens, accounts, directoryMetrics, logger)
	if c.config.RateLimitTokenEnabled {
		tokenHandler.Register(engine, authHTTP.TokenRateLimitMiddleware(
			c.config.RateLimitTokenRequestsPerSec,
			c.config.RateLimitTokenBurst,
			logger,
		))
	} else {
		tokenHandler.Register(engine, nil)
	}

	accountHTTP.NewAccountHandler(accounts, directoryMetrics, logger).Register(engine, requireAccount)
	domainsHTTP.NewDomainHandler(domains, accounts, directoryMetrics, logger).Register(engine, requireAccount)

	return server, nil
}

// meterProviderOrNil unwraps the provider for the server constructor, which
// takes the OpenTelemetry interface and treats nil as metrics-disabled.
func meterProviderOrNil(p *metrics.Provider) otelmetric.MeterProvider {
	if p == nil {
		return nil
	}
	return p.MeterProvider()
}
