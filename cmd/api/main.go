package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	_ "github.com/redmonkez12/ai-data-assistant/docs" // Swagger docs (generated)
	"github.com/redmonkez12/ai-data-assistant/internal/auth"
	"github.com/redmonkez12/ai-data-assistant/internal/config"
	"github.com/redmonkez12/ai-data-assistant/internal/database"
	"github.com/redmonkez12/ai-data-assistant/internal/email"
	httpServer "github.com/redmonkez12/ai-data-assistant/internal/http"
	"github.com/redmonkez12/ai-data-assistant/internal/logging"
	"github.com/redmonkez12/ai-data-assistant/internal/metrics"
	"github.com/redmonkez12/ai-data-assistant/internal/password"
	"github.com/redmonkez12/ai-data-assistant/internal/ratelimit"
	"github.com/redmonkez12/ai-data-assistant/internal/token"
)

// @title           AI Data Assistant Auth API
// @version         1.0
// @description     User identity and credential lifecycle: registration, email verification, login sessions and password reset.

// @contact.name   API Support
// @contact.email  support@example.com

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the access token.

func main() {
	if err := run(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	logger := logging.NewLogger(cfg.Server.IsDevelopment())
	logger.Info("starting application",
		"env", cfg.Server.Env,
		"port", cfg.Server.Port,
		"auth_provider", cfg.Auth.Provider,
		"token_strategy", cfg.Auth.TokenStrategy,
	)

	hasher := password.NewHasher(password.DefaultCost)
	healthChecks := map[string]httpServer.HealthCheck{}

	var (
		store    auth.Store
		provider auth.CredentialProvider
		notifier auth.Notifier
	)

	if cfg.Auth.UsesDatabase() {
		sqlDB, err := database.Open(context.Background(), cfg.Database.ConnectionString())
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer sqlDB.Close()

		if cfg.Database.AutoMigrate {
			if err := database.Migrate(context.Background(), sqlDB); err != nil {
				return fmt.Errorf("failed to apply migrations: %w", err)
			}
			logger.Info("database migrations applied")
		}

		db := database.NewBunDB(sqlDB)
		bunStore := auth.NewBunStore(db)

		dbProvider, err := auth.NewDatabaseProvider(bunStore.Users(), hasher, time.Now)
		if err != nil {
			return fmt.Errorf("failed to initialize credential provider: %w", err)
		}

		store, provider = bunStore, dbProvider
		healthChecks["database"] = pingDB(sqlDB)

		n, closeNotifier, err := initNotifier(cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize email transport: %w", err)
		}
		defer closeNotifier()
		notifier = n
	} else {
		staticProvider, err := auth.LoadStaticProvider(cfg.Auth.StaticCredentialsFile, hasher)
		if err != nil {
			return fmt.Errorf("failed to initialize credential provider: %w", err)
		}
		logger.Info("static credentials loaded",
			"file", cfg.Auth.StaticCredentialsFile,
			"users", staticProvider.Len(),
		)
		provider = staticProvider
	}

	// Rate limiting is skipped when redis is unreachable
	var rateLimiter auth.RateLimiter
	redisClient, err := initRedis(cfg.Redis)
	if err != nil {
		logger.Warn("rate limiting disabled", "error", err.Error())
	} else {
		defer redisClient.Close()
		limiter := ratelimit.NewLimiter(redisClient, ratelimit.DefaultConfig())
		rateLimiter = limiter
		healthChecks["redis"] = limiter.Ping
	}

	// Initialize access token service
	tokenService, err := auth.NewTokenService(cfg.Auth)
	if err != nil {
		return fmt.Errorf("failed to initialize token service: %w", err)
	}

	var registry *prometheus.Registry
	var authMetrics *metrics.AuthMetrics
	if cfg.Metrics.Enabled {
		registry = metrics.NewRegistry()
		authMetrics = metrics.New(registry)
	}

	// Initialize auth service
	authService := auth.NewService(auth.ServiceDeps{
		Store:    store,
		Provider: provider,
		Tokens:   tokenService,
		Hasher:   hasher,
		Issuer:   token.NewIssuer(),
		Notifier: notifier,
		Metrics:  authMetrics,
		Logger:   logger,
	}, cfg.Auth)

	// Initialize HTTP handlers
	authHandler := auth.NewHandler(
		authService,
		rateLimiter,
		authMetrics,
		!cfg.Server.IsDevelopment(), // secure cookies
		cfg.Auth.AccessTokenDuration,
		cfg.Auth.SessionTTL,
	)
	authMiddleware := auth.NewMiddleware(tokenService)

	// Initialize router
	router := httpServer.NewRouter(cfg, httpServer.RouterDeps{
		AuthService:    authService,
		AuthHandler:    authHandler,
		AuthMiddleware: authMiddleware,
		Registry:       registry,
		HealthChecks:   healthChecks,
		Logger:         logger,
	})

	// Initialize HTTP server
	serverAddr := ":" + cfg.Server.Port
	server := httpServer.NewServer(
		serverAddr,
		router,
		cfg.Server.ReadTimeout,
		cfg.Server.WriteTimeout,
		logger,
	)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- server.Start()
	}()

	// Wait for interrupt signal or server error
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		logger.Info("received signal", "signal", sig.String())

		// Graceful shutdown with timeout
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// initNotifier builds the configured email transport and its cleanup func
func initNotifier(cfg *config.Config) (auth.Notifier, func(), error) {
	switch cfg.Email.Transport {
	case config.TransportKafka:
		publisher, err := email.NewKafkaPublisher(cfg.Email, cfg.Auth)
		if err != nil {
			return nil, nil, err
		}
		return publisher, func() { _ = publisher.Close() }, nil
	default:
		sender, err := email.NewSMTPSender(cfg.Email, cfg.Auth)
		if err != nil {
			return nil, nil, err
		}
		return sender, func() {}, nil
	}
}

// initRedis initializes the Redis connection and returns a Redis client
func initRedis(cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return client, nil
}

func pingDB(db *sql.DB) httpServer.HealthCheck {
	return func(ctx context.Context) error {
		return db.PingContext(ctx)
	}
}
