package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"

	_ "github.com/storefleet/storefleet/docs" // Swagger docs (generated)
	"github.com/storefleet/storefleet/internal/auth"
	"github.com/storefleet/storefleet/internal/config"
	"github.com/storefleet/storefleet/internal/database"
	"github.com/storefleet/storefleet/internal/email"
	httpServer "github.com/storefleet/storefleet/internal/http"
	"github.com/storefleet/storefleet/internal/logging"
	"github.com/storefleet/storefleet/internal/metrics"
	"github.com/storefleet/storefleet/internal/order"
	"github.com/storefleet/storefleet/internal/product"
	"github.com/storefleet/storefleet/internal/ratelimit"
	"github.com/storefleet/storefleet/internal/user"
)

// @title           StoreFleet API
// @version         1.0
// @description     REST backend for the StoreFleet storefront: catalog, users, sessions, and orders.

// @contact.name   StoreFleet Support
// @contact.email  support@storefleet.example.com

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.apikey SessionAuth
// @in header
// @name Authorization
// @description Session token, either as "Bearer <token>" or via the session cookie.

func main() {
	if err := run(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.NewLogger(cfg.Server.IsDevelopment())
	logger.Info("starting application",
		"env", cfg.Server.Env,
		"port", cfg.Server.Port,
	)

	db, err := initDB(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	if err := database.RunMigrations(cfg.Database.URL()); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	logger.Info("database migrations applied")

	redisClient, err := initRedis(cfg.Redis)
	if err != nil {
		return fmt.Errorf("failed to initialize Redis: %w", err)
	}
	defer redisClient.Close()

	// Repositories
	userRepo := user.NewRepository(db)
	productRepo := product.NewRepository(db)
	orderRepo := order.NewRepository(db)

	rateLimiter := ratelimit.NewLimiter(redisClient)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	collector := metrics.NewCollector(registry)

	tokenService, err := auth.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.SessionDuration)
	if err != nil {
		return fmt.Errorf("failed to initialize token service: %w", err)
	}

	emailService := email.NewService(cfg.Email, logger)

	authService := auth.NewService(userRepo, emailService, logger)

	sessionIssuer := auth.NewSessionIssuer(
		tokenService,
		cfg.Auth.CookieDays,
		!cfg.Server.IsDevelopment(), // isProduction
	)
	authMiddleware := auth.NewMiddleware(tokenService, userRepo, sessionIssuer)

	handlers := httpServer.Handlers{
		Auth:    auth.NewHandler(authService, sessionIssuer, rateLimiter, collector, logger),
		User:    user.NewHandler(userRepo, auth.GetUserFromContext, logger),
		Product: product.NewHandler(productRepo, auth.GetUserFromContext, logger),
		Order:   order.NewHandler(orderRepo, auth.GetUserFromContext, collector, logger),
	}

	router := httpServer.NewRouter(cfg, handlers, authMiddleware, collector, registry, logger)

	serverAddr := ":" + cfg.Server.Port
	server := httpServer.NewServer(
		serverAddr,
		router,
		cfg.Server.ReadTimeout,
		cfg.Server.WriteTimeout,
		logger,
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- server.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		logger.Info("received shutdown signal", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// initDB opens the Postgres connection and wraps it with Bun.
func initDB(cfg config.DatabaseConfig) (*bun.DB, error) {
	sqlDB, err := sql.Open("postgres", cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	return database.NewBunDB(sqlDB), nil
}

// initRedis connects the Redis client used for rate limiting.
func initRedis(cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return client, nil
}
