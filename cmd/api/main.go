package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Giftbit/internal-rothschild-sub003/internal/domain/usecase/planner"
	valueUseCase "github.com/Giftbit/internal-rothschild-sub003/internal/domain/usecase/value"
	"github.com/Giftbit/internal-rothschild-sub003/internal/infrastructure/adapter/api/handler"
	"github.com/Giftbit/internal-rothschild-sub003/internal/infrastructure/adapter/api/routes"
	"github.com/Giftbit/internal-rothschild-sub003/internal/infrastructure/adapter/clock"
	"github.com/Giftbit/internal-rothschild-sub003/internal/infrastructure/adapter/database"
	"github.com/Giftbit/internal-rothschild-sub003/internal/infrastructure/adapter/database/migration"
	"github.com/Giftbit/internal-rothschild-sub003/internal/infrastructure/adapter/logger"
	"github.com/Giftbit/internal-rothschild-sub003/internal/infrastructure/adapter/rules"
	"github.com/Giftbit/internal-rothschild-sub003/internal/infrastructure/adapter/stripe"
	"github.com/Giftbit/internal-rothschild-sub003/internal/infrastructure/config"
	"github.com/Giftbit/internal-rothschild-sub003/internal/infrastructure/metrics"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	appLogger := logger.NewZapLogger(cfg.IsProduction())
	defer func() { _ = appLogger.Flush() }()

	timeProvider := clock.NewRealTimeProvider()

	dbConfig := database.DefaultConfig()
	dbConfig.Host = cfg.Database.Host
	dbConfig.Port = cfg.Database.Port
	dbConfig.Username = cfg.Database.Username
	dbConfig.Password = cfg.Database.Password
	dbConfig.Database = cfg.Database.Database
	dbConfig.SSLMode = cfg.Database.SSLMode
	dbConfig.MaxOpenConns = cfg.Database.MaxOpenConns
	dbConfig.MaxIdleConns = cfg.Database.MaxIdleConns
	dbConfig.ConnMaxLifetime = cfg.Database.ConnMaxLifetime
	dbConfig.ConnMaxIdleTime = cfg.Database.ConnMaxIdleTime
	dbConfig.LogLevel = cfg.Database.LogLevel
	dbConfig.RetryAttempts = cfg.Database.RetryAttempts
	dbConfig.RetryDelay = cfg.Database.RetryDelay

	conn, err := database.NewConnection(dbConfig, appLogger)
	if err != nil {
		appLogger.Error("failed to connect to database", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
	defer func() { _ = conn.Close() }()

	if err := migration.NewManager(conn.DB, appLogger).MigrateAll(); err != nil {
		appLogger.Error("failed to run migrations", map[string]any{"error": err.Error()})
		os.Exit(1)
	}

	uow := database.NewUnitOfWork(conn.DB, appLogger)
	evaluator := rules.New()
	processor := stripe.NewClient(stripe.Config{
		BaseURL:   cfg.Stripe.BaseURL,
		SecretKey: cfg.Stripe.SecretKey,
		Timeout:   cfg.Stripe.Timeout,
	}, appLogger)

	pendingWindow := time.Duration(cfg.Transaction.PendingVoidWindowDays) * 24 * time.Hour
	plannerService := planner.NewService(
		uow,
		processor,
		evaluator,
		timeProvider,
		appLogger,
		metrics.NewRecorder(),
		pendingWindow,
		cfg.Transaction.MaxPlanAttempts,
	)
	valueService := valueUseCase.NewService(uow, evaluator, timeProvider, appLogger)

	transactionHandler := handler.NewTransactionHandler(plannerService, appLogger)
	valueHandler := handler.NewValueHandler(valueService, appLogger)

	router := gin.New()
	routes.SetupMiddlewares(router, appLogger)
	routes.SetupRoutes(router, transactionHandler, valueHandler)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		appLogger.Info("starting server", map[string]any{
			"addr":        server.Addr,
			"environment": cfg.Environment,
		})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("server error", map[string]any{"error": err.Error()})
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("shutting down server", nil)
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		appLogger.Error("server forced to shutdown", map[string]any{"error": err.Error()})
	}
	appLogger.Info("server exited", nil)
}
