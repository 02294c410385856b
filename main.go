package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // database/sql driver for migrations
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/trackport/tracking-engine/pkg/config"
	"github.com/trackport/tracking-engine/pkg/database"
	"github.com/trackport/tracking-engine/pkg/handlers"
	"github.com/trackport/tracking-engine/pkg/logging"
	"github.com/trackport/tracking-engine/pkg/middleware"
	"github.com/trackport/tracking-engine/pkg/pipeline"
	"github.com/trackport/tracking-engine/pkg/repositories"
	"github.com/trackport/tracking-engine/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("version", cfg.Version),
		zap.String("database", logging.SanitizeConnectionString(cfg.Database.ConnectionString())),
		zap.String("redis", cfg.Redis.Host))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.NewConnection(ctx, &cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database",
			zap.String("error", logging.SanitizeError(err)))
	}
	defer db.Close()

	// Migrations go through database/sql (required by golang-migrate).
	sqlDB, err := sql.Open("pgx", cfg.Database.ConnectionString())
	if err != nil {
		logger.Fatal("Failed to open migration connection", zap.Error(err))
	}
	if err := database.RunMigrations(sqlDB, cfg.MigrationsPath, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}
	_ = sqlDB.Close()

	redisClient, err := database.NewRedisClient(&cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}

	companyRepo := repositories.NewCompanyRepository(db)
	featureRepo := repositories.NewFeatureRepository(db)

	cache := services.NewCompanyCache(redisClient, cfg.Redis.CacheTTL(), logger)
	featureService := services.NewFeatureService(featureRepo, companyRepo, cache, logger)
	resolver := services.NewCompanyResolver(companyRepo, cache, logger)
	companyService := services.NewCompanyService(companyRepo, featureService, cache, logger)

	pipelineClient := pipeline.NewClient(&cfg.Pipeline, logger)
	trackingService := services.NewTrackingService(
		pipelineClient,
		pipelineClient,
		pipelineClient,
		resolver,
		featureService,
		cfg.Pipeline.BranchTimeout(),
		logger,
	)

	mux := http.NewServeMux()
	handlers.NewHealthHandler(cfg, logger).RegisterRoutes(mux)
	handlers.NewTrackingHandler(trackingService, logger).RegisterRoutes(mux)
	handlers.NewCompanyFeaturesHandler(featureService, companyService, logger).RegisterRoutes(mux)
	handlers.NewCompanyHandler(companyService, logger).RegisterRoutes(mux)

	server := &http.Server{
		Addr:              cfg.BindAddr + ":" + cfg.Port,
		Handler:           middleware.RequestLogger(logger)(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting tracking-engine",
			zap.String("addr", server.Addr),
			zap.String("version", cfg.Version))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", zap.Error(err))
	}
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "local" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
