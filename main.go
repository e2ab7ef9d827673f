package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ms-gatepass/internal/analytics"
	analytics_api "ms-gatepass/internal/analytics/api"
	"ms-gatepass/internal/auth"
	"ms-gatepass/internal/config"
	"ms-gatepass/internal/database"
	"ms-gatepass/internal/database/migrations"
	"ms-gatepass/internal/kafka"
	"ms-gatepass/internal/logger"
	"ms-gatepass/internal/middleware"
	pass_db "ms-gatepass/internal/passes/db"
	"ms-gatepass/internal/passes/pass_api"
	qr "ms-gatepass/internal/passes/qr_generator"
	passes "ms-gatepass/internal/passes/service"
	"ms-gatepass/internal/server"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/uptrace/bun"
)

// prepareSchema runs the SQL migrations on PostgreSQL and creates the table directly on SQLite
func prepareSchema(ctx context.Context, cfg *config.Config, bunDB *bun.DB, log *logger.Logger) error {
	if cfg.Database.Driver == "sqlite" {
		log.Info("DATABASE", "Creating visitor_passes schema on SQLite")
		return (&pass_db.DB{Bun: bunDB}).CreateSchema(ctx)
	}

	if !cfg.Migrations.AutoMigrate {
		log.Info("MIGRATION", "AUTO_MIGRATE disabled, skipping migrations")
		return nil
	}

	runner := migrations.NewRunner(cfg.Database.PostgresDSN(), cfg.Migrations.Dir, log)
	defer runner.Close()
	if v := cfg.Migrations.TargetVersion; v > 0 {
		log.Info("MIGRATION", fmt.Sprintf("Pinning schema to version %d", v))
		return runner.MigrateTo(v)
	}
	return runner.MigrateUp()
}

// connectRedis returns nil when Redis is disabled or unreachable; rate limiting is then off
func connectRedis(ctx context.Context, cfg config.RedisConfig, log *logger.Logger) *redis.Client {
	if !cfg.Enabled {
		log.Info("REDIS", "Redis disabled, create-pass rate limiting is off")
		return nil
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.Addr})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Warn("REDIS", fmt.Sprintf("Redis unreachable at %s, continuing without rate limiting: %v", cfg.Addr, err))
		client.Close()
		return nil
	}

	log.Info("REDIS", fmt.Sprintf("Redis connection successful to %s", cfg.Addr))
	return client
}

func main() {
	envErr := godotenv.Load()
	cfg := config.Load()

	log, err := logger.NewLogger(logger.Options{
		Service: cfg.Log.Service,
		Dir:     cfg.Log.Dir,
		Level:   cfg.Log.Level,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	log.Info("APP", "Starting Gate Pass Service initialization")
	if envErr != nil {
		log.Warn("CONFIG", ".env file not found, using environment variables")
	} else {
		log.Info("CONFIG", "Loaded environment variables from .env file")
	}

	if err := cfg.Validate(); err != nil {
		log.Fatal("CONFIG", err.Error())
	}

	ctx := context.Background()

	bunDB, err := database.Connect(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal("DATABASE", err.Error())
	}
	defer bunDB.Close()

	if err := prepareSchema(ctx, cfg, bunDB, log); err != nil {
		log.Fatal("MIGRATION", fmt.Sprintf("Failed to prepare schema: %v", err))
	}

	redisClient := connectRedis(ctx, cfg.Redis, log)
	if redisClient != nil {
		defer redisClient.Close()
	}

	var events passes.EventPublisher
	if cfg.Kafka.Enabled {
		topics := []string{cfg.Kafka.Topics.PassCreated, cfg.Kafka.Topics.PassDeleted}
		if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, topics, log); err != nil {
			log.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
		}
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topics, log)
		defer producer.Close()
		events = producer
		log.Info("KAFKA", "Kafka producer initialized successfully")
	}

	passStore := &pass_db.DB{Bun: bunDB}
	if count, err := passStore.CountPasses(ctx); err == nil {
		log.LogDatabase("COUNT", "visitor_passes", fmt.Sprintf("%d passes on record", count))
	}

	passService := passes.NewPassService(passStore, events, log)
	analyticsService := analytics.NewService(bunDB, cfg.Metrics, log)

	passHandler := pass_api.NewHandler(passService, qr.NewQRGenerator(cfg.QR.SecretKey, cfg.QR.Size), log)
	if redisClient != nil {
		passHandler.CreateLimiter = middleware.TokenBucket(cfg.RateLimit, redisClient, log)
	}

	authMiddleware, err := auth.Middleware(ctx, cfg.Auth, log)
	if err != nil {
		log.Fatal("AUTH", err.Error())
	}
	log.Info("AUTH", fmt.Sprintf("API auth mode: %s", cfg.Auth.Mode))

	log.Info("HTTP", "Setting up router and middleware")
	router := server.NewRouter(server.Options{
		Logger:         log,
		Passes:         passHandler,
		Analytics:      analytics_api.NewHandler(analyticsService, log),
		Store:          passStore,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Auth:           authMiddleware,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP", fmt.Sprintf("Gate Pass Service running on %s", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	log.LogProcess("STARTUP", "service started, waiting for shutdown signal")
	<-stop

	log.LogProcess("SHUTDOWN", "signal received, draining HTTP server")
	ctxShutdown, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		log.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	} else {
		log.Info("HTTP", "Gate Pass Service shutdown complete")
	}
}
