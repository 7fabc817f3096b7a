package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"fairfinder/internal/auth"
	"fairfinder/internal/config"
	"fairfinder/internal/database/migrations"
	"fairfinder/internal/dedupe"
	dedupe_api "fairfinder/internal/dedupe/api"
	dedupe_db "fairfinder/internal/dedupe/db"
	"fairfinder/internal/kafka"
	"fairfinder/internal/logger"
	"fairfinder/internal/merge"
	merge_api "fairfinder/internal/merge/api"
	merge_db "fairfinder/internal/merge/db"
	rediswrap "fairfinder/internal/merge/redis"
)

func main() {
	_ = godotenv.Load() // Loads .env file if present

	cfg := config.Load()
	log := logger.NewLogger()
	defer log.Close()

	// --- PostgreSQL Setup ---
	connector := pgdriver.NewConnector(pgdriver.WithDSN(cfg.Database.URL))
	sqldb := sql.OpenDB(connector)
	defer sqldb.Close()

	sqldb.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.Database.MaxLifetime)

	if err := sqldb.Ping(); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to connect to Postgres: %v", err))
	}
	log.Info("DATABASE", "Postgres connection successful")

	bunDB := bun.NewDB(sqldb, pgdialect.New())

	// Run migrations
	runner := migrations.NewRunner(bunDB, migrations.DefaultOptions())
	if err := runner.MigrateUp(); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Migrations failed: %v", err))
	}

	// --- Redis Setup ---
	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Addr,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatal("REDIS", fmt.Sprintf("Failed to connect to Redis: %v", err))
	}
	log.Info("REDIS", "Redis connection successful")

	// --- Kafka Setup ---
	var mergeProducer *kafka.Producer
	var scanProducer *kafka.Producer
	if cfg.Kafka.Enabled {
		if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, []string{kafka.TopicMergeCompleted, kafka.TopicDuplicateScans}); err != nil {
			log.Warn("KAFKA", fmt.Sprintf("Topic setup failed: %v", err))
		}
		mergeProducer = kafka.NewProducer(cfg.Kafka.Brokers, kafka.TopicMergeCompleted)
		scanProducer = kafka.NewProducer(cfg.Kafka.Brokers, kafka.TopicDuplicateScans)
		defer mergeProducer.Close()
		defer scanProducer.Close()
	} else {
		log.Warn("KAFKA", "Kafka disabled; merge events will not be published")
	}

	// --- Initialize Dependencies ---
	mergeLock := rediswrap.NewRedis(redisClient)

	var mergePublisher merge.MergePublisher
	var scanPublisher dedupe.ScanPublisher
	if mergeProducer != nil {
		mergePublisher = mergeProducer
		scanPublisher = scanProducer
	}

	mergeService := merge.NewMergeService(merge_db.New(bunDB), mergeLock, mergePublisher)
	scanService := dedupe.NewScanService(dedupe_db.New(bunDB), scanPublisher)

	mergeHandler := &merge_api.Handler{MergeService: mergeService}
	dedupeHandler := &dedupe_api.Handler{
		ScanService:      scanService,
		DefaultThreshold: cfg.Merge.ScanThreshold,
	}

	// --- Setup Router ---
	r := chi.NewRouter()
	r.Route("/api/v1/admin", func(r chi.Router) {
		r.Use(auth.AdminMiddleware())
		r.Get("/duplicates/{entityType}", dedupeHandler.FindDuplicates)
		r.Get("/merge/{entityType}/preview", mergeHandler.GetMergePreview)
		r.Post("/merge/{entityType}", mergeHandler.ExecuteMerge)
	})

	// --- Start HTTP Server ---
	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("SERVER", "Fairfinder admin service running on "+cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("SERVER", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("SERVER", "Shutdown signal received, cleaning up")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Error("SERVER", fmt.Sprintf("Forced shutdown: %v", err))
	}
	log.Info("SERVER", "Server exited gracefully")
}
