// Package main はAPIサーバーのエントリーポイントです。
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"

	"github.com/yourusername/gatekeeper/internal/config"
	"github.com/yourusername/gatekeeper/internal/jobs"
	"github.com/yourusername/gatekeeper/internal/profile"
	"github.com/yourusername/gatekeeper/internal/ratelimit"
)

func main() {
	// 設定の読み込み
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Ginのモードを設定
	gin.SetMode(cfg.GinMode)
	logger := log.Default()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := setupProfileStore(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to set up profile store: %v", err)
	}
	defer closeStore()

	deps := dependencies{
		Store:  store,
		Logger: logger,
	}

	// Redis が設定されている場合のみレート制限と監査キューを有効化
	var jobManager *jobs.Manager
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to parse REDIS_URL: %v", err)
		}
		redisClient := redis.NewClient(opt)
		defer redisClient.Close()

		jobManager, deps.Activity, err = setupJobs(cfg, redisClient, logger)
		if err != nil {
			log.Fatalf("Failed to set up job manager: %v", err)
		}
		jobManager.StartWorkers()
		deps.Events = jobManager

		if cfg.RateLimitEnabled() {
			deps.Limiter = ratelimit.NewLimiter(redisClient)
		}
	} else {
		logger.Printf("[WARN] REDIS_URL is not set: rate limiting and audit events are disabled")
	}

	router, err := newRouter(cfg, deps)
	if err != nil {
		log.Fatalf("Failed to build router: %v", err)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// サーバーの起動
	go func() {
		log.Printf("Starting API server on %s (mode: %s)", srv.Addr, cfg.GinMode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("Shutdown signal received: closing HTTP server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}
	if jobManager != nil {
		if err := jobManager.Shutdown(shutdownCtx); err != nil {
			log.Printf("Job manager shutdown error: %v", err)
		}
	}
	log.Printf("HTTP server closed")
}

// setupProfileStore は DATABASE_URL があれば PostgreSQL を、無ければインメモリストアを用意します。
func setupProfileStore(ctx context.Context, cfg *config.Config, logger *log.Logger) (profile.Store, func(), error) {
	if cfg.DatabaseURL == "" {
		logger.Printf("[WARN] DATABASE_URL is not set: using in-memory profile store")
		return profile.NewMemoryStore(), func() {}, nil
	}

	db, err := profile.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if err := profile.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return profile.NewPostgresStore(db), func() { _ = db.Close() }, nil
}
