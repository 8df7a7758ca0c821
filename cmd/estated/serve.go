package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"estate-marketplace-backend/config"
	"estate-marketplace-backend/internal/api"
	"estate-marketplace-backend/internal/auth"
	"estate-marketplace-backend/internal/chat"
	"estate-marketplace-backend/internal/db"
	"estate-marketplace-backend/internal/listing"
	"estate-marketplace-backend/internal/mw"
	"estate-marketplace-backend/internal/notification"
	"estate-marketplace-backend/internal/rating"
	"estate-marketplace-backend/internal/realtime"
	"estate-marketplace-backend/internal/store"
	"estate-marketplace-backend/internal/visit"
)

func newServeCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if port > 0 {
				cfg.Server.Port = port
			}
			return runServe(cfg)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "port to listen on (overrides server.port)")
	return cmd
}

func runServe(cfg *config.Config) error {
	if !cfg.Server.DevMode {
		gin.SetMode(gin.ReleaseMode)
	}

	gormDB, err := db.Init(&cfg.Database, db.LogLevel(cfg.Log.Level))
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	slog.Info("database initialized", "driver", cfg.Database.Driver)

	// Create a context that can be cancelled
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appStore := store.NewGormStore(gormDB)
	hub := realtime.NewHub(cfg.Realtime.Heartbeat)

	var webpushOptions *webpush.Options
	if cfg.Push.Enabled() {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
	} else {
		slog.Warn("VAPID keys are not configured; web push is disabled")
	}

	pool := notification.NewWorkerPool(cfg.WorkerPool.Size, cfg.WorkerPool.QueueSize, hub, appStore, webpushOptions)
	pool.Start(ctx)

	cacheStore, closeCache, err := newCacheStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeCache()

	limiter := mw.NewIPRateLimiter(rate.Limit(cfg.Server.RateLimitPerSec), cfg.Server.RateLimitBurst, 10*time.Minute)
	go sweepLimiter(ctx, limiter)

	tokens := auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	handler := api.NewHandler(api.Deps{
		Store:      appStore,
		WebPush:    webpushOptions,
		Auth:       auth.NewService(appStore, tokens),
		Tokens:     tokens,
		CookieName: cfg.Auth.CookieName,
		Listings:   listing.NewService(appStore),
		Visits:     visit.NewService(appStore, pool, cfg.Visit.Location()),
		Chats:      chat.NewService(appStore, pool, hub),
		Ratings:    rating.NewService(appStore),
		Hub:        hub,
	})
	router := api.NewRouter(handler, api.RouterOptions{
		Auth:        auth.NewMiddleware(tokens, cfg.Auth.CookieName),
		RateLimiter: limiter,
		Cache:       cacheStore,
		CacheTTL:    cfg.Server.CacheTTL(),
	})

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}).Handler(router)

	// No write timeout: /api/events holds its response open.
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           corsHandler,
		ReadHeaderTimeout: 10 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server starting", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		slog.Info("shutdown signal received, stopping services")
	case err := <-errCh:
		cancel()
		return fmt.Errorf("HTTP server: %w", err)
	}

	// Shutdown waits for idle connections, so open event streams are closed first.
	hub.Close()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Warn("HTTP server shutdown", "error", err)
	}

	cancel()
	pool.Wait()
	if sqlDB, err := gormDB.DB(); err == nil {
		sqlDB.Close()
	}
	slog.Info("server gracefully stopped")
	return nil
}

// newCacheStore picks redis when an address is configured, else an in-process cache.
func newCacheStore(ctx context.Context, cfg *config.Config) (mw.CacheStore, func(), error) {
	ttl := cfg.Server.CacheTTL()
	if cfg.Redis.Addr == "" {
		return mw.NewMemoryCache(ttl, 2*ttl), func() {}, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, nil, fmt.Errorf("connect to redis at %s: %w", cfg.Redis.Addr, err)
	}
	slog.Info("response cache backed by redis", "addr", cfg.Redis.Addr)
	return mw.NewRedisCache(rdb), func() { rdb.Close() }, nil
}

func sweepLimiter(ctx context.Context, limiter *mw.IPRateLimiter) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := limiter.Sweep(); n > 0 {
				slog.Debug("rate limiter swept idle clients", "removed", n)
			}
		}
	}
}
