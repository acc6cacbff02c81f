// Package main provides the API server entry point for the wallet insights service.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wallet-insights/internal/adapter"
	"github.com/wallet-insights/internal/api"
	"github.com/wallet-insights/internal/auth"
	"github.com/wallet-insights/internal/cache"
	"github.com/wallet-insights/internal/circuitbreaker"
	"github.com/wallet-insights/internal/config"
	"github.com/wallet-insights/internal/logging"
	"github.com/wallet-insights/internal/ratelimit"
	"github.com/wallet-insights/internal/service"
	"github.com/wallet-insights/internal/storage"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logging.InitGlobalLogger(logging.ParseLogLevel(cfg.Logging.Level), logging.ParseLogFormat(cfg.Logging.Format))
	logger := logging.GetGlobalLogger()
	defer func() { _ = logger.Sync() }()

	logger.WithFields(map[string]interface{}{
		"env":    cfg.Environment,
		"level":  cfg.Logging.Level,
		"format": cfg.Logging.Format,
	}).Info("Wallet insights API starting")

	postgres, err := storage.NewPostgresDB(&cfg.Database.Postgres)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Postgres")
	}
	defer postgres.Close()

	healthChecks := map[string]api.HealthCheck{
		"postgres": postgres.Ping,
	}

	// Redis is optional: without it the cache and limiters are per-process.
	var (
		redisClient redis.Cmdable
		sharedCache cache.Cache = cache.NewMemoryCache(cfg.Cache.TTL)
	)
	if cfg.Database.Redis.Enabled {
		redisDB, err := storage.NewRedisDB(&cfg.Database.Redis)
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect to Redis")
		}
		defer func() { _ = redisDB.Close() }()

		redisClient = redisDB.Client()
		sharedCache = cache.NewRedisCache(redisDB.Client(), cfg.Cache.KeyPrefix, cfg.Cache.TTL)
		healthChecks["redis"] = redisDB.Ping
		logger.Info("Using Redis for cache and rate limits")
	}

	var limiters *ratelimit.Set
	if cfg.RateLimit.Enabled {
		limiters, err = ratelimit.NewSet(cfg.RateLimit, redisClient)
		if err != nil {
			logger.WithError(err).Fatal("Failed to create rate limiters")
		}
	} else {
		logger.Warn("Rate limiting disabled")
	}

	// Repositories
	users := storage.NewUserRepository(postgres)
	preferences := storage.NewPreferencesRepository(postgres)
	wallets := storage.NewWalletRepository(postgres)
	analyses := storage.NewAnalysisRepository(postgres)

	// Upstream clients
	prices := adapter.NewCoinGeckoClient(adapter.CoinGeckoConfig{
		BaseURL:       cfg.CoinGecko.BaseURL,
		APIKey:        cfg.CoinGecko.APIKey,
		RatePerMinute: cfg.CoinGecko.RatePerMinute,
		Timeout:       cfg.CoinGecko.Timeout,
	}, sharedCache)
	transactions := adapter.NewTransactionFetcher(sharedCache, adapter.NewBitcoinAdapter(), adapter.NewEthereumAdapter())
	gemini := adapter.NewGeminiClient(adapter.GeminiConfig{
		APIKey:  cfg.Gemini.APIKey,
		BaseURL: cfg.Gemini.BaseURL,
		Model:   cfg.Gemini.Model,
		Timeout: cfg.Gemini.Timeout,
	})
	if cfg.Gemini.APIKey == "" {
		logger.Warn("GEMINI_API_KEY not set, analyses will have no insights")
	}

	// Services
	profileService := service.NewProfileService(preferences, wallets, analyses)
	authService := service.NewAuthService(
		users,
		profileService,
		auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.AccessTTL, cfg.Auth.RefreshTTL),
		auth.NewPasswordHasher(cfg.Auth.BcryptCost),
	)
	analysisService := service.NewAnalysisService(
		transactions,
		prices,
		service.NewInsightService(gemini).
			WithCircuitBreaker(circuitbreaker.NewCircuitBreaker(circuitbreaker.DefaultConfig("gemini"))),
		analyses,
		preferences,
	)

	serverConfig := &api.ServerConfig{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     60 * time.Second,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		AllowedOrigin:   cfg.Server.AllowedOrigin,
	}

	server := api.NewServer(serverConfig, api.Dependencies{
		Auth:         authService,
		Profiles:     profileService,
		Analysis:     analysisService,
		Limiters:     limiters,
		HealthChecks: healthChecks,
		Logger:       logger,
	})

	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	logger.WithFields(map[string]interface{}{
		"host": cfg.Server.Host,
		"port": cfg.Server.Port,
	}).Info("Server started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), serverConfig.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	logger.Info("Server exited")
}
