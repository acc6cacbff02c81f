// Package main provides the price warmer entry point for the wallet insights service.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wallet-insights/internal/adapter"
	"github.com/wallet-insights/internal/cache"
	"github.com/wallet-insights/internal/config"
	"github.com/wallet-insights/internal/logging"
	"github.com/wallet-insights/internal/storage"
	"github.com/wallet-insights/internal/worker"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logging.InitGlobalLogger(logging.ParseLogLevel(cfg.Logging.Level), logging.ParseLogFormat(cfg.Logging.Format))
	logger := logging.GetGlobalLogger()
	defer func() { _ = logger.Sync() }()

	// Warming a per-process cache helps no one, so Redis is mandatory here.
	if !cfg.Database.Redis.Enabled {
		logger.Fatal("REDIS_ENABLED must be true for the price warmer")
	}

	redisDB, err := storage.NewRedisDB(&cfg.Database.Redis)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Redis")
	}
	defer func() { _ = redisDB.Close() }()

	prices := adapter.NewCoinGeckoClient(adapter.CoinGeckoConfig{
		BaseURL:       cfg.CoinGecko.BaseURL,
		APIKey:        cfg.CoinGecko.APIKey,
		RatePerMinute: cfg.CoinGecko.RatePerMinute,
		Timeout:       cfg.CoinGecko.Timeout,
	}, cache.NewRedisCache(redisDB.Client(), cfg.Cache.KeyPrefix, cfg.Cache.TTL))

	warmer, err := worker.NewPriceWarmer(&worker.PriceWarmerConfig{
		Prices:     prices,
		Schedule:   cfg.Worker.PriceWarmSchedule,
		RunOnStart: true,
		Logger:     logger,
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to create price warmer")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := warmer.Start(ctx); err != nil {
		logger.WithError(err).Fatal("Failed to start price warmer")
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	logger.Info("Shutdown signal received, stopping price warmer...")

	// Cancel in-flight requests, then wait for the job to return.
	cancel()
	shutdownCtx, stop := context.WithTimeout(context.Background(), 30*time.Second)
	defer stop()

	if err := warmer.Stop(shutdownCtx); err != nil {
		logger.WithError(err).Error("Error stopping price warmer")
	}

	status := warmer.GetStatus()
	logger.WithFields(map[string]interface{}{
		"runs":     status.Runs,
		"failures": status.Failures,
	}).Info("Price warmer exited")
}
