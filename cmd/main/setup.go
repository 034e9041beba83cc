package main

import (
	"context"
	"fmt"
	"time"

	datasource "market-stream/src/data_source"
	"market-stream/src/data_source/hyperliquid"
	"market-stream/src/data_source/redis"
	"market-stream/src/helpers"
	"market-stream/src/interfaces"
	"market-stream/src/logger"
	"market-stream/src/models"
	"market-stream/src/network"
	"market-stream/src/storage"

	"github.com/grafana/pyroscope-go"
)

// -----------------------------------------------------------------------------

// setupDatabase initializes the candle store based on config
func setupDatabase(config *models.MConfig, appLogger *logger.Logger) (interfaces.ICandleStore, error) {
	var db interfaces.ICandleStore
	var err error

	switch config.Storage.DBType {
	case "postgres":
		db, err = storage.NewPostgresDB(config, logger.NewLogger(config, "PostgresDB"))
	default:
		// Default to SQLite
		db, err = storage.NewAsyncSQLiteDB(config, logger.NewLogger(config, "SQLiteDB"))
	}

	if err != nil {
		appLogger.Error("Failed to init db: %v", err)
		return nil, err
	}
	if err := db.Initialize(); err != nil {
		appLogger.Error("Failed to migrate db: %v", err)
		return nil, err
	}
	return db, nil
}

// -----------------------------------------------------------------------------

// setupNetwork initializes the network manager
func setupNetwork(config *models.MConfig) interfaces.INetworkManager {
	return network.NewAsyncNetworkManager(config, logger.NewLogger(config, "NetworkManager"))
}

// -----------------------------------------------------------------------------

// setupPriceFetcher picks the live price source behind the cache.
func setupPriceFetcher(ctx context.Context, config *models.MConfig, client *hyperliquid.Client, appLogger *logger.Logger) (interfaces.IPriceFetcher, func() error, error) {
	md := config.MarketData
	switch md.Provider {
	case "redis":
		ttl := time.Duration(config.PriceCache.TTLSeconds) * time.Second
		// redis may come up after us under compose
		src, err := helpers.RetryWithBackoff(ctx, appLogger, "redis connect", config.Network.MaxRetries+1, time.Second,
			func() (*redis.PriceSource, error) {
				return redis.NewPriceSource(md.RedisAddr, md.RedisPassword, md.RedisDB, ttl)
			})
		if err != nil {
			return nil, nil, fmt.Errorf("redis price source: %w", err)
		}
		appLogger.Info("Prices served from redis at %s", md.RedisAddr)
		return src, src.Close, nil
	default:
		appLogger.Info("Prices served from hyperliquid")
		return hyperliquid.NewPriceSource(client), func() error { return nil }, nil
	}
}

// -----------------------------------------------------------------------------

// setupCandleSources registers every candle source by exchange name.
func setupCandleSources(config *models.MConfig, client *hyperliquid.Client) *datasource.MultiSourceManager {
	sources := []interfaces.ICandleFetcher{hyperliquid.NewCandleSource(client)}
	return datasource.NewMultiSourceManager(sources, logger.NewLogger(config, "SourceManager"))
}

// -----------------------------------------------------------------------------

// setupProfiler starts continuous profiling when a server is configured.
func setupProfiler(config *models.MConfig, appLogger *logger.Logger) (*pyroscope.Profiler, error) {
	if config.Profiling.ServerAddress == "" {
		return nil, nil
	}
	profiler, err := pyroscope.Start(pyroscope.Config{
		ApplicationName: config.Profiling.ApplicationName,
		ServerAddress:   config.Profiling.ServerAddress,
		Logger:          logger.ProfilerLogger{Logger: logger.NewLogger(config, "Profiler")},
		ProfileTypes: []pyroscope.ProfileType{
			pyroscope.ProfileCPU,
			pyroscope.ProfileAllocObjects,
			pyroscope.ProfileAllocSpace,
			pyroscope.ProfileInuseObjects,
			pyroscope.ProfileInuseSpace,
			pyroscope.ProfileGoroutines,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("pyroscope start failed: %w", err)
	}
	appLogger.Info("Profiling to %s as %s", config.Profiling.ServerAddress, config.Profiling.ApplicationName)
	return profiler, nil
}
