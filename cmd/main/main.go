package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"market-stream/src/backfill"
	"market-stream/src/cache"
	"market-stream/src/collector"
	"market-stream/src/config"
	"market-stream/src/data_source/hyperliquid"
	"market-stream/src/grpc_control"
	"market-stream/src/logger"
	"market-stream/src/metrics"
	"market-stream/src/pubsub"
	"market-stream/src/scheduler"
	"market-stream/src/server"
	"market-stream/src/snapshot"
	"market-stream/src/storage"
	"market-stream/src/utils"

	"github.com/joho/godotenv"
)

// -----------------------------------------------------------------------------

func main() {

	// 1. Parse command line flags
	configPath := flag.String("config", "config/default.yaml", "path to config file")
	envPath := flag.String("env", ".env", "optional dotenv file")
	flag.Parse()

	// .env is optional; real environment variables win
	_ = godotenv.Load(*envPath)

	// 2. Load config
	conf, err := config.NewConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}
	cfg := conf.MConfig

	// 3. Setup Logger
	appLogger := logger.NewLogger(cfg, cfg.Name)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, conf, appLogger); err != nil {
		appLogger.Error("%v", err)
		os.Exit(1)
	}
	appLogger.Info("Shutdown complete.")
}

// -----------------------------------------------------------------------------

func run(ctx context.Context, conf *config.Config, appLogger *logger.Logger) error {
	cfg := conf.MConfig

	profiler, err := setupProfiler(cfg, appLogger)
	if err != nil {
		appLogger.Warning("%v", err)
	}
	if profiler != nil {
		defer profiler.Stop()
	}

	// 4. Storage
	candles, err := setupDatabase(cfg, appLogger)
	if err != nil {
		return err
	}
	defer candles.Close()

	repo, err := storage.NewTradingRepository(cfg.TradingDB, logger.NewLogger(cfg, "TradingDB"))
	if err != nil {
		return fmt.Errorf("trading db: %w", err)
	}
	defer repo.Close()

	// 5. Upstream
	netMgr := setupNetwork(cfg)
	hl := hyperliquid.NewClient(netMgr, cfg.MarketData.MainnetURL, cfg.MarketData.TestnetURL, logger.NewLogger(cfg, "Hyperliquid"))

	fetcher, closeFetcher, err := setupPriceFetcher(ctx, cfg, hl, appLogger)
	if err != nil {
		return err
	}
	defer closeFetcher()

	// 6. Price cache
	priceCache := cache.NewPriceCache(cfg.PriceCache.TTLSeconds, cfg.PriceCache.HistorySeconds, logger.NewLogger(cfg, "PriceCache"))
	prices := cache.NewPriceService(priceCache, fetcher, logger.NewLogger(cfg, "PriceService"))

	// 7. Backfill
	sources := setupCandleSources(cfg, hl)
	engine := backfill.NewEngine(candles, sources, logger.NewLogger(cfg, "Backfill"))

	// 8. Distribution: scheduler -> registry -> composer, closed by SetHandler
	sched := scheduler.NewScheduler(ctx, logger.NewLogger(cfg, "Scheduler"))
	registry := pubsub.NewRegistry(sched, time.Duration(cfg.Stream.SnapshotIntervalSeconds)*time.Second, logger.NewLogger(cfg, "Registry"))

	stateTTL := time.Duration(cfg.MarketData.ExchangeStateTTLSeconds) * time.Second
	exchange := hyperliquid.NewStateProvider(hl, repo, stateTTL, logger.NewLogger(cfg, "ExchangeState"))

	composer := snapshot.NewComposer(repo, prices, exchange, repo, registry, cfg.Stream.AssetCurveDutySeconds, logger.NewLogger(cfg, "Snapshot"))
	sched.SetHandler(composer.RefreshAccount)

	orders := storage.NewOrderService(repo, prices, logger.NewLogger(cfg, "Orders"))

	// 9. Background jobs
	markets := utils.NewMarketScheduler([]string{cfg.Kline.Market}, logger.NewLogger(cfg, "MarketHours"))
	coll := collector.NewCollector(engine, candles, markets, priceCache, nil, cfg.Kline, logger.NewLogger(cfg, "Collector"))
	if cfg.MarketData.Provider == "hyperliquid" {
		coll.Mids = hyperliquid.NewPriceSource(hl)
	}
	if err := coll.Register(sched, cfg.PriceCache); err != nil {
		return err
	}

	curveEvery := time.Duration(cfg.Stream.AssetCurveBroadcastSeconds) * time.Second
	if err := sched.AddEvery(curveEvery, "asset curve broadcast", func(ctx context.Context) {
		composer.BroadcastAssetCurveUpdate(ctx, "1h")
	}); err != nil {
		return err
	}

	sched.Start()
	defer sched.Stop()

	// 10. Servers
	m := metrics.NewMetrics("market_stream")
	m.ObserveStream("market_stream", registry)
	m.ObserveCache("market_stream", priceCache)

	deps := &server.Dependencies{
		Subscriptions: registry,
		Snapshots:     composer,
		Repo:          repo,
		Orders:        orders,
		Metrics:       m,
		Logger:        appLogger.Named("Session"),
	}
	srv := server.NewFastAPIServer(ctx, cfg, deps, registry, priceCache, engine, m, appLogger.Named("FastAPIServer"))
	control := grpc_control.NewControlService(registry, priceCache, engine, composer, cfg.Kline.Exchange, logger.NewLogger(cfg, "ControlService"))

	errc := make(chan error, 2)
	stopServers := startServers(srv, control, cfg, appLogger, errc)
	defer stopServers()

	appLogger.Info("%s ready", cfg.Name)

	select {
	case <-ctx.Done():
		appLogger.Info("Shutting down...")
		return nil
	case err := <-errc:
		return err
	}
}
