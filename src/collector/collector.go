package collector

import (
	"context"
	"fmt"
	"strings"
	"time"

	"market-stream/src/backfill"
	"market-stream/src/cache"
	"market-stream/src/interfaces"
	"market-stream/src/logger"
	"market-stream/src/models"
	"market-stream/src/utils"
)

// MidsSource returns every mid price an upstream quotes for an environment.
type MidsSource interface {
	Mids(ctx context.Context, environment string) (map[string]float64, error)
}

// Collector owns the background data jobs: trailing kline collection,
// candle retention, price cache warm-up and the expired-price sweep.
type Collector struct {
	Engine  *backfill.Engine
	Store   interfaces.ICandleStore
	Markets *utils.MarketScheduler
	Cache   *cache.PriceCache
	Mids    MidsSource
	Kline   models.MKlineConfig
	Logger  *logger.Logger

	// Environments warmed by WarmPrices.
	Environments []string

	now func() time.Time
}

// -----------------------------------------------------------------------------

func NewCollector(
	engine *backfill.Engine,
	store interfaces.ICandleStore,
	markets *utils.MarketScheduler,
	priceCache *cache.PriceCache,
	mids MidsSource,
	kline models.MKlineConfig,
	log *logger.Logger,
) *Collector {
	return &Collector{
		Engine:       engine,
		Store:        store,
		Markets:      markets,
		Cache:        priceCache,
		Mids:         mids,
		Kline:        kline,
		Logger:       log,
		Environments: []string{models.DefaultEnvironment, "testnet"},
		now:          time.Now,
	}
}

// WithClock swaps the time source; meant for tests.
func (c *Collector) WithClock(now func() time.Time) *Collector {
	c.now = now
	return c
}

// -----------------------------------------------------------------------------

// window returns the trailing [start, end] grid range for period, ending on
// the last closed candle.
func (c *Collector) window(period string) (int64, int64, bool) {
	step, ok := backfill.PeriodSeconds(period)
	if !ok {
		return 0, 0, false
	}
	now := c.now().UTC().Unix()
	end := now/step*step - step

	lookback := int64(c.Kline.LookbackMinutes) * 60
	if lookback < step {
		lookback = step
	}
	start := (end - lookback + step) / step * step
	return start, end, true
}

// CollectKlines keeps the trailing window of every configured symbol and
// period complete. Closed markets are skipped.
func (c *Collector) CollectKlines(ctx context.Context) models.MBackfillReport {
	var total models.MBackfillReport

	if c.Markets != nil && !c.Markets.IsOpen(c.Kline.Market) {
		c.Logger.Debug("Market %s closed, skipping kline collection", c.Kline.Market)
		return total
	}

	for _, symbol := range c.Kline.Symbols {
		for _, period := range c.Kline.Periods {
			if ctx.Err() != nil {
				return total
			}

			start, end, ok := c.window(period)
			if !ok {
				c.Logger.Warning("Skipping %s: unsupported period %q", symbol, period)
				continue
			}

			key := models.MSeriesKey{
				Exchange:    c.Kline.Exchange,
				Symbol:      strings.ToUpper(symbol),
				Market:      c.Kline.Market,
				Period:      period,
				Environment: c.Kline.Environment,
			}
			rep, err := c.Engine.Backfill(ctx, key, start, end)
			if err != nil {
				c.Logger.Error("Kline collection for %s %s failed: %v", key.Symbol, period, err)
				continue
			}
			total.Missing = append(total.Missing, rep.Missing...)
			total.Fetched += rep.Fetched
			total.Inserted += rep.Inserted
			total.Skipped += rep.Skipped
			total.Failed = append(total.Failed, rep.Failed...)
		}
	}

	if total.Inserted > 0 || len(total.Failed) > 0 {
		c.Logger.Info("Kline collection: %d gaps, %d inserted, %d failed ranges", len(total.Missing), total.Inserted, len(total.Failed))
	}
	return total
}

// -----------------------------------------------------------------------------

// PurgeOldCandles deletes candles older than the retention window.
func (c *Collector) PurgeOldCandles(ctx context.Context) (int64, error) {
	if c.Kline.RetentionDays <= 0 {
		return 0, nil
	}
	cutoff := c.now().UTC().AddDate(0, 0, -c.Kline.RetentionDays).Unix()

	n, err := c.Store.CleanupOldData(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge candles before %s: %w", backfill.FormatCandleTime(cutoff), err)
	}
	if n > 0 {
		c.Logger.Info("Purged %d candles older than %d days", n, c.Kline.RetentionDays)
	}
	return n, nil
}

// -----------------------------------------------------------------------------

// WarmPrices records the upstream mids of every environment into the cache
// so snapshot lookups rarely go to the network.
func (c *Collector) WarmPrices(ctx context.Context) int {
	recorded := 0
	for _, env := range c.Environments {
		mids, err := c.Mids.Mids(ctx, env)
		if err != nil {
			c.Logger.Warning("Price warm-up for %s failed: %v", env, err)
			continue
		}

		at := c.now()
		for coin, px := range mids {
			if px <= 0 {
				continue
			}
			c.Cache.Record(strings.ToUpper(coin), models.DefaultMarket, px, env, at)
			recorded++
		}
	}
	return recorded
}

// SweepCache drops expired prices.
func (c *Collector) SweepCache(ctx context.Context) {
	if n := c.Cache.ClearExpired(); n > 0 {
		c.Logger.Debug("Swept %d expired prices", n)
	}
}

// -----------------------------------------------------------------------------

// IScheduler is the slice of the scheduler the collector registers on.
type IScheduler interface {
	AddFunc(spec, name string, fn func(ctx context.Context)) error
	AddEvery(interval time.Duration, name string, fn func(ctx context.Context)) error
}

// Register installs the collector jobs. A nil Mids source disables warm-up.
func (c *Collector) Register(s IScheduler, pc models.MPriceCacheConfig) error {
	if len(c.Kline.Symbols) > 0 {
		if err := s.AddFunc(c.Kline.CollectSchedule, "kline collection", func(ctx context.Context) {
			c.CollectKlines(ctx)
		}); err != nil {
			return err
		}
	}

	if err := s.AddFunc("@daily", "candle retention", func(ctx context.Context) {
		if _, err := c.PurgeOldCandles(ctx); err != nil {
			c.Logger.Error("%v", err)
		}
	}); err != nil {
		return err
	}

	if err := s.AddEvery(time.Duration(pc.SweepIntervalSeconds)*time.Second, "price cache sweep", c.SweepCache); err != nil {
		return err
	}

	if c.Mids != nil {
		if err := s.AddEvery(time.Duration(pc.WarmupIntervalSeconds)*time.Second, "price warm-up", func(ctx context.Context) {
			c.WarmPrices(ctx)
		}); err != nil {
			return err
		}
	}
	return nil
}
