package backfill

import (
	"context"
	"fmt"

	"market-stream/src/interfaces"
	"market-stream/src/logger"
	"market-stream/src/models"
)

// -----------------------------------------------------------------------------
// Engine reconciles the local candle store against the source of record.
// -----------------------------------------------------------------------------

type Engine struct {
	Store   interfaces.ICandleStore
	Fetcher interfaces.ICandleFetcher
	Logger  *logger.Logger
}

func NewEngine(store interfaces.ICandleStore, fetcher interfaces.ICandleFetcher, log *logger.Logger) *Engine {
	return &Engine{Store: store, Fetcher: fetcher, Logger: log}
}

// -----------------------------------------------------------------------------

// MissingRanges lists the gaps for key in [start, end]. Periods without a
// fixed step come back as one gap covering the whole request.
func (e *Engine) MissingRanges(ctx context.Context, key models.MSeriesKey, start, end int64) ([]models.MMissingRange, error) {
	step, ok := PeriodSeconds(key.Period)
	if !ok {
		if start > end {
			return []models.MMissingRange{}, nil
		}
		return []models.MMissingRange{{Start: start, End: end}}, nil
	}

	existing, err := e.Store.ListTimestamps(ctx, key, start, end)
	if err != nil {
		return nil, fmt.Errorf("list timestamps %s/%s/%s: %w", key.Exchange, key.Symbol, key.Period, err)
	}
	return MissingRanges(existing, start, end, step), nil
}

// -----------------------------------------------------------------------------

// Backfill fetches and persists every gap independently. A failed range is
// logged and recorded in the report; the rest are still attempted.
func (e *Engine) Backfill(ctx context.Context, key models.MSeriesKey, start, end int64) (models.MBackfillReport, error) {
	report := models.MBackfillReport{Failed: []models.MMissingRange{}}

	missing, err := e.MissingRanges(ctx, key, start, end)
	if err != nil {
		return report, err
	}
	report.Missing = missing

	for _, r := range missing {
		if ctx.Err() != nil {
			report.Failed = append(report.Failed, r)
			continue
		}

		fetched, res, err := e.fillRange(ctx, key, r)
		report.Fetched += fetched
		report.Inserted += res.Inserted
		report.Skipped += res.Skipped
		if err != nil {
			report.Failed = append(report.Failed, r)
			e.Logger.Warning("Backfill %s %s %s [%d, %d] failed: %v", key.Exchange, key.Symbol, key.Period, r.Start, r.End, err)
		}
	}

	if len(missing) > 0 {
		e.Logger.Debug("Backfill %s %s %s: %d ranges, %d inserted, %d skipped, %d failed",
			key.Exchange, key.Symbol, key.Period, len(missing), report.Inserted, report.Skipped, len(report.Failed))
	}
	return report, nil
}

// -----------------------------------------------------------------------------

func (e *Engine) fillRange(ctx context.Context, key models.MSeriesKey, r models.MMissingRange) (int, models.MSaveResult, error) {
	candles, err := e.Fetcher.FetchCandles(ctx, key, r.Start, r.End)
	if err != nil {
		return 0, models.MSaveResult{}, err
	}

	rows := make([]models.MCandle, 0, len(candles))
	for _, c := range candles {
		if c.Timestamp < r.Start || c.Timestamp > r.End {
			continue
		}
		// the source does not get to choose which series it writes into
		c.Exchange, c.Symbol, c.Market, c.Period, c.Environment = key.Exchange, key.Symbol, key.Market, key.Period, key.Environment
		if c.DatetimeStr == "" {
			c.DatetimeStr = FormatCandleTime(c.Timestamp)
		}
		rows = append(rows, c)
	}
	if len(rows) == 0 {
		return 0, models.MSaveResult{}, nil
	}

	res, err := e.Store.SaveCandles(ctx, rows)
	return len(rows), res, err
}

// -----------------------------------------------------------------------------

// EnsureHistory backfills what it can and returns every stored candle in the
// range, ordered by time, whatever happened to individual ranges.
func (e *Engine) EnsureHistory(ctx context.Context, key models.MSeriesKey, start, end int64) ([]models.MCandle, error) {
	if _, err := e.Backfill(ctx, key, start, end); err != nil {
		e.Logger.Error("Gap detection for %s %s %s failed: %v", key.Exchange, key.Symbol, key.Period, err)
	}

	candles, err := e.Store.ListCandles(ctx, key, start, end)
	if err != nil {
		return nil, fmt.Errorf("list candles %s/%s/%s: %w", key.Exchange, key.Symbol, key.Period, err)
	}
	return candles, nil
}
