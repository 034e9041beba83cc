package hyperliquid

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"market-stream/src/backfill"
	"market-stream/src/models"
)

// maxCandlesPerRequest is the server-side cap of one candleSnapshot call.
const maxCandlesPerRequest = 5000

// CandleSource is the hyperliquid ICandleFetcher.
type CandleSource struct {
	Client *Client
}

func NewCandleSource(c *Client) *CandleSource {
	return &CandleSource{Client: c}
}

func (s *CandleSource) Name() string { return ExchangeName }

// FetchCandles pages through [start, end] (unix seconds) in server-sized
// windows and returns candles ordered by open time.
func (s *CandleSource) FetchCandles(ctx context.Context, key models.MSeriesKey, start, end int64) ([]models.MCandle, error) {
	if start > end {
		return []models.MCandle{}, nil
	}
	window := end - start + 1
	if step, ok := backfill.PeriodSeconds(key.Period); ok {
		window = step * maxCandlesPerRequest
	}

	coin := strings.ToUpper(key.Symbol)
	seen := map[int64]bool{}
	var out []models.MCandle
	for from := start; from <= end; from += window {
		to := from + window - 1
		if to > end {
			to = end
		}
		rows, err := s.Client.CandleSnapshot(ctx, key.Environment, coin, key.Period, from*1000, to*1000)
		if err != nil {
			return nil, fmt.Errorf("candleSnapshot %s %s [%d, %d]: %w", coin, key.Period, from, to, err)
		}
		for _, r := range rows {
			ts := r.OpenTime / 1000
			if ts < start || ts > end || seen[ts] {
				continue
			}
			seen[ts] = true
			out = append(out, toCandle(key, r))
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	return out, nil
}

func toCandle(key models.MSeriesKey, r RawCandle) models.MCandle {
	ts := r.OpenTime / 1000
	return models.MCandle{
		Exchange:    ExchangeName,
		Symbol:      key.Symbol,
		Market:      key.Market,
		Period:      key.Period,
		Environment: key.Environment,
		Timestamp:   ts,
		DatetimeStr: backfill.FormatCandleTime(ts),
		Open:        num(r.Open),
		High:        num(r.High),
		Low:         num(r.Low),
		Close:       num(r.Close),
		Volume:      num(r.Volume),
	}
}
