package backfill

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"market-stream/src/logger"
	"market-stream/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type candleID struct {
	key models.MSeriesKey
	ts  int64
}

// memStore is an insert-or-skip candle store keyed like the real tables.
type memStore struct {
	mu      sync.Mutex
	rows    map[candleID]models.MCandle
	inserts int
}

func newMemStore() *memStore {
	return &memStore{rows: map[candleID]models.MCandle{}}
}

func (s *memStore) Initialize() error { return nil }
func (s *memStore) Close() error      { return nil }

func (s *memStore) SaveCandles(ctx context.Context, candles []models.MCandle) (models.MSaveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var res models.MSaveResult
	for _, c := range candles {
		id := candleID{c.Key(), c.Timestamp}
		if _, ok := s.rows[id]; ok {
			res.Skipped++
			continue
		}
		s.rows[id] = c
		s.inserts++
		res.Inserted++
	}
	return res, nil
}

func (s *memStore) ListCandles(ctx context.Context, key models.MSeriesKey, start, end int64) ([]models.MCandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.MCandle{}
	for id, c := range s.rows {
		if id.key == key && id.ts >= start && id.ts <= end {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	return out, nil
}

func (s *memStore) ListTimestamps(ctx context.Context, key models.MSeriesKey, start, end int64) ([]int64, error) {
	candles, _ := s.ListCandles(ctx, key, start, end)
	out := make([]int64, 0, len(candles))
	for _, c := range candles {
		out = append(out, c.Timestamp)
	}
	return out, nil
}

func (s *memStore) CleanupOldData(ctx context.Context, before int64) (int64, error) { return 0, nil }

// gridSource returns one candle per step, optionally failing for ranges
// starting at a given timestamp.
type gridSource struct {
	step   int64
	failAt map[int64]bool
	calls  []models.MMissingRange
}

func (g *gridSource) Name() string { return "test" }

func (g *gridSource) FetchCandles(ctx context.Context, key models.MSeriesKey, start, end int64) ([]models.MCandle, error) {
	g.calls = append(g.calls, models.MMissingRange{Start: start, End: end})
	if g.failAt[start] {
		return nil, errors.New("upstream timeout")
	}
	var out []models.MCandle
	// include one candle outside the range to check it gets filtered
	for ts := start; ts <= end+g.step; ts += g.step {
		out = append(out, models.MCandle{Symbol: "spoofed", Timestamp: ts, Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 10})
	}
	return out, nil
}

var btc1m = models.MSeriesKey{Exchange: "test", Symbol: "BTC", Market: "CRYPTO", Period: "1m", Environment: "mainnet"}

func TestEnsureHistoryFillsGapsAndIsIdempotent(t *testing.T) {
	store := newMemStore()
	_, err := store.SaveCandles(context.Background(), []models.MCandle{
		{Exchange: "test", Symbol: "BTC", Market: "CRYPTO", Period: "1m", Environment: "mainnet", Timestamp: 120},
	})
	require.NoError(t, err)
	src := &gridSource{step: 60}
	engine := NewEngine(store, src, logger.NewLogger(nil, "test"))

	first, err := engine.EnsureHistory(context.Background(), btc1m, 0, 300)
	require.NoError(t, err)
	require.Len(t, first, 6)
	for i, c := range first {
		assert.Equal(t, int64(i*60), c.Timestamp)
		assert.Equal(t, "BTC", c.Symbol)
	}
	assert.Equal(t, []models.MMissingRange{{Start: 0, End: 60}, {Start: 180, End: 300}}, src.calls)
	insertsAfterFirst := store.inserts

	second, err := engine.EnsureHistory(context.Background(), btc1m, 0, 300)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, insertsAfterFirst, store.inserts)
	assert.Len(t, src.calls, 2, "complete range must not hit the source again")
}

func TestBackfillContinuesPastFailedRange(t *testing.T) {
	store := newMemStore()
	_, _ = store.SaveCandles(context.Background(), []models.MCandle{
		{Exchange: "test", Symbol: "BTC", Market: "CRYPTO", Period: "1m", Environment: "mainnet", Timestamp: 120},
	})
	src := &gridSource{step: 60, failAt: map[int64]bool{0: true}}
	engine := NewEngine(store, src, logger.NewLogger(nil, "test"))

	report, err := engine.Backfill(context.Background(), btc1m, 0, 300)
	require.NoError(t, err)
	assert.Equal(t, []models.MMissingRange{{Start: 0, End: 60}}, report.Failed)
	assert.Equal(t, 3, report.Inserted)

	candles, err := engine.EnsureHistory(context.Background(), btc1m, 0, 300)
	require.NoError(t, err)
	assert.Len(t, candles, 4)
}

func TestUnknownPeriodIsOneGap(t *testing.T) {
	engine := NewEngine(newMemStore(), &gridSource{step: 60}, logger.NewLogger(nil, "test"))
	key := btc1m
	key.Period = "1w"

	ranges, err := engine.MissingRanges(context.Background(), key, 0, 1000)
	require.NoError(t, err)
	assert.Equal(t, []models.MMissingRange{{Start: 0, End: 1000}}, ranges)
}
