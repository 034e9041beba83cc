package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"market-stream/src/helpers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Set(sec int64) {
	f.mu.Lock()
	f.now = time.Unix(sec, 0)
	f.mu.Unlock()
}

func newTestCache(ttl, history int) (*PriceCache, *fakeClock) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	return NewPriceCache(ttl, history, nil).WithClock(clock.Now), clock
}

func TestGetHonoursTTL(t *testing.T) {
	c, clock := newTestCache(30, 3600)
	c.Record("BTC", "CRYPTO", 50000, "mainnet", time.Unix(0, 0))

	clock.Set(10)
	price, ok := c.Get("BTC", "CRYPTO", "mainnet")
	require.True(t, ok)
	assert.Equal(t, 50000.0, price)

	clock.Set(29)
	_, ok = c.Get("BTC", "CRYPTO", "mainnet")
	assert.True(t, ok)

	clock.Set(31)
	_, ok = c.Get("BTC", "CRYPTO", "mainnet")
	assert.False(t, ok)

	// the stale entry is gone, its history is not
	assert.Equal(t, 0, c.Stats().TotalEntries)
	assert.Len(t, c.History("BTC", "CRYPTO", "mainnet"), 1)
}

func TestGetMissesExactlyAtTTL(t *testing.T) {
	c, clock := newTestCache(30, 3600)
	c.Record("ETH", "CRYPTO", 3000, "mainnet", time.Unix(100, 0))

	clock.Set(130)
	_, ok := c.Get("ETH", "CRYPTO", "mainnet")
	assert.False(t, ok)
}

func TestKeysAreIsolatedByEnvironment(t *testing.T) {
	c, _ := newTestCache(30, 3600)
	c.Record("BTC", "CRYPTO", 50000, "mainnet", time.Unix(0, 0))
	c.Record("BTC", "CRYPTO", 49000, "testnet", time.Unix(0, 0))

	main, _ := c.Get("BTC", "CRYPTO", "mainnet")
	test, _ := c.Get("BTC", "CRYPTO", "testnet")
	assert.Equal(t, 50000.0, main)
	assert.Equal(t, 49000.0, test)

	// empty market and environment fall back to the defaults
	def, ok := c.Get("BTC", "", "")
	require.True(t, ok)
	assert.Equal(t, 50000.0, def)
}

func TestRecordIsLastWriteWins(t *testing.T) {
	c, clock := newTestCache(30, 3600)
	clock.Set(20)
	c.Record("SOL", "CRYPTO", 150, "mainnet", time.Unix(20, 0))
	c.Record("SOL", "CRYPTO", 140, "mainnet", time.Unix(10, 0))

	price, ok := c.Get("SOL", "CRYPTO", "mainnet")
	require.True(t, ok)
	assert.Equal(t, 140.0, price)
}

func TestHistoryKeepsTrailingWindow(t *testing.T) {
	c, _ := newTestCache(30, 5)
	for i := int64(0); i < 10; i++ {
		c.Record("BTC", "CRYPTO", float64(100+i), "mainnet", time.Unix(i, 0))
	}

	history := c.History("BTC", "CRYPTO", "mainnet")
	require.LessOrEqual(t, len(history), 5)
	require.NotEmpty(t, history)
	for i := 1; i < len(history); i++ {
		assert.True(t, history[i-1].ObservedAt.Before(history[i].ObservedAt))
	}
	assert.Equal(t, 109.0, history[len(history)-1].Price)
	assert.Equal(t, 105.0, history[0].Price)
}

func TestHistoryIsACopy(t *testing.T) {
	c, _ := newTestCache(30, 60)
	c.Record("BTC", "CRYPTO", 1, "mainnet", time.Unix(0, 0))

	snap := c.History("BTC", "CRYPTO", "mainnet")
	snap[0].Price = 999

	assert.Equal(t, 1.0, c.History("BTC", "CRYPTO", "mainnet")[0].Price)
	assert.Empty(t, c.History("DOGE", "CRYPTO", "mainnet"))
}

func TestClearExpiredAndStats(t *testing.T) {
	c, clock := newTestCache(30, 60)
	c.Record("BTC", "CRYPTO", 1, "mainnet", time.Unix(0, 0))
	c.Record("ETH", "CRYPTO", 2, "mainnet", time.Unix(25, 0))

	clock.Set(40)
	stats := c.Stats()
	assert.Equal(t, 2, stats.TotalEntries)
	assert.Equal(t, 1, stats.ValidEntries)
	assert.Equal(t, 2, stats.HistoryEntries)
	assert.Equal(t, 30, stats.TTLSeconds)
	assert.Equal(t, 60, stats.HistorySeconds)

	assert.Equal(t, 1, c.ClearExpired())
	assert.Empty(t, c.History("BTC", "CRYPTO", "mainnet"))
	assert.Len(t, c.History("ETH", "CRYPTO", "mainnet"), 1)

	// window pruning alone removes history of keys purged lazily by Get
	clock.Set(100)
	_, ok := c.Get("ETH", "CRYPTO", "mainnet")
	require.False(t, ok)
	c.ClearExpired()
	assert.Equal(t, 0, c.Stats().HistoryEntries)
}

func TestConcurrentAccess(t *testing.T) {
	c := NewPriceCache(30, 60, nil)
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				c.RecordNow("BTC", "CRYPTO", float64(i), "mainnet")
				c.Get("BTC", "CRYPTO", "mainnet")
				c.History("BTC", "CRYPTO", "mainnet")
			}
		}(w)
	}
	wg.Wait()

	_, ok := c.Get("BTC", "CRYPTO", "mainnet")
	assert.True(t, ok)
}

// -----------------------------------------------------------------------------

type stubFetcher struct {
	price float64
	err   error
	calls int
}

func (s *stubFetcher) FetchPrice(ctx context.Context, symbol, market, environment string) (float64, error) {
	s.calls++
	return s.price, s.err
}

func TestPriceServiceFillsCacheOnMiss(t *testing.T) {
	c, _ := newTestCache(30, 60)
	fetcher := &stubFetcher{price: 42000}
	svc := NewPriceService(c, fetcher, nil)

	price, err := svc.GetLastPrice(context.Background(), "BTC", "CRYPTO", "mainnet")
	require.NoError(t, err)
	assert.Equal(t, 42000.0, price)

	price, err = svc.GetLastPrice(context.Background(), "BTC", "CRYPTO", "mainnet")
	require.NoError(t, err)
	assert.Equal(t, 42000.0, price)
	assert.Equal(t, 1, fetcher.calls)
}

func TestPriceServiceWrapsFailures(t *testing.T) {
	c, _ := newTestCache(30, 60)
	svc := NewPriceService(c, &stubFetcher{err: errors.New("upstream down")}, nil)

	_, err := svc.GetLastPrice(context.Background(), "BTC", "CRYPTO", "mainnet")
	assert.ErrorIs(t, err, helpers.ErrPriceUnavailable)

	svc.Fetcher = &stubFetcher{price: 0}
	_, err = svc.GetLastPrice(context.Background(), "BTC", "CRYPTO", "mainnet")
	assert.ErrorIs(t, err, helpers.ErrPriceUnavailable)
}
