package cache

import (
	"sync"
	"sync/atomic"
	"time"

	"market-stream/src/logger"
	"market-stream/src/models"
	"market-stream/src/utils"
)

// -----------------------------------------------------------------------------
// PriceCache keeps the last price per (symbol, market, environment) with a
// TTL, plus a rolling history window per key. One mutex guards both maps;
// callers never hold it across I/O.
// -----------------------------------------------------------------------------

type priceEntry struct {
	price      float64
	observedAt time.Time
}

type PriceCache struct {
	ttl     time.Duration
	history time.Duration
	now     func() time.Time
	Logger  *logger.Logger

	mu      sync.Mutex
	entries map[models.MPriceKey]priceEntry
	rings   map[models.MPriceKey]*utils.PriceRing

	hits   atomic.Uint64
	misses atomic.Uint64
}

// -----------------------------------------------------------------------------

func NewPriceCache(ttlSeconds, historySeconds int, log *logger.Logger) *PriceCache {
	if ttlSeconds <= 0 {
		ttlSeconds = 30
	}
	if historySeconds <= 0 {
		historySeconds = 3600
	}
	return &PriceCache{
		ttl:     time.Duration(ttlSeconds) * time.Second,
		history: time.Duration(historySeconds) * time.Second,
		now:     time.Now,
		Logger:  log,
		entries: make(map[models.MPriceKey]priceEntry),
		rings:   make(map[models.MPriceKey]*utils.PriceRing),
	}
}

// -----------------------------------------------------------------------------

// WithClock swaps the time source; meant for tests.
func (c *PriceCache) WithClock(now func() time.Time) *PriceCache {
	c.now = now
	return c
}

// -----------------------------------------------------------------------------

func cacheKey(symbol, market, environment string) models.MPriceKey {
	if market == "" {
		market = models.DefaultMarket
	}
	if environment == "" {
		environment = models.DefaultEnvironment
	}
	return models.MPriceKey{Symbol: symbol, Market: market, Environment: environment}
}

// -----------------------------------------------------------------------------

// Get returns the cached price while it is younger than the TTL. A stale
// entry counts as a miss and is purged on the spot.
func (c *PriceCache) Get(symbol, market, environment string) (float64, bool) {
	key := cacheKey(symbol, market, environment)
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.misses.Add(1)
		return 0, false
	}
	if now.Sub(e.observedAt) >= c.ttl {
		delete(c.entries, key)
		c.misses.Add(1)
		return 0, false
	}
	c.hits.Add(1)
	return e.price, true
}

// -----------------------------------------------------------------------------

// Record overwrites the entry (last call wins, whatever its timestamp) and
// appends to the key's history, keeping only the trailing window that ends
// at observedAt.
func (c *PriceCache) Record(symbol, market string, price float64, environment string, observedAt time.Time) {
	key := cacheKey(symbol, market, environment)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = priceEntry{price: price, observedAt: observedAt}

	ring, ok := c.rings[key]
	if !ok {
		ring = utils.NewPriceRing(0)
		c.rings[key] = ring
	}
	ring.Append(models.MPricePoint{ObservedAt: observedAt, Price: price})
	ring.DropThrough(observedAt.Add(-c.history))
}

// -----------------------------------------------------------------------------

// RecordNow is Record stamped with the cache clock.
func (c *PriceCache) RecordNow(symbol, market string, price float64, environment string) {
	c.Record(symbol, market, price, environment, c.now())
}

// -----------------------------------------------------------------------------

// History returns a copy of the key's window, oldest first.
func (c *PriceCache) History(symbol, market, environment string) []models.MPricePoint {
	key := cacheKey(symbol, market, environment)

	c.mu.Lock()
	defer c.mu.Unlock()

	ring, ok := c.rings[key]
	if !ok {
		return []models.MPricePoint{}
	}
	return ring.GetAll()
}

// -----------------------------------------------------------------------------

// ClearExpired drops expired entries together with their history, prunes
// every remaining window against the clock and forgets empty windows.
// Returns the number of entries removed.
func (c *PriceCache) ClearExpired() int {
	now := c.now()
	cutoff := now.Add(-c.history)

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, e := range c.entries {
		if now.Sub(e.observedAt) >= c.ttl {
			delete(c.entries, key)
			delete(c.rings, key)
			removed++
		}
	}
	for key, ring := range c.rings {
		ring.DropThrough(cutoff)
		if ring.Size() == 0 {
			delete(c.rings, key)
		}
	}

	if removed > 0 && c.Logger != nil {
		c.Logger.Debug("Cleared %d expired price entries", removed)
	}
	return removed
}

// -----------------------------------------------------------------------------

func (c *PriceCache) Stats() models.MCacheStats {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	stats := models.MCacheStats{
		TotalEntries:   len(c.entries),
		TTLSeconds:     int(c.ttl / time.Second),
		HistorySeconds: int(c.history / time.Second),
		Hits:           c.hits.Load(),
		Misses:         c.misses.Load(),
	}
	for _, e := range c.entries {
		if now.Sub(e.observedAt) < c.ttl {
			stats.ValidEntries++
		}
	}
	for _, ring := range c.rings {
		stats.HistoryEntries += ring.Size()
	}
	return stats
}
