package utils

import (
	"sync"
	"time"

	"market-stream/src/logger"
)

// MarketScheduler caches one calendar per market and gates collection jobs
// on market hours.
type MarketScheduler struct {
	Calendars map[string]*TradingCalendar
	Logger    *logger.Logger
	mu        sync.RWMutex
	now       func() time.Time
}

// -----------------------------------------------------------------------------

func NewMarketScheduler(markets []string, l *logger.Logger) *MarketScheduler {
	ms := &MarketScheduler{
		Calendars: make(map[string]*TradingCalendar),
		Logger:    l,
		now:       time.Now,
	}
	ms.UpdateMarkets(markets)
	return ms
}

// WithClock swaps the time source; meant for tests.
func (ms *MarketScheduler) WithClock(now func() time.Time) *MarketScheduler {
	ms.now = now
	return ms
}

// -----------------------------------------------------------------------------

// UpdateMarkets replaces the tracked markets.
func (ms *MarketScheduler) UpdateMarkets(markets []string) {
	cals := make(map[string]*TradingCalendar, len(markets))
	for _, m := range markets {
		if cal := GetCalendar(m); cal != nil {
			cals[m] = cal
		}
	}

	ms.mu.Lock()
	ms.Calendars = cals
	ms.mu.Unlock()

	ms.Logger.Info("MarketScheduler: tracking %d markets.", len(cals))
}

// -----------------------------------------------------------------------------

// IsOpen reports whether market trades now. Markets not yet tracked are
// resolved and remembered on first use.
func (ms *MarketScheduler) IsOpen(market string) bool {
	return ms.IsOpenAt(market, ms.now().UTC())
}

func (ms *MarketScheduler) IsOpenAt(market string, t time.Time) bool {
	ms.mu.RLock()
	cal, ok := ms.Calendars[market]
	ms.mu.RUnlock()

	if !ok {
		cal = GetCalendar(market)
		ms.mu.Lock()
		ms.Calendars[market] = cal
		ms.mu.Unlock()
	}
	return cal.IsOpenOnMinute(t)
}
