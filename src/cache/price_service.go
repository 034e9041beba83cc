package cache

import (
	"context"
	"fmt"

	"market-stream/src/helpers"
	"market-stream/src/interfaces"
	"market-stream/src/logger"
)

// PriceService answers last-price lookups from the cache and falls back to a
// live fetch on a miss, recording the fetched price for later readers.
type PriceService struct {
	Cache   *PriceCache
	Fetcher interfaces.IPriceFetcher
	Logger  *logger.Logger
}

func NewPriceService(c *PriceCache, fetcher interfaces.IPriceFetcher, log *logger.Logger) *PriceService {
	return &PriceService{Cache: c, Fetcher: fetcher, Logger: log}
}

// -----------------------------------------------------------------------------

func (s *PriceService) GetLastPrice(ctx context.Context, symbol, market, environment string) (float64, error) {
	if price, ok := s.Cache.Get(symbol, market, environment); ok {
		return price, nil
	}

	price, err := s.Fetcher.FetchPrice(ctx, symbol, market, environment)
	if err != nil {
		return 0, fmt.Errorf("%w for %s/%s: %v", helpers.ErrPriceUnavailable, symbol, market, err)
	}
	if price <= 0 {
		return 0, fmt.Errorf("%w for %s/%s: non-positive price %v", helpers.ErrPriceUnavailable, symbol, market, price)
	}

	s.Cache.RecordNow(symbol, market, price, environment)
	return price, nil
}
