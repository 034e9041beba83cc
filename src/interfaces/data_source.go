package interfaces

import (
	"context"

	"market-stream/src/models"
)

// -----------------------------------------------------------------------------
// ICandleFetcher is the external source of record for historical klines.
// -----------------------------------------------------------------------------

type ICandleFetcher interface {

	// Name is the exchange identifier used in candle keys.
	Name() string

	// -----------------------------------------------------------------------------

	// FetchCandles returns candles whose open time lies in [start, end].
	FetchCandles(ctx context.Context, key models.MSeriesKey, start, end int64) ([]models.MCandle, error)
}

// -----------------------------------------------------------------------------
// IPriceFetcher performs a live last-price lookup.
// -----------------------------------------------------------------------------

type IPriceFetcher interface {
	FetchPrice(ctx context.Context, symbol, market, environment string) (float64, error)
}

// -----------------------------------------------------------------------------
// IPriceLookup is the cache-first price read used by snapshot assembly.
// -----------------------------------------------------------------------------

type IPriceLookup interface {
	GetLastPrice(ctx context.Context, symbol, market, environment string) (float64, error)
}

// -----------------------------------------------------------------------------
// IExchangeStateProvider reads margin state and positions for exchange modes.
// -----------------------------------------------------------------------------

type IExchangeStateProvider interface {

	// Snapshot returns helpers.ErrNoWallet when the account has no wallet
	// for the environment.
	Snapshot(ctx context.Context, accountID int64, environment string) (*models.MExchangeSnapshot, error)

	// Invalidate drops any cached state so the next Snapshot refetches.
	Invalidate(accountID int64, environment string)
}
