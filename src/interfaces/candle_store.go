package interfaces

import (
	"context"

	"market-stream/src/models"
)

// -----------------------------------------------------------------------------
// ICandleStore persists klines with insert-or-skip semantics.
// -----------------------------------------------------------------------------

type ICandleStore interface {

	// Initialize opens the connection and creates owned tables.
	Initialize() error

	// -----------------------------------------------------------------------------

	// SaveCandles inserts rows whose identity is absent and skips the rest.
	SaveCandles(ctx context.Context, candles []models.MCandle) (models.MSaveResult, error)

	// -----------------------------------------------------------------------------

	// ListTimestamps returns stored open times in [start, end], ascending.
	ListTimestamps(ctx context.Context, key models.MSeriesKey, start, end int64) ([]int64, error)

	// -----------------------------------------------------------------------------

	// ListCandles returns stored candles in [start, end], ascending.
	ListCandles(ctx context.Context, key models.MSeriesKey, start, end int64) ([]models.MCandle, error)

	// -----------------------------------------------------------------------------

	// CleanupOldData deletes candles opened before the cutoff.
	CleanupOldData(ctx context.Context, before int64) (int64, error)

	// -----------------------------------------------------------------------------

	Close() error
}
