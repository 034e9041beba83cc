package datasource

import (
	"context"
	"testing"

	"market-stream/src/interfaces"
	"market-stream/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type namedFetcher struct {
	name string
	got  []models.MSeriesKey
}

func (f *namedFetcher) Name() string { return f.name }

func (f *namedFetcher) FetchCandles(ctx context.Context, key models.MSeriesKey, start, end int64) ([]models.MCandle, error) {
	f.got = append(f.got, key)
	return []models.MCandle{{Exchange: f.name, Symbol: key.Symbol, Timestamp: start}}, nil
}

func TestFetchRoutesByExchange(t *testing.T) {
	hl := &namedFetcher{name: "hyperliquid"}
	other := &namedFetcher{name: "binance"}
	m := NewMultiSourceManager([]interfaces.ICandleFetcher{hl, other}, nil)

	candles, err := m.FetchCandles(context.Background(), models.MSeriesKey{Exchange: "binance", Symbol: "BTC"}, 60, 120)
	require.NoError(t, err)
	require.Len(t, candles, 1)
	assert.Equal(t, "binance", candles[0].Exchange)
	assert.Empty(t, hl.got)
	assert.Len(t, other.got, 1)

	_, err = m.FetchCandles(context.Background(), models.MSeriesKey{Exchange: "kraken"}, 0, 0)
	assert.Error(t, err)
}

func TestAddRemoveSource(t *testing.T) {
	m := NewMultiSourceManager(nil, nil)
	require.NoError(t, m.AddSource(&namedFetcher{name: "hyperliquid"}))
	assert.Error(t, m.AddSource(&namedFetcher{name: "hyperliquid"}))
	assert.Equal(t, []string{"hyperliquid"}, m.SourceNames())

	require.NoError(t, m.RemoveSource("hyperliquid"))
	assert.Error(t, m.RemoveSource("hyperliquid"))
	assert.Empty(t, m.SourceNames())
}
