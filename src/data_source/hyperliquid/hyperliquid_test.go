package hyperliquid

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"market-stream/src/helpers"
	"market-stream/src/logger"
	"market-stream/src/models"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	url string
	req map[string]interface{}
}

// fakeNetwork answers PostJSON from a handler and records every request.
type fakeNetwork struct {
	mu      sync.Mutex
	calls   []call
	handler func(url string, req map[string]interface{}) (string, error)
}

func (f *fakeNetwork) Get(ctx context.Context, url string, params map[string]string) ([]byte, error) {
	return nil, errors.New("unexpected GET")
}

func (f *fakeNetwork) PostJSON(ctx context.Context, url string, body []byte) ([]byte, error) {
	var req map[string]interface{}
	if err := sonic.Unmarshal(body, &req); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.calls = append(f.calls, call{url, req})
	f.mu.Unlock()
	resp, err := f.handler(url, req)
	return []byte(resp), err
}

func newTestClient(net *fakeNetwork) *Client {
	return NewClient(net, "", "", logger.NewLogger(nil, "test"))
}

// -----------------------------------------------------------------------------

func TestAllMidsRoutesByEnvironment(t *testing.T) {
	net := &fakeNetwork{handler: func(url string, req map[string]interface{}) (string, error) {
		return `{"BTC":"65000.5","ETH":"3200","BAD":"n/a"}`, nil
	}}
	c := newTestClient(net)

	mids, err := c.AllMids(context.Background(), "testnet")
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"BTC": 65000.5, "ETH": 3200}, mids)

	_, err = c.AllMids(context.Background(), "mainnet")
	require.NoError(t, err)

	require.Len(t, net.calls, 2)
	assert.Equal(t, DefaultTestnetURL, net.calls[0].url)
	assert.Equal(t, DefaultMainnetURL, net.calls[1].url)
	assert.Equal(t, "allMids", net.calls[0].req["type"])
}

func TestPriceSource(t *testing.T) {
	net := &fakeNetwork{handler: func(string, map[string]interface{}) (string, error) {
		return `{"BTC":"100","ZERO":"0"}`, nil
	}}
	src := NewPriceSource(newTestClient(net))

	px, err := src.FetchPrice(context.Background(), "btc", "CRYPTO", "mainnet")
	require.NoError(t, err)
	assert.Equal(t, 100.0, px)

	_, err = src.FetchPrice(context.Background(), "DOGE", "CRYPTO", "mainnet")
	assert.ErrorIs(t, err, helpers.ErrPriceUnavailable)
	_, err = src.FetchPrice(context.Background(), "ZERO", "CRYPTO", "mainnet")
	assert.ErrorIs(t, err, helpers.ErrPriceUnavailable)
}

func TestDecodeFailureIsDataSourceError(t *testing.T) {
	net := &fakeNetwork{handler: func(string, map[string]interface{}) (string, error) {
		return `<html>`, nil
	}}
	_, err := newTestClient(net).AllMids(context.Background(), "mainnet")
	var dse *helpers.DataSourceError
	assert.ErrorAs(t, err, &dse)
}

// -----------------------------------------------------------------------------

func candleRows(startSec, endSec, step int64) string {
	out := "["
	for ts := startSec; ts <= endSec; ts += step {
		if out != "[" {
			out += ","
		}
		out += fmt.Sprintf(`{"t":%d,"T":%d,"s":"BTC","i":"1m","o":"1","c":"2","h":"3","l":"0.5","v":"10","n":4}`, ts*1000, (ts+step)*1000-1)
	}
	return out + "]"
}

func TestFetchCandlesConvertsAndFilters(t *testing.T) {
	net := &fakeNetwork{handler: func(url string, req map[string]interface{}) (string, error) {
		r := req["req"].(map[string]interface{})
		start := int64(r["startTime"].(float64)) / 1000
		// return one row before the window to check filtering
		return candleRows(start-60, start+120, 60), nil
	}}
	src := NewCandleSource(newTestClient(net))
	key := models.MSeriesKey{Exchange: "hyperliquid", Symbol: "btc", Market: "CRYPTO", Period: "1m", Environment: "testnet"}

	candles, err := src.FetchCandles(context.Background(), key, 600, 720)
	require.NoError(t, err)
	require.Len(t, candles, 3)
	assert.Equal(t, int64(600), candles[0].Timestamp)
	assert.Equal(t, "btc", candles[0].Symbol)
	assert.Equal(t, "testnet", candles[0].Environment)
	assert.Equal(t, 2.0, candles[0].Close)
	assert.Equal(t, "1970-01-01 00:10:00", candles[0].DatetimeStr)

	r := net.calls[0].req["req"].(map[string]interface{})
	assert.Equal(t, "BTC", r["coin"])
	assert.Equal(t, "1m", r["interval"])
	assert.Equal(t, float64(600_000), r["startTime"])
	assert.Equal(t, float64(720_000), r["endTime"])
	assert.Equal(t, DefaultTestnetURL, net.calls[0].url)
}

func TestFetchCandlesPagesLongRanges(t *testing.T) {
	net := &fakeNetwork{handler: func(string, map[string]interface{}) (string, error) { return `[]`, nil }}
	src := NewCandleSource(newTestClient(net))
	key := models.MSeriesKey{Symbol: "ETH", Market: "CRYPTO", Period: "1m", Environment: "mainnet"}

	_, err := src.FetchCandles(context.Background(), key, 0, 60*maxCandlesPerRequest*2+59)
	require.NoError(t, err)
	assert.Len(t, net.calls, 3)
}

// -----------------------------------------------------------------------------

type wallets map[int64]string

func (w wallets) GetWalletAddress(ctx context.Context, id int64, env string) (string, error) {
	return w[id], nil
}

const clearinghouseBody = `{
	"assetPositions": [
		{"position": {"coin": "BTC", "szi": "-0.5", "entryPx": "60000", "positionValue": "30500", "unrealizedPnl": "-500", "leverage": {"type": "cross", "value": 10}}},
		{"position": {"coin": "ETH", "szi": "2", "entryPx": "3000", "positionValue": "6200", "unrealizedPnl": "200", "leverage": {"type": "isolated", "value": 0}}}
	],
	"marginSummary": {"accountValue": "10000", "totalMarginUsed": "2500"},
	"withdrawable": "7500"
}`

func TestStateProviderCachesForTTL(t *testing.T) {
	net := &fakeNetwork{handler: func(string, map[string]interface{}) (string, error) { return clearinghouseBody, nil }}
	now := time.Unix(1_000, 0)
	p := NewStateProvider(newTestClient(net), wallets{1: "0xabc"}, 360*time.Second, logger.NewLogger(nil, "test")).
		WithClock(func() time.Time { return now })

	snap, err := p.Snapshot(context.Background(), 1, "mainnet")
	require.NoError(t, err)
	assert.Equal(t, "live", snap.Source)
	assert.Equal(t, 10000.0, snap.State.TotalEquity)
	assert.Equal(t, 7500.0, snap.State.AvailableBalance)
	assert.Equal(t, 2500.0, snap.State.UsedMargin)
	assert.Equal(t, 25.0, snap.State.MarginUsagePercent)
	assert.Equal(t, "0xabc", snap.State.WalletAddress)
	require.Len(t, snap.Positions, 2)
	assert.Equal(t, -0.5, snap.Positions[0].Size)
	assert.Equal(t, 10.0, snap.Positions[0].Leverage)
	assert.Equal(t, 1.0, snap.Positions[1].Leverage)
	assert.Equal(t, "0xabc", net.calls[0].req["user"])
	assert.Equal(t, "clearinghouseState", net.calls[0].req["type"])

	now = now.Add(359 * time.Second)
	snap, err = p.Snapshot(context.Background(), 1, "mainnet")
	require.NoError(t, err)
	assert.Equal(t, "cache", snap.Source)
	assert.Len(t, net.calls, 1)

	now = now.Add(time.Second)
	snap, err = p.Snapshot(context.Background(), 1, "mainnet")
	require.NoError(t, err)
	assert.Equal(t, "live", snap.Source)
	assert.Len(t, net.calls, 2)

	p.Invalidate(1, "mainnet")
	_, err = p.Snapshot(context.Background(), 1, "mainnet")
	require.NoError(t, err)
	assert.Len(t, net.calls, 3)
}

func TestStateProviderWithoutWallet(t *testing.T) {
	net := &fakeNetwork{handler: func(string, map[string]interface{}) (string, error) { return clearinghouseBody, nil }}
	p := NewStateProvider(newTestClient(net), wallets{}, time.Minute, logger.NewLogger(nil, "test"))

	_, err := p.Snapshot(context.Background(), 5, "testnet")
	assert.ErrorIs(t, err, helpers.ErrNoWallet)
	assert.Empty(t, net.calls)
}

func TestStateProviderUpstreamFailure(t *testing.T) {
	net := &fakeNetwork{handler: func(string, map[string]interface{}) (string, error) {
		return "", helpers.NewNetworkError("status 502", nil)
	}}
	p := NewStateProvider(newTestClient(net), wallets{1: "0xabc"}, time.Minute, logger.NewLogger(nil, "test"))

	_, err := p.Snapshot(context.Background(), 1, "mainnet")
	var ne *helpers.NetworkError
	assert.ErrorAs(t, err, &ne)
}
