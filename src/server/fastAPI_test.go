package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"market-stream/src/logger"
	"market-stream/src/metrics"
	"market-stream/src/models"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func itoa(n int64) string { return strconv.FormatInt(n, 10) }

type streamStats struct{}

func (streamStats) ConnectionCount() int { return 2 }
func (streamStats) AccountCount() int    { return 1 }
func (streamStats) Delivered() uint64    { return 0 }
func (streamStats) Dropped() uint64      { return 0 }

type priceHistory struct{}

func (priceHistory) History(symbol, market, env string) []models.MPricePoint {
	if symbol != "BTC" {
		return []models.MPricePoint{}
	}
	t0 := time.Unix(1700000000, 0).UTC()
	return []models.MPricePoint{
		{ObservedAt: t0, Price: 100},
		{ObservedAt: t0.Add(time.Second), Price: 110},
	}
}

func (priceHistory) Stats() models.MCacheStats {
	return models.MCacheStats{TotalEntries: 3, ValidEntries: 2, TTLSeconds: 30, HistorySeconds: 3600}
}

type klineHistory struct {
	key        models.MSeriesKey
	start, end int64
}

func (k *klineHistory) EnsureHistory(ctx context.Context, key models.MSeriesKey, start, end int64) ([]models.MCandle, error) {
	k.key, k.start, k.end = key, start, end
	return []models.MCandle{{Symbol: key.Symbol, Timestamp: start}}, nil
}

func newTestServer(t *testing.T) (*FastAPIServer, *klineHistory, *harness) {
	t.Helper()
	h := newHarness()
	cfg := &models.MConfig{Kline: models.MKlineConfig{Exchange: "hyperliquid"}}
	klines := &klineHistory{}
	m := metrics.NewMetrics("test")
	h.session.deps.Metrics = m

	srv := NewFastAPIServer(context.Background(), cfg, h.session.deps, streamStats{}, priceHistory{}, klines, m, logger.NewLogger(nil, "test"))
	return srv, klines, h
}

func get(t *testing.T, srv *FastAPIServer, url string) (int, map[string]interface{}) {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))
	var body map[string]interface{}
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec.Code, body
}

func TestHealthAndCacheStats(t *testing.T) {
	srv, _, _ := newTestServer(t)

	code, body := get(t, srv, "/api/health")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, 2.0, body["connections"])

	code, body = get(t, srv, "/api/cache/stats")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, 2.0, body["valid_entries"])
	assert.Equal(t, 30.0, body["ttl_seconds"])
}

func TestPriceHistoryRoute(t *testing.T) {
	srv, _, _ := newTestServer(t)

	code, _ := get(t, srv, "/api/prices/history")
	assert.Equal(t, http.StatusBadRequest, code)

	code, body := get(t, srv, "/api/prices/history?symbol=btc")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "BTC", body["symbol"])
	assert.Equal(t, "mainnet", body["environment"])
	assert.Len(t, body["history"], 2)

	summary := body["summary"].(map[string]interface{})
	assert.Equal(t, 2.0, summary["points"])
	assert.Equal(t, 110.0, summary["close"])
	assert.InDelta(t, 10.0, summary["change_percent"], 1e-9)
}

func TestKlinesRoute(t *testing.T) {
	srv, klines, _ := newTestServer(t)

	code, _ := get(t, srv, "/api/klines?period=1m")
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = get(t, srv, "/api/klines?symbol=BTC&period=1w")
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = get(t, srv, "/api/klines?symbol=BTC&start=600&end=60")
	assert.Equal(t, http.StatusBadRequest, code)

	code, body := get(t, srv, "/api/klines?symbol=eth&period=5m&start=300&end=3000&environment=testnet")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1.0, body["count"])
	assert.Equal(t, models.MSeriesKey{Exchange: "hyperliquid", Symbol: "ETH", Market: "CRYPTO", Period: "5m", Environment: "testnet"}, klines.key)
	assert.Equal(t, int64(300), klines.start)
	assert.Equal(t, int64(3000), klines.end)

	code, _ = get(t, srv, "/api/klines?symbol=BTC&end=6000")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, int64(6000-60*99), klines.start)
}

func TestKlinesRouteRejectsOversizedRange(t *testing.T) {
	srv, klines, _ := newTestServer(t)

	code, body := get(t, srv, "/api/klines?symbol=BTC&period=1m&start=0&end=1700000000")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "range exceeds 5000 candles", body["error"])
	assert.Empty(t, klines.key.Symbol, "nothing reaches the backfill engine")

	// exactly maxKlineCount candles is allowed
	code, _ = get(t, srv, "/api/klines?symbol=BTC&period=1m&start=0&end="+itoa(60*(maxKlineCount-1)))
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, int64(60*(maxKlineCount-1)), klines.end)
}

func TestMetricsRoute(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestWebSocketRoundTrip(t *testing.T) {
	srv, _, h := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)))
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"pong"}`, string(payload))

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"bootstrap","username":"ws"}`)))
	require.Eventually(t, func() bool {
		return h.snaps.count() == 1
	}, 5*time.Second, 10*time.Millisecond)
}
