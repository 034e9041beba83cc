package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"market-stream/src/analysis"
	"market-stream/src/backfill"
	"market-stream/src/logger"
	"market-stream/src/metrics"
	"market-stream/src/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	defaultKlineCount = 100
	// maxKlineCount bounds one /api/klines request, matching the upstream
	// candleSnapshot page size.
	maxKlineCount = 5000
)

// IPriceHistory is the price cache surface the REST routes read.
type IPriceHistory interface {
	History(symbol, market, environment string) []models.MPricePoint
	Stats() models.MCacheStats
}

// IKlineHistory returns a backfilled candle range.
type IKlineHistory interface {
	EnsureHistory(ctx context.Context, key models.MSeriesKey, start, end int64) ([]models.MCandle, error)
}

// -----------------------------------------------------------------------------
// FastAPIServer
// -----------------------------------------------------------------------------

type FastAPIServer struct {
	Config *models.MConfig
	Logger *logger.Logger
	engine *gin.Engine
	http   *http.Server

	Deps     *Dependencies
	Stream   metrics.IStreamStats
	Prices   IPriceHistory
	Klines   IKlineHistory
	Metrics  *metrics.Metrics
	upgrader websocket.Upgrader

	// ctx bounds every connection's command handling.
	ctx context.Context
}

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

func NewFastAPIServer(
	ctx context.Context,
	cfg *models.MConfig,
	deps *Dependencies,
	stream metrics.IStreamStats,
	prices IPriceHistory,
	klines IKlineHistory,
	m *metrics.Metrics,
	logger *logger.Logger,
) *FastAPIServer {
	// Set Gin mode
	if cfg.LogLevel != "DEBUG" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &FastAPIServer{
		Config:  cfg,
		Logger:  logger,
		engine:  gin.New(),
		Deps:    deps,
		Stream:  stream,
		Prices:  prices,
		Klines:  klines,
		Metrics: m,
		ctx:     ctx,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
	s.engine.Use(gin.Recovery())

	// Add CORS Middleware
	s.engine.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if strings.HasPrefix(origin, "http://127.0.0.1:") || strings.HasPrefix(origin, "http://localhost:") {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// setup web routes
	s.setupRoutes()
	return s
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *FastAPIServer) setupRoutes() {
	// REST API endpoints
	s.engine.GET("/api/health", s.getHealth)
	s.engine.GET("/api/cache/stats", s.getCacheStats)
	s.engine.GET("/api/prices/history", s.getPriceHistory)
	s.engine.GET("/api/klines", s.getKlines)

	if s.Metrics != nil {
		s.engine.GET("/metrics", gin.WrapH(s.Metrics.Handler()))
	}

	// WebSocket endpoint
	s.engine.GET("/ws", s.handleWebSocket)
}

// Handler exposes the router, mainly for tests.
func (s *FastAPIServer) Handler() http.Handler {
	return s.engine
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

func (s *FastAPIServer) Start() error {
	addr := fmt.Sprintf("%s:%d", s.Config.Host, s.Config.Port)
	s.Logger.Info("Starting server on %s", addr)

	s.http = &http.Server{Addr: addr, Handler: s.engine}
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) Stop(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

// -----------------------------------------------------------------------------
// Route Handlers
// -----------------------------------------------------------------------------

func (s *FastAPIServer) getHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"connections": s.Stream.ConnectionCount(),
		"accounts":    s.Stream.AccountCount(),
		"timestamp":   time.Now().UTC().Unix(),
	})
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) getCacheStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.Prices.Stats())
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) getPriceHistory(c *gin.Context) {
	symbol := strings.ToUpper(strings.TrimSpace(c.Query("symbol")))
	if symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol required"})
		return
	}
	market := c.DefaultQuery("market", models.DefaultMarket)
	env := c.DefaultQuery("environment", models.DefaultEnvironment)

	points := s.Prices.History(symbol, market, env)
	c.JSON(http.StatusOK, gin.H{
		"symbol":      symbol,
		"market":      market,
		"environment": env,
		"history":     points,
		"summary":     analysis.Summarize(points),
	})
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) getKlines(c *gin.Context) {
	key := models.MSeriesKey{
		Exchange:    c.DefaultQuery("exchange", s.Config.Kline.Exchange),
		Symbol:      strings.ToUpper(strings.TrimSpace(c.Query("symbol"))),
		Market:      c.DefaultQuery("market", models.DefaultMarket),
		Period:      c.DefaultQuery("period", "1m"),
		Environment: c.DefaultQuery("environment", models.DefaultEnvironment),
	}
	if key.Symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol required"})
		return
	}
	step, ok := backfill.PeriodSeconds(key.Period)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unsupported period %q", key.Period)})
		return
	}

	end, err := queryInt64(c, "end", time.Now().UTC().Unix()/step*step)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "end must be a unix timestamp"})
		return
	}
	start, err := queryInt64(c, "start", end-step*(defaultKlineCount-1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start must be a unix timestamp"})
		return
	}
	if start > end {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start must not be after end"})
		return
	}
	if (end-start)/step+1 > maxKlineCount {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("range exceeds %d candles", maxKlineCount)})
		return
	}

	candles, err := s.Klines.EnsureHistory(c.Request.Context(), key, start, end)
	if err != nil {
		s.Logger.Error("Kline query %s %s failed: %v", key.Symbol, key.Period, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load klines"})
		return
	}
	if candles == nil {
		candles = []models.MCandle{}
	}
	c.JSON(http.StatusOK, gin.H{"count": len(candles), "data": candles})
}

func queryInt64(c *gin.Context, name string, def int64) (int64, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	return strconv.ParseInt(raw, 10, 64)
}

// -----------------------------------------------------------------------------
// WebSocket Handler
// -----------------------------------------------------------------------------

func (s *FastAPIServer) handleWebSocket(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Info("Failed to upgrade websocket: %v", err)
		return
	}

	client := newClient(s, conn, s.Config.Stream.SendQueueSize)
	session := NewSession(s.Deps, client)
	s.Logger.Info("Client %s connected from %s", client.ID(), c.ClientIP())

	// Start goroutines for reading/writing
	go client.writePump()
	go client.readPump(s.ctx, session)
}
