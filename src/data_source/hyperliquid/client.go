package hyperliquid

import (
	"context"
	"fmt"
	"strconv"

	"market-stream/src/helpers"
	"market-stream/src/interfaces"
	"market-stream/src/logger"

	"github.com/bytedance/sonic"
)

const (
	ExchangeName = "hyperliquid"

	DefaultMainnetURL = "https://api.hyperliquid.xyz/info"
	DefaultTestnetURL = "https://api.hyperliquid-testnet.xyz/info"
)

// -----------------------------------------------------------------------------
// Client speaks the public info endpoint of both environments.
// -----------------------------------------------------------------------------

type Client struct {
	Network    interfaces.INetworkManager
	MainnetURL string
	TestnetURL string
	Logger     *logger.Logger
}

func NewClient(netMgr interfaces.INetworkManager, mainnetURL, testnetURL string, log *logger.Logger) *Client {
	if mainnetURL == "" {
		mainnetURL = DefaultMainnetURL
	}
	if testnetURL == "" {
		testnetURL = DefaultTestnetURL
	}
	return &Client{Network: netMgr, MainnetURL: mainnetURL, TestnetURL: testnetURL, Logger: log}
}

func (c *Client) endpoint(environment string) string {
	if environment == "testnet" {
		return c.TestnetURL
	}
	return c.MainnetURL
}

// -----------------------------------------------------------------------------

type candleReq struct {
	Coin      string `json:"coin"`
	Interval  string `json:"interval"`
	StartTime int64  `json:"startTime"`
	EndTime   int64  `json:"endTime"`
}

type infoRequest struct {
	Type string     `json:"type"`
	Req  *candleReq `json:"req,omitempty"`
	User string     `json:"user,omitempty"`
}

// RawCandle is one candleSnapshot row; prices arrive as strings, t in ms.
type RawCandle struct {
	OpenTime  int64  `json:"t"`
	CloseTime int64  `json:"T"`
	Symbol    string `json:"s"`
	Interval  string `json:"i"`
	Open      string `json:"o"`
	Close     string `json:"c"`
	High      string `json:"h"`
	Low       string `json:"l"`
	Volume    string `json:"v"`
	Trades    int64  `json:"n"`
}

type rawLeverage struct {
	Type  string  `json:"type"`
	Value float64 `json:"value"`
}

type rawPosition struct {
	Coin          string      `json:"coin"`
	Size          string      `json:"szi"`
	EntryPx       string      `json:"entryPx"`
	PositionValue string      `json:"positionValue"`
	UnrealizedPnl string      `json:"unrealizedPnl"`
	Leverage      rawLeverage `json:"leverage"`
}

// ClearinghouseState is the subset of the user state response we read.
type ClearinghouseState struct {
	AssetPositions []struct {
		Position rawPosition `json:"position"`
	} `json:"assetPositions"`
	MarginSummary struct {
		AccountValue    string `json:"accountValue"`
		TotalMarginUsed string `json:"totalMarginUsed"`
	} `json:"marginSummary"`
	Withdrawable string `json:"withdrawable"`
}

// -----------------------------------------------------------------------------

func (c *Client) info(ctx context.Context, environment string, req infoRequest, out interface{}) error {
	body, err := sonic.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", req.Type, err)
	}

	resp, err := c.Network.PostJSON(ctx, c.endpoint(environment), body)
	if err != nil {
		return err
	}

	if err := sonic.Unmarshal(resp, out); err != nil {
		return helpers.NewDataSourceError(fmt.Sprintf("decode %s response (%s)", req.Type, environment), err)
	}
	return nil
}

// AllMids returns the mid price of every listed coin.
func (c *Client) AllMids(ctx context.Context, environment string) (map[string]float64, error) {
	var raw map[string]string
	if err := c.info(ctx, environment, infoRequest{Type: "allMids"}, &raw); err != nil {
		return nil, err
	}

	mids := make(map[string]float64, len(raw))
	for coin, px := range raw {
		v, err := strconv.ParseFloat(px, 64)
		if err != nil {
			c.Logger.Debug("Skipping unparsable mid %s=%q", coin, px)
			continue
		}
		mids[coin] = v
	}
	return mids, nil
}

// CandleSnapshot fetches candles with open time in [startMs, endMs].
func (c *Client) CandleSnapshot(ctx context.Context, environment, coin, interval string, startMs, endMs int64) ([]RawCandle, error) {
	req := infoRequest{
		Type: "candleSnapshot",
		Req:  &candleReq{Coin: coin, Interval: interval, StartTime: startMs, EndTime: endMs},
	}
	var rows []RawCandle
	if err := c.info(ctx, environment, req, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// ClearinghouseState fetches margin summary and positions for a wallet.
func (c *Client) ClearinghouseState(ctx context.Context, environment, user string) (*ClearinghouseState, error) {
	var st ClearinghouseState
	if err := c.info(ctx, environment, infoRequest{Type: "clearinghouseState", User: user}, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// -----------------------------------------------------------------------------

// num parses an exchange decimal string; blanks and garbage read as zero.
func num(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
