package models

// -----------------------------------------------------------------------------
// Outbound message types
// -----------------------------------------------------------------------------

const (
	MsgBootstrapOK      = "bootstrap_ok"
	MsgSnapshot         = "snapshot"
	MsgSnapshotFast     = "snapshot_fast"
	MsgSnapshotFull     = "snapshot_full"
	MsgAssetCurveUpdate = "asset_curve_update"
	MsgAssetCurveData   = "asset_curve_data"
	MsgArenaAssetUpdate = "arena_asset_update"
	MsgTradeUpdate      = "trade_update"
	MsgPositionUpdate   = "position_update"
	MsgModelChatUpdate  = "model_chat_update"
	MsgUserSwitched     = "user_switched"
	MsgAccountSwitched  = "account_switched"
	MsgOrderPending     = "order_pending"
	MsgError            = "error"
	MsgPong             = "pong"

	WarningMarketData = "market_data_error"
)

// Every field below is serialized even when empty so clients see a stable
// shape; optional values are pointers and encode as null.

type MAccountView struct {
	ID             int64   `json:"id"`
	UserID         int64   `json:"user_id"`
	Name           string  `json:"name"`
	AccountType    string  `json:"account_type"`
	InitialCapital float64 `json:"initial_capital"`
	CurrentCash    float64 `json:"current_cash"`
	FrozenCash     float64 `json:"frozen_cash"`
}

type MAccountRef struct {
	ID     int64  `json:"id"`
	UserID int64  `json:"user_id"`
	Name   string `json:"name"`
}

type MUserView struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

type MOverview struct {
	Account        MAccountView `json:"account"`
	TotalAssets    float64      `json:"total_assets"`
	PositionsValue float64      `json:"positions_value"`
}

type MPositionView struct {
	ID                int64    `json:"id"`
	AccountID         int64    `json:"account_id"`
	Symbol            string   `json:"symbol"`
	Name              string   `json:"name"`
	Market            string   `json:"market"`
	Quantity          float64  `json:"quantity"`
	AvailableQuantity float64  `json:"available_quantity"`
	AvgCost           float64  `json:"avg_cost"`
	LastPrice         *float64 `json:"last_price"`
	MarketValue       *float64 `json:"market_value"`
	UnrealizedPnl     *float64 `json:"unrealized_pnl"`
	Leverage          *float64 `json:"leverage"`
	Side              *string  `json:"side"`
}

type MOrderView struct {
	ID             int64    `json:"id"`
	OrderNo        string   `json:"order_no"`
	UserID         int64    `json:"user_id"`
	Symbol         string   `json:"symbol"`
	Name           string   `json:"name"`
	Market         string   `json:"market"`
	Side           string   `json:"side"`
	OrderType      string   `json:"order_type"`
	Price          *float64 `json:"price"`
	Quantity       float64  `json:"quantity"`
	FilledQuantity float64  `json:"filled_quantity"`
	Status         string   `json:"status"`
}

type MTradeView struct {
	ID         int64   `json:"id"`
	OrderID    int64   `json:"order_id"`
	UserID     int64   `json:"user_id"`
	Symbol     string  `json:"symbol"`
	Name       string  `json:"name"`
	Market     string  `json:"market"`
	Side       string  `json:"side"`
	Price      float64 `json:"price"`
	Quantity   float64 `json:"quantity"`
	Commission float64 `json:"commission"`
	TradeTime  string  `json:"trade_time"`
}

type MAIDecisionView struct {
	ID            int64   `json:"id"`
	DecisionTime  string  `json:"decision_time"`
	Reason        string  `json:"reason"`
	Operation     string  `json:"operation"`
	Symbol        string  `json:"symbol"`
	PrevPortion   float64 `json:"prev_portion"`
	TargetPortion float64 `json:"target_portion"`
	TotalBalance  float64 `json:"total_balance"`
	Executed      string  `json:"executed"`
	OrderID       *int64  `json:"order_id"`
}

type MAssetCurvePoint struct {
	Timestamp   int64   `json:"timestamp"`
	TotalAssets float64 `json:"total_assets"`
}

type MAssetCurve struct {
	AccountID   int64              `json:"account_id"`
	AccountName string             `json:"account_name"`
	Points      []MAssetCurvePoint `json:"points"`
}

type MWarning struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type MExchangeStateView struct {
	Environment        string  `json:"environment"`
	TotalEquity        float64 `json:"total_equity"`
	AvailableBalance   float64 `json:"available_balance"`
	UsedMargin         float64 `json:"used_margin"`
	MarginUsagePercent float64 `json:"margin_usage_percent"`
	Source             string  `json:"source"`
	WalletAddress      *string `json:"wallet_address"`
}

// MSnapshotMessage covers snapshot, snapshot_fast and snapshot_full.
type MSnapshotMessage struct {
	Type             string              `json:"type"`
	TradingMode      string              `json:"trading_mode"`
	Overview         MOverview           `json:"overview"`
	Positions        []MPositionView     `json:"positions"`
	Orders           []MOrderView        `json:"orders"`
	Trades           []MTradeView        `json:"trades"`
	AIDecisions      []MAIDecisionView   `json:"ai_decisions"`
	AllAssetCurves   []MAssetCurve       `json:"all_asset_curves"`
	HyperliquidState *MExchangeStateView `json:"hyperliquid_state"`
	Warning          *MWarning           `json:"warning"`
}

type MErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func NewErrorMessage(message string) MErrorMessage {
	return MErrorMessage{Type: MsgError, Message: message}
}

type MPongMessage struct {
	Type string `json:"type"`
}

type MBootstrapOK struct {
	Type    string       `json:"type"`
	User    MUserView    `json:"user"`
	Account MAccountView `json:"account"`
}

type MUserSwitched struct {
	Type string    `json:"type"`
	User MUserView `json:"user"`
}

type MAccountSwitched struct {
	Type    string      `json:"type"`
	Account MAccountRef `json:"account"`
}

type MOrderPending struct {
	Type    string `json:"type"`
	OrderID int64  `json:"order_id"`
}

type MAssetCurveData struct {
	Type        string        `json:"type"`
	Timeframe   string        `json:"timeframe"`
	TradingMode string        `json:"trading_mode"`
	Environment *string       `json:"environment"`
	Data        []MAssetCurve `json:"data"`
}

type MAssetCurveUpdate struct {
	Type      string        `json:"type"`
	Timeframe string        `json:"timeframe"`
	Data      []MAssetCurve `json:"data"`
}

type MTradeUpdate struct {
	Type  string                 `json:"type"`
	Trade map[string]interface{} `json:"trade"`
}

type MPositionUpdate struct {
	Type      string        `json:"type"`
	Positions []interface{} `json:"positions"`
}

type MModelChatUpdate struct {
	Type     string                 `json:"type"`
	Decision map[string]interface{} `json:"decision"`
}
