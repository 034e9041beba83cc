package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Rows owned by the trading database. The stream engine reads them and only
// writes users, accounts and pending orders.

type MUser struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"uniqueIndex;size:100;not null" json:"username"`
	CreatedAt time.Time `json:"-"`
}

func (MUser) TableName() string { return "users" }

type MAccount struct {
	ID             int64           `gorm:"primaryKey"`
	UserID         int64           `gorm:"index;not null"`
	Name           string          `gorm:"size:100;not null"`
	AccountType    string          `gorm:"size:20;not null;default:AI"`
	InitialCapital decimal.Decimal `gorm:"type:numeric(18,6);not null"`
	CurrentCash    decimal.Decimal `gorm:"type:numeric(18,6);not null"`
	FrozenCash     decimal.Decimal `gorm:"type:numeric(18,6);not null"`
	IsActive       bool            `gorm:"not null;default:true"`
	CreatedAt      time.Time
}

func (MAccount) TableName() string { return "accounts" }

type MPosition struct {
	ID                int64           `gorm:"primaryKey"`
	AccountID         int64           `gorm:"index;not null"`
	Symbol            string          `gorm:"size:32;not null"`
	Name              string          `gorm:"size:100"`
	Market            string          `gorm:"size:16;not null"`
	Quantity          decimal.Decimal `gorm:"type:numeric(24,8);not null"`
	AvailableQuantity decimal.Decimal `gorm:"type:numeric(24,8);not null"`
	AvgCost           decimal.Decimal `gorm:"type:numeric(18,6);not null"`
}

func (MPosition) TableName() string { return "positions" }

type MOrder struct {
	ID             int64               `gorm:"primaryKey"`
	OrderNo        string              `gorm:"uniqueIndex;size:40;not null"`
	AccountID      int64               `gorm:"index;not null"`
	Symbol         string              `gorm:"size:32;not null"`
	Name           string              `gorm:"size:100"`
	Market         string              `gorm:"size:16;not null"`
	Side           string              `gorm:"size:8;not null"`
	OrderType      string              `gorm:"size:16;not null"`
	Price          decimal.NullDecimal `gorm:"type:numeric(18,6)"`
	Quantity       decimal.Decimal     `gorm:"type:numeric(24,8);not null"`
	FilledQuantity decimal.Decimal     `gorm:"type:numeric(24,8);not null"`
	Status         string              `gorm:"size:16;not null"`
	Environment    *string             `gorm:"column:hyperliquid_environment;size:16"`
	CreatedAt      time.Time
}

func (MOrder) TableName() string { return "orders" }

type MTrade struct {
	ID          int64           `gorm:"primaryKey"`
	OrderID     int64           `gorm:"index"`
	AccountID   int64           `gorm:"index;not null"`
	Symbol      string          `gorm:"size:32;not null"`
	Name        string          `gorm:"size:100"`
	Market      string          `gorm:"size:16;not null"`
	Side        string          `gorm:"size:8;not null"`
	Price       decimal.Decimal `gorm:"type:numeric(18,6);not null"`
	Quantity    decimal.Decimal `gorm:"type:numeric(24,8);not null"`
	Commission  decimal.Decimal `gorm:"type:numeric(18,6);not null"`
	TradeTime   time.Time       `gorm:"index"`
	Environment *string         `gorm:"column:hyperliquid_environment;size:16"`
}

func (MTrade) TableName() string { return "trades" }

type MAIDecision struct {
	ID            int64           `gorm:"primaryKey"`
	AccountID     int64           `gorm:"index;not null"`
	DecisionTime  time.Time       `gorm:"index"`
	Reason        string          `gorm:"type:text"`
	Operation     string          `gorm:"size:16"`
	Symbol        string          `gorm:"size:32"`
	PrevPortion   decimal.Decimal `gorm:"type:numeric(10,6)"`
	TargetPortion decimal.Decimal `gorm:"type:numeric(10,6)"`
	TotalBalance  decimal.Decimal `gorm:"type:numeric(18,6)"`
	Executed      bool
	OrderID       *int64
	Environment   *string `gorm:"column:hyperliquid_environment;size:16"`
}

func (MAIDecision) TableName() string { return "ai_decision_logs" }

// MWallet binds an account to an exchange wallet per environment.
type MWallet struct {
	ID            int64  `gorm:"primaryKey"`
	AccountID     int64  `gorm:"index;not null"`
	Environment   string `gorm:"size:16;not null"`
	WalletAddress string `gorm:"size:64;not null"`
}

func (MWallet) TableName() string { return "hyperliquid_wallets" }

// MAssetSnapshot is one periodic total-assets sample used for curves.
type MAssetSnapshot struct {
	ID           int64           `gorm:"primaryKey"`
	AccountID    int64           `gorm:"index;not null"`
	TotalAssets  decimal.Decimal `gorm:"type:numeric(18,6);not null"`
	TradingMode  string          `gorm:"size:16;not null"`
	Environment  *string         `gorm:"size:16"`
	SnapshotTime time.Time       `gorm:"index"`
}

func (MAssetSnapshot) TableName() string { return "account_asset_snapshots" }

// MOrderRequest is a validated place_order command.
type MOrderRequest struct {
	Symbol    string
	Name      string
	Market    string
	Side      string
	OrderType string
	Price     *decimal.Decimal
	Quantity  decimal.Decimal
}

// MExchangeAccountState is the margin summary reported by the exchange.
type MExchangeAccountState struct {
	TotalEquity        float64
	AvailableBalance   float64
	UsedMargin         float64
	MarginUsagePercent float64
	WalletAddress      string
}

// MExchangePosition is one open perp position on the exchange.
type MExchangePosition struct {
	Coin          string
	Size          float64
	EntryPrice    float64
	PositionValue float64
	UnrealizedPnl float64
	Leverage      float64
}

// MExchangeSnapshot bundles state and positions with where they came from.
type MExchangeSnapshot struct {
	State     MExchangeAccountState
	Positions []MExchangePosition
	Source    string // cache | live
}
