package interfaces

import (
	"context"

	"market-stream/src/models"

	"github.com/shopspring/decimal"
)

// -----------------------------------------------------------------------------
// ITradingRepository is the read side of the accounts database.
// Lookups of missing rows return helpers.ErrUserNotFound / ErrAccountNotFound.
// -----------------------------------------------------------------------------

type ITradingRepository interface {
	GetUser(ctx context.Context, userID int64) (*models.MUser, error)
	GetOrCreateUser(ctx context.Context, username string) (*models.MUser, error)
	GetAccount(ctx context.Context, accountID int64) (*models.MAccount, error)
	GetDefaultAccount(ctx context.Context, userID int64) (*models.MAccount, error)
	GetOrCreateDefaultAccount(ctx context.Context, user *models.MUser, initialCapital decimal.Decimal) (*models.MAccount, error)

	// -----------------------------------------------------------------------------

	ListPositions(ctx context.Context, accountID int64) ([]models.MPosition, error)

	// An empty environment disables the environment filter.
	ListOrders(ctx context.Context, accountID int64, environment string, limit int) ([]models.MOrder, error)
	ListTrades(ctx context.Context, accountID int64, environment string, limit int) ([]models.MTrade, error)
	ListAIDecisions(ctx context.Context, accountID int64, environment string, limit int) ([]models.MAIDecision, error)

	// -----------------------------------------------------------------------------

	// GetWalletAddress returns "" when no wallet is bound.
	GetWalletAddress(ctx context.Context, accountID int64, environment string) (string, error)
}

// -----------------------------------------------------------------------------
// IOrderCreator places orders; rule rejections are helpers.BusinessRuleError.
// -----------------------------------------------------------------------------

type IOrderCreator interface {
	CreateOrder(ctx context.Context, account *models.MAccount, req models.MOrderRequest) (*models.MOrder, error)
}

// -----------------------------------------------------------------------------
// IAssetCurveProvider aggregates total-asset curves across accounts.
// -----------------------------------------------------------------------------

type IAssetCurveProvider interface {
	AllAssetCurves(ctx context.Context, timeframe string, mode models.TradingMode, environment *string) ([]models.MAssetCurve, error)
}
