package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"market-stream/src/helpers"
	"market-stream/src/interfaces"
	"market-stream/src/logger"
	"market-stream/src/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	SideBuy  = "BUY"
	SideSell = "SELL"

	OrderTypeMarket = "MARKET"
	OrderTypeLimit  = "LIMIT"

	OrderStatusPending = "PENDING"
)

// -----------------------------------------------------------------------------
// OrderService records pending paper orders. Buys freeze the estimated cost;
// sells require enough available quantity. Matching happens elsewhere.
// -----------------------------------------------------------------------------

type OrderService struct {
	Repo   *TradingRepository
	Prices interfaces.IPriceLookup
	Logger *logger.Logger
}

func NewOrderService(repo *TradingRepository, prices interfaces.IPriceLookup, log *logger.Logger) *OrderService {
	return &OrderService{Repo: repo, Prices: prices, Logger: log}
}

// -----------------------------------------------------------------------------

func (s *OrderService) CreateOrder(ctx context.Context, account *models.MAccount, req models.MOrderRequest) (*models.MOrder, error) {
	req, err := NormalizeOrderRequest(req)
	if err != nil {
		return nil, err
	}

	price, err := s.referencePrice(ctx, req)
	if err != nil {
		return nil, err
	}

	order := &models.MOrder{
		OrderNo:        NewOrderNo(),
		AccountID:      account.ID,
		Symbol:         req.Symbol,
		Name:           req.Name,
		Market:         req.Market,
		Side:           req.Side,
		OrderType:      req.OrderType,
		Quantity:       req.Quantity,
		FilledQuantity: decimal.Zero,
		Status:         OrderStatusPending,
	}
	if req.Price != nil {
		order.Price = decimal.NewNullDecimal(*req.Price)
	}

	err = s.Repo.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		switch req.Side {
		case SideBuy:
			if err := freezeCash(tx, account.ID, price.Mul(req.Quantity)); err != nil {
				return err
			}
		case SideSell:
			if err := checkSellable(tx, account.ID, req.Symbol, req.Market, req.Quantity); err != nil {
				return err
			}
		}
		return tx.Create(order).Error
	})
	if err != nil {
		if helpers.IsBusinessRule(err) {
			return nil, err
		}
		return nil, helpers.NewDatabaseError("create order", err)
	}

	s.Logger.Info("Order %s placed: account=%d %s %s %s qty=%s", order.OrderNo, account.ID, req.Side, req.OrderType, req.Symbol, req.Quantity)
	return order, nil
}

// -----------------------------------------------------------------------------

// NormalizeOrderRequest upper-cases enums, fills defaults and rejects requests
// that can never be placed.
func NormalizeOrderRequest(req models.MOrderRequest) (models.MOrderRequest, error) {
	req.Symbol = strings.ToUpper(strings.TrimSpace(req.Symbol))
	req.Side = strings.ToUpper(strings.TrimSpace(req.Side))
	req.OrderType = strings.ToUpper(strings.TrimSpace(req.OrderType))
	if req.Market == "" {
		req.Market = models.DefaultMarket
	}
	if req.Name == "" {
		req.Name = req.Symbol
	}

	if req.Symbol == "" {
		return req, helpers.NewBusinessRuleError("symbol required")
	}
	if req.Side != SideBuy && req.Side != SideSell {
		return req, helpers.NewBusinessRuleError(fmt.Sprintf("invalid side %q", req.Side))
	}
	if req.OrderType != OrderTypeMarket && req.OrderType != OrderTypeLimit {
		return req, helpers.NewBusinessRuleError(fmt.Sprintf("invalid order type %q", req.OrderType))
	}
	if !req.Quantity.IsPositive() {
		return req, helpers.NewBusinessRuleError("quantity must be positive")
	}
	if req.OrderType == OrderTypeLimit && (req.Price == nil || !req.Price.IsPositive()) {
		return req, helpers.NewBusinessRuleError("limit orders require a positive price")
	}
	return req, nil
}

// NewOrderNo returns a unique, sortable-enough order number.
func NewOrderNo() string {
	return "ORD" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:16])
}

// -----------------------------------------------------------------------------

func (s *OrderService) referencePrice(ctx context.Context, req models.MOrderRequest) (decimal.Decimal, error) {
	if req.Price != nil && req.Price.IsPositive() {
		return *req.Price, nil
	}
	if s.Prices == nil {
		return decimal.Zero, helpers.NewBusinessRuleError("market price unavailable for " + req.Symbol)
	}
	p, err := s.Prices.GetLastPrice(ctx, req.Symbol, req.Market, models.DefaultEnvironment)
	if err != nil {
		if errors.Is(err, helpers.ErrPriceUnavailable) {
			return decimal.Zero, helpers.NewBusinessRuleError("market price unavailable for " + req.Symbol)
		}
		return decimal.Zero, err
	}
	return decimal.NewFromFloat(p), nil
}

func freezeCash(tx *gorm.DB, accountID int64, cost decimal.Decimal) error {
	var account models.MAccount
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", accountID).
		First(&account).Error
	if err != nil {
		return err
	}

	available := account.CurrentCash.Sub(account.FrozenCash)
	if available.LessThan(cost) {
		return helpers.NewBusinessRuleError(fmt.Sprintf("insufficient cash: need %s, available %s",
			cost.StringFixed(2), available.StringFixed(2)))
	}

	return tx.Model(&models.MAccount{}).
		Where("id = ?", accountID).
		Update("frozen_cash", account.FrozenCash.Add(cost)).Error
}

func checkSellable(tx *gorm.DB, accountID int64, symbol, market string, qty decimal.Decimal) error {
	var pos models.MPosition
	err := tx.Where("account_id = ? AND symbol = ? AND market = ?", accountID, symbol, market).First(&pos).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return helpers.NewBusinessRuleError("no position in " + symbol)
	}
	if err != nil {
		return err
	}
	if pos.AvailableQuantity.LessThan(qty) {
		return helpers.NewBusinessRuleError(fmt.Sprintf("insufficient position: have %s, selling %s", pos.AvailableQuantity, qty))
	}
	return nil
}
