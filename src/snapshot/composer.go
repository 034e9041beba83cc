package snapshot

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"market-stream/src/helpers"
	"market-stream/src/interfaces"
	"market-stream/src/logger"
	"market-stream/src/models"

	"github.com/shopspring/decimal"
)

// Detail trades completeness for cost.
type Detail int

const (
	DetailFast Detail = iota
	DetailFull
)

const (
	fullHistoryLimit = 20
	fastHistoryLimit = 10

	curveTimeframe = "1h"
	exchangeMarket = "HYPERLIQUID_PERP"
	timeLayout     = "2006-01-02 15:04:05"
)

// -----------------------------------------------------------------------------
// Composer assembles point-in-time account views and hands them to the
// publisher. It holds no per-account state.
// -----------------------------------------------------------------------------

type Composer struct {
	Repo      interfaces.ITradingRepository
	Prices    interfaces.IPriceLookup
	Exchange  interfaces.IExchangeStateProvider
	Curves    interfaces.IAssetCurveProvider
	Publisher interfaces.IAccountPublisher
	Logger    *logger.Logger

	// DutySeconds is how many seconds at the top of each minute fast
	// snapshots also carry asset curves.
	DutySeconds int

	now func() time.Time
}

func NewComposer(
	repo interfaces.ITradingRepository,
	prices interfaces.IPriceLookup,
	exchange interfaces.IExchangeStateProvider,
	curves interfaces.IAssetCurveProvider,
	publisher interfaces.IAccountPublisher,
	dutySeconds int,
	log *logger.Logger,
) *Composer {
	return &Composer{
		Repo:        repo,
		Prices:      prices,
		Exchange:    exchange,
		Curves:      curves,
		Publisher:   publisher,
		DutySeconds: dutySeconds,
		Logger:      log,
		now:         time.Now,
	}
}

// WithClock replaces the wall clock used for the asset-curve duty cycle.
func (c *Composer) WithClock(now func() time.Time) *Composer {
	c.now = now
	return c
}

// -----------------------------------------------------------------------------

// Compose builds the snapshot for accountID. It returns (nil, nil) when there
// is nothing to send, which is the case for exchange modes without a wallet.
func (c *Composer) Compose(ctx context.Context, accountID int64, mode models.TradingMode, detail Detail) (*models.MSnapshotMessage, error) {
	account, err := c.Repo.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	switch mode {
	case models.TradingModeTestnet, models.TradingModeMainnet:
		return c.composeExchange(ctx, account, mode)
	default:
		return c.composePaper(ctx, account, detail)
	}
}

// SendSnapshot composes and publishes. Failures are logged; an exchange
// outage is reported to the account with a generic message.
func (c *Composer) SendSnapshot(ctx context.Context, accountID int64, mode models.TradingMode, detail Detail) {
	msg, err := c.Compose(ctx, accountID, mode, detail)
	if err != nil {
		switch {
		case errors.Is(err, helpers.ErrAccountNotFound):
			c.Logger.Warning("Snapshot skipped: account %d not found", accountID)
		case isExchangeError(err):
			c.Logger.Error("Exchange snapshot for account %d (%s) failed: %v", accountID, mode, err)
			c.Publisher.SendToAccount(accountID, models.NewErrorMessage("Failed to fetch exchange data"))
		default:
			c.Logger.Error("Snapshot for account %d (%s) failed: %v", accountID, mode, err)
		}
		return
	}
	if msg == nil {
		return
	}
	c.Publisher.SendToAccount(accountID, msg)
}

// RefreshAccount is the periodic per-account job body.
func (c *Composer) RefreshAccount(ctx context.Context, accountID int64) {
	if !c.Publisher.HasConnections() {
		return
	}
	c.SendSnapshot(ctx, accountID, models.TradingModePaper, DetailFast)
}

// AssetCurve serves get_asset_curve requests.
func (c *Composer) AssetCurve(ctx context.Context, timeframe string, mode models.TradingMode, environment *string) ([]models.MAssetCurve, error) {
	curves, err := c.Curves.AllAssetCurves(ctx, timeframe, mode, environment)
	if err != nil {
		return nil, err
	}
	if curves == nil {
		curves = []models.MAssetCurve{}
	}
	return curves, nil
}

// -----------------------------------------------------------------------------
// Paper path
// -----------------------------------------------------------------------------

func (c *Composer) composePaper(ctx context.Context, account *models.MAccount, detail Detail) (*models.MSnapshotMessage, error) {
	limit := fullHistoryLimit
	if detail == DetailFast {
		limit = fastHistoryLimit
	}

	positions, err := c.Repo.ListPositions(ctx, account.ID)
	if err != nil {
		return nil, err
	}
	orders, trades, decisions, err := c.history(ctx, account.ID, "", limit)
	if err != nil {
		return nil, err
	}

	env := models.TradingModePaper.Environment()
	prices, warning := c.lookupPrices(ctx, pricePairs(positions), env)

	views := make([]models.MPositionView, 0, len(positions))
	positionsValue := decimal.Zero
	for _, p := range positions {
		v := models.MPositionView{
			ID:                p.ID,
			AccountID:         p.AccountID,
			Symbol:            p.Symbol,
			Name:              p.Name,
			Market:            p.Market,
			Quantity:          p.Quantity.InexactFloat64(),
			AvailableQuantity: p.AvailableQuantity.InexactFloat64(),
			AvgCost:           p.AvgCost.InexactFloat64(),
		}
		if price, ok := prices[pair{p.Symbol, p.Market}]; ok {
			value := price.Mul(p.Quantity)
			positionsValue = positionsValue.Add(value)
			v.LastPrice = floatPtr(price.InexactFloat64())
			v.MarketValue = floatPtr(value.InexactFloat64())
		}
		views = append(views, v)
	}

	msg := &models.MSnapshotMessage{
		Type:        models.MsgSnapshot,
		TradingMode: models.TradingModePaper.String(),
		Overview: models.MOverview{
			Account:        AccountView(account),
			TotalAssets:    account.CurrentCash.Add(positionsValue).InexactFloat64(),
			PositionsValue: positionsValue.InexactFloat64(),
		},
		Positions:   views,
		Orders:      orders,
		Trades:      trades,
		AIDecisions: decisions,
		Warning:     warning,
	}

	switch {
	case detail == DetailFull:
		msg.AllAssetCurves = c.curves(ctx, models.TradingModePaper, nil)
	case c.inDutyWindow():
		msg.Type = models.MsgSnapshotFull
		msg.AllAssetCurves = c.curves(ctx, models.TradingModePaper, nil)
	default:
		msg.Type = models.MsgSnapshotFast
	}
	return msg, nil
}

func (c *Composer) inDutyWindow() bool {
	return c.DutySeconds > 0 && c.now().Unix()%60 < int64(c.DutySeconds)
}

// -----------------------------------------------------------------------------
// Exchange path (testnet / mainnet)
// -----------------------------------------------------------------------------

type exchangeError struct{ err error }

func (e *exchangeError) Error() string { return e.err.Error() }
func (e *exchangeError) Unwrap() error { return e.err }

func isExchangeError(err error) bool {
	var ee *exchangeError
	return errors.As(err, &ee)
}

func (c *Composer) composeExchange(ctx context.Context, account *models.MAccount, mode models.TradingMode) (*models.MSnapshotMessage, error) {
	env := mode.Environment()

	state, err := c.Exchange.Snapshot(ctx, account.ID, env)
	if errors.Is(err, helpers.ErrNoWallet) {
		c.Logger.Debug("No %s wallet for account %d, snapshot skipped", env, account.ID)
		return nil, nil
	}
	if err != nil {
		return nil, &exchangeError{err}
	}

	orders, trades, decisions, err := c.history(ctx, account.ID, env, fullHistoryLimit)
	if err != nil {
		return nil, err
	}

	pairs := make([]pair, 0, len(state.Positions))
	for _, p := range state.Positions {
		pairs = append(pairs, pair{p.Coin, models.DefaultMarket})
	}
	prices, warning := c.lookupPrices(ctx, pairs, env)

	views := make([]models.MPositionView, 0, len(state.Positions))
	positionsValue := 0.0
	for _, p := range state.Positions {
		side := "SHORT"
		if p.Size > 0 {
			side = "LONG"
		}
		size := math.Abs(p.Size)
		v := models.MPositionView{
			AccountID:         account.ID,
			Symbol:            p.Coin,
			Name:              p.Coin,
			Market:            exchangeMarket,
			Quantity:          size,
			AvailableQuantity: size,
			AvgCost:           p.EntryPrice,
			MarketValue:       floatPtr(p.PositionValue),
			UnrealizedPnl:     floatPtr(p.UnrealizedPnl),
			Leverage:          floatPtr(p.Leverage),
			Side:              &side,
		}
		if price, ok := prices[pair{p.Coin, models.DefaultMarket}]; ok {
			v.LastPrice = floatPtr(price.InexactFloat64())
		}
		positionsValue += math.Abs(p.PositionValue)
		views = append(views, v)
	}

	av := AccountView(account)
	av.AccountType = "hyperliquid_" + env
	av.CurrentCash = state.State.AvailableBalance
	av.FrozenCash = state.State.UsedMargin

	var wallet *string
	if state.State.WalletAddress != "" {
		w := state.State.WalletAddress
		wallet = &w
	}

	return &models.MSnapshotMessage{
		Type:        models.MsgSnapshot,
		TradingMode: mode.String(),
		Overview: models.MOverview{
			Account:        av,
			TotalAssets:    state.State.TotalEquity,
			PositionsValue: positionsValue,
		},
		Positions:      views,
		Orders:         orders,
		Trades:         trades,
		AIDecisions:    decisions,
		AllAssetCurves: c.curves(ctx, mode, &env),
		HyperliquidState: &models.MExchangeStateView{
			Environment:        env,
			TotalEquity:        state.State.TotalEquity,
			AvailableBalance:   state.State.AvailableBalance,
			UsedMargin:         state.State.UsedMargin,
			MarginUsagePercent: state.State.MarginUsagePercent,
			Source:             state.Source,
			WalletAddress:      wallet,
		},
		Warning: warning,
	}, nil
}

// -----------------------------------------------------------------------------
// Shared pieces
// -----------------------------------------------------------------------------

type pair struct {
	symbol string
	market string
}

// pricePairs returns each distinct (symbol, market) once, in first-seen order.
func pricePairs(positions []models.MPosition) []pair {
	seen := make(map[pair]bool, len(positions))
	out := make([]pair, 0, len(positions))
	for _, p := range positions {
		k := pair{p.Symbol, p.Market}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}

// lookupPrices resolves every pair once. Misses are absent from the map and
// the first one becomes the snapshot warning.
func (c *Composer) lookupPrices(ctx context.Context, pairs []pair, environment string) (map[pair]decimal.Decimal, *models.MWarning) {
	prices := make(map[pair]decimal.Decimal, len(pairs))
	var warning *models.MWarning
	seen := make(map[pair]bool, len(pairs))

	for _, k := range pairs {
		if seen[k] {
			continue
		}
		seen[k] = true

		price, err := c.Prices.GetLastPrice(ctx, k.symbol, k.market, environment)
		if err != nil {
			c.Logger.Warning("Price lookup %s/%s (%s) failed: %v", k.symbol, k.market, environment, err)
			if warning == nil {
				warning = &models.MWarning{
					Type:    models.WarningMarketData,
					Message: fmt.Sprintf("market data unavailable for %s", k.symbol),
				}
			}
			continue
		}
		prices[k] = decimal.NewFromFloat(price)
	}
	return prices, warning
}

func (c *Composer) curves(ctx context.Context, mode models.TradingMode, environment *string) []models.MAssetCurve {
	curves, err := c.AssetCurve(ctx, curveTimeframe, mode, environment)
	if err != nil {
		c.Logger.Error("Asset curves (%s) failed: %v", mode, err)
		return nil
	}
	return curves
}

func (c *Composer) history(ctx context.Context, accountID int64, environment string, limit int) ([]models.MOrderView, []models.MTradeView, []models.MAIDecisionView, error) {
	orders, err := c.Repo.ListOrders(ctx, accountID, environment, limit)
	if err != nil {
		return nil, nil, nil, err
	}
	trades, err := c.Repo.ListTrades(ctx, accountID, environment, limit)
	if err != nil {
		return nil, nil, nil, err
	}
	decisions, err := c.Repo.ListAIDecisions(ctx, accountID, environment, limit)
	if err != nil {
		return nil, nil, nil, err
	}

	ov := make([]models.MOrderView, 0, len(orders))
	for _, o := range orders {
		var price *float64
		if o.Price.Valid {
			price = floatPtr(o.Price.Decimal.InexactFloat64())
		}
		ov = append(ov, models.MOrderView{
			ID:             o.ID,
			OrderNo:        o.OrderNo,
			UserID:         o.AccountID,
			Symbol:         o.Symbol,
			Name:           o.Name,
			Market:         o.Market,
			Side:           o.Side,
			OrderType:      o.OrderType,
			Price:          price,
			Quantity:       o.Quantity.InexactFloat64(),
			FilledQuantity: o.FilledQuantity.InexactFloat64(),
			Status:         o.Status,
		})
	}

	tv := make([]models.MTradeView, 0, len(trades))
	for _, t := range trades {
		tv = append(tv, models.MTradeView{
			ID:         t.ID,
			OrderID:    t.OrderID,
			UserID:     t.AccountID,
			Symbol:     t.Symbol,
			Name:       t.Name,
			Market:     t.Market,
			Side:       t.Side,
			Price:      t.Price.InexactFloat64(),
			Quantity:   t.Quantity.InexactFloat64(),
			Commission: t.Commission.InexactFloat64(),
			TradeTime:  t.TradeTime.Format(timeLayout),
		})
	}

	dv := make([]models.MAIDecisionView, 0, len(decisions))
	for _, d := range decisions {
		executed := "false"
		if d.Executed {
			executed = "true"
		}
		dv = append(dv, models.MAIDecisionView{
			ID:            d.ID,
			DecisionTime:  d.DecisionTime.Format(timeLayout),
			Reason:        d.Reason,
			Operation:     d.Operation,
			Symbol:        d.Symbol,
			PrevPortion:   d.PrevPortion.InexactFloat64(),
			TargetPortion: d.TargetPortion.InexactFloat64(),
			TotalBalance:  d.TotalBalance.InexactFloat64(),
			Executed:      executed,
			OrderID:       d.OrderID,
		})
	}

	return ov, tv, dv, nil
}

// AccountView is the account block shared by overviews and confirmations.
func AccountView(a *models.MAccount) models.MAccountView {
	return models.MAccountView{
		ID:             a.ID,
		UserID:         a.UserID,
		Name:           a.Name,
		AccountType:    a.AccountType,
		InitialCapital: a.InitialCapital.InexactFloat64(),
		CurrentCash:    a.CurrentCash.InexactFloat64(),
		FrozenCash:     a.FrozenCash.InexactFloat64(),
	}
}

func floatPtr(f float64) *float64 { return &f }
