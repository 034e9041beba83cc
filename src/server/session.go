package server

import (
	"context"
	"errors"

	"market-stream/src/helpers"
	"market-stream/src/interfaces"
	"market-stream/src/logger"
	"market-stream/src/metrics"
	"market-stream/src/models"
	"market-stream/src/snapshot"

	"github.com/bytedance/sonic"
	"github.com/shopspring/decimal"
)

const (
	defaultUsername       = "default"
	defaultInitialCapital = 100000
)

var assetCurveTimeframes = []string{"5m", "1h", "1d"}

// ISubscriptions is the registry surface a session binds through.
type ISubscriptions interface {
	Register(accountID int64, ch interfaces.IChannel) error
	Unregister(accountID int64, ch interfaces.IChannel)
	SendToAccount(accountID int64, message interface{})
}

// ISnapshots is the composer surface a session asks for views.
type ISnapshots interface {
	SendSnapshot(ctx context.Context, accountID int64, mode models.TradingMode, detail snapshot.Detail)
	AssetCurve(ctx context.Context, timeframe string, mode models.TradingMode, environment *string) ([]models.MAssetCurve, error)
}

// Dependencies are shared by every session.
type Dependencies struct {
	Subscriptions ISubscriptions
	Snapshots     ISnapshots
	Repo          interfaces.ITradingRepository
	Orders        interfaces.IOrderCreator
	Metrics       *metrics.Metrics
	Logger        *logger.Logger
}

// -----------------------------------------------------------------------------
// Session holds the per-connection binding and dispatches inbound commands.
// Handle is called from one goroutine only, in receipt order.
// -----------------------------------------------------------------------------

type Session struct {
	deps      *Dependencies
	channel   interfaces.IChannel
	accountID int64
	bound     bool
}

func NewSession(deps *Dependencies, ch interfaces.IChannel) *Session {
	return &Session{deps: deps, channel: ch}
}

// AccountID returns the bound account, if any.
func (s *Session) AccountID() (int64, bool) {
	return s.accountID, s.bound
}

// -----------------------------------------------------------------------------

// Handle processes one inbound frame. A non-nil error means a direct reply
// could not be delivered and the connection should be closed.
func (s *Session) Handle(ctx context.Context, raw []byte) error {
	var msg map[string]interface{}
	if err := sonic.Unmarshal(raw, &msg); err != nil || msg == nil {
		s.deps.Logger.Warning("Connection %s sent invalid JSON: %v", s.channel.ID(), err)
		s.deps.Metrics.Command("invalid", "error")
		return s.replyError("Invalid JSON format")
	}

	kind := safeString(msg, "type", "")
	s.deps.Logger.Debug("Connection %s: %s", s.channel.ID(), kind)

	var err error
	switch kind {
	case "bootstrap":
		err = s.bootstrap(ctx, msg)
	case "subscribe":
		err = s.subscribe(ctx, msg)
	case "switch_user":
		err = s.switchUser(ctx, msg)
	case "switch_account":
		err = s.switchAccount(ctx, msg)
	case "get_snapshot":
		err = s.getSnapshot(ctx, msg)
	case "get_asset_curve":
		err = s.getAssetCurve(ctx, msg)
	case "place_order":
		err = s.placeOrder(ctx, msg)
	case "ping":
		err = s.reply(models.MPongMessage{Type: models.MsgPong})
	default:
		kind = "unknown"
		err = s.replyError("unknown message")
	}

	outcome := "ok"
	if err != nil {
		outcome = "closed"
	}
	s.deps.Metrics.Command(kind, outcome)
	return err
}

// Close unbinds the session. It is the terminal step of every connection.
func (s *Session) Close() {
	if s.bound {
		s.deps.Subscriptions.Unregister(s.accountID, s.channel)
		s.bound = false
	}
}

// -----------------------------------------------------------------------------
// Commands
// -----------------------------------------------------------------------------

func (s *Session) bootstrap(ctx context.Context, msg map[string]interface{}) error {
	username := safeString(msg, "username", defaultUsername)
	capital := decimal.NewFromFloat(safeFloat64(msg, "initial_capital", defaultInitialCapital))

	user, account, err := s.userWithAccount(ctx, username, capital)
	if err != nil {
		return s.replyFailure("bootstrap", err)
	}
	if err := s.bind(account.ID); err != nil {
		return s.replyFailure("bootstrap", err)
	}

	s.deps.Logger.Info("Connection %s bootstrapped as %s (account %d, %s)", s.channel.ID(), user.Username, account.ID, safeString(msg, "trading_mode", "paper"))
	s.deps.Subscriptions.SendToAccount(account.ID, models.MBootstrapOK{
		Type:    models.MsgBootstrapOK,
		User:    models.MUserView{ID: user.ID, Username: user.Username},
		Account: snapshot.AccountView(account),
	})
	s.deps.Snapshots.SendSnapshot(ctx, account.ID, models.TradingModePaper, snapshot.DetailFull)
	return nil
}

func (s *Session) subscribe(ctx context.Context, msg map[string]interface{}) error {
	userID, ok := safeInt64(msg, "user_id")
	if !ok {
		return s.replyError("user_id required")
	}

	user, err := s.deps.Repo.GetUser(ctx, userID)
	if err != nil {
		return s.replyFailure("subscribe", err)
	}
	account, err := s.deps.Repo.GetDefaultAccount(ctx, user.ID)
	if err != nil {
		return s.replyFailure("subscribe", err)
	}
	if err := s.bind(account.ID); err != nil {
		return s.replyFailure("subscribe", err)
	}

	s.deps.Subscriptions.SendToAccount(account.ID, models.MBootstrapOK{
		Type:    models.MsgBootstrapOK,
		User:    models.MUserView{ID: user.ID, Username: user.Username},
		Account: snapshot.AccountView(account),
	})
	s.deps.Snapshots.SendSnapshot(ctx, account.ID, models.TradingModePaper, snapshot.DetailFull)
	return nil
}

func (s *Session) switchUser(ctx context.Context, msg map[string]interface{}) error {
	username := safeString(msg, "username", "")
	if username == "" {
		return s.replyError("username required")
	}

	user, account, err := s.userWithAccount(ctx, username, decimal.NewFromInt(defaultInitialCapital))
	if err != nil {
		return s.replyFailure("switch_user", err)
	}
	if err := s.bind(account.ID); err != nil {
		return s.replyFailure("switch_user", err)
	}

	s.deps.Subscriptions.SendToAccount(account.ID, models.MUserSwitched{
		Type: models.MsgUserSwitched,
		User: models.MUserView{ID: user.ID, Username: user.Username},
	})
	s.deps.Snapshots.SendSnapshot(ctx, account.ID, models.TradingModePaper, snapshot.DetailFull)
	return nil
}

func (s *Session) switchAccount(ctx context.Context, msg map[string]interface{}) error {
	accountID, ok := safeInt64(msg, "account_id")
	if !ok || accountID == 0 {
		return s.replyError("account_id required")
	}

	account, err := s.deps.Repo.GetAccount(ctx, accountID)
	if err != nil {
		return s.replyFailure("switch_account", err)
	}
	if err := s.bind(account.ID); err != nil {
		return s.replyFailure("switch_account", err)
	}

	s.deps.Subscriptions.SendToAccount(account.ID, models.MAccountSwitched{
		Type:    models.MsgAccountSwitched,
		Account: models.MAccountRef{ID: account.ID, UserID: account.UserID, Name: account.Name},
	})
	s.deps.Snapshots.SendSnapshot(ctx, account.ID, models.TradingModePaper, snapshot.DetailFull)
	return nil
}

func (s *Session) getSnapshot(ctx context.Context, msg map[string]interface{}) error {
	if !s.bound {
		return s.replyError("no account bound")
	}
	mode, err := models.ParseTradingMode(safeString(msg, "trading_mode", "testnet"))
	if err != nil {
		return s.replyError("invalid trading_mode")
	}
	s.deps.Snapshots.SendSnapshot(ctx, s.accountID, mode, snapshot.DetailFull)
	return nil
}

func (s *Session) getAssetCurve(ctx context.Context, msg map[string]interface{}) error {
	timeframe := safeString(msg, "timeframe", "1h")
	if !contains(assetCurveTimeframes, timeframe) {
		return s.replyError("Invalid timeframe. Must be 5m, 1h, or 1d")
	}

	modeName := safeString(msg, "trading_mode", "testnet")
	mode, err := models.ParseTradingMode(modeName)
	if err != nil {
		return s.replyError("invalid trading_mode")
	}

	var env *string
	if e := safeString(msg, "environment", ""); e != "" {
		env = &e
	}

	curves, err := s.deps.Snapshots.AssetCurve(ctx, timeframe, mode, env)
	if err != nil {
		return s.replyFailure("get_asset_curve", err)
	}
	return s.reply(models.MAssetCurveData{
		Type:        models.MsgAssetCurveData,
		Timeframe:   timeframe,
		TradingMode: mode.String(),
		Environment: env,
		Data:        curves,
	})
}

func (s *Session) placeOrder(ctx context.Context, msg map[string]interface{}) error {
	if !s.bound {
		return s.replyError("not authenticated")
	}

	symbol := safeString(msg, "symbol", "")
	side := safeString(msg, "side", "")
	orderType := safeString(msg, "order_type", "")
	quantity, hasQty, validQty := safeDecimal(msg, "quantity")
	if symbol == "" || side == "" || orderType == "" || !hasQty || (validQty && quantity.IsZero()) {
		return s.replyError("missing required parameters")
	}
	if !validQty {
		return s.replyError("invalid quantity")
	}

	req := models.MOrderRequest{
		Symbol:    symbol,
		Name:      safeString(msg, "name", symbol),
		Market:    safeString(msg, "market", models.DefaultMarket),
		Side:      side,
		OrderType: orderType,
		Quantity:  quantity,
	}
	if price, ok, valid := safeDecimal(msg, "price"); ok {
		if !valid {
			return s.replyError("invalid price")
		}
		req.Price = &price
	}

	account, err := s.deps.Repo.GetAccount(ctx, s.accountID)
	if err != nil {
		return s.replyFailure("place_order", err)
	}

	order, err := s.deps.Orders.CreateOrder(ctx, account, req)
	if err != nil {
		if helpers.IsBusinessRule(err) || helpers.IsValidation(err) {
			return s.replyError(err.Error())
		}
		s.deps.Logger.Error("Order placement for account %d failed: %+v", s.accountID, err)
		return s.replyError("order placement failed")
	}

	s.deps.Subscriptions.SendToAccount(s.accountID, models.MOrderPending{Type: models.MsgOrderPending, OrderID: order.ID})
	s.deps.Snapshots.SendSnapshot(ctx, s.accountID, models.TradingModePaper, snapshot.DetailFull)
	return nil
}

// -----------------------------------------------------------------------------
// Binding
// -----------------------------------------------------------------------------

func (s *Session) userWithAccount(ctx context.Context, username string, capital decimal.Decimal) (*models.MUser, *models.MAccount, error) {
	user, err := s.deps.Repo.GetOrCreateUser(ctx, username)
	if err != nil {
		return nil, nil, err
	}
	account, err := s.deps.Repo.GetOrCreateDefaultAccount(ctx, user, capital)
	if err != nil {
		return nil, nil, err
	}
	return user, account, nil
}

// bind moves the session to accountID, releasing the previous account
// before registering the new one. When the new registration fails the
// previous account is registered again so the session keeps receiving it.
func (s *Session) bind(accountID int64) error {
	if s.bound && s.accountID == accountID {
		return nil
	}
	previous, hadPrevious := s.accountID, s.bound
	if s.bound {
		s.deps.Subscriptions.Unregister(s.accountID, s.channel)
		s.bound = false
	}
	err := s.deps.Subscriptions.Register(accountID, s.channel)
	if err == nil {
		s.accountID, s.bound = accountID, true
		return nil
	}
	if hadPrevious {
		if rerr := s.deps.Subscriptions.Register(previous, s.channel); rerr != nil {
			s.deps.Logger.Error("Client %s lost its binding to account %d: %v", s.channel.ID(), previous, rerr)
		} else {
			s.bound = true
		}
	}
	return err
}

// -----------------------------------------------------------------------------
// Replies
// -----------------------------------------------------------------------------

func (s *Session) reply(message interface{}) error {
	payload, err := sonic.ConfigFastest.Marshal(message)
	if err != nil {
		s.deps.Logger.Error("Encode reply for %s: %v", s.channel.ID(), err)
		return err
	}
	return s.channel.Send(payload)
}

func (s *Session) replyError(message string) error {
	return s.reply(models.NewErrorMessage(message))
}

// replyFailure maps lookup and validation failures to their client message
// and everything else to a generic one.
func (s *Session) replyFailure(command string, err error) error {
	switch {
	case errors.Is(err, helpers.ErrUserNotFound):
		return s.replyError("user not found")
	case errors.Is(err, helpers.ErrAccountNotFound):
		return s.replyError("account not found")
	case helpers.IsValidation(err) || helpers.IsBusinessRule(err):
		return s.replyError(err.Error())
	}
	s.deps.Logger.Error("%s on connection %s failed: %v", command, s.channel.ID(), err)
	return s.replyError("internal error")
}
