package snapshot

import (
	"context"
	"strconv"
	"strings"

	"market-stream/src/models"
)

// BroadcastAssetCurveUpdate pushes fresh curves for timeframe to everyone.
func (c *Composer) BroadcastAssetCurveUpdate(ctx context.Context, timeframe string) {
	if !c.Publisher.HasConnections() {
		return
	}
	curves, err := c.AssetCurve(ctx, timeframe, models.TradingModeTestnet, nil)
	if err != nil {
		c.Logger.Error("Failed to broadcast asset curve update: %v", err)
		return
	}
	c.Publisher.BroadcastToAll(models.MAssetCurveUpdate{
		Type:      models.MsgAssetCurveUpdate,
		Timeframe: timeframe,
		Data:      curves,
	})
}

// BroadcastArenaAssetUpdate forwards an aggregated arena payload as-is,
// tagged with its message type.
func (c *Composer) BroadcastArenaAssetUpdate(payload map[string]interface{}) {
	msg := make(map[string]interface{}, len(payload)+1)
	for k, v := range payload {
		msg[k] = v
	}
	msg["type"] = models.MsgArenaAssetUpdate
	c.Publisher.BroadcastToAll(msg)
}

// BroadcastTradeUpdate routes a trade to its account; the payload must carry
// account_id.
func (c *Composer) BroadcastTradeUpdate(trade map[string]interface{}) {
	accountID, ok := AccountIDOf(trade)
	if !ok {
		c.Logger.Warning("Trade update without account_id dropped")
		return
	}
	env, _ := trade["environment"].(string)
	c.invalidateExchange(accountID, env)
	c.Publisher.SendToAccount(accountID, models.MTradeUpdate{Type: models.MsgTradeUpdate, Trade: trade})
}

func (c *Composer) BroadcastPositionUpdate(accountID int64, positions []interface{}) {
	c.invalidateExchange(accountID, "")
	if positions == nil {
		positions = []interface{}{}
	}
	c.Publisher.SendToAccount(accountID, models.MPositionUpdate{Type: models.MsgPositionUpdate, Positions: positions})
}

// BroadcastModelChatUpdate routes an AI decision to its account.
func (c *Composer) BroadcastModelChatUpdate(decision map[string]interface{}) {
	accountID, ok := AccountIDOf(decision)
	if !ok {
		c.Logger.Warning("Model chat update without account_id dropped")
		return
	}
	c.Publisher.SendToAccount(accountID, models.MModelChatUpdate{Type: models.MsgModelChatUpdate, Decision: decision})
}

// -----------------------------------------------------------------------------

// invalidateExchange drops cached exchange state after a fill so the next
// exchange-mode snapshot does not serve pre-trade margin. An unknown
// environment clears both.
func (c *Composer) invalidateExchange(accountID int64, environment string) {
	if c.Exchange == nil {
		return
	}
	switch env := strings.ToLower(environment); env {
	case "testnet", "mainnet":
		c.Exchange.Invalidate(accountID, env)
	default:
		c.Exchange.Invalidate(accountID, "testnet")
		c.Exchange.Invalidate(accountID, "mainnet")
	}
}

// -----------------------------------------------------------------------------

// AccountIDOf reads a positive account_id from a decoded payload.
func AccountIDOf(m map[string]interface{}) (int64, bool) {
	var id int64
	switch v := m["account_id"].(type) {
	case int:
		id = int64(v)
	case int64:
		id = v
	case float64:
		if v != float64(int64(v)) {
			return 0, false
		}
		id = int64(v)
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, false
		}
		id = n
	default:
		return 0, false
	}
	return id, id > 0
}
