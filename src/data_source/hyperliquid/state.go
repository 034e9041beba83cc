package hyperliquid

import (
	"context"
	"fmt"
	"sync"
	"time"

	"market-stream/src/helpers"
	"market-stream/src/logger"
	"market-stream/src/models"
)

// WalletResolver finds the wallet bound to an account in an environment.
type WalletResolver interface {
	GetWalletAddress(ctx context.Context, accountID int64, environment string) (string, error)
}

type stateKey struct {
	accountID   int64
	environment string
}

type stateEntry struct {
	at   time.Time
	snap models.MExchangeSnapshot
}

// -----------------------------------------------------------------------------
// StateProvider serves exchange account state, reusing a fetched state for
// TTL before asking the exchange again.
// -----------------------------------------------------------------------------

type StateProvider struct {
	Client  *Client
	Wallets WalletResolver
	TTL     time.Duration
	Logger  *logger.Logger

	mu      sync.Mutex
	entries map[stateKey]stateEntry
	now     func() time.Time
}

func NewStateProvider(c *Client, wallets WalletResolver, ttl time.Duration, log *logger.Logger) *StateProvider {
	return &StateProvider{
		Client:  c,
		Wallets: wallets,
		TTL:     ttl,
		Logger:  log,
		entries: make(map[stateKey]stateEntry),
		now:     time.Now,
	}
}

func (p *StateProvider) WithClock(now func() time.Time) *StateProvider {
	p.now = now
	return p
}

// -----------------------------------------------------------------------------

func (p *StateProvider) Snapshot(ctx context.Context, accountID int64, environment string) (*models.MExchangeSnapshot, error) {
	key := stateKey{accountID, environment}

	p.mu.Lock()
	e, ok := p.entries[key]
	p.mu.Unlock()
	if ok && p.now().Sub(e.at) < p.TTL {
		snap := e.snap
		snap.Positions = append([]models.MExchangePosition(nil), e.snap.Positions...)
		snap.Source = "cache"
		return &snap, nil
	}

	wallet, err := p.Wallets.GetWalletAddress(ctx, accountID, environment)
	if err != nil {
		return nil, err
	}
	if wallet == "" {
		return nil, helpers.ErrNoWallet
	}

	st, err := p.Client.ClearinghouseState(ctx, environment, wallet)
	if err != nil {
		return nil, fmt.Errorf("clearinghouse state for account %d (%s): %w", accountID, environment, err)
	}

	snap := ToSnapshot(st, wallet)
	snap.Source = "live"

	p.mu.Lock()
	p.entries[key] = stateEntry{at: p.now(), snap: snap}
	p.mu.Unlock()

	out := snap
	out.Positions = append([]models.MExchangePosition(nil), snap.Positions...)
	return &out, nil
}

// Invalidate forgets the cached state, e.g. after an order fills.
func (p *StateProvider) Invalidate(accountID int64, environment string) {
	p.mu.Lock()
	delete(p.entries, stateKey{accountID, environment})
	p.mu.Unlock()
}

// -----------------------------------------------------------------------------

// ToSnapshot maps a clearinghouse response onto the account state model.
func ToSnapshot(st *ClearinghouseState, wallet string) models.MExchangeSnapshot {
	equity := num(st.MarginSummary.AccountValue)
	used := num(st.MarginSummary.TotalMarginUsed)
	usage := 0.0
	if equity > 0 {
		usage = used / equity * 100
	}

	positions := make([]models.MExchangePosition, 0, len(st.AssetPositions))
	for _, ap := range st.AssetPositions {
		pos := ap.Position
		lev := pos.Leverage.Value
		if lev == 0 {
			lev = 1
		}
		positions = append(positions, models.MExchangePosition{
			Coin:          pos.Coin,
			Size:          num(pos.Size),
			EntryPrice:    num(pos.EntryPx),
			PositionValue: num(pos.PositionValue),
			UnrealizedPnl: num(pos.UnrealizedPnl),
			Leverage:      lev,
		})
	}

	return models.MExchangeSnapshot{
		State: models.MExchangeAccountState{
			TotalEquity:        equity,
			AvailableBalance:   num(st.Withdrawable),
			UsedMargin:         used,
			MarginUsagePercent: usage,
			WalletAddress:      wallet,
		},
		Positions: positions,
	}
}
