package hyperliquid

import (
	"context"
	"fmt"
	"strings"

	"market-stream/src/helpers"
)

// PriceSource answers last-price lookups from allMids.
type PriceSource struct {
	Client *Client
}

func NewPriceSource(c *Client) *PriceSource {
	return &PriceSource{Client: c}
}

func (p *PriceSource) FetchPrice(ctx context.Context, symbol, market, environment string) (float64, error) {
	mids, err := p.Client.AllMids(ctx, environment)
	if err != nil {
		return 0, err
	}
	px, ok := mids[strings.ToUpper(symbol)]
	if !ok || px <= 0 {
		return 0, fmt.Errorf("%w: %s not listed on %s", helpers.ErrPriceUnavailable, symbol, environment)
	}
	return px, nil
}

// Mids returns every mid for a periodic cache warm-up.
func (p *PriceSource) Mids(ctx context.Context, environment string) (map[string]float64, error) {
	return p.Client.AllMids(ctx, environment)
}
