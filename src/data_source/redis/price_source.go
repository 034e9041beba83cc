package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"market-stream/src/helpers"

	"github.com/bytedance/sonic"
	goredis "github.com/redis/go-redis/v9"
)

// latestPrice is what an upstream publisher writes under latest:<env>:<SYMBOL>.
type latestPrice struct {
	Symbol    string  `json:"symbol"`
	Price     float64 `json:"price"`
	Timestamp int64   `json:"timestamp"`
}

// PriceSource reads last prices that another process keeps in redis.
type PriceSource struct {
	client *goredis.Client
	ttl    time.Duration
}

func NewPriceSource(addr, password string, db int, ttl time.Duration) (*PriceSource, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, helpers.NewNetworkError("failed to connect to redis", err)
	}

	return &PriceSource{client: client, ttl: ttl}, nil
}

// -----------------------------------------------------------------------------

func Key(symbol, market, environment string) string {
	return fmt.Sprintf("latest:%s:%s:%s", strings.ToLower(environment), strings.ToUpper(market), strings.ToUpper(symbol))
}

func (s *PriceSource) FetchPrice(ctx context.Context, symbol, market, environment string) (float64, error) {
	data, err := s.client.Get(ctx, Key(symbol, market, environment)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return 0, fmt.Errorf("%w: no redis entry for %s", helpers.ErrPriceUnavailable, symbol)
	}
	if err != nil {
		return 0, helpers.NewNetworkError("redis get "+symbol, err)
	}
	return DecodePrice(data)
}

// SetPrice publishes a price, mostly for local tooling and tests.
func (s *PriceSource) SetPrice(ctx context.Context, symbol, market, environment string, price float64, at time.Time) error {
	data, err := sonic.Marshal(latestPrice{Symbol: strings.ToUpper(symbol), Price: price, Timestamp: at.Unix()})
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, Key(symbol, market, environment), data, s.ttl).Err(); err != nil {
		return helpers.NewNetworkError("redis set "+symbol, err)
	}
	return nil
}

func (s *PriceSource) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *PriceSource) Close() error {
	return s.client.Close()
}

// -----------------------------------------------------------------------------

// DecodePrice accepts either the JSON envelope or a bare number.
func DecodePrice(data []byte) (float64, error) {
	raw := strings.TrimSpace(string(data))
	if v, err := strconv.ParseFloat(raw, 64); err == nil {
		return positive(v)
	}

	var lp latestPrice
	if err := sonic.Unmarshal(data, &lp); err != nil {
		return 0, helpers.NewDataSourceError("decode redis price", err)
	}
	return positive(lp.Price)
}

func positive(v float64) (float64, error) {
	if v <= 0 {
		return 0, fmt.Errorf("%w: non-positive price %v", helpers.ErrPriceUnavailable, v)
	}
	return v, nil
}
