package models

import "time"

// MSeriesKey is every part of the candle identity except the timestamp.
type MSeriesKey struct {
	Exchange    string `json:"exchange"`
	Symbol      string `json:"symbol"`
	Market      string `json:"market"`
	Period      string `json:"period"`
	Environment string `json:"environment"`
}

// MCandle is one stored kline. (exchange, symbol, market, period, timestamp,
// environment) is unique.
type MCandle struct {
	Exchange    string    `json:"exchange"`
	Symbol      string    `json:"symbol"`
	Market      string    `json:"market"`
	Period      string    `json:"period"`
	Environment string    `json:"environment"`
	Timestamp   int64     `json:"timestamp"`
	DatetimeStr string    `json:"datetime_str"`
	Open        float64   `json:"open"`
	High        float64   `json:"high"`
	Low         float64   `json:"low"`
	Close       float64   `json:"close"`
	Volume      float64   `json:"volume"`
	Amount      *float64  `json:"amount"`
	CreatedAt   time.Time `json:"created_at"`
}

// Key returns the series this candle belongs to.
func (c MCandle) Key() MSeriesKey {
	return MSeriesKey{
		Exchange:    c.Exchange,
		Symbol:      c.Symbol,
		Market:      c.Market,
		Period:      c.Period,
		Environment: c.Environment,
	}
}

// MMissingRange is an inclusive span of candle open times with no stored row.
type MMissingRange struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

// MSaveResult reports how a batch insert resolved against existing rows.
type MSaveResult struct {
	Inserted int `json:"inserted"`
	Skipped  int `json:"skipped"`
}

// MBackfillReport summarizes one reconciliation pass.
type MBackfillReport struct {
	Missing  []MMissingRange `json:"missing"`
	Fetched  int             `json:"fetched"`
	Inserted int             `json:"inserted"`
	Skipped  int             `json:"skipped"`
	Failed   []MMissingRange `json:"failed"`
}
