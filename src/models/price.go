package models

import "time"

const (
	DefaultEnvironment = "mainnet"
	DefaultMarket      = "CRYPTO"
)

// MPriceKey identifies a cached price series.
type MPriceKey struct {
	Symbol      string
	Market      string
	Environment string
}

// MPricePoint is a single observation kept in the history ring.
type MPricePoint struct {
	ObservedAt time.Time `json:"timestamp"`
	Price      float64   `json:"price"`
}

// MCacheStats mirrors the counters exposed on /api/cache/stats.
type MCacheStats struct {
	TotalEntries   int    `json:"total_entries"`
	ValidEntries   int    `json:"valid_entries"`
	TTLSeconds     int    `json:"ttl_seconds"`
	HistoryEntries int    `json:"history_entries"`
	HistorySeconds int    `json:"history_seconds"`
	Hits           uint64 `json:"hits"`
	Misses         uint64 `json:"misses"`
}

// MPriceSummary condenses a history window.
type MPriceSummary struct {
	Points        int     `json:"points"`
	Open          float64 `json:"open"`
	High          float64 `json:"high"`
	Low           float64 `json:"low"`
	Close         float64 `json:"close"`
	Mean          float64 `json:"mean"`
	StdDev        float64 `json:"std_dev"`
	ChangePercent float64 `json:"change_percent"`
	ZScore        float64 `json:"z_score"`
}
