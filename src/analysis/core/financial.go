package core

import "math"

// OHLC holds the first, extreme and last values of a series.
type OHLC struct {
	Open  float64
	High  float64
	Low   float64
	Close float64
}

// -----------------------------------------------------------------------------

// ComputeOHLC scans prices once. An empty series yields zeros.
func ComputeOHLC(prices []float64) OHLC {
	if len(prices) == 0 {
		return OHLC{}
	}

	out := OHLC{
		Open:  prices[0],
		High:  -math.MaxFloat64,
		Low:   math.MaxFloat64,
		Close: prices[len(prices)-1],
	}
	for _, p := range prices {
		if p > out.High {
			out.High = p
		}
		if p < out.Low {
			out.Low = p
		}
	}
	return out
}

// -----------------------------------------------------------------------------

// CalculateChangePercent returns the change from previous to current in
// percent, or 0 when previous is 0.
func CalculateChangePercent(current, previous float64) float64 {
	if previous == 0 {
		return 0.0
	}
	return (current - previous) / previous * 100
}
