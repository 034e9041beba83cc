package analysis

import (
	"market-stream/src/analysis/core"
	"market-stream/src/models"
)

// Summarize condenses a price history window. The z-score places the latest
// price against the window's own distribution.
func Summarize(points []models.MPricePoint) models.MPriceSummary {
	if len(points) == 0 {
		return models.MPriceSummary{}
	}

	prices := make([]float64, len(points))
	for i, p := range points {
		prices[i] = p.Price
	}

	ohlc := core.ComputeOHLC(prices)
	mean, std := core.CalculateMeanStd(prices)

	return models.MPriceSummary{
		Points:        len(prices),
		Open:          ohlc.Open,
		High:          ohlc.High,
		Low:           ohlc.Low,
		Close:         ohlc.Close,
		Mean:          mean,
		StdDev:        std,
		ChangePercent: core.CalculateChangePercent(ohlc.Close, ohlc.Open),
		ZScore:        core.CalculateZScore(ohlc.Close, mean, std),
	}
}
