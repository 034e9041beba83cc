package core

import "math"

// -----------------------------------------------------------------------------

// CalculateMeanStd returns the mean and population standard deviation in a
// single pass (Welford).
func CalculateMeanStd(data []float64) (float64, float64) {
	var mean, m2 float64
	for i, v := range data {
		delta := v - mean
		mean += delta / float64(i+1)
		m2 += delta * (v - mean)
	}
	if len(data) < 2 {
		return mean, 0
	}
	return mean, math.Sqrt(m2 / float64(len(data)))
}

// -----------------------------------------------------------------------------

// CalculateZScore calculates Z-Score (Standard Score).
func CalculateZScore(value, mean, std float64) float64 {
	if std == 0 {
		return 0.0
	}
	return (value - mean) / std
}
