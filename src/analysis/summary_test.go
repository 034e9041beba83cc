package analysis

import (
	"testing"
	"time"

	"market-stream/src/models"

	"github.com/stretchr/testify/assert"
)

func TestSummarizeEmpty(t *testing.T) {
	assert.Equal(t, models.MPriceSummary{}, Summarize(nil))
}

func TestSummarize(t *testing.T) {
	base := time.Unix(1_700_000_000, 0)
	var points []models.MPricePoint
	for i, p := range []float64{100, 104, 98, 102, 106} {
		points = append(points, models.MPricePoint{ObservedAt: base.Add(time.Duration(i) * time.Second), Price: p})
	}

	s := Summarize(points)
	assert.Equal(t, 5, s.Points)
	assert.Equal(t, 100.0, s.Open)
	assert.Equal(t, 106.0, s.High)
	assert.Equal(t, 98.0, s.Low)
	assert.Equal(t, 106.0, s.Close)
	assert.InDelta(t, 102.0, s.Mean, 1e-9)
	assert.InDelta(t, 2.828427, s.StdDev, 1e-6)
	assert.InDelta(t, 6.0, s.ChangePercent, 1e-9)
	assert.InDelta(t, 1.414214, s.ZScore, 1e-6)
}

func TestSummarizeSinglePoint(t *testing.T) {
	s := Summarize([]models.MPricePoint{{Price: 42}})
	assert.Equal(t, 1, s.Points)
	assert.Equal(t, 0.0, s.StdDev)
	assert.Equal(t, 0.0, s.ZScore)
	assert.Equal(t, 0.0, s.ChangePercent)
}
