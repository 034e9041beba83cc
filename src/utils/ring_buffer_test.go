package utils

import (
	"testing"
	"time"

	"market-stream/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func point(sec int64, price float64) models.MPricePoint {
	return models.MPricePoint{ObservedAt: time.Unix(sec, 0), Price: price}
}

func TestPriceRingGrowsAndKeepsOrder(t *testing.T) {
	rb := NewPriceRing(1)
	require.Equal(t, minRingCapacity, len(rb.data))

	for i := int64(0); i < 40; i++ {
		rb.Append(point(i, float64(i)))
	}

	all := rb.GetAll()
	require.Len(t, all, 40)
	for i, p := range all {
		assert.Equal(t, float64(i), p.Price)
	}
	assert.GreaterOrEqual(t, len(rb.data), 40)
}

func TestPriceRingTrimAcrossWrap(t *testing.T) {
	rb := NewPriceRing(16)
	for i := int64(0); i < 16; i++ {
		rb.Append(point(i, float64(i)))
	}
	removed := rb.DropThrough(time.Unix(9, 0))
	assert.Equal(t, 10, removed)

	// wrap the write index past the end of the backing array
	for i := int64(16); i < 24; i++ {
		rb.Append(point(i, float64(i)))
	}
	assert.Equal(t, 16, len(rb.data))

	all := rb.GetAll()
	require.Len(t, all, 14)
	assert.Equal(t, 10.0, all[0].Price)
	assert.Equal(t, 23.0, all[len(all)-1].Price)
}

func TestPriceRingTrimEverything(t *testing.T) {
	rb := NewPriceRing(16)
	rb.Append(point(1, 1))
	rb.Append(point(2, 2))

	assert.Equal(t, 2, rb.DropThrough(time.Unix(100, 0)))
	assert.Equal(t, 0, rb.Size())
	assert.Empty(t, rb.GetAll())
}
