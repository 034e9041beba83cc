package utils

import (
	"time"

	"market-stream/src/models"
)

// -----------------------------------------------------------------------------
// PriceRing is a circular buffer of price observations ordered by insertion.
// It is bounded by a time window rather than a count: callers trim from the
// oldest end, and the backing array doubles when a write finds it full.
// Not safe for concurrent use; the owning cache serializes access.
// -----------------------------------------------------------------------------

type PriceRing struct {
	data []models.MPricePoint
	head int // Oldest element
	size int // Current number of elements
}

const minRingCapacity = 16

// -----------------------------------------------------------------------------

// NewPriceRing creates an empty ring with the given starting capacity
func NewPriceRing(capacity int) *PriceRing {
	if capacity < minRingCapacity {
		capacity = minRingCapacity
	}
	return &PriceRing{data: make([]models.MPricePoint, capacity)}
}

// -----------------------------------------------------------------------------

// Append adds an observation at the newest end
func (rb *PriceRing) Append(point models.MPricePoint) {
	if rb.size == len(rb.data) {
		rb.grow()
	}
	idx := (rb.head + rb.size) % len(rb.data)
	rb.data[idx] = point
	rb.size++
}

// -----------------------------------------------------------------------------

func (rb *PriceRing) grow() {
	newData := make([]models.MPricePoint, len(rb.data)*2)
	for i := 0; i < rb.size; i++ {
		newData[i] = rb.data[(rb.head+i)%len(rb.data)]
	}
	rb.data = newData
	rb.head = 0
}

// -----------------------------------------------------------------------------

// DropThrough removes observations at or before cutoff from the oldest end
// and returns how many were removed. Observations recorded out of order stay
// until everything in front of them has aged out.
func (rb *PriceRing) DropThrough(cutoff time.Time) int {
	removed := 0
	for rb.size > 0 && !rb.data[rb.head].ObservedAt.After(cutoff) {
		rb.data[rb.head] = models.MPricePoint{}
		rb.head = (rb.head + 1) % len(rb.data)
		rb.size--
		removed++
	}
	if rb.size == 0 {
		rb.head = 0
	}
	return removed
}

// -----------------------------------------------------------------------------

// GetAll returns a copy of all observations, oldest first
func (rb *PriceRing) GetAll() []models.MPricePoint {
	result := make([]models.MPricePoint, rb.size)
	for i := 0; i < rb.size; i++ {
		result[i] = rb.data[(rb.head+i)%len(rb.data)]
	}
	return result
}

// -----------------------------------------------------------------------------

// Size returns current number of elements
func (rb *PriceRing) Size() int {
	return rb.size
}
