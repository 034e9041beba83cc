package backfill

import (
	"math/rand"
	"testing"

	"market-stream/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMissingRangesWalk(t *testing.T) {
	// {100, 160} cover [100, 220); 280 starts after a single missing slot
	// at 220; 280+60 runs past the end so there is no tail gap.
	got := MissingRanges([]int64{100, 160, 280}, 100, 300, 60)
	assert.Equal(t, []models.MMissingRange{{Start: 220, End: 220}}, got)
}

func TestMissingRangesCases(t *testing.T) {
	cases := []struct {
		name     string
		existing []int64
		start    int64
		end      int64
		want     []models.MMissingRange
	}{
		{"empty store", nil, 0, 600, []models.MMissingRange{{Start: 0, End: 600}}},
		{"complete", []int64{0, 60, 120}, 0, 120, []models.MMissingRange{}},
		{"leading gap", []int64{120, 180}, 0, 180, []models.MMissingRange{{Start: 0, End: 60}}},
		{"tail gap", []int64{0, 60}, 0, 240, []models.MMissingRange{{Start: 120, End: 240}}},
		{"two holes", []int64{0, 180, 360}, 0, 360, []models.MMissingRange{{Start: 60, End: 120}, {Start: 240, End: 300}}},
		{"inverted range", []int64{0}, 100, 0, []models.MMissingRange{}},
		{"unsorted input", []int64{120, 0}, 0, 120, []models.MMissingRange{{Start: 60, End: 60}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, MissingRanges(tc.existing, tc.start, tc.end, 60))
		})
	}
}

func TestMissingRangesPartitionGrid(t *testing.T) {
	const step = int64(60)
	rng := rand.New(rand.NewSource(7))

	for round := 0; round < 200; round++ {
		start := int64(1_700_000_040)
		n := 1 + rng.Intn(60)
		end := start + int64(n-1)*step

		var existing []int64
		for i := 0; i < n; i++ {
			if rng.Intn(3) == 0 {
				existing = append(existing, start+int64(i)*step)
			}
		}

		coverage := map[int64]int{}
		for _, ts := range existing {
			coverage[ts]++
		}
		for _, r := range MissingRanges(existing, start, end, step) {
			require.LessOrEqual(t, r.Start, r.End)
			require.GreaterOrEqual(t, r.Start, start)
			require.LessOrEqual(t, r.End, end)
			for ts := r.Start; ts <= r.End; ts += step {
				coverage[ts]++
			}
		}

		require.Len(t, coverage, n, "round %d", round)
		for ts, count := range coverage {
			require.Equal(t, 1, count, "round %d ts %d", round, ts)
		}
	}
}

func TestPeriodSeconds(t *testing.T) {
	step, ok := PeriodSeconds("4h")
	assert.True(t, ok)
	assert.Equal(t, int64(14400), step)

	_, ok = PeriodSeconds("1w")
	assert.False(t, ok)
}

func TestFormatCandleTime(t *testing.T) {
	assert.Equal(t, "2023-11-14 22:13:20", FormatCandleTime(1_700_000_000))
}
