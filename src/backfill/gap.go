package backfill

import (
	"slices"
	"time"

	"market-stream/src/models"
)

// periodSeconds holds the fixed cadences the gap walk understands. Calendar
// periods (weeks, months) have no fixed step and are deliberately absent.
var periodSeconds = map[string]int64{
	"1m":  60,
	"5m":  300,
	"15m": 900,
	"30m": 1800,
	"1h":  3600,
	"4h":  14400,
	"1d":  86400,
}

// PeriodSeconds returns the step for a period and whether it is known.
func PeriodSeconds(period string) (int64, bool) {
	step, ok := periodSeconds[period]
	return step, ok
}

// -----------------------------------------------------------------------------

// MissingRanges walks existing open times (ascending, inside [start, end]) and
// returns the inclusive spans with no candle at the given step. Each existing
// timestamp covers [ts, ts+step); anything between covered spans is a gap.
func MissingRanges(existing []int64, start, end, step int64) []models.MMissingRange {
	if start > end {
		return []models.MMissingRange{}
	}
	if len(existing) == 0 || step <= 0 {
		return []models.MMissingRange{{Start: start, End: end}}
	}
	if !slices.IsSorted(existing) {
		existing = slices.Clone(existing)
		slices.Sort(existing)
	}

	ranges := []models.MMissingRange{}
	current := start
	for _, ts := range existing {
		if ts > current {
			ranges = append(ranges, models.MMissingRange{Start: current, End: ts - step})
		}
		current = max(current, ts+step)
	}
	if current <= end {
		ranges = append(ranges, models.MMissingRange{Start: current, End: end})
	}
	return ranges
}

// -----------------------------------------------------------------------------

// FormatCandleTime renders the display datetime stored next to each candle.
func FormatCandleTime(ts int64) string {
	return time.Unix(ts, 0).UTC().Format("2006-01-02 15:04:05")
}
