package storage

import (
	"context"
	"fmt"
	"sort"
	"time"

	"market-stream/src/helpers"
	"market-stream/src/models"
)

type curveWindow struct {
	bucket   time.Duration
	lookback time.Duration
}

var curveTimeframes = map[string]curveWindow{
	"5m": {bucket: 5 * time.Minute, lookback: 24 * time.Hour},
	"1h": {bucket: time.Hour, lookback: 7 * 24 * time.Hour},
	"1d": {bucket: 24 * time.Hour, lookback: 90 * 24 * time.Hour},
}

// ValidTimeframe reports whether tf is one of 5m, 1h, 1d.
func ValidTimeframe(tf string) bool {
	_, ok := curveTimeframes[tf]
	return ok
}

// -----------------------------------------------------------------------------

// AllAssetCurves samples every active account's total assets into timeframe
// buckets over the lookback window. A nil environment matches any.
func (r *TradingRepository) AllAssetCurves(ctx context.Context, timeframe string, mode models.TradingMode, environment *string) ([]models.MAssetCurve, error) {
	w, ok := curveTimeframes[timeframe]
	if !ok {
		return nil, helpers.NewValidationError("invalid timeframe " + timeframe)
	}

	var accounts []models.MAccount
	if err := r.db.WithContext(ctx).Where("is_active = ?", true).Find(&accounts).Error; err != nil {
		return nil, helpers.NewDatabaseError("list accounts", err)
	}

	q := r.db.WithContext(ctx).
		Where("trading_mode = ? AND snapshot_time >= ?", mode.String(), time.Now().UTC().Add(-w.lookback)).
		Order("snapshot_time")
	if environment != nil {
		q = q.Where("environment = ?", *environment)
	}
	var snaps []models.MAssetSnapshot
	if err := q.Find(&snaps).Error; err != nil {
		return nil, helpers.NewDatabaseError(fmt.Sprintf("list asset snapshots (%s)", timeframe), err)
	}

	return BucketAssetCurves(accounts, snaps, w.bucket), nil
}

// -----------------------------------------------------------------------------

// BucketAssetCurves keeps the latest snapshot per account per bucket. Only
// accounts with at least one snapshot appear; output is ordered by account id
// and points by time.
func BucketAssetCurves(accounts []models.MAccount, snaps []models.MAssetSnapshot, bucket time.Duration) []models.MAssetCurve {
	step := int64(bucket / time.Second)
	if step <= 0 {
		step = 1
	}

	names := make(map[int64]string, len(accounts))
	for _, a := range accounts {
		names[a.ID] = a.Name
	}

	type sample struct {
		at    time.Time
		total float64
	}
	perAccount := map[int64]map[int64]sample{}
	for _, s := range snaps {
		if _, ok := names[s.AccountID]; !ok {
			continue
		}
		ts := s.SnapshotTime.Unix()
		slot := ts - ((ts%step)+step)%step
		buckets := perAccount[s.AccountID]
		if buckets == nil {
			buckets = map[int64]sample{}
			perAccount[s.AccountID] = buckets
		}
		if prev, ok := buckets[slot]; ok && prev.at.After(s.SnapshotTime) {
			continue
		}
		buckets[slot] = sample{at: s.SnapshotTime, total: s.TotalAssets.InexactFloat64()}
	}

	curves := make([]models.MAssetCurve, 0, len(perAccount))
	for id, buckets := range perAccount {
		points := make([]models.MAssetCurvePoint, 0, len(buckets))
		for slot, smp := range buckets {
			points = append(points, models.MAssetCurvePoint{Timestamp: slot, TotalAssets: smp.total})
		}
		sort.Slice(points, func(i, j int) bool { return points[i].Timestamp < points[j].Timestamp })
		curves = append(curves, models.MAssetCurve{AccountID: id, AccountName: names[id], Points: points})
	}
	sort.Slice(curves, func(i, j int) bool { return curves[i].AccountID < curves[j].AccountID })
	return curves
}
