package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"market-stream/src/models"
)

// candleColumns is shared by both dialects; order matches scanCandle.
const candleColumns = "exchange, symbol, market, period, environment, timestamp, datetime_str, open, high, low, close, volume, amount, created_at"

// placeholder renders the n-th (1-based) bind parameter for a dialect.
type placeholder func(n int) string

func questionMark(int) string { return "?" }

func dollar(n int) string { return fmt.Sprintf("$%d", n) }

// -----------------------------------------------------------------------------

func insertCandleQuery(table string, ph placeholder) string {
	cols := strings.Split(candleColumns, ", ")
	marks := make([]string, len(cols))
	for i := range cols {
		marks[i] = ph(i + 1)
	}
	return fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)
		ON CONFLICT (exchange, symbol, market, period, timestamp, environment) DO NOTHING`,
		table, candleColumns, strings.Join(marks, ", "))
}

func candleArgs(c models.MCandle, now time.Time) []interface{} {
	var amount sql.NullFloat64
	if c.Amount != nil {
		amount = sql.NullFloat64{Float64: *c.Amount, Valid: true}
	}
	created := c.CreatedAt
	if created.IsZero() {
		created = now
	}
	return []interface{}{
		c.Exchange, c.Symbol, c.Market, c.Period, c.Environment,
		c.Timestamp, c.DatetimeStr,
		c.Open, c.High, c.Low, c.Close, c.Volume,
		amount, created.Unix(),
	}
}

// saveCandlesTx inserts in one transaction; RowsAffected tells an insert
// from a skipped duplicate.
func saveCandlesTx(ctx context.Context, db *sql.DB, query string, candles []models.MCandle) (models.MSaveResult, error) {
	var res models.MSaveResult
	if len(candles) == 0 {
		return res, nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return res, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return res, err
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, c := range candles {
		r, err := stmt.ExecContext(ctx, candleArgs(c, now)...)
		if err != nil {
			return models.MSaveResult{}, fmt.Errorf("insert candle %s %s %d: %w", c.Symbol, c.Period, c.Timestamp, err)
		}
		n, err := r.RowsAffected()
		if err != nil {
			return models.MSaveResult{}, err
		}
		if n > 0 {
			res.Inserted++
		} else {
			res.Skipped++
		}
	}

	if err := tx.Commit(); err != nil {
		return models.MSaveResult{}, err
	}
	return res, nil
}

// -----------------------------------------------------------------------------

func seriesFilter(ph placeholder) string {
	return fmt.Sprintf("exchange = %s AND symbol = %s AND market = %s AND period = %s AND environment = %s AND timestamp >= %s AND timestamp <= %s",
		ph(1), ph(2), ph(3), ph(4), ph(5), ph(6), ph(7))
}

func seriesArgs(key models.MSeriesKey, start, end int64) []interface{} {
	return []interface{}{key.Exchange, key.Symbol, key.Market, key.Period, key.Environment, start, end}
}

func queryTimestamps(ctx context.Context, db *sql.DB, table string, ph placeholder, key models.MSeriesKey, start, end int64) ([]int64, error) {
	query := fmt.Sprintf("SELECT timestamp FROM %s WHERE %s ORDER BY timestamp", table, seriesFilter(ph))
	rows, err := db.QueryContext(ctx, query, seriesArgs(key, start, end)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []int64{}
	for rows.Next() {
		var ts int64
		if err := rows.Scan(&ts); err != nil {
			return nil, err
		}
		out = append(out, ts)
	}
	return out, rows.Err()
}

func queryCandles(ctx context.Context, db *sql.DB, table string, ph placeholder, key models.MSeriesKey, start, end int64) ([]models.MCandle, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s ORDER BY timestamp", candleColumns, table, seriesFilter(ph))
	rows, err := db.QueryContext(ctx, query, seriesArgs(key, start, end)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.MCandle{}
	for rows.Next() {
		c, err := scanCandle(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanCandle(rows *sql.Rows) (models.MCandle, error) {
	var (
		c       models.MCandle
		amount  sql.NullFloat64
		created int64
	)
	err := rows.Scan(&c.Exchange, &c.Symbol, &c.Market, &c.Period, &c.Environment,
		&c.Timestamp, &c.DatetimeStr,
		&c.Open, &c.High, &c.Low, &c.Close, &c.Volume,
		&amount, &created)
	if err != nil {
		return c, err
	}
	if amount.Valid {
		v := amount.Float64
		c.Amount = &v
	}
	c.CreatedAt = time.Unix(created, 0).UTC()
	return c, nil
}
