package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"market-stream/src/logger"
	"market-stream/src/models"

	_ "modernc.org/sqlite"
)

const sqliteCandleTable = "crypto_klines"

// -----------------------------------------------------------------------------

type AsyncSQLiteDB struct {
	Config *models.MConfig
	DB     *sql.DB
	Logger *logger.Logger

	insertQuery string
}

// -----------------------------------------------------------------------------

func NewAsyncSQLiteDB(cfg *models.MConfig, log *logger.Logger) (*AsyncSQLiteDB, error) {
	return &AsyncSQLiteDB{
		Config:      cfg,
		Logger:      log,
		insertQuery: insertCandleQuery(sqliteCandleTable, questionMark),
	}, nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) Initialize() error {
	dsn := d.Config.Storage.DBPath
	if dir := filepath.Dir(dsn); dsn != ":memory:" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create sqlite directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return err
	}

	d.DB = db

	// PRAGMA optimizations
	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		d.Logger.Warning("Failed to set WAL mode: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL;"); err != nil {
		d.Logger.Warning("Failed to set synchronous mode: %v", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000;"); err != nil {
		d.Logger.Warning("Failed to set busy timeout: %v", err)
	}

	return d.createTables()
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) createTables() error {
	// SQLite types: INTEGER for int64, REAL for float64, TEXT for string
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			exchange TEXT NOT NULL,
			symbol TEXT NOT NULL,
			market TEXT NOT NULL,
			period TEXT NOT NULL,
			environment TEXT NOT NULL,
			timestamp INTEGER NOT NULL,
			datetime_str TEXT NOT NULL DEFAULT '',
			open REAL,
			high REAL,
			low REAL,
			close REAL,
			volume REAL,
			amount REAL,
			created_at INTEGER NOT NULL,
			UNIQUE (exchange, symbol, market, period, timestamp, environment)
		);
	`, sqliteCandleTable)
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create %s: %w", sqliteCandleTable, err)
	}

	index := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_timestamp ON %s (timestamp)`, sqliteCandleTable, sqliteCandleTable)
	if _, err := d.DB.Exec(index); err != nil {
		return fmt.Errorf("failed to index %s: %w", sqliteCandleTable, err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) SaveCandles(ctx context.Context, candles []models.MCandle) (models.MSaveResult, error) {
	return saveCandlesTx(ctx, d.DB, d.insertQuery, candles)
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) ListTimestamps(ctx context.Context, key models.MSeriesKey, start, end int64) ([]int64, error) {
	return queryTimestamps(ctx, d.DB, sqliteCandleTable, questionMark, key, start, end)
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) ListCandles(ctx context.Context, key models.MSeriesKey, start, end int64) ([]models.MCandle, error) {
	return queryCandles(ctx, d.DB, sqliteCandleTable, questionMark, key, start, end)
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) CleanupOldData(ctx context.Context, before int64) (int64, error) {
	res, err := d.DB.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE timestamp < ?", sqliteCandleTable), before)
	if err != nil {
		return 0, fmt.Errorf("cleanup %s: %w", sqliteCandleTable, err)
	}
	n, _ := res.RowsAffected()
	d.Logger.Info("Cleanup removed %d candles older than %d", n, before)
	return n, nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
