package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"market-stream/src/logger"
	"market-stream/src/models"

	_ "github.com/lib/pq"
)

// -----------------------------------------------------------------------------

type PostgresDB struct {
	Config *models.MConfig
	DB     *sql.DB
	Schema string
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewPostgresDB(cfg *models.MConfig, log *logger.Logger) (*PostgresDB, error) {
	// schema is named after the binary so several collectors can share a db
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable name: %w", err)
	}
	name := filepath.Base(exe)
	name = strings.TrimSuffix(name, filepath.Ext(name))

	return &PostgresDB{
		Config: cfg,
		Schema: name,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) table() string {
	return fmt.Sprintf(`"%s"."crypto_klines"`, d.Schema)
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Initialize() error {
	dsn := d.Config.Storage.DBConnectionString
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return err
	}

	d.DB = db

	if _, err := d.DB.Exec(fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS "%s"`, d.Schema)); err != nil {
		return fmt.Errorf("failed to create schema %s: %w", d.Schema, err)
	}

	if err := d.createTables(); err != nil {
		return err
	}

	d.Logger.Info("PostgresDB initialized successfully (Schema: %s)", d.Schema)
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) createTables() error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id BIGSERIAL PRIMARY KEY,
			exchange TEXT NOT NULL,
			symbol TEXT NOT NULL,
			market TEXT NOT NULL,
			period TEXT NOT NULL,
			environment TEXT NOT NULL,
			timestamp BIGINT NOT NULL,
			datetime_str TEXT NOT NULL DEFAULT '',
			open DOUBLE PRECISION,
			high DOUBLE PRECISION,
			low DOUBLE PRECISION,
			close DOUBLE PRECISION,
			volume DOUBLE PRECISION,
			amount DOUBLE PRECISION,
			created_at BIGINT NOT NULL,
			UNIQUE (exchange, symbol, market, period, timestamp, environment)
		);
	`, d.table())
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create crypto_klines: %w", err)
	}

	index := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS crypto_klines_timestamp_idx ON %s (timestamp)`, d.table())
	if _, err := d.DB.Exec(index); err != nil {
		return fmt.Errorf("failed to index crypto_klines: %w", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) SaveCandles(ctx context.Context, candles []models.MCandle) (models.MSaveResult, error) {
	return saveCandlesTx(ctx, d.DB, insertCandleQuery(d.table(), dollar), candles)
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) ListTimestamps(ctx context.Context, key models.MSeriesKey, start, end int64) ([]int64, error) {
	return queryTimestamps(ctx, d.DB, d.table(), dollar, key, start, end)
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) ListCandles(ctx context.Context, key models.MSeriesKey, start, end int64) ([]models.MCandle, error) {
	return queryCandles(ctx, d.DB, d.table(), dollar, key, start, end)
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) CleanupOldData(ctx context.Context, before int64) (int64, error) {
	res, err := d.DB.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE timestamp < $1`, d.table()), before)
	if err != nil {
		return 0, fmt.Errorf("cleanup crypto_klines: %w", err)
	}
	n, _ := res.RowsAffected()
	d.Logger.Info("Cleanup removed %d candles older than %d", n, before)
	return n, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
