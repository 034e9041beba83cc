package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"market-stream/src/helpers"
	"market-stream/src/logger"
	"market-stream/src/models"

	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// -----------------------------------------------------------------------------
// TradingRepository reads accounts, positions and history from the trading
// database. It never migrates that schema.
// -----------------------------------------------------------------------------

type TradingRepository struct {
	db     *gorm.DB
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewTradingRepository(cfg models.MTradingDBConfig, log *logger.Logger) (*TradingRepository, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, helpers.NewDatabaseError("open trading db", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, helpers.NewDatabaseError("trading db pool", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)
	}

	return NewTradingRepositoryWithDB(db, log), nil
}

func NewTradingRepositoryWithDB(db *gorm.DB, log *logger.Logger) *TradingRepository {
	return &TradingRepository{db: db, Logger: log}
}

// DB exposes the handle so the order service can share transactions.
func (r *TradingRepository) DB() *gorm.DB {
	if r == nil {
		return nil
	}
	return r.db
}

func (r *TradingRepository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// -----------------------------------------------------------------------------

func (r *TradingRepository) GetUser(ctx context.Context, userID int64) (*models.MUser, error) {
	var u models.MUser
	if err := r.db.WithContext(ctx).First(&u, userID).Error; err != nil {
		return nil, notFound(err, helpers.ErrUserNotFound)
	}
	return &u, nil
}

func (r *TradingRepository) GetOrCreateUser(ctx context.Context, username string) (*models.MUser, error) {
	u := models.MUser{Username: username}
	err := r.db.WithContext(ctx).Where(models.MUser{Username: username}).FirstOrCreate(&u).Error
	if err != nil {
		return nil, helpers.NewDatabaseError("get or create user "+username, err)
	}
	return &u, nil
}

// -----------------------------------------------------------------------------

func (r *TradingRepository) GetAccount(ctx context.Context, accountID int64) (*models.MAccount, error) {
	var a models.MAccount
	err := r.db.WithContext(ctx).Where("id = ? AND is_active = ?", accountID, true).First(&a).Error
	if err != nil {
		return nil, notFound(err, helpers.ErrAccountNotFound)
	}
	return &a, nil
}

func (r *TradingRepository) GetDefaultAccount(ctx context.Context, userID int64) (*models.MAccount, error) {
	var a models.MAccount
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("id").
		First(&a).Error
	if err != nil {
		return nil, notFound(err, helpers.ErrAccountNotFound)
	}
	return &a, nil
}

func (r *TradingRepository) GetOrCreateDefaultAccount(ctx context.Context, user *models.MUser, initialCapital decimal.Decimal) (*models.MAccount, error) {
	a, err := r.GetDefaultAccount(ctx, user.ID)
	if err == nil {
		return a, nil
	}
	if !errors.Is(err, helpers.ErrAccountNotFound) {
		return nil, err
	}

	created := models.MAccount{
		UserID:         user.ID,
		Name:           user.Username + " AI Trader",
		AccountType:    "AI",
		InitialCapital: initialCapital,
		CurrentCash:    initialCapital,
		FrozenCash:     decimal.Zero,
		IsActive:       true,
	}
	if err := r.db.WithContext(ctx).Create(&created).Error; err != nil {
		return nil, helpers.NewDatabaseError("create default account", err)
	}
	r.Logger.Info("Created default account %d for user %s", created.ID, user.Username)
	return &created, nil
}

// -----------------------------------------------------------------------------

func (r *TradingRepository) ListPositions(ctx context.Context, accountID int64) ([]models.MPosition, error) {
	var rows []models.MPosition
	err := r.db.WithContext(ctx).
		Where("account_id = ? AND quantity > 0", accountID).
		Order("symbol").
		Find(&rows).Error
	if err != nil {
		return nil, helpers.NewDatabaseError(fmt.Sprintf("list positions for %d", accountID), err)
	}
	return rows, nil
}

func (r *TradingRepository) ListOrders(ctx context.Context, accountID int64, environment string, limit int) ([]models.MOrder, error) {
	var rows []models.MOrder
	err := r.recent(ctx, accountID, environment, limit).Order("created_at DESC").Find(&rows).Error
	if err != nil {
		return nil, helpers.NewDatabaseError(fmt.Sprintf("list orders for %d", accountID), err)
	}
	return rows, nil
}

func (r *TradingRepository) ListTrades(ctx context.Context, accountID int64, environment string, limit int) ([]models.MTrade, error) {
	var rows []models.MTrade
	err := r.recent(ctx, accountID, environment, limit).Order("trade_time DESC").Find(&rows).Error
	if err != nil {
		return nil, helpers.NewDatabaseError(fmt.Sprintf("list trades for %d", accountID), err)
	}
	return rows, nil
}

func (r *TradingRepository) ListAIDecisions(ctx context.Context, accountID int64, environment string, limit int) ([]models.MAIDecision, error) {
	var rows []models.MAIDecision
	err := r.recent(ctx, accountID, environment, limit).Order("decision_time DESC").Find(&rows).Error
	if err != nil {
		return nil, helpers.NewDatabaseError(fmt.Sprintf("list ai decisions for %d", accountID), err)
	}
	return rows, nil
}

func (r *TradingRepository) recent(ctx context.Context, accountID int64, environment string, limit int) *gorm.DB {
	q := r.db.WithContext(ctx).Where("account_id = ?", accountID)
	if environment != "" {
		q = q.Where("hyperliquid_environment = ?", environment)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	return q
}

// -----------------------------------------------------------------------------

func (r *TradingRepository) GetWalletAddress(ctx context.Context, accountID int64, environment string) (string, error) {
	var w models.MWallet
	err := r.db.WithContext(ctx).
		Where("account_id = ? AND environment = ?", accountID, environment).
		First(&w).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", helpers.NewDatabaseError("wallet lookup", err)
	}
	return w.WalletAddress, nil
}

// -----------------------------------------------------------------------------

func notFound(err, sentinel error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sentinel
	}
	return helpers.NewDatabaseError("trading db lookup", err)
}
