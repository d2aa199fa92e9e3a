package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"idxscreener/pkg/model"
)

const upsertBatchSize = 500

// Store is the bulk bar and broker-summary store
type Store struct {
	db *gorm.DB
}

// Open connects to postgres using dsn
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	return &Store{db: db}, nil
}

// New wraps an existing gorm handle
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB returns the underlying GORM handle
func (s *Store) DB() *gorm.DB {
	return s.db
}

// AutoMigrate creates or updates the tables
func (s *Store) AutoMigrate() error {
	if err := s.db.AutoMigrate(&DailyBar{}, &BrokerSummary{}); err != nil {
		return fmt.Errorf("auto migration failed: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// GetBars returns up to daysBack most recent bars, oldest first
func (s *Store) GetBars(ctx context.Context, ticker string, daysBack int) ([]model.Candle, error) {
	var rows []DailyBar
	err := s.db.WithContext(ctx).
		Where("ticker = ?", ticker).
		Order("date DESC").
		Limit(daysBack).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("loading bars for %s: %w", ticker, err)
	}

	candles := make([]model.Candle, len(rows))
	for i, r := range rows {
		candles[len(rows)-1-i] = r.ToCandle()
	}
	return candles, nil
}

// upsertBars builds the insert-or-update statement for bars
func (s *Store) upsertBars(db *gorm.DB, bars []DailyBar) *gorm.DB {
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "ticker"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{"open", "high", "low", "close", "volume", "source", "updated_at"}),
	}).CreateInBatches(&bars, upsertBatchSize)
}

// UpsertBars writes candles, replacing existing rows for the same day
func (s *Store) UpsertBars(ctx context.Context, ticker, source string, candles []model.Candle) error {
	bars := BarsFromCandles(ticker, source, candles)
	if len(bars) == 0 {
		return nil
	}
	if err := s.upsertBars(s.db.WithContext(ctx), bars).Error; err != nil {
		return fmt.Errorf("upserting bars for %s: %w", ticker, err)
	}
	return nil
}

// LatestBarDate returns the date of the newest stored bar, zero time when none
func (s *Store) LatestBarDate(ctx context.Context, ticker string) (time.Time, error) {
	var bar DailyBar
	err := s.db.WithContext(ctx).
		Where("ticker = ?", ticker).
		Order("date DESC").
		Limit(1).
		Find(&bar).Error
	if err != nil {
		return time.Time{}, err
	}
	return bar.Date, nil
}

// GetBrokerFlow returns the stored flow of a ticker on date, nil when none
func (s *Store) GetBrokerFlow(ctx context.Context, ticker string, date time.Time) (*model.DailyBrokerFlow, error) {
	var rows []BrokerSummary
	err := s.db.WithContext(ctx).
		Where("ticker = ? AND date = ?", ticker, dayOf(date)).
		Order("side ASC, value DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("loading broker flow for %s: %w", ticker, err)
	}
	return FlowFromSummaries(rows), nil
}

// SaveBrokerFlow upserts a day's broker leaderboard
func (s *Store) SaveBrokerFlow(ctx context.Context, ticker string, flow model.DailyBrokerFlow) error {
	rows := SummariesFromFlow(ticker, flow)
	if len(rows) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "ticker"}, {Name: "date"}, {Name: "side"}, {Name: "broker_code"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "lots", "category", "acc_dist_tag", "updated_at"}),
	}).Create(&rows).Error
	if err != nil {
		return fmt.Errorf("saving broker flow for %s: %w", ticker, err)
	}
	return nil
}
