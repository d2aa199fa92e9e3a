package store

import (
	"time"

	"idxscreener/pkg/model"
)

// DailyBar is one stored OHLCV bar
type DailyBar struct {
	Ticker    string    `gorm:"primaryKey;size:16"`
	Date      time.Time `gorm:"primaryKey;type:date"`
	Open      float64   `gorm:"not null"`
	High      float64   `gorm:"not null"`
	Low       float64   `gorm:"not null"`
	Close     float64   `gorm:"not null"`
	Volume    int64     `gorm:"not null"`
	Source    string    `gorm:"size:32"`
	UpdatedAt time.Time
}

// TableName specifies the table name for GORM
func (DailyBar) TableName() string {
	return "daily_bars"
}

// BrokerSummary is one broker's buy or sell total for a ticker on a day
type BrokerSummary struct {
	ID         uint      `gorm:"primaryKey"`
	Ticker     string    `gorm:"size:16;not null;uniqueIndex:idx_broker_summary_day"`
	Date       time.Time `gorm:"type:date;not null;uniqueIndex:idx_broker_summary_day"`
	Side       string    `gorm:"size:4;not null;uniqueIndex:idx_broker_summary_day"` // buy or sell
	BrokerCode string    `gorm:"size:8;not null;uniqueIndex:idx_broker_summary_day"`
	Value      float64   `gorm:"not null"`
	Lots       int64     `gorm:"not null"`
	Category   string    `gorm:"size:16"`
	AccDistTag string    `gorm:"size:16"`
	UpdatedAt  time.Time
}

// TableName specifies the table name for GORM
func (BrokerSummary) TableName() string {
	return "broker_summaries"
}

const (
	SideBuy  = "buy"
	SideSell = "sell"
)

func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ToCandle converts a stored bar
func (b DailyBar) ToCandle() model.Candle {
	return model.Candle{
		Time:   b.Date,
		Open:   b.Open,
		High:   b.High,
		Low:    b.Low,
		Close:  b.Close,
		Volume: b.Volume,
	}
}

// BarsFromCandles converts candles for storage
func BarsFromCandles(ticker, source string, candles []model.Candle) []DailyBar {
	bars := make([]DailyBar, 0, len(candles))
	for _, c := range candles {
		bars = append(bars, DailyBar{
			Ticker: ticker,
			Date:   dayOf(c.Time),
			Open:   c.Open,
			High:   c.High,
			Low:    c.Low,
			Close:  c.Close,
			Volume: c.Volume,
			Source: source,
		})
	}
	return bars
}

// SummariesFromFlow flattens a daily flow into rows
func SummariesFromFlow(ticker string, flow model.DailyBrokerFlow) []BrokerSummary {
	rows := make([]BrokerSummary, 0, len(flow.TopBuyers)+len(flow.TopSellers))
	add := func(side string, entries []model.BrokerEntry) {
		for _, e := range entries {
			rows = append(rows, BrokerSummary{
				Ticker:     ticker,
				Date:       dayOf(flow.Date),
				Side:       side,
				BrokerCode: e.BrokerCode,
				Value:      e.Value,
				Lots:       e.Lots,
				Category:   string(e.Category),
				AccDistTag: string(flow.AccDistTag),
			})
		}
	}
	add(SideBuy, flow.TopBuyers)
	add(SideSell, flow.TopSellers)
	return rows
}

// FlowFromSummaries rebuilds a daily flow; buyers and sellers sorted by value desc
// as stored. Returns nil for no rows.
func FlowFromSummaries(rows []BrokerSummary) *model.DailyBrokerFlow {
	if len(rows) == 0 {
		return nil
	}
	flow := &model.DailyBrokerFlow{Date: rows[0].Date}
	for _, r := range rows {
		e := model.BrokerEntry{
			BrokerCode: r.BrokerCode,
			Value:      r.Value,
			Lots:       r.Lots,
			Category:   model.BrokerCategory(r.Category),
		}
		if r.Side == SideSell {
			flow.TopSellers = append(flow.TopSellers, e)
		} else {
			flow.TopBuyers = append(flow.TopBuyers, e)
		}
		if r.AccDistTag != "" {
			flow.AccDistTag = model.AccDistTag(r.AccDistTag)
		}
	}
	return flow
}
