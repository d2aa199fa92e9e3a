package store

import (
	"strings"
	"testing"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"idxscreener/pkg/model"
)

// dryRunStore builds statements against the postgres dialect without a server
func dryRunStore(t *testing.T) *Store {
	t.Helper()
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN: "host=localhost user=idx dbname=idx sslmode=disable",
	}), &gorm.Config{
		DryRun:                 true,
		DisableAutomaticPing:   true,
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open dry-run db: %v", err)
	}
	return New(db)
}

func TestBarsFromCandlesTruncatesToDay(t *testing.T) {
	candles := []model.Candle{
		{Time: time.Date(2024, 5, 2, 9, 0, 0, 0, time.FixedZone("WIB", 7*3600)), Open: 9000, High: 9100, Low: 8950, Close: 9050, Volume: 12000},
	}
	bars := BarsFromCandles("BBCA", "yahoo", candles)

	if len(bars) != 1 {
		t.Fatalf("Expected 1 bar, got %d", len(bars))
	}
	want := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)
	if !bars[0].Date.Equal(want) {
		t.Errorf("Expected date %v, got %v", want, bars[0].Date)
	}
	if bars[0].Ticker != "BBCA" || bars[0].Source != "yahoo" || bars[0].Close != 9050 {
		t.Errorf("Unexpected bar %+v", bars[0])
	}
	if c := bars[0].ToCandle(); c.Volume != 12000 || c.High != 9100 {
		t.Errorf("Unexpected candle %+v", c)
	}
}

func TestFlowSummariesRoundTrip(t *testing.T) {
	flow := model.DailyBrokerFlow{
		Date: time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC),
		TopBuyers: []model.BrokerEntry{
			{BrokerCode: "AK", Value: 5e9, Lots: 50000, Category: model.CategorySmartmoney},
			{BrokerCode: "DR", Value: 2e9, Lots: 20000, Category: model.CategoryWhale},
		},
		TopSellers: []model.BrokerEntry{
			{BrokerCode: "YP", Value: 3e9, Lots: 30000, Category: model.CategoryRetail},
		},
		AccDistTag: model.TagAcc,
	}

	rows := SummariesFromFlow("BBRI", flow)
	if len(rows) != 3 {
		t.Fatalf("Expected 3 rows, got %d", len(rows))
	}
	if rows[2].Side != SideSell || rows[0].Side != SideBuy {
		t.Errorf("Unexpected sides %s/%s", rows[0].Side, rows[2].Side)
	}

	got := FlowFromSummaries(rows)
	if len(got.TopBuyers) != 2 || len(got.TopSellers) != 1 {
		t.Fatalf("Expected 2 buyers and 1 seller, got %d/%d", len(got.TopBuyers), len(got.TopSellers))
	}
	if got.AccDistTag != model.TagAcc || got.TopSellers[0].Category != model.CategoryRetail {
		t.Errorf("Unexpected rebuilt flow %+v", got)
	}

	if FlowFromSummaries(nil) != nil {
		t.Error("Expected nil flow for no rows")
	}
}

func TestUpsertBarsStatement(t *testing.T) {
	s := dryRunStore(t)
	bars := BarsFromCandles("TLKM", "yahoo", []model.Candle{
		{Time: time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC), Open: 1, High: 2, Low: 1, Close: 2, Volume: 10},
	})

	sql := s.upsertBars(s.db, bars).Statement.SQL.String()

	for _, want := range []string{`INSERT INTO "daily_bars"`, `ON CONFLICT ("ticker","date") DO UPDATE SET`, `"close"="excluded"."close"`} {
		if !strings.Contains(sql, want) {
			t.Errorf("Expected %q in %s", want, sql)
		}
	}
}

func TestGetBarsStatement(t *testing.T) {
	s := dryRunStore(t)

	candles, err := s.GetBars(t.Context(), "ASII", 300)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(candles) != 0 {
		t.Errorf("Dry run should return no rows, got %d", len(candles))
	}
}
