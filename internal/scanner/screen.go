package scanner

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"idxscreener/internal/indicator"
	"idxscreener/internal/trend"
	"idxscreener/pkg/model"
)

const (
	// TrendScreenDays is how many bars the trend screen requests
	TrendScreenDays = 300

	// MaxTrendScore is the number of trend template criteria
	MaxTrendScore = 8
)

// Score ranks a preset match: 50 base, +20 buy signal, +10 bullish trend,
// +15 oversold RSI under the oversold preset
func Score(preset string, snap *model.IndicatorSnapshot) float64 {
	score := 50.0
	if snap.Signal == model.SignalBuy {
		score += 20
	}
	if trendIs(snap, model.TrendBullish) {
		score += 10
	}
	if preset == "oversold" && snap.RSISignal == model.RSIOversold {
		score += 15
	}
	return score
}

// RunScreener tests every ticker against a preset and ranks the matches.
// Only an unknown preset is an error; per-ticker failures go to Diagnostics.
func (s *Scanner) RunScreener(ctx context.Context, tickers []string, presetName string) (model.ScreenReport, error) {
	preset, err := GetPreset(presetName)
	if err != nil {
		return model.ScreenReport{}, err
	}

	start := time.Now()
	report := model.ScreenReport{
		RunID:        uuid.NewString(),
		Preset:       preset.Name,
		StartedAt:    start,
		TotalScanned: len(tickers),
		Results:      []model.ScreenedStock{},
	}

	for _, f := range s.fetchAll(ctx, "screen", tickers, s.cfg.ScreenDays, MinScreenBars) {
		if f.skip != nil {
			report.Diagnostics.Skipped = append(report.Diagnostics.Skipped, *f.skip)
			continue
		}

		snap := indicator.Analyze(f.ticker, f.candles)
		if !preset.Match(&snap) {
			continue
		}
		report.Results = append(report.Results, model.ScreenedStock{
			Ticker:     f.ticker,
			Price:      snap.Price,
			RSI:        snap.RSI,
			MACDSignal: snap.MACDDirection(),
			Trend:      snap.Trend,
			Signal:     snap.Signal,
			Score:      Score(preset.Name, &snap),
		})
	}

	// Stable: equal scores keep input order
	sort.SliceStable(report.Results, func(i, j int) bool {
		return report.Results[i].Score > report.Results[j].Score
	})

	report.ScanTime = time.Since(start)
	s.metrics.ObserveRun("screen", start)
	s.logger.Info().
		Str("run_id", report.RunID).
		Str("preset", preset.Name).
		Int("scanned", report.TotalScanned).
		Int("matched", len(report.Results)).
		Int("skipped", report.Diagnostics.Count()).
		Dur("elapsed", report.ScanTime).
		Msg("screen complete")
	return report, nil
}

// RunTrendScreen evaluates the trend template across the universe with each
// ticker's relative strength measured against its own sector.
func (s *Scanner) RunTrendScreen(ctx context.Context, tickers []string, minScore int) (model.TrendScreenReport, error) {
	if minScore < 0 || minScore > MaxTrendScore {
		return model.TrendScreenReport{}, fmt.Errorf("min score must be between 0 and %d, got %d", MaxTrendScore, minScore)
	}

	start := time.Now()
	report := model.TrendScreenReport{
		RunID:        uuid.NewString(),
		MinScore:     minScore,
		StartedAt:    start,
		TotalScanned: len(tickers),
		Results:      []model.TrendScreenResult{},
	}

	type candidate struct {
		ticker     string
		sector     string
		candles    []model.Candle
		yearReturn float64
	}

	var candidates []candidate
	sectorReturns := make(map[string][]float64)
	for _, f := range s.fetchAll(ctx, "trend", tickers, TrendScreenDays, trend.TradingYear) {
		if f.skip != nil {
			report.Diagnostics.Skipped = append(report.Diagnostics.Skipped, *f.skip)
			continue
		}
		c := candidate{
			ticker:     f.ticker,
			sector:     s.sectors.GetSector(f.ticker),
			candles:    f.candles,
			yearReturn: trend.YearReturn(trend.TrailingYear(f.candles)),
		}
		candidates = append(candidates, c)
		sectorReturns[c.sector] = append(sectorReturns[c.sector], c.yearReturn)
	}

	for _, c := range candidates {
		rs := trend.SectorRelativeStrength(c.yearReturn, sectorReturns[c.sector])
		criteria, ok := trend.EvaluateCriteria(c.candles, rs).Get()
		if !ok || criteria.Score < minScore {
			continue
		}
		snap := indicator.Analyze(c.ticker, c.candles)
		report.Results = append(report.Results, model.TrendScreenResult{
			Ticker:     c.ticker,
			Sector:     c.sector,
			Price:      criteria.Price,
			YearReturn: c.yearReturn,
			Criteria:   criteria,
			Stage:      trend.ClassifyStage(c.candles, snap),
		})
	}

	sort.SliceStable(report.Results, func(i, j int) bool {
		a, b := report.Results[i].Criteria, report.Results[j].Criteria
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		return a.SectorRS > b.SectorRS
	})

	report.ScanTime = time.Since(start)
	s.metrics.ObserveRun("trend", start)
	s.logger.Info().
		Str("run_id", report.RunID).
		Int("min_score", minScore).
		Int("scanned", report.TotalScanned).
		Int("matched", len(report.Results)).
		Int("skipped", report.Diagnostics.Count()).
		Dur("elapsed", report.ScanTime).
		Msg("trend screen complete")
	return report, nil
}

// AnalyzeTicker fetches one ticker and returns its snapshot with the stage reading.
// Used by single-ticker commands; needs MinScreenBars bars.
func (s *Scanner) AnalyzeTicker(ctx context.Context, ticker string) (model.IndicatorSnapshot, model.StageClassification, []model.Candle, error) {
	f := s.fetchOne(ctx, ticker, TrendScreenDays, MinScreenBars)
	if f.skip != nil {
		return model.IndicatorSnapshot{}, model.StageClassification{}, nil, fmt.Errorf("%s: %s: %s", ticker, f.skip.Stage, f.skip.Reason)
	}
	snap := indicator.Analyze(ticker, f.candles)
	return snap, trend.ClassifyStage(f.candles, snap), f.candles, nil
}
