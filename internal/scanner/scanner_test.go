package scanner

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"idxscreener/internal/metrics"
	"idxscreener/internal/provider"
	"idxscreener/internal/ratelimit"
	"idxscreener/pkg/model"
)

type fakeBars struct {
	mu     sync.Mutex
	series map[string][]model.Candle
	errs   map[string]error
	calls  []string
}

func (f *fakeBars) Name() string      { return "fake" }
func (f *fakeBars) IsAvailable() bool { return true }

func (f *fakeBars) GetBars(ctx context.Context, ticker string, daysBack int) ([]model.Candle, error) {
	f.mu.Lock()
	f.calls = append(f.calls, ticker)
	f.mu.Unlock()

	if err := f.errs[ticker]; err != nil {
		return nil, err
	}
	candles, ok := f.series[ticker]
	if !ok {
		return nil, provider.ErrNoData
	}
	return candles, nil
}

func candlesFromCloses(closes []float64) []model.Candle {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]model.Candle, len(closes))
	for i, c := range closes {
		candles[i] = model.Candle{
			Time:   start.AddDate(0, 0, i),
			Open:   c,
			High:   c * 1.01,
			Low:    c * 0.99,
			Close:  c,
			Volume: 1000000,
		}
	}
	return candles
}

// zigzag is a flat base followed by 14 alternating moves of +up and -down,
// so the 14-period RSI is exactly 100*up/(up+down)
func zigzag(base, up, down float64) []model.Candle {
	closes := make([]float64, 0, 50)
	for i := 0; i < 36; i++ {
		closes = append(closes, base)
	}
	price := base
	for i := 0; i < 14; i++ {
		if i%2 == 0 {
			price += up
		} else {
			price -= down
		}
		closes = append(closes, price)
	}
	return candlesFromCloses(closes)
}

func line(n int, start, step float64) []model.Candle {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = start + float64(i)*step
	}
	return candlesFromCloses(closes)
}

func newTestScanner(bars provider.BarProvider, sectors provider.SectorProvider) *Scanner {
	return NewScanner(bars, sectors, nil, Config{Workers: 3, FetchTimeout: time.Second})
}

func TestRunScreenerOversold(t *testing.T) {
	bars := &fakeBars{series: map[string][]model.Candle{
		"BBCA": zigzag(1000, 1, 3),  // RSI 25
		"TLKM": zigzag(1000, 11, 9), // RSI 55
	}}
	s := newTestScanner(bars, nil)

	report, err := s.RunScreener(t.Context(), []string{"BBCA", "TLKM"}, "oversold")
	if err != nil {
		t.Fatalf("RunScreener failed: %v", err)
	}

	if len(report.Results) != 1 {
		t.Fatalf("Expected 1 result, got %d", len(report.Results))
	}
	got := report.Results[0]
	if got.Ticker != "BBCA" {
		t.Errorf("Expected BBCA, got %s", got.Ticker)
	}
	rsi, ok := got.RSI.Get()
	if !ok || math.Abs(rsi-25) > 0.01 {
		t.Errorf("Expected RSI 25, got %v (%v)", rsi, ok)
	}
	if report.TotalScanned != 2 {
		t.Errorf("Expected 2 scanned, got %d", report.TotalScanned)
	}
	if report.Diagnostics.Count() != 0 {
		t.Errorf("Expected no skips, got %+v", report.Diagnostics.Skipped)
	}
	if report.RunID == "" {
		t.Error("Expected a run id")
	}
	if report.Preset != "oversold" {
		t.Errorf("Expected preset oversold, got %s", report.Preset)
	}
}

func TestRunScreenerUnknownPreset(t *testing.T) {
	bars := &fakeBars{}
	s := newTestScanner(bars, nil)

	_, err := s.RunScreener(t.Context(), []string{"BBCA"}, "moonshot")
	if !errors.Is(err, ErrUnknownPreset) {
		t.Fatalf("Expected ErrUnknownPreset, got %v", err)
	}
	if !strings.Contains(err.Error(), "oversold") {
		t.Errorf("Expected available presets in error, got %q", err)
	}
	if len(bars.calls) != 0 {
		t.Errorf("Expected no fetches, got %v", bars.calls)
	}
}

func TestRunScreenerDiagnostics(t *testing.T) {
	bad := zigzag(1000, 1, 3)
	bad[10].Close = math.NaN()

	bars := &fakeBars{
		series: map[string][]model.Candle{
			"BBCA": zigzag(1000, 1, 3),
			"SHRT": zigzag(1000, 1, 3)[:20],
			"NANS": bad,
		},
		errs: map[string]error{"FAIL": errors.New("connection reset")},
	}
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	s := newTestScanner(bars, nil)
	s.SetMetrics(m)

	tickers := []string{"FAIL", "BBCA", "SHRT", "NANS", "NONE"}
	report, err := s.RunScreener(t.Context(), tickers, "oversold")
	if err != nil {
		t.Fatalf("RunScreener failed: %v", err)
	}

	if len(report.Results) != 1 || report.Results[0].Ticker != "BBCA" {
		t.Fatalf("Expected only BBCA, got %+v", report.Results)
	}

	want := []struct {
		unit  string
		stage model.DiagnosticStage
	}{
		{"FAIL", model.StageFetch},
		{"SHRT", model.StageInsufficient},
		{"NANS", model.StageInvalid},
		{"NONE", model.StageFetch},
	}
	if len(report.Diagnostics.Skipped) != len(want) {
		t.Fatalf("Expected %d skips, got %+v", len(want), report.Diagnostics.Skipped)
	}
	for i, w := range want {
		got := report.Diagnostics.Skipped[i]
		if got.Unit != w.unit || got.Stage != w.stage {
			t.Errorf("skip %d: expected %s/%s, got %s/%s", i, w.unit, w.stage, got.Unit, got.Stage)
		}
	}
	if report.Diagnostics.CountBy(model.StageFetch) != 2 {
		t.Errorf("Expected 2 fetch skips, got %d", report.Diagnostics.CountBy(model.StageFetch))
	}

	if got := testutil.ToFloat64(m.TickersScanned.WithLabelValues("screen")); got != 5 {
		t.Errorf("Expected 5 scanned, got %v", got)
	}
	if got := testutil.ToFloat64(m.TickersSkipped.WithLabelValues("fetch")); got != 2 {
		t.Errorf("Expected 2 fetch skips counted, got %v", got)
	}
}

func TestRunScreenerTiesKeepInputOrder(t *testing.T) {
	series := zigzag(1000, 1, 3)
	bars := &fakeBars{series: map[string][]model.Candle{
		"CCCC": series,
		"AAAA": series,
		"BBBB": series,
	}}
	s := newTestScanner(bars, nil)

	for run := 0; run < 5; run++ {
		report, err := s.RunScreener(t.Context(), []string{"CCCC", "AAAA", "BBBB"}, "oversold")
		if err != nil {
			t.Fatalf("RunScreener failed: %v", err)
		}
		var order []string
		for _, r := range report.Results {
			order = append(order, r.Ticker)
		}
		if strings.Join(order, ",") != "CCCC,AAAA,BBBB" {
			t.Fatalf("run %d: expected input order, got %v", run, order)
		}
	}
}

func TestRunScreenerSortsByScore(t *testing.T) {
	bars := &fakeBars{series: map[string][]model.Candle{
		"FLAT": line(60, 1000, 0),
		"UPUP": line(60, 1000, 5),
	}}
	s := newTestScanner(bars, nil)
	Register(Preset{Name: "everything", Match: func(*model.IndicatorSnapshot) bool { return true }})

	report, err := s.RunScreener(t.Context(), []string{"FLAT", "UPUP"}, "everything")
	if err != nil {
		t.Fatalf("RunScreener failed: %v", err)
	}
	if len(report.Results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(report.Results))
	}
	for i := 1; i < len(report.Results); i++ {
		if report.Results[i-1].Score < report.Results[i].Score {
			t.Errorf("Expected descending scores, got %v then %v", report.Results[i-1].Score, report.Results[i].Score)
		}
	}
	if report.Results[0].Ticker != "UPUP" {
		t.Errorf("Expected UPUP first, got %s", report.Results[0].Ticker)
	}
}

func TestScore(t *testing.T) {
	bullish := model.Some(model.TrendBullish)
	tests := []struct {
		name   string
		preset string
		snap   model.IndicatorSnapshot
		want   float64
	}{
		{"base", "momentum", model.IndicatorSnapshot{Signal: model.SignalNeutral}, 50},
		{"buy", "momentum", model.IndicatorSnapshot{Signal: model.SignalBuy}, 70},
		{"bullish", "bullish", model.IndicatorSnapshot{Signal: model.SignalNeutral, Trend: bullish}, 60},
		{"oversold bonus", "oversold", model.IndicatorSnapshot{RSISignal: model.RSIOversold}, 65},
		{"oversold without preset", "rsi-extreme", model.IndicatorSnapshot{RSISignal: model.RSIOversold}, 50},
		{"all", "oversold", model.IndicatorSnapshot{Signal: model.SignalBuy, Trend: bullish, RSISignal: model.RSIOversold}, 95},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Score(tt.preset, &tt.snap); got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestRunScreenerCancelled(t *testing.T) {
	bars := &fakeBars{series: map[string][]model.Candle{"BBCA": zigzag(1000, 1, 3)}}
	s := NewScanner(bars, nil, ratelimit.NewPacer(time.Hour), Config{Workers: 1})

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	report, err := s.RunScreener(ctx, []string{"BBCA"}, "oversold")
	if err != nil {
		t.Fatalf("RunScreener failed: %v", err)
	}
	if len(report.Results) != 0 || report.Diagnostics.CountBy(model.StageFetch) != 1 {
		t.Errorf("Expected a fetch skip, got %+v", report)
	}
}

func TestProgressCallback(t *testing.T) {
	bars := &fakeBars{series: map[string][]model.Candle{}}
	s := newTestScanner(bars, nil)

	var mu sync.Mutex
	var last, total int
	s.SetProgressCallback(func(scanned, n int) {
		mu.Lock()
		defer mu.Unlock()
		if scanned > last {
			last = scanned
		}
		total = n
	})

	if _, err := s.RunScreener(t.Context(), []string{"AAAA", "BBBB", "CCCC", "DDDD"}, "oversold"); err != nil {
		t.Fatalf("RunScreener failed: %v", err)
	}
	if last != 4 || total != 4 {
		t.Errorf("Expected progress 4/4, got %d/%d", last, total)
	}
}

func TestRunTrendScreen(t *testing.T) {
	bars := &fakeBars{series: map[string][]model.Candle{
		"FAST": line(300, 100, 1),
		"MIDL": line(300, 100, 0.5),
		"SLOW": line(300, 100, 0.2),
		"DOWN": line(300, 400, -1),
		"SHRT": line(100, 100, 1),
	}}
	sectors := provider.NewStaticSectors(map[string]string{
		"FAST": "Finance", "MIDL": "Finance", "SLOW": "Finance", "DOWN": "Finance",
	})
	s := newTestScanner(bars, sectors)

	report, err := s.RunTrendScreen(t.Context(), []string{"DOWN", "SLOW", "FAST", "MIDL", "SHRT"}, 7)
	if err != nil {
		t.Fatalf("RunTrendScreen failed: %v", err)
	}

	if len(report.Results) == 0 {
		t.Fatal("Expected results")
	}
	first := report.Results[0]
	if first.Ticker != "FAST" || first.Criteria.Score != 8 {
		t.Errorf("Expected FAST with 8, got %s with %d", first.Ticker, first.Criteria.Score)
	}
	if first.Criteria.SectorRS != 75 {
		t.Errorf("Expected sector RS 75, got %v", first.Criteria.SectorRS)
	}
	if first.Sector != "Finance" {
		t.Errorf("Expected Finance, got %s", first.Sector)
	}
	if first.Stage.Stage != model.Stage2 {
		t.Errorf("Expected %s, got %s", model.Stage2, first.Stage.Stage)
	}

	for i, r := range report.Results {
		if r.Ticker == "DOWN" {
			t.Error("Expected DOWN to be filtered out")
		}
		if r.Criteria.Score < 7 {
			t.Errorf("Expected score >= 7, got %s %d", r.Ticker, r.Criteria.Score)
		}
		if i == 0 {
			continue
		}
		prev := report.Results[i-1].Criteria
		if prev.Score < r.Criteria.Score || (prev.Score == r.Criteria.Score && prev.SectorRS < r.Criteria.SectorRS) {
			t.Errorf("Expected score then RS ordering at %d", i)
		}
	}

	if report.Diagnostics.CountBy(model.StageInsufficient) != 1 {
		t.Errorf("Expected SHRT skipped as insufficient, got %+v", report.Diagnostics.Skipped)
	}
}

func TestRunTrendScreenFallsThroughShortStore(t *testing.T) {
	store := &fakeBars{series: map[string][]model.Candle{
		"BBCA": line(60, 100, 1),
		"TLKM": line(300, 100, 1),
		"SHRT": line(60, 100, 1),
	}}
	live := &fakeBars{series: map[string][]model.Candle{
		"BBCA": line(300, 100, 1),
		"SHRT": line(40, 100, 1),
	}}
	s := newTestScanner(provider.NewFallbackProvider(store, live), nil)

	report, err := s.RunTrendScreen(t.Context(), []string{"BBCA", "TLKM", "SHRT"}, 0)
	if err != nil {
		t.Fatalf("RunTrendScreen failed: %v", err)
	}

	got := map[string]bool{}
	for _, r := range report.Results {
		got[r.Ticker] = true
	}
	if !got["BBCA"] || !got["TLKM"] {
		t.Errorf("Expected BBCA from the live source and TLKM from the store, got %+v", report.Results)
	}

	live.mu.Lock()
	calls := append([]string(nil), live.calls...)
	live.mu.Unlock()
	for _, c := range calls {
		if c == "TLKM" {
			t.Error("Expected a full store series to skip the live source")
		}
	}
	if len(calls) != 2 {
		t.Errorf("Expected live calls for BBCA and SHRT, got %v", calls)
	}

	if len(report.Diagnostics.Skipped) != 1 {
		t.Fatalf("Expected SHRT skipped, got %+v", report.Diagnostics.Skipped)
	}
	skip := report.Diagnostics.Skipped[0]
	if skip.Unit != "SHRT" || skip.Stage != model.StageInsufficient || !strings.Contains(skip.Reason, "got 60") {
		t.Errorf("Expected SHRT insufficient with the longest series, got %+v", skip)
	}
}

func TestRunTrendScreenMinScore(t *testing.T) {
	s := newTestScanner(&fakeBars{}, nil)
	for _, score := range []int{-1, 9} {
		if _, err := s.RunTrendScreen(t.Context(), nil, score); err == nil {
			t.Errorf("Expected error for min score %d", score)
		}
	}
	report, err := s.RunTrendScreen(t.Context(), nil, 0)
	if err != nil {
		t.Fatalf("Expected min score 0 to be accepted, got %v", err)
	}
	if len(report.Results) != 0 {
		t.Errorf("Expected no results, got %d", len(report.Results))
	}
}

func TestAnalyzeTicker(t *testing.T) {
	bars := &fakeBars{series: map[string][]model.Candle{"BBCA": line(300, 100, 1)}}
	s := newTestScanner(bars, nil)

	snap, stage, candles, err := s.AnalyzeTicker(t.Context(), "BBCA")
	if err != nil {
		t.Fatalf("AnalyzeTicker failed: %v", err)
	}
	if snap.Price != 399 || len(candles) != 300 {
		t.Errorf("Expected price 399 over 300 bars, got %v over %d", snap.Price, len(candles))
	}
	if stage.Stage != model.Stage2 {
		t.Errorf("Expected %s, got %s", model.Stage2, stage.Stage)
	}

	if _, _, _, err := s.AnalyzeTicker(t.Context(), "NONE"); err == nil {
		t.Error("Expected error for unknown ticker")
	}
}
