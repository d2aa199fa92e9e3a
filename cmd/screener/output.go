package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/schollz/progressbar/v3"

	"idxscreener/internal/scanner"
	"idxscreener/pkg/model"
)

func newProgressBar(total int, desc string) *progressbar.ProgressBar {
	if format == "json" {
		return progressbar.DefaultSilent(int64(total))
	}
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription(desc),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]█[reset]",
			SaucerHead:    "[green]█[reset]",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}

func outputJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func optFloat(o model.Option[float64], verb string) string {
	if v, ok := o.Get(); ok {
		return fmt.Sprintf(verb, v)
	}
	return "-"
}

func check(b bool) string {
	if b {
		return "✓"
	}
	return "✗"
}

func outputPresets() error {
	table := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{"Preset", "Rule"}),
	)
	for _, name := range scanner.ListPresets() {
		p, _ := scanner.GetPreset(name)
		table.Append([]string{p.Name, p.Description})
	}
	return table.Render()
}

func outputStocks(stocks []model.Stock) error {
	table := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{"Ticker", "Name", "Sector"}),
	)
	for _, s := range stocks {
		table.Append([]string{s.Symbol, s.Name, s.Sector})
	}
	return table.Render()
}

func outputDiagnostics(d *model.Diagnostics) {
	if d.Count() == 0 {
		return
	}
	stages := map[model.DiagnosticStage]int{}
	for _, s := range d.Skipped {
		stages[s.Stage]++
	}
	parts := make([]string, 0, len(stages))
	for stage, n := range stages {
		parts = append(parts, fmt.Sprintf("%s=%d", stage, n))
	}
	sort.Strings(parts)
	fmt.Printf("Skipped %d (%s)\n", d.Count(), strings.Join(parts, ", "))
	if verbose {
		for _, s := range d.Skipped {
			fmt.Printf("  %-10s %-18s %s\n", s.Unit, s.Stage, s.Reason)
		}
	}
}

func outputScreenTable(r *model.ScreenReport) error {
	if len(r.Results) == 0 {
		fmt.Printf("No tickers matched preset %q.\n", r.Preset)
	} else {
		fmt.Printf("Found %d tickers matching %q:\n\n", len(r.Results), r.Preset)

		table := tablewriter.NewTable(os.Stdout,
			tablewriter.WithHeader([]string{"#", "Ticker", "Price", "RSI", "MACD", "Trend", "Signal", "Score"}),
		)
		for i, s := range r.Results {
			trendLabel := "-"
			if tr, ok := s.Trend.Get(); ok {
				trendLabel = string(tr)
			}
			table.Append([]string{
				fmt.Sprintf("%d", i+1),
				s.Ticker,
				fmt.Sprintf("%.0f", s.Price),
				optFloat(s.RSI, "%.1f"),
				s.MACDSignal,
				trendLabel,
				strings.ToUpper(string(s.Signal)),
				fmt.Sprintf("%.0f", s.Score),
			})
		}
		if err := table.Render(); err != nil {
			return err
		}
	}

	fmt.Println()
	outputDiagnostics(&r.Diagnostics)
	fmt.Printf("Scanned %d tickers in %s (run %s)\n", r.TotalScanned, r.ScanTime.Round(time.Second), r.RunID)
	return nil
}

func outputTrendTable(r *model.TrendScreenReport) error {
	if len(r.Results) == 0 {
		fmt.Printf("No tickers met %d of 8 trend criteria.\n", r.MinScore)
	} else {
		fmt.Printf("Found %d tickers with score >= %d:\n\n", len(r.Results), r.MinScore)

		table := tablewriter.NewTable(os.Stdout,
			tablewriter.WithHeader([]string{"#", "Ticker", "Sector", "Price", "1Y %", "RS", "Score", "Stage"}),
		)
		for i, t := range r.Results {
			table.Append([]string{
				fmt.Sprintf("%d", i+1),
				t.Ticker,
				t.Sector,
				fmt.Sprintf("%.0f", t.Price),
				fmt.Sprintf("%+.1f", t.YearReturn),
				fmt.Sprintf("%.0f", t.Criteria.SectorRS),
				fmt.Sprintf("%d/8", t.Criteria.Score),
				string(t.Stage.Stage),
			})
		}
		if err := table.Render(); err != nil {
			return err
		}
	}

	fmt.Println()
	outputDiagnostics(&r.Diagnostics)
	fmt.Printf("Scanned %d tickers in %s (run %s)\n", r.TotalScanned, r.ScanTime.Round(time.Second), r.RunID)
	return nil
}

var criteriaLabels = [8]string{
	"Price above MA150 and MA200",
	"MA150 above MA200",
	"MA200 trending up",
	"MA50 above MA150 and MA200",
	"Price above MA50",
	"30% above 52-week low",
	"Within 25% of 52-week high",
	"Sector RS at least 70",
}

func outputStage(v *stageView) error {
	s := &v.Snapshot
	fmt.Printf("[%s] %.0f as of %s (%d bars)\n\n", s.Ticker, s.Price, s.Date.Format("2006-01-02"), s.Bars)

	macd := "-"
	if m, ok := s.MACD.Get(); ok {
		macd = fmt.Sprintf("%.2f / %.2f (%s)", m.Line, m.Signal, s.MACDDirection())
	}
	levels := "-"
	if lv, ok := s.Levels.Get(); ok {
		levels = fmt.Sprintf("%.0f / %.0f", lv.Support, lv.Resistance)
	}
	trendLabel := "-"
	if tr, ok := s.Trend.Get(); ok {
		trendLabel = string(tr)
	}

	table := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{"Indicator", "Value"}),
	)
	table.Append([]string{"RSI(14)", fmt.Sprintf("%s (%s)", optFloat(s.RSI, "%.1f"), s.RSISignal)})
	table.Append([]string{"SMA 20/50/200", fmt.Sprintf("%s / %s / %s", optFloat(s.SMAAt(20), "%.0f"), optFloat(s.SMAAt(50), "%.0f"), optFloat(s.SMAAt(200), "%.0f"))})
	table.Append([]string{"MACD", macd})
	table.Append([]string{"ATR(14)", optFloat(s.ATR, "%.1f")})
	table.Append([]string{"Support / Resistance", levels})
	table.Append([]string{"Volume ratio", optFloat(s.VolumeRatio, "%.2fx")})
	table.Append([]string{"Trend", trendLabel})
	table.Append([]string{"Signal", strings.ToUpper(string(s.Signal))})
	if err := table.Render(); err != nil {
		return err
	}

	fmt.Printf("\nStage: %s (confidence %.0f)\n", v.Stage.Stage, v.Stage.Confidence)
	for _, sig := range v.Stage.Signals {
		fmt.Printf("  - %s\n", sig)
	}

	if r, ok := v.Range.Get(); ok {
		fmt.Printf("\n52-week range: %.0f - %.0f (position %.0f%%)\n", r.Low, r.High, r.Position(s.Price)*100)
	}

	c, ok := v.Criteria.Get()
	if !ok {
		fmt.Println("\nTrend template: insufficient data (needs 252 bars)")
		return nil
	}
	fmt.Printf("\nTrend template: %d/8 (sector RS %.0f)\n", c.Score, c.SectorRS)
	for i, passed := range c.Flags() {
		fmt.Printf("  %s C%d %s\n", check(passed), i+1, criteriaLabels[i])
	}
	return nil
}

func outputBandar(r *model.BandarmologyResult) error {
	fmt.Printf("[%s] %d of %d days analyzed\n\n", r.Ticker, len(r.DailyFlows), r.RequestedDays)
	fmt.Printf("Phase:     %s\n", r.Phase)
	fmt.Printf("Momentum:  %.2f (%s)\n", r.MomentumScore, strings.ToUpper(string(r.MomentumSignal)))
	fmt.Printf("Acc/Dist:  %d / %d days\n", r.AccDays, r.DistDays)
	fmt.Printf("Net flow:  smart money %.0f, retail %.0f\n\n", r.SmartMoneyNet, r.RetailNet)

	cats := make([]string, 0, len(r.BrokerComposition))
	for c := range r.BrokerComposition {
		cats = append(cats, string(c))
	}
	sort.Strings(cats)
	comp := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{"Category", "Share"}),
	)
	for _, c := range cats {
		comp.Append([]string{c, fmt.Sprintf("%.1f%%", r.BrokerComposition[model.BrokerCategory(c)])})
	}
	if err := comp.Render(); err != nil {
		return err
	}

	if len(r.TopAccumulators) > 0 {
		fmt.Println("\nTop accumulators:")
		for _, b := range r.TopAccumulators {
			fmt.Printf("  %-4s %-11s %.0f\n", b.BrokerCode, b.Category, b.NetValue)
		}
	}
	if len(r.PatternAlerts) > 0 {
		fmt.Println("\nAlerts:")
		for _, alert := range r.PatternAlerts {
			fmt.Printf("  ! %s\n", alert)
		}
	}
	fmt.Printf("\n>> %s\n", r.Recommendation)

	fmt.Println()
	outputDiagnostics(&r.Diagnostics)
	return nil
}

func outputPlan(p *model.TradingPlanResult) error {
	fmt.Printf("[%s] trading plan (tick %.0f)\n\n", p.Ticker, p.TickSize)

	table := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{"Level", "Price", "Change"}),
	)
	rows := []model.PriceLevel{p.Entry, p.StopLoss, p.TakeProfit[0], p.TakeProfit[1], p.TakeProfit[2]}
	for _, l := range rows {
		table.Append([]string{l.Label, fmt.Sprintf("%.0f", l.Price), fmt.Sprintf("%+.2f%%", l.Percent)})
	}
	if err := table.Render(); err != nil {
		return err
	}

	rr := p.RiskReward
	fmt.Printf("\nRisk/share %.0f | R:R TP1 %.2f, TP2 %.2f | quality %s\n", rr.RiskPerShare, rr.RRToTP1, rr.RRToTP2, strings.ToUpper(string(rr.Quality)))
	if atr, ok := p.ATR.Get(); ok {
		fmt.Printf("ATR(14) %.1f\n", atr)
	}
	if s, ok := p.PositionSizing.Get(); ok {
		fmt.Printf("Size: %d lots (%d shares), value %.0f (%.1f%% of account), risk %.0f of max %.0f\n",
			s.Lots, s.Shares, s.PositionValue, s.AccountPercent, s.ActualRisk, s.MaxRiskAmount)
	}

	fmt.Println("\nExecution:")
	for i, step := range p.ExecutionStrategy {
		fmt.Printf("  %d. %s\n", i+1, step)
	}
	return nil
}
