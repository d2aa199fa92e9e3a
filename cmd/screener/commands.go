package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"idxscreener/internal/bandar"
	"idxscreener/internal/position"
	"idxscreener/internal/scanner"
	"idxscreener/internal/scheduler"
	"idxscreener/internal/trend"
	"idxscreener/pkg/model"
)

func screenCmd() *cobra.Command {
	var preset string
	var list bool

	cmd := &cobra.Command{
		Use:   "screen",
		Short: "Screen a universe with a preset rule",
		RunE: func(cmd *cobra.Command, args []string) error {
			if list {
				return outputPresets()
			}
			return withApp(func(ctx context.Context, a *app) error {
				tickers, err := a.tickers()
				if err != nil {
					return err
				}
				if _, err := scanner.GetPreset(preset); err != nil {
					return err
				}

				fmt.Fprintf(os.Stderr, "Screening %d tickers with preset %q...\n", len(tickers), preset)
				bar := newProgressBar(len(tickers), "Screening")
				a.scanner.SetProgressCallback(func(scanned, total int) { bar.Set(scanned) })

				report, err := a.scanner.RunScreener(ctx, tickers, preset)
				bar.Finish()
				fmt.Fprintln(os.Stderr)
				if err != nil {
					return fmt.Errorf("screening: %w", err)
				}

				if format == "json" {
					return outputJSON(report)
				}
				return outputScreenTable(&report)
			})
		},
	}
	cmd.Flags().StringVar(&preset, "preset", "oversold", "screen preset")
	cmd.Flags().BoolVar(&list, "list", false, "list presets and exit")
	return cmd
}

func trendCmd() *cobra.Command {
	minScore := -1

	cmd := &cobra.Command{
		Use:   "trend",
		Short: "Evaluate the 8-point trend template with sector relative strength",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app) error {
				tickers, err := a.tickers()
				if err != nil {
					return err
				}
				if minScore < 0 {
					minScore = a.cfg.Trend.MinScore
				}

				fmt.Fprintf(os.Stderr, "Evaluating %d tickers (min score %d)...\n", len(tickers), minScore)
				bar := newProgressBar(len(tickers), "Fetching")
				a.scanner.SetProgressCallback(func(scanned, total int) { bar.Set(scanned) })

				report, err := a.scanner.RunTrendScreen(ctx, tickers, minScore)
				bar.Finish()
				fmt.Fprintln(os.Stderr)
				if err != nil {
					return fmt.Errorf("trend screen: %w", err)
				}

				if format == "json" {
					return outputJSON(report)
				}
				return outputTrendTable(&report)
			})
		},
	}
	cmd.Flags().IntVar(&minScore, "min-score", -1, "minimum criteria met, 0-8 (default from config)")
	return cmd
}

// stageView is the single-ticker technical report
type stageView struct {
	Snapshot model.IndicatorSnapshot           `json:"snapshot"`
	Stage    model.StageClassification         `json:"stage"`
	Criteria model.Option[model.TrendCriteria] `json:"criteria"`
	Range    model.Option[trend.Range52]       `json:"range_52w"`
}

func stageCmd() *cobra.Command {
	var sectorRS float64

	cmd := &cobra.Command{
		Use:   "stage TICKER",
		Short: "Show the technical snapshot, trend criteria and stage of one ticker",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app) error {
				ticker, err := a.singleTicker(args[0])
				if err != nil {
					return err
				}

				snap, stage, candles, err := a.scanner.AnalyzeTicker(ctx, ticker)
				if err != nil {
					return err
				}
				view := stageView{
					Snapshot: snap,
					Stage:    stage,
					Criteria: trend.EvaluateCriteria(candles, sectorRS),
					Range:    trend.Calculate52WeekRange(candles),
				}

				if format == "json" {
					return outputJSON(view)
				}
				return outputStage(&view)
			})
		},
	}
	cmd.Flags().Float64Var(&sectorRS, "sector-rs", 50, "sector relative strength percentile to assume for C8")
	return cmd
}

func bandarCmd() *cobra.Command {
	days := 0

	cmd := &cobra.Command{
		Use:   "bandar TICKER",
		Short: "Analyze broker flow over recent trading days",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app) error {
				ticker, err := a.singleTicker(args[0])
				if err != nil {
					return err
				}
				if a.store == nil && a.cfg.Flow.BaseURL == "" {
					return errors.New("no broker flow source: set store.dsn or flow.base_url (IDX_FLOW_BASE_URL)")
				}
				if days <= 0 {
					days = a.cfg.Flow.Days
				}

				fmt.Fprintf(os.Stderr, "Fetching %d days of broker flow for %s...\n", days, ticker)
				result := a.analyzer.Analyze(ctx, ticker, days)

				if format == "json" {
					return outputJSON(result)
				}
				return outputBandar(&result)
			})
		},
	}
	cmd.Flags().IntVar(&days, "days", 0, "trading days to analyze (default from config)")
	return cmd
}

func planCmd() *cobra.Command {
	var in position.PlanInput
	var atr float64

	cmd := &cobra.Command{
		Use:   "plan TICKER",
		Short: "Build a trading plan with stop loss, take-profits and lot sizing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app) error {
				ticker, err := a.singleTicker(args[0])
				if err != nil {
					return err
				}
				in.Ticker = ticker
				if !cmd.Flags().Changed("account") {
					in.AccountSize = a.cfg.Plan.AccountSize
				}
				if !cmd.Flags().Changed("risk") {
					in.RiskPercent = a.cfg.Plan.RiskPercent
				}
				if atr > 0 {
					in.ATR = model.Some(atr)
				}

				// Without an explicit price, use the last close and its bars for ATR
				if in.Price <= 0 {
					snap, _, candles, err := a.scanner.AnalyzeTicker(ctx, ticker)
					if err != nil {
						return err
					}
					in.Price = snap.Price
					in.Bars = candles
				}

				plan, err := position.GeneratePlan(in)
				if err != nil {
					return err
				}
				if format == "json" {
					return outputJSON(plan)
				}
				return outputPlan(&plan)
			})
		},
	}
	cmd.Flags().Float64Var(&in.Price, "price", 0, "entry price (default: last close)")
	cmd.Flags().Float64Var(&in.Target1, "target1", 0, "first target price")
	cmd.Flags().Float64Var(&in.Target2, "target2", 0, "second target price")
	cmd.Flags().Float64Var(&atr, "atr", 0, "ATR override (default: computed from bars)")
	cmd.Flags().Float64Var(&in.AccountSize, "account", 0, "account size in rupiah (default from config)")
	cmd.Flags().Float64Var(&in.RiskPercent, "risk", 0, "percent of account risked (default from config)")
	_ = cmd.MarkFlagRequired("target1")
	_ = cmd.MarkFlagRequired("target2")
	return cmd
}

func syncCmd() *cobra.Command {
	var days, flowDays int

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Backfill daily bars and broker flow into the store",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app) error {
				if a.store == nil {
					return errors.New("sync needs a store: set store.dsn or IDX_DATABASE_DSN")
				}
				if err := a.store.AutoMigrate(); err != nil {
					return err
				}
				tickers, err := a.tickers()
				if err != nil {
					return err
				}

				bar := newProgressBar(len(tickers), "Syncing")
				var synced, failed int
				for i, t := range tickers {
					if ctx.Err() != nil {
						break
					}
					if err := a.syncBars(ctx, t, days); err != nil {
						failed++
						a.logger.Warn().Str("ticker", t).Err(err).Msg("bar sync failed")
					} else {
						synced++
					}
					if flowDays > 0 {
						a.syncFlows(ctx, t, flowDays)
					}
					bar.Set(i + 1)
				}
				bar.Finish()
				fmt.Fprintln(os.Stderr)

				fmt.Printf("Synced %d tickers, %d failed\n", synced, failed)
				return ctx.Err()
			})
		},
	}
	cmd.Flags().IntVar(&days, "days", 400, "bars to backfill for tickers not yet stored")
	cmd.Flags().IntVar(&flowDays, "flow-days", 0, "trading days of broker flow to store (needs flow.base_url)")
	return cmd
}

// syncBars fetches bars newer than the latest stored one from the live source
func (a *app) syncBars(ctx context.Context, ticker string, days int) error {
	latest, err := a.store.LatestBarDate(ctx, ticker)
	if err != nil {
		return err
	}
	if !latest.IsZero() {
		// Refetch a few overlapping bars so late corrections land
		gap := int(time.Since(latest).Hours()/24) + 5
		if gap < days {
			days = gap
		}
	}

	if err := a.pacers.Wait(ctx, "bars"); err != nil {
		return err
	}
	candles, err := a.live.GetBars(ctx, ticker, days)
	if err != nil {
		return err
	}
	if err := a.store.UpsertBars(ctx, ticker, a.live.Name(), candles); err != nil {
		return err
	}
	a.logger.Debug().Str("ticker", ticker).Int("bars", len(candles)).Msg("bars synced")
	return nil
}

// syncFlows stores the last n weekdays of broker flow from the live endpoint
func (a *app) syncFlows(ctx context.Context, ticker string, n int) {
	src := a.flowSource()
	if src == nil {
		return
	}
	date := time.Now()
	for i := 0; i < n && ctx.Err() == nil; i++ {
		date = bandar.PreviousWeekday(date)
		if err := a.pacers.Wait(ctx, "flow"); err != nil {
			return
		}
		flow, err := src.GetDailyBrokerFlow(ctx, ticker, date)
		if err != nil || flow == nil {
			a.metrics.FlowDay("skipped")
			continue
		}
		a.brokers.Annotate(flow)
		if flow.AccDistTag == "" {
			flow.AccDistTag = bandar.DeriveAccDistTag(*flow)
		}
		if err := a.store.SaveBrokerFlow(ctx, ticker, *flow); err != nil {
			a.logger.Warn().Str("ticker", ticker).Err(err).Msg("flow save failed")
			continue
		}
		a.metrics.FlowDay("fetched")
	}
}

func scheduleCmd() *cobra.Command {
	var runNow bool

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run the preset and trend screens every weekday after the close",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app) error {
				tickers, err := a.tickers()
				if err != nil {
					return err
				}
				loc, err := time.LoadLocation(a.cfg.Schedule.Timezone)
				if err != nil {
					return err
				}

				s := scheduler.New(ctx, a.scanner, scheduler.Config{
					Spec:     a.cfg.Schedule.Cron,
					Location: loc,
					Preset:   a.cfg.Schedule.Preset,
					MinScore: a.cfg.Trend.MinScore,
					Tickers:  tickers,
				}, a.logger)
				if err := s.Register(); err != nil {
					return err
				}

				var srv *http.Server
				if a.cfg.Metrics.Addr != "" {
					mux := http.NewServeMux()
					mux.Handle("/metrics", a.metrics.Handler())
					srv = &http.Server{Addr: a.cfg.Metrics.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
					go func() {
						if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
							a.logger.Error().Err(err).Msg("metrics server failed")
						}
					}()
					a.logger.Info().Str("addr", a.cfg.Metrics.Addr).Msg("serving metrics")
				}

				s.Start()
				if runNow {
					go s.RunNow()
				}
				<-ctx.Done()

				s.Stop()
				if srv != nil {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					_ = srv.Shutdown(shutdownCtx)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&runNow, "run-now", false, "run once immediately after starting")
	return cmd
}

func universeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "universe",
		Short: "List the resolved tickers with name and sector",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app) error {
				tickers, err := a.tickers()
				if err != nil {
					return err
				}
				stocks := a.loader.Stocks(tickers)
				if format == "json" {
					return outputJSON(stocks)
				}
				return outputStocks(stocks)
			})
		},
	}
}

// singleTicker validates one ticker argument
func (a *app) singleTicker(arg string) (string, error) {
	tickers := a.loader.LoadSymbols([]string{arg})
	if len(tickers) != 1 {
		return "", fmt.Errorf("invalid ticker %q", strings.TrimSpace(arg))
	}
	return tickers[0], nil
}
