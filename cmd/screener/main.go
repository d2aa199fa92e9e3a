package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/phuslu/log"
	"github.com/spf13/cobra"

	"idxscreener/internal/bandar"
	"idxscreener/internal/cache"
	"idxscreener/internal/config"
	"idxscreener/internal/logging"
	"idxscreener/internal/metrics"
	"idxscreener/internal/provider"
	"idxscreener/internal/ratelimit"
	"idxscreener/internal/scanner"
	"idxscreener/internal/store"
	"idxscreener/internal/symbols"
)

var (
	cfgFile    string
	format     string
	verbose    bool
	symbolList string
	symbolFile string
	universe   string
	workers    int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "screener",
		Short: "IDX equities screener: technicals, trend template, stages and broker flow",
		Long: `screener scans Indonesia Stock Exchange tickers.

Commands:
  screen    - preset screen (oversold, bullish, breakout, ...)
  trend     - 8-point trend template with sector relative strength
  stage     - technical snapshot and market stage of one ticker
  bandar    - broker flow (bandarmology) analysis of one ticker
  plan      - trading plan with stop, take-profits and lot sizing
  sync      - backfill the bar/flow store
  schedule  - run screens on a weekday schedule
  universe  - list the resolved tickers

Examples:
  screener screen --preset oversold --universe lq45
  screener trend --min-score 7 --symbols BBCA,BBRI,TLKM
  screener plan BBCA --target1 10500 --target2 11500 --account 100000000`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml", "config file path")
	rootCmd.PersistentFlags().StringVar(&format, "format", "table", "output format: table, json")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "debug logging")
	rootCmd.PersistentFlags().StringVar(&symbolList, "symbols", "", "comma-separated tickers (overrides --universe)")
	rootCmd.PersistentFlags().StringVar(&symbolFile, "file", "", "file with one ticker per line (overrides --universe)")
	rootCmd.PersistentFlags().StringVar(&universe, "universe", "", "ticker universe: lq45, idx30, banks, test")
	rootCmd.PersistentFlags().IntVar(&workers, "workers", 0, "number of parallel workers")

	rootCmd.AddCommand(
		screenCmd(),
		trendCmd(),
		stageCmd(),
		bandarCmd(),
		planCmd(),
		syncCmd(),
		scheduleCmd(),
		universeCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app is the wired set of components shared by the commands
type app struct {
	cfg      *config.Config
	logger   *log.Logger
	metrics  *metrics.Metrics
	store    *store.Store
	cache    cache.Cache
	live     provider.BarProvider
	bars     *provider.FallbackProvider
	sectors  *provider.StaticSectors
	loader   *symbols.Loader
	pacers   *ratelimit.Pacers
	scanner  *scanner.Scanner
	brokers  *bandar.BrokerTable
	analyzer *bandar.Analyzer
	closers  []func() error
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if workers > 0 {
		cfg.Scanner.Workers = workers
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	a := &app{
		cfg:     cfg,
		logger:  logging.New(cfg.Log.Level, cfg.Log.Format),
		metrics: metrics.New(nil),
		loader:  symbols.NewLoader(),
		pacers:  ratelimit.NewPacers(),
	}

	if cfg.Store.DSN != "" {
		st, err := store.Open(cfg.Store.DSN)
		if err != nil {
			return nil, fmt.Errorf("opening store: %w", err)
		}
		a.store = st
		a.closers = append(a.closers, st.Close)
	}

	switch cfg.Cache.Backend {
	case "redis":
		rc, err := cache.NewRedis(ctx, cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connecting to redis: %w", err)
		}
		a.cache = rc
		a.closers = append(a.closers, rc.Close)
	case "memory", "":
		a.cache = cache.NewMemory()
	}

	a.live = provider.NewYahooProvider(cfg.Yahoo.BaseURL, cfg.Yahoo.RateLimit, cfg.Yahoo.Timeout, a.metrics)
	var primary []provider.BarProvider
	if a.store != nil {
		primary = append(primary, provider.NewStoreProvider(a.store))
	}
	live := a.live
	if a.cache != nil {
		cp := provider.NewCachingProvider(a.live, a.cache, cfg.Cache.TTL, cfg.Cache.MaxDays)
		cp.SetLogger(a.logger)
		live = cp
	}
	a.bars = provider.NewFallbackProvider(append(primary, live)...)

	if cfg.Sectors.Path != "" {
		if err := a.loader.LoadSectorFile(cfg.Sectors.Path); err != nil {
			a.Close()
			return nil, err
		}
	}
	a.sectors = provider.NewStaticSectors(a.loader.Sectors())

	a.scanner = scanner.NewScanner(a.bars, a.sectors, a.pacers.Add("bars", cfg.Scanner.Pacing), scanner.Config{
		Workers:      cfg.Scanner.Workers,
		FetchTimeout: cfg.Scanner.Timeout,
		ScreenDays:   cfg.Scanner.ScreenDays,
	})
	a.scanner.SetLogger(a.logger)
	a.scanner.SetMetrics(a.metrics)

	a.brokers = bandar.DefaultBrokerTable()
	if cfg.Brokers.Path != "" {
		if a.brokers, err = bandar.LoadBrokerTable(cfg.Brokers.Path); err != nil {
			a.Close()
			return nil, err
		}
	}
	var flows []provider.FlowProvider
	if a.store != nil {
		flows = append(flows, provider.NewStoreFlowProvider(a.store))
	}
	if fp := a.flowSource(); fp != nil {
		flows = append(flows, fp)
	}
	a.analyzer = bandar.NewAnalyzer(
		provider.NewFallbackFlowProvider(flows...),
		a.brokers,
		a.pacers.Add("flow", cfg.Flow.Pacing),
		bandar.WithLogger(a.logger),
		bandar.WithMetrics(a.metrics),
	)

	a.logger.Debug().
		Str("bars", a.bars.Name()).
		Bool("store", a.store != nil).
		Str("cache", cfg.Cache.Backend).
		Int("workers", cfg.Scanner.Workers).
		Msg("components ready")
	return a, nil
}

// flowSource returns the live broker-summary client, nil when no endpoint is configured
func (a *app) flowSource() *provider.HTTPFlowProvider {
	if a.cfg.Flow.BaseURL == "" {
		return nil
	}
	return provider.NewHTTPFlowProvider(a.cfg.Flow.BaseURL, a.cfg.Flow.Token, 0, a.metrics)
}

// Close releases the store and cache connections
func (a *app) Close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			a.logger.Warn().Err(err).Msg("close failed")
		}
	}
	a.closers = nil
}

// tickers resolves the ticker list from --symbols, --file or the universe
func (a *app) tickers() ([]string, error) {
	var raw []string
	switch {
	case symbolList != "":
		raw = strings.Split(symbolList, ",")
	case symbolFile != "":
		lines, err := a.loader.LoadFile(symbolFile)
		if err != nil {
			return nil, err
		}
		raw = lines
	default:
		u := universe
		if u == "" {
			u = a.cfg.Scanner.Universe
		}
		raw = symbols.GetUniverse(symbols.Universe(u))
		if raw == nil {
			return nil, fmt.Errorf("unknown universe %q (available: %v)", u, symbols.Universes)
		}
	}

	tickers := a.loader.LoadSymbols(raw)
	if len(tickers) == 0 {
		return nil, fmt.Errorf("no tickers to scan")
	}
	return tickers, nil
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// withApp runs fn with a wired app and an interruptible context
func withApp(fn func(ctx context.Context, a *app) error) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}
