package scanner

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/phuslu/log"

	"idxscreener/internal/logging"
	"idxscreener/internal/metrics"
	"idxscreener/internal/provider"
	"idxscreener/internal/ratelimit"
	"idxscreener/pkg/model"
)

const (
	// MinScreenBars is the shortest history a preset screen accepts
	MinScreenBars = 35

	defaultWorkers      = 4
	defaultFetchTimeout = 20 * time.Second
	defaultScreenDays   = 300
)

// ProgressCallback is called with progress updates
type ProgressCallback func(scanned, total int)

// Config tunes a Scanner
type Config struct {
	Workers      int
	FetchTimeout time.Duration // per-ticker fetch deadline
	ScreenDays   int           // bars requested for preset screens
}

// Scanner runs screens over a ticker universe with a bounded worker pool.
// Every fetch passes through the shared pacer.
type Scanner struct {
	bars         provider.BarProvider
	sectors      provider.SectorProvider
	pacer        *ratelimit.Pacer
	cfg          Config
	logger       *log.Logger
	metrics      *metrics.Metrics
	progressFunc ProgressCallback
}

// NewScanner creates a new scanner
func NewScanner(bars provider.BarProvider, sectors provider.SectorProvider, pacer *ratelimit.Pacer, cfg Config) *Scanner {
	if cfg.Workers < 1 {
		cfg.Workers = defaultWorkers
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = defaultFetchTimeout
	}
	if cfg.ScreenDays < MinScreenBars {
		cfg.ScreenDays = defaultScreenDays
	}
	if sectors == nil {
		sectors = provider.NewStaticSectors(nil)
	}
	return &Scanner{
		bars:    bars,
		sectors: sectors,
		pacer:   pacer,
		cfg:     cfg,
		logger:  logging.Nop(),
	}
}

// SetLogger sets the logger
func (s *Scanner) SetLogger(l *log.Logger) {
	s.logger = logging.OrNop(l)
}

// SetMetrics sets the metrics sink
func (s *Scanner) SetMetrics(m *metrics.Metrics) {
	s.metrics = m
}

// SetProgressCallback sets the progress callback function
func (s *Scanner) SetProgressCallback(fn ProgressCallback) {
	s.progressFunc = fn
}

// fetched is the outcome of one ticker's fetch, kept at its input index
type fetched struct {
	ticker  string
	candles []model.Candle
	skip    *model.Skip
}

func skipOf(ticker string, stage model.DiagnosticStage, reason string) *model.Skip {
	return &model.Skip{Unit: ticker, Stage: stage, Reason: reason}
}

// fetchAll loads bars for every ticker through the worker pool.
// Results come back in input order; failures carry a Skip instead of candles.
func (s *Scanner) fetchAll(ctx context.Context, run string, tickers []string, days, minBars int) []fetched {
	out := make([]fetched, len(tickers))
	jobs := make(chan int, len(tickers))
	for i := range tickers {
		jobs <- i
	}
	close(jobs)

	var scannedCount int64
	var wg sync.WaitGroup
	for w := 0; w < s.cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				out[i] = s.fetchOne(ctx, tickers[i], days, minBars)
				s.metrics.Scanned(run)
				if out[i].skip != nil {
					s.metrics.Skipped(string(out[i].skip.Stage))
					s.logger.Debug().Str("ticker", tickers[i]).Str("stage", string(out[i].skip.Stage)).Str("reason", out[i].skip.Reason).Msg("skipped")
				}

				count := atomic.AddInt64(&scannedCount, 1)
				if s.progressFunc != nil {
					s.progressFunc(int(count), len(tickers))
				}
			}
		}()
	}
	wg.Wait()
	return out
}

func (s *Scanner) fetchOne(ctx context.Context, ticker string, days, minBars int) fetched {
	f := fetched{ticker: ticker}

	if err := s.pacer.Wait(ctx); err != nil {
		f.skip = skipOf(ticker, model.StageFetch, err.Error())
		return f
	}

	fctx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout)
	defer cancel()

	var candles []model.Candle
	var err error
	if mb, ok := s.bars.(provider.MinBarsProvider); ok {
		candles, err = mb.GetBarsMin(fctx, ticker, days, minBars)
	} else {
		candles, err = s.bars.GetBars(fctx, ticker, days)
	}
	if err != nil {
		f.skip = skipOf(ticker, model.StageFetch, err.Error())
		return f
	}
	if len(candles) < minBars {
		f.skip = skipOf(ticker, model.StageInsufficient, fmt.Sprintf("need %d bars, got %d", minBars, len(candles)))
		return f
	}
	if !validBars(candles) {
		f.skip = skipOf(ticker, model.StageInvalid, "non-finite or non-positive price in bars")
		return f
	}

	f.candles = candles
	return f
}

func validBars(candles []model.Candle) bool {
	for _, c := range candles {
		for _, v := range [4]float64{c.Open, c.High, c.Low, c.Close} {
			if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
				return false
			}
		}
	}
	return true
}
