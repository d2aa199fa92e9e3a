package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/phuslu/log"
	"github.com/robfig/cron/v3"

	"idxscreener/internal/logging"
	"idxscreener/pkg/model"
)

// topN is how many results of each run are logged
const topN = 5

// Screener is the part of the scanner the scheduled job drives
type Screener interface {
	RunScreener(ctx context.Context, tickers []string, preset string) (model.ScreenReport, error)
	RunTrendScreen(ctx context.Context, tickers []string, minScore int) (model.TrendScreenReport, error)
}

// Config describes the scheduled screening job
type Config struct {
	Spec     string         // cron spec with seconds, e.g. "0 30 16 * * 1-5"
	Location *time.Location // nil means Asia/Jakarta
	Preset   string
	MinScore int
	Tickers  []string
}

// Result is the outcome of one scheduled run
type Result struct {
	Screen model.ScreenReport
	Trend  model.TrendScreenReport
	Err    error
}

// Scheduler runs the preset and trend screens on a cron schedule
type Scheduler struct {
	cron     *cron.Cron
	screener Screener
	cfg      Config
	logger   *log.Logger
	ctx      context.Context

	mu      sync.Mutex
	last    *Result
	entryID cron.EntryID
}

// New creates a scheduler. Jobs run with ctx and stop starting once it is done.
func New(ctx context.Context, screener Screener, cfg Config, logger *log.Logger) *Scheduler {
	if cfg.Location == nil {
		loc, err := time.LoadLocation("Asia/Jakarta")
		if err != nil {
			loc = time.FixedZone("WIB", 7*3600)
		}
		cfg.Location = loc
	}
	logger = logging.OrNop(logger)
	cl := cronLogger{logger}

	return &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLocation(cfg.Location),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		screener: screener,
		cfg:      cfg,
		logger:   logger,
		ctx:      ctx,
	}
}

// Register adds the screening job to the cron table
func (s *Scheduler) Register() error {
	id, err := s.cron.AddFunc(s.cfg.Spec, func() { s.RunNow() })
	if err != nil {
		return fmt.Errorf("register screening job %q: %w", s.cfg.Spec, err)
	}
	s.entryID = id
	return nil
}

// Start starts the cron scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info().Str("spec", s.cfg.Spec).Str("tz", s.cfg.Location.String()).Time("next", s.Next()).Msg("scheduler started")
}

// Stop stops the scheduler and waits for a running job to finish
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info().Msg("scheduler stopped")
}

// Next returns the next fire time, zero before Register
func (s *Scheduler) Next() time.Time {
	if s.entryID == 0 {
		return time.Time{}
	}
	e := s.cron.Entry(s.entryID)
	if !e.Next.IsZero() {
		return e.Next
	}
	return e.Schedule.Next(time.Now().In(s.cfg.Location))
}

// Last returns the most recent run, nil if none has completed
func (s *Scheduler) Last() *Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// RunNow runs both screens immediately
func (s *Scheduler) RunNow() Result {
	var res Result
	if err := s.ctx.Err(); err != nil {
		res.Err = err
		return res
	}

	s.logger.Info().Int("tickers", len(s.cfg.Tickers)).Str("preset", s.cfg.Preset).Msg("scheduled screen starting")

	screen, err := s.screener.RunScreener(s.ctx, s.cfg.Tickers, s.cfg.Preset)
	if err != nil {
		res.Err = fmt.Errorf("preset screen: %w", err)
		s.logger.Error().Err(err).Msg("scheduled preset screen failed")
	} else {
		res.Screen = screen
		s.logScreen(&screen)
	}

	tr, err := s.screener.RunTrendScreen(s.ctx, s.cfg.Tickers, s.cfg.MinScore)
	if err != nil {
		if res.Err == nil {
			res.Err = fmt.Errorf("trend screen: %w", err)
		}
		s.logger.Error().Err(err).Msg("scheduled trend screen failed")
	} else {
		res.Trend = tr
		s.logTrend(&tr)
	}

	s.mu.Lock()
	s.last = &res
	s.mu.Unlock()
	return res
}

func (s *Scheduler) logScreen(r *model.ScreenReport) {
	s.logger.Info().
		Str("run_id", r.RunID).
		Str("preset", r.Preset).
		Int("matched", len(r.Results)).
		Int("skipped", r.Diagnostics.Count()).
		Msg("scheduled preset screen done")
	for i, row := range r.Results {
		if i == topN {
			break
		}
		s.logger.Info().Int("rank", i+1).Str("ticker", row.Ticker).Float64("price", row.Price).Float64("score", row.Score).Str("signal", string(row.Signal)).Msg("screen hit")
	}
}

func (s *Scheduler) logTrend(r *model.TrendScreenReport) {
	s.logger.Info().
		Str("run_id", r.RunID).
		Int("min_score", r.MinScore).
		Int("matched", len(r.Results)).
		Int("skipped", r.Diagnostics.Count()).
		Msg("scheduled trend screen done")
	for i, row := range r.Results {
		if i == topN {
			break
		}
		s.logger.Info().Int("rank", i+1).Str("ticker", row.Ticker).Str("sector", row.Sector).Int("score", row.Criteria.Score).Float64("rs", row.Criteria.SectorRS).Str("stage", string(row.Stage.Stage)).Msg("trend hit")
	}
}

// cronLogger adapts the structured logger to cron.Logger
type cronLogger struct {
	l *log.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	withPairs(c.l.Debug(), keysAndValues).Msg(msg)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	withPairs(c.l.Error().Err(err), keysAndValues).Msg(msg)
}

func withPairs(e *log.Entry, kv []any) *log.Entry {
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			key = fmt.Sprint(kv[i])
		}
		e = e.Any(key, kv[i+1])
	}
	return e
}
