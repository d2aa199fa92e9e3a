package bandar

import (
	"context"
	"time"

	"github.com/phuslu/log"

	"idxscreener/internal/logging"
	"idxscreener/internal/metrics"
	"idxscreener/internal/provider"
	"idxscreener/internal/ratelimit"
	"idxscreener/pkg/model"
)

// Analyzer fetches a window of daily broker flows and classifies them
type Analyzer struct {
	flows   provider.FlowProvider
	brokers *BrokerTable
	pacer   *ratelimit.Pacer
	logger  *log.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// Option configures an Analyzer
type Option func(*Analyzer)

// WithLogger sets the logger
func WithLogger(l *log.Logger) Option {
	return func(a *Analyzer) { a.logger = logging.OrNop(l) }
}

// WithMetrics sets the metrics sink
func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Analyzer) { a.metrics = m }
}

// WithClock overrides the reference time for the trading-day walk
func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) { a.now = now }
}

// NewAnalyzer creates an analyzer. A nil broker table uses the built-in one.
func NewAnalyzer(flows provider.FlowProvider, brokers *BrokerTable, pacer *ratelimit.Pacer, opts ...Option) *Analyzer {
	if brokers == nil {
		brokers = DefaultBrokerTable()
	}
	a := &Analyzer{
		flows:   flows,
		brokers: brokers,
		pacer:   pacer,
		logger:  logging.Nop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze walks back over the last days weekdays, most recent first, and classifies
// whatever flows could be fetched. Failed or empty days land in Diagnostics.
// The walk stops after days*2 attempts.
func (a *Analyzer) Analyze(ctx context.Context, ticker string, days int) model.BandarmologyResult {
	if days < 0 {
		days = 0
	}
	var diag model.Diagnostics
	flows := make([]model.DailyBrokerFlow, 0, days)

	date := a.now()
	for attempts := 0; len(flows) < days && attempts < days*2; attempts++ {
		date = PreviousWeekday(date)
		day := date.Format("2006-01-02")

		if err := a.pacer.Wait(ctx); err != nil {
			diag.Add(day, model.StageFetch, err.Error())
			break
		}

		flow, err := a.flows.GetDailyBrokerFlow(ctx, ticker, date)
		if err != nil {
			a.logger.Debug().Str("ticker", ticker).Str("date", day).Err(err).Msg("flow fetch failed")
			diag.Add(day, model.StageFetch, err.Error())
			a.metrics.FlowDay("skipped")
			continue
		}
		if flow == nil {
			diag.Add(day, model.StageFetch, provider.ErrNoData.Error())
			a.metrics.FlowDay("skipped")
			continue
		}

		a.brokers.Annotate(flow)
		if flow.AccDistTag == "" {
			flow.AccDistTag = DeriveAccDistTag(*flow)
		}
		flows = append(flows, *flow)
		a.metrics.FlowDay("fetched")
	}

	result := Classify(ticker, flows, days)
	result.Diagnostics = diag

	a.logger.Info().
		Str("ticker", ticker).
		Int("days", len(flows)).
		Int("skipped", diag.Count()).
		Str("phase", string(result.Phase)).
		Float64("momentum", result.MomentumScore).
		Msg("bandarmology")
	return result
}

// PreviousWeekday returns the closest Monday to Friday strictly before t
func PreviousWeekday(t time.Time) time.Time {
	t = t.AddDate(0, 0, -1)
	for t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		t = t.AddDate(0, 0, -1)
	}
	return t
}
