package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/phuslu/log"

	"idxscreener/internal/cache"
	"idxscreener/internal/logging"
	"idxscreener/pkg/model"
)

// CachingProvider wraps a BarProvider with a cache.Cache for GetBars.
// A trend screen and a preset screen over the same universe share fetches.
type CachingProvider struct {
	inner   BarProvider
	cache   cache.Cache
	ttl     time.Duration
	maxDays int
	logger  *log.Logger
}

// NewCachingProvider creates a caching wrapper. maxDays is the number of days
// always fetched (300 covers the trend template's 252-bar window).
func NewCachingProvider(inner BarProvider, c cache.Cache, ttl time.Duration, maxDays int) *CachingProvider {
	return &CachingProvider{
		inner:   inner,
		cache:   c,
		ttl:     ttl,
		maxDays: maxDays,
		logger:  logging.Nop(),
	}
}

// SetLogger sets the logger
func (p *CachingProvider) SetLogger(l *log.Logger) {
	p.logger = logging.OrNop(l)
}

func (p *CachingProvider) Name() string      { return p.inner.Name() }
func (p *CachingProvider) IsAvailable() bool { return p.inner.IsAvailable() }

func cacheKey(ticker string) string {
	return fmt.Sprintf("bars:%s", ticker)
}

func (p *CachingProvider) GetBars(ctx context.Context, ticker string, daysBack int) ([]model.Candle, error) {
	// Backend errors count as a miss
	var cached []model.Candle
	if err := p.cache.Get(ctx, cacheKey(ticker), &cached); err == nil && len(cached) > 0 {
		return tail(cached, daysBack), nil
	}

	// Fetch max days to satisfy every consumer in one call
	fetchDays := p.maxDays
	if daysBack > fetchDays {
		fetchDays = daysBack
	}

	candles, err := p.inner.GetBars(ctx, ticker, fetchDays)
	if err != nil {
		return nil, err
	}

	if len(candles) > 0 {
		if err := p.cache.Set(ctx, cacheKey(ticker), candles, p.ttl); err != nil {
			p.logger.Debug().Str("ticker", ticker).Err(err).Msg("cache write failed")
		}
	}
	return tail(candles, daysBack), nil
}

func tail(candles []model.Candle, n int) []model.Candle {
	if len(candles) > n {
		return candles[len(candles)-n:]
	}
	return candles
}
