package provider

import (
	"context"
	"errors"
	"time"

	"idxscreener/pkg/model"
)

// ErrNoData is returned when a source has nothing for the requested ticker or date
var ErrNoData = errors.New("no data available")

// BarProvider supplies daily OHLCV bars
type BarProvider interface {
	// Name returns the provider name
	Name() string

	// GetBars fetches up to daysBack daily bars, oldest first
	GetBars(ctx context.Context, ticker string, daysBack int) ([]model.Candle, error)

	// IsAvailable checks if the provider is configured and usable
	IsAvailable() bool
}

// MinBarsProvider is a BarProvider that can skip sources holding fewer than minBars bars
type MinBarsProvider interface {
	BarProvider
	GetBarsMin(ctx context.Context, ticker string, daysBack, minBars int) ([]model.Candle, error)
}

// FlowProvider supplies the daily broker leaderboard of a ticker.
// A nil flow with a nil error means the source had no data for that date.
type FlowProvider interface {
	Name() string
	GetDailyBrokerFlow(ctx context.Context, ticker string, date time.Time) (*model.DailyBrokerFlow, error)
}

// SectorProvider maps a ticker to its sector, "Unknown" when not listed
type SectorProvider interface {
	GetSector(ticker string) string
}

// ProviderError represents a provider-specific error
type ProviderError struct {
	Provider  string
	Err       error
	Retryable bool
}

func (e *ProviderError) Error() string {
	return e.Provider + ": " + e.Err.Error()
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// FallbackProvider tries multiple bar providers in order
type FallbackProvider struct {
	providers []BarProvider
}

// NewFallbackProvider creates a new fallback provider
func NewFallbackProvider(providers ...BarProvider) *FallbackProvider {
	// Filter to only available providers
	available := make([]BarProvider, 0, len(providers))
	for _, p := range providers {
		if p != nil && p.IsAvailable() {
			available = append(available, p)
		}
	}
	return &FallbackProvider{providers: available}
}

// Name returns the combined provider name
func (f *FallbackProvider) Name() string {
	return "fallback"
}

// GetBars tries each provider in order until one returns bars.
// An empty result counts as a miss so the next source gets a chance.
func (f *FallbackProvider) GetBars(ctx context.Context, ticker string, daysBack int) ([]model.Candle, error) {
	return f.GetBarsMin(ctx, ticker, daysBack, 1)
}

// GetBarsMin tries each provider in order until one returns at least minBars bars.
// A shorter result counts as a miss; if no source reaches minBars the longest
// series seen is returned so the caller can report it as insufficient.
func (f *FallbackProvider) GetBarsMin(ctx context.Context, ticker string, daysBack, minBars int) ([]model.Candle, error) {
	if minBars < 1 {
		minBars = 1
	}
	lastErr := error(&ProviderError{Provider: f.Name(), Err: ErrNoData})
	var longest []model.Candle
	for _, p := range f.providers {
		bars, err := p.GetBars(ctx, ticker, daysBack)
		if err == nil && len(bars) >= minBars {
			return bars, nil
		}
		if err != nil {
			lastErr = err
		} else if len(bars) > len(longest) {
			longest = bars
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	if len(longest) > 0 {
		return longest, nil
	}
	return nil, lastErr
}

// IsAvailable returns true if any provider is available
func (f *FallbackProvider) IsAvailable() bool {
	return len(f.providers) > 0
}

// Providers returns the list of underlying providers
func (f *FallbackProvider) Providers() []BarProvider {
	return f.providers
}

// IsRetryable reports whether err is a ProviderError flagged retryable
func IsRetryable(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Retryable
}
