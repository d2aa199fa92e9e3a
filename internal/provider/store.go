package provider

import (
	"context"
	"time"

	"idxscreener/pkg/model"
)

// BarStore is the read side of the bulk bar store
type BarStore interface {
	GetBars(ctx context.Context, ticker string, daysBack int) ([]model.Candle, error)
}

// FlowStore is the read side of the broker-summary store
type FlowStore interface {
	GetBrokerFlow(ctx context.Context, ticker string, date time.Time) (*model.DailyBrokerFlow, error)
}

// StoreProvider serves bars from the bulk store
type StoreProvider struct {
	store BarStore
}

// NewStoreProvider creates a store-backed bar provider; a nil store is unavailable
func NewStoreProvider(s BarStore) *StoreProvider {
	return &StoreProvider{store: s}
}

func (p *StoreProvider) Name() string      { return "store" }
func (p *StoreProvider) IsAvailable() bool { return p.store != nil }

// GetBars returns stored bars. An empty table is reported as ErrNoData so a
// FallbackProvider moves on to the live source.
func (p *StoreProvider) GetBars(ctx context.Context, ticker string, daysBack int) ([]model.Candle, error) {
	bars, err := p.store.GetBars(ctx, ticker, daysBack)
	if err != nil {
		return nil, &ProviderError{Provider: p.Name(), Err: err, Retryable: true}
	}
	if len(bars) == 0 {
		return nil, &ProviderError{Provider: p.Name(), Err: ErrNoData}
	}
	return bars, nil
}

// StoreFlowProvider serves broker flows from the broker_summaries table
type StoreFlowProvider struct {
	store FlowStore
}

// NewStoreFlowProvider creates a store-backed flow provider
func NewStoreFlowProvider(s FlowStore) *StoreFlowProvider {
	return &StoreFlowProvider{store: s}
}

func (p *StoreFlowProvider) Name() string { return "store" }

func (p *StoreFlowProvider) GetDailyBrokerFlow(ctx context.Context, ticker string, date time.Time) (*model.DailyBrokerFlow, error) {
	flow, err := p.store.GetBrokerFlow(ctx, ticker, date)
	if err != nil {
		return nil, &ProviderError{Provider: p.Name(), Err: err, Retryable: true}
	}
	return flow, nil
}

// FallbackFlowProvider asks each flow source in order until one has the day
type FallbackFlowProvider struct {
	providers []FlowProvider
}

// NewFallbackFlowProvider creates a fallback over flow sources, skipping nils
func NewFallbackFlowProvider(providers ...FlowProvider) *FallbackFlowProvider {
	ps := make([]FlowProvider, 0, len(providers))
	for _, p := range providers {
		if p != nil {
			ps = append(ps, p)
		}
	}
	return &FallbackFlowProvider{providers: ps}
}

func (f *FallbackFlowProvider) Name() string { return "fallback" }

func (f *FallbackFlowProvider) GetDailyBrokerFlow(ctx context.Context, ticker string, date time.Time) (*model.DailyBrokerFlow, error) {
	var lastErr error
	for _, p := range f.providers {
		flow, err := p.GetDailyBrokerFlow(ctx, ticker, date)
		if err == nil && flow != nil {
			return flow, nil
		}
		if err != nil {
			lastErr = err
		}
	}
	return nil, lastErr
}
