package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	initialBackoff = 250 * time.Millisecond
	maxBackoff     = 2 * time.Minute
)

// Limiter wraps rate.Limiter with backoff signalling for a single upstream API
type Limiter struct {
	limiter *rate.Limiter
	name    string
	mu      sync.Mutex
	backoff time.Duration
	maxWait time.Duration
	until   time.Time // no calls before this after a 429
}

// NewLimiter creates a new rate limiter
// perMinute specifies the number of requests allowed per minute
func NewLimiter(name string, perMinute int) *Limiter {
	rps := float64(perMinute) / 60.0
	// Burst of 1/10th of the per-minute budget, between 1 and 5
	burst := perMinute / 10
	if burst < 1 {
		burst = 1
	}
	if burst > 5 {
		burst = 5
	}

	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		name:    name,
		backoff: initialBackoff,
		maxWait: maxBackoff,
	}
}

// Wait blocks through any backoff pause, then until a token is available or
// the context is cancelled
func (l *Limiter) Wait(ctx context.Context) error {
	l.mu.Lock()
	pause := time.Until(l.until)
	l.mu.Unlock()

	if pause > 0 {
		timer := time.NewTimer(pause)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	return l.limiter.Wait(ctx)
}

// Allow reports whether an event may happen now
func (l *Limiter) Allow() bool {
	return l.limiter.Allow()
}

// SignalRateLimited should be called when a 429 response is received.
// Calls through Wait pause for the current backoff, which then doubles up to maxWait.
func (l *Limiter) SignalRateLimited() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.until = time.Now().Add(l.backoff)
	l.backoff *= 2
	if l.backoff > l.maxWait {
		l.backoff = l.maxWait
	}
}

// ResetBackoff resets the backoff duration and lifts any pause after a successful request
func (l *Limiter) ResetBackoff() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.backoff = initialBackoff
	l.until = time.Time{}
}

// GetBackoff returns the current backoff duration
func (l *Limiter) GetBackoff() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.backoff
}

// Name returns the limiter name
func (l *Limiter) Name() string {
	return l.name
}

// Pacer spaces calls at least interval apart, shared across goroutines.
// A nil Pacer or a zero interval never blocks.
type Pacer struct {
	limiter  *rate.Limiter
	interval time.Duration
}

// NewPacer creates a pacer allowing one call per interval
func NewPacer(interval time.Duration) *Pacer {
	if interval <= 0 {
		return &Pacer{}
	}
	return &Pacer{
		limiter:  rate.NewLimiter(rate.Every(interval), 1),
		interval: interval,
	}
}

// Wait blocks until the next slot or until ctx is done
func (p *Pacer) Wait(ctx context.Context) error {
	if p == nil || p.limiter == nil {
		return ctx.Err()
	}
	return p.limiter.Wait(ctx)
}

// Interval returns the configured spacing
func (p *Pacer) Interval() time.Duration {
	if p == nil {
		return 0
	}
	return p.interval
}

// Pacers holds named pacers, one per upstream call class (ticker bars, flow snapshots)
type Pacers struct {
	pacers map[string]*Pacer
	mu     sync.RWMutex
}

// NewPacers creates an empty pacer set
func NewPacers() *Pacers {
	return &Pacers{
		pacers: make(map[string]*Pacer),
	}
}

// Add registers a pacer under name, replacing any existing one
func (m *Pacers) Add(name string, interval time.Duration) *Pacer {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := NewPacer(interval)
	m.pacers[name] = p
	return p
}

// Get returns a pacer by name
func (m *Pacers) Get(name string) *Pacer {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pacers[name]
}

// Wait waits on the named pacer
func (m *Pacers) Wait(ctx context.Context, name string) error {
	// Unknown names pass through; Pacer.Wait handles nil
	return m.Get(name).Wait(ctx)
}
