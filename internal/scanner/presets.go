package scanner

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"idxscreener/pkg/model"
)

// ErrUnknownPreset is returned for a preset name that is not registered
var ErrUnknownPreset = errors.New("unknown preset")

// Predicate decides whether a snapshot passes a screen
type Predicate func(s *model.IndicatorSnapshot) bool

// Preset is a named screening rule
type Preset struct {
	Name        string
	Description string
	Match       Predicate
}

var (
	registry     = make(map[string]Preset)
	registryLock sync.RWMutex
)

// Register adds or replaces a preset
func Register(p Preset) {
	registryLock.Lock()
	defer registryLock.Unlock()
	registry[p.Name] = p
}

// GetPreset looks up a preset by name
func GetPreset(name string) (Preset, error) {
	registryLock.RLock()
	p, ok := registry[name]
	registryLock.RUnlock()

	if !ok {
		return Preset{}, fmt.Errorf("%w: %s (available: %v)", ErrUnknownPreset, name, ListPresets())
	}
	return p, nil
}

// ListPresets returns the registered preset names, sorted
func ListPresets() []string {
	registryLock.RLock()
	defer registryLock.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func rsiBelow(s *model.IndicatorSnapshot, v float64) bool {
	rsi, ok := s.RSI.Get()
	return ok && rsi < v
}

func rsiAbove(s *model.IndicatorSnapshot, v float64) bool {
	rsi, ok := s.RSI.Get()
	return ok && rsi > v
}

func histogramPositive(s *model.IndicatorSnapshot) bool {
	m, ok := s.MACD.Get()
	return ok && m.Histogram > 0
}

func trendIs(s *model.IndicatorSnapshot, t model.Trend) bool {
	got, ok := s.Trend.Get()
	return ok && got == t
}

func init() {
	Register(Preset{
		Name:        "oversold",
		Description: "RSI below 30",
		Match:       func(s *model.IndicatorSnapshot) bool { return rsiBelow(s, 30) },
	})
	Register(Preset{
		Name:        "overbought",
		Description: "RSI above 70",
		Match:       func(s *model.IndicatorSnapshot) bool { return rsiAbove(s, 70) },
	})
	Register(Preset{
		Name:        "bullish",
		Description: "Price above SMA20 above SMA50",
		Match:       func(s *model.IndicatorSnapshot) bool { return trendIs(s, model.TrendBullish) },
	})
	Register(Preset{
		Name:        "bearish",
		Description: "Price below SMA20 below SMA50",
		Match:       func(s *model.IndicatorSnapshot) bool { return trendIs(s, model.TrendBearish) },
	})
	Register(Preset{
		Name:        "breakout",
		Description: "Close within 2% of 20-day resistance with a positive MACD histogram",
		Match: func(s *model.IndicatorSnapshot) bool {
			lv, ok := s.Levels.Get()
			return ok && s.Price >= lv.Resistance*0.98 && histogramPositive(s)
		},
	})
	Register(Preset{
		Name:        "momentum",
		Description: "Positive MACD histogram with RSI between 50 and 70",
		Match: func(s *model.IndicatorSnapshot) bool {
			return histogramPositive(s) && rsiAbove(s, 50) && rsiBelow(s, 70)
		},
	})
	Register(Preset{
		Name:        "undervalued",
		Description: "Close under the lower Bollinger band, or RSI below 40 under SMA50",
		Match: func(s *model.IndicatorSnapshot) bool {
			if bb, ok := s.Bollinger.Get(); ok && s.Price < bb.Lower {
				return true
			}
			sma50, ok := s.SMAAt(50).Get()
			return ok && rsiBelow(s, 40) && s.Price < sma50
		},
	})
	Register(Preset{
		Name:        "rsi-extreme",
		Description: "RSI below 30 or above 70",
		Match: func(s *model.IndicatorSnapshot) bool {
			return rsiBelow(s, 30) || rsiAbove(s, 70)
		},
	})
}
