package trend

import (
	"math"

	"idxscreener/internal/indicator"
	"idxscreener/pkg/model"
)

const (
	// TradingYear is the number of daily bars in a 52-week window
	TradingYear = 252

	ma200Lookback = 20
)

// Range52 is the trailing 52-week high and low
type Range52 struct {
	High float64 `json:"high"`
	Low  float64 `json:"low"`
}

// Position returns where price sits within the range (0..1), 0.5 for a flat range
func (r Range52) Position(price float64) float64 {
	if r.High <= r.Low {
		return 0.5
	}
	pos := (price - r.Low) / (r.High - r.Low)
	return math.Max(0, math.Min(1, pos))
}

// Calculate52WeekRange scans the most recent 252 bars (or all of them if fewer)
func Calculate52WeekRange(candles []model.Candle) model.Option[Range52] {
	if len(candles) == 0 {
		return model.None[Range52]()
	}

	start := len(candles) - TradingYear
	if start < 0 {
		start = 0
	}

	r := Range52{High: math.Inf(-1), Low: math.Inf(1)}
	for _, c := range candles[start:] {
		r.High = math.Max(r.High, c.High)
		r.Low = math.Min(r.Low, c.Low)
	}
	return model.Some(r)
}

// MA200Slope returns the percent change of SMA200 over the last 20 bars.
// Needs 220 closes.
func MA200Slope(closes []float64) model.Option[float64] {
	if len(closes) < 200+ma200Lookback {
		return model.None[float64]()
	}

	now, _ := indicator.SMA(closes, 200).Get()
	then, _ := indicator.SMA(closes[:len(closes)-ma200Lookback], 200).Get()
	if then == 0 {
		return model.None[float64]()
	}
	return model.Some((now - then) / then * 100)
}

// IsMA200TrendingUp reports whether SMA200 is above its value 20 bars ago
func IsMA200TrendingUp(closes []float64) bool {
	if len(closes) < 200+ma200Lookback {
		return false
	}
	now, _ := indicator.SMA(closes, 200).Get()
	then, _ := indicator.SMA(closes[:len(closes)-ma200Lookback], 200).Get()
	return now > then
}

// SectorRelativeStrength percentile-ranks a return against its sector peers.
// Returns 50 when there are no peers.
func SectorRelativeStrength(stockReturn float64, sectorReturns []float64) float64 {
	if len(sectorReturns) == 0 {
		return 50
	}

	below := 0
	for _, r := range sectorReturns {
		if r < stockReturn {
			below++
		}
	}
	return float64(below) / float64(len(sectorReturns)) * 100
}

// YearReturn is the percent change from the first to the last close of the window
func YearReturn(candles []model.Candle) float64 {
	if len(candles) < 2 {
		return 0
	}
	first := candles[0].Close
	if first == 0 {
		return 0
	}
	return (candles[len(candles)-1].Close - first) / first * 100
}

// TrailingYear returns the last 252 bars
func TrailingYear(candles []model.Candle) []model.Candle {
	if len(candles) <= TradingYear {
		return candles
	}
	return candles[len(candles)-TradingYear:]
}
