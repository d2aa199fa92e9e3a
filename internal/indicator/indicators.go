package indicator

import (
	"math"

	"idxscreener/pkg/model"
)

// Default lookbacks
const (
	RSIPeriod       = 14
	MACDFast        = 12
	MACDSlow        = 26
	MACDSignal      = 9
	BollingerPeriod = 20
	BollingerK      = 2.0
	ATRPeriod       = 14
	LevelsLookback  = 20
)

// SMA calculates the Simple Moving Average of the last period values
func SMA(values []float64, period int) model.Option[float64] {
	if period <= 0 || len(values) < period {
		return model.None[float64]()
	}

	var sum float64
	for i := len(values) - period; i < len(values); i++ {
		sum += values[i]
	}
	return model.Some(sum / float64(period))
}

// EMASeries returns the EMA aligned with values.
// Entries before period-1 are NaN; the seed is the SMA of the first period values.
func EMASeries(values []float64, period int) []float64 {
	if period <= 0 || len(values) < period {
		return nil
	}

	out := make([]float64, len(values))
	var sum float64
	for i := 0; i < period; i++ {
		sum += values[i]
		out[i] = math.NaN()
	}
	ema := sum / float64(period)
	out[period-1] = ema

	k := 2.0 / float64(period+1)
	for i := period; i < len(values); i++ {
		ema = (values[i]-ema)*k + ema
		out[i] = ema
	}
	return out
}

// EMA calculates the Exponential Moving Average as of the last value
func EMA(values []float64, period int) model.Option[float64] {
	series := EMASeries(values, period)
	if series == nil {
		return model.None[float64]()
	}
	return model.Some(series[len(series)-1])
}

// RSI calculates the Relative Strength Index from the average gain and loss
// over the last period changes. A flat series reads 50.
func RSI(closes []float64, period int) model.Option[float64] {
	if period <= 0 || len(closes) < period+1 {
		return model.None[float64]()
	}

	var gains, losses float64
	for i := len(closes) - period; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			gains += change
		} else {
			losses -= change
		}
	}

	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)

	if avgLoss == 0 {
		if avgGain == 0 {
			return model.Some(50.0)
		}
		return model.Some(100.0)
	}

	rs := avgGain / avgLoss
	rsi := 100 - (100 / (1 + rs))

	return model.Some(math.Round(rsi*100) / 100)
}

// ClassifyRSI interprets an RSI value
func ClassifyRSI(rsi float64) model.RSISignal {
	if rsi < 30 {
		return model.RSIOversold
	} else if rsi > 70 {
		return model.RSIOverbought
	}
	return model.RSINeutral
}

// MACD calculates EMA(fast) - EMA(slow), its EMA(signal) and the histogram
func MACD(closes []float64, fast, slow, signal int) model.Option[model.MACD] {
	if fast <= 0 || slow <= fast || signal <= 0 || len(closes) < slow+signal {
		return model.None[model.MACD]()
	}

	fastSeries := EMASeries(closes, fast)
	slowSeries := EMASeries(closes, slow)

	line := make([]float64, 0, len(closes)-slow+1)
	for i := slow - 1; i < len(closes); i++ {
		line = append(line, fastSeries[i]-slowSeries[i])
	}

	signalSeries := EMASeries(line, signal)
	if signalSeries == nil {
		return model.None[model.MACD]()
	}

	m := line[len(line)-1]
	s := signalSeries[len(signalSeries)-1]
	return model.Some(model.MACD{
		Line:      m,
		Signal:    s,
		Histogram: m - s,
	})
}

// Bollinger calculates Bollinger Bands with population standard deviation
func Bollinger(closes []float64, period int, k float64) model.Option[model.Bollinger] {
	ma, ok := SMA(closes, period).Get()
	if !ok {
		return model.None[model.Bollinger]()
	}

	var sumSquares float64
	for i := len(closes) - period; i < len(closes); i++ {
		diff := closes[i] - ma
		sumSquares += diff * diff
	}
	std := math.Sqrt(sumSquares / float64(period))

	bb := model.Bollinger{
		Upper:  ma + std*k,
		Middle: ma,
		Lower:  ma - std*k,
	}
	if ma != 0 {
		bb.Bandwidth = (bb.Upper - bb.Lower) / ma * 100
	}
	return model.Some(bb)
}

// TrueRange is max(high-low, |high-prevClose|, |low-prevClose|)
func TrueRange(bar model.Candle, prevClose float64) float64 {
	return math.Max(bar.High-bar.Low,
		math.Max(math.Abs(bar.High-prevClose), math.Abs(bar.Low-prevClose)))
}

// ATR calculates the mean true range over the last period bars
func ATR(candles []model.Candle, period int) model.Option[float64] {
	if period <= 0 || len(candles) < period+1 {
		return model.None[float64]()
	}

	var sum float64
	for i := len(candles) - period; i < len(candles); i++ {
		sum += TrueRange(candles[i], candles[i-1].Close)
	}
	return model.Some(sum / float64(period))
}

// SupportResistance returns the lowest low and highest high of the last lookback bars
func SupportResistance(candles []model.Candle, lookback int) model.Option[model.SupportResistance] {
	if lookback <= 0 || len(candles) < lookback {
		return model.None[model.SupportResistance]()
	}

	window := candles[len(candles)-lookback:]
	levels := model.SupportResistance{Support: window[0].Low, Resistance: window[0].High}
	for _, c := range window[1:] {
		levels.Support = math.Min(levels.Support, c.Low)
		levels.Resistance = math.Max(levels.Resistance, c.High)
	}
	return model.Some(levels)
}

// AvgVolume calculates the average volume of the last period bars
func AvgVolume(candles []model.Candle, period int) model.Option[float64] {
	if period <= 0 || len(candles) < period {
		return model.None[float64]()
	}

	var sum int64
	for i := len(candles) - period; i < len(candles); i++ {
		sum += candles[i].Volume
	}
	return model.Some(float64(sum) / float64(period))
}
