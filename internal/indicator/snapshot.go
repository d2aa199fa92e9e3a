package indicator

import (
	"math"

	"idxscreener/pkg/model"
)

// votesNeeded is how many of the four directional sub-signals must agree
const votesNeeded = 3

// Analyze builds the technical snapshot of a ticker as of its last bar.
// Indicators whose lookback exceeds the series are left as None.
func Analyze(ticker string, candles []model.Candle) model.IndicatorSnapshot {
	snap := model.IndicatorSnapshot{
		Ticker:    ticker,
		Bars:      len(candles),
		RSISignal: model.RSINeutral,
		SMA:       make(map[int]model.Option[float64], len(model.SMAPeriods)),
		Signal:    model.SignalNeutral,
	}
	if len(candles) == 0 {
		for _, p := range model.SMAPeriods {
			snap.SMA[p] = model.None[float64]()
		}
		return snap
	}

	last := candles[len(candles)-1]
	snap.Date = last.Time
	snap.Price = last.Close

	closes := model.Closes(candles)

	snap.RSI = RSI(closes, RSIPeriod)
	if rsi, ok := snap.RSI.Get(); ok {
		snap.RSISignal = ClassifyRSI(rsi)
	}

	for _, p := range model.SMAPeriods {
		snap.SMA[p] = SMA(closes, p)
	}
	snap.EMA12 = EMA(closes, MACDFast)
	snap.EMA26 = EMA(closes, MACDSlow)
	snap.MACD = MACD(closes, MACDFast, MACDSlow, MACDSignal)
	snap.Bollinger = Bollinger(closes, BollingerPeriod, BollingerK)
	snap.ATR = ATR(candles, ATRPeriod)
	snap.Levels = SupportResistance(candles, LevelsLookback)

	snap.AvgVolume20 = AvgVolume(candles, 20)
	if avg, ok := snap.AvgVolume20.Get(); ok && avg > 0 {
		snap.VolumeRatio = model.Some(math.Round(float64(last.Volume)/avg*100) / 100)
	}

	snap.Trend = ClassifyTrend(snap.Price, snap.SMAAt(20), snap.SMAAt(50))
	snap.Signal = AggregateSignal(&snap)

	return snap
}

// ClassifyTrend labels the close against SMA20 and SMA50
func ClassifyTrend(price float64, sma20, sma50 model.Option[float64]) model.Option[model.Trend] {
	ma20, ok20 := sma20.Get()
	ma50, ok50 := sma50.Get()
	if !ok20 || !ok50 {
		return model.None[model.Trend]()
	}

	switch {
	case price > ma20 && ma20 > ma50:
		return model.Some(model.TrendBullish)
	case price < ma20 && ma20 < ma50:
		return model.Some(model.TrendBearish)
	}
	return model.Some(model.TrendSideways)
}

// AggregateSignal votes across RSI, MACD, Bollinger position and trend
func AggregateSignal(snap *model.IndicatorSnapshot) model.Signal {
	var buys, sells int

	if _, ok := snap.RSI.Get(); ok {
		switch snap.RSISignal {
		case model.RSIOversold:
			buys++
		case model.RSIOverbought:
			sells++
		}
	}

	if m, ok := snap.MACD.Get(); ok {
		if m.Histogram > 0 {
			buys++
		} else if m.Histogram < 0 {
			sells++
		}
	}

	if bb, ok := snap.Bollinger.Get(); ok {
		if snap.Price < bb.Lower {
			buys++
		} else if snap.Price > bb.Upper {
			sells++
		}
	}

	if trend, ok := snap.Trend.Get(); ok {
		switch trend {
		case model.TrendBullish:
			buys++
		case model.TrendBearish:
			sells++
		}
	}

	switch {
	case buys >= votesNeeded:
		return model.SignalBuy
	case sells >= votesNeeded:
		return model.SignalSell
	}
	return model.SignalNeutral
}
