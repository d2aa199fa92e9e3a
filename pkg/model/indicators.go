package model

import "time"

// RSISignal interprets an RSI reading
type RSISignal string

const (
	RSIOversold   RSISignal = "oversold"
	RSIOverbought RSISignal = "overbought"
	RSINeutral    RSISignal = "neutral"
)

// Trend is the moving-average trend label
type Trend string

const (
	TrendBullish  Trend = "bullish"
	TrendBearish  Trend = "bearish"
	TrendSideways Trend = "sideways"
)

// Signal is the aggregate buy/sell/neutral vote
type Signal string

const (
	SignalBuy     Signal = "buy"
	SignalSell    Signal = "sell"
	SignalNeutral Signal = "neutral"
)

// SMAPeriods are the moving averages carried on every snapshot
var SMAPeriods = []int{5, 10, 20, 50, 100, 150, 200}

// MACD holds the MACD line, its signal line and the histogram
type MACD struct {
	Line      float64 `json:"line"`
	Signal    float64 `json:"signal"`
	Histogram float64 `json:"histogram"`
}

// Bollinger holds Bollinger Band levels
type Bollinger struct {
	Upper     float64 `json:"upper"`
	Middle    float64 `json:"middle"`
	Lower     float64 `json:"lower"`
	Bandwidth float64 `json:"bandwidth"`
}

// SupportResistance holds the lookback low/high
type SupportResistance struct {
	Support    float64 `json:"support"`
	Resistance float64 `json:"resistance"`
}

// IndicatorSnapshot is the technical picture of one ticker as of its last bar
type IndicatorSnapshot struct {
	Ticker      string                    `json:"ticker"`
	Date        time.Time                 `json:"date"`
	Price       float64                   `json:"price"`
	Bars        int                       `json:"bars"`
	RSI         Option[float64]           `json:"rsi"`
	RSISignal   RSISignal                 `json:"rsi_signal"`
	SMA         map[int]Option[float64]   `json:"sma"`
	EMA12       Option[float64]           `json:"ema12"`
	EMA26       Option[float64]           `json:"ema26"`
	MACD        Option[MACD]              `json:"macd"`
	Bollinger   Option[Bollinger]         `json:"bollinger"`
	ATR         Option[float64]           `json:"atr"`
	Levels      Option[SupportResistance] `json:"levels"`
	AvgVolume20 Option[float64]           `json:"avg_volume20"`
	VolumeRatio Option[float64]           `json:"volume_ratio"`
	Trend       Option[Trend]             `json:"trend"`
	Signal      Signal                    `json:"signal"`
}

// SMAAt returns the SMA for a period, None if the period is not tracked or not computed
func (s *IndicatorSnapshot) SMAAt(period int) Option[float64] {
	if s.SMA == nil {
		return None[float64]()
	}
	return s.SMA[period]
}

// MACDDirection labels the histogram sign
func (s *IndicatorSnapshot) MACDDirection() string {
	m, ok := s.MACD.Get()
	if !ok {
		return "n/a"
	}
	switch {
	case m.Histogram > 0:
		return "bullish"
	case m.Histogram < 0:
		return "bearish"
	}
	return "neutral"
}
