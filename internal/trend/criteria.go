package trend

import (
	"idxscreener/internal/indicator"
	"idxscreener/pkg/model"
)

// MinRelativeStrength is the sector RS percentile C8 asks for
const MinRelativeStrength = 70

// EvaluateCriteria checks the eight-point trend template against the last bar.
// Returns None with fewer than 252 bars.
func EvaluateCriteria(candles []model.Candle, sectorRS float64) model.Option[model.TrendCriteria] {
	if len(candles) < TradingYear {
		return model.None[model.TrendCriteria]()
	}

	closes := model.Closes(candles)
	price := closes[len(closes)-1]

	ma50, _ := indicator.SMA(closes, 50).Get()
	ma150, _ := indicator.SMA(closes, 150).Get()
	ma200, _ := indicator.SMA(closes, 200).Get()
	r, _ := Calculate52WeekRange(candles).Get()

	c := model.TrendCriteria{
		PriceAboveMA150And200: price > ma150 && price > ma200,
		MA150AboveMA200:       ma150 > ma200,
		MA200TrendingUp:       IsMA200TrendingUp(closes),
		MA50AboveMA150And200:  ma50 > ma150 && ma50 > ma200,
		PriceAboveMA50:        price > ma50,
		AboveLow52By30Pct:     price >= r.Low*1.30,
		Within25PctOfHigh52:   price >= r.High*0.75,
		RelativeStrengthOK:    sectorRS >= MinRelativeStrength,
		SectorRS:              sectorRS,
		High52:                r.High,
		Low52:                 r.Low,
		Price:                 price,
	}
	for _, ok := range c.Flags() {
		if ok {
			c.Score++
		}
	}
	return model.Some(c)
}
