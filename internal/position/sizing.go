package position

import (
	"math"

	"idxscreener/pkg/model"
)

// LotSize is the number of shares in one IDX board lot
const LotSize = 100

// DefaultRiskPercent is the account share risked per trade when none is given
const DefaultRiskPercent = 2.0

// SizePosition sizes a trade in whole lots so that hitting the stop loses at most
// riskPercent of the account. At least one lot is always taken.
// Returns None without an account or without positive risk per share.
func SizePosition(accountSize, riskPercent, entry, riskPerShare float64) model.Option[model.PositionSizing] {
	if accountSize <= 0 || riskPerShare <= 0 || entry <= 0 {
		return model.None[model.PositionSizing]()
	}
	if riskPercent <= 0 {
		riskPercent = DefaultRiskPercent
	}

	maxRisk := accountSize * riskPercent / 100
	lots := int64(math.Floor(maxRisk / riskPerShare / LotSize))
	if lots < 1 {
		lots = 1
	}
	shares := lots * LotSize
	value := float64(shares) * entry

	return model.Some(model.PositionSizing{
		MaxRiskAmount:  round2(maxRisk),
		Lots:           lots,
		Shares:         shares,
		PositionValue:  round2(value),
		ActualRisk:     round2(float64(shares) * riskPerShare),
		AccountPercent: round2(value / accountSize * 100),
	})
}

// Quality buckets a plan by its reward multiples
func Quality(rrToTP1, rrToTP2 float64) model.PlanQuality {
	switch {
	case rrToTP1 >= 1.5 && rrToTP2 >= 2:
		return model.QualityGood
	case rrToTP1 < 0.5 || rrToTP2 < 1:
		return model.QualityPoor
	}
	return model.QualityFair
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
