package position

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"idxscreener/internal/indicator"
	"idxscreener/pkg/model"
)

// ErrInvalidInput is returned for a non-positive or non-finite price or target
var ErrInvalidInput = errors.New("invalid plan input")

const (
	// maxStopPercent caps the percent-based stop distance
	maxStopPercent = 5.0

	// atrStopMultiple is how many ATRs below entry the volatility stop sits
	atrStopMultiple = 2.0

	// tp3Extension projects TP3 past target 2
	tp3Extension = 1.5
)

// PlanInput holds what a trading plan is built from
type PlanInput struct {
	Ticker      string
	Price       float64
	Target1     float64
	Target2     float64
	ATR         model.Option[float64] // used as given when set
	Bars        []model.Candle        // ATR is computed from these when ATR is None
	AccountSize float64               // zero skips position sizing
	RiskPercent float64               // percent of account risked, DefaultRiskPercent when zero
}

// TickSize returns the IDX price fraction for a price
func TickSize(price float64) float64 {
	switch {
	case price < 200:
		return 1
	case price < 500:
		return 2
	case price < 2000:
		return 5
	case price < 5000:
		return 10
	}
	return 25
}

// FloorToTick rounds a price down to a multiple of tick
func FloorToTick(price, tick float64) float64 {
	t := decimal.NewFromFloat(tick)
	return decimal.NewFromFloat(price).Div(t).Floor().Mul(t).InexactFloat64()
}

// RoundToTick rounds a price to the nearest multiple of tick
func RoundToTick(price, tick float64) float64 {
	t := decimal.NewFromFloat(tick)
	return decimal.NewFromFloat(price).Div(t).Round(0).Mul(t).InexactFloat64()
}

func validPrice(v float64) bool {
	return v > 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}

func level(label string, price, entry float64) model.PriceLevel {
	return model.PriceLevel{
		Label:   label,
		Price:   price,
		Percent: round2((price - entry) / entry * 100),
	}
}

// GeneratePlan builds entry, stop, three take-profit levels, risk/reward and
// optional lot sizing for a long trade.
func GeneratePlan(in PlanInput) (model.TradingPlanResult, error) {
	if !validPrice(in.Price) || !validPrice(in.Target1) || !validPrice(in.Target2) {
		return model.TradingPlanResult{}, fmt.Errorf("%w: price %v, targets %v/%v", ErrInvalidInput, in.Price, in.Target1, in.Target2)
	}
	if math.IsNaN(in.AccountSize) || math.IsInf(in.AccountSize, 0) || in.AccountSize < 0 {
		return model.TradingPlanResult{}, fmt.Errorf("%w: account size %v", ErrInvalidInput, in.AccountSize)
	}

	price := in.Price
	tick := TickSize(price)

	atr := in.ATR
	if !atr.IsSome() && len(in.Bars) > 0 {
		atr = indicator.ATR(in.Bars, indicator.ATRPeriod)
	}

	gain := (in.Target1 - price) / price * 100
	if gain <= 0 {
		gain = maxStopPercent
	}
	stop := price * (1 - math.Min(maxStopPercent, gain)/100)
	if v, ok := atr.Get(); ok && v > 0 {
		stop = math.Max(stop, price-atrStopMultiple*v)
	}
	stop = FloorToTick(stop, tick)

	tp1 := RoundToTick(in.Target1, tick)
	tp2 := RoundToTick(in.Target2, tick)
	tp3 := RoundToTick(price+tp3Extension*(in.Target2-price), tick)

	risk := price - stop
	rr := model.RiskReward{
		RiskPerShare: round2(risk),
		RewardTP1:    round2(tp1 - price),
		RewardTP2:    round2(tp2 - price),
	}
	if risk > 0 {
		rr.RRToTP1 = round2((tp1 - price) / risk)
		rr.RRToTP2 = round2((tp2 - price) / risk)
	}
	rr.Quality = Quality(rr.RRToTP1, rr.RRToTP2)

	plan := model.TradingPlanResult{
		Ticker:   in.Ticker,
		TickSize: tick,
		Entry:    level("Entry", price, price),
		TakeProfit: [3]model.PriceLevel{
			level("Conservative", tp1, price),
			level("Moderate", tp2, price),
			level("Aggressive", tp3, price),
		},
		StopLoss:       level("Stop Loss", stop, price),
		ATR:            atr,
		RiskReward:     rr,
		PositionSizing: SizePosition(in.AccountSize, in.RiskPercent, price, risk),
	}
	plan.ExecutionStrategy = executionSteps(&plan)
	return plan, nil
}

func executionSteps(p *model.TradingPlanResult) [5]string {
	return [5]string{
		fmt.Sprintf("Enter with a limit order at %.0f (tick %.0f)", p.Entry.Price, p.TickSize),
		fmt.Sprintf("Place the stop loss at %.0f (%.2f%%) and exit the full position if it is hit", p.StopLoss.Price, p.StopLoss.Percent),
		fmt.Sprintf("Sell one third at TP1 %.0f and move the stop to entry", p.TakeProfit[0].Price),
		fmt.Sprintf("Sell another third at TP2 %.0f and trail the stop to TP1", p.TakeProfit[1].Price),
		fmt.Sprintf("Let the last third run toward TP3 %.0f with a trailing stop", p.TakeProfit[2].Price),
	}
}
