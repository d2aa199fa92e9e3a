package bandar

import (
	"fmt"
	"math"
	"sort"

	"idxscreener/pkg/model"
)

const (
	buyMomentum  = 60
	sellMomentum = 40

	markupMinAccDays  = 5
	markupMinMomentum = 65

	maxTopAccumulators = 5
	tagWindow          = 3
)

// flowTotals accumulates signed and unsigned value across a window
type flowTotals struct {
	smartNet  float64
	retailNet float64
	total     float64
	byCat     map[model.BrokerCategory]float64
	net       map[string]*model.BrokerNet
	accDays   int
	distDays  int
}

func newFlowTotals() *flowTotals {
	return &flowTotals{
		byCat: make(map[model.BrokerCategory]float64, len(model.BrokerCategories)),
		net:   make(map[string]*model.BrokerNet),
	}
}

func (t *flowTotals) add(e model.BrokerEntry, sign float64) {
	cat := model.ParseBrokerCategory(string(e.Category))

	t.total += e.Value
	t.byCat[cat] += e.Value
	switch {
	case cat.IsSmartMoney():
		t.smartNet += sign * e.Value
	case cat == model.CategoryRetail:
		t.retailNet += sign * e.Value
	}

	bn, ok := t.net[e.BrokerCode]
	if !ok {
		bn = &model.BrokerNet{BrokerCode: e.BrokerCode, Category: cat}
		t.net[e.BrokerCode] = bn
	}
	bn.NetValue += sign * e.Value
}

// Classify aggregates daily broker flows into a bandarmology reading.
// Days with no tag get one from DeriveAccDistTag.
func Classify(ticker string, flows []model.DailyBrokerFlow, requestedDays int) model.BandarmologyResult {
	t := newFlowTotals()
	for _, f := range flows {
		for _, e := range f.TopBuyers {
			t.add(e, 1)
		}
		for _, e := range f.TopSellers {
			t.add(e, -1)
		}

		tag := model.ParseAccDistTag(string(f.AccDistTag))
		if tag == "" {
			tag = DeriveAccDistTag(f)
		}
		switch {
		case tag.IsAccumulation():
			t.accDays++
		case tag.IsDistribution():
			t.distDays++
		}
	}

	momentum := Momentum(t.smartNet, t.retailNet, t.total)
	phase := ClassifyPhase(t.accDays, momentum, t.smartNet)

	result := model.BandarmologyResult{
		Ticker:            ticker,
		RequestedDays:     requestedDays,
		MomentumScore:     momentum,
		MomentumSignal:    MomentumSignal(momentum),
		Phase:             phase,
		AccDays:           t.accDays,
		DistDays:          t.distDays,
		SmartMoneyNet:     t.smartNet,
		RetailNet:         t.retailNet,
		TotalVolume:       t.total,
		BrokerComposition: composition(t.byCat, t.total),
		TopAccumulators:   topAccumulators(t.net),
		DailyFlows:        flows,
	}
	result.PatternAlerts = patternAlerts(t)
	result.Recommendation = recommendation(phase, t.accDays)
	return result
}

// Momentum is 50 plus the smart-minus-retail net as a percent of total value, clamped to 0..100
func Momentum(smartNet, retailNet, total float64) float64 {
	if total == 0 {
		return 50
	}
	score := 50 + 100*(smartNet-retailNet)/total
	score = math.Max(0, math.Min(100, score))
	return math.Round(score*100) / 100
}

// MomentumSignal maps a momentum score to buy (>=60), sell (<=40) or neutral
func MomentumSignal(momentum float64) model.Signal {
	switch {
	case momentum >= buyMomentum:
		return model.SignalBuy
	case momentum <= sellMomentum:
		return model.SignalSell
	default:
		return model.SignalNeutral
	}
}

// ClassifyPhase applies the accumulation-day ladder with the Markup Ready override
func ClassifyPhase(accDays int, momentum, smartNet float64) model.Phase {
	switch {
	case accDays >= markupMinAccDays && momentum >= markupMinMomentum:
		return model.PhaseMarkupReady
	case accDays >= 7:
		return model.PhaseLateAccumulation
	case accDays >= 4:
		return model.PhaseMidAccumulation
	case accDays >= 2:
		return model.PhaseEarlyAccumulation
	case accDays == 0 && smartNet < 0:
		return model.PhaseDistribution
	default:
		return model.PhaseNeutral
	}
}

func composition(byCat map[model.BrokerCategory]float64, total float64) map[model.BrokerCategory]float64 {
	out := make(map[model.BrokerCategory]float64, len(model.BrokerCategories))
	for _, cat := range model.BrokerCategories {
		if total == 0 {
			out[cat] = 0
			continue
		}
		out[cat] = 100 * byCat[cat] / total
	}
	return out
}

func topAccumulators(net map[string]*model.BrokerNet) []model.BrokerNet {
	out := make([]model.BrokerNet, 0, len(net))
	for _, bn := range net {
		if bn.NetValue > 0 {
			out = append(out, *bn)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].NetValue != out[j].NetValue {
			return out[i].NetValue > out[j].NetValue
		}
		return out[i].BrokerCode < out[j].BrokerCode
	})
	if len(out) > maxTopAccumulators {
		out = out[:maxTopAccumulators]
	}
	return out
}

func patternAlerts(t *flowTotals) []string {
	alerts := []string{}
	if t.smartNet > 0 && t.accDays >= 3 {
		alerts = append(alerts, "smart money accumulating")
	}
	if t.retailNet < 0 && t.smartNet > 0 {
		alerts = append(alerts, "contrarian bullish")
	}
	if t.accDays >= 5 {
		alerts = append(alerts, fmt.Sprintf("accumulation streak: %d days", t.accDays))
	}
	if t.distDays >= 3 {
		alerts = append(alerts, fmt.Sprintf("distribution pressure: %d days", t.distDays))
	}
	return alerts
}

func recommendation(phase model.Phase, accDays int) string {
	switch phase {
	case model.PhaseLateAccumulation, model.PhaseMarkupReady:
		return fmt.Sprintf("STRONG BUY: %s after %d accumulation days. Smart money is positioned; consider entries on minor pullbacks.", phase, accDays)
	case model.PhaseMidAccumulation:
		return fmt.Sprintf("BUY: %s over %d days. Build a starter position and add on confirmation.", phase, accDays)
	case model.PhaseDistribution:
		return "CAUTION: smart money is distributing. Avoid new positions and tighten stops."
	default:
		return fmt.Sprintf("NEUTRAL: %s. No clear bandar footprint yet; wait for a sustained accumulation streak.", phase)
	}
}

// DeriveAccDistTag labels a day from the top-3 buyer value against the top-3 seller value
func DeriveAccDistTag(f model.DailyBrokerFlow) model.AccDistTag {
	buy := topSum(f.TopBuyers, tagWindow)
	sell := topSum(f.TopSellers, tagWindow)

	if sell == 0 {
		if buy > 0 {
			return model.TagBigAcc
		}
		return model.TagNeutral
	}

	ratio := buy / sell
	switch {
	case ratio >= 2:
		return model.TagBigAcc
	case ratio >= 1.2:
		return model.TagAcc
	case ratio <= 0.5:
		return model.TagBigDist
	case ratio <= 0.83:
		return model.TagDist
	default:
		return model.TagNeutral
	}
}

func topSum(entries []model.BrokerEntry, n int) float64 {
	values := make([]float64, len(entries))
	for i, e := range entries {
		values[i] = e.Value
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(values)))
	if len(values) > n {
		values = values[:n]
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum
}
