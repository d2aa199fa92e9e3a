package trend

import (
	"fmt"
	"math"

	"idxscreener/pkg/model"
)

const (
	maxStageSignals = 5

	// Below this winning score the classifier reports Transition
	minStageScore = 30

	// MA200 moves of less than this percent over 20 bars count as flat
	flatSlopePct = 0.5
)

// stageOrder is the tie-break order when stage scores are equal
var stageOrder = []model.Stage{model.Stage2, model.Stage4, model.Stage1, model.Stage3}

type stageScorer struct {
	scores  map[model.Stage]int
	signals []string
}

func newStageScorer() *stageScorer {
	return &stageScorer{scores: map[model.Stage]int{
		model.Stage1: 0,
		model.Stage2: 0,
		model.Stage3: 0,
		model.Stage4: 0,
	}}
}

func (s *stageScorer) add(signal string, points map[model.Stage]int) {
	for stage, p := range points {
		s.scores[stage] += p
	}
	if len(s.signals) < maxStageSignals {
		s.signals = append(s.signals, signal)
	}
}

// ClassifyStage places the stock in one of the four market-cycle stages.
// Needs SMA50, SMA150 and SMA200 on the snapshot; otherwise Transition with confidence 0.
func ClassifyStage(candles []model.Candle, snap model.IndicatorSnapshot) model.StageClassification {
	ma50, ok50 := snap.SMAAt(50).Get()
	ma150, ok150 := snap.SMAAt(150).Get()
	ma200, ok200 := snap.SMAAt(200).Get()
	if !ok50 || !ok150 || !ok200 {
		return model.StageClassification{
			Stage:   model.Transition,
			Signals: []string{"insufficient data for MA50/150/200"},
		}
	}

	price := snap.Price
	sc := newStageScorer()

	// MA alignment
	switch {
	case ma50 > ma150 && ma150 > ma200:
		sc.add("MA50 > MA150 > MA200 (bullish alignment)", map[model.Stage]int{model.Stage2: 30})
	case ma50 < ma150 && ma150 < ma200:
		sc.add("MA50 < MA150 < MA200 (bearish alignment)", map[model.Stage]int{model.Stage4: 30})
	default:
		sc.add("moving averages intertwined", map[model.Stage]int{model.Stage1: 15, model.Stage3: 15})
	}

	// Price against the averages
	switch {
	case price > ma50 && price > ma150 && price > ma200:
		sc.add("price above all major MAs", map[model.Stage]int{model.Stage2: 25})
	case price < ma50 && price < ma150 && price < ma200:
		sc.add("price below all major MAs", map[model.Stage]int{model.Stage4: 25})
	case price < ma50 && ma50 > ma200:
		sc.add("price lost MA50 while MA50 holds above MA200", map[model.Stage]int{model.Stage3: 25})
	default:
		sc.add("price chopping around MAs", map[model.Stage]int{model.Stage1: 10})
	}

	// MA200 direction
	if slope, ok := MA200Slope(model.Closes(candles)).Get(); ok {
		switch {
		case slope > flatSlopePct:
			sc.add(fmt.Sprintf("MA200 rising (%+.1f%% over 20 bars)", slope), map[model.Stage]int{model.Stage2: 20})
		case slope < -flatSlopePct:
			sc.add(fmt.Sprintf("MA200 falling (%+.1f%% over 20 bars)", slope), map[model.Stage]int{model.Stage4: 20})
		default:
			sc.add("MA200 flat", map[model.Stage]int{model.Stage1: 10, model.Stage3: 10})
		}
	}

	// Position within the 52-week range
	if r, ok := Calculate52WeekRange(candles).Get(); ok {
		pos := r.Position(price) * 100
		switch {
		case pos >= 75:
			sc.add(fmt.Sprintf("near 52-week high (%.0f%% of range)", pos), map[model.Stage]int{model.Stage2: 25})
		case pos <= 25:
			sc.add(fmt.Sprintf("near 52-week low (%.0f%% of range)", pos), map[model.Stage]int{model.Stage4: 25})
		case pos <= 50:
			sc.add(fmt.Sprintf("basing in lower half of 52-week range (%.0f%%)", pos), map[model.Stage]int{model.Stage1: 25})
		default:
			sc.add(fmt.Sprintf("upper half of 52-week range (%.0f%%)", pos), map[model.Stage]int{model.Stage3: 10})
		}
	}

	return pickStage(sc.scores, sc.signals)
}

// pickStage selects the highest score using the fixed tie-break order
func pickStage(scores map[model.Stage]int, signals []string) model.StageClassification {
	best := stageOrder[0]
	for _, stage := range stageOrder[1:] {
		if scores[stage] > scores[best] {
			best = stage
		}
	}

	confidence := math.Min(float64(scores[best]), 100)
	result := model.StageClassification{
		Stage:      best,
		Confidence: confidence,
		Signals:    signals,
		Scores:     scores,
	}
	if scores[best] < minStageScore {
		result.Stage = model.Transition
	}
	return result
}
