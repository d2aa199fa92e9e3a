package model

// Stage is a market-cycle phase
type Stage string

const (
	Stage1     Stage = "Stage 1 - Base Building"
	Stage2     Stage = "Stage 2 - Advancing"
	Stage3     Stage = "Stage 3 - Topping"
	Stage4     Stage = "Stage 4 - Declining"
	Transition Stage = "Transition"
)

// TrendCriteria is the eight-point trend template evaluation
type TrendCriteria struct {
	PriceAboveMA150And200 bool    `json:"c1_price_above_ma150_ma200"`
	MA150AboveMA200       bool    `json:"c2_ma150_above_ma200"`
	MA200TrendingUp       bool    `json:"c3_ma200_trending_up"`
	MA50AboveMA150And200  bool    `json:"c4_ma50_above_ma150_ma200"`
	PriceAboveMA50        bool    `json:"c5_price_above_ma50"`
	AboveLow52By30Pct     bool    `json:"c6_30pct_above_52w_low"`
	Within25PctOfHigh52   bool    `json:"c7_within_25pct_of_52w_high"`
	RelativeStrengthOK    bool    `json:"c8_rs_at_least_70"`
	Score                 int     `json:"score"`
	SectorRS              float64 `json:"sector_rs"`
	High52                float64 `json:"high_52w"`
	Low52                 float64 `json:"low_52w"`
	Price                 float64 `json:"price"`
}

// Flags returns C1..C8 in order
func (c *TrendCriteria) Flags() [8]bool {
	return [8]bool{
		c.PriceAboveMA150And200,
		c.MA150AboveMA200,
		c.MA200TrendingUp,
		c.MA50AboveMA150And200,
		c.PriceAboveMA50,
		c.AboveLow52By30Pct,
		c.Within25PctOfHigh52,
		c.RelativeStrengthOK,
	}
}

// Passed reports whether every criterion holds
func (c *TrendCriteria) Passed() bool {
	return c.Score == 8
}

// StageClassification is the outcome of one stage classification
type StageClassification struct {
	Stage      Stage         `json:"stage"`
	Confidence float64       `json:"confidence"`
	Signals    []string      `json:"signals"`
	Scores     map[Stage]int `json:"scores,omitempty"`
}

// TrendScreenResult is one row of the universe-wide trend template screen
type TrendScreenResult struct {
	Ticker     string              `json:"ticker"`
	Sector     string              `json:"sector"`
	Price      float64             `json:"price"`
	YearReturn float64             `json:"year_return"`
	Criteria   TrendCriteria       `json:"criteria"`
	Stage      StageClassification `json:"stage"`
}
