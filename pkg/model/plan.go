package model

// PlanQuality buckets a plan's risk/reward
type PlanQuality string

const (
	QualityGood PlanQuality = "good"
	QualityFair PlanQuality = "fair"
	QualityPoor PlanQuality = "poor"
)

// PriceLevel is a labelled price with its distance from entry
type PriceLevel struct {
	Label   string  `json:"label"`
	Price   float64 `json:"price"`
	Percent float64 `json:"percent"`
}

// RiskReward summarises the plan's payoff
type RiskReward struct {
	RiskPerShare float64     `json:"risk_per_share"`
	RewardTP1    float64     `json:"reward_tp1"`
	RewardTP2    float64     `json:"reward_tp2"`
	RRToTP1      float64     `json:"rr_to_tp1"`
	RRToTP2      float64     `json:"rr_to_tp2"`
	Quality      PlanQuality `json:"quality"`
}

// PositionSizing sizes the trade in whole lots
type PositionSizing struct {
	MaxRiskAmount  float64 `json:"max_risk_amount"`
	Lots           int64   `json:"lots"`
	Shares         int64   `json:"shares"`
	PositionValue  float64 `json:"position_value"`
	ActualRisk     float64 `json:"actual_risk"`
	AccountPercent float64 `json:"account_percent"`
}

// TradingPlanResult is the full trading plan
type TradingPlanResult struct {
	Ticker            string                 `json:"ticker,omitempty"`
	TickSize          float64                `json:"tick_size"`
	Entry             PriceLevel             `json:"entry"`
	TakeProfit        [3]PriceLevel          `json:"take_profit"`
	StopLoss          PriceLevel             `json:"stop_loss"`
	ATR               Option[float64]        `json:"atr"`
	RiskReward        RiskReward             `json:"risk_reward"`
	PositionSizing    Option[PositionSizing] `json:"position_sizing"`
	ExecutionStrategy [5]string              `json:"execution_strategy"`
}
