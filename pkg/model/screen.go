package model

import "time"

// ScreenedStock is one row of a preset screen
type ScreenedStock struct {
	Ticker     string          `json:"ticker"`
	Price      float64         `json:"price"`
	RSI        Option[float64] `json:"rsi"`
	MACDSignal string          `json:"macd_signal"`
	Trend      Option[Trend]   `json:"trend"`
	Signal     Signal          `json:"signal"`
	Score      float64         `json:"score"`
}

// ScreenReport is the output of a screening run
type ScreenReport struct {
	RunID        string          `json:"run_id"`
	Preset       string          `json:"preset"`
	StartedAt    time.Time       `json:"started_at"`
	TotalScanned int             `json:"total_scanned"`
	Results      []ScreenedStock `json:"results"`
	Diagnostics  Diagnostics     `json:"diagnostics"`
	ScanTime     time.Duration   `json:"scan_time"`
}

// TrendScreenReport is the output of a universe-wide trend template run
type TrendScreenReport struct {
	RunID        string              `json:"run_id"`
	MinScore     int                 `json:"min_score"`
	StartedAt    time.Time           `json:"started_at"`
	TotalScanned int                 `json:"total_scanned"`
	Results      []TrendScreenResult `json:"results"`
	Diagnostics  Diagnostics         `json:"diagnostics"`
	ScanTime     time.Duration       `json:"scan_time"`
}
