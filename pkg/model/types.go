package model

import (
	"fmt"
	"time"
)

// Candle represents a single daily bar (OHLCV data)
type Candle struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// Stock represents basic stock information
type Stock struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
	Sector string `json:"sector"`
}

// Closes extracts closing prices in bar order
func Closes(candles []Candle) []float64 {
	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}
	return closes
}

// DiagnosticStage names where a unit of work was dropped
type DiagnosticStage string

const (
	StageFetch        DiagnosticStage = "fetch"
	StageInsufficient DiagnosticStage = "insufficient_data"
	StageInvalid      DiagnosticStage = "invalid_input"
)

// Skip records one unit of work (a ticker or a day) excluded from a result
type Skip struct {
	Unit   string          `json:"unit"`
	Stage  DiagnosticStage `json:"stage"`
	Reason string          `json:"reason"`
}

// Diagnostics is the side channel for best-effort runs.
// Skips never abort a run; they are reported here instead.
type Diagnostics struct {
	Skipped []Skip `json:"skipped"`
}

// Add records a skipped unit
func (d *Diagnostics) Add(unit string, stage DiagnosticStage, reason string) {
	d.Skipped = append(d.Skipped, Skip{Unit: unit, Stage: stage, Reason: reason})
}

// Addf records a skipped unit with a formatted reason
func (d *Diagnostics) Addf(unit string, stage DiagnosticStage, format string, args ...any) {
	d.Add(unit, stage, fmt.Sprintf(format, args...))
}

// Count returns the number of skipped units
func (d *Diagnostics) Count() int {
	return len(d.Skipped)
}

// CountBy returns the number of skipped units for a stage
func (d *Diagnostics) CountBy(stage DiagnosticStage) int {
	n := 0
	for _, s := range d.Skipped {
		if s.Stage == stage {
			n++
		}
	}
	return n
}
