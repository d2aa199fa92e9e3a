package model

import (
	"encoding/json"
	"testing"
)

func TestOptionGet(t *testing.T) {
	v, ok := Some(42.5).Get()
	if !ok || v != 42.5 {
		t.Errorf("Expected 42.5, got %v (ok=%v)", v, ok)
	}

	var none Option[float64]
	if none.IsSome() {
		t.Error("Expected zero value to be None")
	}
	if got := none.OrElse(7); got != 7 {
		t.Errorf("Expected fallback 7, got %v", got)
	}
}

func TestOptionJSON(t *testing.T) {
	type row struct {
		RSI  Option[float64] `json:"rsi"`
		MACD Option[MACD]    `json:"macd"`
	}

	data, err := json.Marshal(row{RSI: Some(31.25)})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(data) != `{"rsi":31.25,"macd":null}` {
		t.Errorf("Unexpected JSON %s", data)
	}

	var back row
	if err := json.Unmarshal([]byte(`{"rsi":null,"macd":{"line":1,"signal":0.5,"histogram":0.5}}`), &back); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if back.RSI.IsSome() {
		t.Error("Expected null RSI to decode as None")
	}
	if m, ok := back.MACD.Get(); !ok || m.Histogram != 0.5 {
		t.Errorf("Expected MACD histogram 0.5, got %+v (ok=%v)", m, ok)
	}
}

func TestDiagnostics(t *testing.T) {
	var d Diagnostics
	d.Add("BBCA", StageFetch, "timeout")
	d.Addf("2024-06-07", StageInsufficient, "need %d bars, got %d", 35, 10)

	if d.Count() != 2 {
		t.Errorf("Expected 2 skips, got %d", d.Count())
	}
	if d.CountBy(StageFetch) != 1 || d.CountBy(StageInvalid) != 0 {
		t.Errorf("Unexpected per-stage counts: %+v", d.Skipped)
	}
	if d.Skipped[1].Reason != "need 35 bars, got 10" {
		t.Errorf("Unexpected reason %q", d.Skipped[1].Reason)
	}
}
