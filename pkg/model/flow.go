package model

import (
	"strings"
	"time"
)

// BrokerCategory groups brokers by the kind of money they are presumed to carry
type BrokerCategory string

const (
	CategorySmartmoney BrokerCategory = "Smartmoney"
	CategoryWhale      BrokerCategory = "Whale"
	CategoryRetail     BrokerCategory = "Retail"
	CategoryMix        BrokerCategory = "Mix"
	CategoryUnknown    BrokerCategory = "Unknown"
)

// BrokerCategories lists every category in reporting order
var BrokerCategories = []BrokerCategory{
	CategorySmartmoney,
	CategoryWhale,
	CategoryRetail,
	CategoryMix,
	CategoryUnknown,
}

// IsSmartMoney reports whether the category counts as institutional money
func (c BrokerCategory) IsSmartMoney() bool {
	return c == CategorySmartmoney || c == CategoryWhale
}

// ParseBrokerCategory matches a category name case-insensitively, Unknown when it is not one of BrokerCategories
func ParseBrokerCategory(s string) BrokerCategory {
	s = strings.TrimSpace(s)
	for _, c := range BrokerCategories {
		if strings.EqualFold(s, string(c)) {
			return c
		}
	}
	return CategoryUnknown
}

// AccDistTag is the per-day accumulation/distribution label
type AccDistTag string

const (
	TagBigAcc  AccDistTag = "Big Acc"
	TagAcc     AccDistTag = "Acc"
	TagNeutral AccDistTag = "Neutral"
	TagDist    AccDistTag = "Dist"
	TagBigDist AccDistTag = "Big Dist"
)

// ParseAccDistTag matches a tag case-insensitively, ignoring spaces and
// underscores. Unrecognised values return "".
func ParseAccDistTag(s string) AccDistTag {
	norm := func(v string) string {
		return strings.ToLower(strings.NewReplacer(" ", "", "_", "", "-", "").Replace(v))
	}
	key := norm(s)
	for _, t := range []AccDistTag{TagBigAcc, TagAcc, TagNeutral, TagDist, TagBigDist} {
		if key == norm(string(t)) {
			return t
		}
	}
	return ""
}

// IsAccumulation reports whether the tag is Acc or Big Acc
func (t AccDistTag) IsAccumulation() bool {
	return t == TagAcc || t == TagBigAcc
}

// IsDistribution reports whether the tag is Dist or Big Dist
func (t AccDistTag) IsDistribution() bool {
	return t == TagDist || t == TagBigDist
}

// BrokerEntry is one row of a daily buy or sell leaderboard.
// Value is the traded value in rupiah, Lots is in 100-share lots.
type BrokerEntry struct {
	BrokerCode string         `json:"broker_code"`
	Value      float64        `json:"value"`
	Lots       int64          `json:"lots"`
	Category   BrokerCategory `json:"category"`
}

// DailyBrokerFlow is the broker leaderboard of one ticker on one day
type DailyBrokerFlow struct {
	Date       time.Time     `json:"date"`
	TopBuyers  []BrokerEntry `json:"top_buyers"`
	TopSellers []BrokerEntry `json:"top_sellers"`
	AccDistTag AccDistTag    `json:"acc_dist_tag"`
}

// Phase is the bandarmology phase
type Phase string

const (
	PhaseDistribution      Phase = "Distribution"
	PhaseNeutral           Phase = "Neutral"
	PhaseEarlyAccumulation Phase = "Early Accumulation"
	PhaseMidAccumulation   Phase = "Mid Accumulation"
	PhaseLateAccumulation  Phase = "Late Accumulation"
	PhaseMarkupReady       Phase = "Markup Ready"
)

// BrokerNet is a broker's net buy value across a window
type BrokerNet struct {
	BrokerCode string         `json:"broker_code"`
	Category   BrokerCategory `json:"category"`
	NetValue   float64        `json:"net_value"`
}

// BandarmologyResult aggregates broker flow over a multi-day window
type BandarmologyResult struct {
	Ticker            string                     `json:"ticker"`
	RequestedDays     int                        `json:"requested_days"`
	MomentumScore     float64                    `json:"momentum_score"`
	MomentumSignal    Signal                     `json:"momentum_signal"`
	Phase             Phase                      `json:"phase"`
	AccDays           int                        `json:"acc_days"`
	DistDays          int                        `json:"dist_days"`
	SmartMoneyNet     float64                    `json:"smart_money_net"`
	RetailNet         float64                    `json:"retail_net"`
	TotalVolume       float64                    `json:"total_volume"`
	BrokerComposition map[BrokerCategory]float64 `json:"broker_composition"`
	TopAccumulators   []BrokerNet                `json:"top_accumulators"`
	PatternAlerts     []string                   `json:"pattern_alerts"`
	Recommendation    string                     `json:"recommendation"`
	DailyFlows        []DailyBrokerFlow          `json:"daily_flows"`
	Diagnostics       Diagnostics                `json:"diagnostics"`
}
