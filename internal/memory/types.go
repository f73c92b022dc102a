// Package memory implements the adaptive strategy-memory core: it records
// completed-trade outcomes together with the market regime they occurred in,
// maintains rolling per-strategy and per-regime performance aggregates, and
// ranks candidate strategies for the current regime.
package memory

import (
	"encoding/json"
	"time"

	"strategy-memory/internal/market"
)

// TradeRecord is a completed trade as remembered by the ledger. Records are
// immutable once stored; the pnl fields are computed by the trading
// collaborator before recording, never by this package.
type TradeRecord struct {
	ID              string           `json:"id"`
	StrategyID      string           `json:"strategy_id"`
	StrategyType    string           `json:"strategy_type"`
	Symbol          string           `json:"symbol"`
	EntryTime       time.Time        `json:"entry_time"`
	ExitTime        time.Time        `json:"exit_time"`
	EntryPrice      float64          `json:"entry_price"`
	ExitPrice       float64          `json:"exit_price"`
	PnL             float64          `json:"pnl"`
	PnLPercentage   float64          `json:"pnl_percentage"`
	SuccessScore    int              `json:"success_score"`
	MarketCondition market.Condition `json:"market_condition"`
	// TradeParameters is an opaque audit blob; the core never interprets it.
	TradeParameters json.RawMessage `json:"trade_parameters,omitempty"`
}

// TradeInput is what the trading collaborator supplies when a position
// closes. ID and SuccessScore are assigned at record time.
type TradeInput struct {
	StrategyID      string           `json:"strategy_id"`
	StrategyType    string           `json:"strategy_type"`
	Symbol          string           `json:"symbol"`
	EntryTime       time.Time        `json:"entry_time"`
	ExitTime        time.Time        `json:"exit_time"`
	EntryPrice      float64          `json:"entry_price"`
	ExitPrice       float64          `json:"exit_price"`
	PnL             float64          `json:"pnl"`
	PnLPercentage   float64          `json:"pnl_percentage"`
	MarketCondition market.Condition `json:"market_condition"`
	TradeParameters json.RawMessage  `json:"trade_parameters,omitempty"`
}

// ConditionPerformance holds rolling aggregates for one strategy within one
// market regime. SuccessRate and AvgProfitPercentage are running means of
// the success score and pnl percentage respectively.
type ConditionPerformance struct {
	SuccessRate         float64 `json:"success_rate"`
	TotalTrades         int     `json:"total_trades"`
	AvgProfitPercentage float64 `json:"avg_profit_percentage"`
}

// StrategyPerformance holds rolling aggregates for one strategy across all
// regimes plus a per-regime breakdown. It is a materialized view over the
// trade log and is always recomputable from it.
type StrategyPerformance struct {
	StrategyID           string                                      `json:"strategy_id"`
	StrategyType         string                                      `json:"strategy_type"`
	OverallSuccessRate   float64                                     `json:"overall_success_rate"`
	TotalTrades          int                                         `json:"total_trades"`
	ProfitableTrades     int                                         `json:"profitable_trades"`
	AvgProfitPercentage  float64                                     `json:"avg_profit_percentage"`
	ConditionPerformance map[market.RegimeKey]*ConditionPerformance `json:"-"`
}

// strategyPerformanceWire is the JSON shape of StrategyPerformance, with the
// per-regime map keyed by the "trend-volatility-volume" wire string.
type strategyPerformanceWire struct {
	StrategyID           string                           `json:"strategy_id"`
	StrategyType         string                           `json:"strategy_type"`
	OverallSuccessRate   float64                          `json:"overall_success_rate"`
	TotalTrades          int                              `json:"total_trades"`
	ProfitableTrades     int                              `json:"profitable_trades"`
	AvgProfitPercentage  float64                          `json:"avg_profit_percentage"`
	ConditionPerformance map[string]*ConditionPerformance `json:"condition_performance"`
}

// MarshalJSON flattens the struct-keyed regime map to wire-string keys.
func (sp StrategyPerformance) MarshalJSON() ([]byte, error) {
	wire := strategyPerformanceWire{
		StrategyID:           sp.StrategyID,
		StrategyType:         sp.StrategyType,
		OverallSuccessRate:   sp.OverallSuccessRate,
		TotalTrades:          sp.TotalTrades,
		ProfitableTrades:     sp.ProfitableTrades,
		AvgProfitPercentage:  sp.AvgProfitPercentage,
		ConditionPerformance: make(map[string]*ConditionPerformance, len(sp.ConditionPerformance)),
	}
	for key, perf := range sp.ConditionPerformance {
		wire.ConditionPerformance[key.String()] = perf
	}
	return json.Marshal(wire)
}

// Strategy is a recommendation candidate from the strategy catalog. Config
// is passed through untouched.
type Strategy struct {
	ID     string          `json:"id"`
	Type   string          `json:"type"`
	Config json.RawMessage `json:"config,omitempty"`
}

// Recommendation is a confidence-scored strategy pick for a symbol under the
// current market regime. A nil *Recommendation means no strategy passed the
// sample-size gates.
type Recommendation struct {
	Symbol              string           `json:"symbol"`
	RecommendedStrategy string           `json:"recommended_strategy"`
	Confidence          float64          `json:"confidence"`
	Reason              string           `json:"reason"`
	MarketCondition     market.Condition `json:"market_condition"`
}
