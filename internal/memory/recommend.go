package memory

import (
	"fmt"

	"strategy-memory/internal/market"
)

// Sample-size gates and the confidence saturation point. These are fixed
// heuristics carried over from live trading; tune via RecommenderConfig, not
// by editing call sites.
const (
	DefaultGlobalMinTrades      = 10
	DefaultRegimeMinTrades      = 3
	DefaultFullConfidenceTrades = 10
)

// RecommenderConfig holds the recommendation gates.
type RecommenderConfig struct {
	// GlobalMinTrades is the minimum ledger-wide record count before any
	// recommendation is produced.
	GlobalMinTrades int `json:"global_min_trades"`
	// RegimeMinTrades is the minimum per-strategy sample size within the
	// current regime for a candidate to be considered.
	RegimeMinTrades int `json:"regime_min_trades"`
	// FullConfidenceTrades is the regime sample size at which confidence
	// stops being discounted.
	FullConfidenceTrades int `json:"full_confidence_trades"`
}

// DefaultRecommenderConfig returns the standard gates.
func DefaultRecommenderConfig() RecommenderConfig {
	return RecommenderConfig{
		GlobalMinTrades:      DefaultGlobalMinTrades,
		RegimeMinTrades:      DefaultRegimeMinTrades,
		FullConfidenceTrades: DefaultFullConfidenceTrades,
	}
}

// Recommender ranks candidate strategies for the current market regime using
// the ledger's aggregates. It only ever reads the ledger.
type Recommender struct {
	ledger *Ledger
	cfg    RecommenderConfig
}

// NewRecommender creates a recommender over a ledger.
func NewRecommender(ledger *Ledger, cfg RecommenderConfig) *Recommender {
	if cfg.GlobalMinTrades <= 0 {
		cfg.GlobalMinTrades = DefaultGlobalMinTrades
	}
	if cfg.RegimeMinTrades <= 0 {
		cfg.RegimeMinTrades = DefaultRegimeMinTrades
	}
	if cfg.FullConfidenceTrades <= 0 {
		cfg.FullConfidenceTrades = DefaultFullConfidenceTrades
	}
	return &Recommender{ledger: ledger, cfg: cfg}
}

// Recommend selects the best-performing candidate strategy for the symbol
// under the given market condition. It returns nil when global history is
// too thin or no candidate passes the per-regime sample gate.
//
// Confidence is the regime success rate discounted by sample sufficiency:
// successRate * min(1, regimeTrades/FullConfidenceTrades). Ties keep the
// first candidate in input order.
func (r *Recommender) Recommend(symbol string, condition market.Condition, candidates []Strategy) *Recommendation {
	if r.ledger.TotalRecords() < r.cfg.GlobalMinTrades {
		return nil
	}

	key := condition.Key()

	var (
		best           *Strategy
		bestConfidence float64
		bestRegimeN    int
	)

	for i := range candidates {
		candidate := candidates[i]

		perf, ok := r.ledger.Performance(candidate.ID)
		if !ok {
			continue
		}
		cond, ok := perf.ConditionPerformance[key]
		if !ok || cond.TotalTrades < r.cfg.RegimeMinTrades {
			continue
		}

		sufficiency := float64(cond.TotalTrades) / float64(r.cfg.FullConfidenceTrades)
		if sufficiency > 1 {
			sufficiency = 1
		}
		confidence := cond.SuccessRate * sufficiency

		if best == nil || confidence > bestConfidence {
			best = &candidates[i]
			bestConfidence = confidence
			bestRegimeN = cond.TotalTrades
		}
	}

	if best == nil {
		return nil
	}

	return &Recommendation{
		Symbol:              symbol,
		RecommendedStrategy: best.ID,
		Confidence:          bestConfidence,
		Reason: fmt.Sprintf(
			"strategy %s has %.1f%% confidence based on %d trades in similar %s conditions",
			best.ID, bestConfidence, bestRegimeN, key),
		MarketCondition: condition,
	}
}
