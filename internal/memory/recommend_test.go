package memory

import (
	"context"
	"math"
	"testing"

	"strategy-memory/internal/market"
)

func newTestRecommender(t *testing.T) (*Ledger, *Recommender) {
	t.Helper()
	ledger := NewLedger(context.Background(), &stubStore{}, testLogger())
	return ledger, NewRecommender(ledger, DefaultRecommenderConfig())
}

func record(ledger *Ledger, strategyID string, pnlPct float64, cond market.Condition) {
	ledger.RecordTrade(context.Background(), tradeInput(strategyID, pnlPct, cond))
}

func TestRecommendRequiresGlobalHistory(t *testing.T) {
	ledger, rec := newTestRecommender(t)

	// 9 records in one well-sampled regime still fail the global gate.
	for i := 0; i < 9; i++ {
		record(ledger, "alpha", 6, bullishLowMedium())
	}

	if got := rec.Recommend("BTCUSDT", bullishLowMedium(), []Strategy{{ID: "alpha"}}); got != nil {
		t.Errorf("expected nil with 9 total records, got %+v", got)
	}

	record(ledger, "alpha", 6, bullishLowMedium())
	if got := rec.Recommend("BTCUSDT", bullishLowMedium(), []Strategy{{ID: "alpha"}}); got == nil {
		t.Error("expected a recommendation with 10 total records")
	}
}

// A strategy below the per-regime sample gate is skipped even when its
// success rate beats every qualified candidate.
func TestRecommendRegimeSampleGate(t *testing.T) {
	ledger, rec := newTestRecommender(t)
	regime := bullishLowMedium()

	// alpha: 5 trades at +6% pnl, score 80 each.
	for i := 0; i < 5; i++ {
		record(ledger, "alpha", 6, regime)
	}
	// beta: only 2 trades, score 95 each - below the 3-sample gate.
	record(ledger, "beta", 9, regime)
	record(ledger, "beta", 9, regime)
	// Unrelated history in another regime to pass the global gate.
	for i := 0; i < 3; i++ {
		record(ledger, "gamma", 1, sidewaysMediumMedium())
	}

	got := rec.Recommend("BTCUSDT", regime, []Strategy{{ID: "beta"}, {ID: "alpha"}})
	if got == nil {
		t.Fatal("expected a recommendation")
	}
	if got.RecommendedStrategy != "alpha" {
		t.Errorf("recommended %s, want alpha (beta is under-sampled)", got.RecommendedStrategy)
	}
	// confidence = 80 * min(1, 5/10) = 40
	if math.Abs(got.Confidence-40) > 1e-9 {
		t.Errorf("confidence = %v, want 40", got.Confidence)
	}
	if got.Symbol != "BTCUSDT" {
		t.Errorf("symbol = %s, want BTCUSDT", got.Symbol)
	}
}

func TestRecommendConfidenceSaturatesAtFullSample(t *testing.T) {
	ledger, rec := newTestRecommender(t)
	regime := bullishLowMedium()

	// 12 trades in regime: sufficiency caps at 1, confidence equals the
	// success rate.
	for i := 0; i < 12; i++ {
		record(ledger, "alpha", 6, regime)
	}

	got := rec.Recommend("BTCUSDT", regime, []Strategy{{ID: "alpha"}})
	if got == nil {
		t.Fatal("expected a recommendation")
	}
	if math.Abs(got.Confidence-80) > 1e-9 {
		t.Errorf("confidence = %v, want 80 (saturated)", got.Confidence)
	}
}

func TestRecommendTieKeepsFirstCandidate(t *testing.T) {
	ledger, rec := newTestRecommender(t)
	regime := bullishLowMedium()

	for i := 0; i < 5; i++ {
		record(ledger, "alpha", 6, regime)
		record(ledger, "beta", 6, regime)
	}

	got := rec.Recommend("BTCUSDT", regime, []Strategy{{ID: "beta"}, {ID: "alpha"}})
	if got == nil {
		t.Fatal("expected a recommendation")
	}
	if got.RecommendedStrategy != "beta" {
		t.Errorf("tie must keep first candidate in input order, got %s", got.RecommendedStrategy)
	}
}

func TestRecommendNoQualifiedCandidates(t *testing.T) {
	ledger, rec := newTestRecommender(t)

	// Plenty of global history, but all of it in a different regime.
	for i := 0; i < 15; i++ {
		record(ledger, "alpha", 3, sidewaysMediumMedium())
	}

	got := rec.Recommend("BTCUSDT", bullishLowMedium(), []Strategy{{ID: "alpha"}, {ID: "unknown"}})
	if got != nil {
		t.Errorf("expected nil when no candidate qualifies in the regime, got %+v", got)
	}
}

// Conditions that differ only in RSI hit the same regime bucket.
func TestRecommendIgnoresRSIInRegimeLookup(t *testing.T) {
	ledger, rec := newTestRecommender(t)

	rsi := 78
	condWithRSI := bullishLowMedium()
	condWithRSI.RSI = &rsi

	for i := 0; i < 10; i++ {
		record(ledger, "alpha", 6, bullishLowMedium())
	}

	got := rec.Recommend("BTCUSDT", condWithRSI, []Strategy{{ID: "alpha"}})
	if got == nil {
		t.Fatal("expected RSI-bearing condition to match the same regime bucket")
	}
}
