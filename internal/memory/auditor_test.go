package memory

import (
	"context"
	"testing"

	"strategy-memory/internal/market"
)

func TestAuditorCleanLedger(t *testing.T) {
	ledger := NewLedger(context.Background(), &stubStore{}, testLogger())
	for i := 0; i < 20; i++ {
		cond := bullishLowMedium()
		if i%3 == 0 {
			cond = sidewaysMediumMedium()
		}
		ledger.RecordTrade(context.Background(), tradeInput("s1", float64(i)-7.5, cond))
	}

	auditor := NewAuditor(ledger, testLogger())
	if drifted := auditor.Run(); drifted != 0 {
		t.Errorf("audit reported %d drifting strategies on a clean ledger", drifted)
	}
}

func TestAuditorToleratesEvictedHistory(t *testing.T) {
	ledger := NewLedger(context.Background(), &stubStore{}, testLogger())
	ledger.SetMaxRecords(10)

	// 15 records: live aggregate counts all 15, the log retains 10. The
	// audit must not flag this as drift.
	for i := 0; i < 15; i++ {
		ledger.RecordTrade(context.Background(), tradeInput("s1", 1, market.Condition{
			Trend:      market.TrendBullish,
			Volatility: market.LevelLow,
			Volume:     market.LevelMedium,
		}))
	}

	auditor := NewAuditor(ledger, testLogger())
	if drifted := auditor.Run(); drifted != 0 {
		t.Errorf("audit flagged eviction as drift: %d", drifted)
	}
}
