package memory

import (
	"context"
	"errors"
	"math"
	"reflect"
	"sync"
	"testing"
	"time"

	"strategy-memory/internal/logging"
	"strategy-memory/internal/market"
)

// stubStore is an in-memory memory.Store with fault injection
type stubStore struct {
	mu      sync.Mutex
	snap    *Snapshot
	saveErr error
	loadErr error
	saves   int
	deletes int
}

func (s *stubStore) Load(ctx context.Context) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	if s.snap == nil {
		return nil, nil
	}
	records := make([]TradeRecord, len(s.snap.Records))
	copy(records, s.snap.Records)
	return &Snapshot{Records: records, UpdatedAt: s.snap.UpdatedAt}, nil
}

func (s *stubStore) Save(ctx context.Context, snap *Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	if s.saveErr != nil {
		return s.saveErr
	}
	records := make([]TradeRecord, len(snap.Records))
	copy(records, snap.Records)
	s.snap = &Snapshot{Records: records, UpdatedAt: snap.UpdatedAt}
	return nil
}

func (s *stubStore) Delete(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes++
	s.snap = nil
	return nil
}

func testLogger() *logging.Logger {
	return logging.New(&logging.Config{Level: "ERROR", Output: "stderr"})
}

func bullishLowMedium() market.Condition {
	return market.Condition{
		Trend:      market.TrendBullish,
		Volatility: market.LevelLow,
		Volume:     market.LevelMedium,
	}
}

func sidewaysMediumMedium() market.Condition {
	return market.Condition{
		Trend:      market.TrendSideways,
		Volatility: market.LevelMedium,
		Volume:     market.LevelMedium,
	}
}

func tradeInput(strategyID string, pnlPct float64, cond market.Condition) TradeInput {
	entry := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	return TradeInput{
		StrategyID:      strategyID,
		StrategyType:    "momentum",
		Symbol:          "BTCUSDT",
		EntryTime:       entry,
		ExitTime:        entry.Add(30 * time.Minute),
		EntryPrice:      100,
		ExitPrice:       100 * (1 + pnlPct/100),
		PnL:             pnlPct,
		PnLPercentage:   pnlPct,
		MarketCondition: cond,
	}
}

func TestRecordTradeAssignsIDAndScore(t *testing.T) {
	store := &stubStore{}
	ledger := NewLedger(context.Background(), store, testLogger())

	record := ledger.RecordTrade(context.Background(), tradeInput("momentum-1", 4, bullishLowMedium()))

	if record.ID == "" {
		t.Error("expected a generated record id")
	}
	if record.SuccessScore != 70 {
		t.Errorf("success score = %d, want 70", record.SuccessScore)
	}
	if store.saves != 1 {
		t.Errorf("saves = %d, want 1", store.saves)
	}
}

func TestRecordTradeIDsAreUnique(t *testing.T) {
	ledger := NewLedger(context.Background(), &stubStore{}, testLogger())

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		record := ledger.RecordTrade(context.Background(), tradeInput("s", 1, bullishLowMedium()))
		if seen[record.ID] {
			t.Fatalf("duplicate record id %s", record.ID)
		}
		seen[record.ID] = true
	}
}

// The incremental means must match a plain arithmetic mean over the same
// records, globally and per regime.
func TestIncrementalMeanMatchesArithmeticMean(t *testing.T) {
	ledger := NewLedger(context.Background(), &stubStore{}, testLogger())

	pnls := []float64{2.5, -1.2, 0.7, 8.9, -4.4, 3.3, 0.01, -0.01, 12.0, -12.0, 1.119, 5.5}
	conds := []market.Condition{bullishLowMedium(), sidewaysMediumMedium()}

	var sumPnl, sumScore float64
	regimeSums := make(map[market.RegimeKey][2]float64) // pnl, score
	regimeCounts := make(map[market.RegimeKey]int)

	for i, pnl := range pnls {
		cond := conds[i%2]
		record := ledger.RecordTrade(context.Background(), tradeInput("s1", pnl, cond))
		sumPnl += pnl
		sumScore += float64(record.SuccessScore)
		key := cond.Key()
		sums := regimeSums[key]
		sums[0] += pnl
		sums[1] += float64(record.SuccessScore)
		regimeSums[key] = sums
		regimeCounts[key]++
	}

	perf, ok := ledger.Performance("s1")
	if !ok {
		t.Fatal("missing aggregate for s1")
	}

	n := float64(len(pnls))
	if math.Abs(perf.AvgProfitPercentage-sumPnl/n) > 1e-9 {
		t.Errorf("avg profit = %v, want %v", perf.AvgProfitPercentage, sumPnl/n)
	}
	if math.Abs(perf.OverallSuccessRate-sumScore/n) > 1e-9 {
		t.Errorf("success rate = %v, want %v", perf.OverallSuccessRate, sumScore/n)
	}

	for key, sums := range regimeSums {
		cond, ok := perf.ConditionPerformance[key]
		if !ok {
			t.Fatalf("missing regime aggregate for %s", key)
		}
		count := float64(regimeCounts[key])
		if cond.TotalTrades != regimeCounts[key] {
			t.Errorf("regime %s trades = %d, want %d", key, cond.TotalTrades, regimeCounts[key])
		}
		if math.Abs(cond.AvgProfitPercentage-sums[0]/count) > 1e-9 {
			t.Errorf("regime %s avg profit = %v, want %v", key, cond.AvgProfitPercentage, sums[0]/count)
		}
		if math.Abs(cond.SuccessRate-sums[1]/count) > 1e-9 {
			t.Errorf("regime %s success rate = %v, want %v", key, cond.SuccessRate, sums[1]/count)
		}
	}
}

func TestProfitableTradesCountsStrictGains(t *testing.T) {
	ledger := NewLedger(context.Background(), &stubStore{}, testLogger())

	for _, pnl := range []float64{1.0, -1.0, 0.0, 2.5} {
		ledger.RecordTrade(context.Background(), tradeInput("s1", pnl, bullishLowMedium()))
	}

	perf, _ := ledger.Performance("s1")
	if perf.ProfitableTrades != 2 {
		t.Errorf("profitable trades = %d, want 2 (zero pnl is not a win)", perf.ProfitableTrades)
	}
	if perf.TotalTrades != 4 {
		t.Errorf("total trades = %d, want 4", perf.TotalTrades)
	}
}

// Reloading from the persisted log must reproduce the live aggregates
// exactly, since both paths replay the same update function.
func TestRebuildFromLogReproducesAggregates(t *testing.T) {
	store := &stubStore{}
	ledger := NewLedger(context.Background(), store, testLogger())

	pnls := []float64{3.1, -2.2, 0.5, 7.7, -0.9}
	for i, pnl := range pnls {
		cond := bullishLowMedium()
		if i%2 == 1 {
			cond = sidewaysMediumMedium()
		}
		ledger.RecordTrade(context.Background(), tradeInput("s1", pnl, cond))
		ledger.RecordTrade(context.Background(), tradeInput("s2", -pnl, cond))
	}

	reloaded := NewLedger(context.Background(), store, testLogger())

	if reloaded.TotalRecords() != ledger.TotalRecords() {
		t.Fatalf("reloaded records = %d, want %d", reloaded.TotalRecords(), ledger.TotalRecords())
	}

	for _, id := range []string{"s1", "s2"} {
		before, _ := ledger.Performance(id)
		after, ok := reloaded.Performance(id)
		if !ok {
			t.Fatalf("missing aggregate for %s after reload", id)
		}
		if !reflect.DeepEqual(before, after) {
			t.Errorf("aggregate for %s drifted after reload:\nbefore %+v\nafter  %+v", id, before, after)
		}
	}
}

func TestCapEvictsOldestFirst(t *testing.T) {
	store := &stubStore{}
	ledger := NewLedger(context.Background(), store, testLogger())
	ledger.SetMaxRecords(1000)

	var firstID string
	for i := 0; i < 1001; i++ {
		record := ledger.RecordTrade(context.Background(), tradeInput("s1", 1, bullishLowMedium()))
		if i == 0 {
			firstID = record.ID
		}
	}

	if ledger.TotalRecords() != 1000 {
		t.Fatalf("records = %d, want 1000", ledger.TotalRecords())
	}
	for _, r := range ledger.StrategyRecords("s1") {
		if r.ID == firstID {
			t.Fatal("oldest record should have been evicted")
		}
	}

	// After a rebuild, aggregates only reflect the retained records.
	reloaded := NewLedger(context.Background(), store, testLogger())
	perf, _ := reloaded.Performance("s1")
	if perf.TotalTrades != 1000 {
		t.Errorf("rebuilt total trades = %d, want 1000", perf.TotalTrades)
	}
}

func TestLoadFailureDegradesToEmpty(t *testing.T) {
	store := &stubStore{loadErr: errors.New("corrupt snapshot")}
	ledger := NewLedger(context.Background(), store, testLogger())

	if ledger.TotalRecords() != 0 {
		t.Errorf("records = %d, want 0 after load failure", ledger.TotalRecords())
	}
	// Recording still works after a degraded start.
	store.mu.Lock()
	store.loadErr = nil
	store.mu.Unlock()
	record := ledger.RecordTrade(context.Background(), tradeInput("s1", 1, bullishLowMedium()))
	if record.ID == "" {
		t.Error("expected record to be stored after degraded start")
	}
}

func TestSaveFailureKeepsInMemoryState(t *testing.T) {
	store := &stubStore{saveErr: errors.New("backend down")}
	ledger := NewLedger(context.Background(), store, testLogger())

	ledger.RecordTrade(context.Background(), tradeInput("s1", 2, bullishLowMedium()))

	if ledger.LastSaveError() == nil {
		t.Error("expected save error to be surfaced")
	}
	if ledger.TotalRecords() != 1 {
		t.Errorf("records = %d, want 1 despite save failure", ledger.TotalRecords())
	}

	// Next successful save includes everything recorded so far.
	store.mu.Lock()
	store.saveErr = nil
	store.mu.Unlock()
	ledger.RecordTrade(context.Background(), tradeInput("s1", 3, bullishLowMedium()))

	if ledger.LastSaveError() != nil {
		t.Error("save error should clear after a successful save")
	}
	store.mu.Lock()
	persisted := len(store.snap.Records)
	store.mu.Unlock()
	if persisted != 2 {
		t.Errorf("persisted records = %d, want 2", persisted)
	}
}

func TestClearEmptiesLogAggregatesAndStore(t *testing.T) {
	store := &stubStore{}
	ledger := NewLedger(context.Background(), store, testLogger())
	ledger.RecordTrade(context.Background(), tradeInput("s1", 2, bullishLowMedium()))

	if err := ledger.Clear(context.Background()); err != nil {
		t.Fatalf("clear failed: %v", err)
	}

	if ledger.TotalRecords() != 0 {
		t.Errorf("records = %d, want 0 after clear", ledger.TotalRecords())
	}
	if len(ledger.AllPerformance()) != 0 {
		t.Error("expected no aggregates after clear")
	}
	if store.deletes != 1 {
		t.Errorf("store deletes = %d, want 1", store.deletes)
	}

	fresh := NewLedger(context.Background(), store, testLogger())
	if fresh.TotalRecords() != 0 {
		t.Errorf("fresh ledger loaded %d records, want 0", fresh.TotalRecords())
	}
}

func TestStrategyRecordsPreservesInsertionOrder(t *testing.T) {
	ledger := NewLedger(context.Background(), &stubStore{}, testLogger())

	var ids []string
	for i := 0; i < 5; i++ {
		record := ledger.RecordTrade(context.Background(), tradeInput("s1", float64(i), bullishLowMedium()))
		ids = append(ids, record.ID)
	}
	ledger.RecordTrade(context.Background(), tradeInput("other", 1, bullishLowMedium()))

	records := ledger.StrategyRecords("s1")
	if len(records) != 5 {
		t.Fatalf("records = %d, want 5", len(records))
	}
	for i, r := range records {
		if r.ID != ids[i] {
			t.Errorf("record %d out of order: got %s, want %s", i, r.ID, ids[i])
		}
	}
}
