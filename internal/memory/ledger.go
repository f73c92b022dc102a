package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"strategy-memory/internal/logging"
	"strategy-memory/internal/market"
)

// DefaultMaxRecords caps the trade log; the oldest record is evicted first
// once the cap is reached.
const DefaultMaxRecords = 1000

// Ledger owns the append-only trade record log and the per-strategy
// aggregates derived from it. The log is the source of truth: aggregates are
// rebuilt from it on load and updated incrementally on every record.
//
// A single logical writer is assumed (the trade-completion callback); reads
// may come from any goroutine and see either the pre- or fully-post-update
// state, never a partial one.
type Ledger struct {
	mu         sync.RWMutex
	records    []TradeRecord
	aggregates map[string]*StrategyPerformance
	maxRecords int
	store      Store
	logger     *logging.Logger

	// lastSaveErr holds the most recent persistence failure; in-memory
	// state remains authoritative and the next successful save catches up.
	lastSaveErr error
}

// NewLedger constructs a ledger and eagerly loads persisted records,
// rebuilding all aggregates by replaying the log. A missing or corrupt
// snapshot degrades to an empty ledger and never fails construction.
func NewLedger(ctx context.Context, store Store, logger *logging.Logger) *Ledger {
	l := &Ledger{
		records:    make([]TradeRecord, 0),
		aggregates: make(map[string]*StrategyPerformance),
		maxRecords: DefaultMaxRecords,
		store:      store,
		logger:     logger.WithComponent("ledger"),
	}

	snap, err := store.Load(ctx)
	if err != nil {
		l.logger.Warn("failed to load persisted trade log, starting empty", "error", err)
		return l
	}
	if snap == nil {
		l.logger.Info("no persisted trade log found, starting empty")
		return l
	}

	l.records = append(l.records, snap.Records...)
	if len(l.records) > l.maxRecords {
		l.records = l.records[len(l.records)-l.maxRecords:]
	}
	for i := range l.records {
		l.updateAggregate(&l.records[i])
	}

	l.logger.Info("trade log restored",
		"records", len(l.records),
		"strategies", len(l.aggregates),
		"updated_at", snap.UpdatedAt)

	return l
}

// SetMaxRecords overrides the retention cap. Intended for construction time;
// an already-over-cap log is trimmed on the next record.
func (l *Ledger) SetMaxRecords(n int) {
	if n <= 0 {
		return
	}
	l.mu.Lock()
	l.maxRecords = n
	l.mu.Unlock()
}

// RecordTrade scores the trade, assigns a fresh id, appends it to the log
// (evicting the oldest record beyond the cap), updates the strategy's
// aggregates and persists the full log. The returned record is the stored
// one. The aggregate reflects the record as soon as this call returns.
func (l *Ledger) RecordTrade(ctx context.Context, input TradeInput) TradeRecord {
	record := TradeRecord{
		ID:              newRecordID(),
		StrategyID:      input.StrategyID,
		StrategyType:    input.StrategyType,
		Symbol:          input.Symbol,
		EntryTime:       input.EntryTime,
		ExitTime:        input.ExitTime,
		EntryPrice:      input.EntryPrice,
		ExitPrice:       input.ExitPrice,
		PnL:             input.PnL,
		PnLPercentage:   input.PnLPercentage,
		SuccessScore:    SuccessScore(input.PnLPercentage),
		MarketCondition: input.MarketCondition,
		TradeParameters: input.TradeParameters,
	}

	l.mu.Lock()
	l.records = append(l.records, record)
	if len(l.records) > l.maxRecords {
		l.records = l.records[len(l.records)-l.maxRecords:]
	}
	l.updateAggregate(&record)
	snap := l.snapshotLocked()
	l.mu.Unlock()

	if err := l.store.Save(ctx, snap); err != nil {
		l.mu.Lock()
		l.lastSaveErr = err
		l.mu.Unlock()
		l.logger.Warn("failed to persist trade log, in-memory state remains authoritative", "error", err)
	} else {
		l.mu.Lock()
		l.lastSaveErr = nil
		l.mu.Unlock()
	}

	return record
}

// updateAggregate applies one record to the strategy's global and
// regime-scoped aggregates using incremental means. It is the single update
// path for both live records and load-time replay, so a rebuild from the log
// always reproduces the live aggregates. Caller holds the write lock.
func (l *Ledger) updateAggregate(record *TradeRecord) {
	perf, ok := l.aggregates[record.StrategyID]
	if !ok {
		perf = &StrategyPerformance{
			StrategyID:           record.StrategyID,
			StrategyType:         record.StrategyType,
			ConditionPerformance: make(map[market.RegimeKey]*ConditionPerformance),
		}
		l.aggregates[record.StrategyID] = perf
	}

	perf.TotalTrades++
	if record.PnLPercentage > 0 {
		perf.ProfitableTrades++
	}
	prior := float64(perf.TotalTrades - 1)
	total := float64(perf.TotalTrades)
	perf.AvgProfitPercentage = (perf.AvgProfitPercentage*prior + record.PnLPercentage) / total
	perf.OverallSuccessRate = (perf.OverallSuccessRate*prior + float64(record.SuccessScore)) / total

	key := record.MarketCondition.Key()
	cond, ok := perf.ConditionPerformance[key]
	if !ok {
		cond = &ConditionPerformance{}
		perf.ConditionPerformance[key] = cond
	}

	cond.TotalTrades++
	condPrior := float64(cond.TotalTrades - 1)
	condTotal := float64(cond.TotalTrades)
	cond.AvgProfitPercentage = (cond.AvgProfitPercentage*condPrior + record.PnLPercentage) / condTotal
	cond.SuccessRate = (cond.SuccessRate*condPrior + float64(record.SuccessScore)) / condTotal
}

// snapshotLocked copies the log for persistence. Caller holds a lock.
func (l *Ledger) snapshotLocked() *Snapshot {
	records := make([]TradeRecord, len(l.records))
	copy(records, l.records)
	return &Snapshot{Records: records, UpdatedAt: time.Now().UTC()}
}

// StrategyRecords returns this strategy's records in insertion order.
func (l *Ledger) StrategyRecords(strategyID string) []TradeRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []TradeRecord
	for _, r := range l.records {
		if r.StrategyID == strategyID {
			out = append(out, r)
		}
	}
	return out
}

// AllPerformance returns a copy of every strategy aggregate with at least
// one recorded trade.
func (l *Ledger) AllPerformance() []StrategyPerformance {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]StrategyPerformance, 0, len(l.aggregates))
	for _, perf := range l.aggregates {
		out = append(out, copyPerformance(perf))
	}
	return out
}

// Performance returns one strategy's aggregate, or false when the strategy
// has never traded.
func (l *Ledger) Performance(strategyID string) (StrategyPerformance, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	perf, ok := l.aggregates[strategyID]
	if !ok {
		return StrategyPerformance{}, false
	}
	return copyPerformance(perf), true
}

// TotalRecords returns the number of retained records across all strategies.
func (l *Ledger) TotalRecords() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}

// LastSaveError reports the most recent persistence failure, if the latest
// save did not succeed.
func (l *Ledger) LastSaveError() error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.lastSaveErr
}

// Clear irreversibly empties the log and aggregates and deletes persisted
// state.
func (l *Ledger) Clear(ctx context.Context) error {
	l.mu.Lock()
	l.records = make([]TradeRecord, 0)
	l.aggregates = make(map[string]*StrategyPerformance)
	l.lastSaveErr = nil
	l.mu.Unlock()

	if err := l.store.Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete persisted trade log: %w", err)
	}
	return nil
}

// RebuildAggregates recomputes the aggregate map from the raw log by
// replaying the same incremental update used on the live path. Used by the
// drift auditor; the live map is untouched.
func (l *Ledger) RebuildAggregates() map[string]*StrategyPerformance {
	l.mu.RLock()
	defer l.mu.RUnlock()

	shadow := &Ledger{aggregates: make(map[string]*StrategyPerformance)}
	for i := range l.records {
		shadow.updateAggregate(&l.records[i])
	}
	return shadow.aggregates
}

func copyPerformance(perf *StrategyPerformance) StrategyPerformance {
	out := *perf
	out.ConditionPerformance = make(map[market.RegimeKey]*ConditionPerformance, len(perf.ConditionPerformance))
	for key, cond := range perf.ConditionPerformance {
		condCopy := *cond
		out.ConditionPerformance[key] = &condCopy
	}
	return out
}

// newRecordID builds a unique record id from the record timestamp and a
// random suffix.
func newRecordID() string {
	return fmt.Sprintf("trade_%d_%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}
