package memory

import (
	"context"

	"strategy-memory/internal/events"
	"strategy-memory/internal/logging"
	"strategy-memory/internal/market"
)

// Service is the public facade over the ledger, classifier and recommender.
// One instance is constructed at application start and passed by reference
// to every consumer; tests construct isolated instances with their own
// stores.
type Service struct {
	ledger      *Ledger
	recommender *Recommender
	eventBus    *events.EventBus
	logger      *logging.Logger
}

// NewService constructs the memory service. The ledger eagerly loads and
// replays any persisted trade log. eventBus may be nil when no observers are
// wired (tests).
func NewService(ctx context.Context, store Store, cfg RecommenderConfig, eventBus *events.EventBus, logger *logging.Logger) *Service {
	ledger := NewLedger(ctx, store, logger)
	return &Service{
		ledger:      ledger,
		recommender: NewRecommender(ledger, cfg),
		eventBus:    eventBus,
		logger:      logger.WithComponent("memory"),
	}
}

// Ledger exposes the underlying ledger for the drift auditor.
func (s *Service) Ledger() *Ledger {
	return s.ledger
}

// RecordTradePerformance records a completed trade and returns the stored
// record. Total for valid input; persistence failures are logged and
// surfaced via SaveHealthy, never returned.
func (s *Service) RecordTradePerformance(ctx context.Context, input TradeInput) TradeRecord {
	record := s.ledger.RecordTrade(ctx, input)

	s.logger.Info("trade recorded",
		"record_id", record.ID,
		"strategy_id", record.StrategyID,
		"symbol", record.Symbol,
		"pnl_percent", record.PnLPercentage,
		"success_score", record.SuccessScore,
		"regime", record.MarketCondition.Key().String())

	if s.eventBus != nil {
		s.eventBus.PublishTradeRecorded(record.ID, record.StrategyID, record.Symbol,
			record.PnL, record.PnLPercentage, record.SuccessScore)
		if err := s.ledger.LastSaveError(); err != nil {
			s.eventBus.PublishError("memory", "trade log not persisted", err)
		}
	}

	return record
}

// GetAllPerformanceMetrics returns the aggregate for every strategy with at
// least one recorded trade.
func (s *Service) GetAllPerformanceMetrics() []StrategyPerformance {
	return s.ledger.AllPerformance()
}

// GetStrategyRecords returns one strategy's trade records in insertion
// order.
func (s *Service) GetStrategyRecords(strategyID string) []TradeRecord {
	return s.ledger.StrategyRecords(strategyID)
}

// AnalyzeMarketCondition classifies the current market regime from a candle
// window, most-recent-last.
func (s *Service) AnalyzeMarketCondition(candles []market.Candle) market.Condition {
	return market.Classify(candles)
}

// GetRecommendation ranks the candidate strategies for the symbol under the
// given condition. Returns nil when history is insufficient; that is a
// normal outcome, not an error.
func (s *Service) GetRecommendation(symbol string, condition market.Condition, candidates []Strategy) *Recommendation {
	rec := s.recommender.Recommend(symbol, condition, candidates)
	if rec != nil && s.eventBus != nil {
		s.eventBus.PublishRecommendation(rec.Symbol, rec.RecommendedStrategy, rec.Confidence, rec.Reason)
	}
	return rec
}

// ClearMemory irreversibly drops all records, aggregates and persisted
// state.
func (s *Service) ClearMemory(ctx context.Context) error {
	dropped := s.ledger.TotalRecords()
	if err := s.ledger.Clear(ctx); err != nil {
		return err
	}

	s.logger.Info("memory cleared", "records_dropped", dropped)
	if s.eventBus != nil {
		s.eventBus.PublishMemoryCleared(dropped)
	}
	return nil
}

// SaveHealthy reports whether the most recent persistence attempt succeeded.
func (s *Service) SaveHealthy() bool {
	return s.ledger.LastSaveError() == nil
}
