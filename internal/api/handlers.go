package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"strategy-memory/internal/market"
	"strategy-memory/internal/memory"
)

// handleRecordTrade records a completed trade. The caller supplies pnl and
// pnl_percentage already computed for the trade side; the service only
// scores and stores them.
func (s *Server) handleRecordTrade(c *gin.Context) {
	var input memory.TradeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		errorResponse(c, http.StatusBadRequest, "Invalid trade payload: "+err.Error())
		return
	}
	if input.StrategyID == "" || input.Symbol == "" {
		errorResponse(c, http.StatusBadRequest, "strategy_id and symbol are required")
		return
	}

	record := s.service.RecordTradePerformance(c.Request.Context(), input)
	successResponse(c, record)
}

// handleGetPerformance returns the aggregate for every strategy that has
// traded.
func (s *Server) handleGetPerformance(c *gin.Context) {
	successResponse(c, s.service.GetAllPerformanceMetrics())
}

// handleGetStrategyTrades returns one strategy's records in insertion order.
func (s *Server) handleGetStrategyTrades(c *gin.Context) {
	records := s.service.GetStrategyRecords(c.Param("id"))
	if records == nil {
		records = []memory.TradeRecord{}
	}
	successResponse(c, records)
}

// recommendationRequest carries a symbol, the candidate strategies and
// either a pre-classified condition or a raw candle window to classify
// server-side.
type recommendationRequest struct {
	Symbol     string            `json:"symbol"`
	Condition  *market.Condition `json:"condition,omitempty"`
	Candles    []market.Candle   `json:"candles,omitempty"`
	Strategies []memory.Strategy `json:"strategies"`
}

// handleGetRecommendation ranks candidate strategies for the current regime.
// A null recommendation in the response means insufficient history, which is
// a normal outcome for the caller to handle.
func (s *Server) handleGetRecommendation(c *gin.Context) {
	var req recommendationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "Invalid recommendation payload: "+err.Error())
		return
	}
	if req.Symbol == "" {
		errorResponse(c, http.StatusBadRequest, "symbol is required")
		return
	}

	var condition market.Condition
	if req.Condition != nil {
		condition = *req.Condition
	} else {
		condition = s.service.AnalyzeMarketCondition(req.Candles)
	}

	rec := s.service.GetRecommendation(req.Symbol, condition, req.Strategies)
	successResponse(c, gin.H{
		"recommendation": rec,
		"condition":      condition,
	})
}

type analyzeRequest struct {
	Candles []market.Candle `json:"candles"`
}

// handleAnalyzeMarket classifies a candle window into a market condition.
// Short windows get the neutral default rather than an error.
func (s *Server) handleAnalyzeMarket(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "Invalid candle payload: "+err.Error())
		return
	}

	successResponse(c, s.service.AnalyzeMarketCondition(req.Candles))
}

// handleClearMemory irreversibly wipes the trade log, aggregates and
// persisted state.
func (s *Server) handleClearMemory(c *gin.Context) {
	if err := s.service.ClearMemory(c.Request.Context()); err != nil {
		errorResponse(c, http.StatusInternalServerError, "Failed to clear memory: "+err.Error())
		return
	}
	successResponse(c, gin.H{"cleared": true})
}
