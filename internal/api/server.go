// Package api exposes the strategy memory service over HTTP and WebSocket.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"strategy-memory/internal/events"
	"strategy-memory/internal/logging"
	"strategy-memory/internal/memory"
)

// ServerConfig holds server configuration
type ServerConfig struct {
	Host string
	Port int
}

// StoreHealth reports persistence backend availability for the health
// endpoint. Backends without a liveness signal (memory, postgres pool) just
// return true.
type StoreHealth func() bool

// Server is the HTTP API server
type Server struct {
	router      *gin.Engine
	httpServer  *http.Server
	service     *memory.Service
	hub         *WSHub
	logger      *logging.Logger
	config      ServerConfig
	storeHealth StoreHealth
	started     time.Time
}

// NewServer creates the API server, wires routes and subscribes the
// WebSocket hub to the event bus.
func NewServer(config ServerConfig, service *memory.Service, eventBus *events.EventBus, storeHealth StoreHealth, logger *logging.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type"}
	router.Use(cors.New(corsConfig))

	s := &Server{
		router:      router,
		service:     service,
		hub:         NewWSHub(logger),
		logger:      logger.WithComponent("api"),
		config:      config,
		storeHealth: storeHealth,
		started:     time.Now(),
	}

	go s.hub.Run()
	eventBus.SubscribeAll(s.hub.BroadcastEvent)

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.Group("/api")
	{
		api.POST("/trades", s.handleRecordTrade)
		api.GET("/performance", s.handleGetPerformance)
		api.GET("/strategies/:id/trades", s.handleGetStrategyTrades)
		api.POST("/recommendation", s.handleGetRecommendation)
		api.POST("/market/analyze", s.handleAnalyzeMarket)
		api.DELETE("/memory", s.handleClearMemory)
		api.GET("/health", s.handleHealth)
	}

	s.router.GET("/ws", s.handleWebSocket)
}

// Start runs the HTTP server until Shutdown is called
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting HTTP server", "addr", addr)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")

	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

func (s *Server) handleHealth(c *gin.Context) {
	storeOK := true
	if s.storeHealth != nil {
		storeOK = s.storeHealth()
	}

	c.JSON(http.StatusOK, gin.H{
		"status":       "ok",
		"store":        storeOK,
		"last_save_ok": s.service.SaveHealthy(),
		"uptime":       time.Since(s.started).String(),
	})
}

// errorResponse is a helper to send error responses
func errorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, gin.H{
		"error":   true,
		"message": message,
	})
}

// successResponse is a helper to send success responses
func successResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
	})
}
