package server

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"market-pipeline/src/helpers"
	"market-pipeline/src/logger"
	"market-pipeline/src/models"
	"market-pipeline/src/pipeline"
	"market-pipeline/src/session"

	"github.com/gin-gonic/gin"
)

// -----------------------------------------------------------------------------
// APIServer
//
// Read surface over the pipeline: REST endpoints for the current snapshot,
// today's session window and process health, plus the websocket feed that
// mirrors the store's observer fan-out to connected clients.
// -----------------------------------------------------------------------------

type APIServer struct {
	Config   *models.MConfig
	Logger   *logger.Logger
	engine   *gin.Engine
	resolver *session.Resolver
	pipeline *pipeline.Engine
	started  time.Time

	// WebSocket clients. The map is owned exclusively by the hub goroutine;
	// handlers read the counter instead so no lock spans both.
	clients     map[*Client]struct{}
	connections atomic.Int64
	broadcast   chan *models.MRateSnapshot // Strongly typed and Buffered Queue
	register    chan *Client
	unregister  chan *Client
	stopped     atomic.Bool

	// Local cache
	latestState *models.MRateSnapshot
	stateMutex  sync.RWMutex
}

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

func NewAPIServer(cfg *models.MConfig, resolver *session.Resolver, pipe *pipeline.Engine, logger *logger.Logger) *APIServer {
	// Set Gin mode
	if cfg.LogLevel != "DEBUG" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &APIServer{
		Config:   cfg,
		Logger:   logger,
		engine:   gin.Default(),
		resolver: resolver,
		pipeline: pipe,
		started:  time.Now(),
		clients:  make(map[*Client]struct{}),
		// Buffered channel to prevent lock/blocking
		// Queue size of 256 ensures we can handle bursts of updates
		broadcast:  make(chan *models.MRateSnapshot, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		latestState: &models.MRateSnapshot{
			Type:      "INITIAL",
			Rates:     []models.MCanonicalRate{},
			Timestamp: 0,
		},
	}

	// Add CORS Middleware
	s.engine.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if strings.HasPrefix(origin, "http://127.0.0.1:") {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// setup web routes
	s.setupRoutes()
	return s
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *APIServer) setupRoutes() {
	// REST API endpoints
	s.engine.GET("/api/rates", s.getRates)
	s.engine.GET("/api/session", s.getSession)
	s.engine.GET("/api/source", s.getSource)
	s.engine.GET("/api/health", s.getHealth)

	// WebSocket endpoint
	s.engine.GET("/ws", s.handleWebSocket)
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

func (s *APIServer) Start() error {
	addr := fmt.Sprintf("%s:%d", s.Config.Host, s.Config.Port)
	s.Logger.Info("Starting server on %s", addr)

	go s.handleWebsockets()

	return s.engine.Run(addr)
}

// -----------------------------------------------------------------------------

// Stop shuts the hub down. The REST surface keeps serving the last known
// state, so Stop is safe to call while the HTTP server is still up.
func (s *APIServer) Stop() error {
	if !s.stopped.CompareAndSwap(false, true) {
		return nil
	}
	// The hub loop drains its clients and exits when broadcast closes.
	close(s.broadcast)
	return nil
}

// -----------------------------------------------------------------------------
// Route Handlers
// -----------------------------------------------------------------------------

func (s *APIServer) getRates(c *gin.Context) {
	s.stateMutex.RLock()
	defer s.stateMutex.RUnlock()

	c.JSON(200, gin.H{
		"rates":     s.latestState.Rates,
		"timestamp": s.latestState.Timestamp,
	})
}

// -----------------------------------------------------------------------------

func (s *APIServer) getSession(c *gin.Context) {
	window := s.resolver.GetWindow()

	c.JSON(200, gin.H{
		"date":        window.Date,
		"start_time":  window.StartTime,
		"end_time":    window.EndTime,
		"resolved":    s.resolver.Resolved(),
		"market_open": s.resolver.Contains(time.Now()),
	})
}

// -----------------------------------------------------------------------------

func (s *APIServer) getSource(c *gin.Context) {
	c.JSON(200, gin.H{
		"source":  s.pipeline.SourceName(),
		"running": s.pipeline.IsRunning(),
		"metrics": s.pipeline.Metrics(),
	})
}

// -----------------------------------------------------------------------------

func (s *APIServer) getHealth(c *gin.Context) {
	connections := s.connections.Load()
	s.stateMutex.RLock()
	timestamp := s.latestState.Timestamp
	s.stateMutex.RUnlock()

	c.JSON(200, gin.H{
		"status":         "ok",
		"connections":    connections,
		"latest_update":  timestamp,
		"uptime_seconds": int64(time.Since(s.started).Seconds()),
		"memory":         helpers.ReadMemoryStatus(),
	})
}

// Hub loop and websocket handlers live in hub.go
