package server

import (
	"encoding/json"
	"net/http"
	"time"

	"market-pipeline/src/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// Hub Pattern Implementation
// -----------------------------------------------------------------------------

// handleWebsockets is the main Hub loop. Only this goroutine touches the
// clients map; the connection counter is what the handlers observe.
func (s *APIServer) handleWebsockets() {
	for {
		select {
		case client := <-s.register:
			s.clients[client] = struct{}{}
			s.connections.Add(1)
			// Send initial state on connect
			s.stateMutex.RLock()
			if s.latestState != nil {
				// Send full initial state
				client.send <- s.latestState
			}
			s.stateMutex.RUnlock()

		case client := <-s.unregister:
			if _, ok := s.clients[client]; ok {
				delete(s.clients, client)
				close(client.send)
				s.connections.Add(-1)
			}

		case message, ok := <-s.broadcast:
			if !ok {
				// Shutdown: release every client writer and exit. The last
				// published state stays available to the REST handlers.
				for client := range s.clients {
					delete(s.clients, client)
					close(client.send)
					s.connections.Add(-1)
				}
				return
			}

			// Update state and broadcast
			s.stateMutex.Lock()
			s.latestState = message
			s.stateMutex.Unlock()

			// Broadcast to all clients
			for client := range s.clients {
				select {
				case client.send <- message:
					// Message sent successfully
				default:
					// Client too slow, disconnect to prevent Hub blocking
					// This ensures reliable 24/7 operation by pruning dead/slow consumers
					delete(s.clients, client)
					close(client.send)
					s.connections.Add(-1)
				}
			}
		}
	}
}

// -----------------------------------------------------------------------------
// Store Observer
// -----------------------------------------------------------------------------

// Broadcast adapts a store snapshot into the hub queue. Registered directly
// as a rate store observer, so it must never block: the typed buffered
// channel absorbs bursts and the hub loop does no data processing.
// Snapshots arriving after Stop are discarded.
func (s *APIServer) Broadcast(snapshot []models.MCanonicalRate) {
	if s.stopped.Load() {
		return
	}

	state := &models.MRateSnapshot{
		Type:      "UPDATE",
		Rates:     snapshot,
		Timestamp: time.Now().UnixMilli(),
		Metrics:   s.pipeline.Metrics(),
	}

	s.broadcast <- state
}

// -----------------------------------------------------------------------------
// WebSocket Handlers
// -----------------------------------------------------------------------------

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// -----------------------------------------------------------------------------

func (s *APIServer) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Info("Failed to upgrade websocket: %v", err)
		return
	}

	client := &Client{
		hub:  s,
		conn: conn,
		// Buffered channel to prevent blocking the Hub loop
		send: make(chan *models.MRateSnapshot, 256),
	}

	s.register <- client

	// Start goroutines for reading/writing
	go client.writePump()
	go client.readPump()
}

// -----------------------------------------------------------------------------
// Client Message Handling
// -----------------------------------------------------------------------------

func (s *APIServer) HandleClientMessage(client *Client, message []byte) {
	var cmd models.MSubscribeCommand
	if err := json.Unmarshal(message, &cmd); err != nil {
		s.Logger.Info("Failed to parse client command: %v, disconnecting client", err)
		client.conn.Close()
		return
	}

	if cmd.Command != "subscribe" {
		return
	}

	s.stateMutex.RLock()
	response := s.filteredResponse(cmd.Symbols)
	s.stateMutex.RUnlock()

	// Send response to client
	// Use select to avoid blocking if client's send buffer is full
	select {
	case client.send <- response:
	default:
	}
}

// -----------------------------------------------------------------------------
// Response Filtering
// -----------------------------------------------------------------------------

func (s *APIServer) filteredResponse(symbols []string) *models.MRateSnapshot {
	filtered := s.latestState.Rates
	if len(symbols) > 0 {
		filtered = make([]models.MCanonicalRate, 0, len(symbols))
		for _, rate := range s.latestState.Rates {
			if contains(symbols, rate.Symbol) {
				filtered = append(filtered, rate)
			}
		}
	}

	return &models.MRateSnapshot{
		Type:      "INITIAL",
		Rates:     filtered,
		Timestamp: s.latestState.Timestamp,
		Metrics:   s.latestState.Metrics,
	}
}

// -----------------------------------------------------------------------------

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
