package server

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"market-pipeline/src/candles"
	"market-pipeline/src/logger"
	"market-pipeline/src/models"
	"market-pipeline/src/pipeline"
	"market-pipeline/src/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer() *APIServer {
	log := logger.NewLogger("test", "ERROR")
	cfg := &models.MConfig{Name: "test", Host: "127.0.0.1", Port: 8099, LogLevel: "ERROR"}
	resolver := session.NewResolver(nil, nil, models.MSessionConfig{
		FallbackStart: "09:00", FallbackEnd: "15:30", RetryOnFallback: true,
	}, log)
	dispatcher := candles.NewDispatcher(nil, nil, 4, log)
	engine := pipeline.NewEngine(nil, nil, nil, nil, dispatcher, resolver, 4, log)
	return NewAPIServer(cfg, resolver, engine, log)
}

func getJSON(t *testing.T, s *APIServer, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	s.engine.ServeHTTP(w, req)
	return w
}

func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition never met")
}

// -----------------------------------------------------------------------------

// Health polling must stay safe while the hub churns clients: the clients map
// belongs to the hub goroutine alone and handlers only see the counter.
func TestHealthDuringClientChurn(t *testing.T) {
	s := newTestServer()
	go s.handleWebsockets()
	defer s.Stop()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			c := &Client{hub: s, send: make(chan *models.MRateSnapshot, 4)}
			s.register <- c
			s.unregister <- c
		}
	}()

	for i := 0; i < 100; i++ {
		w := getJSON(t, s, "/api/health")
		require.Equal(t, http.StatusOK, w.Code)
	}
	wg.Wait()

	waitUntil(t, func() bool { return s.connections.Load() == 0 })
}

func TestSlowClientIsPruned(t *testing.T) {
	s := newTestServer()
	go s.handleWebsockets()
	defer s.Stop()

	// Room for the initial state only; the next update cannot be delivered.
	slow := &Client{hub: s, send: make(chan *models.MRateSnapshot, 1)}
	s.register <- slow
	waitUntil(t, func() bool { return s.connections.Load() == 1 })

	s.Broadcast([]models.MCanonicalRate{{Symbol: "GOLD", Last: 100}})

	waitUntil(t, func() bool { return s.connections.Load() == 0 })
	_, open := <-slow.send
	assert.False(t, open, "pruned client's send channel is closed")
}

// -----------------------------------------------------------------------------

// Stop exits the hub loop but leaves the REST handlers serving the last
// published state.
func TestStopLeavesReadSurfaceServing(t *testing.T) {
	s := newTestServer()
	go s.handleWebsockets()

	s.Broadcast([]models.MCanonicalRate{{Symbol: "GOLD", Last: 78500}})
	waitUntil(t, func() bool {
		s.stateMutex.RLock()
		defer s.stateMutex.RUnlock()
		return len(s.latestState.Rates) == 1
	})

	require.NoError(t, s.Stop())

	w := getJSON(t, s, "/api/rates")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "GOLD")

	w = getJSON(t, s, "/api/health")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestBroadcastAfterStopIsDropped(t *testing.T) {
	s := newTestServer()
	go s.handleWebsockets()

	require.NoError(t, s.Stop())
	require.NoError(t, s.Stop(), "Stop is idempotent")

	assert.NotPanics(t, func() {
		s.Broadcast([]models.MCanonicalRate{{Symbol: "GOLD", Last: 100}})
	})
}

func TestStopReleasesConnectedClients(t *testing.T) {
	s := newTestServer()
	go s.handleWebsockets()

	c := &Client{hub: s, send: make(chan *models.MRateSnapshot, 4)}
	s.register <- c
	waitUntil(t, func() bool { return s.connections.Load() == 1 })

	require.NoError(t, s.Stop())

	waitUntil(t, func() bool { return s.connections.Load() == 0 })
	for range c.send {
	}
}
