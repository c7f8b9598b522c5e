package live

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"market-pipeline/src/helpers"
	"market-pipeline/src/logger"
	"market-pipeline/src/models"

	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// Live transport source
//
// Push-style websocket subscription to the market-data feed. Messages arrive
// either as an object keyed by feed key or as a flat packet array; both are
// forwarded unparsed for the normalizer to handle. The connection is
// re-established with exponential backoff for the lifetime of the source.
// -----------------------------------------------------------------------------

type Source struct {
	Logger *logger.Logger
	url    string

	conn       *websocket.Conn
	connMu     sync.Mutex
	cancelFunc context.CancelFunc
	isRunning  atomic.Bool
	mu         sync.Mutex
}

// -----------------------------------------------------------------------------

func NewSource(url string, log *logger.Logger) *Source {
	return &Source{Logger: log, url: url}
}

// -----------------------------------------------------------------------------

func (s *Source) Name() string { return "live" }

func (s *Source) IsRealTime() bool { return true }

// -----------------------------------------------------------------------------

func (s *Source) Start(ctx context.Context, outputChan chan<- models.MRawBatch, wg *sync.WaitGroup) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning.CompareAndSwap(false, true) {
		return &helpers.TickSourceError{PipelineError: helpers.PipelineError{
			Message: "live source already running",
		}}
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancelFunc = cancel

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer s.isRunning.Store(false)
		s.run(ctx, outputChan)
	}()

	s.Logger.Info("Live source started (%s)", s.url)
	return nil
}

// -----------------------------------------------------------------------------

func (s *Source) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelFunc != nil {
		s.cancelFunc()
		s.cancelFunc = nil
	}
	s.closeConn()
	return nil
}

// -----------------------------------------------------------------------------

func (s *Source) run(ctx context.Context, outputChan chan<- models.MRawBatch) {
	attempt := 0
	for {
		if ctx.Err() != nil {
			return
		}

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, nil)
		if err != nil {
			attempt++
			delay := backoffDelay(attempt)
			s.Logger.Warning("Dial failed (attempt %d): %v. Retrying in %v", attempt, err, delay)
			select {
			case <-time.After(delay):
				continue
			case <-ctx.Done():
				return
			}
		}

		attempt = 0
		s.setConn(conn)
		s.Logger.Info("Connected to live transport")
		s.readLoop(ctx, conn, outputChan)
		s.closeConn()

		if ctx.Err() != nil {
			return
		}
		s.Logger.Warning("Connection lost, reconnecting...")
	}
}

// -----------------------------------------------------------------------------

func (s *Source) readLoop(ctx context.Context, conn *websocket.Conn, outputChan chan<- models.MRawBatch) {
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				s.Logger.Warning("Read error: %v", err)
			}
			return
		}

		batch, err := decodeMessage(message)
		if err != nil {
			s.Logger.Debug("Skipping undecodable message: %v", err)
			continue
		}
		if batch.Empty() {
			continue
		}

		select {
		case outputChan <- batch:
		case <-ctx.Done():
			return
		}
	}
}

// -----------------------------------------------------------------------------

// decodeMessage accepts both transport shapes: a keyed object of instrument
// entries or a flat array of packets.
func decodeMessage(message []byte) (models.MRawBatch, error) {
	trimmed := firstNonSpace(message)

	if trimmed == '[' {
		var flat []map[string]any
		if err := json.Unmarshal(message, &flat); err != nil {
			return models.MRawBatch{}, err
		}
		return models.MRawBatch{Flat: flat}, nil
	}

	var keyed map[string]map[string]any
	if err := json.Unmarshal(message, &keyed); err != nil {
		return models.MRawBatch{}, err
	}
	return models.MRawBatch{Keyed: keyed}, nil
}

// -----------------------------------------------------------------------------

func firstNonSpace(message []byte) byte {
	for _, b := range message {
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		default:
			return b
		}
	}
	return 0
}

// -----------------------------------------------------------------------------

func backoffDelay(attempt int) time.Duration {
	if attempt > 5 {
		attempt = 5
	}
	return time.Duration(attempt*attempt) * time.Second
}

// -----------------------------------------------------------------------------

func (s *Source) setConn(conn *websocket.Conn) {
	s.connMu.Lock()
	s.conn = conn
	s.connMu.Unlock()
}

func (s *Source) closeConn() {
	s.connMu.Lock()
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	s.connMu.Unlock()
}
