package candles

import (
	"math"
	"sync"
	"time"

	"market-pipeline/src/interfaces"
	"market-pipeline/src/logger"
	"market-pipeline/src/models"
)

// -----------------------------------------------------------------------------
// Minute-Candle Aggregator
//
// Per-instrument state machine folding normalized ticks into the candle of
// the current wall-clock minute. Minute rollover is the only point at which
// candles leave the map: all open candles are handed to the flusher as a
// snapshot copy and the map is cleared, independently of whether the flush
// eventually succeeds.
// -----------------------------------------------------------------------------

// Flusher receives ownership of the completed candle snapshot at rollover.
type Flusher interface {
	Enqueue(candles []models.MMinuteCandle)
}

type Aggregator struct {
	Logger  *logger.Logger
	gate    interfaces.ISessionGate
	flusher Flusher

	mu         sync.Mutex
	candles    map[string]*models.MMinuteCandle
	lastMinute time.Time // zero until the first observation
}

// -----------------------------------------------------------------------------

func NewAggregator(gate interfaces.ISessionGate, flusher Flusher, log *logger.Logger) *Aggregator {
	return &Aggregator{
		Logger:  log,
		gate:    gate,
		flusher: flusher,
		candles: make(map[string]*models.MMinuteCandle),
	}
}

// -----------------------------------------------------------------------------

// OnSnapshot folds one normalized batch into the current minute's candles.
// now is the wall-clock instant the batch was observed at.
func (a *Aggregator) OnSnapshot(batch []models.MCanonicalRate, now time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()

	minute := now.Truncate(time.Minute)

	// Rollover: flush everything accumulated for the previous minute before
	// any data for the new minute is accepted. The first observation after
	// start only records the minute.
	if !a.lastMinute.IsZero() && !minute.Equal(a.lastMinute) {
		a.flushLocked()
	}
	a.lastMinute = minute

	// Session gate: once a window has been resolved, ticks outside it do not
	// accumulate. Before the first resolution the market is assumed open so
	// no data is lost waiting on the initial fetch.
	if a.gate != nil && a.gate.Resolved() && !a.gate.Contains(now) {
		return
	}

	for _, rate := range batch {
		price := rate.Last
		if math.IsNaN(price) || math.IsInf(price, 0) {
			// Unparsable price: drop this instrument for this cycle only.
			continue
		}

		candle, ok := a.candles[rate.Symbol]
		if !ok {
			a.candles[rate.Symbol] = &models.MMinuteCandle{
				Symbol:         rate.Symbol,
				InstrumentType: rate.InstrumentType,
				Expiry:         rate.Expiry,
				Open:           price,
				High:           price,
				Low:            price,
				Close:          price,
				Minute:         minute,
			}
			continue
		}

		if price > candle.High {
			candle.High = price
		}
		if price < candle.Low {
			candle.Low = price
		}
		candle.Close = price
	}
}

// -----------------------------------------------------------------------------

// Flush force-emits all open candles, used on shutdown so the final partial
// minute is not silently lost.
func (a *Aggregator) Flush() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.flushLocked()
}

// -----------------------------------------------------------------------------

func (a *Aggregator) flushLocked() {
	if len(a.candles) == 0 {
		return
	}

	snapshot := make([]models.MMinuteCandle, 0, len(a.candles))
	for _, candle := range a.candles {
		snapshot = append(snapshot, *candle)
	}
	a.candles = make(map[string]*models.MMinuteCandle)

	if a.flusher != nil {
		a.flusher.Enqueue(snapshot)
	}
}

// -----------------------------------------------------------------------------

// OpenCandles returns a copy of the in-progress candle set, for the status
// surface and tests.
func (a *Aggregator) OpenCandles() []models.MMinuteCandle {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]models.MMinuteCandle, 0, len(a.candles))
	for _, candle := range a.candles {
		out = append(out, *candle)
	}
	return out
}
