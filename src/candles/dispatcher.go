package candles

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"market-pipeline/src/interfaces"
	"market-pipeline/src/logger"
	"market-pipeline/src/models"
)

// -----------------------------------------------------------------------------
// Candle Flush Dispatcher
//
// Bounded queue with a single worker submitting one candle at a time to the
// persistence endpoint. An individual submission failure is logged and the
// candle dropped; the rest of the batch continues and nothing is retried.
// Drain lets shutdown wait for pending flushes instead of silently dropping
// them.
// -----------------------------------------------------------------------------

type Dispatcher struct {
	Logger  *logger.Logger
	sink    interfaces.ICandleSink
	archive interfaces.IDatabase // optional local mirror, best-effort

	mu      sync.Mutex
	cond    *sync.Cond
	queue   *candleQueue
	busy    bool
	stopped bool
	wg      sync.WaitGroup

	flushed int64
	dropped int64
}

// -----------------------------------------------------------------------------

func NewDispatcher(sink interfaces.ICandleSink, archive interfaces.IDatabase, queueSize int, log *logger.Logger) *Dispatcher {
	d := &Dispatcher{
		Logger:  log,
		sink:    sink,
		archive: archive,
		queue:   newCandleQueue(queueSize),
	}
	d.cond = sync.NewCond(&d.mu)
	return d
}

// -----------------------------------------------------------------------------

// Start launches the submission worker.
func (d *Dispatcher) Start() {
	d.wg.Add(1)
	go d.worker()
}

// -----------------------------------------------------------------------------

// Enqueue accepts ownership of a flushed candle snapshot. Never blocks the
// aggregator: when the queue is full the oldest pending candle is dropped
// and logged.
func (d *Dispatcher) Enqueue(batch []models.MMinuteCandle) {
	d.mu.Lock()
	for _, candle := range batch {
		if dropped, ok := d.queue.Push(candle); ok {
			atomic.AddInt64(&d.dropped, 1)
			d.Logger.Warning("Flush queue full, dropping candle %s @ %s",
				dropped.Symbol, dropped.Minute.Format("15:04"))
		}
	}
	d.cond.Broadcast()
	d.mu.Unlock()
}

// -----------------------------------------------------------------------------

// Drain blocks until every queued candle has been submitted (or failed) or
// the context expires.
func (d *Dispatcher) Drain(ctx context.Context) error {
	for {
		d.mu.Lock()
		idle := d.queue.Len() == 0 && !d.busy
		d.mu.Unlock()
		if idle {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(10 * time.Millisecond):
		}
	}
}

// -----------------------------------------------------------------------------

// Stop terminates the worker after the queue is empty.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	d.stopped = true
	d.cond.Broadcast()
	d.mu.Unlock()
	d.wg.Wait()
}

// -----------------------------------------------------------------------------

// Flushed returns the number of successfully submitted candles.
func (d *Dispatcher) Flushed() int64 { return atomic.LoadInt64(&d.flushed) }

// Dropped returns the number of candles lost to failures or queue overflow.
func (d *Dispatcher) Dropped() int64 { return atomic.LoadInt64(&d.dropped) }

// -----------------------------------------------------------------------------

func (d *Dispatcher) worker() {
	defer d.wg.Done()

	for {
		d.mu.Lock()
		for d.queue.Len() == 0 && !d.stopped {
			d.cond.Wait()
		}
		candle, ok := d.queue.Pop()
		if !ok && d.stopped {
			d.mu.Unlock()
			return
		}
		d.busy = true
		d.mu.Unlock()

		if ok {
			d.submit(candle)
		}

		d.mu.Lock()
		d.busy = false
		d.mu.Unlock()
	}
}

// -----------------------------------------------------------------------------

func (d *Dispatcher) submit(candle models.MMinuteCandle) {
	if err := d.sink.SubmitCandle(candle); err != nil {
		atomic.AddInt64(&d.dropped, 1)
		d.Logger.Error("Candle submission failed for %s @ %s: %v",
			candle.Symbol, candle.Minute.Format("15:04"), err)
	} else {
		atomic.AddInt64(&d.flushed, 1)
	}

	// Local archive is a best-effort mirror and never affects the pipeline.
	if d.archive != nil {
		if err := d.archive.SaveCandles([]models.MMinuteCandle{candle}); err != nil {
			d.Logger.Warning("Candle archive failed for %s: %v", candle.Symbol, err)
		}
	}
}
