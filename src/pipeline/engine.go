package pipeline

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"market-pipeline/src/candles"
	"market-pipeline/src/interfaces"
	"market-pipeline/src/logger"
	"market-pipeline/src/models"
	"market-pipeline/src/normalizer"
	"market-pipeline/src/rates"
	"market-pipeline/src/session"
)

// -----------------------------------------------------------------------------
// Pipeline Engine
//
// Owns the full tick path: one active source pushes raw batches into the
// updates channel, a single consumer goroutine normalizes each batch against
// the store's prior state, applies it (triggering observer fan-out) and feeds
// the normalized batch to the minute aggregator. Because the consumer is
// single-threaded, the aggregator and normalizer need no locking of their own.
// -----------------------------------------------------------------------------

type Engine struct {
	Logger *logger.Logger

	source     interfaces.ITickSource
	normalizer *normalizer.Normalizer
	store      *rates.Store
	aggregator *candles.Aggregator
	dispatcher *candles.Dispatcher
	resolver   *session.Resolver

	updates    chan models.MRawBatch
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	consumerWg sync.WaitGroup
	isRunning  atomic.Bool

	batches int64
	ticks   int64

	now func() time.Time
}

// -----------------------------------------------------------------------------

func NewEngine(
	source interfaces.ITickSource,
	norm *normalizer.Normalizer,
	store *rates.Store,
	agg *candles.Aggregator,
	disp *candles.Dispatcher,
	resolver *session.Resolver,
	queueSize int,
	log *logger.Logger,
) *Engine {
	return &Engine{
		Logger:     log,
		source:     source,
		normalizer: norm,
		store:      store,
		aggregator: agg,
		dispatcher: disp,
		resolver:   resolver,
		updates:    make(chan models.MRawBatch, queueSize),
		now:        time.Now,
	}
}

// -----------------------------------------------------------------------------

// Start resolves today's session window, launches the dispatcher worker, the
// tick source and the consumer loop. Calling Start on a running engine is a
// no-op.
func (e *Engine) Start(ctx context.Context) error {
	if !e.isRunning.CompareAndSwap(false, true) {
		e.Logger.Warning("Engine already running")
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	e.cancelFunc = cancel

	// Resolution happens eagerly so the aggregator gates from the first
	// minute; on remote failure the fallback window applies and later
	// batches retry per policy.
	window := e.resolver.GetWindow()
	e.Logger.Info("Session window for %s: %s - %s", window.Date, window.StartTime, window.EndTime)

	e.dispatcher.Start()

	if err := e.source.Start(runCtx, e.updates, &e.wg); err != nil {
		cancel()
		e.isRunning.Store(false)
		return err
	}
	e.Logger.Info("Tick source %s started (realtime=%v)", e.source.Name(), e.source.IsRealTime())

	e.consumerWg.Add(1)
	go e.run()

	return nil
}

// -----------------------------------------------------------------------------

// Stop shuts the pipeline down in order: source first, then the consumer,
// then a final aggregator flush, then a bounded drain of pending submissions.
func (e *Engine) Stop() {
	if !e.isRunning.CompareAndSwap(true, false) {
		return
	}

	e.cancelFunc()
	e.wg.Wait()      // source fully stopped, no more producers
	close(e.updates) // lets the consumer finish the backlog and exit
	e.consumerWg.Wait()

	e.aggregator.Flush()

	drainCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.dispatcher.Drain(drainCtx); err != nil {
		e.Logger.Warning("Flush drain incomplete: %v", err)
	}
	e.dispatcher.Stop()

	e.Logger.Info("Engine stopped: %d batches, %d ticks, %d candles flushed, %d dropped",
		atomic.LoadInt64(&e.batches), atomic.LoadInt64(&e.ticks),
		e.dispatcher.Flushed(), e.dispatcher.Dropped())
}

// -----------------------------------------------------------------------------

func (e *Engine) run() {
	defer e.consumerWg.Done()

	for batch := range e.updates {
		if batch.Empty() {
			continue
		}
		e.process(batch)
	}
}

// -----------------------------------------------------------------------------

func (e *Engine) process(batch models.MRawBatch) {
	prior := e.store.Map()
	normalized := e.normalizer.Normalize(batch, prior)
	if len(normalized) == 0 {
		return
	}

	e.store.Apply(normalized)
	e.aggregator.OnSnapshot(normalized, e.now())

	atomic.AddInt64(&e.batches, 1)
	atomic.AddInt64(&e.ticks, int64(len(normalized)))
}

// -----------------------------------------------------------------------------

// Metrics reports pipeline activity counters since Start.
func (e *Engine) Metrics() models.MPipelineMetrics {
	return models.MPipelineMetrics{
		BatchesProcessed: atomic.LoadInt64(&e.batches),
		TicksApplied:     atomic.LoadInt64(&e.ticks),
		CandlesFlushed:   e.dispatcher.Flushed(),
		CandlesDropped:   e.dispatcher.Dropped(),
	}
}

// -----------------------------------------------------------------------------

// IsRunning reports whether Start has been called without a matching Stop.
func (e *Engine) IsRunning() bool {
	return e.isRunning.Load()
}

// -----------------------------------------------------------------------------

// SourceName exposes the active source identity for the status endpoint.
func (e *Engine) SourceName() string {
	return e.source.Name()
}
