package synthetic

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"market-pipeline/src/helpers"
	"market-pipeline/src/instruments"
	"market-pipeline/src/logger"
	"market-pipeline/src/models"
)

// maxStep bounds the symmetric random walk applied to bid and ask.
const maxStep = 2.5

// -----------------------------------------------------------------------------
// Synthetic Tick Generator
//
// Fallback source used when no live transport is configured. On the first
// activation it seeds the pipeline from the static instrument table; on every
// activation after that it applies a bounded random perturbation around each
// instrument's last known prices. Batches travel the exact same path as live
// ticks, so downstream components cannot tell them apart.
// -----------------------------------------------------------------------------

type Source struct {
	Logger   *logger.Logger
	interval time.Duration
	snapshot func() []models.MCanonicalRate

	rng        *rand.Rand
	cancelFunc context.CancelFunc
	isRunning  atomic.Bool
	mu         sync.Mutex
}

// -----------------------------------------------------------------------------

// NewSource creates a generator. snapshot provides the latest-rate state the
// random walk is anchored to.
func NewSource(interval time.Duration, snapshot func() []models.MCanonicalRate, log *logger.Logger) *Source {
	if interval <= 0 {
		interval = time.Second
	}
	return &Source{
		Logger:   log,
		interval: interval,
		snapshot: snapshot,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// -----------------------------------------------------------------------------

func (s *Source) Name() string { return "synthetic" }

func (s *Source) IsRealTime() bool { return false }

// -----------------------------------------------------------------------------

func (s *Source) Start(ctx context.Context, outputChan chan<- models.MRawBatch, wg *sync.WaitGroup) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning.CompareAndSwap(false, true) {
		return &helpers.TickSourceError{PipelineError: helpers.PipelineError{
			Message: "synthetic source already running",
		}}
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancelFunc = cancel

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer s.isRunning.Store(false)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.Logger.Info("Synthetic source stopped")
				return
			case <-ticker.C:
				batch := models.MRawBatch{Flat: s.nextPackets()}
				select {
				case outputChan <- batch:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	s.Logger.Info("Synthetic source started (interval %v)", s.interval)
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
	return nil
}

// -----------------------------------------------------------------------------

// nextPackets builds the flat packet array for one activation: seed packets
// when no state exists yet, otherwise a perturbation of the known state.
func (s *Source) nextPackets() []map[string]any {
	current := s.snapshot()
	if len(current) == 0 {
		return seedPackets()
	}

	bySymbol := make(map[string]models.MCanonicalRate, len(current))
	for _, rate := range current {
		bySymbol[rate.Symbol] = rate
	}

	packets := make([]map[string]any, 0, len(current))
	for _, spec := range instruments.All() {
		rate, ok := bySymbol[spec.Symbol]
		if !ok {
			continue
		}
		packets = append(packets, s.perturb(spec.FeedKey, rate))
	}
	return packets
}

// -----------------------------------------------------------------------------

// perturb applies an independent symmetric step within ±maxStep to bid and
// ask and widens the session bounds when the new bid escapes them.
func (s *Source) perturb(feedKey string, rate models.MCanonicalRate) map[string]any {
	bid := rate.Bid + (s.rng.Float64()*2-1)*maxStep
	ask := rate.Ask + (s.rng.Float64()*2-1)*maxStep

	high := rate.High
	low := rate.Low
	if bid > high {
		high = bid
	}
	if bid < low {
		low = bid
	}

	return map[string]any{
		"key":    feedKey,
		"bid":    bid,
		"ask":    ask,
		"ltp":    bid,
		"high":   high,
		"low":    low,
		"open":   rate.Open,
		"close":  rate.PrevClose,
		"volume": rate.Volume,
		"oi":     rate.OpenInterest,
	}
}

// -----------------------------------------------------------------------------

// seedPackets emits the static table defaults: bid starts at the session
// open, ask at the previous close.
func seedPackets() []map[string]any {
	specs := instruments.All()
	packets := make([]map[string]any, 0, len(specs))
	for _, spec := range specs {
		packets = append(packets, map[string]any{
			"key":    spec.FeedKey,
			"bid":    spec.Open,
			"ask":    spec.PrevClose,
			"ltp":    spec.PrevClose,
			"open":   spec.Open,
			"close":  spec.PrevClose,
			"volume": spec.Volume,
			"oi":     spec.OpenInterest,
		})
	}
	return packets
}
