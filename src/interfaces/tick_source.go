package interfaces

import (
	"context"
	"market-pipeline/src/models"
	"sync"
)

// -----------------------------------------------------------------------------
// ITickSource interface for components that feed raw ticks into the pipeline.
// Exactly one source is active per process, selected by configuration: either
// the live websocket transport or the synthetic generator. Downstream code
// cannot tell them apart.
// -----------------------------------------------------------------------------

type ITickSource interface {

	// Name returns the unique identifier of the source
	Name() string

	// -----------------------------------------------------------------------------

	// IsRealTime returns true if the source delivers externally driven ticks
	IsRealTime() bool

	// -----------------------------------------------------------------------------

	// Start begins delivering raw batches
	// ctx: controls the lifecycle (cancellation stops the source)
	// outputChan: channel to push raw batches to
	// wg: WaitGroup to signal when the source has fully stopped
	Start(ctx context.Context, outputChan chan<- models.MRawBatch, wg *sync.WaitGroup) error

	// -----------------------------------------------------------------------------

	// Stop terminates the source (legacy/manual stop)
	// Ideally, cancelling the context passed to Start should be enough.
	Stop() error
}
