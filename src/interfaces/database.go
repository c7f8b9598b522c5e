package interfaces

import "market-pipeline/src/models"

// -----------------------------------------------------------------------------
// IDatabase defines the contract for the durable storage tier: the session
// window cache that must survive process restarts, and the best-effort local
// candle archive.
// -----------------------------------------------------------------------------

type IDatabase interface {

	// -----------------------------------------------------------------------------

	// Initialize sets up the database schema and tables.
	Initialize() error

	// -----------------------------------------------------------------------------

	// SaveSessionWindow upserts the window resolved for its calendar date.
	SaveSessionWindow(window models.MSessionWindow) error

	// -----------------------------------------------------------------------------

	// LoadSessionWindow returns the window stored for the given date, or
	// (nil, nil) when none exists. A window stored for any other date is
	// never returned.
	LoadSessionWindow(date string) (*models.MSessionWindow, error)

	// -----------------------------------------------------------------------------

	// SaveCandles archives flushed candles locally (best-effort mirror of
	// the remote submission).
	SaveCandles(candles []models.MMinuteCandle) error

	// -----------------------------------------------------------------------------

	// CleanupOldData removes archived candles older than the retention policy.
	CleanupOldData() error

	// -----------------------------------------------------------------------------

	// Close the database connection
	Close() error
}
