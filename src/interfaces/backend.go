package interfaces

import "market-pipeline/src/models"

// -----------------------------------------------------------------------------
// Narrow interfaces to the two external collaborators: the configuration
// endpoint (session window) and the persistence endpoint (candles).
// -----------------------------------------------------------------------------

type ISessionClient interface {
	// FetchSessionWindow asks the configuration endpoint for today's
	// session as raw "HH:mm" strings. Any non-2xx response or transport
	// error is returned as an error.
	FetchSessionWindow() (startTime, endTime string, err error)
}

// -----------------------------------------------------------------------------

type ICandleSink interface {
	// SubmitCandle posts one completed candle to the persistence endpoint.
	// Only success or failure is observed; the response body is discarded.
	SubmitCandle(candle models.MMinuteCandle) error
}
