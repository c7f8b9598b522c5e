package models

import "time"

// -----------------------------------------------------------------------------

// MMinuteCandle is the OHLC summary of all ticks for one instrument within
// one wall-clock minute. Open is fixed at the first tick of the minute;
// high/low only widen; close tracks the most recent tick.
type MMinuteCandle struct {
	Symbol         string    `json:"symbol"`
	InstrumentType string    `json:"instrument"`
	Expiry         string    `json:"expiry"`
	Open           float64   `json:"open"`
	High           float64   `json:"high"`
	Low            float64   `json:"low"`
	Close          float64   `json:"close"`
	Volume         float64   `json:"volume"`
	Minute         time.Time `json:"minute"` // top of the minute, seconds zero
}

// -----------------------------------------------------------------------------

// MCandleSubmission is the wire body for one candle POST to the persistence
// endpoint. Date carries the completed minute with seconds forced to zero.
type MCandleSubmission struct {
	Symbol         string  `json:"symbol"`
	InstrumentType string  `json:"instrument"`
	Expiry         string  `json:"expiry"`
	Date           string  `json:"date"` // "YYYY-MM-DD HH:mm:00"
	Open           float64 `json:"open"`
	High           float64 `json:"high"`
	Low            float64 `json:"low"`
	Close          float64 `json:"close"`
	Volume         float64 `json:"volume"`
	Change         float64 `json:"change"`
}
