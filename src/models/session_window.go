package models

// -----------------------------------------------------------------------------

// MSessionWindow is the trading-session window resolved for one calendar
// date. A window is only meaningful for the date it carries; a lookup on a
// different date is a cache miss regardless of how recently it was stored.
type MSessionWindow struct {
	Date         string `json:"date"` // "2006-01-02"
	StartMinutes int    `json:"start_minutes"`
	EndMinutes   int    `json:"end_minutes"`
	StartTime    string `json:"start_time"` // "HH:mm" as received from the backend
	EndTime      string `json:"end_time"`
}
