package models

// -----------------------------------------------------------------------------

// MCanonicalRate is the normalized view of one instrument, mutated on every
// tick and never deleted while the process lives.
type MCanonicalRate struct {
	Symbol         string  `json:"symbol"`
	InstrumentType string  `json:"instrument"`
	Expiry         string  `json:"expiry"`
	Last           float64 `json:"ltp"`
	Bid            float64 `json:"bid"`
	Ask            float64 `json:"ask"`
	High           float64 `json:"high"`
	Low            float64 `json:"low"`
	Open           float64 `json:"open"`
	PrevClose      float64 `json:"prev_close"`
	Change         float64 `json:"change"`
	PercentChange  float64 `json:"percent_change"`
	Volume         float64 `json:"volume"`
	OpenInterest   float64 `json:"open_interest"`
	UpdatedAt      int64   `json:"updated_at"`
}

// -----------------------------------------------------------------------------

// Key returns the composite identity of the rate. Instruments without a
// contract expiry are keyed by symbol alone.
func (r MCanonicalRate) Key() string {
	if r.Expiry == "" {
		return r.Symbol
	}
	return r.Symbol + ":" + r.Expiry
}
