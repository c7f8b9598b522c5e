package models

// -----------------------------------------------------------------------------
// Raw tick payloads, before normalization
// -----------------------------------------------------------------------------

// MRawBatch is one delivery from a tick source. The live transport emits an
// object keyed by feed key; the synthetic generator emits a flat array of
// packets, each carrying its own "key" field. Exactly one of the two shapes
// is populated per batch.
type MRawBatch struct {
	Keyed map[string]map[string]any
	Flat  []map[string]any
}

// -----------------------------------------------------------------------------

// Empty reports whether the batch carries no entries of either shape.
func (b MRawBatch) Empty() bool {
	return len(b.Keyed) == 0 && len(b.Flat) == 0
}

// -----------------------------------------------------------------------------

// MInstrumentSpec is one row of the static instrument configuration table:
// the mapping from an internal feed key to display identity, plus the seed
// values used when no live state exists yet.
type MInstrumentSpec struct {
	FeedKey        string  `json:"feed_key"`
	Symbol         string  `json:"symbol"`
	InstrumentType string  `json:"instrument"`
	Expiry         string  `json:"expiry"`
	Open           float64 `json:"open"`
	PrevClose      float64 `json:"prev_close"`
	Volume         float64 `json:"volume"`
	OpenInterest   float64 `json:"open_interest"`
}
