package instruments

import "market-pipeline/src/models"

// -----------------------------------------------------------------------------
// Static instrument configuration table. Maps internal feed keys to display
// identity (symbol, contract expiry, instrument tag) and the seed values used
// by the synthetic generator and the normalizer when no live state exists.
// -----------------------------------------------------------------------------

var table = []models.MInstrumentSpec{
	{FeedKey: "gold", Symbol: "GOLD", InstrumentType: "FUTCOM", Expiry: "05FEB2027", Open: 78450, PrevClose: 78390, Volume: 12480, OpenInterest: 18350},
	{FeedKey: "silver", Symbol: "SILVER", InstrumentType: "FUTCOM", Expiry: "05MAR2027", Open: 92610, PrevClose: 92370, Volume: 21540, OpenInterest: 26410},
	{FeedKey: "crudeoil", Symbol: "CRUDEOIL", InstrumentType: "FUTCOM", Expiry: "19JAN2027", Open: 5915, PrevClose: 5902, Volume: 88210, OpenInterest: 10240},
	{FeedKey: "naturalgas", Symbol: "NATURALGAS", InstrumentType: "FUTCOM", Expiry: "26JAN2027", Open: 245.3, PrevClose: 244.1, Volume: 150320, OpenInterest: 20170},
	{FeedKey: "copper", Symbol: "COPPER", InstrumentType: "FUTCOM", Expiry: "26FEB2027", Open: 815.4, PrevClose: 813.9, Volume: 16780, OpenInterest: 5890},
	{FeedKey: "zinc", Symbol: "ZINC", InstrumentType: "FUTCOM", Expiry: "26FEB2027", Open: 268.7, PrevClose: 268.2, Volume: 9420, OpenInterest: 3160},
}

var byFeedKey map[string]models.MInstrumentSpec

func init() {
	byFeedKey = make(map[string]models.MInstrumentSpec, len(table))
	for _, spec := range table {
		byFeedKey[spec.FeedKey] = spec
	}
}

// -----------------------------------------------------------------------------

// Lookup resolves an internal feed key to its instrument spec.
func Lookup(feedKey string) (models.MInstrumentSpec, bool) {
	spec, ok := byFeedKey[feedKey]
	return spec, ok
}

// -----------------------------------------------------------------------------

// All returns the table in declaration order.
func All() []models.MInstrumentSpec {
	out := make([]models.MInstrumentSpec, len(table))
	copy(out, table)
	return out
}
