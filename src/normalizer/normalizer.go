package normalizer

import (
	"math"
	"strconv"
	"time"

	"market-pipeline/src/instruments"
	"market-pipeline/src/logger"
	"market-pipeline/src/models"
)

// -----------------------------------------------------------------------------
// Tick Normalizer
//
// Converts raw payloads from either source shape (keyed object from the live
// transport, flat packet array from the generator) into canonical rate
// updates. It never mutates the latest-rate store; the returned batch is
// applied by the store atomically.
// -----------------------------------------------------------------------------

type Normalizer struct {
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewNormalizer(log *logger.Logger) *Normalizer {
	return &Normalizer{Logger: log}
}

// -----------------------------------------------------------------------------

// Normalize maps every recognizable entry in the batch to one canonical rate.
// prior is the store's current state keyed by rate key; fields missing or
// malformed in the payload retain their prior value, and the static table
// defaults apply only when no prior state exists.
func (n *Normalizer) Normalize(batch models.MRawBatch, prior map[string]models.MCanonicalRate) []models.MCanonicalRate {
	var out []models.MCanonicalRate

	for feedKey, fields := range batch.Keyed {
		if rate, ok := n.normalizeEntry(feedKey, fields, prior); ok {
			out = append(out, rate)
		}
	}

	for _, packet := range batch.Flat {
		feedKey, _ := packet["key"].(string)
		if rate, ok := n.normalizeEntry(feedKey, packet, prior); ok {
			out = append(out, rate)
		}
	}

	return out
}

// -----------------------------------------------------------------------------

func (n *Normalizer) normalizeEntry(feedKey string, fields map[string]any, prior map[string]models.MCanonicalRate) (models.MCanonicalRate, bool) {
	spec, ok := instruments.Lookup(feedKey)
	if !ok {
		n.Logger.Debug("Dropping entry with unknown feed key %q", feedKey)
		return models.MCanonicalRate{}, false
	}

	rate, ok := prior[rateKey(spec)]
	if !ok {
		rate = seedRate(spec)
	}

	setNum(&rate.Last, fields, true, "ltp", "last", "price")
	setNum(&rate.Bid, fields, true, "bid", "buy")
	setNum(&rate.Ask, fields, false, "ask", "sell")
	setNum(&rate.High, fields, true, "high")
	setNum(&rate.Low, fields, true, "low")
	setNum(&rate.Open, fields, true, "open")
	setNum(&rate.PrevClose, fields, false, "close", "prev_close")
	setNum(&rate.Volume, fields, true, "volume", "vol")
	setNum(&rate.OpenInterest, fields, true, "oi", "open_interest")

	// Session bounds are re-derived on every update, never overwritten.
	rate.High = math.Max(rate.High, math.Max(rate.Open, rate.Last))
	rate.Low = math.Min(rate.Low, math.Min(rate.Open, rate.Last))

	rate.Change = rate.Last - rate.PrevClose
	if rate.PrevClose != 0 {
		rate.PercentChange = rate.Change / rate.PrevClose * 100
	}
	rate.UpdatedAt = time.Now().Unix()

	return rate, true
}

// -----------------------------------------------------------------------------

func rateKey(spec models.MInstrumentSpec) string {
	return models.MCanonicalRate{Symbol: spec.Symbol, Expiry: spec.Expiry}.Key()
}

// -----------------------------------------------------------------------------

// seedRate builds the hard-coded default state from the static table, applied
// only when an instrument has no prior state at all.
func seedRate(spec models.MInstrumentSpec) models.MCanonicalRate {
	return models.MCanonicalRate{
		Symbol:         spec.Symbol,
		InstrumentType: spec.InstrumentType,
		Expiry:         spec.Expiry,
		Last:           spec.PrevClose,
		Bid:            spec.Open,
		Ask:            spec.PrevClose,
		High:           math.Max(spec.Open, spec.PrevClose),
		Low:            math.Min(spec.Open, spec.PrevClose),
		Open:           spec.Open,
		PrevClose:      spec.PrevClose,
		Volume:         spec.Volume,
		OpenInterest:   spec.OpenInterest,
	}
}

// -----------------------------------------------------------------------------
// Defensive numeric coercion
// -----------------------------------------------------------------------------

// setNum assigns the first usable numeric value found under keys. Missing
// keys, NaN, and wrong-shaped values leave dst untouched.
func setNum(dst *float64, fields map[string]any, priceLike bool, keys ...string) {
	for _, key := range keys {
		raw, ok := fields[key]
		if !ok {
			continue
		}
		if v, ok := coerce(raw, priceLike); ok {
			*dst = v
			return
		}
	}
}

// -----------------------------------------------------------------------------

// coerce extracts a finite float from the common payload shapes. A nested
// object is unwrapped preferring bid/ltp for price-like fields and ask/close
// for the paired price.
func coerce(raw any, priceLike bool) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, !math.IsNaN(v) && !math.IsInf(v, 0)
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil && !math.IsNaN(f) && !math.IsInf(f, 0)
	case map[string]any:
		keys := []string{"bid", "ltp"}
		if !priceLike {
			keys = []string{"ask", "close"}
		}
		for _, key := range keys {
			if inner, ok := v[key]; ok {
				if f, ok := coerce(inner, priceLike); ok {
					return f, true
				}
			}
		}
	}
	return 0, false
}
