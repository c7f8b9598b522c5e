package candles

import (
	"math"
	"testing"
	"time"

	"market-pipeline/src/logger"
	"market-pipeline/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------
// Fakes
// -----------------------------------------------------------------------------

type stubFlusher struct {
	batches [][]models.MMinuteCandle
}

func (f *stubFlusher) Enqueue(candles []models.MMinuteCandle) {
	f.batches = append(f.batches, candles)
}

type stubGate struct {
	resolved bool
	open     bool
}

func (g *stubGate) Resolved() bool            { return g.resolved }
func (g *stubGate) Contains(t time.Time) bool { return g.open }

// -----------------------------------------------------------------------------

var minute0 = time.Date(2026, 8, 28, 10, 15, 0, 0, time.UTC)

func tick(symbol string, last float64) models.MCanonicalRate {
	return models.MCanonicalRate{Symbol: symbol, InstrumentType: "FUTCOM", Last: last}
}

func newTestAggregator(gate *stubGate) (*Aggregator, *stubFlusher) {
	f := &stubFlusher{}
	return NewAggregator(gate, f, logger.NewLogger("test", "ERROR")), f
}

// -----------------------------------------------------------------------------

func TestAggregatorFoldsOHLCWithinMinute(t *testing.T) {
	agg, flusher := newTestAggregator(&stubGate{resolved: true, open: true})

	for i, price := range []float64{100, 105, 98, 102} {
		agg.OnSnapshot([]models.MCanonicalRate{tick("GOLD", price)},
			minute0.Add(time.Duration(i)*10*time.Second))
	}
	require.Empty(t, flusher.batches, "no flush inside the same minute")

	// First observation of the next minute forces the rollover flush before
	// the new data is folded.
	agg.OnSnapshot([]models.MCanonicalRate{tick("GOLD", 110)}, minute0.Add(time.Minute))

	require.Len(t, flusher.batches, 1)
	require.Len(t, flusher.batches[0], 1)

	candle := flusher.batches[0][0]
	assert.Equal(t, 100.0, candle.Open)
	assert.Equal(t, 105.0, candle.High)
	assert.Equal(t, 98.0, candle.Low)
	assert.Equal(t, 102.0, candle.Close)
	assert.Equal(t, 0.0, candle.Volume)
	assert.Equal(t, minute0, candle.Minute)

	// The 110 tick opened the next minute's candle, untouched by the flush.
	open := agg.OpenCandles()
	require.Len(t, open, 1)
	assert.Equal(t, 110.0, open[0].Open)
	assert.Equal(t, minute0.Add(time.Minute), open[0].Minute)
}

func TestAggregatorSkipsAbsentInstruments(t *testing.T) {
	agg, flusher := newTestAggregator(&stubGate{resolved: true, open: true})

	agg.OnSnapshot([]models.MCanonicalRate{tick("GOLD", 100), tick("SILVER", 200)}, minute0)
	agg.OnSnapshot([]models.MCanonicalRate{tick("GOLD", 101)}, minute0.Add(time.Minute))
	agg.OnSnapshot([]models.MCanonicalRate{tick("GOLD", 102)}, minute0.Add(2*time.Minute))

	require.Len(t, flusher.batches, 2)
	assert.Len(t, flusher.batches[0], 2)
	require.Len(t, flusher.batches[1], 1, "silent instrument produces no candle")
	assert.Equal(t, "GOLD", flusher.batches[1][0].Symbol)
}

func TestAggregatorDropsUnusablePrices(t *testing.T) {
	agg, flusher := newTestAggregator(&stubGate{resolved: true, open: true})

	agg.OnSnapshot([]models.MCanonicalRate{
		tick("GOLD", math.NaN()),
		tick("SILVER", math.Inf(1)),
		tick("COPPER", 300),
	}, minute0)
	agg.OnSnapshot([]models.MCanonicalRate{tick("COPPER", 301)}, minute0.Add(time.Minute))

	require.Len(t, flusher.batches, 1)
	require.Len(t, flusher.batches[0], 1)
	assert.Equal(t, "COPPER", flusher.batches[0][0].Symbol)
}

// -----------------------------------------------------------------------------

func TestAggregatorGatesOutsideSession(t *testing.T) {
	gate := &stubGate{resolved: true, open: true}
	agg, flusher := newTestAggregator(gate)

	agg.OnSnapshot([]models.MCanonicalRate{tick("GOLD", 100)}, minute0)

	// Session closes: the rollover still flushes the last in-session minute,
	// but the out-of-session tick must not open a new candle.
	gate.open = false
	agg.OnSnapshot([]models.MCanonicalRate{tick("GOLD", 101)}, minute0.Add(time.Minute))

	require.Len(t, flusher.batches, 1)
	assert.Equal(t, 100.0, flusher.batches[0][0].Close)
	assert.Empty(t, agg.OpenCandles())
}

func TestAggregatorFailsOpenBeforeResolution(t *testing.T) {
	// Unresolved gate: market assumed open even though Contains is false.
	agg, _ := newTestAggregator(&stubGate{resolved: false, open: false})

	agg.OnSnapshot([]models.MCanonicalRate{tick("GOLD", 100)}, minute0)

	assert.Len(t, agg.OpenCandles(), 1)
}

// -----------------------------------------------------------------------------

func TestFlushEmitsAndClears(t *testing.T) {
	agg, flusher := newTestAggregator(&stubGate{resolved: true, open: true})

	agg.OnSnapshot([]models.MCanonicalRate{tick("GOLD", 100)}, minute0)
	agg.Flush()

	require.Len(t, flusher.batches, 1)
	assert.Empty(t, agg.OpenCandles())

	// Nothing pending, nothing emitted.
	agg.Flush()
	assert.Len(t, flusher.batches, 1)
}
