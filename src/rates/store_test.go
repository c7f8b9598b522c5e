package rates

import (
	"testing"

	"market-pipeline/src/logger"
	"market-pipeline/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore() *Store {
	return NewStore(logger.NewLogger("test", "ERROR"))
}

func rate(symbol string, last float64) models.MCanonicalRate {
	return models.MCanonicalRate{Symbol: symbol, Last: last}
}

// -----------------------------------------------------------------------------

func TestApplyDeliversSnapshotToAllObservers(t *testing.T) {
	s := newTestStore()

	var first, second [][]models.MCanonicalRate
	s.Subscribe(func(snap []models.MCanonicalRate) { first = append(first, snap) })
	s.Subscribe(func(snap []models.MCanonicalRate) { second = append(second, snap) })

	s.Apply([]models.MCanonicalRate{rate("GOLD", 100), rate("SILVER", 200)})

	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.Equal(t, first[0], second[0])
	assert.Len(t, first[0], 2)
}

func TestPanickingObserverIsIsolated(t *testing.T) {
	s := newTestStore()

	s.Subscribe(func([]models.MCanonicalRate) { panic("bad observer") })
	var got []models.MCanonicalRate
	s.Subscribe(func(snap []models.MCanonicalRate) { got = snap })

	assert.NotPanics(t, func() {
		s.Apply([]models.MCanonicalRate{rate("GOLD", 100)})
	})
	require.Len(t, got, 1)
	assert.Equal(t, "GOLD", got[0].Symbol)
}

func TestSubscribeReceivesImmediateSnapshot(t *testing.T) {
	s := newTestStore()
	s.Apply([]models.MCanonicalRate{rate("GOLD", 100)})

	var calls int
	s.Subscribe(func(snap []models.MCanonicalRate) {
		calls++
		assert.Len(t, snap, 1)
	})

	assert.Equal(t, 1, calls, "late subscriber gets current state without waiting")
}

func TestSubscribeOnEmptyStoreWaitsForData(t *testing.T) {
	s := newTestStore()

	var calls int
	s.Subscribe(func([]models.MCanonicalRate) { calls++ })

	assert.Equal(t, 0, calls)
	s.Apply([]models.MCanonicalRate{rate("GOLD", 100)})
	assert.Equal(t, 1, calls)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	s := newTestStore()

	var calls int
	id := s.Subscribe(func([]models.MCanonicalRate) { calls++ })
	s.Apply([]models.MCanonicalRate{rate("GOLD", 100)})
	s.Unsubscribe(id)
	s.Apply([]models.MCanonicalRate{rate("GOLD", 101)})

	assert.Equal(t, 1, calls)
}

// -----------------------------------------------------------------------------

func TestSnapshotKeepsFirstSeenOrder(t *testing.T) {
	s := newTestStore()

	s.Apply([]models.MCanonicalRate{rate("GOLD", 100), rate("SILVER", 200)})
	s.Apply([]models.MCanonicalRate{rate("SILVER", 201), rate("COPPER", 300)})

	snap := s.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, "GOLD", snap[0].Symbol)
	assert.Equal(t, "SILVER", snap[1].Symbol)
	assert.Equal(t, "COPPER", snap[2].Symbol)
	assert.Equal(t, 201.0, snap[1].Last, "later batch overwrites value, not position")
}

func TestExpiryDistinguishesContracts(t *testing.T) {
	s := newTestStore()

	s.Apply([]models.MCanonicalRate{
		{Symbol: "GOLD", Expiry: "05FEB2027", Last: 100},
		{Symbol: "GOLD", Expiry: "05APR2027", Last: 101},
	})

	assert.Len(t, s.Snapshot(), 2)
}

func TestMapReturnsIndependentCopy(t *testing.T) {
	s := newTestStore()
	s.Apply([]models.MCanonicalRate{rate("GOLD", 100)})

	m := s.Map()
	m["GOLD"] = rate("GOLD", 999)

	assert.Equal(t, 100.0, s.Snapshot()[0].Last)
}
