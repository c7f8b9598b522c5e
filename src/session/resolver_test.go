package session

import (
	"fmt"
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

type fakeSessionClient struct {
	start string
	end   string
	err   error
	calls int
}

func (f *fakeSessionClient) FetchSessionWindow() (string, string, error) {
	f.calls++
	return f.start, f.end, f.err
}

type fakeWindowStore struct {
	windows map[string]models.MSessionWindow
	saved   int
}

func newFakeWindowStore() *fakeWindowStore {
	return &fakeWindowStore{windows: make(map[string]models.MSessionWindow)}
}

func (f *fakeWindowStore) Initialize() error { return nil }

func (f *fakeWindowStore) SaveSessionWindow(w models.MSessionWindow) error {
	f.windows[w.Date] = w
	f.saved++
	return nil
}

func (f *fakeWindowStore) LoadSessionWindow(date string) (*models.MSessionWindow, error) {
	if w, ok := f.windows[date]; ok {
		return &w, nil
	}
	return nil, nil
}

func (f *fakeWindowStore) SaveCandles([]models.MMinuteCandle) error { return nil }
func (f *fakeWindowStore) CleanupOldData() error                    { return nil }
func (f *fakeWindowStore) Close() error                             { return nil }

// -----------------------------------------------------------------------------

var testClock = time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)

func newTestResolver(client *fakeSessionClient, store *fakeWindowStore, cfg models.MSessionConfig) *Resolver {
	r := NewResolver(client, store, cfg, logger.NewLogger("test", "ERROR"))
	r.now = func() time.Time { return testClock }
	return r
}

func fallbackCfg(retry bool) models.MSessionConfig {
	return models.MSessionConfig{
		FallbackStart:   "09:00",
		FallbackEnd:     "15:30",
		RetryOnFallback: retry,
	}
}

// -----------------------------------------------------------------------------

func TestResolverFetchesRemoteOncePerDay(t *testing.T) {
	client := &fakeSessionClient{start: "09:00", end: "23:30"}
	store := newFakeWindowStore()
	r := newTestResolver(client, store, fallbackCfg(true))

	w := r.GetWindow()
	require.Equal(t, "2026-08-28", w.Date)
	assert.Equal(t, 9*60, w.StartMinutes)
	assert.Equal(t, 23*60+30, w.EndMinutes)
	assert.Equal(t, "23:30", w.EndTime)
	assert.True(t, r.Resolved())
	assert.Equal(t, 1, store.saved)

	// Served from memory afterwards.
	r.GetWindow()
	r.GetWindow()
	assert.Equal(t, 1, client.calls)
}

func TestResolverUsesDurableWindow(t *testing.T) {
	client := &fakeSessionClient{start: "09:00", end: "23:30"}
	store := newFakeWindowStore()
	store.SaveSessionWindow(models.MSessionWindow{
		Date: "2026-08-28", StartMinutes: 600, EndMinutes: 840,
		StartTime: "10:00", EndTime: "14:00",
	})
	r := newTestResolver(client, store, fallbackCfg(true))

	w := r.GetWindow()
	assert.Equal(t, 600, w.StartMinutes)
	assert.Equal(t, 0, client.calls)
	assert.True(t, r.Resolved())
}

func TestResolverIgnoresStaleDurableWindow(t *testing.T) {
	client := &fakeSessionClient{start: "09:00", end: "23:30"}
	store := newFakeWindowStore()
	store.SaveSessionWindow(models.MSessionWindow{
		Date: "2026-08-27", StartMinutes: 600, EndMinutes: 840,
	})
	r := newTestResolver(client, store, fallbackCfg(true))

	w := r.GetWindow()
	assert.Equal(t, "2026-08-28", w.Date)
	assert.Equal(t, 9*60, w.StartMinutes)
	assert.Equal(t, 1, client.calls)
}

func TestResolverFallbackRetriesByDefault(t *testing.T) {
	client := &fakeSessionClient{err: fmt.Errorf("backend down")}
	store := newFakeWindowStore()
	r := newTestResolver(client, store, fallbackCfg(true))

	w := r.GetWindow()
	assert.Equal(t, 9*60, w.StartMinutes)
	assert.Equal(t, 15*60+30, w.EndMinutes)
	assert.False(t, r.Resolved())
	assert.Equal(t, 0, store.saved, "fallback must never be persisted")

	// Every call retries the remote source while on fallback.
	r.GetWindow()
	assert.Equal(t, 2, client.calls)

	// Once the remote recovers, the real window replaces the fallback.
	client.err = nil
	w = r.GetWindow()
	assert.Equal(t, 23*60+30, w.EndMinutes)
	assert.True(t, r.Resolved())
}

func TestResolverAdoptsFallbackWhenRetryDisabled(t *testing.T) {
	client := &fakeSessionClient{err: fmt.Errorf("backend down")}
	store := newFakeWindowStore()
	r := newTestResolver(client, store, fallbackCfg(false))

	w := r.GetWindow()
	assert.Equal(t, 9*60, w.StartMinutes)
	assert.True(t, r.Resolved())
	assert.Equal(t, 0, store.saved)

	r.GetWindow()
	assert.Equal(t, 1, client.calls, "adopted fallback must not refetch")
}

// -----------------------------------------------------------------------------

func TestContainsBoundsAreInclusive(t *testing.T) {
	client := &fakeSessionClient{start: "09:00", end: "15:30"}
	r := newTestResolver(client, newFakeWindowStore(), fallbackCfg(true))

	day := func(h, m int) time.Time {
		return time.Date(2026, 8, 28, h, m, 0, 0, time.UTC)
	}

	assert.False(t, r.Contains(day(8, 59)))
	assert.True(t, r.Contains(day(9, 0)))
	assert.True(t, r.Contains(day(12, 30)))
	assert.True(t, r.Contains(day(15, 30)))
	assert.False(t, r.Contains(day(15, 31)))
}

func TestContainsClosedOnNonTradingDay(t *testing.T) {
	client := &fakeSessionClient{start: "00:00", end: "23:59"}
	r := newTestResolver(client, newFakeWindowStore(), fallbackCfg(true))

	saturday := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	assert.False(t, r.Contains(saturday))
}

// -----------------------------------------------------------------------------

func TestTimeToMinutes(t *testing.T) {
	cases := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"09:00", 540, false},
		{"00:00", 0, false},
		{"23:59", 1439, false},
		{"15:30", 930, false},
		{"24:00", 0, true},
		{"12:60", 0, true},
		{"12", 0, true},
		{"ab:cd", 0, true},
		{"", 0, true},
	}

	for _, tc := range cases {
		got, err := TimeToMinutes(tc.in)
		if tc.wantErr {
			assert.Error(t, err, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}
