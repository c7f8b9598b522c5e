package storage

import (
	"path/filepath"
	"testing"
	"time"

	"market-pipeline/src/logger"
	"market-pipeline/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *SQLiteDB {
	t.Helper()
	db, err := NewSQLiteDB(models.MStorageConfig{
		DBType:        "sqlite",
		DBPath:        filepath.Join(t.TempDir(), "test.db"),
		RetentionDays: 7,
	}, logger.NewLogger("test", "ERROR"))
	require.NoError(t, err)
	require.NoError(t, db.Initialize())
	t.Cleanup(func() { db.Close() })
	return db
}

// -----------------------------------------------------------------------------

func TestSessionWindowRoundTrip(t *testing.T) {
	db := newTestDB(t)

	window := models.MSessionWindow{
		Date: "2026-08-28", StartMinutes: 540, EndMinutes: 1410,
		StartTime: "09:00", EndTime: "23:30",
	}
	require.NoError(t, db.SaveSessionWindow(window))

	loaded, err := db.LoadSessionWindow("2026-08-28")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, window, *loaded)
}

func TestLoadSessionWindowAbsent(t *testing.T) {
	db := newTestDB(t)

	loaded, err := db.LoadSessionWindow("2026-08-28")
	require.NoError(t, err)
	assert.Nil(t, loaded, "absent date is a miss, not an error")
}

func TestSaveSessionWindowUpserts(t *testing.T) {
	db := newTestDB(t)

	first := models.MSessionWindow{Date: "2026-08-28", StartMinutes: 540, EndMinutes: 930, StartTime: "09:00", EndTime: "15:30"}
	second := models.MSessionWindow{Date: "2026-08-28", StartMinutes: 540, EndMinutes: 1410, StartTime: "09:00", EndTime: "23:30"}

	require.NoError(t, db.SaveSessionWindow(first))
	require.NoError(t, db.SaveSessionWindow(second))

	loaded, err := db.LoadSessionWindow("2026-08-28")
	require.NoError(t, err)
	assert.Equal(t, 1410, loaded.EndMinutes)
}

func TestWindowsSurviveReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "persist.db")
	cfg := models.MStorageConfig{DBType: "sqlite", DBPath: path, RetentionDays: 7}
	log := logger.NewLogger("test", "ERROR")

	db, err := NewSQLiteDB(cfg, log)
	require.NoError(t, err)
	require.NoError(t, db.Initialize())
	require.NoError(t, db.SaveSessionWindow(models.MSessionWindow{
		Date: "2026-08-28", StartMinutes: 540, EndMinutes: 930, StartTime: "09:00", EndTime: "15:30",
	}))
	require.NoError(t, db.Close())

	reopened, err := NewSQLiteDB(cfg, log)
	require.NoError(t, err)
	require.NoError(t, reopened.Initialize())
	defer reopened.Close()

	loaded, err := reopened.LoadSessionWindow("2026-08-28")
	require.NoError(t, err)
	require.NotNil(t, loaded, "durable cache must survive a restart")
	assert.Equal(t, "15:30", loaded.EndTime)
}

// -----------------------------------------------------------------------------

func TestSaveCandlesAndCleanup(t *testing.T) {
	db := newTestDB(t)

	old := time.Now().UTC().AddDate(0, 0, -30).Truncate(time.Minute)
	recent := time.Now().UTC().Truncate(time.Minute)

	require.NoError(t, db.SaveCandles([]models.MMinuteCandle{
		{Symbol: "GOLD", Minute: old, Open: 1, High: 2, Low: 1, Close: 2},
		{Symbol: "GOLD", Minute: recent, Open: 3, High: 4, Low: 3, Close: 4},
	}))
	require.NoError(t, db.CleanupOldData())

	var count int
	require.NoError(t, db.DB.QueryRow("SELECT COUNT(*) FROM candles").Scan(&count))
	assert.Equal(t, 1, count, "candles older than retention are purged")
}

func TestSaveCandlesEmptyBatch(t *testing.T) {
	db := newTestDB(t)
	assert.NoError(t, db.SaveCandles(nil))
}
