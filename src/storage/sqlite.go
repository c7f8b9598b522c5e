package storage

import (
	"database/sql"
	"fmt"
	"time"

	"market-pipeline/src/helpers"
	"market-pipeline/src/logger"
	"market-pipeline/src/models"

	_ "modernc.org/sqlite"
)

// -----------------------------------------------------------------------------

type SQLiteDB struct {
	Config models.MStorageConfig
	DB     *sql.DB
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewSQLiteDB(cfg models.MStorageConfig, log *logger.Logger) (*SQLiteDB, error) {
	return &SQLiteDB{
		Config: cfg,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteDB) Initialize() error {
	db, err := sql.Open("sqlite", d.Config.DBPath)
	if err != nil {
		return &helpers.DatabaseError{PipelineError: helpers.PipelineError{
			Message: "failed to open sqlite at " + d.Config.DBPath, Cause: err,
		}}
	}

	if err := db.Ping(); err != nil {
		return &helpers.DatabaseError{PipelineError: helpers.PipelineError{
			Message: "sqlite ping failed", Cause: err,
		}}
	}

	d.DB = db

	// PRAGMA optimizations
	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		d.Logger.Warning("Failed to set WAL mode: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL;"); err != nil {
		d.Logger.Warning("Failed to set synchronous mode: %v", err)
	}

	return d.createTables()
}

// -----------------------------------------------------------------------------

// createTables keeps existing rows: the session_windows table is the durable
// cache tier and must survive process restarts.
func (d *SQLiteDB) createTables() error {
	query := `
		CREATE TABLE IF NOT EXISTS session_windows (
			date TEXT PRIMARY KEY,
			start_minutes INTEGER,
			end_minutes INTEGER,
			start_time TEXT,
			end_time TEXT,
			fetched_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
	`
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create session_windows: %w", err)
	}

	query = `
		CREATE TABLE IF NOT EXISTS candles (
			symbol TEXT,
			minute INTEGER,
			instrument TEXT,
			expiry TEXT,
			open REAL,
			high REAL,
			low REAL,
			close REAL,
			volume REAL,
			PRIMARY KEY (symbol, minute)
		);
	`
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create candles: %w", err)
	}

	return nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteDB) SaveSessionWindow(window models.MSessionWindow) error {
	_, err := d.DB.Exec(`
		INSERT OR REPLACE INTO session_windows (date, start_minutes, end_minutes, start_time, end_time, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, window.Date, window.StartMinutes, window.EndMinutes, window.StartTime, window.EndTime, time.Now().UTC())
	return err
}

// -----------------------------------------------------------------------------

func (d *SQLiteDB) LoadSessionWindow(date string) (*models.MSessionWindow, error) {
	row := d.DB.QueryRow(`
		SELECT date, start_minutes, end_minutes, start_time, end_time
		FROM session_windows WHERE date = ?
	`, date)

	var w models.MSessionWindow
	err := row.Scan(&w.Date, &w.StartMinutes, &w.EndMinutes, &w.StartTime, &w.EndTime)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteDB) SaveCandles(candles []models.MMinuteCandle) error {
	if len(candles) == 0 {
		return nil
	}

	tx, err := d.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO candles (symbol, minute, instrument, expiry, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, c := range candles {
		_, err := stmt.Exec(c.Symbol, c.Minute.Unix(), c.InstrumentType, c.Expiry, c.Open, c.High, c.Low, c.Close, c.Volume)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// -----------------------------------------------------------------------------

func (d *SQLiteDB) CleanupOldData() error {
	cutoff := time.Now().UTC().AddDate(0, 0, -d.Config.RetentionDays).Unix()

	if _, err := d.DB.Exec("DELETE FROM candles WHERE minute < ?", cutoff); err != nil {
		d.Logger.Error("Cleanup candles error: %v", err)
	}
	if _, err := d.DB.Exec("DELETE FROM session_windows WHERE date < ?",
		time.Now().UTC().AddDate(0, 0, -d.Config.RetentionDays).Format("2006-01-02")); err != nil {
		d.Logger.Error("Cleanup session_windows error: %v", err)
	}

	return nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteDB) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
