package storage

import (
	"database/sql"
	"fmt"
	"time"

	"market-pipeline/src/helpers"
	"market-pipeline/src/logger"
	"market-pipeline/src/models"

	_ "github.com/lib/pq"
)

// -----------------------------------------------------------------------------

type PostgresDB struct {
	Config models.MStorageConfig
	DB     *sql.DB
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewPostgresDB(cfg models.MStorageConfig, log *logger.Logger) (*PostgresDB, error) {
	return &PostgresDB{
		Config: cfg,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Initialize() error {
	db, err := sql.Open("postgres", d.Config.DBConnectionString)
	if err != nil {
		return &helpers.DatabaseError{PipelineError: helpers.PipelineError{
			Message: "failed to open postgres connection", Cause: err,
		}}
	}

	// Postgres may come up after the pipeline; give it a few attempts.
	if _, err := helpers.RetryWithBackoff("postgres ping", 3, time.Second, d.Logger, func() (interface{}, error) {
		return nil, db.Ping()
	}); err != nil {
		return &helpers.DatabaseError{PipelineError: helpers.PipelineError{
			Message: "postgres ping failed", Cause: err,
		}}
	}

	d.DB = db
	d.DB.SetMaxOpenConns(10)
	d.DB.SetMaxIdleConns(5)
	d.DB.SetConnMaxLifetime(30 * time.Minute)

	return d.createTables()
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) createTables() error {
	query := `
		CREATE TABLE IF NOT EXISTS session_windows (
			date TEXT PRIMARY KEY,
			start_minutes INTEGER,
			end_minutes INTEGER,
			start_time TEXT,
			end_time TEXT,
			fetched_at TIMESTAMPTZ DEFAULT NOW()
		);
	`
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create session_windows: %w", err)
	}

	query = `
		CREATE TABLE IF NOT EXISTS candles (
			symbol TEXT,
			minute BIGINT,
			instrument TEXT,
			expiry TEXT,
			open DOUBLE PRECISION,
			high DOUBLE PRECISION,
			low DOUBLE PRECISION,
			close DOUBLE PRECISION,
			volume DOUBLE PRECISION,
			PRIMARY KEY (symbol, minute)
		);
	`
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create candles: %w", err)
	}

	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) SaveSessionWindow(window models.MSessionWindow) error {
	_, err := d.DB.Exec(`
		INSERT INTO session_windows (date, start_minutes, end_minutes, start_time, end_time, fetched_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (date) DO UPDATE SET
			start_minutes = EXCLUDED.start_minutes,
			end_minutes = EXCLUDED.end_minutes,
			start_time = EXCLUDED.start_time,
			end_time = EXCLUDED.end_time,
			fetched_at = EXCLUDED.fetched_at
	`, window.Date, window.StartMinutes, window.EndMinutes, window.StartTime, window.EndTime, time.Now().UTC())
	return err
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) LoadSessionWindow(date string) (*models.MSessionWindow, error) {
	row := d.DB.QueryRow(`
		SELECT date, start_minutes, end_minutes, start_time, end_time
		FROM session_windows WHERE date = $1
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

func (d *PostgresDB) SaveCandles(candles []models.MMinuteCandle) error {
	if len(candles) == 0 {
		return nil
	}

	tx, err := d.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO candles (symbol, minute, instrument, expiry, open, high, low, close, volume)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (symbol, minute) DO UPDATE SET
			high = GREATEST(candles.high, EXCLUDED.high),
			low = LEAST(candles.low, EXCLUDED.low),
			close = EXCLUDED.close,
			volume = EXCLUDED.volume
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

func (d *PostgresDB) CleanupOldData() error {
	cutoff := time.Now().UTC().AddDate(0, 0, -d.Config.RetentionDays).Unix()

	if _, err := d.DB.Exec("DELETE FROM candles WHERE minute < $1", cutoff); err != nil {
		d.Logger.Error("Cleanup candles error: %v", err)
	}
	if _, err := d.DB.Exec("DELETE FROM session_windows WHERE date < $1",
		time.Now().UTC().AddDate(0, 0, -d.Config.RetentionDays).Format("2006-01-02")); err != nil {
		d.Logger.Error("Cleanup session_windows error: %v", err)
	}

	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
