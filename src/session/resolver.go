package session

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"market-pipeline/src/interfaces"
	"market-pipeline/src/logger"
	"market-pipeline/src/models"
)

// -----------------------------------------------------------------------------
// Session Window Resolver
//
// Resolves the trading-session window for "today" through a two-tier cache:
// in-memory first, then the durable store, then a remote fetch. A failed
// fetch degrades to the configured fallback window without persisting it, so
// the remote source is consulted again on the next call (configurable via
// retry_on_fallback).
// -----------------------------------------------------------------------------

type Resolver struct {
	client   interfaces.ISessionClient
	store    interfaces.IDatabase
	cfg      models.MSessionConfig
	Logger   *logger.Logger
	Calendar *TradingCalendar

	mu       sync.Mutex
	cached   *models.MSessionWindow
	resolved bool
	now      func() time.Time
}

// -----------------------------------------------------------------------------

func NewResolver(client interfaces.ISessionClient, store interfaces.IDatabase, cfg models.MSessionConfig, log *logger.Logger) *Resolver {
	return &Resolver{
		client:   client,
		store:    store,
		cfg:      cfg,
		Logger:   log,
		Calendar: NewTradingCalendar(cfg.CalendarMIC),
		now:      time.Now,
	}
}

// -----------------------------------------------------------------------------

// GetWindow returns the session window for today. Safe to call from any
// point in the pipeline; at most one remote fetch is performed per day on
// the happy path.
func (r *Resolver) GetWindow() models.MSessionWindow {
	r.mu.Lock()
	defer r.mu.Unlock()

	today := r.now().Format("2006-01-02")

	// Tier 1: memory
	if r.cached != nil && r.cached.Date == today {
		return *r.cached
	}

	// Tier 2: durable store
	if r.store != nil {
		stored, err := r.store.LoadSessionWindow(today)
		if err != nil {
			r.Logger.Warning("Session window load failed: %v", err)
		} else if stored != nil {
			r.cached = stored
			r.resolved = true
			return *stored
		}
	}

	// Tier 3: remote fetch
	window, err := r.fetchRemote(today)
	if err == nil {
		if r.store != nil {
			if err := r.store.SaveSessionWindow(window); err != nil {
				r.Logger.Warning("Session window persist failed: %v", err)
			}
		}
		r.cached = &window
		r.resolved = true
		return window
	}

	r.Logger.Warning("Session window fetch failed, using fallback %s-%s: %v",
		r.cfg.FallbackStart, r.cfg.FallbackEnd, err)

	fallback := r.fallbackWindow(today)
	if !r.cfg.RetryOnFallback {
		// Adopt the fallback as authoritative for the rest of the day.
		r.cached = &fallback
		r.resolved = true
	}
	return fallback
}

// -----------------------------------------------------------------------------

func (r *Resolver) fetchRemote(today string) (models.MSessionWindow, error) {
	if r.client == nil {
		return models.MSessionWindow{}, fmt.Errorf("no session client configured")
	}

	startStr, endStr, err := r.client.FetchSessionWindow()
	if err != nil {
		return models.MSessionWindow{}, err
	}

	start, err := TimeToMinutes(startStr)
	if err != nil {
		return models.MSessionWindow{}, fmt.Errorf("bad start_time %q: %w", startStr, err)
	}
	end, err := TimeToMinutes(endStr)
	if err != nil {
		return models.MSessionWindow{}, fmt.Errorf("bad end_time %q: %w", endStr, err)
	}

	return models.MSessionWindow{
		Date:         today,
		StartMinutes: start,
		EndMinutes:   end,
		StartTime:    startStr,
		EndTime:      endStr,
	}, nil
}

// -----------------------------------------------------------------------------

func (r *Resolver) fallbackWindow(today string) models.MSessionWindow {
	start, err := TimeToMinutes(r.cfg.FallbackStart)
	if err != nil {
		start = 9 * 60
	}
	end, err := TimeToMinutes(r.cfg.FallbackEnd)
	if err != nil {
		end = 15*60 + 30
	}
	return models.MSessionWindow{
		Date:         today,
		StartMinutes: start,
		EndMinutes:   end,
		StartTime:    r.cfg.FallbackStart,
		EndTime:      r.cfg.FallbackEnd,
	}
}

// -----------------------------------------------------------------------------
// ISessionGate implementation (consumed by the candle aggregator)
// -----------------------------------------------------------------------------

// Resolved reports whether a window has ever been adopted (remote, durable,
// or an adopted fallback). Before that the aggregator fails open.
func (r *Resolver) Resolved() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resolved
}

// -----------------------------------------------------------------------------

// Contains reports whether t falls inside today's resolved window. When no
// window is cached yet it resolves one first. Non-trading days are closed
// regardless of the window.
func (r *Resolver) Contains(t time.Time) bool {
	if !r.Calendar.IsTradingDay(t) {
		return false
	}
	window := r.GetWindow()
	minutes := t.Hour()*60 + t.Minute()
	return minutes >= window.StartMinutes && minutes <= window.EndMinutes
}

// -----------------------------------------------------------------------------

// TimeToMinutes converts "HH:mm" to minutes since midnight.
func TimeToMinutes(hhmm string) (int, error) {
	parts := strings.Split(hhmm, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("expected HH:mm, got %q", hhmm)
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, err
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, err
	}
	if hours < 0 || hours > 23 || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("out of range time %q", hhmm)
	}
	return hours*60 + minutes, nil
}
