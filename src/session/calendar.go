package session

import (
	"time"

	"github.com/scmhub/calendar"
)

// TradingCalendar answers whether a given date is a trading day, using
// scmhub/calendar when the configured MIC is known and a plain Mon-Fri rule
// otherwise. Intraday open/close always comes from the session window, never
// from the calendar.
type TradingCalendar struct {
	Calendar *calendar.Calendar
	Fallback bool
	Timezone *time.Location
}

// -----------------------------------------------------------------------------

func NewTradingCalendar(mic string) *TradingCalendar {
	if mic == "" {
		return &TradingCalendar{Fallback: true, Timezone: time.Local}
	}

	// scmhub/calendar.GetCalendar returns a calendar by MIC (ISO 10383)
	cal := calendar.GetCalendar(mic)
	if cal == nil {
		return &TradingCalendar{Fallback: true, Timezone: time.Local}
	}

	return &TradingCalendar{Calendar: cal, Fallback: false, Timezone: cal.Loc}
}

// -----------------------------------------------------------------------------

func (tc *TradingCalendar) IsTradingDay(date time.Time) bool {
	if tc.Timezone != nil {
		date = date.In(tc.Timezone)
	}

	if tc.Fallback {
		weekday := date.Weekday()
		return weekday != time.Saturday && weekday != time.Sunday
	}
	return tc.Calendar.IsBusinessDay(date)
}
