// Package market models trading-session hours for the supported venues.
package market

import (
	"time"

	"github.com/kyuwon-dev/kisengine/internal/core"
)

// Session is a daily trading window expressed in local exchange time.
type Session struct {
	OpenHour    int
	OpenMinute  int
	CloseHour   int
	CloseMinute int
}

// sessions holds the regular session per venue. NXT runs an extended window.
var sessions = map[core.Market]Session{
	core.MarketKRX: {OpenHour: 9, OpenMinute: 0, CloseHour: 15, CloseMinute: 30},
	core.MarketNXT: {OpenHour: 8, OpenMinute: 0, CloseHour: 18, CloseMinute: 0},
}

// SessionFor returns the session window for the venue, falling back to KRX
// for unknown venues.
func SessionFor(m core.Market) Session {
	if s, ok := sessions[m]; ok {
		return s
	}
	return sessions[core.MarketKRX]
}

// Contains reports whether t falls inside the window, inclusive on both ends.
func (s Session) Contains(t time.Time) bool {
	open := time.Date(t.Year(), t.Month(), t.Day(), s.OpenHour, s.OpenMinute, 0, 0, t.Location())
	close := time.Date(t.Year(), t.Month(), t.Day(), s.CloseHour, s.CloseMinute, 0, 0, t.Location())
	return !t.Before(open) && !t.After(close)
}

// IsTradingHours reports whether t is a weekday inside the venue's regular
// session.
func IsTradingHours(m core.Market, t time.Time) bool {
	wd := t.Weekday()
	if wd == time.Saturday || wd == time.Sunday {
		return false
	}
	return SessionFor(m).Contains(t)
}
