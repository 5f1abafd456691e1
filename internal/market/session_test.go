package market

import (
	"testing"
	"time"

	"github.com/kyuwon-dev/kisengine/internal/core"
	"github.com/stretchr/testify/assert"
)

// 2026-03-02 is a Monday.
func weekday(hour, minute int) time.Time {
	return time.Date(2026, 3, 2, hour, minute, 0, 0, time.UTC)
}

func TestIsTradingHoursKRX(t *testing.T) {
	assert.True(t, IsTradingHours(core.MarketKRX, weekday(9, 0)))
	assert.True(t, IsTradingHours(core.MarketKRX, weekday(12, 30)))
	assert.True(t, IsTradingHours(core.MarketKRX, weekday(15, 30)))

	assert.False(t, IsTradingHours(core.MarketKRX, weekday(8, 59)))
	assert.False(t, IsTradingHours(core.MarketKRX, weekday(15, 31)))
}

func TestIsTradingHoursNXTExtendedWindow(t *testing.T) {
	assert.True(t, IsTradingHours(core.MarketNXT, weekday(8, 0)))
	assert.True(t, IsTradingHours(core.MarketNXT, weekday(17, 0)))
	assert.True(t, IsTradingHours(core.MarketNXT, weekday(18, 0)))

	assert.False(t, IsTradingHours(core.MarketNXT, weekday(7, 59)))
	assert.False(t, IsTradingHours(core.MarketNXT, weekday(18, 1)))
}

func TestIsTradingHoursWeekend(t *testing.T) {
	saturday := time.Date(2026, 3, 7, 10, 0, 0, 0, time.UTC)
	sunday := time.Date(2026, 3, 8, 10, 0, 0, 0, time.UTC)

	assert.False(t, IsTradingHours(core.MarketKRX, saturday))
	assert.False(t, IsTradingHours(core.MarketNXT, sunday))
}

func TestSessionForUnknownVenueFallsBackToKRX(t *testing.T) {
	assert.Equal(t, SessionFor(core.MarketKRX), SessionFor(core.Market("NASDAQ")))
}
