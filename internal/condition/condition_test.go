package condition

import (
	"errors"
	"testing"
	"time"

	"github.com/kyuwon-dev/kisengine/internal/core"
	"github.com/kyuwon-dev/kisengine/internal/snapshot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2026-03-02 is a Monday; 17:00 is inside NXT hours but outside KRX hours.
func testSnapshot(hour int) *snapshot.Snapshot {
	return &snapshot.Snapshot{
		Prices: map[string]int64{"005930": 69_000},
		Positions: map[string]snapshot.Position{
			"005930": {Quantity: 10, AvgCost: 65_000},
		},
		Cash:      1_000_000,
		CashKnown: true,
		Now:       time.Date(2026, 3, 2, hour, 0, 0, 0, time.UTC),
	}
}

func TestEvaluateUnknownCondition(t *testing.T) {
	_, err := Evaluate("is_market_crashing", nil, testSnapshot(10))
	assert.True(t, errors.Is(err, core.ErrUnknownCondition))
}

func TestTradingHoursBypassedByDefault(t *testing.T) {
	// Without check_enabled the condition always holds, even at 03:00.
	ok, err := Evaluate("is_trading_hours", nil, testSnapshot(3))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Evaluate("is_trading_hours", map[string]any{"check_enabled": false}, testSnapshot(3))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestTradingHoursMalformedCheckEnabledFailsClosed(t *testing.T) {
	// A value that is neither boolean nor bool-like must not act as a
	// bypass: Sunday 03:00 would otherwise pass as trading hours.
	snap := testSnapshot(3)
	snap.Now = time.Date(2026, 3, 8, 3, 0, 0, 0, time.UTC)

	ok, err := Evaluate("is_trading_hours", map[string]any{"check_enabled": "banana"}, snap)
	assert.False(t, ok)
	assert.True(t, errors.Is(err, core.ErrConfigInvalid))
}

func TestTradingHoursChecked(t *testing.T) {
	params := map[string]any{"check_enabled": true}

	ok, err := Evaluate("is_trading_hours", params, testSnapshot(10))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Evaluate("is_trading_hours", params, testSnapshot(17))
	require.NoError(t, err)
	assert.False(t, ok)

	nxt := map[string]any{"check_enabled": true, "market": "NXT"}
	ok, err = Evaluate("is_trading_hours", nxt, testSnapshot(17))
	require.NoError(t, err)
	assert.True(t, ok)

	bad := map[string]any{"check_enabled": true, "market": "NYSE"}
	_, err = Evaluate("is_trading_hours", bad, testSnapshot(10))
	assert.True(t, errors.Is(err, core.ErrConfigInvalid))
}

func TestPriceBelowTarget(t *testing.T) {
	snap := testSnapshot(10)

	ok, err := Evaluate("is_price_below_target", map[string]any{
		"stock_code": "005930", "target_price": 70_000,
	}, snap)
	require.NoError(t, err)
	assert.True(t, ok)

	// Strictly below: an equal price does not match.
	ok, err = Evaluate("is_price_below_target", map[string]any{
		"stock_code": "005930", "target_price": 69_000,
	}, snap)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = Evaluate("is_price_below_target", map[string]any{
		"stock_code": "000660", "target_price": 70_000,
	}, snap)
	assert.True(t, errors.Is(err, core.ErrDataUnavailable))

	_, err = Evaluate("is_price_below_target", map[string]any{"stock_code": "005930"}, snap)
	assert.True(t, errors.Is(err, core.ErrConfigMissing))
}

func TestHasSufficientCash(t *testing.T) {
	snap := testSnapshot(10)

	ok, err := Evaluate("has_sufficient_cash", map[string]any{"min_cash_amount": 1_000_000}, snap)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Evaluate("has_sufficient_cash", map[string]any{"min_cash_amount": 1_000_001}, snap)
	require.NoError(t, err)
	assert.False(t, ok)

	snap.CashKnown = false
	_, err = Evaluate("has_sufficient_cash", map[string]any{"min_cash_amount": 1}, snap)
	assert.True(t, errors.Is(err, core.ErrDataUnavailable))
}

func TestTargetProfitReached(t *testing.T) {
	snap := testSnapshot(10) // bought at 65000, now 69000: +6.15%

	ok, err := Evaluate("is_target_profit_reached", map[string]any{
		"stock_code": "005930", "target_profit_percent": 5.0,
	}, snap)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Evaluate("is_target_profit_reached", map[string]any{
		"stock_code": "005930", "target_profit_percent": 10.0,
	}, snap)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestProfitConditionsWithNothingHeld(t *testing.T) {
	snap := testSnapshot(10)
	snap.Positions = map[string]snapshot.Position{}

	// No position means no profit to measure; not an error.
	ok, err := Evaluate("is_target_profit_reached", map[string]any{
		"stock_code": "005930", "target_profit_percent": 1.0,
	}, snap)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = Evaluate("is_stop_loss_reached", map[string]any{
		"stock_code": "005930", "stop_loss_percent": -1.0,
	}, snap)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStopLossReached(t *testing.T) {
	snap := testSnapshot(10)
	snap.Positions["005930"] = snapshot.Position{Quantity: 10, AvgCost: 80_000}
	// Now at 69000 against 80000: -13.75%

	ok, err := Evaluate("is_stop_loss_reached", map[string]any{
		"stock_code": "005930", "stop_loss_percent": -10.0,
	}, snap)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Evaluate("is_stop_loss_reached", map[string]any{
		"stock_code": "005930", "stop_loss_percent": -20.0,
	}, snap)
	require.NoError(t, err)
	assert.False(t, ok)
}
