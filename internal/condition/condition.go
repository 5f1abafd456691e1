// Package condition evaluates the closed set of trading conditions against
// a per-cycle snapshot.
//
// Dispatch is by enumerated name, matched exhaustively: adding a condition
// means adding a case here, not registering a lookup entry. Evaluation
// failures (missing params, unavailable data) are returned as structured
// errors so the caller can fail closed and log; they never abort a cycle.
package condition

import (
	"github.com/kyuwon-dev/kisengine/internal/core"
	"github.com/kyuwon-dev/kisengine/internal/market"
	"github.com/kyuwon-dev/kisengine/internal/snapshot"
	"github.com/spf13/cast"
)

// Name enumerates the supported conditions. The string values are part of
// the configuration contract.
type Name string

const (
	IsTradingHours        Name = "is_trading_hours"
	IsPriceBelowTarget    Name = "is_price_below_target"
	HasSufficientCash     Name = "has_sufficient_cash"
	IsTargetProfitReached Name = "is_target_profit_reached"
	IsStopLossReached     Name = "is_stop_loss_reached"
)

// Evaluate returns whether the named condition holds for the snapshot.
// Unknown names and missing/malformed parameters yield an error; the caller
// treats any error as "condition not met".
func Evaluate(name string, params map[string]any, snap *snapshot.Snapshot) (bool, error) {
	switch Name(name) {
	case IsTradingHours:
		return evalTradingHours(params, snap)
	case IsPriceBelowTarget:
		return evalPriceBelowTarget(params, snap)
	case HasSufficientCash:
		return evalSufficientCash(params, snap)
	case IsTargetProfitReached:
		return evalTargetProfit(params, snap)
	case IsStopLossReached:
		return evalStopLoss(params, snap)
	default:
		return false, core.Wrapf(core.ErrUnknownCondition, "%q", name)
	}
}

// evalTradingHours checks the session clock. When check_enabled is false or
// absent the condition is bypassed and always holds; a malformed value is an
// error, not a bypass.
func evalTradingHours(params map[string]any, snap *snapshot.Snapshot) (bool, error) {
	raw, ok := params["check_enabled"]
	if !ok {
		return true, nil
	}
	enabled, err := cast.ToBoolE(raw)
	if err != nil {
		return false, core.Wrapf(core.ErrConfigInvalid, "is_trading_hours: param %q: %v", "check_enabled", raw)
	}
	if !enabled {
		return true, nil
	}

	venue := core.MarketKRX
	if raw, ok := params["market"]; ok {
		venue = core.Market(cast.ToString(raw))
		if !venue.IsValid() {
			return false, core.Wrapf(core.ErrConfigInvalid, "is_trading_hours: unknown market %q", venue)
		}
	}

	return market.IsTradingHours(venue, snap.Now), nil
}

func evalPriceBelowTarget(params map[string]any, snap *snapshot.Snapshot) (bool, error) {
	stockCode, err := requiredString(params, "stock_code", "is_price_below_target")
	if err != nil {
		return false, err
	}
	target, err := requiredInt(params, "target_price", "is_price_below_target")
	if err != nil {
		return false, err
	}

	price, err := snap.Price(stockCode)
	if err != nil {
		return false, err
	}
	return price < target, nil
}

func evalSufficientCash(params map[string]any, snap *snapshot.Snapshot) (bool, error) {
	minCash, err := requiredInt(params, "min_cash_amount", "has_sufficient_cash")
	if err != nil {
		return false, err
	}

	cash, err := snap.CashBalance()
	if err != nil {
		return false, err
	}
	return cash >= minCash, nil
}

func evalTargetProfit(params map[string]any, snap *snapshot.Snapshot) (bool, error) {
	stockCode, err := requiredString(params, "stock_code", "is_target_profit_reached")
	if err != nil {
		return false, err
	}
	target, err := requiredFloat(params, "target_profit_percent", "is_target_profit_reached")
	if err != nil {
		return false, err
	}

	pos := snap.Position(stockCode)
	if pos.Quantity <= 0 {
		return false, nil
	}
	price, err := snap.Price(stockCode)
	if err != nil {
		return false, err
	}
	return core.ProfitPercent(price, pos.AvgCost) >= target, nil
}

func evalStopLoss(params map[string]any, snap *snapshot.Snapshot) (bool, error) {
	stockCode, err := requiredString(params, "stock_code", "is_stop_loss_reached")
	if err != nil {
		return false, err
	}
	threshold, err := requiredFloat(params, "stop_loss_percent", "is_stop_loss_reached")
	if err != nil {
		return false, err
	}

	pos := snap.Position(stockCode)
	if pos.Quantity <= 0 {
		return false, nil
	}
	price, err := snap.Price(stockCode)
	if err != nil {
		return false, err
	}
	return core.ProfitPercent(price, pos.AvgCost) <= threshold, nil
}

func requiredString(params map[string]any, key, cond string) (string, error) {
	raw, ok := params[key]
	if !ok {
		return "", core.Wrapf(core.ErrConfigMissing, "%s: param %q", cond, key)
	}
	v, err := cast.ToStringE(raw)
	if err != nil || v == "" {
		return "", core.Wrapf(core.ErrConfigInvalid, "%s: param %q: %v", cond, key, raw)
	}
	return v, nil
}

func requiredInt(params map[string]any, key, cond string) (int64, error) {
	raw, ok := params[key]
	if !ok {
		return 0, core.Wrapf(core.ErrConfigMissing, "%s: param %q", cond, key)
	}
	v, err := cast.ToInt64E(raw)
	if err != nil {
		return 0, core.Wrapf(core.ErrConfigInvalid, "%s: param %q: %v", cond, key, raw)
	}
	return v, nil
}

func requiredFloat(params map[string]any, key, cond string) (float64, error) {
	raw, ok := params[key]
	if !ok {
		return 0, core.Wrapf(core.ErrConfigMissing, "%s: param %q", cond, key)
	}
	v, err := cast.ToFloat64E(raw)
	if err != nil {
		return 0, core.Wrapf(core.ErrConfigInvalid, "%s: param %q: %v", cond, key, raw)
	}
	return v, nil
}
