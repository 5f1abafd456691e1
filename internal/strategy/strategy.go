// Package strategy translates a matched rule's strategy entry into an order
// intent. Like conditions, strategies are a closed enumerated set.
package strategy

import (
	"github.com/kyuwon-dev/kisengine/internal/core"
	"github.com/kyuwon-dev/kisengine/internal/snapshot"
	"github.com/spf13/cast"
)

// Name enumerates the supported strategies. The string values are part of
// the configuration contract.
type Name string

const (
	SimpleBuy  Name = "simple_buy"
	SimpleSell Name = "simple_sell"
)

// Execute produces at most one order intent for the named strategy.
// A (nil, nil) return is a deliberate no-op (e.g. sell_all with nothing
// held); errors mark misconfiguration or unfillable orders and are logged by
// the caller without aborting the cycle.
func Execute(name string, params map[string]any, snap *snapshot.Snapshot) (*core.OrderIntent, error) {
	switch Name(name) {
	case SimpleBuy:
		return executeBuy(params, snap)
	case SimpleSell:
		return executeSell(params, snap)
	default:
		return nil, core.Wrapf(core.ErrUnknownStrategy, "%q", name)
	}
}

func executeBuy(params map[string]any, snap *snapshot.Snapshot) (*core.OrderIntent, error) {
	stockCode, err := paramString(params, "stock_code", "simple_buy")
	if err != nil {
		return nil, err
	}

	amount := cast.ToInt64(params["amount"])
	quantity := cast.ToInt64(params["quantity"])
	if (amount > 0) == (quantity > 0) {
		return nil, core.Wrapf(core.ErrConfigInvalid,
			"simple_buy: exactly one of amount or quantity must be set (amount=%d, quantity=%d)",
			amount, quantity)
	}

	if amount > 0 {
		price, err := snap.Price(stockCode)
		if err != nil {
			return nil, err
		}
		quantity = amount / price
		if quantity < 1 {
			return nil, core.Wrapf(core.ErrInsufficientFunds,
				"simple_buy: amount %d buys no shares of %s at price %d", amount, stockCode, price)
		}
	}

	return &core.OrderIntent{
		StockCode: stockCode,
		Side:      core.SideBuy,
		Quantity:  quantity,
		Price:     cast.ToInt64(params["price"]),
		Market:    marketParam(params),
		Origin:    string(SimpleBuy),
	}, nil
}

func executeSell(params map[string]any, snap *snapshot.Snapshot) (*core.OrderIntent, error) {
	stockCode, err := paramString(params, "stock_code", "simple_sell")
	if err != nil {
		return nil, err
	}

	held := snap.Position(stockCode).Quantity
	quantity := cast.ToInt64(params["quantity"])

	if cast.ToBool(params["sell_all"]) {
		if held <= 0 {
			// Nothing to liquidate; deliberate no-op.
			return nil, nil
		}
		quantity = held
	} else {
		if quantity <= 0 {
			return nil, core.Wrapf(core.ErrConfigInvalid,
				"simple_sell: either sell_all or a positive quantity is required")
		}
		if quantity > held {
			return nil, core.Wrapf(core.ErrInvalidQuantity,
				"simple_sell: quantity %d exceeds held %d for %s", quantity, held, stockCode)
		}
	}

	return &core.OrderIntent{
		StockCode: stockCode,
		Side:      core.SideSell,
		Quantity:  quantity,
		Price:     cast.ToInt64(params["price"]),
		Market:    marketParam(params),
		Origin:    string(SimpleSell),
	}, nil
}

func paramString(params map[string]any, key, strat string) (string, error) {
	v := cast.ToString(params[key])
	if v == "" {
		return "", core.Wrapf(core.ErrConfigMissing, "%s: param %q", strat, key)
	}
	return v, nil
}

func marketParam(params map[string]any) core.Market {
	if m := core.Market(cast.ToString(params["market"])); m.IsValid() {
		return m
	}
	return core.MarketKRX
}
