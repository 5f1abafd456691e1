package core

import "time"

// Market represents a trading venue.
type Market string

const (
	MarketKRX Market = "KRX"
	MarketNXT Market = "NXT"
)

// IsValid reports whether the market is a known venue.
func (m Market) IsValid() bool {
	return m == MarketKRX || m == MarketNXT
}

// TradeType represents the kind of a forced-trade command.
type TradeType string

const (
	TradeBuy  TradeType = "BUY"
	TradeSell TradeType = "SELL"
	TradeAuto TradeType = "AUTO"
)

// IsValid reports whether the trade type is a known value.
func (t TradeType) IsValid() bool {
	return t == TradeBuy || t == TradeSell || t == TradeAuto
}

// Side represents the direction of an order.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// OrderIntent is the engine's output: a single order to be submitted to the
// order-execution collaborator. Price 0 means a market order.
type OrderIntent struct {
	StockCode string `json:"stock_code"`
	Side      Side   `json:"side"`
	Quantity  int64  `json:"quantity"`
	Price     int64  `json:"price"`
	Market    Market `json:"market"`
	// Origin names what produced the intent: a rule name or a forced-trade tag.
	Origin string `json:"origin,omitempty"`
}

// IsMarketOrder reports whether the intent executes at market price.
func (o OrderIntent) IsMarketOrder() bool {
	return o.Price == 0
}

// Quote is a point-in-time price for a stock code.
type Quote struct {
	StockCode string
	Price     int64
	Time      time.Time
}

// IsValid checks that the quote carries a usable price.
func (q Quote) IsValid() bool {
	return q.StockCode != "" && q.Price > 0
}

// ProfitPercent returns (current - avgCost) / avgCost * 100, or 0 when the
// average cost is not positive.
func ProfitPercent(current int64, avgCost float64) float64 {
	if avgCost <= 0 {
		return 0
	}
	return (float64(current) - avgCost) / avgCost * 100
}
