package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMarketIsValid(t *testing.T) {
	assert.True(t, MarketKRX.IsValid())
	assert.True(t, MarketNXT.IsValid())
	assert.False(t, Market("NYSE").IsValid())
	assert.False(t, Market("").IsValid())
}

func TestTradeTypeIsValid(t *testing.T) {
	assert.True(t, TradeBuy.IsValid())
	assert.True(t, TradeSell.IsValid())
	assert.True(t, TradeAuto.IsValid())
	assert.False(t, TradeType("HOLD").IsValid())
}

func TestOrderIntentIsMarketOrder(t *testing.T) {
	assert.True(t, OrderIntent{Price: 0}.IsMarketOrder())
	assert.False(t, OrderIntent{Price: 75000}.IsMarketOrder())
}

func TestQuoteIsValid(t *testing.T) {
	assert.True(t, Quote{StockCode: "005930", Price: 75000}.IsValid())
	assert.False(t, Quote{StockCode: "005930", Price: 0}.IsValid())
	assert.False(t, Quote{Price: 75000}.IsValid())
}

func TestProfitPercent(t *testing.T) {
	assert.InDelta(t, 10.0, ProfitPercent(11000, 10000), 0.0001)
	assert.InDelta(t, -10.0, ProfitPercent(9000, 10000), 0.0001)
	assert.InDelta(t, 0.0, ProfitPercent(10000, 10000), 0.0001)

	// Unknown average cost never divides by zero.
	assert.Equal(t, 0.0, ProfitPercent(10000, 0))
	assert.Equal(t, 0.0, ProfitPercent(10000, -5))
}
