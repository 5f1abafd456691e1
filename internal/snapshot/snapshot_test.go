package snapshot

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/kyuwon-dev/kisengine/internal/broker/mocks"
	"github.com/kyuwon-dev/kisengine/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrokerProviderCollect(t *testing.T) {
	b := mocks.New()
	b.SetQuote("005930", 75_000)
	b.SetPosition("000660", 10, 120_000)
	b.SetCash(5_000_000)

	snap, err := NewBrokerProvider(b).Collect(context.Background(), []string{"005930", "000660"})
	require.NoError(t, err)

	price, err := snap.Price("005930")
	require.NoError(t, err)
	assert.Equal(t, int64(75_000), price)

	pos := snap.Position("000660")
	assert.Equal(t, int64(10), pos.Quantity)
	assert.InDelta(t, 120_000, pos.AvgCost, 0.0001)

	cash, err := snap.CashBalance()
	require.NoError(t, err)
	assert.Equal(t, int64(5_000_000), cash)
}

func TestCollectToleratesQuoteGaps(t *testing.T) {
	b := mocks.New()
	b.SetCash(1_000_000)
	b.QuoteErr = fmt.Errorf("feed down")

	snap, err := NewBrokerProvider(b).Collect(context.Background(), []string{"005930"})
	require.NoError(t, err)

	// The gap surfaces when a consumer asks for the missing price.
	_, err = snap.Price("005930")
	assert.True(t, errors.Is(err, core.ErrDataUnavailable))

	cash, err := snap.CashBalance()
	require.NoError(t, err)
	assert.Equal(t, int64(1_000_000), cash)
}

func TestSnapshotAccessors(t *testing.T) {
	snap := &Snapshot{
		Prices:    map[string]int64{"005930": 75_000},
		Positions: map[string]Position{},
	}

	_, err := snap.Price("000660")
	assert.True(t, errors.Is(err, core.ErrDataUnavailable))

	assert.Equal(t, Position{}, snap.Position("000660"))

	_, err = snap.CashBalance()
	assert.True(t, errors.Is(err, core.ErrDataUnavailable))
}
