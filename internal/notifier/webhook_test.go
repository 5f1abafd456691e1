package notifier

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kyuwon-dev/kisengine/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifyOrderPostsPayload(t *testing.T) {
	var gotBody []byte
	var gotAuth string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	w := NewWebhook(srv.URL, map[string]string{"Authorization": "Bearer tok"}, nil)
	require.NotNil(t, w)

	w.NotifyOrder(context.Background(), "c1", core.OrderIntent{
		StockCode: "005930",
		Side:      core.SideBuy,
		Quantity:  5,
		Price:     75_000,
		Market:    core.MarketKRX,
		Origin:    "dip-buy",
	})

	assert.Equal(t, "Bearer tok", gotAuth)

	var payload struct {
		Event   string           `json:"event"`
		CycleID string           `json:"cycle_id"`
		Intent  core.OrderIntent `json:"intent"`
	}
	require.NoError(t, json.Unmarshal(gotBody, &payload))
	assert.Equal(t, "order_submitted", payload.Event)
	assert.Equal(t, "c1", payload.CycleID)
	assert.Equal(t, "005930", payload.Intent.StockCode)
	assert.Equal(t, int64(5), payload.Intent.Quantity)
}

func TestNilWebhookIsSafe(t *testing.T) {
	w := NewWebhook("", nil, nil)
	assert.Nil(t, w)

	// Calling through the nil receiver must not panic.
	w.NotifyOrder(context.Background(), "c1", core.OrderIntent{})
}

func TestDeliveryFailureIsSwallowed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	w := NewWebhook(srv.URL, nil, nil)
	w.NotifyOrder(context.Background(), "c1", core.OrderIntent{StockCode: "005930", Quantity: 1})
}
