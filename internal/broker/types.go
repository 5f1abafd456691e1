// Package broker defines the order-submission and account-snapshot surface
// the engine consumes. Concrete integrations live in subpackages; only the
// paper broker ships with this repository.
package broker

import (
	"context"
	"time"

	"github.com/kyuwon-dev/kisengine/internal/core"
)

// OrderStatus represents the lifecycle status of an order.
type OrderStatus string

const (
	// OrderStatusPending indicates the order is accepted but not yet filled.
	OrderStatusPending OrderStatus = "PENDING"
	// OrderStatusFilled indicates the order has been completely filled.
	OrderStatusFilled OrderStatus = "FILLED"
	// OrderStatusRejected indicates the order was rejected.
	OrderStatusRejected OrderStatus = "REJECTED"
)

// OrderRequest represents a request to place a new order.
// Price 0 requests a market order, a positive price a limit order.
type OrderRequest struct {
	StockCode string      `json:"stock_code"`
	Market    core.Market `json:"market"`
	Side      core.Side   `json:"side"`
	Quantity  int64       `json:"quantity"`
	Price     int64       `json:"price"`
	// CycleID attributes the order to the evaluation cycle that produced it.
	CycleID string `json:"cycle_id,omitempty"`
}

// Validate checks the request for structurally invalid fields.
func (r OrderRequest) Validate() error {
	if r.StockCode == "" {
		return core.Wrapf(core.ErrConfigMissing, "order stock_code is required")
	}
	if r.Quantity <= 0 {
		return core.Wrapf(core.ErrInvalidQuantity, "quantity %d", r.Quantity)
	}
	if r.Price < 0 {
		return core.Wrapf(core.ErrConfigInvalid, "negative order price %d", r.Price)
	}
	return nil
}

// FromIntent builds an order request from an engine order intent.
func FromIntent(intent core.OrderIntent, cycleID string) OrderRequest {
	return OrderRequest{
		StockCode: intent.StockCode,
		Market:    intent.Market,
		Side:      intent.Side,
		Quantity:  intent.Quantity,
		Price:     intent.Price,
		CycleID:   cycleID,
	}
}

// Order represents a placed order.
type Order struct {
	OrderID      string      `json:"order_id"`
	StockCode    string      `json:"stock_code"`
	Market       core.Market `json:"market"`
	Side         core.Side   `json:"side"`
	Quantity     int64       `json:"quantity"`
	Price        int64       `json:"price"`
	Status       OrderStatus `json:"status"`
	FilledQty    int64       `json:"filled_qty"`
	AvgFillPrice float64     `json:"avg_fill_price"`
	CreatedAt    time.Time   `json:"created_at"`
}

// IsFilled returns true if the order is completely filled.
func (o Order) IsFilled() bool {
	return o.Status == OrderStatusFilled
}

// Position represents a holding in a stock.
type Position struct {
	StockCode string  `json:"stock_code"`
	Quantity  int64   `json:"quantity"`
	AvgCost   float64 `json:"avg_cost"`
}

// Balance represents account cash information in KRW.
type Balance struct {
	Cash      int64     `json:"cash"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Broker is the engine's view of the external account/market collaborator.
type Broker interface {
	// Name returns the broker identifier (e.g. "paper").
	Name() string

	// GetQuote returns the current price for a stock code.
	GetQuote(ctx context.Context, stockCode string) (*core.Quote, error)

	// GetBalance returns the account cash balance.
	GetBalance(ctx context.Context) (*Balance, error)

	// GetPosition returns the held quantity and average cost for a stock
	// code. A zero-quantity position (not an error) is returned when the
	// stock is not held.
	GetPosition(ctx context.Context, stockCode string) (*Position, error)

	// PlaceOrder submits an order. Rejections are reported as errors
	// matching core.ErrOrderRejected.
	PlaceOrder(ctx context.Context, req OrderRequest) (*Order, error)
}
