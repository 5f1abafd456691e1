// Package mocks provides a scripted broker for tests.
package mocks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kyuwon-dev/kisengine/internal/broker"
	"github.com/kyuwon-dev/kisengine/internal/core"
)

// Broker is a scripted implementation of broker.Broker. Tests set quotes,
// cash and positions explicitly; placed orders are recorded and, unless
// ApplyFills is disabled, immediately reflected in the account book.
type Broker struct {
	mu        sync.Mutex
	quotes    map[string]int64
	cash      int64
	positions map[string]*broker.Position
	orders    []broker.OrderRequest
	orderSeq  int

	// ApplyFills controls whether fills mutate cash and positions.
	ApplyFills bool
	// FailNext, when set, rejects the next PlaceOrder call with this error.
	FailNext error
	// QuoteErr, when set, fails every GetQuote call.
	QuoteErr error
}

// New creates an empty scripted broker.
func New() *Broker {
	return &Broker{
		quotes:     make(map[string]int64),
		positions:  make(map[string]*broker.Position),
		ApplyFills: true,
	}
}

// Name returns the broker identifier.
func (m *Broker) Name() string { return "mock" }

// SetQuote scripts the current price for a stock code.
func (m *Broker) SetQuote(stockCode string, price int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quotes[stockCode] = price
}

// SetCash scripts the account cash balance.
func (m *Broker) SetCash(cash int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cash = cash
}

// SetPosition scripts a held position.
func (m *Broker) SetPosition(stockCode string, quantity int64, avgCost float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if quantity == 0 {
		delete(m.positions, stockCode)
		return
	}
	m.positions[stockCode] = &broker.Position{StockCode: stockCode, Quantity: quantity, AvgCost: avgCost}
}

// Orders returns a copy of every recorded order request, in placement order.
func (m *Broker) Orders() []broker.OrderRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]broker.OrderRequest, len(m.orders))
	copy(out, m.orders)
	return out
}

// GetQuote returns the scripted price.
func (m *Broker) GetQuote(ctx context.Context, stockCode string) (*core.Quote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.QuoteErr != nil {
		return nil, m.QuoteErr
	}
	price, ok := m.quotes[stockCode]
	if !ok {
		return nil, core.Wrapf(core.ErrDataUnavailable, "no quote for %s", stockCode)
	}
	return &core.Quote{StockCode: stockCode, Price: price, Time: time.Now()}, nil
}

// GetBalance returns the scripted cash balance.
func (m *Broker) GetBalance(ctx context.Context) (*broker.Balance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return &broker.Balance{Cash: m.cash, UpdatedAt: time.Now()}, nil
}

// GetPosition returns the scripted position, zero when absent.
func (m *Broker) GetPosition(ctx context.Context, stockCode string) (*broker.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if pos, ok := m.positions[stockCode]; ok {
		p := *pos
		return &p, nil
	}
	return &broker.Position{StockCode: stockCode}, nil
}

// PlaceOrder records the request and applies the fill unless scripted to
// fail or configured not to mutate the book.
func (m *Broker) PlaceOrder(ctx context.Context, req broker.OrderRequest) (*broker.Order, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailNext != nil {
		err := m.FailNext
		m.FailNext = nil
		return nil, err
	}

	m.orders = append(m.orders, req)

	fillPrice := req.Price
	if fillPrice == 0 {
		fillPrice = m.quotes[req.StockCode]
	}

	if m.ApplyFills {
		switch req.Side {
		case core.SideBuy:
			m.cash -= fillPrice * req.Quantity
			pos, ok := m.positions[req.StockCode]
			if !ok {
				pos = &broker.Position{StockCode: req.StockCode}
				m.positions[req.StockCode] = pos
			}
			newQty := pos.Quantity + req.Quantity
			pos.AvgCost = (pos.AvgCost*float64(pos.Quantity) + float64(fillPrice*req.Quantity)) / float64(newQty)
			pos.Quantity = newQty
		case core.SideSell:
			if pos, ok := m.positions[req.StockCode]; ok {
				pos.Quantity -= req.Quantity
				if pos.Quantity <= 0 {
					delete(m.positions, req.StockCode)
				}
			}
			m.cash += fillPrice * req.Quantity
		}
	}

	m.orderSeq++
	return &broker.Order{
		OrderID:      fmt.Sprintf("mock-%d", m.orderSeq),
		StockCode:    req.StockCode,
		Market:       req.Market,
		Side:         req.Side,
		Quantity:     req.Quantity,
		Price:        req.Price,
		Status:       broker.OrderStatusFilled,
		FilledQty:    req.Quantity,
		AvgFillPrice: float64(fillPrice),
		CreatedAt:    time.Now(),
	}, nil
}
