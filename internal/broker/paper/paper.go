// Package paper implements an in-memory paper-trading broker so the engine
// can run full buy/sell cycles outside market hours and without brokerage
// connectivity.
package paper

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/kyuwon-dev/kisengine/internal/broker"
	"github.com/kyuwon-dev/kisengine/internal/config"
	"github.com/kyuwon-dev/kisengine/internal/core"
)

// Broker implements broker.Broker against a virtual account.
type Broker struct {
	mu        sync.Mutex
	cash      int64
	positions map[string]*broker.Position
	basePrice int64
	rng       *rand.Rand
	orderSeq  int
	now       func() time.Time
}

// New creates a paper broker seeded from the paper config section.
func New(cfg config.PaperConfig) *Broker {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	basePrice := cfg.BasePrice
	if basePrice <= 0 {
		basePrice = 75_000
	}

	b := &Broker{
		cash:      cfg.InitialCash,
		positions: make(map[string]*broker.Position),
		basePrice: basePrice,
		rng:       rand.New(rand.NewSource(seed)),
		now:       time.Now,
	}
	for _, p := range cfg.Positions {
		if p.StockCode == "" || p.Quantity <= 0 {
			continue
		}
		b.positions[p.StockCode] = &broker.Position{
			StockCode: p.StockCode,
			Quantity:  p.Quantity,
			AvgCost:   p.AvgBuyPrice,
		}
	}
	return b
}

// Name returns the broker identifier.
func (b *Broker) Name() string {
	return "paper"
}

// GetQuote synthesizes a quote. When the stock is held, the price drifts
// slightly above the average cost so profit-target logic is exercisable in
// simulation; otherwise it wanders around the configured base price.
func (b *Broker) GetQuote(ctx context.Context, stockCode string) (*core.Quote, error) {
	if stockCode == "" {
		return nil, core.Wrapf(core.ErrDataUnavailable, "empty stock code")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	return b.quoteLocked(stockCode), nil
}

func (b *Broker) quoteLocked(stockCode string) *core.Quote {
	base := float64(b.basePrice)
	if pos, ok := b.positions[stockCode]; ok && pos.AvgCost > 0 {
		base = pos.AvgCost * (1.005 + b.rng.Float64()*0.025)
	}
	// Small random tick around the base, floored at one tick.
	price := int64(base) + int64(b.rng.Intn(201)-100)*10
	if price < 10 {
		price = 10
	}
	return &core.Quote{StockCode: stockCode, Price: price, Time: b.now()}
}

// GetBalance returns the virtual cash balance.
func (b *Broker) GetBalance(ctx context.Context) (*broker.Balance, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return &broker.Balance{Cash: b.cash, UpdatedAt: b.now()}, nil
}

// GetPosition returns the held quantity and average cost; a zero position
// when the stock is not held.
func (b *Broker) GetPosition(ctx context.Context, stockCode string) (*broker.Position, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if pos, ok := b.positions[stockCode]; ok {
		p := *pos
		return &p, nil
	}
	return &broker.Position{StockCode: stockCode}, nil
}

// PlaceOrder fills the order immediately: at the limit price when one is
// given, at the synthesized current price for market orders. Buys recompute
// the weighted average cost; insufficient cash or overselling rejects.
func (b *Broker) PlaceOrder(ctx context.Context, req broker.OrderRequest) (*broker.Order, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	fillPrice := req.Price
	if fillPrice == 0 {
		fillPrice = b.quoteLocked(req.StockCode).Price
	}
	cost := fillPrice * req.Quantity

	switch req.Side {
	case core.SideBuy:
		if b.cash < cost {
			return nil, core.Wrapf(core.ErrInsufficientFunds,
				"need %d, have %d", cost, b.cash)
		}
		b.cash -= cost
		pos, ok := b.positions[req.StockCode]
		if !ok {
			pos = &broker.Position{StockCode: req.StockCode}
			b.positions[req.StockCode] = pos
		}
		newQty := pos.Quantity + req.Quantity
		pos.AvgCost = (pos.AvgCost*float64(pos.Quantity) + float64(cost)) / float64(newQty)
		pos.Quantity = newQty

	case core.SideSell:
		pos, ok := b.positions[req.StockCode]
		if !ok || pos.Quantity < req.Quantity {
			held := int64(0)
			if ok {
				held = pos.Quantity
			}
			return nil, core.Wrapf(core.ErrOrderRejected,
				"sell %d exceeds held %d for %s", req.Quantity, held, req.StockCode)
		}
		pos.Quantity -= req.Quantity
		b.cash += cost
		if pos.Quantity == 0 {
			delete(b.positions, req.StockCode)
		}

	default:
		return nil, core.Wrapf(core.ErrOrderRejected, "unknown side %q", req.Side)
	}

	b.orderSeq++
	return &broker.Order{
		OrderID:      fmt.Sprintf("paper-%d", b.orderSeq),
		StockCode:    req.StockCode,
		Market:       req.Market,
		Side:         req.Side,
		Quantity:     req.Quantity,
		Price:        req.Price,
		Status:       broker.OrderStatusFilled,
		FilledQty:    req.Quantity,
		AvgFillPrice: float64(fillPrice),
		CreatedAt:    b.now(),
	}, nil
}
