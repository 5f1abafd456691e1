// Package snapshot assembles the point-in-time market/account data one
// evaluation cycle consumes. All collaborator reads happen up front so rule
// evaluation within a cycle sees a single consistent view.
package snapshot

import (
	"context"
	"time"

	"github.com/kyuwon-dev/kisengine/internal/broker"
	"github.com/kyuwon-dev/kisengine/internal/core"
)

// Position is a held quantity with its externally supplied average cost.
type Position struct {
	Quantity int64
	AvgCost  float64
}

// Snapshot is the immutable per-cycle view of prices and account state.
// Absent entries mean the collaborator could not supply the data this cycle;
// consumers treat that as DATA_UNAVAILABLE and fail closed.
type Snapshot struct {
	Prices    map[string]int64
	Cash      int64
	CashKnown bool
	Positions map[string]Position
	Now       time.Time
}

// Price returns the current price for a stock code.
func (s *Snapshot) Price(stockCode string) (int64, error) {
	if p, ok := s.Prices[stockCode]; ok && p > 0 {
		return p, nil
	}
	return 0, core.Wrapf(core.ErrDataUnavailable, "no price for %s", stockCode)
}

// Position returns the held position for a stock code; a zero position when
// the stock is not held.
func (s *Snapshot) Position(stockCode string) Position {
	return s.Positions[stockCode]
}

// CashBalance returns the account cash balance.
func (s *Snapshot) CashBalance() (int64, error) {
	if !s.CashKnown {
		return 0, core.Wrapf(core.ErrDataUnavailable, "cash balance unavailable")
	}
	return s.Cash, nil
}

// Provider collects a snapshot for the given stock codes.
type Provider interface {
	Collect(ctx context.Context, stockCodes []string) (*Snapshot, error)
}

// BrokerProvider collects snapshots from a broker.
type BrokerProvider struct {
	broker broker.Broker
	now    func() time.Time
}

// NewBrokerProvider creates a provider backed by the given broker.
func NewBrokerProvider(b broker.Broker) *BrokerProvider {
	return &BrokerProvider{broker: b, now: time.Now}
}

// Collect gathers quotes, cash and positions for the requested codes.
// Individual failures leave gaps in the snapshot rather than failing the
// whole collection; the consumer decides per condition what a gap means.
func (p *BrokerProvider) Collect(ctx context.Context, stockCodes []string) (*Snapshot, error) {
	snap := &Snapshot{
		Prices:    make(map[string]int64, len(stockCodes)),
		Positions: make(map[string]Position, len(stockCodes)),
		Now:       p.now(),
	}

	for _, code := range stockCodes {
		if quote, err := p.broker.GetQuote(ctx, code); err == nil && quote.IsValid() {
			snap.Prices[code] = quote.Price
		}
		if pos, err := p.broker.GetPosition(ctx, code); err == nil && pos != nil {
			snap.Positions[code] = Position{Quantity: pos.Quantity, AvgCost: pos.AvgCost}
		}
	}

	if bal, err := p.broker.GetBalance(ctx); err == nil && bal != nil {
		snap.Cash = bal.Cash
		snap.CashKnown = true
	}

	return snap, nil
}
