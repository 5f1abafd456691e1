// Package forced implements the forced-trade state machine: the single-slot
// operator override that preempts rule evaluation.
//
// The machine owns the command's lifecycle as an explicit state enum. The
// caller drives it once per cycle; when a command completes the caller is
// told to clear the command's enabled flag in the configuration.
package forced

import (
	"context"

	"github.com/kyuwon-dev/kisengine/internal/broker"
	"github.com/kyuwon-dev/kisengine/internal/config"
	"github.com/kyuwon-dev/kisengine/internal/core"
	"github.com/kyuwon-dev/kisengine/internal/snapshot"
	"go.uber.org/zap"
)

// State enumerates the machine's phases.
type State int

const (
	StateIdle State = iota
	StateExecutingSimple
	StateAutoBuying
	StateAutoSelling
	StateCompleted
)

var stateNames = map[State]string{
	StateIdle:            "IDLE",
	StateExecutingSimple: "EXECUTING_SIMPLE",
	StateAutoBuying:      "AUTO_BUYING",
	StateAutoSelling:     "AUTO_SELLING",
	StateCompleted:       "COMPLETED",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return "UNKNOWN"
}

// Origin tags attached to order intents produced by the machine.
const (
	originSimpleBuy  = "forced_buy"
	originSimpleSell = "forced_sell"
	originAutoBuy    = "forced_auto_buy"
	originAutoSell   = "forced_auto_sell"
)

// defaultFillWaitCycles bounds how long the AUTO buy phase waits for issued
// sub-orders to show up in the account before moving to the sell phase.
const defaultFillWaitCycles = 5

// Result reports what one drive of the machine did.
type Result struct {
	// Submitted lists the order intents issued this cycle, in order.
	Submitted []core.OrderIntent
	// Done is true when the command completed this cycle; the caller must
	// clear forced_trade.enabled.
	Done bool
}

// progress is the per-command transient state (AutoTradeProgress).
type progress struct {
	cmd        config.ForcedTrade
	subOrders  []int64 // remaining sub-order quantities
	targetQty  int64   // AUTO: total quantity the buy phase aims for
	boughtQty  int64   // AUTO: quantity bought by this command
	waitCycles int     // AUTO: cycles spent waiting for fill confirmation
	fillWait   int
}

// Machine is the forced-trade state machine. It is driven only by the cycle
// controller, one call per cycle, so it needs no internal locking.
type Machine struct {
	broker broker.Broker
	log    *zap.Logger
	state  State
	prog   *progress
}

// NewMachine creates an idle machine submitting through the given broker.
func NewMachine(b broker.Broker, log *zap.Logger) *Machine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Machine{broker: b, log: log, state: StateIdle}
}

// State returns the current state.
func (m *Machine) State() State {
	return m.state
}

// Active reports whether a command is in flight.
func (m *Machine) Active() bool {
	return m.state != StateIdle
}

// Drive advances the machine by one cycle. cmd is the forced_trade section
// from the current configuration; snap is this cycle's snapshot. Errors are
// recoverable: the machine holds its state and the caller logs and retries
// next cycle.
func (m *Machine) Drive(ctx context.Context, cycleID string, cmd *config.ForcedTrade, snap *snapshot.Snapshot) (Result, error) {
	log := m.log.With(zap.String("cycle_id", cycleID), zap.Stringer("state", m.state))

	// A withdrawn command is honored only at the cycle boundary, which is
	// where Drive runs: in-flight sub-order sequences are never interrupted
	// mid-submission.
	if m.Active() && (cmd == nil || !cmd.Enabled) {
		log.Warn("forced trade command withdrawn, abandoning in-flight command")
		m.reset()
		return Result{}, nil
	}

	switch m.state {
	case StateIdle:
		if cmd == nil || !cmd.Enabled {
			return Result{}, nil
		}
		return m.activate(ctx, cycleID, log, *cmd, snap)
	case StateExecutingSimple:
		return m.driveSimple(ctx, cycleID, log)
	case StateAutoBuying:
		return m.driveAutoBuying(ctx, cycleID, log, snap)
	case StateAutoSelling:
		return m.driveAutoSelling(ctx, cycleID, log, snap)
	default:
		m.reset()
		return Result{}, nil
	}
}

// activate validates the command and enters the first working state.
// Validation failures leave the machine IDLE and the command unconsumed so
// the operator can correct it.
func (m *Machine) activate(ctx context.Context, cycleID string, log *zap.Logger, cmd config.ForcedTrade, snap *snapshot.Snapshot) (Result, error) {
	if !cmd.TradeType.IsValid() {
		return Result{}, core.Wrapf(core.ErrConfigInvalid, "forced trade: unknown trade_type %q", cmd.TradeType)
	}
	if (cmd.Quantity > 0) == (cmd.Amount > 0) {
		return Result{}, core.Wrapf(core.ErrConfigInvalid,
			"forced trade: exactly one of quantity or amount must be set (quantity=%d, amount=%d)",
			cmd.Quantity, cmd.Amount)
	}

	targetQty := cmd.Quantity
	if cmd.Amount > 0 {
		price, err := snap.Price(cmd.StockCode)
		if err != nil {
			return Result{}, err
		}
		targetQty = cmd.Amount / price
		if targetQty < 1 {
			if cmd.TradeType == core.TradeSell {
				return Result{}, core.Wrapf(core.ErrInvalidQuantity,
					"forced trade: amount %d sells no shares of %s at price %d", cmd.Amount, cmd.StockCode, price)
			}
			return Result{}, core.Wrapf(core.ErrInsufficientFunds,
				"forced trade: amount %d buys no shares of %s", cmd.Amount, cmd.StockCode)
		}
	}

	fillWait := cmd.FillWaitCycles
	if fillWait <= 0 {
		fillWait = defaultFillWaitCycles
	}

	switch cmd.TradeType {
	case core.TradeBuy, core.TradeSell:
		qty := targetQty
		if cmd.TradeType == core.TradeSell {
			held := snap.Position(cmd.StockCode).Quantity
			if held <= 0 {
				log.Warn("forced sell with nothing held, completing as no-op",
					zap.String("stock_code", cmd.StockCode))
				m.state = StateCompleted
				m.reset()
				return Result{Done: true}, nil
			}
			if qty > held {
				log.Warn("forced sell quantity capped at held quantity",
					zap.Int64("requested", qty), zap.Int64("held", held))
				qty = held
			}
		}
		m.prog = &progress{cmd: cmd, subOrders: splitQuantity(qty, cmd.DivisionCount), fillWait: fillWait}
		m.state = StateExecutingSimple
		log.Info("forced trade activated",
			zap.String("trade_type", string(cmd.TradeType)),
			zap.Int64("quantity", qty),
			zap.Int("divisions", len(m.prog.subOrders)))
		return m.driveSimple(ctx, cycleID, log)

	case core.TradeAuto:
		held := snap.Position(cmd.StockCode).Quantity
		remaining := targetQty - held
		if remaining < 0 {
			remaining = 0
		}
		m.prog = &progress{cmd: cmd, targetQty: targetQty, fillWait: fillWait}
		if remaining == 0 {
			log.Info("auto trade: target already held, entering sell phase",
				zap.Int64("target", targetQty), zap.Int64("held", held))
			m.state = StateAutoSelling
			return Result{}, nil
		}
		m.prog.subOrders = splitQuantity(remaining, cmd.DivisionCount)
		m.state = StateAutoBuying
		log.Info("auto trade activated",
			zap.Int64("target", targetQty),
			zap.Int64("held", held),
			zap.Int64("remaining", remaining),
			zap.Int("divisions", len(m.prog.subOrders)))
		return m.driveAutoBuying(ctx, cycleID, log, snap)
	}

	return Result{}, core.Wrapf(core.ErrConfigInvalid, "forced trade: unhandled trade_type %q", cmd.TradeType)
}

// driveSimple submits the remaining sub-orders of a BUY/SELL command
// sequentially. A rejection stops the sequence without advancing; the
// remaining sub-orders are retried on later cycles.
func (m *Machine) driveSimple(ctx context.Context, cycleID string, log *zap.Logger) (Result, error) {
	cmd := m.prog.cmd
	side := core.SideBuy
	origin := originSimpleBuy
	if cmd.TradeType == core.TradeSell {
		side = core.SideSell
		origin = originSimpleSell
	}

	var res Result
	for len(m.prog.subOrders) > 0 {
		qty := m.prog.subOrders[0]
		intent := core.OrderIntent{
			StockCode: cmd.StockCode,
			Side:      side,
			Quantity:  qty,
			Price:     cmd.Price,
			Market:    cmd.Market,
			Origin:    origin,
		}
		if _, err := m.broker.PlaceOrder(ctx, broker.FromIntent(intent, cycleID)); err != nil {
			log.Error("forced trade sub-order rejected, holding remaining sub-orders",
				zap.Int64("quantity", qty), zap.Error(err))
			return res, core.WrapError(core.ErrOrderRejected, err)
		}
		m.prog.subOrders = m.prog.subOrders[1:]
		res.Submitted = append(res.Submitted, intent)
		log.Info("forced trade sub-order submitted",
			zap.Int64("quantity", qty),
			zap.Int("remaining_divisions", len(m.prog.subOrders)))
	}

	m.state = StateCompleted
	m.reset()
	res.Done = true
	return res, nil
}

// driveAutoBuying issues one buy sub-order per cycle; once all are issued it
// polls the held quantity until the target is reached or the wait bound
// expires, then enters the sell phase. Buy orders are never resubmitted
// while waiting for fills.
func (m *Machine) driveAutoBuying(ctx context.Context, cycleID string, log *zap.Logger, snap *snapshot.Snapshot) (Result, error) {
	cmd := m.prog.cmd

	if len(m.prog.subOrders) > 0 {
		qty := m.prog.subOrders[0]
		intent := core.OrderIntent{
			StockCode: cmd.StockCode,
			Side:      core.SideBuy,
			Quantity:  qty,
			Price:     cmd.Price,
			Market:    cmd.Market,
			Origin:    originAutoBuy,
		}
		if _, err := m.broker.PlaceOrder(ctx, broker.FromIntent(intent, cycleID)); err != nil {
			log.Error("auto buy sub-order rejected, retrying next cycle",
				zap.Int64("quantity", qty), zap.Error(err))
			return Result{}, core.WrapError(core.ErrOrderRejected, err)
		}
		m.prog.subOrders = m.prog.subOrders[1:]
		m.prog.boughtQty += qty
		log.Info("auto buy sub-order submitted",
			zap.Int64("quantity", qty),
			zap.Int("remaining_divisions", len(m.prog.subOrders)))
		return Result{Submitted: []core.OrderIntent{intent}}, nil
	}

	// All sub-orders issued: confirm fills by polling the held quantity.
	held := snap.Position(cmd.StockCode).Quantity
	if held >= m.prog.targetQty {
		log.Info("auto buy phase complete, entering sell phase",
			zap.Int64("held", held), zap.Int64("target", m.prog.targetQty))
		m.state = StateAutoSelling
		return Result{}, nil
	}

	m.prog.waitCycles++
	if m.prog.waitCycles >= m.prog.fillWait {
		log.Warn("auto buy fills not fully confirmed within wait bound, entering sell phase with held quantity",
			zap.Int64("held", held),
			zap.Int64("target", m.prog.targetQty),
			zap.Int("waited_cycles", m.prog.waitCycles))
		m.state = StateAutoSelling
		return Result{}, nil
	}

	log.Debug("auto buy awaiting fill confirmation",
		zap.Int64("held", held),
		zap.Int64("target", m.prog.targetQty),
		zap.Int("waited_cycles", m.prog.waitCycles))
	return Result{}, nil
}

// driveAutoSelling re-checks the profit target each cycle and, once reached,
// submits a single market sell-all for the full held quantity. The sell leg
// ignores division_count by design.
func (m *Machine) driveAutoSelling(ctx context.Context, cycleID string, log *zap.Logger, snap *snapshot.Snapshot) (Result, error) {
	cmd := m.prog.cmd

	pos := snap.Position(cmd.StockCode)
	if pos.Quantity <= 0 {
		log.Warn("auto sell phase with nothing held, completing command",
			zap.String("stock_code", cmd.StockCode))
		m.state = StateCompleted
		m.reset()
		return Result{Done: true}, nil
	}

	price, err := snap.Price(cmd.StockCode)
	if err != nil {
		return Result{}, err
	}
	if pos.AvgCost <= 0 {
		log.Warn("auto sell phase: average cost unknown, holding",
			zap.String("stock_code", cmd.StockCode))
		return Result{}, nil
	}

	profit := core.ProfitPercent(price, pos.AvgCost)
	if profit < cmd.SellProfitTargetPercent {
		log.Debug("auto sell target not reached",
			zap.Float64("profit_percent", profit),
			zap.Float64("target_percent", cmd.SellProfitTargetPercent))
		return Result{}, nil
	}

	intent := core.OrderIntent{
		StockCode: cmd.StockCode,
		Side:      core.SideSell,
		Quantity:  pos.Quantity,
		Price:     0, // sell leg is always a market order
		Market:    cmd.Market,
		Origin:    originAutoSell,
	}
	if _, err := m.broker.PlaceOrder(ctx, broker.FromIntent(intent, cycleID)); err != nil {
		log.Error("auto sell order rejected, retrying next cycle", zap.Error(err))
		return Result{}, core.WrapError(core.ErrOrderRejected, err)
	}

	log.Info("auto sell submitted, command complete",
		zap.Int64("quantity", pos.Quantity),
		zap.Float64("profit_percent", profit))
	m.state = StateCompleted
	m.reset()
	return Result{Submitted: []core.OrderIntent{intent}, Done: true}, nil
}

// reset collapses COMPLETED (or an abandoned command) back to IDLE.
func (m *Machine) reset() {
	m.state = StateIdle
	m.prog = nil
}

// splitQuantity divides total into up to n near-equal parts, remainder in
// the final part. Zero-quantity parts are dropped.
func splitQuantity(total int64, n int) []int64 {
	if total <= 0 {
		return nil
	}
	if n < 1 {
		n = 1
	}
	base := total / int64(n)
	rem := total - base*int64(n)

	parts := make([]int64, 0, n)
	for i := 0; i < n; i++ {
		q := base
		if i == n-1 {
			q += rem
		}
		if q > 0 {
			parts = append(parts, q)
		}
	}
	return parts
}
