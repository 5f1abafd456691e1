// Package engine runs the evaluation loop: once per cycle it reloads the
// configuration, snapshots market and account state, drives the forced-trade
// machine if a command is present, and otherwise scans the rules in order
// until the first full match executes.
package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/kyuwon-dev/kisengine/internal/broker"
	"github.com/kyuwon-dev/kisengine/internal/condition"
	"github.com/kyuwon-dev/kisengine/internal/config"
	"github.com/kyuwon-dev/kisengine/internal/core"
	"github.com/kyuwon-dev/kisengine/internal/forced"
	"github.com/kyuwon-dev/kisengine/internal/journal"
	"github.com/kyuwon-dev/kisengine/internal/metrics"
	"github.com/kyuwon-dev/kisengine/internal/notifier"
	"github.com/kyuwon-dev/kisengine/internal/snapshot"
	"github.com/kyuwon-dev/kisengine/internal/strategy"
	"go.uber.org/zap"
)

// Deps wires the engine's collaborators. Broker, Store and Logger are
// required; the rest are optional.
type Deps struct {
	Store    *config.Store
	Broker   broker.Broker
	Provider snapshot.Provider
	Metrics  *metrics.Registry
	Journal  *journal.Journal
	Notifier *notifier.Webhook
	Logger   *zap.Logger
}

// Engine is the cycle controller.
type Engine struct {
	store    *config.Store
	broker   broker.Broker
	provider snapshot.Provider
	machine  *forced.Machine
	metrics  *metrics.Registry
	journal  *journal.Journal
	notifier *notifier.Webhook
	log      *zap.Logger
	now      func() time.Time
}

// New creates an engine from its dependencies.
func New(d Deps) *Engine {
	log := d.Logger
	if log == nil {
		log = zap.NewNop()
	}
	provider := d.Provider
	if provider == nil {
		provider = snapshot.NewBrokerProvider(d.Broker)
	}
	m := d.Metrics
	if m == nil {
		m = metrics.NewRegistry()
	}
	return &Engine{
		store:    d.Store,
		broker:   d.Broker,
		provider: provider,
		machine:  forced.NewMachine(d.Broker, log),
		metrics:  m,
		journal:  d.Journal,
		notifier: d.Notifier,
		log:      log,
		now:      time.Now,
	}
}

// Run executes cycles until the context is canceled. The sleep between
// cycles follows loop_interval_seconds from the configuration current at the
// end of each cycle, so interval edits take effect on the next boundary.
func (e *Engine) Run(ctx context.Context) error {
	e.log.Info("engine started", zap.String("broker", e.broker.Name()))
	for {
		e.Tick(ctx)

		interval := time.Duration(e.store.Current().LoopIntervalSeconds) * time.Second
		select {
		case <-ctx.Done():
			e.log.Info("engine stopped")
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}

// Tick runs exactly one evaluation cycle.
func (e *Engine) Tick(ctx context.Context) {
	started := e.now()
	cycleID := uuid.NewString()
	log := e.log.With(zap.String("cycle_id", cycleID))

	cfg, err := e.store.Reload()
	if err != nil {
		log.Error("config reload failed, using previous config", zap.Error(err))
		e.metrics.ConfigReloadFailed()
	}

	snap, err := e.provider.Collect(ctx, cfg.StockCodes())
	if err != nil {
		// Collection gaps are tolerated; a hard provider failure skips the cycle.
		log.Error("snapshot collection failed, skipping cycle", zap.Error(err))
		e.finishCycle(started)
		return
	}

	// An in-flight or newly enabled forced command preempts rule evaluation
	// for the whole cycle.
	if e.machine.Active() || (cfg.ForcedTrade != nil && cfg.ForcedTrade.Enabled) {
		e.driveForced(ctx, cycleID, log, cfg, snap)
		e.finishCycle(started)
		return
	}

	e.scanRules(ctx, cycleID, log, cfg, snap)
	e.finishCycle(started)
}

func (e *Engine) finishCycle(started time.Time) {
	e.metrics.ForcedTradeState(int(e.machine.State()))
	e.metrics.CycleRun(e.now().Sub(started).Seconds())
}

func (e *Engine) driveForced(ctx context.Context, cycleID string, log *zap.Logger, cfg *config.Config, snap *snapshot.Snapshot) {
	res, err := e.machine.Drive(ctx, cycleID, cfg.ForcedTrade, snap)

	for _, intent := range res.Submitted {
		e.metrics.OrderSubmitted(string(intent.Side), intent.Origin)
		e.record(ctx, journal.Entry{
			CycleID: cycleID,
			Kind:    journal.KindForced,
			State:   e.machine.State().String(),
			Intent:  intentCopy(intent),
		})
		e.notifier.NotifyOrder(ctx, cycleID, intent)
	}

	if err != nil {
		log.Error("forced trade cycle failed", zap.Error(err))
		e.metrics.OrderFailed("forced")
		e.record(ctx, journal.Entry{
			CycleID: cycleID,
			Kind:    journal.KindForced,
			State:   e.machine.State().String(),
			Error:   err.Error(),
		})
		return
	}

	if res.Done {
		if err := e.store.DisableForcedTrade(); err != nil {
			// The command already completed; failing to clear the flag would
			// re-run it next cycle, so this is the loudest non-fatal error
			// the engine has.
			log.Error("clearing forced_trade.enabled failed", zap.Error(err))
		} else {
			log.Info("forced trade command completed and cleared")
		}
	}
}

// scanRules evaluates the rules in declared order. The first rule whose
// conditions all hold executes its strategy and ends the scan; condition
// errors fail closed and move the scan to the next rule.
func (e *Engine) scanRules(ctx context.Context, cycleID string, log *zap.Logger, cfg *config.Config, snap *snapshot.Snapshot) {
	for _, rule := range cfg.Rules {
		matched, skipErr := e.ruleMatches(rule, snap)
		if skipErr != nil {
			log.Warn("rule skipped, condition evaluation failed",
				zap.String("rule", rule.RuleName), zap.Error(skipErr))
			e.metrics.RuleSkipped()
			e.record(ctx, journal.Entry{
				CycleID: cycleID,
				Kind:    journal.KindSkip,
				Rule:    rule.RuleName,
				Error:   skipErr.Error(),
			})
			continue
		}
		if !matched {
			continue
		}

		e.metrics.RuleMatched(rule.RuleName)
		e.executeRule(ctx, cycleID, log, rule, snap)
		return
	}

	e.record(ctx, journal.Entry{CycleID: cycleID, Kind: journal.KindNoop})
}

// ruleMatches reports whether every condition of the rule holds. An
// evaluation error is returned separately so the caller can distinguish
// "skipped" from "did not match".
func (e *Engine) ruleMatches(rule config.Rule, snap *snapshot.Snapshot) (bool, error) {
	for _, cond := range rule.Conditions {
		ok, err := condition.Evaluate(cond.Name, cond.Params, snap)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// executeRule runs the matched rule's strategy and submits its order intent.
// The rule consumes the cycle even when the strategy errors or no-ops.
func (e *Engine) executeRule(ctx context.Context, cycleID string, log *zap.Logger, rule config.Rule, snap *snapshot.Snapshot) {
	intent, err := strategy.Execute(rule.Strategy.Name, rule.Strategy.Params, snap)
	if err != nil {
		log.Warn("strategy execution failed",
			zap.String("rule", rule.RuleName),
			zap.String("strategy", rule.Strategy.Name),
			zap.Error(err))
		e.record(ctx, journal.Entry{
			CycleID: cycleID,
			Kind:    journal.KindRule,
			Rule:    rule.RuleName,
			Error:   err.Error(),
		})
		return
	}
	if intent == nil {
		log.Info("rule matched, strategy produced no order",
			zap.String("rule", rule.RuleName))
		e.record(ctx, journal.Entry{CycleID: cycleID, Kind: journal.KindNoop, Rule: rule.RuleName})
		return
	}

	if _, err := e.broker.PlaceOrder(ctx, broker.FromIntent(*intent, cycleID)); err != nil {
		log.Error("rule order rejected",
			zap.String("rule", rule.RuleName),
			zap.String("stock_code", intent.StockCode),
			zap.Error(err))
		e.metrics.OrderFailed(intent.Origin)
		e.record(ctx, journal.Entry{
			CycleID: cycleID,
			Kind:    journal.KindRule,
			Rule:    rule.RuleName,
			Intent:  intentCopy(*intent),
			Error:   core.WrapError(core.ErrOrderRejected, err).Error(),
		})
		return
	}

	log.Info("rule order submitted",
		zap.String("rule", rule.RuleName),
		zap.String("stock_code", intent.StockCode),
		zap.String("side", string(intent.Side)),
		zap.Int64("quantity", intent.Quantity))
	e.metrics.OrderSubmitted(string(intent.Side), intent.Origin)
	e.record(ctx, journal.Entry{
		CycleID: cycleID,
		Kind:    journal.KindRule,
		Rule:    rule.RuleName,
		Intent:  intentCopy(*intent),
	})
	e.notifier.NotifyOrder(ctx, cycleID, *intent)
}

// Machine exposes the forced-trade machine, for tests and status reporting.
func (e *Engine) Machine() *forced.Machine {
	return e.machine
}

func (e *Engine) record(ctx context.Context, entry journal.Entry) {
	if e.journal == nil {
		return
	}
	e.journal.Record(ctx, entry)
}

func intentCopy(intent core.OrderIntent) *core.OrderIntent {
	return &intent
}
