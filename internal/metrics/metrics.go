package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds all Prometheus metrics.
type Registry struct {
	*prometheus.Registry

	cyclesTotal          prometheus.Counter
	cycleDuration        prometheus.Histogram
	ordersSubmitted      *prometheus.CounterVec
	orderFailures        *prometheus.CounterVec
	ruleMatches          *prometheus.CounterVec
	rulesSkipped         prometheus.Counter
	configReloadFailures prometheus.Counter
	forcedTradeState     prometheus.Gauge
}

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	// Register Go runtime metrics
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		cyclesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kisengine_cycles_total",
			Help: "Total number of evaluation cycles run",
		}),
		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "kisengine_cycle_duration_seconds",
			Help:    "Evaluation cycle duration in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		ordersSubmitted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kisengine_orders_submitted_total",
				Help: "Total number of order intents submitted",
			},
			[]string{"side", "origin"},
		),
		orderFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kisengine_order_failures_total",
				Help: "Total number of rejected or failed order submissions",
			},
			[]string{"origin"},
		),
		ruleMatches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kisengine_rule_matches_total",
				Help: "Total number of rule matches that executed a strategy",
			},
			[]string{"rule"},
		),
		rulesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kisengine_rules_skipped_total",
			Help: "Total number of rules skipped due to evaluation errors (fail-closed)",
		}),
		configReloadFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kisengine_config_reload_failures_total",
			Help: "Total number of configuration reloads that kept the previous config",
		}),
		forcedTradeState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "kisengine_forced_trade_state",
			Help: "Current forced-trade state (0=IDLE 1=EXECUTING_SIMPLE 2=AUTO_BUYING 3=AUTO_SELLING 4=COMPLETED)",
		}),
	}

	reg.MustRegister(
		r.cyclesTotal,
		r.cycleDuration,
		r.ordersSubmitted,
		r.orderFailures,
		r.ruleMatches,
		r.rulesSkipped,
		r.configReloadFailures,
		r.forcedTradeState,
	)

	return r
}

// CycleRun records one completed cycle and its duration in seconds.
func (r *Registry) CycleRun(seconds float64) {
	r.cyclesTotal.Inc()
	r.cycleDuration.Observe(seconds)
}

// OrderSubmitted records a submitted order intent.
func (r *Registry) OrderSubmitted(side, origin string) {
	r.ordersSubmitted.WithLabelValues(side, origin).Inc()
}

// OrderFailed records a rejected or failed submission.
func (r *Registry) OrderFailed(origin string) {
	r.orderFailures.WithLabelValues(origin).Inc()
}

// RuleMatched records a rule whose strategy executed.
func (r *Registry) RuleMatched(rule string) {
	r.ruleMatches.WithLabelValues(rule).Inc()
}

// RuleSkipped records a fail-closed rule skip.
func (r *Registry) RuleSkipped() {
	r.rulesSkipped.Inc()
}

// ConfigReloadFailed records a reload that fell back to the cached config.
func (r *Registry) ConfigReloadFailed() {
	r.configReloadFailures.Inc()
}

// ForcedTradeState records the machine's current state.
func (r *Registry) ForcedTradeState(state int) {
	r.forcedTradeState.Set(float64(state))
}
