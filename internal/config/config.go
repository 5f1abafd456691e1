// Package config loads and validates the engine configuration.
//
// The top-level keys trading_mode, loop_interval_seconds, forced_trade and
// rules — and the enumerated values inside them — are an external contract
// shared with the configuration-editing tools; their names must not change.
package config

import (
	"fmt"
	"strings"

	"github.com/kyuwon-dev/kisengine/internal/core"
	"github.com/spf13/viper"
)

// Trading modes.
const (
	ModePaper = "paper"
	ModeReal  = "real"
)

type Config struct {
	TradingMode         string       `mapstructure:"trading_mode" json:"trading_mode"`
	LoopIntervalSeconds int          `mapstructure:"loop_interval_seconds" json:"loop_interval_seconds"`
	ForcedTrade         *ForcedTrade `mapstructure:"forced_trade" json:"forced_trade,omitempty"`
	Rules               []Rule       `mapstructure:"rules" json:"rules"`

	// Operational sections, not part of the editing-tool contract.
	Paper   PaperConfig   `mapstructure:"paper" json:"paper,omitempty"`
	Metrics MetricsConfig `mapstructure:"metrics" json:"metrics,omitempty"`
	Journal JournalConfig `mapstructure:"journal" json:"journal,omitempty"`
	Notify  NotifyConfig  `mapstructure:"notify" json:"notify,omitempty"`
}

// ForcedTrade is the single-slot operator override command. The engine
// writes back exactly one field: Enabled, cleared when the command completes.
type ForcedTrade struct {
	Enabled                 bool           `mapstructure:"enabled" json:"enabled"`
	TradeType               core.TradeType `mapstructure:"trade_type" json:"trade_type"`
	StockCode               string         `mapstructure:"stock_code" json:"stock_code"`
	Quantity                int64          `mapstructure:"quantity" json:"quantity"`
	Amount                  int64          `mapstructure:"amount" json:"amount"`
	Price                   int64          `mapstructure:"price" json:"price"`
	Market                  core.Market    `mapstructure:"market" json:"market"`
	DivisionCount           int            `mapstructure:"division_count" json:"division_count"`
	SellProfitTargetPercent float64        `mapstructure:"sell_profit_target_percent" json:"sell_profit_target_percent"`
	// FillWaitCycles bounds how many cycles the AUTO buy phase waits for
	// fills to be reflected in the account before moving on. 0 means default.
	FillWaitCycles int `mapstructure:"fill_wait_cycles" json:"fill_wait_cycles,omitempty"`
}

// Rule pairs an ordered condition list (logical AND) with exactly one
// strategy. Rules are evaluated in declared order; the first full match wins.
type Rule struct {
	RuleName   string      `mapstructure:"rule_name" json:"rule_name"`
	Conditions []Condition `mapstructure:"conditions" json:"conditions"`
	Strategy   Strategy    `mapstructure:"strategy" json:"strategy"`
}

// Condition references an enumerated condition by name with its parameters.
type Condition struct {
	Name   string         `mapstructure:"name" json:"name"`
	Params map[string]any `mapstructure:"params" json:"params,omitempty"`
}

// Strategy references an enumerated strategy by name with its parameters.
type Strategy struct {
	Name   string         `mapstructure:"name" json:"name"`
	Params map[string]any `mapstructure:"params" json:"params,omitempty"`
}

// PaperConfig seeds the paper-trading broker.
type PaperConfig struct {
	InitialCash int64           `mapstructure:"initial_cash" json:"initial_cash,omitempty"`
	BasePrice   int64           `mapstructure:"base_price" json:"base_price,omitempty"`
	Seed        int64           `mapstructure:"seed" json:"seed,omitempty"`
	Positions   []PaperPosition `mapstructure:"positions" json:"positions,omitempty"`
}

// PaperPosition is a pre-seeded holding in the paper account.
type PaperPosition struct {
	StockCode   string  `mapstructure:"stock_code" json:"stock_code"`
	Quantity    int64   `mapstructure:"quantity" json:"quantity"`
	AvgBuyPrice float64 `mapstructure:"avg_buy_price" json:"avg_buy_price"`
}

// MetricsConfig holds metrics exposure settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" json:"enabled,omitempty"`
	Listen  string `mapstructure:"listen" json:"listen,omitempty"`
	Path    string `mapstructure:"path" json:"path,omitempty"`
}

// JournalConfig holds decision-journal settings.
type JournalConfig struct {
	Enabled bool          `mapstructure:"enabled" json:"enabled,omitempty"`
	Dir     string        `mapstructure:"dir" json:"dir,omitempty"`
	Archive ArchiveConfig `mapstructure:"archive" json:"archive,omitempty"`
}

// ArchiveConfig selects the cold-storage backend for rotated journal files.
type ArchiveConfig struct {
	Type string   `mapstructure:"type" json:"type,omitempty"` // "localfs" or "s3"
	Path string   `mapstructure:"path" json:"path,omitempty"` // For localfs
	S3   S3Config `mapstructure:"s3" json:"s3,omitempty"`     // For S3
}

// S3Config holds S3 connection settings.
type S3Config struct {
	Bucket    string `mapstructure:"bucket" json:"bucket,omitempty"`
	Endpoint  string `mapstructure:"endpoint" json:"endpoint,omitempty"`
	Region    string `mapstructure:"region" json:"region,omitempty"`
	AccessKey string `mapstructure:"access_key" json:"access_key,omitempty"`
	SecretKey string `mapstructure:"secret_key" json:"secret_key,omitempty"`
	Prefix    string `mapstructure:"prefix" json:"prefix,omitempty"`
}

// NotifyConfig holds outbound notification settings.
type NotifyConfig struct {
	Webhook WebhookConfig `mapstructure:"webhook" json:"webhook,omitempty"`
}

// WebhookConfig configures the order webhook notifier.
type WebhookConfig struct {
	URL     string            `mapstructure:"url" json:"url,omitempty"`
	Headers map[string]string `mapstructure:"headers" json:"headers,omitempty"`
}

// Load reads configuration from a JSON file.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")

	// Support environment variable overrides
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("reading config: %w", err))
	}

	cfg := Defaults()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unmarshaling config: %w", err))
	}

	cfg.normalize()
	return cfg, nil
}

// Defaults returns a config with sensible defaults.
func Defaults() *Config {
	return &Config{
		TradingMode:         ModePaper,
		LoopIntervalSeconds: 60,
		Paper: PaperConfig{
			InitialCash: 10_000_000,
			BasePrice:   75_000,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Listen:  ":9108",
			Path:    "/metrics",
		},
		Journal: JournalConfig{
			Enabled: false,
			Dir:     "journal",
			Archive: ArchiveConfig{Type: "localfs", Path: "journal/archive"},
		},
	}
}

// normalize fills derivable zero values so downstream code can rely on them.
func (c *Config) normalize() {
	if ft := c.ForcedTrade; ft != nil {
		if ft.DivisionCount < 1 {
			ft.DivisionCount = 1
		}
		if ft.Market == "" {
			ft.Market = core.MarketKRX
		}
	}
}

// Validate checks the configuration for fatal errors. Per-rule problems are
// deliberately not fatal: a malformed rule is skipped at evaluation time.
func (c *Config) Validate() error {
	switch c.TradingMode {
	case ModePaper, ModeReal:
	default:
		return core.Wrapf(core.ErrConfigInvalid,
			"trading_mode must be %q or %q, got %q", ModePaper, ModeReal, c.TradingMode)
	}

	if c.LoopIntervalSeconds < 1 {
		return core.Wrapf(core.ErrConfigInvalid,
			"loop_interval_seconds must be positive, got %d", c.LoopIntervalSeconds)
	}

	if ft := c.ForcedTrade; ft != nil && ft.Enabled {
		if !ft.TradeType.IsValid() {
			return core.Wrapf(core.ErrConfigInvalid,
				"forced_trade.trade_type must be BUY, SELL or AUTO, got %q", ft.TradeType)
		}
		if ft.StockCode == "" {
			return core.Wrapf(core.ErrConfigMissing, "forced_trade.stock_code is required")
		}
		if !ft.Market.IsValid() {
			return core.Wrapf(core.ErrConfigInvalid,
				"forced_trade.market must be KRX or NXT, got %q", ft.Market)
		}
		if ft.Price < 0 {
			return core.Wrapf(core.ErrConfigInvalid,
				"forced_trade.price cannot be negative, got %d", ft.Price)
		}
	}

	if c.Journal.Enabled {
		switch c.Journal.Archive.Type {
		case "", "localfs", "s3":
		default:
			return core.Wrapf(core.ErrConfigInvalid,
				"journal.archive.type must be localfs or s3, got %q", c.Journal.Archive.Type)
		}
	}

	return nil
}

// StockCodes returns every stock code referenced by the rules and the forced
// command, deduplicated. The snapshot provider quotes exactly this set.
func (c *Config) StockCodes() []string {
	seen := make(map[string]struct{})
	var codes []string
	add := func(code string) {
		if code == "" {
			return
		}
		if _, ok := seen[code]; ok {
			return
		}
		seen[code] = struct{}{}
		codes = append(codes, code)
	}

	if c.ForcedTrade != nil {
		add(c.ForcedTrade.StockCode)
	}
	for _, rule := range c.Rules {
		for _, cond := range rule.Conditions {
			if v, ok := cond.Params["stock_code"].(string); ok {
				add(v)
			}
		}
		if v, ok := rule.Strategy.Params["stock_code"].(string); ok {
			add(v)
		}
	}
	return codes
}
