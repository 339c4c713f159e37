// Package config provides configuration management for the signal scanner.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"

	"github.com/eddiefleurent/strangle-signals/internal/strategy"
)

const (
	// defaultPollInterval is used when data.poll_interval is unset
	defaultPollInterval = 5 * time.Minute
	// defaultLogLevel is used when environment.log_level is unset
	defaultLogLevel = "info"
)

// Config represents the complete application configuration.
type Config struct {
	Environment EnvironmentConfig `yaml:"environment"`
	Data        DataConfig        `yaml:"data"`
	Strategy    StrategyConfig    `yaml:"strategy"`
	Report      ReportConfig      `yaml:"report"`
	Dashboard   DashboardConfig   `yaml:"dashboard"`
}

// EnvironmentConfig defines the environment settings.
type EnvironmentConfig struct {
	Mode     string `yaml:"mode"`      // backtest | live
	LogLevel string `yaml:"log_level"` // debug | info | warn | error
}

// DataConfig defines where chain snapshots come from and where signals go.
type DataConfig struct {
	Provider     string `yaml:"provider"` // tradier | synthetic
	APIKey       string `yaml:"api_key"`
	Sandbox      bool   `yaml:"sandbox"`
	CSVDir       string `yaml:"csv_dir"`
	PollInterval string `yaml:"poll_interval"`
	WindowDays   int    `yaml:"window_days"`
	StoragePath  string `yaml:"storage_path"`
}

// StrategyConfig defines the strangle selection parameters. Optional
// knobs are pointers so an absent key stays distinguishable from a
// zero value.
type StrategyConfig struct {
	Underlying      string `yaml:"underlying"`
	BuyOrSell       string `yaml:"buy_or_sell"`
	OrderQuantity   int    `yaml:"order_quantity"`
	DaysBeforeClose int    `yaml:"days_before_close"`
	ExpirationCycle string `yaml:"expiration_cycle"` // "" | monthly
	StartTime       string `yaml:"start_time"`       // RFC 3339, optional

	OptimalCallDelta float64 `yaml:"optimal_call_delta"`
	MaxCallDelta     float64 `yaml:"max_call_delta"`
	OptimalPutDelta  float64 `yaml:"optimal_put_delta"`
	MaxPutDelta      float64 `yaml:"max_put_delta"`

	MinimumDTE      *int     `yaml:"minimum_dte"`
	OptimalDTE      *int     `yaml:"optimal_dte"`
	MaxBidAsk       *float64 `yaml:"max_bid_ask"`
	ProfitTargetPct *float64 `yaml:"profit_target_pct"`
	MinCredit       *float64 `yaml:"min_credit"`

	// Reserved knobs pass through to the strategy constructor, which
	// rejects any that are set. Accepting the keys here keeps shared
	// config files portable instead of failing the YAML decode.
	ROC                  *float64 `yaml:"roc"`
	MinDaysToEarnings    *int     `yaml:"min_days_to_earnings"`
	MinDaysSinceEarnings *int     `yaml:"min_days_since_earnings"`
	AvoidAssignment      *bool    `yaml:"avoid_assignment"`
	MinIVR               *float64 `yaml:"min_ivr"`
	MaxBuyingPower       *float64 `yaml:"max_buying_power"`
}

// ReportConfig defines backtest report settings.
type ReportConfig struct {
	Workers int `yaml:"workers"`
}

// DashboardConfig defines the status API settings.
type DashboardConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Listen    string `yaml:"listen"`     // host:port
	AuthToken string `yaml:"auth_token"` // empty disables auth
}

// Load reads and parses the configuration file from the specified path.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config.yaml"
	}

	data, err := os.ReadFile(configPath) // #nosec G304 -- configPath is a user-provided config file path
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	var config Config
	dec := yaml.NewDecoder(strings.NewReader(expanded))
	dec.KnownFields(true)
	if err := dec.Decode(&config); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// Validate checks that all configuration values are valid and consistent.
// Reserved strategy knobs are deliberately not checked here; the strategy
// constructor owns that rejection.
func (c *Config) Validate() error {
	c.normalize()

	// Environment validation
	if c.Environment.Mode != "backtest" && c.Environment.Mode != "live" {
		return fmt.Errorf("environment.mode must be 'backtest' or 'live'")
	}

	// Strategy validation
	if c.Strategy.Underlying == "" {
		return fmt.Errorf("strategy.underlying is required")
	}
	if _, err := strategy.ParseOrderAction(c.Strategy.BuyOrSell); err != nil {
		return fmt.Errorf("strategy.buy_or_sell must be 'buy' or 'sell'")
	}
	if c.Strategy.OrderQuantity <= 0 {
		return fmt.Errorf("strategy.order_quantity must be > 0")
	}
	if c.Strategy.DaysBeforeClose < 0 {
		return fmt.Errorf("strategy.days_before_close must be >= 0")
	}
	switch strategy.ExpirationCycle(c.Strategy.ExpirationCycle) {
	case strategy.CycleAny, strategy.CycleMonthly:
	default:
		return fmt.Errorf("strategy.expiration_cycle must be '' or 'monthly'")
	}
	if c.Strategy.StartTime != "" {
		if _, err := time.Parse(time.RFC3339, c.Strategy.StartTime); err != nil {
			return fmt.Errorf("strategy.start_time invalid: %w", err)
		}
	}

	// Deltas follow the feed's sign convention: calls positive, puts
	// negative.
	if c.Strategy.OptimalCallDelta <= 0 || c.Strategy.OptimalCallDelta > 1 {
		return fmt.Errorf("strategy.optimal_call_delta must be in (0,1]")
	}
	if c.Strategy.MaxCallDelta <= 0 || c.Strategy.MaxCallDelta > 1 {
		return fmt.Errorf("strategy.max_call_delta must be in (0,1]")
	}
	if c.Strategy.OptimalPutDelta >= 0 || c.Strategy.OptimalPutDelta < -1 {
		return fmt.Errorf("strategy.optimal_put_delta must be in [-1,0)")
	}
	if c.Strategy.MaxPutDelta >= 0 || c.Strategy.MaxPutDelta < -1 {
		return fmt.Errorf("strategy.max_put_delta must be in [-1,0)")
	}
	if c.Strategy.MinimumDTE != nil && *c.Strategy.MinimumDTE < 0 {
		return fmt.Errorf("strategy.minimum_dte must be >= 0")
	}
	if c.Strategy.OptimalDTE != nil && *c.Strategy.OptimalDTE <= 0 {
		return fmt.Errorf("strategy.optimal_dte must be > 0")
	}
	if c.Strategy.MaxBidAsk != nil && *c.Strategy.MaxBidAsk <= 0 {
		return fmt.Errorf("strategy.max_bid_ask must be > 0")
	}
	if c.Strategy.ProfitTargetPct != nil && (*c.Strategy.ProfitTargetPct <= 0 || *c.Strategy.ProfitTargetPct >= 1) {
		return fmt.Errorf("strategy.profit_target_pct must be in (0,1)")
	}
	if c.Strategy.MinCredit != nil && *c.Strategy.MinCredit <= 0 {
		return fmt.Errorf("strategy.min_credit must be > 0")
	}

	// Data validation depends on the mode
	if c.IsBacktest() {
		if c.Data.CSVDir == "" {
			return fmt.Errorf("data.csv_dir is required in backtest mode")
		}
	} else {
		switch c.Data.Provider {
		case "tradier":
			if c.Data.APIKey == "" {
				return fmt.Errorf("data.api_key is required for the tradier provider")
			}
		case "synthetic":
		default:
			return fmt.Errorf("data.provider must be 'tradier' or 'synthetic'")
		}
		if c.Data.StoragePath == "" {
			return fmt.Errorf("data.storage_path is required in live mode")
		}
	}
	if c.Data.PollInterval != "" {
		if _, err := time.ParseDuration(c.Data.PollInterval); err != nil {
			return fmt.Errorf("data.poll_interval invalid: %w", err)
		}
	}
	if c.Data.WindowDays < 0 {
		return fmt.Errorf("data.window_days must be >= 0")
	}

	// Report validation
	if c.Report.Workers < 0 {
		return fmt.Errorf("report.workers must be >= 0")
	}

	// Dashboard validation
	if c.Dashboard.Enabled && c.Dashboard.Listen == "" {
		return fmt.Errorf("dashboard.listen is required when the dashboard is enabled")
	}

	return nil
}

// IsBacktest returns true if the scanner is configured to replay
// recorded snapshots.
func (c *Config) IsBacktest() bool {
	return c.Environment.Mode == "backtest"
}

// PollInterval returns the configured live polling interval.
func (c *Config) PollInterval() time.Duration {
	d, err := time.ParseDuration(c.Data.PollInterval)
	if err != nil || d <= 0 {
		return defaultPollInterval
	}
	return d
}

// StrategyParams maps the YAML strategy section onto the constructor's
// parameter set. Reserved knobs pass through untouched so the
// constructor can report them.
func (c *Config) StrategyParams() (strategy.Params, error) {
	action, err := strategy.ParseOrderAction(c.Strategy.BuyOrSell)
	if err != nil {
		return strategy.Params{}, fmt.Errorf("strategy.buy_or_sell: %w", err)
	}

	var start time.Time
	if c.Strategy.StartTime != "" {
		start, err = time.Parse(time.RFC3339, c.Strategy.StartTime)
		if err != nil {
			return strategy.Params{}, fmt.Errorf("strategy.start_time: %w", err)
		}
	}

	return strategy.Params{
		Kind:            strategy.KindStrangle,
		StartTime:       start,
		Underlying:      c.Strategy.Underlying,
		BuyOrSell:       action,
		OrderQuantity:   c.Strategy.OrderQuantity,
		DaysBeforeClose: c.Strategy.DaysBeforeClose,
		ExpirationCycle: strategy.ExpirationCycle(c.Strategy.ExpirationCycle),
		MinimumDTE:      c.Strategy.MinimumDTE,
		OptimalDTE:      c.Strategy.OptimalDTE,
		MaxBidAsk:       c.Strategy.MaxBidAsk,
		ProfitTargetPct: c.Strategy.ProfitTargetPct,
		MinCredit:       c.Strategy.MinCredit,
		Strangle: strategy.StrangleParams{
			OptCallDelta: c.Strategy.OptimalCallDelta,
			MaxCallDelta: c.Strategy.MaxCallDelta,
			OptPutDelta:  c.Strategy.OptimalPutDelta,
			MaxPutDelta:  c.Strategy.MaxPutDelta,
		},
		ROC:                  c.Strategy.ROC,
		MinDaysToEarnings:    c.Strategy.MinDaysToEarnings,
		MinDaysSinceEarnings: c.Strategy.MinDaysSinceEarnings,
		AvoidAssignment:      c.Strategy.AvoidAssignment,
		MinIVR:               c.Strategy.MinIVR,
		MaxBuyingPower:       c.Strategy.MaxBuyingPower,
	}, nil
}

// normalize sets default values for optional settings
func (c *Config) normalize() {
	if c.Environment.LogLevel == "" {
		c.Environment.LogLevel = defaultLogLevel
	}
}
