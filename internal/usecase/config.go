package usecase

import "time"

// Config holds the trading and risk knobs shared by the evaluator,
// the risk assessor and the position manager.
type Config struct {
	MaxPositionSize  float64 `yaml:"max_position_size" json:"max_position_size"`   // currency units per position
	MinPositionSize  float64 `yaml:"min_position_size" json:"min_position_size"`   // smallest tradable size
	RiskPercentage   float64 `yaml:"risk_percentage" json:"risk_percentage"`       // max % of portfolio per trade
	MaxPortfolioRisk float64 `yaml:"max_portfolio_risk" json:"max_portfolio_risk"` // fraction of portfolio in open positions
	MaxOpenPositions int     `yaml:"max_open_positions" json:"max_open_positions"`

	EmergencyStopLoss float64 `yaml:"emergency_stop_loss" json:"emergency_stop_loss"` // daily loss fraction that halts acceptance
	MaxHoldHours      int     `yaml:"max_hold_hours" json:"max_hold_hours"`

	TickIntervalMs int `yaml:"tick_interval_ms" json:"tick_interval_ms"`
	PriceTimeoutMs int `yaml:"price_timeout_ms" json:"price_timeout_ms"`
}

func DefaultConfig() Config {
	return Config{
		MaxPositionSize:   100,
		MinPositionSize:   10,
		RiskPercentage:    2,
		MaxPortfolioRisk:  0.5,
		MaxOpenPositions:  5,
		EmergencyStopLoss: 0.2,
		MaxHoldHours:      24,
		TickIntervalMs:    5000,
		PriceTimeoutMs:    2000,
	}
}

func (c Config) MaxHold() time.Duration {
	return time.Duration(c.MaxHoldHours) * time.Hour
}

func (c Config) TickInterval() time.Duration {
	return time.Duration(c.TickIntervalMs) * time.Millisecond
}

func (c Config) PriceTimeout() time.Duration {
	return time.Duration(c.PriceTimeoutMs) * time.Millisecond
}

// PerTradeCap is the hard cap on a single position size for the given
// portfolio value.
func (c Config) PerTradeCap(portfolioValue float64) float64 {
	return portfolioValue * c.RiskPercentage / 100
}
