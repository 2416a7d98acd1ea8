package domain

import (
	"encoding/json"
	"math"
	"time"
)

// ProfitFactor is gains divided by losses. It is +Inf when there are
// wins but no losing trades; JSON renders that as the string "inf"
// instead of overflowing the numeric encoder.
type ProfitFactor float64

func (f ProfitFactor) MarshalJSON() ([]byte, error) {
	if math.IsInf(float64(f), 1) {
		return json.Marshal("inf")
	}
	return json.Marshal(float64(f))
}

func (f *ProfitFactor) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s == "inf" {
			*f = ProfitFactor(math.Inf(1))
			return nil
		}
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = ProfitFactor(v)
	return nil
}

// IsInfinite reports the no-losing-trades sentinel.
func (f ProfitFactor) IsInfinite() bool {
	return math.IsInf(float64(f), 1)
}

type ProfitabilityReport struct {
	ClosedTrades int          `json:"closed_trades"`
	Wins         int          `json:"wins"`
	Losses       int          `json:"losses"`
	WinRate      float64      `json:"win_rate"` // 0..1
	TotalPnL     float64      `json:"total_pnl"`
	ProfitFactor ProfitFactor `json:"profit_factor"`
	AverageWin   float64      `json:"average_win"`
	AverageLoss  float64      `json:"average_loss"`
	LargestWin   float64      `json:"largest_win"`
	LargestLoss  float64      `json:"largest_loss"`
}

type RiskReport struct {
	MaxDrawdown       float64 `json:"max_drawdown"` // 0..1, peak to trough
	SharpeRatio       float64 `json:"sharpe_ratio"`
	SharpeAnnualized  float64 `json:"sharpe_annualized"`
	CalmarRatio       float64 `json:"calmar_ratio"`
	LongestLossStreak int     `json:"longest_loss_streak"`
	RiskOfRuin        float64 `json:"risk_of_ruin"` // 0..1 heuristic
}

type EfficiencyReport struct {
	AverageHoldTime    time.Duration `json:"average_hold_time"`
	TradesPerDay       float64       `json:"trades_per_day"`
	ExpectancyPerTrade float64       `json:"expectancy_per_trade"`
}

type PatternReport struct {
	ByCloseReason map[CloseReason]int `json:"by_close_reason"`
	BestToken     string              `json:"best_token,omitempty"`
	WorstToken    string              `json:"worst_token,omitempty"`
}

// PerformanceReport aggregates closed-trade history and portfolio
// snapshots. Derived on demand, never persisted by the core.
type PerformanceReport struct {
	GeneratedAt     time.Time           `json:"generated_at"`
	Profitability   ProfitabilityReport `json:"profitability"`
	Risk            RiskReport          `json:"risk"`
	Efficiency      EfficiencyReport    `json:"efficiency"`
	Patterns        PatternReport       `json:"patterns"`
	Recommendations []string            `json:"recommendations"`
}
