package domain

import "time"

type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
)

// Opportunity is a candidate trade produced by the signal source.
// It is immutable once produced.
type Opportunity struct {
	Token          string  `json:"token"`
	EntryPrice     float64 `json:"entry_price"`
	StopLoss       float64 `json:"stop_loss"`
	TakeProfit     float64 `json:"take_profit"`
	Confidence     float64 `json:"confidence"` // 0..1
	MarketCap      float64 `json:"market_cap"`
	Volume24h      float64 `json:"volume_24h"`
	PriceChange24h float64 `json:"price_change_24h"` // percent
}

// Decision is an accepted, sized, bounded trade instruction.
type Decision struct {
	Action     Action   `json:"action"`
	Token      string   `json:"token"`
	Size       float64  `json:"size"` // currency units
	EntryPrice float64  `json:"entry_price"`
	StopLoss   float64  `json:"stop_loss"`
	TakeProfit float64  `json:"take_profit"`
	Confidence float64  `json:"confidence"`
	RiskScore  float64  `json:"risk_score"`
	Reasons    []string `json:"reasons"`
}

// PortfolioSnapshot is a read-only view of the portfolio taken once per tick.
type PortfolioSnapshot struct {
	Timestamp     time.Time `json:"timestamp"`
	TotalValue    float64   `json:"total_value"`
	Cash          float64   `json:"cash"`
	OpenPositions int       `json:"open_positions"`
}
