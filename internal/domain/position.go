package domain

import "time"

type PositionStatus string

const (
	StatusOpen   PositionStatus = "OPEN"
	StatusClosed PositionStatus = "CLOSED"
)

type CloseReason string

const (
	CloseStopLoss   CloseReason = "stop_loss"
	CloseTakeProfit CloseReason = "take_profit"
	CloseTimeExit   CloseReason = "time_exit"
	CloseManual     CloseReason = "manual"
)

// Position is a live allocation of capital to one token.
// It is owned exclusively by the position manager.
type Position struct {
	ID           string         `json:"id"`
	Token        string         `json:"token"`
	Action       Action         `json:"action"`
	Size         float64        `json:"size"`
	EntryPrice   float64        `json:"entry_price"`
	CurrentPrice float64        `json:"current_price"`
	StopLoss     float64        `json:"stop_loss"`
	TakeProfit   float64        `json:"take_profit"`
	Confidence   float64        `json:"confidence"`
	OpenedAt     time.Time      `json:"opened_at"`
	Status       PositionStatus `json:"status"`
	PnL          float64        `json:"pnl"`
	CloseReason  CloseReason    `json:"close_reason,omitempty"`
}

// UnrealizedPnL recomputes the running PnL for the given mark price.
// Sign is flipped for short positions.
func (p *Position) UnrealizedPnL(price float64) float64 {
	if p.EntryPrice == 0 {
		return 0
	}
	pnl := p.Size * (price - p.EntryPrice) / p.EntryPrice
	if p.Action == ActionSell {
		pnl = -pnl
	}
	return pnl
}

// TradeRecord is the immutable snapshot of a closed position.
// It is created exactly once, at the moment the position closes.
type TradeRecord struct {
	PositionID  string        `json:"position_id"`
	Token       string        `json:"token"`
	Action      Action        `json:"action"`
	Size        float64       `json:"size"`
	EntryPrice  float64       `json:"entry_price"`
	ExitPrice   float64       `json:"exit_price"`
	PnL         float64       `json:"pnl"`
	CloseReason CloseReason   `json:"close_reason"`
	OpenedAt    time.Time     `json:"opened_at"`
	ClosedAt    time.Time     `json:"closed_at"`
	HoldTime    time.Duration `json:"hold_time"`
}
