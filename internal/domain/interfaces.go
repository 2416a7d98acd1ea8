package domain

import "context"

// PriceOracle resolves the current mark price for a token.
// A failure degrades to "no update this tick" at the call site.
type PriceOracle interface {
	Price(ctx context.Context, token string) (float64, error)
}

// SignalSource produces candidate opportunities per scan cycle.
type SignalSource interface {
	Scan(ctx context.Context) ([]*Opportunity, error)
}

// SentimentSource reports the current market sentiment in [-1, 1].
type SentimentSource interface {
	Sentiment(ctx context.Context) (float64, error)
}

// Wallet holds the portfolio cash and accepts debit/credit on
// position open/close.
type Wallet interface {
	Balance(ctx context.Context) (float64, error)
	Debit(ctx context.Context, amount float64) error
	Credit(ctx context.Context, amount float64) error
}

// ExecutionVenue receives accepted decisions and close instructions.
type ExecutionVenue interface {
	Execute(ctx context.Context, decision *Decision) error
	ClosePosition(ctx context.Context, position *Position, exitPrice float64) error
}

// Alerter receives emergency-stop, high-risk and close events.
type Alerter interface {
	EmergencyStop(reasons []string)
	HighRisk(risk *PortfolioRisk)
	PositionClosed(record *TradeRecord)
}

// TradeRepository defines storage operations for closed trades and
// portfolio snapshots.
type TradeRepository interface {
	SaveTradeRecord(ctx context.Context, record *TradeRecord) error
	ListTradeRecords(ctx context.Context, limit int) ([]*TradeRecord, error)

	SaveSnapshot(ctx context.Context, snap *PortfolioSnapshot) error
	ListSnapshots(ctx context.Context, limit int) ([]*PortfolioSnapshot, error)
}
