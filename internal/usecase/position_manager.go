package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vitos/meme_trade_engine/internal/domain"
)

const dayKeyLayout = "2006-01-02"

// PositionManager owns the open-position set, the realized PnL totals
// and the daily PnL buckets. All mutation goes through its mutex, so a
// tick's close/open logic and manual close requests are serialized.
type PositionManager struct {
	cfg    Config
	wallet domain.Wallet
	venue  domain.ExecutionVenue
	repo   domain.TradeRepository
	logger *zap.Logger
	now    func() time.Time
	newID  func() string

	mu                sync.Mutex
	open              map[string]*domain.Position
	records           []*domain.TradeRecord
	totalPnL          float64
	dailyPnL          map[string]float64
	consecutiveLosses int
}

func NewPositionManager(cfg Config, wallet domain.Wallet, venue domain.ExecutionVenue, repo domain.TradeRepository, logger *zap.Logger) *PositionManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PositionManager{
		cfg:      cfg,
		wallet:   wallet,
		venue:    venue,
		repo:     repo,
		logger:   logger,
		now:      time.Now,
		newID:    func() string { return uuid.New().String() },
		open:     make(map[string]*domain.Position),
		dailyPnL: make(map[string]float64),
	}
}

// SetClock overrides the wall clock for replay and tests.
func (m *PositionManager) SetClock(now func() time.Time) {
	m.now = now
}

// SetIDGenerator overrides position id generation. The backtester
// installs a sequential generator so replays are byte-identical.
func (m *PositionManager) SetIDGenerator(gen func() string) {
	m.newID = gen
}

// Open constructs an OPEN position from an accepted decision, debits
// the wallet and hands the decision to the execution venue.
func (m *PositionManager) Open(ctx context.Context, d *domain.Decision) (*domain.Position, error) {
	if d.Size <= 0 {
		return nil, fmt.Errorf("invalid position size %.2f", d.Size)
	}
	if d.Size > m.cfg.MaxPositionSize {
		return nil, fmt.Errorf("size %.2f exceeds max position size %.2f", d.Size, m.cfg.MaxPositionSize)
	}

	// The stop-loss band is an open-time invariant: anything outside
	// [2%, 20%] is corrected to the 5% default before the position
	// exists.
	stopLoss := d.StopLoss
	if pct := stopDistance(d.EntryPrice, stopLoss); pct < stopLossMinPct-stopLossEps || pct > stopLossMaxPct+stopLossEps {
		if d.Action == domain.ActionSell {
			stopLoss = d.EntryPrice * (1 + defaultStopLossPct)
		} else {
			stopLoss = d.EntryPrice * (1 - defaultStopLossPct)
		}
	}

	if err := m.wallet.Debit(ctx, d.Size); err != nil {
		return nil, fmt.Errorf("debit wallet: %w", err)
	}
	if m.venue != nil {
		if err := m.venue.Execute(ctx, d); err != nil {
			if cerr := m.wallet.Credit(ctx, d.Size); cerr != nil {
				m.logger.Error("failed to refund wallet after venue error", zap.Error(cerr))
			}
			return nil, fmt.Errorf("execute decision: %w", err)
		}
	}

	p := &domain.Position{
		ID:           m.newID(),
		Token:        d.Token,
		Action:       d.Action,
		Size:         d.Size,
		EntryPrice:   d.EntryPrice,
		CurrentPrice: d.EntryPrice,
		StopLoss:     stopLoss,
		TakeProfit:   d.TakeProfit,
		Confidence:   d.Confidence,
		OpenedAt:     m.now(),
		Status:       domain.StatusOpen,
	}

	m.mu.Lock()
	m.open[p.ID] = p
	m.mu.Unlock()

	m.logger.Info("position opened",
		zap.String("id", p.ID),
		zap.String("token", p.Token),
		zap.Float64("size", p.Size),
		zap.Float64("entry", p.EntryPrice),
		zap.Float64("stop_loss", p.StopLoss),
		zap.Float64("take_profit", p.TakeProfit))
	return p, nil
}

// Manage runs one mutation pass over the open set with the mark
// prices fetched before the call. A position with no price this tick
// is skipped entirely: a stale price never triggers an exit. Returns
// the trade records of every position closed this pass.
func (m *PositionManager) Manage(ctx context.Context, prices map[string]float64) ([]*domain.TradeRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var closed []*domain.TradeRecord
	for _, p := range m.sortedOpenLocked() {
		if p.Status != domain.StatusOpen {
			return closed, fmt.Errorf("position set corrupted: %s is %s inside the open set", p.ID, p.Status)
		}

		price, ok := prices[p.Token]
		if !ok || price <= 0 {
			continue
		}
		p.CurrentPrice = price
		p.PnL = p.UnrealizedPnL(price)

		reason, exit := exitCondition(p, price, m.now(), m.cfg.MaxHold())
		if !exit {
			continue
		}
		rec, err := m.closeLocked(ctx, p, reason, price)
		if err != nil {
			return closed, err
		}
		closed = append(closed, rec)
	}
	return closed, nil
}

// CloseManual closes one position at its last known price. Serialized
// through the same mutex as ticks. Idempotent: closing an unknown or
// already-closed id is a no-op returning (nil, nil).
func (m *PositionManager) CloseManual(ctx context.Context, id string) (*domain.TradeRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.open[id]
	if !ok {
		return nil, nil
	}
	return m.closeLocked(ctx, p, domain.CloseManual, p.CurrentPrice)
}

// closeLocked moves a position out of the open set, realizes its PnL
// and appends exactly one trade record. Caller holds m.mu.
func (m *PositionManager) closeLocked(ctx context.Context, p *domain.Position, reason domain.CloseReason, exitPrice float64) (*domain.TradeRecord, error) {
	pnl := p.UnrealizedPnL(exitPrice)
	now := m.now()

	p.Status = domain.StatusClosed
	p.CloseReason = reason
	p.CurrentPrice = exitPrice
	p.PnL = pnl
	delete(m.open, p.ID)

	if m.venue != nil {
		if err := m.venue.ClosePosition(ctx, p, exitPrice); err != nil {
			// The position is already closed in our books; the venue
			// failure is surfaced but must not leave it half-open.
			m.logger.Error("venue close failed", zap.String("id", p.ID), zap.Error(err))
		}
	}
	proceeds := p.Size + pnl
	if proceeds < 0 {
		proceeds = 0
	}
	if err := m.wallet.Credit(ctx, proceeds); err != nil {
		m.logger.Error("failed to credit close proceeds", zap.String("id", p.ID), zap.Error(err))
	}

	rec := &domain.TradeRecord{
		PositionID:  p.ID,
		Token:       p.Token,
		Action:      p.Action,
		Size:        p.Size,
		EntryPrice:  p.EntryPrice,
		ExitPrice:   exitPrice,
		PnL:         pnl,
		CloseReason: reason,
		OpenedAt:    p.OpenedAt,
		ClosedAt:    now,
		HoldTime:    now.Sub(p.OpenedAt),
	}
	m.records = append(m.records, rec)
	m.totalPnL += pnl
	m.dailyPnL[now.UTC().Format(dayKeyLayout)] += pnl
	if pnl < 0 {
		m.consecutiveLosses++
	} else {
		m.consecutiveLosses = 0
	}

	if m.repo != nil {
		if err := m.repo.SaveTradeRecord(ctx, rec); err != nil {
			m.logger.Error("failed to persist trade record", zap.String("id", p.ID), zap.Error(err))
		}
	}

	m.logger.Info("position closed",
		zap.String("id", p.ID),
		zap.String("token", p.Token),
		zap.String("reason", string(reason)),
		zap.Float64("exit", exitPrice),
		zap.Float64("pnl", pnl))
	return rec, nil
}

// Tokens returns the distinct tokens with open positions, for the
// price fetch phase of a tick.
func (m *PositionManager) Tokens() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	seen := make(map[string]bool)
	var tokens []string
	for _, p := range m.open {
		if !seen[p.Token] {
			seen[p.Token] = true
			tokens = append(tokens, p.Token)
		}
	}
	sort.Strings(tokens)
	return tokens
}

// OpenPositions returns an immutable snapshot of the open set.
func (m *PositionManager) OpenPositions() []*domain.Position {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*domain.Position, 0, len(m.open))
	for _, p := range m.sortedOpenLocked() {
		cp := *p
		out = append(out, &cp)
	}
	return out
}

// Records returns a copy of the closed-trade history accumulated this
// process lifetime.
func (m *PositionManager) Records() []*domain.TradeRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.TradeRecord, len(m.records))
	copy(out, m.records)
	return out
}

func (m *PositionManager) TotalPnL() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.totalPnL
}

// DailyPnL returns the realized PnL bucketed on the UTC date of t.
func (m *PositionManager) DailyPnL(t time.Time) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dailyPnL[t.UTC().Format(dayKeyLayout)]
}

func (m *PositionManager) ConsecutiveLosses() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.consecutiveLosses
}

// Exposure is the sum of open position sizes.
func (m *PositionManager) Exposure() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0.0
	for _, p := range m.open {
		total += p.Size
	}
	return total
}

// sortedOpenLocked returns open positions in a stable order so replay
// runs close positions in the same sequence. Caller holds m.mu.
func (m *PositionManager) sortedOpenLocked() []*domain.Position {
	out := make([]*domain.Position, 0, len(m.open))
	for _, p := range m.open {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].OpenedAt.Equal(out[j].OpenedAt) {
			return out[i].OpenedAt.Before(out[j].OpenedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// exitCondition evaluates the exit rules in priority order: stop-loss,
// take-profit, then max hold duration. First match wins.
func exitCondition(p *domain.Position, price float64, now time.Time, maxHold time.Duration) (domain.CloseReason, bool) {
	long := p.Action == domain.ActionBuy
	if p.StopLoss > 0 {
		if (long && price <= p.StopLoss) || (!long && price >= p.StopLoss) {
			return domain.CloseStopLoss, true
		}
	}
	if p.TakeProfit > 0 {
		if (long && price >= p.TakeProfit) || (!long && price <= p.TakeProfit) {
			return domain.CloseTakeProfit, true
		}
	}
	if maxHold > 0 && now.Sub(p.OpenedAt) >= maxHold {
		return domain.CloseTimeExit, true
	}
	return "", false
}

func stopDistance(entry, stop float64) float64 {
	if entry <= 0 {
		return 0
	}
	diff := entry - stop
	if diff < 0 {
		diff = -diff
	}
	return diff / entry
}
