package usecase

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/vitos/meme_trade_engine/internal/domain"
)

// EngineStats is a point-in-time snapshot of engine counters.
type EngineStats struct {
	Ticks              uint64 `json:"ticks"`
	Evaluated          uint64 `json:"evaluated"`
	Accepted           uint64 `json:"accepted"`
	Rejected           uint64 `json:"rejected"`
	Closed             uint64 `json:"closed"`
	CollaboratorErrors uint64 `json:"collaborator_errors"`
	EmergencyStop      bool   `json:"emergency_stop"`
	Halted             bool   `json:"halted"`
	Stopped            bool   `json:"stopped"`
}

// TradingEngine drives the whole decision core with a single tick
// loop. External I/O (prices, balance, signals, sentiment) happens
// before the mutation phase; mutation itself is serialized behind one
// mutex, shared with manual close requests.
type TradingEngine struct {
	cfg       Config
	signals   domain.SignalSource
	sentiment domain.SentimentSource
	oracle    domain.PriceOracle
	wallet    domain.Wallet
	repo      domain.TradeRepository
	alerter   domain.Alerter
	logger    *zap.Logger

	assessor  *RiskAssessor
	evaluator *OpportunityEvaluator
	manager   *PositionManager
	analyzer  *PerformanceAnalyzer
	now       func() time.Time

	stopped atomic.Bool

	mu              sync.Mutex
	halted          bool
	emergencyActive bool
	lastCash        float64
	snapshots       []*domain.PortfolioSnapshot
	stats           EngineStats
}

func NewTradingEngine(
	cfg Config,
	signals domain.SignalSource,
	sentiment domain.SentimentSource,
	oracle domain.PriceOracle,
	wallet domain.Wallet,
	venue domain.ExecutionVenue,
	repo domain.TradeRepository,
	alerter domain.Alerter,
	logger *zap.Logger,
) *TradingEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	assessor := NewRiskAssessor(cfg)
	return &TradingEngine{
		cfg:       cfg,
		signals:   signals,
		sentiment: sentiment,
		oracle:    oracle,
		wallet:    wallet,
		repo:      repo,
		alerter:   alerter,
		logger:    logger,
		assessor:  assessor,
		evaluator: NewOpportunityEvaluator(cfg, assessor, logger),
		manager:   NewPositionManager(cfg, wallet, venue, repo, logger),
		analyzer:  NewPerformanceAnalyzer(365),
		now:       time.Now,
	}
}

// Run drives ticks at the configured interval until the context is
// cancelled or Stop is called. An in-flight tick always finishes.
func (e *TradingEngine) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.cfg.TickInterval())
	defer ticker.Stop()

	e.logger.Info("trading engine started",
		zap.Duration("tick_interval", e.cfg.TickInterval()))

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("trading engine stopped", zap.Error(ctx.Err()))
			return nil
		case <-ticker.C:
			if e.stopped.Load() {
				e.logger.Info("trading engine stopped")
				return nil
			}
			if err := e.Tick(ctx); err != nil {
				e.logger.Error("tick failed", zap.Error(err))
			}
		}
	}
}

// Stop halts acceptance of new decisions. An in-flight tick completes
// and open positions remain untouched; closing them is an explicit,
// separate operation.
func (e *TradingEngine) Stop() {
	e.stopped.Store(true)
}

// Tick runs one full cycle: collaborator I/O first, then a single
// serialized mutation phase.
func (e *TradingEngine) Tick(ctx context.Context) error {
	// Phase 1: I/O. Every failure degrades to "no data this tick".
	cash := e.fetchCash(ctx)
	prices := e.fetchPrices(ctx, e.manager.Tokens())
	opps := e.fetchSignals(ctx)
	sentiment := e.fetchSentiment(ctx)

	// Phase 2: mutation, serialized with manual closes.
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stats.Ticks++

	closed, err := e.manager.Manage(ctx, prices)
	for _, rec := range closed {
		e.stats.Closed++
		if e.alerter != nil {
			e.alerter.PositionClosed(rec)
		}
	}
	if err != nil {
		// Fatal: the position set itself is suspect. Halt acceptance
		// but preserve the open set for manual inspection.
		e.halted = true
		e.logger.Error("position set corrupted, halting new acceptance", zap.Error(err))
		return err
	}

	openPositions := e.manager.OpenPositions()
	snap := &domain.PortfolioSnapshot{
		Timestamp:     e.now(),
		TotalValue:    cash + e.manager.Exposure(),
		Cash:          cash,
		OpenPositions: len(openPositions),
	}
	e.snapshots = append(e.snapshots, snap)
	if e.repo != nil {
		if err := e.repo.SaveSnapshot(ctx, snap); err != nil {
			e.logger.Error("failed to persist snapshot", zap.Error(err))
		}
	}

	emergency := e.assessor.ShouldEmergencyStop(
		e.manager.DailyPnL(e.now()),
		e.manager.TotalPnL(),
		snap.TotalValue,
		e.manager.ConsecutiveLosses(),
	)
	if emergency.ShouldStop && !e.emergencyActive {
		e.logger.Warn("emergency stop engaged", zap.Strings("reasons", emergency.Reasons))
		if e.alerter != nil {
			e.alerter.EmergencyStop(emergency.Reasons)
		}
	}
	e.emergencyActive = emergency.ShouldStop
	e.stats.EmergencyStop = emergency.ShouldStop

	portfolioRisk := e.assessor.AssessPortfolioRisk(openPositions, cash)
	if portfolioRisk.Level == domain.RiskHigh || portfolioRisk.Level == domain.RiskError {
		if e.alerter != nil {
			e.alerter.HighRisk(portfolioRisk)
		}
	}

	if e.halted {
		return nil
	}

	for _, opp := range opps {
		if e.stopped.Load() {
			break
		}
		e.stats.Evaluated++
		eval := e.evaluator.Evaluate(opp, sentiment, e.manager.OpenPositions(), snap.TotalValue, emergency.ShouldStop)
		if !eval.Accepted {
			e.stats.Rejected++
			e.logger.Debug("opportunity rejected",
				zap.String("token", opp.Token),
				zap.Strings("reasons", eval.RejectReasons))
			continue
		}
		e.stats.Accepted++
		if _, err := e.manager.Open(ctx, eval.Decision); err != nil {
			e.logger.Error("failed to open position",
				zap.String("token", opp.Token), zap.Error(err))
		}
	}
	return nil
}

func (e *TradingEngine) fetchCash(ctx context.Context) float64 {
	cctx, cancel := context.WithTimeout(ctx, e.cfg.PriceTimeout())
	defer cancel()
	cash, err := e.wallet.Balance(cctx)
	if err != nil {
		e.collabError("wallet", err)
		e.mu.Lock()
		defer e.mu.Unlock()
		return e.lastCash
	}
	e.mu.Lock()
	e.lastCash = cash
	e.mu.Unlock()
	return cash
}

func (e *TradingEngine) fetchPrices(ctx context.Context, tokens []string) map[string]float64 {
	prices := make(map[string]float64, len(tokens))
	for _, token := range tokens {
		cctx, cancel := context.WithTimeout(ctx, e.cfg.PriceTimeout())
		price, err := e.oracle.Price(cctx, token)
		cancel()
		if err != nil || price <= 0 {
			e.collabError("oracle", err)
			continue
		}
		prices[token] = price
	}
	return prices
}

func (e *TradingEngine) fetchSignals(ctx context.Context) []*domain.Opportunity {
	if e.signals == nil {
		return nil
	}
	cctx, cancel := context.WithTimeout(ctx, e.cfg.PriceTimeout())
	defer cancel()
	opps, err := e.signals.Scan(cctx)
	if err != nil {
		e.collabError("signals", err)
		return nil
	}
	return opps
}

func (e *TradingEngine) fetchSentiment(ctx context.Context) float64 {
	if e.sentiment == nil {
		return 0
	}
	cctx, cancel := context.WithTimeout(ctx, e.cfg.PriceTimeout())
	defer cancel()
	sentiment, err := e.sentiment.Sentiment(cctx)
	if err != nil {
		e.collabError("sentiment", err)
		return 0
	}
	return sentiment
}

func (e *TradingEngine) collabError(source string, err error) {
	e.mu.Lock()
	e.stats.CollaboratorErrors++
	e.mu.Unlock()
	e.logger.Warn("collaborator call failed", zap.String("source", source), zap.Error(err))
}

// Positions returns the current open-position snapshot.
func (e *TradingEngine) Positions() []*domain.Position {
	return e.manager.OpenPositions()
}

// CloseManual serializes an external close request through the same
// gate as tick mutation.
func (e *TradingEngine) CloseManual(ctx context.Context, id string) (*domain.TradeRecord, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	rec, err := e.manager.CloseManual(ctx, id)
	if rec != nil {
		e.stats.Closed++
		if e.alerter != nil {
			e.alerter.PositionClosed(rec)
		}
	}
	return rec, err
}

// Report aggregates the accumulated history into a performance report.
func (e *TradingEngine) Report() *domain.PerformanceReport {
	e.mu.Lock()
	snapshots := make([]*domain.PortfolioSnapshot, len(e.snapshots))
	copy(snapshots, e.snapshots)
	e.mu.Unlock()
	return e.analyzer.Report(e.manager.Records(), snapshots)
}

// PortfolioRisk assesses the current portfolio exposure on demand.
func (e *TradingEngine) PortfolioRisk() *domain.PortfolioRisk {
	e.mu.Lock()
	cash := e.lastCash
	e.mu.Unlock()
	return e.assessor.AssessPortfolioRisk(e.manager.OpenPositions(), cash)
}

// Stats returns a copy of the engine counters.
func (e *TradingEngine) Stats() EngineStats {
	e.mu.Lock()
	defer e.mu.Unlock()
	stats := e.stats
	stats.Halted = e.halted
	stats.Stopped = e.stopped.Load()
	return stats
}

// TotalPnL is the realized PnL since process start.
func (e *TradingEngine) TotalPnL() float64 {
	return e.manager.TotalPnL()
}

// Exposure is the sum of open position sizes.
func (e *TradingEngine) Exposure() float64 {
	return e.manager.Exposure()
}

// TradeHistory returns the in-memory closed-trade history.
func (e *TradingEngine) TradeHistory() []*domain.TradeRecord {
	return e.manager.Records()
}
