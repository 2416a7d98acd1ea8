// Package backtest replays historical price series through the same
// evaluator and position manager the live engine uses, against a
// synthetic wallet. Given identical inputs it produces identical
// decisions and trade records: nothing in here draws on the wall
// clock or a random source.
package backtest

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/vitos/meme_trade_engine/internal/domain"
	"github.com/vitos/meme_trade_engine/internal/infrastructure/paper"
	"github.com/vitos/meme_trade_engine/internal/usecase"
)

// PricePoint is one tick of the replayed series.
type PricePoint struct {
	Time  time.Time
	Token string
	Price float64
}

// StrategyFunc supplies the heuristic side of the replay: given the
// current tick and the recent price window for that token, it may
// return a candidate opportunity and the sentiment reading to use.
// Returning a nil opportunity means no signal this tick.
type StrategyFunc func(ts time.Time, token string, price float64, window []float64) (*domain.Opportunity, float64)

// Result collects everything one replay produced.
type Result struct {
	Decisions []*domain.Decision
	Records   []*domain.TradeRecord
	Snapshots []*domain.PortfolioSnapshot
	Report    *domain.PerformanceReport
	FinalCash float64
}

type Simulator struct {
	cfg         usecase.Config
	strategy    StrategyFunc
	initialCash float64
	windowSize  int
	logger      *zap.Logger
}

func NewSimulator(cfg usecase.Config, strategy StrategyFunc, initialCash float64, logger *zap.Logger) *Simulator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Simulator{
		cfg:         cfg,
		strategy:    strategy,
		initialCash: initialCash,
		windowSize:  20,
		logger:      logger,
	}
}

// Run replays the series tick by tick. Ticks must be supplied in
// chronological order.
func (s *Simulator) Run(series []PricePoint) (*Result, error) {
	if len(series) == 0 {
		return nil, fmt.Errorf("empty price series")
	}

	ctx := context.Background()
	wallet := paper.NewWallet(s.initialCash)

	// The decision core gets its clock pinned to the replayed series
	// so time-driven behavior (off-hours risk, max hold, daily PnL
	// buckets) is reproducible.
	current := series[0].Time
	clock := func() time.Time { return current }

	assessor := usecase.NewRiskAssessor(s.cfg)
	assessor.SetClock(clock)
	evaluator := usecase.NewOpportunityEvaluator(s.cfg, assessor, s.logger)

	manager := usecase.NewPositionManager(s.cfg, wallet, nil, nil, s.logger)
	manager.SetClock(clock)
	seq := 0
	manager.SetIDGenerator(func() string {
		seq++
		return fmt.Sprintf("bt-%06d", seq)
	})

	result := &Result{}
	windows := make(map[string][]float64)

	for _, tick := range series {
		if tick.Time.Before(current) {
			return nil, fmt.Errorf("price series out of order at %s", tick.Time)
		}
		current = tick.Time

		closed, err := manager.Manage(ctx, map[string]float64{tick.Token: tick.Price})
		if err != nil {
			return nil, err
		}
		result.Records = append(result.Records, closed...)

		cash, _ := wallet.Balance(ctx)
		snap := &domain.PortfolioSnapshot{
			Timestamp:     tick.Time,
			TotalValue:    cash + manager.Exposure(),
			Cash:          cash,
			OpenPositions: len(manager.OpenPositions()),
		}
		result.Snapshots = append(result.Snapshots, snap)

		windows[tick.Token] = appendWindow(windows[tick.Token], tick.Price, s.windowSize)

		opp, sentiment := s.strategy(tick.Time, tick.Token, tick.Price, windows[tick.Token])
		if opp == nil {
			continue
		}

		emergency := assessor.ShouldEmergencyStop(
			manager.DailyPnL(tick.Time),
			manager.TotalPnL(),
			snap.TotalValue,
			manager.ConsecutiveLosses(),
		)
		eval := evaluator.Evaluate(opp, sentiment, manager.OpenPositions(), snap.TotalValue, emergency.ShouldStop)
		if !eval.Accepted {
			continue
		}
		result.Decisions = append(result.Decisions, eval.Decision)
		if _, err := manager.Open(ctx, eval.Decision); err != nil {
			s.logger.Debug("backtest open skipped", zap.String("token", opp.Token), zap.Error(err))
		}
	}

	result.FinalCash, _ = wallet.Balance(ctx)

	analyzer := usecase.NewPerformanceAnalyzer(365)
	analyzer.SetClock(func() time.Time { return current })
	result.Report = analyzer.Report(manager.Records(), result.Snapshots)
	return result, nil
}

func appendWindow(window []float64, price float64, size int) []float64 {
	window = append(window, price)
	if len(window) > size {
		window = window[len(window)-size:]
	}
	return window
}
