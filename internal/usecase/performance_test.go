package usecase_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitos/meme_trade_engine/internal/domain"
	"github.com/vitos/meme_trade_engine/internal/usecase"
)

func tradeRecords(pnls ...float64) []*domain.TradeRecord {
	records := make([]*domain.TradeRecord, 0, len(pnls))
	for i, pnl := range pnls {
		opened := noonUTC.Add(time.Duration(i) * 2 * time.Hour)
		records = append(records, &domain.TradeRecord{
			PositionID:  "p",
			Token:       "TURBO",
			Action:      domain.ActionBuy,
			Size:        100,
			EntryPrice:  1.0,
			ExitPrice:   1.0 + pnl/100,
			PnL:         pnl,
			CloseReason: domain.CloseManual,
			OpenedAt:    opened,
			ClosedAt:    opened.Add(time.Hour),
			HoldTime:    time.Hour,
		})
	}
	return records
}

func snapshotSeries(values ...float64) []*domain.PortfolioSnapshot {
	snaps := make([]*domain.PortfolioSnapshot, 0, len(values))
	for i, v := range values {
		snaps = append(snaps, &domain.PortfolioSnapshot{
			Timestamp:  noonUTC.Add(time.Duration(i) * 24 * time.Hour),
			TotalValue: v,
			Cash:       v,
		})
	}
	return snaps
}

func TestReport_EmptyHistory(t *testing.T) {
	a := usecase.NewPerformanceAnalyzer(365)

	report := a.Report(nil, nil)

	require.NotNil(t, report)
	assert.Equal(t, 0, report.Profitability.ClosedTrades)
	assert.InDelta(t, 0, report.Profitability.WinRate, 1e-9)
	assert.InDelta(t, 0, float64(report.Profitability.ProfitFactor), 1e-9)
	assert.InDelta(t, 0, report.Risk.MaxDrawdown, 1e-9)
	assert.InDelta(t, 0, report.Risk.RiskOfRuin, 1e-9)
	assert.Empty(t, report.Recommendations)
}

func TestReport_Profitability(t *testing.T) {
	a := usecase.NewPerformanceAnalyzer(365)

	report := a.Report(tradeRecords(10, -5, 20, -5, 0), nil)

	p := report.Profitability
	assert.Equal(t, 5, p.ClosedTrades)
	assert.Equal(t, 2, p.Wins)
	assert.Equal(t, 2, p.Losses)
	assert.InDelta(t, 0.4, p.WinRate, 1e-9) // break-even trade is not a win
	assert.InDelta(t, 20, p.TotalPnL, 1e-9)
	assert.InDelta(t, 3.0, float64(p.ProfitFactor), 1e-9)
	assert.InDelta(t, 15, p.AverageWin, 1e-9)
	assert.InDelta(t, 5, p.AverageLoss, 1e-9)
	assert.InDelta(t, 20, p.LargestWin, 1e-9)
	assert.InDelta(t, 5, p.LargestLoss, 1e-9)
}

func TestReport_ProfitFactorInfiniteWithoutLosses(t *testing.T) {
	a := usecase.NewPerformanceAnalyzer(365)

	report := a.Report(tradeRecords(10, 5, 20), nil)

	assert.True(t, report.Profitability.ProfitFactor.IsInfinite())
	assert.InDelta(t, 0, report.Risk.RiskOfRuin, 1e-9)
}

func TestReport_MaxDrawdown(t *testing.T) {
	a := usecase.NewPerformanceAnalyzer(365)

	report := a.Report(nil, snapshotSeries(1000, 1200, 900, 1100))

	// Peak 1200 to trough 900.
	assert.InDelta(t, 0.25, report.Risk.MaxDrawdown, 1e-9)
}

func TestReport_SharpeOnFlatSeriesIsZero(t *testing.T) {
	a := usecase.NewPerformanceAnalyzer(365)

	report := a.Report(nil, snapshotSeries(1000, 1000, 1000))

	assert.InDelta(t, 0, report.Risk.SharpeRatio, 1e-9)
	assert.InDelta(t, 0, report.Risk.SharpeAnnualized, 1e-9)
}

func TestReport_LongestLossStreak(t *testing.T) {
	a := usecase.NewPerformanceAnalyzer(365)

	report := a.Report(tradeRecords(1, -1, -2, -3, 1, -1), nil)

	assert.Equal(t, 3, report.Risk.LongestLossStreak)
}

func TestReport_NegativeEdgeRuin(t *testing.T) {
	a := usecase.NewPerformanceAnalyzer(365)

	// One small win against nine large losses: edge is firmly negative.
	pnls := []float64{1}
	for i := 0; i < 9; i++ {
		pnls = append(pnls, -10)
	}
	report := a.Report(tradeRecords(pnls...), nil)

	assert.InDelta(t, 0.99, report.Risk.RiskOfRuin, 1e-9)
	assert.Contains(t, report.Recommendations, "Negative edge detected: the strategy loses money in expectation")
}

func TestReport_Efficiency(t *testing.T) {
	a := usecase.NewPerformanceAnalyzer(365)

	report := a.Report(tradeRecords(10, -5), nil)

	assert.Equal(t, time.Hour, report.Efficiency.AverageHoldTime)
	assert.InDelta(t, 2.5, report.Efficiency.ExpectancyPerTrade, 1e-9)
	assert.Greater(t, report.Efficiency.TradesPerDay, 0.0)
}

func TestReport_Patterns(t *testing.T) {
	a := usecase.NewPerformanceAnalyzer(365)

	records := tradeRecords(10, -5, 20)
	records[0].CloseReason = domain.CloseTakeProfit
	records[1].CloseReason = domain.CloseStopLoss
	records[1].Token = "FLOKI"
	records[2].CloseReason = domain.CloseTakeProfit

	report := a.Report(records, nil)

	assert.Equal(t, 2, report.Patterns.ByCloseReason[domain.CloseTakeProfit])
	assert.Equal(t, 1, report.Patterns.ByCloseReason[domain.CloseStopLoss])
	assert.Equal(t, "TURBO", report.Patterns.BestToken)
	assert.Equal(t, "FLOKI", report.Patterns.WorstToken)
}
