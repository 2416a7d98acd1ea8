package usecase

import (
	"math"
	"time"

	"github.com/vitos/meme_trade_engine/internal/domain"
)

// ruinFloor is reported when the win/loss edge is zero or negative:
// a strategy with no edge is near-certain to ruin eventually.
const ruinFloor = 0.99

// PerformanceAnalyzer is a pure aggregation over the closed-trade
// history and the portfolio snapshot series. An empty input yields a
// fully zeroed report, never a panic.
type PerformanceAnalyzer struct {
	// periodsPerYear annualizes Sharpe and Calmar from the snapshot
	// cadence. Zero disables annualization.
	periodsPerYear float64
	now            func() time.Time
}

func NewPerformanceAnalyzer(periodsPerYear float64) *PerformanceAnalyzer {
	return &PerformanceAnalyzer{periodsPerYear: periodsPerYear, now: time.Now}
}

func (a *PerformanceAnalyzer) SetClock(now func() time.Time) {
	a.now = now
}

func (a *PerformanceAnalyzer) Report(records []*domain.TradeRecord, snapshots []*domain.PortfolioSnapshot) *domain.PerformanceReport {
	report := &domain.PerformanceReport{
		GeneratedAt: a.now(),
		Patterns: domain.PatternReport{
			ByCloseReason: make(map[domain.CloseReason]int),
		},
	}

	a.profitability(records, report)
	a.riskMetrics(records, snapshots, report)
	a.efficiency(records, report)
	a.patterns(records, report)
	report.Recommendations = a.recommend(report)
	return report
}

func (a *PerformanceAnalyzer) profitability(records []*domain.TradeRecord, report *domain.PerformanceReport) {
	p := &report.Profitability
	p.ClosedTrades = len(records)
	if len(records) == 0 {
		return
	}

	var sumWins, sumLosses float64
	for _, r := range records {
		p.TotalPnL += r.PnL
		if r.PnL > 0 {
			p.Wins++
			sumWins += r.PnL
			if r.PnL > p.LargestWin {
				p.LargestWin = r.PnL
			}
		} else if r.PnL < 0 {
			p.Losses++
			sumLosses += -r.PnL
			if -r.PnL > p.LargestLoss {
				p.LargestLoss = -r.PnL
			}
		}
	}

	p.WinRate = float64(p.Wins) / float64(p.ClosedTrades)
	if p.Wins > 0 {
		p.AverageWin = sumWins / float64(p.Wins)
	}
	if p.Losses > 0 {
		p.AverageLoss = sumLosses / float64(p.Losses)
	}

	switch {
	case sumLosses == 0 && sumWins > 0:
		p.ProfitFactor = domain.ProfitFactor(math.Inf(1))
	case sumLosses == 0:
		p.ProfitFactor = 0
	default:
		p.ProfitFactor = domain.ProfitFactor(sumWins / sumLosses)
	}
}

func (a *PerformanceAnalyzer) riskMetrics(records []*domain.TradeRecord, snapshots []*domain.PortfolioSnapshot, report *domain.PerformanceReport) {
	r := &report.Risk

	r.MaxDrawdown = maxDrawdown(snapshots)

	returns := periodReturns(snapshots)
	if len(returns) > 0 {
		mean := 0.0
		for _, v := range returns {
			mean += v
		}
		mean /= float64(len(returns))

		variance := 0.0
		for _, v := range returns {
			variance += (v - mean) * (v - mean)
		}
		variance /= float64(len(returns))
		if std := math.Sqrt(variance); std > 1e-12 {
			r.SharpeRatio = mean / std
			if a.periodsPerYear > 0 {
				r.SharpeAnnualized = r.SharpeRatio * math.Sqrt(a.periodsPerYear)
			}
		}
	}

	if r.MaxDrawdown > 0 {
		if ann := a.annualizedReturn(snapshots); ann != 0 {
			r.CalmarRatio = ann / r.MaxDrawdown
		}
	}

	r.LongestLossStreak = longestLossStreak(records)
	r.RiskOfRuin = riskOfRuin(report.Profitability)
}

func (a *PerformanceAnalyzer) efficiency(records []*domain.TradeRecord, report *domain.PerformanceReport) {
	e := &report.Efficiency
	if len(records) == 0 {
		return
	}

	var hold time.Duration
	for _, r := range records {
		hold += r.HoldTime
	}
	e.AverageHoldTime = hold / time.Duration(len(records))

	span := records[len(records)-1].ClosedAt.Sub(records[0].OpenedAt)
	if days := span.Hours() / 24; days > 0 {
		e.TradesPerDay = float64(len(records)) / days
	}

	e.ExpectancyPerTrade = report.Profitability.TotalPnL / float64(len(records))
}

func (a *PerformanceAnalyzer) patterns(records []*domain.TradeRecord, report *domain.PerformanceReport) {
	if len(records) == 0 {
		return
	}
	byToken := make(map[string]float64)
	for _, r := range records {
		report.Patterns.ByCloseReason[r.CloseReason]++
		byToken[r.Token] += r.PnL
	}

	best, worst := math.Inf(-1), math.Inf(1)
	for token, pnl := range byToken {
		if pnl > best {
			best = pnl
			report.Patterns.BestToken = token
		}
		if pnl < worst {
			worst = pnl
			report.Patterns.WorstToken = token
		}
	}
}

func (a *PerformanceAnalyzer) recommend(report *domain.PerformanceReport) []string {
	if report.Profitability.ClosedTrades == 0 {
		return nil
	}
	var recs []string
	p := report.Profitability
	if p.WinRate < 0.4 {
		recs = append(recs, "Win rate below 40%: tighten entry criteria or raise the confidence threshold")
	}
	if !p.ProfitFactor.IsInfinite() && float64(p.ProfitFactor) < 1 {
		recs = append(recs, "Profit factor below 1: losses outweigh gains, reduce position sizing")
	}
	if report.Risk.MaxDrawdown > 0.2 {
		recs = append(recs, "Max drawdown above 20%: lower the max portfolio risk fraction")
	}
	if report.Risk.LongestLossStreak >= 4 {
		recs = append(recs, "Long losing streaks: consider a cooldown after consecutive losses")
	}
	if report.Risk.RiskOfRuin >= ruinFloor {
		recs = append(recs, "Negative edge detected: the strategy loses money in expectation")
	}
	return recs
}

func (a *PerformanceAnalyzer) annualizedReturn(snapshots []*domain.PortfolioSnapshot) float64 {
	if a.periodsPerYear <= 0 || len(snapshots) < 2 {
		return 0
	}
	first, last := snapshots[0].TotalValue, snapshots[len(snapshots)-1].TotalValue
	if first <= 0 {
		return 0
	}
	total := last/first - 1
	periods := float64(len(snapshots) - 1)
	return math.Pow(1+total, a.periodsPerYear/periods) - 1
}

// maxDrawdown is the largest peak-to-trough decline over the snapshot
// series, as a fraction of the peak.
func maxDrawdown(snapshots []*domain.PortfolioSnapshot) float64 {
	peak, maxDD := 0.0, 0.0
	for _, s := range snapshots {
		if s.TotalValue > peak {
			peak = s.TotalValue
		}
		if peak > 0 {
			if dd := (peak - s.TotalValue) / peak; dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}

func periodReturns(snapshots []*domain.PortfolioSnapshot) []float64 {
	var returns []float64
	for i := 1; i < len(snapshots); i++ {
		prev := snapshots[i-1].TotalValue
		if prev > 0 {
			returns = append(returns, (snapshots[i].TotalValue-prev)/prev)
		}
	}
	return returns
}

func longestLossStreak(records []*domain.TradeRecord) int {
	longest, current := 0, 0
	for _, r := range records {
		if r.PnL < 0 {
			current++
			if current > longest {
				longest = current
			}
		} else {
			current = 0
		}
	}
	return longest
}

// riskOfRuin is a heuristic from the win/loss edge. A zero or negative
// edge reports the ruin floor; a positive edge decays it toward zero.
func riskOfRuin(p domain.ProfitabilityReport) float64 {
	if p.ClosedTrades == 0 {
		return 0
	}
	winLossRatio := 1.0
	if p.AverageLoss > 0 {
		winLossRatio = p.AverageWin / p.AverageLoss
	} else if p.AverageWin > 0 {
		// no losing trades on record
		return 0
	}
	edge := p.WinRate*winLossRatio - (1 - p.WinRate)
	if edge <= 0 {
		return ruinFloor
	}
	if edge >= 1 {
		return 0
	}
	return clamp01(math.Pow(1-edge, 10))
}
