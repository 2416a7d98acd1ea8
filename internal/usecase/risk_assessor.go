package usecase

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/vitos/meme_trade_engine/internal/domain"
)

// Risk factor increments. Each independent factor adds a fixed amount
// when its threshold is crossed; absent inputs contribute nothing.
const (
	riskMicroCap      = 0.4 // market cap < 100k
	riskSmallCap      = 0.2 // market cap 100k..1M
	riskHighVol       = 0.3 // |24h change| > 50%
	riskModerateVol   = 0.1 // |24h change| 20..50%
	riskIlliquid      = 0.3 // 24h volume < 50k
	riskThinVolume    = 0.1 // 24h volume 50k..100k
	riskLargePosition = 0.2 // prospective size > 10% of portfolio
	riskCorrelated    = 0.2 // open position in the same meme family
	riskOffHours      = 0.1 // UTC hour < 6 or > 22

	rejectThreshold = 0.7
	reduceThreshold = 0.4

	maxConsecutiveLosses = 5
	totalDrawdownLimit   = 0.30

	stopLossMinPct = 0.02
	stopLossMaxPct = 0.20
	stopLossEps    = 1e-9
)

// memeFamilies groups token symbols that tend to move together. The
// correlation factor fires when an open position shares a family word
// with the candidate. Crude keyword heuristic, kept simple on purpose.
var memeFamilies = []string{
	"doge", "shib", "inu", "pepe", "floki", "bonk", "wif",
	"moon", "elon", "cat", "frog", "baby",
}

// RiskAssessor scores candidate trades and the portfolio as a whole.
// All methods are pure with respect to their inputs and never panic
// outward.
type RiskAssessor struct {
	cfg Config
	now func() time.Time
}

func NewRiskAssessor(cfg Config) *RiskAssessor {
	return &RiskAssessor{cfg: cfg, now: time.Now}
}

// SetClock overrides the wall clock. The backtester pins it to the
// replayed series so the off-hours factor stays deterministic.
func (a *RiskAssessor) SetClock(now func() time.Time) {
	a.now = now
}

// AssessTradeRisk scores one opportunity against the open positions.
// Overall is clamped to [0,1]. Any internal failure yields 1.0/REJECT.
func (a *RiskAssessor) AssessTradeRisk(opp *domain.Opportunity, open []*domain.Position, portfolioValue float64) (out *domain.RiskAssessment) {
	defer func() {
		if r := recover(); r != nil {
			out = &domain.RiskAssessment{
				Overall:        1.0,
				Factors:        map[string]float64{"internal_error": 1.0},
				Recommendation: domain.RecommendReject,
			}
		}
	}()

	factors := make(map[string]float64)

	switch {
	case opp.MarketCap <= 0 || math.IsNaN(opp.MarketCap):
		// absent input, neutral
	case opp.MarketCap < 100_000:
		factors["market_cap"] = riskMicroCap
	case opp.MarketCap < 1_000_000:
		factors["market_cap"] = riskSmallCap
	}

	if change := math.Abs(opp.PriceChange24h); !math.IsNaN(change) {
		if change > 50 {
			factors["volatility"] = riskHighVol
		} else if change > 20 {
			factors["volatility"] = riskModerateVol
		}
	}

	switch {
	case opp.Volume24h <= 0 || math.IsNaN(opp.Volume24h):
		// absent input, neutral
	case opp.Volume24h < 50_000:
		factors["liquidity"] = riskIlliquid
	case opp.Volume24h < 100_000:
		factors["liquidity"] = riskThinVolume
	}

	// Prospective size before risk shaving: the worst case the sizer
	// could allocate for this confidence.
	if portfolioValue > 0 {
		prospective := a.cfg.MaxPositionSize * clamp01(opp.Confidence)
		if prospective/portfolioValue > 0.10 {
			factors["position_size"] = riskLargePosition
		}
	}

	if hasCorrelatedPosition(opp.Token, open) {
		factors["correlation"] = riskCorrelated
	}

	if hour := a.now().UTC().Hour(); hour < 6 || hour > 22 {
		factors["timing"] = riskOffHours
	}

	overall := 0.0
	for _, v := range factors {
		overall += v
	}
	overall = clamp01(overall)

	rec := domain.RecommendProceed
	if overall > rejectThreshold {
		rec = domain.RecommendReject
	} else if overall > reduceThreshold {
		rec = domain.RecommendReduceSize
	}

	return &domain.RiskAssessment{
		Overall:        overall,
		Factors:        factors,
		Recommendation: rec,
	}
}

// AssessPortfolioRisk evaluates the portfolio-wide exposure. On
// internal failure it returns level ERROR instead of panicking.
func (a *RiskAssessor) AssessPortfolioRisk(positions []*domain.Position, walletBalance float64) (out *domain.PortfolioRisk) {
	defer func() {
		if r := recover(); r != nil {
			out = &domain.PortfolioRisk{
				Level:    domain.RiskError,
				Warnings: []string{fmt.Sprintf("portfolio risk calculation failed: %v", r)},
			}
		}
	}()

	risk := &domain.PortfolioRisk{Level: domain.RiskLow}

	totalPositionValue := 0.0
	byToken := make(map[string]float64)
	for _, p := range positions {
		totalPositionValue += p.Size
		byToken[p.Token] += p.Size
	}
	totalValue := walletBalance + totalPositionValue
	if totalValue > 0 {
		risk.Exposure = totalPositionValue / totalValue
	}

	if len(positions) > a.cfg.MaxOpenPositions {
		risk.Level = domain.RiskMedium
		risk.Warnings = append(risk.Warnings,
			fmt.Sprintf("%d open positions exceed the limit of %d", len(positions), a.cfg.MaxOpenPositions))
		risk.Recommendations = append(risk.Recommendations, "Close weakest positions before opening new ones")
	}

	for _, p := range positions {
		if p.Size > a.cfg.MaxPositionSize {
			risk.Level = domain.RiskMedium
			risk.Warnings = append(risk.Warnings,
				fmt.Sprintf("position %s size %.2f exceeds max position size %.2f", p.Token, p.Size, a.cfg.MaxPositionSize))
		}
	}

	if risk.Exposure > a.cfg.MaxPortfolioRisk {
		risk.Level = domain.RiskHigh
		risk.Warnings = append(risk.Warnings,
			fmt.Sprintf("exposure %.0f%% exceeds max portfolio risk %.0f%%", risk.Exposure*100, a.cfg.MaxPortfolioRisk*100))
		risk.Recommendations = append(risk.Recommendations, "Reduce exposure before accepting new trades")
	}

	if totalPositionValue > 0 {
		for token, size := range byToken {
			if size/totalPositionValue > 0.30 {
				risk.Level = domain.RiskHigh
				risk.Warnings = append(risk.Warnings,
					fmt.Sprintf("token %s holds %.0f%% of open position value", token, size/totalPositionValue*100))
				risk.Recommendations = append(risk.Recommendations, "Diversify across more tokens")
				break
			}
		}
	}

	return risk
}

// ShouldEmergencyStop checks the portfolio-wide circuit breaker.
// Multiple reasons may co-occur; all are reported. Triggering only
// blocks new acceptances, it never force-closes open positions.
func (a *RiskAssessor) ShouldEmergencyStop(dailyPnL, totalPnL, portfolioValue float64, consecutiveLosses int) *domain.EmergencyStop {
	stop := &domain.EmergencyStop{}
	if portfolioValue > 0 {
		if frac := math.Abs(dailyPnL) / portfolioValue; frac > a.cfg.EmergencyStopLoss {
			stop.ShouldStop = true
			stop.Reasons = append(stop.Reasons,
				fmt.Sprintf("daily PnL swing %.1f%% exceeds the %.0f%% emergency stop threshold", frac*100, a.cfg.EmergencyStopLoss*100))
		}
		if frac := math.Abs(totalPnL) / portfolioValue; frac > totalDrawdownLimit {
			stop.ShouldStop = true
			stop.Reasons = append(stop.Reasons,
				fmt.Sprintf("total PnL swing %.1f%% exceeds the %.0f%% limit", frac*100, totalDrawdownLimit*100))
		}
	}
	if consecutiveLosses > maxConsecutiveLosses {
		stop.ShouldStop = true
		stop.Reasons = append(stop.Reasons,
			fmt.Sprintf("%d consecutive losing trades", consecutiveLosses))
	}
	return stop
}

// ValidateStopLoss checks that the stop distance from entry lies in
// the [2%, 20%] band. Both boundaries are valid.
func (a *RiskAssessor) ValidateStopLoss(entry, stopLoss float64) *domain.StopLossCheck {
	if entry <= 0 || stopLoss <= 0 || math.IsNaN(entry) || math.IsNaN(stopLoss) {
		return &domain.StopLossCheck{Recommendation: "increase"}
	}
	pct := math.Abs(entry-stopLoss) / entry
	check := &domain.StopLossCheck{Percentage: pct * 100}
	switch {
	case pct < stopLossMinPct-stopLossEps:
		check.Recommendation = "increase"
	case pct > stopLossMaxPct+stopLossEps:
		check.Recommendation = "decrease"
	default:
		check.IsValid = true
	}
	return check
}

func hasCorrelatedPosition(token string, open []*domain.Position) bool {
	family := memeFamily(token)
	for _, p := range open {
		if strings.EqualFold(p.Token, token) {
			return true
		}
		if family != "" && memeFamily(p.Token) == family {
			return true
		}
	}
	return false
}

func memeFamily(token string) string {
	lower := strings.ToLower(token)
	for _, kw := range memeFamilies {
		if strings.Contains(lower, kw) {
			return kw
		}
	}
	return ""
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
