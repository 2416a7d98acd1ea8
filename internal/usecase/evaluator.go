package usecase

import (
	"go.uber.org/zap"

	"github.com/vitos/meme_trade_engine/internal/domain"
)

const defaultStopLossPct = 0.05

// Evaluation is the outcome of scoring one opportunity. Rejections
// are not errors; RejectReasons explains them.
type Evaluation struct {
	Accepted      bool
	Decision      *domain.Decision
	Risk          *domain.RiskAssessment
	RejectReasons []string
}

// OpportunityEvaluator orchestrates the risk assessor and the sizer
// against one candidate opportunity. It performs no mutation and is
// safe to invoke concurrently for independent opportunities.
type OpportunityEvaluator struct {
	cfg      Config
	assessor *RiskAssessor
	sizer    *PositionSizer
	logger   *zap.Logger
}

func NewOpportunityEvaluator(cfg Config, assessor *RiskAssessor, logger *zap.Logger) *OpportunityEvaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OpportunityEvaluator{
		cfg:      cfg,
		assessor: assessor,
		sizer:    NewPositionSizer(cfg),
		logger:   logger,
	}
}

// Evaluate runs the full accept/resize/reject pipeline for one
// opportunity against the current portfolio state.
func (e *OpportunityEvaluator) Evaluate(
	opp *domain.Opportunity,
	sentiment float64,
	open []*domain.Position,
	portfolioValue float64,
	emergencyStop bool,
) *Evaluation {
	if emergencyStop {
		return &Evaluation{RejectReasons: []string{"Emergency stop active"}}
	}

	risk := e.assessor.AssessTradeRisk(opp, open, portfolioValue)
	if risk.Recommendation == domain.RecommendReject {
		e.logger.Debug("opportunity rejected by risk assessment",
			zap.String("token", opp.Token),
			zap.Float64("risk", risk.Overall))
		return &Evaluation{Risk: risk, RejectReasons: []string{"Risk assessment rejected trade"}}
	}

	adjusted := clamp01(opp.Confidence * sentimentMultiplier(sentiment))

	if !e.sizer.MeetsMinimum(adjusted, risk, portfolioValue) {
		return &Evaluation{Risk: risk, RejectReasons: []string{"Position size below minimum"}}
	}
	size := e.sizer.CalculatePositionSize(adjusted, risk, portfolioValue)

	// Portfolio invariant, enforced at acceptance time only.
	openSize := 0.0
	for _, p := range open {
		openSize += p.Size
	}
	if portfolioValue > 0 && (openSize+size)/portfolioValue > e.cfg.MaxPortfolioRisk {
		return &Evaluation{Risk: risk, RejectReasons: []string{"Portfolio exposure limit reached"}}
	}

	reasons := make([]string, 0, 4)
	stopLoss := opp.StopLoss
	if check := e.assessor.ValidateStopLoss(opp.EntryPrice, stopLoss); !check.IsValid {
		stopLoss = opp.EntryPrice * (1 - defaultStopLossPct)
		reasons = append(reasons, "Stop loss adjusted to 5% default")
	}

	if opp.Confidence >= 0.8 {
		reasons = append(reasons, "High confidence signal")
	}
	if sentiment > 0.3 {
		reasons = append(reasons, "Bullish market sentiment")
	} else if sentiment < -0.3 {
		reasons = append(reasons, "Bearish market sentiment")
	}
	if risk.Overall <= 0.2 {
		reasons = append(reasons, "Low risk profile")
	}
	if risk.Recommendation == domain.RecommendReduceSize {
		reasons = append(reasons, "Size reduced for elevated risk")
	}

	decision := &domain.Decision{
		Action:     domain.ActionBuy,
		Token:      opp.Token,
		Size:       size,
		EntryPrice: opp.EntryPrice,
		StopLoss:   stopLoss,
		TakeProfit: opp.TakeProfit,
		Confidence: adjusted,
		RiskScore:  risk.Overall,
		Reasons:    reasons,
	}
	return &Evaluation{Accepted: true, Decision: decision, Risk: risk}
}

// sentimentMultiplier scales confidence by the current market mood.
func sentimentMultiplier(sentiment float64) float64 {
	switch {
	case sentiment > 0.3:
		return 1.2
	case sentiment > 0.1:
		return 1.1
	case sentiment < -0.3:
		return 0.8
	case sentiment < -0.1:
		return 0.9
	default:
		return 1.0
	}
}
