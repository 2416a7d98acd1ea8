package usecase

import "github.com/vitos/meme_trade_engine/internal/domain"

// PositionSizer turns confidence and risk into a bounded position
// size. Pure, total, deterministic.
type PositionSizer struct {
	cfg Config
}

func NewPositionSizer(cfg Config) *PositionSizer {
	return &PositionSizer{cfg: cfg}
}

// rawSize is the size before the minimum floor: confidence scales the
// max position size, the risk score shaves it, and the per-trade
// portfolio cap bounds it.
func (s *PositionSizer) rawSize(confidence, riskOverall, portfolioValue float64) float64 {
	base := s.cfg.MaxPositionSize * clamp01(confidence)
	size := base * (1 - clamp01(riskOverall))
	if limit := s.cfg.PerTradeCap(portfolioValue); size > limit {
		size = limit
	}
	return size
}

// CalculatePositionSize returns the bounded size in currency units,
// floored at the configured minimum tradable size.
func (s *PositionSizer) CalculatePositionSize(confidence float64, risk *domain.RiskAssessment, portfolioValue float64) float64 {
	size := s.rawSize(confidence, risk.Overall, portfolioValue)
	if size < s.cfg.MinPositionSize {
		size = s.cfg.MinPositionSize
	}
	return size
}

// MeetsMinimum reports whether the unfloored size is tradable. The
// evaluator rejects opportunities whose natural size falls below the
// minimum rather than padding them up to it.
func (s *PositionSizer) MeetsMinimum(confidence float64, risk *domain.RiskAssessment, portfolioValue float64) bool {
	return s.rawSize(confidence, risk.Overall, portfolioValue) >= s.cfg.MinPositionSize
}
