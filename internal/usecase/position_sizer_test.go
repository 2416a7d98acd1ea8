package usecase_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vitos/meme_trade_engine/internal/domain"
	"github.com/vitos/meme_trade_engine/internal/usecase"
)

func riskScore(overall float64) *domain.RiskAssessment {
	return &domain.RiskAssessment{Overall: overall}
}

func TestCalculatePositionSize(t *testing.T) {
	sizer := usecase.NewPositionSizer(usecase.DefaultConfig())

	tests := []struct {
		name           string
		confidence     float64
		risk           float64
		portfolioValue float64
		want           float64
	}{
		// base 100*0.8=80, risk shaves to 64, per-trade cap 2% of 1000
		// binds at 20.
		{"cap binds", 0.8, 0.2, 1000, 20},
		{"cap does not bind", 0.8, 0.2, 10_000, 64},
		{"full confidence no risk", 1.0, 0, 100_000, 100},
		{"zero confidence floors at minimum", 0, 0, 10_000, 10},
		{"full risk floors at minimum", 1.0, 1.0, 10_000, 10},
		{"confidence above one is clamped", 1.5, 0, 100_000, 100},
		{"negative risk is clamped", 0.5, -1, 100_000, 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sizer.CalculatePositionSize(tt.confidence, riskScore(tt.risk), tt.portfolioValue)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestMeetsMinimum(t *testing.T) {
	sizer := usecase.NewPositionSizer(usecase.DefaultConfig())

	// Natural size 2 on a 100 portfolio: tradable only after the floor,
	// so the evaluator must reject it instead.
	assert.False(t, sizer.MeetsMinimum(1.0, riskScore(0), 100))
	assert.True(t, sizer.MeetsMinimum(1.0, riskScore(0), 1000))

	// High risk shaves the raw size below minimum even with headroom.
	assert.False(t, sizer.MeetsMinimum(0.5, riskScore(0.9), 100_000))
}
