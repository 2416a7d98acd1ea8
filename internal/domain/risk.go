package domain

type Recommendation string

const (
	RecommendProceed    Recommendation = "PROCEED"
	RecommendReduceSize Recommendation = "REDUCE_SIZE"
	RecommendReject     Recommendation = "REJECT"
)

// RiskAssessment is the additive risk score for one candidate trade.
// Overall is in [0,1] and increases with danger.
type RiskAssessment struct {
	Overall        float64            `json:"overall"`
	Factors        map[string]float64 `json:"factors"`
	Recommendation Recommendation     `json:"recommendation"`
}

type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
	RiskError  RiskLevel = "ERROR"
)

// PortfolioRisk is the portfolio-wide exposure assessment.
type PortfolioRisk struct {
	Level           RiskLevel `json:"level"`
	Exposure        float64   `json:"exposure"` // open size / total value
	Warnings        []string  `json:"warnings"`
	Recommendations []string  `json:"recommendations"`
}

// EmergencyStop is the circuit-breaker check result. It only blocks new
// acceptances; it never force-closes open positions.
type EmergencyStop struct {
	ShouldStop bool     `json:"should_stop"`
	Reasons    []string `json:"reasons"`
}

// StopLossCheck reports whether a stop-loss distance is inside the
// allowed band.
type StopLossCheck struct {
	IsValid        bool    `json:"is_valid"`
	Percentage     float64 `json:"percentage"` // distance from entry, percent
	Recommendation string  `json:"recommendation,omitempty"`
}
