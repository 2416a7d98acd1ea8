// Package alert implements the Alerter against a structured log
// journal: events land in their own file so they survive independent
// of the main process log.
package alert

import (
	"go.uber.org/zap"

	"github.com/vitos/meme_trade_engine/internal/domain"
)

type LogAlerter struct {
	logger *zap.Logger
}

func NewLogAlerter(logger *zap.Logger) *LogAlerter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogAlerter{logger: logger}
}

func (a *LogAlerter) EmergencyStop(reasons []string) {
	a.logger.Warn("EMERGENCY STOP",
		zap.Strings("reasons", reasons))
}

func (a *LogAlerter) HighRisk(risk *domain.PortfolioRisk) {
	a.logger.Warn("portfolio risk elevated",
		zap.String("level", string(risk.Level)),
		zap.Float64("exposure", risk.Exposure),
		zap.Strings("warnings", risk.Warnings))
}

func (a *LogAlerter) PositionClosed(record *domain.TradeRecord) {
	a.logger.Info("position closed",
		zap.String("position_id", record.PositionID),
		zap.String("token", record.Token),
		zap.String("reason", string(record.CloseReason)),
		zap.Float64("pnl", record.PnL),
		zap.Duration("hold_time", record.HoldTime))
}
