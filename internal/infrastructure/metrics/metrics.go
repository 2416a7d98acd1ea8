// Package metrics exposes engine state to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vitos/meme_trade_engine/internal/usecase"
)

// EngineCollector reads engine counters on scrape; the engine itself
// stays free of metrics plumbing.
type EngineCollector struct {
	engine *usecase.TradingEngine

	ticks         *prometheus.Desc
	evaluated     *prometheus.Desc
	accepted      *prometheus.Desc
	rejected      *prometheus.Desc
	closed        *prometheus.Desc
	collabErrors  *prometheus.Desc
	openPositions *prometheus.Desc
	exposure      *prometheus.Desc
	totalPnL      *prometheus.Desc
	emergencyStop *prometheus.Desc
	halted        *prometheus.Desc
}

func NewEngineCollector(engine *usecase.TradingEngine) *EngineCollector {
	return &EngineCollector{
		engine: engine,
		ticks: prometheus.NewDesc("trade_engine_ticks_total",
			"Number of engine ticks executed", nil, nil),
		evaluated: prometheus.NewDesc("trade_engine_opportunities_evaluated_total",
			"Number of opportunities evaluated", nil, nil),
		accepted: prometheus.NewDesc("trade_engine_decisions_accepted_total",
			"Number of accepted decisions", nil, nil),
		rejected: prometheus.NewDesc("trade_engine_decisions_rejected_total",
			"Number of rejected opportunities", nil, nil),
		closed: prometheus.NewDesc("trade_engine_positions_closed_total",
			"Number of positions closed", nil, nil),
		collabErrors: prometheus.NewDesc("trade_engine_collaborator_errors_total",
			"Number of degraded collaborator calls", nil, nil),
		openPositions: prometheus.NewDesc("trade_engine_open_positions",
			"Current number of open positions", nil, nil),
		exposure: prometheus.NewDesc("trade_engine_exposure",
			"Sum of open position sizes in currency units", nil, nil),
		totalPnL: prometheus.NewDesc("trade_engine_total_pnl",
			"Realized PnL since process start", nil, nil),
		emergencyStop: prometheus.NewDesc("trade_engine_emergency_stop",
			"1 when the emergency stop is engaged", nil, nil),
		halted: prometheus.NewDesc("trade_engine_halted",
			"1 when acceptance is halted after a fatal error", nil, nil),
	}
}

func (c *EngineCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.ticks
	ch <- c.evaluated
	ch <- c.accepted
	ch <- c.rejected
	ch <- c.closed
	ch <- c.collabErrors
	ch <- c.openPositions
	ch <- c.exposure
	ch <- c.totalPnL
	ch <- c.emergencyStop
	ch <- c.halted
}

func (c *EngineCollector) Collect(ch chan<- prometheus.Metric) {
	stats := c.engine.Stats()

	ch <- prometheus.MustNewConstMetric(c.ticks, prometheus.CounterValue, float64(stats.Ticks))
	ch <- prometheus.MustNewConstMetric(c.evaluated, prometheus.CounterValue, float64(stats.Evaluated))
	ch <- prometheus.MustNewConstMetric(c.accepted, prometheus.CounterValue, float64(stats.Accepted))
	ch <- prometheus.MustNewConstMetric(c.rejected, prometheus.CounterValue, float64(stats.Rejected))
	ch <- prometheus.MustNewConstMetric(c.closed, prometheus.CounterValue, float64(stats.Closed))
	ch <- prometheus.MustNewConstMetric(c.collabErrors, prometheus.CounterValue, float64(stats.CollaboratorErrors))
	ch <- prometheus.MustNewConstMetric(c.openPositions, prometheus.GaugeValue, float64(len(c.engine.Positions())))
	ch <- prometheus.MustNewConstMetric(c.exposure, prometheus.GaugeValue, c.engine.Exposure())
	ch <- prometheus.MustNewConstMetric(c.totalPnL, prometheus.GaugeValue, c.engine.TotalPnL())
	ch <- prometheus.MustNewConstMetric(c.emergencyStop, prometheus.GaugeValue, boolGauge(stats.EmergencyStop))
	ch <- prometheus.MustNewConstMetric(c.halted, prometheus.GaugeValue, boolGauge(stats.Halted))
}

func boolGauge(v bool) float64 {
	if v {
		return 1
	}
	return 0
}

// Handler registers the collector on its own registry and returns the
// scrape handler.
func Handler(engine *usecase.TradingEngine) (http.Handler, error) {
	registry := prometheus.NewRegistry()
	if err := registry.Register(NewEngineCollector(engine)); err != nil {
		return nil, err
	}
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{}), nil
}
