package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vitos/meme_trade_engine/internal/domain"
	"github.com/vitos/meme_trade_engine/internal/usecase"
)

type stubWallet struct{ cash float64 }

func (s *stubWallet) Balance(ctx context.Context) (float64, error) { return s.cash, nil }
func (s *stubWallet) Debit(ctx context.Context, amount float64) error {
	if amount > s.cash {
		return fmt.Errorf("insufficient cash")
	}
	s.cash -= amount
	return nil
}
func (s *stubWallet) Credit(ctx context.Context, amount float64) error {
	s.cash += amount
	return nil
}

type stubOracle struct{}

func (stubOracle) Price(ctx context.Context, token string) (float64, error) {
	return 0, fmt.Errorf("no price")
}

type stubSignals struct{ opps []*domain.Opportunity }

func (s *stubSignals) Scan(ctx context.Context) ([]*domain.Opportunity, error) {
	opps := s.opps
	s.opps = nil
	return opps, nil
}

type stubSentiment struct{}

func (stubSentiment) Sentiment(ctx context.Context) (float64, error) { return 0, nil }

type stubVenue struct{}

func (stubVenue) Execute(ctx context.Context, d *domain.Decision) error { return nil }
func (stubVenue) ClosePosition(ctx context.Context, p *domain.Position, exitPrice float64) error {
	return nil
}

func newTestServer(t *testing.T) (*Server, *usecase.TradingEngine, *stubSignals) {
	t.Helper()
	signals := &stubSignals{}
	engine := usecase.NewTradingEngine(
		usecase.DefaultConfig(),
		signals, stubSentiment{}, stubOracle{}, &stubWallet{cash: 1000},
		stubVenue{}, nil, nil, zap.NewNop(),
	)
	return NewServer(0, engine, nil, nil, zap.NewNop()), engine, signals
}

func (s *Server) do(t *testing.T, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, httptest.NewRequest(method, target, nil))
	return rr
}

func openOne(t *testing.T, engine *usecase.TradingEngine, signals *stubSignals) string {
	t.Helper()
	signals.opps = []*domain.Opportunity{{
		Token:          "TURBO",
		EntryPrice:     1.0,
		StopLoss:       0.95,
		TakeProfit:     1.15,
		Confidence:     0.9,
		MarketCap:      5_000_000,
		Volume24h:      500_000,
		PriceChange24h: 5,
	}}
	require.NoError(t, engine.Tick(context.Background()))
	positions := engine.Positions()
	require.Len(t, positions, 1)
	return positions[0].ID
}

func TestListPositions(t *testing.T) {
	srv, engine, signals := newTestServer(t)
	openOne(t, engine, signals)

	rr := srv.do(t, http.MethodGet, "/positions")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var positions []*domain.Position
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &positions))
	require.Len(t, positions, 1)
	assert.Equal(t, "TURBO", positions[0].Token)
}

func TestClosePosition(t *testing.T) {
	srv, engine, signals := newTestServer(t)
	id := openOne(t, engine, signals)

	rr := srv.do(t, http.MethodPost, "/positions/"+id+"/close")
	require.Equal(t, http.StatusOK, rr.Code)

	var rec domain.TradeRecord
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rec))
	assert.Equal(t, domain.CloseManual, rec.CloseReason)
	assert.Empty(t, engine.Positions())

	// Closing again is a 404, not an error.
	rr = srv.do(t, http.MethodPost, "/positions/"+id+"/close")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestTradesReportRiskStatus(t *testing.T) {
	srv, engine, signals := newTestServer(t)
	id := openOne(t, engine, signals)
	_, err := engine.CloseManual(context.Background(), id)
	require.NoError(t, err)

	rr := srv.do(t, http.MethodGet, "/trades")
	require.Equal(t, http.StatusOK, rr.Code)
	var records []*domain.TradeRecord
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &records))
	assert.Len(t, records, 1)

	rr = srv.do(t, http.MethodGet, "/report")
	require.Equal(t, http.StatusOK, rr.Code)
	var report domain.PerformanceReport
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &report))
	assert.Equal(t, 1, report.Profitability.ClosedTrades)

	rr = srv.do(t, http.MethodGet, "/risk")
	require.Equal(t, http.StatusOK, rr.Code)
	var risk domain.PortfolioRisk
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &risk))
	assert.Equal(t, domain.RiskLow, risk.Level)

	rr = srv.do(t, http.MethodGet, "/status")
	require.Equal(t, http.StatusOK, rr.Code)
	var stats usecase.EngineStats
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &stats))
	assert.Equal(t, uint64(1), stats.Ticks)
}
