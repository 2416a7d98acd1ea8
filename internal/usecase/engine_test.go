package usecase_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitos/meme_trade_engine/internal/domain"
	"github.com/vitos/meme_trade_engine/internal/usecase"
)

type engineFixture struct {
	engine    *usecase.TradingEngine
	oracle    *mockOracle
	wallet    *mockWallet
	venue     *mockVenue
	repo      *mockRepo
	alerter   *mockAlerter
	signals   *mockSignals
	sentiment *mockSentiment
}

func newEngineFixture(t *testing.T, cash float64) *engineFixture {
	t.Helper()
	f := &engineFixture{
		oracle:    newMockOracle(),
		wallet:    &mockWallet{cash: cash},
		venue:     &mockVenue{},
		repo:      &mockRepo{},
		alerter:   &mockAlerter{},
		signals:   &mockSignals{},
		sentiment: &mockSentiment{},
	}
	f.engine = usecase.NewTradingEngine(
		usecase.DefaultConfig(),
		f.signals, f.sentiment, f.oracle, f.wallet, f.venue, f.repo, f.alerter, nil,
	)
	return f
}

func TestTick_OpenAndCloseRoundTrip(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(t, 1000)

	f.signals.Push(cleanOpportunity())
	require.NoError(t, f.engine.Tick(ctx))

	positions := f.engine.Positions()
	require.Len(t, positions, 1)
	p := positions[0]
	assert.Equal(t, "TURBO", p.Token)
	// Per-trade cap on a 1000 portfolio binds the size at 20.
	assert.InDelta(t, 20, p.Size, 1e-9)

	cash, _ := f.wallet.Balance(ctx)
	assert.InDelta(t, 980, cash, 1e-9)

	// Next tick the oracle marks the token through the stop.
	f.oracle.Set("TURBO", 0.94)
	require.NoError(t, f.engine.Tick(ctx))

	assert.Empty(t, f.engine.Positions())
	require.Len(t, f.alerter.ClosedRecords, 1)
	rec := f.alerter.ClosedRecords[0]
	assert.Equal(t, domain.CloseStopLoss, rec.CloseReason)
	assert.InDelta(t, -1.2, rec.PnL, 1e-9)
	assert.InDelta(t, -1.2, f.engine.TotalPnL(), 1e-9)

	stats := f.engine.Stats()
	assert.Equal(t, uint64(2), stats.Ticks)
	assert.Equal(t, uint64(1), stats.Evaluated)
	assert.Equal(t, uint64(1), stats.Accepted)
	assert.Equal(t, uint64(1), stats.Closed)
	assert.Len(t, f.repo.Snapshots, 2)
}

func TestTick_RejectionIsCounted(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(t, 1000)

	opp := cleanOpportunity()
	opp.MarketCap = 50_000
	opp.Volume24h = 20_000
	opp.PriceChange24h = 60
	f.signals.Push(opp)

	require.NoError(t, f.engine.Tick(ctx))

	assert.Empty(t, f.engine.Positions())
	stats := f.engine.Stats()
	assert.Equal(t, uint64(1), stats.Evaluated)
	assert.Equal(t, uint64(1), stats.Rejected)
	assert.Equal(t, uint64(0), stats.Accepted)
}

func TestTick_OracleFailureSkipsPosition(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(t, 1000)

	f.signals.Push(cleanOpportunity())
	require.NoError(t, f.engine.Tick(ctx))
	require.Len(t, f.engine.Positions(), 1)

	// No price configured for the token: the position survives the
	// tick untouched and the failure is counted.
	require.NoError(t, f.engine.Tick(ctx))
	assert.Len(t, f.engine.Positions(), 1)
	assert.Greater(t, f.engine.Stats().CollaboratorErrors, uint64(0))
}

func TestStop_BlocksNewAcceptanceKeepsOpenPositions(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(t, 1000)

	f.signals.Push(cleanOpportunity())
	require.NoError(t, f.engine.Tick(ctx))
	require.Len(t, f.engine.Positions(), 1)

	f.engine.Stop()

	opp := cleanOpportunity()
	opp.Token = "SPONGE"
	f.signals.Push(opp)
	f.oracle.Set("TURBO", 1.01)
	require.NoError(t, f.engine.Tick(ctx))

	// Still exactly one position, still open: Stop never touches the
	// open set and never accepts new decisions.
	positions := f.engine.Positions()
	require.Len(t, positions, 1)
	assert.Equal(t, "TURBO", positions[0].Token)
	assert.True(t, f.engine.Stats().Stopped)
}

func TestCloseManual_ThroughEngine(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(t, 1000)

	f.signals.Push(cleanOpportunity())
	require.NoError(t, f.engine.Tick(ctx))
	id := f.engine.Positions()[0].ID

	rec, err := f.engine.CloseManual(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, domain.CloseManual, rec.CloseReason)
	assert.Empty(t, f.engine.Positions())
	require.Len(t, f.alerter.ClosedRecords, 1)

	rec, err = f.engine.CloseManual(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, rec)
	assert.Len(t, f.alerter.ClosedRecords, 1)
}

func TestReport_ThroughEngine(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(t, 1000)

	f.signals.Push(cleanOpportunity())
	require.NoError(t, f.engine.Tick(ctx))
	f.oracle.Set("TURBO", 1.20)
	require.NoError(t, f.engine.Tick(ctx))

	report := f.engine.Report()
	require.NotNil(t, report)
	assert.Equal(t, 1, report.Profitability.ClosedTrades)
	assert.True(t, report.Profitability.ProfitFactor.IsInfinite())
}
