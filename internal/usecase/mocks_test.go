package usecase_test

import (
	"context"
	"fmt"
	"sync"

	"github.com/vitos/meme_trade_engine/internal/domain"
)

type mockOracle struct {
	mu     sync.Mutex
	prices map[string]float64
}

func newMockOracle() *mockOracle {
	return &mockOracle{prices: make(map[string]float64)}
}

func (m *mockOracle) Set(token string, price float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prices[token] = price
}

func (m *mockOracle) Price(ctx context.Context, token string) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	price, ok := m.prices[token]
	if !ok {
		return 0, fmt.Errorf("no price for %s", token)
	}
	return price, nil
}

type mockWallet struct {
	mu   sync.Mutex
	cash float64
}

func (m *mockWallet) Balance(ctx context.Context) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cash, nil
}

func (m *mockWallet) Debit(ctx context.Context, amount float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if amount > m.cash {
		return fmt.Errorf("insufficient cash")
	}
	m.cash -= amount
	return nil
}

func (m *mockWallet) Credit(ctx context.Context, amount float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cash += amount
	return nil
}

type mockVenue struct {
	Executed []*domain.Decision
	Closed   []*domain.Position
	FailNext bool
}

func (m *mockVenue) Execute(ctx context.Context, d *domain.Decision) error {
	if m.FailNext {
		m.FailNext = false
		return fmt.Errorf("venue unavailable")
	}
	m.Executed = append(m.Executed, d)
	return nil
}

func (m *mockVenue) ClosePosition(ctx context.Context, p *domain.Position, exitPrice float64) error {
	m.Closed = append(m.Closed, p)
	return nil
}

type mockSignals struct {
	mu   sync.Mutex
	next []*domain.Opportunity
}

func (m *mockSignals) Push(opps ...*domain.Opportunity) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next = append(m.next, opps...)
}

func (m *mockSignals) Scan(ctx context.Context) ([]*domain.Opportunity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	opps := m.next
	m.next = nil
	return opps, nil
}

type mockSentiment struct {
	value float64
}

func (m *mockSentiment) Sentiment(ctx context.Context) (float64, error) {
	return m.value, nil
}

type mockAlerter struct {
	mu             sync.Mutex
	EmergencyStops [][]string
	HighRisks      []*domain.PortfolioRisk
	ClosedRecords  []*domain.TradeRecord
}

func (m *mockAlerter) EmergencyStop(reasons []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.EmergencyStops = append(m.EmergencyStops, reasons)
}

func (m *mockAlerter) HighRisk(risk *domain.PortfolioRisk) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.HighRisks = append(m.HighRisks, risk)
}

func (m *mockAlerter) PositionClosed(record *domain.TradeRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ClosedRecords = append(m.ClosedRecords, record)
}

type mockRepo struct {
	mu        sync.Mutex
	Records   []*domain.TradeRecord
	Snapshots []*domain.PortfolioSnapshot
}

func (m *mockRepo) SaveTradeRecord(ctx context.Context, r *domain.TradeRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Records = append(m.Records, r)
	return nil
}

func (m *mockRepo) ListTradeRecords(ctx context.Context, limit int) ([]*domain.TradeRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Records, nil
}

func (m *mockRepo) SaveSnapshot(ctx context.Context, s *domain.PortfolioSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Snapshots = append(m.Snapshots, s)
	return nil
}

func (m *mockRepo) ListSnapshots(ctx context.Context, limit int) ([]*domain.PortfolioSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Snapshots, nil
}
