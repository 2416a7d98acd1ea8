package paper

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"github.com/vitos/meme_trade_engine/internal/domain"
)

var demoTokens = []string{
	"DOGEMOON", "SHIBAX", "PEPECLASSIC", "FLOKIGOLD", "BONKZILLA",
	"CATWIFHAT", "ELONMARS", "FROGKING", "BABYDOGE2", "MOONRAKER",
}

// SignalGenerator fabricates candidate opportunities off the random
// walk oracle, for demo/paper mode.
type SignalGenerator struct {
	mu     sync.Mutex
	rng    *rand.Rand
	oracle *RandomWalkOracle
}

func NewSignalGenerator(seed int64, oracle *RandomWalkOracle) *SignalGenerator {
	return &SignalGenerator{
		rng:    rand.New(rand.NewSource(seed)),
		oracle: oracle,
	}
}

func (g *SignalGenerator) Scan(ctx context.Context) ([]*domain.Opportunity, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	n := g.rng.Intn(3) // 0..2 candidates per scan
	opps := make([]*domain.Opportunity, 0, n)
	for i := 0; i < n; i++ {
		token := demoTokens[g.rng.Intn(len(demoTokens))]
		price, err := g.oracle.Price(ctx, token)
		if err != nil {
			return opps, fmt.Errorf("seed price for %s: %w", token, err)
		}
		opps = append(opps, &domain.Opportunity{
			Token:          token,
			EntryPrice:     price,
			StopLoss:       price * (1 - 0.03 - 0.10*g.rng.Float64()),
			TakeProfit:     price * (1 + 0.05 + 0.25*g.rng.Float64()),
			Confidence:     0.3 + 0.7*g.rng.Float64(),
			MarketCap:      25_000 + g.rng.Float64()*5_000_000,
			Volume24h:      10_000 + g.rng.Float64()*500_000,
			PriceChange24h: -80 + g.rng.Float64()*160,
		})
	}
	return opps, nil
}

// SentimentFeed is a slowly drifting sentiment value in [-1, 1].
type SentimentFeed struct {
	mu    sync.Mutex
	rng   *rand.Rand
	value float64
}

func NewSentimentFeed(seed int64) *SentimentFeed {
	return &SentimentFeed{rng: rand.New(rand.NewSource(seed))}
}

func (f *SentimentFeed) Sentiment(ctx context.Context) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.value += (f.rng.Float64() - 0.5) * 0.2
	if f.value > 1 {
		f.value = 1
	}
	if f.value < -1 {
		f.value = -1
	}
	return f.value, nil
}
