// Package paper provides deterministic-seedable demo collaborators.
// All randomness of paper mode lives here, behind the collaborator
// interfaces; the decision core itself never draws random numbers.
package paper

import (
	"context"
	"math/rand"
	"sync"

	"github.com/vitos/meme_trade_engine/internal/domain"
)

// RandomWalkOracle simulates mark prices as a geometric random walk.
type RandomWalkOracle struct {
	mu     sync.Mutex
	rng    *rand.Rand
	prices map[string]float64
	drift  float64
	vol    float64
}

func NewRandomWalkOracle(seed int64) *RandomWalkOracle {
	return &RandomWalkOracle{
		rng:    rand.New(rand.NewSource(seed)),
		prices: make(map[string]float64),
		drift:  0.0002,
		vol:    0.02,
	}
}

// Seed registers a starting price for a token. Unknown tokens get a
// price of 1.0 on first use.
func (o *RandomWalkOracle) Seed(token string, price float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.prices[token] = price
}

func (o *RandomWalkOracle) Price(ctx context.Context, token string) (float64, error) {
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	default:
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	price, ok := o.prices[token]
	if !ok {
		price = 1.0
	}
	price *= 1 + o.drift + o.vol*o.rng.NormFloat64()
	if price <= 0 {
		price = 0.000001
	}
	o.prices[token] = price
	return price, nil
}

// Venue is a no-op execution venue for paper trading: decisions are
// acknowledged without touching any exchange.
type Venue struct{}

func NewVenue() *Venue {
	return &Venue{}
}

func (v *Venue) Execute(ctx context.Context, decision *domain.Decision) error {
	return nil
}

func (v *Venue) ClosePosition(ctx context.Context, position *domain.Position, exitPrice float64) error {
	return nil
}
