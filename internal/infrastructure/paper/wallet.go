package paper

import (
	"context"
	"fmt"
	"sync"
)

// Wallet is an in-memory cash balance for paper trading and backtests.
type Wallet struct {
	mu   sync.Mutex
	cash float64
}

func NewWallet(initialCash float64) *Wallet {
	return &Wallet{cash: initialCash}
}

func (w *Wallet) Balance(ctx context.Context) (float64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cash, nil
}

func (w *Wallet) Debit(ctx context.Context, amount float64) error {
	if amount < 0 {
		return fmt.Errorf("negative debit %.2f", amount)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if amount > w.cash {
		return fmt.Errorf("insufficient cash: need %.2f, have %.2f", amount, w.cash)
	}
	w.cash -= amount
	return nil
}

func (w *Wallet) Credit(ctx context.Context, amount float64) error {
	if amount < 0 {
		return fmt.Errorf("negative credit %.2f", amount)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.cash += amount
	return nil
}
