package ledger

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

// MemoryLedger starts every unknown player at a default balance.
type MemoryLedger struct {
	mu             sync.Mutex
	defaultBalance int64
	balances       map[string]int64
}

func NewMemoryLedger(defaultBalance int64) *MemoryLedger {
	return &MemoryLedger{
		defaultBalance: defaultBalance,
		balances:       make(map[string]int64),
	}
}

func (m *MemoryLedger) balance(playerID string) int64 {
	b, ok := m.balances[playerID]
	if !ok {
		b = m.defaultBalance
		m.balances[playerID] = b
	}
	return b
}

func (m *MemoryLedger) Balance(ctx context.Context, playerID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balance(playerID), nil
}

func (m *MemoryLedger) Debit(ctx context.Context, playerID string, amount int64) error {
	if amount < 0 {
		return errors.Wrapf(ErrInvalidAmount, "debit %d", amount)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	b := m.balance(playerID)
	if b < amount {
		return errors.Wrapf(ErrInsufficientBalance, "player %s has %d, needs %d", playerID, b, amount)
	}
	m.balances[playerID] = b - amount
	return nil
}

func (m *MemoryLedger) Credit(ctx context.Context, playerID string, amount int64) error {
	if amount < 0 {
		return errors.Wrapf(ErrInvalidAmount, "credit %d", amount)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[playerID] = m.balance(playerID) + amount
	return nil
}

// SetBalance overrides a player's balance.
func (m *MemoryLedger) SetBalance(playerID string, amount int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[playerID] = amount
}
