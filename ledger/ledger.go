// Package ledger holds player balances outside of the tables. Chips on a table
// are debited from the ledger when a seat is taken and credited back on leave.
package ledger

import (
	"context"

	"github.com/pkg/errors"
)

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidAmount       = errors.New("invalid amount")
)

type Ledger interface {
	Balance(ctx context.Context, playerID string) (int64, error)
	// Debit fails with ErrInsufficientBalance without changing the balance.
	Debit(ctx context.Context, playerID string, amount int64) error
	Credit(ctx context.Context, playerID string, amount int64) error
}
