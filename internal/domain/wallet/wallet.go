// Package wallet tracks a user's loyalty bonus balance.
package wallet

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrInsufficientBalance is returned when a debit exceeds the stored balance.
var ErrInsufficientBalance = errors.New("insufficient bonus balance")

// Ledger reads bonus balances. Users without a row have a zero balance.
// Debits happen only as part of checkout settlement, which fails with
// ErrInsufficientBalance instead of letting a balance go negative.
type Ledger interface {
	Balance(ctx context.Context, userID string) (decimal.Decimal, error)
}
