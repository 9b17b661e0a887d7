package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/outlet-rewards/internal/domain/wallet"
)

const (
	getBalanceSQL = `SELECT balance FROM wallets WHERE user_id = $1`

	debitBonusSQL = `UPDATE wallets SET balance = balance - $2
		WHERE user_id = $1 AND balance >= $2`

	creditPointsSQL = `INSERT INTO wallets (user_id, points) VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET points = wallets.points + EXCLUDED.points`

	setBalanceSQL = `INSERT INTO wallets (user_id, balance) VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET balance = EXCLUDED.balance`
)

var _ wallet.Ledger = (*WalletLedger)(nil)

// WalletLedger implements wallet.Ledger backed by PostgreSQL.
type WalletLedger struct {
	db dbtx
}

// NewWalletLedger returns a WalletLedger that uses the given pool.
func NewWalletLedger(pool *pgxpool.Pool) *WalletLedger {
	return &WalletLedger{db: pool}
}

// Balance returns the bonus balance, zero for users without a wallet.
func (l *WalletLedger) Balance(ctx context.Context, userID string) (decimal.Decimal, error) {
	var balance decimal.Decimal
	if err := l.db.QueryRow(ctx, getBalanceSQL, userID).Scan(&balance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, nil
		}
		return decimal.Zero, fmt.Errorf("getting balance of %q: %w", userID, err)
	}
	return balance, nil
}

// DebitBonus subtracts amount in a single conditional update.
func (l *WalletLedger) DebitBonus(ctx context.Context, userID string, amount decimal.Decimal) error {
	tag, err := l.db.Exec(ctx, debitBonusSQL, userID, amount)
	if err != nil {
		return fmt.Errorf("debiting bonus of %q: %w", userID, err)
	}
	if tag.RowsAffected() == 0 {
		return errors.Wrapf(wallet.ErrInsufficientBalance, "debit %s from %q", amount.StringFixed(2), userID)
	}
	return nil
}

// CreditPoints adds earned points, creating the wallet when needed.
func (l *WalletLedger) CreditPoints(ctx context.Context, userID string, points int64) error {
	if _, err := l.db.Exec(ctx, creditPointsSQL, userID, points); err != nil {
		return fmt.Errorf("crediting points to %q: %w", userID, err)
	}
	return nil
}

// SetBalance overwrites the bonus balance. Used by seeding.
func (l *WalletLedger) SetBalance(ctx context.Context, userID string, balance decimal.Decimal) error {
	if _, err := l.db.Exec(ctx, setBalanceSQL, userID, balance); err != nil {
		return fmt.Errorf("setting balance of %q: %w", userID, err)
	}
	return nil
}
