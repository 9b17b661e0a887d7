package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/outlet-rewards/internal/domain/order"
)

const createOrderSQL = `INSERT INTO orders (id, user_id, outlet_id, items, subtotal,
	voucher_discount, bonus_discount, total, voucher_code, gift, payment_method,
	points_earned, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Place stores o and settles the checkout in one transaction. The cart is
// deleted first, then the order is inserted, the bonus debited, voucher usage
// incremented and points credited. Any failure rolls every write back. A
// cart that is already gone yields cart.ErrEmptyCart, so a retried or
// concurrent checkout of the same cart cannot settle twice.
func (r *OrderRepository) Place(ctx context.Context, o *order.Order) error {
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("marshaling order items: %w", err)
	}

	err = pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := (&CartStore{db: tx}).Clear(ctx, o.UserID); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, createOrderSQL,
			o.ID, o.UserID, o.OutletID, itemsJSON, o.Subtotal,
			o.VoucherDiscount, o.BonusDiscount, o.Total, o.VoucherCode, o.Gift,
			string(o.PaymentMethod), o.PointsEarned, o.CreatedAt,
		); err != nil {
			return fmt.Errorf("creating order: %w", err)
		}

		ledger := &WalletLedger{db: tx}
		if o.BonusDiscount.IsPositive() {
			if err := ledger.DebitBonus(ctx, o.UserID, o.BonusDiscount); err != nil {
				return err
			}
		}
		if o.VoucherCode != "" {
			if err := (&VoucherRepository{db: tx}).IncrementUsage(ctx, o.VoucherCode, o.UserID); err != nil {
				return err
			}
		}
		if o.PointsEarned > 0 {
			if err := ledger.CreditPoints(ctx, o.UserID, o.PointsEarned); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return errors.Wrapf(err, "placing order %q", o.ID)
	}
	return nil
}
