package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/outlet-rewards/internal/domain/cart"
	"github.com/xenking/outlet-rewards/internal/domain/pricing"
)

const (
	getCartSQL = `SELECT outlet_id, voucher_code, bonus FROM carts WHERE user_id = $1`

	listCartItemsSQL = `SELECT id, product_id, category_id, subcategory_id, unit_price, quantity
		FROM cart_items WHERE user_id = $1 ORDER BY position`

	upsertCartSQL = `INSERT INTO carts (user_id, outlet_id, voucher_code, bonus, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (user_id) DO UPDATE SET
			outlet_id = EXCLUDED.outlet_id,
			voucher_code = EXCLUDED.voucher_code,
			bonus = EXCLUDED.bonus,
			updated_at = now()`

	deleteCartItemsSQL = `DELETE FROM cart_items WHERE user_id = $1`

	insertCartItemSQL = `INSERT INTO cart_items
		(user_id, id, position, product_id, category_id, subcategory_id, unit_price, quantity)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	countOutletProductsSQL = `SELECT count(*) FROM products WHERE outlet_id = $1 AND id = ANY($2)`

	deleteCartSQL = `DELETE FROM carts WHERE user_id = $1`
)

var _ cart.Store = (*CartStore)(nil)

// CartStore implements cart.Store backed by PostgreSQL. Every Save replaces
// the cart in one transaction, so a Load after Save sees the write.
type CartStore struct {
	db dbtx
}

// NewCartStore returns a CartStore that uses the given pool.
func NewCartStore(pool *pgxpool.Pool) *CartStore {
	return &CartStore{db: pool}
}

// Load returns the stored cart, or an empty session when the user has none.
func (s *CartStore) Load(ctx context.Context, userID string) (*cart.Session, error) {
	sess := &cart.Session{UserID: userID}

	err := s.db.QueryRow(ctx, getCartSQL, userID).Scan(&sess.OutletID, &sess.VoucherCode, &sess.Bonus)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return sess, nil
		}
		return nil, fmt.Errorf("loading cart of %q: %w", userID, err)
	}

	rows, err := s.db.Query(ctx, listCartItemsSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("loading cart items of %q: %w", userID, err)
	}
	sess.Items, err = pgx.CollectRows(rows, scanCartItem)
	if err != nil {
		return nil, fmt.Errorf("loading cart items of %q: %w", userID, err)
	}
	return sess, nil
}

// Save replaces the user's cart. It returns cart.ErrOutletMismatch when an
// item's product is not sold at the session's outlet.
func (s *CartStore) Save(ctx context.Context, sess *cart.Session) error {
	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		if err := checkOutlet(ctx, tx, sess); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, upsertCartSQL, sess.UserID, sess.OutletID, sess.VoucherCode, sess.Bonus); err != nil {
			return fmt.Errorf("upserting cart: %w", err)
		}
		if _, err := tx.Exec(ctx, deleteCartItemsSQL, sess.UserID); err != nil {
			return fmt.Errorf("deleting cart items: %w", err)
		}

		batch := &pgx.Batch{}
		for i, it := range sess.Items {
			batch.Queue(insertCartItemSQL,
				sess.UserID, it.ID, i, it.ProductID, it.CategoryID, it.SubcategoryID, it.UnitPrice, it.Quantity,
			)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("inserting cart items: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, cart.ErrOutletMismatch) {
			return err
		}
		return fmt.Errorf("saving cart of %q: %w", sess.UserID, err)
	}
	return nil
}

// Clear deletes the user's cart and its items. It returns cart.ErrEmptyCart
// when there was no cart to delete.
func (s *CartStore) Clear(ctx context.Context, userID string) error {
	tag, err := s.db.Exec(ctx, deleteCartSQL, userID)
	if err != nil {
		return fmt.Errorf("clearing cart of %q: %w", userID, err)
	}
	if tag.RowsAffected() == 0 {
		return errors.Wrapf(cart.ErrEmptyCart, "no cart for %q", userID)
	}
	return nil
}

func checkOutlet(ctx context.Context, tx pgx.Tx, sess *cart.Session) error {
	if len(sess.Items) == 0 {
		return nil
	}
	ids := make(map[string]struct{}, len(sess.Items))
	list := make([]string, 0, len(sess.Items))
	for _, it := range sess.Items {
		if _, ok := ids[it.ProductID]; ok {
			continue
		}
		ids[it.ProductID] = struct{}{}
		list = append(list, it.ProductID)
	}

	var n int
	if err := tx.QueryRow(ctx, countOutletProductsSQL, sess.OutletID, list).Scan(&n); err != nil {
		return fmt.Errorf("checking cart outlet: %w", err)
	}
	if n != len(list) {
		return errors.Wrapf(cart.ErrOutletMismatch, "%d of %d products sold at outlet %q", n, len(list), sess.OutletID)
	}
	return nil
}

func scanCartItem(row pgx.CollectableRow) (pricing.LineItem, error) {
	var (
		it  pricing.LineItem
		qty int32
	)
	err := row.Scan(&it.ID, &it.ProductID, &it.CategoryID, &it.SubcategoryID, &it.UnitPrice, &qty)
	it.Quantity = int(qty)
	return it, err
}
