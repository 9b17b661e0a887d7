package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/outlet-rewards/internal/domain/product"
)

const (
	listProductsSQL = `SELECT id, outlet_id, name, price, category_id, subcategory_id
		FROM products WHERE outlet_id = $1 ORDER BY name, id`

	getProductSQL = `SELECT id, outlet_id, name, price, category_id, subcategory_id
		FROM products WHERE outlet_id = $1 AND id = $2`

	upsertOutletSQL = `INSERT INTO outlets (id, name) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name`

	upsertProductSQL = `INSERT INTO products (outlet_id, id, name, price, category_id, subcategory_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (outlet_id, id) DO UPDATE SET
			name = EXCLUDED.name,
			price = EXCLUDED.price,
			category_id = EXCLUDED.category_id,
			subcategory_id = EXCLUDED.subcategory_id`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// List returns an outlet's catalog ordered by name. Unknown outlets yield an
// empty list.
func (r *ProductRepository) List(ctx context.Context, outletID string) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL, outletID)
	if err != nil {
		return nil, fmt.Errorf("listing products of outlet %q: %w", outletID, err)
	}

	products, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, fmt.Errorf("listing products of outlet %q: %w", outletID, err)
	}
	return products, nil
}

// GetByID returns product.ErrNotFound when the outlet does not sell id.
func (r *ProductRepository) GetByID(ctx context.Context, outletID, id string) (*product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductSQL, outletID, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}
	return &p, nil
}

// UpsertOutlet creates or renames an outlet.
func (r *ProductRepository) UpsertOutlet(ctx context.Context, id, name string) error {
	if _, err := r.pool.Exec(ctx, upsertOutletSQL, id, name); err != nil {
		return fmt.Errorf("upserting outlet %q: %w", id, err)
	}
	return nil
}

// Upsert creates or replaces a catalog entry. The outlet must exist.
func (r *ProductRepository) Upsert(ctx context.Context, p product.Product) error {
	_, err := r.pool.Exec(ctx, upsertProductSQL,
		p.OutletID, p.ID, p.Name, p.Price, p.CategoryID, p.SubcategoryID,
	)
	if err != nil {
		return fmt.Errorf("upserting product %q at outlet %q: %w", p.ID, p.OutletID, err)
	}
	return nil
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var p product.Product
	err := row.Scan(&p.ID, &p.OutletID, &p.Name, &p.Price, &p.CategoryID, &p.SubcategoryID)
	return p, err
}
