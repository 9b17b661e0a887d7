package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/outlet-rewards/internal/domain/voucher"
)

const (
	findSelectionSQL = `SELECT v.code, v.description, v.discount_type, v.discount_value,
		v.max_discount, v.gift_name, v.min_purchase, v.scope, v.method,
		v.product_ids, v.category_ids, v.subcategory_ids, v.max_products_per_use,
		v.outlet_specific, v.outlet_ids, COALESCE(u.uses, 0), v.max_usage_per_user
		FROM vouchers v
		LEFT JOIN voucher_usages u ON u.code = v.code AND u.user_id = $2
		WHERE v.code = UPPER($1) AND v.active = TRUE`

	incrementUsageSQL = `INSERT INTO voucher_usages (code, user_id, uses) VALUES ($1, $2, 1)
		ON CONFLICT (code, user_id) DO UPDATE SET uses = voucher_usages.uses + 1`

	upsertVoucherSQL = `INSERT INTO vouchers (code, description, discount_type, discount_value,
		max_discount, gift_name, min_purchase, scope, method, product_ids, category_ids,
		subcategory_ids, max_products_per_use, outlet_specific, outlet_ids,
		max_usage_per_user, active, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, now())
		ON CONFLICT (code) DO UPDATE SET
			description = EXCLUDED.description,
			discount_type = EXCLUDED.discount_type,
			discount_value = EXCLUDED.discount_value,
			max_discount = EXCLUDED.max_discount,
			gift_name = EXCLUDED.gift_name,
			min_purchase = EXCLUDED.min_purchase,
			scope = EXCLUDED.scope,
			method = EXCLUDED.method,
			product_ids = EXCLUDED.product_ids,
			category_ids = EXCLUDED.category_ids,
			subcategory_ids = EXCLUDED.subcategory_ids,
			max_products_per_use = EXCLUDED.max_products_per_use,
			outlet_specific = EXCLUDED.outlet_specific,
			outlet_ids = EXCLUDED.outlet_ids,
			max_usage_per_user = EXCLUDED.max_usage_per_user,
			active = EXCLUDED.active,
			updated_at = now()`
)

var (
	_ voucher.Repository = (*VoucherRepository)(nil)
	_ voucher.Writer     = (*VoucherRepository)(nil)
)

// VoucherRepository implements voucher.Repository and voucher.Writer backed
// by PostgreSQL.
type VoucherRepository struct {
	db dbtx
}

// NewVoucherRepository returns a VoucherRepository that uses the given pool.
func NewVoucherRepository(pool *pgxpool.Pool) *VoucherRepository {
	return &VoucherRepository{db: pool}
}

// FindSelection looks up an active voucher (case-insensitive) together with
// userID's usage of it. Returns voucher.ErrNotFound when no active voucher
// matches.
//
// Rows are mapped without validation: a misconfigured stored rule prices to
// zero instead of failing the lookup.
func (r *VoucherRepository) FindSelection(ctx context.Context, code, userID string) (*voucher.Selection, error) {
	rows, err := r.db.Query(ctx, findSelectionSQL, code, userID)
	if err != nil {
		return nil, fmt.Errorf("finding voucher %q: %w", code, err)
	}

	sel, err := pgx.CollectExactlyOneRow(rows, scanSelection)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, voucher.ErrNotFound
		}
		return nil, fmt.Errorf("finding voucher %q: %w", code, err)
	}
	return &sel, nil
}

// IncrementUsage records one more redemption of code by userID.
func (r *VoucherRepository) IncrementUsage(ctx context.Context, code, userID string) error {
	if _, err := r.db.Exec(ctx, incrementUsageSQL, code, userID); err != nil {
		return fmt.Errorf("incrementing usage of voucher %q: %w", code, err)
	}
	return nil
}

// Upsert creates or replaces a voucher definition.
func (r *VoucherRepository) Upsert(ctx context.Context, def voucher.Definition) error {
	rule := def.Rule
	if rule == nil {
		return errors.Wrap(voucher.ErrInvalidRule, "definition has no rule")
	}
	discountType, value, maxDiscount, gift := discountColumns(rule.Discount)

	_, err := r.db.Exec(ctx, upsertVoucherSQL,
		rule.Code, rule.Description, discountType, value, maxDiscount, gift,
		rule.MinPurchase, string(rule.Scope), string(rule.Method),
		rule.Eligibility.Products.Slice(),
		rule.Eligibility.Categories.Slice(),
		rule.Eligibility.Subcategories.Slice(),
		rule.ProductCap(),
		rule.Outlets.Specific, rule.Outlets.Outlets.Slice(),
		def.MaxUsagePerUser, def.Active,
	)
	if err != nil {
		return fmt.Errorf("upserting voucher %q: %w", rule.Code, err)
	}
	return nil
}

func discountColumns(d voucher.Discount) (kind string, value decimal.Decimal, maxDiscount decimal.NullDecimal, gift string) {
	switch d := d.(type) {
	case voucher.Percent:
		return string(voucher.KindPercent), d.Value, d.Cap, ""
	case voucher.FixedAmount:
		return string(voucher.KindFixedAmount), d.Value, decimal.NullDecimal{}, ""
	case voucher.FreeGift:
		return string(voucher.KindFreeGift), decimal.Zero, decimal.NullDecimal{}, d.GiftName
	default:
		return "", decimal.Zero, decimal.NullDecimal{}, ""
	}
}

func scanSelection(row pgx.CollectableRow) (voucher.Selection, error) {
	var (
		rule         voucher.Rule
		discountType string
		value        decimal.Decimal
		maxDiscount  decimal.NullDecimal
		gift         string
		scope        string
		method       string
		products     []string
		categories   []string
		subcats      []string
		maxProducts  int32
		specific     bool
		outlets      []string
		uses         int32
		maxUses      int32
	)
	err := row.Scan(
		&rule.Code, &rule.Description, &discountType, &value,
		&maxDiscount, &gift, &rule.MinPurchase, &scope, &method,
		&products, &categories, &subcats, &maxProducts,
		&specific, &outlets, &uses, &maxUses,
	)
	if err != nil {
		return voucher.Selection{}, err
	}

	switch voucher.Kind(discountType) {
	case voucher.KindPercent:
		rule.Discount = voucher.Percent{Value: value, Cap: maxDiscount}
	case voucher.KindFixedAmount:
		rule.Discount = voucher.FixedAmount{Value: value}
	case voucher.KindFreeGift:
		rule.Discount = voucher.FreeGift{GiftName: gift}
	}
	rule.Scope = voucher.Scope(scope)
	rule.Method = voucher.Method(method)
	rule.Eligibility = voucher.Eligibility{
		Products:      voucher.NewIDSet(products...),
		Categories:    voucher.NewIDSet(categories...),
		Subcategories: voucher.NewIDSet(subcats...),
	}
	rule.MaxProductsPerUse = int(maxProducts)
	rule.Outlets = voucher.OutletRestriction{Specific: specific, Outlets: voucher.NewIDSet(outlets...)}

	return voucher.Selection{
		Rule:          &rule,
		UsageCount:    int(uses),
		MaxUsageCount: int(maxUses),
	}, nil
}
