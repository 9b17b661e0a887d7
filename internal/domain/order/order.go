package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/outlet-rewards/internal/domain/pricing"
)

// Order is a checked-out cart with the amounts charged at checkout.
type Order struct {
	ID              string
	UserID          string
	OutletID        string
	Items           []OrderItem
	Subtotal        decimal.Decimal
	VoucherDiscount decimal.Decimal
	BonusDiscount   decimal.Decimal
	Total           decimal.Decimal
	// VoucherCode is set only when the voucher was redeemed.
	VoucherCode   string
	Gift          string
	PaymentMethod pricing.PaymentMethod
	PointsEarned  int64
	CreatedAt     time.Time
}

// OrderItem is one line of an order as stored in the items JSONB column.
type OrderItem struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Discount  decimal.Decimal `json:"discount"`
}

// Repository persists checkouts. Place stores the order together with its
// settlement: the cart is removed, the bonus debited, voucher usage counted
// and points credited. Either all of it persists or none of it does, and a
// cart that is already gone yields cart.ErrEmptyCart.
type Repository interface {
	Place(ctx context.Context, order *Order) error
}
