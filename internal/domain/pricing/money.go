// Package pricing computes cart totals: subtotal, voucher discount, bonus
// discount and the payable amount. Every function in this package is pure;
// callers render the returned Trace to explain why a voucher did or did not
// apply.
package pricing

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// MoneyPlaces is the number of decimal places amounts are rounded to.
const MoneyPlaces = 2

var (
	zero    = decimal.Zero
	hundred = decimal.NewFromInt(100)
)

// ErrInvalidLineItem is returned when a line item cannot be constructed.
var ErrInvalidLineItem = errors.New("invalid line item")

// LineItem is one cart row as seen by the pricing engine.
type LineItem struct {
	ID            string
	ProductID     string
	CategoryID    string
	SubcategoryID string
	UnitPrice     decimal.Decimal
	Quantity      int
}

// NewLineItem validates a cart row. Prices must be non-negative and
// quantities at least one.
func NewLineItem(id, productID, categoryID, subcategoryID string, unitPrice decimal.Decimal, quantity int) (LineItem, error) {
	switch {
	case id == "":
		return LineItem{}, errors.Wrap(ErrInvalidLineItem, "id is required")
	case productID == "":
		return LineItem{}, errors.Wrap(ErrInvalidLineItem, "product id is required")
	case unitPrice.IsNegative():
		return LineItem{}, errors.Wrapf(ErrInvalidLineItem, "negative unit price %s", unitPrice)
	case quantity < 1:
		return LineItem{}, errors.Wrapf(ErrInvalidLineItem, "quantity %d must be at least 1", quantity)
	}
	return LineItem{
		ID:            id,
		ProductID:     productID,
		CategoryID:    categoryID,
		SubcategoryID: subcategoryID,
		UnitPrice:     unitPrice,
		Quantity:      quantity,
	}, nil
}

// Amount returns UnitPrice × Quantity.
func (l LineItem) Amount() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Subtotal returns the sum of price × quantity across all items.
func Subtotal(items []LineItem) decimal.Decimal {
	sum := zero
	for _, item := range items {
		sum = sum.Add(item.Amount())
	}
	return sum
}

// Round rounds an amount to MoneyPlaces.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

// floorAtZero clamps negative values to zero.
func floorAtZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return zero
	}
	return d
}
