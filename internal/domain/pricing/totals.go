package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/outlet-rewards/internal/domain/voucher"
)

// Totals is the priced view of a cart. It is derived on every call and never
// stored.
type Totals struct {
	Subtotal        decimal.Decimal
	VoucherDiscount decimal.Decimal
	BonusDiscount   decimal.Decimal
	PayableTotal    decimal.Decimal
	// Items holds per-line shares of a per-product voucher, in cart order.
	// They add up to VoucherDiscount.
	Items []ItemDiscount
	// Gift is the gift granted by a free-gift voucher, if any.
	Gift  string
	Trace Trace
}

// Savings returns the combined voucher and bonus discount.
func (t Totals) Savings() decimal.Decimal {
	return t.VoucherDiscount.Add(t.BonusDiscount)
}

// ComputeTotals prices items at outletID with an optional rule and a
// previously chosen bonus amount. The bonus is clamped again against the
// current voucher discount, so a stale amount can never push the payable
// total below zero.
func ComputeTotals(items []LineItem, rule *voucher.Rule, bonusAmount decimal.Decimal, outletID string) Totals {
	subtotal := Subtotal(items)
	discount, trace := VoucherDiscount(rule, items, outletID, subtotal)
	bonus := ApplyBonus(bonusAmount, subtotal, discount, bonusAmount)

	t := Totals{
		Subtotal:        Round(subtotal),
		VoucherDiscount: discount,
		BonusDiscount:   bonus,
		PayableTotal:    Round(floorAtZero(subtotal.Sub(discount).Sub(bonus))),
		Trace:           trace,
	}

	if _, rejected := trace.Rejection(); rejected {
		return t
	}
	if gift, ok := rule.Discount.(voucher.FreeGift); ok && trace.Has(ReasonFreeGift) {
		t.Gift = gift.GiftName
	}
	if rule.PerProduct() {
		for i := range items {
			if share := ItemDiscountAt(rule, items, i); share != nil {
				t.Items = append(t.Items, *share)
			}
		}
		t.Items = allocate(t.Items, discount)
	}
	return t
}

// allocate scales shares down proportionally when a cap made the voucher
// discount smaller than their sum. The last share takes the rounding
// remainder.
func allocate(shares []ItemDiscount, total decimal.Decimal) []ItemDiscount {
	sum := zero
	for _, sh := range shares {
		sum = sum.Add(sh.Amount)
	}
	if !sum.GreaterThan(total) {
		return shares
	}

	remaining := total
	for i := range shares {
		amount := remaining
		if i < len(shares)-1 {
			amount = decimal.Min(Round(shares[i].Amount.Mul(total).Div(sum)), remaining)
		}
		shares[i].Amount = amount
		remaining = remaining.Sub(amount)
	}
	return shares
}

// LoyaltyPoints projects the points earned by paying PayableTotal with method.
func (t Totals) LoyaltyPoints(policy PointsPolicy, method PaymentMethod) int64 {
	return policy.Points(t.PayableTotal, method)
}
