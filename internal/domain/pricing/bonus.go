package pricing

import "github.com/shopspring/decimal"

// BonusCeiling is the most a bonus may cover once the voucher discount is
// taken: max(0, subtotal − voucherDiscount).
func BonusCeiling(subtotal, voucherDiscount decimal.Decimal) decimal.Decimal {
	return floorAtZero(subtotal.Sub(voucherDiscount))
}

// ApplyBonus returns how much of the requested bonus may be used. The result
// is bounded by the user's balance and by BonusCeiling, and is never negative.
// When rounding would cross either bound, the bound is truncated to cents
// instead.
func ApplyBonus(requested, subtotal, voucherDiscount, balance decimal.Decimal) decimal.Decimal {
	ceiling := BonusCeiling(subtotal, voucherDiscount)
	maxApplicable := decimal.Min(floorAtZero(balance), ceiling)

	applied := Round(decimal.Min(floorAtZero(requested), maxApplicable))
	if applied.GreaterThan(maxApplicable) {
		applied = maxApplicable.Truncate(MoneyPlaces)
	}
	return applied
}
