package pricing

import (
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/xenking/outlet-rewards/internal/domain/voucher"
)

// ItemDiscount is the share of a per-product voucher attributed to one line.
type ItemDiscount struct {
	Index    int
	ItemID   string
	Quantity int
	Amount   decimal.Decimal
}

// VoucherDiscount computes the discount rule grants on items at outletID.
// It never fails: a rule that is missing, misconfigured or not applicable
// discounts zero, and the returned Trace records why.
func VoucherDiscount(rule *voucher.Rule, items []LineItem, outletID string, subtotal decimal.Decimal) (decimal.Decimal, Trace) {
	var trace Trace
	if !admit(rule, outletID, subtotal, &trace) {
		return zero, trace
	}

	var amount decimal.Decimal
	if rule.PerProduct() {
		amount = perProductDiscount(rule, items, &trace)
	} else {
		amount = orderDiscount(rule, subtotal, &trace)
	}

	if amount.GreaterThan(subtotal) {
		trace.order(ReasonSubtotalCap, "discount %s capped at subtotal %s", amount.StringFixed(MoneyPlaces), subtotal.StringFixed(MoneyPlaces))
		amount = subtotal
	}
	amount = Round(floorAtZero(amount))
	if amount.IsPositive() {
		trace.order(ReasonApplied, "voucher %s discounts %s", rule.Code, amount.StringFixed(MoneyPlaces))
	}
	return amount, trace
}

// admit runs the gates every rule must pass before it discounts anything:
// required fields, product-level configuration, minimum purchase and outlet
// restriction, in that order. A product-level rule without a criterion or a
// method is misconfigured and never falls back to pricing the whole order.
func admit(rule *voucher.Rule, outletID string, subtotal decimal.Decimal, trace *Trace) bool {
	switch {
	case rule == nil:
		trace.order(ReasonNoVoucher, "no voucher selected")
		return false
	case rule.Code == "" || rule.Discount == nil:
		trace.order(ReasonMissingFields, "voucher is missing its code or discount")
		return false
	case rule.Scope == voucher.ScopeProductLevel && !rule.Eligibility.Declared():
		trace.order(ReasonNoCriterion, "product-level voucher %s declares no eligibility criterion", rule.Code)
		return false
	case rule.Scope == voucher.ScopeProductLevel && rule.Method != voucher.MethodTotalOnce && rule.Method != voucher.MethodPerProduct:
		trace.order(ReasonNoMethod, "product-level voucher %s has no application method", rule.Code)
		return false
	case subtotal.LessThan(rule.MinPurchase):
		trace.order(ReasonMinPurchase, "subtotal %s is below minimum purchase %s",
			subtotal.StringFixed(MoneyPlaces), rule.MinPurchase.StringFixed(MoneyPlaces))
		return false
	case rule.Outlets.Specific && !rule.Outlets.Outlets.Has(outletID):
		trace.order(ReasonOutletRestricted, "voucher is not redeemable at outlet %q", outletID)
		return false
	}
	return true
}

func orderDiscount(rule *voucher.Rule, subtotal decimal.Decimal, trace *Trace) decimal.Decimal {
	trace.order(ReasonOrderLevel, "voucher %s prices the whole order", rule.Code)

	switch disc := rule.Discount.(type) {
	case voucher.Percent:
		return capPercent(disc, subtotal.Mul(disc.Value).Div(hundred), trace)
	case voucher.FixedAmount:
		return decimal.Min(disc.Value, subtotal)
	case voucher.FreeGift:
		trace.order(ReasonFreeGift, "grants %q", disc.GiftName)
		return zero
	default:
		trace.order(ReasonUnsupported, "unsupported discount %T", disc)
		return zero
	}
}

func perProductDiscount(rule *voucher.Rule, items []LineItem, trace *Trace) decimal.Decimal {
	eligibleAmount := zero
	units := 0
	for i, item := range items {
		dec := Resolve(rule, item, items[:i])
		trace.item(i, item.ID, dec.Reason, strconv.Itoa(dec.Quantity))
		if !dec.Eligible {
			continue
		}
		units += dec.Quantity
		eligibleAmount = eligibleAmount.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(dec.Quantity))))
	}

	switch disc := rule.Discount.(type) {
	case voucher.Percent:
		return capPercent(disc, eligibleAmount.Mul(disc.Value).Div(hundred), trace)
	case voucher.FixedAmount:
		count := min(units, rule.ProductCap())
		return disc.Value.Mul(decimal.NewFromInt(int64(count)))
	case voucher.FreeGift:
		if units > 0 {
			trace.order(ReasonFreeGift, "grants %q", disc.GiftName)
		}
		return zero
	default:
		trace.order(ReasonUnsupported, "unsupported discount %T", disc)
		return zero
	}
}

func capPercent(p voucher.Percent, raw decimal.Decimal, trace *Trace) decimal.Decimal {
	if p.Cap.Valid && raw.GreaterThan(p.Cap.Decimal) {
		trace.order(ReasonCapApplied, "discount %s capped at %s", raw.StringFixed(MoneyPlaces), p.Cap.Decimal.StringFixed(MoneyPlaces))
		return p.Cap.Decimal
	}
	return raw
}

// ItemDiscountAt returns the discount a per-product rule attributes to the
// line at index, or nil when the rule is not per-product or the line does not
// qualify. The share is uncapped; ComputeTotals scales shares down to the
// capped voucher discount.
func ItemDiscountAt(rule *voucher.Rule, items []LineItem, index int) *ItemDiscount {
	if rule == nil || rule.Discount == nil || index < 0 || index >= len(items) {
		return nil
	}
	item := items[index]
	dec := Resolve(rule, item, items[:index])
	if !dec.Eligible {
		return nil
	}

	qty := decimal.NewFromInt(int64(dec.Quantity))
	var amount decimal.Decimal
	switch disc := rule.Discount.(type) {
	case voucher.Percent:
		amount = item.UnitPrice.Mul(disc.Value).Div(hundred).Mul(qty)
	case voucher.FixedAmount:
		amount = disc.Value.Mul(qty)
	default:
		return nil
	}

	return &ItemDiscount{
		Index:    index,
		ItemID:   item.ID,
		Quantity: dec.Quantity,
		Amount:   Round(floorAtZero(amount)),
	}
}
