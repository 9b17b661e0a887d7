package pricing

import (
	"github.com/xenking/outlet-rewards/internal/domain/voucher"
)

// Decision is the outcome of resolving one line against a per-product rule.
type Decision struct {
	Eligible bool
	// Quantity is how many units of the line the voucher discounts.
	Quantity int
	Reason   Reason
}

// Resolve decides whether item qualifies for rule and for how many units.
// preceding must hold the lines before item in cart order: units of matching
// earlier lines consume the rule's MaxProductsPerUse slots first, and slots are
// never redistributed.
//
// Only product-level per-product rules are resolved per line; any other rule
// yields ReasonNotPerProduct. A per-product rule without an eligibility
// criterion matches nothing.
func Resolve(rule *voucher.Rule, item LineItem, preceding []LineItem) Decision {
	if rule == nil || !rule.PerProduct() {
		return Decision{Reason: ReasonNotPerProduct}
	}

	criterion, set := rule.Eligibility.Criterion()
	if criterion == voucher.CriterionNone {
		return Decision{Reason: ReasonNoCriterion}
	}
	if !member(criterion, set, item) {
		return Decision{Reason: ReasonNotMatched}
	}

	before := 0
	for _, p := range preceding {
		if member(criterion, set, p) {
			before += p.Quantity
		}
	}

	remaining := max(0, rule.ProductCap()-before)
	qty := min(item.Quantity, remaining)
	if qty <= 0 {
		return Decision{Reason: ReasonSlotsExhausted}
	}
	return Decision{Eligible: true, Quantity: qty, Reason: ReasonEligible}
}

func member(criterion voucher.Criterion, set voucher.IDSet, item LineItem) bool {
	switch criterion {
	case voucher.CriterionProduct:
		return set.Has(item.ProductID)
	case voucher.CriterionCategory:
		return set.Has(item.CategoryID)
	case voucher.CriterionSubcategory:
		return set.Has(item.SubcategoryID)
	default:
		return false
	}
}

// Matches reports whether item meets rule's eligibility criterion. A rule
// without a criterion matches nothing.
func Matches(rule *voucher.Rule, item LineItem) bool {
	if rule == nil {
		return false
	}
	criterion, set := rule.Eligibility.Criterion()
	return member(criterion, set, item)
}
