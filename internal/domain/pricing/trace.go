package pricing

import "fmt"

// Reason explains one decision taken while pricing a voucher.
type Reason string

const (
	ReasonNoVoucher        Reason = "no_voucher"
	ReasonMissingFields    Reason = "missing_required_fields"
	ReasonMinPurchase      Reason = "min_purchase_not_met"
	ReasonOutletRestricted Reason = "outlet_restricted"
	ReasonOrderLevel       Reason = "order_level"
	ReasonNotPerProduct    Reason = "not_per_product"
	ReasonNoCriterion      Reason = "no_eligibility_criterion"
	ReasonNoMethod         Reason = "no_application_method"
	ReasonNotMatched       Reason = "criterion_not_matched"
	ReasonSlotsExhausted   Reason = "product_slots_exhausted"
	ReasonEligible         Reason = "eligible"
	ReasonFreeGift         Reason = "free_gift"
	ReasonUnsupported      Reason = "unsupported_discount"
	ReasonCapApplied       Reason = "discount_cap_applied"
	ReasonSubtotalCap      Reason = "capped_at_subtotal"
	ReasonApplied          Reason = "applied"
)

// OrderLevel is the Step index used for decisions about the whole order.
const OrderLevel = -1

// Step is one entry of a Trace.
type Step struct {
	// Index is the cart position the step refers to, or OrderLevel.
	Index  int
	ItemID string
	Reason Reason
	Detail string
}

// Trace is the ordered list of decisions taken for one pricing pass.
type Trace struct {
	Steps []Step
}

func (t *Trace) order(reason Reason, format string, args ...any) {
	t.Steps = append(t.Steps, Step{Index: OrderLevel, Reason: reason, Detail: fmt.Sprintf(format, args...)})
}

func (t *Trace) item(index int, itemID string, reason Reason, detail string) {
	t.Steps = append(t.Steps, Step{Index: index, ItemID: itemID, Reason: reason, Detail: detail})
}

// Has reports whether any step carries reason.
func (t Trace) Has(reason Reason) bool {
	for _, s := range t.Steps {
		if s.Reason == reason {
			return true
		}
	}
	return false
}

// Rejection returns the first order-level reason that stopped the voucher from
// discounting, if any.
func (t Trace) Rejection() (Reason, bool) {
	for _, s := range t.Steps {
		if s.Index != OrderLevel {
			continue
		}
		switch s.Reason {
		case ReasonNoVoucher, ReasonMissingFields, ReasonMinPurchase, ReasonOutletRestricted, ReasonNoCriterion, ReasonNoMethod, ReasonUnsupported:
			return s.Reason, true
		}
	}
	return "", false
}
