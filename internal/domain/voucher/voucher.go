// Package voucher describes promotional voucher rules and the catalog that
// stores them.
package voucher

import (
	"context"
	"sort"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// DefaultMaxProductsPerUse is the number of item-units a per-product voucher
// discounts in one order when the rule does not say otherwise.
const DefaultMaxProductsPerUse = 6

var (
	// ErrNotFound is returned when a voucher code does not exist in the catalog.
	ErrNotFound = errors.New("voucher not found")
	// ErrInvalidRule is returned when a rule cannot be constructed because a
	// required field is missing or out of range.
	ErrInvalidRule = errors.New("invalid voucher rule")
)

// Kind names a discount variant. It is the persisted form of Discount.
type Kind string

const (
	KindPercent     Kind = "percent"
	KindFixedAmount Kind = "fixed_amount"
	KindFreeGift    Kind = "free_gift"
)

// Discount is the closed set of discount semantics a voucher can carry:
// Percent, FixedAmount or FreeGift.
type Discount interface {
	Kind() Kind
	isDiscount()
}

// Percent takes Value percent (0–100) off the discountable amount, optionally
// limited by Cap.
type Percent struct {
	Value decimal.Decimal
	Cap   decimal.NullDecimal
}

// FixedAmount takes a currency amount off the order, or off each discounted
// unit for per-product vouchers.
type FixedAmount struct {
	Value decimal.Decimal
}

// FreeGift grants a gift line; it never reduces the price.
type FreeGift struct {
	GiftName string
}

func (Percent) Kind() Kind     { return KindPercent }
func (FixedAmount) Kind() Kind { return KindFixedAmount }
func (FreeGift) Kind() Kind    { return KindFreeGift }

func (Percent) isDiscount()     {}
func (FixedAmount) isDiscount() {}
func (FreeGift) isDiscount()    {}

// Scope selects whether a voucher prices the whole order or individual lines.
type Scope string

const (
	ScopeOrderTotal   Scope = "order_total"
	ScopeProductLevel Scope = "product_level"
)

// Method refines ScopeProductLevel.
type Method string

const (
	// MethodNone is the method of order-total vouchers.
	MethodNone Method = ""
	// MethodTotalOnce discounts the subtotal once.
	MethodTotalOnce Method = "total_once"
	// MethodPerProduct discounts each eligible unit, up to MaxProductsPerUse.
	MethodPerProduct Method = "per_product"
)

// IDSet is an immutable set of opaque identifiers.
type IDSet map[string]struct{}

// NewIDSet builds a set from ids, skipping empty strings.
func NewIDSet(ids ...string) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		if id != "" {
			s[id] = struct{}{}
		}
	}
	return s
}

// Has reports whether id is a member. The empty id is never a member.
func (s IDSet) Has(id string) bool {
	if id == "" {
		return false
	}
	_, ok := s[id]
	return ok
}

// Slice returns the members in sorted order.
func (s IDSet) Slice() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Eligibility lists which lines a product-level voucher may discount. A valid
// rule declares at most one non-empty set; when several are present the
// product set wins over categories, and categories over subcategories.
type Eligibility struct {
	Products      IDSet
	Categories    IDSet
	Subcategories IDSet
}

// Criterion names the set used to match lines.
type Criterion string

const (
	CriterionNone        Criterion = ""
	CriterionProduct     Criterion = "product"
	CriterionCategory    Criterion = "category"
	CriterionSubcategory Criterion = "subcategory"
)

// Criterion returns the first non-empty set in precedence order and its name.
func (e Eligibility) Criterion() (Criterion, IDSet) {
	switch {
	case len(e.Products) > 0:
		return CriterionProduct, e.Products
	case len(e.Categories) > 0:
		return CriterionCategory, e.Categories
	case len(e.Subcategories) > 0:
		return CriterionSubcategory, e.Subcategories
	default:
		return CriterionNone, nil
	}
}

// Declared reports whether any criterion set is non-empty.
func (e Eligibility) Declared() bool {
	return e.declared() > 0
}

// declared counts the non-empty sets.
func (e Eligibility) declared() int {
	n := 0
	for _, s := range []IDSet{e.Products, e.Categories, e.Subcategories} {
		if len(s) > 0 {
			n++
		}
	}
	return n
}

// OutletRestriction limits where a voucher may be redeemed. The zero value
// allows every outlet.
type OutletRestriction struct {
	Specific bool
	Outlets  IDSet
}

// AllOutlets returns a restriction that allows every outlet.
func AllOutlets() OutletRestriction {
	return OutletRestriction{}
}

// SpecificOutlets returns a restriction limited to the given outlets. An
// empty list produces a restriction that matches no outlet.
func SpecificOutlets(ids ...string) OutletRestriction {
	return OutletRestriction{Specific: true, Outlets: NewIDSet(ids...)}
}

// Rule is an immutable description of one promotional offer.
type Rule struct {
	Code              string
	Description       string
	Discount          Discount
	MinPurchase       decimal.Decimal
	Scope             Scope
	Method            Method
	Eligibility       Eligibility
	MaxProductsPerUse int
	Outlets           OutletRestriction
}

// PerProduct reports whether the rule discounts individual units.
func (r *Rule) PerProduct() bool {
	return r.Scope == ScopeProductLevel && r.Method == MethodPerProduct
}

// ProductCap returns MaxProductsPerUse, falling back to the default.
func (r *Rule) ProductCap() int {
	if r.MaxProductsPerUse <= 0 {
		return DefaultMaxProductsPerUse
	}
	return r.MaxProductsPerUse
}

// Selection is a rule chosen by a user together with that user's usage
// counters.
type Selection struct {
	Rule          *Rule
	UsageCount    int
	MaxUsageCount int
}

// Exhausted reports whether the user has used up the voucher. A zero
// MaxUsageCount means unlimited.
func (s *Selection) Exhausted() bool {
	return s.MaxUsageCount > 0 && s.UsageCount >= s.MaxUsageCount
}

// Definition is a rule as stored by the catalog.
type Definition struct {
	Rule            *Rule
	MaxUsagePerUser int
	Active          bool
}

// Repository provides voucher lookup for the pricing flow. Usage counters
// move only when a checkout settles.
type Repository interface {
	FindSelection(ctx context.Context, code, userID string) (*Selection, error)
}

// Writer stores definitions. Callers validate with ValidateForAuthoring first.
type Writer interface {
	Upsert(ctx context.Context, def Definition) error
}
