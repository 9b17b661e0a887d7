package voucher

import (
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ConfigError lists the authoring problems found in a rule. Such rules are
// never saved; at pricing time they simply do not discount.
type ConfigError struct {
	Code     string
	Problems []string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("voucher %s misconfigured: %s", e.Code, strings.Join(e.Problems, "; "))
}

// NewRule validates and normalizes r. It rejects rules with missing required
// fields or out-of-range values and fills defaults: order-total scope and
// DefaultMaxProductsPerUse. The code is upper-cased.
func NewRule(r Rule) (*Rule, error) {
	r.Code = NormalizeCode(r.Code)
	if r.Code == "" {
		return nil, errors.Wrap(ErrInvalidRule, "code is required")
	}

	if err := checkDiscount(r.Discount); err != nil {
		return nil, errors.Wrapf(err, "voucher %s", r.Code)
	}
	if r.MinPurchase.IsNegative() {
		return nil, errors.Wrapf(ErrInvalidRule, "voucher %s: negative minimum purchase", r.Code)
	}

	if r.Scope == "" {
		r.Scope = ScopeOrderTotal
	}
	switch r.Scope {
	case ScopeOrderTotal, ScopeProductLevel:
	default:
		return nil, errors.Wrapf(ErrInvalidRule, "voucher %s: unknown scope %q", r.Code, r.Scope)
	}
	switch r.Method {
	case MethodNone, MethodTotalOnce, MethodPerProduct:
	default:
		return nil, errors.Wrapf(ErrInvalidRule, "voucher %s: unknown application method %q", r.Code, r.Method)
	}

	if r.MaxProductsPerUse < 0 {
		return nil, errors.Wrapf(ErrInvalidRule, "voucher %s: negative max products per use", r.Code)
	}
	if r.MaxProductsPerUse == 0 {
		r.MaxProductsPerUse = DefaultMaxProductsPerUse
	}
	if r.Eligibility.declared() > 1 {
		return nil, errors.Wrapf(ErrInvalidRule, "voucher %s: more than one eligibility criterion", r.Code)
	}

	return &r, nil
}

func checkDiscount(d Discount) error {
	switch d := d.(type) {
	case nil:
		return errors.Wrap(ErrInvalidRule, "discount is required")
	case Percent:
		if d.Value.IsNegative() || d.Value.GreaterThan(hundred) {
			return errors.Wrapf(ErrInvalidRule, "percent value %s out of range", d.Value)
		}
		if d.Cap.Valid && d.Cap.Decimal.IsNegative() {
			return errors.Wrap(ErrInvalidRule, "negative discount cap")
		}
	case FixedAmount:
		if d.Value.IsNegative() {
			return errors.Wrapf(ErrInvalidRule, "negative fixed amount %s", d.Value)
		}
	case FreeGift:
		if strings.TrimSpace(d.GiftName) == "" {
			return errors.Wrap(ErrInvalidRule, "free gift name is required")
		}
	default:
		return errors.Wrapf(ErrInvalidRule, "unsupported discount %T", d)
	}
	return nil
}

// ValidateForAuthoring reports configurations that would silently never
// discount, or whose intent is ambiguous. It returns a *ConfigError, or nil.
func ValidateForAuthoring(r *Rule) error {
	var problems []string

	criterion, _ := r.Eligibility.Criterion()
	switch r.Scope {
	case ScopeProductLevel:
		if r.Method == MethodNone {
			problems = append(problems, "product-level voucher needs an application method")
		}
		if criterion == CriterionNone {
			problems = append(problems, "product-level voucher declares no eligibility criterion")
		}
	default:
		if r.Method != MethodNone {
			problems = append(problems, "application method requires product-level scope")
		}
		if criterion != CriterionNone {
			problems = append(problems, "eligibility criteria require product-level scope")
		}
	}
	if r.Eligibility.declared() > 1 {
		problems = append(problems, "more than one eligibility criterion")
	}
	if r.Outlets.Specific && len(r.Outlets.Outlets) == 0 {
		problems = append(problems, "specific-outlet restriction lists no outlets")
	}

	if len(problems) == 0 {
		return nil
	}
	return &ConfigError{Code: r.Code, Problems: problems}
}

// NormalizeCode trims and upper-cases a human-entered voucher code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
