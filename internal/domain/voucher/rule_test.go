package voucher

import (
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func TestNewRule(t *testing.T) {
	tests := []struct {
		name        string
		rule        Rule
		wantErrText string
	}{
		{
			name: "percent order voucher gets defaults",
			rule: Rule{Code: " save20 ", Discount: Percent{Value: d("20")}},
		},
		{
			name:        "missing code",
			rule:        Rule{Discount: Percent{Value: d("20")}},
			wantErrText: "code is required",
		},
		{
			name:        "missing discount",
			rule:        Rule{Code: "NODISC"},
			wantErrText: "discount is required",
		},
		{
			name:        "percent above 100",
			rule:        Rule{Code: "BIG", Discount: Percent{Value: d("100.01")}},
			wantErrText: "out of range",
		},
		{
			name:        "negative cap",
			rule:        Rule{Code: "CAP", Discount: Percent{Value: d("10"), Cap: decimal.NewNullDecimal(d("-1"))}},
			wantErrText: "negative discount cap",
		},
		{
			name:        "negative fixed amount",
			rule:        Rule{Code: "NEG", Discount: FixedAmount{Value: d("-5")}},
			wantErrText: "negative fixed amount",
		},
		{
			name:        "gift without a name",
			rule:        Rule{Code: "GIFT", Discount: FreeGift{}},
			wantErrText: "free gift name is required",
		},
		{
			name:        "negative minimum purchase",
			rule:        Rule{Code: "MIN", Discount: FixedAmount{Value: d("5")}, MinPurchase: d("-1")},
			wantErrText: "negative minimum purchase",
		},
		{
			name:        "unknown scope",
			rule:        Rule{Code: "SCOPE", Discount: FixedAmount{Value: d("5")}, Scope: "basket"},
			wantErrText: "unknown scope",
		},
		{
			name:        "unknown method",
			rule:        Rule{Code: "METHOD", Discount: FixedAmount{Value: d("5")}, Scope: ScopeProductLevel, Method: "each"},
			wantErrText: "unknown application method",
		},
		{
			name: "two eligibility criteria",
			rule: Rule{
				Code:     "TWO",
				Discount: FixedAmount{Value: d("5")},
				Scope:    ScopeProductLevel,
				Method:   MethodPerProduct,
				Eligibility: Eligibility{
					Products:   NewIDSet("A"),
					Categories: NewIDSet("C1"),
				},
			},
			wantErrText: "more than one eligibility criterion",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewRule(tt.rule)
			if tt.wantErrText != "" {
				require.ErrorIs(t, err, ErrInvalidRule)
				assert.Contains(t, err.Error(), tt.wantErrText)
				assert.Nil(t, got)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, "SAVE20", got.Code)
			assert.Equal(t, ScopeOrderTotal, got.Scope)
			assert.Equal(t, DefaultMaxProductsPerUse, got.MaxProductsPerUse)
		})
	}
}

func TestValidateForAuthoring(t *testing.T) {
	tests := []struct {
		name         string
		rule         Rule
		wantProblems []string
	}{
		{
			name: "valid per-product voucher",
			rule: Rule{
				Code:        "PP",
				Discount:    FixedAmount{Value: d("5")},
				Scope:       ScopeProductLevel,
				Method:      MethodPerProduct,
				Eligibility: Eligibility{Products: NewIDSet("X", "Y")},
			},
		},
		{
			name: "product level without criterion",
			rule: Rule{
				Code:     "EMPTY",
				Discount: FixedAmount{Value: d("5")},
				Scope:    ScopeProductLevel,
				Method:   MethodPerProduct,
			},
			wantProblems: []string{"product-level voucher declares no eligibility criterion"},
		},
		{
			name: "products selected on an order voucher are not inferred",
			rule: Rule{
				Code:        "MASKED",
				Discount:    Percent{Value: d("10")},
				Scope:       ScopeOrderTotal,
				Eligibility: Eligibility{Products: NewIDSet("A")},
			},
			wantProblems: []string{"eligibility criteria require product-level scope"},
		},
		{
			name: "method without product scope and empty outlet set",
			rule: Rule{
				Code:     "ODD",
				Discount: Percent{Value: d("10")},
				Scope:    ScopeOrderTotal,
				Method:   MethodTotalOnce,
				Outlets:  SpecificOutlets(),
			},
			wantProblems: []string{
				"application method requires product-level scope",
				"specific-outlet restriction lists no outlets",
			},
		},
		{
			name: "product level without method",
			rule: Rule{
				Code:        "NOMETHOD",
				Discount:    Percent{Value: d("10")},
				Scope:       ScopeProductLevel,
				Eligibility: Eligibility{Categories: NewIDSet("drinks")},
			},
			wantProblems: []string{"product-level voucher needs an application method"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateForAuthoring(&tt.rule)
			if len(tt.wantProblems) == 0 {
				require.NoError(t, err)
				return
			}

			var cfgErr *ConfigError
			require.True(t, errors.As(err, &cfgErr), "expected *ConfigError, got %T", err)
			assert.Equal(t, tt.rule.Code, cfgErr.Code)
			assert.Equal(t, tt.wantProblems, cfgErr.Problems)
		})
	}
}

func TestEligibilityCriterionPrecedence(t *testing.T) {
	e := Eligibility{
		Categories:    NewIDSet("c"),
		Subcategories: NewIDSet("s"),
	}
	criterion, set := e.Criterion()
	assert.Equal(t, CriterionCategory, criterion)
	assert.True(t, set.Has("c"))

	criterion, set = Eligibility{}.Criterion()
	assert.Equal(t, CriterionNone, criterion)
	assert.Nil(t, set)
}

func TestSelectionExhausted(t *testing.T) {
	assert.False(t, (&Selection{UsageCount: 10}).Exhausted())
	assert.False(t, (&Selection{UsageCount: 1, MaxUsageCount: 2}).Exhausted())
	assert.True(t, (&Selection{UsageCount: 2, MaxUsageCount: 2}).Exhausted())
}

func TestIDSet(t *testing.T) {
	s := NewIDSet("b", "", "a", "b")
	assert.Len(t, s, 2)
	assert.False(t, s.Has(""))
	assert.Equal(t, []string{"a", "b"}, s.Slice())
}
