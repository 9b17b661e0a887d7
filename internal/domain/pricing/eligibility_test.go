package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/outlet-rewards/internal/domain/voucher"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func line(id, productID string, price string, qty int) LineItem {
	return LineItem{ID: id, ProductID: productID, UnitPrice: d(price), Quantity: qty}
}

func perProductRule(disc voucher.Discount, elig voucher.Eligibility) *voucher.Rule {
	return &voucher.Rule{
		Code:              "PP",
		Discount:          disc,
		Scope:             voucher.ScopeProductLevel,
		Method:            voucher.MethodPerProduct,
		Eligibility:       elig,
		MaxProductsPerUse: voucher.DefaultMaxProductsPerUse,
	}
}

func TestResolve(t *testing.T) {
	fixed := voucher.FixedAmount{Value: d("5")}

	tests := []struct {
		name      string
		rule      *voucher.Rule
		item      LineItem
		preceding []LineItem
		want      Decision
	}{
		{
			name: "order total rule is not resolved per line",
			rule: &voucher.Rule{Code: "ORD", Discount: fixed, Scope: voucher.ScopeOrderTotal},
			item: line("1", "A", "10", 1),
			want: Decision{Reason: ReasonNotPerProduct},
		},
		{
			name: "total once rule is not resolved per line",
			rule: &voucher.Rule{
				Code: "ONCE", Discount: fixed,
				Scope: voucher.ScopeProductLevel, Method: voucher.MethodTotalOnce,
				Eligibility: voucher.Eligibility{Products: voucher.NewIDSet("A")},
			},
			item: line("1", "A", "10", 1),
			want: Decision{Reason: ReasonNotPerProduct},
		},
		{
			name: "no criterion fails closed",
			rule: perProductRule(fixed, voucher.Eligibility{}),
			item: line("1", "A", "10", 1),
			want: Decision{Reason: ReasonNoCriterion},
		},
		{
			name: "product match",
			rule: perProductRule(fixed, voucher.Eligibility{Products: voucher.NewIDSet("A")}),
			item: line("1", "A", "10", 2),
			want: Decision{Eligible: true, Quantity: 2, Reason: ReasonEligible},
		},
		{
			name: "product not in set",
			rule: perProductRule(fixed, voucher.Eligibility{Products: voucher.NewIDSet("A")}),
			item: line("1", "B", "10", 2),
			want: Decision{Reason: ReasonNotMatched},
		},
		{
			name: "category match",
			rule: perProductRule(fixed, voucher.Eligibility{Categories: voucher.NewIDSet("drinks")}),
			item: LineItem{ID: "1", ProductID: "B", CategoryID: "drinks", UnitPrice: d("4"), Quantity: 1},
			want: Decision{Eligible: true, Quantity: 1, Reason: ReasonEligible},
		},
		{
			name: "subcategory match",
			rule: perProductRule(fixed, voucher.Eligibility{Subcategories: voucher.NewIDSet("latte")}),
			item: LineItem{ID: "1", ProductID: "B", SubcategoryID: "latte", UnitPrice: d("4"), Quantity: 1},
			want: Decision{Eligible: true, Quantity: 1, Reason: ReasonEligible},
		},
		{
			name: "product set takes precedence over category set",
			rule: perProductRule(fixed, voucher.Eligibility{
				Products:   voucher.NewIDSet("A"),
				Categories: voucher.NewIDSet("drinks"),
			}),
			item: LineItem{ID: "1", ProductID: "B", CategoryID: "drinks", UnitPrice: d("4"), Quantity: 1},
			want: Decision{Reason: ReasonNotMatched},
		},
		{
			name:      "preceding units consume slots",
			rule:      perProductRule(fixed, voucher.Eligibility{Products: voucher.NewIDSet("A", "B")}),
			item:      line("2", "B", "10", 5),
			preceding: []LineItem{line("1", "A", "10", 4)},
			want:      Decision{Eligible: true, Quantity: 2, Reason: ReasonEligible},
		},
		{
			name:      "non matching preceding lines do not consume slots",
			rule:      perProductRule(fixed, voucher.Eligibility{Products: voucher.NewIDSet("B")}),
			item:      line("2", "B", "10", 5),
			preceding: []LineItem{line("1", "A", "10", 4)},
			want:      Decision{Eligible: true, Quantity: 5, Reason: ReasonEligible},
		},
		{
			name:      "slots exhausted",
			rule:      perProductRule(fixed, voucher.Eligibility{Products: voucher.NewIDSet("A", "B")}),
			item:      line("2", "B", "10", 1),
			preceding: []LineItem{line("1", "A", "10", 6)},
			want:      Decision{Reason: ReasonSlotsExhausted},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(tt.rule, tt.item, tt.preceding)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolve_ZeroCapUsesDefault(t *testing.T) {
	rule := perProductRule(voucher.FixedAmount{Value: d("1")}, voucher.Eligibility{Products: voucher.NewIDSet("A")})
	rule.MaxProductsPerUse = 0

	got := Resolve(rule, line("1", "A", "1", 10), nil)
	assert.Equal(t, voucher.DefaultMaxProductsPerUse, got.Quantity)
}

func TestNewLineItem(t *testing.T) {
	item, err := NewLineItem("row-1", "A", "cat", "sub", d("12.50"), 2)
	require.NoError(t, err)
	assert.True(t, d("25").Equal(item.Amount()))

	_, err = NewLineItem("row-1", "A", "", "", d("-1"), 1)
	require.ErrorIs(t, err, ErrInvalidLineItem)

	_, err = NewLineItem("row-1", "A", "", "", d("1"), 0)
	require.ErrorIs(t, err, ErrInvalidLineItem)

	_, err = NewLineItem("row-1", "", "", "", d("1"), 1)
	require.ErrorIs(t, err, ErrInvalidLineItem)
}
