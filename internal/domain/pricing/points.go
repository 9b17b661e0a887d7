package pricing

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// PaymentMethod is the way an order is paid; it selects the points multiplier.
type PaymentMethod string

const (
	PaymentCash    PaymentMethod = "cash"
	PaymentCard    PaymentMethod = "card"
	PaymentEWallet PaymentMethod = "ewallet"
)

// ErrUnknownPaymentMethod is returned for payment methods the points policy
// does not know.
var ErrUnknownPaymentMethod = errors.New("unknown payment method")

// PointsPolicy converts a payable total into loyalty points.
type PointsPolicy struct {
	// BaseRate is the points earned per currency unit paid.
	BaseRate    decimal.Decimal
	Multipliers map[PaymentMethod]int64
}

// DefaultPointsPolicy earns one point per currency unit, doubled for
// e-wallet payments.
func DefaultPointsPolicy() PointsPolicy {
	return PointsPolicy{
		BaseRate: decimal.NewFromInt(1),
		Multipliers: map[PaymentMethod]int64{
			PaymentCash:    1,
			PaymentCard:    1,
			PaymentEWallet: 2,
		},
	}
}

// ParsePaymentMethod validates a payment method against the policy.
func (p PointsPolicy) ParsePaymentMethod(s string) (PaymentMethod, error) {
	m := PaymentMethod(s)
	if _, ok := p.Multipliers[m]; !ok {
		return "", errors.Wrapf(ErrUnknownPaymentMethod, "%q", s)
	}
	return m, nil
}

// Points returns floor(payable × BaseRate) × multiplier. Partial points are
// dropped and the result is never negative; unknown methods earn nothing.
func (p PointsPolicy) Points(payable decimal.Decimal, method PaymentMethod) int64 {
	mult, ok := p.Multipliers[method]
	if !ok || mult <= 0 {
		return 0
	}
	base := floorAtZero(payable).Mul(floorAtZero(p.BaseRate)).Floor()
	return base.IntPart() * mult
}
