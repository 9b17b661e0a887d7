package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/xenking/outlet-rewards/internal/domain/cart"
	"github.com/xenking/outlet-rewards/internal/domain/pricing"
)

// ErrEmptyCart is returned when checking out a cart without items.
var ErrEmptyCart = errors.New("cart is empty")

// Carts is the part of the cart service checkout depends on.
type Carts interface {
	Snapshot(ctx context.Context, userID string) (*cart.Snapshot, error)
}

// PlaceOrderRequest holds the input for checking out a cart.
type PlaceOrderRequest struct {
	UserID        string
	PaymentMethod string
}

// PlaceOrderResult holds the output of a successful checkout.
type PlaceOrderResult struct {
	Order  *Order
	Totals pricing.Totals
}

type metrics struct {
	placed  metric.Int64Counter
	voucher metric.Float64Counter
	bonus   metric.Float64Counter
}

func newMetrics(meter metric.Meter) (*metrics, error) {
	var (
		m   metrics
		err error
	)
	if m.placed, err = meter.Int64Counter("rewards.orders.placed",
		metric.WithDescription("Orders placed"),
	); err != nil {
		return nil, errors.Wrap(err, "orders counter")
	}
	if m.voucher, err = meter.Float64Counter("rewards.discount.voucher",
		metric.WithDescription("Voucher discount granted"),
	); err != nil {
		return nil, errors.Wrap(err, "voucher discount counter")
	}
	if m.bonus, err = meter.Float64Counter("rewards.discount.bonus",
		metric.WithDescription("Bonus balance redeemed"),
	); err != nil {
		return nil, errors.Wrap(err, "bonus discount counter")
	}
	return &m, nil
}

// Service encapsulates checkout business logic.
type Service struct {
	carts   Carts
	orders  Repository
	policy  pricing.PointsPolicy
	metrics *metrics
	now     func() time.Time
}

// NewService creates an order Service with the required domain dependencies.
func NewService(
	carts Carts,
	orders Repository,
	policy pricing.PointsPolicy,
	meter metric.Meter,
) (*Service, error) {
	m, err := newMetrics(meter)
	if err != nil {
		return nil, err
	}
	return &Service{
		carts:   carts,
		orders:  orders,
		policy:  policy,
		metrics: m,
		now:     time.Now,
	}, nil
}

// PlaceOrder prices the user's cart once more and places the order. The bonus
// debit, voucher usage, earned points and the cart reset are settled together
// with the order by Repository.Place, so a failed checkout leaves nothing
// behind and can be retried.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*PlaceOrderResult, error) {
	method, err := s.policy.ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		return nil, err
	}

	snap, err := s.carts.Snapshot(ctx, req.UserID)
	if err != nil {
		return nil, errors.Wrap(err, "load cart")
	}
	sess := snap.Session
	if sess.Empty() {
		return nil, ErrEmptyCart
	}
	if sess.Voucher != nil && sess.Voucher.Exhausted() {
		return nil, errors.Wrapf(cart.ErrVoucherExhausted, "voucher %s", sess.VoucherCode)
	}

	// The balance may have moved since the bonus was chosen.
	sess.Bonus = decimal.Min(sess.Bonus, snap.Balance)
	totals := sess.Totals()
	_, rejected := totals.Trace.Rejection()
	redeemed := sess.Voucher != nil && !rejected &&
		(totals.VoucherDiscount.IsPositive() || totals.Gift != "")

	o := &Order{
		ID:              uuid.New().String(),
		UserID:          req.UserID,
		OutletID:        sess.OutletID,
		Items:           orderItems(sess.Items, totals.Items),
		Subtotal:        totals.Subtotal,
		VoucherDiscount: totals.VoucherDiscount,
		BonusDiscount:   totals.BonusDiscount,
		Total:           totals.PayableTotal,
		Gift:            totals.Gift,
		PaymentMethod:   method,
		PointsEarned:    totals.LoyaltyPoints(s.policy, method),
		CreatedAt:       s.now(),
	}
	if redeemed {
		o.VoucherCode = sess.VoucherCode
	}
	if err := s.orders.Place(ctx, o); err != nil {
		zctx.From(ctx).Warn("Order not placed",
			zap.String("order_id", o.ID),
			zap.String("user_id", o.UserID),
			zap.Error(err),
		)
		return nil, errors.Wrap(err, "place order")
	}
	s.record(ctx, o)

	zctx.From(ctx).Info("Order placed",
		zap.String("order_id", o.ID),
		zap.String("user_id", o.UserID),
		zap.String("total", o.Total.StringFixed(pricing.MoneyPlaces)),
		zap.Int64("points", o.PointsEarned),
	)
	return &PlaceOrderResult{Order: o, Totals: totals}, nil
}

func (s *Service) record(ctx context.Context, o *Order) {
	attrs := metric.WithAttributes(
		attribute.String("payment_method", string(o.PaymentMethod)),
		attribute.String("outlet_id", o.OutletID),
	)
	s.metrics.placed.Add(ctx, 1, attrs)
	if o.VoucherDiscount.IsPositive() {
		s.metrics.voucher.Add(ctx, o.VoucherDiscount.InexactFloat64(), attrs)
	}
	if o.BonusDiscount.IsPositive() {
		s.metrics.bonus.Add(ctx, o.BonusDiscount.InexactFloat64(), attrs)
	}
}

func orderItems(items []pricing.LineItem, shares []pricing.ItemDiscount) []OrderItem {
	byIndex := make(map[int]decimal.Decimal, len(shares))
	for _, sh := range shares {
		byIndex[sh.Index] = sh.Amount
	}
	out := make([]OrderItem, len(items))
	for i, it := range items {
		out[i] = OrderItem{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			Discount:  byIndex[i],
		}
	}
	return out
}
