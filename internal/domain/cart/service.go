package cart

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/outlet-rewards/internal/domain/pricing"
	"github.com/xenking/outlet-rewards/internal/domain/product"
	"github.com/xenking/outlet-rewards/internal/domain/voucher"
	"github.com/xenking/outlet-rewards/internal/domain/wallet"
)

// Snapshot is a session hydrated with its voucher selection and the user's
// bonus balance.
type Snapshot struct {
	Session Session
	Balance decimal.Decimal
}

// Quote is the priced view of a cart returned after every operation.
type Quote struct {
	Session Session
	Totals  pricing.Totals
	Balance decimal.Decimal
	// Points projects loyalty points for each known payment method.
	Points map[pricing.PaymentMethod]int64
}

// Service loads carts, applies user actions and prices the result.
type Service struct {
	store    Store
	products product.Repository
	vouchers voucher.Repository
	ledger   wallet.Ledger
	policy   pricing.PointsPolicy
	newID    func() string
}

// NewService creates a cart Service with the required domain dependencies.
func NewService(
	store Store,
	products product.Repository,
	vouchers voucher.Repository,
	ledger wallet.Ledger,
	policy pricing.PointsPolicy,
) *Service {
	return &Service{
		store:    store,
		products: products,
		vouchers: vouchers,
		ledger:   ledger,
		policy:   policy,
		newID:    func() string { return uuid.New().String() },
	}
}

// Get returns the current quote for userID.
func (s *Service) Get(ctx context.Context, userID string) (*Quote, error) {
	snap, err := s.Snapshot(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.quote(snap.Session, snap.Balance), nil
}

// Snapshot loads and hydrates the session for userID. A stored voucher code
// that no longer resolves is dropped from the session.
func (s *Service) Snapshot(ctx context.Context, userID string) (*Snapshot, error) {
	sess, err := s.store.Load(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "load cart")
	}

	sel, balance, err := s.hydrate(ctx, userID, sess.VoucherCode)
	switch {
	case errors.Is(err, voucher.ErrNotFound):
		zctx.From(ctx).Debug("Dropping unresolvable voucher",
			zap.String("user_id", userID),
			zap.String("code", sess.VoucherCode),
		)
		sess.clearVoucher()
		if sel, balance, err = s.hydrate(ctx, userID, ""); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	}
	sess.Voucher = sel

	return &Snapshot{Session: *sess, Balance: balance}, nil
}

// hydrate fetches the selection for code and the user's balance concurrently.
func (s *Service) hydrate(ctx context.Context, userID, code string) (*voucher.Selection, decimal.Decimal, error) {
	var (
		sel     *voucher.Selection
		balance decimal.Decimal
	)
	g, gctx := errgroup.WithContext(ctx)
	if code != "" {
		g.Go(func() error {
			var err error
			sel, err = s.vouchers.FindSelection(gctx, code, userID)
			if err != nil {
				return errors.Wrapf(err, "find voucher %s", code)
			}
			return nil
		})
	}
	g.Go(func() error {
		var err error
		balance, err = s.ledger.Balance(gctx, userID)
		if err != nil {
			return errors.Wrap(err, "bonus balance")
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, decimal.Zero, err
	}
	return sel, balance, nil
}

// AddItem looks productID up in outletID's catalog and adds quantity units.
func (s *Service) AddItem(ctx context.Context, userID, outletID, productID string, quantity int) (*Quote, error) {
	p, err := s.products.GetByID(ctx, outletID, productID)
	if err != nil {
		return nil, errors.Wrapf(err, "get product %s", productID)
	}
	item, err := pricing.NewLineItem(s.newID(), p.ID, p.CategoryID, p.SubcategoryID, p.Price, quantity)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, userID, AddItem{OutletID: outletID, Item: item})
}

// RemoveItem deletes a row from the cart.
func (s *Service) RemoveItem(ctx context.Context, userID, itemID string) (*Quote, error) {
	return s.apply(ctx, userID, RemoveItem{ItemID: itemID})
}

// UpdateQuantity sets a row's quantity.
func (s *Service) UpdateQuantity(ctx context.Context, userID, itemID string, quantity int) (*Quote, error) {
	return s.apply(ctx, userID, UpdateQuantity{ItemID: itemID, Quantity: quantity})
}

// SelectVoucher resolves code for userID and selects it.
func (s *Service) SelectVoucher(ctx context.Context, userID, code string, confirmClearBonus bool) (*Quote, error) {
	code = voucher.NormalizeCode(code)
	if code == "" {
		return nil, voucher.ErrNotFound
	}

	sess, err := s.store.Load(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "load cart")
	}
	sel, balance, err := s.hydrate(ctx, userID, code)
	if err != nil {
		return nil, err
	}
	return s.commit(ctx, *sess, balance, SelectVoucher{Selection: sel, ConfirmClearBonus: confirmClearBonus})
}

// ClearVoucher removes the selected voucher.
func (s *Service) ClearVoucher(ctx context.Context, userID string) (*Quote, error) {
	return s.apply(ctx, userID, ClearVoucher{})
}

// SetBonus applies up to amount of the user's bonus balance.
func (s *Service) SetBonus(ctx context.Context, userID string, amount decimal.Decimal) (*Quote, error) {
	snap, err := s.Snapshot(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.commit(ctx, snap.Session, snap.Balance, SetBonus{Amount: amount, Balance: snap.Balance})
}

// ClearBonus removes the applied bonus.
func (s *Service) ClearBonus(ctx context.Context, userID string) (*Quote, error) {
	return s.apply(ctx, userID, ClearBonus{})
}

func (s *Service) apply(ctx context.Context, userID string, e Event) (*Quote, error) {
	snap, err := s.Snapshot(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.commit(ctx, snap.Session, snap.Balance, e)
}

func (s *Service) commit(ctx context.Context, sess Session, balance decimal.Decimal, e Event) (*Quote, error) {
	next, err := Apply(sess, e)
	if err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, &next); err != nil {
		return nil, errors.Wrap(err, "save cart")
	}

	zctx.From(ctx).Debug("Cart updated",
		zap.String("user_id", next.UserID),
		zap.String("event", fmt.Sprintf("%T", e)),
		zap.Int("items", len(next.Items)),
		zap.String("voucher", next.VoucherCode),
	)
	return s.quote(next, balance), nil
}

func (s *Service) quote(sess Session, balance decimal.Decimal) *Quote {
	totals := sess.Totals()
	points := make(map[pricing.PaymentMethod]int64, len(s.policy.Multipliers))
	for method := range s.policy.Multipliers {
		points[method] = totals.LoyaltyPoints(s.policy, method)
	}
	return &Quote{
		Session: sess,
		Totals:  totals,
		Balance: balance,
		Points:  points,
	}
}
