// Package cart holds a user's outlet-pinned cart and the reducer that applies
// user actions to it.
package cart

import (
	"fmt"
	"slices"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/outlet-rewards/internal/domain/pricing"
	"github.com/xenking/outlet-rewards/internal/domain/voucher"
)

// Sentinel errors returned by Apply.
var (
	ErrOutletMismatch            = errors.New("cart already holds items from another outlet")
	ErrBonusConfirmationRequired = errors.New("selecting a voucher clears the applied bonus; confirmation required")
	ErrVoucherExhausted          = errors.New("voucher usage limit reached")
	ErrEmptyCart                 = errors.New("cart is empty")
	ErrInvalidQuantity           = errors.New("quantity must be at least 1")
	ErrInvalidBonus              = errors.New("bonus amount must not be negative")
)

// ItemNotFoundError indicates the cart has no row with the given id.
type ItemNotFoundError struct {
	ItemID string
}

func (e *ItemNotFoundError) Error() string {
	return fmt.Sprintf("cart item %s not found", e.ItemID)
}

// Session is one user's cart. Items keep the order they were added in, which
// decides how per-product voucher slots are consumed.
type Session struct {
	UserID   string
	OutletID string
	Items    []pricing.LineItem
	// VoucherCode is the persisted selection; Voucher is its hydrated rule
	// and is nil until the service resolves it.
	VoucherCode string
	Voucher     *voucher.Selection
	Bonus       decimal.Decimal
}

// Rule returns the selected voucher rule, or nil.
func (s Session) Rule() *voucher.Rule {
	if s.Voucher == nil {
		return nil
	}
	return s.Voucher.Rule
}

// Totals prices the session.
func (s Session) Totals() pricing.Totals {
	return pricing.ComputeTotals(s.Items, s.Rule(), s.Bonus, s.OutletID)
}

// Empty reports whether the cart has no items.
func (s Session) Empty() bool {
	return len(s.Items) == 0
}

func (s Session) indexOf(itemID string) int {
	return slices.IndexFunc(s.Items, func(it pricing.LineItem) bool { return it.ID == itemID })
}

func (s *Session) clearVoucher() {
	s.VoucherCode = ""
	s.Voucher = nil
}

// Event is a user action on a session.
type Event interface {
	isEvent()
}

// AddItem adds a line. The first item pins the cart to OutletID; a line for a
// product already in the cart increases that row's quantity instead.
type AddItem struct {
	OutletID string
	Item     pricing.LineItem
}

// RemoveItem deletes a row and clears the bonus.
type RemoveItem struct {
	ItemID string
}

// UpdateQuantity sets a row's quantity and clears the bonus.
type UpdateQuantity struct {
	ItemID   string
	Quantity int
}

// SelectVoucher replaces the selected voucher. An applied bonus is cleared,
// which the user must confirm.
type SelectVoucher struct {
	Selection         *voucher.Selection
	ConfirmClearBonus bool
}

// ClearVoucher removes the selected voucher and keeps the bonus.
type ClearVoucher struct{}

// SetBonus stores Amount clamped by the bonus policy against Balance.
type SetBonus struct {
	Amount  decimal.Decimal
	Balance decimal.Decimal
}

// ClearBonus removes the applied bonus.
type ClearBonus struct{}

func (AddItem) isEvent()        {}
func (RemoveItem) isEvent()     {}
func (UpdateQuantity) isEvent() {}
func (SelectVoucher) isEvent()  {}
func (ClearVoucher) isEvent()   {}
func (SetBonus) isEvent()       {}
func (ClearBonus) isEvent()     {}

// Apply returns the session that results from e. s is not modified; on error
// the returned session is the zero value.
func Apply(s Session, e Event) (Session, error) {
	next := s
	next.Items = slices.Clone(s.Items)

	switch e := e.(type) {
	case AddItem:
		return addItem(next, e)
	case RemoveItem:
		return removeItem(next, e)
	case UpdateQuantity:
		return updateQuantity(next, e)
	case SelectVoucher:
		return selectVoucher(next, e)
	case ClearVoucher:
		next.clearVoucher()
		return next, nil
	case SetBonus:
		return setBonus(next, e)
	case ClearBonus:
		next.Bonus = decimal.Zero
		return next, nil
	default:
		return Session{}, errors.Errorf("unsupported cart event %T", e)
	}
}

func addItem(s Session, e AddItem) (Session, error) {
	if e.Item.Quantity < 1 {
		return Session{}, ErrInvalidQuantity
	}
	if !s.Empty() && s.OutletID != e.OutletID {
		return Session{}, errors.Wrapf(ErrOutletMismatch, "cart outlet %q, item outlet %q", s.OutletID, e.OutletID)
	}
	s.OutletID = e.OutletID

	for i := range s.Items {
		if s.Items[i].ProductID == e.Item.ProductID {
			s.Items[i].Quantity += e.Item.Quantity
			s.Items[i].UnitPrice = e.Item.UnitPrice
			return s, nil
		}
	}
	s.Items = append(s.Items, e.Item)
	return s, nil
}

func removeItem(s Session, e RemoveItem) (Session, error) {
	i := s.indexOf(e.ItemID)
	if i < 0 {
		return Session{}, &ItemNotFoundError{ItemID: e.ItemID}
	}
	s.Items = slices.Delete(s.Items, i, i+1)
	s.Bonus = decimal.Zero

	if s.Empty() {
		s.OutletID = ""
		s.clearVoucher()
		return s, nil
	}
	if rule := s.Rule(); rule != nil && rule.Scope == voucher.ScopeProductLevel {
		if !slices.ContainsFunc(s.Items, func(it pricing.LineItem) bool { return pricing.Matches(rule, it) }) {
			s.clearVoucher()
		}
	}
	return s, nil
}

func updateQuantity(s Session, e UpdateQuantity) (Session, error) {
	if e.Quantity < 1 {
		return Session{}, ErrInvalidQuantity
	}
	i := s.indexOf(e.ItemID)
	if i < 0 {
		return Session{}, &ItemNotFoundError{ItemID: e.ItemID}
	}
	s.Items[i].Quantity = e.Quantity
	s.Bonus = decimal.Zero
	return s, nil
}

func selectVoucher(s Session, e SelectVoucher) (Session, error) {
	sel := e.Selection
	if sel == nil || sel.Rule == nil {
		return Session{}, voucher.ErrNotFound
	}
	if s.Empty() {
		return Session{}, ErrEmptyCart
	}
	if sel.Exhausted() {
		return Session{}, errors.Wrapf(ErrVoucherExhausted, "voucher %s", sel.Rule.Code)
	}
	if s.VoucherCode == sel.Rule.Code {
		s.Voucher = sel
		return s, nil
	}
	if s.Bonus.IsPositive() {
		if !e.ConfirmClearBonus {
			return Session{}, ErrBonusConfirmationRequired
		}
		s.Bonus = decimal.Zero
	}
	s.VoucherCode = sel.Rule.Code
	s.Voucher = sel
	return s, nil
}

func setBonus(s Session, e SetBonus) (Session, error) {
	if e.Amount.IsNegative() {
		return Session{}, ErrInvalidBonus
	}
	subtotal := pricing.Subtotal(s.Items)
	discount, _ := pricing.VoucherDiscount(s.Rule(), s.Items, s.OutletID, subtotal)
	s.Bonus = pricing.ApplyBonus(e.Amount, subtotal, discount, e.Balance)
	return s, nil
}
