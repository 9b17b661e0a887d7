package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/outlet-rewards/internal/domain/cart"
)

// GetCart returns the priced cart.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	q, err := h.carts.Get(r.Context(), chi.URLParam(r, "userID"))
	h.respondQuote(w, r, q, err)
}

// AddItem adds a product from an outlet's catalog to the cart.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	var (
		outletID, productID string
		quantity            = 1
	)
	err := decodeObject(w, r, func(d *jx.Decoder, key string) (err error) {
		switch key {
		case "outletId":
			outletID, err = d.Str()
		case "productId":
			productID, err = d.Str()
		case "quantity":
			quantity, err = d.Int()
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		fail(w, r, err)
		return
	}

	q, err := h.carts.AddItem(r.Context(), chi.URLParam(r, "userID"), outletID, productID, quantity)
	h.respondQuote(w, r, q, err)
}

// UpdateQuantity sets the quantity of one cart row.
func (h *Handler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	var quantity int
	err := decodeObject(w, r, func(d *jx.Decoder, key string) (err error) {
		if key == "quantity" {
			quantity, err = d.Int()
			return err
		}
		return d.Skip()
	})
	if err != nil {
		fail(w, r, err)
		return
	}

	q, err := h.carts.UpdateQuantity(r.Context(), chi.URLParam(r, "userID"), chi.URLParam(r, "itemID"), quantity)
	h.respondQuote(w, r, q, err)
}

// RemoveItem deletes one cart row.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	q, err := h.carts.RemoveItem(r.Context(), chi.URLParam(r, "userID"), chi.URLParam(r, "itemID"))
	h.respondQuote(w, r, q, err)
}

// SelectVoucher selects a voucher by code. Selecting while a bonus is applied
// needs confirmClearBonus.
func (h *Handler) SelectVoucher(w http.ResponseWriter, r *http.Request) {
	var (
		code    string
		confirm bool
	)
	err := decodeObject(w, r, func(d *jx.Decoder, key string) (err error) {
		switch key {
		case "code":
			code, err = d.Str()
		case "confirmClearBonus":
			confirm, err = d.Bool()
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		fail(w, r, err)
		return
	}

	q, err := h.carts.SelectVoucher(r.Context(), chi.URLParam(r, "userID"), code, confirm)
	h.respondQuote(w, r, q, err)
}

// ClearVoucher removes the selected voucher.
func (h *Handler) ClearVoucher(w http.ResponseWriter, r *http.Request) {
	q, err := h.carts.ClearVoucher(r.Context(), chi.URLParam(r, "userID"))
	h.respondQuote(w, r, q, err)
}

// SetBonus applies part of the user's bonus balance.
func (h *Handler) SetBonus(w http.ResponseWriter, r *http.Request) {
	var amount decimal.Decimal
	err := decodeObject(w, r, func(d *jx.Decoder, key string) (err error) {
		if key == "amount" {
			amount, err = decodeDecimal(d)
			return err
		}
		return d.Skip()
	})
	if err != nil {
		fail(w, r, err)
		return
	}

	q, err := h.carts.SetBonus(r.Context(), chi.URLParam(r, "userID"), amount)
	h.respondQuote(w, r, q, err)
}

// ClearBonus removes the applied bonus.
func (h *Handler) ClearBonus(w http.ResponseWriter, r *http.Request) {
	q, err := h.carts.ClearBonus(r.Context(), chi.URLParam(r, "userID"))
	h.respondQuote(w, r, q, err)
}

func (h *Handler) respondQuote(w http.ResponseWriter, r *http.Request, q *cart.Quote, err error) {
	if err != nil {
		fail(w, r, err)
		return
	}
	var e jx.Encoder
	encodeQuote(&e, q)
	writeJSON(w, http.StatusOK, &e)
}
