package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"

	"github.com/xenking/outlet-rewards/internal/domain/order"
)

// Checkout places an order for the user's cart.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	var method string
	err := decodeObject(w, r, func(d *jx.Decoder, key string) (err error) {
		if key == "paymentMethod" {
			method, err = d.Str()
			return err
		}
		return d.Skip()
	})
	if err != nil {
		fail(w, r, err)
		return
	}

	res, err := h.orders.PlaceOrder(r.Context(), order.PlaceOrderRequest{
		UserID:        chi.URLParam(r, "userID"),
		PaymentMethod: method,
	})
	if err != nil {
		fail(w, r, err)
		return
	}

	var e jx.Encoder
	encodeOrder(&e, res)
	writeJSON(w, http.StatusCreated, &e)
}
