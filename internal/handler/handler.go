// Package handler exposes the cart, checkout and catalog operations over
// HTTP. Requests and responses are JSON; money is a decimal string with two
// places.
package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/xenking/outlet-rewards/internal/domain/cart"
	"github.com/xenking/outlet-rewards/internal/domain/order"
	"github.com/xenking/outlet-rewards/internal/domain/product"
)

// Carts is the cart service as seen by the HTTP layer.
type Carts interface {
	Get(ctx context.Context, userID string) (*cart.Quote, error)
	AddItem(ctx context.Context, userID, outletID, productID string, quantity int) (*cart.Quote, error)
	RemoveItem(ctx context.Context, userID, itemID string) (*cart.Quote, error)
	UpdateQuantity(ctx context.Context, userID, itemID string, quantity int) (*cart.Quote, error)
	SelectVoucher(ctx context.Context, userID, code string, confirmClearBonus bool) (*cart.Quote, error)
	ClearVoucher(ctx context.Context, userID string) (*cart.Quote, error)
	SetBonus(ctx context.Context, userID string, amount decimal.Decimal) (*cart.Quote, error)
	ClearBonus(ctx context.Context, userID string) (*cart.Quote, error)
}

// Orders places orders.
type Orders interface {
	PlaceOrder(ctx context.Context, req order.PlaceOrderRequest) (*order.PlaceOrderResult, error)
}

var (
	_ Carts  = (*cart.Service)(nil)
	_ Orders = (*order.Service)(nil)
)

// Handler serves the rewards API.
type Handler struct {
	carts    Carts
	orders   Orders
	products product.Repository
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(carts Carts, orders Orders, products product.Repository) *Handler {
	return &Handler{
		carts:    carts,
		orders:   orders,
		products: products,
	}
}

// Routes returns the API router, to be mounted under /api.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/outlets/{outletID}/products", h.ListProducts)

	r.Route("/carts/{userID}", func(r chi.Router) {
		r.Get("/", h.GetCart)
		r.Post("/items", h.AddItem)
		r.Patch("/items/{itemID}", h.UpdateQuantity)
		r.Delete("/items/{itemID}", h.RemoveItem)
		r.Put("/voucher", h.SelectVoucher)
		r.Delete("/voucher", h.ClearVoucher)
		r.Put("/bonus", h.SetBonus)
		r.Delete("/bonus", h.ClearBonus)
		r.Post("/checkout", h.Checkout)
	})
	return r
}
