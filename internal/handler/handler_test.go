package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/outlet-rewards/internal/domain/cart"
	"github.com/xenking/outlet-rewards/internal/domain/order"
	"github.com/xenking/outlet-rewards/internal/domain/pricing"
	"github.com/xenking/outlet-rewards/internal/domain/product"
	"github.com/xenking/outlet-rewards/internal/domain/voucher"
	"github.com/xenking/outlet-rewards/internal/domain/wallet"
)

// --- Mock implementations ---

type call struct {
	op     string
	userID string
	args   []string
}

type stubCarts struct {
	quote *cart.Quote
	err   error
	calls []call
}

func (s *stubCarts) respond(op, userID string, args ...string) (*cart.Quote, error) {
	s.calls = append(s.calls, call{op: op, userID: userID, args: args})
	if s.err != nil {
		return nil, s.err
	}
	return s.quote, nil
}

func (s *stubCarts) Get(_ context.Context, userID string) (*cart.Quote, error) {
	return s.respond("get", userID)
}

func (s *stubCarts) AddItem(_ context.Context, userID, outletID, productID string, quantity int) (*cart.Quote, error) {
	return s.respond("add", userID, outletID, productID, decimal.NewFromInt(int64(quantity)).String())
}

func (s *stubCarts) RemoveItem(_ context.Context, userID, itemID string) (*cart.Quote, error) {
	return s.respond("remove", userID, itemID)
}

func (s *stubCarts) UpdateQuantity(_ context.Context, userID, itemID string, quantity int) (*cart.Quote, error) {
	return s.respond("update", userID, itemID, decimal.NewFromInt(int64(quantity)).String())
}

func (s *stubCarts) SelectVoucher(_ context.Context, userID, code string, confirm bool) (*cart.Quote, error) {
	c := "false"
	if confirm {
		c = "true"
	}
	return s.respond("select", userID, code, c)
}

func (s *stubCarts) ClearVoucher(_ context.Context, userID string) (*cart.Quote, error) {
	return s.respond("clear-voucher", userID)
}

func (s *stubCarts) SetBonus(_ context.Context, userID string, amount decimal.Decimal) (*cart.Quote, error) {
	return s.respond("bonus", userID, amount.String())
}

func (s *stubCarts) ClearBonus(_ context.Context, userID string) (*cart.Quote, error) {
	return s.respond("clear-bonus", userID)
}

type stubOrders struct {
	result *order.PlaceOrderResult
	err    error
	req    order.PlaceOrderRequest
}

func (s *stubOrders) PlaceOrder(_ context.Context, req order.PlaceOrderRequest) (*order.PlaceOrderResult, error) {
	s.req = req
	return s.result, s.err
}

type stubProducts struct {
	products []product.Product
	err      error
}

func (s *stubProducts) List(context.Context, string) ([]product.Product, error) {
	return s.products, s.err
}

func (s *stubProducts) GetByID(context.Context, string, string) (*product.Product, error) {
	return nil, product.ErrNotFound
}

// --- Fixtures ---

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func sampleQuote() *cart.Quote {
	sess := cart.Session{
		UserID:   "u1",
		OutletID: "O1",
		Items: []pricing.LineItem{
			{ID: "i1", ProductID: "latte", CategoryID: "coffee", UnitPrice: d("30"), Quantity: 2},
			{ID: "i2", ProductID: "bagel", CategoryID: "bakery", UnitPrice: d("25"), Quantity: 1},
		},
		VoucherCode: "TENOFF",
		Voucher: &voucher.Selection{
			Rule: &voucher.Rule{
				Code:     "TENOFF",
				Discount: voucher.Percent{Value: d("10")},
				Scope:    voucher.ScopeOrderTotal,
			},
			UsageCount:    1,
			MaxUsageCount: 3,
		},
		Bonus: d("5"),
	}
	return &cart.Quote{
		Session: sess,
		Totals:  sess.Totals(),
		Balance: d("40"),
		Points: map[pricing.PaymentMethod]int64{
			pricing.PaymentCash:    71,
			pricing.PaymentEWallet: 142,
		},
	}
}

type fixture struct {
	carts    *stubCarts
	orders   *stubOrders
	products *stubProducts
	router   http.Handler
}

func newFixture() *fixture {
	f := &fixture{
		carts:    &stubCarts{quote: sampleQuote()},
		orders:   &stubOrders{},
		products: &stubProducts{},
	}
	f.router = NewHandler(f.carts, f.orders, f.products).Routes()
	return f
}

func (f *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

// --- Tests ---

func TestGetCart(t *testing.T) {
	f := newFixture()

	w := f.do(http.MethodGet, "/carts/u1", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{
		"userId": "u1",
		"outletId": "O1",
		"items": [
			{"id": "i1", "productId": "latte", "unitPrice": "30.00", "quantity": 2, "amount": "60.00", "discount": "0.00"},
			{"id": "i2", "productId": "bagel", "unitPrice": "25.00", "quantity": 1, "amount": "25.00", "discount": "0.00"}
		],
		"voucher": {"code": "TENOFF", "description": "", "kind": "percent", "usageCount": 1, "maxUsageCount": 3},
		"bonus": {"requested": "5.00", "balance": "40.00", "ceiling": "76.50"},
		"totals": {
			"subtotal": "85.00",
			"voucherDiscount": "8.50",
			"bonusDiscount": "5.00",
			"savings": "13.50",
			"payable": "71.50",
			"trace": [
				{"reason": "order_level", "detail": "voucher TENOFF prices the whole order"},
				{"reason": "applied", "detail": "voucher TENOFF discounts 8.50"}
			]
		},
		"points": {"cash": 71, "ewallet": 142}
	}`, w.Body.String())
	assert.Equal(t, []call{{op: "get", userID: "u1"}}, f.carts.calls)
}

func TestGetCart_NoVoucher(t *testing.T) {
	f := newFixture()
	f.carts.quote = &cart.Quote{Session: cart.Session{UserID: "u2"}}
	f.carts.quote.Totals = f.carts.quote.Session.Totals()

	w := f.do(http.MethodGet, "/carts/u2", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"voucher":null`)
	assert.Contains(t, w.Body.String(), `"reason":"no_voucher"`)
}

func TestCartRoutes(t *testing.T) {
	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   call
	}{
		{
			name:   "add item",
			method: http.MethodPost,
			path:   "/carts/u1/items",
			body:   `{"outletId":"O1","productId":"latte","quantity":3,"note":"ignored"}`,
			want:   call{op: "add", userID: "u1", args: []string{"O1", "latte", "3"}},
		},
		{
			name:   "add item defaults to one unit",
			method: http.MethodPost,
			path:   "/carts/u1/items",
			body:   `{"outletId":"O1","productId":"latte"}`,
			want:   call{op: "add", userID: "u1", args: []string{"O1", "latte", "1"}},
		},
		{
			name:   "update quantity",
			method: http.MethodPatch,
			path:   "/carts/u1/items/i1",
			body:   `{"quantity":4}`,
			want:   call{op: "update", userID: "u1", args: []string{"i1", "4"}},
		},
		{
			name:   "remove item",
			method: http.MethodDelete,
			path:   "/carts/u1/items/i2",
			want:   call{op: "remove", userID: "u1", args: []string{"i2"}},
		},
		{
			name:   "select voucher",
			method: http.MethodPut,
			path:   "/carts/u1/voucher",
			body:   `{"code":"tenoff","confirmClearBonus":true}`,
			want:   call{op: "select", userID: "u1", args: []string{"tenoff", "true"}},
		},
		{
			name:   "clear voucher",
			method: http.MethodDelete,
			path:   "/carts/u1/voucher",
			want:   call{op: "clear-voucher", userID: "u1"},
		},
		{
			name:   "set bonus from string",
			method: http.MethodPut,
			path:   "/carts/u1/bonus",
			body:   `{"amount":"12.50"}`,
			want:   call{op: "bonus", userID: "u1", args: []string{"12.5"}},
		},
		{
			name:   "set bonus from number",
			method: http.MethodPut,
			path:   "/carts/u1/bonus",
			body:   `{"amount":7.25}`,
			want:   call{op: "bonus", userID: "u1", args: []string{"7.25"}},
		},
		{
			name:   "clear bonus",
			method: http.MethodDelete,
			path:   "/carts/u1/bonus",
			want:   call{op: "clear-bonus", userID: "u1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()

			w := f.do(tt.method, tt.path, tt.body)

			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			require.Len(t, f.carts.calls, 1)
			assert.Equal(t, tt.want, f.carts.calls[0])
		})
	}
}

func TestBadRequestBodies(t *testing.T) {
	tests := []struct {
		name   string
		method string
		path   string
		body   string
	}{
		{name: "not json", method: http.MethodPost, path: "/carts/u1/items", body: `quantity=1`},
		{name: "wrong type", method: http.MethodPatch, path: "/carts/u1/items/i1", body: `{"quantity":"two"}`},
		{name: "bad amount", method: http.MethodPut, path: "/carts/u1/bonus", body: `{"amount":"lots"}`},
		{name: "amount is bool", method: http.MethodPut, path: "/carts/u1/bonus", body: `{"amount":true}`},
		{name: "array body", method: http.MethodPost, path: "/carts/u1/checkout", body: `[]`},
		{name: "empty body", method: http.MethodPut, path: "/carts/u1/voucher", body: ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()

			w := f.do(tt.method, tt.path, tt.body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), `"code":400`)
			assert.Empty(t, f.carts.calls)
		})
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{name: "invalid quantity", err: cart.ErrInvalidQuantity, status: http.StatusBadRequest},
		{name: "negative bonus", err: cart.ErrInvalidBonus, status: http.StatusBadRequest},
		{name: "invalid line", err: errors.Wrap(pricing.ErrInvalidLineItem, "negative unit price"), status: http.StatusBadRequest},
		{name: "unknown product", err: errors.Wrap(product.ErrNotFound, "get product x"), status: http.StatusNotFound},
		{name: "unknown voucher", err: voucher.ErrNotFound, status: http.StatusNotFound},
		{name: "unknown item", err: &cart.ItemNotFoundError{ItemID: "i9"}, status: http.StatusNotFound, message: "cart item i9 not found"},
		{name: "other outlet", err: cart.ErrOutletMismatch, status: http.StatusConflict},
		{name: "bonus confirmation", err: cart.ErrBonusConfirmationRequired, status: http.StatusConflict},
		{name: "exhausted voucher", err: cart.ErrVoucherExhausted, status: http.StatusConflict},
		{name: "empty cart", err: cart.ErrEmptyCart, status: http.StatusUnprocessableEntity},
		{name: "insufficient balance", err: wallet.ErrInsufficientBalance, status: http.StatusUnprocessableEntity},
		{name: "internal", err: errors.New("connection reset"), status: http.StatusInternalServerError, message: "internal error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.carts.err = tt.err

			w := f.do(http.MethodGet, "/carts/u1", "")

			assert.Equal(t, tt.status, w.Code)
			msg := tt.message
			if msg == "" {
				msg = tt.err.Error()
			}
			assert.JSONEq(t, `{"code":`+decimal.NewFromInt(int64(tt.status)).String()+`,"message":"`+msg+`"}`, w.Body.String())
		})
	}
}

func TestCheckout(t *testing.T) {
	f := newFixture()
	q := sampleQuote()
	f.orders.result = &order.PlaceOrderResult{
		Order: &order.Order{
			ID:       "ord-1",
			UserID:   "u1",
			OutletID: "O1",
			Items: []order.OrderItem{
				{ProductID: "latte", Quantity: 2, UnitPrice: d("30"), Discount: d("0")},
			},
			Subtotal:        q.Totals.Subtotal,
			VoucherDiscount: q.Totals.VoucherDiscount,
			BonusDiscount:   q.Totals.BonusDiscount,
			Total:           q.Totals.PayableTotal,
			VoucherCode:     "TENOFF",
			PaymentMethod:   pricing.PaymentEWallet,
			PointsEarned:    142,
			CreatedAt:       time.Date(2026, 10, 1, 9, 30, 0, 0, time.UTC),
		},
		Totals: q.Totals,
	}

	w := f.do(http.MethodPost, "/carts/u1/checkout", `{"paymentMethod":"ewallet"}`)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, order.PlaceOrderRequest{UserID: "u1", PaymentMethod: "ewallet"}, f.orders.req)
	body := w.Body.String()
	assert.Contains(t, body, `"id":"ord-1"`)
	assert.Contains(t, body, `"total":"71.50"`)
	assert.Contains(t, body, `"voucherCode":"TENOFF"`)
	assert.Contains(t, body, `"pointsEarned":142`)
	assert.Contains(t, body, `"createdAt":"2026-10-01T09:30:00Z"`)
	assert.NotContains(t, body, `"gift"`)
}

func TestCheckout_Errors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{name: "unknown payment method", err: errors.Wrapf(pricing.ErrUnknownPaymentMethod, "%q", "crypto"), status: http.StatusUnprocessableEntity},
		{name: "empty cart", err: order.ErrEmptyCart, status: http.StatusUnprocessableEntity},
		{name: "exhausted voucher", err: errors.Wrap(cart.ErrVoucherExhausted, "voucher TENOFF"), status: http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.orders.err = tt.err

			w := f.do(http.MethodPost, "/carts/u1/checkout", `{"paymentMethod":"crypto"}`)

			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestListProducts(t *testing.T) {
	f := newFixture()
	f.products.products = []product.Product{
		{ID: "latte", OutletID: "O1", Name: "Latte", Price: d("30"), CategoryID: "coffee", SubcategoryID: "milk"},
	}

	w := f.do(http.MethodGet, "/outlets/O1/products", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[{"id":"latte","name":"Latte","price":"30.00","categoryId":"coffee","subcategoryId":"milk"}]`, w.Body.String())

	f.products.products = nil
	w = f.do(http.MethodGet, "/outlets/O2/products", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestUnknownRoutes(t *testing.T) {
	f := newFixture()

	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/nope", "").Code)
	w := f.do(http.MethodPost, "/carts/u1/voucher", `{}`)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.JSONEq(t, `{"code":405,"message":"method not allowed"}`, w.Body.String())
}
