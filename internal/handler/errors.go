package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/outlet-rewards/internal/domain/cart"
	"github.com/xenking/outlet-rewards/internal/domain/order"
	"github.com/xenking/outlet-rewards/internal/domain/pricing"
	"github.com/xenking/outlet-rewards/internal/domain/product"
	"github.com/xenking/outlet-rewards/internal/domain/voucher"
	"github.com/xenking/outlet-rewards/internal/domain/wallet"
)

// badRequestError marks a request the server could not decode.
type badRequestError struct {
	err error
}

func (e *badRequestError) Error() string { return "invalid request body: " + e.err.Error() }

func (e *badRequestError) Unwrap() error { return e.err }

// statusOf maps domain errors to HTTP status codes. Unknown errors are 500.
func statusOf(err error) int {
	var (
		bad      *badRequestError
		notFound *cart.ItemNotFoundError
	)
	switch {
	case errors.As(err, &bad),
		errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, cart.ErrInvalidBonus),
		errors.Is(err, pricing.ErrInvalidLineItem):
		return http.StatusBadRequest
	case errors.As(err, &notFound),
		errors.Is(err, product.ErrNotFound),
		errors.Is(err, voucher.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, cart.ErrOutletMismatch),
		errors.Is(err, cart.ErrBonusConfirmationRequired),
		errors.Is(err, cart.ErrVoucherExhausted):
		return http.StatusConflict
	case errors.Is(err, cart.ErrEmptyCart),
		errors.Is(err, order.ErrEmptyCart),
		errors.Is(err, pricing.ErrUnknownPaymentMethod),
		errors.Is(err, wallet.ErrInsufficientBalance):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err as a JSON error. Internal details are logged, not returned.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		zctx.From(r.Context()).Error("Request failed", zap.Error(err))
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}

func writeError(w http.ResponseWriter, status int, msg string) {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("code", func(e *jx.Encoder) { e.Int(status) })
		e.Field("message", func(e *jx.Encoder) { e.Str(msg) })
	})
	writeJSON(w, status, &e)
}

func writeJSON(w http.ResponseWriter, status int, e *jx.Encoder) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}
