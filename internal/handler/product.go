package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
)

// ListProducts returns an outlet's catalog.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context(), chi.URLParam(r, "outletID"))
	if err != nil {
		fail(w, r, errors.Wrap(err, "list products"))
		return
	}
	var e jx.Encoder
	encodeProducts(&e, products)
	writeJSON(w, http.StatusOK, &e)
}
