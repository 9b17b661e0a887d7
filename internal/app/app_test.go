package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xenking/outlet-rewards/internal/domain/product"
	"github.com/xenking/outlet-rewards/internal/handler"
	"github.com/xenking/outlet-rewards/pkg/health"
)

type emptyCatalog struct{}

func (emptyCatalog) List(context.Context, string) ([]product.Product, error) { return nil, nil }

func (emptyCatalog) GetByID(context.Context, string, string) (*product.Product, error) {
	return nil, product.ErrNotFound
}

func TestNewRouter(t *testing.T) {
	probes := health.New()
	r := newRouter(handler.NewHandler(nil, nil, emptyCatalog{}), probes)

	tests := []struct {
		path   string
		status int
	}{
		{path: "/livez", status: http.StatusOK},
		{path: "/readyz", status: http.StatusServiceUnavailable},
		{path: "/api/outlets/O1/products", status: http.StatusOK},
		{path: "/api/unknown", status: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.status, w.Code)
		})
	}

	probes.SetReady(true)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
