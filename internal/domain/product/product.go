package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist at an outlet.
var ErrNotFound = errors.New("product not found")

// Product is a catalog item sold at one outlet.
type Product struct {
	ID            string
	OutletID      string
	Name          string
	Price         decimal.Decimal
	CategoryID    string
	SubcategoryID string
}

// Repository defines read operations for an outlet's catalog.
type Repository interface {
	List(ctx context.Context, outletID string) ([]Product, error)
	GetByID(ctx context.Context, outletID, id string) (*Product, error)
}
