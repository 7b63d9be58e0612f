package catalog

import (
	"context"

	"github.com/shopspring/decimal"

	"Storefront/internal/apperr"
)

var (
	ErrProductNotFound    = apperr.NotFound("PRODUCT_NOT_FOUND", "Product not found")
	ErrCatalogUnavailable = apperr.New(apperr.KindInternal, "CATALOG_UNAVAILABLE", "Product catalog unavailable")
	ErrInvalidPrice       = apperr.Validation("INVALID_PRICE", "Product price is malformed")
)

// Product mirrors one record of the externally owned products.json.
type Product struct {
	ID          string           `json:"uuid"`
	PathURL     string           `json:"pathurl"`
	Article     string           `json:"article"`
	Price       string           `json:"price"`
	Rating      float64          `json:"rating"`
	Reviews     float64          `json:"reviews"`
	Currency    string           `json:"currency"`
	Discount    *decimal.Decimal `json:"discount,omitempty"`
	IsNew       bool             `json:"is_new"`
	Image       string           `json:"image"`
	Name        string           `json:"name"`
	Brand       string           `json:"brand"`
	Tags        []string         `json:"tags"`
	Description *string          `json:"description,omitempty"`
}

func (p Product) Clone() Product {
	out := p
	if p.Discount != nil {
		d := *p.Discount
		out.Discount = &d
	}
	if p.Tags != nil {
		out.Tags = make([]string, len(p.Tags))
		copy(out.Tags, p.Tags)
	}
	if p.Description != nil {
		s := *p.Description
		out.Description = &s
	}
	return out
}

// Reader resolves products from the catalog. Implementations must not cache
// across calls unless they own the catalog.
type Reader interface {
	Lookup(ctx context.Context, id string) (Product, error)
	ListSortedByID(ctx context.Context) ([]Product, error)
	Ping(ctx context.Context) error
}
