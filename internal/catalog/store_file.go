package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"go.uber.org/zap"

	"Storefront/internal/apperr"
)

// FileReader reads products.json on every call. The catalog is owned by
// another process and may change at any time.
type FileReader struct {
	path string
	log  *zap.Logger
}

func NewFileReader(path string, log *zap.Logger) *FileReader {
	if log == nil {
		log = zap.NewNop()
	}
	return &FileReader{path: path, log: log}
}

func (r *FileReader) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := os.Stat(r.path)
	return err
}

func (r *FileReader) Lookup(ctx context.Context, id string) (Product, error) {
	products, err := r.load(ctx)
	if err != nil {
		return Product{}, err
	}
	for _, p := range products {
		if p.ID == id {
			return p, nil
		}
	}
	r.log.Debug("product not found", zap.String("product_id", id))
	return Product{}, ErrProductNotFound
}

func (r *FileReader) ListSortedByID(ctx context.Context) ([]Product, error) {
	products, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(products, func(i, j int) bool { return products[i].ID < products[j].ID })
	return products, nil
}

func (r *FileReader) load(ctx context.Context) ([]Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(r.path)
	if err != nil {
		r.log.Error("read product file failed", zap.String("path", r.path), zap.Error(err))
		return nil, apperr.Wrap(ErrCatalogUnavailable, err)
	}

	var products []Product
	if err := json.Unmarshal(data, &products); err != nil {
		r.log.Error("decode product file failed", zap.String("path", r.path), zap.Error(err))
		return nil, apperr.Wrap(ErrCatalogUnavailable, fmt.Errorf("decode %s: %w", r.path, err))
	}
	return products, nil
}
