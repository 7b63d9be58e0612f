package catalog_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"Storefront/internal/catalog"
	"Storefront/pkg/kit"
)

func TestParsePrice(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"1,299.00", "1299", true},
		{"19.90", "19.9", true},
		{" 2 500 ", "2500", true},
		{"12,50 €", "", false},
		{"", "", false},
		{"-3", "", false},
	}
	for _, tc := range cases {
		got, err := catalog.ParsePrice(tc.in)
		if !tc.ok {
			assert.ErrorIs(t, err, catalog.ErrInvalidPrice, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got.String(), tc.in)
	}
}

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "1,234,567.50", catalog.FormatPrice(decimal.RequireFromString("1234567.5")))
	assert.Equal(t, "0.00", catalog.FormatPrice(decimal.Zero))
	assert.Equal(t, "-120.00", catalog.FormatPrice(decimal.NewFromInt(-120)))
}

func TestLinePrice(t *testing.T) {
	pct := decimal.NewFromInt(10)
	p := catalog.Product{ID: "p", Price: "50.00", Discount: &pct}

	total, discount, err := catalog.LinePrice(p, 3)
	require.NoError(t, err)
	assert.Equal(t, "135", total.String())
	assert.Equal(t, "15", discount.String())

	p.Discount = nil
	total, discount, err = catalog.LinePrice(p, 2)
	require.NoError(t, err)
	assert.Equal(t, "100", total.String())
	assert.True(t, discount.IsZero())
}

func writeProducts(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "products.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestFileReaderSeesExternalEdits(t *testing.T) {
	ctx := context.Background()
	path := writeProducts(t, `[{"uuid":"b","price":"2.00"},{"uuid":"a","price":"1.00"}]`)
	r := catalog.NewFileReader(path, nil)

	list, err := r.ListSortedByID(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].ID)

	_, err = r.Lookup(ctx, "c")
	assert.ErrorIs(t, err, catalog.ErrProductNotFound)

	require.NoError(t, os.WriteFile(path, []byte(`[{"uuid":"c","price":"3.00"}]`), 0o644))
	p, err := r.Lookup(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, "3.00", p.Price)
}

func TestFileReaderUnavailable(t *testing.T) {
	ctx := context.Background()

	missing := catalog.NewFileReader(filepath.Join(t.TempDir(), "nope.json"), nil)
	_, err := missing.Lookup(ctx, "a")
	assert.ErrorIs(t, err, catalog.ErrCatalogUnavailable)
	assert.Error(t, missing.Ping(ctx))

	broken := catalog.NewFileReader(writeProducts(t, `{`), nil)
	_, err = broken.ListSortedByID(ctx)
	assert.ErrorIs(t, err, catalog.ErrCatalogUnavailable)
}

func TestHTTPGetProduct(t *testing.T) {
	s := &catalog.Server{
		Products: catalog.NewMemStore(catalog.Product{ID: "p-1", Name: "Lamp", Price: "10.00"}),
		Log:      zap.NewNop(),
	}
	ts := httptest.NewServer(s.Routes())
	defer ts.Close()

	res, err := http.Get(ts.URL + "/p-1")
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	var p catalog.Product
	require.NoError(t, json.NewDecoder(res.Body).Decode(&p))
	assert.Equal(t, "Lamp", p.Name)

	res2, err := http.Get(ts.URL + "/missing")
	require.NoError(t, err)
	defer res2.Body.Close()
	assert.Equal(t, http.StatusNotFound, res2.StatusCode)

	var e kit.ErrorResponse
	require.NoError(t, json.NewDecoder(res2.Body).Decode(&e))
	assert.Equal(t, "PRODUCT_NOT_FOUND", e.ErrorCode)
}
