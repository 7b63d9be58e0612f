package gateway_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"Storefront/internal/auth"
	"Storefront/internal/config"
	"Storefront/internal/gateway"
	"Storefront/internal/order"
	"Storefront/internal/user"
)

const products = `[
  {"uuid": "p1", "name": "Kettle", "price": "1,000.00", "discount": "10", "tags": []},
  {"uuid": "p2", "name": "Mug", "price": "25.00", "tags": ["kitchen"]}
]`

func TestMain(m *testing.M) {
	user.HashCost = bcrypt.MinCost
	os.Exit(m.Run())
}

func newGatewayTS(t *testing.T) *httptest.Server {
	t.Helper()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "products.json"), []byte(products), 0o644); err != nil {
		t.Fatalf("write products: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "promocodes.json"), []byte(`[
  {"code": "HALF", "discount": "50", "available_at": "2000-01-01T00:00:00Z", "expired_at": "2999-01-01T00:00:00Z"}
]`), 0o644); err != nil {
		t.Fatalf("write promocodes: %v", err)
	}

	files := config.Files{
		Products:   filepath.Join(dir, "products.json"),
		Users:      filepath.Join(dir, "users.json"),
		Carts:      filepath.Join(dir, "carts.json"),
		Favorites:  filepath.Join(dir, "favorites.json"),
		Orders:     filepath.Join(dir, "orders.json"),
		PromoCodes: filepath.Join(dir, "promocodes.json"),
	}

	st, err := gateway.OpenStores(context.Background(), files, zap.NewNop(), nil)
	if err != nil {
		t.Fatalf("gateway.OpenStores: %v", err)
	}

	h := gateway.NewHandler(
		gateway.Deps{
			Stores:   st,
			JWT:      auth.NewTokenMaker("test-secret"),
			TokenTTL: time.Hour,
		},
		gateway.HTTPDeps{
			Log:            zap.NewNop(),
			Service:        "storefront",
			Registry:       prometheus.NewRegistry(),
			MetricsEnabled: true,
			MetricsToken:   "scrape",
		},
	)

	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	return ts
}

func doJSON(t *testing.T, c *http.Client, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		r = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, url, r)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, raw
}

func signedIn(t *testing.T, c *http.Client, base string) map[string]string {
	t.Helper()

	resp, raw := doJSON(t, c, http.MethodPost, base+"/api/auth/signUp", map[string]any{
		"username":     "grace",
		"login":        "grace.h",
		"password":     "password123",
		"email":        "grace@example.com",
		"country":      "US",
		"region":       "VA",
		"city":         "Arlington",
		"address":      "1 Navy Way",
		"zip_code":     "22202",
		"phone_number": "+1 555 0100",
	}, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("signUp status=%d body=%s", resp.StatusCode, string(raw))
	}

	resp, raw = doJSON(t, c, http.MethodPost, base+"/api/auth/signIn", map[string]any{
		"login":    "grace@example.com",
		"password": "password123",
	}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("signIn status=%d body=%s", resp.StatusCode, string(raw))
	}

	var sess auth.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		t.Fatalf("decode signIn: %v body=%s", err, string(raw))
	}
	if sess.AccessToken == "" {
		t.Fatalf("empty access_token")
	}
	return map[string]string{"Authorization": "Bearer " + sess.AccessToken}
}

func TestGateway_PublicAPI_HappyPath(t *testing.T) {
	ts := newGatewayTS(t)
	c := &http.Client{}
	hdr := signedIn(t, c, ts.URL)

	{
		resp, raw := doJSON(t, c, http.MethodPost, ts.URL+"/api/users/creditcard/add", map[string]any{
			"cardholder_name": "Grace Hopper",
			"card_number":     "4111 1111 1111 1234",
			"expiration_date": "12/30",
			"is_primary":      true,
		}, hdr)
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("add card status=%d body=%s", resp.StatusCode, string(raw))
		}
	}

	for _, id := range []string{"p1", "p1", "p2"} {
		resp, raw := doJSON(t, c, http.MethodPost, ts.URL+"/api/store/carts/add/"+id, nil, hdr)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("add %s status=%d body=%s", id, resp.StatusCode, string(raw))
		}
	}

	{
		resp, raw := doJSON(t, c, http.MethodGet, ts.URL+"/api/store/promocode/validate/HALF", nil, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("validate promo status=%d body=%s", resp.StatusCode, string(raw))
		}
	}

	var created order.Order
	{
		resp, raw := doJSON(t, c, http.MethodPost, ts.URL+"/api/store/orders/create", map[string]any{
			"product_ids": []string{"p1"},
			"promo_code":  "HALF",
		}, hdr)
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("create order status=%d body=%s", resp.StatusCode, string(raw))
		}
		if err := json.Unmarshal(raw, &created); err != nil {
			t.Fatalf("decode order: %v body=%s", err, string(raw))
		}

		// 2 x (1000 - 10%) = 1800, then half off
		if got := created.TotalPrice.String(); got != "900" {
			t.Fatalf("total_price=%s", got)
		}
		if got := created.Discount.String(); got != "1100" {
			t.Fatalf("discount=%s", got)
		}
		if created.PaymentCardNumber != "************1234" {
			t.Fatalf("card not masked: %s", created.PaymentCardNumber)
		}
		if created.DeliveryAddress != "1 Navy Way, Arlington, VA, US, 22202, +1 555 0100, grace" {
			t.Fatalf("delivery_address=%q", created.DeliveryAddress)
		}
	}

	{
		resp, raw := doJSON(t, c, http.MethodGet, ts.URL+"/api/store/carts", nil, hdr)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("get cart status=%d body=%s", resp.StatusCode, string(raw))
		}
		var items []struct {
			Count int `json:"count"`
		}
		if err := json.Unmarshal(raw, &items); err != nil {
			t.Fatalf("decode cart: %v", err)
		}
		if len(items) != 1 {
			t.Fatalf("cart lines=%d body=%s", len(items), string(raw))
		}
	}

	{
		resp, raw := doJSON(t, c, http.MethodGet, ts.URL+"/api/store/orders/"+created.ID, nil, hdr)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("get order status=%d body=%s", resp.StatusCode, string(raw))
		}

		var got order.Order
		if err := json.Unmarshal(raw, &got); err != nil {
			t.Fatalf("decode order: %v body=%s", err, string(raw))
		}
		if got.ID != created.ID || !got.TotalPrice.Equal(created.TotalPrice) {
			t.Fatalf("got %s/%s want %s/%s", got.ID, got.TotalPrice, created.ID, created.TotalPrice)
		}
	}

	{
		resp, raw := doJSON(t, c, http.MethodGet, ts.URL+"/api/store/orders", nil, hdr)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("list orders status=%d body=%s", resp.StatusCode, string(raw))
		}
		var list []order.Order
		if err := json.Unmarshal(raw, &list); err != nil {
			t.Fatalf("decode orders: %v", err)
		}
		if len(list) != 1 {
			t.Fatalf("orders=%d", len(list))
		}
	}
}

func TestGateway_PublicAPI_OrdersRequiresAuth(t *testing.T) {
	ts := newGatewayTS(t)
	c := &http.Client{}

	resp, raw := doJSON(t, c, http.MethodPost, ts.URL+"/api/store/orders/create", map[string]any{
		"product_ids": []string{"p1"},
	}, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status=%d body=%s", resp.StatusCode, string(raw))
	}

	resp, raw = doJSON(t, c, http.MethodGet, ts.URL+"/api/store/carts", nil, map[string]string{
		"Authorization": "Bearer nope",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status=%d body=%s", resp.StatusCode, string(raw))
	}
}

func TestGateway_CheckoutWithoutCardLeavesCart(t *testing.T) {
	ts := newGatewayTS(t)
	c := &http.Client{}
	hdr := signedIn(t, c, ts.URL)

	if resp, raw := doJSON(t, c, http.MethodPost, ts.URL+"/api/store/carts/add/p2", nil, hdr); resp.StatusCode != http.StatusOK {
		t.Fatalf("add status=%d body=%s", resp.StatusCode, string(raw))
	}

	resp, raw := doJSON(t, c, http.MethodPost, ts.URL+"/api/store/orders/create", map[string]any{
		"product_ids": []string{"p2"},
	}, hdr)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status=%d body=%s", resp.StatusCode, string(raw))
	}

	var e struct {
		ErrorCode string `json:"errorCode"`
	}
	if err := json.Unmarshal(raw, &e); err != nil || e.ErrorCode != "CREDIT_CARDS_NOT_FOUND" {
		t.Fatalf("error body=%s", string(raw))
	}

	_, raw = doJSON(t, c, http.MethodGet, ts.URL+"/api/store/carts", nil, hdr)
	if !bytes.Contains(raw, []byte(`"p2"`)) {
		t.Fatalf("cart lost p2: %s", string(raw))
	}
}

func TestGateway_HealthAndMetrics(t *testing.T) {
	ts := newGatewayTS(t)
	c := &http.Client{}

	for _, path := range []string{"/healthz", "/readyz"} {
		resp, raw := doJSON(t, c, http.MethodGet, ts.URL+path, nil, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s status=%d body=%s", path, resp.StatusCode, string(raw))
		}
	}

	resp, _ := doJSON(t, c, http.MethodGet, ts.URL+"/metrics", nil, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("metrics without token status=%d", resp.StatusCode)
	}

	resp, raw := doJSON(t, c, http.MethodGet, ts.URL+"/metrics", nil, map[string]string{"Authorization": "Bearer scrape"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("metrics status=%d", resp.StatusCode)
	}
	if !bytes.Contains(raw, []byte("storefront_http_requests_total")) {
		t.Fatalf("missing request counter")
	}
}
