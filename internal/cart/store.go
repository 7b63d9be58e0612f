package cart

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"Storefront/internal/apperr"
	"Storefront/internal/catalog"
	"Storefront/internal/jsonstore"
)

var (
	ErrUserCartNotFound         = apperr.NotFound("USER_CART_NOT_FOUND", "User cart not found")
	ErrProductNotInCart         = apperr.NotFound("PRODUCT_NOT_IN_CART", "Product not found in cart")
	ErrSelectedProductsNotFound = apperr.NotFound("SELECTED_PRODUCTS_NOT_FOUND", "No selected products found in the cart.")
)

// LineItem holds the product as it looked when it was first added.
type LineItem struct {
	Product catalog.Product `json:"product"`
	Count   int             `json:"count"`
}

// UnmarshalJSON also accepts a bare product record, the shape older order
// files used for items, and reads it as one unit of that product.
func (li *LineItem) UnmarshalJSON(data []byte) error {
	var line struct {
		Product *catalog.Product `json:"product"`
		Count   int              `json:"count"`
	}
	if err := json.Unmarshal(data, &line); err != nil {
		return err
	}
	if line.Product != nil {
		*li = LineItem{Product: *line.Product, Count: line.Count}
		return nil
	}

	var p catalog.Product
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*li = LineItem{Product: p, Count: 1}
	return nil
}

func (li LineItem) Clone() LineItem {
	li.Product = li.Product.Clone()
	return li
}

type Cart struct {
	UserID string     `json:"user_id"`
	Items  []LineItem `json:"items"`
}

func (c Cart) Clone() Cart {
	items := make([]LineItem, len(c.Items))
	for i, it := range c.Items {
		items[i] = it.Clone()
	}
	c.Items = items
	return c
}

type Store struct {
	db       *jsonstore.Store[Cart]
	products catalog.Reader
	log      *zap.Logger
}

func Open(ctx context.Context, path string, products catalog.Reader, log *zap.Logger, opts ...jsonstore.Option) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	opts = append([]jsonstore.Option{jsonstore.WithName("carts"), jsonstore.WithLogger(log)}, opts...)

	db, err := jsonstore.Open[Cart](ctx, path, opts...)
	if err != nil {
		return nil, err
	}
	return &Store{db: db, products: products, log: log}, nil
}

func (s *Store) Ping(ctx context.Context) error {
	_, err := s.db.Filter(ctx, func(Cart) bool { return false })
	return err
}

// GetCart returns the user's line items; a user without a cart has none.
func (s *Store) GetCart(ctx context.Context, userID string) ([]LineItem, error) {
	c, ok, err := s.db.Find(ctx, byUser(userID))
	if err != nil {
		return nil, err
	}
	if !ok || c.Items == nil {
		return []LineItem{}, nil
	}
	return c.Items, nil
}

func (s *Store) AddProduct(ctx context.Context, userID, productID string) error {
	p, err := s.products.Lookup(ctx, productID)
	if err != nil {
		return err
	}

	err = s.db.Update(ctx, func(carts []Cart) ([]Cart, error) {
		i := indexOf(carts, userID)
		if i < 0 {
			return append(carts, Cart{UserID: userID, Items: []LineItem{{Product: p, Count: 1}}}), nil
		}
		if j := lineOf(carts[i].Items, productID); j >= 0 {
			carts[i].Items[j].Count++
			return carts, nil
		}
		carts[i].Items = append(carts[i].Items, LineItem{Product: p, Count: 1})
		return carts, nil
	})
	if err != nil {
		return err
	}

	s.log.Debug("product added to cart", zap.String("user_id", userID), zap.String("product_id", productID))
	return nil
}

// RemoveProduct takes one unit off the line, dropping the line at zero.
func (s *Store) RemoveProduct(ctx context.Context, userID, productID string) error {
	err := s.db.Update(ctx, func(carts []Cart) ([]Cart, error) {
		i := indexOf(carts, userID)
		if i < 0 {
			return nil, ErrUserCartNotFound
		}
		j := lineOf(carts[i].Items, productID)
		if j < 0 {
			return nil, ErrProductNotInCart
		}

		if carts[i].Items[j].Count > 1 {
			carts[i].Items[j].Count--
		} else {
			carts[i].Items = append(carts[i].Items[:j], carts[i].Items[j+1:]...)
		}
		return carts, nil
	})
	return err
}

// RemoveProducts drops every line whose product is in productIDs.
func (s *Store) RemoveProducts(ctx context.Context, userID string, productIDs []string) error {
	drop := toSet(productIDs)
	err := s.db.Update(ctx, func(carts []Cart) ([]Cart, error) {
		i := indexOf(carts, userID)
		if i < 0 {
			return nil, ErrUserCartNotFound
		}
		carts[i].Items, _ = partition(carts[i].Items, drop)
		return carts, nil
	})
	return err
}

// TakeProducts removes the selected lines and returns them in cart order.
// Nothing changes when none of productIDs is in the cart.
func (s *Store) TakeProducts(ctx context.Context, userID string, productIDs []string) ([]LineItem, error) {
	want := toSet(productIDs)

	var taken []LineItem
	err := s.db.Update(ctx, func(carts []Cart) ([]Cart, error) {
		i := indexOf(carts, userID)
		if i < 0 {
			return nil, ErrSelectedProductsNotFound
		}

		kept, picked := partition(carts[i].Items, want)
		if len(picked) == 0 {
			return nil, ErrSelectedProductsNotFound
		}

		carts[i].Items = kept
		taken = picked
		return carts, nil
	})
	if err != nil {
		return nil, err
	}
	return taken, nil
}

// RestoreProducts puts lines back, merging counts with lines added since.
func (s *Store) RestoreProducts(ctx context.Context, userID string, lines []LineItem) error {
	err := s.db.Update(ctx, func(carts []Cart) ([]Cart, error) {
		i := indexOf(carts, userID)
		if i < 0 {
			carts = append(carts, Cart{UserID: userID})
			i = len(carts) - 1
		}
		for _, li := range lines {
			if j := lineOf(carts[i].Items, li.Product.ID); j >= 0 {
				carts[i].Items[j].Count += li.Count
				continue
			}
			carts[i].Items = append(carts[i].Items, li.Clone())
		}
		return carts, nil
	})
	return err
}

func byUser(userID string) func(Cart) bool {
	return func(c Cart) bool { return c.UserID == userID }
}

func indexOf(carts []Cart, userID string) int {
	for i := range carts {
		if carts[i].UserID == userID {
			return i
		}
	}
	return -1
}

func lineOf(items []LineItem, productID string) int {
	for j := range items {
		if items[j].Product.ID == productID {
			return j
		}
	}
	return -1
}

// partition splits items into those not in set and those in set.
func partition(items []LineItem, set map[string]struct{}) (kept, picked []LineItem) {
	kept = make([]LineItem, 0, len(items))
	for _, it := range items {
		if _, ok := set[it.Product.ID]; ok {
			picked = append(picked, it.Clone())
			continue
		}
		kept = append(kept, it)
	}
	return kept, picked
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
