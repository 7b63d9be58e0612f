package favorites

import (
	"context"

	"go.uber.org/zap"

	"Storefront/internal/apperr"
	"Storefront/internal/catalog"
	"Storefront/internal/jsonstore"
)

var (
	ErrAlreadyInFavorites   = apperr.Conflict("PRODUCT_ALREADY_IN_FAVORITES", "Product already in favorites")
	ErrNotFoundInFavorites  = apperr.NotFound("PRODUCT_NOT_FOUND_IN_FAVORITES", "Product not found in favorites")
	ErrUserFavoritesMissing = apperr.NotFound("USER_FAVORITES_NOT_FOUND", "User favorites not found")
)

type Favorites struct {
	UserID string            `json:"user_id"`
	Items  []catalog.Product `json:"items"`
}

func (f Favorites) Clone() Favorites {
	items := make([]catalog.Product, len(f.Items))
	for i, p := range f.Items {
		items[i] = p.Clone()
	}
	f.Items = items
	return f
}

type Store struct {
	db       *jsonstore.Store[Favorites]
	products catalog.Reader
	log      *zap.Logger
}

func Open(ctx context.Context, path string, products catalog.Reader, log *zap.Logger, opts ...jsonstore.Option) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	opts = append([]jsonstore.Option{jsonstore.WithName("favorites"), jsonstore.WithLogger(log)}, opts...)

	db, err := jsonstore.Open[Favorites](ctx, path, opts...)
	if err != nil {
		return nil, err
	}
	return &Store{db: db, products: products, log: log}, nil
}

func (s *Store) Ping(ctx context.Context) error {
	_, err := s.db.Filter(ctx, func(Favorites) bool { return false })
	return err
}

func (s *Store) Get(ctx context.Context, userID string) ([]catalog.Product, error) {
	f, ok, err := s.db.Find(ctx, func(f Favorites) bool { return f.UserID == userID })
	if err != nil {
		return nil, err
	}
	if !ok || f.Items == nil {
		return []catalog.Product{}, nil
	}
	return f.Items, nil
}

func (s *Store) Add(ctx context.Context, userID, productID string) error {
	p, err := s.products.Lookup(ctx, productID)
	if err != nil {
		return err
	}

	err = s.db.Update(ctx, func(all []Favorites) ([]Favorites, error) {
		i := indexOf(all, userID)
		if i < 0 {
			return append(all, Favorites{UserID: userID, Items: []catalog.Product{p}}), nil
		}
		if contains(all[i].Items, productID) {
			return nil, ErrAlreadyInFavorites
		}
		all[i].Items = append(all[i].Items, p)
		return all, nil
	})
	if err != nil {
		return err
	}

	s.log.Debug("product added to favorites", zap.String("user_id", userID), zap.String("product_id", productID))
	return nil
}

func (s *Store) Remove(ctx context.Context, userID, productID string) error {
	return s.db.Update(ctx, func(all []Favorites) ([]Favorites, error) {
		i := indexOf(all, userID)
		if i < 0 {
			return nil, ErrUserFavoritesMissing
		}

		kept := all[i].Items[:0]
		for _, p := range all[i].Items {
			if p.ID != productID {
				kept = append(kept, p)
			}
		}
		if len(kept) == len(all[i].Items) {
			return nil, ErrNotFoundInFavorites
		}
		all[i].Items = kept
		return all, nil
	})
}

func indexOf(all []Favorites, userID string) int {
	for i := range all {
		if all[i].UserID == userID {
			return i
		}
	}
	return -1
}

func contains(items []catalog.Product, productID string) bool {
	for _, p := range items {
		if p.ID == productID {
			return true
		}
	}
	return false
}
