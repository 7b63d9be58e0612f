package gateway

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"Storefront/internal/cart"
	"Storefront/internal/catalog"
	"Storefront/internal/config"
	"Storefront/internal/favorites"
	"Storefront/internal/jsonstore"
	"Storefront/internal/order"
	"Storefront/internal/promo"
	"Storefront/internal/user"
)

// Stores is every data file the service works on, loaded and ready.
type Stores struct {
	Products  catalog.Reader
	Users     *user.Store
	Carts     *cart.Store
	Favorites *favorites.Store
	Orders    *order.Store
	Promos    *promo.Store
}

// OpenStores loads all collections in parallel. Any missing file is created
// empty; a corrupt one fails the whole call.
func OpenStores(ctx context.Context, files config.Files, log *zap.Logger, metrics *jsonstore.Metrics) (*Stores, error) {
	if log == nil {
		log = zap.NewNop()
	}

	st := &Stores{Products: catalog.NewFileReader(files.Products, log.Named("catalog"))}
	withMetrics := jsonstore.WithMetrics(metrics)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		st.Users, err = user.Open(gctx, files.Users, log.Named("users"), withMetrics)
		return wrapOpen("users", err)
	})
	g.Go(func() (err error) {
		st.Carts, err = cart.Open(gctx, files.Carts, st.Products, log.Named("carts"), withMetrics)
		return wrapOpen("carts", err)
	})
	g.Go(func() (err error) {
		st.Favorites, err = favorites.Open(gctx, files.Favorites, st.Products, log.Named("favorites"), withMetrics)
		return wrapOpen("favorites", err)
	})
	g.Go(func() (err error) {
		st.Orders, err = order.Open(gctx, files.Orders, log.Named("orders"), withMetrics)
		return wrapOpen("orders", err)
	})
	g.Go(func() (err error) {
		st.Promos, err = promo.Open(gctx, files.PromoCodes, log.Named("promocodes"))
		return wrapOpen("promocodes", err)
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return st, nil
}

func wrapOpen(name string, err error) error {
	if err != nil {
		return fmt.Errorf("open %s store: %w", name, err)
	}
	return nil
}

type pinger interface {
	Ping(ctx context.Context) error
}

func (s *Stores) pingers() map[string]pinger {
	return map[string]pinger{
		"products":   s.Products,
		"users":      s.Users,
		"carts":      s.Carts,
		"favorites":  s.Favorites,
		"orders":     s.Orders,
		"promocodes": s.Promos,
	}
}
