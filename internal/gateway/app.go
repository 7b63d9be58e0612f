package gateway

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"Storefront/internal/auth"
	"Storefront/internal/cart"
	"Storefront/internal/catalog"
	"Storefront/internal/favorites"
	"Storefront/internal/order"
	"Storefront/internal/promo"
	"Storefront/internal/user"
	"Storefront/pkg/kit"
)

type HTTPDeps struct {
	Log      *zap.Logger
	Service  string
	Registry *prometheus.Registry

	MetricsEnabled bool
	MetricsToken   string
}

type Deps struct {
	Stores   *Stores
	JWT      *auth.TokenMaker
	TokenTTL time.Duration
}

const readyTimeout = 2 * time.Second

// NewHandler mounts the whole public API under /api.
func NewHandler(deps Deps, httpDeps HTTPDeps) http.Handler {
	log := httpDeps.Log
	if log == nil {
		log = zap.NewNop()
		httpDeps.Log = log
	}
	st := deps.Stores

	r := chi.NewRouter()
	setupMiddleware(r, httpDeps)
	setupMetrics(r, httpDeps)

	r.Get("/healthz", healthz)
	r.Get("/readyz", readyz(st, log))

	requireUser := auth.AuthJWT(deps.JWT)

	authSrv := &auth.Server{
		Log: log.Named("auth"),
		JWT: deps.JWT,
		Service: &auth.Service{
			Users: st.Users,
			JWT:   deps.JWT,
			TTL:   deps.TokenTTL,
			Log:   log.Named("auth"),
		},
	}
	checkout := order.NewCheckout(st.Users, st.Carts, st.Promos, st.Orders, log.Named("checkout"))

	r.Route("/api", func(api chi.Router) {
		api.Mount("/auth", authSrv.Routes())
		api.Mount("/users", (&user.Server{Store: st.Users, Log: log.Named("users")}).Routes(requireUser))
		api.Mount("/products", (&catalog.Server{Products: st.Products, Log: log.Named("catalog")}).Routes())
		api.Mount("/store/promocode", (&promo.Server{Store: st.Promos, Log: log.Named("promo")}).Routes())

		api.Group(func(pr chi.Router) {
			pr.Use(requireUser)
			pr.Mount("/store/carts", (&cart.Server{Store: st.Carts, Log: log.Named("carts")}).Routes())
			pr.Mount("/store/favorites", (&favorites.Server{Store: st.Favorites, Log: log.Named("favorites")}).Routes())
			pr.Mount("/store/orders", (&order.Server{Store: st.Orders, Checkout: checkout, Log: log.Named("orders")}).Routes())
		})
	})

	return r
}

func setupMiddleware(r *chi.Mux, deps HTTPDeps) {
	r.Use(chimw.RequestID)
	r.Use(kit.Recoverer(deps.Log))
	r.Use(kit.Logging(deps.Log))
}

func setupMetrics(r *chi.Mux, deps HTTPDeps) {
	if deps.Registry == nil {
		return
	}

	metrics := kit.NewMetrics(deps.Registry)
	r.Use(metrics.Middleware(deps.Service, kit.ChiRoutePatternOrPath))

	if !deps.MetricsEnabled {
		return
	}

	r.With(kit.MetricsAuth(deps.MetricsToken)).
		Handle("/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func readyz(st *Stores, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		ps := st.pingers()
		names := make([]string, 0, len(ps))
		for name := range ps {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			if err := ps[name].Ping(ctx); err != nil {
				log.Warn("readyz failed", zap.String("store", name), zap.Error(err))
				kit.WriteError(w, r, http.StatusServiceUnavailable, "NOT_READY", name+" not ready", nil)
				return
			}
		}

		w.WriteHeader(http.StatusOK)
	}
}
