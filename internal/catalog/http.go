package catalog

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"Storefront/pkg/kit"
)

type Server struct {
	Products Reader
	Log      *zap.Logger
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/", s.list)
	r.Get("/{id}", s.get)
	return r
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	products, err := s.Products.ListSortedByID(r.Context())
	if err != nil {
		kit.WriteAppError(w, r, s.Log, err)
		return
	}
	kit.WriteJSON(w, http.StatusOK, products)
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	p, err := s.Products.Lookup(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		kit.WriteAppError(w, r, s.Log, err)
		return
	}
	kit.WriteJSON(w, http.StatusOK, p)
}
