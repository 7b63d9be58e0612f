package favorites

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"Storefront/pkg/kit"
)

type Server struct {
	Store *Store
	Log   *zap.Logger
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/", s.get)
	r.Post("/add/{product_id}", s.add)
	r.Delete("/{product_id}", s.remove)
	return r
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	uid, ok := kit.RequireUserID(w, r)
	if !ok {
		return
	}

	items, err := s.Store.Get(r.Context(), uid)
	if err != nil {
		kit.WriteAppError(w, r, s.Log, err)
		return
	}
	kit.WriteJSON(w, http.StatusOK, items)
}

func (s *Server) add(w http.ResponseWriter, r *http.Request) {
	uid, ok := kit.RequireUserID(w, r)
	if !ok {
		return
	}

	if err := s.Store.Add(r.Context(), uid, chi.URLParam(r, "product_id")); err != nil {
		kit.WriteAppError(w, r, s.Log, err)
		return
	}
	kit.WriteMessage(w, http.StatusOK, "Product added to favorites")
}

func (s *Server) remove(w http.ResponseWriter, r *http.Request) {
	uid, ok := kit.RequireUserID(w, r)
	if !ok {
		return
	}

	if err := s.Store.Remove(r.Context(), uid, chi.URLParam(r, "product_id")); err != nil {
		kit.WriteAppError(w, r, s.Log, err)
		return
	}
	kit.WriteMessage(w, http.StatusOK, "Product removed from favorites")
}
