package promo

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
	r.Get("/validate/{code}", s.validate)
	return r
}

func (s *Server) validate(w http.ResponseWriter, r *http.Request) {
	if _, err := s.Store.Validate(r.Context(), chi.URLParam(r, "code")); err != nil {
		kit.WriteAppError(w, r, s.Log, err)
		return
	}
	kit.WriteMessage(w, http.StatusOK, "Promo code is valid")
}
