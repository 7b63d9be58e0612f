package order

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"Storefront/pkg/kit"
)

type Server struct {
	Store    *Store
	Checkout *Checkout
	Log      *zap.Logger
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/", s.list)
	r.Post("/create", s.create)
	r.Get("/{order_id}", s.get)
	r.Delete("/{order_id}", s.remove)
	return r
}

type createReq struct {
	ProductIDs []string `json:"product_ids"`
	PromoCode  *string  `json:"promo_code"`
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	uid, ok := kit.RequireUserID(w, r)
	if !ok {
		return
	}

	var req createReq
	if err := kit.DecodeJSON(w, r, &req); err != nil {
		kit.WriteBadJSON(w, r, err)
		return
	}

	in := PlaceOrderInput{UserID: uid, ProductIDs: req.ProductIDs}
	if req.PromoCode != nil {
		in.PromoCode = *req.PromoCode
	}

	o, err := s.Checkout.PlaceOrder(r.Context(), in)
	if err != nil {
		kit.WriteAppError(w, r, s.Log, err)
		return
	}
	kit.WriteJSON(w, http.StatusCreated, o.Masked())
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	uid, ok := kit.RequireUserID(w, r)
	if !ok {
		return
	}

	orders, err := s.Store.ListByUser(r.Context(), uid)
	if err != nil {
		kit.WriteAppError(w, r, s.Log, err)
		return
	}

	out := make([]Order, len(orders))
	for i, o := range orders {
		out[i] = o.Masked()
	}
	kit.WriteJSON(w, http.StatusOK, out)
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	uid, ok := kit.RequireUserID(w, r)
	if !ok {
		return
	}

	o, err := s.Store.Get(r.Context(), uid, chi.URLParam(r, "order_id"))
	if err != nil {
		kit.WriteAppError(w, r, s.Log, err)
		return
	}
	kit.WriteJSON(w, http.StatusOK, o.Masked())
}

func (s *Server) remove(w http.ResponseWriter, r *http.Request) {
	uid, ok := kit.RequireUserID(w, r)
	if !ok {
		return
	}

	if err := s.Store.Remove(r.Context(), uid, chi.URLParam(r, "order_id")); err != nil {
		kit.WriteAppError(w, r, s.Log, err)
		return
	}
	kit.WriteMessage(w, http.StatusOK, "Order deleted successfully")
}
