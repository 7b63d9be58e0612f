package user

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

// Routes serves /users. Everything but the public profile lookup sits behind
// requireUser.
func (s *Server) Routes(requireUser func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(requireUser)
		pr.Get("/profile", s.profile)
		pr.Post("/profile", s.updateFull)
		pr.Put("/profile", s.updatePartial)
		pr.Post("/creditcard/add", s.addCard)
		pr.Put("/creditcard/{id}/primary", s.setPrimaryCard)
		pr.Delete("/creditcard/{id}", s.deleteCard)
	})

	r.Get("/{id}", s.public)

	return r
}

func (s *Server) profile(w http.ResponseWriter, r *http.Request) {
	uid, ok := kit.RequireUserID(w, r)
	if !ok {
		return
	}

	u, err := s.Store.FindByID(r.Context(), uid)
	if err != nil {
		kit.WriteAppError(w, r, s.Log, err)
		return
	}
	kit.WriteJSON(w, http.StatusOK, u.Profile())
}

type fullProfileReq struct {
	Username    string        `json:"username"`
	Password    string        `json:"password"`
	Email       string        `json:"email"`
	PhoneNumber string        `json:"phone_number"`
	DateOfBirth string        `json:"date_of_birth"`
	AvatarURL   *string       `json:"avatar_url"`
	Country     string        `json:"country"`
	Region      string        `json:"region"`
	City        string        `json:"city"`
	Address     string        `json:"address"`
	ZipCode     string        `json:"zip_code"`
	CreditCards *[]CreditCard `json:"credit_cards"`
}

func (req fullProfileReq) update() ProfileUpdate {
	avatar := ""
	if req.AvatarURL != nil {
		avatar = *req.AvatarURL
	}
	return ProfileUpdate{
		Username:    &req.Username,
		Password:    &req.Password,
		Email:       &req.Email,
		PhoneNumber: &req.PhoneNumber,
		DateOfBirth: &req.DateOfBirth,
		AvatarURL:   &avatar,
		Country:     &req.Country,
		Region:      &req.Region,
		City:        &req.City,
		Address:     &req.Address,
		ZipCode:     &req.ZipCode,
		CreditCards: req.CreditCards,
	}
}

func (s *Server) updateFull(w http.ResponseWriter, r *http.Request) {
	uid, ok := kit.RequireUserID(w, r)
	if !ok {
		return
	}

	var req fullProfileReq
	if err := kit.DecodeJSON(w, r, &req); err != nil {
		kit.WriteBadJSON(w, r, err)
		return
	}

	if err := s.Store.UpdateProfile(r.Context(), uid, req.update()); err != nil {
		kit.WriteAppError(w, r, s.Log, err)
		return
	}
	kit.WriteMessage(w, http.StatusOK, "Profile updated successfully")
}

func (s *Server) updatePartial(w http.ResponseWriter, r *http.Request) {
	uid, ok := kit.RequireUserID(w, r)
	if !ok {
		return
	}

	var req ProfileUpdate
	if err := kit.DecodeJSON(w, r, &req); err != nil {
		kit.WriteBadJSON(w, r, err)
		return
	}

	if err := s.Store.UpdateProfile(r.Context(), uid, req); err != nil {
		kit.WriteAppError(w, r, s.Log, err)
		return
	}
	kit.WriteMessage(w, http.StatusOK, "Profile updated successfully")
}

func (s *Server) public(w http.ResponseWriter, r *http.Request) {
	u, err := s.Store.FindByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		kit.WriteAppError(w, r, s.Log, err)
		return
	}
	kit.WriteJSON(w, http.StatusOK, u.Public())
}

func (s *Server) addCard(w http.ResponseWriter, r *http.Request) {
	uid, ok := kit.RequireUserID(w, r)
	if !ok {
		return
	}

	var req CardInput
	if err := kit.DecodeJSON(w, r, &req); err != nil {
		kit.WriteBadJSON(w, r, err)
		return
	}

	card, err := s.Store.AddCard(r.Context(), uid, req)
	if err != nil {
		kit.WriteAppError(w, r, s.Log, err)
		return
	}

	card.CardNumber = MaskCardNumber(card.CardNumber)
	kit.WriteJSON(w, http.StatusCreated, card)
}

func (s *Server) setPrimaryCard(w http.ResponseWriter, r *http.Request) {
	uid, ok := kit.RequireUserID(w, r)
	if !ok {
		return
	}

	if err := s.Store.SetPrimaryCard(r.Context(), uid, chi.URLParam(r, "id")); err != nil {
		kit.WriteAppError(w, r, s.Log, err)
		return
	}
	kit.WriteMessage(w, http.StatusOK, "Primary credit card updated")
}

func (s *Server) deleteCard(w http.ResponseWriter, r *http.Request) {
	uid, ok := kit.RequireUserID(w, r)
	if !ok {
		return
	}

	if err := s.Store.DeleteCard(r.Context(), uid, chi.URLParam(r, "id")); err != nil {
		kit.WriteAppError(w, r, s.Log, err)
		return
	}
	kit.WriteMessage(w, http.StatusOK, "Credit card deleted successfully")
}
