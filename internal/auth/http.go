package auth

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"Storefront/pkg/kit"
)

const (
	signInLimitPerMin = 5
	signUpLimitPerMin = 3
	limitWindow       = 60 * time.Second
)

type Server struct {
	Log     *zap.Logger
	Service *Service
	JWT     *TokenMaker
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	signInLimiter := kit.NewIPRateLimiter(signInLimitPerMin, limitWindow)
	signUpLimiter := kit.NewIPRateLimiter(signUpLimitPerMin, limitWindow)

	r.With(signUpLimiter.Middleware).Post("/signUp", s.handleSignUp)
	r.With(signInLimiter.Middleware).Post("/signIn", s.handleSignIn)
	r.With(AuthJWT(s.JWT)).Get("/whoami", s.handleWhoAmI)

	return r
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req SignUpInput
	if err := kit.DecodeJSON(w, r, &req); err != nil {
		kit.WriteBadJSON(w, r, err)
		return
	}

	u, err := s.Service.SignUp(r.Context(), req)
	if err != nil {
		kit.WriteAppError(w, r, s.Log, err)
		return
	}

	kit.WriteJSON(w, http.StatusCreated, map[string]any{
		"message": "User registered successfully",
		"user_id": u.ID,
	})
}

type signInReq struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req signInReq
	if err := kit.DecodeJSON(w, r, &req); err != nil {
		kit.WriteBadJSON(w, r, err)
		return
	}

	sess, err := s.Service.SignIn(r.Context(), req.Login, req.Password)
	if err != nil {
		kit.WriteAppError(w, r, s.Log, err)
		return
	}

	kit.WriteJSON(w, http.StatusOK, sess)
}

func (s *Server) handleWhoAmI(w http.ResponseWriter, r *http.Request) {
	uid, ok := kit.RequireUserID(w, r)
	if !ok {
		return
	}
	kit.WriteJSON(w, http.StatusOK, map[string]any{"user_id": uid})
}
