package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"Storefront/internal/apperr"
	"Storefront/internal/user"
)

var (
	ErrInvalidCredentials = apperr.Unauthorized("INVALID_CREDENTIALS", "Invalid credentials")
	ErrUnauthorized       = apperr.Unauthorized("UNAUTHORIZED_ACCESS", "Unauthorized")
)

type SignUpInput struct {
	Username    string  `json:"username"`
	Login       string  `json:"login"`
	Password    string  `json:"password"`
	Email       string  `json:"email"`
	PhoneNumber string  `json:"phone_number"`
	DateOfBirth string  `json:"date_of_birth"`
	AvatarURL   *string `json:"avatar_url"`
	Country     string  `json:"country"`
	Region      string  `json:"region"`
	City        string  `json:"city"`
	Address     string  `json:"address"`
	ZipCode     string  `json:"zip_code"`
}

type Session struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	UserID      string    `json:"user_id"`
}

type Service struct {
	Users *user.Store
	JWT   *TokenMaker
	TTL   time.Duration
	Log   *zap.Logger
}

func (s *Service) SignUp(ctx context.Context, in SignUpInput) (user.User, error) {
	username := strings.TrimSpace(in.Username)
	login := strings.TrimSpace(in.Login)
	password := strings.TrimSpace(in.Password)

	if username == "" || login == "" || password == "" {
		return user.User{}, user.ErrEmptyFields
	}

	hash, err := user.HashPassword(password)
	if err != nil {
		return user.User{}, apperr.Internal(err)
	}

	u, err := s.Users.Create(ctx, user.User{
		Username:     username,
		Login:        login,
		Email:        strings.TrimSpace(in.Email),
		PasswordHash: hash,
		PhoneNumber:  opt(in.PhoneNumber),
		DateOfBirth:  opt(in.DateOfBirth),
		AvatarURL:    in.AvatarURL,
		Country:      opt(in.Country),
		Region:       opt(in.Region),
		City:         opt(in.City),
		Address:      opt(in.Address),
		ZipCode:      opt(in.ZipCode),
	})
	if err != nil {
		return user.User{}, err
	}
	return u, nil
}

// SignIn checks the password of the user whose login or email matches and
// issues an access token.
func (s *Service) SignIn(ctx context.Context, loginOrEmail, password string) (Session, error) {
	loginOrEmail = strings.TrimSpace(loginOrEmail)
	password = strings.TrimSpace(password)
	if loginOrEmail == "" || password == "" {
		return Session{}, user.ErrEmptyFields
	}

	u, err := s.Users.FindByLoginOrEmail(ctx, loginOrEmail)
	if errors.Is(err, user.ErrUserNotFound) {
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, err
	}

	ok, err := user.CheckPassword(u.PasswordHash, password)
	if err != nil {
		s.Log.Error("stored password hash unusable", zap.String("user_id", u.ID), zap.Error(err))
		return Session{}, ErrInvalidCredentials
	}
	if !ok {
		return Session{}, ErrInvalidCredentials
	}

	now := s.JWT.now()
	if err := s.Users.TouchLastLogin(ctx, u.ID, now); err != nil {
		return Session{}, err
	}

	tok, err := s.JWT.New(u.ID, u.Login, s.TTL)
	if err != nil {
		return Session{}, apperr.Internal(err)
	}

	s.Log.Info("user signed in", zap.String("user_id", u.ID))
	return Session{AccessToken: tok, ExpiresAt: now.Add(s.TTL).UTC(), UserID: u.ID}, nil
}

func opt(s string) *string {
	if s = strings.TrimSpace(s); s == "" {
		return nil
	}
	return &s
}
