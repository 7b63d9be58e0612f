package user

import (
	"strings"
	"time"

	"Storefront/internal/apperr"
)

var (
	ErrUserNotFound        = apperr.NotFound("USER_NOT_FOUND", "User not found")
	ErrUserExists          = apperr.Conflict("USER_ALREADY_EXISTS", "User already exists")
	ErrEmptyFields         = apperr.Validation("EMPTY_FIELDS", "Required fields must not be empty")
	ErrCardAlreadyAdded    = apperr.Conflict("CARD_ALREADY_ADDED", "This credit card has already been added")
	ErrCardNotFound        = apperr.NotFound("CARD_NOT_FOUND", "Credit card not found")
	ErrNoCardsFound        = apperr.NotFound("NO_CARDS_FOUND", "No credit cards found for this user")
	ErrMultiplePrimary     = apperr.Validation("MULTIPLE_PRIMARY_CARDS", "Only one credit card can be primary")
	ErrDuplicateCardID     = apperr.Validation("DUPLICATE_CARD_ID", "Credit card ids must be unique")
	ErrInvalidCardNumber   = apperr.Validation("INVALID_CARD_NUMBER", "Credit card number is invalid")
	ErrCreditCardsNotFound = apperr.NotFound("CREDIT_CARDS_NOT_FOUND", "Credit cards not found")
	ErrPrimaryCardNotFound = apperr.NotFound("PRIMARY_CREDIT_CARD_NOT_FOUND", "Primary credit card not found")
)

const passwordMask = "******************"

// CreditCard numbers are persisted in plaintext and masked on every read
// that leaves the process.
type CreditCard struct {
	ID             string `json:"id"`
	CardholderName string `json:"cardholder_name"`
	CardNumber     string `json:"card_number"`
	ExpirationDate string `json:"expiration_date"`
	IsPrimary      bool   `json:"is_primary"`
}

type User struct {
	ID               string       `json:"id"`
	Username         string       `json:"username"`
	Login            string       `json:"login"`
	Email            string       `json:"email"`
	PasswordHash     string       `json:"password_hash"`
	PhoneNumber      *string      `json:"phone_number"`
	DateOfBirth      *string      `json:"date_of_birth"`
	AvatarURL        *string      `json:"avatar_url"`
	RegistrationDate time.Time    `json:"registration_date"`
	LastLoginDate    *time.Time   `json:"last_login_date"`
	Country          *string      `json:"country"`
	Region           *string      `json:"region"`
	City             *string      `json:"city"`
	Address          *string      `json:"address"`
	ZipCode          *string      `json:"zip_code"`
	CreditCards      []CreditCard `json:"credit_cards"`
}

func (u User) Clone() User {
	u.PhoneNumber = cloneStr(u.PhoneNumber)
	u.DateOfBirth = cloneStr(u.DateOfBirth)
	u.AvatarURL = cloneStr(u.AvatarURL)
	u.Country = cloneStr(u.Country)
	u.Region = cloneStr(u.Region)
	u.City = cloneStr(u.City)
	u.Address = cloneStr(u.Address)
	u.ZipCode = cloneStr(u.ZipCode)
	if u.LastLoginDate != nil {
		t := *u.LastLoginDate
		u.LastLoginDate = &t
	}
	if u.CreditCards != nil {
		cards := make([]CreditCard, len(u.CreditCards))
		copy(cards, u.CreditCards)
		u.CreditCards = cards
	}
	return u
}

// PrimaryCard returns the card flagged for payment.
func (u User) PrimaryCard() (CreditCard, error) {
	if len(u.CreditCards) == 0 {
		return CreditCard{}, ErrCreditCardsNotFound
	}
	for _, c := range u.CreditCards {
		if c.IsPrimary {
			return c, nil
		}
	}
	return CreditCard{}, ErrPrimaryCardNotFound
}

// Profile is what a user sees about themself: everything except the secrets.
type Profile struct {
	ID               string       `json:"id"`
	Username         string       `json:"username"`
	Login            string       `json:"login"`
	PasswordHash     string       `json:"password_hash"`
	Email            string       `json:"email"`
	PhoneNumber      *string      `json:"phone_number"`
	DateOfBirth      *string      `json:"date_of_birth"`
	AvatarURL        *string      `json:"avatar_url"`
	RegistrationDate time.Time    `json:"registration_date"`
	LastLoginDate    *time.Time   `json:"last_login_date"`
	Country          *string      `json:"country"`
	Region           *string      `json:"region"`
	City             *string      `json:"city"`
	Address          *string      `json:"address"`
	ZipCode          *string      `json:"zip_code"`
	CreditCards      []CreditCard `json:"credit_cards"`
}

func (u User) Profile() Profile {
	cards := make([]CreditCard, len(u.CreditCards))
	for i, c := range u.CreditCards {
		c.CardNumber = MaskCardNumber(c.CardNumber)
		cards[i] = c
	}

	u = u.Clone()
	return Profile{
		ID:               u.ID,
		Username:         u.Username,
		Login:            u.Login,
		PasswordHash:     passwordMask,
		Email:            u.Email,
		PhoneNumber:      u.PhoneNumber,
		DateOfBirth:      u.DateOfBirth,
		AvatarURL:        u.AvatarURL,
		RegistrationDate: u.RegistrationDate,
		LastLoginDate:    u.LastLoginDate,
		Country:          u.Country,
		Region:           u.Region,
		City:             u.City,
		Address:          u.Address,
		ZipCode:          u.ZipCode,
		CreditCards:      cards,
	}
}

// PublicView is what anyone may see about a user.
type PublicView struct {
	ID        string  `json:"id"`
	AvatarURL *string `json:"avatar_url"`
	Username  string  `json:"username"`
}

func (u User) Public() PublicView {
	return PublicView{ID: u.ID, AvatarURL: cloneStr(u.AvatarURL), Username: u.Username}
}

// MaskCardNumber keeps the last four characters and stars out the rest.
func MaskCardNumber(n string) string {
	r := []rune(n)
	if len(r) <= 4 {
		return n
	}
	return strings.Repeat("*", len(r)-4) + string(r[len(r)-4:])
}

func cloneStr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
