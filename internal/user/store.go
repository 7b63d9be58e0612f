package user

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"Storefront/internal/jsonstore"
)

// ProfileUpdate changes only the fields that are set. A full update sets
// every field. Password is plaintext and is hashed before it is stored.
type ProfileUpdate struct {
	Username    *string       `json:"username"`
	Password    *string       `json:"password"`
	Email       *string       `json:"email"`
	PhoneNumber *string       `json:"phone_number"`
	DateOfBirth *string       `json:"date_of_birth"`
	AvatarURL   *string       `json:"avatar_url"`
	Country     *string       `json:"country"`
	Region      *string       `json:"region"`
	City        *string       `json:"city"`
	Address     *string       `json:"address"`
	ZipCode     *string       `json:"zip_code"`
	CreditCards *[]CreditCard `json:"credit_cards"`
}

type CardInput struct {
	CardholderName string `json:"cardholder_name"`
	CardNumber     string `json:"card_number"`
	ExpirationDate string `json:"expiration_date"`
	IsPrimary      bool   `json:"is_primary"`
}

type Store struct {
	db  *jsonstore.Store[User]
	log *zap.Logger
}

func Open(ctx context.Context, path string, log *zap.Logger, opts ...jsonstore.Option) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	opts = append([]jsonstore.Option{jsonstore.WithName("users"), jsonstore.WithLogger(log)}, opts...)

	db, err := jsonstore.Open[User](ctx, path, opts...)
	if err != nil {
		return nil, err
	}
	return &Store{db: db, log: log}, nil
}

func (s *Store) Ping(ctx context.Context) error {
	_, err := s.db.Filter(ctx, func(User) bool { return false })
	return err
}

// Create inserts u. Username, login and email must all be unused.
func (s *Store) Create(ctx context.Context, u User) (User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.RegistrationDate.IsZero() {
		u.RegistrationDate = time.Now().UTC()
	}
	if u.CreditCards == nil {
		u.CreditCards = []CreditCard{}
	}

	err := s.db.Update(ctx, func(users []User) ([]User, error) {
		for _, other := range users {
			if other.Username == u.Username ||
				other.Login == u.Login ||
				(u.Email != "" && strings.EqualFold(other.Email, u.Email)) {
				return nil, ErrUserExists
			}
		}
		return append(users, u), nil
	})
	if err != nil {
		return User{}, err
	}

	s.log.Info("user created", zap.String("user_id", u.ID), zap.String("username", u.Username))
	return u.Clone(), nil
}

func (s *Store) FindByID(ctx context.Context, id string) (User, error) {
	return s.findOne(ctx, func(u User) bool { return u.ID == id })
}

func (s *Store) FindByUsername(ctx context.Context, username string) (User, error) {
	return s.findOne(ctx, func(u User) bool { return u.Username == username })
}

// FindByLoginOrEmail matches either the login or the email address.
func (s *Store) FindByLoginOrEmail(ctx context.Context, loginOrEmail string) (User, error) {
	return s.findOne(ctx, func(u User) bool {
		return u.Login == loginOrEmail || (u.Email != "" && strings.EqualFold(u.Email, loginOrEmail))
	})
}

func (s *Store) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	return s.modify(ctx, id, func(u *User) error {
		at := at.UTC()
		u.LastLoginDate = &at
		return nil
	})
}

func (s *Store) UpdateProfile(ctx context.Context, id string, upd ProfileUpdate) error {
	if blank(upd.Username) || blank(upd.Password) {
		return ErrEmptyFields
	}

	var hash string
	if upd.Password != nil {
		h, err := HashPassword(strings.TrimSpace(*upd.Password))
		if err != nil {
			return err
		}
		hash = h
	}

	var cards []CreditCard
	if upd.CreditCards != nil {
		var err error
		if cards, err = normalizeCards(*upd.CreditCards); err != nil {
			return err
		}
	}

	return s.db.Update(ctx, func(users []User) ([]User, error) {
		i := -1
		for j := range users {
			if users[j].ID == id {
				i = j
				break
			}
		}
		if i < 0 {
			return nil, ErrUserNotFound
		}
		if clashes(users, id, upd.Username, upd.Email) {
			return nil, ErrUserExists
		}
		if upd.CreditCards != nil {
			var err error
			if cards, err = unmaskCards(users[i].CreditCards, cards); err != nil {
				return nil, err
			}
		}
		applyUpdate(&users[i], upd, hash, cards)
		return users, nil
	})
}

// normalizeCards checks a replacement card list the way AddCard checks a
// single card. Cards without an id get one.
func normalizeCards(in []CreditCard) ([]CreditCard, error) {
	cards := make([]CreditCard, len(in))
	ids := make(map[string]struct{}, len(in))
	primaries := 0
	for i, c := range in {
		c.CardholderName = strings.TrimSpace(c.CardholderName)
		c.CardNumber = strings.ReplaceAll(strings.TrimSpace(c.CardNumber), " ", "")
		c.ExpirationDate = strings.TrimSpace(c.ExpirationDate)
		if c.CardholderName == "" || c.CardNumber == "" || c.ExpirationDate == "" {
			return nil, ErrEmptyFields
		}
		if c.ID = strings.TrimSpace(c.ID); c.ID == "" {
			c.ID = uuid.NewString()
		}
		if _, dup := ids[c.ID]; dup {
			return nil, ErrDuplicateCardID
		}
		ids[c.ID] = struct{}{}
		if c.IsPrimary {
			primaries++
		}
		cards[i] = c
	}
	if primaries > 1 {
		return nil, ErrMultiplePrimary
	}
	return cards, nil
}

// unmaskCards swaps masked numbers, as returned by Profile, back to the
// stored number of the card with the same id. A masked number that does not
// belong to a stored card is rejected.
func unmaskCards(stored, cards []CreditCard) ([]CreditCard, error) {
	byID := make(map[string]CreditCard, len(stored))
	for _, c := range stored {
		byID[c.ID] = c
	}

	seen := make(map[string]struct{}, len(cards))
	for i, c := range cards {
		if strings.Contains(c.CardNumber, "*") {
			old, ok := byID[c.ID]
			if !ok || MaskCardNumber(old.CardNumber) != c.CardNumber {
				return nil, ErrInvalidCardNumber
			}
			cards[i].CardNumber = old.CardNumber
		}
		if _, dup := seen[cards[i].CardNumber]; dup {
			return nil, ErrCardAlreadyAdded
		}
		seen[cards[i].CardNumber] = struct{}{}
	}
	return cards, nil
}

// clashes reports whether another user already has the requested username or
// email.
func clashes(users []User, id string, username, email *string) bool {
	for _, o := range users {
		if o.ID == id {
			continue
		}
		if username != nil && o.Username == strings.TrimSpace(*username) {
			return true
		}
		if email != nil && *email != "" && strings.EqualFold(o.Email, strings.TrimSpace(*email)) {
			return true
		}
	}
	return false
}

func applyUpdate(u *User, upd ProfileUpdate, hash string, cards []CreditCard) {
	if upd.Username != nil {
		u.Username = strings.TrimSpace(*upd.Username)
	}
	if upd.Password != nil {
		u.PasswordHash = hash
	}
	if upd.Email != nil {
		u.Email = strings.TrimSpace(*upd.Email)
	}
	setOpt(&u.PhoneNumber, upd.PhoneNumber)
	setOpt(&u.DateOfBirth, upd.DateOfBirth)
	setOpt(&u.AvatarURL, upd.AvatarURL)
	setOpt(&u.Country, upd.Country)
	setOpt(&u.Region, upd.Region)
	setOpt(&u.City, upd.City)
	setOpt(&u.Address, upd.Address)
	setOpt(&u.ZipCode, upd.ZipCode)
	if upd.CreditCards != nil {
		u.CreditCards = cards
	}
}

// AddCard appends a card. A primary card takes the flag from every other card.
func (s *Store) AddCard(ctx context.Context, id string, in CardInput) (CreditCard, error) {
	card := CreditCard{
		ID:             uuid.NewString(),
		CardholderName: strings.TrimSpace(in.CardholderName),
		CardNumber:     strings.ReplaceAll(strings.TrimSpace(in.CardNumber), " ", ""),
		ExpirationDate: strings.TrimSpace(in.ExpirationDate),
		IsPrimary:      in.IsPrimary,
	}
	if card.CardholderName == "" || card.CardNumber == "" || card.ExpirationDate == "" {
		return CreditCard{}, ErrEmptyFields
	}
	if strings.Contains(card.CardNumber, "*") {
		return CreditCard{}, ErrInvalidCardNumber
	}

	err := s.modify(ctx, id, func(u *User) error {
		for _, c := range u.CreditCards {
			if c.CardNumber == card.CardNumber {
				return ErrCardAlreadyAdded
			}
		}
		if card.IsPrimary {
			for i := range u.CreditCards {
				u.CreditCards[i].IsPrimary = false
			}
		}
		u.CreditCards = append(u.CreditCards, card)
		return nil
	})
	if err != nil {
		return CreditCard{}, err
	}
	return card, nil
}

func (s *Store) SetPrimaryCard(ctx context.Context, id, cardID string) error {
	return s.modify(ctx, id, func(u *User) error {
		if len(u.CreditCards) == 0 {
			return ErrNoCardsFound
		}
		found := false
		for i := range u.CreditCards {
			u.CreditCards[i].IsPrimary = u.CreditCards[i].ID == cardID
			found = found || u.CreditCards[i].IsPrimary
		}
		if !found {
			return ErrCardNotFound
		}
		return nil
	})
}

func (s *Store) DeleteCard(ctx context.Context, id, cardID string) error {
	return s.modify(ctx, id, func(u *User) error {
		if len(u.CreditCards) == 0 {
			return ErrNoCardsFound
		}
		kept := u.CreditCards[:0]
		for _, c := range u.CreditCards {
			if c.ID != cardID {
				kept = append(kept, c)
			}
		}
		if len(kept) == len(u.CreditCards) {
			return ErrCardNotFound
		}
		u.CreditCards = kept
		return nil
	})
}

func (s *Store) findOne(ctx context.Context, match func(User) bool) (User, error) {
	u, ok, err := s.db.Find(ctx, match)
	if err != nil {
		return User{}, err
	}
	if !ok {
		return User{}, ErrUserNotFound
	}
	return u, nil
}

func (s *Store) modify(ctx context.Context, id string, fn func(u *User) error) error {
	return s.db.Update(ctx, func(users []User) ([]User, error) {
		for i := range users {
			if users[i].ID == id {
				if err := fn(&users[i]); err != nil {
					return nil, err
				}
				return users, nil
			}
		}
		return nil, ErrUserNotFound
	})
}

func setOpt(dst **string, v *string) {
	if v != nil {
		s := strings.TrimSpace(*v)
		*dst = &s
	}
}

func blank(s *string) bool {
	return s != nil && strings.TrimSpace(*s) == ""
}
