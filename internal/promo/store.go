// Package promo validates promo codes against promocodes.json. The file is
// reference data edited by operators, so it is re-read on every call and
// never cached.
package promo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"Storefront/internal/apperr"
	"Storefront/internal/catalog"
	"Storefront/internal/jsonstore"
)

var (
	ErrNotFound        = apperr.NotFound("PROMO_CODE_NOT_FOUND", "Promo code not found")
	ErrNotYetAvailable = apperr.Validation("PROMO_CODE_NOT_YET_AVAILABLE", "Promo code is not yet available")
	ErrExpired         = apperr.Validation("PROMO_CODE_EXPIRED", "Promo code has expired")
	ErrInvalid         = apperr.Validation("INVALID_PROMO_CODE", "Promo code is invalid")
	ErrExists          = apperr.Conflict("PROMO_CODE_ALREADY_EXISTS", "Promo code already exists")
	ErrUnavailable     = apperr.New(apperr.KindInternal, "PROMO_CODES_UNAVAILABLE", "Failed to load promo codes")
)

var hundred = decimal.NewFromInt(100)

// PromoCode grants Discount percent off while now is within
// [AvailableAt, ExpiredAt].
type PromoCode struct {
	Code        string          `json:"code"`
	Discount    decimal.Decimal `json:"discount"`
	AvailableAt time.Time       `json:"available_at"`
	ExpiredAt   time.Time       `json:"expired_at"`
}

func (p PromoCode) check(now time.Time) error {
	switch {
	case now.Before(p.AvailableAt):
		return ErrNotYetAvailable
	case now.After(p.ExpiredAt):
		return ErrExpired
	}
	return nil
}

func (p PromoCode) validate() error {
	switch {
	case strings.TrimSpace(p.Code) == "":
		return apperr.Wrap(ErrInvalid, errors.New("code is empty"))
	case !p.Discount.IsPositive() || p.Discount.GreaterThan(hundred):
		return apperr.Wrap(ErrInvalid, fmt.Errorf("discount %s is outside (0, 100]", p.Discount))
	case p.AvailableAt.IsZero() || p.ExpiredAt.IsZero():
		return apperr.Wrap(ErrInvalid, errors.New("availability window is incomplete"))
	case p.ExpiredAt.Before(p.AvailableAt):
		return apperr.Wrap(ErrInvalid, errors.New("expired_at is before available_at"))
	}
	return nil
}

type Store struct {
	path string
	log  *zap.Logger
	now  func() time.Time

	// serializes Add; readers see either the old or the new file
	mu sync.Mutex
}

type Option func(*Store)

func WithClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }

// Open makes sure path exists and holds a valid promo list.
func Open(ctx context.Context, path string, log *zap.Logger, opts ...Option) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Store{path: path, log: log.With(zap.String("collection", "promocodes")), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create dir for %s: %w", path, err)
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		if err := jsonstore.WriteFileAtomic(path, []byte("[]")); err != nil {
			return nil, fmt.Errorf("create %s: %w", path, err)
		}
		s.log.Info("store file created", zap.String("path", path))
	}

	codes, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	s.log.Info("store loaded", zap.String("path", path), zap.Int("count", len(codes)))
	return s, nil
}

func (s *Store) Ping(ctx context.Context) error {
	_, err := s.load(ctx)
	return err
}

func (s *Store) List(ctx context.Context) ([]PromoCode, error) {
	return s.load(ctx)
}

// Validate returns the discount percent of code if it is usable right now.
func (s *Store) Validate(ctx context.Context, code string) (decimal.Decimal, error) {
	p, err := s.lookup(ctx, code)
	if err != nil {
		return decimal.Zero, err
	}
	if err := p.check(s.now()); err != nil {
		return decimal.Zero, err
	}
	return p.Discount, nil
}

// Apply takes the code's percentage off total. The result never drops below
// zero. On error total is returned untouched.
func (s *Store) Apply(ctx context.Context, code string, total decimal.Decimal) (newTotal, discount decimal.Decimal, err error) {
	pct, err := s.Validate(ctx, code)
	if err != nil {
		return total, decimal.Zero, err
	}

	discount = catalog.Percent(total, pct)
	newTotal = decimal.Max(total.Sub(discount), decimal.Zero)
	return newTotal, discount, nil
}

// Add validates p and appends it to the file.
func (s *Store) Add(ctx context.Context, p PromoCode) error {
	p.Code = strings.TrimSpace(p.Code)
	p.AvailableAt = p.AvailableAt.UTC()
	p.ExpiredAt = p.ExpiredAt.UTC()
	if err := p.validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	codes, err := s.load(ctx)
	if err != nil {
		return err
	}
	for _, c := range codes {
		if c.Code == p.Code {
			return ErrExists
		}
	}
	codes = append(codes, p)

	data, err := json.MarshalIndent(codes, "", "  ")
	if err != nil {
		return apperr.Internal(err)
	}
	if err := jsonstore.WriteFileAtomic(s.path, data); err != nil {
		return apperr.Internal(fmt.Errorf("%w: promocodes: %w", jsonstore.ErrPersist, err))
	}

	s.log.Info("promo code added",
		zap.String("code", p.Code),
		zap.String("discount", p.Discount.String()),
		zap.Time("available_at", p.AvailableAt),
		zap.Time("expired_at", p.ExpiredAt),
	)
	return nil
}

func (s *Store) lookup(ctx context.Context, code string) (PromoCode, error) {
	codes, err := s.load(ctx)
	if err != nil {
		return PromoCode{}, err
	}
	code = strings.TrimSpace(code)
	for _, p := range codes {
		if p.Code == code {
			return p, nil
		}
	}
	return PromoCode{}, ErrNotFound
}

// load reads the file for a request. Any failure is an infrastructure error.
func (s *Store) load(ctx context.Context) ([]PromoCode, error) {
	codes, err := s.read(ctx)
	if err != nil {
		s.log.Error("load promo codes failed", zap.Error(err))
		return nil, apperr.Wrap(ErrUnavailable, err)
	}
	return codes, nil
}

func (s *Store) read(ctx context.Context) ([]PromoCode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}

	var codes []PromoCode
	if err := json.Unmarshal(data, &codes); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", jsonstore.ErrCorrupt, s.path, err)
	}
	if codes == nil {
		codes = []PromoCode{}
	}
	return codes, nil
}
