package order

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"Storefront/internal/apperr"
	"Storefront/internal/cart"
	"Storefront/internal/catalog"
	"Storefront/internal/user"
)

type Users interface {
	FindByID(ctx context.Context, id string) (user.User, error)
}

type Carts interface {
	TakeProducts(ctx context.Context, userID string, productIDs []string) ([]cart.LineItem, error)
	RestoreProducts(ctx context.Context, userID string, lines []cart.LineItem) error
}

type Promos interface {
	Validate(ctx context.Context, code string) (decimal.Decimal, error)
	Apply(ctx context.Context, code string, total decimal.Decimal) (decimal.Decimal, decimal.Decimal, error)
}

type Orders interface {
	Insert(ctx context.Context, o Order) error
}

type PlaceOrderInput struct {
	UserID     string
	ProductIDs []string
	PromoCode  string
}

// Checkout turns a cart selection into an order. The selected lines leave the
// cart before the order is written and go back if anything after that fails,
// so a line is never both in the cart and in an order. Checkouts of one user
// run one at a time.
type Checkout struct {
	users  Users
	carts  Carts
	promos Promos
	orders Orders
	log    *zap.Logger
	now    func() time.Time
	locks  *userLocks
}

func NewCheckout(users Users, carts Carts, promos Promos, orders Orders, log *zap.Logger) *Checkout {
	if log == nil {
		log = zap.NewNop()
	}
	return &Checkout{
		users:  users,
		carts:  carts,
		promos: promos,
		orders: orders,
		log:    log,
		now:    time.Now,
		locks:  newUserLocks(),
	}
}

func (c *Checkout) PlaceOrder(ctx context.Context, in PlaceOrderInput) (Order, error) {
	release, err := c.locks.acquire(ctx, in.UserID)
	if err != nil {
		return Order{}, err
	}
	defer release()

	u, err := c.users.FindByID(ctx, in.UserID)
	if err != nil {
		return Order{}, err
	}
	card, err := u.PrimaryCard()
	if err != nil {
		return Order{}, err
	}

	code := strings.TrimSpace(in.PromoCode)
	if code != "" {
		if _, err := c.promos.Validate(ctx, code); err != nil {
			return Order{}, err
		}
	}

	lines, err := c.carts.TakeProducts(ctx, in.UserID, in.ProductIDs)
	if err != nil {
		return Order{}, err
	}

	o, err := c.commit(ctx, u, card, code, lines)
	if err != nil {
		c.restore(ctx, in.UserID, lines, err)
		return Order{}, err
	}

	c.log.Info("order placed",
		zap.String("order_id", o.ID),
		zap.String("user_id", o.UserID),
		zap.Int("lines", len(o.Items)),
		zap.String("total", catalog.FormatPrice(o.TotalPrice)),
		zap.String("discount", catalog.FormatPrice(o.Discount)),
		zap.Stringp("promo_code", o.PromoCode),
	)
	return o, nil
}

func (c *Checkout) commit(ctx context.Context, u user.User, card user.CreditCard, code string, lines []cart.LineItem) (Order, error) {
	total, discount, err := priceLines(lines)
	if err != nil {
		return Order{}, err
	}

	var promo *string
	if code != "" {
		newTotal, off, err := c.promos.Apply(ctx, code, total)
		if err != nil {
			return Order{}, err
		}
		total = newTotal
		discount = discount.Add(off)
		promo = &code
	}

	o := Order{
		ID:                uuid.NewString(),
		UserID:            u.ID,
		Items:             lines,
		TotalPrice:        decimal.Max(total, decimal.Zero),
		CreatedAt:         c.now().UTC(),
		Discount:          discount,
		PromoCode:         promo,
		DeliveryAddress:   deliveryAddress(u),
		PaymentCardNumber: card.CardNumber,
		Status:            StatusReceived,
	}
	if err := c.orders.Insert(ctx, o); err != nil {
		return Order{}, err
	}
	return o, nil
}

// restore puts taken lines back after a failed checkout. It must run even
// when the request has been cancelled.
func (c *Checkout) restore(ctx context.Context, userID string, lines []cart.LineItem, cause error) {
	ctx = context.WithoutCancel(ctx)
	if err := c.carts.RestoreProducts(ctx, userID, lines); err != nil {
		c.log.Error("checkout compensation failed, cart lines lost",
			zap.String("user_id", userID),
			zap.Int("lines", len(lines)),
			zap.NamedError("cause", cause),
			zap.Error(err),
		)
		return
	}

	lvl := c.log.Warn
	if apperr.KindOf(cause) != apperr.KindInternal || errors.Is(cause, context.Canceled) {
		lvl = c.log.Info
	}
	lvl("checkout rolled back", zap.String("user_id", userID), zap.Error(cause))
}

// priceLines sums the lines after each product's own discount.
func priceLines(lines []cart.LineItem) (total, discount decimal.Decimal, err error) {
	for _, li := range lines {
		t, d, err := catalog.LinePrice(li.Product, li.Count)
		if err != nil {
			return decimal.Zero, decimal.Zero, err
		}
		total = total.Add(t)
		discount = discount.Add(d)
	}
	return total, discount, nil
}

// deliveryAddress joins every address segment with ", ", empty ones included,
// so each field keeps its position: "street, city, region, country, zip,
// phone, username".
func deliveryAddress(u user.User) string {
	return strings.Join([]string{
		deref(u.Address),
		deref(u.City),
		deref(u.Region),
		deref(u.Country),
		deref(u.ZipCode),
		deref(u.PhoneNumber),
		u.Username,
	}, ", ")
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
