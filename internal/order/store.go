package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"Storefront/internal/apperr"
	"Storefront/internal/cart"
	"Storefront/internal/jsonstore"
	"Storefront/internal/user"
)

var ErrOrderNotFound = apperr.NotFound("ORDER_NOT_FOUND", "Order not found")

type Status string

const (
	StatusReceived             Status = "Received"
	StatusCanceled             Status = "Canceled"
	StatusInTransit            Status = "InTransit"
	StatusReturned             Status = "Returned"
	StatusAtCustoms            Status = "AtCustoms"
	StatusDisputeOpen          Status = "DisputeOpen"
	StatusDisputeClosed        Status = "DisputeClosed"
	StatusPreparingForShipment Status = "PreparingForShipment"
)

// Order is written once by checkout. Items are the cart lines as they were
// taken, product snapshots included.
type Order struct {
	ID                string          `json:"order_id"`
	UserID            string          `json:"user_id"`
	Items             []cart.LineItem `json:"items"`
	TotalPrice        decimal.Decimal `json:"total_price"`
	CreatedAt         time.Time       `json:"created_at"`
	Discount          decimal.Decimal `json:"discount"`
	PromoCode         *string         `json:"promo_code"`
	DeliveryAddress   string          `json:"delivery_address"`
	PaymentCardNumber string          `json:"payment_card_number"`
	Status            Status          `json:"order_status"`
}

func (o Order) Clone() Order {
	items := make([]cart.LineItem, len(o.Items))
	for i, it := range o.Items {
		items[i] = it.Clone()
	}
	o.Items = items
	if o.PromoCode != nil {
		c := *o.PromoCode
		o.PromoCode = &c
	}
	return o
}

// Masked is the order as shown to its owner.
func (o Order) Masked() Order {
	o = o.Clone()
	o.PaymentCardNumber = user.MaskCardNumber(o.PaymentCardNumber)
	return o
}

type Store struct {
	db  *jsonstore.Store[Order]
	log *zap.Logger
}

func Open(ctx context.Context, path string, log *zap.Logger, opts ...jsonstore.Option) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	opts = append([]jsonstore.Option{jsonstore.WithName("orders"), jsonstore.WithLogger(log)}, opts...)

	db, err := jsonstore.Open[Order](ctx, path, opts...)
	if err != nil {
		return nil, err
	}
	return &Store{db: db, log: log}, nil
}

func (s *Store) Ping(ctx context.Context) error {
	_, err := s.db.Filter(ctx, func(Order) bool { return false })
	return err
}

func (s *Store) Insert(ctx context.Context, o Order) error {
	return s.db.Update(ctx, func(orders []Order) ([]Order, error) {
		return append(orders, o.Clone()), nil
	})
}

func (s *Store) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	return s.db.Filter(ctx, func(o Order) bool { return o.UserID == userID })
}

// Get only finds orders owned by userID.
func (s *Store) Get(ctx context.Context, userID, orderID string) (Order, error) {
	o, ok, err := s.db.Find(ctx, func(o Order) bool { return o.ID == orderID && o.UserID == userID })
	if err != nil {
		return Order{}, err
	}
	if !ok {
		return Order{}, ErrOrderNotFound
	}
	return o, nil
}

func (s *Store) Remove(ctx context.Context, userID, orderID string) error {
	err := s.db.Update(ctx, func(orders []Order) ([]Order, error) {
		for i := range orders {
			if orders[i].ID == orderID && orders[i].UserID == userID {
				return append(orders[:i], orders[i+1:]...), nil
			}
		}
		return nil, ErrOrderNotFound
	})
	if err != nil {
		return err
	}

	s.log.Info("order removed", zap.String("order_id", orderID), zap.String("user_id", userID))
	return nil
}
