package checkout

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"storefront/internal/cart"
	"storefront/internal/domain"
	"storefront/internal/session"
)

const defaultCountry = "US"

// Request is a checkout form submission. With SameAsShipping the billing
// address is ignored and the shipping address is sent for both.
type Request struct {
	Shipping       domain.Address `json:"shippingAddress"`
	Billing        domain.Address `json:"billingAddress"`
	SameAsShipping bool           `json:"sameAsShipping"`
}

type orderAPI interface {
	CreateOrder(ctx context.Context, credential string, in domain.PlaceOrderInput) (*domain.Order, error)
	ListOrders(ctx context.Context, credential string) ([]domain.Order, error)
	GetOrder(ctx context.Context, credential string, id int64) (*domain.Order, error)
}

type sessionSource interface {
	State() session.State
}

type cartSource interface {
	State() cart.State
	Refresh(ctx context.Context) (*domain.Cart, error)
}

// Service places orders and reads order history.
type Service struct {
	api    orderAPI
	sess   sessionSource
	cart   cartSource
	logger *slog.Logger
}

func New(api orderAPI, sess sessionSource, cart cartSource, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{api: api, sess: sess, cart: cart, logger: logger}
}

// PlaceOrder submits the current cart as an order and then refreshes the
// cart, which the server has emptied. A failed refresh is logged and does
// not fail the order.
func (s *Service) PlaceOrder(ctx context.Context, req Request) (*domain.Order, error) {
	credential := s.sess.State().Credential
	if credential == "" {
		return nil, domain.ErrAuthRequired
	}
	if s.cart.State().Cart.IsEmpty() {
		return nil, &domain.ValidationError{Field: "cart", Message: "is empty"}
	}

	shipping := normalize(req.Shipping)
	if err := validateAddress("shippingAddress", shipping); err != nil {
		return nil, err
	}
	billing := shipping
	if !req.SameAsShipping {
		billing = normalize(req.Billing)
		if err := validateAddress("billingAddress", billing); err != nil {
			return nil, err
		}
	}

	order, err := s.api.CreateOrder(ctx, credential, domain.PlaceOrderInput{
		ShippingAddress: shipping,
		BillingAddress:  billing,
	})
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "order placed", "order_id", order.ID, "order_number", order.OrderNumber)

	if _, err := s.cart.Refresh(ctx); err != nil {
		s.logger.WarnContext(ctx, "cart refresh after order failed", "order_id", order.ID, "error", err)
	}
	return order, nil
}

// Orders lists the signed-in user's orders.
func (s *Service) Orders(ctx context.Context) ([]domain.Order, error) {
	credential := s.sess.State().Credential
	if credential == "" {
		return nil, domain.ErrAuthRequired
	}
	return s.api.ListOrders(ctx, credential)
}

// Order returns one order of the signed-in user.
func (s *Service) Order(ctx context.Context, id int64) (*domain.Order, error) {
	credential := s.sess.State().Credential
	if credential == "" {
		return nil, domain.ErrAuthRequired
	}
	return s.api.GetOrder(ctx, credential, id)
}

func normalize(a domain.Address) domain.Address {
	a.Street = strings.TrimSpace(a.Street)
	a.City = strings.TrimSpace(a.City)
	a.State = strings.TrimSpace(a.State)
	a.ZipCode = strings.TrimSpace(a.ZipCode)
	a.Country = strings.TrimSpace(a.Country)
	if a.Country == "" {
		a.Country = defaultCountry
	}
	return a
}

func validateAddress(prefix string, a domain.Address) error {
	fields := []struct {
		name, value string
	}{
		{"street", a.Street},
		{"city", a.City},
		{"state", a.State},
		{"zipCode", a.ZipCode},
	}
	for _, f := range fields {
		if f.value == "" {
			return &domain.ValidationError{Field: prefix + "." + f.name, Message: "is required"}
		}
	}
	return nil
}
