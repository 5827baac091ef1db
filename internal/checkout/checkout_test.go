package checkout

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"storefront/internal/cart"
	"storefront/internal/commerce"
	"storefront/internal/commerce/commercetest"
	"storefront/internal/credential"
	"storefront/internal/domain"
	"storefront/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize(t *testing.T) {
	cases := []struct {
		subtotal string
		shipping string
		tax      string
		total    string
	}{
		{"40.00", "10.00", "3.20", "53.20"},
		{"60.00", "0.00", "4.80", "64.80"},
		{"50.00", "10.00", "4.00", "64.00"},
		{"50.01", "0.00", "4.00", "54.01"},
		{"0.00", "10.00", "0.00", "10.00"},
		{"19.99", "10.00", "1.60", "31.59"},
	}
	for _, tc := range cases {
		t.Run(tc.subtotal, func(t *testing.T) {
			sub, err := domain.ParseMoney(tc.subtotal)
			require.NoError(t, err)
			got := Summarize(sub)
			assert.Equal(t, tc.shipping, got.Shipping.String())
			assert.Equal(t, tc.tax, got.Tax.String())
			assert.Equal(t, tc.total, got.Total.String())
			assert.Equal(t, sub, got.Subtotal)
		})
	}
}

func TestSummarizeCartUsesServerTotal(t *testing.T) {
	c := &domain.Cart{
		Items:      []domain.CartItem{{Quantity: 1, UnitPrice: 100, TotalPrice: 100}},
		TotalPrice: 6000,
	}
	assert.Equal(t, domain.Money(0), SummarizeCart(c).Shipping)
	assert.Equal(t, Summarize(0), SummarizeCart(nil))
}

var address = domain.Address{Street: "1 Main St", City: "Springfield", State: "IL", ZipCode: "62701"}

type fixture struct {
	fake    *commercetest.Server
	session *session.Manager
	cart    *cart.Manager
	service *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fake := commercetest.New(nil)
	srv := httptest.NewServer(fake.Handler())
	t.Cleanup(srv.Close)

	client := commerce.New(commerce.Config{BaseURL: srv.URL + commercetest.BasePath, Timeout: 2 * time.Second, BreakerFailures: -1})
	sess := session.New(client, credential.NewMemory(), nil)
	carts := cart.New(client, sess, nil)
	t.Cleanup(carts.Close)

	_, err := fake.AddUser(domain.RegisterInput{Email: "buyer@example.com", Password: "Secret123"})
	require.NoError(t, err)
	require.NoError(t, sess.Restore(context.Background()))

	return &fixture{fake: fake, session: sess, cart: carts, service: New(client, sess, carts, nil)}
}

func (f *fixture) login(t *testing.T) {
	t.Helper()
	require.NoError(t, f.session.Login(context.Background(), "buyer@example.com", "Secret123"))
}

func TestPlaceOrderEmptiesCart(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	ctx := context.Background()

	_, err := f.cart.AddItem(ctx, 1, 2)
	require.NoError(t, err)
	totals := SummarizeCart(f.cart.State().Cart)

	order, err := f.service.PlaceOrder(ctx, Request{Shipping: address, SameAsShipping: true})
	require.NoError(t, err)
	assert.NotEmpty(t, order.OrderNumber)
	assert.Equal(t, totals.Total, order.TotalAmount)
	assert.Equal(t, "US", order.ShippingAddress.Country)

	st := f.cart.State()
	require.NotNil(t, st.Cart)
	assert.True(t, st.Cart.IsEmpty())

	reqs := f.fake.Requests()
	last := reqs[len(reqs)-1]
	assert.Equal(t, http.MethodGet, last.Method)
	assert.Equal(t, "/cart", last.Path)

	orders, err := f.service.Orders(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, order.ID, orders[0].ID)

	got, err := f.service.Order(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.OrderNumber, got.OrderNumber)
	require.Len(t, got.Items, 1)
	assert.Equal(t, 2, got.Items[0].Quantity)
}

func TestPlaceOrderRequiresSession(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.PlaceOrder(context.Background(), Request{Shipping: address, SameAsShipping: true})
	require.ErrorIs(t, err, domain.ErrAuthRequired)
	_, err = f.service.Orders(context.Background())
	require.ErrorIs(t, err, domain.ErrAuthRequired)
	assert.Empty(t, f.fake.Requests())
}

func TestPlaceOrderRejectsEmptyCart(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	_, err := f.cart.Refresh(context.Background())
	require.NoError(t, err)
	f.fake.ResetRequests()

	_, err = f.service.PlaceOrder(context.Background(), Request{Shipping: address, SameAsShipping: true})
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "cart", ve.Field)
	assert.Empty(t, f.fake.Requests())
}

func TestPlaceOrderValidatesAddresses(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	_, err := f.cart.AddItem(context.Background(), 1, 1)
	require.NoError(t, err)
	f.fake.ResetRequests()

	missingZip := address
	missingZip.ZipCode = " "
	_, err = f.service.PlaceOrder(context.Background(), Request{Shipping: missingZip, SameAsShipping: true})
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "shippingAddress.zipCode", ve.Field)

	_, err = f.service.PlaceOrder(context.Background(), Request{Shipping: address})
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "billingAddress.street", ve.Field)

	assert.Empty(t, f.fake.Requests())
}

type stubOrders struct {
	placed domain.PlaceOrderInput
}

func (s *stubOrders) CreateOrder(_ context.Context, _ string, in domain.PlaceOrderInput) (*domain.Order, error) {
	s.placed = in
	return &domain.Order{ID: 9, OrderNumber: "ORD-9"}, nil
}

func (s *stubOrders) ListOrders(context.Context, string) ([]domain.Order, error) { return nil, nil }

func (s *stubOrders) GetOrder(context.Context, string, int64) (*domain.Order, error) { return nil, nil }

type stubSession struct{}

func (stubSession) State() session.State {
	return session.State{Phase: session.Authenticated, Credential: "tok", Identity: &domain.User{ID: 1}}
}

type stubCart struct {
	refreshErr error
}

func (s stubCart) State() cart.State {
	return cart.State{Cart: &domain.Cart{Items: []domain.CartItem{{ID: 1, Quantity: 1}}}}
}

func (s stubCart) Refresh(context.Context) (*domain.Cart, error) {
	return nil, s.refreshErr
}

func TestPlaceOrderSurvivesRefreshFailure(t *testing.T) {
	api := &stubOrders{}
	svc := New(api, stubSession{}, stubCart{refreshErr: errors.New("timeout")}, nil)

	billing := domain.Address{Street: "2 Side St", City: "Paris", State: "IDF", ZipCode: "75001", Country: "FR"}
	order, err := svc.PlaceOrder(context.Background(), Request{Shipping: address, Billing: billing})
	require.NoError(t, err)
	assert.Equal(t, "ORD-9", order.OrderNumber)
	assert.Equal(t, "FR", api.placed.BillingAddress.Country)
	assert.Equal(t, "US", api.placed.ShippingAddress.Country)
}
