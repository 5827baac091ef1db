package commerce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"storefront/internal/domain"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type addItemRequest struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

type updateItemRequest struct {
	Quantity int `json:"quantity"`
}

// Login exchanges email and password for a credential and identity.
func (c *Client) Login(ctx context.Context, email, password string) (*domain.AuthResponse, error) {
	var out domain.AuthResponse
	if err := c.Do(ctx, http.MethodPost, "/auth/login", loginRequest{Email: email, Password: password}, "", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Register creates an account. It does not log the user in.
func (c *Client) Register(ctx context.Context, in domain.RegisterInput) (*domain.User, error) {
	var out domain.User
	if err := c.Do(ctx, http.MethodPost, "/auth/register", in, "", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout revokes credential on the server.
func (c *Client) Logout(ctx context.Context, credential string) error {
	return c.Do(ctx, http.MethodPost, "/auth/logout", nil, credential, nil)
}

// Profile resolves the identity behind credential.
func (c *Client) Profile(ctx context.Context, credential string) (*domain.User, error) {
	var out domain.User
	if err := c.Do(ctx, http.MethodGet, "/users/profile", nil, credential, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetCart(ctx context.Context, credential string) (*domain.Cart, error) {
	return c.cartCall(ctx, http.MethodGet, "/cart", nil, credential)
}

func (c *Client) AddCartItem(ctx context.Context, credential string, productID int64, quantity int) (*domain.Cart, error) {
	return c.cartCall(ctx, http.MethodPost, "/cart/items", addItemRequest{ProductID: productID, Quantity: quantity}, credential)
}

func (c *Client) UpdateCartItem(ctx context.Context, credential string, itemID int64, quantity int) (*domain.Cart, error) {
	return c.cartCall(ctx, http.MethodPut, "/cart/items/"+strconv.FormatInt(itemID, 10), updateItemRequest{Quantity: quantity}, credential)
}

func (c *Client) RemoveCartItem(ctx context.Context, credential string, itemID int64) (*domain.Cart, error) {
	return c.cartCall(ctx, http.MethodDelete, "/cart/items/"+strconv.FormatInt(itemID, 10), nil, credential)
}

// ClearCart empties the cart. The server returns no snapshot.
func (c *Client) ClearCart(ctx context.Context, credential string) error {
	return c.Do(ctx, http.MethodDelete, "/cart", nil, credential, nil)
}

func (c *Client) cartCall(ctx context.Context, method, path string, body any, credential string) (*domain.Cart, error) {
	var out domain.Cart
	if err := c.Do(ctx, method, path, body, credential, &out); err != nil {
		return nil, err
	}
	if out.Items == nil {
		out.Items = []domain.CartItem{}
	}
	return &out, nil
}

func (c *Client) CreateOrder(ctx context.Context, credential string, in domain.PlaceOrderInput) (*domain.Order, error) {
	var out domain.Order
	if err := c.Do(ctx, http.MethodPost, "/orders", in, credential, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListOrders returns the user's orders. The server may answer with either
// a page or a bare list.
func (c *Client) ListOrders(ctx context.Context, credential string) ([]domain.Order, error) {
	var raw json.RawMessage
	if err := c.Do(ctx, http.MethodGet, "/orders", nil, credential, &raw); err != nil {
		return nil, err
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return []domain.Order{}, nil
	}

	if raw[0] == '[' {
		var list []domain.Order
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, fmt.Errorf("decode orders: %w", err)
		}
		return list, nil
	}
	var page domain.Page[domain.Order]
	if err := json.Unmarshal(raw, &page); err != nil {
		return nil, fmt.Errorf("decode orders: %w", err)
	}
	if page.Content == nil {
		return []domain.Order{}, nil
	}
	return page.Content, nil
}

func (c *Client) GetOrder(ctx context.Context, credential string, id int64) (*domain.Order, error) {
	var out domain.Order
	if err := c.Do(ctx, http.MethodGet, "/orders/"+strconv.FormatInt(id, 10), nil, credential, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ProductQuery filters the catalogue listing. Zero values are omitted.
type ProductQuery struct {
	Search   string
	Category string
	Featured bool
	Page     int
	Size     int
}

func (q ProductQuery) values() url.Values {
	v := url.Values{}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	if q.Category != "" {
		v.Set("category", q.Category)
	}
	if q.Featured {
		v.Set("featured", "true")
	}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Size > 0 {
		v.Set("size", strconv.Itoa(q.Size))
	}
	return v
}

// ListProducts is public and carries no credential.
func (c *Client) ListProducts(ctx context.Context, q ProductQuery) (*domain.Page[domain.Product], error) {
	path := "/products"
	if qs := q.values().Encode(); qs != "" {
		path += "?" + qs
	}
	var out domain.Page[domain.Product]
	if err := c.Do(ctx, http.MethodGet, path, nil, "", &out); err != nil {
		return nil, err
	}
	if out.Content == nil {
		out.Content = []domain.Product{}
	}
	return &out, nil
}

func (c *Client) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	var out domain.Product
	if err := c.Do(ctx, http.MethodGet, "/products/"+strconv.FormatInt(id, 10), nil, "", &out); err != nil {
		return nil, err
	}
	return &out, nil
}
