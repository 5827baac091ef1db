package domain

// Cart is the server-computed cart snapshot. TotalItems and TotalPrice come
// from the server and are never recomputed from Items.
type Cart struct {
	CartID     int64      `json:"cartId"`
	UserID     int64      `json:"userId"`
	Items      []CartItem `json:"items"`
	TotalItems int        `json:"totalItems"`
	TotalPrice Money      `json:"totalPrice"`
	UpdatedAt  Timestamp  `json:"updatedAt"`
}

type CartItem struct {
	ID              int64  `json:"id"`
	ProductID       int64  `json:"productId"`
	ProductName     string `json:"productName"`
	ProductImageURL string `json:"productImageUrl"`
	Quantity        int    `json:"quantity"`
	UnitPrice       Money  `json:"unitPrice"`
	TotalPrice      Money  `json:"totalPrice"`
}

// Clone returns a deep copy so stored snapshots cannot be mutated by callers.
func (c *Cart) Clone() *Cart {
	if c == nil {
		return nil
	}
	out := *c
	out.Items = make([]CartItem, len(c.Items))
	copy(out.Items, c.Items)
	return &out
}

// IsEmpty reports whether the cart has no line items.
func (c *Cart) IsEmpty() bool {
	return c == nil || len(c.Items) == 0
}

// Item returns the line with the given id.
func (c *Cart) Item(id int64) (CartItem, bool) {
	if c == nil {
		return CartItem{}, false
	}
	for _, it := range c.Items {
		if it.ID == id {
			return it, true
		}
	}
	return CartItem{}, false
}

// EmptyCart is the explicit zero-item state that follows a clear. It keeps
// the cart and owner ids of prev when known.
func EmptyCart(prev *Cart) *Cart {
	out := &Cart{Items: []CartItem{}}
	if prev != nil {
		out.CartID = prev.CartID
		out.UserID = prev.UserID
	}
	return out
}
