package domain

type Order struct {
	ID              int64           `json:"id"`
	OrderNumber     string          `json:"orderNumber"`
	UserID          int64           `json:"userId"`
	Status          string          `json:"status"`
	TotalAmount     Money           `json:"totalAmount"`
	SubtotalAmount  Money           `json:"subtotalAmount"`
	TaxAmount       Money           `json:"taxAmount"`
	ShippingAmount  Money           `json:"shippingAmount"`
	DiscountAmount  Money           `json:"discountAmount"`
	Currency        string          `json:"currency"`
	Items           []OrderItem     `json:"items"`
	ShippingAddress Address         `json:"shippingAddress"`
	StatusHistory   []StatusHistory `json:"statusHistory,omitempty"`
	TrackingNumber  string          `json:"trackingNumber,omitempty"`
	CreatedAt       Timestamp       `json:"createdAt"`
	UpdatedAt       Timestamp       `json:"updatedAt"`
}

type OrderItem struct {
	ID          int64  `json:"id"`
	ProductID   int64  `json:"productId"`
	ProductName string `json:"productName"`
	ProductSKU  string `json:"productSku"`
	Quantity    int    `json:"quantity"`
	UnitPrice   Money  `json:"unitPrice"`
	TotalPrice  Money  `json:"totalPrice"`
}

type StatusHistory struct {
	Status    string    `json:"status"`
	Timestamp Timestamp `json:"timestamp"`
}

// PlaceOrderInput is the body of an order submission.
type PlaceOrderInput struct {
	ShippingAddress Address `json:"shippingAddress"`
	BillingAddress  Address `json:"billingAddress"`
}
