package domain

type Product struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Slug          string    `json:"slug"`
	Description   string    `json:"description"`
	SKU           string    `json:"sku"`
	BasePrice     Money     `json:"basePrice"`
	ImageURL      string    `json:"imageUrl,omitempty"`
	Category      string    `json:"category,omitempty"`
	StockQuantity int       `json:"stockQuantity"`
	IsActive      bool      `json:"isActive"`
	IsFeatured    bool      `json:"isFeatured"`
	CreatedAt     Timestamp `json:"createdAt"`
	UpdatedAt     Timestamp `json:"updatedAt"`
}
