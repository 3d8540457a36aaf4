package cart

import (
	"time"

	"order-management-service/internal/products"
)

// Cart belongs to exactly one customer and holds at most one Item per product.
type Cart struct {
	ID        string
	UserID    string
	Items     []Item
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Item struct {
	ID        string
	ProductID string
	Quantity  int
}

// NewItem is a requested addition to the cart.
type NewItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// LineView is a cart line joined with the live product record.
type LineView struct {
	ID          string            `json:"id"`
	ProductID   string            `json:"productId"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Category    products.Category `json:"category"`
	Price       float64           `json:"price"`
	Quantity    int               `json:"quantity"`
	Subtotal    float64           `json:"subtotal"`
	Stock       int               `json:"stock"`
	InStock     bool              `json:"inStock"`
	Available   bool              `json:"available"`
}

type View struct {
	ID         string     `json:"id,omitempty"`
	UserID     string     `json:"userId"`
	Items      []LineView `json:"items"`
	TotalItems int        `json:"totalItems"`
	Total      float64    `json:"total"`
}
