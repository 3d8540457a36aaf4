package orders

import (
	"time"

	"order-management-service/internal/products"
)

// Item is an immutable order line. UnitPrice is the product price captured at
// checkout.
type Item struct {
	Position  int
	ProductID string
	Quantity  int
	UnitPrice float64
}

func (i Item) LineProductID() string  { return i.ProductID }
func (i Item) LineQuantity() int      { return i.Quantity }
func (i Item) LineUnitPrice() float64 { return i.UnitPrice }

type Order struct {
	ID               string
	CustomerID       string
	Items            []Item
	Status           Status
	Locked           bool
	PaymentCollected bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (o Order) productIDs() []string {
	ids := make([]string, 0, len(o.Items))
	for _, it := range o.Items {
		ids = append(ids, it.ProductID)
	}
	return ids
}

// NewItem is a checkout line. Price is accepted for compatibility with older
// clients and ignored; the current product price is used.
type NewItem struct {
	ProductID string   `json:"productId"`
	Quantity  int      `json:"quantity"`
	Price     *float64 `json:"price,omitempty"`
}

type Customer struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type ItemView struct {
	ProductID          string            `json:"productId"`
	ProductName        string            `json:"productName"`
	ProductDescription string            `json:"productDescription,omitempty"`
	Category           products.Category `json:"category,omitempty"`
	ProductPrice       float64           `json:"productPrice"`
	Quantity           int               `json:"quantity"`
	Subtotal           float64           `json:"subtotal"`
	Stock              int               `json:"stock"`
	InStock            bool              `json:"inStock"`
	IsStaffProduct     bool              `json:"isStaffProduct"`
}

// View is an order as shown to its customer, or to staff in a listing.
type View struct {
	ID                string     `json:"orderId"`
	Customer          Customer   `json:"customer"`
	Status            Status     `json:"status"`
	Locked            bool       `json:"locked"`
	PaymentCollected  bool       `json:"paymentCollected"`
	Items             []ItemView `json:"items"`
	TotalItems        int        `json:"totalItems"`
	StaffRelatedItems int        `json:"staffRelatedItems,omitempty"`
	Total             float64    `json:"total"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

// StaffDetail is a single order seen by a staff member who owns some of its
// products.
type StaffDetail struct {
	OrderID           string     `json:"orderId"`
	Customer          Customer   `json:"customer"`
	Status            Status     `json:"orderStatus"`
	Locked            bool       `json:"locked"`
	PaymentCollected  bool       `json:"paymentCollected"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
	TotalItems        int        `json:"totalItems"`
	StaffRelatedItems int        `json:"staffRelatedItems"`
	OrderTotal        float64    `json:"orderTotal"`
	StaffTotal        float64    `json:"staffTotal"`
	AllItems          []ItemView `json:"allItems"`
	StaffItems        []ItemView `json:"staffItems"`
}

// StaffSummary is returned by staff mutations. It carries counts only.
type StaffSummary struct {
	OrderID        string    `json:"orderId"`
	Status         Status    `json:"status"`
	PreviousStatus Status    `json:"previousStatus,omitempty"`
	Locked         bool      `json:"locked"`
	Customer       string    `json:"customer"`
	CustomerID     string    `json:"-"`
	UpdatedAt      time.Time `json:"updatedAt"`
	StaffItems     int       `json:"staffItems"`
	TotalItems     int       `json:"totalItems"`
}
