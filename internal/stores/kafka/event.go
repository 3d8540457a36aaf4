package kafka

import "time"

const (
	TopicOrderCreated       = `order-service.order-created`
	TopicOrderStatusChanged = `order-service.order-status-changed`
)

// OrderCreatedEvent is produced once a checkout transaction commits.
type OrderCreatedEvent struct {
	OrderID    string          `json:"order_id"`
	CustomerID string          `json:"customer_id"`
	Status     string          `json:"status"`
	Total      float64         `json:"total"`
	Items      []OrderLineItem `json:"items"`
	CreatedAt  time.Time       `json:"created_at"`
}

type OrderLineItem struct {
	ProductID string  `json:"product_id"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

// OrderStatusChangedEvent covers status updates and lock changes.
type OrderStatusChangedEvent struct {
	OrderID        string    `json:"order_id"`
	StaffID        string    `json:"staff_id"`
	PreviousStatus string    `json:"previous_status"`
	Status         string    `json:"status"`
	Locked         bool      `json:"locked"`
	UpdatedAt      time.Time `json:"updated_at"`
}
