package domain

import "time"

const (
	TopicOrderCreated       = "order.created"
	TopicOrderStatusChanged = "order.status_changed"
)

type OrderCreatedEvent struct {
	OrderID   string      `json:"order_id"`
	Items     []OrderItem `json:"items"`
	Status    OrderStatus `json:"status"`
	Timestamp time.Time   `json:"timestamp"`
}

type OrderStatusChangedEvent struct {
	OrderID   string      `json:"order_id"`
	Status    OrderStatus `json:"status"`
	Timestamp time.Time   `json:"timestamp"`
}
