package kafka

import "time"

const (
	TopicOrderPlaced        = `order-service.order-placed`
	TopicOrderPaid          = `order-service.order-paid`
	TopicOrderStatusChanged = `order-service.status-changed`
)

// OrderPlacedEvent is produced once per checkout.
type OrderPlacedEvent struct {
	OrderID      string    `json:"order_id"`
	OrderNumber  string    `json:"order_number"`
	CustomerID   string    `json:"customer_id"`
	RestaurantID string    `json:"restaurant_id"`
	TotalAmount  int64     `json:"total_amount"`
	CreatedAt    time.Time `json:"created_at"`
}

// OrderPaidEvent is produced per order line once payment is captured.
type OrderPaidEvent struct {
	OrderID    string    `json:"order_id"`
	FoodItemID string    `json:"food_item_id"`
	Quantity   int       `json:"quantity"`
	CreatedAt  time.Time `json:"created_at"`
}

// OrderStatusChangedEvent is produced on every status transition.
type OrderStatusChangedEvent struct {
	OrderID   string    `json:"order_id"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	ChangedBy string    `json:"changed_by"`
	CreatedAt time.Time `json:"created_at"`
}
