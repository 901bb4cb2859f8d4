package orders

import (
	"time"

	"unitedkarts/internal/pricing"
)

// Order is the immutable snapshot taken at checkout. Only its status, payment
// fields, and delivery-partner assignment change afterwards; orders are never
// deleted, only appended to history.
type Order struct {
	ID                  string     `json:"id"`
	OrderNumber         string     `json:"order_number"`
	CustomerID          string     `json:"customer_id"`
	RestaurantID        string     `json:"restaurant_id"`
	DeliveryPartnerID   *string    `json:"delivery_partner_id,omitempty"`
	DeliveryAddressID   string     `json:"delivery_address_id"`
	Subtotal            int64      `json:"subtotal"`
	TaxAmount           int64      `json:"tax_amount"`
	DeliveryFee         int64      `json:"delivery_fee"`
	DiscountAmount      int64      `json:"discount_amount"`
	TotalAmount         int64      `json:"total_amount"`
	CouponCode          *string    `json:"coupon_code,omitempty"`
	PaymentMethod       string     `json:"payment_method"`
	PaymentStatus       string     `json:"payment_status"`
	PaymentID           *string    `json:"payment_id,omitempty"`
	OrderStatus         Status     `json:"order_status"`
	SpecialInstructions string     `json:"special_instructions,omitempty"`
	CancellationReason  string     `json:"cancellation_reason,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
	Items               []Item     `json:"items,omitempty"`
	Tracking            []Tracking `json:"tracking,omitempty"`
}

// Item is a copied cart line; unit and total prices were captured at
// checkout and never change with later menu edits.
type Item struct {
	ID                  int     `json:"id"`
	OrderID             string  `json:"order_id"`
	FoodItemID          string  `json:"food_item_id"`
	VariantID           *string `json:"variant_id,omitempty"`
	Quantity            int     `json:"quantity"`
	UnitPrice           int64   `json:"unit_price"`
	TotalPrice          int64   `json:"total_price"`
	SpecialInstructions string  `json:"special_instructions,omitempty"`
}

// Tracking is one audit row per applied status transition.
type Tracking struct {
	ID        int       `json:"id"`
	OrderID   string    `json:"order_id"`
	Status    Status    `json:"status"`
	ChangedBy *string   `json:"changed_by,omitempty"`
	Latitude  *float64  `json:"latitude,omitempty"`
	Longitude *float64  `json:"longitude,omitempty"`
	Notes     *string   `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NewItem is one line of a CreateOrder call.
type NewItem struct {
	FoodItemID          string
	VariantID           *string
	Quantity            int
	UnitPrice           int64
	SpecialInstructions string
}

// CreateOrderParams carries everything CreateOrder snapshots in one
// transaction.
type CreateOrderParams struct {
	ID                  string
	OrderNumber         string
	IdempotencyKey      *string
	CustomerID          string
	RestaurantID        string
	DeliveryAddressID   string
	CartID              int
	Items               []NewItem
	Breakdown           pricing.Breakdown
	CouponCode          *string
	PaymentMethod       string
	SpecialInstructions string
}
