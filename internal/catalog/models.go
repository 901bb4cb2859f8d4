package catalog

import "time"

// Restaurant statuses.
const (
	RestaurantActive    = "active"
	RestaurantInactive  = "inactive"
	RestaurantSuspended = "suspended"
)

// Food item availability statuses.
const (
	ItemAvailable   = "available"
	ItemUnavailable = "unavailable"
	ItemOutOfStock  = "out_of_stock"
)

// Restaurant is reference data owned by the catalog. Monetary fields are in
// the smallest currency unit.
type Restaurant struct {
	ID              string    `json:"id"`
	OwnerID         string    `json:"owner_id,omitempty"`
	Name            string    `json:"name"`
	Description     string    `json:"description,omitempty"`
	Phone           string    `json:"phone"`
	Email           string    `json:"email,omitempty"`
	AddressLine1    string    `json:"address_line1"`
	AddressLine2    string    `json:"address_line2,omitempty"`
	City            string    `json:"city"`
	State           string    `json:"state"`
	PostalCode      string    `json:"postal_code"`
	CuisineType     string    `json:"cuisine_type,omitempty"`
	AvgDeliveryTime *int      `json:"avg_delivery_time,omitempty"`
	MinOrderAmount  int64     `json:"min_order_amount"`
	DeliveryFee     int64     `json:"delivery_fee"`
	Rating          float64   `json:"rating"`
	TotalRatings    int       `json:"total_ratings"`
	Status          string    `json:"status"`
	IsOpen          bool      `json:"is_open"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type Category struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	IsActive    bool      `json:"is_active"`
	SortOrder   int       `json:"sort_order"`
	CreatedAt   time.Time `json:"created_at"`
}

type FoodItem struct {
	ID            string    `json:"id"`
	RestaurantID  string    `json:"restaurant_id"`
	CategoryID    *string   `json:"category_id,omitempty"`
	Name          string    `json:"name"`
	Description   string    `json:"description,omitempty"`
	Price         int64     `json:"price"`
	DiscountPrice *int64    `json:"discount_price,omitempty"`
	IsVeg         bool      `json:"is_veg"`
	Status        string    `json:"status"`
	SortOrder     int       `json:"sort_order"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	Variants      []Variant `json:"variants,omitempty"`
}

// Variant adjusts a food item's base price by a signed amount. Exactly one
// variant per item is the default; the store enforces it on write.
type Variant struct {
	ID              string    `json:"id"`
	FoodItemID      string    `json:"food_item_id"`
	Name            string    `json:"name"`
	PriceAdjustment int64     `json:"price_adjustment"`
	IsDefault       bool      `json:"is_default"`
	CreatedAt       time.Time `json:"created_at"`
}

type MenuResponse struct {
	Restaurant Restaurant `json:"restaurant"`
	Categories []Category `json:"categories"`
	Items      []FoodItem `json:"items"`
}

type NewRestaurant struct {
	Name            string `json:"name" validate:"required,max=255"`
	Description     string `json:"description"`
	Phone           string `json:"phone" validate:"required,max=20"`
	Email           string `json:"email" validate:"omitempty,email"`
	AddressLine1    string `json:"address_line1" validate:"required"`
	AddressLine2    string `json:"address_line2"`
	City            string `json:"city" validate:"required"`
	State           string `json:"state" validate:"required"`
	PostalCode      string `json:"postal_code" validate:"required"`
	CuisineType     string `json:"cuisine_type"`
	AvgDeliveryTime *int   `json:"avg_delivery_time"`
	MinOrderAmount  int64  `json:"min_order_amount" validate:"min=0"`
	DeliveryFee     int64  `json:"delivery_fee" validate:"min=0"`
}

type NewVariant struct {
	Name            string `json:"name" validate:"required,max=100"`
	PriceAdjustment int64  `json:"price_adjustment"`
	IsDefault       bool   `json:"is_default"`
}

type NewFoodItem struct {
	CategoryID    *string      `json:"category_id"`
	Name          string       `json:"name" validate:"required,max=255"`
	Description   string       `json:"description"`
	Price         int64        `json:"price" validate:"required,min=1"`
	DiscountPrice *int64       `json:"discount_price"`
	IsVeg         bool         `json:"is_veg"`
	SortOrder     int          `json:"sort_order"`
	Variants      []NewVariant `json:"variants" validate:"dive"`
}

// ListFilters narrows ListRestaurants results.
type ListFilters struct {
	Name        string
	CuisineType string
	City        string
}
