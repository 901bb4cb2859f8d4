package coupons

import "time"

const (
	TypePercentage   = "percentage"
	TypeFixedAmount  = "fixed_amount"
	TypeFreeDelivery = "free_delivery"
)

// Coupon is a named discount rule. Monetary fields are in the smallest
// currency unit.
type Coupon struct {
	ID                string    `json:"id"`
	Code              string    `json:"code"`
	Title             string    `json:"title"`
	Description       string    `json:"description,omitempty"`
	CouponType        string    `json:"coupon_type"`
	DiscountValue     int64     `json:"discount_value"`
	MinOrderAmount    int64     `json:"min_order_amount"`
	MaxDiscountAmount *int64    `json:"max_discount_amount,omitempty"`
	UsageLimit        *int      `json:"usage_limit,omitempty"`
	UsedCount         int       `json:"used_count"`
	ValidFrom         time.Time `json:"valid_from"`
	ValidUntil        time.Time `json:"valid_until"`
	IsActive          bool      `json:"is_active"`
	CreatedAt         time.Time `json:"created_at"`
}

// NewCoupon is the admin-facing creation payload.
type NewCoupon struct {
	Code              string    `json:"code" validate:"required,min=3,max=50"`
	Title             string    `json:"title" validate:"required"`
	Description       string    `json:"description"`
	CouponType        string    `json:"coupon_type" validate:"required,oneof=percentage fixed_amount free_delivery"`
	DiscountValue     int64     `json:"discount_value" validate:"min=0"`
	MinOrderAmount    int64     `json:"min_order_amount" validate:"min=0"`
	MaxDiscountAmount *int64    `json:"max_discount_amount"`
	UsageLimit        *int      `json:"usage_limit"`
	ValidFrom         time.Time `json:"valid_from" validate:"required"`
	ValidUntil        time.Time `json:"valid_until" validate:"required"`
}
