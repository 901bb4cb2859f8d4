// Package pricing derives the monetary breakdown of a cart or order. It is
// pure: all inputs arrive as arguments and all amounts are integer cents.
package pricing

import (
	"math"
	"time"

	"unitedkarts/internal/coupons"
)

// Line is one priced cart line. UnitPrice was captured when the line was
// added and already includes any variant adjustment.
type Line struct {
	FoodItemID string
	VariantID  *string
	Quantity   int
	UnitPrice  int64
}

func (l Line) Total() int64 {
	return l.UnitPrice * int64(l.Quantity)
}

// Breakdown holds the derived amounts. TotalAmount is always
// Subtotal + TaxAmount + DeliveryFee - DiscountAmount, floored at zero.
type Breakdown struct {
	Subtotal       int64 `json:"subtotal"`
	TaxAmount      int64 `json:"tax_amount"`
	DeliveryFee    int64 `json:"delivery_fee"`
	DiscountAmount int64 `json:"discount_amount"`
	TotalAmount    int64 `json:"total_amount"`
}

// UnitPrice computes the captured per-unit price for a line: the discount
// price when one is set, otherwise the base price, plus the variant's signed
// adjustment. Never negative.
func UnitPrice(price int64, discountPrice *int64, variantAdjustment int64) int64 {
	base := price
	if discountPrice != nil {
		base = *discountPrice
	}
	unit := base + variantAdjustment
	if unit < 0 {
		return 0
	}
	return unit
}

// Quote computes the breakdown for the given lines, the restaurant's delivery
// fee and tax rate, and an optional coupon. When the coupon fails validation,
// the returned breakdown is the quote without it and the error carries the
// rejection reason.
func Quote(lines []Line, deliveryFee int64, taxRate float64, coupon *coupons.Coupon, now time.Time) (Breakdown, error) {
	var subtotal int64
	for _, line := range lines {
		subtotal += line.Total()
	}

	b := Breakdown{
		Subtotal:    subtotal,
		TaxAmount:   roundCents(float64(subtotal) * taxRate),
		DeliveryFee: deliveryFee,
	}

	if coupon != nil {
		if err := coupons.Validate(coupon, subtotal, now); err != nil {
			b.TotalAmount = total(b)
			return b, err
		}
		applyCoupon(&b, coupon)
	}

	b.TotalAmount = total(b)
	return b, nil
}

func applyCoupon(b *Breakdown, coupon *coupons.Coupon) {
	switch coupon.CouponType {
	case coupons.TypePercentage:
		discount := roundCents(float64(b.Subtotal) * float64(coupon.DiscountValue) / 100)
		if coupon.MaxDiscountAmount != nil && discount > *coupon.MaxDiscountAmount {
			discount = *coupon.MaxDiscountAmount
		}
		b.DiscountAmount = discount
	case coupons.TypeFixedAmount:
		discount := coupon.DiscountValue
		if coupon.MaxDiscountAmount != nil && discount > *coupon.MaxDiscountAmount {
			discount = *coupon.MaxDiscountAmount
		}
		if discount > b.Subtotal {
			discount = b.Subtotal
		}
		b.DiscountAmount = discount
	case coupons.TypeFreeDelivery:
		b.DeliveryFee = 0
	}
}

func total(b Breakdown) int64 {
	t := b.Subtotal + b.TaxAmount + b.DeliveryFee - b.DiscountAmount
	if t < 0 {
		return 0
	}
	return t
}

func roundCents(v float64) int64 {
	return int64(math.Round(v))
}
