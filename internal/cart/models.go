package cart

import "unitedkarts/internal/pricing"

// Line is one cart line as stored. UnitPrice was captured at add time.
type Line struct {
	ID                  int     `json:"id"`
	FoodItemID          string  `json:"food_item_id"`
	VariantID           *string `json:"variant_id,omitempty"`
	Quantity            int     `json:"quantity"`
	UnitPrice           int64   `json:"unit_price"`
	TotalPrice          int64   `json:"total_price"`
	SpecialInstructions string  `json:"special_instructions,omitempty"`
}

// Summary is the active cart with its lines, before pricing.
type Summary struct {
	CartID       int     `json:"cart_id"`
	RestaurantID string  `json:"restaurant_id"`
	CouponCode   *string `json:"coupon_code,omitempty"`
	Lines        []Line  `json:"items"`
}

// PricingLines converts the stored lines into pricing engine input.
func (s *Summary) PricingLines() []pricing.Line {
	lines := make([]pricing.Line, 0, len(s.Lines))
	for _, l := range s.Lines {
		lines = append(lines, pricing.Line{
			FoodItemID: l.FoodItemID,
			VariantID:  l.VariantID,
			Quantity:   l.Quantity,
			UnitPrice:  l.UnitPrice,
		})
	}
	return lines
}

// Subtotal sums the line totals without consulting the pricing engine; coupon
// validation needs it before a full quote exists.
func (s *Summary) Subtotal() int64 {
	var subtotal int64
	for _, l := range s.Lines {
		subtotal += l.UnitPrice * int64(l.Quantity)
	}
	return subtotal
}

// Response is what cart endpoints return: the lines plus the freshly
// recomputed breakdown. Totals are derived on every read and mutation, never
// stored.
type Response struct {
	RestaurantID string            `json:"restaurant_id"`
	Items        []Line            `json:"items"`
	CouponCode   *string           `json:"coupon_code,omitempty"`
	Pricing      pricing.Breakdown `json:"pricing"`
}
