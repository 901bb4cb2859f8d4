package pricing

import (
	"errors"
	"testing"
	"time"

	"unitedkarts/internal/coupons"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func activeCoupon(couponType string, value int64, minOrder int64) *coupons.Coupon {
	return &coupons.Coupon{
		Code:           "TEST",
		CouponType:     couponType,
		DiscountValue:  value,
		MinOrderAmount: minOrder,
		ValidFrom:      time.Now().Add(-time.Hour),
		ValidUntil:     time.Now().Add(time.Hour),
		IsActive:       true,
	}
}

func TestQuoteNoCoupon(t *testing.T) {
	// 2 x $12.99 + 1 x $8.99 at 8% tax, $2.99 delivery fee
	lines := []Line{
		{FoodItemID: "a", Quantity: 2, UnitPrice: 1299},
		{FoodItemID: "b", Quantity: 1, UnitPrice: 899},
	}

	b, err := Quote(lines, 299, 0.08, nil, time.Now())
	require.NoError(t, err)

	assert.Equal(t, int64(3497), b.Subtotal)
	assert.Equal(t, int64(280), b.TaxAmount)
	assert.Equal(t, int64(299), b.DeliveryFee)
	assert.Equal(t, int64(0), b.DiscountAmount)
	assert.Equal(t, int64(4076), b.TotalAmount)
}

func TestQuoteTotalInvariant(t *testing.T) {
	tests := []struct {
		name   string
		lines  []Line
		fee    int64
		rate   float64
		coupon *coupons.Coupon
	}{
		{name: "empty cart", lines: nil, fee: 299, rate: 0.08},
		{name: "single line", lines: []Line{{Quantity: 3, UnitPrice: 500}}, fee: 0, rate: 0.05},
		{name: "with percentage coupon", lines: []Line{{Quantity: 1, UnitPrice: 10000}}, fee: 199, rate: 0.08,
			coupon: activeCoupon(coupons.TypePercentage, 10, 0)},
		{name: "with fixed coupon", lines: []Line{{Quantity: 2, UnitPrice: 2500}}, fee: 199, rate: 0.08,
			coupon: activeCoupon(coupons.TypeFixedAmount, 1000, 0)},
		{name: "free delivery", lines: []Line{{Quantity: 1, UnitPrice: 2000}}, fee: 499, rate: 0.08,
			coupon: activeCoupon(coupons.TypeFreeDelivery, 0, 0)},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			b, err := Quote(testCase.lines, testCase.fee, testCase.rate, testCase.coupon, time.Now())
			require.NoError(t, err)
			assert.Equal(t, b.Subtotal+b.TaxAmount+b.DeliveryFee-b.DiscountAmount, b.TotalAmount)
		})
	}
}

func TestQuotePercentageCapped(t *testing.T) {
	// 10% of $100 is $10, but the cap is $5
	maxDiscount := int64(500)
	coupon := activeCoupon(coupons.TypePercentage, 10, 0)
	coupon.MaxDiscountAmount = &maxDiscount

	b, err := Quote([]Line{{Quantity: 1, UnitPrice: 10000}}, 0, 0, coupon, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(500), b.DiscountAmount)
}

func TestQuoteFixedAmountBelowMinimum(t *testing.T) {
	// SAVE10: $10 off orders of $20 or more, applied to a $15 subtotal
	coupon := activeCoupon(coupons.TypeFixedAmount, 1000, 2000)
	coupon.Code = "SAVE10"

	b, err := Quote([]Line{{Quantity: 1, UnitPrice: 1500}}, 299, 0.08, coupon, time.Now())

	var invalidErr *coupons.InvalidCouponError
	require.ErrorAs(t, err, &invalidErr)
	assert.Equal(t, coupons.ReasonBelowMinimum, invalidErr.Reason)

	// the returned breakdown is the quote without the coupon
	assert.Equal(t, int64(0), b.DiscountAmount)
	assert.Equal(t, b.Subtotal+b.TaxAmount+b.DeliveryFee, b.TotalAmount)
}

func TestQuoteFixedAmountNeverExceedsSubtotal(t *testing.T) {
	coupon := activeCoupon(coupons.TypeFixedAmount, 5000, 0)

	b, err := Quote([]Line{{Quantity: 1, UnitPrice: 1200}}, 0, 0, coupon, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1200), b.DiscountAmount)
	assert.Equal(t, int64(0), b.TotalAmount)
}

func TestQuoteFreeDelivery(t *testing.T) {
	coupon := activeCoupon(coupons.TypeFreeDelivery, 0, 0)

	b, err := Quote([]Line{{Quantity: 1, UnitPrice: 2000}}, 499, 0, coupon, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(0), b.DeliveryFee)
	assert.Equal(t, int64(0), b.DiscountAmount)
	assert.Equal(t, int64(2000), b.TotalAmount)
}

func TestQuoteExpiredCoupon(t *testing.T) {
	coupon := activeCoupon(coupons.TypePercentage, 10, 0)
	coupon.ValidUntil = time.Now().Add(-time.Minute)

	_, err := Quote([]Line{{Quantity: 1, UnitPrice: 5000}}, 0, 0, coupon, time.Now())

	var invalidErr *coupons.InvalidCouponError
	require.ErrorAs(t, err, &invalidErr)
	assert.Equal(t, coupons.ReasonExpired, invalidErr.Reason)
}

func TestQuoteUsageLimitReached(t *testing.T) {
	limit := 5
	coupon := activeCoupon(coupons.TypePercentage, 10, 0)
	coupon.UsageLimit = &limit
	coupon.UsedCount = 5

	_, err := Quote([]Line{{Quantity: 1, UnitPrice: 5000}}, 0, 0, coupon, time.Now())
	assert.True(t, errors.As(err, new(*coupons.InvalidCouponError)))
}

func TestUnitPrice(t *testing.T) {
	discount := int64(900)

	tests := []struct {
		name          string
		price         int64
		discountPrice *int64
		adjustment    int64
		want          int64
	}{
		{name: "base price only", price: 1299, want: 1299},
		{name: "discount price wins", price: 1299, discountPrice: &discount, want: 900},
		{name: "variant adds", price: 1299, adjustment: 200, want: 1499},
		{name: "variant subtracts", price: 1299, adjustment: -300, want: 999},
		{name: "never negative", price: 100, adjustment: -500, want: 0},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			got := UnitPrice(testCase.price, testCase.discountPrice, testCase.adjustment)
			assert.Equal(t, testCase.want, got)
		})
	}
}

func TestQuoteTaxRounding(t *testing.T) {
	// 5% of $10.99 is 54.95 cents, rounds to 55
	b, err := Quote([]Line{{Quantity: 1, UnitPrice: 1099}}, 0, 0.05, nil, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(55), b.TaxAmount)
}
