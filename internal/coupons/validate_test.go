package coupons

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseCoupon() *Coupon {
	return &Coupon{
		Code:           "SAVE10",
		CouponType:     TypePercentage,
		DiscountValue:  10,
		MinOrderAmount: 0,
		ValidFrom:      time.Now().Add(-24 * time.Hour),
		ValidUntil:     time.Now().Add(24 * time.Hour),
		IsActive:       true,
	}
}

func TestValidate(t *testing.T) {
	limit := 100

	tests := []struct {
		name     string
		mutate   func(*Coupon)
		subtotal int64
		reason   string
	}{
		{name: "valid", mutate: func(c *Coupon) {}, subtotal: 1000},
		{name: "inactive", mutate: func(c *Coupon) { c.IsActive = false }, subtotal: 1000, reason: ReasonInactive},
		{name: "not started", mutate: func(c *Coupon) { c.ValidFrom = time.Now().Add(time.Hour) }, subtotal: 1000, reason: ReasonNotStarted},
		{name: "expired", mutate: func(c *Coupon) { c.ValidUntil = time.Now().Add(-time.Hour) }, subtotal: 1000, reason: ReasonExpired},
		{name: "usage limit reached", mutate: func(c *Coupon) { c.UsageLimit = &limit; c.UsedCount = 100 }, subtotal: 1000, reason: ReasonUsageLimit},
		{name: "usage under limit", mutate: func(c *Coupon) { c.UsageLimit = &limit; c.UsedCount = 99 }, subtotal: 1000},
		{name: "below minimum", mutate: func(c *Coupon) { c.MinOrderAmount = 2000 }, subtotal: 1999, reason: ReasonBelowMinimum},
		{name: "at minimum", mutate: func(c *Coupon) { c.MinOrderAmount = 2000 }, subtotal: 2000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := baseCoupon()
			tt.mutate(c)

			err := Validate(c, tt.subtotal, time.Now())
			if tt.reason == "" {
				assert.NoError(t, err)
				return
			}

			var invalid *InvalidCouponError
			require.True(t, errors.As(err, &invalid))
			assert.Equal(t, tt.reason, invalid.Reason)
			assert.Equal(t, c.Code, invalid.Code)
		})
	}
}

func TestValidateNilCoupon(t *testing.T) {
	var invalid *InvalidCouponError
	err := Validate(nil, 1000, time.Now())
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, ReasonNotFound, invalid.Reason)
}
