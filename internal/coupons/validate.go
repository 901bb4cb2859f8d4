package coupons

import (
	"fmt"
	"time"
)

// Reason codes for coupon rejections. Handlers surface these verbatim so the
// user sees why the code did not apply.
const (
	ReasonNotFound     = "coupon not found"
	ReasonInactive     = "coupon is no longer active"
	ReasonNotStarted   = "coupon is not valid yet"
	ReasonExpired      = "coupon has expired"
	ReasonUsageLimit   = "coupon usage limit reached"
	ReasonBelowMinimum = "order subtotal is below the coupon minimum"
)

// InvalidCouponError carries the specific rejection reason; an invalid coupon
// is never silently ignored.
type InvalidCouponError struct {
	Code   string
	Reason string
}

func (e *InvalidCouponError) Error() string {
	return fmt.Sprintf("coupon %q rejected: %s", e.Code, e.Reason)
}

// Validate checks a coupon's eligibility against the cart subtotal at the
// given instant. A nil error means the coupon may be applied.
func Validate(c *Coupon, subtotal int64, now time.Time) error {
	if c == nil {
		return &InvalidCouponError{Reason: ReasonNotFound}
	}
	if !c.IsActive {
		return &InvalidCouponError{Code: c.Code, Reason: ReasonInactive}
	}
	if now.Before(c.ValidFrom) {
		return &InvalidCouponError{Code: c.Code, Reason: ReasonNotStarted}
	}
	if now.After(c.ValidUntil) {
		return &InvalidCouponError{Code: c.Code, Reason: ReasonExpired}
	}
	if c.UsageLimit != nil && c.UsedCount >= *c.UsageLimit {
		return &InvalidCouponError{Code: c.Code, Reason: ReasonUsageLimit}
	}
	if subtotal < c.MinOrderAmount {
		return &InvalidCouponError{Code: c.Code, Reason: ReasonBelowMinimum}
	}
	return nil
}
