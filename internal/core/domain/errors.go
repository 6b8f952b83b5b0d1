package domain

import "errors"

var (
	ErrValidation         = errors.New("validation failed")
	ErrInvalidCoupon      = errors.New("invalid coupon code")
	ErrMinimumOrderNotMet = errors.New("minimum order amount not met")
	ErrCouponInactive     = errors.New("coupon is not active")
	ErrCouponExpired      = errors.New("coupon has expired")
	ErrCouponExhausted    = errors.New("coupon has reached its usage limit")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrUnknownStatus      = errors.New("unknown order status")
)
