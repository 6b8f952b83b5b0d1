package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

type Coupon struct {
	ID          string          `json:"id"`
	Code        string          `json:"code"`
	Discount    decimal.Decimal `json:"discount"`
	Type        DiscountType    `json:"type"`
	MinOrder    decimal.Decimal `json:"minOrder"`
	MaxUses     int             `json:"maxUses"`
	CurrentUses int             `json:"currentUses"`
	ExpiryDate  time.Time       `json:"expiryDate"`
	Active      bool            `json:"active"`
}

func (c Coupon) Matches(code string) bool {
	return strings.EqualFold(c.Code, strings.TrimSpace(code))
}

// Amount returns the discount this coupon grants on subtotal. Percentage
// coupons are applied to the full subtotal, fixed coupons are taken as is.
func (c Coupon) Amount(subtotal decimal.Decimal) decimal.Decimal {
	if c.Type == DiscountPercentage {
		return subtotal.Mul(c.Discount).Div(decimal.NewFromInt(100))
	}
	return c.Discount
}

// CheckMinimum reports ErrMinimumOrderNotMet with the formatted threshold.
func (c Coupon) CheckMinimum(subtotal decimal.Decimal) error {
	if subtotal.LessThan(c.MinOrder) {
		return fmt.Errorf("%w: minimum order amount is $%s for this coupon", ErrMinimumOrderNotMet, c.MinOrder.String())
	}
	return nil
}

// CheckRedeemable enforces the active flag, expiry date and usage limit.
// The expiry date is inclusive of its whole day.
func (c Coupon) CheckRedeemable(now time.Time) error {
	if !c.Active {
		return ErrCouponInactive
	}
	if !c.ExpiryDate.IsZero() && now.After(endOfDay(c.ExpiryDate)) {
		return ErrCouponExpired
	}
	if c.MaxUses > 0 && c.CurrentUses >= c.MaxUses {
		return ErrCouponExhausted
	}
	return nil
}

func (c Coupon) Validate() error {
	if strings.TrimSpace(c.Code) == "" {
		return fmt.Errorf("%w: coupon code is required", ErrValidation)
	}
	switch c.Type {
	case DiscountPercentage:
		if c.Discount.GreaterThan(decimal.NewFromInt(100)) {
			return fmt.Errorf("%w: percentage discount cannot exceed 100", ErrValidation)
		}
	case DiscountFixed:
	default:
		return fmt.Errorf("%w: unknown discount type %q", ErrValidation, c.Type)
	}
	if !c.Discount.IsPositive() {
		return fmt.Errorf("%w: discount must be positive", ErrValidation)
	}
	if c.MinOrder.IsNegative() {
		return fmt.Errorf("%w: minimum order must not be negative", ErrValidation)
	}
	if c.MaxUses < 0 || c.CurrentUses < 0 {
		return fmt.Errorf("%w: usage counters must not be negative", ErrValidation)
	}
	return nil
}

func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(time.Second-time.Nanosecond), t.Location())
}

func DefaultCoupons() []Coupon {
	return []Coupon{
		{
			ID:          "1",
			Code:        "FIRSTCAT",
			Discount:    decimal.NewFromInt(20),
			Type:        DiscountPercentage,
			MinOrder:    decimal.NewFromInt(10),
			MaxUses:     100,
			CurrentUses: 23,
			ExpiryDate:  time.Date(2024, time.December, 31, 0, 0, 0, 0, time.UTC),
			Active:      true,
		},
		{
			ID:          "2",
			Code:        "ENERGY50",
			Discount:    decimal.NewFromInt(5),
			Type:        DiscountFixed,
			MinOrder:    decimal.NewFromInt(25),
			MaxUses:     50,
			CurrentUses: 12,
			ExpiryDate:  time.Date(2024, time.June, 30, 0, 0, 0, 0, time.UTC),
			Active:      true,
		},
	}
}
