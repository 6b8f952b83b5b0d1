package service

import (
	"github.com/shopspring/decimal"

	"github.com/rl1809/catrink/internal/core/domain"
)

var (
	DefaultTaxRate     = decimal.RequireFromString("0.08")
	DefaultShippingFee = decimal.RequireFromString("5.99")
)

type PricingCalculator struct {
	TaxRate     decimal.Decimal
	ShippingFee decimal.Decimal
}

func NewPricingCalculator(taxRate, shippingFee decimal.Decimal) PricingCalculator {
	return PricingCalculator{TaxRate: taxRate, ShippingFee: shippingFee}
}

// Quote prices a cart. Tax is charged on the subtotal before the coupon
// discount and pickup orders ship for free.
func (p PricingCalculator) Quote(cart domain.Cart, method domain.ShippingMethod, coupon *domain.Coupon) domain.Quote {
	subtotal := cart.Subtotal()

	discount := decimal.Zero
	if coupon != nil {
		discount = coupon.Amount(subtotal)
	}

	shipping := p.ShippingFee
	if method == domain.ShippingPickup {
		shipping = decimal.Zero
	}

	tax := subtotal.Mul(p.TaxRate)

	return domain.Quote{
		Subtotal: subtotal,
		Discount: discount,
		Tax:      tax,
		Shipping: shipping,
		Total:    subtotal.Sub(discount).Add(tax).Add(shipping),
	}
}
