package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/catrink/internal/core/domain"
)

type checkoutFixture struct {
	store    *mockStore
	ledger   *OrderLedger
	coupons  *CouponService
	notify   *mockEnqueuer
	checkout *CheckoutService
}

func newCheckoutFixture(cfg CheckoutConfig) *checkoutFixture {
	store := newMockStore()
	log := nullLogger()
	ledger := NewOrderLedger(store, testKeys, log)
	coupons := NewCouponService(store, testKeys, log)
	notify := &mockEnqueuer{}
	checkout := NewCheckoutService(ledger, coupons, NewPricingCalculator(DefaultTaxRate, DefaultShippingFee), notify, cfg, log)
	return &checkoutFixture{store: store, ledger: ledger, coupons: coupons, notify: notify, checkout: checkout}
}

func validRequest() PlaceOrderRequest {
	return PlaceOrderRequest{
		Billing: BillingDetails{
			FullName: "Tom Cat",
			Email:    "tom@example.com",
			Street:   "1 Alley Way",
			City:     "Catville",
		},
		PaymentMethod: domain.PaymentCard,
		AcceptTerms:   true,
	}
}

func TestApplyCoupon_Unknown(t *testing.T) {
	f := newCheckoutFixture(CheckoutConfig{})
	session := f.checkout.NewSession(mangoCart(2), domain.ShippingDelivery)

	err := session.ApplyCoupon(context.Background(), "NOPE")

	assert.ErrorIs(t, err, domain.ErrInvalidCoupon)
	assert.Equal(t, err, session.Err())
	assert.Nil(t, session.Coupon())
}

func TestApplyCoupon_BelowMinimum(t *testing.T) {
	f := newCheckoutFixture(CheckoutConfig{})
	session := f.checkout.NewSession(mangoCart(2), domain.ShippingDelivery)

	err := session.ApplyCoupon(context.Background(), "ENERGY50")

	assert.ErrorIs(t, err, domain.ErrMinimumOrderNotMet)
	assert.Contains(t, err.Error(), "$25")
	assert.Nil(t, session.Coupon())
}

func TestApplyCoupon_FirstCatBelowMinimumKeepsTotal(t *testing.T) {
	f := newCheckoutFixture(CheckoutConfig{})
	session := f.checkout.NewSession(mangoCart(2), domain.ShippingDelivery)
	before := session.Quote().Total

	err := session.ApplyCoupon(context.Background(), "FIRSTCAT")

	assert.ErrorIs(t, err, domain.ErrMinimumOrderNotMet)
	assert.Nil(t, session.Coupon())
	assert.True(t, session.Quote().Total.Equal(dec("16.7684")), session.Quote().Total.String())
	assert.True(t, session.Quote().Total.Equal(before))
}

func TestApplyCoupon_FailureKeepsPreviousCoupon(t *testing.T) {
	f := newCheckoutFixture(CheckoutConfig{})
	ctx := context.Background()
	session := f.checkout.NewSession(mangoCart(3), domain.ShippingDelivery)

	require.NoError(t, session.ApplyCoupon(ctx, "firstcat"))
	require.Error(t, session.ApplyCoupon(ctx, "ENERGY50"))

	require.NotNil(t, session.Coupon())
	assert.Equal(t, "FIRSTCAT", session.Coupon().Code)
	assert.Error(t, session.Err())
}

func TestApplyCoupon_IgnoresExpiryByDefault(t *testing.T) {
	f := newCheckoutFixture(CheckoutConfig{})
	session := f.checkout.NewSession(mangoCart(3), domain.ShippingDelivery)

	assert.NoError(t, session.ApplyCoupon(context.Background(), "FIRSTCAT"))
}

func TestApplyCoupon_EnforcedConstraints(t *testing.T) {
	f := newCheckoutFixture(CheckoutConfig{EnforceCouponConstraints: true})
	f.checkout.now = fixedClock(time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC))
	session := f.checkout.NewSession(mangoCart(3), domain.ShippingDelivery)

	assert.ErrorIs(t, session.ApplyCoupon(context.Background(), "FIRSTCAT"), domain.ErrCouponExpired)
}

func TestRemoveCoupon(t *testing.T) {
	f := newCheckoutFixture(CheckoutConfig{})
	ctx := context.Background()
	session := f.checkout.NewSession(mangoCart(3), domain.ShippingDelivery)

	require.NoError(t, session.ApplyCoupon(ctx, "FIRSTCAT"))
	session.RemoveCoupon()

	assert.Nil(t, session.Coupon())
	assert.NoError(t, session.Err())
	assert.True(t, session.Quote().Discount.IsZero())
}

func TestPlaceOrder_Success(t *testing.T) {
	f := newCheckoutFixture(CheckoutConfig{})
	ctx := context.Background()
	now := time.Date(2025, time.May, 4, 10, 0, 0, 0, time.UTC)
	f.checkout.now = fixedClock(now)

	session := f.checkout.NewSession(mangoCart(3), domain.ShippingDelivery)
	require.NoError(t, session.ApplyCoupon(ctx, "FIRSTCAT"))

	order, err := f.checkout.PlaceOrder(ctx, "tom@example.com", session, validRequest())
	require.NoError(t, err)

	assert.Regexp(t, `^CAT-[A-Z0-9!@#$%&*]{12}$`, order.TrackingID)
	assert.Equal(t, domain.OrderStatusProcessing, order.Status)
	assert.Equal(t, now.Add(7*24*time.Hour), order.EstimatedDelivery)
	assert.True(t, order.TotalAmount.Equal(session.Quote().Total))
	require.NotNil(t, order.CouponApplied)
	assert.Equal(t, "FIRSTCAT", order.CouponApplied.Code)
	assert.Len(t, order.TrackingUpdates, 1)

	ever, err := f.ledger.HasEverOrdered(ctx, "tom@example.com")
	require.NoError(t, err)
	assert.True(t, ever)

	c, err := f.coupons.Find(ctx, "FIRSTCAT")
	require.NoError(t, err)
	assert.Equal(t, 24, c.CurrentUses)

	assert.Equal(t, 1, f.notify.count())
	assert.Contains(t, f.notify.queued[0].Params["subject"], order.TrackingID)
}

func TestPlaceOrder_Validation(t *testing.T) {
	f := newCheckoutFixture(CheckoutConfig{})
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*PlaceOrderRequest)
	}{
		{"terms", func(r *PlaceOrderRequest) { r.AcceptTerms = false }},
		{"full name", func(r *PlaceOrderRequest) { r.Billing.FullName = "" }},
		{"email", func(r *PlaceOrderRequest) { r.Billing.Email = "" }},
		{"street", func(r *PlaceOrderRequest) { r.Billing.Street = "" }},
		{"payment", func(r *PlaceOrderRequest) { r.PaymentMethod = "cash" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(&req)

			_, err := f.checkout.PlaceOrder(ctx, "tom@example.com", f.checkout.NewSession(mangoCart(1), domain.ShippingDelivery), req)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}

	orders, err := f.ledger.Orders(ctx, "tom@example.com")
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestPlaceOrder_EmptyCart(t *testing.T) {
	f := newCheckoutFixture(CheckoutConfig{})

	_, err := f.checkout.PlaceOrder(context.Background(), "tom@example.com", f.checkout.NewSession(nil, domain.ShippingDelivery), validRequest())
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestPlaceOrder_DelayHonoursContext(t *testing.T) {
	f := newCheckoutFixture(CheckoutConfig{ProcessingDelay: time.Minute})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := f.checkout.PlaceOrder(ctx, "tom@example.com", f.checkout.NewSession(mangoCart(1), domain.ShippingDelivery), validRequest())
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestPlaceOrder_InvalidScope(t *testing.T) {
	f := newCheckoutFixture(CheckoutConfig{})

	_, err := f.checkout.PlaceOrder(context.Background(), "not-an-email", f.checkout.NewSession(mangoCart(1), domain.ShippingDelivery), validRequest())
	assert.Error(t, err)
	assert.Equal(t, 0, f.notify.count())
}

func TestPlaceOrder_IdempotencyKeyReplaysOrder(t *testing.T) {
	f := newCheckoutFixture(CheckoutConfig{})
	ctx := context.Background()
	req := validRequest()
	req.IdempotencyKey = "submit-1"

	session := f.checkout.NewSession(mangoCart(3), domain.ShippingDelivery)
	require.NoError(t, session.ApplyCoupon(ctx, "FIRSTCAT"))

	first, err := f.checkout.PlaceOrder(ctx, "tom@example.com", session, req)
	require.NoError(t, err)
	again, err := f.checkout.PlaceOrder(ctx, "tom@example.com", session, req)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, first.TrackingID, again.TrackingID)

	orders, err := f.ledger.Orders(ctx, "tom@example.com")
	require.NoError(t, err)
	assert.Len(t, orders, 1)
	c, err := f.coupons.Find(ctx, "FIRSTCAT")
	require.NoError(t, err)
	assert.Equal(t, 24, c.CurrentUses)
	assert.Equal(t, 1, f.notify.count())

	req.IdempotencyKey = "submit-2"
	other, err := f.checkout.PlaceOrder(ctx, "tom@example.com", session, req)
	require.NoError(t, err)
	assert.NotEqual(t, first.TrackingID, other.TrackingID)
}

func TestPlaceOrder_IdempotencyKeyIsPerIdentity(t *testing.T) {
	f := newCheckoutFixture(CheckoutConfig{})
	ctx := context.Background()
	req := validRequest()
	req.IdempotencyKey = "submit-1"

	tom, err := f.checkout.PlaceOrder(ctx, "tom@example.com", f.checkout.NewSession(mangoCart(1), domain.ShippingDelivery), req)
	require.NoError(t, err)
	jerry, err := f.checkout.PlaceOrder(ctx, "jerry@example.com", f.checkout.NewSession(mangoCart(1), domain.ShippingDelivery), req)
	require.NoError(t, err)
	assert.NotEqual(t, tom.TrackingID, jerry.TrackingID)
}

func TestPlaceOrder_IdempotencyKeyInFlight(t *testing.T) {
	f := newCheckoutFixture(CheckoutConfig{})
	ctx := context.Background()
	now := time.Date(2025, time.May, 4, 10, 0, 0, 0, time.UTC)
	f.checkout.now = fixedClock(now)

	_, err := f.ledger.ClaimRequest(ctx, "tom@example.com", "submit-1", now)
	require.NoError(t, err)

	req := validRequest()
	req.IdempotencyKey = "submit-1"
	_, err = f.checkout.PlaceOrder(ctx, "tom@example.com", f.checkout.NewSession(mangoCart(1), domain.ShippingDelivery), req)
	assert.ErrorIs(t, err, ErrDuplicateRequest)

	f.checkout.now = fixedClock(now.Add(25 * time.Hour))
	_, err = f.checkout.PlaceOrder(ctx, "tom@example.com", f.checkout.NewSession(mangoCart(1), domain.ShippingDelivery), req)
	assert.NoError(t, err)
}

func TestPlaceOrder_IdempotencyKeyReleasedOnFailure(t *testing.T) {
	f := newCheckoutFixture(CheckoutConfig{ProcessingDelay: time.Minute})
	req := validRequest()
	req.IdempotencyKey = "submit-1"

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := f.checkout.PlaceOrder(ctx, "tom@example.com", f.checkout.NewSession(mangoCart(1), domain.ShippingDelivery), req)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	f.checkout.cfg.ProcessingDelay = 0
	order, err := f.checkout.PlaceOrder(context.Background(), "tom@example.com", f.checkout.NewSession(mangoCart(1), domain.ShippingDelivery), req)
	require.NoError(t, err)
	assert.NotEmpty(t, order.TrackingID)
}

func TestPlaceOrder_IdempotencyKeyTooLong(t *testing.T) {
	f := newCheckoutFixture(CheckoutConfig{})
	req := validRequest()
	req.IdempotencyKey = strings.Repeat("k", 129)

	_, err := f.checkout.PlaceOrder(context.Background(), "tom@example.com", f.checkout.NewSession(mangoCart(1), domain.ShippingDelivery), req)
	assert.ErrorIs(t, err, domain.ErrValidation)
}
