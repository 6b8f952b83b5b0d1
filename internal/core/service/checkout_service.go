package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/rl1809/catrink/internal/core/domain"
)

const (
	DefaultProcessingDelay = 3 * time.Second
	DefaultDeliveryWindow  = 7 * 24 * time.Hour
)

type CheckoutConfig struct {
	ProcessingDelay          time.Duration
	DeliveryWindow           time.Duration
	EnforceCouponConstraints bool
}

type BillingDetails struct {
	FullName string `json:"fullName" validate:"required"`
	Email    string `json:"email" validate:"required"`
	Phone    string `json:"phone"`
	Street   string `json:"street" validate:"required"`
	City     string `json:"city"`
	State    string `json:"state"`
	ZipCode  string `json:"zipCode"`
	Country  string `json:"country"`
}

type PlaceOrderRequest struct {
	Billing       BillingDetails
	PaymentMethod domain.PaymentMethod
	AcceptTerms   bool
	// IdempotencyKey, when set, makes a retried submit return the order the
	// first attempt placed.
	IdempotencyKey string
}

// Enqueuer accepts notifications for asynchronous delivery.
type Enqueuer interface {
	Enqueue(n domain.Notification) bool
}

type CheckoutService struct {
	ledger   *OrderLedger
	coupons  *CouponService
	pricing  PricingCalculator
	notify   Enqueuer
	cfg      CheckoutConfig
	validate *validator.Validate
	now      func() time.Time
	log      logrus.FieldLogger
}

func NewCheckoutService(ledger *OrderLedger, coupons *CouponService, pricing PricingCalculator, notify Enqueuer, cfg CheckoutConfig, log logrus.FieldLogger) *CheckoutService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if cfg.DeliveryWindow == 0 {
		cfg.DeliveryWindow = DefaultDeliveryWindow
	}
	return &CheckoutService{
		ledger:   ledger,
		coupons:  coupons,
		pricing:  pricing,
		notify:   notify,
		cfg:      cfg,
		validate: validator.New(),
		now:      time.Now,
		log:      log,
	}
}

// CheckoutSession holds the cart being checked out and the coupon applied
// to it. It is not safe for concurrent use.
type CheckoutSession struct {
	svc    *CheckoutService
	cart   domain.Cart
	method domain.ShippingMethod
	coupon *domain.Coupon
	err    error
}

func (s *CheckoutService) NewSession(cart domain.Cart, method domain.ShippingMethod) *CheckoutSession {
	if method != domain.ShippingPickup {
		method = domain.ShippingDelivery
	}
	return &CheckoutSession{svc: s, cart: cart, method: method}
}

// ApplyCoupon validates code against the cart. On failure the previously
// applied coupon stays in place and the error is kept for Err.
func (cs *CheckoutSession) ApplyCoupon(ctx context.Context, code string) error {
	c, err := cs.svc.coupons.Find(ctx, code)
	if err == nil {
		err = c.CheckMinimum(cs.cart.Subtotal())
	}
	if err == nil && cs.svc.cfg.EnforceCouponConstraints {
		err = c.CheckRedeemable(cs.svc.now())
	}
	if err != nil {
		cs.err = err
		return err
	}

	cs.coupon = &c
	cs.err = nil
	return nil
}

func (cs *CheckoutSession) RemoveCoupon() {
	cs.coupon = nil
	cs.err = nil
}

func (cs *CheckoutSession) Coupon() *domain.Coupon {
	return cs.coupon
}

func (cs *CheckoutSession) Err() error {
	return cs.err
}

func (cs *CheckoutSession) Quote() domain.Quote {
	return cs.svc.pricing.Quote(cs.cart, cs.method, cs.coupon)
}

// PlaceOrder validates the request, waits out the processing delay and
// records the order in the identity's ledger. The order notification is
// queued and never fails the order. A request carrying an idempotency key
// already used by this identity gets the earlier order back.
func (s *CheckoutService) PlaceOrder(ctx context.Context, scope string, cs *CheckoutSession, req PlaceOrderRequest) (domain.Order, error) {
	if !req.AcceptTerms {
		return domain.Order{}, fmt.Errorf("%w: please accept the terms and conditions", domain.ErrValidation)
	}
	if err := s.validate.Struct(req.Billing); err != nil {
		return domain.Order{}, fmt.Errorf("%w: please fill in all required fields", domain.ErrValidation)
	}
	if req.PaymentMethod == "" {
		req.PaymentMethod = domain.PaymentStripe
	}
	if !req.PaymentMethod.Valid() {
		return domain.Order{}, fmt.Errorf("%w: unsupported payment method %q", domain.ErrValidation, req.PaymentMethod)
	}
	if err := cs.cart.Validate(); err != nil {
		return domain.Order{}, err
	}

	if req.IdempotencyKey == "" {
		return s.placeOrder(ctx, scope, cs, req)
	}

	trackingID, err := s.ledger.ClaimRequest(ctx, scope, req.IdempotencyKey, s.now())
	if err != nil {
		return domain.Order{}, err
	}
	if trackingID != "" {
		s.log.WithField("tracking_id", trackingID).Info("replaying order for repeated request")
		return s.ledger.GetOrderByTrackingID(ctx, scope, trackingID)
	}

	placed, err := s.placeOrder(ctx, scope, cs, req)
	// The request context may already be cancelled here.
	bg := context.WithoutCancel(ctx)
	if err != nil {
		if rerr := s.ledger.ReleaseRequest(bg, scope, req.IdempotencyKey); rerr != nil {
			s.log.WithError(rerr).Warn("failed to release idempotency key")
		}
		return domain.Order{}, err
	}
	if err := s.ledger.CompleteRequest(bg, scope, req.IdempotencyKey, placed.TrackingID); err != nil {
		s.log.WithError(err).WithField("tracking_id", placed.TrackingID).Warn("failed to record idempotency key")
	}
	return placed, nil
}

func (s *CheckoutService) placeOrder(ctx context.Context, scope string, cs *CheckoutSession, req PlaceOrderRequest) (domain.Order, error) {
	if s.cfg.ProcessingDelay > 0 {
		select {
		case <-time.After(s.cfg.ProcessingDelay):
		case <-ctx.Done():
			return domain.Order{}, ctx.Err()
		}
	}

	now := s.now()
	quote := cs.Quote()
	order := domain.Order{
		Items:             cs.cart.OrderItems(),
		TotalAmount:       quote.Total,
		Pricing:           quote,
		Status:            domain.OrderStatusProcessing,
		OrderDate:         now,
		EstimatedDelivery: now.Add(s.cfg.DeliveryWindow),
		ShippingAddress: domain.Address{
			FullName: req.Billing.FullName,
			Street:   req.Billing.Street,
			City:     req.Billing.City,
			State:    req.Billing.State,
			ZipCode:  req.Billing.ZipCode,
			Country:  req.Billing.Country,
		},
		ShippingMethod: cs.method,
		PaymentMethod:  req.PaymentMethod,
		TrackingUpdates: []domain.TrackingUpdate{{
			Date:        now,
			Status:      "Order Placed",
			Location:    "Online",
			Description: "Your order has been received and is being processed",
		}},
	}
	if cs.coupon != nil {
		order.CouponApplied = &domain.AppliedCoupon{Code: cs.coupon.Code, Discount: quote.Discount}
	}

	trackingID, err := s.ledger.AddOrder(ctx, scope, order)
	if err != nil {
		return domain.Order{}, fmt.Errorf("record order: %w", err)
	}

	placed, err := s.ledger.GetOrderByTrackingID(ctx, scope, trackingID)
	if err != nil {
		return domain.Order{}, fmt.Errorf("reload order: %w", err)
	}

	log := s.log.WithFields(logrus.Fields{"order_id": placed.ID, "tracking_id": trackingID})

	if cs.coupon != nil {
		if err := s.coupons.Redeem(ctx, cs.coupon.Code, s.cfg.EnforceCouponConstraints); err != nil {
			log.WithError(err).Warn("failed to record coupon redemption")
		}
	}

	s.notify.Enqueue(orderPlacedNotification(placed, req.Billing))
	log.WithField("total", placed.TotalAmount.StringFixed(2)).Info("order placed")

	return placed, nil
}
