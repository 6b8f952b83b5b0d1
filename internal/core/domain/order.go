package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusProcessing     OrderStatus = "processing"
	OrderStatusShipped        OrderStatus = "shipped"
	OrderStatusOutForDelivery OrderStatus = "out-for-delivery"
	OrderStatusDelivered      OrderStatus = "delivered"
	OrderStatusCancelled      OrderStatus = "cancelled"
)

type ShippingMethod string

const (
	ShippingDelivery ShippingMethod = "delivery"
	ShippingPickup   ShippingMethod = "pickup"
)

type PaymentMethod string

const (
	PaymentStripe   PaymentMethod = "stripe"
	PaymentRazorpay PaymentMethod = "razorpay"
	PaymentPayPal   PaymentMethod = "paypal"
	PaymentCard     PaymentMethod = "card"
	PaymentUPI      PaymentMethod = "upi"
)

func (p PaymentMethod) Valid() bool {
	switch p {
	case PaymentStripe, PaymentRazorpay, PaymentPayPal, PaymentCard, PaymentUPI:
		return true
	}
	return false
}

type OrderItem struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
	Image    string          `json:"image"`
}

type Address struct {
	FullName string `json:"fullName"`
	Street   string `json:"street"`
	City     string `json:"city"`
	State    string `json:"state"`
	ZipCode  string `json:"zipCode"`
	Country  string `json:"country"`
}

type AppliedCoupon struct {
	Code     string          `json:"code"`
	Discount decimal.Decimal `json:"discount"`
}

// Quote is the price breakdown of a cart. Total is always
// Subtotal - Discount + Tax + Shipping.
type Quote struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Discount decimal.Decimal `json:"discount"`
	Tax      decimal.Decimal `json:"tax"`
	Shipping decimal.Decimal `json:"shipping"`
	Total    decimal.Decimal `json:"total"`
}

type TrackingUpdate struct {
	Date        time.Time `json:"date"`
	Status      string    `json:"status"`
	Location    string    `json:"location"`
	Description string    `json:"description"`
}

type Order struct {
	ID                string           `json:"id"`
	TrackingID        string           `json:"trackingId"`
	Items             []OrderItem      `json:"items"`
	TotalAmount       decimal.Decimal  `json:"totalAmount"`
	Pricing           Quote            `json:"pricing"`
	Status            OrderStatus      `json:"status"`
	OrderDate         time.Time        `json:"orderDate"`
	EstimatedDelivery time.Time        `json:"estimatedDelivery"`
	ActualDelivery    *time.Time       `json:"actualDelivery,omitempty"`
	ShippingAddress   Address          `json:"shippingAddress"`
	ShippingMethod    ShippingMethod   `json:"shippingMethod"`
	PaymentMethod     PaymentMethod    `json:"paymentMethod"`
	CouponApplied     *AppliedCoupon   `json:"couponApplied,omitempty"`
	TrackingUpdates   []TrackingUpdate `json:"trackingUpdates"`
}

func (o Order) ItemCount() int {
	n := 0
	for _, item := range o.Items {
		n += item.Quantity
	}
	return n
}
