package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/rl1809/catrink/internal/core/domain"
	"github.com/rl1809/catrink/internal/port"
)

const sendTimeout = 10 * time.Second

// NotificationDispatcher sends transactional email from a pool of workers.
// Enqueue never blocks the caller and delivery failures are only logged.
type NotificationDispatcher struct {
	notifier port.Notifier
	queue    chan domain.Notification
	log      logrus.FieldLogger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewNotificationDispatcher(notifier port.Notifier, queueSize int, log logrus.FieldLogger) *NotificationDispatcher {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &NotificationDispatcher{
		notifier: notifier,
		queue:    make(chan domain.Notification, queueSize),
		log:      log,
	}
}

func (d *NotificationDispatcher) Start(workers int) {
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go func(id int) {
			defer d.wg.Done()
			d.workerLoop(id)
		}(i)
	}
	d.log.WithField("workers", workers).Info("notification workers started")
}

// Enqueue reports whether the notification was accepted. A full or closed
// queue drops it.
func (d *NotificationDispatcher) Enqueue(n domain.Notification) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.log.WithField("kind", n.Kind).Warn("notification dropped: dispatcher closed")
		return false
	}

	select {
	case d.queue <- n:
		return true
	default:
		d.log.WithField("kind", n.Kind).Warn("notification dropped: queue full")
		return false
	}
}

// Close stops accepting work and waits for queued notifications to drain.
func (d *NotificationDispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *NotificationDispatcher) workerLoop(id int) {
	for n := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)

		log := d.log.WithFields(logrus.Fields{"worker": id, "kind": n.Kind})
		if err := d.notifier.Send(ctx, n); err != nil {
			log.WithError(err).Error("failed to send notification")
		} else {
			log.Debug("notification sent")
		}

		cancel()
	}
}

func orderPlacedNotification(order domain.Order, billing BillingDetails) domain.Notification {
	items := make([]string, 0, len(order.Items))
	for _, item := range order.Items {
		lineTotal := item.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		items = append(items, fmt.Sprintf("%dx %s %s - $%s", item.Quantity, item.Name, item.Image, lineTotal.StringFixed(2)))
	}

	delivery := "Home Delivery"
	if order.ShippingMethod == domain.ShippingPickup {
		delivery = "Store Pickup"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "NEW CATRINK ORDER RECEIVED!\n\n")
	fmt.Fprintf(&b, "ORDER ID: %s\n", order.TrackingID)
	fmt.Fprintf(&b, "ORDER DATE: %s\n", order.OrderDate.Format("2006-01-02"))
	fmt.Fprintf(&b, "DELIVERY: %s\n", delivery)
	fmt.Fprintf(&b, "PAYMENT: %s\n\n", strings.ToUpper(string(order.PaymentMethod)))
	fmt.Fprintf(&b, "CUSTOMER:\nName: %s\nEmail: %s\nPhone: %s\n\n",
		order.ShippingAddress.FullName, orDefault(billing.Email, "Not provided"), orDefault(billing.Phone, "Not provided"))
	fmt.Fprintf(&b, "ADDRESS:\n%s\n%s, %s %s\n%s\n\n",
		order.ShippingAddress.Street, order.ShippingAddress.City, order.ShippingAddress.State,
		order.ShippingAddress.ZipCode, order.ShippingAddress.Country)
	fmt.Fprintf(&b, "ITEMS: %s\n\n", strings.Join(items, ", "))
	fmt.Fprintf(&b, "TOTAL: $%s\n", order.TotalAmount.StringFixed(2))
	if order.CouponApplied != nil {
		fmt.Fprintf(&b, "COUPON: %s (-$%s)\n", order.CouponApplied.Code, order.CouponApplied.Discount.StringFixed(2))
	}
	fmt.Fprintf(&b, "\nDELIVERY DATE: %s\n", order.EstimatedDelivery.Format("2006-01-02"))

	return domain.Notification{
		Kind: domain.NotificationOrderPlaced,
		Params: map[string]string{
			"name":    "Catrink Order System",
			"email":   orDefault(billing.Email, "order@catrink.com"),
			"phone":   orDefault(billing.Phone, "N/A"),
			"subject": fmt.Sprintf("NEW ORDER #%s - $%s", order.TrackingID, order.TotalAmount.StringFixed(2)),
			"message": b.String(),
		},
	}
}

func orderUpdateNotification(order domain.Order, recipient string) domain.Notification {
	latest := domain.TrackingUpdate{Status: order.Status.Label(), Description: order.Status.Description()}
	if n := len(order.TrackingUpdates); n > 0 {
		latest = order.TrackingUpdates[n-1]
	}
	return domain.Notification{
		Kind: domain.NotificationOrderUpdate,
		To:   recipient,
		Params: map[string]string{
			"name":    order.ShippingAddress.FullName,
			"email":   recipient,
			"subject": fmt.Sprintf("Order %s: %s", order.TrackingID, latest.Status),
			"message": fmt.Sprintf("%s\nLocation: %s", latest.Description, latest.Location),
		},
	}
}

func orDefault(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
