package service

import (
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/catrink/internal/core/domain"
)

func TestDispatcher_DeliversQueued(t *testing.T) {
	notifier := &mockNotifier{}
	d := NewNotificationDispatcher(notifier, 10, nullLogger())
	d.Start(2)

	for i := 0; i < 5; i++ {
		assert.True(t, d.Enqueue(domain.Notification{Kind: domain.NotificationOrderPlaced}))
	}
	d.Close()

	assert.Equal(t, 5, notifier.count())
}

func TestDispatcher_FailuresAreLogged(t *testing.T) {
	logger, hook := test.NewNullLogger()
	d := NewNotificationDispatcher(&mockNotifier{err: errors.New("smtp down")}, 10, logger)
	d.Start(1)

	d.Enqueue(domain.Notification{Kind: domain.NotificationOrderPlaced})
	d.Close()

	var errorsLogged int
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.ErrorLevel {
			errorsLogged++
		}
	}
	assert.Equal(t, 1, errorsLogged)
}

func TestDispatcher_FullQueueDrops(t *testing.T) {
	d := NewNotificationDispatcher(&mockNotifier{}, 1, nullLogger())

	assert.True(t, d.Enqueue(domain.Notification{}))
	assert.False(t, d.Enqueue(domain.Notification{}))

	d.Start(1)
	d.Close()
}

func TestDispatcher_EnqueueAfterClose(t *testing.T) {
	d := NewNotificationDispatcher(&mockNotifier{}, 1, nullLogger())
	d.Start(1)
	d.Close()

	assert.False(t, d.Enqueue(domain.Notification{}))
	d.Close()
}

func TestOrderPlacedNotification(t *testing.T) {
	order := domain.Order{
		TrackingID:        "CAT-ABC",
		Items:             []domain.OrderItem{{Name: "Mango Bluster", Image: "🥭", Price: dec("4.99"), Quantity: 2}},
		TotalAmount:       dec("16.7684"),
		OrderDate:         time.Date(2025, time.May, 4, 0, 0, 0, 0, time.UTC),
		EstimatedDelivery: time.Date(2025, time.May, 11, 0, 0, 0, 0, time.UTC),
		PaymentMethod:     domain.PaymentUPI,
		ShippingMethod:    domain.ShippingPickup,
		CouponApplied:     &domain.AppliedCoupon{Code: "FIRSTCAT", Discount: dec("1.996")},
	}

	n := orderPlacedNotification(order, BillingDetails{FullName: "Tom", Email: "tom@example.com"})

	require.Equal(t, domain.NotificationOrderPlaced, n.Kind)
	assert.Equal(t, "NEW ORDER #CAT-ABC - $16.77", n.Params["subject"])
	assert.Equal(t, "N/A", n.Params["phone"])
	assert.Contains(t, n.Params["message"], "2x Mango Bluster 🥭 - $9.98")
	assert.Contains(t, n.Params["message"], "DELIVERY: Store Pickup")
	assert.Contains(t, n.Params["message"], "PAYMENT: UPI")
	assert.Contains(t, n.Params["message"], "COUPON: FIRSTCAT (-$2.00)")
}
