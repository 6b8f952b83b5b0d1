package service

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rl1809/catrink/internal/core/domain"
)

const defaultTrackingLocation = "Processing Center"

type TrackingService struct {
	ledger    *OrderLedger
	notify    Enqueuer
	arbitrary bool
	now       func() time.Time
	log       logrus.FieldLogger
}

// NewTrackingService builds the back-office status machine. With
// allowArbitrary unset only forward moves and cancellation are accepted.
func NewTrackingService(ledger *OrderLedger, notify Enqueuer, allowArbitrary bool, log logrus.FieldLogger) *TrackingService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &TrackingService{
		ledger:    ledger,
		notify:    notify,
		arbitrary: allowArbitrary,
		now:       time.Now,
		log:       log,
	}
}

// UpdateStatus moves an order to status and appends a tracking entry.
// Delivered orders get their actual delivery time stamped.
func (s *TrackingService) UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus, location string) (domain.Order, error) {
	if strings.TrimSpace(location) == "" {
		location = defaultTrackingLocation
	}

	order, err := s.ledger.MutateOrder(ctx, orderID, func(o *domain.Order) error {
		if err := domain.CheckTransition(o.Status, status, s.arbitrary); err != nil {
			return err
		}

		now := s.now()
		o.Status = status
		o.TrackingUpdates = append(o.TrackingUpdates, domain.TrackingUpdate{
			Date:        now,
			Status:      status.Label(),
			Location:    location,
			Description: status.Description(),
		})
		if status == domain.OrderStatusDelivered {
			o.ActualDelivery = &now
		}
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}

	s.log.WithFields(logrus.Fields{"order_id": orderID, "status": status}).Info("order status updated")
	return order, nil
}

// SendUpdate queues the latest tracking entry to the customer who owns the
// order.
func (s *TrackingService) SendUpdate(ctx context.Context, orderID string) error {
	order, scope, err := s.ledger.FindOrder(ctx, orderID)
	if err != nil {
		return err
	}
	s.notify.Enqueue(orderUpdateNotification(order, scope))
	return nil
}

type TrackingView struct {
	Order    domain.Order           `json:"order"`
	Stage    domain.OrderStatus     `json:"stage"`
	Progress []domain.StageProgress `json:"progress"`
}

// Track returns the customer projection of an order in the identity's ledger.
func (s *TrackingService) Track(ctx context.Context, scope, trackingID string) (TrackingView, error) {
	order, err := s.ledger.GetOrderByTrackingID(ctx, scope, strings.TrimSpace(trackingID))
	if err != nil {
		return TrackingView{}, err
	}
	return TrackingView{
		Order:    order,
		Stage:    domain.CustomerStage(order.Status),
		Progress: domain.Progress(order.Status),
	}, nil
}
