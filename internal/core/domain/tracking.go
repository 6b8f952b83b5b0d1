package domain

import (
	"fmt"
	"strings"
)

var statusFlow = []OrderStatus{
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusOutForDelivery,
	OrderStatusDelivered,
}

// CustomerStages is the reduced pipeline shown to customers.
var CustomerStages = []OrderStatus{
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusDelivered,
}

func ParseOrderStatus(s string) (OrderStatus, error) {
	status := OrderStatus(strings.ToLower(strings.TrimSpace(s)))
	if status == OrderStatusCancelled || indexOf(statusFlow, status) >= 0 {
		return status, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
}

func (s OrderStatus) Terminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// Label is the human readable form stored in tracking history,
// e.g. "out-for-delivery" becomes "Out for delivery".
func (s OrderStatus) Label() string {
	text := strings.ReplaceAll(string(s), "-", " ")
	if text == "" {
		return ""
	}
	return strings.ToUpper(text[:1]) + text[1:]
}

func (s OrderStatus) Description() string {
	switch s {
	case OrderStatusProcessing:
		return "Order is being prepared for shipment"
	case OrderStatusShipped:
		return "Package has been shipped and is in transit"
	case OrderStatusOutForDelivery:
		return "Package is out for delivery"
	case OrderStatusDelivered:
		return "Package has been successfully delivered"
	case OrderStatusCancelled:
		return "Order has been cancelled"
	}
	return "Status updated"
}

// CheckTransition validates from -> to. When arbitrary is set every named
// status is accepted. Otherwise the order may only move forward along the
// delivery flow, re-assert its current state, or be cancelled while it is
// not terminal.
func CheckTransition(from, to OrderStatus, arbitrary bool) error {
	if _, err := ParseOrderStatus(string(to)); err != nil {
		return err
	}
	if arbitrary {
		return nil
	}
	if from.Terminal() {
		return fmt.Errorf("%w: order is already %s", ErrInvalidTransition, from)
	}
	if to == OrderStatusCancelled {
		return nil
	}
	if indexOf(statusFlow, to) < indexOf(statusFlow, from) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

// CustomerStage projects an admin status onto the customer pipeline.
// out-for-delivery is reported as shipped.
func CustomerStage(s OrderStatus) OrderStatus {
	if s == OrderStatusOutForDelivery {
		return OrderStatusShipped
	}
	return s
}

type StageState string

const (
	StageCompleted StageState = "completed"
	StageCurrent   StageState = "current"
	StagePending   StageState = "pending"
)

type StageProgress struct {
	Stage OrderStatus `json:"stage"`
	Label string      `json:"label"`
	State StageState  `json:"state"`
}

// Progress classifies each customer stage relative to the order status.
// A stage at or before the current one is completed and the stage right
// after it is current. Statuses outside the pipeline (cancelled) sit before
// the first stage.
func Progress(s OrderStatus) []StageProgress {
	current := indexOf(CustomerStages, CustomerStage(s))
	out := make([]StageProgress, len(CustomerStages))
	for i, stage := range CustomerStages {
		state := StagePending
		switch {
		case i <= current:
			state = StageCompleted
		case i == current+1:
			state = StageCurrent
		}
		out[i] = StageProgress{Stage: stage, Label: stage.Label(), State: state}
	}
	return out
}

func indexOf(list []OrderStatus, s OrderStatus) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}
