package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/rl1809/catrink/internal/core/domain"
	"github.com/rl1809/catrink/internal/core/repository"
	"github.com/rl1809/catrink/internal/port"
)

var ErrOrderNotFound = errors.New("order not found")

const (
	TrackingIDPrefix = "CAT-"
	trackingIDLength = 12
	trackingAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%&*"
)

// orderRef locates an order for back-office reads without scanning every
// identity's ledger.
type orderRef struct {
	Scope      string `json:"scope"`
	TrackingID string `json:"trackingId"`
}

type OrderLedger struct {
	orders   *repository.Collection[[]domain.Order]
	flags    *repository.Collection[bool]
	index    *repository.Repository[map[string]orderRef]
	requests *repository.Collection[map[string]requestClaim]
	log      logrus.FieldLogger
}

func NewOrderLedger(store port.KeyValueStore, keys repository.Keys, log logrus.FieldLogger) *OrderLedger {
	if log == nil {
		log = logrus.StandardLogger()
	}
	emptyOrders := func() []domain.Order { return []domain.Order{} }
	emptyIndex := func() map[string]orderRef { return map[string]orderRef{} }

	return &OrderLedger{
		orders:   repository.NewCollection(store, keys, repository.Orders, emptyOrders, log),
		flags:    repository.NewCollection[bool](store, keys, repository.HasEverOrdered, nil, log),
		index:    repository.NewCollection(store, keys, repository.OrderIndex, emptyIndex, log).Global(),
		requests: repository.NewCollection[map[string]requestClaim](store, keys, repository.Requests, nil, log),
		log:      log,
	}
}

// GenerateTrackingID draws from a non-cryptographic source. Collisions are
// not checked.
func GenerateTrackingID() string {
	b := make([]byte, trackingIDLength)
	for i := range b {
		b[i] = trackingAlphabet[rand.IntN(len(trackingAlphabet))]
	}
	return TrackingIDPrefix + string(b)
}

// AddOrder prepends order to the identity's ledger and returns its tracking
// id. The has-ever-ordered flag and the back-office index are written after
// the ledger; a failure there is logged and does not undo the order.
func (l *OrderLedger) AddOrder(ctx context.Context, scope string, order domain.Order) (string, error) {
	normalized, err := repository.NormalizeScope(scope)
	if err != nil {
		return "", err
	}
	repo, err := l.orders.ForScope(normalized)
	if err != nil {
		return "", err
	}

	if order.ID == "" {
		order.ID = uuid.Must(uuid.NewV7()).String()
	}
	if order.TrackingID == "" {
		order.TrackingID = GenerateTrackingID()
	}
	if order.TrackingUpdates == nil {
		order.TrackingUpdates = []domain.TrackingUpdate{}
	}

	_, err = repo.Update(ctx, func(list *[]domain.Order) error {
		*list = append([]domain.Order{order}, *list...)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("append order: %w", err)
	}

	log := l.log.WithFields(logrus.Fields{"order_id": order.ID, "tracking_id": order.TrackingID})

	if err := l.markOrdered(ctx, normalized); err != nil {
		log.WithError(err).Error("failed to set has-ever-ordered flag")
	}

	_, err = l.index.Update(ctx, func(m *map[string]orderRef) error {
		if *m == nil {
			*m = map[string]orderRef{}
		}
		(*m)[order.ID] = orderRef{Scope: normalized, TrackingID: order.TrackingID}
		return nil
	})
	if err != nil {
		log.WithError(err).Error("failed to index order")
	}

	return order.TrackingID, nil
}

func (l *OrderLedger) markOrdered(ctx context.Context, scope string) error {
	repo, err := l.flags.ForScope(scope)
	if err != nil {
		return err
	}
	_, err = repo.Update(ctx, func(v *bool) error {
		if *v {
			return repository.ErrNoChange
		}
		*v = true
		return nil
	})
	return err
}

func (l *OrderLedger) Orders(ctx context.Context, scope string) ([]domain.Order, error) {
	repo, err := l.orders.ForScope(scope)
	if err != nil {
		return nil, err
	}
	return repo.Load(ctx)
}

func (l *OrderLedger) HasEverOrdered(ctx context.Context, scope string) (bool, error) {
	repo, err := l.flags.ForScope(scope)
	if err != nil {
		return false, err
	}
	return repo.Load(ctx)
}

// GetOrderByTrackingID returns the first order in the identity's ledger
// carrying trackingID.
func (l *OrderLedger) GetOrderByTrackingID(ctx context.Context, scope, trackingID string) (domain.Order, error) {
	orders, err := l.Orders(ctx, scope)
	if err != nil {
		return domain.Order{}, err
	}
	for _, o := range orders {
		if o.TrackingID == trackingID {
			return o, nil
		}
	}
	return domain.Order{}, ErrOrderNotFound
}

// UpdateOrderStatus replaces the status only. History is appended by
// TrackingService.
func (l *OrderLedger) UpdateOrderStatus(ctx context.Context, scope, orderID string, status domain.OrderStatus) error {
	_, err := l.mutate(ctx, scope, orderID, func(o *domain.Order) error {
		o.Status = status
		return nil
	})
	return err
}

// AllOrders lists every indexed order, newest first.
func (l *OrderLedger) AllOrders(ctx context.Context) ([]domain.Order, error) {
	index, err := l.index.Load(ctx)
	if err != nil {
		return nil, err
	}

	scopes := make(map[string]struct{})
	for _, ref := range index {
		scopes[ref.Scope] = struct{}{}
	}

	var all []domain.Order
	for scope := range scopes {
		orders, err := l.Orders(ctx, scope)
		if err != nil {
			return nil, err
		}
		for _, o := range orders {
			if _, ok := index[o.ID]; ok {
				all = append(all, o)
			}
		}
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].OrderDate.After(all[j].OrderDate)
	})
	return all, nil
}

// OrderFilter narrows the back-office order list. Query matches the tracking
// id or the shipping name case-insensitively; an empty Status keeps every
// status.
type OrderFilter struct {
	Query  string
	Status domain.OrderStatus
}

func (f OrderFilter) Matches(o domain.Order) bool {
	if f.Status != "" && o.Status != f.Status {
		return false
	}
	q := strings.ToLower(strings.TrimSpace(f.Query))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(o.TrackingID), q) ||
		strings.Contains(strings.ToLower(o.ShippingAddress.FullName), q)
}

// SearchOrders is AllOrders narrowed by filter.
func (l *OrderLedger) SearchOrders(ctx context.Context, filter OrderFilter) ([]domain.Order, error) {
	all, err := l.AllOrders(ctx)
	if err != nil {
		return nil, err
	}
	matched := all[:0]
	for _, o := range all {
		if filter.Matches(o) {
			matched = append(matched, o)
		}
	}
	return matched, nil
}

func (l *OrderLedger) FindOrder(ctx context.Context, orderID string) (domain.Order, string, error) {
	ref, err := l.lookup(ctx, orderID)
	if err != nil {
		return domain.Order{}, "", err
	}
	orders, err := l.Orders(ctx, ref.Scope)
	if err != nil {
		return domain.Order{}, "", err
	}
	for _, o := range orders {
		if o.ID == orderID {
			return o, ref.Scope, nil
		}
	}
	return domain.Order{}, "", ErrOrderNotFound
}

// MutateOrder applies fn to an order found through the back-office index.
func (l *OrderLedger) MutateOrder(ctx context.Context, orderID string, fn func(*domain.Order) error) (domain.Order, error) {
	ref, err := l.lookup(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	return l.mutate(ctx, ref.Scope, orderID, fn)
}

func (l *OrderLedger) lookup(ctx context.Context, orderID string) (orderRef, error) {
	index, err := l.index.Load(ctx)
	if err != nil {
		return orderRef{}, err
	}
	ref, ok := index[orderID]
	if !ok {
		return orderRef{}, ErrOrderNotFound
	}
	return ref, nil
}

func (l *OrderLedger) mutate(ctx context.Context, scope, orderID string, fn func(*domain.Order) error) (domain.Order, error) {
	repo, err := l.orders.ForScope(scope)
	if err != nil {
		return domain.Order{}, err
	}

	var updated domain.Order
	_, err = repo.Update(ctx, func(list *[]domain.Order) error {
		for i := range *list {
			if (*list)[i].ID != orderID {
				continue
			}
			if err := fn(&(*list)[i]); err != nil {
				return err
			}
			updated = (*list)[i]
			return nil
		}
		return ErrOrderNotFound
	})
	if err != nil {
		return domain.Order{}, err
	}
	return updated, nil
}
