package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/catrink/internal/core/domain"
	"github.com/rl1809/catrink/internal/core/repository"
)

func TestGenerateTrackingID(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		id := GenerateTrackingID()
		if !strings.HasPrefix(id, "CAT-") || len(id) != 16 {
			t.Fatalf("unexpected tracking id %q", id)
		}
		for _, c := range id[4:] {
			if !strings.ContainsRune(trackingAlphabet, c) {
				t.Fatalf("unexpected character %q in %q", c, id)
			}
		}
		seen[id] = true
	}
	if len(seen) < 190 {
		t.Errorf("expected mostly unique ids, got %d distinct", len(seen))
	}
}

func TestAddOrder_PrependsAndFlags(t *testing.T) {
	store := newMockStore()
	ledger := NewOrderLedger(store, testKeys, nullLogger())
	ctx := context.Background()

	ever, err := ledger.HasEverOrdered(ctx, "tom@example.com")
	require.NoError(t, err)
	assert.False(t, ever)

	first, err := ledger.AddOrder(ctx, "tom@example.com", domain.Order{Status: domain.OrderStatusProcessing})
	require.NoError(t, err)
	second, err := ledger.AddOrder(ctx, "Tom@Example.com", domain.Order{Status: domain.OrderStatusProcessing})
	require.NoError(t, err)

	orders, err := ledger.Orders(ctx, "tom@example.com")
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, second, orders[0].TrackingID)
	assert.Equal(t, first, orders[1].TrackingID)
	assert.NotNil(t, orders[0].TrackingUpdates)

	raw, ok := store.raw("catrink_has_ever_ordered_tom@example.com")
	assert.True(t, ok)
	assert.Equal(t, "true", raw)
}

func TestAddOrder_KeepsSuppliedTrackingID(t *testing.T) {
	ledger := NewOrderLedger(newMockStore(), testKeys, nullLogger())

	id, err := ledger.AddOrder(context.Background(), "tom@example.com", domain.Order{TrackingID: "CAT-FIXED"})
	require.NoError(t, err)
	assert.Equal(t, "CAT-FIXED", id)
}

func TestAddOrder_RejectsInvalidScope(t *testing.T) {
	ledger := NewOrderLedger(newMockStore(), testKeys, nullLogger())

	_, err := ledger.AddOrder(context.Background(), "anonymous", domain.Order{})
	assert.ErrorIs(t, err, repository.ErrInvalidScope)
}

func TestLedger_ScopesAreIsolated(t *testing.T) {
	ledger := NewOrderLedger(newMockStore(), testKeys, nullLogger())
	ctx := context.Background()

	id, err := ledger.AddOrder(ctx, "tom@example.com", domain.Order{})
	require.NoError(t, err)

	orders, err := ledger.Orders(ctx, "jerry@example.com")
	require.NoError(t, err)
	assert.Empty(t, orders)

	_, err = ledger.GetOrderByTrackingID(ctx, "jerry@example.com", id)
	assert.ErrorIs(t, err, ErrOrderNotFound)

	ever, _ := ledger.HasEverOrdered(ctx, "jerry@example.com")
	assert.False(t, ever)
}

func TestGetOrderByTrackingID(t *testing.T) {
	ledger := NewOrderLedger(newMockStore(), testKeys, nullLogger())
	ctx := context.Background()

	id, err := ledger.AddOrder(ctx, "tom@example.com", domain.Order{PaymentMethod: domain.PaymentUPI})
	require.NoError(t, err)

	order, err := ledger.GetOrderByTrackingID(ctx, "tom@example.com", id)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentUPI, order.PaymentMethod)

	_, err = ledger.GetOrderByTrackingID(ctx, "tom@example.com", "CAT-MISSING")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestUpdateOrderStatus_StatusOnly(t *testing.T) {
	ledger := NewOrderLedger(newMockStore(), testKeys, nullLogger())
	ctx := context.Background()

	id, _ := ledger.AddOrder(ctx, "tom@example.com", domain.Order{Status: domain.OrderStatusProcessing})
	order, _ := ledger.GetOrderByTrackingID(ctx, "tom@example.com", id)

	require.NoError(t, ledger.UpdateOrderStatus(ctx, "tom@example.com", order.ID, domain.OrderStatusShipped))

	updated, _ := ledger.GetOrderByTrackingID(ctx, "tom@example.com", id)
	assert.Equal(t, domain.OrderStatusShipped, updated.Status)
	assert.Empty(t, updated.TrackingUpdates)

	err := ledger.UpdateOrderStatus(ctx, "tom@example.com", "missing", domain.OrderStatusShipped)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestAllOrders_AcrossScopesNewestFirst(t *testing.T) {
	ledger := NewOrderLedger(newMockStore(), testKeys, nullLogger())
	ctx := context.Background()
	base := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)

	ledger.AddOrder(ctx, "tom@example.com", domain.Order{OrderDate: base})
	ledger.AddOrder(ctx, "jerry@example.com", domain.Order{OrderDate: base.Add(2 * time.Hour)})
	ledger.AddOrder(ctx, "tom@example.com", domain.Order{OrderDate: base.Add(time.Hour)})

	all, err := ledger.AllOrders(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, base.Add(2*time.Hour), all[0].OrderDate)
	assert.Equal(t, base, all[2].OrderDate)

	order, scope, err := ledger.FindOrder(ctx, all[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "jerry@example.com", scope)
	assert.Equal(t, all[0].TrackingID, order.TrackingID)
}

func TestSearchOrders(t *testing.T) {
	ledger := NewOrderLedger(newMockStore(), testKeys, nullLogger())
	ctx := context.Background()

	ledger.AddOrder(ctx, "tom@example.com", domain.Order{
		TrackingID:      "CAT-AAAA11112222",
		Status:          domain.OrderStatusProcessing,
		ShippingAddress: domain.Address{FullName: "Tom Cat"},
	})
	ledger.AddOrder(ctx, "jerry@example.com", domain.Order{
		TrackingID:      "CAT-BBBB33334444",
		Status:          domain.OrderStatusShipped,
		ShippingAddress: domain.Address{FullName: "Jerry Mouse"},
	})

	tests := []struct {
		name   string
		filter OrderFilter
		want   []string
	}{
		{"empty filter keeps all", OrderFilter{}, []string{"CAT-AAAA11112222", "CAT-BBBB33334444"}},
		{"tracking id", OrderFilter{Query: "bbbb"}, []string{"CAT-BBBB33334444"}},
		{"customer name", OrderFilter{Query: " tom "}, []string{"CAT-AAAA11112222"}},
		{"status", OrderFilter{Status: domain.OrderStatusShipped}, []string{"CAT-BBBB33334444"}},
		{"query and status", OrderFilter{Query: "tom", Status: domain.OrderStatusShipped}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orders, err := ledger.SearchOrders(ctx, tt.filter)
			require.NoError(t, err)
			var got []string
			for _, o := range orders {
				got = append(got, o.TrackingID)
			}
			assert.ElementsMatch(t, tt.want, got)
		})
	}
}

func TestAddOrder_ConcurrentNoLostWrites(t *testing.T) {
	ledger := NewOrderLedger(newMockStore(), testKeys, nullLogger())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := ledger.AddOrder(ctx, "tom@example.com", domain.Order{TrackingID: fmt.Sprintf("CAT-%d", n)})
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	orders, err := ledger.Orders(ctx, "tom@example.com")
	require.NoError(t, err)
	assert.Len(t, orders, 50)

	all, err := ledger.AllOrders(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 50)
}
