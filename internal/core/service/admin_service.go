package service

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/rl1809/catrink/internal/core/domain"
)

type DashboardStats struct {
	TotalOrders     int             `json:"totalOrders"`
	TotalRevenue    decimal.Decimal `json:"totalRevenue"`
	TotalProducts   int             `json:"totalProducts"`
	TotalFlavors    int             `json:"totalFlavors"`
	ActiveCoupons   int             `json:"activeCoupons"`
	PendingOrders   int             `json:"pendingOrders"`
	DeliveredOrders int             `json:"deliveredOrders"`
}

type AdminService struct {
	ledger  *OrderLedger
	catalog *CatalogService
	coupons *CouponService
}

func NewAdminService(ledger *OrderLedger, catalog *CatalogService, coupons *CouponService) *AdminService {
	return &AdminService{ledger: ledger, catalog: catalog, coupons: coupons}
}

// Dashboard aggregates the back-office counters. Revenue excludes
// cancelled orders.
func (s *AdminService) Dashboard(ctx context.Context) (DashboardStats, error) {
	orders, err := s.ledger.AllOrders(ctx)
	if err != nil {
		return DashboardStats{}, err
	}
	products, err := s.catalog.Products(ctx)
	if err != nil {
		return DashboardStats{}, err
	}
	flavors, err := s.catalog.Flavors(ctx)
	if err != nil {
		return DashboardStats{}, err
	}
	activeCoupons, err := s.coupons.ActiveCount(ctx)
	if err != nil {
		return DashboardStats{}, err
	}

	stats := DashboardStats{
		TotalOrders:   len(orders),
		TotalRevenue:  decimal.Zero,
		TotalProducts: len(products),
		TotalFlavors:  len(flavors),
		ActiveCoupons: activeCoupons,
	}
	for _, o := range orders {
		switch o.Status {
		case domain.OrderStatusProcessing:
			stats.PendingOrders++
		case domain.OrderStatusDelivered:
			stats.DeliveredOrders++
		}
		if o.Status != domain.OrderStatusCancelled {
			stats.TotalRevenue = stats.TotalRevenue.Add(o.TotalAmount)
		}
	}
	return stats, nil
}
