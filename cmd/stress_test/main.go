package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/rl1809/catrink/internal/adapter/storage"
	"github.com/rl1809/catrink/internal/core/domain"
	"github.com/rl1809/catrink/internal/core/repository"
	"github.com/rl1809/catrink/internal/core/service"
	"github.com/rl1809/catrink/internal/port"
)

const (
	scope      = "stress@catrink.com"
	couponCode = "FIRSTCAT"
	keyPrefix  = "catrink_stress_"
)

type discardQueue struct{}

func (discardQueue) Enqueue(domain.Notification) bool { return true }

// Fires concurrent checkouts at a single identity and checks that every
// accepted order landed in the ledger and every coupon redemption counted.
func main() {
	redisAddr := flag.String("redis", "localhost:6379", "redis address, empty for in-memory storage")
	total := flag.Int("n", 50, "number of concurrent orders")
	flag.Parse()

	ctx := context.Background()
	log := logrus.New()
	log.SetLevel(logrus.WarnLevel)

	var store port.KeyValueStore = storage.NewMemoryAdapter()
	if *redisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: *redisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.WithError(err).Fatal("failed to connect redis")
		}
		defer rdb.Close()

		// Clear previous run
		stale, _ := rdb.Keys(ctx, keyPrefix+"*").Result()
		if len(stale) > 0 {
			rdb.Del(ctx, stale...)
		}
		store = storage.NewRedisAdapter(rdb)
	}

	keys := repository.NewKeys(keyPrefix)
	ledger := service.NewOrderLedger(store, keys, log)
	coupons := service.NewCouponService(store, keys, log)
	pricing := service.NewPricingCalculator(service.DefaultTaxRate, service.DefaultShippingFee)
	checkout := service.NewCheckoutService(ledger, coupons, pricing, discardQueue{}, service.CheckoutConfig{}, log)

	before, err := coupons.Find(ctx, couponCode)
	if err != nil {
		log.WithError(err).Fatal("coupon lookup failed")
	}

	cart := domain.Cart{{
		ProductID: domain.DefaultProductID,
		Name:      "Mango Bluster",
		Price:     decimal.RequireFromString("4.99"),
		Quantity:  3,
	}}
	req := service.PlaceOrderRequest{
		Billing: service.BillingDetails{
			FullName: "Stress Cat",
			Email:    scope,
			Street:   "1 Load Lane",
		},
		PaymentMethod: domain.PaymentCard,
		AcceptTerms:   true,
	}

	var successCount atomic.Int32
	var failCount atomic.Int32

	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < *total; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			cs := checkout.NewSession(cart, domain.ShippingDelivery)
			if err := cs.ApplyCoupon(ctx, couponCode); err != nil {
				failCount.Add(1)
				return
			}
			if _, err := checkout.PlaceOrder(ctx, scope, cs, req); err != nil {
				log.WithError(err).Warn("order failed")
				failCount.Add(1)
				return
			}
			successCount.Add(1)
		}()
	}

	wg.Wait()
	elapsed := time.Since(start)

	success := int(successCount.Load())
	orders, err := ledger.Orders(ctx, scope)
	if err != nil {
		log.WithError(err).Fatal("failed to read ledger")
	}
	after, err := coupons.Find(ctx, couponCode)
	if err != nil {
		log.WithError(err).Fatal("coupon lookup failed")
	}
	redeemed := after.CurrentUses - before.CurrentUses

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Total Requests:   %d\n", *total)
	fmt.Printf("Successful:       %d\n", success)
	fmt.Printf("Failed:           %d\n", failCount.Load())
	fmt.Printf("Orders Stored:    %d\n", len(orders))
	fmt.Printf("Coupon Redeemed:  %d\n", redeemed)
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	ok := true
	if len(orders) != success {
		fmt.Printf("FAIL: %d orders accepted but %d stored\n", success, len(orders))
		ok = false
	} else {
		fmt.Println("PASS: no lost order writes")
	}
	if redeemed != success {
		fmt.Printf("FAIL: %d orders used the coupon but counter moved by %d\n", success, redeemed)
		ok = false
	} else {
		fmt.Println("PASS: coupon counter matches orders")
	}
	if !ok {
		os.Exit(1)
	}
}
