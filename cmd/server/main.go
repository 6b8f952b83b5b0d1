package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"

	"github.com/rl1809/catrink/internal/adapter/handler"
	"github.com/rl1809/catrink/internal/adapter/identity"
	"github.com/rl1809/catrink/internal/adapter/notify"
	"github.com/rl1809/catrink/internal/adapter/storage"
	"github.com/rl1809/catrink/internal/auth"
	"github.com/rl1809/catrink/internal/config"
	"github.com/rl1809/catrink/internal/core/domain"
	"github.com/rl1809/catrink/internal/core/repository"
	"github.com/rl1809/catrink/internal/core/service"
	"github.com/rl1809/catrink/internal/port"
)

func main() {
	storefrontFile := flag.String("storefront", "config/storefront.toml", "storefront settings file")
	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load(*storefrontFile)
	if err != nil {
		log.WithError(err).Fatal("failed to load config")
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Storage
	store, closeStore, err := openStore(ctx, cfg.Storage, log)
	if err != nil {
		log.WithError(err).Fatal("failed to open storage")
	}
	defer closeStore()
	log.WithField("backend", cfg.Storage.Backend).Info("storage ready")

	keys := repository.NewKeys(cfg.Storage.KeyPrefix)

	// Notifications
	notifier := newNotifier(cfg.Notify, log)
	dispatcher := service.NewNotificationDispatcher(notifier, cfg.Notify.QueueSize, log)
	dispatcher.Start(cfg.Notify.Workers)

	// Services
	provider := identity.NewLocalProvider(store, keys, notifier, log)
	authService, err := service.NewAuthService(provider, store, keys, []service.StaticCredential{
		{Email: cfg.Auth.AdminEmail, Password: cfg.Auth.AdminPassword, UID: "static-admin", DisplayName: "Admin", Role: domain.RoleAdmin},
		{Email: cfg.Auth.DemoEmail, Password: cfg.Auth.DemoPassword, UID: "static-demo-admin", DisplayName: "Demo Admin", Role: domain.RoleDemoAdmin},
	}, log)
	if err != nil {
		log.WithError(err).Fatal("failed to init auth")
	}

	ledger := service.NewOrderLedger(store, keys, log)
	catalog := service.NewCatalogService(store, keys, log)
	coupons := service.NewCouponService(store, keys, log)
	pricing := service.NewPricingCalculator(cfg.Checkout.TaxRate, cfg.Checkout.ShippingFee)

	services := handler.Services{
		Auth:    authService,
		Tokens:  auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
		Catalog: catalog,
		Coupons: coupons,
		Ledger:  ledger,
		Checkout: service.NewCheckoutService(ledger, coupons, pricing, dispatcher, service.CheckoutConfig{
			ProcessingDelay:          cfg.Checkout.ProcessingDelay,
			DeliveryWindow:           cfg.Checkout.DeliveryWindow,
			EnforceCouponConstraints: cfg.Checkout.EnforceCouponConstraints,
		}, log),
		Tracking: service.NewTrackingService(ledger, dispatcher, cfg.Tracking.AllowArbitraryTransitions, log),
		Contact:  service.NewContactService(notifier, cfg.Notify.Recipient, log),
		Settings: service.NewSettingsService(store, keys, cfg.Storefront, log),
		Admin:    service.NewAdminService(ledger, catalog, coupons),
		Users:    service.NewUserService(provider, provider, authService, ledger, log),
	}

	// gRPC server
	grpcServer := grpc.NewServer()
	handler.RegisterTrackingServer(grpcServer, handler.NewGRPCHandler(services, log))

	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		log.WithError(err).Fatal("failed to listen")
	}

	go func() {
		log.WithField("addr", cfg.Server.GRPCAddr).Info("gRPC server listening")
		if err := grpcServer.Serve(lis); err != nil {
			log.WithError(err).Error("gRPC server error")
		}
	}()

	// HTTP server
	if log.GetLevel() < logrus.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}
	httpServer := &http.Server{
		Addr:         cfg.Server.HTTPAddr,
		Handler:      handler.NewHTTPHandler(services, log).Router(cfg.Server.CORSOrigins),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.WithField("addr", cfg.Server.HTTPAddr).Info("HTTP server listening")
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("HTTP server error")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("HTTP shutdown incomplete")
	}
	log.Info("HTTP server stopped")

	grpcServer.GracefulStop()
	log.Info("gRPC server stopped")

	// Drain queued notifications
	dispatcher.Close()
	log.Info("notification workers stopped")
}

func openStore(ctx context.Context, cfg config.StorageConfig, log logrus.FieldLogger) (port.KeyValueStore, func(), error) {
	switch cfg.Backend {
	case config.BackendRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			PoolSize: 100,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, nil, err
		}
		return storage.NewRedisAdapter(rdb), func() { rdb.Close() }, nil

	case config.BackendMySQL:
		db, err := openDB(ctx, "mysql", cfg.MySQLDSN, cfg)
		if err != nil {
			return nil, nil, err
		}
		adapter := storage.NewMySQLAdapter(db)
		if err := adapter.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		return adapter, func() { db.Close() }, nil

	case config.BackendPostgres:
		db, err := openDB(ctx, "postgres", cfg.PostgresURL, cfg)
		if err != nil {
			return nil, nil, err
		}
		adapter := storage.NewPostgresAdapter(db)
		if err := adapter.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		return adapter, func() { db.Close() }, nil
	}

	log.Warn("using in-memory storage, data is lost on restart")
	return storage.NewMemoryAdapter(), func() {}, nil
}

func openDB(ctx context.Context, driver, dsn string, cfg config.StorageConfig) (*sql.DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func newNotifier(cfg config.NotifyConfig, log logrus.FieldLogger) port.Notifier {
	if cfg.Driver != "emailjs" {
		return notify.NewLogNotifier(log)
	}
	return notify.NewEmailJSNotifier(notify.EmailJSConfig{
		Endpoint:   cfg.EmailJSEndpoint,
		ServiceID:  cfg.EmailJSService,
		PublicKey:  cfg.EmailJSPublic,
		PrivateKey: cfg.EmailJSPrivate,
		Templates: map[domain.NotificationKind]string{
			domain.NotificationOrderPlaced:   cfg.OrderTemplate,
			domain.NotificationOrderUpdate:   cfg.UpdateTemplate,
			domain.NotificationContact:       cfg.ContactTemplate,
			domain.NotificationPasswordReset: cfg.ResetTemplate,
		},
	}, nil, log)
}
